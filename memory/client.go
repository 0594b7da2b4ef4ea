package memory

import "context"

// Procedure names a remote store operation.
type Procedure string

const (
	ProcSearchEpisodic          Procedure = "memories.searchEpisodic"
	ProcGetSemanticByCategories Procedure = "memories.getSemanticByCategories"
	ProcGetAllSemantic          Procedure = "memories.getAllSemantic"
	ProcGetRecentEpisodic       Procedure = "memories.getRecentEpisodic"
	ProcStoreEpisodic           Procedure = "memories.storeEpisodic"
	ProcUpsertSemantic          Procedure = "memories.upsertSemantic"
	ProcDeleteEpisodic          Procedure = "memories.deleteEpisodic"
	ProcDeleteSemantic          Procedure = "memories.deleteSemantic"
	ProcGetMemoryStats          Procedure = "memories.getMemoryStats"
)

// IsMutation reports whether the procedure writes to the store.
func (p Procedure) IsMutation() bool {
	switch p {
	case ProcStoreEpisodic, ProcUpsertSemantic, ProcDeleteEpisodic, ProcDeleteSemantic:
		return true
	}
	return false
}

// StoreClient is the persistence contract the Manager depends on.
// Every call is scoped by user ID. Implementations must verify ownership on
// delete and apply last-write-wins on semantic upserts.
type StoreClient interface {
	SearchEpisodic(ctx context.Context, q EpisodicSearch) ([]EpisodicMemory, error)
	GetSemanticByCategories(ctx context.Context, userID string, categories []SemanticCategory) ([]SemanticMemory, error)
	GetAllSemantic(ctx context.Context, userID string) ([]SemanticMemory, error)
	GetRecentEpisodic(ctx context.Context, userID, projectID string, limit int) ([]EpisodicMemory, error)
	StoreEpisodic(ctx context.Context, in EpisodicInput) (string, error)
	UpsertSemantic(ctx context.Context, in SemanticInput) (string, error)
	DeleteEpisodic(ctx context.Context, memoryID, userID string) error
	DeleteSemantic(ctx context.Context, memoryID, userID string) error
	GetMemoryStats(ctx context.Context, userID string) (Stats, error)
}
