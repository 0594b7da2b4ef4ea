package memory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLimit = 10

	// MaxContentLen bounds episodic content and semantic values, in runes.
	MaxContentLen = 500
)

// Manager owns the memory domain logic: retrieval, scoring and persistence
// of episodic and semantic memories on top of a StoreClient.
type Manager struct {
	store  StoreClient
	logger zerolog.Logger
}

// NewManager creates a Manager. A nil store is rejected with ErrStoreUnavailable.
func NewManager(store StoreClient, logger zerolog.Logger) (*Manager, error) {
	if store == nil {
		return nil, ErrStoreUnavailable
	}
	logger = logger.With().Str("component", "memory_manager").Logger()
	return &Manager{store: store, logger: logger}, nil
}

func (m *Manager) client() (StoreClient, error) {
	if m == nil || m.store == nil {
		return nil, ErrStoreUnavailable
	}
	return m.store, nil
}

// LoadRelevantMemories fetches episodic and semantic memories relevant to query
// concurrently and renders a context summary from them.
func (m *Manager) LoadRelevantMemories(ctx context.Context, userID, query string, opts SearchOptions) (*RelevantMemories, error) {
	store, err := m.client()
	if err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	includeEpisodic := opts.IncludeEpisodic == nil || *opts.IncludeEpisodic
	includeSemantic := opts.IncludeSemantic == nil || *opts.IncludeSemantic

	m.logger.Debug().
		Str("method", "LoadRelevantMemories").
		Str("user_id", userID).
		Str("query", truncateString(query, 60)).
		Int("limit", limit).
		Bool("episodic", includeEpisodic).
		Bool("semantic", includeSemantic).
		Msg("called")

	var (
		episodic []EpisodicMemory
		semantic []SemanticMemory
	)
	g, gctx := errgroup.WithContext(ctx)
	if includeEpisodic {
		g.Go(func() error {
			res, err := store.SearchEpisodic(gctx, EpisodicSearch{
				UserID:    userID,
				Query:     query,
				ProjectID: opts.ProjectID,
				Limit:     limit,
			})
			if err != nil {
				return fmt.Errorf("search episodic: %w", err)
			}
			episodic = res
			return nil
		})
	}
	if includeSemantic {
		categories := ExtractCategories(query)
		g.Go(func() error {
			res, err := store.GetSemanticByCategories(gctx, userID, categories)
			if err != nil {
				return fmt.Errorf("load semantic: %w", err)
			}
			semantic = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Error().
			Str("method", "LoadRelevantMemories").
			Str("user_id", userID).
			Err(err).
			Msg("failed to load memories")
		return nil, err
	}

	if episodic == nil {
		episodic = []EpisodicMemory{}
	}
	if semantic == nil {
		semantic = []SemanticMemory{}
	}

	m.logger.Info().
		Str("method", "LoadRelevantMemories").
		Str("user_id", userID).
		Int("episodic", len(episodic)).
		Int("semantic", len(semantic)).
		Msg("memories loaded")

	return &RelevantMemories{
		Episodic:       episodic,
		Semantic:       semantic,
		ContextSummary: BuildContextSummary(episodic, semantic),
	}, nil
}

// StoreEpisodicMemory records an episodic memory unconditionally.
func (m *Manager) StoreEpisodicMemory(
	ctx context.Context,
	userID string,
	content string,
	memoryType EpisodicType,
	importance float64,
	projectID string,
	metadata map[string]interface{},
) (string, error) {
	store, err := m.client()
	if err != nil {
		return "", err
	}
	m.logger.Debug().
		Str("method", "StoreEpisodicMemory").
		Str("user_id", userID).
		Str("memory_type", string(memoryType)).
		Str("content", truncateString(content, 40)).
		Float64("importance", importance).
		Msg("called")

	id, err := store.StoreEpisodic(ctx, EpisodicInput{
		UserID:     userID,
		ProjectID:  projectID,
		Content:    clipRunes(content, MaxContentLen),
		MemoryType: memoryType,
		Importance: clamp01(importance),
		Metadata:   metadata,
	})
	if err != nil {
		return "", fmt.Errorf("store episodic: %w", err)
	}
	return id, nil
}

// UpsertSemanticMemory creates or replaces the fact at (userID, category, key).
func (m *Manager) UpsertSemanticMemory(
	ctx context.Context,
	userID string,
	category SemanticCategory,
	key string,
	value string,
	confidence float64,
	source string,
) (string, error) {
	store, err := m.client()
	if err != nil {
		return "", err
	}
	m.logger.Debug().
		Str("method", "UpsertSemanticMemory").
		Str("user_id", userID).
		Str("category", string(category)).
		Str("key", key).
		Float64("confidence", confidence).
		Msg("called")

	id, err := store.UpsertSemantic(ctx, SemanticInput{
		UserID:     userID,
		Category:   category,
		Key:        NormalizeKey(key),
		Value:      clipRunes(value, MaxContentLen),
		Confidence: clamp01(confidence),
		Source:     source,
	})
	if err != nil {
		return "", fmt.Errorf("upsert semantic: %w", err)
	}
	return id, nil
}

// ProcessInteraction scores an interaction, stores it as an episodic memory
// when its importance exceeds 0.3, and upserts any preference, skill or habit
// statements found in the user message.
func (m *Manager) ProcessInteraction(ctx context.Context, userID string, in Interaction, projectID string) error {
	if _, err := m.client(); err != nil {
		return err
	}
	importance := CalculateImportance(in)
	m.logger.Debug().
		Str("method", "ProcessInteraction").
		Str("user_id", userID).
		Float64("importance", importance).
		Strs("tools", in.ToolsUsed).
		Msg("called")

	if importance > storeThreshold {
		metadata := map[string]interface{}{"toolsUsed": in.ToolsUsed}
		if in.ToolsUsed == nil {
			metadata["toolsUsed"] = []string{}
		}
		if _, err := m.StoreEpisodicMemory(ctx, userID, SummarizeInteraction(in),
			ClassifyInteraction(in), importance, projectID, metadata); err != nil {
			return err
		}
	}

	for _, p := range ExtractPatterns(in) {
		if _, err := m.UpsertSemanticMemory(ctx, userID, p.Category, p.Key, p.Value, p.Confidence, interactionSource); err != nil {
			return err
		}
	}
	return nil
}

// GetAllSemanticMemories returns every semantic memory for the user.
func (m *Manager) GetAllSemanticMemories(ctx context.Context, userID string) ([]SemanticMemory, error) {
	store, err := m.client()
	if err != nil {
		return nil, err
	}
	res, err := store.GetAllSemantic(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get all semantic: %w", err)
	}
	return res, nil
}

// GetRecentMemories returns the newest episodic memories, optionally scoped to a project.
func (m *Manager) GetRecentMemories(ctx context.Context, userID, projectID string, limit int) ([]EpisodicMemory, error) {
	store, err := m.client()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	res, err := store.GetRecentEpisodic(ctx, userID, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent episodic: %w", err)
	}
	return res, nil
}

// GetStats returns memory counts for the user.
func (m *Manager) GetStats(ctx context.Context, userID string) (Stats, error) {
	store, err := m.client()
	if err != nil {
		return Stats{}, err
	}
	stats, err := store.GetMemoryStats(ctx, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("get memory stats: %w", err)
	}
	return stats, nil
}

// DeleteEpisodicMemory removes an episodic memory owned by userID.
func (m *Manager) DeleteEpisodicMemory(ctx context.Context, memoryID, userID string) error {
	store, err := m.client()
	if err != nil {
		return err
	}
	m.logger.Info().
		Str("method", "DeleteEpisodicMemory").
		Str("user_id", userID).
		Str("memory_id", memoryID).
		Msg("deleting")
	if err := store.DeleteEpisodic(ctx, memoryID, userID); err != nil {
		return fmt.Errorf("delete episodic: %w", err)
	}
	return nil
}

// DeleteSemanticMemory removes a semantic memory owned by userID.
func (m *Manager) DeleteSemanticMemory(ctx context.Context, memoryID, userID string) error {
	store, err := m.client()
	if err != nil {
		return err
	}
	m.logger.Info().
		Str("method", "DeleteSemanticMemory").
		Str("user_id", userID).
		Str("memory_id", memoryID).
		Msg("deleting")
	if err := store.DeleteSemantic(ctx, memoryID, userID); err != nil {
		return fmt.Errorf("delete semantic: %w", err)
	}
	return nil
}
