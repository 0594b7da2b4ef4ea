// Package ingest turns unstructured text into candidate memories: it calls a
// completion model with a fixed extraction contract, sanitizes the response,
// splits oversized input into chunks and imports files into a memory.Manager.
package ingest

import "github.com/PodJamz/8gent-sub005/memory"

const (
	DefaultMaxEpisodic = 50
	DefaultMaxSemantic = 30
	DefaultChunkSize   = 30000
)

// EpisodicCandidate is an extracted event that has not been persisted yet.
type EpisodicCandidate struct {
	Content    string              `json:"content"`
	MemoryType memory.EpisodicType `json:"memory_type"`
	Importance float64             `json:"importance"`
	Context    string              `json:"context,omitempty"`
}

// SemanticCandidate is an extracted fact that has not been persisted yet.
type SemanticCandidate struct {
	Category   memory.SemanticCategory `json:"category"`
	Key        string                  `json:"key"`
	Value      string                  `json:"value"`
	Confidence float64                 `json:"confidence"`
	Source     string                  `json:"source"`
}

// IngestionResult is the transient output of one extraction. Callers decide
// which candidates to commit.
type IngestionResult struct {
	Episodic        []EpisodicCandidate `json:"episodic_memories"`
	Semantic        []SemanticCandidate `json:"semantic_memories"`
	Summary         string              `json:"summary"`
	ProcessingNotes []string            `json:"processing_notes"`
}

// ExtractOptions bounds how many candidates of each kind are requested and kept.
type ExtractOptions struct {
	MaxEpisodic int
	MaxSemantic int
}

func (o ExtractOptions) withDefaults() ExtractOptions {
	if o.MaxEpisodic <= 0 {
		o.MaxEpisodic = DefaultMaxEpisodic
	}
	if o.MaxSemantic <= 0 {
		o.MaxSemantic = DefaultMaxSemantic
	}
	return o
}

func failedResult(label string, err error) *IngestionResult {
	return &IngestionResult{
		Episodic:        []EpisodicCandidate{},
		Semantic:        []SemanticCandidate{},
		Summary:         "Failed to process " + label,
		ProcessingNotes: []string{"Error: " + err.Error()},
	}
}
