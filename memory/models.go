package memory

import (
	"strings"
	"time"
)

// EpisodicType classifies what kind of event an episodic memory records.
type EpisodicType string

const (
	EpisodicInteraction EpisodicType = "interaction"
	EpisodicDecision    EpisodicType = "decision"
	EpisodicPreference  EpisodicType = "preference"
	EpisodicFeedback    EpisodicType = "feedback"
	EpisodicMilestone   EpisodicType = "milestone"
)

var episodicTypes = map[EpisodicType]bool{
	EpisodicInteraction: true,
	EpisodicDecision:    true,
	EpisodicPreference:  true,
	EpisodicFeedback:    true,
	EpisodicMilestone:   true,
}

// ParseEpisodicType maps free text onto the closed set of episodic types.
// Anything unrecognized becomes EpisodicInteraction.
func ParseEpisodicType(s string) EpisodicType {
	t := EpisodicType(strings.ToLower(strings.TrimSpace(s)))
	if episodicTypes[t] {
		return t
	}
	return EpisodicInteraction
}

// SemanticCategory classifies a durable fact about the user.
type SemanticCategory string

const (
	CategoryPreference SemanticCategory = "preference"
	CategorySkill      SemanticCategory = "skill"
	CategoryPattern    SemanticCategory = "pattern"
	CategoryFact       SemanticCategory = "fact"
)

var semanticCategories = map[SemanticCategory]bool{
	CategoryPreference: true,
	CategorySkill:      true,
	CategoryPattern:    true,
	CategoryFact:       true,
}

// ParseSemanticCategory maps free text onto the closed set of categories.
// Anything unrecognized becomes CategoryFact.
func ParseSemanticCategory(s string) SemanticCategory {
	c := SemanticCategory(strings.ToLower(strings.TrimSpace(s)))
	if semanticCategories[c] {
		return c
	}
	return CategoryFact
}

// EpisodicMemory is a timestamped record of something that happened.
// Episodic memories are never updated in place; they are only created and deleted.
type EpisodicMemory struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"user_id"`
	ProjectID  string                 `json:"project_id,omitempty"`
	Content    string                 `json:"content"`
	MemoryType EpisodicType           `json:"memory_type"`
	Importance float64                `json:"importance"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// SemanticMemory is a durable fact keyed by (user, category, key).
type SemanticMemory struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Category   SemanticCategory `json:"category"`
	Key        string           `json:"key"`
	Value      string           `json:"value"`
	Confidence float64          `json:"confidence"`
	Source     string           `json:"source,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Interaction is one user turn plus the tools the assistant invoked answering it.
// It is never stored directly.
type Interaction struct {
	UserMessage string
	ToolsUsed   []string
}

// SearchOptions controls LoadRelevantMemories. Nil include flags default to true.
type SearchOptions struct {
	Limit           int
	IncludeEpisodic *bool
	IncludeSemantic *bool
	ProjectID       string
}

// RelevantMemories is what LoadRelevantMemories returns: the raw memories plus
// a rendered summary ready for prompt injection.
type RelevantMemories struct {
	Episodic       []EpisodicMemory `json:"episodic"`
	Semantic       []SemanticMemory `json:"semantic"`
	ContextSummary string           `json:"context_summary"`
}

// Stats summarizes what is stored for a single user.
type Stats struct {
	EpisodicCount      int            `json:"episodic_count"`
	SemanticCount      int            `json:"semantic_count"`
	EpisodicByType     map[string]int `json:"episodic_by_type,omitempty"`
	SemanticByCategory map[string]int `json:"semantic_by_category,omitempty"`
}

// EpisodicInput carries the fields needed to record a new episodic memory.
type EpisodicInput struct {
	UserID     string
	ProjectID  string
	Content    string
	MemoryType EpisodicType
	Importance float64
	Metadata   map[string]interface{}
}

// SemanticInput carries the fields needed to create or replace a semantic memory.
type SemanticInput struct {
	UserID     string
	Category   SemanticCategory
	Key        string
	Value      string
	Confidence float64
	Source     string
}

// EpisodicSearch is a keyword search over one user's episodic memories.
type EpisodicSearch struct {
	UserID    string
	Query     string
	ProjectID string
	Limit     int
}
