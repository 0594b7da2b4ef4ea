package remote

import (
	"encoding/json"
	"time"

	"github.com/PodJamz/8gent-sub005/memory"
)

type request struct {
	Path   string      `json:"path"`
	Args   interface{} `json:"args"`
	Format string      `json:"format"`
}

type response struct {
	Status       string          `json:"status"`
	Value        json.RawMessage `json:"value"`
	ErrorMessage string          `json:"errorMessage"`
	ErrorData    interface{}     `json:"errorData,omitempty"`
}

type searchArgs struct {
	UserID    string `json:"userId"`
	Query     string `json:"query"`
	ProjectID string `json:"projectId,omitempty"`
	Limit     int    `json:"limit"`
}

type userArgs struct {
	UserID string `json:"userId"`
}

type categoriesArgs struct {
	UserID     string   `json:"userId"`
	Categories []string `json:"categories"`
}

type recentArgs struct {
	UserID    string `json:"userId"`
	ProjectID string `json:"projectId,omitempty"`
	Limit     int    `json:"limit"`
}

type storeEpisodicArgs struct {
	UserID     string                 `json:"userId"`
	ProjectID  string                 `json:"projectId,omitempty"`
	Content    string                 `json:"content"`
	MemoryType string                 `json:"memoryType"`
	Importance float64                `json:"importance"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

type upsertSemanticArgs struct {
	UserID     string  `json:"userId"`
	Category   string  `json:"category"`
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

type deleteArgs struct {
	MemoryID string `json:"memoryId"`
	UserID   string `json:"userId"`
}

type episodicDoc struct {
	ID           string                 `json:"_id"`
	CreationTime float64                `json:"_creationTime"`
	UserID       string                 `json:"userId"`
	ProjectID    string                 `json:"projectId"`
	Content      string                 `json:"content"`
	MemoryType   string                 `json:"memoryType"`
	Importance   float64                `json:"importance"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    float64                `json:"createdAt"`
}

func (d episodicDoc) toMemory() memory.EpisodicMemory {
	return memory.EpisodicMemory{
		ID:         d.ID,
		UserID:     d.UserID,
		ProjectID:  d.ProjectID,
		Content:    d.Content,
		MemoryType: memory.ParseEpisodicType(d.MemoryType),
		Importance: d.Importance,
		Metadata:   d.Metadata,
		CreatedAt:  millis(d.CreatedAt, d.CreationTime),
	}
}

type semanticDoc struct {
	ID           string  `json:"_id"`
	CreationTime float64 `json:"_creationTime"`
	UserID       string  `json:"userId"`
	Category     string  `json:"category"`
	Key          string  `json:"key"`
	Value        string  `json:"value"`
	Confidence   float64 `json:"confidence"`
	Source       string  `json:"source"`
	CreatedAt    float64 `json:"createdAt"`
	UpdatedAt    float64 `json:"updatedAt"`
}

func (d semanticDoc) toMemory() memory.SemanticMemory {
	created := millis(d.CreatedAt, d.CreationTime)
	return memory.SemanticMemory{
		ID:         d.ID,
		UserID:     d.UserID,
		Category:   memory.ParseSemanticCategory(d.Category),
		Key:        d.Key,
		Value:      d.Value,
		Confidence: d.Confidence,
		Source:     d.Source,
		CreatedAt:  created,
		UpdatedAt:  millis(d.UpdatedAt, d.CreatedAt, d.CreationTime),
	}
}

type statsDoc struct {
	EpisodicCount      int            `json:"episodicCount"`
	SemanticCount      int            `json:"semanticCount"`
	EpisodicByType     map[string]int `json:"episodicByType"`
	SemanticByCategory map[string]int `json:"semanticByCategory"`
}

// millis returns the first non-zero epoch-millisecond value as a time.
func millis(candidates ...float64) time.Time {
	for _, ms := range candidates {
		if ms > 0 {
			return time.UnixMilli(int64(ms))
		}
	}
	return time.Time{}
}
