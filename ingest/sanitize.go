package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/PodJamz/8gent-sub005/memory"
)

const (
	minEpisodicRunes = 10
	maxValueRunes    = memory.MaxContentLen
	maxContextRunes  = 200
	maxSourceRunes   = 100
	defaultScore     = 0.5
)

// sanitizeResult converts an untyped model reply into typed candidates.
// Invalid entries are dropped, out-of-range values clamped and unknown enum
// values coerced; nothing here fails.
func sanitizeResult(raw map[string]interface{}, label string, opts ExtractOptions) *IngestionResult {
	episodic := lo.FilterMap(asSlice(raw["episodicMemories"]), func(item interface{}, _ int) (EpisodicCandidate, bool) {
		return sanitizeEpisodic(item)
	})
	semantic := lo.FilterMap(asSlice(raw["semanticMemories"]), func(item interface{}, _ int) (SemanticCandidate, bool) {
		return sanitizeSemantic(item, label)
	})
	if len(episodic) > opts.MaxEpisodic {
		episodic = episodic[:opts.MaxEpisodic]
	}
	if len(semantic) > opts.MaxSemantic {
		semantic = semantic[:opts.MaxSemantic]
	}

	summary, _ := raw["summary"].(string)
	if strings.TrimSpace(summary) == "" {
		summary = "Processed " + label
	}

	return &IngestionResult{
		Episodic:        episodic,
		Semantic:        semantic,
		Summary:         summary,
		ProcessingNotes: lo.Map(asSlice(raw["processingNotes"]), func(n interface{}, _ int) string { return stringify(n) }),
	}
}

func sanitizeEpisodic(item interface{}) (EpisodicCandidate, bool) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return EpisodicCandidate{}, false
	}
	content, ok := m["content"].(string)
	if !ok || utf8.RuneCountInString(content) < minEpisodicRunes {
		return EpisodicCandidate{}, false
	}
	memoryType, _ := m["memoryType"].(string)

	var note string
	if v, present := m["context"]; present && v != nil {
		note = clip(stringify(v), maxContextRunes)
	}
	return EpisodicCandidate{
		Content:    clip(content, maxValueRunes),
		MemoryType: memory.ParseEpisodicType(memoryType),
		Importance: score(m["importance"]),
		Context:    note,
	}, true
}

func sanitizeSemantic(item interface{}, label string) (SemanticCandidate, bool) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return SemanticCandidate{}, false
	}
	key, _ := m["key"].(string)
	value, _ := m["value"].(string)
	if key == "" || value == "" {
		return SemanticCandidate{}, false
	}
	key = memory.NormalizeKey(key)
	if key == "" {
		return SemanticCandidate{}, false
	}
	category, _ := m["category"].(string)

	source := "Extracted from " + label
	if v, present := m["source"]; present && v != nil {
		if s := clip(stringify(v), maxSourceRunes); s != "" {
			source = s
		}
	}
	return SemanticCandidate{
		Category:   memory.ParseSemanticCategory(category),
		Key:        key,
		Value:      clip(value, maxValueRunes),
		Confidence: score(m["confidence"]),
		Source:     source,
	}, true
}

// score reads a [0,1] score. Numbers and numeric strings are clamped; anything
// else yields 0.5.
func score(v interface{}) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return defaultScore
		}
		f = parsed
	default:
		return defaultScore
	}
	switch {
	case math.IsNaN(f):
		return defaultScore
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func clip(s string, n int) string {
	rs := []rune(s)
	if len(rs) > n {
		return string(rs[:n])
	}
	return s
}
