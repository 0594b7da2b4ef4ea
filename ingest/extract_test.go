package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PodJamz/8gent-sub005/llm"
	"github.com/PodJamz/8gent-sub005/memory"
)

// scriptedClient replies with canned texts in order and records requests.
type scriptedClient struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	requests []*llm.Request
}

func (s *scriptedClient) Synchronous(_ context.Context, req *llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	text := ""
	if i < len(s.replies) {
		text = s.replies[i]
	} else if len(s.replies) > 0 {
		text = s.replies[len(s.replies)-1]
	}
	return &llm.Response{Content: []llm.ContentBlock{{Type: llm.ContentBlockTypeText, Text: text}}}, nil
}

func replyJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestExtract_Sanitizes(t *testing.T) {
	reply := replyJSON(t, map[string]interface{}{
		"episodicMemories": []interface{}{
			map[string]interface{}{"content": "hi", "memoryType": "decision", "importance": 0.9},
			map[string]interface{}{"content": strings.Repeat("a", 500), "memoryType": "milestone", "importance": 0.4},
			map[string]interface{}{"content": strings.Repeat("b", 600), "memoryType": "gossip", "importance": 7},
			map[string]interface{}{"content": "Chose Postgres for storage", "importance": "0.25", "context": "db review"},
			map[string]interface{}{"content": 42},
			"not an object",
		},
		"semanticMemories": []interface{}{
			map[string]interface{}{"category": "skill", "key": "Primary Language!", "value": "Go", "confidence": 1.5},
			map[string]interface{}{"category": "hobby", "key": "city", "value": "Lisbon"},
			map[string]interface{}{"category": "fact", "key": "", "value": "dropped"},
			map[string]interface{}{"category": "fact", "key": "no_value"},
		},
		"processingNotes": []interface{}{"ok", 3},
	})
	client := &scriptedClient{replies: []string{reply}}
	ex := NewExtractor(client, "gpt-4o", zerolog.Nop())

	res, err := ex.Extract(context.Background(), "some text", "notes.md", ExtractOptions{})
	require.NoError(t, err)

	require.Len(t, res.Episodic, 3)
	assert.Equal(t, strings.Repeat("a", 500), res.Episodic[0].Content)
	assert.Equal(t, memory.EpisodicMilestone, res.Episodic[0].MemoryType)
	assert.Equal(t, strings.Repeat("b", 500), res.Episodic[1].Content)
	assert.Equal(t, memory.EpisodicInteraction, res.Episodic[1].MemoryType)
	assert.Equal(t, 1.0, res.Episodic[1].Importance)
	assert.Equal(t, 0.25, res.Episodic[2].Importance)
	assert.Equal(t, "db review", res.Episodic[2].Context)

	require.Len(t, res.Semantic, 2)
	assert.Equal(t, "primary_language_", res.Semantic[0].Key)
	assert.Equal(t, memory.CategorySkill, res.Semantic[0].Category)
	assert.Equal(t, 1.0, res.Semantic[0].Confidence)
	assert.Equal(t, "Extracted from notes.md", res.Semantic[0].Source)
	assert.Equal(t, memory.CategoryFact, res.Semantic[1].Category)
	assert.Equal(t, 0.5, res.Semantic[1].Confidence)

	assert.Equal(t, "Processed notes.md", res.Summary)
	assert.Equal(t, []string{"ok", "3"}, res.ProcessingNotes)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.True(t, req.JSONMode)
	assert.EqualValues(t, 4096, req.MaxTokens)
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Contains(t, req.System, "EPISODIC MEMORIES")
	assert.Contains(t, llm.TextOf(req.Messages[0]), `from file "notes.md"`)
}

func TestExtract_CapsCandidates(t *testing.T) {
	var eps, sems []interface{}
	for i := 0; i < 5; i++ {
		eps = append(eps, map[string]interface{}{"content": "an event worth keeping"})
		sems = append(sems, map[string]interface{}{"key": strings.Repeat("k", i+1), "value": "v"})
	}
	client := &scriptedClient{replies: []string{replyJSON(t, map[string]interface{}{
		"episodicMemories": eps, "semanticMemories": sems, "summary": "five of each",
	})}}
	ex := NewExtractor(client, "", zerolog.Nop())

	res, err := ex.Extract(context.Background(), "text", "f.txt", ExtractOptions{MaxEpisodic: 2, MaxSemantic: 3})
	require.NoError(t, err)
	assert.Len(t, res.Episodic, 2)
	assert.Len(t, res.Semantic, 3)
	assert.Equal(t, "five of each", res.Summary)
}

func TestExtract_FailuresBecomeEmptyResult(t *testing.T) {
	tests := []struct {
		name   string
		client *scriptedClient
		note   string
	}{
		{"api error", &scriptedClient{errs: []error{errors.New("boom")}}, "Error: boom"},
		{"malformed json", &scriptedClient{replies: []string{"not json at all"}}, "Error: parse model response"},
		{"empty reply", &scriptedClient{replies: []string{"   "}}, "Error: no response from model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := NewExtractor(tt.client, "", zerolog.Nop())
			res, err := ex.Extract(context.Background(), "text", "chat.txt", ExtractOptions{})
			require.NoError(t, err)
			assert.Empty(t, res.Episodic)
			assert.Empty(t, res.Semantic)
			assert.Equal(t, "Failed to process chat.txt", res.Summary)
			require.Len(t, res.ProcessingNotes, 1)
			assert.True(t, strings.HasPrefix(res.ProcessingNotes[0], tt.note), res.ProcessingNotes[0])
		})
	}
}

func TestExtract_MissingAPIKeyIsReturned(t *testing.T) {
	client := &scriptedClient{errs: []error{llm.ErrMissingAPIKey}}
	ex := NewExtractor(client, "", zerolog.Nop())

	res, err := ex.Extract(context.Background(), "text", "a.txt", ExtractOptions{})
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
	require.NotNil(t, res)
	assert.Empty(t, res.Episodic)
	assert.Equal(t, "Failed to process a.txt", res.Summary)

	var nilExtractor *Extractor
	_, err = nilExtractor.Extract(context.Background(), "text", "a.txt", ExtractOptions{})
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestExtract_TruncatesLongContent(t *testing.T) {
	client := &scriptedClient{replies: []string{`{}`}}
	ex := NewExtractor(client, "", zerolog.Nop())

	_, err := ex.Extract(context.Background(), strings.Repeat("x", 50010), "big.txt", ExtractOptions{})
	require.NoError(t, err)
	prompt := llm.TextOf(client.requests[0].Messages[0])
	assert.Contains(t, prompt, strings.Repeat("x", 50000)+"\n\n[Content truncated...]")
	assert.NotContains(t, prompt, strings.Repeat("x", 50001))
}

func TestParseObject_StripsCodeFence(t *testing.T) {
	raw, err := parseObject("```json\n{\"summary\": \"fenced\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "fenced", raw["summary"])

	_, err = parseObject("[1, 2]")
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 0.0, score(0.0))
	assert.Equal(t, 0.0, score(-3.0))
	assert.Equal(t, 0.5, score(nil))
	assert.Equal(t, 0.5, score("high"))
	assert.Equal(t, 0.5, score(true))
	assert.Equal(t, 0.75, score(" 0.75 "))
}
