package ingest

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PodJamz/8gent-sub005/llm"
)

func TestSplitChunks(t *testing.T) {
	t.Run("just above chunk size", func(t *testing.T) {
		content := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 41)
		chunks := SplitChunks(content, 100)
		require.Len(t, chunks, 2)
		assert.Equal(t, strings.Repeat("a", 60), chunks[0])
		assert.Equal(t, strings.Repeat("b", 41), chunks[1])
	})

	t.Run("packs greedily", func(t *testing.T) {
		paras := []string{strings.Repeat("a", 30), strings.Repeat("b", 30), strings.Repeat("c", 30), strings.Repeat("d", 30)}
		chunks := SplitChunks(strings.Join(paras, "\n\n\n"), 70)
		require.Len(t, chunks, 2)
		assert.Equal(t, paras[0]+"\n\n"+paras[1], chunks[0])
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), 70)
		}
	})

	t.Run("oversized paragraph is its own chunk", func(t *testing.T) {
		content := "short\n\n" + strings.Repeat("z", 250) + "\n\nalso short"
		chunks := SplitChunks(content, 100)
		require.Len(t, chunks, 3)
		assert.Equal(t, strings.Repeat("z", 250), chunks[1])
	})
}

func TestMergeResults_KeepsHigherConfidence(t *testing.T) {
	merged := MergeResults([]*IngestionResult{
		{
			Episodic:        []EpisodicCandidate{{Content: "first event here"}},
			Semantic:        []SemanticCandidate{{Key: "theme", Value: "dark", Confidence: 0.6}, {Key: "lang", Value: "Go", Confidence: 0.9}},
			ProcessingNotes: []string{"n1"},
		},
		{
			Episodic:        []EpisodicCandidate{{Content: "second event here"}},
			Semantic:        []SemanticCandidate{{Key: "theme", Value: "light", Confidence: 0.8}, {Key: "lang", Value: "Rust", Confidence: 0.9}},
			ProcessingNotes: []string{"n2"},
		},
	}, "doc.md")

	assert.Equal(t, "Processed doc.md in 2 chunks", merged.Summary)
	require.Len(t, merged.Episodic, 2)
	assert.Equal(t, "first event here", merged.Episodic[0].Content)
	require.Len(t, merged.Semantic, 2)
	assert.Equal(t, "theme", merged.Semantic[0].Key)
	assert.Equal(t, "light", merged.Semantic[0].Value)
	assert.Equal(t, "Go", merged.Semantic[1].Value)
	assert.Equal(t, []string{"n1", "n2"}, merged.ProcessingNotes)
}

func TestChunker_ProcessLargeContent(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"semanticMemories":[{"category":"preference","key":"theme","value":"dark","confidence":0.4}],"processingNotes":["part one"]}`,
		`{"semanticMemories":[{"category":"preference","key":"theme","value":"light","confidence":0.7}],"processingNotes":["part two"]}`,
	}}
	ex := NewExtractor(client, "", zerolog.Nop())
	ch := NewChunker(ex, zerolog.Nop(), WithChunkSize(100), WithRequestsPerMinute(60000))

	content := strings.Repeat("a", 80) + "\n\n" + strings.Repeat("b", 80)
	res, err := ch.ProcessLargeContent(context.Background(), content, "log.txt")
	require.NoError(t, err)

	require.Len(t, client.requests, 2)
	assert.Contains(t, llm.TextOf(client.requests[0].Messages[0]), `"log.txt (part 1/2)"`)
	assert.Contains(t, llm.TextOf(client.requests[1].Messages[0]), `"log.txt (part 2/2)"`)
	assert.Equal(t, "Processed log.txt in 2 chunks", res.Summary)
	require.Len(t, res.Semantic, 1)
	assert.Equal(t, "light", res.Semantic[0].Value)
	assert.Equal(t, []string{"part one", "part two"}, res.ProcessingNotes)
}

func TestChunker_SmallContentDelegates(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"summary":"direct"}`}}
	ch := NewChunker(NewExtractor(client, "", zerolog.Nop()), zerolog.Nop())

	res, err := ch.ProcessLargeContent(context.Background(), "small text", "s.txt")
	require.NoError(t, err)
	assert.Equal(t, "direct", res.Summary)
	assert.Contains(t, llm.TextOf(client.requests[0].Messages[0]), `"s.txt"`)
}

func TestChunker_MissingKeyAborts(t *testing.T) {
	client := &scriptedClient{errs: []error{llm.ErrMissingAPIKey}}
	ch := NewChunker(NewExtractor(client, "", zerolog.Nop()), zerolog.Nop(), WithChunkSize(10))

	_, err := ch.ProcessLargeContent(context.Background(), "first paragraph\n\nsecond paragraph", "x.md")
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
	assert.Len(t, client.requests, 1)
}
