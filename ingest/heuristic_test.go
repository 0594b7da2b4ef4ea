package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PodJamz/8gent-sub005/memory"
)

func TestExtractHeuristic(t *testing.T) {
	content := strings.Join([]string{
		"too short",
		"We decided to go with SQLite for the local cache.",
		"I really prefer tabs over spaces in every file.",
		"Shipped the new onboarding flow to production today.",
		"It is critical that we shipped the release on time.",
		"Just a regular paragraph about the weather outside.",
		strings.Repeat("long ", 500),
	}, "\n\n")

	res := ExtractHeuristic(content, "notes.md")
	require.Len(t, res.Episodic, 5)

	assert.Equal(t, memory.EpisodicDecision, res.Episodic[0].MemoryType)
	assert.Equal(t, 0.7, res.Episodic[0].Importance)
	assert.Equal(t, "[From notes.md] We decided to go with SQLite for the local cache.", res.Episodic[0].Content)
	assert.Equal(t, memory.EpisodicPreference, res.Episodic[1].MemoryType)
	assert.Equal(t, memory.EpisodicMilestone, res.Episodic[2].MemoryType)
	assert.Equal(t, 0.9, res.Episodic[2].Importance)
	assert.Equal(t, memory.EpisodicMilestone, res.Episodic[3].MemoryType)
	assert.InDelta(t, 1.0, res.Episodic[3].Importance, 1e-9)
	assert.Equal(t, memory.EpisodicInteraction, res.Episodic[4].MemoryType)
	assert.Equal(t, 0.5, res.Episodic[4].Importance)

	assert.Empty(t, res.Semantic)
	assert.Equal(t, "Processed notes.md with heuristics (5 memories extracted)", res.Summary)
	assert.Equal(t, []string{"Used heuristic extraction - AI processing disabled"}, res.ProcessingNotes)
}

func TestExtractHeuristic_CapsPerFile(t *testing.T) {
	paras := make([]string, 150)
	for i := range paras {
		paras[i] = "A paragraph long enough to be counted here."
	}
	res := ExtractHeuristic(strings.Join(paras, "\n\n"), "bulk.txt")
	assert.Len(t, res.Episodic, 100)
}

func TestExtractHeuristic_ClipsExcerpt(t *testing.T) {
	res := ExtractHeuristic(strings.Repeat("w", 400), "w.txt")
	require.Len(t, res.Episodic, 1)
	assert.Equal(t, "[From w.txt] "+strings.Repeat("w", 300), res.Episodic[0].Content)
}
