package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateImportance(t *testing.T) {
	tests := []struct {
		name string
		in   Interaction
		want float64
	}{
		{"empty", Interaction{}, 0.3},
		{"plain message", Interaction{UserMessage: "show me the weather"}, 0.3},
		{"positive feedback", Interaction{UserMessage: "Thanks!"}, 0.5},
		{"decision language", Interaction{UserMessage: "let's go with option B"}, 0.5},
		{"mutating tool", Interaction{UserMessage: "ok", ToolsUsed: []string{"update_task"}}, 0.45},
		{"many distinct tools", Interaction{UserMessage: "ok", ToolsUsed: []string{"search", "read", "summarize"}}, 0.45},
		{"repeated tool is not many", Interaction{UserMessage: "ok", ToolsUsed: []string{"search", "search", "search"}}, 0.3},
		{
			"everything",
			Interaction{
				UserMessage: "Perfect, I want that, thanks",
				ToolsUsed:   []string{"create_project", "delete_file", "search"},
			},
			1.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateImportance(tt.in)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestClassifyInteraction(t *testing.T) {
	tests := []struct {
		msg   string
		tools []string
		want  EpisodicType
	}{
		{"I love it, thanks", nil, EpisodicFeedback},
		{"Great, I prefer this one", nil, EpisodicFeedback},
		{"I'd rather use Go", nil, EpisodicPreference},
		{"Let's go with the blue design", nil, EpisodicDecision},
		{"pick one for me", nil, EpisodicDecision},
		{"set it up", []string{"create_project"}, EpisodicMilestone},
		{"set it up", []string{"search_docs"}, EpisodicInteraction},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyInteraction(Interaction{UserMessage: tt.msg, ToolsUsed: tt.tools}))
		})
	}
}

func TestSummarizeInteraction(t *testing.T) {
	assert.Equal(t, `User: "hello"`, SummarizeInteraction(Interaction{UserMessage: "hello"}))
	assert.Equal(t, `User: "hello" → Tools: search, create_task`,
		SummarizeInteraction(Interaction{UserMessage: "hello", ToolsUsed: []string{"search", "create_task"}}))

	long := strings.Repeat("a", 150)
	got := SummarizeInteraction(Interaction{UserMessage: long})
	assert.Equal(t, `User: "`+strings.Repeat("a", 100)+`..."`, got)

	exact := strings.Repeat("b", 100)
	assert.Equal(t, `User: "`+exact+`"`, SummarizeInteraction(Interaction{UserMessage: exact}))
}

func TestExtractCategories(t *testing.T) {
	t.Run("favorite theme", func(t *testing.T) {
		got := ExtractCategories("what's your favorite theme")
		require.NotEmpty(t, got)
		assert.Contains(t, got, CategoryPreference)
		assert.Contains(t, got, CategoryFact)
	})
	t.Run("skill and pattern", func(t *testing.T) {
		got := ExtractCategories("Can You tell me how I usually deploy")
		assert.Equal(t, []SemanticCategory{CategorySkill, CategoryPattern}, got)
	})
	t.Run("no keywords falls back to defaults", func(t *testing.T) {
		got := ExtractCategories("hello")
		assert.Equal(t, []SemanticCategory{CategoryPreference, CategorySkill, CategoryPattern}, got)
	})
	t.Run("coding style question", func(t *testing.T) {
		got := ExtractCategories("what do you know about my coding style?")
		assert.Equal(t, []SemanticCategory{CategoryPreference, CategorySkill, CategoryFact}, got)
	})
}

func TestExtractPatterns(t *testing.T) {
	t.Run("preference keyed by subject", func(t *testing.T) {
		got := ExtractPatterns(Interaction{UserMessage: "I prefer dark mode for coding at night"})
		require.Len(t, got, 1)
		assert.Equal(t, CategoryPreference, got[0].Category)
		assert.Equal(t, "pref_dark_mode_for_coding", got[0].Key)
		assert.Equal(t, 0.7, got[0].Confidence)
		assert.Equal(t, "I prefer dark mode for coding at night", got[0].Value)
	})
	t.Run("leading filler words are skipped", func(t *testing.T) {
		got := ExtractPatterns(Interaction{UserMessage: "I like to use tabs"})
		require.Len(t, got, 1)
		assert.Equal(t, "pref_use_tabs", got[0].Key)
	})
	t.Run("no subject", func(t *testing.T) {
		got := ExtractPatterns(Interaction{UserMessage: "I like"})
		require.Len(t, got, 1)
		assert.Equal(t, "pref_general", got[0].Key)
	})
	t.Run("all three families", func(t *testing.T) {
		got := ExtractPatterns(Interaction{UserMessage: "I know Rust and I usually write tests first; my favorite editor is vim"})
		require.Len(t, got, 3)
		assert.Equal(t, CategoryPreference, got[0].Category)
		assert.Equal(t, "pref_editor_is_vim", got[0].Key)
		assert.Equal(t, CategorySkill, got[1].Category)
		assert.Equal(t, 0.6, got[1].Confidence)
		assert.Equal(t, CategoryPattern, got[2].Category)
		assert.Equal(t, 0.5, got[2].Confidence)
	})
	t.Run("value clipped to 200 runes", func(t *testing.T) {
		msg := "I prefer " + strings.Repeat("x", 300)
		got := ExtractPatterns(Interaction{UserMessage: msg})
		require.Len(t, got, 1)
		assert.Len(t, []rune(got[0].Value), 200)
		assert.LessOrEqual(t, len(got[0].Key), 50)
	})
	t.Run("no statement", func(t *testing.T) {
		assert.Empty(t, ExtractPatterns(Interaction{UserMessage: "what time is it"}))
	})
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "preferred_theme", NormalizeKey("preferred_theme"))
	assert.Equal(t, "preferred_theme", NormalizeKey(" Preferred Theme "))
	assert.Equal(t, "coding_language_primary_", NormalizeKey("coding-language.primary!"))
	assert.Len(t, NormalizeKey(strings.Repeat("k", 80)), 50)
}

func TestParseEnums(t *testing.T) {
	assert.Equal(t, EpisodicDecision, ParseEpisodicType("Decision"))
	assert.Equal(t, EpisodicInteraction, ParseEpisodicType("chitchat"))
	assert.Equal(t, CategorySkill, ParseSemanticCategory(" skill "))
	assert.Equal(t, CategoryFact, ParseSemanticCategory("opinion"))
}
