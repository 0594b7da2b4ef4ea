package memory

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

const (
	baseImportance     = 0.3
	storeThreshold     = 0.3
	summaryMessageLen  = 100
	patternValueLen    = 200
	maxKeyLen          = 50
	patternSubjectLen  = 4
	interactionSource  = "interaction_learning"
	defaultPatternSlug = "general"
)

var categoryRules = []struct {
	re       *regexp.Regexp
	category SemanticCategory
}{
	{regexp.MustCompile(`(?i)prefer|like|style|theme|mode|favorite`), CategoryPreference},
	{regexp.MustCompile(`(?i)skill|know|experience|proficient|expert|can you`), CategorySkill},
	{regexp.MustCompile(`(?i)pattern|usually|always|tend to|typically`), CategoryPattern},
	{regexp.MustCompile(`(?i)fact|is|are|does|what|who|where`), CategoryFact},
}

var defaultCategories = []SemanticCategory{CategoryPreference, CategorySkill, CategoryPattern}

// ExtractCategories picks the semantic categories a query is likely asking about.
// Matches are additive; with no match the preference, skill and pattern
// categories are returned.
func ExtractCategories(query string) []SemanticCategory {
	var out []SemanticCategory
	for _, rule := range categoryRules {
		if rule.re.MatchString(query) {
			out = append(out, rule.category)
		}
	}
	if len(out) == 0 {
		return append([]SemanticCategory(nil), defaultCategories...)
	}
	return out
}

var (
	positiveFeedbackRe = regexp.MustCompile(`(?i)thanks|perfect|great|exactly|awesome|excellent`)
	decisionLangRe     = regexp.MustCompile(`(?i)decide|choose|prefer|want|let's|go with`)
	mutatingToolRe     = regexp.MustCompile(`create|update|delete`)
)

// CalculateImportance scores an interaction in [0,1].
func CalculateImportance(in Interaction) float64 {
	score := baseImportance
	if positiveFeedbackRe.MatchString(in.UserMessage) {
		score += 0.2
	}
	if len(lo.Uniq(in.ToolsUsed)) > 2 {
		score += 0.15
	}
	if decisionLangRe.MatchString(in.UserMessage) {
		score += 0.2
	}
	if lo.SomeBy(in.ToolsUsed, mutatingToolRe.MatchString) {
		score += 0.15
	}
	return clamp01(score)
}

var (
	feedbackRe      = regexp.MustCompile(`(?i)thanks|great|perfect|awesome|excellent|love it`)
	preferenceRe    = regexp.MustCompile(`(?i)prefer|like|want|rather|always use|my favorite`)
	decisionRe      = regexp.MustCompile(`(?i)decide|choose|let's go with|use this|pick`)
	milestoneToolRe = regexp.MustCompile(`create_project|create_prd|shard_prd|launch`)
)

// ClassifyInteraction assigns an episodic type, first match wins.
func ClassifyInteraction(in Interaction) EpisodicType {
	switch {
	case feedbackRe.MatchString(in.UserMessage):
		return EpisodicFeedback
	case preferenceRe.MatchString(in.UserMessage):
		return EpisodicPreference
	case decisionRe.MatchString(in.UserMessage):
		return EpisodicDecision
	case lo.SomeBy(in.ToolsUsed, milestoneToolRe.MatchString):
		return EpisodicMilestone
	}
	return EpisodicInteraction
}

// SummarizeInteraction renders the stored content for an interaction.
func SummarizeInteraction(in Interaction) string {
	msg := truncateString(in.UserMessage, summaryMessageLen)
	if len(in.ToolsUsed) == 0 {
		return `User: "` + msg + `"`
	}
	return `User: "` + msg + `" → Tools: ` + strings.Join(in.ToolsUsed, ", ")
}

// LearnedPattern is a semantic fact inferred from how the user phrases a message.
type LearnedPattern struct {
	Category   SemanticCategory
	Key        string
	Value      string
	Confidence float64
}

var patternRules = []struct {
	re         *regexp.Regexp
	category   SemanticCategory
	prefix     string
	confidence float64
}{
	{regexp.MustCompile(`(?i)\b(?:i prefer|i like|i want|my favorite|i always use)\b(.*)`), CategoryPreference, "pref", 0.7},
	{regexp.MustCompile(`(?i)\b(?:i know|i can|experience with|proficient in|expert at)\b(.*)`), CategorySkill, "skill", 0.6},
	{regexp.MustCompile(`(?i)\b(?:i usually|i always|i tend to|typically i)\b(.*)`), CategoryPattern, "pattern", 0.5},
}

var (
	wordRe       = regexp.MustCompile(`[a-z0-9]+`)
	keyInvalidRe = regexp.MustCompile(`[^a-z0-9_]`)
	leadingWords = map[string]bool{"to": true, "the": true, "a": true, "an": true, "is": true}
)

// ExtractPatterns finds explicit preference, skill and habit statements.
// Keys are derived from the words following the trigger phrase so that
// restating the same thing replaces the earlier fact instead of adding one.
func ExtractPatterns(in Interaction) []LearnedPattern {
	var out []LearnedPattern
	for _, rule := range patternRules {
		m := rule.re.FindStringSubmatch(in.UserMessage)
		if m == nil {
			continue
		}
		out = append(out, LearnedPattern{
			Category:   rule.category,
			Key:        NormalizeKey(rule.prefix + "_" + patternSubject(m[1])),
			Value:      clipRunes(in.UserMessage, patternValueLen),
			Confidence: rule.confidence,
		})
	}
	return out
}

func patternSubject(rest string) string {
	words := wordRe.FindAllString(strings.ToLower(rest), -1)
	words = lo.DropWhile(words, func(w string) bool { return leadingWords[w] })
	if len(words) == 0 {
		return defaultPatternSlug
	}
	if len(words) > patternSubjectLen {
		words = words[:patternSubjectLen]
	}
	return strings.Join(words, "_")
}

// NormalizeKey lowercases a semantic key, replaces every character outside
// [a-z0-9_] with an underscore and clamps it to 50 runes.
func NormalizeKey(key string) string {
	key = keyInvalidRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(key)), "_")
	return clipRunes(key, maxKeyLen)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func clipRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) > n {
		return string(rs[:n])
	}
	return s
}

// Helper function to safely truncate strings (for log safety).
func truncateString(s string, n int) string {
	rs := []rune(s)
	if len(rs) > n {
		return string(rs[:n]) + "..."
	}
	return s
}
