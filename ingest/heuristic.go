package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PodJamz/8gent-sub005/memory"
)

const (
	heuristicMinRunes   = 20
	heuristicMaxRunes   = 2000
	heuristicExcerpt    = 300
	heuristicMaxPerFile = 100
	heuristicNote       = "Used heuristic extraction - AI processing disabled"
)

var heuristicRules = []struct {
	re         *regexp.Regexp
	memoryType memory.EpisodicType
	importance float64
}{
	{regexp.MustCompile(`(?i)decided|chose|selected|picked|went with|option|decision`), memory.EpisodicDecision, 0.7},
	{regexp.MustCompile(`(?i)prefer|like|love|favorite|enjoy|rather|better when`), memory.EpisodicPreference, 0.8},
	{regexp.MustCompile(`(?i)feedback|review|thanks|great|perfect|issue|problem|bug`), memory.EpisodicFeedback, 0.6},
	{regexp.MustCompile(`(?i)shipped|launched|completed|finished|released|deployed|milestone|achievement`), memory.EpisodicMilestone, 0.9},
}

var emphasisRe = regexp.MustCompile(`(?i)important|critical|key|essential|must|always|never`)

// ExtractHeuristic classifies paragraphs by keyword without calling a model.
// It only produces episodic candidates.
func ExtractHeuristic(content, label string) *IngestionResult {
	var episodic []EpisodicCandidate
	for _, section := range paragraphSplitRe.Split(content, -1) {
		trimmed := strings.TrimSpace(section)
		n := utf8.RuneCountInString(trimmed)
		if n <= heuristicMinRunes || n > heuristicMaxRunes {
			continue
		}

		memoryType, importance := memory.EpisodicInteraction, 0.5
		for _, rule := range heuristicRules {
			if rule.re.MatchString(trimmed) {
				memoryType, importance = rule.memoryType, rule.importance
				break
			}
		}
		if emphasisRe.MatchString(trimmed) {
			importance = min(1, importance+0.1)
		}

		episodic = append(episodic, EpisodicCandidate{
			Content:    fmt.Sprintf("[From %s] %s", label, clip(trimmed, heuristicExcerpt)),
			MemoryType: memoryType,
			Importance: importance,
		})
		if len(episodic) >= heuristicMaxPerFile {
			break
		}
	}

	return &IngestionResult{
		Episodic:        append([]EpisodicCandidate{}, episodic...),
		Semantic:        []SemanticCandidate{},
		Summary:         fmt.Sprintf("Processed %s with heuristics (%d memories extracted)", label, len(episodic)),
		ProcessingNotes: []string{heuristicNote},
	}
}
