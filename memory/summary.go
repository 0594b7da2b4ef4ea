package memory

import (
	"fmt"
	"sort"
	"strings"
)

const (
	summarySemanticLimit = 5
	summaryEpisodicLimit = 3
)

// BuildContextSummary renders memories as a plain-text block for prompt injection.
// Semantic memories are listed by descending confidence under "User Context:",
// episodic memories by descending importance under "Recent History:". Empty
// sections are left out. The input slices are not reordered.
func BuildContextSummary(episodic []EpisodicMemory, semantic []SemanticMemory) string {
	var parts []string

	if len(semantic) > 0 {
		sorted := append([]SemanticMemory(nil), semantic...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })
		if len(sorted) > summarySemanticLimit {
			sorted = sorted[:summarySemanticLimit]
		}
		var b strings.Builder
		b.WriteString("User Context:")
		for _, m := range sorted {
			fmt.Fprintf(&b, "\n- %s: %s", m.Category, m.Value)
		}
		parts = append(parts, b.String())
	}

	if len(episodic) > 0 {
		sorted := append([]EpisodicMemory(nil), episodic...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Importance > sorted[j].Importance })
		if len(sorted) > summaryEpisodicLimit {
			sorted = sorted[:summaryEpisodicLimit]
		}
		var b strings.Builder
		b.WriteString("Recent History:")
		for _, m := range sorted {
			fmt.Fprintf(&b, "\n- [%s] %s", m.MemoryType, m.Content)
		}
		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n\n")
}
