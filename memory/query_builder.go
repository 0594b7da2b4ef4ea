package memory

import (
	sq "github.com/Masterminds/squirrel"
)

const (
	episodicTable = "episodic_memories"
	semanticTable = "semantic_memories"

	// episodicSearchColumn holds the lowercased content matched by SearchEpisodic.
	episodicSearchColumn = "content_search"
)

// StatementBuilder returns a Squirrel StatementBuilder configured for SQLite.
// SQLite uses '?' as placeholders, which is Squirrel's default.
func StatementBuilder() sq.StatementBuilderType {
	return sq.StatementBuilder
}

// EpisodicColumns returns the column list for episodic_memories SELECT queries,
// in the order loadEpisodicFromRow scans them.
func EpisodicColumns() []string {
	return []string{
		"id", "user_id", "project_id", "content", "memory_type",
		"importance", "metadata", "created_at",
	}
}

// SemanticColumns returns the column list for semantic_memories SELECT queries,
// in the order loadSemanticFromRow scans them.
func SemanticColumns() []string {
	return []string{
		"id", "user_id", "category", "key", "value",
		"confidence", "source", "created_at", "updated_at",
	}
}
