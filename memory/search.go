package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"
)

const minSearchWordLen = 3

var searchWordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// searchWords splits a query into distinct lowercase words of at least three runes.
func searchWords(query string) []string {
	words := searchWordRe.FindAllString(strings.ToLower(query), -1)
	return lo.Uniq(lo.Filter(words, func(w string, _ int) bool {
		return len([]rune(w)) >= minSearchWordLen
	}))
}

// SearchEpisodic matches episodic memories whose content contains any word of
// the query, most important first. A query with no usable words returns the
// most recent memories.
func (s *Store) SearchEpisodic(ctx context.Context, q EpisodicSearch) ([]EpisodicMemory, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	words := searchWords(q.Query)

	s.logger.Debug().
		Str("method", "SearchEpisodic").
		Str("user_id", q.UserID).
		Str("project_id", q.ProjectID).
		Strs("words", words).
		Int("limit", limit).
		Msg("called")

	if len(words) == 0 {
		return s.GetRecentEpisodic(ctx, q.UserID, q.ProjectID, limit)
	}

	where := sq.And{sq.Eq{"user_id": q.UserID}}
	if q.ProjectID != "" {
		where = append(where, sq.Eq{"project_id": q.ProjectID})
	}
	where = append(where, sq.Or(lo.Map(words, func(w string, _ int) sq.Sqlizer {
		return sq.Like{episodicSearchColumn: "%" + w + "%"}
	})))

	builder := StatementBuilder().
		Select(EpisodicColumns()...).
		From(episodicTable).
		Where(where).
		OrderBy("importance DESC", "created_at DESC", "rowid DESC").
		Limit(uint64(limit)) //nolint:gosec // limit is positive

	res, err := s.queryEpisodic(ctx, builder)
	if err != nil {
		s.logger.Error().
			Str("method", "SearchEpisodic").
			Err(err).
			Msg("Episodic search failed")
		return nil, err
	}
	s.logger.Info().
		Str("method", "SearchEpisodic").
		Str("user_id", q.UserID).
		Int("results", len(res)).
		Msg("Episodic search completed")
	return res, nil
}

// GetRecentEpisodic returns the newest episodic memories for a user.
func (s *Store) GetRecentEpisodic(ctx context.Context, userID, projectID string, limit int) ([]EpisodicMemory, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	where := sq.Eq{"user_id": userID}
	if projectID != "" {
		where["project_id"] = projectID
	}
	builder := StatementBuilder().
		Select(EpisodicColumns()...).
		From(episodicTable).
		Where(where).
		OrderBy("created_at DESC", "rowid DESC").
		Limit(uint64(limit)) //nolint:gosec // limit is positive
	return s.queryEpisodic(ctx, builder)
}

// GetSemanticByCategories returns a user's semantic memories in any of the
// given categories, highest confidence first.
func (s *Store) GetSemanticByCategories(ctx context.Context, userID string, categories []SemanticCategory) ([]SemanticMemory, error) {
	s.logger.Debug().
		Str("method", "GetSemanticByCategories").
		Str("user_id", userID).
		Interface("categories", categories).
		Msg("called")
	if len(categories) == 0 {
		return []SemanticMemory{}, nil
	}
	cats := lo.Map(categories, func(c SemanticCategory, _ int) string { return string(c) })
	builder := StatementBuilder().
		Select(SemanticColumns()...).
		From(semanticTable).
		Where(sq.Eq{"user_id": userID, "category": cats}).
		OrderBy("confidence DESC", "updated_at DESC")
	return s.querySemantic(ctx, builder)
}

// GetAllSemantic returns every semantic memory for a user.
func (s *Store) GetAllSemantic(ctx context.Context, userID string) ([]SemanticMemory, error) {
	builder := StatementBuilder().
		Select(SemanticColumns()...).
		From(semanticTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("category", "confidence DESC", "key")
	return s.querySemantic(ctx, builder)
}

func (s *Store) queryEpisodic(ctx context.Context, builder sq.SelectBuilder) ([]EpisodicMemory, error) {
	queryStr, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build episodic query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query episodic memories: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	out := []EpisodicMemory{}
	for rows.Next() {
		m, err := s.loadEpisodicFromRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) querySemantic(ctx context.Context, builder sq.SelectBuilder) ([]SemanticMemory, error) {
	queryStr, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build semantic query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query semantic memories: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	out := []SemanticMemory{}
	for rows.Next() {
		m, err := loadSemanticFromRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) loadEpisodicFromRow(rows *sql.Rows) (EpisodicMemory, error) {
	var (
		m          EpisodicMemory
		projectID  sql.NullString
		memoryType string
		metaJSON   sql.NullString
		createdAt  int64
	)
	if err := rows.Scan(&m.ID, &m.UserID, &projectID, &m.Content, &memoryType,
		&m.Importance, &metaJSON, &createdAt); err != nil {
		return EpisodicMemory{}, err
	}
	m.ProjectID = projectID.String
	m.MemoryType = EpisodicType(memoryType)
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &m.Metadata); err != nil {
			s.logger.Warn().
				Str("method", "loadEpisodicFromRow").
				Str("memory_id", m.ID).
				Err(err).
				Msg("Failed to decode episodic metadata, returning memory without it")
			m.Metadata = nil
		}
	}
	m.CreatedAt = time.UnixMilli(createdAt)
	return m, nil
}

func loadSemanticFromRow(rows *sql.Rows) (SemanticMemory, error) {
	var (
		m         SemanticMemory
		category  string
		source    sql.NullString
		createdAt int64
		updatedAt int64
	)
	if err := rows.Scan(&m.ID, &m.UserID, &category, &m.Key, &m.Value,
		&m.Confidence, &source, &createdAt, &updatedAt); err != nil {
		return SemanticMemory{}, err
	}
	m.Category = SemanticCategory(category)
	m.Source = source.String
	m.CreatedAt = time.UnixMilli(createdAt)
	m.UpdatedAt = time.UnixMilli(updatedAt)
	return m, nil
}
