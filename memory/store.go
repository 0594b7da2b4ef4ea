package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is the SQLite-backed StoreClient.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

var _ StoreClient = (*Store)(nil)

// NewStore creates and returns a Store. The schema must already be migrated.
func NewStore(db *sql.DB, logger zerolog.Logger) (*Store, error) {
	if db == nil {
		return nil, ErrStoreUnavailable
	}
	logger = logger.With().Str("component", "memory_store").Logger()
	logger.Info().Msg("Initializing SQLite memory store")
	return &Store{db: db, logger: logger}, nil
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// StoreEpisodic inserts a new episodic memory and returns its ID.
func (s *Store) StoreEpisodic(ctx context.Context, in EpisodicInput) (string, error) {
	s.logger.Debug().
		Str("method", "StoreEpisodic").
		Str("user_id", in.UserID).
		Str("project_id", in.ProjectID).
		Str("memory_type", string(in.MemoryType)).
		Str("content", truncateString(in.Content, 40)).
		Float64("importance", in.Importance).
		Msg("called")

	if strings.TrimSpace(in.UserID) == "" {
		return "", errors.New("user id is empty")
	}
	if strings.TrimSpace(in.Content) == "" {
		s.logger.Warn().
			Str("method", "StoreEpisodic").
			Msg("Attempted to store empty content")
		return "", errors.New("content is empty")
	}

	var metaJSON []byte
	if in.Metadata != nil {
		var err error
		metaJSON, err = json.Marshal(in.Metadata)
		if err != nil {
			s.logger.Error().
				Str("method", "StoreEpisodic").
				Err(err).
				Msg("Failed to marshal metadata")
			return "", fmt.Errorf("marshal metadata: %w", err)
		}
	}

	id := uuid.NewString()
	query := StatementBuilder().
		Insert(episodicTable).
		Columns(append(EpisodicColumns(), episodicSearchColumn)...).
		Values(id, in.UserID, nullableString(in.ProjectID), in.Content, string(ParseEpisodicType(string(in.MemoryType))),
			in.Importance, nullableBytes(metaJSON), nowMillis(), strings.ToLower(in.Content))

	queryStr, args, err := query.ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		s.logger.Error().
			Str("method", "StoreEpisodic").
			Err(err).
			Msg("Failed to insert episodic memory")
		return "", fmt.Errorf("insert episodic memory: %w", err)
	}

	s.logger.Info().
		Str("method", "StoreEpisodic").
		Str("user_id", in.UserID).
		Str("id", id).
		Msg("Episodic memory stored")
	return id, nil
}

// UpsertSemantic creates or replaces the semantic memory at (user, category, key)
// and returns its ID. The ID of an existing row is preserved.
func (s *Store) UpsertSemantic(ctx context.Context, in SemanticInput) (string, error) {
	s.logger.Debug().
		Str("method", "UpsertSemantic").
		Str("user_id", in.UserID).
		Str("category", string(in.Category)).
		Str("key", in.Key).
		Float64("confidence", in.Confidence).
		Msg("called")

	if strings.TrimSpace(in.UserID) == "" {
		return "", errors.New("user id is empty")
	}
	if in.Key == "" || strings.TrimSpace(in.Value) == "" {
		return "", errors.New("key and value are required")
	}
	category := ParseSemanticCategory(string(in.Category))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	ts := nowMillis()
	query := StatementBuilder().
		Insert(semanticTable).
		Columns(SemanticColumns()...).
		Values(uuid.NewString(), in.UserID, string(category), in.Key, in.Value,
			in.Confidence, nullableString(in.Source), ts, ts).
		Suffix(`ON CONFLICT (user_id, category, key) DO UPDATE SET
			value = excluded.value,
			confidence = excluded.confidence,
			source = excluded.source,
			updated_at = excluded.updated_at`)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return "", fmt.Errorf("build upsert query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryStr, args...); err != nil {
		s.logger.Error().
			Str("method", "UpsertSemantic").
			Err(err).
			Msg("Failed to upsert semantic memory")
		return "", fmt.Errorf("upsert semantic memory: %w", err)
	}

	idQuery, idArgs, err := StatementBuilder().
		Select("id").
		From(semanticTable).
		Where(sq.Eq{"user_id": in.UserID, "category": string(category), "key": in.Key}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build id query: %w", err)
	}
	var id string
	if err := tx.QueryRowContext(ctx, idQuery, idArgs...).Scan(&id); err != nil {
		return "", fmt.Errorf("read semantic id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error().
			Str("method", "UpsertSemantic").
			Err(err).
			Msg("Transaction commit failed")
		return "", err
	}

	s.logger.Info().
		Str("method", "UpsertSemantic").
		Str("user_id", in.UserID).
		Str("key", in.Key).
		Str("id", id).
		Msg("Semantic memory upserted")
	return id, nil
}

// DeleteEpisodic deletes an episodic memory if it belongs to userID.
func (s *Store) DeleteEpisodic(ctx context.Context, memoryID, userID string) error {
	return s.deleteOwned(ctx, episodicTable, memoryID, userID)
}

// DeleteSemantic deletes a semantic memory if it belongs to userID.
func (s *Store) DeleteSemantic(ctx context.Context, memoryID, userID string) error {
	return s.deleteOwned(ctx, semanticTable, memoryID, userID)
}

func (s *Store) deleteOwned(ctx context.Context, table, memoryID, userID string) error {
	queryStr, args, err := StatementBuilder().
		Delete(table).
		Where(sq.Eq{"id": memoryID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		s.logger.Warn().
			Str("method", "deleteOwned").
			Str("table", table).
			Str("memory_id", memoryID).
			Str("user_id", userID).
			Msg("No memory owned by user matched delete")
		return ErrNotFound
	}
	s.logger.Info().
		Str("method", "deleteOwned").
		Str("table", table).
		Str("memory_id", memoryID).
		Msg("Memory deleted")
	return nil
}

// GetMemoryStats counts a user's memories by type and category.
func (s *Store) GetMemoryStats(ctx context.Context, userID string) (Stats, error) {
	byType, err := s.countGrouped(ctx, episodicTable, "memory_type", userID)
	if err != nil {
		return Stats{}, err
	}
	byCategory, err := s.countGrouped(ctx, semanticTable, "category", userID)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{EpisodicByType: byType, SemanticByCategory: byCategory}
	for _, n := range byType {
		stats.EpisodicCount += n
	}
	for _, n := range byCategory {
		stats.SemanticCount += n
	}
	return stats, nil
}

func (s *Store) countGrouped(ctx context.Context, table, column, userID string) (map[string]int, error) {
	queryStr, args, err := StatementBuilder().
		Select(column, "COUNT(*)").
		From(table).
		Where(sq.Eq{"user_id": userID}).
		GroupBy(column).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	out := map[string]int{}
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}
