// Package remote implements memory.StoreClient against a hosted backend that
// exposes named query and mutation functions over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/PodJamz/8gent-sub005/memory"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 4
)

// Error is a failure reported by the backend or the transport for one procedure call.
type Error struct {
	Procedure  memory.Procedure
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Procedure, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Procedure, e.Message)
}

// Client talks to the backend's /api/query and /api/mutation endpoints.
// Queries are retried with exponential backoff on transport errors, 429 and
// 5xx responses. Mutations are attempted once.
type Client struct {
	baseURL         string
	token           string
	httpClient      *http.Client
	maxRetries      uint64
	initialInterval time.Duration
	logger          zerolog.Logger
}

var _ memory.StoreClient = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithToken sets a bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRetry sets the query retry budget and the first backoff interval.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialInterval = initial
	}
}

// New returns a Client for baseURL. An empty URL yields memory.ErrStoreUnavailable.
func New(baseURL string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, memory.ErrStoreUnavailable
	}
	c := &Client{
		baseURL:         baseURL,
		httpClient:      &http.Client{Timeout: defaultTimeout},
		maxRetries:      defaultMaxRetries,
		initialInterval: 500 * time.Millisecond,
		logger:          logger.With().Str("component", "remote_store").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// functionPath converts "memories.searchEpisodic" to the backend's "memories:searchEpisodic".
func functionPath(p memory.Procedure) string {
	return strings.Replace(string(p), ".", ":", 1)
}

func (c *Client) call(ctx context.Context, proc memory.Procedure, args interface{}, out interface{}) error {
	body, err := json.Marshal(request{Path: functionPath(proc), Args: args, Format: "json"})
	if err != nil {
		return fmt.Errorf("marshal %s args: %w", proc, err)
	}
	endpoint := c.baseURL + "/api/query"
	if proc.IsMutation() {
		endpoint = c.baseURL + "/api/mutation"
	}

	c.logger.Debug().
		Str("method", "call").
		Str("procedure", string(proc)).
		Str("endpoint", endpoint).
		Msg("called")

	var value json.RawMessage
	operation := func() error {
		v, err := c.do(ctx, proc, endpoint, body)
		if err != nil {
			return err
		}
		value = v
		return nil
	}

	if proc.IsMutation() {
		err = operation()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
	} else {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = c.initialInterval
		eb.Multiplier = 2.0
		eb.MaxInterval = 10 * time.Second
		eb.MaxElapsedTime = time.Minute
		eb.RandomizationFactor = 0.2
		eb.Reset()
		b := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)
		err = backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
			c.logger.Warn().
				Str("procedure", string(proc)).
				Dur("wait", wait).
				Err(err).
				Msg("Remote store query failed, retrying")
		})
	}
	if err != nil {
		c.logger.Error().
			Str("method", "call").
			Str("procedure", string(proc)).
			Err(err).
			Msg("Remote store call failed")
		return err
	}

	if out == nil || len(value) == 0 || string(value) == "null" {
		return nil
	}
	if err := json.Unmarshal(value, out); err != nil {
		return fmt.Errorf("decode %s result: %w", proc, err)
	}
	return nil
}

// do performs one HTTP round trip. Errors that must not be retried are wrapped
// with backoff.Permanent.
func (c *Client) do(ctx context.Context, proc memory.Procedure, endpoint string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Procedure: proc, Message: err.Error()}
	}
	defer resp.Body.Close() //nolint:errcheck // Body close error can be ignored

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Procedure: proc, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	var parsed response
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && parsed.ErrorMessage != "" {
			msg = parsed.ErrorMessage
		}
		e := &Error{Procedure: proc, StatusCode: resp.StatusCode, Message: msg}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, e
		}
		return nil, backoff.Permanent(e)
	}
	if decodeErr != nil {
		return nil, backoff.Permanent(&Error{Procedure: proc, StatusCode: resp.StatusCode, Message: "invalid response: " + decodeErr.Error()})
	}
	if parsed.Status != "success" {
		return nil, backoff.Permanent(&Error{Procedure: proc, StatusCode: resp.StatusCode, Message: parsed.ErrorMessage})
	}
	return parsed.Value, nil
}

// SearchEpisodic calls memories.searchEpisodic.
func (c *Client) SearchEpisodic(ctx context.Context, q memory.EpisodicSearch) ([]memory.EpisodicMemory, error) {
	var docs []episodicDoc
	err := c.call(ctx, memory.ProcSearchEpisodic, searchArgs{
		UserID: q.UserID, Query: q.Query, ProjectID: q.ProjectID, Limit: q.Limit,
	}, &docs)
	if err != nil {
		return nil, err
	}
	return episodicFromDocs(docs), nil
}

// GetSemanticByCategories calls memories.getSemanticByCategories.
func (c *Client) GetSemanticByCategories(ctx context.Context, userID string, categories []memory.SemanticCategory) ([]memory.SemanticMemory, error) {
	var docs []semanticDoc
	err := c.call(ctx, memory.ProcGetSemanticByCategories, categoriesArgs{
		UserID:     userID,
		Categories: lo.Map(categories, func(c memory.SemanticCategory, _ int) string { return string(c) }),
	}, &docs)
	if err != nil {
		return nil, err
	}
	return semanticFromDocs(docs), nil
}

// GetAllSemantic calls memories.getAllSemantic.
func (c *Client) GetAllSemantic(ctx context.Context, userID string) ([]memory.SemanticMemory, error) {
	var docs []semanticDoc
	if err := c.call(ctx, memory.ProcGetAllSemantic, userArgs{UserID: userID}, &docs); err != nil {
		return nil, err
	}
	return semanticFromDocs(docs), nil
}

// GetRecentEpisodic calls memories.getRecentEpisodic.
func (c *Client) GetRecentEpisodic(ctx context.Context, userID, projectID string, limit int) ([]memory.EpisodicMemory, error) {
	var docs []episodicDoc
	err := c.call(ctx, memory.ProcGetRecentEpisodic, recentArgs{UserID: userID, ProjectID: projectID, Limit: limit}, &docs)
	if err != nil {
		return nil, err
	}
	return episodicFromDocs(docs), nil
}

// StoreEpisodic calls memories.storeEpisodic and returns the new document ID.
func (c *Client) StoreEpisodic(ctx context.Context, in memory.EpisodicInput) (string, error) {
	var id string
	err := c.call(ctx, memory.ProcStoreEpisodic, storeEpisodicArgs{
		UserID:     in.UserID,
		ProjectID:  in.ProjectID,
		Content:    in.Content,
		MemoryType: string(in.MemoryType),
		Importance: in.Importance,
		Metadata:   in.Metadata,
	}, &id)
	return id, err
}

// UpsertSemantic calls memories.upsertSemantic and returns the document ID.
func (c *Client) UpsertSemantic(ctx context.Context, in memory.SemanticInput) (string, error) {
	var id string
	err := c.call(ctx, memory.ProcUpsertSemantic, upsertSemanticArgs{
		UserID:     in.UserID,
		Category:   string(in.Category),
		Key:        in.Key,
		Value:      in.Value,
		Confidence: in.Confidence,
		Source:     in.Source,
	}, &id)
	return id, err
}

// DeleteEpisodic calls memories.deleteEpisodic.
func (c *Client) DeleteEpisodic(ctx context.Context, memoryID, userID string) error {
	return notFound(c.call(ctx, memory.ProcDeleteEpisodic, deleteArgs{MemoryID: memoryID, UserID: userID}, nil))
}

// DeleteSemantic calls memories.deleteSemantic.
func (c *Client) DeleteSemantic(ctx context.Context, memoryID, userID string) error {
	return notFound(c.call(ctx, memory.ProcDeleteSemantic, deleteArgs{MemoryID: memoryID, UserID: userID}, nil))
}

// GetMemoryStats calls memories.getMemoryStats.
func (c *Client) GetMemoryStats(ctx context.Context, userID string) (memory.Stats, error) {
	var doc statsDoc
	if err := c.call(ctx, memory.ProcGetMemoryStats, userArgs{UserID: userID}, &doc); err != nil {
		return memory.Stats{}, err
	}
	return memory.Stats(doc), nil
}

// notFound maps the backend's application-level "not found" or ownership
// rejection onto memory.ErrNotFound. HTTP and transport failures pass through.
func notFound(err error) error {
	var e *Error
	if !errors.As(err, &e) || e.StatusCode < 200 || e.StatusCode >= 300 {
		return err
	}
	msg := strings.ToLower(e.Message)
	if strings.Contains(msg, "not found") || strings.Contains(msg, "unauthorized") {
		return fmt.Errorf("%w: %w", memory.ErrNotFound, err)
	}
	return err
}

func episodicFromDocs(docs []episodicDoc) []memory.EpisodicMemory {
	return lo.Map(docs, func(d episodicDoc, _ int) memory.EpisodicMemory { return d.toMemory() })
}

func semanticFromDocs(docs []semanticDoc) []memory.SemanticMemory {
	return lo.Map(docs, func(d semanticDoc, _ int) memory.SemanticMemory { return d.toMemory() })
}
