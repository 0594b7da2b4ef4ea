package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/PodJamz/8gent-sub005/llm"
)

const (
	maxContentRunes = 50000
	truncatedMarker = "\n\n[Content truncated...]"
	extractMaxToken = 4096
)

var errEmptyResponse = errors.New("no response from model")

// Extractor asks a completion model to pull episodic and semantic memories out
// of unstructured text. It has no store dependency.
type Extractor struct {
	client llm.Client
	model  string
	logger zerolog.Logger
}

// NewExtractor creates an Extractor. An empty model lets the provider pick its default.
func NewExtractor(client llm.Client, model string, logger zerolog.Logger) *Extractor {
	return &Extractor{
		client: client,
		model:  model,
		logger: logger.With().Str("component", "extractor").Logger(),
	}
}

// Extract runs one completion call over content and returns sanitized
// candidates. API and parse failures are reported inside the result, never as
// an error; the only error returned is llm.ErrMissingAPIKey.
func (e *Extractor) Extract(ctx context.Context, content, label string, opts ExtractOptions) (*IngestionResult, error) {
	opts = opts.withDefaults()
	if e == nil || e.client == nil {
		return failedResult(label, llm.ErrMissingAPIKey), llm.ErrMissingAPIKey
	}

	e.logger.Debug().
		Str("method", "Extract").
		Str("label", label).
		Int("content_len", len(content)).
		Msg("called")

	resp, err := e.client.Synchronous(ctx, &llm.Request{
		Model:  e.model,
		System: extractionSystemPrompt,
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleUser, buildUserPrompt(label, truncateContent(content), opts)),
		},
		MaxTokens: extractMaxToken,
		JSONMode:  true,
	})
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return failedResult(label, err), err
		}
		e.logger.Warn().Err(err).Str("label", label).Msg("Extraction call failed")
		return failedResult(label, err), nil
	}

	raw, err := parseObject(resp.Text())
	if err != nil {
		e.logger.Warn().Err(err).Str("label", label).Msg("Extraction response unusable")
		return failedResult(label, err), nil
	}

	result := sanitizeResult(raw, label, opts)
	e.logger.Info().
		Str("label", label).
		Int("episodic", len(result.Episodic)).
		Int("semantic", len(result.Semantic)).
		Msg("Extraction complete")
	return result, nil
}

func truncateContent(content string) string {
	rs := []rune(content)
	if len(rs) <= maxContentRunes {
		return content
	}
	return string(rs[:maxContentRunes]) + truncatedMarker
}

// parseObject decodes a model reply into an untyped JSON object. Markdown
// code fences around the object are tolerated.
func parseObject(text string) (map[string]interface{}, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return nil, errEmptyResponse
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	if raw == nil {
		return nil, errEmptyResponse
	}
	return raw, nil
}
