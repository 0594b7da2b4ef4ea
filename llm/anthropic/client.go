package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/PodJamz/8gent-sub005/llm"
)

const defaultMaxTokens int64 = 4096

// AnthropicClient implements the llm.Client interface for Anthropic's API.
type AnthropicClient struct {
	client *anthropic.Client
	apiKey string
	model  string
	logger zerolog.Logger
}

var _ llm.Client = (*AnthropicClient)(nil)

// NewAnthropicClient creates a new AnthropicClient. An empty apiKey is
// accepted; calls then fail with llm.ErrMissingAPIKey.
func NewAnthropicClient(apiKey, model string, logger zerolog.Logger) *AnthropicClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		client: &client,
		apiKey: apiKey,
		model:  model,
		logger: logger.With().Str("component", "anthropic_client").Logger(),
	}
}

// Synchronous implements llm.Client.Synchronous. Anthropic has no JSON
// response switch, so JSONMode appends an instruction to the system prompt.
func (c *AnthropicClient) Synchronous(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if c.apiKey == "" {
		return nil, llm.ErrMissingAPIKey
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	system := req.System
	if req.JSONMode {
		if system != "" {
			system += "\n\n"
		}
		system += llm.JSONInstruction
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  toMessageParams(req.Messages),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, convertAnthropicError(err)
	}

	content := make([]llm.ContentBlock, 0, len(message.Content))
	for _, blockUnion := range message.Content {
		if block, ok := blockUnion.AsAny().(anthropic.TextBlock); ok {
			content = append(content, llm.ContentBlock{
				Type: llm.ContentBlockTypeText,
				Text: block.Text,
			})
		}
	}

	c.logger.Debug().
		Str("model", model).
		Int64("input_tokens", message.Usage.InputTokens).
		Int64("output_tokens", message.Usage.OutputTokens).
		Msg("Message completed")

	return &llm.Response{
		Content: content,
		Usage: &llm.Usage{
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
		},
		StopReason: string(message.StopReason),
	}, nil
}

// toMessageParams converts llm.Messages to Anthropic message params. System
// messages are sent as user turns since Anthropic takes the system prompt separately.
func toMessageParams(msgs []llm.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		block := anthropic.NewTextBlock(llm.TextOf(msg))
		if msg.Role == llm.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
			continue
		}
		out = append(out, anthropic.NewUserMessage(block))
	}
	return out
}

func convertAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return llm.NewNetworkError("anthropic", err)
	}
	return llm.FromStatus("anthropic", apiErr.StatusCode, "", retryAfter(apiErr.Response), err)
}

// retryAfter reads the Retry-After header in its delay-seconds form.
func retryAfter(resp *http.Response) *time.Duration {
	if resp == nil {
		return nil
	}
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return nil
	}
	d := time.Duration(secs) * time.Second
	return &d
}
