package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PodJamz/8gent-sub005/llm"
)

func TestOpenAIClient_MissingAPIKey(t *testing.T) {
	c := NewOpenAIClient("", "", "gpt-4o", "")
	_, err := c.Synchronous(context.Background(), &llm.Request{})
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestToOpenAIMessages_SystemFirst(t *testing.T) {
	msgs := toOpenAIMessages("sys", []llm.Message{
		llm.NewTextMessage(llm.RoleUser, "hello"),
		llm.NewTextMessage(llm.RoleAssistant, "hi"),
	})
	require.Len(t, msgs, 3)
	want := []string{openai.ChatMessageRoleSystem, openai.ChatMessageRoleUser, openai.ChatMessageRoleAssistant}
	for i, m := range msgs {
		assert.Equal(t, want[i], m.Role, "msgs[%d]", i)
	}
}

func TestConvertOpenAIError(t *testing.T) {
	err := convertOpenAIError(&openai.APIError{HTTPStatusCode: 429, Message: "slow down"})
	assert.True(t, llm.IsRateLimitError(err))
	hint := llm.ExtractRetryAfter(err)
	require.NotNil(t, hint)
	assert.Equal(t, rateLimitHint, *hint)

	err = convertOpenAIError(&openai.APIError{HTTPStatusCode: 503, Message: "down"})
	assert.True(t, llm.IsRetryableError(err))

	err = convertOpenAIError(&openai.APIError{HTTPStatusCode: 401, Message: "bad key"})
	assert.False(t, llm.IsRetryableError(err))

	err = convertOpenAIError(errors.New("dial tcp: connection refused"))
	assert.True(t, llm.IsRetryableError(err))
}
