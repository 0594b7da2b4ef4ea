package llm

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit, true},
		{http.StatusRequestEntityTooLarge, ErrorTypeRequestTooLarge, false},
		{http.StatusBadRequest, ErrorTypeInvalidRequest, false},
		{http.StatusUnauthorized, ErrorTypeInvalidRequest, false},
		{http.StatusNotFound, ErrorTypeInvalidRequest, false},
		{http.StatusInternalServerError, ErrorTypeProvider, true},
		{http.StatusServiceUnavailable, ErrorTypeProvider, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus("test", tt.status, "", nil, nil)
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.retryable, IsRetryableError(err))
			assert.Equal(t, tt.status, err.StatusCode)
		})
	}
}

func TestFromStatus_RetryAfterOnlyForRateLimits(t *testing.T) {
	hint := 5 * time.Minute
	rl := FromStatus("test", http.StatusTooManyRequests, "slow down", &hint, nil)
	got := ExtractRetryAfter(rl)
	require.NotNil(t, got)
	assert.Equal(t, hint, *got)
	assert.True(t, IsRateLimitError(rl))

	srv := FromStatus("test", http.StatusBadGateway, "bad gateway", &hint, nil)
	assert.Nil(t, ExtractRetryAfter(srv))
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewNetworkError("ollama", cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryableError(err))
	assert.Equal(t, "ollama: request failed: connection reset", err.Error())
}

func TestHelpersOnForeignErrors(t *testing.T) {
	plain := errors.New("boom")
	assert.False(t, IsRateLimitError(plain))
	assert.False(t, IsRequestTooLargeError(plain))
	assert.False(t, IsRetryableError(plain))
	assert.Nil(t, ExtractRetryAfter(plain))
	assert.False(t, IsRetryableError(NewProviderError("openai", plain)))
}

func TestMissingAPIKeyIsDetectable(t *testing.T) {
	wrapped := NewProviderError("openai", ErrMissingAPIKey)
	assert.ErrorIs(t, wrapped, ErrMissingAPIKey)
}
