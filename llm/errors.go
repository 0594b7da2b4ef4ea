package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrMissingAPIKey is returned at call time when a provider that needs a
// credential was built without one.
var ErrMissingAPIKey = errors.New("llm: missing API key")

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeRequestTooLarge ErrorType = "request_too_large"
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeProvider        ErrorType = "provider"
	ErrorTypeNetwork         ErrorType = "network"
)

// Error is a provider failure classified independently of the provider SDK.
type Error struct {
	Provider    string
	Type        ErrorType
	Message     string
	StatusCode  int
	Retryable   bool
	RetryAfter  *time.Duration
	ProviderErr error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.ProviderErr != nil {
		msg += ": " + e.ProviderErr.Error()
	}
	return msg
}

// Unwrap returns the underlying provider error.
func (e *Error) Unwrap() error {
	return e.ProviderErr
}

// FromStatus classifies a failed provider response by HTTP status.
// 429 and 5xx are retryable; retryAfter may be nil.
func FromStatus(provider string, status int, message string, retryAfter *time.Duration, providerErr error) *Error {
	e := &Error{
		Provider:    provider,
		Message:     message,
		StatusCode:  status,
		ProviderErr: providerErr,
	}
	switch {
	case status == http.StatusTooManyRequests:
		e.Type = ErrorTypeRateLimit
		e.Retryable = true
		e.RetryAfter = retryAfter
	case status == http.StatusRequestEntityTooLarge:
		e.Type = ErrorTypeRequestTooLarge
	case status >= 500:
		e.Type = ErrorTypeProvider
		e.Retryable = true
	case status >= 400:
		e.Type = ErrorTypeInvalidRequest
	default:
		e.Type = ErrorTypeProvider
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("status %d", status)
	}
	return e
}

// NewNetworkError wraps a transport failure. These are retryable.
func NewNetworkError(provider string, err error) *Error {
	return &Error{
		Provider:    provider,
		Type:        ErrorTypeNetwork,
		Message:     "request failed",
		Retryable:   true,
		ProviderErr: err,
	}
}

// NewProviderError wraps an unclassified, non-retryable provider failure.
func NewProviderError(provider string, err error) *Error {
	return &Error{
		Provider:    provider,
		Type:        ErrorTypeProvider,
		Message:     "API error",
		ProviderErr: err,
	}
}

func asError(err error) (*Error, bool) {
	var llmErr *Error
	ok := errors.As(err, &llmErr)
	return llmErr, ok
}

// IsRateLimitError reports whether err is a rate limit.
func IsRateLimitError(err error) bool {
	e, ok := asError(err)
	return ok && e.Type == ErrorTypeRateLimit
}

// IsRequestTooLargeError reports whether err rejects an oversized request.
func IsRequestTooLargeError(err error) bool {
	e, ok := asError(err)
	return ok && e.Type == ErrorTypeRequestTooLarge
}

// IsRetryableError reports whether resending the same request may succeed.
func IsRetryableError(err error) bool {
	e, ok := asError(err)
	return ok && e.Retryable
}

// ExtractRetryAfter returns the provider's retry-after hint, if any.
func ExtractRetryAfter(err error) *time.Duration {
	if e, ok := asError(err); ok {
		return e.RetryAfter
	}
	return nil
}
