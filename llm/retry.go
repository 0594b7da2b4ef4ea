package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxRetries is the default maximum number of retries
	DefaultMaxRetries = 3
	// DefaultMaxElapsedTime is the default maximum elapsed time for backoff
	DefaultMaxElapsedTime = 2 * time.Minute
	// DefaultMaxInterval is the default maximum interval for backoff
	DefaultMaxInterval = time.Minute
	// DefaultInitialDelay is the default initial delay for exponential backoff
	DefaultInitialDelay = time.Second

	retryAfterMultiplier          = 1.5
	retryAfterRandomizationFactor = 0.1
	standardMultiplier            = 2.0
	standardRandomizationFactor   = 0.2
)

// RetryClient wraps a Client and retries rate limits and other retryable
// provider errors with exponential backoff. Oversized requests are not
// retried since resending them cannot succeed.
type RetryClient struct {
	next         Client
	maxRetries   uint64
	initialDelay time.Duration
	logger       zerolog.Logger
}

var _ Client = (*RetryClient)(nil)

// NewRetryClient wraps next. maxRetries of zero disables retries.
func NewRetryClient(next Client, maxRetries uint64, logger zerolog.Logger) *RetryClient {
	return &RetryClient{
		next:         next,
		maxRetries:   maxRetries,
		initialDelay: DefaultInitialDelay,
		logger:       logger.With().Str("component", "llm_retry").Logger(),
	}
}

// WithInitialDelay overrides the first backoff interval used when the
// provider gives no retry-after hint.
func (c *RetryClient) WithInitialDelay(d time.Duration) *RetryClient {
	c.initialDelay = d
	return c
}

// Synchronous implements Client.
func (c *RetryClient) Synchronous(ctx context.Context, req *Request) (*Response, error) {
	var b backoff.BackOff
	for attempt := 1; ; attempt++ {
		resp, err := c.next.Synchronous(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !shouldRetry(err) {
			return nil, err
		}
		if b == nil {
			// The first failure picks the schedule so a retry-after hint seeds it.
			b = c.newBackoff(ExtractRetryAfter(err))
		}
		delay := b.NextBackOff()
		if delay == backoff.Stop {
			c.logger.Error().
				Int("attempts", attempt).
				Uint64("max_retries", c.maxRetries).
				Err(err).
				Msg("LLM call failed, retries exhausted")
			return nil, err
		}
		c.logger.Warn().
			Int("attempt", attempt).
			Dur("next_delay", delay).
			Err(err).
			Msg("LLM call failed, retrying after delay")
		if err := waitForRetry(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// waitForRetry waits for delay, respecting context cancellation.
func waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func shouldRetry(err error) bool {
	return IsRetryableError(err)
}

func (c *RetryClient) newBackoff(retryAfter *time.Duration) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if retryAfter != nil && *retryAfter > 0 {
		eb.InitialInterval = *retryAfter
		eb.Multiplier = retryAfterMultiplier
		eb.RandomizationFactor = retryAfterRandomizationFactor
	} else {
		eb.InitialInterval = c.initialDelay
		eb.Multiplier = standardMultiplier
		eb.RandomizationFactor = standardRandomizationFactor
	}
	eb.MaxInterval = DefaultMaxInterval
	eb.MaxElapsedTime = DefaultMaxElapsedTime
	eb.Reset()
	return backoff.WithMaxRetries(eb, c.maxRetries)
}
