package llm

import (
	"context"
	"fmt"
	"time"
)

// RetryLogger receives notices about retried generation calls.
// May be nil for silent operation.
type RetryLogger interface {
	LogWarn(message string)
}

// retryClient wraps a Client with bounded retry on transient transport
// failures. Retry policy lives here, at the transport layer; the improvement
// loop itself never retries.
type retryClient struct {
	underlying Client
	maxRetries int
	baseDelay  time.Duration
	logger     RetryLogger
}

// NewRetryClient wraps client so that transient failures (rate limits,
// server errors) are retried up to maxRetries times with exponential
// backoff. Non-transient failures are surfaced immediately.
func NewRetryClient(client Client, maxRetries int, baseDelay time.Duration, logger RetryLogger) Client {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &retryClient{
		underlying: client,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Model returns the underlying model identifier.
func (c *retryClient) Model() string {
	return c.underlying.Model()
}

// Generate delegates to the underlying client, retrying transient errors.
func (c *retryClient) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<(attempt-1))
			if c.logger != nil {
				c.logger.LogWarn(fmt.Sprintf("generation call failed (%v), retry %d/%d in %s", lastErr, attempt, c.maxRetries, delay))
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		out, err := c.underlying.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !IsTemporary(err) {
			return "", err
		}
	}

	return "", fmt.Errorf("generation failed after %d retries: %w", c.maxRetries, lastErr)
}
