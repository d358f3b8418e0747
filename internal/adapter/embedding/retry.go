package embedding

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	openai "github.com/sashabaranov/go-openai"

	"supportbot/internal/port"
)

// RetryConfig bounds how long a single embedding call may take.
type RetryConfig struct {
	MaxRetries   int           // retries after the first attempt
	Timeout      time.Duration // per-attempt timeout
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig returns the retry policy used by the CLI.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		Timeout:      60 * time.Second,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	}
}

// RetryEmbedder wraps an Embedder with a per-attempt timeout and a bounded
// number of exponential-backoff retries.
type RetryEmbedder struct {
	inner  port.Embedder
	config RetryConfig
}

func NewRetryEmbedder(inner port.Embedder, config RetryConfig) *RetryEmbedder {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 500 * time.Millisecond
	}
	if config.MaxDelay < config.InitialDelay {
		config.MaxDelay = config.InitialDelay
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &RetryEmbedder{inner: inner, config: config}
}

func (r *RetryEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	operation := func() ([][]float32, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()

		vectors, err := r.inner.Embed(attemptCtx, texts)
		if err != nil && !isRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return vectors, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.InitialDelay
	b.MaxInterval = r.config.MaxDelay

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.config.MaxRetries+1)),
	)
}

func (r *RetryEmbedder) Dimension() int {
	return r.inner.Dimension()
}

func (r *RetryEmbedder) ModelName() string {
	return r.inner.ModelName()
}

// isRetryable reports whether a failed embedding call is worth repeating.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status == 0 {
		// transport errors and malformed payloads
		return true
	}
	return status == http.StatusTooManyRequests || status >= 500
}
