package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/leofalp/sagent/core/agent"
	"github.com/leofalp/sagent/providers/ai"
)

// ErrRetryExhausted wraps the last provider error once every attempt failed.
var ErrRetryExhausted = errors.New("sagent: all retry attempts exhausted")

// RetryConfig tunes the retry middleware. Zero values take the defaults noted
// on each field.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one. Default 3.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff. Default 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the growth per attempt. Default 2.
	BackoffFactor float64

	// JitterFraction adds up to this fraction of the backoff at random. Default 0.1.
	JitterFraction float64

	// Retryable decides whether err is transient. Default [IsRetryable].
	Retryable func(error) bool

	// Logger receives a warning per retry. Nil disables it.
	Logger *slog.Logger
}

// IsRetryable reports whether err is a transient provider failure: a
// *ai.ServiceError with a retryable status, or, for errors that did not come
// through the typed path, a message carrying one of those status codes.
// Context cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var serviceErr *ai.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Retryable()
	}

	msg := err.Error()
	for _, code := range []string{"429", "500", "502", "503", "504", "529"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.Retryable == nil {
		config.Retryable = IsRetryable
	}
}

// computeBackoff returns min(initial * factor^attempt, max) plus jitter.
func computeBackoff(config RetryConfig, attempt int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // jitter needs no crypto
	return time.Duration(base + jitter)
}

// NewRetryMiddleware retries failed sends with exponential backoff.
//
// Streams are not retried: once events reach the caller a replay would
// duplicate them, so the Stream field is nil.
func NewRetryMiddleware(config RetryConfig) agent.MiddlewareConfig {
	applyRetryDefaults(&config)

	send := agent.Middleware(func(next agent.SendFunc) agent.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			var lastErr error

			for attempt := 0; attempt <= config.MaxRetries; attempt++ {
				if attempt > 0 {
					backoff := computeBackoff(config, attempt-1)
					if config.Logger != nil {
						config.Logger.WarnContext(ctx, "retrying llm request",
							slog.String("model", request.Model),
							slog.Int("attempt", attempt),
							slog.Duration("backoff", backoff),
							slog.String("error", lastErr.Error()),
						)
					}

					timer := time.NewTimer(backoff)
					select {
					case <-ctx.Done():
						timer.Stop()
						return nil, ctx.Err()
					case <-timer.C:
					}
				}

				response, err := next(ctx, request)
				if err == nil {
					return response, nil
				}

				lastErr = err
				if !config.Retryable(err) {
					return nil, err
				}
			}

			return nil, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
		}
	})

	return agent.MiddlewareConfig{Send: send}
}
