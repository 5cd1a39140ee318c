package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/leofalp/sagent/providers/ai"
)

// sendSequence returns errs[i] on call i, then a default response.
type sendSequence struct {
	errs  []error
	calls int
}

func (s *sendSequence) next(_ context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
	index := s.calls
	s.calls++
	if index < len(s.errs) && s.errs[index] != nil {
		return nil, s.errs[index]
	}
	return &ai.ChatResponse{Content: "ok", FinishReason: "stop"}, nil
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestRetryMiddleware_SuccessOnFirstTry(t *testing.T) {
	seq := &sendSequence{}
	send := NewRetryMiddleware(fastRetry(3)).Send(seq.next)

	response, err := send(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "ok" || seq.calls != 1 {
		t.Errorf("content=%q calls=%d", response.Content, seq.calls)
	}
}

func TestRetryMiddleware_RetryThenSuccess(t *testing.T) {
	seq := &sendSequence{errs: []error{
		ai.NewServiceError(http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`),
		ai.NewServiceError(http.StatusBadGateway, "bad gateway"),
	}}
	send := NewRetryMiddleware(fastRetry(3)).Send(seq.next)

	if _, err := send(context.Background(), ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq.calls != 3 {
		t.Errorf("expected 3 calls, got %d", seq.calls)
	}
}

func TestRetryMiddleware_ExhaustsRetries(t *testing.T) {
	last := ai.NewServiceError(http.StatusServiceUnavailable, "down")
	seq := &sendSequence{errs: []error{last, last, last}}
	send := NewRetryMiddleware(fastRetry(2)).Send(seq.next)

	_, err := send(context.Background(), ai.ChatRequest{})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, ai.ErrService) {
		t.Errorf("expected the provider error to stay in the chain: %v", err)
	}
	var serviceErr *ai.ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected *ai.ServiceError 503, got %v", err)
	}
	if seq.calls != 3 {
		t.Errorf("expected 3 calls, got %d", seq.calls)
	}
}

func TestRetryMiddleware_NonRetryableError(t *testing.T) {
	authErr := ai.NewServiceError(http.StatusUnauthorized, "bad key")
	seq := &sendSequence{errs: []error{authErr}}
	send := NewRetryMiddleware(fastRetry(3)).Send(seq.next)

	_, err := send(context.Background(), ai.ChatRequest{})
	if !errors.Is(err, ai.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("non-retryable errors must not be reported as exhausted")
	}
	if seq.calls != 1 {
		t.Errorf("expected 1 call, got %d", seq.calls)
	}
}

func TestRetryMiddleware_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	seq := &sendSequence{errs: []error{ai.NewServiceError(http.StatusTooManyRequests, "")}}
	send := NewRetryMiddleware(RetryConfig{MaxRetries: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour}).Send(
		func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			defer cancel()
			return seq.next(ctx, request)
		})

	_, err := send(ctx, ai.ChatRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if seq.calls != 1 {
		t.Errorf("expected 1 call, got %d", seq.calls)
	}
}

func TestRetryMiddleware_CustomRetryable(t *testing.T) {
	sentinel := errors.New("flaky")
	seq := &sendSequence{errs: []error{sentinel, sentinel}}
	config := fastRetry(5)
	config.Retryable = func(err error) bool { return errors.Is(err, sentinel) }

	if _, err := NewRetryMiddleware(config).Send(seq.next)(context.Background(), ai.ChatRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq.calls != 3 {
		t.Errorf("expected 3 calls, got %d", seq.calls)
	}
}

func TestRetryMiddleware_StreamIsNil(t *testing.T) {
	if NewRetryMiddleware(RetryConfig{}).Stream != nil {
		t.Error("streams must bypass retries")
	}
}

func TestApplyRetryDefaults(t *testing.T) {
	var config RetryConfig
	applyRetryDefaults(&config)

	if config.MaxRetries != 3 || config.InitialBackoff != time.Second || config.MaxBackoff != 30*time.Second {
		t.Errorf("unexpected defaults: %+v", config)
	}
	if config.BackoffFactor != 2.0 || config.JitterFraction != 0.1 || config.Retryable == nil {
		t.Errorf("unexpected defaults: %+v", config)
	}
}

func TestComputeBackoff(t *testing.T) {
	config := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		BackoffFactor:  2,
		JitterFraction: 0.1,
	}

	tests := []struct {
		attempt int
		base    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{10, time.Second},
	}
	for _, tt := range tests {
		got := computeBackoff(config, tt.attempt)
		maxWithJitter := tt.base + tt.base/10
		if got < tt.base || got > maxWithJitter {
			t.Errorf("attempt %d: backoff %v outside [%v, %v]", tt.attempt, got, tt.base, maxWithJitter)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", ai.NewServiceError(429, ""), true},
		{"overloaded", fmt.Errorf("wrapped: %w", ai.NewServiceError(529, "")), true},
		{"server error", ai.NewServiceError(500, ""), true},
		{"not implemented", ai.NewServiceError(501, ""), false},
		{"bad request", ai.NewServiceError(400, ""), false},
		{"untyped 503", errors.New("upstream returned 503"), true},
		{"untyped other", errors.New("connection reset"), false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
