package middleware

import (
	"context"
	"time"

	"github.com/leofalp/sagent/core/agent"
	"github.com/leofalp/sagent/providers/ai"
)

// NewTimeoutMiddleware bounds every provider call by timeout. For streams the
// deadline covers the whole stream, not just the time to the first byte: the
// context is released when the stream ends, fails or is abandoned. A shorter
// deadline already on the caller's context still wins.
func NewTimeoutMiddleware(timeout time.Duration) agent.MiddlewareConfig {
	return agent.MiddlewareConfig{
		Send:   sendTimeout(timeout),
		Stream: streamTimeout(timeout),
	}
}

func sendTimeout(timeout time.Duration) agent.Middleware {
	return func(next agent.SendFunc) agent.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, request)
		}
	}
}

func streamTimeout(timeout time.Duration) agent.StreamMiddleware {
	return func(next agent.StreamFunc) agent.StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)

			stream, err := next(ctx, request)
			if err != nil {
				cancel()
				return nil, err
			}

			return cancelOnEnd(stream, cancel), nil
		}
	}
}

// cancelOnEnd calls cancel once the inner stream is exhausted, fails, or the
// caller stops ranging. Events after Done (OpenAI sends usage last) are
// still forwarded.
func cancelOnEnd(stream *ai.ChatStream, cancel context.CancelFunc) *ai.ChatStream {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		defer cancel()

		for event, err := range stream.Iter() {
			if !yield(event, err) || err != nil {
				return
			}
		}
	})
}
