package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/sagent/core/agent"
	"github.com/leofalp/sagent/internal/utils"
	"github.com/leofalp/sagent/providers/ai"
)

// LogLevel controls how much each request log entry carries.
type LogLevel int

const (
	// LogLevelMinimal logs model, duration and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds message count, preamble length and finish reason.
	LogLevelStandard

	// LogLevelVerbose adds the last user message and the response text,
	// truncated. It logs raw prompts: keep it out of production.
	LogLevelVerbose
)

const truncateLen = 500

// NewLoggingMiddleware logs every provider call before and after it runs.
// Streams get their completion entry once drained or failed.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) agent.MiddlewareConfig {
	if logger == nil {
		logger = slog.Default()
	}
	return agent.MiddlewareConfig{
		Send:   sendLogging(logger, level),
		Stream: streamLogging(logger, level),
	}
}

func sendLogging(logger *slog.Logger, level LogLevel) agent.Middleware {
	return func(next agent.SendFunc) agent.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			logger.InfoContext(ctx, "llm send", requestAttrs(request, level)...)

			start := time.Now()
			response, err := next(ctx, request)
			if err != nil {
				logFailure(ctx, logger, "llm send failed", request.Model, start, err)
				return nil, err
			}

			logger.InfoContext(ctx, "llm send completed", responseAttrs(request.Model, response, time.Since(start), level)...)
			return response, nil
		}
	}
}

func streamLogging(logger *slog.Logger, level LogLevel) agent.StreamMiddleware {
	return func(next agent.StreamFunc) agent.StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			logger.InfoContext(ctx, "llm stream", requestAttrs(request, level)...)

			start := time.Now()
			stream, err := next(ctx, request)
			if err != nil {
				logFailure(ctx, logger, "llm stream failed", request.Model, start, err)
				return nil, err
			}

			return logOnEnd(ctx, stream, logger, request.Model, level, start), nil
		}
	}
}

func logOnEnd(
	ctx context.Context,
	stream *ai.ChatStream,
	logger *slog.Logger,
	model string,
	level LogLevel,
	start time.Time,
) *ai.ChatStream {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		summary := &ai.ChatResponse{Model: model}
		var chunks int

		for event, err := range stream.Iter() {
			if err != nil {
				logFailure(ctx, logger, "llm stream failed", model, start, err)
				yield(event, err)
				return
			}

			switch event.Type {
			case ai.StreamEventContent:
				chunks++
				if level >= LogLevelVerbose {
					summary.Content += event.Content
				}
			case ai.StreamEventUsage:
				if event.Usage != nil {
					summary.Usage = event.Usage
				}
			case ai.StreamEventDone:
				summary.FinishReason = event.FinishReason
			}

			if !yield(event, nil) {
				logger.InfoContext(ctx, "llm stream abandoned",
					slog.String("model", model),
					slog.Duration("duration", time.Since(start)),
					slog.Int("chunks", chunks),
				)
				return
			}
		}

		attrs := responseAttrs(model, summary, time.Since(start), level)
		attrs = append(attrs, slog.Int("chunks", chunks))
		logger.InfoContext(ctx, "llm stream completed", attrs...)
	})
}

func logFailure(ctx context.Context, logger *slog.Logger, msg, model string, start time.Time, err error) {
	logger.ErrorContext(ctx, msg,
		slog.String("model", model),
		slog.Duration("duration", time.Since(start)),
		slog.String("error", err.Error()),
	)
}

func requestAttrs(request ai.ChatRequest, level LogLevel) []any {
	attrs := []any{slog.String("model", request.Model)}

	if level >= LogLevelStandard {
		attrs = append(attrs,
			slog.Int("message_count", len(request.Messages)),
			slog.Int("preamble_length", len(request.SystemPrompt)),
		)
	}

	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		last := request.Messages[len(request.Messages)-1]
		attrs = append(attrs,
			slog.String("last_message_role", string(last.Role)),
			slog.String("last_message_content", utils.TruncateString(last.Content, truncateLen)),
		)
	}

	return attrs
}

func responseAttrs(model string, response *ai.ChatResponse, elapsed time.Duration, level LogLevel) []any {
	if response.Model != "" {
		model = response.Model
	}
	attrs := []any{
		slog.String("model", model),
		slog.Duration("duration", elapsed),
	}

	if response.Usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", response.Usage.PromptTokens),
			slog.Int("completion_tokens", response.Usage.CompletionTokens),
			slog.Int("total_tokens", response.Usage.TotalTokens),
		)
	}

	if level >= LogLevelStandard && response.FinishReason != "" {
		attrs = append(attrs, slog.String("finish_reason", response.FinishReason))
	}

	if level >= LogLevelVerbose && response.Content != "" {
		attrs = append(attrs, slog.String("response_content", utils.TruncateString(response.Content, truncateLen)))
	}

	return attrs
}
