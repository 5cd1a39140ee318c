package agent

import (
	"context"
	"time"

	"github.com/leofalp/sagent/internal/utils"
	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/observability"
)

// NewObservabilityMiddleware records a span, request metrics and log events
// for every provider call. The span and observer are stored in the context
// passed down the chain so providers can attach child events.
//
// For streams, completion metrics are recorded once the stream is drained,
// abandoned or fails.
func NewObservabilityMiddleware(observer observability.Provider, defaultModel string) MiddlewareConfig {
	return MiddlewareConfig{
		Send:   buildObsSend(observer, defaultModel),
		Stream: buildObsStream(observer, defaultModel),
	}
}

func buildObsSend(observer observability.Provider, defaultModel string) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			model := effectiveModel(request.Model, defaultModel)
			ctx, span := startLLMSpan(ctx, observer, model, false)

			observer.Debug(ctx, "llm send",
				observability.String(observability.AttrLLMModel, model),
				observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
			)

			start := time.Now()
			response, err := next(ctx, request)
			if err != nil {
				recordObsFailure(ctx, span, observer, err, time.Since(start), model, "llm send failed")
				return nil, err
			}

			recordObsSuccess(ctx, span, observer, response, time.Since(start), model)
			return response, nil
		}
	}
}

func buildObsStream(observer observability.Provider, defaultModel string) StreamMiddleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			model := effectiveModel(request.Model, defaultModel)
			ctx, span := startLLMSpan(ctx, observer, model, true)

			observer.Debug(ctx, "llm stream",
				observability.String(observability.AttrLLMModel, model),
				observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
			)

			start := time.Now()
			stream, err := next(ctx, request)
			if err != nil {
				recordObsFailure(ctx, span, observer, err, time.Since(start), model, "llm stream failed")
				return nil, err
			}

			return wrapStreamWithObservability(ctx, stream, span, observer, start, model), nil
		}
	}
}

func startLLMSpan(ctx context.Context, observer observability.Provider, model string, streaming bool) (context.Context, observability.Span) {
	ctx, span := observer.StartSpan(ctx, observability.SpanLLMRequest,
		observability.String(observability.AttrLLMModel, model),
		observability.Bool(observability.AttrLLMStreaming, streaming),
	)
	ctx = observability.ContextWithSpan(ctx, span)
	ctx = observability.ContextWithObserver(ctx, observer)
	return ctx, span
}

// wrapStreamWithObservability re-yields every event unchanged and records the
// outcome when the stream ends.
func wrapStreamWithObservability(
	ctx context.Context,
	stream *ai.ChatStream,
	span observability.Span,
	observer observability.Provider,
	start time.Time,
	model string,
) *ai.ChatStream {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		var usage *ai.Usage
		var finishReason string

		for event, err := range stream.Iter() {
			if err != nil {
				recordObsFailure(ctx, span, observer, err, time.Since(start), model, "llm stream failed")
				yield(event, err)
				return
			}

			switch event.Type {
			case ai.StreamEventUsage:
				if event.Usage != nil {
					usage = event.Usage
				}
			case ai.StreamEventDone:
				finishReason = event.FinishReason
			}

			if !yield(event, nil) {
				span.SetStatus(observability.StatusOK, "llm stream abandoned")
				span.End()
				observer.Info(ctx, "llm stream abandoned",
					observability.String(observability.AttrLLMModel, model),
					observability.Duration(observability.AttrDuration, time.Since(start)),
				)
				return
			}
		}

		recordObsSuccess(ctx, span, observer, &ai.ChatResponse{
			Model:        model,
			FinishReason: finishReason,
			Usage:        usage,
		}, time.Since(start), model)
	})
}

func recordObsFailure(
	ctx context.Context,
	span observability.Span,
	observer observability.Provider,
	err error,
	elapsed time.Duration,
	model string,
	message string,
) {
	span.RecordError(err)
	span.SetStatus(observability.StatusError, message)
	span.End()

	observer.Error(ctx, message,
		observability.Error(err),
		observability.Duration(observability.AttrDuration, elapsed),
		observability.String(observability.AttrLLMModel, model),
	)

	observer.Counter(observability.MetricAgentRequestCount).Add(ctx, 1,
		observability.String(observability.AttrStatus, "error"),
		observability.String(observability.AttrLLMModel, model),
	)
	observer.Counter(observability.MetricAgentErrorCount).Add(ctx, 1,
		observability.String(observability.AttrLLMModel, model),
	)
}

func recordObsSuccess(
	ctx context.Context,
	span observability.Span,
	observer observability.Provider,
	response *ai.ChatResponse,
	elapsed time.Duration,
	model string,
) {
	observer.Histogram(observability.MetricAgentRequestDuration).Record(ctx, elapsed.Seconds(),
		observability.String(observability.AttrLLMModel, model),
	)
	observer.Counter(observability.MetricAgentRequestCount).Add(ctx, 1,
		observability.String(observability.AttrStatus, "success"),
		observability.String(observability.AttrLLMModel, model),
	)

	logAttrs := []observability.Attribute{
		observability.String(observability.AttrLLMModel, model),
		observability.String(observability.AttrLLMFinishReason, response.FinishReason),
		observability.Duration(observability.AttrDuration, elapsed),
	}

	if response.Usage != nil {
		observer.Counter(observability.MetricAgentTokensTotal).Add(ctx, int64(response.Usage.TotalTokens),
			observability.String(observability.AttrLLMModel, model),
		)

		span.SetAttributes(
			observability.Int(observability.AttrLLMTokensTotal, response.Usage.TotalTokens),
			observability.Int(observability.AttrLLMTokensPrompt, response.Usage.PromptTokens),
			observability.Int(observability.AttrLLMTokensCompletion, response.Usage.CompletionTokens),
		)

		logAttrs = append(logAttrs,
			observability.Int(observability.AttrLLMTokensPrompt, response.Usage.PromptTokens),
			observability.Int(observability.AttrLLMTokensCompletion, response.Usage.CompletionTokens),
			observability.Int(observability.AttrLLMTokensTotal, response.Usage.TotalTokens),
		)
	}

	if response.Content != "" {
		logAttrs = append(logAttrs,
			observability.String("response", utils.TruncateString(response.Content, 100)),
		)
	}

	observer.Info(ctx, "llm request completed", logAttrs...)

	span.SetStatus(observability.StatusOK, "success")
	span.End()
}

// effectiveModel prefers the request model over the agent default.
func effectiveModel(requestModel, defaultModel string) string {
	if requestModel != "" {
		return requestModel
	}
	return defaultModel
}
