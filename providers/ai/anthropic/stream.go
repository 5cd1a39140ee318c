package anthropic

import (
	"context"
	"fmt"
	"io"

	"github.com/leofalp/sagent/internal/utils"
	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/observability"
)

// StreamMessage sends a request with stream=true and returns a [ai.ChatStream]
// yielding deltas as SSE events arrive. Pre-stream failures are returned
// directly; an Anthropic "error" event is yielded through the iterator.
func (p *AnthropicProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, "anthropic"),
			observability.String(observability.AttrLLMEndpoint, p.baseURL),
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Bool(observability.AttrLLMStreaming, true),
		)
	}

	if observer != nil {
		observer.Trace(ctx, "Anthropic provider preparing streaming request",
			observability.String(observability.AttrLLMProvider, "anthropic"),
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}

	if p.apiKey == "" {
		return nil, fmt.Errorf("anthropic: API key is not set: %w", ai.ErrMissingEnv)
	}

	anthropicReq := requestToAnthropic(request)
	anthropicReq.Stream = true

	httpResponse, err := utils.DoPostStream(ctx, p.client, p.baseURL+messagesEndpoint, "", anthropicReq, p.buildHeaders()...)
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "Streaming HTTP request failed", observability.Error(err))
		}
		return nil, err
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		// Input tokens arrive in message_start, output tokens in message_delta.
		var usage anthropicUsage
		finishReason := ""

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			event, parseErr := unmarshalStreamEvent(payload)
			if parseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("%w: failed to parse stream event: %w", ai.ErrInvalidResponse, parseErr))
				return
			}

			switch event.Type {
			case "message_start":
				if event.Message != nil {
					usage = event.Message.Usage
				}

			case "content_block_delta":
				if event.Delta == nil {
					continue
				}
				switch {
				case event.Delta.Type == "text_delta" && event.Delta.Text != "":
					if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: event.Delta.Text}, nil) {
						return
					}
				case event.Delta.Type == "thinking_delta" && event.Delta.Thinking != "":
					if !yield(ai.StreamEvent{Type: ai.StreamEventReasoning, Reasoning: event.Delta.Thinking}, nil) {
						return
					}
				}

			case "message_delta":
				if event.Usage != nil {
					usage.OutputTokens = event.Usage.OutputTokens
				}
				if event.Delta != nil && event.Delta.StopReason != "" {
					finishReason = event.Delta.StopReason
				}
				if !yield(ai.StreamEvent{Type: ai.StreamEventUsage, Usage: usageToGeneric(usage)}, nil) {
					return
				}

			case "message_stop":
				yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: mapStopReason(finishReason)}, nil)
				return

			case "error":
				message := "unknown stream error"
				if event.Error != nil {
					message = event.Error.Message
				}
				yield(ai.StreamEvent{}, fmt.Errorf("%w: anthropic stream error: %s", ai.ErrService, message))
				return

			default:
				// ping, content_block_start/stop and future event types
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}
