package anthropic

import (
	"encoding/json"
	"fmt"
)

/*
	ANTHROPIC MESSAGES API - REQUEST TYPES
*/

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"` // required on every request
	Temperature *float64           `json:"temperature,omitempty"`
	TopP        *float64           `json:"top_p,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"` // "user" or "assistant"
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Type string `json:"type"` // "text"
	Text string `json:"text"`
}

/*
	ANTHROPIC MESSAGES API - RESPONSE TYPES
*/

type anthropicResponse struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"` // "message"
	Role         string                 `json:"role"`
	Content      []responseContentBlock `json:"content"`
	Model        string                 `json:"model"`
	StopReason   string                 `json:"stop_reason"`
	StopSequence string                 `json:"stop_sequence,omitempty"`
	Usage        anthropicUsage         `json:"usage"`
}

// responseContentBlock is discriminated by Type. Unknown types are ignored.
type responseContentBlock struct {
	Type     string `json:"type"` // "text", "thinking", "tool_use"
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

type anthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

/*
	ANTHROPIC SSE STREAMING

	message_start → content_block_start → content_block_delta(s) →
	content_block_stop → message_delta → message_stop
*/

type anthropicStreamEvent struct {
	Type    string             `json:"type"`
	Message *anthropicResponse `json:"message,omitempty"` // message_start
	Index   int                `json:"index,omitempty"`
	Delta   *streamDelta       `json:"delta,omitempty"` // content_block_delta, message_delta
	Usage   *anthropicUsage    `json:"usage,omitempty"` // message_delta
	Error   *anthropicError    `json:"error,omitempty"`
}

type streamDelta struct {
	Type       string `json:"type,omitempty"` // "text_delta", "thinking_delta"
	Text       string `json:"text,omitempty"`
	Thinking   string `json:"thinking,omitempty"`
	StopReason string `json:"stop_reason,omitempty"` // message_delta only
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func unmarshalStreamEvent(payload string) (*anthropicStreamEvent, error) {
	var event anthropicStreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, fmt.Errorf("missing type field in stream event")
	}
	return &event, nil
}
