package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leofalp/sagent/providers/ai"
)

// writeSSE writes an SSE data line to the response writer and flushes.
func writeSSE(writer http.ResponseWriter, data string) {
	fmt.Fprintf(writer, "data: %s\n\n", data)
	if flusher, ok := writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

func writeSSEDone(writer http.ResponseWriter) {
	writeSSE(writer, "[DONE]")
}

func TestStreamMessage_ContentStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var body chatCompletionRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body.Stream == nil || !*body.Stream {
			t.Error("expected stream=true")
		}
		if body.StreamOptions == nil || !body.StreamOptions.IncludeUsage {
			t.Error("expected stream_options.include_usage=true")
		}
		if request.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("expected Accept text/event-stream, got %q", request.Header.Get("Accept"))
		}

		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)

		writeSSE(writer, `{"id":"chatcmpl-1","model":"gpt-4","choices":[{"index":0,"delta":{"role":"assistant","content":"Hello"},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"chatcmpl-1","model":"gpt-4","choices":[{"index":0,"delta":{"content":" world"},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"chatcmpl-1","model":"gpt-4","choices":[{"index":0,"delta":{"content":"!"},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"chatcmpl-1","model":"gpt-4","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)
		writeSSE(writer, `{"id":"chatcmpl-1","model":"gpt-4","choices":[],"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`)
		writeSSEDone(writer)
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL)
	provider.WithAPIKey("test-key")

	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{
		Model:    "gpt-4",
		Messages: []ai.Message{ai.UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if response.Content != "Hello world!" {
		t.Errorf("expected content 'Hello world!', got '%s'", response.Content)
	}
	if response.FinishReason != "stop" {
		t.Errorf("expected finish_reason 'stop', got '%s'", response.FinishReason)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 13 {
		t.Errorf("unexpected usage: %+v", response.Usage)
	}
}

func TestStreamMessage_ReasoningDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"choices":[{"delta":{"reasoning":"thinking"}}]}`)
		writeSSE(writer, `{"choices":[{"delta":{"content":"answer"},"finish_reason":"stop"}]}`)
		writeSSEDone(writer)
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL).WithAPIKey("test-key")

	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}

	var types []ai.StreamEventType
	for event, iterErr := range stream.Iter() {
		if iterErr != nil {
			t.Fatalf("unexpected iteration error: %v", iterErr)
		}
		types = append(types, event.Type)
	}

	want := []ai.StreamEventType{ai.StreamEventReasoning, ai.StreamEventContent, ai.StreamEventDone}
	if len(types) != len(want) {
		t.Fatalf("expected %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], types[i])
		}
	}
}

func TestStreamMessage_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusTooManyRequests)
		_, _ = writer.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL).WithAPIKey("test-key")

	_, err := provider.StreamMessage(context.Background(), ai.ChatRequest{Model: "m"})
	if !errors.Is(err, ai.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestStreamMessage_MalformedChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writeSSE(writer, `{"choices":[{"delta":{"content":"partial"}}]}`)
		writeSSE(writer, `{not json`)
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL).WithAPIKey("test-key")

	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}

	response, err := stream.Collect()
	if !errors.Is(err, ai.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
	if response.Content != "partial" {
		t.Errorf("expected partial content to survive, got %q", response.Content)
	}
}

func TestStreamMessage_EarlyBreak(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 5; i++ {
			writeSSE(writer, fmt.Sprintf(`{"choices":[{"delta":{"content":"%d"}}]}`, i))
		}
		writeSSEDone(writer)
	}))
	defer server.Close()

	provider := New()
	provider.WithBaseURL(server.URL).WithAPIKey("test-key")

	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("StreamMessage returned error: %v", err)
	}

	count := 0
	for range stream.Iter() {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("expected to stop after 2 events, got %d", count)
	}
}
