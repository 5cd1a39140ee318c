package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leofalp/sagent/providers/ai"
)

func TestNewWithoutEnvVariable(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvBaseURL, "")

	p := New()
	if p == nil {
		t.Fatal("expected provider to be created even without env variable")
	}
	if p.BaseURL() != defaultBaseURL {
		t.Errorf("expected default base URL, got %s", p.BaseURL())
	}
}

func TestFromEnvMissingKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	_, err := FromEnv()
	if !errors.Is(err, ai.ErrMissingEnv) {
		t.Fatalf("expected ErrMissingEnv, got %v", err)
	}
}

func TestFromEnvReadsBaseURL(t *testing.T) {
	t.Setenv(EnvAPIKey, "test-key")
	t.Setenv(EnvBaseURL, "http://localhost:9999/v1/")

	p, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BaseURL() != "http://localhost:9999/v1" {
		t.Errorf("expected trailing slash trimmed, got %s", p.BaseURL())
	}
}

func TestSendMessageWithValidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected Authorization header 'Bearer test-key', got %s", r.Header.Get("Authorization"))
		}

		var body chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[0].Content != "You are a pirate." {
			t.Errorf("expected system prompt as first message, got %+v", body.Messages)
		}
		if body.Temperature == nil || *body.Temperature != 0.5 {
			t.Errorf("expected temperature 0.5, got %v", body.Temperature)
		}
		if body.Stream != nil {
			t.Errorf("expected stream to be omitted, got %v", *body.Stream)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Arr, Paris."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15, "prompt_tokens_details": {"cached_tokens": 4}}
		}`))
	}))
	defer server.Close()

	p := New()
	p.WithAPIKey("test-key").WithBaseURL(server.URL)

	response, err := p.SendMessage(context.Background(), ai.ChatRequest{
		Model:            "gpt-4",
		SystemPrompt:     "You are a pirate.",
		Messages:         []ai.Message{ai.UserMessage("What is the capital of France?")},
		GenerationConfig: &ai.GenerationConfig{Temperature: 0.5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if response.Content != "Arr, Paris." {
		t.Errorf("expected content 'Arr, Paris.', got %s", response.Content)
	}
	if response.FinishReason != "stop" {
		t.Errorf("expected finish reason 'stop', got %s", response.FinishReason)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 15 || response.Usage.CachedTokens != 4 {
		t.Errorf("unexpected usage: %+v", response.Usage)
	}
}

func TestSendMessageServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key"}}`))
	}))
	defer server.Close()

	p := New()
	p.WithAPIKey("bad-key").WithBaseURL(server.URL)

	_, err := p.SendMessage(context.Background(), ai.ChatRequest{Model: "gpt-4", Messages: []ai.Message{ai.UserMessage("hi")}})
	if !errors.Is(err, ai.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}

	var serviceErr *ai.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected *ai.ServiceError, got %T", err)
	}
	if serviceErr.StatusCode != http.StatusUnauthorized || serviceErr.Message != "Incorrect API key provided" {
		t.Errorf("unexpected service error: %+v", serviceErr)
	}
}

func TestSendMessageNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "x", "choices": []}`))
	}))
	defer server.Close()

	p := New()
	p.WithAPIKey("test-key").WithBaseURL(server.URL)

	_, err := p.SendMessage(context.Background(), ai.ChatRequest{Model: "gpt-4"})
	if !errors.Is(err, ai.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestSendMessageWithoutKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	_, err := New().SendMessage(context.Background(), ai.ChatRequest{Model: "gpt-4"})
	if !errors.Is(err, ai.ErrMissingEnv) {
		t.Fatalf("expected ErrMissingEnv, got %v", err)
	}
}

func TestWithEndpointAndAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/deployments/gpt-4o/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("api-key") != "azure-key" {
			t.Errorf("expected api-key header, got %q", r.Header.Get("api-key"))
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no Authorization header, got %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}, "finish_reason": "stop"}]}`))
	}))
	defer server.Close()

	p := New().
		WithEndpoint(func(baseURL, model, path string) string {
			return baseURL + "/openai/deployments/" + model + path
		}).
		WithAuth(func(ctx context.Context) (string, map[string]string, error) {
			return "", map[string]string{"api-key": "azure-key"}, nil
		}).
		WithName("azure")
	p.WithBaseURL(server.URL)

	response, err := p.SendMessage(context.Background(), ai.ChatRequest{Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Model != "gpt-4o" {
		t.Errorf("expected model to fall back to the request model, got %q", response.Model)
	}
}

func TestIsStopMessage(t *testing.T) {
	p := New()

	tests := []struct {
		name     string
		response *ai.ChatResponse
		want     bool
	}{
		{"nil", nil, true},
		{"stop", &ai.ChatResponse{Content: "x", FinishReason: "stop"}, true},
		{"length", &ai.ChatResponse{Content: "x", FinishReason: "length"}, true},
		{"empty content", &ai.ChatResponse{}, true},
		{"partial", &ai.ChatResponse{Content: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.IsStopMessage(tt.response); got != tt.want {
				t.Errorf("IsStopMessage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmbedOrdersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected /embeddings, got %s", r.URL.Path)
		}
		var body embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if len(body.Input) != 2 {
			t.Errorf("expected 2 inputs, got %d", len(body.Input))
		}
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [
				{"index": 1, "embedding": [0, 1]},
				{"index": 0, "embedding": [1, 0]}
			],
			"usage": {"prompt_tokens": 4, "total_tokens": 4}
		}`))
	}))
	defer server.Close()

	p := New()
	p.WithAPIKey("test-key").WithBaseURL(server.URL)

	response, err := p.Embed(context.Background(), ai.EmbeddingRequest{
		Model: "text-embedding-3-small",
		Input: []string{"first", "second"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(response.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(response.Embeddings))
	}
	if response.Embeddings[0][0] != 1 || response.Embeddings[1][1] != 1 {
		t.Errorf("embeddings not in input order: %v", response.Embeddings)
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"index": 0, "embedding": [1]}]}`))
	}))
	defer server.Close()

	p := New()
	p.WithAPIKey("test-key").WithBaseURL(server.URL)

	_, err := p.Embed(context.Background(), ai.EmbeddingRequest{Model: "m", Input: []string{"a", "b"}})
	if !errors.Is(err, ai.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	response, err := New().Embed(context.Background(), ai.EmbeddingRequest{Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(response.Embeddings) != 0 {
		t.Errorf("expected no embeddings, got %d", len(response.Embeddings))
	}
}
