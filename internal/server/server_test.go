package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/sagent/core/agent"
	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/memory"
	"github.com/leofalp/sagent/providers/memory/inmemory"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// pirateProvider answers "Arr, matey!" in two chunks and records requests.
type pirateProvider struct {
	requests []ai.ChatRequest
	err      error
	midErr   error
}

func (p *pirateProvider) SendMessage(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &ai.ChatResponse{Content: "Arr, matey!", FinishReason: "stop"}, nil
}

func (p *pirateProvider) StreamMessage(_ context.Context, req ai.ChatRequest) (*ai.ChatStream, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: "Arr, "}, nil) {
			return
		}
		if p.midErr != nil {
			yield(ai.StreamEvent{Type: ai.StreamEventError}, p.midErr)
			return
		}
		if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: "matey!"}, nil) {
			return
		}
		yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: "stop"}, nil)
	}), nil
}

func (p *pirateProvider) IsStopMessage(resp *ai.ChatResponse) bool {
	return resp.FinishReason == "stop"
}
func (p *pirateProvider) WithAPIKey(string) ai.Provider           { return p }
func (p *pirateProvider) WithBaseURL(string) ai.Provider          { return p }
func (p *pirateProvider) WithHttpClient(*http.Client) ai.Provider { return p }

func newTestServer(t *testing.T, provider *pirateProvider, cfg Config) *gin.Engine {
	t.Helper()
	a, err := agent.NewBuilder(provider, "gpt-4o").Preamble("You are a pirate.").Build()
	require.NoError(t, err)
	cfg.Provider = "OpenAI"
	cfg.Model = "gpt-4o"
	return New(a, cfg)
}

func do(t *testing.T, g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	g := newTestServer(t, &pirateProvider{}, Config{})
	rec := do(t, g, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok", "provider": "OpenAI", "model": "gpt-4o"}, decode(t, rec))
}

func TestPrompt(t *testing.T) {
	provider := &pirateProvider{}
	g := newTestServer(t, provider, Config{})
	rec := do(t, g, http.MethodPost, "/v1/prompt", `{"prompt": "hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Arr, matey!", decode(t, rec)["response"])
	require.Len(t, provider.requests, 1)
	assert.Equal(t, []ai.Message{ai.UserMessage("hi")}, provider.requests[0].Messages)
}

func TestChat_ForwardsHistory(t *testing.T) {
	provider := &pirateProvider{}
	g := newTestServer(t, provider, Config{})
	rec := do(t, g, http.MethodPost, "/v1/chat",
		`{"prompt": "again", "history": [{"role": "user", "content": "hi"}, {"role": "assistant", "content": "Ahoy"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []ai.Message{
		ai.UserMessage("hi"),
		ai.AssistantMessage("Ahoy"),
		ai.UserMessage("again"),
	}, provider.requests[0].Messages)
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed json", "/v1/prompt", `{"prompt":`},
		{"missing prompt", "/v1/prompt", `{}`},
		{"unknown role", "/v1/chat", `{"prompt": "x", "history": [{"role": "tool", "content": "y"}]}`},
		{"stream without prompt", "/v1/stream", `{"history": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &pirateProvider{}
			g := newTestServer(t, provider, Config{})
			rec := do(t, g, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode(t, rec)["error"], "invalid request")
			assert.Empty(t, provider.requests)
		})
	}
}

func TestAgentFailureIsBadGateway(t *testing.T) {
	provider := &pirateProvider{err: &ai.ServiceError{StatusCode: 500, Message: "upstream down"}}
	g := newTestServer(t, provider, Config{})

	rec := do(t, g, http.MethodPost, "/v1/prompt", `{"prompt": "hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "upstream down")

	rec = do(t, g, http.MethodPost, "/v1/stream", `{"prompt": "hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStream(t *testing.T) {
	g := newTestServer(t, &pirateProvider{}, Config{})
	rec := do(t, g, http.MethodPost, "/v1/stream", `{"prompt": "hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	first := strings.Index(body, `data:{"text":"Arr, "}`)
	second := strings.Index(body, `data:{"text":"matey!"}`)
	done := strings.Index(body, "event:done")
	require.NotEqual(t, -1, first, body)
	assert.Less(t, first, second)
	assert.Less(t, second, done)
	assert.Equal(t, 2, strings.Count(body, "event:delta"))
	assert.NotContains(t, body, "event:error")
}

func TestStream_MidStreamError(t *testing.T) {
	g := newTestServer(t, &pirateProvider{midErr: errors.New("connection reset")}, Config{})
	rec := do(t, g, http.MethodPost, "/v1/stream", `{"prompt": "hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event:delta"))
	assert.Equal(t, 1, strings.Count(body, "event:error"))
	assert.Contains(t, body, "connection reset")
	assert.NotContains(t, body, "event:done")
}

func TestSessions(t *testing.T) {
	provider := &pirateProvider{}
	sessions := inmemory.NewSessions()
	g := newTestServer(t, provider, Config{Sessions: sessions})

	rec := do(t, g, http.MethodPost, "/v1/sessions/s1/chat", `{"prompt": "hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, g, http.MethodPost, "/v1/sessions/s1/chat", `{"prompt": "again"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, provider.requests, 2)
	assert.Equal(t, []ai.Message{
		ai.UserMessage("hi"),
		ai.AssistantMessage("Arr, matey!"),
		ai.UserMessage("again"),
	}, provider.requests[1].Messages)

	rec = do(t, g, http.MethodGet, "/v1/sessions/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, "s1", history.ID)
	assert.Len(t, history.Messages, 4)

	rec = do(t, g, http.MethodGet, "/v1/sessions/other", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Empty(t, history.Messages)

	rec = do(t, g, http.MethodDelete, "/v1/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	count, err := sessions.Session("s1").Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSessions_FailedTurnIsNotStored(t *testing.T) {
	provider := &pirateProvider{err: errors.New("boom")}
	sessions := inmemory.NewSessions()
	g := newTestServer(t, provider, Config{Sessions: sessions})

	rec := do(t, g, http.MethodPost, "/v1/sessions/s1/chat", `{"prompt": "hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	count, err := sessions.Session("s1").Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

// brokenStore reads like an empty history but refuses every write.
type brokenStore struct{}

func (brokenStore) Session(string) memory.Provider { return brokenSession{inmemory.New()} }

type brokenSession struct{ *inmemory.ArrayMemory }

func (brokenSession) AppendMessage(context.Context, *ai.Message) error {
	return errors.New("disk full")
}

func (brokenSession) ClearMessages(context.Context) error { return errors.New("disk full") }

func TestSessions_StoreWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	g := newTestServer(t, &pirateProvider{}, Config{Sessions: brokenStore{}, Logger: logger})

	rec := do(t, g, http.MethodPost, "/v1/sessions/s1/chat", `{"prompt": "hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "disk full", decode(t, rec)["error"])
	assert.Contains(t, buf.String(), "error=\"disk full\"")

	rec = do(t, g, http.MethodDelete, "/v1/sessions/s1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSessionsDisabledWithoutStore(t *testing.T) {
	g := newTestServer(t, &pirateProvider{}, Config{})
	rec := do(t, g, http.MethodGet, "/v1/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	g := newTestServer(t, &pirateProvider{}, Config{Logger: logger})

	do(t, g, http.MethodPost, "/v1/prompt", `{"prompt": "hi"}`)
	assert.Contains(t, buf.String(), "msg=\"http request\"")
	assert.Contains(t, buf.String(), "path=/v1/prompt")
	assert.Contains(t, buf.String(), "status=200")
}
