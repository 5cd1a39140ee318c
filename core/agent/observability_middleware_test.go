package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/observability"
)

// mockObserver records observability calls for assertions.
type mockObserver struct {
	spanNames     []string
	spanEndCount  int
	errorCount    int
	infoMessages  []string
	counterAdds   map[string]int64
	histogramRecs int
	lastSpan      *mockSpan
}

func newMockObserver() *mockObserver {
	return &mockObserver{counterAdds: map[string]int64{}}
}

func (m *mockObserver) StartSpan(ctx context.Context, name string, _ ...observability.Attribute) (context.Context, observability.Span) {
	m.spanNames = append(m.spanNames, name)
	m.lastSpan = &mockSpan{observer: m}
	return ctx, m.lastSpan
}

func (m *mockObserver) Counter(name string) observability.Counter {
	return &mockCounter{observer: m, name: name}
}

func (m *mockObserver) Histogram(string) observability.Histogram {
	return &mockHistogram{observer: m}
}

func (m *mockObserver) Trace(context.Context, string, ...observability.Attribute) {}
func (m *mockObserver) Debug(context.Context, string, ...observability.Attribute) {}
func (m *mockObserver) Info(_ context.Context, msg string, _ ...observability.Attribute) {
	m.infoMessages = append(m.infoMessages, msg)
}
func (m *mockObserver) Warn(context.Context, string, ...observability.Attribute) {}
func (m *mockObserver) Error(context.Context, string, ...observability.Attribute) {
	m.errorCount++
}

type mockSpan struct {
	observer *mockObserver
	status   observability.StatusCode
	errors   int
	events   []string
}

func (s *mockSpan) End()                                              { s.observer.spanEndCount++ }
func (s *mockSpan) SetAttributes(...observability.Attribute)          {}
func (s *mockSpan) SetStatus(code observability.StatusCode, _ string) { s.status = code }
func (s *mockSpan) RecordError(error)                                 { s.errors++ }
func (s *mockSpan) AddEvent(name string, _ ...observability.Attribute) {
	s.events = append(s.events, name)
}

type mockCounter struct {
	observer *mockObserver
	name     string
}

func (c *mockCounter) Add(_ context.Context, value int64, _ ...observability.Attribute) {
	c.observer.counterAdds[c.name] += value
}

type mockHistogram struct{ observer *mockObserver }

func (h *mockHistogram) Record(context.Context, float64, ...observability.Attribute) {
	h.observer.histogramRecs++
}

func TestObservability_SendSuccess(t *testing.T) {
	observer := newMockObserver()
	provider := &mockProvider{sendFunc: func(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
		if observability.SpanFromContext(ctx) == nil || observability.ObserverFromContext(ctx) == nil {
			t.Error("span and observer must be in the provider context")
		}
		return &ai.ChatResponse{Content: "Arr!", FinishReason: "stop", Usage: &ai.Usage{TotalTokens: 12}}, nil
	}}
	a := mustBuild(t, NewBuilder(provider, "m").Observer(observer))

	if _, err := a.Prompt(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(observer.spanNames) != 1 || observer.spanNames[0] != observability.SpanLLMRequest {
		t.Errorf("spans = %v", observer.spanNames)
	}
	if observer.spanEndCount != 1 || observer.lastSpan.status != observability.StatusOK {
		t.Errorf("span ended %d times with status %v", observer.spanEndCount, observer.lastSpan.status)
	}
	if observer.counterAdds[observability.MetricAgentRequestCount] != 1 {
		t.Errorf("request count = %d", observer.counterAdds[observability.MetricAgentRequestCount])
	}
	if observer.counterAdds[observability.MetricAgentTokensTotal] != 12 {
		t.Errorf("tokens = %d", observer.counterAdds[observability.MetricAgentTokensTotal])
	}
	if observer.histogramRecs != 1 {
		t.Errorf("histogram records = %d", observer.histogramRecs)
	}
}

func TestObservability_SendError(t *testing.T) {
	observer := newMockObserver()
	provider := &mockProvider{sendFunc: func(context.Context, ai.ChatRequest) (*ai.ChatResponse, error) {
		return nil, errors.New("boom")
	}}
	a := mustBuild(t, NewBuilder(provider, "m").Observer(observer))

	if _, err := a.Prompt(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
	if observer.errorCount != 1 || observer.lastSpan.errors != 1 || observer.lastSpan.status != observability.StatusError {
		t.Errorf("error not recorded: %+v %+v", observer, observer.lastSpan)
	}
	if observer.counterAdds[observability.MetricAgentErrorCount] != 1 {
		t.Error("error counter not incremented")
	}
}

func TestObservability_StreamRecordsOnDrain(t *testing.T) {
	observer := newMockObserver()
	provider := &mockStreamProvider{chunks: []string{"A", "rr"}}
	a := mustBuild(t, NewBuilder(provider, "m").Observer(observer))

	stream, err := a.StreamPrompt(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if observer.spanEndCount != 0 {
		t.Error("span must stay open until the stream is drained")
	}

	if _, err := stream.Collect(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if observer.spanEndCount != 1 || observer.counterAdds[observability.MetricAgentRequestCount] != 1 {
		t.Errorf("stream completion not recorded: ended=%d", observer.spanEndCount)
	}
}

func TestObservability_StreamUsageAfterDone(t *testing.T) {
	observer := newMockObserver()
	usage := &ai.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4}
	provider := &mockStreamProvider{chunks: []string{"Arr"}, usage: usage}
	a := mustBuild(t, NewBuilder(provider, "m").Observer(observer))

	stream, err := a.StreamPrompt(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	response, err := stream.Response()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Usage == nil || *response.Usage != *usage {
		t.Errorf("usage = %+v, want %+v", response.Usage, usage)
	}
	if response.FinishReason != "stop" {
		t.Errorf("finish reason = %q", response.FinishReason)
	}
	if observer.counterAdds[observability.MetricAgentTokensTotal] != 4 {
		t.Errorf("tokens = %d", observer.counterAdds[observability.MetricAgentTokensTotal])
	}
	if observer.spanEndCount != 1 {
		t.Errorf("span ended %d times", observer.spanEndCount)
	}
}

func TestObservability_StreamAbandoned(t *testing.T) {
	observer := newMockObserver()
	provider := &mockStreamProvider{chunks: []string{"A", "r", "r"}}
	a := mustBuild(t, NewBuilder(provider, "m").Observer(observer))

	stream, _ := a.StreamPrompt(context.Background(), "hi")
	for range stream.Text() {
		break
	}

	if observer.spanEndCount != 1 {
		t.Errorf("abandoned stream must end the span, ended=%d", observer.spanEndCount)
	}
	found := false
	for _, msg := range observer.infoMessages {
		found = found || msg == "llm stream abandoned"
	}
	if !found {
		t.Errorf("info messages = %v", observer.infoMessages)
	}
}

func TestObservability_IsOutermost(t *testing.T) {
	observer := newMockObserver()
	var sawSpan bool
	inner := MiddlewareConfig{Send: func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			sawSpan = observability.SpanFromContext(ctx) != nil
			return next(ctx, request)
		}
	}}

	a := mustBuild(t, NewBuilder(&mockProvider{}, "m").Use(inner).Observer(observer))
	if _, err := a.Prompt(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawSpan {
		t.Error("user middlewares must run inside the observability span")
	}
}

func TestEffectiveModel(t *testing.T) {
	if effectiveModel("a", "b") != "a" || effectiveModel("", "b") != "b" {
		t.Error("effectiveModel")
	}
}
