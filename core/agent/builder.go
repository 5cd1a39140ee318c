package agent

import (
	"fmt"

	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/observability"
)

// Builder accumulates the configuration of an Agent. Setters return the
// builder so calls chain; Build does not mutate it, so one builder can
// produce several agents.
type Builder struct {
	provider    ai.Provider
	model       string
	preamble    string
	static      []Document
	dynamic     []dynamicContext
	temperature *float32
	maxTokens   int
	middlewares []MiddlewareConfig
	observer    observability.Provider
}

// NewBuilder starts an agent for model served by provider.
func NewBuilder(provider ai.Provider, model string) *Builder {
	return &Builder{provider: provider, model: model}
}

// Preamble replaces the system prompt.
func (b *Builder) Preamble(preamble string) *Builder {
	b.preamble = preamble
	return b
}

// AppendPreamble adds text on a new line after the current system prompt.
func (b *Builder) AppendPreamble(text string) *Builder {
	if b.preamble == "" {
		b.preamble = text
	} else {
		b.preamble += "\n" + text
	}
	return b
}

// Context attaches a static document to every prompt.
func (b *Builder) Context(text string) *Builder {
	b.static = append(b.static, Document{
		ID:   fmt.Sprintf("static_doc_%d", len(b.static)),
		Text: text,
	})
	return b
}

// ContextDocument attaches a static document with a caller-chosen ID.
func (b *Builder) ContextDocument(doc Document) *Builder {
	b.static = append(b.static, doc)
	return b
}

// DynamicContext queries index for its k most relevant documents on every
// prompt and attaches them.
func (b *Builder) DynamicContext(k int, index Index) *Builder {
	b.dynamic = append(b.dynamic, dynamicContext{k: k, index: index})
	return b
}

func (b *Builder) Temperature(temperature float32) *Builder {
	b.temperature = &temperature
	return b
}

func (b *Builder) MaxTokens(maxTokens int) *Builder {
	b.maxTokens = maxTokens
	return b
}

// Use appends middlewares; the first one registered is the outermost.
func (b *Builder) Use(middlewares ...MiddlewareConfig) *Builder {
	b.middlewares = append(b.middlewares, middlewares...)
	return b
}

// Observer enables tracing, metrics and logs for every request. The
// observability middleware is placed outermost so it sees the final outcome
// of retries and timeouts.
func (b *Builder) Observer(observer observability.Provider) *Builder {
	b.observer = observer
	return b
}

func (b *Builder) Provider() ai.Provider { return b.provider }

func (b *Builder) Model() string { return b.model }

// PreambleText returns the system prompt accumulated so far.
func (b *Builder) PreambleText() string { return b.preamble }

// Build validates the configuration and returns the agent.
func (b *Builder) Build() (*Agent, error) {
	if b.provider == nil {
		return nil, fmt.Errorf("%w: provider is nil", ErrInvalidBuilder)
	}
	if b.model == "" {
		return nil, fmt.Errorf("%w: model is empty", ErrInvalidBuilder)
	}
	for i, source := range b.dynamic {
		if source.index == nil {
			return nil, fmt.Errorf("%w: dynamic context %d has no index", ErrInvalidBuilder, i)
		}
		if source.k <= 0 {
			return nil, fmt.Errorf("%w: dynamic context %d requests %d documents", ErrInvalidBuilder, i, source.k)
		}
	}
	for i, mw := range b.middlewares {
		if mw.Send == nil {
			return nil, fmt.Errorf("%w: middleware at index %d has nil Send", ErrInvalidBuilder, i)
		}
	}

	middlewares := append([]MiddlewareConfig(nil), b.middlewares...)
	if b.observer != nil {
		middlewares = append([]MiddlewareConfig{NewObservabilityMiddleware(b.observer, b.model)}, middlewares...)
	}

	var generation *ai.GenerationConfig
	if b.temperature != nil || b.maxTokens > 0 {
		generation = &ai.GenerationConfig{MaxTokens: b.maxTokens}
		if b.temperature != nil {
			generation.Temperature = *b.temperature
		}
	}

	return &Agent{
		provider:   b.provider,
		model:      b.model,
		preamble:   b.preamble,
		static:     append([]Document(nil), b.static...),
		dynamic:    append([]dynamicContext(nil), b.dynamic...),
		generation: generation,
		observer:   b.observer,
		send:       buildSendChain(b.provider, middlewares),
		stream:     buildStreamChain(b.provider, middlewares),
	}, nil
}
