package settings

import (
	"fmt"
	"log/slog"

	"github.com/leofalp/sagent/core/agent"
	"github.com/leofalp/sagent/core/agent/middleware"
	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/ai/anthropic"
	"github.com/leofalp/sagent/providers/ai/azure"
	"github.com/leofalp/sagent/providers/ai/openai"
)

// DefaultPreamble is applied before any hook runs.
const DefaultPreamble = "You are a pirate."

// BuilderHook customizes the agent builder before it is built.
type BuilderHook interface {
	Customize(b *agent.Builder) *agent.Builder
}

// HookFunc adapts a function to BuilderHook.
type HookFunc func(b *agent.Builder) *agent.Builder

func (f HookFunc) Customize(b *agent.Builder) *agent.Builder { return f(b) }

// Agent builds the configured agent, reading provider credentials from the
// environment. A nil hook keeps the default preamble only. With debug set,
// every request and response is logged through slog.Default.
func (s *Settings) Agent(hook BuilderHook) (SAgent, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	switch s.Provider.Type {
	case OpenAI:
		client, err := openai.FromEnv()
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		a, err := s.build(client, hook)
		if err != nil {
			return nil, err
		}
		return &OpenAIAgent{bound: bound{agent: a}, Client: client}, nil
	case Anthropic:
		client, err := anthropic.FromEnv()
		if err != nil {
			return nil, fmt.Errorf("anthropic client: %w", err)
		}
		a, err := s.build(client, hook)
		if err != nil {
			return nil, err
		}
		return &AnthropicAgent{bound: bound{agent: a}, Client: client}, nil
	case Azure:
		client, err := azure.FromEnv()
		if err != nil {
			return nil, fmt.Errorf("azure client: %w", err)
		}
		a, err := s.build(client, hook)
		if err != nil {
			return nil, err
		}
		return &AzureAgent{bound: bound{agent: a}, Client: client}, nil
	}
	panic("unreachable: provider validated above")
}

// MustAgent is Agent for entry points that cannot continue without one.
func (s *Settings) MustAgent(hook BuilderHook) SAgent {
	a, err := s.Agent(hook)
	if err != nil {
		panic(fmt.Sprintf("settings: build agent: %v", err))
	}
	return a
}

func (s *Settings) build(provider ai.Provider, hook BuilderHook) (*agent.Agent, error) {
	builder := agent.NewBuilder(provider, s.Model).Preamble(DefaultPreamble)
	if s.Debug {
		builder = builder.Use(middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelVerbose))
	}
	if hook != nil {
		if builder = hook.Customize(builder); builder == nil {
			return nil, fmt.Errorf("%w: builder hook returned nil", agent.ErrInvalidBuilder)
		}
	}
	return builder.Build()
}
