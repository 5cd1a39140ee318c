package settings

import (
	"context"

	"github.com/leofalp/sagent/core/agent"
	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/ai/anthropic"
	"github.com/leofalp/sagent/providers/ai/azure"
	"github.com/leofalp/sagent/providers/ai/openai"
)

// SAgent is an agent bound to one of the configured providers. The set of
// implementations is closed: *OpenAIAgent, *AnthropicAgent and *AzureAgent.
type SAgent interface {
	Kind() ProviderKind
	Agent() *agent.Agent

	Prompt(ctx context.Context, input string) (string, error)
	Chat(ctx context.Context, input string, history []ai.Message) (string, error)
	StreamPrompt(ctx context.Context, input string) (*agent.Stream, error)
	StreamChat(ctx context.Context, input string, history []ai.Message) (*agent.Stream, error)

	sealed()
}

// bound forwards the operations to the built agent.
type bound struct {
	agent *agent.Agent
}

func (b bound) Agent() *agent.Agent { return b.agent }

func (b bound) Prompt(ctx context.Context, input string) (string, error) {
	return b.agent.Prompt(ctx, input)
}

func (b bound) Chat(ctx context.Context, input string, history []ai.Message) (string, error) {
	return b.agent.Chat(ctx, input, history)
}

func (b bound) StreamPrompt(ctx context.Context, input string) (*agent.Stream, error) {
	return b.agent.StreamPrompt(ctx, input)
}

func (b bound) StreamChat(ctx context.Context, input string, history []ai.Message) (*agent.Stream, error) {
	return b.agent.StreamChat(ctx, input, history)
}

func (bound) sealed() {}

type OpenAIAgent struct {
	bound
	Client *openai.OpenAIProvider
}

func (*OpenAIAgent) Kind() ProviderKind { return OpenAI }

type AnthropicAgent struct {
	bound
	Client *anthropic.AnthropicProvider
}

func (*AnthropicAgent) Kind() ProviderKind { return Anthropic }

type AzureAgent struct {
	bound
	Client *azure.AzureProvider
}

func (*AzureAgent) Kind() ProviderKind { return Azure }

// Visitor has one case per SAgent variant.
type Visitor[R any] struct {
	OpenAI    func(*OpenAIAgent) R
	Anthropic func(*AnthropicAgent) R
	Azure     func(*AzureAgent) R
}

// Visit calls the case matching a. It panics when that case is nil.
func Visit[R any](a SAgent, v Visitor[R]) R {
	switch a := a.(type) {
	case *OpenAIAgent:
		return v.OpenAI(a)
	case *AnthropicAgent:
		return v.Anthropic(a)
	case *AzureAgent:
		return v.Azure(a)
	}
	panic("settings: unknown agent variant")
}
