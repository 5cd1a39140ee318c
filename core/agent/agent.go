package agent

import (
	"context"

	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/observability"
)

// Agent is a model bound to a provider, a preamble and optional context
// sources. It holds no conversation state: history is passed on every call.
// An Agent is safe for concurrent use when its provider and indexes are.
type Agent struct {
	provider   ai.Provider
	model      string
	preamble   string
	static     []Document
	dynamic    []dynamicContext
	generation *ai.GenerationConfig
	observer   observability.Provider
	send       SendFunc
	stream     StreamFunc
}

func (a *Agent) Model() string { return a.model }

func (a *Agent) Preamble() string { return a.preamble }

func (a *Agent) Provider() ai.Provider { return a.provider }

// Prompt sends a single user message and returns the model's answer. It is
// Chat with an empty history.
func (a *Agent) Prompt(ctx context.Context, input string) (string, error) {
	return a.Chat(ctx, input, nil)
}

// Chat sends input after history and returns the model's answer. Failures
// are returned as *PromptError.
func (a *Agent) Chat(ctx context.Context, input string, history []ai.Message) (string, error) {
	response, err := a.Completion(ctx, input, history)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// Completion is Chat returning the full provider response.
func (a *Agent) Completion(ctx context.Context, input string, history []ai.Message) (*ai.ChatResponse, error) {
	ctx = a.withObserver(ctx)

	request, err := a.Request(ctx, input, history)
	if err != nil {
		return nil, &PromptError{Model: a.model, Err: err}
	}

	response, err := a.send(ctx, request)
	if err != nil {
		return nil, &PromptError{Model: a.model, Err: err}
	}
	if response == nil || response.Content == "" {
		return nil, &PromptError{Model: a.model, Err: ErrEmptyResponse}
	}
	return response, nil
}

// StreamPrompt is StreamChat with an empty history.
func (a *Agent) StreamPrompt(ctx context.Context, input string) (*Stream, error) {
	return a.StreamChat(ctx, input, nil)
}

// StreamChat starts a streamed completion. Errors before the first event are
// returned as *CompletionError; later ones are yielded by the Stream.
func (a *Agent) StreamChat(ctx context.Context, input string, history []ai.Message) (*Stream, error) {
	ctx = a.withObserver(ctx)

	request, err := a.Request(ctx, input, history)
	if err != nil {
		return nil, &CompletionError{Model: a.model, Err: err}
	}

	stream, err := a.stream(ctx, request)
	if err != nil {
		return nil, &CompletionError{Model: a.model, Err: err}
	}
	return newStream(a.model, stream), nil
}

// Request assembles the provider request for input: the preamble as system
// prompt, then history, then the user message with context documents
// attached.
func (a *Agent) Request(ctx context.Context, input string, history []ai.Message) (ai.ChatRequest, error) {
	documents, err := a.retrieve(ctx, input)
	if err != nil {
		return ai.ChatRequest{}, err
	}

	messages := make([]ai.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ai.UserMessage(withAttachments(input, documents)))

	return ai.ChatRequest{
		Model:            a.model,
		SystemPrompt:     a.preamble,
		Messages:         messages,
		GenerationConfig: a.generation,
	}, nil
}

func (a *Agent) withObserver(ctx context.Context) context.Context {
	if a.observer == nil {
		return ctx
	}
	return observability.ContextWithObserver(ctx, a.observer)
}
