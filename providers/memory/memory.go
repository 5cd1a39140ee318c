package memory

import (
	"context"

	"github.com/leofalp/sagent/providers/ai"
)

// Provider stores the message history of one conversation.
type Provider interface {
	AppendMessage(ctx context.Context, message *ai.Message) error
	Count(ctx context.Context) (int, error)
	AllMessages(ctx context.Context) ([]ai.Message, error)
	LastMessages(ctx context.Context, n int) ([]ai.Message, error)
	PopLastMessage(ctx context.Context) (*ai.Message, error)
	ClearMessages(ctx context.Context) error
	FilterByRole(ctx context.Context, role ai.MessageRole) ([]ai.Message, error)
}

// Store hands out the Provider for a session id. Calling Session twice with
// the same id returns views over the same history.
type Store interface {
	Session(sessionID string) Provider
}

// AppendTurn records one user/assistant exchange. It stops at the first
// failed write.
func AppendTurn(ctx context.Context, history Provider, prompt, response string) error {
	user := ai.UserMessage(prompt)
	if err := history.AppendMessage(ctx, &user); err != nil {
		return err
	}
	assistant := ai.AssistantMessage(response)
	return history.AppendMessage(ctx, &assistant)
}
