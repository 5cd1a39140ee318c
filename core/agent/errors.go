package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse is returned when the model completes without content.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrInvalidBuilder is returned by Build for an incomplete configuration.
	ErrInvalidBuilder = errors.New("invalid agent configuration")
)

// PromptError is returned by Prompt and Chat. It wraps the provider, context
// retrieval or decoding failure unchanged.
type PromptError struct {
	Model string
	Err   error
}

func (e *PromptError) Error() string {
	return fmt.Sprintf("prompt %s: %v", e.Model, e.Err)
}

func (e *PromptError) Unwrap() error { return e.Err }

// CompletionError is returned by StreamPrompt and StreamChat, and yielded by
// a Stream that fails mid-way.
type CompletionError struct {
	Model string
	Err   error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion %s: %v", e.Model, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }
