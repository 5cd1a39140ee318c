package agent

import (
	"context"
	"fmt"

	"github.com/leofalp/sagent/core/parse"
	"github.com/leofalp/sagent/internal/jsonschema"
	"github.com/leofalp/sagent/providers/ai"
)

const extractInstruction = "Extract the requested data from the user's input. " +
	"Answer with a single JSON value that conforms to this JSON Schema and nothing else:\n"

// Extract prompts the agent for a value of type T and decodes the answer.
// Output wrapped in prose or markdown, or slightly malformed JSON, is
// repaired before decoding. Failures are returned as *PromptError.
func Extract[T any](ctx context.Context, a *Agent, input string) (T, error) {
	var zero T

	schema, err := jsonschema.For[T]()
	if err != nil {
		return zero, &PromptError{Model: a.model, Err: fmt.Errorf("schema for %T: %w", zero, err)}
	}

	ctx = a.withObserver(ctx)
	request, err := a.Request(ctx, input, nil)
	if err != nil {
		return zero, &PromptError{Model: a.model, Err: err}
	}

	instruction := extractInstruction + schema.String()
	if request.SystemPrompt != "" {
		request.SystemPrompt += "\n\n" + instruction
	} else {
		request.SystemPrompt = instruction
	}
	if schema.Type == "object" {
		request.ResponseFormat = &ai.ResponseFormat{Type: "json_object"}
	}

	response, err := a.send(ctx, request)
	if err != nil {
		return zero, &PromptError{Model: a.model, Err: err}
	}
	if response == nil || response.Content == "" {
		return zero, &PromptError{Model: a.model, Err: ErrEmptyResponse}
	}

	value, err := parse.As[T](response.Content)
	if err != nil {
		return zero, &PromptError{Model: a.model, Err: err}
	}
	return value, nil
}
