// Package agent turns a provider client and a model into a prompting agent.
//
// A [Builder] collects the preamble, context documents (static, or retrieved
// per prompt from an [Index]), generation settings and middlewares; [Builder.Build]
// returns an immutable [Agent] exposing Prompt, Chat, StreamPrompt and
// StreamChat. The agent keeps no conversation state: callers pass history.
//
//	a, err := agent.NewBuilder(openai.New(), "gpt-4o").
//	    Preamble("You are a pirate.").
//	    Use(middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: 2})).
//	    Build()
//	answer, err := a.Prompt(ctx, "hi")
//
// Middlewares follow the same chain model for sync and streamed calls; the
// first one registered is the outermost. See package middleware for retry,
// timeout and logging.
package agent
