// Package anthropic implements the [ai.Provider] and [ai.StreamProvider] interfaces
// for Anthropic's Messages API.
//
// The system prompt travels in the top-level "system" field, consecutive turns
// with the same role are merged, and max_tokens defaults to [DefaultMaxTokens]
// because the API requires it. Stop reasons are normalised to the OpenAI
// vocabulary ("stop", "length", "content_filter").
//
// [New] reads ANTHROPIC_API_KEY and ANTHROPIC_API_BASE_URL from the
// environment; [FromEnv] is the fail-fast variant.
package anthropic
