// Package ai defines the shared, provider-agnostic types and interfaces used
// by every LLM provider implementation (OpenAI, Anthropic, Azure OpenAI and
// any OpenAI-compatible endpoint registered at runtime).
//
// The central interfaces are [Provider] for synchronous chat completions,
// [StreamProvider] for SSE-based streaming and [EmbeddingProvider] for
// embedding generation. Requests flow through [ChatRequest] and responses come
// back as [ChatResponse]; streamed deltas are delivered through [ChatStream].
//
// Provider failures are reported as [*ServiceError], which unwraps to one of
// the category sentinels ([ErrAuth], [ErrRateLimited], [ErrInvalidRequest],
// [ErrService]) so callers can branch with [errors.Is].
package ai
