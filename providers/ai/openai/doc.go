// Package openai implements the ai provider interfaces for OpenAI-compatible
// APIs through the /chat/completions and /embeddings endpoints.
//
// [New] reads OPENAI_API_KEY and OPENAI_API_BASE_URL from the environment and
// never fails; [FromEnv] is the fail-fast variant that reports a missing key.
// Any OpenAI-compatible host (OpenRouter, Ollama, vLLM, a self-hosted gateway)
// is reached by pointing the base URL at it.
//
// Hosts that route by deployment or authenticate differently (Azure OpenAI)
// plug in through [OpenAIProvider.WithEndpoint] and [OpenAIProvider.WithAuth]
// and reuse the same wire format.
package openai
