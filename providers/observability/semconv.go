package observability

// Attribute, span, event and metric names shared by every component.

// --- LLM Provider Attributes ---

const (
	// AttrLLMProvider is the name of the LLM provider (e.g., "openai", "anthropic", "azure")
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model or deployment identifier
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMResponseID is the unique response identifier from the provider
	AttrLLMResponseID = "llm.response.id"

	// AttrLLMFinishReason is the reason the generation finished
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrLLMStreaming marks streamed requests
	AttrLLMStreaming = "llm.streaming"
)

// --- Token Usage Attributes ---

const (
	AttrLLMTokensPrompt     = "llm.tokens.prompt"     // #nosec G101 -- LLM tokens, not credentials
	AttrLLMTokensCompletion = "llm.tokens.completion" // #nosec G101 -- LLM tokens, not credentials
	AttrLLMTokensTotal      = "llm.tokens.total"      // #nosec G101 -- LLM tokens, not credentials
)

// --- Agent Attributes ---

const (
	// AttrAgentDocuments is the number of context documents attached to the prompt
	AttrAgentDocuments = "agent.documents"

	// AttrRequestMessagesCount is the number of messages in the request
	AttrRequestMessagesCount = "request.messages_count"
)

// --- Embedding Attributes ---

const (
	AttrEmbeddingBatchSize  = "embedding.batch_size"
	AttrEmbeddingCacheHits  = "embedding.cache_hits"
	AttrVectorStoreTopN     = "vectorstore.top_n"
	AttrVectorStoreResults  = "vectorstore.results"
	AttrVectorStoreDocCount = "vectorstore.documents"
)

// --- HTTP Attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- Memory Attributes ---

const (
	AttrMemoryMessageRole   = "memory.message.role"
	AttrMemoryMessageLength = "memory.message.length"
	AttrMemoryTotalMessages = "memory.total_messages"
)

// --- General Attributes ---

const (
	AttrError             = "error"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	SpanAgentPrompt     = "agent.prompt"
	SpanAgentStream     = "agent.stream"
	SpanLLMRequest      = "llm.request"
	SpanEmbeddingBatch  = "embedding.batch"
	SpanVectorStoreTopN = "vectorstore.top_n"
)

// --- Event Names ---

const (
	EventLLMRequestStart  = "llm.request.start"
	EventLLMRequestEnd    = "llm.request.end"
	EventTokensReceived   = "llm.tokens.received" // #nosec G101 -- LLM tokens, not credentials
	EventContextRetrieved = "agent.context.retrieved"
	EventMemoryAppend     = "memory.append"
	EventMemoryClear      = "memory.clear"
)

// --- Metric Names ---

const (
	MetricAgentRequestCount      = "sagent.agent.request.count"
	MetricAgentRequestDuration   = "sagent.agent.request.duration"
	MetricAgentTokensTotal       = "sagent.agent.tokens.total"
	MetricAgentErrorCount        = "sagent.agent.error.count"
	MetricEmbeddingDocumentCount = "sagent.embedding.document.count"
)
