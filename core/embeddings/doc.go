// Package embeddings computes vector embeddings for retrieval.
//
// A [Model] wraps an [ai.EmbeddingProvider] and a model name, splitting large
// inputs into batches of at most [DefaultMaxDocuments] texts. A [Builder]
// embeds user documents implementing [Embeddable] into [Entry] values that a
// vector store can index. [RedisCache] avoids re-embedding texts across runs.
package embeddings
