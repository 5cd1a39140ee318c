package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/observability"
)

// DefaultMaxDocuments is the largest number of texts sent in one request.
const DefaultMaxDocuments = 96

// ErrMismatchedCount is returned when the provider answers with a different
// number of vectors than texts sent.
var ErrMismatchedCount = errors.New("embedding count does not match input count")

// Embedding is a text and its vector.
type Embedding struct {
	Document string
	Vec      []float64
}

// Model embeds texts with one provider model, batching requests and
// consulting an optional Cache first.
type Model struct {
	provider     ai.EmbeddingProvider
	name         string
	dimensions   int
	maxDocuments int
	cache        Cache
	logger       *slog.Logger
}

type Option func(*Model)

// WithMaxDocuments sets the batch size. Values below 1 are ignored.
func WithMaxDocuments(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.maxDocuments = n
		}
	}
}

// WithDimensions requests vectors of the given size from models that support it.
func WithDimensions(dimensions int) Option {
	return func(m *Model) { m.dimensions = dimensions }
}

// WithCache memoizes vectors in cache.
func WithCache(cache Cache) Option {
	return func(m *Model) { m.cache = cache }
}

// WithLogger receives cache failures, which never fail an embedding call.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

func NewModel(provider ai.EmbeddingProvider, name string, opts ...Option) *Model {
	m := &Model{
		provider:     provider,
		name:         name,
		maxDocuments: DefaultMaxDocuments,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Name() string { return m.name }

func (m *Model) MaxDocuments() int { return m.maxDocuments }

// EmbedText embeds a single text.
func (m *Model) EmbedText(ctx context.Context, text string) (Embedding, error) {
	embeddings, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	return embeddings[0], nil
}

// EmbedTexts embeds texts in order. Cached vectors are reused; the rest are
// requested in batches of at most MaxDocuments.
func (m *Model) EmbedTexts(ctx context.Context, texts []string) ([]Embedding, error) {
	result := make([]Embedding, len(texts))
	if len(texts) == 0 {
		return result, nil
	}

	cached := m.lookup(ctx, texts)

	var missing []int
	for i, text := range texts {
		if cached[i] != nil {
			result[i] = Embedding{Document: text, Vec: cached[i]}
		} else {
			missing = append(missing, i)
		}
	}

	observer := observability.ObserverFromContext(ctx)
	if observer != nil && len(missing) < len(texts) {
		observer.Debug(ctx, "embedding cache hits",
			observability.String(observability.AttrLLMModel, m.name),
			observability.Int(observability.AttrEmbeddingCacheHits, len(texts)-len(missing)),
		)
	}

	for start := 0; start < len(missing); start += m.maxDocuments {
		end := min(start+m.maxDocuments, len(missing))
		batch := missing[start:end]

		inputs := make([]string, len(batch))
		for j, index := range batch {
			inputs[j] = texts[index]
		}

		vectors, err := m.embedBatch(ctx, inputs)
		if err != nil {
			return nil, err
		}
		for j, index := range batch {
			result[index] = Embedding{Document: texts[index], Vec: vectors[j]}
		}
		m.store(ctx, inputs, vectors)

		if observer != nil {
			observer.Counter(observability.MetricEmbeddingDocumentCount).Add(ctx, int64(len(inputs)),
				observability.String(observability.AttrLLMModel, m.name),
			)
		}
	}

	return result, nil
}

func (m *Model) embedBatch(ctx context.Context, inputs []string) ([][]float64, error) {
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		var span observability.Span
		ctx, span = observer.StartSpan(ctx, observability.SpanEmbeddingBatch,
			observability.String(observability.AttrLLMModel, m.name),
			observability.Int(observability.AttrEmbeddingBatchSize, len(inputs)),
		)
		defer span.End()
	}

	response, err := m.provider.Embed(ctx, ai.EmbeddingRequest{
		Model:      m.name,
		Input:      inputs,
		Dimensions: m.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embed %d documents with %s: %w", len(inputs), m.name, err)
	}
	if len(response.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrMismatchedCount, len(inputs), len(response.Embeddings))
	}
	return response.Embeddings, nil
}

func (m *Model) lookup(ctx context.Context, texts []string) [][]float64 {
	if m.cache == nil {
		return make([][]float64, len(texts))
	}

	vectors, err := m.cache.Lookup(ctx, m.name, texts)
	if err != nil || len(vectors) != len(texts) {
		m.logger.WarnContext(ctx, "embedding cache lookup failed", slog.String("model", m.name), slog.Any("error", err))
		return make([][]float64, len(texts))
	}
	return vectors
}

func (m *Model) store(ctx context.Context, texts []string, vectors [][]float64) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Store(ctx, m.name, texts, vectors); err != nil {
		m.logger.WarnContext(ctx, "embedding cache store failed", slog.String("model", m.name), slog.Any("error", err))
	}
}
