package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leofalp/sagent/core/agent"
	"github.com/leofalp/sagent/core/embeddings"
	"github.com/leofalp/sagent/providers/observability"
)

// Index searches a store with queries embedded by a model. It implements
// agent.Index, so it can back Builder.DynamicContext.
type Index[T any] struct {
	store *InMemory[T]
	model *embeddings.Model
}

var _ agent.Index = (*Index[string])(nil)

// Index pairs the store with the model that embedded its documents.
func (s *InMemory[T]) Index(model *embeddings.Model) *Index[T] {
	return &Index[T]{store: s, model: model}
}

// TopN returns the n documents closest to query.
func (i *Index[T]) TopN(ctx context.Context, query string, n int) ([]Result[T], error) {
	if n <= 0 {
		return nil, nil
	}

	var span observability.Span
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		ctx, span = observer.StartSpan(ctx, observability.SpanVectorStoreTopN,
			observability.Int(observability.AttrVectorStoreTopN, n),
			observability.Int(observability.AttrVectorStoreDocCount, i.store.Len()),
		)
		defer span.End()
	}

	embedded, err := i.model.EmbedText(ctx, query)
	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "embed query")
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results := i.store.search(embedded.Vec, n)
	if span != nil {
		span.SetAttributes(observability.Int(observability.AttrVectorStoreResults, len(results)))
	}
	return results, nil
}

// TopNIDs is TopN without the documents.
func (i *Index[T]) TopNIDs(ctx context.Context, query string, n int) ([]string, error) {
	results, err := i.TopN(ctx, query, n)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(results))
	for j, result := range results {
		ids[j] = result.ID
	}
	return ids, nil
}

// TopNDocuments returns the closest documents serialized as JSON, ready to be
// attached to a prompt.
func (i *Index[T]) TopNDocuments(ctx context.Context, query string, n int) ([]agent.Document, error) {
	results, err := i.TopN(ctx, query, n)
	if err != nil {
		return nil, err
	}

	documents := make([]agent.Document, len(results))
	for j, result := range results {
		text, err := documentText(result.Document)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", result.ID, err)
		}
		documents[j] = agent.Document{ID: result.ID, Text: text}
	}
	return documents, nil
}

func documentText(document any) (string, error) {
	if s, ok := document.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(document)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
