package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoContent is returned for a document that yields no text to embed.
var ErrNoContent = errors.New("document has no text to embed")

// Embeddable is a document that can be embedded. A document may produce
// several texts (one per definition, paragraph, etc.); each gets a vector.
type Embeddable interface {
	EmbeddingTexts() []string
}

// Entry is a document with the embeddings of its texts.
type Entry[T any] struct {
	Document   T
	Embeddings []Embedding
}

// Builder collects documents and embeds them all in one pass over the model,
// so batching spans document boundaries.
type Builder[T Embeddable] struct {
	model     *Model
	documents []T
}

func NewBuilder[T Embeddable](model *Model) *Builder[T] {
	return &Builder[T]{model: model}
}

func (b *Builder[T]) Document(document T) *Builder[T] {
	b.documents = append(b.documents, document)
	return b
}

func (b *Builder[T]) Documents(documents ...T) *Builder[T] {
	b.documents = append(b.documents, documents...)
	return b
}

// Build embeds every document and returns the entries in insertion order.
func (b *Builder[T]) Build(ctx context.Context) ([]Entry[T], error) {
	var texts []string
	spans := make([][2]int, len(b.documents))

	for i, doc := range b.documents {
		docTexts := doc.EmbeddingTexts()
		if len(docTexts) == 0 {
			return nil, fmt.Errorf("document %d: %w", i, ErrNoContent)
		}
		spans[i] = [2]int{len(texts), len(texts) + len(docTexts)}
		texts = append(texts, docTexts...)
	}

	embedded, err := b.model.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry[T], len(b.documents))
	for i, doc := range b.documents {
		entries[i] = Entry[T]{
			Document:   doc,
			Embeddings: embedded[spans[i][0]:spans[i][1]:spans[i][1]],
		}
	}
	return entries, nil
}
