package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/sagent/providers/observability"
)

// Document is a piece of text attached to the prompt as context.
type Document struct {
	ID   string
	Text string
}

// Index retrieves the documents most relevant to a query. Vector stores
// implement it to serve as dynamic context.
type Index interface {
	TopNDocuments(ctx context.Context, query string, n int) ([]Document, error)
}

type dynamicContext struct {
	k     int
	index Index
}

// retrieve returns the static documents followed by the top-k documents of
// every dynamic context source, queried with input.
func (a *Agent) retrieve(ctx context.Context, input string) ([]Document, error) {
	if len(a.dynamic) == 0 {
		return a.static, nil
	}

	documents := append([]Document(nil), a.static...)
	for _, source := range a.dynamic {
		found, err := source.index.TopNDocuments(ctx, input, source.k)
		if err != nil {
			return nil, fmt.Errorf("dynamic context: %w", err)
		}
		documents = append(documents, found...)
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventContextRetrieved,
			observability.Int(observability.AttrAgentDocuments, len(documents)),
		)
	}

	return documents, nil
}

// withAttachments prefixes input with the documents in the attachments
// format understood by the supported models. Without documents the input is
// returned unchanged.
func withAttachments(input string, documents []Document) string {
	if len(documents) == 0 {
		return input
	}

	var b strings.Builder
	b.WriteString("<attachments>\n")
	for _, doc := range documents {
		fmt.Fprintf(&b, "<file id: %s>\n%s\n</file>\n", doc.ID, doc.Text)
	}
	b.WriteString("</attachments>\n\n")
	b.WriteString(input)
	return b.String()
}
