package openai

import (
	"context"
	"fmt"
	"sort"

	"github.com/leofalp/sagent/internal/utils"
	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/observability"
)

// Embed calls the /embeddings endpoint. Vectors are returned in input order
// regardless of the order the API lists them in.
func (p *OpenAIProvider) Embed(ctx context.Context, request ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	if len(request.Input) == 0 {
		return &ai.EmbeddingResponse{Model: request.Model}, nil
	}

	span := observability.SpanFromContext(ctx)
	url := p.url(request.Model, embeddingsEndpoint)

	if span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, p.name),
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Int(observability.AttrEmbeddingBatchSize, len(request.Input)),
		)
	}

	bearer, headers, err := p.credentials(ctx)
	if err != nil {
		return nil, err
	}

	body := embeddingRequest{
		Model:          request.Model,
		Input:          request.Input,
		Dimensions:     request.Dimensions,
		EncodingFormat: "float",
	}

	_, resp, err := utils.DoPostSync[embeddingResponse](ctx, p.client, url, bearer, body, headers...)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(request.Input) {
		return nil, fmt.Errorf("%w: %s returned %d embeddings for %d inputs", ai.ErrInvalidResponse, p.name, len(resp.Data), len(request.Input))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	result := &ai.EmbeddingResponse{
		Model:      resp.Model,
		Embeddings: make([][]float64, len(resp.Data)),
		Usage:      usageToGeneric(resp.Usage),
	}
	for i, data := range resp.Data {
		result.Embeddings[i] = data.Embedding
	}
	if result.Model == "" {
		result.Model = request.Model
	}

	return result, nil
}
