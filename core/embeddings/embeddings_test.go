package embeddings

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/sagent/providers/ai"
)

// fakeEmbedder maps each text to {len(text), 1} and records batch sizes.
type fakeEmbedder struct {
	batches [][]string
	err     error
	short   bool
}

func (f *fakeEmbedder) Embed(_ context.Context, request ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	f.batches = append(f.batches, request.Input)
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float64, len(request.Input))
	for i, text := range request.Input {
		vectors[i] = []float64{float64(len(text)), 1}
	}
	if f.short {
		vectors = vectors[1:]
	}
	return &ai.EmbeddingResponse{Model: request.Model, Embeddings: vectors}, nil
}

// mapCache is an in-process Cache.
type mapCache struct {
	vectors map[string][]float64
	fail    bool
}

func (c *mapCache) Lookup(_ context.Context, model string, texts []string) ([][]float64, error) {
	if c.fail {
		return nil, errors.New("cache down")
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = c.vectors[model+"/"+text]
	}
	return out, nil
}

func (c *mapCache) Store(_ context.Context, model string, texts []string, vectors [][]float64) error {
	for i, text := range texts {
		c.vectors[model+"/"+text] = vectors[i]
	}
	return nil
}

type definition struct {
	Word        string
	Definitions []string
}

func (d definition) EmbeddingTexts() []string { return d.Definitions }

func TestModel_BatchesAtMaxDocuments(t *testing.T) {
	provider := &fakeEmbedder{}
	model := NewModel(provider, "text-embedding-3-small")

	texts := make([]string, 200)
	for i := range texts {
		texts[i] = string(rune('a' + i%26))
	}

	embeddings, err := model.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, embeddings, 200)

	require.Len(t, provider.batches, 3)
	assert.Len(t, provider.batches[0], DefaultMaxDocuments)
	assert.Len(t, provider.batches[1], DefaultMaxDocuments)
	assert.Len(t, provider.batches[2], 200-2*DefaultMaxDocuments)
	assert.Equal(t, texts[150], embeddings[150].Document)
}

func TestModel_EmptyInputMakesNoRequest(t *testing.T) {
	provider := &fakeEmbedder{}
	embeddings, err := NewModel(provider, "m").EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, embeddings)
	assert.Empty(t, provider.batches)
}

func TestModel_ProviderError(t *testing.T) {
	provider := &fakeEmbedder{err: ai.NewServiceError(429, "")}
	_, err := NewModel(provider, "m").EmbedText(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrRateLimited)
}

func TestModel_MismatchedCount(t *testing.T) {
	provider := &fakeEmbedder{short: true}
	_, err := NewModel(provider, "m").EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrMismatchedCount)
}

func TestModel_UsesCache(t *testing.T) {
	cache := &mapCache{vectors: map[string][]float64{"m/cached": {9, 9}}}
	provider := &fakeEmbedder{}
	model := NewModel(provider, "m", WithCache(cache), WithMaxDocuments(10))

	embeddings, err := model.EmbedTexts(context.Background(), []string{"cached", "fresh"})
	require.NoError(t, err)

	assert.Equal(t, []float64{9, 9}, embeddings[0].Vec)
	assert.Equal(t, []float64{5, 1}, embeddings[1].Vec)
	require.Len(t, provider.batches, 1)
	assert.Equal(t, []string{"fresh"}, provider.batches[0])
	assert.Contains(t, cache.vectors, "m/fresh")

	_, err = model.EmbedText(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Len(t, provider.batches, 1, "second call must be served from cache")
}

func TestModel_CacheFailureFallsBackToProvider(t *testing.T) {
	provider := &fakeEmbedder{}
	model := NewModel(provider, "m", WithCache(&mapCache{fail: true, vectors: map[string][]float64{}}))

	embedding, err := model.EmbedText(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1}, embedding.Vec)
}

func TestBuilder_GroupsEmbeddingsPerDocument(t *testing.T) {
	provider := &fakeEmbedder{}
	model := NewModel(provider, "m", WithMaxDocuments(2))

	entries, err := NewBuilder[definition](model).
		Document(definition{Word: "flurbo", Definitions: []string{"a green alien", "a unit of currency"}}).
		Documents(definition{Word: "glarb-glarb", Definitions: []string{"an ancient tool"}}).
		Build(context.Background())
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "flurbo", entries[0].Document.Word)
	require.Len(t, entries[0].Embeddings, 2)
	assert.Equal(t, "a unit of currency", entries[0].Embeddings[1].Document)
	require.Len(t, entries[1].Embeddings, 1)
	assert.Equal(t, "an ancient tool", entries[1].Embeddings[0].Document)
	assert.Len(t, provider.batches, 2)
}

func TestBuilder_RejectsEmptyDocument(t *testing.T) {
	_, err := NewBuilder[definition](NewModel(&fakeEmbedder{}, "m")).
		Document(definition{Word: "empty"}).
		Build(context.Background())
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 1}, []float64{-1, -1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Zero(t, CosineSimilarity([]float64{0, 0}, []float64{1, 2}))

	a := Embedding{Vec: []float64{3, 4}}
	assert.InDelta(t, 24.0/25.0, a.Similarity(Embedding{Vec: []float64{4, 3}}), 1e-9)
}

func TestVectorEncodingRoundTrip(t *testing.T) {
	vec := []float64{0, -1.5, math.Pi, math.MaxFloat64}
	decoded, err := decodeVector(encodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, errCorruptVector)
}
