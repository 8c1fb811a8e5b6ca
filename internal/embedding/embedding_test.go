package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/apperrors"
	"document-qa/internal/config"
)

type stubEmbedder struct {
	docs  [][]float32
	query []float32
	err   error
}

func (s *stubEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return s.docs, s.err
}

func (s *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return s.query, s.err
}

func TestNewSelectsProvider(t *testing.T) {
	e, err := New(&config.LLMConfig{Provider: "hash", Dimension: 16})
	require.NoError(t, err)
	assert.IsType(t, &HashEmbedder{}, e)

	_, err = New(&config.LLMConfig{Provider: "bert"})
	assert.Error(t, err)
}

func TestNewOllamaEmbedderDoesNotDial(t *testing.T) {
	e, err := NewOllamaEmbedder(&config.LLMConfig{BaseURL: "http://127.0.0.1:1", Model: "all-minilm", BatchSize: 8})
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestCosine(t *testing.T) {
	s, err := Cosine(Vector{1, 0}, Vector{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s, 1e-9)

	s, err = Cosine(Vector{1, 0}, Vector{0, 3})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, s, 1e-9)

	s, err = Cosine(Vector{0, 0}, Vector{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s)

	_, err = Cosine(Vector{1, 0}, Vector{1, 0, 0})
	assert.ErrorIs(t, err, apperrors.ErrEmbedding)
}

func TestValidateVectors(t *testing.T) {
	dim, err := ValidateVectors([][]float32{{1, 2, 3}, {4, 5, 6}}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)

	for name, tc := range map[string]struct {
		vectors [][]float32
		n       int
	}{
		"no vectors":    {nil, 1},
		"count differs": {[][]float32{{1}}, 2},
		"empty vector":  {[][]float32{{}}, 1},
		"ragged":        {[][]float32{{1, 2}, {1}}, 2},
	} {
		_, err := ValidateVectors(tc.vectors, tc.n)
		assert.ErrorIs(t, err, apperrors.ErrEmbedding, name)
	}
}

func TestEmbedTextsWrapsFailures(t *testing.T) {
	ctx := context.Background()

	_, _, err := EmbedTexts(ctx, &stubEmbedder{err: errors.New("connection refused")}, []string{"a"})
	assert.ErrorIs(t, err, apperrors.ErrEmbedding)

	_, _, err = EmbedTexts(ctx, &stubEmbedder{docs: [][]float32{{1}}}, []string{"a", "b"})
	assert.ErrorIs(t, err, apperrors.ErrEmbedding)

	vecs, dim, err := EmbedTexts(ctx, &stubEmbedder{docs: [][]float32{{1, 0}, {0, 1}}}, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, dim)
	assert.Len(t, vecs, 2)
}

func TestEmbedQueryDimensionCheck(t *testing.T) {
	ctx := context.Background()
	_, err := EmbedQuery(ctx, &stubEmbedder{query: []float32{1, 2}}, "q", 3)
	assert.ErrorIs(t, err, apperrors.ErrEmbedding)

	v, err := EmbedQuery(ctx, &stubEmbedder{query: []float32{1, 2, 3}}, "q", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Dim())
}
