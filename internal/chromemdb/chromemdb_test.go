package chromemdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/apperrors"
	"document-qa/internal/config"
	"document-qa/internal/embedding"
)

var passages = []string{
	"The mitochondria is the powerhouse of the cell and produces ATP.",
	"Photosynthesis in chloroplasts converts sunlight into chemical energy.",
	"Ribosomes translate messenger RNA into chains of amino acids.",
}

func newManager(t *testing.T) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager(&config.VectorDBConfig{})
	require.NoError(t, err)
	return m
}

type brokenEmbedder struct{ dims []int }

func (b brokenEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, b.dims[i%len(b.dims)])
	}
	return out, nil
}

func (b brokenEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return make([]float32, b.dims[0]), nil
}

func TestBuildIndexAndSearchNearestFirst(t *testing.T) {
	ctx := context.Background()
	idx, err := newManager(t).BuildIndex(ctx, "doc-1", passages, embedding.NewHashEmbedder(256), IndexMeta{Filename: "bio.pdf", Format: "pdf"})
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 256, idx.Dimension())
	assert.Equal(t, passages, idx.Texts())

	results, err := idx.Search(ctx, passages[2], 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, passages[2], results[0].Text)
	assert.Equal(t, 2, results[0].Position)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-5)
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
}

func TestSearchClampsK(t *testing.T) {
	ctx := context.Background()
	idx, err := newManager(t).BuildIndex(ctx, "doc-1", passages, embedding.NewHashEmbedder(64), IndexMeta{})
	require.NoError(t, err)

	results, err := idx.Search(ctx, "cell energy", 50)
	require.NoError(t, err)
	assert.Len(t, results, len(passages))

	results, err = idx.Search(ctx, "cell energy", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchOnUnbuiltIndex(t *testing.T) {
	var idx *Index
	results, err := idx.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = (&Index{}).Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBuildIndexEmptyInput(t *testing.T) {
	_, err := newManager(t).BuildIndex(context.Background(), "doc", nil, embedding.NewHashEmbedder(8), IndexMeta{})
	assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
}

func TestBuildIndexMalformedEmbeddings(t *testing.T) {
	m := newManager(t)
	_, err := m.BuildIndex(context.Background(), "doc", passages, brokenEmbedder{dims: []int{4, 3}}, IndexMeta{})
	assert.ErrorIs(t, err, apperrors.ErrEmbedding)
	assert.Empty(t, m.IndexNames())
}

func TestSearchQueryDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx, err := newManager(t).BuildIndex(ctx, "doc", passages, embedding.NewHashEmbedder(16), IndexMeta{})
	require.NoError(t, err)

	idx.embedder = brokenEmbedder{dims: []int{8}}
	_, err = idx.Search(ctx, "query", 2)
	assert.ErrorIs(t, err, apperrors.ErrEmbedding)
}

func TestOpenIndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	emb := embedding.NewHashEmbedder(32)
	m := newManager(t)
	_, err := m.BuildIndex(ctx, "doc-7", passages, emb, IndexMeta{Filename: "cells.docx", Format: "docx"})
	require.NoError(t, err)

	assert.Equal(t, []string{"doc-7"}, m.IndexNames())

	reopened, err := m.OpenIndex(ctx, "doc-7", emb)
	require.NoError(t, err)
	assert.Equal(t, passages, reopened.Texts())
	assert.Equal(t, 32, reopened.Dimension())
	assert.Equal(t, IndexMeta{Filename: "cells.docx", Format: "docx"}, reopened.Meta())

	_, err = m.OpenIndex(ctx, "missing", emb)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)

	require.NoError(t, m.DeleteIndex("doc-7"))
	assert.Empty(t, m.IndexNames())
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	emb := embedding.NewHashEmbedder(32)
	src := newManager(t)
	_, err := src.BuildIndex(ctx, "doc-1", passages, emb, IndexMeta{Filename: "a.pdf", Format: "pdf"})
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "snapshot.gob")
	require.NoError(t, src.Export(file))

	dst := newManager(t)
	require.NoError(t, dst.Import(file))
	idx, err := dst.OpenIndex(ctx, "doc-1", emb)
	require.NoError(t, err)
	assert.Equal(t, passages, idx.Texts())
}
