package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/document"
)

const (
	powerhousePassage = "The mitochondria is the powerhouse of the cell and produces ATP."
	mitosisPassage    = "Cells divide through mitosis after copying their chromosomes."
	pastaPassage      = "Boil the pasta for ten minutes before adding the tomato sauce."
)

func retrievalDocs(t *testing.T, f *fixture) []*document.Document {
	t.Helper()
	return []*document.Document{
		buildDoc(t, f, "bio", powerhousePassage, mitosisPassage),
		buildDoc(t, f, "kitchen", pastaPassage),
	}
}

func TestRetrieveRanksByBlendedScore(t *testing.T) {
	f := newFixture(t, nil)
	docs := retrievalDocs(t, f)
	r := NewRetriever(f.embedder, RetrieverOptions{KPerDoc: 5, MaxChunks: 5, Threshold: 0.35, VectorWeight: 0.65})

	passages, err := r.RetrieveScored(context.Background(), "What is the powerhouse of the cell?", docs)
	require.NoError(t, err)
	require.Len(t, passages, 2)

	assert.Equal(t, powerhousePassage, passages[0].Text)
	assert.InDelta(t, 1.0, passages[0].KeywordScore, 1e-9)
	assert.InDelta(t, 1.0, passages[0].BlendedScore, 1e-6)
	assert.Equal(t, mitosisPassage, passages[1].Text)
	assert.InDelta(t, 0.65, passages[1].BlendedScore, 1e-6)
}

func TestRetrieveThresholdIsMonotonic(t *testing.T) {
	f := newFixture(t, nil)
	docs := retrievalDocs(t, f)
	question := "What is the powerhouse of the cell?"

	prev := -1
	for _, threshold := range []float64{0, 0.2, 0.35, 0.7, 0.95} {
		r := NewRetriever(f.embedder, RetrieverOptions{KPerDoc: 5, MaxChunks: 5, Threshold: threshold, VectorWeight: 0.65})
		passages, err := r.RetrieveScored(context.Background(), question, docs)
		require.NoError(t, err)

		if prev >= 0 {
			assert.LessOrEqual(t, len(passages), prev, "threshold %v", threshold)
		}
		prev = len(passages)
		for i, p := range passages {
			assert.GreaterOrEqual(t, p.BlendedScore, threshold)
			if i > 0 {
				assert.GreaterOrEqual(t, passages[i-1].BlendedScore, p.BlendedScore)
			}
		}
	}
	assert.Equal(t, 1, prev)
}

func TestRetrieveNothingRelevant(t *testing.T) {
	f := newFixture(t, nil)
	r := NewRetriever(f.embedder, RetrieverOptionsFromConfig(testRAGConfig()))

	contexts, err := r.Retrieve(context.Background(), "What is quantum chromodynamics?", retrievalDocs(t, f))
	require.NoError(t, err)
	assert.Empty(t, contexts)
}

func TestRetrieveCapsAtMaxChunks(t *testing.T) {
	f := newFixture(t, nil)
	r := NewRetriever(f.embedder, RetrieverOptions{KPerDoc: 5, MaxChunks: 1, Threshold: 0, VectorWeight: 0.65})

	contexts, err := r.Retrieve(context.Background(), "What is the powerhouse of the cell?", retrievalDocs(t, f))
	require.NoError(t, err)
	assert.Equal(t, []string{powerhousePassage}, contexts)
}

func TestRetrieveDeduplicatesAcrossDocuments(t *testing.T) {
	f := newFixture(t, nil)
	docs := []*document.Document{
		buildDoc(t, f, "copy-1", powerhousePassage),
		buildDoc(t, f, "copy-2", powerhousePassage),
	}
	r := NewRetriever(f.embedder, RetrieverOptions{KPerDoc: 5, MaxChunks: 5, Threshold: 0, VectorWeight: 0.65})

	contexts, err := r.Retrieve(context.Background(), "What is the powerhouse of the cell?", docs)
	require.NoError(t, err)
	assert.Equal(t, []string{powerhousePassage}, contexts)
}

func TestRetrieveNoDocuments(t *testing.T) {
	f := newFixture(t, nil)
	r := NewRetriever(f.embedder, RetrieverOptionsFromConfig(testRAGConfig()))

	contexts, err := r.Retrieve(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Empty(t, contexts)
	assert.Zero(t, f.embedder.calls.Load())
}
