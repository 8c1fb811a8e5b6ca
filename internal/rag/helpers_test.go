package rag

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"document-qa/internal/chromemdb"
	"document-qa/internal/config"
	"document-qa/internal/document"
	"document-qa/internal/models"
)

// topicEmbedder maps text onto a few hand picked topics so similarities are predictable
type topicEmbedder struct {
	calls atomic.Int32
}

var topics = [][]string{
	{"mitochondria", "cell", "cells", "atp", "powerhouse", "respiration"},
	{"recipe", "pasta", "sauce", "cook", "cooking", "oven"},
	{"quantum", "chromodynamics", "quark", "quarks", "gluon"},
}

func (e *topicEmbedder) vector(text string) []float32 {
	v := make([]float32, len(topics)+1)
	words := wordSet(text)
	for i, topic := range topics {
		for _, w := range topic {
			if _, ok := words[w]; ok {
				v[i] = 1
				break
			}
		}
	}
	v[len(topics)] = 0.1
	return v
}

func (e *topicEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *topicEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	return e.vector(text), nil
}

type mockModel struct {
	mock.Mock
}

func (m *mockModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	args := m.Called(ctx, messages)
	resp, _ := args.Get(0).(*llms.ContentResponse)
	return resp, args.Error(1)
}

func (m *mockModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func reply(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

type fixture struct {
	rag      *RAG
	store    *document.Store
	builder  *document.Builder
	embedder *topicEmbedder
	model    *mockModel
}

func testRAGConfig() *config.RAGConfig {
	return &config.Default().RAG
}

func newFixture(t *testing.T, registry Registry) *fixture {
	t.Helper()
	e := &topicEmbedder{}
	f := newFixtureWithEmbedder(t, registry, e)
	f.embedder = e
	return f
}

// newFixtureWithEmbedder wires the pipeline around any embedder, e.g. the offline hashing one
func newFixtureWithEmbedder(t *testing.T, registry Registry, embedder embeddings.Embedder) *fixture {
	t.Helper()
	vdb, err := chromemdb.NewVectorDBManager(&config.VectorDBConfig{})
	require.NoError(t, err)

	cfg := testRAGConfig()
	f := &fixture{
		store: document.NewStore(),
		model: &mockModel{},
	}
	f.builder = document.NewBuilder(vdb, embedder, cfg.MinPassageChars)
	f.rag = NewRAG(Deps{
		Store:     f.store,
		Builder:   f.builder,
		Extractor: passthroughExtractor{},
		Retriever: NewRetriever(embedder, RetrieverOptionsFromConfig(cfg)),
		Generator: NewGenerator(f.model, GeneratorOptions{MaxTokens: 64, StopWords: []string{"<|im_end|>"}}),
		Registry:  registry,
	}, cfg)
	return f
}

// passthroughExtractor treats uploaded bytes as the extracted text
type passthroughExtractor struct{}

func (passthroughExtractor) ExtractText(data []byte, _ string) (string, error) {
	return string(data), nil
}

func (f *fixture) upload(t *testing.T, filename, text string) string {
	t.Helper()
	res, err := f.rag.Upload(context.Background(), filename, "", []byte(text))
	require.NoError(t, err)
	return res.DocumentID
}

func buildDoc(t *testing.T, f *fixture, id string, passages ...string) *document.Document {
	t.Helper()
	doc, err := f.builder.Build(context.Background(), id, passages, document.Meta{Filename: id + ".pdf", Format: models.FormatPDF})
	require.NoError(t, err)
	return doc
}

func joinSentences(s ...string) string {
	return strings.Join(s, " ")
}
