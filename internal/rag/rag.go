package rag

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"document-qa/internal/apperrors"
	"document-qa/internal/config"
	"document-qa/internal/document"
	"document-qa/internal/helper"
	"document-qa/internal/models"
	"document-qa/internal/parser"
)

// Registry records uploaded documents outside the vector database
type Registry interface {
	RecordDocument(ctx context.Context, info models.DocumentInfo) error
}

// Deps are the collaborators of the pipeline; Registry may be nil
type Deps struct {
	Store     *document.Store
	Builder   *document.Builder
	Extractor parser.Extractor
	Retriever *Retriever
	Generator *Generator
	Registry  Registry
}

// RAG ties ingestion and question answering together
type RAG struct {
	store     *document.Store
	builder   *document.Builder
	extractor parser.Extractor
	retriever *Retriever
	generator *Generator
	registry  Registry
	cfg       config.RAGConfig
}

func NewRAG(deps Deps, cfg *config.RAGConfig) *RAG {
	extractor := deps.Extractor
	if extractor == nil {
		extractor = parser.Default
	}
	return &RAG{
		store:     deps.Store,
		builder:   deps.Builder,
		extractor: extractor,
		retriever: deps.Retriever,
		generator: deps.Generator,
		registry:  deps.Registry,
		cfg:       *cfg,
	}
}

// Upload extracts, chunks and indexes a file, then stores it under a fresh id.
// Nothing is stored when any step fails.
func (r *RAG) Upload(ctx context.Context, filename, format string, data []byte) (*models.UploadResult, error) {
	start := time.Now()
	format, err := parser.ResolveFormat(filename, format)
	if err != nil {
		return nil, err
	}

	text, err := r.extractor.ExtractText(data, format)
	if err != nil {
		if apperrors.KindOf(err) == "" {
			err = apperrors.Wrap(apperrors.KindExtraction, "failed to extract text from "+filename, err)
		}
		return nil, err
	}

	chunks := parser.SplitIntoChunks(text, r.cfg.ChunkSize, r.cfg.ChunkOverlap)
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to allocate document id", err)
	}
	doc, err := r.builder.Build(ctx, id, chunks, document.Meta{Filename: filename, Format: format})
	if err != nil {
		return nil, err
	}

	if r.registry != nil {
		if err := r.registry.RecordDocument(ctx, doc.Info()); err != nil {
			r.discard(doc)
			return nil, apperrors.Wrap(apperrors.KindInternal, "failed to record document", err)
		}
	}
	if err := r.store.Put(doc); err != nil {
		r.discard(doc)
		return nil, err
	}

	log.Info().
		Str("document_id", id).
		Str("filename", filename).
		Str("format", format).
		Int("chunks", len(chunks)).
		Int("passages", len(doc.Passages())).
		Dur("took", time.Since(start)).
		Msg("Document indexed")

	return &models.UploadResult{DocumentID: id, Filename: filename, PassageCount: len(doc.Passages())}, nil
}

func (r *RAG) discard(doc *document.Document) {
	if err := r.builder.Discard(doc); err != nil {
		log.Warn().Err(err).Str("document_id", doc.ID()).Msg("Failed to drop index")
	}
}

// Ask answers question from the given documents. Unknown ids fail before any retrieval.
// A refusal always comes with empty evidence.
func (r *RAG) Ask(ctx context.Context, ids []string, question string) (*models.PromptResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.Wrap(apperrors.KindValidation, "question must not be empty", nil)
	}
	if len(ids) == 0 {
		return nil, apperrors.Wrap(apperrors.KindValidation, "at least one document id is required", nil)
	}

	docs, err := r.store.Resolve(ids)
	if err != nil {
		return nil, err
	}

	contexts, err := r.retriever.Retrieve(ctx, question, docs)
	if err != nil {
		return nil, err
	}
	if r.cfg.StrictMentionCheck {
		contexts = FilterMentions(question, contexts)
	}

	resp := &models.PromptResponse{Query: question, Answer: models.RefusalSentinel, Evidence: []string{}}
	if !enoughContext(contexts, r.cfg.MinContextChars) {
		log.Info().Strs("document_ids", ids).Int("contexts", len(contexts)).Msg("Not enough context, refusing")
		return resp, nil
	}

	answer, err := r.generator.Generate(ctx, question, contexts)
	if err != nil {
		return nil, err
	}
	resp.Answer = answer
	if answer != models.RefusalSentinel {
		resp.Evidence = contexts
	}

	log.Info().Strs("document_ids", ids).Int("evidence", len(resp.Evidence)).Bool("refused", answer == models.RefusalSentinel).Msg("Question answered")
	return resp, nil
}

// Documents describes every stored document in upload order
func (r *RAG) Documents() []models.DocumentInfo {
	docs := r.store.List()
	out := make([]models.DocumentInfo, len(docs))
	for i, d := range docs {
		out[i] = d.Info()
	}
	return out
}

// Rehydrate loads every index found in the vector database into the store.
// Indexes that cannot be reopened are skipped.
func (r *RAG) Rehydrate(ctx context.Context) (int, error) {
	loaded := 0
	for _, id := range r.builder.IndexedIDs() {
		if _, ok := r.store.Get(id); ok {
			continue
		}
		doc, err := r.builder.Reopen(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("document_id", id).Msg("Skipping index")
			continue
		}
		if err := r.store.Put(doc); err != nil {
			return loaded, err
		}
		loaded++
	}
	if loaded > 0 {
		log.Info().Int("documents", loaded).Msg("Restored documents from vector database")
	}
	return loaded, nil
}

// enoughContext reports whether contexts, joined by single spaces, reach minChars runes
func enoughContext(contexts []string, minChars int) bool {
	if len(contexts) == 0 {
		return false
	}
	joined := strings.TrimSpace(strings.Join(contexts, " "))
	return utf8.RuneCountInString(joined) >= minChars
}
