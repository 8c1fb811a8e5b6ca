package rag

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-qa/internal/apperrors"
	"document-qa/internal/config"
	"document-qa/internal/document"
	"document-qa/internal/embedding"
	"document-qa/internal/models"
)

// RetrieverOptions tune candidate collection and hybrid scoring
type RetrieverOptions struct {
	KPerDoc      int
	MaxChunks    int
	Threshold    float64
	VectorWeight float64
}

// RetrieverOptionsFromConfig copies the retrieval settings out of cfg
func RetrieverOptionsFromConfig(cfg *config.RAGConfig) RetrieverOptions {
	return RetrieverOptions{
		KPerDoc:      cfg.KPerDoc,
		MaxChunks:    cfg.MaxChunks,
		Threshold:    cfg.Threshold,
		VectorWeight: cfg.VectorWeight,
	}
}

// Retriever collects candidate passages from each document's vector index and reranks them
// by a blend of cosine similarity and keyword overlap with the question
type Retriever struct {
	embedder  embeddings.Embedder
	stopWords map[string]struct{}
	opts      RetrieverOptions
}

func NewRetriever(embedder embeddings.Embedder, opts RetrieverOptions) *Retriever {
	if opts.KPerDoc <= 0 {
		opts.KPerDoc = 5
	}
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = 5
	}
	return &Retriever{embedder: embedder, stopWords: defaultStopWords, opts: opts}
}

// Retrieve returns the text of the best passages, most relevant first
func (r *Retriever) Retrieve(ctx context.Context, question string, docs []*document.Document) ([]string, error) {
	passages, err := r.RetrieveScored(ctx, question, docs)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return texts, nil
}

// RetrieveScored is Retrieve with the individual scores of every kept passage
func (r *Retriever) RetrieveScored(ctx context.Context, question string, docs []*document.Document) ([]models.Passage, error) {
	candidates, err := r.collect(ctx, question, docs)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}

	queryVector, err := embedding.EmbedQuery(ctx, r.embedder, question, 0)
	if err != nil {
		return nil, err
	}
	vectors, _, err := embedding.EmbedTexts(ctx, r.embedder, candidates)
	if err != nil {
		return nil, err
	}

	scorer := NewKeywordScorer(question, r.stopWords)
	passages := make([]models.Passage, 0, len(candidates))
	for i, text := range candidates {
		vectorScore, err := embedding.Cosine(queryVector, vectors[i])
		if err != nil {
			return nil, err
		}
		keywordScore := scorer.Score(text)
		blended := r.opts.VectorWeight*vectorScore + (1-r.opts.VectorWeight)*keywordScore
		if blended < r.opts.Threshold {
			continue
		}
		passages = append(passages, models.Passage{
			Text:              text,
			VectorScore:       vectorScore,
			KeywordScore:      keywordScore,
			BlendedScore:      blended,
			CandidatePosition: i,
		})
	}

	sort.SliceStable(passages, func(a, b int) bool {
		return passages[a].BlendedScore > passages[b].BlendedScore
	})
	if len(passages) > r.opts.MaxChunks {
		passages = passages[:r.opts.MaxChunks]
	}

	log.Debug().
		Int("documents", len(docs)).
		Int("candidates", len(candidates)).
		Int("kept", len(passages)).
		Strs("keywords", scorer.Tokens()).
		Msg("Retrieved passages")
	return passages, nil
}

// collect runs the vector search of every document and merges the hits,
// dropping texts that were already seen
func (r *Retriever) collect(ctx context.Context, question string, docs []*document.Document) ([]string, error) {
	seen := make(map[string]struct{})
	var candidates []string
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		results, err := doc.Search(ctx, question, r.opts.KPerDoc)
		if err != nil {
			kind := apperrors.KindOf(err)
			if kind == "" {
				kind = apperrors.KindInternal
			}
			return nil, apperrors.Wrap(kind, "vector search failed for document "+doc.ID(), err)
		}
		for _, res := range results {
			if _, ok := seen[res.Text]; ok {
				continue
			}
			seen[res.Text] = struct{}{}
			candidates = append(candidates, res.Text)
		}
	}
	return candidates, nil
}
