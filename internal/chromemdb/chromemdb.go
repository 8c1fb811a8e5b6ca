package chromemdb

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-qa/internal/apperrors"
	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/helper"
)

const (
	metaPosition = "position"
	metaFilename = "filename"
	metaFormat   = "format"
)

// VectorDBManager owns the chromem-go database; every document index is one collection in it
type VectorDBManager struct {
	db            *chromem.DB
	dbPath        string
	persistent    bool
	compress      bool
	encryptionKey string
}

// NewVectorDBManager opens an in-memory database, or a file backed one when cfg.Persist is set
func NewVectorDBManager(cfg *config.VectorDBConfig) (*VectorDBManager, error) {
	m := &VectorDBManager{
		dbPath:        cfg.Path,
		persistent:    cfg.Persist,
		compress:      cfg.Compress,
		encryptionKey: cfg.EncryptionKey,
	}
	if !cfg.Persist {
		m.db = chromem.NewDB()
		return m, nil
	}

	if err := helper.CreateFolder(cfg.Path); err != nil {
		return nil, err
	}
	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %v", err)
	}
	m.db = db
	return m, nil
}

// IndexMeta is stored alongside every passage so a persisted index can be reopened
type IndexMeta struct {
	Filename string
	Format   string
}

// Index is the vector index of one document. It is read-only once built.
type Index struct {
	name       string
	collection *chromem.Collection
	embedder   embeddings.Embedder
	texts      []string
	dim        int
	meta       IndexMeta
}

// SearchResult is a passage and its distance to the query; smaller is nearer
type SearchResult struct {
	Text     string
	Distance float64
	Position int
}

func embeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}

// BuildIndex embeds texts once and stores them as collection name.
// Positions in texts are kept as document ids, so results map back 1:1.
func (m *VectorDBManager) BuildIndex(ctx context.Context, name string, texts []string, embedder embeddings.Embedder, meta IndexMeta) (*Index, error) {
	if len(texts) == 0 {
		return nil, apperrors.ErrEmptyInput
	}

	vectors, dim, err := embedding.EmbedTexts(ctx, embedder, texts)
	if err != nil {
		return nil, err
	}

	collection, err := m.db.CreateCollection(name, map[string]string{"dimension": strconv.Itoa(dim)}, embeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %s: %v", name, err)
	}

	docs := make([]chromem.Document, len(texts))
	for i, text := range texts {
		docs[i] = chromem.Document{
			ID:      strconv.Itoa(i),
			Content: text,
			Metadata: map[string]string{
				metaPosition: strconv.Itoa(i),
				metaFilename: meta.Filename,
				metaFormat:   meta.Format,
			},
			Embedding: vectors[i],
		}
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		_ = m.db.DeleteCollection(name)
		return nil, fmt.Errorf("failed to add documents: %v", err)
	}

	log.Debug().Str("collection", name).Int("passages", len(texts)).Int("dimension", dim).Msg("Built vector index")

	return &Index{
		name:       name,
		collection: collection,
		embedder:   embedder,
		texts:      append([]string(nil), texts...),
		dim:        dim,
		meta:       meta,
	}, nil
}

// OpenIndex reopens a collection that was built earlier, e.g. from a persistent database
func (m *VectorDBManager) OpenIndex(ctx context.Context, name string, embedder embeddings.Embedder) (*Index, error) {
	collection := m.db.GetCollection(name, embeddingFunc(embedder))
	if collection == nil {
		return nil, apperrors.DocumentNotFound(name)
	}

	count := collection.Count()
	if count == 0 {
		return nil, apperrors.ErrEmptyInput
	}

	idx := &Index{name: name, collection: collection, embedder: embedder, texts: make([]string, count)}
	for i := 0; i < count; i++ {
		doc, err := collection.GetByID(ctx, strconv.Itoa(i))
		if err != nil {
			return nil, fmt.Errorf("failed to read passage %d of %s: %v", i, name, err)
		}
		if idx.dim == 0 {
			idx.dim = len(doc.Embedding)
			idx.meta = IndexMeta{Filename: doc.Metadata[metaFilename], Format: doc.Metadata[metaFormat]}
		} else if len(doc.Embedding) != idx.dim {
			return nil, apperrors.Wrap(apperrors.KindEmbedding,
				fmt.Sprintf("passage %d of %s has dimension %d, expected %d", i, name, len(doc.Embedding), idx.dim), nil)
		}
		idx.texts[i] = doc.Content
	}
	return idx, nil
}

// IndexNames lists every collection in the database
func (m *VectorDBManager) IndexNames() []string {
	collections := m.db.ListCollections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeleteIndex drops the collection backing an index
func (m *VectorDBManager) DeleteIndex(name string) error {
	if err := m.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}

// Export writes the given collections (all when none are named) to a snapshot file
func (m *VectorDBManager) Export(filePath string, names ...string) error {
	log.Debug().Str("file", filePath).Bool("compress", m.compress).Bool("encrypted", m.encryptionKey != "").Msg("Exporting vector database")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, names...); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}

// Import loads collections from a snapshot written by Export
func (m *VectorDBManager) Import(filePath string) error {
	if err := m.db.ImportFromFile(filePath, m.encryptionKey); err != nil {
		return fmt.Errorf("failed to import database: %v", err)
	}
	return nil
}

// Search returns at most k passages ordered nearest first. An index that was never built
// yields no results.
func (i *Index) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if i == nil || i.collection == nil || k <= 0 {
		return nil, nil
	}
	n := min(k, i.collection.Count())
	if n == 0 {
		return nil, nil
	}

	queryVector, err := embedding.EmbedQuery(ctx, i.embedder, query, i.dim)
	if err != nil {
		return nil, err
	}

	results, err := i.collection.QueryEmbedding(ctx, queryVector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		// chromem stores normalized vectors, so cosine distance ranks like squared L2
		distance := 1 - float64(r.Similarity)
		if math.IsNaN(distance) {
			distance = 2
		}
		pos, _ := strconv.Atoi(r.ID)
		out = append(out, SearchResult{Text: r.Content, Distance: distance, Position: pos})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Distance < out[b].Distance })
	return out, nil
}

func (i *Index) Name() string { return i.name }

// Texts returns the indexed passages in insertion order
func (i *Index) Texts() []string { return append([]string(nil), i.texts...) }

func (i *Index) Len() int { return len(i.texts) }

func (i *Index) Dimension() int { return i.dim }

func (i *Index) Meta() IndexMeta { return i.meta }
