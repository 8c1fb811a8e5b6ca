package document

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/embeddings"

	"document-qa/internal/apperrors"
	"document-qa/internal/chromemdb"
	"document-qa/internal/models"
)

// DefaultMinPassageChars is the trimmed length a passage must exceed to be kept
const DefaultMinPassageChars = 20

// Meta describes where a document came from
type Meta struct {
	Filename string
	Format   string
}

// Document is a cleaned passage list and the vector index built over it.
// It is immutable after construction and safe for concurrent reads.
type Document struct {
	id       string
	meta     Meta
	passages []string
	index    *chromemdb.Index
}

// Builder constructs documents, embedding their passages eagerly
type Builder struct {
	vdb      *chromemdb.VectorDBManager
	embedder embeddings.Embedder
	minChars int
}

func NewBuilder(vdb *chromemdb.VectorDBManager, embedder embeddings.Embedder, minChars int) *Builder {
	if minChars <= 0 {
		minChars = DefaultMinPassageChars
	}
	return &Builder{vdb: vdb, embedder: embedder, minChars: minChars}
}

// CleanPassages trims every chunk and keeps those longer than minChars characters
func CleanPassages(rawChunks []string, minChars int) []string {
	cleaned := make([]string, 0, len(rawChunks))
	for _, c := range rawChunks {
		c = strings.TrimSpace(c)
		if c == "" || utf8.RuneCountInString(c) <= minChars {
			continue
		}
		cleaned = append(cleaned, c)
	}
	return cleaned
}

// Build cleans rawChunks and indexes the surviving passages under id
func (b *Builder) Build(ctx context.Context, id string, rawChunks []string, meta Meta) (*Document, error) {
	passages := CleanPassages(rawChunks, b.minChars)
	if len(passages) == 0 {
		return nil, apperrors.ErrEmptyDocument
	}

	index, err := b.vdb.BuildIndex(ctx, id, passages, b.embedder, chromemdb.IndexMeta{Filename: meta.Filename, Format: meta.Format})
	if err != nil {
		return nil, err
	}
	return &Document{id: id, meta: meta, passages: passages, index: index}, nil
}

// Reopen restores a document from an index persisted earlier
func (b *Builder) Reopen(ctx context.Context, id string) (*Document, error) {
	index, err := b.vdb.OpenIndex(ctx, id, b.embedder)
	if err != nil {
		return nil, err
	}
	m := index.Meta()
	return &Document{
		id:       id,
		meta:     Meta{Filename: m.Filename, Format: m.Format},
		passages: index.Texts(),
		index:    index,
	}, nil
}

// IndexedIDs lists the ids of every document index the vector database holds
func (b *Builder) IndexedIDs() []string {
	return b.vdb.IndexNames()
}

// Discard drops the index of a document that will not be stored
func (b *Builder) Discard(doc *Document) error {
	return b.vdb.DeleteIndex(doc.id)
}

func (d *Document) ID() string { return d.id }

func (d *Document) Meta() Meta { return d.meta }

// Passages returns a copy of the cleaned passages
func (d *Document) Passages() []string { return append([]string(nil), d.passages...) }

func (d *Document) Index() *chromemdb.Index { return d.index }

// Search queries the document's own vector index
func (d *Document) Search(ctx context.Context, query string, k int) ([]chromemdb.SearchResult, error) {
	return d.index.Search(ctx, query, k)
}

func (d *Document) Info() models.DocumentInfo {
	return models.DocumentInfo{
		DocumentID:   d.id,
		Filename:     d.meta.Filename,
		Format:       d.meta.Format,
		PassageCount: len(d.passages),
	}
}
