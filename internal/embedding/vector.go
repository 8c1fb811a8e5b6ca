package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/tmc/langchaingo/embeddings"

	"document-qa/internal/apperrors"
)

// Vector is one embedding. All vectors produced for an index share the same dimension.
type Vector []float32

func (v Vector) Dim() int { return len(v) }

// Norm is the euclidean length of v
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b, 0 when either is the zero vector.
// Vectors of different dimension are an embedding error.
func Cosine(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, apperrors.Wrap(apperrors.KindEmbedding,
			fmt.Sprintf("dimension mismatch: %d != %d", len(a), len(b)), nil)
	}
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0, nil
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb), nil
}

// ValidateVectors checks that there is exactly one non-empty vector per input text and that all
// of them share one dimension, which is returned.
func ValidateVectors(vectors [][]float32, n int) (int, error) {
	if len(vectors) == 0 {
		return 0, apperrors.Wrap(apperrors.KindEmbedding, "embedding produced no vectors", nil)
	}
	if len(vectors) != n {
		return 0, apperrors.Wrap(apperrors.KindEmbedding,
			fmt.Sprintf("embedding produced %d vectors for %d texts", len(vectors), n), nil)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, apperrors.Wrap(apperrors.KindEmbedding, "embedding produced an empty vector", nil)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, apperrors.Wrap(apperrors.KindEmbedding,
				fmt.Sprintf("vector %d has dimension %d, expected %d", i, len(v), dim), nil)
		}
	}
	return dim, nil
}

// EmbedTexts embeds texts and validates the shape of the result
func EmbedTexts(ctx context.Context, embedder embeddings.Embedder, texts []string) ([]Vector, int, error) {
	raw, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.KindEmbedding, "failed to embed texts", err)
	}
	dim, err := ValidateVectors(raw, len(texts))
	if err != nil {
		return nil, 0, err
	}
	out := make([]Vector, len(raw))
	for i, v := range raw {
		out[i] = Vector(v)
	}
	return out, dim, nil
}

// EmbedQuery embeds a single query and asserts it has the expected dimension
func EmbedQuery(ctx context.Context, embedder embeddings.Embedder, text string, dim int) (Vector, error) {
	v, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEmbedding, "failed to embed query", err)
	}
	if len(v) == 0 || (dim > 0 && len(v) != dim) {
		return nil, apperrors.Wrap(apperrors.KindEmbedding,
			fmt.Sprintf("query vector has dimension %d, expected %d", len(v), dim), nil)
	}
	return Vector(v), nil
}
