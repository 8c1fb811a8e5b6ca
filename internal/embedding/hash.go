package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"document-qa/internal/models"
)

const (
	defaultHashDimension = 384

	// words are hashed as character trigrams so that inflections share most buckets
	ngramSize = 3
)

var hashTokenRe = regexp.MustCompile(models.WordPattern)

var hashStopWords = stopWordSet(models.DefaultStopWords)

func stopWordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// HashEmbedder is an offline embedder that hashes the character trigrams of every word into a
// fixed number of buckets and L2-normalizes the counts. "produce" and "produces" share six of
// their trigrams, so word variants stay close. It needs no model server and is deterministic;
// its notion of similarity is purely lexical.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = defaultHashDimension
	}
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) Dimension() int { return h.dim }

func (h *HashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *HashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.embed(text), nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	vec := make([]float32, h.dim)
	for _, tok := range hashTokenRe.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(tok) < models.MinTokenChars {
			continue
		}
		if _, stop := hashStopWords[tok]; stop {
			continue
		}
		for _, gram := range ngrams(tok, ngramSize) {
			f := fnv.New32a()
			_, _ = f.Write([]byte(gram))
			vec[f.Sum32()%uint32(h.dim)]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// ngrams returns the n-rune windows of word padded with '#' on both ends
func ngrams(word string, n int) []string {
	runes := []rune("#" + word + "#")
	if len(runes) <= n {
		return []string{string(runes)}
	}
	out := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		out = append(out, string(runes[i:i+n]))
	}
	return out
}
