package rag

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"document-qa/internal/models"
)

const (
	entityWeight = 3.0
	longWeight   = 1.5
	plainWeight  = 1.0

	longTokenChars = 6

	// score used when a question has no meaningful tokens
	neutralKeywordScore = 0.5
)

var wordRe = regexp.MustCompile(models.WordPattern)

type keywordToken struct {
	text   string
	weight float64
}

// KeywordScorer scores passages by the weighted share of question tokens they contain.
// Capitalized tokens are treated as named entities: they weigh more and their absence is penalized.
type KeywordScorer struct {
	tokens []keywordToken
	total  float64
}

// StopWordSet builds a lookup set from a list of stop words
func StopWordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

var defaultStopWords = StopWordSet(models.DefaultStopWords)

// NewKeywordScorer extracts the weighted tokens of question. A nil stopWords uses the defaults.
func NewKeywordScorer(question string, stopWords map[string]struct{}) *KeywordScorer {
	if stopWords == nil {
		stopWords = defaultStopWords
	}

	k := &KeywordScorer{}
	seen := make(map[string]int)
	for _, word := range wordRe.FindAllString(question, -1) {
		lower := strings.ToLower(word)
		n := utf8.RuneCountInString(lower)
		if n < models.MinTokenChars {
			continue
		}
		if _, stop := stopWords[lower]; stop {
			continue
		}

		weight := plainWeight
		first, _ := utf8.DecodeRuneInString(word)
		switch {
		case unicode.IsUpper(first):
			weight = entityWeight
		case n > longTokenChars:
			weight = longWeight
		}

		if i, ok := seen[lower]; ok {
			if weight > k.tokens[i].weight {
				k.total += weight - k.tokens[i].weight
				k.tokens[i].weight = weight
			}
			continue
		}
		seen[lower] = len(k.tokens)
		k.tokens = append(k.tokens, keywordToken{text: lower, weight: weight})
		k.total += weight
	}
	return k
}

// Tokens returns the lowercase question tokens in order of appearance
func (k *KeywordScorer) Tokens() []string {
	out := make([]string, len(k.tokens))
	for i, t := range k.tokens {
		out[i] = t.text
	}
	return out
}

// Score returns a value in [0, 1]; whole-word, case-insensitive matching
func (k *KeywordScorer) Score(text string) float64 {
	if len(k.tokens) == 0 || k.total == 0 {
		return neutralKeywordScore
	}

	words := wordSet(text)
	var matched, penalty float64
	for _, t := range k.tokens {
		if _, ok := words[t.text]; ok {
			matched += t.weight
			continue
		}
		if t.weight == entityWeight {
			penalty += 1
		}
	}

	score := (matched - penalty) / k.total
	return clamp01(score)
}

func wordSet(text string) map[string]struct{} {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
