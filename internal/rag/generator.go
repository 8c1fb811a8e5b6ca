package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"document-qa/internal/apperrors"
	"document-qa/internal/config"
	"document-qa/internal/llmservice"
	"document-qa/internal/models"
)

// answers shorter than this are treated as noise
const minAnswerChars = 10

var thinkRe = regexp.MustCompile(models.ThinkTag)

// GeneratorOptions bound a single generation call
type GeneratorOptions struct {
	MaxTokens int
	StopWords []string
}

func GeneratorOptionsFromConfig(cfg *config.LLMConfig) GeneratorOptions {
	return GeneratorOptions{MaxTokens: cfg.MaxTokens, StopWords: cfg.StopWords}
}

// Generator asks the inference model for a short answer grounded in the retrieved passages
// and refuses whenever the output cannot be trusted
type Generator struct {
	model llms.Model
	opts  GeneratorOptions
}

func NewGenerator(model llms.Model, opts GeneratorOptions) *Generator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	return &Generator{model: model, opts: opts}
}

// BuildMessages renders the system instructions and the question over the joined contexts
func BuildMessages(question string, contexts []string) []llms.MessageContent {
	return []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, fmt.Sprintf(models.SystemPromptTemplate, models.RefusalSentinel)),
		llms.TextParts(schema.ChatMessageTypeHuman,
			fmt.Sprintf(models.QuestionPromptTemplate, strings.Join(contexts, models.ContextSeparator), question)),
	}
}

// Generate returns the answer, or the refusal sentinel. The model is not called without contexts.
func (g *Generator) Generate(ctx context.Context, question string, contexts []string) (string, error) {
	if len(contexts) == 0 {
		return models.RefusalSentinel, nil
	}

	opts := []llms.CallOption{
		llms.WithTemperature(0),
		llms.WithMaxTokens(g.opts.MaxTokens),
	}
	if len(g.opts.StopWords) > 0 {
		opts = append(opts, llms.WithStopWords(g.opts.StopWords))
	}

	raw, err := llmservice.GenerateContent(ctx, g.model, BuildMessages(question, contexts), opts...)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindInternal, "failed to generate answer", err)
	}

	answer := CleanAnswer(raw, g.opts.StopWords)
	if reason := RejectAnswer(answer); reason != "" {
		log.Info().Str("reason", reason).Str("raw", raw).Msg("Refusing generated answer")
		return models.RefusalSentinel, nil
	}
	return answer, nil
}

// CleanAnswer removes reasoning blocks, stop tokens and scaffolding labels from raw model output
func CleanAnswer(raw string, stopWords []string) string {
	out := thinkRe.ReplaceAllString(raw, "")
	if i := strings.LastIndex(out, "Answer:"); i >= 0 {
		out = out[i+len("Answer:"):]
	}
	for _, stop := range stopWords {
		if stop != "" {
			out = strings.ReplaceAll(out, stop, "")
		}
	}
	for _, label := range models.LeakedLabels {
		out = strings.ReplaceAll(out, label, "")
	}
	return strings.TrimSpace(out)
}

// RejectAnswer returns why a cleaned answer must be replaced by the refusal, or "" to keep it
func RejectAnswer(answer string) string {
	if strings.Contains(answer, models.RefusalPlaceholder) || strings.Contains(answer, models.RefusalSentinel) {
		return "refusal"
	}
	lower := strings.ToLower(answer)
	for _, term := range models.MetadataDenylist {
		if strings.Contains(lower, strings.ToLower(term)) {
			return "metadata"
		}
	}
	if utf8.RuneCountInString(answer) < minAnswerChars {
		return "too short"
	}
	return ""
}
