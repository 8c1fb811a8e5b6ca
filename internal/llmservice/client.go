package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
)

// NewModel creates the language model selected by cfg. When cfg.Serialize is set the model is
// wrapped so that only one inference runs at a time.
func NewModel(cfg *config.LLMConfig) (llms.Model, error) {
	log.Debug().Interface("llmConfig", map[string]string{
		"provider": cfg.Provider,
		"base_url": cfg.BaseURL,
		"model":    cfg.Model,
	}).Msg("Creating language model")

	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "openai":
		model, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	case "ollama":
		model, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unknown inference provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s model: %w", cfg.Provider, err)
	}

	if cfg.Serialize {
		return NewSerializedModel(model), nil
	}
	return model, nil
}

// SerializedModel guards a model whose runtime cannot run concurrent inference
type SerializedModel struct {
	mu    sync.Mutex
	model llms.Model
}

func NewSerializedModel(model llms.Model) *SerializedModel {
	return &SerializedModel{model: model}
}

func (s *SerializedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.GenerateContent(ctx, messages, options...)
}

func (s *SerializedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

// call llm
func GenerateContent(ctx context.Context, model llms.Model, messages []llms.MessageContent, options ...llms.CallOption) (string, error) {
	start := time.Now()
	res, err := model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return "", err
	}
	if res == nil || len(res.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	log.Debug().Dur("took", time.Since(start)).Str("stop_reason", res.Choices[0].StopReason).Msg("Generated content")
	return res.Choices[0].Content, nil
}
