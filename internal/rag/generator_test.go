package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"document-qa/internal/apperrors"
	"document-qa/internal/models"
)

func TestGenerateWithoutContextsSkipsModel(t *testing.T) {
	m := &mockModel{}
	g := NewGenerator(m, GeneratorOptions{})

	answer, err := g.Generate(context.Background(), "What is ATP?", nil)
	require.NoError(t, err)
	assert.Equal(t, models.RefusalSentinel, answer)
	m.AssertNotCalled(t, "GenerateContent", mock.Anything, mock.Anything)
}

func TestGeneratePostProcessing(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "The mitochondria produces ATP.", "The mitochondria produces ATP."},
		{"think block and label", "<think>\nthe user wants ATP\n</think>Answer: The mitochondria produces ATP.", "The mitochondria produces ATP."},
		{"last answer label wins", "Answer: draft\nAnswer: Ribosomes synthesize proteins.", "Ribosomes synthesize proteins."},
		{"leaked role and stop token", "Assistant: Paris is the capital of France.<|im_end|>", "Paris is the capital of France."},
		{"placeholder", "NO_ANSWER", models.RefusalSentinel},
		{"sentinel with chatter", "Sorry. " + models.RefusalSentinel, models.RefusalSentinel},
		{"publisher metadata", "Copyright 2021 Packt Publishing Ltd.", models.RefusalSentinel},
		{"denylist is case insensitive", "see the second EDITION of the manual", models.RefusalSentinel},
		{"too short", "Yes.", models.RefusalSentinel},
		{"only labels", "Answer: Note:", models.RefusalSentinel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockModel{}
			m.On("GenerateContent", mock.Anything, mock.Anything).Return(reply(tt.raw), nil)
			g := NewGenerator(m, GeneratorOptions{MaxTokens: 64, StopWords: []string{"<|im_end|>"}})

			answer, err := g.Generate(context.Background(), "question", []string{"some passage text"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, answer)
			m.AssertNumberOfCalls(t, "GenerateContent", 1)
		})
	}
}

func TestGeneratePromptCarriesContextsAndSentinel(t *testing.T) {
	m := &mockModel{}
	m.On("GenerateContent", mock.Anything, mock.MatchedBy(func(msgs []llms.MessageContent) bool {
		if len(msgs) != 2 || msgs[0].Role != schema.ChatMessageTypeSystem || msgs[1].Role != schema.ChatMessageTypeHuman {
			return false
		}
		system := msgs[0].Parts[0].(llms.TextContent).Text
		human := msgs[1].Parts[0].(llms.TextContent).Text
		return strings.Contains(system, models.RefusalSentinel) &&
			strings.Contains(human, "first passage\n\nsecond passage") &&
			strings.HasSuffix(human, "Question:\nWhat is ATP?")
	})).Return(reply("ATP stores chemical energy."), nil)

	g := NewGenerator(m, GeneratorOptions{})
	answer, err := g.Generate(context.Background(), "What is ATP?", []string{"first passage", "second passage"})
	require.NoError(t, err)
	assert.Equal(t, "ATP stores chemical energy.", answer)
	m.AssertExpectations(t)
}

func TestGenerateModelFailure(t *testing.T) {
	m := &mockModel{}
	m.On("GenerateContent", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := NewGenerator(m, GeneratorOptions{}).Generate(context.Background(), "q", []string{"passage"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}

func TestRejectAnswer(t *testing.T) {
	assert.Empty(t, RejectAnswer("Mitochondria produce ATP."))
	assert.Equal(t, "too short", RejectAnswer(""))
	assert.Equal(t, "metadata", RejectAnswer("All rights reserved by the author."))
	assert.Equal(t, "refusal", RejectAnswer(models.RefusalSentinel))
}
