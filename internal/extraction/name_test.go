package extraction_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harborview/voicebook/internal/extraction"
)

func TestExtractName(t *testing.T) {
	ctx := context.Background()

	t.Run("matches an introduction phrase", func(t *testing.T) {
		// Arrange
		e := extraction.New(testConversationConfig())

		// Act
		result := e.ExtractName(ctx, "It's Johnny Smith")

		// Assert
		assert.True(t, result.OK())
		assert.Equal(t, "Johnny Smith", result.Value)
		assert.Equal(t, extraction.StrategyPatternMatch, result.Strategy)
	})

	t.Run("normalizes casing from my name is", func(t *testing.T) {
		// Arrange
		e := extraction.New(testConversationConfig())

		// Act
		result := e.ExtractName(ctx, "um, my name is sarah williams")

		// Assert
		assert.Equal(t, "Sarah Williams", result.Value)
	})

	t.Run("collapses a multi part name to first and last", func(t *testing.T) {
		// Arrange
		e := extraction.New(testConversationConfig())

		// Act
		result := e.ExtractName(ctx, "Hi, this is Mary Anne Louise Parker")

		// Assert
		assert.Equal(t, "Mary Parker", result.Value)
	})

	t.Run("accepts a bare name behind a greeting", func(t *testing.T) {
		// Arrange
		e := extraction.New(testConversationConfig())

		// Act
		result := e.ExtractName(ctx, "uh, John Smith")

		// Assert
		assert.Equal(t, "John Smith", result.Value)
		assert.Equal(t, extraction.StrategyPrefixStrip, result.Strategy)
	})

	t.Run("rejects conversational noise", func(t *testing.T) {
		// Arrange
		e := extraction.New(testConversationConfig())
		inputs := []string{
			"can you help me book an appointment",
			"yes that's right",
			"I'd like to book something for next week please",
			"when are you open",
		}

		// Act / Assert
		for _, input := range inputs {
			result := e.ExtractName(ctx, input)
			assert.False(t, result.OK(), "input: %q", input)
		}
	})

	t.Run("rejects candidates containing digits", func(t *testing.T) {
		// Arrange
		e := extraction.New(testConversationConfig())

		// Act
		result := e.ExtractName(ctx, "this is agent 47 smith")

		// Assert
		assert.False(t, result.OK())
	})

	t.Run("rejects a single token", func(t *testing.T) {
		// Arrange
		e := extraction.New(testConversationConfig())

		// Act
		result := e.ExtractName(ctx, "Madonna")

		// Assert
		assert.False(t, result.OK())
	})

	t.Run("prefers the person tagger when available", func(t *testing.T) {
		// Arrange
		tagger := &stubTagger{names: []string{"Johnny Smith"}}
		e := extraction.New(testConversationConfig(), extraction.WithPersonTagger(tagger))

		// Act
		result := e.ExtractName(ctx, "hello there, Johnny Smith calling about tomorrow")

		// Assert
		assert.Equal(t, "Johnny Smith", result.Value)
		assert.Equal(t, extraction.StrategyNER, result.Strategy)
	})

	t.Run("a failing tagger degrades to the pattern layer", func(t *testing.T) {
		// Arrange
		tagger := &stubTagger{err: errors.New("model not loaded")}
		e := extraction.New(testConversationConfig(), extraction.WithPersonTagger(tagger))

		// Act
		result := e.ExtractName(ctx, "my name is John Smith")

		// Assert
		assert.Equal(t, "John Smith", result.Value)
		assert.Equal(t, extraction.StrategyPatternMatch, result.Strategy)
	})

	t.Run("accepts a bare name from the fallback transform", func(t *testing.T) {
		// Arrange
		e := extraction.New(testConversationConfig(),
			extraction.WithLLMFallback(&stubTransform{out: "Jane Doe"}))

		// Act
		result := e.ExtractName(ctx, "yeah so like I said before when we spoke it is the same as last time, Doe")

		// Assert
		assert.Equal(t, "Jane Doe", result.Value)
		assert.Equal(t, extraction.StrategyLLMFallback, result.Strategy)
	})

	t.Run("noise from the fallback is still rejected", func(t *testing.T) {
		// Arrange
		e := extraction.New(testConversationConfig(),
			extraction.WithLLMFallback(&stubTransform{out: "I could not find a name"}))

		// Act
		result := e.ExtractName(ctx, "mumbling about the weather for a while")

		// Assert
		assert.False(t, result.OK())
	})
}
