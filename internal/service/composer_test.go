package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumistudy/tutorai/internal/domain"
)

func resultWithText(docID, title, text string) domain.RetrievalResult {
	return domain.RetrievalResult{
		Chunk: domain.Chunk{
			SourceDocumentID: docID,
			SourceTitle:      title,
			Text:             text,
		},
		Similarity: 0.8,
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}

func TestPromptComposer_Compose(t *testing.T) {
	t.Run("accepts a prefix of the ranking within budget", func(t *testing.T) {
		// 100 chars = 25 tokens each, budget 60: the first two fit, the
		// third ends the selection.
		text := strings.Repeat("x", 100)
		results := []domain.RetrievalResult{
			resultWithText("a", "A", text),
			resultWithText("b", "B", text),
			resultWithText("c", "C", text),
		}
		composer := NewPromptComposer(ComposerConfig{Budget: 60})

		pc := composer.Compose("question", results, nil)
		require.Len(t, pc.Accepted, 2)
		assert.Equal(t, "A", pc.Accepted[0].Chunk.SourceTitle)
		assert.Equal(t, "B", pc.Accepted[1].Chunk.SourceTitle)
		assert.True(t, pc.HasContext)
	})

	t.Run("stops at the first oversized chunk even if later ones fit", func(t *testing.T) {
		results := []domain.RetrievalResult{
			resultWithText("a", "A", strings.Repeat("x", 100)), // 25 tokens
			resultWithText("b", "B", strings.Repeat("x", 400)), // 100 tokens, overflows
			resultWithText("c", "C", strings.Repeat("x", 40)),  // would fit, but must not be taken
		}
		composer := NewPromptComposer(ComposerConfig{Budget: 60})

		pc := composer.Compose("question", results, nil)
		require.Len(t, pc.Accepted, 1)
		assert.Equal(t, "A", pc.Accepted[0].Chunk.SourceTitle)
	})

	t.Run("chunks are never truncated", func(t *testing.T) {
		text := strings.Repeat("x", 100)
		composer := NewPromptComposer(ComposerConfig{Budget: 60})

		pc := composer.Compose("question", []domain.RetrievalResult{resultWithText("a", "A", text)}, nil)
		assert.Contains(t, pc.Prompt, text)
	})

	t.Run("no accepted chunks means the general template", func(t *testing.T) {
		composer := NewPromptComposer(ComposerConfig{Budget: 10})

		pc := composer.Compose("question", []domain.RetrievalResult{
			resultWithText("a", "A", strings.Repeat("x", 100)),
		}, nil)

		assert.False(t, pc.HasContext)
		assert.Empty(t, pc.Accepted)
		assert.NotContains(t, pc.Prompt, "Course material:")
		assert.Contains(t, pc.Prompt, "general knowledge")
		assert.Contains(t, pc.Prompt, "Question: question")
	})

	t.Run("grounded prompt lists source titles and asks for references", func(t *testing.T) {
		composer := NewPromptComposer(DefaultComposerConfig())

		pc := composer.Compose("what is photosynthesis", []domain.RetrievalResult{
			resultWithText("a", "Biology: Unit 3", "Photosynthesis converts light energy."),
		}, nil)

		assert.True(t, pc.HasContext)
		assert.Contains(t, pc.Prompt, "[1] Biology: Unit 3")
		assert.Contains(t, pc.Prompt, "Photosynthesis converts light energy.")
		assert.Contains(t, pc.Prompt, "References:")
	})

	t.Run("folds history into the prompt", func(t *testing.T) {
		composer := NewPromptComposer(DefaultComposerConfig())

		pc := composer.Compose("and in plants?", nil, []domain.Turn{
			{Role: "user", Text: "What is respiration?"},
			{Role: "assistant", Text: "Respiration releases energy from glucose."},
		})

		assert.Contains(t, pc.Prompt, "Conversation so far:")
		assert.Contains(t, pc.Prompt, "user: What is respiration?")
		assert.Contains(t, pc.Prompt, "assistant: Respiration releases energy from glucose.")
	})

	t.Run("keeps only the most recent history turns", func(t *testing.T) {
		composer := NewPromptComposer(DefaultComposerConfig())

		history := make([]domain.Turn, 0, maxHistoryTurns+2)
		for i := 0; i < maxHistoryTurns+2; i++ {
			history = append(history, domain.Turn{Role: "user", Text: fmt.Sprintf("turn %d", i)})
		}

		pc := composer.Compose("q", nil, history)

		assert.NotContains(t, pc.Prompt, "turn 0")
		assert.NotContains(t, pc.Prompt, "turn 1")
		assert.Contains(t, pc.Prompt, "turn 2")
		assert.Contains(t, pc.Prompt, fmt.Sprintf("turn %d", maxHistoryTurns+1))
	})
}
