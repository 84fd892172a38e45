package service

import (
	"fmt"
	"strings"

	"github.com/lumistudy/tutorai/internal/domain"
)

// tokenCharRatio is the character-per-token estimate used for budgeting.
// Exact tokenization is provider-specific; a conservative estimate keeps
// composed prompts safely inside the model window.
const tokenCharRatio = 4

// maxHistoryTurns bounds how much replayed conversation enters the prompt.
const maxHistoryTurns = 8

// ComposerConfig controls prompt budgeting.
type ComposerConfig struct {
	// Budget is the token budget for context chunks, excluding the question
	// and template scaffolding.
	Budget int
}

// DefaultComposerConfig returns the default composer configuration.
func DefaultComposerConfig() ComposerConfig {
	return ComposerConfig{Budget: 1600}
}

// PromptComposer assembles a generation prompt from ranked retrieval
// results, a question, and conversation history.
type PromptComposer struct {
	cfg ComposerConfig
}

func NewPromptComposer(cfg ComposerConfig) *PromptComposer {
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultComposerConfig().Budget
	}
	return &PromptComposer{cfg: cfg}
}

// EstimateTokens returns the token estimate for a piece of text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + tokenCharRatio - 1) / tokenCharRatio
}

// Compose selects a prefix of the ranked results that fits the budget and
// renders the prompt. Chunks are taken whole: the first chunk that would
// overflow the budget ends the selection, even if a later, smaller chunk
// would still fit. A question with no usable context gets the general
// template and HasContext false.
func (c *PromptComposer) Compose(question string, results []domain.RetrievalResult, history []domain.Turn) *domain.PromptContext {
	accepted := make([]domain.RetrievalResult, 0, len(results))
	remaining := c.cfg.Budget
	for _, result := range results {
		cost := EstimateTokens(result.Chunk.Text)
		if cost > remaining {
			break
		}
		accepted = append(accepted, result)
		remaining -= cost
	}

	pc := &domain.PromptContext{
		Question:   question,
		Accepted:   accepted,
		History:    history,
		HasContext: len(accepted) > 0,
	}

	if pc.HasContext {
		pc.Prompt = renderGroundedPrompt(pc)
	} else {
		pc.Prompt = renderGeneralPrompt(pc)
	}

	return pc
}

func renderGroundedPrompt(pc *domain.PromptContext) string {
	var b strings.Builder

	b.WriteString("You are a patient tutor helping a student with their course material.\n")
	b.WriteString("Answer the question using the course material below. If the material does not cover the question, say so and answer from general knowledge.\n")
	b.WriteString("End your answer with a line starting with \"References:\" listing the titles of the materials you actually used, or omit the line if you used none.\n\n")

	b.WriteString("Course material:\n")
	for i, result := range pc.Accepted {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, result.Chunk.SourceTitle, result.Chunk.Text)
	}

	writeHistory(&b, pc.History)

	fmt.Fprintf(&b, "Question: %s\n", pc.Question)

	return b.String()
}

func renderGeneralPrompt(pc *domain.PromptContext) string {
	var b strings.Builder

	b.WriteString("You are a patient tutor helping a student.\n")
	b.WriteString("No course material is available for this question, so answer from general knowledge. Be clear that the answer is not grounded in the student's course material.\n\n")

	writeHistory(&b, pc.History)

	fmt.Fprintf(&b, "Question: %s\n", pc.Question)

	return b.String()
}

func writeHistory(b *strings.Builder, history []domain.Turn) {
	if len(history) == 0 {
		return
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	b.WriteString("Conversation so far:\n")
	for _, turn := range history {
		fmt.Fprintf(b, "%s: %s\n", turn.Role, turn.Text)
	}
	b.WriteString("\n")
}
