package domain

// Turn is one prior exchange in the conversation, replayed into the prompt so
// follow-up questions keep their context.
type Turn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// PromptContext is the composed model input for one question. Accepted holds
// the retrieval results that fit the token budget, in rank order; Prompt is
// the rendered model input built from them.
//
// Invariant: the serialized context blocks of Accepted never exceed the budget
// the composer was given, and Accepted is always a prefix of the rank-ordered
// candidate list.
type PromptContext struct {
	Question   string
	Accepted   []RetrievalResult
	History    []Turn
	HasContext bool
	Prompt     string
}

// Sources returns the client-facing source entries for the accepted chunks,
// in rank order.
func (pc *PromptContext) Sources() []Source {
	sources := make([]Source, 0, len(pc.Accepted))
	for _, r := range pc.Accepted {
		sources = append(sources, SourceFromChunk(r.Chunk))
	}
	return sources
}
