package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceFromChunk(t *testing.T) {
	t.Run("collapses whitespace into snippet", func(t *testing.T) {
		src := SourceFromChunk(Chunk{
			Text:           "Photosynthesis converts\n\tlight  energy\ninto chemical energy.",
			SourceTitle:    "Biology: Unit 3",
			SourceCategory: "lesson",
		})

		assert.Equal(t, "Biology: Unit 3", src.Title)
		assert.Equal(t, "lesson", src.Category)
		assert.Equal(t, "Photosynthesis converts light energy into chemical energy.", src.Snippet)
	})

	t.Run("truncates long snippets with ellipsis", func(t *testing.T) {
		src := SourceFromChunk(Chunk{Text: strings.Repeat("word ", 100)})

		assert.Len(t, src.Snippet, sourceSnippetMaxChars)
		assert.True(t, strings.HasSuffix(src.Snippet, "..."))
	})

	t.Run("empty text yields empty snippet", func(t *testing.T) {
		assert.Equal(t, "", SourceFromChunk(Chunk{}).Snippet)
	})
}

func TestPromptContext_Sources(t *testing.T) {
	pc := &PromptContext{
		Accepted: []RetrievalResult{
			{Chunk: Chunk{SourceTitle: "Chapter 1", Text: "a", SourceCategory: "chapter"}, Similarity: 0.9},
			{Chunk: Chunk{SourceTitle: "Lesson 2", Text: "b", SourceCategory: "lesson"}, Similarity: 0.8},
		},
	}

	sources := pc.Sources()
	assert.Len(t, sources, 2)
	assert.Equal(t, "Chapter 1", sources[0].Title)
	assert.Equal(t, "Lesson 2", sources[1].Title)
}

func TestStreamEvent_Types(t *testing.T) {
	assert.Equal(t, EventTypeMetadata, MetadataEvent{}.EventType())
	assert.Equal(t, EventTypeContent, ContentEvent{}.EventType())
	assert.Equal(t, EventTypeDone, DoneEvent{}.EventType())
	assert.Equal(t, EventTypeError, ErrorEvent{}.EventType())
}
