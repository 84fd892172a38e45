package domain

import "strings"

const sourceSnippetMaxChars = 220

// Chunk is a bounded span of indexed course material together with its
// embedding and source metadata. Chunks are created at ingestion time and are
// read-only from this service's point of view.
type Chunk struct {
	ID               string
	Text             string
	Embedding        []float32
	SourceDocumentID string
	SourceTitle      string
	SourceCategory   string
	Offset           int
	CourseID         int64
}

// RetrievalResult pairs a chunk with its similarity to a query embedding.
// Results are ephemeral and live only for the duration of one request.
type RetrievalResult struct {
	Chunk      Chunk
	Similarity float64
}

// Source is the client-facing view of a chunk's provenance.
type Source struct {
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Category string `json:"category"`
}

// SourceFromChunk builds the client-facing source entry for a chunk,
// collapsing whitespace and truncating the snippet.
func SourceFromChunk(c Chunk) Source {
	return Source{
		Title:    c.SourceTitle,
		Snippet:  makeSnippet(c.Text),
		Category: c.SourceCategory,
	}
}

func makeSnippet(content string) string {
	if content == "" {
		return ""
	}
	clean := strings.Join(strings.Fields(content), " ")
	if len(clean) <= sourceSnippetMaxChars {
		return clean
	}
	return clean[:sourceSnippetMaxChars-3] + "..."
}
