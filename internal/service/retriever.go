package service

import (
	"context"
	"strings"
	"time"

	"github.com/lumistudy/tutorai/internal/domain"
	"github.com/lumistudy/tutorai/internal/telemetry"
)

// ChunkFilter narrows vector search to a course. Zero CourseID searches all
// courses.
type ChunkFilter struct {
	CourseID int64
}

// ChunkSearchRepositoryInterface defines the repository interface for vector search
type ChunkSearchRepositoryInterface interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, filter ChunkFilter, limit int) ([]domain.RetrievalResult, error)
}

// EmbeddingServiceInterface defines the interface for embedding generation
type EmbeddingServiceInterface interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// RetrieverConfig controls ranking behavior.
type RetrieverConfig struct {
	TopK          int
	MinSimilarity float64
	Timeout       time.Duration
}

// DefaultRetrieverConfig returns the default retriever configuration.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		TopK:          5,
		MinSimilarity: 0.35,
		Timeout:       5 * time.Second,
	}
}

// Retriever turns a question into a ranked, deduplicated set of course
// material chunks.
type Retriever struct {
	repo      ChunkSearchRepositoryInterface
	embedding EmbeddingServiceInterface
	cfg       RetrieverConfig
}

func NewRetriever(repo ChunkSearchRepositoryInterface, embedding EmbeddingServiceInterface, cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultRetrieverConfig().TopK
	}
	return &Retriever{repo: repo, embedding: embedding, cfg: cfg}
}

// Retrieve embeds the question and returns at most TopK results above the
// similarity cutoff, best first, with at most one chunk per source document.
// Any index or embedding failure is reported as ErrRetrievalUnavailable so
// callers can degrade to answering without context.
func (r *Retriever) Retrieve(ctx context.Context, question string, courseID int64) ([]domain.RetrievalResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrQuestionRequired
	}

	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		CourseID:  courseID,
		Operation: "retrieve",
	})
	defer span.End()

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	embedding, err := r.embedding.GenerateEmbedding(ctx, question)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalUnavailable, "failed to embed question", err)
	}

	// Overfetch so the per-document dedup below still has TopK distinct
	// documents to choose from.
	limit := r.cfg.TopK * 4
	results, err := r.repo.SearchByEmbedding(ctx, embedding, ChunkFilter{CourseID: courseID}, limit)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalUnavailable, "knowledge index unavailable", err)
	}

	return r.rank(results), nil
}

// rank applies the similarity cutoff, keeps the best chunk per source
// document, and truncates to TopK. Input is assumed sorted best first, so the
// first chunk seen for a document is its best one.
func (r *Retriever) rank(results []domain.RetrievalResult) []domain.RetrievalResult {
	seen := make(map[string]bool, len(results))
	ranked := make([]domain.RetrievalResult, 0, r.cfg.TopK)

	for _, result := range results {
		if result.Similarity < r.cfg.MinSimilarity {
			continue
		}
		if seen[result.Chunk.SourceDocumentID] {
			continue
		}
		seen[result.Chunk.SourceDocumentID] = true

		ranked = append(ranked, result)
		if len(ranked) == r.cfg.TopK {
			break
		}
	}

	return ranked
}
