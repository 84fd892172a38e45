package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/lumistudy/tutorai/internal/domain"
)

const (
	// MaxRetries is the maximum number of embedding attempts per question log
	MaxRetries = 3
	// batchSize is the number of pending logs claimed per poll
	batchSize = 100
)

// QuestionLogRepository defines the interface for question log backfill persistence
type QuestionLogRepository interface {
	// GetPendingEmbeddings returns question logs without an embedding
	GetPendingEmbeddings(ctx context.Context, maxRetries, limit int) ([]*domain.QuestionLog, error)

	// SetEmbedding stores the computed embedding for a question log
	SetEmbedding(ctx context.Context, id string, embedding []float32) error

	// IncrementRetries increments the retry count for a question log
	IncrementRetries(ctx context.Context, id string) error
}

// EmbeddingService defines the interface for generating embeddings
type EmbeddingService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// QuestionEmbeddingWorker backfills embeddings for logged questions so the
// analytics table can be clustered and searched by topic.
type QuestionEmbeddingWorker struct {
	repo    QuestionLogRepository
	service EmbeddingService
}

// NewQuestionEmbeddingWorker creates a new QuestionEmbeddingWorker instance
func NewQuestionEmbeddingWorker(repo QuestionLogRepository, service EmbeddingService) *QuestionEmbeddingWorker {
	return &QuestionEmbeddingWorker{
		repo:    repo,
		service: service,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *QuestionEmbeddingWorker) ProcessJobs(ctx context.Context) error {
	logs, err := w.repo.GetPendingEmbeddings(ctx, MaxRetries, batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending question logs: %w", err)
	}

	if len(logs) == 0 {
		return nil
	}

	log.Printf("Backfilling embeddings for %d question logs", len(logs))

	for _, entry := range logs {
		if err := w.processLog(ctx, entry); err != nil {
			log.Printf("Error backfilling question log %s: %v", entry.ID, err)
		}
	}

	return nil
}

func (w *QuestionEmbeddingWorker) processLog(ctx context.Context, entry *domain.QuestionLog) error {
	embedding, err := w.service.GenerateEmbedding(ctx, entry.Question)
	if err != nil {
		return w.handleFailure(ctx, entry, err)
	}

	if err := w.repo.SetEmbedding(ctx, entry.ID, embedding); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	return nil
}

// handleFailure bumps the retry count; GetPendingEmbeddings stops returning
// the log once it reaches MaxRetries.
func (w *QuestionEmbeddingWorker) handleFailure(ctx context.Context, entry *domain.QuestionLog, jobErr error) error {
	log.Printf("Question log %s embedding failed: %v", entry.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, entry.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if entry.Retries+1 >= MaxRetries {
		log.Printf("Question log %s exceeded max retries (%d), giving up", entry.ID, MaxRetries)
	}

	return nil
}
