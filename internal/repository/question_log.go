package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lumistudy/tutorai/internal/domain"
)

var ErrQuestionLogNotFound = errors.New("question log not found")

// QuestionLogRepository stores answered questions for analytics and the
// embedding backfill worker.
type QuestionLogRepository struct {
	db dbtx
}

func NewQuestionLogRepository(pool *pgxpool.Pool) *QuestionLogRepository {
	return &QuestionLogRepository{db: pool}
}

func NewQuestionLogRepositoryWithTx(tx pgx.Tx) *QuestionLogRepository {
	return &QuestionLogRepository{db: tx}
}

func (r *QuestionLogRepository) Create(ctx context.Context, log *domain.QuestionLog) error {
	createdAt := log.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	sourcesJSON, err := json.Marshal(log.Sources)
	if err != nil {
		return err
	}

	var embedding *pgvector.Vector
	if len(log.Embedding) > 0 {
		vec := pgvector.NewVector(log.Embedding)
		embedding = &vec
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO question_logs
			(id, course_id, question, answer_chars, has_context, sources, duration_ms, embedding, retries, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		log.ID,
		log.CourseID,
		log.Question,
		log.AnswerChars,
		log.HasContext,
		sourcesJSON,
		log.DurationMs,
		embedding,
		log.Retries,
		createdAt,
	)
	return err
}

// GetPendingEmbeddings returns question logs that still need an embedding,
// oldest first, skipping logs that exhausted their retries.
func (r *QuestionLogRepository) GetPendingEmbeddings(ctx context.Context, maxRetries, limit int) ([]*domain.QuestionLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, course_id, question, answer_chars, has_context, sources, duration_ms, retries, created_at
		 FROM question_logs
		 WHERE embedding IS NULL AND retries < $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		maxRetries, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.QuestionLog
	for rows.Next() {
		var log domain.QuestionLog
		var sourcesJSON []byte
		if err := rows.Scan(
			&log.ID,
			&log.CourseID,
			&log.Question,
			&log.AnswerChars,
			&log.HasContext,
			&sourcesJSON,
			&log.DurationMs,
			&log.Retries,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(sourcesJSON) > 0 {
			if err := json.Unmarshal(sourcesJSON, &log.Sources); err != nil {
				return nil, err
			}
		}
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

func (r *QuestionLogRepository) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE question_logs SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrQuestionLogNotFound
	}
	return nil
}

func (r *QuestionLogRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE question_logs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrQuestionLogNotFound
	}
	return nil
}
