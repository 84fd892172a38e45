package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/lumistudy/tutorai/internal/domain"
	"github.com/lumistudy/tutorai/internal/service"
)

// ChunkRepository implements vector search over course material chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// SearchByEmbedding returns the chunks nearest to the query embedding,
// best first. Scores are mapped from cosine distance into (0, 1].
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, filter service.ChunkFilter, limit int) ([]domain.RetrievalResult, error) {
	if limit <= 0 {
		limit = 20
	}

	vec := pgvector.NewVector(embedding)

	query := `
		SELECT id, course_id, source_document_id, source_title, source_category, chunk_offset, content,
		       1.0 / (1.0 + (embedding <=> $1)) AS score
		FROM knowledge_chunks
		WHERE embedding IS NOT NULL`
	args := []interface{}{vec}

	if filter.CourseID != 0 {
		query += " AND course_id = $2"
		args = append(args, filter.CourseID)
		query += `
		ORDER BY score DESC
		LIMIT $3`
	} else {
		query += `
		ORDER BY score DESC
		LIMIT $2`
	}
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.RetrievalResult, 0)
	for rows.Next() {
		var result domain.RetrievalResult
		var category *string
		if err := rows.Scan(
			&result.Chunk.ID,
			&result.Chunk.CourseID,
			&result.Chunk.SourceDocumentID,
			&result.Chunk.SourceTitle,
			&category,
			&result.Chunk.Offset,
			&result.Chunk.Text,
			&result.Similarity,
		); err != nil {
			return nil, err
		}
		if category != nil {
			result.Chunk.SourceCategory = *category
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// InsertChunk stores a single chunk with its embedding.
func (r *ChunkRepository) InsertChunk(ctx context.Context, c domain.Chunk) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_chunks
			(id, course_id, source_document_id, source_title, source_category, chunk_offset, content, embedding, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID,
		c.CourseID,
		c.SourceDocumentID,
		c.SourceTitle,
		nullableString(c.SourceCategory),
		c.Offset,
		c.Text,
		pgvector.NewVector(c.Embedding),
		time.Now().UTC(),
	)
	return err
}
