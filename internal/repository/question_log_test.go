//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumistudy/tutorai/internal/domain"
	"github.com/lumistudy/tutorai/internal/testutil"
)

func TestQuestionLogRepository_CreateAndBackfill(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewQuestionLogRepository(pool)

	log := &domain.QuestionLog{
		ID:          uuid.NewString(),
		CourseID:    1,
		Question:    "What is photosynthesis?",
		AnswerChars: 240,
		HasContext:  true,
		Sources: []domain.Source{
			{Title: "Biology: Unit 3", Snippet: "Photosynthesis converts light...", Category: "lesson"},
		},
		DurationMs: 850,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, log))

	t.Run("new logs are pending an embedding", func(t *testing.T) {
		pending, err := repo.GetPendingEmbeddings(ctx, 3, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		got := pending[0]
		assert.Equal(t, log.ID, got.ID)
		assert.Equal(t, log.Question, got.Question)
		assert.Equal(t, log.AnswerChars, got.AnswerChars)
		assert.True(t, got.HasContext)
		require.Len(t, got.Sources, 1)
		assert.Equal(t, "Biology: Unit 3", got.Sources[0].Title)
	})

	t.Run("SetEmbedding removes the log from the pending set", func(t *testing.T) {
		embedding := make([]float32, 1536)
		embedding[0] = 1.0
		require.NoError(t, repo.SetEmbedding(ctx, log.ID, embedding))

		pending, err := repo.GetPendingEmbeddings(ctx, 3, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestQuestionLogRepository_RetryExhaustion(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewQuestionLogRepository(pool)

	log := &domain.QuestionLog{
		ID:       uuid.NewString(),
		CourseID: 1,
		Question: "What is osmosis?",
	}
	require.NoError(t, repo.Create(ctx, log))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.IncrementRetries(ctx, log.ID))
	}

	pending, err := repo.GetPendingEmbeddings(ctx, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestQuestionLogRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewQuestionLogRepository(pool)

	assert.ErrorIs(t, repo.SetEmbedding(ctx, uuid.NewString(), make([]float32, 1536)), ErrQuestionLogNotFound)
	assert.ErrorIs(t, repo.IncrementRetries(ctx, uuid.NewString()), ErrQuestionLogNotFound)
}
