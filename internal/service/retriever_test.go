package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumistudy/tutorai/internal/domain"
)

// MockChunkSearchRepository is a mock implementation of ChunkSearchRepositoryInterface
type MockChunkSearchRepository struct {
	mock.Mock
}

func (m *MockChunkSearchRepository) SearchByEmbedding(ctx context.Context, embedding []float32, filter ChunkFilter, limit int) ([]domain.RetrievalResult, error) {
	args := m.Called(ctx, embedding, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievalResult), args.Error(1)
}

// MockEmbeddingService is a mock implementation of EmbeddingServiceInterface
type MockEmbeddingService struct {
	mock.Mock
}

func (m *MockEmbeddingService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func chunkResult(docID, title string, similarity float64) domain.RetrievalResult {
	return domain.RetrievalResult{
		Chunk: domain.Chunk{
			ID:               docID + "-chunk",
			SourceDocumentID: docID,
			SourceTitle:      title,
			Text:             "content of " + title,
		},
		Similarity: similarity,
	}
}

func TestRetriever_Retrieve(t *testing.T) {
	ctx := context.Background()
	embedding := make([]float32, 1536)

	newRetriever := func(results []domain.RetrievalResult, cfg RetrieverConfig) (*Retriever, *MockChunkSearchRepository, *MockEmbeddingService) {
		repo := new(MockChunkSearchRepository)
		embedder := new(MockEmbeddingService)
		embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(embedding, nil)
		repo.On("SearchByEmbedding", mock.Anything, embedding, mock.Anything, mock.Anything).Return(results, nil)
		return NewRetriever(repo, embedder, cfg), repo, embedder
	}

	t.Run("keeps the best chunk per source document", func(t *testing.T) {
		results := []domain.RetrievalResult{
			chunkResult("doc-a", "Photosynthesis", 0.92),
			chunkResult("doc-a", "Photosynthesis", 0.88),
			chunkResult("doc-b", "Cell Biology", 0.81),
			chunkResult("doc-a", "Photosynthesis", 0.77),
		}
		retriever, _, _ := newRetriever(results, DefaultRetrieverConfig())

		got, err := retriever.Retrieve(ctx, "what is photosynthesis", 1)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 0.92, got[0].Similarity)
		assert.Equal(t, "doc-a", got[0].Chunk.SourceDocumentID)
		assert.Equal(t, "doc-b", got[1].Chunk.SourceDocumentID)
	})

	t.Run("discards results below the similarity cutoff", func(t *testing.T) {
		results := []domain.RetrievalResult{
			chunkResult("doc-a", "Photosynthesis", 0.92),
			chunkResult("doc-b", "Cell Biology", 0.20),
		}
		retriever, _, _ := newRetriever(results, DefaultRetrieverConfig())

		got, err := retriever.Retrieve(ctx, "what is photosynthesis", 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "doc-a", got[0].Chunk.SourceDocumentID)
	})

	t.Run("truncates to top-k preserving order", func(t *testing.T) {
		results := []domain.RetrievalResult{
			chunkResult("doc-a", "A", 0.9),
			chunkResult("doc-b", "B", 0.8),
			chunkResult("doc-c", "C", 0.7),
		}
		retriever, _, _ := newRetriever(results, RetrieverConfig{TopK: 2, MinSimilarity: 0.35})

		got, err := retriever.Retrieve(ctx, "question", 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "doc-a", got[0].Chunk.SourceDocumentID)
		assert.Equal(t, "doc-b", got[1].Chunk.SourceDocumentID)
	})

	t.Run("overfetches to survive dedup", func(t *testing.T) {
		retriever, repo, _ := newRetriever([]domain.RetrievalResult{}, RetrieverConfig{TopK: 5, MinSimilarity: 0.35})

		_, err := retriever.Retrieve(ctx, "question", 1)
		require.NoError(t, err)

		repo.AssertCalled(t, "SearchByEmbedding", mock.Anything, embedding, ChunkFilter{CourseID: 1}, 20)
	})

	t.Run("empty question is a validation error", func(t *testing.T) {
		retriever, _, _ := newRetriever(nil, DefaultRetrieverConfig())

		_, err := retriever.Retrieve(ctx, "   ", 1)
		assert.ErrorIs(t, err, domain.ErrQuestionRequired)
	})

	t.Run("embedding failure reports retrieval unavailable", func(t *testing.T) {
		repo := new(MockChunkSearchRepository)
		embedder := new(MockEmbeddingService)
		embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))
		retriever := NewRetriever(repo, embedder, DefaultRetrieverConfig())

		_, err := retriever.Retrieve(ctx, "question", 1)
		assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
	})

	t.Run("index failure reports retrieval unavailable", func(t *testing.T) {
		repo := new(MockChunkSearchRepository)
		embedder := new(MockEmbeddingService)
		embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(embedding, nil)
		repo.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
		retriever := NewRetriever(repo, embedder, DefaultRetrieverConfig())

		_, err := retriever.Retrieve(ctx, "question", 1)
		assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
	})
}
