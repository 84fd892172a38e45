package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumistudy/tutorai/internal/api/handlers"
	"github.com/lumistudy/tutorai/internal/domain"
	"github.com/lumistudy/tutorai/internal/service"
)

type stubQueryService struct{}

func (stubQueryService) Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error) {
	return &service.AskOutput{Answer: "stub answer", Sources: []domain.Source{}}, nil
}

func (stubQueryService) Stream(ctx context.Context, input service.AskInput) <-chan domain.StreamEvent {
	ch := make(chan domain.StreamEvent, 2)
	ch <- domain.MetadataEvent{}
	ch <- domain.DoneEvent{}
	close(ch)
	return ch
}

type stubRetriever struct{}

func (stubRetriever) Retrieve(ctx context.Context, question string, courseID int64) ([]domain.RetrievalResult, error) {
	return []domain.RetrievalResult{}, nil
}

type tokenValidator struct{}

func (tokenValidator) ValidateToken(ctx context.Context, token string) error {
	if token != "tut_secret" {
		return domain.ErrInvalidAPIToken
	}
	return nil
}

func TestRouter_Health(t *testing.T) {
	router := NewRouter(RouterConfig{
		AskHandler:      handlers.NewAskHandler(stubQueryService{}),
		RetrieveHandler: handlers.NewRetrieveHandler(stubRetriever{}),
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRouter_Routes(t *testing.T) {
	router := NewRouter(RouterConfig{
		AskHandler:      handlers.NewAskHandler(stubQueryService{}),
		RetrieveHandler: handlers.NewRetrieveHandler(stubRetriever{}),
	})

	for _, path := range []string{"/v1/ask", "/v1/ask/stream", "/v1/retrieve"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"question": "q"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "route %s", path)
	}
}

func TestRouter_AuthGroup(t *testing.T) {
	router := NewRouter(RouterConfig{
		AuthValidator:   tokenValidator{},
		AskHandler:      handlers.NewAskHandler(stubQueryService{}),
		RetrieveHandler: handlers.NewRetrieveHandler(stubRetriever{}),
	})

	t.Run("rejects missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question": "q"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question": "q"}`))
		req.Header.Set("Authorization", "Bearer tut_secret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("health stays open", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
