package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lumistudy/tutorai/internal/api"
	"github.com/lumistudy/tutorai/internal/domain"
)

type RetrieverService interface {
	Retrieve(ctx context.Context, question string, courseID int64) ([]domain.RetrievalResult, error)
}

type RetrieveHandler struct {
	svc RetrieverService
}

func NewRetrieveHandler(svc RetrieverService) *RetrieveHandler {
	return &RetrieveHandler{svc: svc}
}

type RetrieveRequest struct {
	Question string `json:"question"`
	CourseID int64  `json:"course_id,omitempty"`
}

type RetrieveResultResponse struct {
	Title            string  `json:"title"`
	Snippet          string  `json:"snippet"`
	Category         string  `json:"category,omitempty"`
	Similarity       float64 `json:"similarity"`
	SourceDocumentID string  `json:"source_document_id"`
}

type RetrieveResponse struct {
	Results []RetrieveResultResponse `json:"results"`
	Count   int                      `json:"count"`
}

// Retrieve handles POST /v1/retrieve. It exposes the ranking stage alone,
// which is what course authors use to check whether their material is
// reachable.
func (h *RetrieveHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := h.svc.Retrieve(r.Context(), req.Question, req.CourseID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := RetrieveResponse{Results: make([]RetrieveResultResponse, 0, len(results))}
	for _, result := range results {
		source := domain.SourceFromChunk(result.Chunk)
		resp.Results = append(resp.Results, RetrieveResultResponse{
			Title:            source.Title,
			Snippet:          source.Snippet,
			Category:         source.Category,
			Similarity:       result.Similarity,
			SourceDocumentID: result.Chunk.SourceDocumentID,
		})
	}
	resp.Count = len(resp.Results)

	api.Success(w, http.StatusOK, resp)
}
