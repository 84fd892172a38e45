package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lumistudy/tutorai/internal/api"
	"github.com/lumistudy/tutorai/internal/domain"
	"github.com/lumistudy/tutorai/internal/service"
)

type QueryService interface {
	Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error)
	Stream(ctx context.Context, input service.AskInput) <-chan domain.StreamEvent
}

type AskHandler struct {
	svc QueryService
}

func NewAskHandler(svc QueryService) *AskHandler {
	return &AskHandler{svc: svc}
}

type TurnRequest struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type AskRequest struct {
	Question  string        `json:"question"`
	CourseID  int64         `json:"course_id,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	History   []TurnRequest `json:"history,omitempty"`
}

type AskResponse struct {
	Answer     string          `json:"answer"`
	Sources    []domain.Source `json:"sources"`
	Confidence float64         `json:"confidence"`
	HasContext bool            `json:"has_context"`
}

func (r *AskRequest) toInput() service.AskInput {
	history := make([]domain.Turn, 0, len(r.History))
	for _, turn := range r.History {
		history = append(history, domain.Turn{Role: turn.Role, Text: turn.Text})
	}
	return service.AskInput{
		Question:  r.Question,
		CourseID:  r.CourseID,
		SessionID: r.SessionID,
		History:   history,
	}
}

// Ask handles POST /v1/ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.svc.Ask(r.Context(), req.toInput())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AskResponse{
		Answer:     out.Answer,
		Sources:    out.Sources,
		Confidence: out.Confidence,
		HasContext: out.HasContext,
	})
}
