package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lumistudy/tutorai/internal/api"
	"github.com/lumistudy/tutorai/internal/domain"
)

// Wire payloads for the event stream. Every frame is `data: <json>` followed
// by a blank line.
type metadataPayload struct {
	Type       string          `json:"type"`
	Sources    []domain.Source `json:"sources"`
	HasContext bool            `json:"has_context"`
}

type contentPayload struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type donePayload struct {
	Type string `json:"type"`
}

type errorPayload struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func marshalEvent(event domain.StreamEvent) ([]byte, error) {
	switch e := event.(type) {
	case domain.MetadataEvent:
		sources := e.Sources
		if sources == nil {
			sources = []domain.Source{}
		}
		return json.Marshal(metadataPayload{Type: "metadata", Sources: sources, HasContext: e.HasContext})
	case domain.ContentEvent:
		return json.Marshal(contentPayload{Type: "content", Content: e.Text})
	case domain.DoneEvent:
		return json.Marshal(donePayload{Type: "done"})
	case domain.ErrorEvent:
		return json.Marshal(errorPayload{Type: "error", Error: e.Message})
	default:
		return nil, fmt.Errorf("unknown event type %q", event.EventType())
	}
}

// AskStream handles POST /v1/ask/stream
func (h *AskHandler) AskStream(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := h.svc.Stream(ctx, req.toInput())
	for event := range events {
		payload, err := marshalEvent(event)
		if err != nil {
			continue
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// Client is gone. Cancel the session and drain so the
			// producer can shut down.
			cancel()
			for range events {
			}
			return
		}
		flusher.Flush()
	}
}
