package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumistudy/tutorai/internal/api"
	"github.com/lumistudy/tutorai/internal/api/handlers"
	"github.com/lumistudy/tutorai/internal/api/middleware"
)

type RouterConfig struct {
	// AuthValidator is optional; nil leaves the API open for local dev.
	AuthValidator   middleware.AuthValidator
	AskHandler      *handlers.AskHandler
	RetrieveHandler *handlers.RetrieveHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if cfg.AuthValidator != nil {
			r.Use(middleware.BearerAuth(cfg.AuthValidator))
		}

		r.Route("/v1", func(r chi.Router) {
			r.Post("/ask", cfg.AskHandler.Ask)
			r.Post("/ask/stream", cfg.AskHandler.AskStream)
			r.Post("/retrieve", cfg.RetrieveHandler.Retrieve)
		})
	})

	return r
}
