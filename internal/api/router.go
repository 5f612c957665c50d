package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig holds the handlers mounted on the HTTP server.
type RouterConfig struct {
	Sessions       *SessionHandler
	MetricsHandler http.Handler
}

// NewRouter creates the chi router with session and ops routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Sessions != nil {
		r.Route("/v1/sessions", func(r chi.Router) {
			r.Post("/", cfg.Sessions.Start)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Post("/utterance", cfg.Sessions.Utterance)
				r.Get("/context", cfg.Sessions.Context)
				r.Delete("/", cfg.Sessions.End)
			})
		})
	}

	return r
}
