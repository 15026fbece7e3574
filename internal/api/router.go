package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/compiler"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *compiler.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/compile", h.Compile)
	r.Post("/validate", h.Validate)
	r.Post("/resolve", h.Resolve)

	r.Route("/history", func(r chi.Router) {
		r.Get("/", h.ListHistory)
		r.Get("/search", h.SearchHistory)
		r.Get("/{id}", h.GetCompilation)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
