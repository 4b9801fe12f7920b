package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// NewRouter mounts the JSON API and, when ws is non-nil, the websocket
// endpoint at /ws.
func NewRouter(h *Handler, ws http.HandlerFunc) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))

	r.Get("/health", h.Health)
	r.Route("/api", func(rr chi.Router) {
		rr.Get("/variants", h.Variants)
		rr.Get("/finish", h.Finish)
		rr.Get("/history", h.History)
		rr.Get("/leaderboard", h.Leaderboard)
	})
	if ws != nil {
		r.Get("/ws", ws)
	}

	return r
}
