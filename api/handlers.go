package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"dart-scoring-server/config"
	"dart-scoring-server/storage"
	"dart-scoring-server/variant"
)

const bearerPrefix = "Bearer "

// TokenValidator maps a bearer token to an owner key.
type TokenValidator interface {
	Owner(token string) (string, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	Config  *config.Config
	Catalog *variant.Catalog
	Store   storage.MatchStore // nil: history endpoints return empty lists
	Auth    TokenValidator     // nil: owners come from deviceKey only
}

// NewHandler creates a new API handler with the given dependencies.
func NewHandler(cfg *config.Config, catalog *variant.Catalog, store storage.MatchStore, auth TokenValidator) *Handler {
	return &Handler{
		Config:  cfg,
		Catalog: catalog,
		Store:   store,
		Auth:    auth,
	}
}

// owner resolves the request's owner key from a bearer token or a deviceKey
// query parameter. ok is false when a token was sent but is invalid.
func (h *Handler) owner(r *http.Request) (owner string, ok bool) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, bearerPrefix) && h.Auth != nil {
		owner, err := h.Auth.Owner(strings.TrimSpace(authHeader[len(bearerPrefix):]))
		if err != nil {
			return "", false
		}
		return owner, true
	}
	if key := strings.TrimSpace(r.URL.Query().Get("deviceKey")); key != "" {
		return "device:" + key, true
	}
	return "", true
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Variants returns the setup catalog grouped by variant.
func (h *Handler) Variants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.Groups())
}

// FinishResponse is the JSON structure for /api/finish.
type FinishResponse struct {
	Score      int                       `json:"score"`
	Suggestion *variant.FinishSuggestion `json:"suggestion"`
}

// Finish returns the checkout suggestion for ?score=N; suggestion is null
// when no finish of three darts or fewer exists.
func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	score, err := strconv.Atoi(r.URL.Query().Get("score"))
	if err != nil || score < 0 {
		http.Error(w, "score must be a non-negative integer", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, FinishResponse{Score: score, Suggestion: variant.SuggestFinish(score)})
}

// History returns finished matches, newest first. With an owner (bearer
// token or deviceKey) only that owner's matches are listed.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(r)
	if !ok {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list := []storage.MatchResult{}
	if h.Store != nil {
		var err error
		list, err = h.Store.ListHistory(r.Context(), owner, limit)
		if err != nil {
			slog.Error("list history failed", "tag", "api", "error", err)
			http.Error(w, "failed to load history", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, list)
}

// LeaderboardResponse is the JSON structure for /api/leaderboard.
type LeaderboardResponse struct {
	Entries []storage.LeaderboardEntry `json:"entries"`
}

// Leaderboard returns players ranked by wins.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	entries := []storage.LeaderboardEntry{}
	if h.Store != nil {
		var err error
		entries, err = h.Store.ListLeaderboard(r.Context(), limit, offset)
		if err != nil {
			slog.Error("list leaderboard failed", "tag", "api", "error", err)
			http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{Entries: entries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "tag", "api", "error", err)
	}
}
