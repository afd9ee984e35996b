// Package api provides HTTP handlers for the practice API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/ashureev/commcoach/internal/progress"
	"github.com/ashureev/commcoach/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxRequestBytes = 1 << 20

// Handler serves the JSON API.
type Handler struct {
	repo      store.Repository
	ledger    *progress.Ledger
	aiEnabled bool
	logger    *slog.Logger
	newID     func() string
	intN      func(n int) int
	now       func() time.Time
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, ledger *progress.Ledger, aiEnabled bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repo:      repo,
		ledger:    ledger,
		aiEnabled: aiEnabled,
		logger:    logger,
		newID:     uuid.NewString,
		intN:      rand.IntN,
		now:       time.Now,
	}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)
		r.Get("/modes", h.ListModes)

		r.Get("/personas", h.ListPersonas)
		r.Get("/personas/{type}", h.GetPersona)
		r.Get("/personas/mode/{mode}", h.GetPersonaForMode)

		r.Post("/session/config", h.CreateSession)
		r.Get("/history", h.ListHistory)
		r.Get("/history/{id}", h.GetHistory)
		r.Post("/feedback/session/{id}", h.ComputeFeedback)

		r.Route("/progress", func(r chi.Router) {
			r.Get("/dashboard", h.Dashboard)
			r.Get("/leaderboard", h.Leaderboard)
			r.Get("/badges", h.ListBadges)
			r.Get("/stats", h.Stats)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a JSON body into v. An empty body leaves v unchanged.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// queryInt parses an integer query parameter, returning fallback when it is
// missing or malformed.
func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
