package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/commcoach/internal/domain"
	"github.com/ashureev/commcoach/internal/identity"
	"github.com/ashureev/commcoach/internal/persona"
	"github.com/ashureev/commcoach/internal/store"
	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

var (
	errSessionNotFound = errors.New("session not found")
	errSessionForeign  = errors.New("session belongs to another user")
)

// sessionConfigRequest is the body of POST /api/session/config. Timing fields
// are pointers so that an explicit zero prep time survives defaulting.
type sessionConfigRequest struct {
	Mode        string  `json:"mode"`
	Topic       string  `json:"topic"`
	RandomTopic bool    `json:"random_topic"`
	PrepSeconds *int    `json:"prep_s"`
	TurnSeconds *int    `json:"turn_s"`
	Rounds      *int    `json:"rounds"`
	Persona     *string `json:"persona_type"`
}

func (req sessionConfigRequest) config() domain.SessionConfig {
	cfg := domain.DefaultSessionConfig()
	if req.PrepSeconds != nil {
		cfg.PrepSeconds = *req.PrepSeconds
	}
	if req.TurnSeconds != nil {
		cfg.TurnSeconds = *req.TurnSeconds
	}
	if req.Rounds != nil {
		cfg.Rounds = *req.Rounds
	}
	return cfg
}

type historyItem struct {
	ID        string      `json:"id"`
	Mode      domain.Mode `json:"mode"`
	Topic     string      `json:"topic"`
	State     string      `json:"state"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   *time.Time  `json:"ended_at"`
}

// CreateSession configures a new practice session for the caller.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req sessionConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode := domain.ParseMode(strings.TrimSpace(req.Mode))
	topic := strings.TrimSpace(req.Topic)
	if topic == "" && req.RandomTopic {
		topic = h.randomTopic(mode)
	}
	if topic == "" {
		Error(w, http.StatusBadRequest, "Provide topic or set random_topic=true.")
		return
	}

	cfg := req.config()
	if err := cfg.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Persona != nil && strings.TrimSpace(*req.Persona) != "" {
		if _, err := persona.Parse(*req.Persona); err != nil {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		cfg.Persona = strings.TrimSpace(*req.Persona)
	}
	cfg.Persona = string(persona.Resolve(cfg, mode))

	now := h.now().UTC()
	session := &domain.Session{
		ID:        h.newID(),
		UserID:    userID,
		Mode:      mode,
		Topic:     topic,
		Config:    cfg,
		State:     domain.StateCreated,
		Turn:      domain.TurnUser,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := h.repo.CreateSession(r.Context(), session); err != nil {
		h.logger.Error("Failed to create session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.logger.Info("Session configured", "session_id", session.ID, "user_id", userID, "mode", mode)
	JSON(w, http.StatusOK, map[string]any{
		"session_id":   session.ID,
		"mode":         session.Mode,
		"topic":        session.Topic,
		"persona_type": cfg.Persona,
		"config":       session.Config,
		"state":        session.State,
	})
}

// ListHistory returns the caller's sessions, newest first.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := queryInt(r, "limit", defaultHistoryLimit)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	sessions, err := h.repo.ListSessions(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to list sessions", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	items := make([]historyItem, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, historyItem{
			ID:        s.ID,
			Mode:      s.Mode,
			Topic:     s.Topic,
			State:     string(s.State),
			StartedAt: s.StartedAt,
			EndedAt:   s.EndedAt,
		})
	}
	JSON(w, http.StatusOK, items)
}

// GetHistory returns one session with its transcript and stored feedback.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	messages, err := h.repo.ListMessages(ctx, session.ID)
	if err != nil {
		h.logger.Error("Failed to list messages", "error", err, "session_id", session.ID)
		Error(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}

	var feedback *domain.FeedbackReport
	stored, err := h.repo.GetFeedback(ctx, session.ID)
	switch {
	case err == nil:
		feedback = &stored.Report
	case !errors.Is(err, store.ErrNotFound):
		h.logger.Error("Failed to load feedback", "error", err, "session_id", session.ID)
		Error(w, http.StatusInternalServerError, "failed to load feedback")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"id":         session.ID,
		"mode":       session.Mode,
		"topic":      session.Topic,
		"state":      session.State,
		"config":     session.Config,
		"started_at": session.StartedAt,
		"ended_at":   session.EndedAt,
		"messages":   messages,
		"feedback":   feedback,
	})
}

// ownedSession loads the {id} session for the caller and writes the error
// response itself when it cannot.
func (h *Handler) ownedSession(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	session, err := h.loadSession(r.Context(), chi.URLParam(r, "id"), userID)
	switch {
	case errors.Is(err, errSessionNotFound):
		Error(w, http.StatusNotFound, "Session not found")
		return nil, false
	case errors.Is(err, errSessionForeign):
		Error(w, http.StatusForbidden, "Access denied")
		return nil, false
	case err != nil:
		h.logger.Error("Failed to load session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return session, true
}

func (h *Handler) loadSession(ctx context.Context, id, userID string) (*domain.Session, error) {
	session, err := h.repo.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, errSessionForeign
	}
	return session, nil
}
