package api

import (
	"errors"
	"net/http"

	"github.com/ashureev/commcoach/internal/domain"
	"github.com/ashureev/commcoach/internal/identity"
	"github.com/ashureev/commcoach/internal/persona"
	"github.com/ashureev/commcoach/internal/store"
	"github.com/go-chi/chi/v5"
)

// GetMe returns the current user's information.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get user", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"user_id":  user.UserID,
		"username": user.Username,
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"ai_enabled": h.aiEnabled,
		"modes":      domain.Modes,
	})
}

// ListModes returns the practice modes.
func (h *Handler) ListModes(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"modes": domain.Modes})
}

// ListPersonas returns every persona in listing form.
func (h *Handler) ListPersonas(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"personas": persona.All()})
}

// GetPersona returns the full description of one persona.
func (h *Handler) GetPersona(w http.ResponseWriter, r *http.Request) {
	t, err := persona.Parse(chi.URLParam(r, "type"))
	if err != nil {
		Error(w, http.StatusNotFound, "persona not found")
		return
	}
	JSON(w, http.StatusOK, persona.Lookup(t))
}

// GetPersonaForMode returns the recommended persona for a mode.
func (h *Handler) GetPersonaForMode(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "mode")
	mode := domain.ParseMode(raw)
	if string(mode) != raw {
		Error(w, http.StatusBadRequest, "invalid mode")
		return
	}
	t := persona.ForMode(mode)
	JSON(w, http.StatusOK, map[string]any{
		"mode":                mode,
		"recommended_persona": t,
		"persona":             persona.Lookup(t),
	})
}
