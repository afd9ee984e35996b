package api

import (
	"net/http"

	"github.com/ashureev/commcoach/internal/identity"
	"github.com/ashureev/commcoach/internal/progress"
)

// Dashboard returns the caller's progress overview.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	dash, err := h.ledger.Dashboard(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to build dashboard", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	JSON(w, http.StatusOK, dash)
}

// Leaderboard returns the top users by XP.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.Leaderboard(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		h.logger.Error("Failed to load leaderboard", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

// ListBadges returns the badge catalogue.
func (h *Handler) ListBadges(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"badges": progress.Badges()})
}

// Stats returns the caller's compact statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.ledger.Stats(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load stats", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	JSON(w, http.StatusOK, stats)
}
