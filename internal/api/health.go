package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/commcoach/internal/agent"
	"github.com/go-chi/chi/v5"
)

const defaultHealthCheckTimeout = 5 * time.Second

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter exposes the response generator's breaker state.
type BreakerReporter interface {
	GetStats() agent.Stats
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo    Pinger
	breaker BreakerReporter
	active  func() int
	timeout time.Duration
}

// NewHealthHandler creates a new health handler. breaker and active may be nil.
func NewHealthHandler(repo Pinger, breaker BreakerReporter, active func() int) *HealthHandler {
	return &HealthHandler{
		repo:    repo,
		breaker: breaker,
		active:  active,
		timeout: defaultHealthCheckTimeout,
	}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]any{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.breaker != nil {
		stats := h.breaker.GetStats()
		checks["generator"] = "ok"
		if stats.Open {
			checks["generator"] = "fallback"
		}
		status["generator"] = stats
	}
	if h.active != nil {
		status["active_sessions"] = h.active()
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
