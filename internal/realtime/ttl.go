package realtime

import (
	"context"
	"log/slog"
	"time"
)

const ttlWorkerInterval = 5 * time.Minute

// StartTTLWorker runs a background goroutine that periodically ends sessions
// left unfinished with no activity for ttl.
func (c *Conductor) StartTTLWorker(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(ttlWorkerInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", ttlWorkerInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				c.SweepIdleSessions(ctx, ttl)
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// SweepIdleSessions ends every unfinished session idle for longer than ttl,
// closes its connection if one is attached, and returns how many it ended.
func (c *Conductor) SweepIdleSessions(ctx context.Context, ttl time.Duration) int {
	cutoff := c.now().Add(-ttl)
	idle, err := c.repo.ListIdleSessions(ctx, cutoff)
	if err != nil {
		c.logger.Error("TTL worker failed to list idle sessions", "error", err)
		return 0
	}
	if len(idle) == 0 {
		return 0
	}

	c.logger.Info("TTL worker found idle sessions", "count", len(idle))
	ended := 0
	for _, candidate := range idle {
		if c.expire(ctx, candidate.ID, cutoff) {
			c.sm.CloseSession(candidate.ID, "session expired")
			ended++
		}
	}
	c.logger.Info("TTL worker cleanup completed", "ended", ended)
	return ended
}

// expire re-checks a session under its lock before ending it, since a turn
// may have touched it after the listing.
func (c *Conductor) expire(ctx context.Context, id string, cutoff time.Time) bool {
	unlock := c.sm.Lock(id)
	defer unlock()

	s, err := c.repo.GetSession(ctx, id)
	if err != nil {
		c.logger.Warn("TTL worker failed to load session", "session_id", id, "error", err)
		return false
	}
	if !s.UpdatedAt.Before(cutoff) || !c.machine.End(s) {
		return false
	}
	if err := c.repo.UpdateSession(ctx, s); err != nil {
		c.logger.Error("TTL worker failed to end session", "session_id", id, "error", err)
		return false
	}
	c.logger.Info("TTL worker ended idle session", "session_id", id, "user_id", s.UserID)
	return true
}
