package agent

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"
)

var (
	errEmptyReply = errors.New("empty reply")
	errStopped    = errors.New("consumer stopped")
)

// Generator produces AI replies through a TextModel guarded by a circuit
// breaker. The breaker is shared by every session using the generator and
// stays open until Reset is called.
type Generator struct {
	model  TextModel
	logger *slog.Logger

	maxAttempts    int
	threshold      int
	initialBackoff time.Duration
	wait           func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	failures int
	open     bool
}

// NewGenerator creates a generator over model. A nil model starts with the
// breaker open, so every reply is FallbackReply.
func NewGenerator(model TextModel, cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	return &Generator{
		model:          model,
		logger:         logger,
		maxAttempts:    cfg.MaxAttempts,
		threshold:      cfg.FailureThreshold,
		initialBackoff: cfg.InitialBackoff,
		wait:           sleepContext,
		open:           model == nil,
	}
}

// Generate returns a complete reply, or FallbackReply when the model fails
// or the breaker is open. It returns "" only when ctx is cancelled.
func (g *Generator) Generate(ctx context.Context, p Prompt) string {
	if g.IsOpen() {
		return FallbackReply
	}

	system := p.System()
	backoff := g.initialBackoff
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		text, err := g.model.Generate(ctx, system, p.UserText)
		if ctx.Err() != nil {
			return ""
		}
		text = strings.TrimSpace(text)
		if err == nil && text == "" {
			err = errEmptyReply
		}
		if err == nil {
			g.recordSuccess()
			return text
		}

		opened := g.recordFailure()
		g.logger.Warn("text generation failed", "attempt", attempt, "breaker_open", opened, "error", err)
		if opened || attempt == g.maxAttempts {
			break
		}
		if err := g.wait(ctx, backoff); err != nil {
			return ""
		}
		backoff *= 2
	}
	return FallbackReply
}

// Stream yields reply fragments. Retries happen only before the first
// fragment is emitted; a failure after that ends the stream with the partial
// reply. When nothing could be produced it yields FallbackReply once.
// Cancellation of ctx ends the stream without a fallback.
func (g *Generator) Stream(ctx context.Context, p Prompt) iter.Seq[string] {
	return func(yield func(string) bool) {
		if g.IsOpen() {
			yield(FallbackReply)
			return
		}

		system := p.System()
		backoff := g.initialBackoff
		for attempt := 1; attempt <= g.maxAttempts; attempt++ {
			emitted, err := g.streamOnce(ctx, system, p.UserText, yield)
			if errors.Is(err, errStopped) || ctx.Err() != nil {
				return
			}
			if err == nil {
				g.recordSuccess()
				return
			}

			opened := g.recordFailure()
			g.logger.Warn("text stream failed",
				"attempt", attempt,
				"partial", emitted,
				"breaker_open", opened,
				"error", err,
			)
			if emitted {
				return
			}
			if opened || attempt == g.maxAttempts {
				break
			}
			if err := g.wait(ctx, backoff); err != nil {
				return
			}
			backoff *= 2
		}
		yield(FallbackReply)
	}
}

func (g *Generator) streamOnce(ctx context.Context, system, user string, yield func(string) bool) (bool, error) {
	emitted := false
	for frag, err := range g.model.Stream(ctx, system, user) {
		if err != nil {
			return emitted, err
		}
		// Leading blank fragments are dropped so a blank stream can still be retried.
		if frag == "" || (!emitted && strings.TrimSpace(frag) == "") {
			continue
		}
		if !yield(frag) {
			return true, errStopped
		}
		emitted = true
	}
	if !emitted {
		return false, errEmptyReply
	}
	return true, nil
}

// Reset closes the breaker and clears the failure count.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = 0
	g.open = false
}

// IsOpen reports whether the breaker is open.
func (g *Generator) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// GetStats returns the breaker state.
func (g *Generator) GetStats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{Open: g.open, ConsecutiveFailures: g.failures}
}

func (g *Generator) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = 0
}

// recordFailure counts a failed attempt and reports whether the breaker is open.
func (g *Generator) recordFailure() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures++
	if g.failures >= g.threshold {
		g.open = true
	}
	return g.open
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
