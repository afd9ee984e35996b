package realtime

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/commcoach/internal/agent"
	"github.com/ashureev/commcoach/internal/domain"
	"github.com/ashureev/commcoach/internal/session"
	"github.com/ashureev/commcoach/internal/store"
	"golang.org/x/time/rate"
)

const channelWebSocket = "ws"

// Store is the persistence the protocol needs.
type Store interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	UpdateSession(ctx context.Context, s *domain.Session) error
	ListIdleSessions(ctx context.Context, before time.Time) ([]*domain.Session, error)
	AppendMessage(ctx context.Context, msg *domain.Message) error
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error
}

// Replier streams the AI's reply for a prompt.
type Replier interface {
	Stream(ctx context.Context, p agent.Prompt) iter.Seq[string]
}

// Options tunes a Conductor. Zero values select defaults.
type Options struct {
	// MessageRate is the sustained user_text rate per connection, per second.
	// Zero or negative disables limiting.
	MessageRate  float64
	MessageBurst int

	ConversationLog agent.ConversationLogger
	Logger          *slog.Logger
	Clock           func() time.Time
}

// Conductor holds the shared dependencies of every live connection.
type Conductor struct {
	repo    Store
	gen     Replier
	sm      *SessionManager
	machine *session.Machine
	convLog agent.ConversationLogger
	logger  *slog.Logger
	now     func() time.Time
	limit   rate.Limit
	burst   int
}

// NewConductor creates a Conductor.
func NewConductor(repo Store, gen Replier, sm *SessionManager, opts Options) *Conductor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.ConversationLog == nil {
		opts.ConversationLog = agent.NopConversationLogger()
	}
	limit := rate.Inf
	if opts.MessageRate > 0 {
		limit = rate.Limit(opts.MessageRate)
	}
	return &Conductor{
		repo:    repo,
		gen:     gen,
		sm:      sm,
		machine: session.NewMachine(opts.Clock),
		convLog: opts.ConversationLog,
		logger:  opts.Logger,
		now:     opts.Clock,
		limit:   limit,
		burst:   max(opts.MessageBurst, 1),
	}
}

// Sessions returns the connection registry.
func (c *Conductor) Sessions() *SessionManager {
	return c.sm
}

// NewPeer creates the protocol state for one connection owned by userID.
func (c *Conductor) NewPeer(userID string, out Emitter) *Peer {
	return &Peer{
		c:       c,
		userID:  userID,
		out:     out,
		limiter: rate.NewLimiter(c.limit, c.burst),
	}
}

// Peer is the protocol state of one connection. Its methods must be called
// from a single goroutine.
type Peer struct {
	c         *Conductor
	userID    string
	out       Emitter
	limiter   *rate.Limiter
	sessionID string
}

// SessionID returns the attached session, or "".
func (p *Peer) SessionID() string {
	return p.sessionID
}

// Handle processes one inbound message. done reports that the client ended
// the session and the connection should be closed. A non-nil error means the
// connection can no longer be written to.
func (p *Peer) Handle(ctx context.Context, raw []byte) (done bool, err error) {
	msg, err := decode(raw)
	if err != nil {
		p.c.logger.Debug("Undecodable frame", "user_id", p.userID, "error", err)
		return false, p.emit(ctx, errorFrame(DetailBadMessage))
	}

	switch msg.Type {
	case TypeAttachSession:
		return false, p.attach(ctx, msg.SessionID)
	case TypeStartPrep:
		return false, p.startPrep(ctx)
	case TypeStartRound:
		return false, p.startRound(ctx)
	case TypeUserText:
		return false, p.userText(ctx, msg.text())
	case TypeEnd:
		return true, p.end(ctx)
	case TypePing:
		return false, p.emit(ctx, frame(TypePong))
	default:
		return false, p.emit(ctx, errorFrame(fmt.Sprintf("Unknown message type %q", msg.Type)))
	}
}

// Disconnect ends the attached session after the connection dropped. A
// connection that was replaced by a newer one leaves the session alone.
func (p *Peer) Disconnect(ctx context.Context) {
	id := p.sessionID
	if id == "" {
		return
	}
	p.sessionID = ""
	if p.c.sm.Detach(id, p.out) {
		p.endSession(ctx, id)
	}
}

func (p *Peer) emit(ctx context.Context, f Frame) error {
	if err := p.out.Emit(ctx, f); err != nil {
		return fmt.Errorf("emit %s: %w", f.Type(), err)
	}
	return nil
}

// fail logs an internal error and reports a generic one to the client.
func (p *Peer) fail(ctx context.Context, op string, err error) error {
	p.c.logger.Error("Protocol operation failed", "op", op, "session_id", p.sessionID, "user_id", p.userID, "error", err)
	return p.emit(ctx, errorFrame(DetailInternal))
}

func (p *Peer) attach(ctx context.Context, id string) error {
	s, err := p.c.repo.GetSession(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		p.c.logger.Warn("Failed to load session", "session_id", id, "error", err)
	}
	if err != nil || s.UserID != p.userID {
		return p.emit(ctx, errorFrame(DetailInvalidSession))
	}

	if p.sessionID != "" && p.sessionID != s.ID {
		p.c.sm.Detach(p.sessionID, p.out)
	}
	p.sessionID = s.ID
	p.c.sm.Attach(s.ID, p.out)

	return p.emit(ctx, frame(TypeSessionAttached,
		"session_id", s.ID,
		"mode", s.Mode,
		"topic", s.Topic,
		"config", s.Config,
		"state", s.State,
		"round", s.RoundNo,
		"turn", s.Turn,
	))
}

// withSession loads the attached session under its processing lock.
func (p *Peer) withSession(ctx context.Context, fn func(s *domain.Session) error) error {
	if p.sessionID == "" {
		return p.emit(ctx, errorFrame(DetailAttachFirst))
	}
	unlock := p.c.sm.Lock(p.sessionID)
	defer unlock()

	s, err := p.c.repo.GetSession(ctx, p.sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return p.emit(ctx, errorFrame(DetailInvalidSession))
	}
	if err != nil {
		return p.fail(ctx, "load session", err)
	}
	return fn(s)
}

func (p *Peer) startPrep(ctx context.Context) error {
	return p.withSession(ctx, func(s *domain.Session) error {
		if err := p.c.machine.AdvanceToPrep(s); err != nil {
			return p.emit(ctx, errorFrame(err.Error()))
		}
		if err := p.c.repo.UpdateSession(ctx, s); err != nil {
			return p.fail(ctx, "start prep", err)
		}
		return p.emit(ctx, frame(TypePrepStarted, "seconds", s.Config.PrepSeconds))
	})
}

func (p *Peer) startRound(ctx context.Context) error {
	return p.withSession(ctx, func(s *domain.Session) error {
		if err := p.c.machine.StartRound(s); err != nil {
			return p.emit(ctx, errorFrame(err.Error()))
		}
		if err := p.c.repo.UpdateSession(ctx, s); err != nil {
			return p.fail(ctx, "start round", err)
		}
		return p.emit(ctx, frame(TypeRoundStarted,
			"round", s.RoundNo,
			"rounds", s.Config.Rounds,
			"turn", s.Turn,
			"turn_seconds", s.Config.TurnSeconds,
		))
	})
}

func (p *Peer) userText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if !p.limiter.Allow() {
		return p.emit(ctx, errorFrame(DetailRateLimited))
	}
	return p.withSession(ctx, func(s *domain.Session) error {
		if !s.AcceptsUserText() {
			return p.emit(ctx, errorFrame(DetailNotUserTurn))
		}

		userMsg := &domain.Message{SessionID: s.ID, Role: domain.RoleUser, Content: text, Time: p.c.now()}
		if err := p.c.repo.AppendMessage(ctx, userMsg); err != nil {
			return p.fail(ctx, "persist user message", err)
		}
		p.logConversation(s, "inbound", agent.EventUserText, text, nil)

		if err := p.emit(ctx, frame(TypeAIReplyStart)); err != nil {
			return err
		}
		reply, fragments, err := p.streamReply(ctx, agent.PromptFor(s, text))
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			p.c.logger.Info("Reply cancelled", "session_id", s.ID, "fragments", fragments)
			return ctx.Err()
		}

		aiMsg := &domain.Message{SessionID: s.ID, Role: domain.RoleAI, Content: reply, Time: p.c.now()}
		if err := p.c.repo.AppendMessage(ctx, aiMsg); err != nil {
			return p.fail(ctx, "persist reply", err)
		}
		p.logConversation(s, "outbound", agent.EventAIReply, reply, map[string]any{
			"round":     s.RoundNo,
			"fragments": fragments,
		})

		if err := p.c.machine.SwitchTurn(s); err != nil {
			return p.emit(ctx, errorFrame(err.Error()))
		}
		if err := p.c.repo.UpdateSession(ctx, s); err != nil {
			return p.fail(ctx, "switch turn", err)
		}

		if err := p.emit(ctx, frame(TypeAIReplyEnd, "text", reply)); err != nil {
			return err
		}
		return p.emit(ctx, frame(TypeTurnSwitched, "turn", s.Turn))
	})
}

// streamReply forwards generator fragments as tokens and returns the full
// reply. It stops at the first failed write.
func (p *Peer) streamReply(ctx context.Context, prompt agent.Prompt) (string, int, error) {
	var b strings.Builder
	fragments := 0
	for fragment := range p.c.gen.Stream(ctx, prompt) {
		if err := p.emit(ctx, frame(TypeAIToken, "token", fragment)); err != nil {
			return "", fragments, err
		}
		b.WriteString(fragment)
		fragments++
	}
	return b.String(), fragments, nil
}

func (p *Peer) end(ctx context.Context) error {
	if id := p.sessionID; id != "" {
		p.sessionID = ""
		p.endSession(ctx, id)
		p.c.sm.Detach(id, p.out)
	}
	return p.emit(ctx, frame(TypeSessionEnded, "summary", "Saved"))
}

func (p *Peer) endSession(ctx context.Context, id string) {
	unlock := p.c.sm.Lock(id)
	defer unlock()

	s, err := p.c.repo.GetSession(ctx, id)
	if err != nil {
		p.c.logger.Warn("Failed to load session for end", "session_id", id, "error", err)
		return
	}
	if !p.c.machine.End(s) {
		return
	}
	if err := p.c.repo.UpdateSession(ctx, s); err != nil {
		p.c.logger.Error("Failed to persist session end", "session_id", id, "error", err)
		return
	}
	p.c.logger.Info("Session ended", "session_id", id, "user_id", p.userID, "rounds", s.RoundNo)
}

func (p *Peer) logConversation(s *domain.Session, direction, eventType, content string, meta map[string]any) {
	p.c.convLog.Log(agent.ConversationLogEvent{
		UserID:     p.userID,
		SessionID:  s.ID,
		Channel:    channelWebSocket,
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Meta:       meta,
	})
}
