package domain

import (
	"errors"
	"fmt"
	"time"
)

// Mode is a practice mode.
type Mode string

const (
	ModeDebate       Mode = "debate"
	ModeInterview    Mode = "interview"
	ModePresentation Mode = "presentation"
	ModeCasual       Mode = "casual"
	ModeGeneral      Mode = "general"
)

// Modes lists every practice mode in display order.
var Modes = []Mode{ModeDebate, ModeInterview, ModePresentation, ModeCasual, ModeGeneral}

// ParseMode maps free text onto a Mode. Unknown values become ModeGeneral.
func ParseMode(s string) Mode {
	for _, m := range Modes {
		if string(m) == s {
			return m
		}
	}
	return ModeGeneral
}

// SessionState is the lifecycle state of a session.
type SessionState string

const (
	StateCreated SessionState = "created"
	StatePrep    SessionState = "prep"
	StateLive    SessionState = "live"
	StateEnded   SessionState = "ended"
)

// Turn identifies who holds the floor in a live session.
type Turn string

const (
	TurnUser Turn = "user"
	TurnAI   Turn = "ai"
)

// Default session timings.
const (
	DefaultPrepSeconds = 60
	DefaultTurnSeconds = 60
	DefaultRounds      = 2
)

var errInvalidConfig = errors.New("invalid session config")

// SessionConfig holds the per-session timing and persona settings.
type SessionConfig struct {
	PrepSeconds int    `json:"prep_s"`
	TurnSeconds int    `json:"turn_s"`
	Rounds      int    `json:"rounds"`
	Persona     string `json:"persona_type,omitempty"`
}

// DefaultSessionConfig returns the documented defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PrepSeconds: DefaultPrepSeconds,
		TurnSeconds: DefaultTurnSeconds,
		Rounds:      DefaultRounds,
	}
}

// WithDefaults fills zero-valued fields with defaults.
func (c SessionConfig) WithDefaults() SessionConfig {
	if c.PrepSeconds == 0 {
		c.PrepSeconds = DefaultPrepSeconds
	}
	if c.TurnSeconds == 0 {
		c.TurnSeconds = DefaultTurnSeconds
	}
	if c.Rounds == 0 {
		c.Rounds = DefaultRounds
	}
	return c
}

// Validate checks field ranges. Persona names are validated by the persona package.
func (c SessionConfig) Validate() error {
	if c.PrepSeconds < 0 || c.PrepSeconds > 600 {
		return fmt.Errorf("%w: prep_s must be within [0,600]", errInvalidConfig)
	}
	if c.TurnSeconds < 10 || c.TurnSeconds > 600 {
		return fmt.Errorf("%w: turn_s must be within [10,600]", errInvalidConfig)
	}
	if c.Rounds < 1 || c.Rounds > 10 {
		return fmt.Errorf("%w: rounds must be within [1,10]", errInvalidConfig)
	}
	return nil
}

// Session is a practice session.
type Session struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Mode      Mode          `json:"mode"`
	Topic     string        `json:"topic"`
	Config    SessionConfig `json:"config"`
	State     SessionState  `json:"state"`
	RoundNo   int           `json:"round_no"`
	Turn      Turn          `json:"turn"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IsEnded reports whether the session has been ended.
func (s *Session) IsEnded() bool {
	return s.State == StateEnded
}

// AcceptsUserText reports whether the user currently holds the floor.
func (s *Session) AcceptsUserText() bool {
	return s.State == StateLive && s.Turn == TurnUser
}
