// Package session implements the practice session lifecycle.
//
// Sessions move created -> prep -> live -> ended. Prep is optional. While
// live, the floor alternates between the user and the AI. The machine has no
// timers; callers decide when to invoke transitions.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/commcoach/internal/domain"
)

// ErrInvalidTransition is returned when a transition is not allowed from the
// session's current state. The session is left unchanged.
var ErrInvalidTransition = errors.New("invalid transition")

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

// Machine applies transitions to sessions.
type Machine struct {
	now Clock
}

// NewMachine creates a state machine using the given clock (time.Now if nil).
func NewMachine(now Clock) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{now: now}
}

// AdvanceToPrep moves a freshly created session into preparation.
func (m *Machine) AdvanceToPrep(s *domain.Session) error {
	if s.State != domain.StateCreated {
		return fmt.Errorf("%w: prep requires state %q, got %q", ErrInvalidTransition, domain.StateCreated, s.State)
	}
	s.State = domain.StatePrep
	s.UpdatedAt = m.now()
	return nil
}

// StartRound begins a new round with the user holding the floor.
func (m *Machine) StartRound(s *domain.Session) error {
	switch s.State {
	case domain.StateCreated, domain.StatePrep, domain.StateLive:
	default:
		return fmt.Errorf("%w: cannot start round from %q", ErrInvalidTransition, s.State)
	}
	s.State = domain.StateLive
	s.RoundNo++
	s.Turn = domain.TurnUser
	s.UpdatedAt = m.now()
	return nil
}

// SwitchTurn hands the floor to the other party.
func (m *Machine) SwitchTurn(s *domain.Session) error {
	if s.State != domain.StateLive {
		return fmt.Errorf("%w: cannot switch turn from %q", ErrInvalidTransition, s.State)
	}
	if s.Turn == domain.TurnUser {
		s.Turn = domain.TurnAI
	} else {
		s.Turn = domain.TurnUser
	}
	s.UpdatedAt = m.now()
	return nil
}

// End closes the session. Ending an already ended session is a no-op and
// keeps the original end timestamp. It reports whether the state changed.
func (m *Machine) End(s *domain.Session) bool {
	if s.State == domain.StateEnded {
		return false
	}
	now := m.now()
	s.State = domain.StateEnded
	s.EndedAt = &now
	s.UpdatedAt = now
	return true
}
