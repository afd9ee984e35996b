package realtime

import (
	"log/slog"
	"sync"
)

// SessionManager tracks the connection attached to each practice session and
// serializes work on a session across connections.
type SessionManager struct {
	mu     sync.Mutex
	active map[string]Emitter
	locks  map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]Emitter),
		locks:  make(map[string]*sessionLock),
	}
}

// GetActive returns the connection attached to a session, or nil.
func (m *SessionManager) GetActive(sessionID string) Emitter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[sessionID]
}

// Attach registers conn for a session. A different connection already
// attached to the session is closed.
func (m *SessionManager) Attach(sessionID string, conn Emitter) {
	m.mu.Lock()
	existing, exists := m.active[sessionID]
	m.active[sessionID] = conn
	m.mu.Unlock()

	if exists && existing != conn {
		if err := existing.Close("session replaced"); err != nil {
			slog.Debug("Failed to close replaced connection", "session_id", sessionID, "error", err)
		}
		slog.Info("Practice session connection replaced", "session_id", sessionID)
		return
	}
	slog.Info("Practice session attached", "session_id", sessionID)
}

// Detach removes conn from a session. It reports whether conn was still the
// attached connection, i.e. it had not been replaced.
func (m *SessionManager) Detach(sessionID string, conn Emitter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.active[sessionID]; ok && current == conn {
		delete(m.active, sessionID)
		slog.Info("Practice session detached", "session_id", sessionID)
		return true
	}
	return false
}

// CloseSession closes and forgets the connection attached to a session.
func (m *SessionManager) CloseSession(sessionID, reason string) {
	m.mu.Lock()
	conn, ok := m.active[sessionID]
	delete(m.active, sessionID)
	m.mu.Unlock()

	if !ok {
		return
	}
	if err := conn.Close(reason); err != nil {
		slog.Debug("Failed to close connection", "session_id", sessionID, "error", err)
	}
	slog.Info("Practice session connection closed", "session_id", sessionID, "reason", reason)
}

// ActiveCount returns the number of attached sessions.
func (m *SessionManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Lock acquires the per-session processing lock and returns its release func.
func (m *SessionManager) Lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}
