// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/commcoach/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for persisting practice data.
type Repository interface {
	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// CreateSession inserts a new session.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// UpdateSession persists the mutable lifecycle fields of a session.
	// Mode, topic and config are never rewritten.
	UpdateSession(ctx context.Context, session *domain.Session) error

	// ListSessions returns a user's sessions, newest first.
	ListSessions(ctx context.Context, userID string, limit int) ([]*domain.Session, error)

	// ListIdleSessions returns unended sessions with no activity since before.
	ListIdleSessions(ctx context.Context, before time.Time) ([]*domain.Session, error)

	// AppendMessage stores a message and fills in its ID. Message time never
	// goes backwards within a session.
	AppendMessage(ctx context.Context, msg *domain.Message) error

	// ListMessages returns a session's messages in conversation order.
	ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error)

	// SaveFeedback upserts the report for a session and reports whether this
	// call created it.
	SaveFeedback(ctx context.Context, sessionID string, report domain.FeedbackReport) (bool, error)

	// GetFeedback retrieves the stored report for a session.
	GetFeedback(ctx context.Context, sessionID string) (*domain.StoredFeedback, error)

	// GetProgress retrieves a user's ledger.
	GetProgress(ctx context.Context, userID string) (*domain.Progress, error)

	// UpdateProgress runs fn over the user's ledger (created empty when
	// missing) and stores the result. Calls for the same user are serialized.
	UpdateProgress(ctx context.Context, userID string, fn func(p *domain.Progress) error) (*domain.Progress, error)

	// TopProgress returns ledgers ordered by total XP, highest first.
	TopProgress(ctx context.Context, limit int) ([]*domain.Progress, error)

	// CountProgressAbove counts ledgers with strictly more XP than xp.
	CountProgressAbove(ctx context.Context, xp int) (int, error)

	// CountProgress counts all ledgers.
	CountProgress(ctx context.Context) (int, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
