package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/commcoach/internal/domain"
)

const sessionColumns = `id, user_id, mode, topic, config_json, state, round_no, turn, started_at, ended_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var mode, state, turn, configJSON string
	var startedAt, updatedAt int64
	var endedAt sql.NullInt64

	if err := row.Scan(
		&s.ID, &s.UserID, &mode, &s.Topic, &configJSON,
		&state, &s.RoundNo, &turn, &startedAt, &endedAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(configJSON), &s.Config); err != nil {
		return nil, fmt.Errorf("decode session config: %w", err)
	}

	s.Mode = domain.Mode(mode)
	s.State = domain.SessionState(state)
	s.Turn = domain.Turn(turn)
	s.StartedAt = time.UnixMilli(startedAt).UTC()
	s.EndedAt = timeFromNullMillis(endedAt)
	s.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &s, nil
}

// CreateSession inserts a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	configJSON, err := json.Marshal(session.Config)
	if err != nil {
		return fmt.Errorf("encode session config: %w", err)
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.StartedAt
	}

	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		session.ID, session.UserID, string(session.Mode), session.Topic, string(configJSON),
		string(session.State), session.RoundNo, string(session.Turn),
		session.StartedAt.UnixMilli(), nullableMillis(session.EndedAt), session.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	session, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return session, nil
}

// UpdateSession persists state, round, turn and end time.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *domain.Session) error {
	query := `
		UPDATE sessions
		SET state = ?, round_no = ?, turn = ?, ended_at = ?, updated_at = MAX(updated_at, ?)
		WHERE id = ?`

	return withConflictRetry(ctx, "update session", func() error {
		result, err := s.db.ExecContext(ctx, query,
			string(session.State), session.RoundNo, string(session.Turn),
			nullableMillis(session.EndedAt), session.UpdatedAt.UnixMilli(), session.ID,
		)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListSessions returns a user's sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, userID string, limit int) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`
	return s.querySessions(ctx, query, userID, limit)
}

// ListIdleSessions returns sessions not yet ended whose last activity is before the given time.
func (s *SQLiteStore) ListIdleSessions(ctx context.Context, before time.Time) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE state != 'ended' AND updated_at < ?`
	return s.querySessions(ctx, query, before.UnixMilli())
}

func (s *SQLiteStore) querySessions(ctx context.Context, query string, args ...any) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close session rows", "error", closeErr)
		}
	}()

	sessions := []*domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// AppendMessage stores a message. The stored time is clamped so it never
// precedes the latest message already in the session.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	if msg.Time.IsZero() {
		msg.Time = time.Now()
	}
	query := `
		INSERT INTO messages (session_id, role, content, time)
		VALUES (?, ?, ?, MAX(?, COALESCE((SELECT MAX(time) FROM messages WHERE session_id = ?), 0)))
		RETURNING id, time`

	var stored int64
	err := withConflictRetry(ctx, "append message", func() error {
		if err := s.db.QueryRowContext(ctx, query,
			msg.SessionID, string(msg.Role), msg.Content, msg.Time.UnixMilli(), msg.SessionID,
		).Scan(&msg.ID, &stored); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	msg.Time = time.UnixMilli(stored).UTC()

	// Message activity keeps the session away from the idle sweeper.
	if _, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = MAX(updated_at, ?) WHERE id = ?`, stored, msg.SessionID,
	); err != nil {
		slog.Warn("failed to touch session", "session_id", msg.SessionID, "error", err)
	}
	return nil
}

// ListMessages returns a session's messages ordered by time then ID.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	query := `SELECT id, session_id, role, content, time FROM messages WHERE session_id = ? ORDER BY time, id`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	messages := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		var role string
		var ts int64
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.Role = domain.Role(role)
		m.Time = time.UnixMilli(ts).UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// SaveFeedback inserts the report or overwrites the existing one. The insert
// is attempted first so exactly one concurrent caller observes created=true.
func (s *SQLiteStore) SaveFeedback(ctx context.Context, sessionID string, report domain.FeedbackReport) (bool, error) {
	tips := report.Tips
	if tips == nil {
		tips = []string{}
	}
	tipsJSON, err := json.Marshal(tips)
	if err != nil {
		return false, fmt.Errorf("encode tips: %w", err)
	}
	now := time.Now().UnixMilli()

	var created bool
	err = withConflictRetry(ctx, "save feedback", func() error {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO feedback (session_id, clarity, structure, persuasiveness, fluency, time_score, overall, tips_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO NOTHING`,
			sessionID, report.Clarity, report.Structure, report.Persuasiveness, report.Fluency,
			report.Time, report.Overall, string(tipsJSON), now, now,
		)
		if err != nil {
			return fmt.Errorf("insert feedback: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 1 {
			created = true
			return nil
		}

		_, err = s.db.ExecContext(ctx, `
			UPDATE feedback
			SET clarity = ?, structure = ?, persuasiveness = ?, fluency = ?, time_score = ?, overall = ?, tips_json = ?, updated_at = ?
			WHERE session_id = ?`,
			report.Clarity, report.Structure, report.Persuasiveness, report.Fluency,
			report.Time, report.Overall, string(tipsJSON), now, sessionID,
		)
		if err != nil {
			return fmt.Errorf("update feedback: %w", err)
		}
		return nil
	})
	return created, err
}

// GetFeedback retrieves the stored report for a session.
func (s *SQLiteStore) GetFeedback(ctx context.Context, sessionID string) (*domain.StoredFeedback, error) {
	query := `
		SELECT session_id, clarity, structure, persuasiveness, fluency, time_score, overall, tips_json, created_at, updated_at
		FROM feedback WHERE session_id = ?`

	var fb domain.StoredFeedback
	var tipsJSON string
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&fb.SessionID, &fb.Report.Clarity, &fb.Report.Structure, &fb.Report.Persuasiveness,
		&fb.Report.Fluency, &fb.Report.Time, &fb.Report.Overall, &tipsJSON, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan feedback row: %w", err)
	}
	if err := json.Unmarshal([]byte(tipsJSON), &fb.Report.Tips); err != nil {
		return nil, fmt.Errorf("decode tips: %w", err)
	}
	fb.CreatedAt = time.UnixMilli(createdAt).UTC()
	fb.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &fb, nil
}
