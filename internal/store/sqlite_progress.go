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

const progressColumns = `user_id, total_sessions, total_xp, current_level, current_streak, longest_streak,
	last_session_at, badges_json, stats_json, created_at, updated_at`

func scanProgress(row rowScanner) (*domain.Progress, error) {
	p := domain.NewProgress("")
	var lastSession sql.NullInt64
	var badgesJSON, statsJSON string
	var createdAt, updatedAt int64

	if err := row.Scan(
		&p.UserID, &p.TotalSessions, &p.TotalXP, &p.CurrentLevel, &p.CurrentStreak, &p.LongestStreak,
		&lastSession, &badgesJSON, &statsJSON, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(badgesJSON), &p.Badges); err != nil {
		return nil, fmt.Errorf("decode badges: %w", err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &p.Stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	if p.Badges == nil {
		p.Badges = []string{}
	}
	if p.Stats == nil {
		p.Stats = make(map[domain.Mode]domain.ModeStats)
	}
	p.LastSessionAt = timeFromNullMillis(lastSession)
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return p, nil
}

// GetProgress retrieves a user's ledger.
func (s *SQLiteStore) GetProgress(ctx context.Context, userID string) (*domain.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = ?`
	p, err := scanProgress(s.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan progress row: %w", err)
	}
	return p, nil
}

// UpdateProgress performs a read-modify-write of one ledger. Updates for the
// same user are serialized in-process and each attempt runs in its own
// immediate transaction, retried on lock contention.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, userID string, fn func(p *domain.Progress) error) (*domain.Progress, error) {
	unlock := s.userLocks.lock(userID)
	defer unlock()

	var out *domain.Progress
	err := withConflictRetry(ctx, "update progress", func() error {
		return s.withImmediateTx(ctx, func(conn *sql.Conn) error {
			query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = ?`
			p, err := scanProgress(conn.QueryRowContext(ctx, query, userID))
			now := time.Now().UTC()
			switch {
			case errors.Is(err, sql.ErrNoRows):
				p = domain.NewProgress(userID)
				p.CreatedAt = now
			case err != nil:
				return fmt.Errorf("scan progress row: %w", err)
			}

			if err := fn(p); err != nil {
				return err
			}
			p.UpdatedAt = now

			if err := upsertProgress(ctx, conn, p); err != nil {
				return err
			}
			out = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func upsertProgress(ctx context.Context, conn *sql.Conn, p *domain.Progress) error {
	badgesJSON, err := json.Marshal(p.Badges)
	if err != nil {
		return fmt.Errorf("encode badges: %w", err)
	}
	statsJSON, err := json.Marshal(p.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	query := `
	INSERT INTO user_progress (` + progressColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		total_sessions = excluded.total_sessions,
		total_xp = excluded.total_xp,
		current_level = excluded.current_level,
		current_streak = excluded.current_streak,
		longest_streak = excluded.longest_streak,
		last_session_at = excluded.last_session_at,
		badges_json = excluded.badges_json,
		stats_json = excluded.stats_json,
		updated_at = excluded.updated_at`

	_, err = conn.ExecContext(ctx, query,
		p.UserID, p.TotalSessions, p.TotalXP, p.CurrentLevel, p.CurrentStreak, p.LongestStreak,
		nullableMillis(p.LastSessionAt), string(badgesJSON), string(statsJSON),
		p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// TopProgress returns ledgers ordered by total XP, highest first.
func (s *SQLiteStore) TopProgress(ctx context.Context, limit int) ([]*domain.Progress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress ORDER BY total_xp DESC, user_id ASC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close progress rows", "error", closeErr)
		}
	}()

	out := []*domain.Progress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

// CountProgressAbove counts ledgers with strictly more XP than xp.
func (s *SQLiteStore) CountProgressAbove(ctx context.Context, xp int) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_progress WHERE total_xp > ?`, xp).Scan(&n); err != nil {
		return 0, fmt.Errorf("count progress above: %w", err)
	}
	return n, nil
}

// CountProgress counts all ledgers.
func (s *SQLiteStore) CountProgress(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_progress`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count progress: %w", err)
	}
	return n, nil
}
