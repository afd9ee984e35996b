// Package progress keeps each user's gamification ledger: XP, levels,
// daily streaks, badges and per-mode statistics.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/commcoach/internal/domain"
	"github.com/ashureev/commcoach/internal/rank"
	"github.com/ashureev/commcoach/internal/store"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	recentSessionsLimit     = 10
	backfillLimit           = 10000
)

// Repository is the persistence the ledger needs.
type Repository interface {
	GetProgress(ctx context.Context, userID string) (*domain.Progress, error)
	UpdateProgress(ctx context.Context, userID string, fn func(p *domain.Progress) error) (*domain.Progress, error)
	TopProgress(ctx context.Context, limit int) ([]*domain.Progress, error)
	CountProgressAbove(ctx context.Context, xp int) (int, error)
	CountProgress(ctx context.Context) (int, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]*domain.Session, error)
}

// Summary describes the effect of one session on a ledger.
type Summary struct {
	SessionXP int      `json:"session_xp"`
	TotalXP   int      `json:"total_xp"`
	Level     int      `json:"level"`
	Streak    int      `json:"streak"`
	NewBadges []string `json:"new_badges"`
	LeveledUp bool     `json:"leveled_up"`
}

// RecentSession is a dashboard row for a past session.
type RecentSession struct {
	ID        string      `json:"id"`
	Mode      domain.Mode `json:"mode"`
	Topic     string      `json:"topic"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   *time.Time  `json:"ended_at"`
}

// Dashboard is the per-user progress overview.
type Dashboard struct {
	UserID              string                           `json:"user_id"`
	Level               int                              `json:"level"`
	TotalXP             int                              `json:"total_xp"`
	XPToNextLevel       int                              `json:"xp_to_next_level"`
	CurrentStreak       int                              `json:"current_streak"`
	LongestStreak       int                              `json:"longest_streak"`
	TotalSessions       int                              `json:"total_sessions"`
	Badges              []Badge                          `json:"badges"`
	Stats               map[domain.Mode]domain.ModeStats `json:"stats"`
	RecentSessions      []RecentSession                  `json:"recent_sessions"`
	LeaderboardPosition int                              `json:"leaderboard_position"`
	TotalUsers          int                              `json:"total_users"`
}

// Stats is the compact per-user statistics view.
type Stats struct {
	TotalSessions int                              `json:"total_sessions"`
	TotalXP       int                              `json:"total_xp"`
	CurrentLevel  int                              `json:"current_level"`
	CurrentStreak int                              `json:"current_streak"`
	LongestStreak int                              `json:"longest_streak"`
	BadgesEarned  int                              `json:"badges_earned"`
	ModeStats     map[domain.Mode]domain.ModeStats `json:"mode_stats"`
}

// LeaderboardEntry is one row of the leaderboard.
type LeaderboardEntry struct {
	UserID        string `json:"user_id" yaml:"user_id"`
	Level         int    `json:"level" yaml:"level"`
	TotalXP       int    `json:"total_xp" yaml:"total_xp"`
	CurrentStreak int    `json:"current_streak" yaml:"current_streak"`
	TotalSessions int    `json:"total_sessions" yaml:"total_sessions"`
	BadgeCount    int    `json:"badge_count" yaml:"badge_count"`
}

// Ledger applies session results to user progress.
type Ledger struct {
	repo   Repository
	board  rank.Board
	logger *slog.Logger
	now    func() time.Time
}

// NewLedger creates a ledger. board may be nil, in which case rankings are
// computed from the repository.
func NewLedger(repo Repository, board rank.Board, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		repo:   repo,
		board:  board,
		logger: logger,
		now:    time.Now,
	}
}

// Update records one completed session with its report.
func (l *Ledger) Update(ctx context.Context, userID string, mode domain.Mode, report domain.FeedbackReport) (Summary, error) {
	var summary Summary
	now := l.now()
	p, err := l.repo.UpdateProgress(ctx, userID, func(p *domain.Progress) error {
		summary = apply(p, mode, report, now)
		return nil
	})
	if err != nil {
		return Summary{}, fmt.Errorf("update progress: %w", err)
	}

	l.logger.Info("Progress updated",
		"user_id", userID,
		"mode", mode,
		"session_xp", summary.SessionXP,
		"total_xp", summary.TotalXP,
		"level", summary.Level,
		"new_badges", summary.NewBadges,
	)

	if l.board != nil {
		if err := l.board.Record(ctx, userID, p.TotalXP); err != nil {
			l.logger.Warn("failed to mirror rank", "user_id", userID, "error", err)
		}
	}
	return summary, nil
}

// ledgerOrEmpty returns the stored ledger, or an empty one without creating it.
func (l *Ledger) ledgerOrEmpty(ctx context.Context, userID string) (*domain.Progress, error) {
	p, err := l.repo.GetProgress(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewProgress(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

// Dashboard builds the progress overview for a user.
func (l *Ledger) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	p, err := l.ledgerOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}

	sessions, err := l.repo.ListSessions(ctx, userID, recentSessionsLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent sessions: %w", err)
	}
	recent := make([]RecentSession, 0, len(sessions))
	for _, s := range sessions {
		recent = append(recent, RecentSession{
			ID:        s.ID,
			Mode:      s.Mode,
			Topic:     s.Topic,
			StartedAt: s.StartedAt,
			EndedAt:   s.EndedAt,
		})
	}

	badges := make([]Badge, 0, len(p.Badges))
	for _, id := range p.Badges {
		if b, ok := BadgeByID(id); ok {
			badges = append(badges, b)
		}
	}

	position, total, err := l.position(ctx, p.TotalXP)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		UserID:              userID,
		Level:               p.CurrentLevel,
		TotalXP:             p.TotalXP,
		XPToNextLevel:       XPToNextLevel(p.TotalXP),
		CurrentStreak:       p.CurrentStreak,
		LongestStreak:       p.LongestStreak,
		TotalSessions:       p.TotalSessions,
		Badges:              badges,
		Stats:               p.Stats,
		RecentSessions:      recent,
		LeaderboardPosition: position,
		TotalUsers:          total,
	}, nil
}

// position returns the leaderboard position for totalXP and the number of
// ranked users, preferring the rank mirror when available.
func (l *Ledger) position(ctx context.Context, totalXP int) (int, int, error) {
	if l.board != nil {
		pos, posErr := l.board.Position(ctx, totalXP)
		count, countErr := l.board.Count(ctx)
		if posErr == nil && countErr == nil {
			return pos, max(count, pos), nil
		}
		l.logger.Warn("rank mirror unavailable, falling back to database", "error", errors.Join(posErr, countErr))
	}

	ahead, err := l.repo.CountProgressAbove(ctx, totalXP)
	if err != nil {
		return 0, 0, fmt.Errorf("count users ahead: %w", err)
	}
	total, err := l.repo.CountProgress(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count users: %w", err)
	}
	pos := ahead + 1
	return pos, max(total, pos), nil
}

// Stats returns the compact statistics view for a user.
func (l *Ledger) Stats(ctx context.Context, userID string) (*Stats, error) {
	p, err := l.ledgerOrEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalSessions: p.TotalSessions,
		TotalXP:       p.TotalXP,
		CurrentLevel:  p.CurrentLevel,
		CurrentStreak: p.CurrentStreak,
		LongestStreak: p.LongestStreak,
		BadgesEarned:  len(p.Badges),
		ModeStats:     p.Stats,
	}, nil
}

// Leaderboard returns the top users by total XP. limit defaults to 10 and is
// capped at 100.
func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	limit = min(limit, maxLeaderboardLimit)

	if l.board != nil {
		entries, err := l.leaderboardFromBoard(ctx, limit)
		if err == nil {
			return entries, nil
		}
		l.logger.Warn("rank mirror unavailable, falling back to database", "error", err)
	}

	top, err := l.repo.TopProgress(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top progress: %w", err)
	}
	out := make([]LeaderboardEntry, 0, len(top))
	for _, p := range top {
		out = append(out, entryFor(p))
	}
	return out, nil
}

func (l *Ledger) leaderboardFromBoard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	ranked, err := l.board.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(ranked))
	for _, r := range ranked {
		p, err := l.repo.GetProgress(ctx, r.UserID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get progress: %w", err)
		}
		out = append(out, entryFor(p))
	}
	return out, nil
}

func entryFor(p *domain.Progress) LeaderboardEntry {
	return LeaderboardEntry{
		UserID:        p.UserID,
		Level:         p.CurrentLevel,
		TotalXP:       p.TotalXP,
		CurrentStreak: p.CurrentStreak,
		TotalSessions: p.TotalSessions,
		BadgeCount:    len(p.Badges),
	}
}

// Backfill copies stored XP totals into the rank mirror.
func (l *Ledger) Backfill(ctx context.Context) (int, error) {
	if l.board == nil {
		return 0, nil
	}
	all, err := l.repo.TopProgress(ctx, backfillLimit)
	if err != nil {
		return 0, fmt.Errorf("top progress: %w", err)
	}
	for _, p := range all {
		if err := l.board.Record(ctx, p.UserID, p.TotalXP); err != nil {
			return 0, fmt.Errorf("record rank: %w", err)
		}
	}
	return len(all), nil
}
