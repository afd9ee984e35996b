package domain

import (
	"slices"
	"time"
)

// ModeStats tracks per-mode running statistics.
type ModeStats struct {
	Sessions     int     `json:"sessions"`
	TotalScore   int     `json:"total_score"`
	BestScore    int     `json:"best_score"`
	AverageScore float64 `json:"average_score"`
}

// Progress is the cumulative gamification ledger of one user.
type Progress struct {
	UserID        string             `json:"user_id"`
	TotalSessions int                `json:"total_sessions"`
	TotalXP       int                `json:"total_xp"`
	CurrentLevel  int                `json:"current_level"`
	CurrentStreak int                `json:"current_streak"`
	LongestStreak int                `json:"longest_streak"`
	LastSessionAt *time.Time         `json:"last_session_at,omitempty"`
	Badges        []string           `json:"badges"`
	Stats         map[Mode]ModeStats `json:"stats"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// NewProgress returns an empty ledger for a user.
func NewProgress(userID string) *Progress {
	return &Progress{
		UserID:       userID,
		CurrentLevel: 1,
		Badges:       []string{},
		Stats:        make(map[Mode]ModeStats),
	}
}

// HasBadge reports whether id has been earned.
func (p *Progress) HasBadge(id string) bool {
	return slices.Contains(p.Badges, id)
}

// AddBadge records id if it has not been earned yet. It returns true when added.
func (p *Progress) AddBadge(id string) bool {
	if p.HasBadge(id) {
		return false
	}
	p.Badges = append(p.Badges, id)
	return true
}
