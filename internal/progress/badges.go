package progress

import "github.com/ashureev/commcoach/internal/domain"

// Badge IDs.
const (
	BadgeFirstSession     = "first_session"
	BadgeStreak3          = "streak_3"
	BadgeStreak7          = "streak_7"
	BadgeStreak30         = "streak_30"
	BadgeLevel5           = "level_5"
	BadgeLevel10          = "level_10"
	BadgeDebateMaster     = "debate_master"
	BadgeInterviewPro     = "interview_pro"
	BadgePresentationGuru = "presentation_guru"
	BadgeHighScore        = "high_score"
	BadgePerfectSession   = "perfect_session"
)

// Badge is an achievement with an XP reward.
type Badge struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
	XPReward    int    `json:"xp_reward" yaml:"xp_reward"`
}

var catalog = []Badge{
	{ID: BadgeFirstSession, Name: "Getting Started", Description: "Complete your first practice session", Icon: "🎯", XPReward: 50},
	{ID: BadgeStreak3, Name: "On Fire", Description: "Practice for 3 days in a row", Icon: "🔥", XPReward: 100},
	{ID: BadgeStreak7, Name: "Consistent", Description: "Practice for 7 days in a row", Icon: "⭐", XPReward: 250},
	{ID: BadgeStreak30, Name: "Dedicated", Description: "Practice for 30 days in a row", Icon: "🏆", XPReward: 1000},
	{ID: BadgeLevel5, Name: "Rising Star", Description: "Reach level 5", Icon: "🌟", XPReward: 0},
	{ID: BadgeLevel10, Name: "Expert", Description: "Reach level 10", Icon: "💎", XPReward: 0},
	{ID: BadgeDebateMaster, Name: "Debate Master", Description: "Complete 10 debate sessions", Icon: "⚔️", XPReward: 200},
	{ID: BadgeInterviewPro, Name: "Interview Pro", Description: "Complete 10 interview sessions", Icon: "💼", XPReward: 200},
	{ID: BadgePresentationGuru, Name: "Presentation Guru", Description: "Complete 10 presentation sessions", Icon: "🎤", XPReward: 200},
	{ID: BadgeHighScore, Name: "High Achiever", Description: "Score 90+ overall in a session", Icon: "🎯", XPReward: 150},
	{ID: BadgePerfectSession, Name: "Perfect Session", Description: "Score 95+ in all categories", Icon: "💯", XPReward: 300},
}

// modeBadges maps a mode to the badge earned after masterySessions sessions of it.
var modeBadges = map[domain.Mode]string{
	domain.ModeDebate:       BadgeDebateMaster,
	domain.ModeInterview:    BadgeInterviewPro,
	domain.ModePresentation: BadgePresentationGuru,
}

// Badges returns the badge catalogue in display order.
func Badges() []Badge {
	out := make([]Badge, len(catalog))
	copy(out, catalog)
	return out
}

// BadgeByID looks up a catalogue entry.
func BadgeByID(id string) (Badge, bool) {
	for _, b := range catalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}
