package progress

import (
	"time"

	"github.com/ashureev/commcoach/internal/domain"
)

const (
	baseSessionXP   = 100
	xpPerLevel      = 1000
	maxLevel        = 100
	masterySessions = 10
)

// SessionXP returns the XP awarded for a session with the given overall score.
func SessionXP(overall int) int {
	var multiplier float64
	switch {
	case overall >= 95:
		multiplier = 1.5
	case overall >= 90:
		multiplier = 1.3
	case overall >= 80:
		multiplier = 1.1
	case overall >= 70:
		multiplier = 1.0
	default:
		multiplier = 0.8
	}
	return int(baseSessionXP * multiplier)
}

// LevelFor returns the level reached with totalXP.
func LevelFor(totalXP int) int {
	return min(maxLevel, totalXP/xpPerLevel+1)
}

// XPToNextLevel returns the XP still needed for the next level boundary.
func XPToNextLevel(totalXP int) int {
	return xpPerLevel - totalXP%xpPerLevel
}

// apply folds one completed session into p and returns the summary.
func apply(p *domain.Progress, mode domain.Mode, report domain.FeedbackReport, now time.Time) Summary {
	oldLevel := p.CurrentLevel
	sessionXP := SessionXP(report.Overall)

	p.TotalSessions++
	p.TotalXP += sessionXP
	updateStreak(p, now)
	updateModeStats(p, mode, report.Overall)
	p.CurrentLevel = LevelFor(p.TotalXP)

	newBadges := []string{}
	// Badge XP can cross a level boundary and unlock a level badge.
	for {
		earned := eligibleBadges(p, report)
		if len(earned) == 0 {
			break
		}
		for _, id := range earned {
			if !p.AddBadge(id) {
				continue
			}
			newBadges = append(newBadges, id)
			if b, ok := BadgeByID(id); ok {
				p.TotalXP += b.XPReward
			}
		}
		p.CurrentLevel = LevelFor(p.TotalXP)
	}

	return Summary{
		SessionXP: sessionXP,
		TotalXP:   p.TotalXP,
		Level:     p.CurrentLevel,
		Streak:    p.CurrentStreak,
		NewBadges: newBadges,
		LeveledUp: p.CurrentLevel > oldLevel,
	}
}

// updateStreak advances the daily streak using UTC calendar days.
func updateStreak(p *domain.Progress, now time.Time) {
	today := utcDay(now)
	switch {
	case p.LastSessionAt == nil:
		p.CurrentStreak = 1
	case utcDay(*p.LastSessionAt).Equal(today):
		// Same day: streak unchanged.
	case utcDay(*p.LastSessionAt).AddDate(0, 0, 1).Equal(today):
		p.CurrentStreak++
	default:
		p.CurrentStreak = 1
	}
	p.CurrentStreak = max(p.CurrentStreak, 1)
	p.LongestStreak = max(p.LongestStreak, p.CurrentStreak)

	last := now.UTC()
	p.LastSessionAt = &last
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func updateModeStats(p *domain.Progress, mode domain.Mode, overall int) {
	if p.Stats == nil {
		p.Stats = make(map[domain.Mode]domain.ModeStats)
	}
	s := p.Stats[mode]
	s.Sessions++
	s.TotalScore += overall
	s.BestScore = max(s.BestScore, overall)
	s.AverageScore = float64(s.TotalScore) / float64(s.Sessions)
	p.Stats[mode] = s
}

// eligibleBadges lists badges whose conditions hold but are not yet held.
func eligibleBadges(p *domain.Progress, r domain.FeedbackReport) []string {
	var out []string
	add := func(id string, cond bool) {
		if cond && !p.HasBadge(id) {
			out = append(out, id)
		}
	}

	add(BadgeFirstSession, p.TotalSessions >= 1)
	add(BadgeStreak3, p.CurrentStreak >= 3)
	add(BadgeStreak7, p.CurrentStreak >= 7)
	add(BadgeStreak30, p.CurrentStreak >= 30)
	add(BadgeLevel5, p.CurrentLevel >= 5)
	add(BadgeLevel10, p.CurrentLevel >= 10)
	for _, mode := range domain.Modes {
		if id, ok := modeBadges[mode]; ok {
			add(id, p.Stats[mode].Sessions >= masterySessions)
		}
	}
	add(BadgeHighScore, r.Overall >= 90)
	add(BadgePerfectSession, r.Clarity >= 95 && r.Structure >= 95 && r.Persuasiveness >= 95 && r.Fluency >= 95)
	return out
}
