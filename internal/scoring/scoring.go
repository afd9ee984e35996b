// Package scoring turns a practice transcript into a feedback report.
//
// Scoring is a pure function of the user's words, the practice mode and the
// per-turn time budget. The same input always produces the same report.
package scoring

import (
	"math"
	"strings"
	"unicode"

	"github.com/ashureev/commcoach/internal/domain"
)

// NoSpeechTip is the only tip returned for an empty transcript.
const NoSpeechTip = "No speech detected"

const (
	speakingWordsPerMinute = 150
	maxTips                = 4
)

// Transcript joins the user turns of a conversation with single spaces.
func Transcript(messages []domain.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.RoleUser {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, " ")
}

// Analyze scores the user turns of messages.
func Analyze(messages []domain.Message, mode domain.Mode, cfg domain.SessionConfig) domain.FeedbackReport {
	return AnalyzeText(Transcript(messages), mode, cfg)
}

// AnalyzeText scores a transcript that already contains only user speech.
func AnalyzeText(text string, mode domain.Mode, cfg domain.SessionConfig) domain.FeedbackReport {
	if strings.TrimSpace(text) == "" {
		return domain.FeedbackReport{Tips: []string{NoSpeechTip}}
	}

	turnSeconds := cfg.TurnSeconds
	if turnSeconds <= 0 {
		turnSeconds = domain.DefaultTurnSeconds
	}

	t := newTextStats(text)
	structure, cues := t.structure()

	report := domain.FeedbackReport{
		Clarity:        t.clarity(),
		Structure:      structure,
		Persuasiveness: t.persuasiveness(mode),
		Fluency:        t.fluency(),
		Time:           t.timing(turnSeconds),
	}
	report.Overall = (report.Clarity + report.Structure + report.Persuasiveness + report.Fluency + report.Time) / 5
	report.Tips = tips(report, t.fillers, cues, mode)
	return report
}

type textStats struct {
	lower     string
	words     int
	sentences []int // word count per sentence
	fillers   int
}

func newTextStats(text string) textStats {
	t := textStats{
		lower:   strings.ToLower(text),
		words:   len(strings.Fields(text)),
		fillers: CountFillers(text),
	}
	for _, s := range sentenceBreak.Split(text, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		t.sentences = append(t.sentences, len(strings.Fields(s)))
	}
	return t
}

// CountFillers counts filler words and hedges in text.
func CountFillers(text string) int {
	total := len(hesitationPattern.FindAllStringIndex(text, -1))
	total += len(intensifierPattern.FindAllStringIndex(text, -1))
	total += len(conjunctionPattern.FindAllStringIndex(text, -1))
	for _, loc := range discoursePattern.FindAllStringIndex(text, -1) {
		if loc[1] == len(text) {
			total++
			continue
		}
		r := []rune(text[loc[1]:])[0]
		if unicode.IsSpace(r) {
			total++
		}
	}
	return total
}

func (t textStats) clarity() int {
	if len(t.sentences) == 0 {
		return 50
	}
	fillerPenalty := min(25, t.fillers*2)

	long, short := 0, 0
	for _, n := range t.sentences {
		if n > 30 {
			long++
		}
		if n < 3 {
			short++
		}
	}
	complexityPenalty := long * 5
	choppinessPenalty := min(10, short*2)

	return max(40, 85-fillerPenalty-complexityPenalty-choppinessPenalty)
}

// structure returns the structure score and the number of structural cues found.
func (t textStats) structure() (int, int) {
	cues := countContained(t.lower, transitionCues) +
		countContained(t.lower, connectorCues) +
		countContained(t.lower, evidenceCues)

	score := 30 + cues*5
	if countContained(head(t.lower, 100), introCues) > 0 {
		score += 20
	}
	if countContained(tail(t.lower, 100), conclusionCues) > 0 {
		score += 20
	}
	return min(100, score), cues
}

func (t textStats) persuasiveness(mode domain.Mode) int {
	emotional := countContained(t.lower, emotionalWords)
	evidence := countContained(t.lower, evidenceWords)

	base := math.Min(100, 40+float64(t.words)/10+float64(emotional*5)+float64(evidence*8))
	multiplier, ok := modeMultipliers[string(mode)]
	if !ok {
		multiplier = 1.0
	}
	return min(100, int(base*multiplier))
}

func (t textStats) fluency() int {
	if len(t.sentences) == 0 {
		return 50
	}
	total := 0
	for _, n := range t.sentences {
		total += n
	}
	avg := float64(total) / float64(len(t.sentences))
	fillerPenalty := float64(min(30, t.fillers*3))

	return int(math.Max(30, 80-fillerPenalty-math.Abs(avg-15)*0.5))
}

func (t textStats) timing(turnSeconds int) int {
	estimated := float64(t.words) / speakingWordsPerMinute * 60
	budget := float64(turnSeconds)

	switch {
	case estimated <= budget*0.8:
		return 60
	case estimated <= budget:
		return 90
	default:
		return int(math.Max(30, 90-(estimated-budget)*2))
	}
}

func countContained(text string, cues []string) int {
	n := 0
	for _, c := range cues {
		if strings.Contains(text, c) {
			n++
		}
	}
	return n
}

func head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
