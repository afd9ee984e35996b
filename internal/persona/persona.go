// Package persona holds the fixed catalogue of AI coaching personas and
// builds the system prompt for a session turn.
package persona

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/commcoach/internal/domain"
)

// ErrUnknownPersona is returned when a persona type is not in the catalogue.
var ErrUnknownPersona = errors.New("unknown persona")

// Type identifies a persona.
type Type string

const (
	FriendlyMentor          Type = "friendly_mentor"
	SocraticJudge           Type = "socratic_judge"
	HiringManager           Type = "hiring_manager"
	DebateChampion          Type = "debate_champion"
	PresentationCoach       Type = "presentation_coach"
	CasualConversationalist Type = "casual_conversationalist"
)

// Types lists every persona in catalogue order.
var Types = []Type{
	FriendlyMentor,
	SocraticJudge,
	HiringManager,
	DebateChampion,
	PresentationCoach,
	CasualConversationalist,
}

// Persona describes how the AI partner speaks and gives feedback.
type Persona struct {
	Type                 Type   `json:"type" yaml:"type"`
	Name                 string `json:"name" yaml:"name"`
	Description          string `json:"description" yaml:"description"`
	Tone                 string `json:"tone" yaml:"tone"`
	SpeakingStyle        string `json:"speaking_style" yaml:"speaking_style"`
	FeedbackStyle        string `json:"feedback_style" yaml:"feedback_style"`
	SystemPrompt         string `json:"system_prompt" yaml:"-"`
	VoiceCharacteristics string `json:"voice_characteristics" yaml:"voice_characteristics"`
}

// Summary is the short listing form of a persona.
type Summary struct {
	Type                 Type   `json:"type" yaml:"type"`
	Name                 string `json:"name" yaml:"name"`
	Description          string `json:"description" yaml:"description"`
	Tone                 string `json:"tone" yaml:"tone"`
	VoiceCharacteristics string `json:"voice_characteristics" yaml:"voice_characteristics"`
}

// Parse validates a persona type string.
func Parse(s string) (Type, error) {
	t := Type(strings.TrimSpace(s))
	if _, ok := catalogue[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPersona, s)
	}
	return t, nil
}

// Lookup returns the persona for t, falling back to the friendly mentor.
func Lookup(t Type) Persona {
	if p, ok := catalogue[t]; ok {
		return p
	}
	return catalogue[FriendlyMentor]
}

// ByName finds a persona by display name, case-insensitively.
func ByName(name string) Persona {
	for _, t := range Types {
		if strings.EqualFold(catalogue[t].Name, name) {
			return catalogue[t]
		}
	}
	return catalogue[FriendlyMentor]
}

// ForMode returns the recommended persona for a practice mode.
func ForMode(m domain.Mode) Type {
	switch m {
	case domain.ModeDebate:
		return DebateChampion
	case domain.ModeInterview:
		return HiringManager
	case domain.ModePresentation:
		return PresentationCoach
	case domain.ModeCasual:
		return CasualConversationalist
	default:
		return FriendlyMentor
	}
}

// Resolve picks the persona for a session: the configured one when valid,
// otherwise the mode's recommendation.
func Resolve(cfg domain.SessionConfig, m domain.Mode) Type {
	if t, err := Parse(cfg.Persona); err == nil {
		return t
	}
	return ForMode(m)
}

// All returns the listing form of every persona.
func All() []Summary {
	out := make([]Summary, 0, len(Types))
	for _, t := range Types {
		p := catalogue[t]
		out = append(out, Summary{
			Type:                 p.Type,
			Name:                 p.Name,
			Description:          p.Description,
			Tone:                 p.Tone,
			VoiceCharacteristics: p.VoiceCharacteristics,
		})
	}
	return out
}

// Context is the per-turn information appended to a persona prompt.
type Context struct {
	Mode        domain.Mode
	Topic       string
	Round       int
	Rounds      int
	Turn        domain.Turn
	TurnSeconds int
}

// SystemPrompt returns the persona prompt followed by the turn context.
func SystemPrompt(t Type, c Context) string {
	var b strings.Builder
	b.WriteString(Lookup(t).SystemPrompt)
	fmt.Fprintf(&b, "\nMode: %s\nTopic: %s\nRound: %d/%d\nTurn: %s\nTime limit: %d seconds\n",
		c.Mode, c.Topic, c.Round, c.Rounds, c.Turn, c.TurnSeconds)
	return b.String()
}
