// Package agent generates the AI practice partner's replies.
package agent

import (
	"time"

	"github.com/ashureev/commcoach/internal/domain"
	"github.com/ashureev/commcoach/internal/persona"
)

// FallbackReply is returned whenever the text model cannot produce a reply.
const FallbackReply = "Let's refine the claim, add one example or statistic, and tie it to impact. What's your strongest evidence?"

// Prompt carries everything needed to produce one AI turn.
type Prompt struct {
	Persona     persona.Type
	Mode        domain.Mode
	Topic       string
	Round       int
	Rounds      int
	Turn        domain.Turn
	TurnSeconds int
	UserText    string
}

// System returns the system instruction for the prompt.
func (p Prompt) System() string {
	return persona.SystemPrompt(p.Persona, persona.Context{
		Mode:        p.Mode,
		Topic:       p.Topic,
		Round:       p.Round,
		Rounds:      p.Rounds,
		Turn:        p.Turn,
		TurnSeconds: p.TurnSeconds,
	})
}

// PromptFor builds the prompt for the AI's reply to userText in session s.
func PromptFor(s *domain.Session, userText string) Prompt {
	return Prompt{
		Persona:     persona.Resolve(s.Config, s.Mode),
		Mode:        s.Mode,
		Topic:       s.Topic,
		Round:       s.RoundNo,
		Rounds:      s.Config.Rounds,
		Turn:        domain.TurnAI,
		TurnSeconds: s.Config.TurnSeconds,
		UserText:    userText,
	}
}

// Config holds generator and model configuration.
type Config struct {
	ModelName        string
	APIKey           string
	Temperature      float32
	TopP             float32
	TopK             float32
	MaxOutputTokens  int32
	MaxAttempts      int
	FailureThreshold int
	InitialBackoff   time.Duration
}

// DefaultConfig returns default generator configuration.
func DefaultConfig() Config {
	return Config{
		ModelName:        "gemini-1.5-flash",
		Temperature:      0.6,
		TopP:             0.9,
		TopK:             40,
		MaxOutputTokens:  256,
		MaxAttempts:      4,
		FailureThreshold: 3,
		InitialBackoff:   600 * time.Millisecond,
	}
}

// Stats reports the breaker state.
type Stats struct {
	Open                bool `json:"breaker_open"`
	ConsecutiveFailures int  `json:"consecutive_failures"`
}
