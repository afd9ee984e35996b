package scoring

import (
	"fmt"

	"github.com/ashureev/commcoach/internal/domain"
)

// tips picks up to four coaching tips. Order is fixed so output is stable.
func tips(r domain.FeedbackReport, fillers, cues int, mode domain.Mode) []string {
	var out []string

	if fillers > 3 {
		out = append(out, fmt.Sprintf("Reduce filler words (found %d). Pause briefly instead of using 'um' or 'uh'.", fillers))
	}
	if r.Clarity < 70 {
		out = append(out, "Use shorter, clearer sentences. Break down complex ideas into simpler parts.")
	}
	if r.Structure < 70 {
		out = append(out, "Improve structure: Use transitions like 'first', 'second', 'however' to guide your audience.")
	}
	if cues < 2 {
		out = append(out, "Add evidence: Include examples, data, or studies to support your points.")
	}
	if r.Persuasiveness < 70 {
		out = append(out, "Strengthen your argument: Add specific examples or statistics to make your point more compelling.")
	}
	if r.Fluency < 70 {
		out = append(out, "Improve flow: Vary your sentence length and use connecting words to create smoother transitions.")
	}
	if r.Time < 80 {
		out = append(out, "Work on timing: Practice delivering your key points within the allocated time.")
	}

	switch {
	case mode == domain.ModeDebate && r.Persuasiveness < 80:
		out = append(out, "For debates: Address counterarguments directly and use stronger evidence.")
	case mode == domain.ModeInterview && r.Structure < 80:
		out = append(out, "For interviews: Use the STAR method (Situation, Task, Action, Result) to structure your answers.")
	case mode == domain.ModePresentation && r.Clarity < 80:
		out = append(out, "For presentations: Speak clearly and use visual cues to emphasize key points.")
	}

	if len(out) > maxTips {
		out = out[:maxTips]
	}
	if out == nil {
		out = []string{}
	}
	return out
}
