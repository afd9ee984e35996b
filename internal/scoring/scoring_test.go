package scoring

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ashureev/commcoach/internal/domain"
)

func cfg(turn int) domain.SessionConfig {
	c := domain.DefaultSessionConfig()
	c.TurnSeconds = turn
	return c
}

func TestAnalyzeEmptyTranscript(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "\n\t  \n"} {
		got := AnalyzeText(text, domain.ModeDebate, cfg(60))
		want := domain.FeedbackReport{Tips: []string{NoSpeechTip}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("AnalyzeText(%q) = %+v, want %+v", text, got, want)
		}
	}
}

func TestAnalyzeIgnoresAIMessages(t *testing.T) {
	t.Parallel()

	msgs := []domain.Message{
		{Role: domain.RoleAI, Content: "Let me open with a strong claim because data matters."},
		{Role: domain.RoleSystem, Content: "round 1"},
	}
	got := Analyze(msgs, domain.ModeGeneral, cfg(60))
	if got.Overall != 0 || len(got.Tips) != 1 || got.Tips[0] != NoSpeechTip {
		t.Fatalf("expected no-speech report, got %+v", got)
	}
}

func TestAnalyzeDebateScenario(t *testing.T) {
	t.Parallel()

	text := "First, AI creates jobs because new industries emerge. For example, labeling roles grew 20%. In summary, automation is net positive."
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: text},
		{Role: domain.RoleAI, Content: "What evidence supports the 20% figure?"},
	}
	got := Analyze(msgs, domain.ModeDebate, cfg(60))

	if got.Structure < 30+3*5 {
		t.Fatalf("expected structure to reflect at least 3 cues, got %d", got.Structure)
	}
	if got.Overall <= 50 {
		t.Fatalf("expected overall > 50, got %d", got.Overall)
	}

	want := domain.FeedbackReport{
		Clarity:        85,
		Structure:      65,
		Persuasiveness: 60,
		Fluency:        75,
		Time:           60,
		Overall:        69,
	}
	got.Tips = nil
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected scores: %+v", got)
	}
}

func TestAnalyzeDebateScenarioTips(t *testing.T) {
	t.Parallel()

	text := "First, AI creates jobs because new industries emerge. For example, labeling roles grew 20%. In summary, automation is net positive."
	got := AnalyzeText(text, domain.ModeDebate, cfg(60))
	if len(got.Tips) != 4 {
		t.Fatalf("expected 4 tips, got %d: %v", len(got.Tips), got.Tips)
	}
	if !strings.HasPrefix(got.Tips[0], "Improve structure") {
		t.Fatalf("unexpected first tip: %q", got.Tips[0])
	}
	if !strings.HasPrefix(got.Tips[3], "For debates") {
		t.Fatalf("expected debate tip last, got %q", got.Tips[3])
	}
}

func TestCountFillers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
	}{
		{"Um, I think, like, you know, it's basically ok", 5},
		{"So what do we do", 1},
		{"I said so.", 0},
		{"and um we continue", 2},
		{"Okay okay", 2},
		{"The umbrella is likely useful", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := CountFillers(tt.text); got != tt.want {
			t.Errorf("CountFillers(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestAnalyzeBounds(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("data study research example important crucial ", 200)
	rambling := strings.Repeat("um so like we basically kind of went on and um on ", 60)
	oneRunOn := strings.Repeat("word ", 45) + "."
	texts := []string{
		"Hi.",
		"...",
		"Yes. No. Maybe. Ok.",
		long,
		rambling,
		oneRunOn,
		"Let me introduce my case. Research indicates that, according to data, outcomes improve. Therefore we should act. To conclude, this matters.",
	}

	for _, mode := range domain.Modes {
		for _, text := range texts {
			r := AnalyzeText(text, mode, cfg(30))
			for name, v := range map[string]int{
				"clarity":        r.Clarity,
				"structure":      r.Structure,
				"persuasiveness": r.Persuasiveness,
				"fluency":        r.Fluency,
				"time":           r.Time,
				"overall":        r.Overall,
			} {
				if v < 0 || v > 100 {
					t.Fatalf("%s out of range for mode %s: %d", name, mode, v)
				}
			}
			if r.Clarity < 40 || r.Clarity > 85 {
				t.Fatalf("clarity outside [40,85]: %d", r.Clarity)
			}
			if r.Fluency < 30 {
				t.Fatalf("fluency below floor: %d", r.Fluency)
			}
			if r.Time < 30 || r.Time > 90 {
				t.Fatalf("time outside [30,90]: %d", r.Time)
			}
			sum := r.Clarity + r.Structure + r.Persuasiveness + r.Fluency + r.Time
			if r.Overall != sum/5 {
				t.Fatalf("overall %d != floor(%d/5)", r.Overall, sum)
			}
			if len(r.Tips) > 4 {
				t.Fatalf("too many tips: %d", len(r.Tips))
			}
		}
	}
}

func TestPersuasivenessCappedAfterMultiplier(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("evidence from the study shows data ", 200)
	r := AnalyzeText(text, domain.ModeDebate, cfg(600))
	if r.Persuasiveness != 100 {
		t.Fatalf("expected capped persuasiveness 100, got %d", r.Persuasiveness)
	}
	casual := AnalyzeText(text, domain.ModeCasual, cfg(600))
	if casual.Persuasiveness != 80 {
		t.Fatalf("expected casual multiplier to give 80, got %d", casual.Persuasiveness)
	}
}

func TestTimingScore(t *testing.T) {
	t.Parallel()

	words := func(n int) string { return strings.Repeat("word ", n) }
	tests := []struct {
		words int
		turn  int
		want  int
	}{
		{50, 60, 60},   // 20s, well under budget
		{130, 60, 90},  // 52s
		{150, 60, 90},  // exactly the budget
		{160, 60, 82},  // 64s: 4s over
		{1000, 60, 30}, // far over
	}
	for _, tt := range tests {
		got := AnalyzeText(words(tt.words), domain.ModeGeneral, cfg(tt.turn)).Time
		if got != tt.want {
			t.Errorf("%d words / %ds: got %d, want %d", tt.words, tt.turn, got, tt.want)
		}
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	t.Parallel()

	text := "Well, I'll start. Um, the data is basically clear, so we should act. In conclusion, act now."
	a := AnalyzeText(text, domain.ModeInterview, cfg(45))
	b := AnalyzeText(text, domain.ModeInterview, cfg(45))
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("non-deterministic output: %+v vs %+v", a, b)
	}
}
