package persona

import (
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/commcoach/internal/domain"
)

func TestCatalogueComplete(t *testing.T) {
	t.Parallel()

	if len(catalogue) != len(Types) {
		t.Fatalf("catalogue has %d entries, Types has %d", len(catalogue), len(Types))
	}
	for _, typ := range Types {
		p, ok := catalogue[typ]
		if !ok {
			t.Fatalf("missing persona %s", typ)
		}
		if p.Type != typ {
			t.Fatalf("persona %s has type %s", typ, p.Type)
		}
		if p.Name == "" || p.SystemPrompt == "" || p.Tone == "" {
			t.Fatalf("persona %s is incomplete: %+v", typ, p)
		}
	}
}

func TestForMode(t *testing.T) {
	t.Parallel()

	tests := map[domain.Mode]Type{
		domain.ModeDebate:       DebateChampion,
		domain.ModeInterview:    HiringManager,
		domain.ModePresentation: PresentationCoach,
		domain.ModeCasual:       CasualConversationalist,
		domain.ModeGeneral:      FriendlyMentor,
		domain.Mode("poetry"):   FriendlyMentor,
	}
	for mode, want := range tests {
		if got := ForMode(mode); got != want {
			t.Errorf("ForMode(%q) = %s, want %s", mode, got, want)
		}
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	got, err := Parse("socratic_judge")
	if err != nil || got != SocraticJudge {
		t.Fatalf("Parse(socratic_judge) = %s, %v", got, err)
	}
	if _, err := Parse("pirate"); !errors.Is(err, ErrUnknownPersona) {
		t.Fatalf("expected ErrUnknownPersona, got %v", err)
	}
	if _, err := Parse(""); !errors.Is(err, ErrUnknownPersona) {
		t.Fatalf("expected ErrUnknownPersona for empty, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	cfg := domain.DefaultSessionConfig()
	if got := Resolve(cfg, domain.ModeInterview); got != HiringManager {
		t.Fatalf("empty persona should follow mode, got %s", got)
	}
	cfg.Persona = string(SocraticJudge)
	if got := Resolve(cfg, domain.ModeInterview); got != SocraticJudge {
		t.Fatalf("configured persona should win, got %s", got)
	}
}

func TestLookupFallsBack(t *testing.T) {
	t.Parallel()

	if got := Lookup("nope"); got.Type != FriendlyMentor {
		t.Fatalf("Lookup fallback = %s", got.Type)
	}
	if got := ByName("debate CHAMPION"); got.Type != DebateChampion {
		t.Fatalf("ByName = %s", got.Type)
	}
}

func TestAllOrder(t *testing.T) {
	t.Parallel()

	all := All()
	if len(all) != 6 {
		t.Fatalf("expected 6 personas, got %d", len(all))
	}
	for i, s := range all {
		if s.Type != Types[i] {
			t.Fatalf("position %d: got %s, want %s", i, s.Type, Types[i])
		}
	}
}

func TestSystemPromptContext(t *testing.T) {
	t.Parallel()

	got := SystemPrompt(DebateChampion, Context{
		Mode:        domain.ModeDebate,
		Topic:       "Universities should be free",
		Round:       1,
		Rounds:      2,
		Turn:        domain.TurnUser,
		TurnSeconds: 60,
	})
	if !strings.HasPrefix(got, catalogue[DebateChampion].SystemPrompt) {
		t.Fatal("prompt should start with the persona prompt")
	}
	want := "\nMode: debate\nTopic: Universities should be free\nRound: 1/2\nTurn: user\nTime limit: 60 seconds\n"
	if !strings.HasSuffix(got, want) {
		t.Fatalf("unexpected context block:\n%s", got)
	}
}
