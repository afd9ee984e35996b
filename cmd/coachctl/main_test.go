package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/commcoach/internal/domain"
	"github.com/ashureev/commcoach/internal/progress"
	"github.com/ashureev/commcoach/internal/store"
	"gopkg.in/yaml.v3"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "coachctl dev") || !strings.Contains(out, "commit: none") {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := runCmd(t, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, sub := range []string{"score", "personas", "leaderboard", "health", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help output to list %q, got: %s", sub, out)
		}
	}
}

func TestScorePlainText(t *testing.T) {
	path := writeFile(t, "speech.txt", "First, cities should ban cars because the data shows cleaner air. For example, Oslo did it. In conclusion, it works.")

	out, err := runCmd(t, "score", path, "--mode", "debate")
	if err != nil {
		t.Fatalf("score failed: %v\n%s", err, out)
	}
	var report domain.FeedbackReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Overall <= 0 || report.Overall > 100 {
		t.Errorf("unexpected overall %d", report.Overall)
	}
}

func TestScoreStructuredYAML(t *testing.T) {
	path := writeFile(t, "session.yaml", `mode: interview
turn_s: 30
messages:
  - role: user
    content: I led a migration of our billing system.
  - role: ai
    content: What was the hardest part?
  - role: user
    content: Um, like, coordinating the teams, you know.
`)

	out, err := runCmd(t, "score", path, "-o", "yaml")
	if err != nil {
		t.Fatalf("score failed: %v\n%s", err, out)
	}
	var report domain.FeedbackReport
	if err := yaml.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode yaml report: %v\n%s", err, out)
	}
	if len(report.Tips) == 0 {
		t.Errorf("expected tips, got %+v", report)
	}
}

func TestScoreEmptyTranscript(t *testing.T) {
	path := writeFile(t, "empty.json", `{"mode":"debate","messages":[{"role":"ai","content":"Go ahead."}]}`)

	out, err := runCmd(t, "score", path)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if !strings.Contains(out, "No speech detected") {
		t.Errorf("expected no-speech tip, got %s", out)
	}
}

func TestScoreRejectsUnknownFormat(t *testing.T) {
	path := writeFile(t, "speech.txt", "Hello there.")
	if _, err := runCmd(t, "score", path, "-o", "xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestPersonasCmd(t *testing.T) {
	out, err := runCmd(t, "personas")
	if err != nil {
		t.Fatalf("personas failed: %v", err)
	}
	if !strings.Contains(out, "hiring_manager") || !strings.Contains(out, "TYPE") {
		t.Errorf("unexpected personas table: %s", out)
	}

	out, err = runCmd(t, "personas", "-o", "json")
	if err != nil {
		t.Fatalf("personas json failed: %v", err)
	}
	var list []map[string]any
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode personas: %v", err)
	}
	if len(list) != 6 {
		t.Errorf("expected 6 personas, got %d", len(list))
	}
}

func TestLeaderboardCmd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "coach.db")
	repo, err := store.NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	ledger := progress.NewLedger(repo, nil, nil)
	ctx := context.Background()
	for userID, overall := range map[string]int{"anon_top": 90, "anon_low": 40} {
		if _, err := ledger.Update(ctx, userID, domain.ModeDebate, domain.FeedbackReport{Overall: overall}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}
	_ = repo.Close()

	out, err := runCmd(t, "leaderboard", "--db", dbPath, "-o", "yaml")
	if err != nil {
		t.Fatalf("leaderboard failed: %v\n%s", err, out)
	}
	var entries []progress.LeaderboardEntry
	if err := yaml.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != "anon_top" {
		t.Errorf("unexpected leaderboard %+v", entries)
	}

	out, err = runCmd(t, "leaderboard", "--db", dbPath, "-n", "1")
	if err != nil {
		t.Fatalf("leaderboard text failed: %v", err)
	}
	if !strings.Contains(out, "anon_top") || strings.Contains(out, "anon_low") {
		t.Errorf("unexpected table: %s", out)
	}
}

func TestLeaderboardMissingDatabase(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.db")
	if _, err := runCmd(t, "leaderboard", "--db", missing); err == nil {
		t.Fatal("expected error for a missing database")
	}
	if _, err := os.Stat(missing); err == nil {
		t.Error("leaderboard must not create a database")
	}
}

func TestHealthCmdUnreachable(t *testing.T) {
	start := time.Now()
	if _, err := runCmd(t, "health", "--addr", "127.0.0.1:1", "--timeout", "300ms"); err == nil {
		t.Fatal("expected health check against a closed port to fail")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("health check ignored the timeout")
	}
}
