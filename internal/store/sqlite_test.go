package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/commcoach/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newSession(id, userID string, started time.Time) *domain.Session {
	return &domain.Session{
		ID:        id,
		UserID:    userID,
		Mode:      domain.ModeDebate,
		Topic:     "Universities should be free",
		Config:    domain.DefaultSessionConfig(),
		State:     domain.StateCreated,
		Turn:      domain.TurnUser,
		StartedAt: started,
		UpdatedAt: started,
	}
}

func TestUserRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.GetUser(ctx, "anon_x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	now := time.Now()
	if err := s.UpsertUser(ctx, &domain.User{UserID: "anon_x", Username: "anon-x", LastSeenAt: now, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	u, err := s.GetUser(ctx, "anon_x")
	if err != nil || u.Username != "anon-x" {
		t.Fatalf("GetUser = %+v, %v", u, err)
	}
	if err := s.UpdateLastSeen(ctx, "anon_x", now.Add(time.Hour)); err != nil {
		t.Fatalf("UpdateLastSeen failed: %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Now().UTC().Truncate(time.Millisecond)
	sess := newSession("s1", "u1", start)
	sess.Config.Persona = "socratic_judge"
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Config != sess.Config || got.State != domain.StateCreated || !got.StartedAt.Equal(start) {
		t.Fatalf("unexpected session: %+v", got)
	}

	ended := start.Add(time.Minute)
	got.State = domain.StateEnded
	got.RoundNo = 2
	got.Turn = domain.TurnAI
	got.EndedAt = &ended
	got.UpdatedAt = ended
	got.Topic = "rewritten"
	if err := s.UpdateSession(ctx, got); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	again, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if again.State != domain.StateEnded || again.RoundNo != 2 || again.Turn != domain.TurnAI {
		t.Fatalf("update not persisted: %+v", again)
	}
	if again.EndedAt == nil || !again.EndedAt.Equal(ended) {
		t.Fatalf("ended_at not persisted: %v", again.EndedAt)
	}
	if again.Topic != "Universities should be free" {
		t.Fatalf("topic must be immutable, got %q", again.Topic)
	}

	if _, err := s.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateSession(ctx, newSession("missing", "u1", start)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		if err := s.CreateSession(ctx, newSession(id, "u1", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}
	if err := s.CreateSession(ctx, newSession("other", "u2", base)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	list, err := s.ListSessions(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Fatalf("unexpected order: %v", ids(list))
	}
}

func TestListIdleSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	old := time.Now().Add(-2 * time.Hour).UTC()
	if err := s.CreateSession(ctx, newSession("stale", "u1", old)); err != nil {
		t.Fatal(err)
	}
	ended := newSession("ended", "u1", old)
	ended.State = domain.StateEnded
	ended.EndedAt = &old
	if err := s.CreateSession(ctx, ended); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSession(ctx, newSession("fresh", "u1", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	idle, err := s.ListIdleSessions(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListIdleSessions failed: %v", err)
	}
	if len(idle) != 1 || idle[0].ID != "stale" {
		t.Fatalf("unexpected idle sessions: %v", ids(idle))
	}

	// A new message counts as activity.
	if err := s.AppendMessage(ctx, &domain.Message{SessionID: "stale", Role: domain.RoleUser, Content: "hi", Time: time.Now()}); err != nil {
		t.Fatal(err)
	}
	idle, err = s.ListIdleSessions(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(idle) != 0 {
		t.Fatalf("message should refresh activity, got %v", ids(idle))
	}
}

func TestMessagesOrderedAndMonotonic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	msgs := []*domain.Message{
		{SessionID: "s1", Role: domain.RoleUser, Content: "one", Time: now},
		{SessionID: "s1", Role: domain.RoleAI, Content: "two", Time: now},
		{SessionID: "s1", Role: domain.RoleUser, Content: "three", Time: now.Add(-time.Second)},
		{SessionID: "s2", Role: domain.RoleUser, Content: "elsewhere", Time: now},
	}
	for _, m := range msgs {
		if err := s.AppendMessage(ctx, m); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
		if m.ID == 0 {
			t.Fatal("expected message ID to be assigned")
		}
	}
	if !msgs[2].Time.Equal(now) {
		t.Fatalf("backdated message should be clamped to %v, got %v", now, msgs[2].Time)
	}

	got, err := s.ListMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Content != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, got[i].Content, want[i])
		}
		if i > 0 && got[i].Time.Before(got[i-1].Time) {
			t.Fatal("message times must be non-decreasing")
		}
	}
}

func TestSaveFeedbackUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	first := domain.FeedbackReport{Clarity: 80, Structure: 60, Persuasiveness: 70, Fluency: 75, Time: 60, Overall: 69, Tips: []string{"a"}}
	created, err := s.SaveFeedback(ctx, "s1", first)
	if err != nil || !created {
		t.Fatalf("first save: created=%v err=%v", created, err)
	}

	second := first
	second.Overall = 90
	second.Tips = nil
	created, err = s.SaveFeedback(ctx, "s1", second)
	if err != nil || created {
		t.Fatalf("second save: created=%v err=%v", created, err)
	}

	got, err := s.GetFeedback(ctx, "s1")
	if err != nil {
		t.Fatalf("GetFeedback failed: %v", err)
	}
	if got.Report.Overall != 90 || len(got.Report.Tips) != 0 {
		t.Fatalf("expected overwrite, got %+v", got.Report)
	}
	if _, err := s.GetFeedback(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProgressCreatesAndPersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.GetProgress(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	last := time.Now().UTC().Truncate(time.Millisecond)
	_, err := s.UpdateProgress(ctx, "u1", func(p *domain.Progress) error {
		if p.CurrentLevel != 1 || p.TotalXP != 0 {
			t.Errorf("expected fresh ledger, got %+v", p)
		}
		p.TotalSessions = 1
		p.TotalXP = 150
		p.LastSessionAt = &last
		p.AddBadge("first_session")
		p.Stats[domain.ModeDebate] = domain.ModeStats{Sessions: 1, TotalScore: 69, BestScore: 69, AverageScore: 69}
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}

	got, err := s.GetProgress(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if got.TotalXP != 150 || !got.HasBadge("first_session") || got.Stats[domain.ModeDebate].BestScore != 69 {
		t.Fatalf("unexpected ledger: %+v", got)
	}
	if got.LastSessionAt == nil || !got.LastSessionAt.Equal(last) {
		t.Fatalf("last session not persisted: %v", got.LastSessionAt)
	}
}

func TestUpdateProgressErrorRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	boom := errors.New("boom")
	_, err := s.UpdateProgress(ctx, "u1", func(p *domain.Progress) error {
		p.TotalXP = 999
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.GetProgress(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("failed update must not persist, got %v", err)
	}
}

func TestUpdateProgressConcurrentIncrements(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.UpdateProgress(ctx, "u1", func(p *domain.Progress) error {
				p.TotalSessions++
				p.TotalXP += 100
				return nil
			}); err != nil {
				t.Errorf("UpdateProgress failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.GetProgress(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalSessions != n || got.TotalXP != n*100 {
		t.Fatalf("lost updates: sessions=%d xp=%d", got.TotalSessions, got.TotalXP)
	}
}

func TestLeaderboardQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	for user, xp := range map[string]int{"a": 300, "b": 1200, "c": 300, "d": 50} {
		if _, err := s.UpdateProgress(ctx, user, func(p *domain.Progress) error {
			p.TotalXP = xp
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	top, err := s.TopProgress(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 3 || top[0].UserID != "b" || top[1].UserID != "a" || top[2].UserID != "c" {
		t.Fatalf("unexpected leaderboard order")
	}

	ahead, err := s.CountProgressAbove(ctx, 300)
	if err != nil || ahead != 1 {
		t.Fatalf("CountProgressAbove(300) = %d, %v", ahead, err)
	}
	total, err := s.CountProgress(ctx)
	if err != nil || total != 4 {
		t.Fatalf("CountProgress = %d, %v", total, err)
	}
}

func ids(sessions []*domain.Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID)
	}
	return out
}
