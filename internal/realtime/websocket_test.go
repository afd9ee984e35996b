package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/commcoach/internal/domain"
	"github.com/ashureev/commcoach/internal/identity"
	"github.com/coder/websocket"
)

func newTestServer(t *testing.T, c *Conductor, userID string) string {
	t.Helper()
	h := NewWebSocketHandler(c, "*", true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), userID)))
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(ctx context.Context, t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func writeMsg(ctx context.Context, t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	if err := conn.Write(ctx, websocket.MessageText, []byte(raw)); err != nil {
		t.Fatalf("write %s: %v", raw, err)
	}
}

func readUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string) []map[string]any {
	t.Helper()
	var seen []map[string]any
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read while waiting for %s: %v", typ, err)
		}
		var f map[string]any
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		seen = append(seen, f)
		if f["type"] == typ {
			return seen
		}
	}
}

func TestWebSocketPracticeSession(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := newFakeStore(testSession("s1", "u1"))
	c := newTestConductor(repo, &fakeReplier{fragments: []string{"Tell me ", "more."}}, Options{})
	conn := dial(ctx, t, newTestServer(t, c, "u1"))
	defer conn.Close(websocket.StatusNormalClosure, "")

	writeMsg(ctx, t, conn, `{"type":"attach_session","session_id":"s1"}`)
	readUntil(ctx, t, conn, TypeSessionAttached)

	writeMsg(ctx, t, conn, `{"type":"start_round"}`)
	readUntil(ctx, t, conn, TypeRoundStarted)

	writeMsg(ctx, t, conn, `{"type":"user_text","text":"Offices waste time."}`)
	frames := readUntil(ctx, t, conn, TypeTurnSwitched)
	var tokens []string
	for _, f := range frames {
		if f["type"] == TypeAIToken {
			tokens = append(tokens, f["token"].(string))
		}
	}
	if strings.Join(tokens, "") != "Tell me more." {
		t.Fatalf("unexpected tokens %v", tokens)
	}

	writeMsg(ctx, t, conn, `{"type":"end"}`)
	readUntil(ctx, t, conn, TypeSessionEnded)
	if _, _, err := conn.Read(ctx); websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Fatalf("expected normal closure after end, got %v", err)
	}
	if s := repo.session("s1"); !s.IsEnded() {
		t.Fatal("session should be ended")
	}
}

func TestWebSocketDisconnectEndsSession(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	live := testSession("s1", "u1")
	live.State = domain.StateLive
	live.RoundNo = 1
	repo := newFakeStore(live)
	c := newTestConductor(repo, &fakeReplier{}, Options{})
	conn := dial(ctx, t, newTestServer(t, c, "u1"))

	writeMsg(ctx, t, conn, `{"type":"attach_session","session_id":"s1"}`)
	readUntil(ctx, t, conn, TypeSessionAttached)
	conn.Close(websocket.StatusGoingAway, "tab closed")

	deadline := time.Now().Add(5 * time.Second)
	for s := repo.session("s1"); !s.IsEnded(); s = repo.session("s1") {
		if time.Now().After(deadline) {
			t.Fatal("session was not ended after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
