// Package realtime drives live practice sessions over a duplex connection.
//
// A client attaches to a session, optionally starts preparation, then
// alternates rounds: each user turn is persisted, answered by the response
// generator token by token, persisted again and followed by a turn switch.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
)

// Inbound message types.
const (
	TypeAttachSession = "attach_session"
	TypeStartPrep     = "start_prep"
	TypeStartRound    = "start_round"
	TypeUserText      = "user_text"
	TypeEnd           = "end"
	TypePing          = "ping"
)

// Outbound message types.
const (
	TypeSessionAttached = "session_attached"
	TypePrepStarted     = "prep_started"
	TypeRoundStarted    = "round_started"
	TypeAIReplyStart    = "ai_reply_start"
	TypeAIToken         = "ai_token"
	TypeAIReplyEnd      = "ai_reply_end"
	TypeTurnSwitched    = "turn_switched"
	TypeSessionEnded    = "session_ended"
	TypePong            = "pong"
	TypeError           = "error"
)

// Error details sent to clients.
const (
	DetailInvalidSession = "Invalid session"
	DetailAttachFirst    = "Attach session first"
	DetailNotUserTurn    = "Not user's turn"
	DetailRateLimited    = "Rate limit exceeded"
	DetailBadMessage     = "Malformed message"
	DetailInternal       = "Internal error"
)

// Frame is one outbound message. The "type" key is always present.
type Frame map[string]any

// Type returns the frame's message type.
func (f Frame) Type() string {
	t, _ := f["type"].(string)
	return t
}

func frame(typ string, kv ...any) Frame {
	f := Frame{"type": typ}
	for i := 0; i+1 < len(kv); i += 2 {
		f[kv[i].(string)] = kv[i+1]
	}
	return f
}

func errorFrame(detail string) Frame {
	return frame(TypeError, "detail", detail)
}

// Emitter delivers frames to one connected client.
type Emitter interface {
	Emit(ctx context.Context, f Frame) error
	// Close terminates the connection from the server side.
	Close(reason string) error
}

// inbound is the decoded form of a client message.
type inbound struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Text      json.RawMessage `json:"text,omitempty"`
}

// text returns the trimmed user text. Missing or non-string values yield "".
func (m inbound) text() string {
	var s string
	if len(m.Text) == 0 || json.Unmarshal(m.Text, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func decode(raw []byte) (inbound, error) {
	var m inbound
	if err := json.Unmarshal(raw, &m); err != nil {
		return inbound{}, err
	}
	return m, nil
}
