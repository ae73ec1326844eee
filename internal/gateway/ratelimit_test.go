package gateway

import (
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
)

func TestSessions_Allow(t *testing.T) {
	s := NewSessions(8, time.Hour)
	now := time.Unix(1000, 0)

	if !s.Allow("a", FieldLastChatMessageTime, now, time.Second) {
		t.Fatalf("first action must be allowed")
	}
	if s.Allow("a", FieldLastChatMessageTime, now.Add(500*time.Millisecond), time.Second) {
		t.Fatalf("action inside delay must be rejected")
	}
	if !s.Allow("a", FieldLastChatRoomCreateTime, now, time.Second) {
		t.Fatalf("fields are tracked separately")
	}
	if !s.Allow("b", FieldLastChatMessageTime, now, time.Second) {
		t.Fatalf("sessions are tracked separately")
	}
	// The rejected attempt above did not move the marker.
	if !s.Allow("a", FieldLastChatMessageTime, now.Add(time.Second), time.Second) {
		t.Fatalf("action after delay must be allowed")
	}
}

func TestSessionKeyFallsBackToUID(t *testing.T) {
	if got := sessionKey(core.Caller{UID: 4}); got != "uid:4" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := sessionKey(core.Caller{UID: 4, SessionID: "abc"}); got != "abc" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestParseReputation(t *testing.T) {
	for raw, want := range map[string]int{"": 0, "5": 5, "-2": -2, "3.9": 3, "junk": 0} {
		if got := parseReputation(raw); got != want {
			t.Fatalf("%q: expected %d, got %d", raw, want, got)
		}
	}
}
