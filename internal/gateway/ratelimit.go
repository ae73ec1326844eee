package gateway

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
)

// Session fields holding rate-limit markers.
const (
	FieldLastChatRoomCreateTime = "lastChatRoomCreateTime"
	FieldLastChatMessageTime    = "lastChatMessageTime"
)

// Sessions is an in-memory SessionStore. Idle sessions expire after ttl and
// the number of tracked sessions is capped.
type Sessions struct {
	mu      sync.Mutex
	markers *expirable.LRU[string, map[string]time.Time]
}

var _ SessionStore = (*Sessions)(nil)

// NewSessions creates a session store holding at most size sessions.
func NewSessions(size int, ttl time.Duration) *Sessions {
	return &Sessions{
		markers: expirable.NewLRU[string, map[string]time.Time](size, nil, ttl),
	}
}

// Allow implements SessionStore.
func (s *Sessions) Allow(sessionID, field string, now time.Time, delay time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.markers.Get(sessionID)
	if !ok {
		fields = make(map[string]time.Time)
	}
	if last, seen := fields[field]; seen && now.Sub(last) < delay {
		return false
	}
	fields[field] = now
	s.markers.Add(sessionID, fields)
	return true
}

func sessionKey(caller core.Caller) string {
	if caller.SessionID != "" {
		return caller.SessionID
	}
	return fmt.Sprintf("uid:%d", caller.UID)
}

// rateLimitExceeded checks and records the named marker for the caller's session.
// Unprivileged callers under the reputation threshold wait the newbie delay.
func (g *Gateway) rateLimitExceeded(ctx context.Context, caller core.Caller, field string) (bool, error) {
	var (
		privileged bool
		reputation int
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		privileged, err = g.users.IsPrivileged(egCtx, caller.UID)
		return err
	})
	eg.Go(func() error {
		raw, err := g.users.GetUserField(egCtx, caller.UID, "reputation")
		if err != nil {
			return err
		}
		reputation = parseReputation(raw)
		return nil
	})
	if err := eg.Wait(); err != nil {
		return false, err
	}

	newbie := !privileged && g.settings.NewbieReputationThreshold > reputation
	delay := g.settings.ChatMessageDelay
	if newbie {
		delay = g.settings.NewbieChatMessageDelay
	}

	if !g.sessions.Allow(sessionKey(caller), field, g.now(), delay) {
		g.log.Debug().Int64("uid", caller.UID).Str("field", field).Bool("newbie", newbie).Msg("rate limit exceeded")
		return true, nil
	}
	return false, nil
}

func parseReputation(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}
