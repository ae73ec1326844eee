package socket

import (
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Envelope, event string) *Envelope {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case env := <-ch:
			if env == nil {
				continue
			}
			if env.Event == event {
				return env
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event %q not received", event)
	return nil
}

func expectNoEvent(t *testing.T, ch <-chan *Envelope, wait time.Duration) {
	t.Helper()

	select {
	case env := <-ch:
		if env != nil {
			t.Fatalf("unexpected event: %+v", env)
		}
	case <-time.After(wait):
	}
}
