package follows

import (
	"context"
	"errors"
	"testing"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/store/sqlite"
)

func newTestService(t *testing.T) (*Service, *sqlite.SQLiteStore) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(st), st
}

func createUser(t *testing.T, st *sqlite.SQLiteStore, name string) int64 {
	t.Helper()
	u, err := st.CreateUser(context.Background(), name, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u.ID
}

func TestFollowAndUnfollow(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	alice := createUser(t, st, "alice")
	bob := createUser(t, st, "bob")

	if err := svc.Follow(ctx, alice, bob); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := svc.Follow(ctx, alice, bob); err != nil {
		t.Fatalf("follow twice: %v", err)
	}
	ok, err := svc.IsFollowing(ctx, alice, bob)
	if err != nil || !ok {
		t.Fatalf("expected alice to follow bob: %v %v", ok, err)
	}
	if ok, _ := svc.IsFollowing(ctx, bob, alice); ok {
		t.Fatalf("follow must be directed")
	}

	if err := svc.Unfollow(ctx, alice, bob); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if ok, _ := svc.IsFollowing(ctx, alice, bob); ok {
		t.Fatalf("expected unfollow to remove edge")
	}
}

func TestFollowErrors(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	alice := createUser(t, st, "alice")

	if err := svc.Follow(ctx, alice, alice); !errors.Is(err, ErrCannotFollowSelf) {
		t.Fatalf("expected ErrCannotFollowSelf, got %v", err)
	}
	if err := svc.Follow(ctx, alice, 999); !errors.Is(err, core.ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
	if err := svc.SetRestrictChat(ctx, 999, true); !errors.Is(err, core.ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
}

func TestSetRestrictChat(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	alice := createUser(t, st, "alice")

	if err := svc.SetRestrictChat(ctx, alice, true); err != nil {
		t.Fatalf("set restrict: %v", err)
	}
	u, err := st.GetUserByID(ctx, alice)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !u.RestrictChat {
		t.Fatalf("expected restrictChat to be set")
	}
}
