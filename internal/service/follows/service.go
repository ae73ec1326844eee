// Package follows manages the follow graph and the chat restriction that
// depends on it: a user with restrictChat set only accepts new chats from
// people they follow.
package follows

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// ErrCannotFollowSelf is returned when a user tries to follow themselves.
var ErrCannotFollowSelf = core.NewError(core.ErrCodeInvalidData, "cannot follow yourself")

// Service provides follow management.
type Service struct {
	store store.UserStore
}

// New creates a follows service.
func New(st store.UserStore) *Service {
	return &Service{store: st}
}

// Follow makes uid follow target. Following twice is a no-op.
func (s *Service) Follow(ctx context.Context, uid, target int64) error {
	if uid == target {
		return ErrCannotFollowSelf
	}
	if err := s.mustExist(ctx, target); err != nil {
		return err
	}
	if err := s.store.Follow(ctx, uid, target); err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

// Unfollow removes the edge from uid to target.
func (s *Service) Unfollow(ctx context.Context, uid, target int64) error {
	if err := s.mustExist(ctx, target); err != nil {
		return err
	}
	if err := s.store.Unfollow(ctx, uid, target); err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

// IsFollowing reports whether uid follows target.
func (s *Service) IsFollowing(ctx context.Context, uid, target int64) (bool, error) {
	return s.store.IsFollowing(ctx, uid, target)
}

// SetRestrictChat toggles whether only followed users may start chats with uid.
func (s *Service) SetRestrictChat(ctx context.Context, uid int64, restrict bool) error {
	if err := s.store.SetRestrictChat(ctx, uid, restrict); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.ErrNoUser
		}
		return fmt.Errorf("set restrict chat: %w", err)
	}
	return nil
}

func (s *Service) mustExist(ctx context.Context, uid int64) error {
	if _, err := s.store.GetUserByID(ctx, uid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.ErrNoUser
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	return nil
}
