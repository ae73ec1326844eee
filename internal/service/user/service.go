package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// OnlineKey is the sorted set of uids scored by last activity in unix ms.
const OnlineKey = "users:online"

// Notifier is the notification backend the user service reports through.
type Notifier interface {
	UnreadForRooms(ctx context.Context, uid int64, roomIDs []int64) ([]string, error)
	PushCount(ctx context.Context, uid int64) error
}

// Service answers privilege, profile and presence questions about users.
type Service struct {
	store    store.UserStore
	kv       store.KV
	notifier Notifier
	now      func() time.Time
	log      *zerolog.Logger
}

var _ gateway.Users = (*Service)(nil)

// New creates a user service.
func New(st store.UserStore, kv store.KV, notifier Notifier, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{store: st, kv: kv, notifier: notifier, now: time.Now, log: logger}
}

// IsAdministrator reports whether uid belongs to the administrators group.
func (s *Service) IsAdministrator(ctx context.Context, uid int64) (bool, error) {
	if uid <= 0 {
		return false, nil
	}
	return s.store.IsUserInGroup(ctx, uid, store.GroupAdministrators)
}

// IsPrivileged reports whether uid is an administrator or a global moderator.
func (s *Service) IsPrivileged(ctx context.Context, uid int64) (bool, error) {
	if uid <= 0 {
		return false, nil
	}
	groups, err := s.store.ListUserGroups(ctx, uid)
	if err != nil {
		return false, err
	}
	for _, g := range groups {
		if g == store.GroupAdministrators || g == store.GroupGlobalModerators {
			return true, nil
		}
	}
	return false, nil
}

// GetUserField returns a single profile field as a string. Unknown users
// yield an empty value.
func (s *Service) GetUserField(ctx context.Context, uid int64, field string) (string, error) {
	u, err := s.store.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	switch field {
	case "reputation":
		return strconv.Itoa(u.Reputation), nil
	case "username":
		return u.Username, nil
	case "restrictChat":
		return strconv.FormatBool(u.RestrictChat), nil
	default:
		return "", fmt.Errorf("unknown user field %q", field)
	}
}

// UpdateOnlineUsers records uid as active now.
func (s *Service) UpdateOnlineUsers(ctx context.Context, uid int64) error {
	if uid <= 0 {
		return nil
	}
	now := s.now().UnixMilli()
	return s.kv.SortedSetAdd(ctx, OnlineKey, []float64{float64(now)}, []string{strconv.FormatInt(uid, 10)})
}

// Notifications returns the notification view of a user.
func (s *Service) Notifications() gateway.UserNotifications {
	return notificationsView{notifier: s.notifier}
}

type notificationsView struct {
	notifier Notifier
}

// GetUnreadByField lists unread notification ids whose field matches one of
// values. Only "roomId" is indexed.
func (v notificationsView) GetUnreadByField(ctx context.Context, uid int64, field string, values []string) ([]string, error) {
	if field != "roomId" {
		return nil, fmt.Errorf("notifications are not indexed by %q", field)
	}
	roomIDs := make([]int64, 0, len(values))
	for _, raw := range values {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, core.NewError(core.ErrCodeInvalidData, fmt.Sprintf("invalid room id %q", raw))
		}
		roomIDs = append(roomIDs, id)
	}
	return v.notifier.UnreadForRooms(ctx, uid, roomIDs)
}

func (v notificationsView) PushCount(ctx context.Context, uid int64) error {
	return v.notifier.PushCount(ctx, uid)
}
