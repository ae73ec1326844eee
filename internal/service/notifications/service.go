package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// chatNamespace derives stable notification ids so that repeated messages in
// a room collapse into one unread notification per recipient.
var chatNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("wirechat:notifications:chat"))

// Service provides notification bookkeeping.
type Service struct {
	store   store.NotificationStore
	sockets gateway.Sockets
	log     *zerolog.Logger
}

var _ gateway.Notifications = (*Service)(nil)

// New creates a notifications service.
func New(st store.NotificationStore, sockets gateway.Sockets, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{store: st, sockets: sockets, log: logger}
}

// ChatNID is the notification id for new messages in roomID addressed to uid.
func ChatNID(uid, roomID int64) string {
	return uuid.NewSHA1(chatNamespace, []byte(fmt.Sprintf("%d:%d", roomID, uid))).String()
}

// NotifyChat records an unread chat notification for uid and pushes the new count.
func (s *Service) NotifyChat(ctx context.Context, uid, roomID int64, body string) error {
	err := s.store.CreateNotification(ctx, &store.Notification{
		NID:    ChatNID(uid, roomID),
		UID:    uid,
		RoomID: roomID,
		Body:   body,
	})
	if err != nil {
		return err
	}
	return s.PushCount(ctx, uid)
}

// MarkReadMultiple marks the given notifications of uid read.
func (s *Service) MarkReadMultiple(ctx context.Context, nids []string, uid int64) error {
	if len(nids) == 0 {
		return nil
	}
	if err := s.store.MarkNotificationsRead(ctx, uid, nids); err != nil {
		return err
	}
	s.log.Debug().Int64("uid", uid).Int("count", len(nids)).Msg("notifications marked read")
	return nil
}

// UnreadForRooms lists unread notification ids of uid tied to the given rooms.
func (s *Service) UnreadForRooms(ctx context.Context, uid int64, roomIDs []int64) ([]string, error) {
	return s.store.ListUnreadNotificationIDs(ctx, uid, roomIDs)
}

// PushCount sends uid its current unread notification count.
func (s *Service) PushCount(ctx context.Context, uid int64) error {
	count, err := s.store.CountUnreadNotifications(ctx, uid)
	if err != nil {
		return err
	}
	s.sockets.EmitToUIDs(core.EventNotificationsCount, core.CountEvent{Count: count}, []int64{uid})
	return nil
}
