package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// CanMessageUser checks that uid may start a chat with toUID.
func (s *Service) CanMessageUser(ctx context.Context, uid, toUID int64) error {
	if uid == toUID {
		return core.ErrCantChatWithSelf
	}
	target, err := s.store.GetUserByID(ctx, toUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.ErrNoUser
		}
		return err
	}
	if !target.RestrictChat {
		return nil
	}

	privileged, err := s.users.IsPrivileged(ctx, uid)
	if err != nil {
		return err
	}
	if privileged {
		return nil
	}
	follows, err := s.store.IsFollowing(ctx, toUID, uid)
	if err != nil {
		return err
	}
	if !follows {
		return core.ErrChatRestricted
	}
	return nil
}

// CanMessageRoom checks that roomID exists and uid is a member.
func (s *Service) CanMessageRoom(ctx context.Context, uid, roomID int64) error {
	if _, err := s.mustRoom(ctx, roomID); err != nil {
		return err
	}
	inRoom, err := s.store.IsMember(ctx, uid, roomID)
	if err != nil {
		return err
	}
	if !inRoom {
		return core.ErrNotInRoom
	}
	return nil
}

func (s *Service) checkContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return core.ErrInvalidChatMessage
	}
	if utf8.RuneCountInString(content) > s.cfg.MaximumMessageLength {
		return core.NewError(core.ErrCodeChatMessageTooLong,
			fmt.Sprintf("chat message is too long, the maximum is %d characters", s.cfg.MaximumMessageLength))
	}
	return nil
}

// SendMessage validates and stores msg, then flags the room unread for the
// other members.
func (s *Service) SendMessage(ctx context.Context, msg *core.Message) (*core.Message, error) {
	if err := s.checkContent(msg.Content); err != nil {
		return nil, err
	}
	if msg.ToMID != nil {
		parent, err := s.store.GetMessage(ctx, *msg.ToMID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, core.ErrInvalidData
			}
			return nil, err
		}
		if parent.RoomID != msg.RoomID {
			return nil, core.ErrInvalidData
		}
	}

	created := time.Now()
	if msg.Timestamp > 0 {
		created = time.UnixMilli(msg.Timestamp)
	}
	rec := &store.Message{
		RoomID:    msg.RoomID,
		UID:       msg.FromUID,
		Content:   msg.Content,
		ToMID:     msg.ToMID,
		IP:        msg.IP,
		CreatedAt: created,
	}
	if err := s.store.SaveMessage(ctx, rec); err != nil {
		return nil, err
	}

	rows, err := s.store.ListMembers(ctx, msg.RoomID)
	if err != nil {
		return nil, err
	}
	others := make([]int64, 0, len(rows))
	username := ""
	for _, m := range rows {
		if m.UID == msg.FromUID {
			username = m.Username
			continue
		}
		others = append(others, m.UID)
	}
	if err := s.store.SetUnread(ctx, msg.RoomID, others, true); err != nil {
		return nil, err
	}

	out := toMessage(rec, map[int64]string{msg.FromUID: username})
	return &out, nil
}

// NotifyUsersInRoom delivers msg to the room channel and to every other
// member, and records notifications according to each member's setting.
func (s *Service) NotifyUsersInRoom(ctx context.Context, fromUID, roomID int64, msg *core.Message) error {
	room, err := s.mustRoom(ctx, roomID)
	if err != nil {
		return err
	}
	rows, err := s.store.ListMembers(ctx, roomID)
	if err != nil {
		return err
	}

	event := core.ReceiveEvent{RoomID: roomID, Message: msg}
	s.sockets.EmitToRoom(core.RoomChannel(roomID), core.EventChatsReceive, event)

	recipients := make([]*store.RoomMember, 0, len(rows))
	uids := make([]int64, 0, len(rows))
	for _, m := range rows {
		if m.UID == fromUID {
			continue
		}
		recipients = append(recipients, m)
		uids = append(uids, m.UID)
	}
	s.sockets.EmitToUIDs(core.EventChatsReceive, event, uids)

	author := ""
	if msg.FromUser != nil {
		author = msg.FromUser.Username
	}
	body := msg.Content
	if author != "" {
		body = author + ": " + msg.Content
	}

	var errs []error
	for _, m := range recipients {
		if err := s.PushUnreadCount(ctx, m.UID); err != nil {
			errs = append(errs, err)
			continue
		}
		setting, err := s.userNotificationSetting(ctx, m.UID, room)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !wantsNotification(setting, m.Username, msg.Content) {
			continue
		}
		if err := s.notifier.NotifyChat(ctx, m.UID, roomID, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func wantsNotification(setting core.NotificationSetting, username, content string) bool {
	switch setting {
	case core.NotificationAllMessages:
		return true
	case core.NotificationAtMention:
		return username != "" && mentions(content, username)
	default:
		return false
	}
}

// mentions reports whether content contains @username as a whole word.
func mentions(content, username string) bool {
	needle := "@" + strings.ToLower(username)
	lower := strings.ToLower(content)
	for i := strings.Index(lower, needle); i >= 0; {
		end := i + len(needle)
		if end == len(lower) || !isNameByte(lower[end]) {
			return true
		}
		next := strings.Index(lower[end:], needle)
		if next < 0 {
			break
		}
		i = end + next
	}
	return false
}

func isNameByte(b byte) bool {
	return b == '_' || b == '-' || b == '.' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// MarkRead clears the unread flag of roomID for uid.
func (s *Service) MarkRead(ctx context.Context, uid, roomID int64) error {
	return s.store.SetUnread(ctx, roomID, []int64{uid}, false)
}

// MarkUnread flags roomID unread for uids.
func (s *Service) MarkUnread(ctx context.Context, uids []int64, roomID int64) error {
	return s.store.SetUnread(ctx, roomID, uids, true)
}

// GetUnreadCount counts rooms with unread messages for uid.
func (s *Service) GetUnreadCount(ctx context.Context, uid int64) (int, error) {
	return s.store.CountUnreadRooms(ctx, uid)
}

// PushUnreadCount sends uid its unread room count.
func (s *Service) PushUnreadCount(ctx context.Context, uid int64) error {
	count, err := s.GetUnreadCount(ctx, uid)
	if err != nil {
		return err
	}
	s.sockets.EmitToUIDs(core.EventChatsUnreadCount, core.CountEvent{Count: count}, []int64{uid})
	return nil
}

// GetMessages returns up to limit messages of roomID older than beforeID,
// oldest first. Members of the room and, for public rooms, users with group
// access may read.
func (s *Service) GetMessages(ctx context.Context, uid, roomID int64, limit int, beforeID *int64) ([]core.Message, error) {
	room, err := s.mustRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	inRoom, err := s.store.IsMember(ctx, uid, roomID)
	if err != nil {
		return nil, err
	}
	if !inRoom {
		allowed := false
		if room.Public {
			if allowed, err = s.canAccessGroups(ctx, uid, room.Groups); err != nil {
				return nil, err
			}
		}
		if !allowed {
			return nil, core.ErrNotInRoom
		}
	}

	rows, err := s.store.ListMessages(ctx, roomID, limit, beforeID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	names, err := s.usernames(ctx, toMembers(room, members), rows)
	if err != nil {
		return nil, err
	}
	out := make([]core.Message, 0, len(rows))
	for _, m := range rows {
		out = append(out, toMessage(m, names))
	}
	return out, nil
}
