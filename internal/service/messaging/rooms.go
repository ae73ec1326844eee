package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

func validRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxRoomNameLength {
		return "", core.NewError(core.ErrCodeInvalidRoomName,
			fmt.Sprintf("room name must be at most %d characters", MaxRoomNameLength))
	}
	return name, nil
}

// NewRoom creates a room owned by uid with data.UIDs as members.
func (s *Service) NewRoom(ctx context.Context, uid int64, data core.NewRoomData) (int64, error) {
	name, err := validRoomName(data.Name)
	if err != nil {
		return 0, err
	}
	if !data.NotificationSetting.Valid() {
		data.NotificationSetting = core.DefaultNotificationSetting(data.Public)
	}

	r, err := s.store.CreateRoom(ctx, uid, name, data.Public, data.UIDs)
	if err != nil {
		return 0, err
	}

	fields := map[string]string{
		"notificationSetting": strconv.Itoa(int(data.NotificationSetting)),
	}
	if data.Public {
		groups, err := json.Marshal(data.Groups)
		if err != nil {
			return 0, fmt.Errorf("encode groups: %w", err)
		}
		fields["groups"] = string(groups)
	}
	if err := s.kv.SetObject(ctx, gateway.RoomKey(r.ID), fields); err != nil {
		return 0, err
	}

	if data.Public {
		// New public rooms sort after existing ones until an administrator reorders them.
		err := s.kv.SortedSetAdd(ctx, gateway.PublicRoomOrderKey, []float64{float64(r.ID)}, []string{formatID(r.ID)})
		if err != nil {
			return 0, err
		}
		s.public.Del(gateway.PublicRoomOrderCacheKey)
	}
	return r.ID, nil
}

// GetRecentChats lists uid's rooms by latest activity. Only uid itself or an
// administrator may read the list.
func (s *Service) GetRecentChats(ctx context.Context, callerUID, uid int64, start, stop int) (*core.RecentChats, error) {
	if callerUID != uid {
		isAdmin, err := s.users.IsAdministrator(ctx, callerUID)
		if err != nil {
			return nil, err
		}
		if !isAdmin {
			return nil, core.ErrNoPrivileges
		}
	}

	rows, err := s.store.ListRecentRooms(ctx, uid, start, stop)
	if err != nil {
		return nil, err
	}

	summaries := make([]core.RoomSummary, len(rows))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, r := range rows {
		eg.Go(func() error {
			summary, err := s.summarize(egCtx, uid, r)
			if err != nil {
				return err
			}
			summaries[i] = *summary
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &core.RecentChats{Rooms: summaries, NextStart: stop + 1}, nil
}

func (s *Service) summarize(ctx context.Context, uid int64, r *store.RecentRoom) (*core.RoomSummary, error) {
	room, err := s.roomFromStore(ctx, &r.Room)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListMembers(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	others := without(toMembers(room, rows), uid)

	summary := &core.RoomSummary{
		Room:            *room,
		Unread:          r.Unread,
		Users:           others,
		ChatWithMessage: chatWith(others),
	}

	latest, err := s.store.ListMessages(ctx, r.ID, 1, nil)
	if err != nil {
		return nil, err
	}
	if len(latest) == 1 {
		names, err := s.usernames(ctx, toMembers(room, rows), latest)
		if err != nil {
			return nil, err
		}
		teaser := toMessage(latest[0], names)
		summary.Teaser = &teaser
	}
	return summary, nil
}

// LoadRoom builds the view of roomID for uid. Loading on behalf of another
// user requires an administrator.
func (s *Service) LoadRoom(ctx context.Context, callerUID, uid, roomID int64) (*core.RoomView, error) {
	room, err := s.mustRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	isAdmin, err := s.users.IsAdministrator(ctx, callerUID)
	if err != nil {
		return nil, err
	}
	if callerUID != uid && !isAdmin {
		return nil, core.ErrNoPrivileges
	}

	inRoom, err := s.store.IsMember(ctx, uid, roomID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		allowed := inRoom
		if room.Public && !allowed {
			if allowed, err = s.canAccessGroups(ctx, uid, room.Groups); err != nil {
				return nil, err
			}
		}
		if !allowed {
			return nil, core.ErrNoPrivileges
		}
	}

	rows, err := s.store.ListMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	members := toMembers(room, rows)

	history, err := s.store.ListMessages(ctx, roomID, defaultHistory, nil)
	if err != nil {
		return nil, err
	}
	names, err := s.usernames(ctx, members, history)
	if err != nil {
		return nil, err
	}
	messages := make([]core.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, toMessage(m, names))
	}

	setting, err := s.userNotificationSetting(ctx, uid, room)
	if err != nil {
		return nil, err
	}

	return &core.RoomView{
		Room:                    *room,
		Users:                   members,
		Messages:                messages,
		IsOwner:                 room.OwnerUID == uid,
		IsAdmin:                 isAdmin,
		CanReply:                inRoom,
		ChatWithMessage:         chatWith(without(members, uid)),
		UserNotificationSetting: setting,
	}, nil
}

// RenameRoom renames roomID. Only the owner or an administrator may rename.
func (s *Service) RenameRoom(ctx context.Context, uid, roomID int64, name string) error {
	room, err := s.mustRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.OwnerUID != uid {
		isAdmin, err := s.users.IsAdministrator(ctx, uid)
		if err != nil {
			return err
		}
		if !isAdmin {
			return core.ErrNoPrivileges
		}
	}
	name, err = validRoomName(name)
	if err != nil {
		return err
	}
	return s.store.RenameRoom(ctx, roomID, name)
}

// CanJoinRoom reports whether uid may join the public room roomID.
func (s *Service) CanJoinRoom(ctx context.Context, uid, roomID int64) (bool, error) {
	room, err := s.mustRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !room.Public || uid <= 0 {
		return false, nil
	}
	return s.canAccessGroups(ctx, uid, room.Groups)
}

// CanLeaveRoom reports whether uid is a member of roomID.
func (s *Service) CanLeaveRoom(ctx context.Context, uid, roomID int64) (bool, error) {
	return s.store.IsMember(ctx, uid, roomID)
}

// AddUserToRoom adds uid to roomID.
func (s *Service) AddUserToRoom(ctx context.Context, uid, roomID int64) error {
	return s.store.AddMember(ctx, uid, roomID)
}

// RemoveUserFromRoom removes uid from roomID and drops its per-room setting.
func (s *Service) RemoveUserFromRoom(ctx context.Context, uid, roomID int64) error {
	if err := s.store.RemoveMember(ctx, uid, roomID); err != nil {
		return err
	}
	return s.kv.SetObjectField(ctx, settingsKey(roomID), formatID(uid), "")
}

// IsUserInRoom reports membership.
func (s *Service) IsUserInRoom(ctx context.Context, uid, roomID int64) (bool, error) {
	return s.store.IsMember(ctx, uid, roomID)
}

// GetRoomMembers lists members of roomID, owner first.
func (s *Service) GetRoomMembers(ctx context.Context, roomID int64) ([]core.Member, error) {
	room, err := s.mustRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return toMembers(room, rows), nil
}

// DeleteRoom removes the room and all of its attributes.
func (s *Service) DeleteRoom(ctx context.Context, roomID int64) error {
	if err := s.store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}
	for _, key := range []string{gateway.RoomKey(roomID), settingsKey(roomID)} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return err
		}
	}
	if err := s.kv.SortedSetRemove(ctx, gateway.PublicRoomOrderKey, formatID(roomID)); err != nil {
		return err
	}
	s.public.Del(gateway.PublicRoomOrderCacheKey)
	return nil
}

// GetPublicRooms lists the public rooms uid can access in administrator order.
func (s *Service) GetPublicRooms(ctx context.Context, uid int64) ([]core.Room, error) {
	ids, err := s.publicRoomOrder(ctx)
	if err != nil {
		return nil, err
	}

	rooms := make([]core.Room, 0, len(ids))
	for _, id := range ids {
		room, err := s.GetRoomData(ctx, id)
		if err != nil {
			return nil, err
		}
		if room == nil || !room.Public {
			continue
		}
		ok, err := s.canAccessGroups(ctx, uid, room.Groups)
		if err != nil {
			return nil, err
		}
		if ok {
			rooms = append(rooms, *room)
		}
	}
	return rooms, nil
}

func (s *Service) publicRoomOrder(ctx context.Context) ([]int64, error) {
	if ids, ok := s.public.Get(gateway.PublicRoomOrderCacheKey); ok {
		return ids, nil
	}
	members, err := s.kv.SortedSetRange(ctx, gateway.PublicRoomOrderKey, 0, -1)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			s.log.Warn().Str("member", m).Msg("skipping malformed public room id")
			continue
		}
		ids = append(ids, id)
	}
	s.public.Set(gateway.PublicRoomOrderCacheKey, ids)
	return ids, nil
}

// SetUserNotificationSetting stores uid's own notification setting for roomID.
func (s *Service) SetUserNotificationSetting(ctx context.Context, uid, roomID int64, setting core.NotificationSetting) error {
	if !setting.Valid() {
		return core.ErrInvalidData
	}
	return s.kv.SetObjectField(ctx, settingsKey(roomID), formatID(uid), strconv.Itoa(int(setting)))
}

// userNotificationSetting falls back to the room setting when uid has none.
func (s *Service) userNotificationSetting(ctx context.Context, uid int64, room *core.Room) (core.NotificationSetting, error) {
	raw, ok, err := s.kv.GetObjectField(ctx, settingsKey(room.RoomID), formatID(uid))
	if err != nil {
		return 0, err
	}
	if ok {
		if n, err := strconv.Atoi(raw); err == nil && core.NotificationSetting(n).Valid() {
			return core.NotificationSetting(n), nil
		}
	}
	return room.NotificationSetting, nil
}
