package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
)

// List returns a page of recent chats for req.UID (the caller by default).
func (g *Gateway) List(ctx context.Context, caller core.Caller, req ListRequest) (*core.RecentChats, error) {
	hasRange := req.Start.Present() && req.Stop.Present()
	hasPage := req.Page.Present() && req.PerPage.Present()
	if !hasRange && !hasPage {
		return nil, core.ErrInvalidData
	}

	start, stop := req.Start.Value, req.Stop.Value
	if !hasRange {
		start = max(0, req.Page.Value-1) * req.PerPage.Value
		stop = start + req.PerPage.Value - 1
	}

	uid := req.UID
	if uid == 0 {
		uid = caller.UID
	}
	return g.messaging.GetRecentChats(ctx, caller.UID, uid, start, stop)
}

// Create makes a new room and returns its data.
func (g *Gateway) Create(ctx context.Context, caller core.Caller, req CreateRequest) (*core.Room, error) {
	exceeded, err := g.rateLimitExceeded(ctx, caller, FieldLastChatRoomCreateTime)
	if err != nil {
		return nil, err
	}
	if exceeded {
		return nil, core.ErrTooManyMessages
	}

	public := req.Type == "public"
	isAdmin, err := g.users.IsAdministrator(ctx, caller.UID)
	if err != nil {
		return nil, err
	}
	if public && !isAdmin {
		return nil, core.ErrNoPrivileges
	}
	if !req.UIDs.Present() {
		return nil, core.ErrWrongParameterType
	}
	if !public && len(req.UIDs.Value) == 0 {
		return nil, core.ErrNoUsersSelected
	}
	if public && (!req.Groups.Present() || len(req.Groups.Value) == 0) {
		return nil, core.ErrNoGroupsSelected
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, uid := range req.UIDs.Value {
		eg.Go(func() error {
			return g.messaging.CanMessageUser(egCtx, caller.UID, uid)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	data := core.NewRoomData{
		Name:                req.Name,
		Public:              public,
		UIDs:                req.UIDs.Value,
		NotificationSetting: core.DefaultNotificationSetting(public),
	}
	if public {
		data.Groups = req.Groups.Value
	}

	roomID, err := g.messaging.NewRoom(ctx, caller.UID, data)
	if err != nil {
		return nil, err
	}
	g.log.Info().Int64("uid", caller.UID).Int64("room_id", roomID).Bool("public", public).Msg("chat room created")

	return g.messaging.GetRoomData(ctx, roomID)
}

// SortPublicRooms stores ordering scores for public rooms.
func (g *Gateway) SortPublicRooms(ctx context.Context, caller core.Caller, req SortRequest) error {
	if !req.RoomIDs.Present() || !req.Scores.Present() || len(req.RoomIDs.Value) != len(req.Scores.Value) {
		return core.ErrInvalidData
	}
	for _, s := range req.Scores.Value {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return core.ErrInvalidData
		}
	}

	isAdmin, err := g.users.IsAdministrator(ctx, caller.UID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return core.ErrNoPrivileges
	}

	scores := make([]float64, len(req.Scores.Value))
	members := make([]string, len(req.RoomIDs.Value))
	for i, s := range req.Scores.Value {
		scores[i] = math.Trunc(s)
		members[i] = formatID(req.RoomIDs.Value[i])
	}
	if err := g.db.SortedSetAdd(ctx, PublicRoomOrderKey, scores, members); err != nil {
		return err
	}
	g.cache.Del(PublicRoomOrderCacheKey)
	return nil
}

// Get loads a room view for the caller.
func (g *Gateway) Get(ctx context.Context, caller core.Caller, req GetRequest) (*core.RoomView, error) {
	uid := req.UID
	if uid == 0 {
		uid = caller.UID
	}
	return g.messaging.LoadRoom(ctx, caller.UID, uid, req.RoomID)
}

// Update applies a partial room update and returns the reloaded room view.
func (g *Gateway) Update(ctx context.Context, caller core.Caller, req UpdateRequest) (*core.RoomView, error) {
	if req.RoomID == 0 {
		return nil, core.ErrInvalidData
	}

	if req.Name.Set {
		if req.Name.Null {
			return nil, core.ErrInvalidData
		}
		if err := g.messaging.RenameRoom(ctx, caller.UID, req.RoomID, req.Name.Value); err != nil {
			return nil, err
		}
	}

	var (
		room    *core.Room
		isAdmin bool
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		room, err = g.messaging.GetRoomData(egCtx, req.RoomID)
		return err
	})
	eg.Go(func() error {
		var err error
		isAdmin, err = g.users.IsAdministrator(egCtx, caller.UID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if room == nil {
		return nil, core.ErrInvalidData
	}

	key := RoomKey(req.RoomID)
	if req.Groups.Set && room.Public && isAdmin {
		if len(req.Groups.Value) == 0 {
			return nil, core.ErrNoGroupsSelected
		}
		groups, err := json.Marshal(req.Groups.Value)
		if err != nil {
			return nil, fmt.Errorf("encode groups: %w", err)
		}
		if err := g.db.SetObjectField(ctx, key, "groups", string(groups)); err != nil {
			return nil, err
		}
	}

	if req.NotificationSetting.Set && isAdmin {
		setting := req.NotificationSetting.Value
		if !setting.Valid() {
			return nil, core.ErrInvalidData
		}
		if err := g.db.SetObjectField(ctx, key, "notificationSetting", strconv.Itoa(int(setting))); err != nil {
			return nil, err
		}
	}

	view, err := g.messaging.LoadRoom(ctx, caller.UID, caller.UID, req.RoomID)
	if err != nil {
		return nil, err
	}

	if req.Name.Set {
		g.sockets.EmitToRoom(core.RoomChannel(req.RoomID), core.EventChatsRoomRename, core.RoomRenameEvent{
			RoomID:          req.RoomID,
			NewName:         escapeHTML(req.Name.Value),
			ChatWithMessage: view.ChatWithMessage,
		})
		g.log.Info().Int64("uid", caller.UID).Int64("room_id", req.RoomID).Msg("chat room renamed")
	}
	return view, nil
}

// Rename requires a non-empty name and delegates to Update.
func (g *Gateway) Rename(ctx context.Context, caller core.Caller, req UpdateRequest) (*core.RoomView, error) {
	if req.RoomID == 0 || !req.Name.Present() || req.Name.Value == "" {
		return nil, core.ErrInvalidData
	}
	return g.Update(ctx, caller, req)
}

// Delete removes a room. Public rooms require an administrator; private rooms
// require the caller to be a member.
func (g *Gateway) Delete(ctx context.Context, caller core.Caller, roomID int64) error {
	room, err := g.messaging.GetRoomData(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return core.ErrInvalidData
	}

	if room.Public {
		isAdmin, err := g.users.IsAdministrator(ctx, caller.UID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return core.ErrNoPrivileges
		}
	} else {
		inRoom, err := g.messaging.IsUserInRoom(ctx, caller.UID, roomID)
		if err != nil {
			return err
		}
		if !inRoom {
			return core.ErrNoPrivileges
		}
	}

	if err := g.messaging.DeleteRoom(ctx, roomID); err != nil {
		return err
	}
	g.sockets.EmitToUIDs(core.EventChatsDeleted, core.RoomEvent{RoomID: roomID}, []int64{caller.UID})
	g.log.Info().Int64("uid", caller.UID).Int64("room_id", roomID).Msg("chat room deleted")
	return nil
}

// GetRoomData returns the raw room record.
func (g *Gateway) GetRoomData(ctx context.Context, _ core.Caller, roomID int64) (*core.Room, error) {
	if roomID == 0 {
		return nil, core.ErrInvalidData
	}
	room, err := g.messaging.GetRoomData(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, core.ErrInvalidData
	}
	return room, nil
}

// PublicRooms lists the public rooms visible to the caller in display order.
func (g *Gateway) PublicRooms(ctx context.Context, caller core.Caller) ([]core.Room, error) {
	return g.messaging.GetPublicRooms(ctx, caller.UID)
}
