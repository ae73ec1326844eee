package gateway

import (
	"context"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/plugins"
)

const (
	defaultMessagePage = 20
	maxMessagePage     = 50
)

// Post sends a message to a room. Member notification and presence updates
// run in the background and never fail the call.
func (g *Gateway) Post(ctx context.Context, caller core.Caller, req PostRequest) (*core.Message, error) {
	exceeded, err := g.rateLimitExceeded(ctx, caller, FieldLastChatMessageTime)
	if err != nil {
		return nil, err
	}
	if exceeded {
		return nil, core.ErrTooManyMessages
	}
	if req.RoomID == 0 || caller.UID <= 0 {
		return nil, core.ErrInvalidData
	}

	filtered, err := g.hooks.FireSendFilter(ctx, plugins.SendPayload{
		Data: plugins.SendData{RoomID: req.RoomID, Message: req.Message, ToMID: req.ToMID},
		UID:  caller.UID,
	})
	if err != nil {
		return nil, err
	}
	data := filtered.Data

	if err := g.messaging.CanMessageRoom(ctx, caller.UID, data.RoomID); err != nil {
		return nil, err
	}

	msg, err := g.messaging.SendMessage(ctx, &core.Message{
		RoomID:    data.RoomID,
		FromUID:   caller.UID,
		Content:   data.Message,
		ToMID:     data.ToMID,
		Timestamp: g.now().UnixMilli(),
		IP:        caller.IP,
	})
	if err != nil {
		return nil, err
	}

	g.goBackground(ctx, "notify room", func(ctx context.Context) error {
		return g.messaging.NotifyUsersInRoom(ctx, caller.UID, msg.RoomID, msg)
	})
	g.goBackground(ctx, "online presence", func(ctx context.Context) error {
		return g.users.UpdateOnlineUsers(ctx, caller.UID)
	})
	return msg, nil
}

// Messages returns a page of history, oldest first, ending before req.Before.
func (g *Gateway) Messages(ctx context.Context, caller core.Caller, req MessagesRequest) ([]core.Message, error) {
	if req.RoomID == 0 {
		return nil, core.ErrInvalidData
	}
	limit := req.Limit
	switch {
	case limit <= 0:
		limit = defaultMessagePage
	case limit > maxMessagePage:
		limit = maxMessagePage
	}
	return g.messaging.GetMessages(ctx, caller.UID, req.RoomID, limit, req.Before)
}

// GetUnread returns the caller's unread room count.
func (g *Gateway) GetUnread(ctx context.Context, caller core.Caller) (*UnreadResponse, error) {
	count, err := g.messaging.GetUnreadCount(ctx, caller.UID)
	if err != nil {
		return nil, err
	}
	return &UnreadResponse{Count: count}, nil
}

// Mark flags a room as unread (State true) or read for the caller.
func (g *Gateway) Mark(ctx context.Context, caller core.Caller, req MarkRequest) error {
	if caller.UID <= 0 || req.RoomID == 0 {
		return core.ErrInvalidData
	}
	self := []int64{caller.UID}

	if req.State {
		if err := g.messaging.MarkUnread(ctx, self, req.RoomID); err != nil {
			return err
		}
	} else {
		if err := g.messaging.MarkRead(ctx, caller.UID, req.RoomID); err != nil {
			return err
		}
		g.sockets.EmitToUIDs(core.EventChatsMarkedAsRead, core.RoomEvent{RoomID: req.RoomID}, self)

		notifs := g.users.Notifications()
		nids, err := notifs.GetUnreadByField(ctx, caller.UID, "roomId", []string{formatID(req.RoomID)})
		if err != nil {
			return err
		}
		if err := g.notifications.MarkReadMultiple(ctx, nids, caller.UID); err != nil {
			return err
		}
		if err := notifs.PushCount(ctx, caller.UID); err != nil {
			g.log.Warn().Err(err).Int64("uid", caller.UID).Msg("push notification count failed")
		}
	}

	g.sockets.EmitToUIDs(core.EventChatsMark, core.MarkEvent{RoomID: req.RoomID, State: req.State}, self)
	if err := g.messaging.PushUnreadCount(ctx, caller.UID); err != nil {
		g.log.Warn().Err(err).Int64("uid", caller.UID).Int64("room_id", req.RoomID).Msg("push unread count failed")
	}
	return nil
}

// Watch sets the caller's per-room notification setting.
func (g *Gateway) Watch(ctx context.Context, caller core.Caller, req WatchRequest) error {
	if req.RoomID == 0 || !req.State.Valid() {
		return core.ErrInvalidData
	}
	inRoom, err := g.messaging.IsUserInRoom(ctx, caller.UID, req.RoomID)
	if err != nil {
		return err
	}
	if !inRoom {
		return core.ErrNoPrivileges
	}
	if err := g.messaging.SetUserNotificationSetting(ctx, caller.UID, req.RoomID, req.State); err != nil {
		return err
	}
	g.sockets.EmitToUIDs(core.EventChatsWatch, core.WatchEvent{RoomID: req.RoomID, State: req.State}, []int64{caller.UID})
	return nil
}
