package gateway

import (
	"context"
	"strconv"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
)

// GetMembers lists a room's members. Private rooms are visible to members
// and administrators only.
func (g *Gateway) GetMembers(ctx context.Context, caller core.Caller, roomID int64) (*MembersResponse, error) {
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

	if !room.Public {
		allowed, err := g.memberOrAdmin(ctx, caller.UID, roomID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, core.ErrNoPrivileges
		}
	}

	members, err := g.messaging.GetRoomMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []core.Member{}
	}
	return &MembersResponse{Members: members}, nil
}

// Join adds the caller to a room.
func (g *Gateway) Join(ctx context.Context, caller core.Caller, roomID int64) error {
	ok, err := g.messaging.CanJoinRoom(ctx, caller.UID, roomID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrNoPrivileges
	}
	if err := g.messaging.AddUserToRoom(ctx, caller.UID, roomID); err != nil {
		return err
	}
	g.sockets.EmitToUIDs(core.EventChatsJoined, core.RoomEvent{RoomID: roomID}, []int64{caller.UID})
	return nil
}

// Leave removes the caller from a room.
func (g *Gateway) Leave(ctx context.Context, caller core.Caller, roomID int64) error {
	ok, err := g.messaging.CanLeaveRoom(ctx, caller.UID, roomID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrNoPrivileges
	}
	if err := g.messaging.RemoveUserFromRoom(ctx, caller.UID, roomID); err != nil {
		return err
	}
	g.sockets.EmitToUIDs(core.EventChatsLeft, core.RoomEvent{RoomID: roomID}, []int64{caller.UID})
	return nil
}

func (g *Gateway) memberOrAdmin(ctx context.Context, uid, roomID int64) (bool, error) {
	inRoom, err := g.messaging.IsUserInRoom(ctx, uid, roomID)
	if err != nil || inRoom {
		return inRoom, err
	}
	return g.users.IsAdministrator(ctx, uid)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
