package gateway

import (
	"context"
	"time"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/plugins"
)

// Messaging owns rooms, membership, messages and unread counters.
type Messaging interface {
	GetRecentChats(ctx context.Context, callerUID, uid int64, start, stop int) (*core.RecentChats, error)
	NewRoom(ctx context.Context, uid int64, data core.NewRoomData) (int64, error)
	// GetRoomData returns nil without error when the room does not exist.
	GetRoomData(ctx context.Context, roomID int64) (*core.Room, error)
	LoadRoom(ctx context.Context, callerUID, uid, roomID int64) (*core.RoomView, error)
	CanMessageUser(ctx context.Context, uid, toUID int64) error
	CanMessageRoom(ctx context.Context, uid, roomID int64) error
	SendMessage(ctx context.Context, msg *core.Message) (*core.Message, error)
	NotifyUsersInRoom(ctx context.Context, fromUID, roomID int64, msg *core.Message) error
	RenameRoom(ctx context.Context, uid, roomID int64, name string) error
	MarkRead(ctx context.Context, uid, roomID int64) error
	MarkUnread(ctx context.Context, uids []int64, roomID int64) error
	PushUnreadCount(ctx context.Context, uid int64) error
	GetUnreadCount(ctx context.Context, uid int64) (int, error)
	IsUserInRoom(ctx context.Context, uid, roomID int64) (bool, error)
	SetUserNotificationSetting(ctx context.Context, uid, roomID int64, setting core.NotificationSetting) error
	CanJoinRoom(ctx context.Context, uid, roomID int64) (bool, error)
	CanLeaveRoom(ctx context.Context, uid, roomID int64) (bool, error)
	AddUserToRoom(ctx context.Context, uid, roomID int64) error
	RemoveUserFromRoom(ctx context.Context, uid, roomID int64) error
	GetRoomMembers(ctx context.Context, roomID int64) ([]core.Member, error)
	DeleteRoom(ctx context.Context, roomID int64) error
	GetPublicRooms(ctx context.Context, uid int64) ([]core.Room, error)
	GetMessages(ctx context.Context, uid, roomID int64, limit int, beforeID *int64) ([]core.Message, error)
}

// UserNotifications is the notification view of the user service.
type UserNotifications interface {
	GetUnreadByField(ctx context.Context, uid int64, field string, values []string) ([]string, error)
	PushCount(ctx context.Context, uid int64) error
}

// Users answers identity, privilege and presence questions.
type Users interface {
	IsPrivileged(ctx context.Context, uid int64) (bool, error)
	IsAdministrator(ctx context.Context, uid int64) (bool, error)
	GetUserField(ctx context.Context, uid int64, field string) (string, error)
	UpdateOnlineUsers(ctx context.Context, uid int64) error
	Notifications() UserNotifications
}

// Notifications performs notification bookkeeping.
type Notifications interface {
	MarkReadMultiple(ctx context.Context, nids []string, uid int64) error
}

// DB is the subset of the key-value database the gateway writes to directly.
type DB interface {
	SetObjectField(ctx context.Context, key, field, value string) error
	SortedSetAdd(ctx context.Context, key string, scores []float64, members []string) error
}

// Cache invalidates derived views.
type Cache interface {
	Del(key string)
}

// Sockets broadcasts real-time events. Delivery is fire-and-forget.
type Sockets interface {
	EmitToUIDs(event string, payload any, uids []int64)
	EmitToRoom(channel, event string, payload any)
}

// Hooks lets extensions rewrite outgoing messages.
type Hooks interface {
	FireSendFilter(ctx context.Context, payload plugins.SendPayload) (plugins.SendPayload, error)
}

// SessionStore tracks per-session rate-limit markers.
type SessionStore interface {
	// Allow reports whether at least delay has passed since the marker named
	// field was last recorded for sessionID. When allowed, the marker is set to now;
	// otherwise it is left untouched.
	Allow(sessionID, field string, now time.Time, delay time.Duration) bool
}
