package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is wrapped by every lookup that finds no record.
var ErrNotFound = errors.New("not found")

// Well-known group names.
const (
	GroupAdministrators   = "administrators"
	GroupGlobalModerators = "Global Moderators"
	GroupRegisteredUsers  = "registered-users"
)

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Reputation   int
	RestrictChat bool // only followed users may start chats
	CreatedAt    time.Time
}

// Room represents a chat room.
type Room struct {
	ID        int64
	OwnerUID  int64
	Name      string
	Public    bool
	CreatedAt time.Time
}

// RecentRoom is a room together with the member's activity state.
type RecentRoom struct {
	Room
	Unread       bool
	LastActivity time.Time
}

// RoomMember represents room membership.
type RoomMember struct {
	RoomID   int64
	UID      int64
	Username string
	Unread   bool
	JoinedAt time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ID        int64
	RoomID    int64
	UID       int64
	Content   string
	ToMID     *int64
	IP        string
	CreatedAt time.Time
}

// Notification is an unread-tracking record for a user.
type Notification struct {
	NID       string
	UID       int64
	RoomID    int64
	Body      string
	Read      bool
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SetReputation overwrites a user's reputation.
	SetReputation(ctx context.Context, uid int64, reputation int) error

	// SetRestrictChat toggles whether only followed users may chat with uid.
	SetRestrictChat(ctx context.Context, uid int64, restrict bool) error

	// AddUserToGroup adds the user to a named group. Idempotent.
	AddUserToGroup(ctx context.Context, uid int64, group string) error

	// IsUserInGroup checks group membership.
	IsUserInGroup(ctx context.Context, uid int64, group string) (bool, error)

	// ListUserGroups lists the groups a user belongs to.
	ListUserGroups(ctx context.Context, uid int64) ([]string, error)

	// Follow records that uid follows followUID.
	Follow(ctx context.Context, uid, followUID int64) error

	// Unfollow removes the follow edge. Missing edges are ignored.
	Unfollow(ctx context.Context, uid, followUID int64) error

	// IsFollowing checks whether uid follows followUID.
	IsFollowing(ctx context.Context, uid, followUID int64) (bool, error)
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a room and adds the owner and members in one transaction.
	CreateRoom(ctx context.Context, ownerUID int64, name string, public bool, memberUIDs []int64) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// RenameRoom changes a room's display name.
	RenameRoom(ctx context.Context, id int64, name string) error

	// DeleteRoom removes a room with its members and messages.
	DeleteRoom(ctx context.Context, id int64) error

	// AddMember adds a user to a room.
	AddMember(ctx context.Context, uid, roomID int64) error

	// RemoveMember removes a user from a room.
	RemoveMember(ctx context.Context, uid, roomID int64) error

	// IsMember checks if user is a member of the room.
	IsMember(ctx context.Context, uid, roomID int64) (bool, error)

	// ListMembers lists all members of a room, owner first.
	ListMembers(ctx context.Context, roomID int64) ([]*RoomMember, error)

	// SetUnread flags the room unread (or read) for the given members.
	SetUnread(ctx context.Context, roomID int64, uids []int64, unread bool) error

	// CountUnreadRooms counts rooms with unread messages for uid.
	CountUnreadRooms(ctx context.Context, uid int64) (int, error)

	// ListRecentRooms lists the user's rooms by latest activity, inclusive offsets.
	ListRecentRooms(ctx context.Context, uid int64, start, stop int) ([]*RecentRoom, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and sets its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListMessages retrieves messages from a room with pagination.
	// If beforeID is provided, returns messages older than that ID.
	// Messages are returned oldest first.
	ListMessages(ctx context.Context, roomID int64, limit int, beforeID *int64) ([]*Message, error)
}

// NotificationStore handles notification persistence.
type NotificationStore interface {
	// CreateNotification stores a new unread notification.
	CreateNotification(ctx context.Context, n *Notification) error

	// ListUnreadNotificationIDs returns unread nids of uid scoped to the given rooms.
	ListUnreadNotificationIDs(ctx context.Context, uid int64, roomIDs []int64) ([]string, error)

	// MarkNotificationsRead marks the given nids read for uid.
	MarkNotificationsRead(ctx context.Context, uid int64, nids []string) error

	// CountUnreadNotifications counts unread notifications of uid.
	CountUnreadNotifications(ctx context.Context, uid int64) (int, error)
}

// KV is the generic hash and sorted-set database.
type KV interface {
	// SetObjectField sets one field of the hash at key.
	SetObjectField(ctx context.Context, key, field, value string) error

	// SetObject sets several fields of the hash at key.
	SetObject(ctx context.Context, key string, fields map[string]string) error

	// GetObject returns all fields of the hash at key; empty when missing.
	GetObject(ctx context.Context, key string) (map[string]string, error)

	// GetObjectField returns one field and whether it exists.
	GetObjectField(ctx context.Context, key, field string) (string, bool, error)

	// Delete removes the key regardless of type.
	Delete(ctx context.Context, key string) error

	// SortedSetAdd adds members with scores; scores and members are paired by index.
	SortedSetAdd(ctx context.Context, key string, scores []float64, members []string) error

	// SortedSetRange returns members by ascending score, inclusive offsets; stop -1 means the end.
	SortedSetRange(ctx context.Context, key string, start, stop int) ([]string, error)

	// SortedSetRemove removes members from the set.
	SortedSetRemove(ctx context.Context, key string, members ...string) error

	// SortedSetScore returns a member's score and whether it exists.
	SortedSetScore(ctx context.Context, key, member string) (float64, bool, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore
	NotificationStore

	// Close closes the underlying database connection.
	Close() error
}
