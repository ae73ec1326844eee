package core

import (
	"fmt"
	"time"
)

// NotificationSetting controls which room activity produces notifications.
type NotificationSetting int

const (
	NotificationNone        NotificationSetting = 1
	NotificationAtMention   NotificationSetting = 2
	NotificationAllMessages NotificationSetting = 3
)

// Valid reports whether s is one of the known settings.
func (s NotificationSetting) Valid() bool {
	return s >= NotificationNone && s <= NotificationAllMessages
}

func (s NotificationSetting) String() string {
	switch s {
	case NotificationNone:
		return "none"
	case NotificationAtMention:
		return "atmention"
	case NotificationAllMessages:
		return "allmessages"
	default:
		return fmt.Sprintf("NotificationSetting(%d)", int(s))
	}
}

// DefaultNotificationSetting is the setting a new room starts with.
func DefaultNotificationSetting(public bool) NotificationSetting {
	if public {
		return NotificationAtMention
	}
	return NotificationAllMessages
}

// Room is a chat channel as returned by the messaging layer.
type Room struct {
	RoomID              int64               `json:"roomId"`
	OwnerUID            int64               `json:"owner"`
	RoomName            string              `json:"roomName"`
	Public              bool                `json:"public"`
	Groups              []string            `json:"groups"`
	NotificationSetting NotificationSetting `json:"notificationSetting"`
	UserCount           int                 `json:"userCount"`
	CreatedAt           time.Time           `json:"createdAt"`
}

// Member is a user that belongs to a room.
type Member struct {
	UID      int64  `json:"uid"`
	Username string `json:"username"`
	IsOwner  bool   `json:"isOwner"`
}

// RoomView is a room loaded for a specific viewer.
type RoomView struct {
	Room
	Users           []Member  `json:"users"`
	Messages        []Message `json:"messages"`
	IsOwner         bool      `json:"isOwner"`
	IsAdmin         bool      `json:"isAdmin"`
	CanReply        bool      `json:"canReply"`
	ChatWithMessage string    `json:"chatWithMessage"`
	// UserNotificationSetting is the viewer's own watch state for the room.
	UserNotificationSetting NotificationSetting `json:"userNotificationSetting"`
}

// RoomSummary is one entry of a recent-chats page.
type RoomSummary struct {
	Room
	Unread          bool     `json:"unread"`
	Teaser          *Message `json:"teaser,omitempty"`
	Users           []Member `json:"users"`
	ChatWithMessage string   `json:"chatWithMessage"`
}

// RecentChats is a page of rooms ordered by latest activity.
type RecentChats struct {
	Rooms     []RoomSummary `json:"rooms"`
	NextStart int           `json:"nextStart"`
}

// NewRoomData describes a room to be created.
type NewRoomData struct {
	Name                string
	Public              bool
	UIDs                []int64
	Groups              []string
	NotificationSetting NotificationSetting
}

// RoomChannel is the socket channel a room's subscribers listen on.
func RoomChannel(roomID int64) string {
	return fmt.Sprintf("chat_room_%d", roomID)
}

// UIDChannel is the personal socket channel of a user.
func UIDChannel(uid int64) string {
	return fmt.Sprintf("uid_%d", uid)
}
