package core

// Socket event names emitted to clients.
const (
	EventChatsReceive       = "event:chats.receive"
	EventChatsRoomRename    = "event:chats.roomRename"
	EventChatsMarkedAsRead  = "event:chats.markedAsRead"
	EventChatsMark          = "event:chats.mark"
	EventChatsWatch         = "event:chats.watch"
	EventChatsDeleted       = "event:chats.deleted"
	EventChatsJoined        = "event:chats.joined"
	EventChatsLeft          = "event:chats.left"
	EventChatsUnreadCount   = "event:chats.unreadCount"
	EventNotificationsCount = "event:notifications.updateCount"
)

// RoomRenameEvent is broadcast to a room's channel after a rename.
type RoomRenameEvent struct {
	RoomID          int64  `json:"roomId"`
	NewName         string `json:"newName"`
	ChatWithMessage string `json:"chatWithMessage"`
}

// RoomEvent carries only the affected room.
type RoomEvent struct {
	RoomID int64 `json:"roomId"`
}

// MarkEvent reports a read/unread state change.
type MarkEvent struct {
	RoomID int64 `json:"roomId"`
	State  bool  `json:"state"`
}

// WatchEvent reports a per-user notification setting change.
type WatchEvent struct {
	RoomID int64               `json:"roomId"`
	State  NotificationSetting `json:"state"`
}

// CountEvent carries an unread counter.
type CountEvent struct {
	Count int `json:"count"`
}

// ReceiveEvent delivers a new message.
type ReceiveEvent struct {
	RoomID  int64    `json:"roomId"`
	Message *Message `json:"message"`
}
