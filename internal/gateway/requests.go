package gateway

import "github.com/vovakirdan/wirechat-gateway/internal/core"

// ListRequest selects a page of recent chats. Either Start and Stop or the
// legacy Page and PerPage pair must be present.
type ListRequest struct {
	UID     int64              `json:"uid"`
	Start   core.Optional[int] `json:"start"`
	Stop    core.Optional[int] `json:"stop"`
	Page    core.Optional[int] `json:"page"`
	PerPage core.Optional[int] `json:"perPage"`
}

// CreateRequest describes a room to create.
type CreateRequest struct {
	Type   string                  `json:"type"`
	Name   string                  `json:"roomName"`
	UIDs   core.Optional[[]int64]  `json:"uids"`
	Groups core.Optional[[]string] `json:"groups"`
}

// GetRequest loads a room for a viewer; UID defaults to the caller.
type GetRequest struct {
	UID    int64 `json:"uid"`
	RoomID int64 `json:"roomId"`
}

// PostRequest is an outgoing chat message.
type PostRequest struct {
	RoomID  int64  `json:"roomId"`
	Message string `json:"message"`
	ToMID   *int64 `json:"toMid,omitempty"`
}

// UpdateRequest is a partial room update. Only fields that are Set are applied.
type UpdateRequest struct {
	RoomID              int64                                   `json:"roomId"`
	Name                core.Optional[string]                   `json:"name"`
	Groups              core.Optional[[]string]                 `json:"groups"`
	NotificationSetting core.Optional[core.NotificationSetting] `json:"notificationSetting"`
}

// SortRequest assigns public-room ordering scores, paired by index.
type SortRequest struct {
	RoomIDs core.Optional[[]int64]   `json:"roomIds"`
	Scores  core.Optional[[]float64] `json:"scores"`
}

// MarkRequest sets a room's read state for the caller; State true means unread.
type MarkRequest struct {
	RoomID int64 `json:"roomId"`
	State  bool  `json:"state"`
}

// WatchRequest sets the caller's notification setting for a room.
type WatchRequest struct {
	RoomID int64                    `json:"roomId"`
	State  core.NotificationSetting `json:"state"`
}

// MessagesRequest selects a page of room history.
type MessagesRequest struct {
	RoomID int64  `json:"roomId"`
	Before *int64 `json:"before,omitempty"`
	Limit  int    `json:"limit"`
}

// UnreadResponse is the result of GetUnread.
type UnreadResponse struct {
	Count int `json:"count"`
}

// MembersResponse is the result of GetMembers.
type MembersResponse struct {
	Members []core.Member `json:"members"`
}
