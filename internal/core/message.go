package core

import "time"

// Message is the domain model for a chat message.
type Message struct {
	MessageID int64    `json:"messageId"`
	RoomID    int64    `json:"roomId"`
	FromUID   int64    `json:"fromuid"`
	Content   string   `json:"content"`
	ToMID     *int64   `json:"toMid,omitempty"`
	Timestamp int64    `json:"timestamp"`
	IP        string   `json:"-"`
	FromUser  *UserRef `json:"fromUser,omitempty"`
}

// UserRef is the public identity of a message author.
type UserRef struct {
	UID      int64  `json:"uid"`
	Username string `json:"username"`
}

// Time returns the message timestamp as time.Time.
func (m *Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Caller is the authenticated actor issuing a gateway operation.
type Caller struct {
	UID       int64
	IP        string
	SessionID string
}
