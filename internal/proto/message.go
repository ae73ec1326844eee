package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 2

	InboundTypeEnter = "enter"
	InboundTypeLeave = "leave"
	InboundTypePost  = "post"
	InboundTypePing  = "ping"

	OutboundTypeHello = "hello"
	OutboundTypeEvent = "event"
	OutboundTypeAck   = "ack"
	OutboundTypeError = "error"
	OutboundTypePong  = "pong"
)

// RoomData names the room an enter or leave frame refers to.
type RoomData struct {
	RoomID int64 `json:"roomId"`
}

// PostData is a chat message sent over the socket.
type PostData struct {
	RoomID  int64  `json:"roomId"`
	Message string `json:"message"`
	ToMID   *int64 `json:"toMid,omitempty"`
}

// HelloData is sent once after the connection is accepted.
type HelloData struct {
	Protocol  int    `json:"protocol"`
	UID       int64  `json:"uid"`
	SessionID string `json:"sessionId"`
}

// Outbound is the envelope for frames sent to the client. ID echoes the
// inbound frame an ack or error answers.
type Outbound struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
