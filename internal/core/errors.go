package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeInvalidData        = "invalid-data"
	ErrCodeWrongParameterType = "wrong-parameter-type"
	ErrCodeTooManyMessages    = "too-many-messages"
	ErrCodeNoPrivileges       = "no-privileges"
	ErrCodeNoUsersSelected    = "no-users-selected"
	ErrCodeNoGroupsSelected   = "no-groups-selected"

	// Messaging collaborator codes
	ErrCodeNoRoom             = "no-room"
	ErrCodeNoUser             = "no-user"
	ErrCodeNotInRoom          = "not-in-room"
	ErrCodeCantChatWithSelf   = "cant-chat-with-yourself"
	ErrCodeChatRestricted     = "chat-restricted"
	ErrCodeInvalidChatMessage = "invalid-chat-message"
	ErrCodeChatMessageTooLong = "chat-message-too-long"
	ErrCodeInvalidRoomName    = "invalid-room-name"
	ErrCodeInvalidCredentials = "invalid-credentials"
)

var (
	ErrInvalidData        = coreError(ErrCodeInvalidData, "invalid data")
	ErrWrongParameterType = coreError(ErrCodeWrongParameterType, "wrong parameter type")
	ErrTooManyMessages    = coreError(ErrCodeTooManyMessages, "you are sending messages too quickly")
	ErrNoPrivileges       = coreError(ErrCodeNoPrivileges, "you do not have enough privileges for this action")
	ErrNoUsersSelected    = coreError(ErrCodeNoUsersSelected, "no users selected")
	ErrNoGroupsSelected   = coreError(ErrCodeNoGroupsSelected, "no groups selected")

	ErrNoRoom             = coreError(ErrCodeNoRoom, "chat room does not exist")
	ErrNoUser             = coreError(ErrCodeNoUser, "user does not exist")
	ErrNotInRoom          = coreError(ErrCodeNotInRoom, "user is not in room")
	ErrCantChatWithSelf   = coreError(ErrCodeCantChatWithSelf, "you can't chat with yourself")
	ErrChatRestricted     = coreError(ErrCodeChatRestricted, "this user has restricted their chat messages")
	ErrInvalidChatMessage = coreError(ErrCodeInvalidChatMessage, "invalid chat message")
	ErrChatMessageTooLong = coreError(ErrCodeChatMessageTooLong, "chat message is too long")
	ErrInvalidRoomName    = coreError(ErrCodeInvalidRoomName, "invalid room name")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so wrapped or
// re-created errors still match the sentinels above.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// NewError builds a domain error with a custom message for an existing code.
func NewError(code, msg string) *CoreError {
	return coreError(code, msg)
}

// Code extracts the domain code from err, or "" when err is not a CoreError.
func Code(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
