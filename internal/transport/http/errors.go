package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func statusForCode(code string) int {
	switch code {
	case core.ErrCodeInvalidData, core.ErrCodeWrongParameterType,
		core.ErrCodeNoUsersSelected, core.ErrCodeNoGroupsSelected,
		core.ErrCodeCantChatWithSelf, core.ErrCodeInvalidChatMessage,
		core.ErrCodeChatMessageTooLong, core.ErrCodeInvalidRoomName:
		return http.StatusBadRequest
	case core.ErrCodeNoPrivileges, core.ErrCodeChatRestricted, core.ErrCodeNotInRoom:
		return http.StatusForbidden
	case core.ErrCodeTooManyMessages:
		return http.StatusTooManyRequests
	case core.ErrCodeNoRoom, core.ErrCodeNoUser:
		return http.StatusNotFound
	case core.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *ChatHandlers) writeError(c *gin.Context, err error) {
	writeError(c, h.log, err)
}

// writeError answers with the status of a domain error, or 500 for anything else.
func writeError(c *gin.Context, log *zerolog.Logger, err error) {
	code := core.Code(err)
	status := statusForCode(code)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	log.Debug().Err(err).Str("code", code).Str("path", c.FullPath()).Msg("request rejected")
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// bindJSON decodes the request body into dst. An empty body leaves dst as is.
// Type mismatches become typeErr; other malformed input is invalid-data.
func bindJSON(c *gin.Context, dst any, typeErr error) error {
	if c.Request.Body == nil {
		return nil
	}
	err := json.NewDecoder(c.Request.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var typeErrJSON *json.UnmarshalTypeError
	if errors.As(err, &typeErrJSON) {
		return typeErr
	}
	return core.ErrInvalidData
}
