package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
)

// ChatHandlers exposes the chat gateway over REST.
type ChatHandlers struct {
	gw  *gateway.Gateway
	log *zerolog.Logger
}

// NewChatHandlers creates chat handlers backed by gw.
func NewChatHandlers(gw *gateway.Gateway, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{gw: gw, log: logger}
}

// roomID parses the :roomId path parameter.
func roomID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("roomId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrInvalidData
	}
	return id, nil
}

func queryInt64(c *gin.Context, key string) (int64, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, core.ErrWrongParameterType
	}
	return v, nil
}

func queryOptionalInt(c *gin.Context, key string) (core.Optional[int], error) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return core.Optional[int]{}, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return core.Optional[int]{}, core.ErrWrongParameterType
	}
	return core.Some(v), nil
}

// List returns the caller's recent chats.
// GET /api/v3/chats?start=&stop= or ?page=&perPage=
func (h *ChatHandlers) List(c *gin.Context) {
	var (
		req gateway.ListRequest
		err error
	)
	if req.UID, err = queryInt64(c, "uid"); err != nil {
		h.writeError(c, err)
		return
	}
	for key, dst := range map[string]*core.Optional[int]{
		"start":   &req.Start,
		"stop":    &req.Stop,
		"page":    &req.Page,
		"perPage": &req.PerPage,
	} {
		if *dst, err = queryOptionalInt(c, key); err != nil {
			h.writeError(c, err)
			return
		}
	}

	chats, err := h.gw.List(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

// Create opens a new room.
// POST /api/v3/chats
func (h *ChatHandlers) Create(c *gin.Context) {
	var req gateway.CreateRequest
	if err := bindJSON(c, &req, core.ErrWrongParameterType); err != nil {
		h.writeError(c, err)
		return
	}
	room, err := h.gw.Create(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// GetUnread returns the caller's unread room count.
// GET /api/v3/chats/unread
func (h *ChatHandlers) GetUnread(c *gin.Context) {
	resp, err := h.gw.GetUnread(c.Request.Context(), callerFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SortPublicRooms reorders public rooms.
// PUT /api/v3/chats/sort
func (h *ChatHandlers) SortPublicRooms(c *gin.Context) {
	var req gateway.SortRequest
	if err := bindJSON(c, &req, core.ErrInvalidData); err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.gw.SortPublicRooms(c.Request.Context(), callerFrom(c), req); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// PublicRooms lists public rooms in their configured order.
// GET /api/v3/chats/public
func (h *ChatHandlers) PublicRooms(c *gin.Context) {
	rooms, err := h.gw.PublicRooms(c.Request.Context(), callerFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// Get loads a room view.
// GET /api/v3/chats/:roomId?uid=
func (h *ChatHandlers) Get(c *gin.Context) {
	id, err := roomID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	uid, err := queryInt64(c, "uid")
	if err != nil {
		h.writeError(c, err)
		return
	}
	view, err := h.gw.Get(c.Request.Context(), callerFrom(c), gateway.GetRequest{UID: uid, RoomID: id})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Post sends a message to a room.
// POST /api/v3/chats/:roomId
func (h *ChatHandlers) Post(c *gin.Context) {
	id, err := roomID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req gateway.PostRequest
	if err := bindJSON(c, &req, core.ErrWrongParameterType); err != nil {
		h.writeError(c, err)
		return
	}
	req.RoomID = id

	msg, err := h.gw.Post(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// Update applies a partial room update.
// PATCH /api/v3/chats/:roomId
func (h *ChatHandlers) Update(c *gin.Context) {
	h.update(c, h.gw.Update)
}

// Rename changes a room's name.
// PUT /api/v3/chats/:roomId
func (h *ChatHandlers) Rename(c *gin.Context) {
	h.update(c, h.gw.Rename)
}

type updateFunc func(ctx context.Context, caller core.Caller, req gateway.UpdateRequest) (*core.RoomView, error)

func (h *ChatHandlers) update(c *gin.Context, fn updateFunc) {
	id, err := roomID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req gateway.UpdateRequest
	if err := bindJSON(c, &req, core.ErrWrongParameterType); err != nil {
		h.writeError(c, err)
		return
	}
	req.RoomID = id

	view, err := fn(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete removes a room.
// DELETE /api/v3/chats/:roomId
func (h *ChatHandlers) Delete(c *gin.Context) {
	h.roomAction(c, h.gw.Delete)
}

// MarkUnread flags a room as unread for the caller.
// PUT /api/v3/chats/:roomId/state
func (h *ChatHandlers) MarkUnread(c *gin.Context) {
	h.mark(c, true)
}

// MarkRead clears the caller's unread flag on a room.
// DELETE /api/v3/chats/:roomId/state
func (h *ChatHandlers) MarkRead(c *gin.Context) {
	h.mark(c, false)
}

func (h *ChatHandlers) mark(c *gin.Context, state bool) {
	id, err := roomID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.gw.Mark(c.Request.Context(), callerFrom(c), gateway.MarkRequest{RoomID: id, State: state}); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Watch sets the caller's notification setting for a room.
// PUT /api/v3/chats/:roomId/watch
func (h *ChatHandlers) Watch(c *gin.Context) {
	id, err := roomID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req gateway.WatchRequest
	if err := bindJSON(c, &req, core.ErrInvalidData); err != nil {
		h.writeError(c, err)
		return
	}
	req.RoomID = id

	if err := h.gw.Watch(c.Request.Context(), callerFrom(c), req); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// GetMembers lists a room's members.
// GET /api/v3/chats/:roomId/users
func (h *ChatHandlers) GetMembers(c *gin.Context) {
	id, err := roomID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp, err := h.gw.GetMembers(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Join adds the caller to a public room.
// POST /api/v3/chats/:roomId/users
func (h *ChatHandlers) Join(c *gin.Context) {
	h.roomAction(c, h.gw.Join)
}

// Leave removes the caller from a room.
// DELETE /api/v3/chats/:roomId/users
func (h *ChatHandlers) Leave(c *gin.Context) {
	h.roomAction(c, h.gw.Leave)
}

func (h *ChatHandlers) roomAction(c *gin.Context, fn func(ctx context.Context, caller core.Caller, roomID int64) error) {
	id, err := roomID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := fn(c.Request.Context(), callerFrom(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// GetRoomData returns the raw room record.
// GET /api/v3/chats/:roomId/raw
func (h *ChatHandlers) GetRoomData(c *gin.Context) {
	id, err := roomID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	room, err := h.gw.GetRoomData(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// Messages returns a page of room history.
// GET /api/v3/chats/:roomId/messages?before=&limit=
func (h *ChatHandlers) Messages(c *gin.Context) {
	id, err := roomID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	req := gateway.MessagesRequest{RoomID: id}
	before, err := queryInt64(c, "before")
	if err != nil {
		h.writeError(c, err)
		return
	}
	if before > 0 {
		req.Before = &before
	}
	limit, err := queryInt64(c, "limit")
	if err != nil {
		h.writeError(c, err)
		return
	}
	req.Limit = int(limit)

	msgs, err := h.gw.Messages(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
