package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/config"
	"github.com/vovakirdan/wirechat-gateway/internal/core"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
	"github.com/vovakirdan/wirechat-gateway/internal/proto"
	"github.com/vovakirdan/wirechat-gateway/internal/socket"
)

var errRateLimited = core.NewError("rate-limited", "too many frames")

// WSHandler upgrades HTTP connections and bridges them to the socket hub.
type WSHandler struct {
	hub   *socket.Hub
	gw    *gateway.Gateway
	rooms RoomAccess
	cfg   config.WSConfig
	log   *zerolog.Logger

	mu      sync.Mutex
	closing bool
	conns   map[*websocket.Conn]struct{}
	active  sync.WaitGroup
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *socket.Hub, gw *gateway.Gateway, rooms RoomAccess, cfg config.WSConfig, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:   hub,
		gw:    gw,
		rooms: rooms,
		cfg:   cfg,
		log:   logger,
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// track registers conn unless the handler is shutting down.
func (h *WSHandler) track(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.conns[conn] = struct{}{}
	h.active.Add(1)
	return true
}

func (h *WSHandler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	h.active.Done()
}

func (h *WSHandler) isClosing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closing
}

// Shutdown refuses new connections, closes open ones with StatusGoingAway and
// waits for their handlers to return. Connections still open when ctx expires
// are dropped.
func (h *WSHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		go conn.Close(websocket.StatusGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		for _, conn := range conns {
			conn.CloseNow()
		}
		return ctx.Err()
	}
}

// Handle serves GET /ws for an authenticated user.
func (h *WSHandler) Handle(c *gin.Context) {
	if h.isClosing() {
		c.AbortWithStatusJSON(stdhttp.StatusServiceUnavailable, ErrorResponse{Error: "server shutting down"})
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if !h.track(conn) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.untrack(conn)
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	caller := callerFrom(c)
	if caller.SessionID == "" {
		caller.SessionID = uuid.NewString()
	}
	client := socket.NewClient(uuid.NewString(), caller.UID)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	hello := proto.Outbound{
		Type: proto.OutboundTypeHello,
		Data: proto.HelloData{Protocol: proto.ProtocolVersion, UID: caller.UID, SessionID: caller.SessionID},
	}
	if err := wsjson.Write(ctx, conn, hello); err != nil {
		h.log.Debug().Err(err).Msg("write ws hello")
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, caller)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel()
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		switch s := websocket.CloseStatus(err); s {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		case -1:
			status, reason = websocket.StatusInternalError, "connection error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		default:
			status = s
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("ws peer closed")
		}
	}
	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *socket.Client, caller core.Caller) error {
	limiter := newRateLimiter(h.cfg.RateLimit)
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}
		if !limiter.allow() {
			if err := wsjson.Write(ctx, conn, errorFrame(inbound.ID, errRateLimited)); err != nil {
				return err
			}
			continue
		}

		reply := h.dispatch(ctx, client, caller, inbound)
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			return err
		}
	}
}

// dispatch executes one inbound frame and returns the ack or error answering it.
func (h *WSHandler) dispatch(ctx context.Context, client *socket.Client, caller core.Caller, inbound proto.Inbound) proto.Outbound {
	switch inbound.Type {
	case proto.InboundTypePing:
		return proto.Outbound{Type: proto.OutboundTypePong, ID: inbound.ID}
	case proto.InboundTypeEnter, proto.InboundTypeLeave:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil || data.RoomID <= 0 {
			return errorFrame(inbound.ID, core.ErrInvalidData)
		}
		channel := core.RoomChannel(data.RoomID)
		if inbound.Type == proto.InboundTypeLeave {
			h.hub.Leave(client, channel)
			return ackFrame(inbound.ID, data)
		}
		inRoom, err := h.rooms.IsUserInRoom(ctx, caller.UID, data.RoomID)
		if err != nil {
			h.log.Error().Err(err).Int64("room_id", data.RoomID).Msg("ws room membership lookup")
			return errorFrame(inbound.ID, err)
		}
		if !inRoom {
			return errorFrame(inbound.ID, core.ErrNotInRoom)
		}
		h.hub.Join(client, channel)
		return ackFrame(inbound.ID, data)
	case proto.InboundTypePost:
		var data proto.PostData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return errorFrame(inbound.ID, core.ErrInvalidData)
		}
		msg, err := h.gw.Post(ctx, caller, gateway.PostRequest{RoomID: data.RoomID, Message: data.Message, ToMID: data.ToMID})
		if err != nil {
			return errorFrame(inbound.ID, err)
		}
		return ackFrame(inbound.ID, msg)
	default:
		return errorFrame(inbound.ID, core.NewError("unknown-type", "unknown message type"))
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *socket.Client) error {
	for {
		select {
		case env, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEnvelope(env)); err != nil {
				h.log.Debug().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
