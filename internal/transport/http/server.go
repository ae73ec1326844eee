package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/auth"
	"github.com/vovakirdan/wirechat-gateway/internal/config"
	"github.com/vovakirdan/wirechat-gateway/internal/gateway"
	"github.com/vovakirdan/wirechat-gateway/internal/service/follows"
	"github.com/vovakirdan/wirechat-gateway/internal/socket"
)

// RoomAccess decides whether a socket may subscribe to a room channel.
type RoomAccess interface {
	IsUserInRoom(ctx context.Context, uid, roomID int64) (bool, error)
}

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Gateway *gateway.Gateway
	Auth    *auth.Service
	Hub     *socket.Hub
	Rooms   RoomAccess
	Follows *follows.Service
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps, cfg config.Config, logger *zerolog.Logger) *gin.Engine {
	r, _ := newRouter(deps, cfg, logger)
	return r
}

func newRouter(deps Deps, cfg config.Config, logger *zerolog.Logger) (*gin.Engine, *WSHandler) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	api := NewAPIHandlers(deps.Auth, logger)
	r.POST("/api/register", api.Register)
	r.POST("/api/login", api.Login)

	authed := AuthMiddleware(deps.Auth, logger)
	chats := NewChatHandlers(deps.Gateway, logger)
	g := r.Group("/api/v3/chats", authed, SessionMiddleware())
	{
		g.GET("", chats.List)
		g.POST("", chats.Create)
		g.GET("/unread", chats.GetUnread)
		g.PUT("/sort", chats.SortPublicRooms)
		g.GET("/public", chats.PublicRooms)
		g.GET("/:roomId", chats.Get)
		g.POST("/:roomId", chats.Post)
		g.PATCH("/:roomId", chats.Update)
		g.PUT("/:roomId", chats.Rename)
		g.DELETE("/:roomId", chats.Delete)
		g.PUT("/:roomId/state", chats.MarkUnread)
		g.DELETE("/:roomId/state", chats.MarkRead)
		g.PUT("/:roomId/watch", chats.Watch)
		g.GET("/:roomId/users", chats.GetMembers)
		g.POST("/:roomId/users", chats.Join)
		g.DELETE("/:roomId/users", chats.Leave)
		g.GET("/:roomId/raw", chats.GetRoomData)
		g.GET("/:roomId/messages", chats.Messages)
	}

	users := NewUserHandlers(deps.Follows, logger)
	u := r.Group("/api/v3/users", authed)
	{
		u.PUT("/settings", users.UpdateSettings)
		u.PUT("/:uid/follow", users.Follow)
		u.DELETE("/:uid/follow", users.Unfollow)
	}

	ws := NewWSHandler(deps.Hub, deps.Gateway, deps.Rooms, cfg.WS, logger)
	r.GET("/ws", authed, ws.Handle)

	return r, ws
}

// Server is the HTTP server plus the websocket connections it has hijacked.
type Server struct {
	*stdhttp.Server
	ws *WSHandler
}

// NewServer builds the HTTP server.
func NewServer(deps Deps, cfg config.Config, logger *zerolog.Logger) *Server {
	router, ws := newRouter(deps, cfg, logger)
	return &Server{
		Server: &stdhttp.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		ws: ws,
	}
}

// Shutdown stops the HTTP server, then closes websocket connections, which
// http.Server.Shutdown does not track once hijacked.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	if wsErr := s.ws.Shutdown(ctx); err == nil {
		err = wsErr
	}
	return err
}
