package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/auth"
	"github.com/vovakirdan/wirechat-gateway/internal/core"
)

const (
	// ContextKeyUID is the context key for the authenticated user id.
	ContextKeyUID = "uid"
	// ContextKeyUsername is the context key for the authenticated username.
	ContextKeyUsername = "username"
	// ContextKeySessionID is the context key for the caller's session id.
	ContextKeySessionID = "session_id"

	// SessionCookie carries the session id that scopes rate limits.
	SessionCookie = "wirechat_sid"
)

// AuthMiddleware validates the bearer token from the Authorization header or
// the token query parameter used by websocket clients.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug().Msg("invalid authorization header format")
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization header format"})
				return
			}
			token = parts[1]
		}
		if token == "" {
			logger.Debug().Msg("missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set(ContextKeyUID, claims.UID)
		c.Set(ContextKeyUsername, claims.Username)
		if sid := claims.SessionID(); sid != "" {
			c.Set(ContextKeySessionID, sid)
		}
		c.Next()
	}
}

// SessionMiddleware falls back to a session cookie for tokens that carry no
// session id, assigning one when the client has none.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextKeySessionID) != "" {
			c.Next()
			return
		}
		sid, err := c.Cookie(SessionCookie)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, sid, 0, "/", "", false, true)
		}
		c.Set(ContextKeySessionID, sid)
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

// callerFrom builds the gateway caller of an authenticated request.
func callerFrom(c *gin.Context) core.Caller {
	return core.Caller{
		UID:       c.GetInt64(ContextKeyUID),
		IP:        c.ClientIP(),
		SessionID: c.GetString(ContextKeySessionID),
	}
}
