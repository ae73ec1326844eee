// Package gateway validates chat requests, enforces authorization and rate
// limits, and delegates to the messaging, user, notification and database
// collaborators.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Cache keys and database keys written by the gateway.
const (
	PublicRoomOrderKey      = "chat:rooms:public:order"
	PublicRoomOrderCacheKey = "chat:rooms:public:order:all"
)

// RoomKey is the database hash holding a room's mutable attributes.
func RoomKey(roomID int64) string {
	return "chat:room:" + formatID(roomID)
}

// Settings are the read-only rate-limit parameters.
type Settings struct {
	NewbieReputationThreshold int
	ChatMessageDelay          time.Duration
	NewbieChatMessageDelay    time.Duration
}

// Deps are the collaborators a Gateway delegates to.
type Deps struct {
	Messaging     Messaging
	Users         Users
	Notifications Notifications
	DB            DB
	Cache         Cache
	Sockets       Sockets
	Hooks         Hooks
	Sessions      SessionStore
}

// Gateway is the chat request facade.
type Gateway struct {
	messaging     Messaging
	users         Users
	notifications Notifications
	db            DB
	cache         Cache
	sockets       Sockets
	hooks         Hooks
	sessions      SessionStore
	settings      Settings

	now func() time.Time
	log *zerolog.Logger

	// background tracks fire-and-forget work started by Post.
	background sync.WaitGroup
}

// New creates a gateway.
func New(deps Deps, settings Settings, logger *zerolog.Logger) *Gateway {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Gateway{
		messaging:     deps.Messaging,
		users:         deps.Users,
		notifications: deps.Notifications,
		db:            deps.DB,
		cache:         deps.Cache,
		sockets:       deps.Sockets,
		hooks:         deps.Hooks,
		sessions:      deps.Sessions,
		settings:      settings,
		now:           time.Now,
		log:           logger,
	}
}

// SetClock replaces the time source. Intended for tests.
func (g *Gateway) SetClock(now func() time.Time) {
	g.now = now
}

// Wait blocks until background work started by earlier calls has finished.
func (g *Gateway) Wait() {
	g.background.Wait()
}

// goBackground runs fn detached from the request's cancellation.
func (g *Gateway) goBackground(ctx context.Context, name string, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	g.background.Add(1)
	go func() {
		defer g.background.Done()
		if err := fn(ctx); err != nil {
			g.log.Warn().Err(err).Str("task", name).Msg("background task failed")
		}
	}()
}
