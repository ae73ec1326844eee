package socket

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/core"
)

type subscription struct {
	client  *Client
	channel string
}

type emission struct {
	channels []string
	env      *Envelope
}

// Hub fans socket events out to subscribed clients. All routing state is
// owned by the Run loop; public methods only enqueue work.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	join       chan subscription
	leave      chan subscription
	emit       chan emission
	done       chan struct{}

	rooms map[string]*Room
	log   *zerolog.Logger
}

// NewHub creates a hub. Run must be started before events are delivered.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan subscription),
		leave:      make(chan subscription),
		emit:       make(chan emission, 256),
		done:       make(chan struct{}),
		rooms:      make(map[string]*Room),
		log:        logger,
	}
}

// Run processes hub operations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.subscribe(c, core.UIDChannel(c.UID))
		case c := <-h.unregister:
			for channel := range c.channels {
				h.unsubscribe(c, channel)
			}
			close(c.Events)
		case s := <-h.join:
			h.subscribe(s.client, s.channel)
		case s := <-h.leave:
			h.unsubscribe(s.client, s.channel)
		case e := <-h.emit:
			for _, channel := range e.channels {
				room, ok := h.rooms[channel]
				if !ok {
					continue
				}
				if dropped := room.Broadcast(e.env); dropped > 0 {
					h.log.Warn().Str("channel", channel).Str("event", e.env.Event).Int("dropped", dropped).Msg("slow socket consumers dropped event")
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) subscribe(c *Client, channel string) {
	room, ok := h.rooms[channel]
	if !ok {
		room = NewRoom(channel)
		h.rooms[channel] = room
	}
	if room.AddClient(c) {
		c.channels[channel] = struct{}{}
	}
}

func (h *Hub) unsubscribe(c *Client, channel string) {
	room, ok := h.rooms[channel]
	if !ok {
		return
	}
	room.RemoveClient(c)
	delete(c.channels, channel)
	if room.Empty() {
		delete(h.rooms, channel)
	}
}

// RegisterClient subscribes the client to its personal uid channel.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient removes the client from all channels and closes its Events.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join subscribes the client to a channel.
func (h *Hub) Join(c *Client, channel string) {
	select {
	case h.join <- subscription{client: c, channel: channel}:
	case <-h.done:
	}
}

// Leave unsubscribes the client from a channel.
func (h *Hub) Leave(c *Client, channel string) {
	select {
	case h.leave <- subscription{client: c, channel: channel}:
	case <-h.done:
	}
}

// EmitToUIDs delivers an event to every connection of the given users.
// Delivery is fire-and-forget.
func (h *Hub) EmitToUIDs(event string, payload any, uids []int64) {
	if len(uids) == 0 {
		return
	}
	channels := make([]string, len(uids))
	for i, uid := range uids {
		channels[i] = core.UIDChannel(uid)
	}
	h.enqueue(emission{channels: channels, env: &Envelope{Event: event, Data: payload}})
}

// EmitToRoom delivers an event to every client subscribed to channel.
func (h *Hub) EmitToRoom(channel, event string, payload any) {
	h.enqueue(emission{channels: []string{channel}, env: &Envelope{Event: event, Data: payload}})
}

func (h *Hub) enqueue(e emission) {
	select {
	case h.emit <- e:
	default:
		h.log.Warn().Str("event", e.env.Event).Msg("socket emit queue full, dropping event")
	}
}
