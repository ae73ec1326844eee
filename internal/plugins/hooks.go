// Package plugins provides named hook points that let extensions rewrite
// payloads before the chat layer acts on them.
package plugins

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// HookMessagingSend fires before a chat message is persisted.
const HookMessagingSend = "filter:messaging.send"

// DefaultPriority is used by RegisterSendFilter callers that do not care about order.
const DefaultPriority = 10

// SendData is the caller-supplied part of an outgoing message.
type SendData struct {
	RoomID  int64
	Message string
	ToMID   *int64
}

// SendPayload is passed through every send filter.
type SendPayload struct {
	Data SendData
	UID  int64
}

// SendFilter may rewrite the payload or abort the send by returning an error.
type SendFilter func(ctx context.Context, payload SendPayload) (SendPayload, error)

type sendFilterEntry struct {
	id       string
	priority int
	seq      int
	fn       SendFilter
}

// Hooks is a registry of filters. Safe for concurrent use.
type Hooks struct {
	mu          sync.RWMutex
	seq         int
	sendFilters []sendFilterEntry
}

// New creates an empty hook registry.
func New() *Hooks {
	return &Hooks{}
}

// RegisterSendFilter adds a filter for HookMessagingSend. Lower priority runs first;
// equal priorities run in registration order.
func (h *Hooks) RegisterSendFilter(id string, priority int, fn SendFilter) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	h.sendFilters = append(h.sendFilters, sendFilterEntry{id: id, priority: priority, seq: h.seq, fn: fn})
	sort.SliceStable(h.sendFilters, func(i, j int) bool {
		if h.sendFilters[i].priority != h.sendFilters[j].priority {
			return h.sendFilters[i].priority < h.sendFilters[j].priority
		}
		return h.sendFilters[i].seq < h.sendFilters[j].seq
	})
}

// FireSendFilter runs every registered send filter in order.
func (h *Hooks) FireSendFilter(ctx context.Context, payload SendPayload) (SendPayload, error) {
	h.mu.RLock()
	filters := make([]sendFilterEntry, len(h.sendFilters))
	copy(filters, h.sendFilters)
	h.mu.RUnlock()

	for _, f := range filters {
		next, err := f.fn(ctx, payload)
		if err != nil {
			return payload, fmt.Errorf("%s [%s]: %w", HookMessagingSend, f.id, err)
		}
		payload = next
	}
	return payload, nil
}
