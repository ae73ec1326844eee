package socket

// Envelope is one event delivered to a connected client.
type Envelope struct {
	Event string
	Data  any
}

// Client is a connected socket as seen by the hub.
type Client struct {
	ID     string
	UID    int64
	Events chan *Envelope

	// channels is owned by the hub's Run loop.
	channels map[string]struct{}
}

// NewClient constructs a client with an initialized event buffer.
func NewClient(id string, uid int64) *Client {
	return &Client{
		ID:       id,
		UID:      uid,
		Events:   make(chan *Envelope, 32),
		channels: make(map[string]struct{}),
	}
}
