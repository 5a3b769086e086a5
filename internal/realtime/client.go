package realtime

import "sync"

// Client is one connection's outbound side. The transport drains Send.
type Client struct {
	ID string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient creates a client whose queue holds up to queue frames.
func NewClient(id string, queue int) *Client {
	if queue <= 0 {
		queue = 64
	}
	return &Client{ID: id, send: make(chan []byte, queue)}
}

// Send is closed once the hub drops the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// enqueue never blocks; it reports false when the queue is full or closed.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Closed reports whether the hub has dropped the client.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
