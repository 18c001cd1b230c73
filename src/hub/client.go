package hub

import (
	"sync"
	"time"

	"github.com/agentsolvr/relay/src/types"
)

// Client wraps a connected consumer and manages envelope flow.
type Client struct {
	ID          string
	conn        types.Conn
	hub         *Hub
	Send        chan types.Envelope
	connectedAt time.Time
	topics      map[string]bool
	mu          sync.RWMutex
	done        chan struct{}
	closed      bool
}

// NewClient creates a new client wrapper around a transport.
func NewClient(id string, conn types.Conn, h *Hub) *Client {
	return &Client{
		ID:          id,
		conn:        conn,
		hub:         h,
		Send:        make(chan types.Envelope, 256),
		connectedAt: time.Now(),
		topics:      make(map[string]bool),
		done:        make(chan struct{}),
	}
}

// Info returns metadata about this client.
func (c *Client) Info() types.ClientInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	topics := make([]string, 0, len(c.topics))
	for t := range c.topics {
		topics = append(topics, t)
	}
	return types.ClientInfo{
		ID:          c.ID,
		ConnectedAt: c.connectedAt,
		Topics:      topics,
	}
}

// AddTopic records a topic subscription.
func (c *Client) AddTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[topic] = true
}

// RemoveTopic drops a topic subscription.
func (c *Client) RemoveTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.topics, topic)
}

// ReadPump reads frames from the transport and routes envelopes to the
// hub. Unparseable frames arrive as raw-type envelopes.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.hub.incoming <- inbound{clientID: c.ID, env: types.ParseEnvelope(raw)}
	}
}

// WritePump serializes envelopes from the send queue onto the transport.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case env, ok := <-c.Send:
			if !ok {
				return
			}
			data, err := env.Encode()
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(data); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close signals the client to stop its pumps.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
		close(c.Send)
	}
}
