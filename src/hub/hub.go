package hub

import (
	"sync"

	"github.com/agentsolvr/relay/src/types"
	"github.com/rs/zerolog"
)

// EnvelopeBridge publishes envelopes to other server instances.
// Defined here to avoid circular imports with the bridge package.
type EnvelopeBridge interface {
	Publish(topic string, env types.Envelope) error
	Available() bool
}

// Hub manages connected clients and topic subscriptions on the serving
// end of the envelope protocol.
type Hub struct {
	clients map[string]*Client
	topics  map[string]map[string]bool // topic -> set of clientIDs

	register   chan *Client
	unregister chan *Client
	incoming   chan inbound
	publish    chan publication
	localCast  chan publication // envelopes from the bridge, no re-publish

	handlers  map[string]types.EnvelopeHandler // keyed by envelope type
	onConnect []func(string)
	onDisconn []func(string)

	bridge EnvelopeBridge
	mu     sync.RWMutex
	logger zerolog.Logger
	done   chan struct{}
}

type inbound struct {
	clientID string
	env      types.Envelope
}

type publication struct {
	topic string
	env   types.Envelope
}

// New creates a new Hub instance.
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		topics:     make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan inbound, 256),
		publish:    make(chan publication, 256),
		localCast:  make(chan publication, 256),
		handlers:   make(map[string]types.EnvelopeHandler),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// SetBridge attaches a cross-instance envelope bridge to the hub.
// When set, published envelopes are also forwarded to other instances.
func (h *Hub) SetBridge(b EnvelopeBridge) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bridge = b
}

// BroadcastToLocal delivers an envelope from the bridge to local
// subscribers only. It does not re-publish, preventing infinite loops.
func (h *Hub) BroadcastToLocal(topic string, env types.Envelope) {
	h.localCast <- publication{topic: topic, env: env}
}

// Run starts the hub event loop. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case in := <-h.incoming:
			h.handleEnvelope(in.clientID, in.env)
		case p := <-h.publish:
			h.publishToBridge(p.topic, p.env)
			h.castToTopic(p.topic, p.env)
		case p := <-h.localCast:
			h.castToTopic(p.topic, p.env)
		case <-h.done:
			return
		}
	}
}

// Stop halts the hub event loop.
func (h *Hub) Stop() {
	close(h.done)
}

// Register queues a client for registration.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister queues a client for removal.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	h.logger.Info().Str("client_id", c.ID).Msg("client registered")

	for _, cb := range h.onConnect {
		cb(c.ID)
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)

	// Remove from all topic subscriptions.
	for topic, subs := range h.topics {
		delete(subs, c.ID)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	h.mu.Unlock()

	c.Close()
	h.logger.Info().Str("client_id", c.ID).Msg("client unregistered")

	for _, cb := range h.onDisconn {
		cb(c.ID)
	}
}
