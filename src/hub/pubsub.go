package hub

import (
	"github.com/agentsolvr/relay/src/types"
)

// handleEnvelope dispatches an inbound envelope. Liveness probes and
// subscription management are handled by the hub itself; everything
// else goes to the registered handler for the envelope type.
func (h *Hub) handleEnvelope(clientID string, env types.Envelope) {
	switch env.Type {
	case types.TypePing:
		h.SendToClient(clientID, types.NewEnvelope(types.TypePong, nil))
		return
	case types.TypeSubscribe:
		if topic := topicOf(env); topic != "" {
			h.Subscribe(topic, clientID)
		}
		return
	case types.TypeUnsubscribe:
		if topic := topicOf(env); topic != "" {
			h.Unsubscribe(topic, clientID)
		}
		return
	}

	h.mu.RLock()
	handler, ok := h.handlers[env.Type]
	h.mu.RUnlock()

	if !ok {
		h.logger.Debug().Str("type", env.Type).Msg("no handler")
		return
	}
	if err := handler(clientID, env); err != nil {
		h.logger.Error().Err(err).Str("type", env.Type).Msg("handler error")
	}
}

// topicOf extracts the topic name from a subscribe/unsubscribe envelope.
func topicOf(env types.Envelope) string {
	data, ok := env.Data.(map[string]any)
	if !ok {
		return ""
	}
	topic, _ := data["topic"].(string)
	return topic
}

func (h *Hub) castToTopic(topic string, env types.Envelope) {
	h.mu.RLock()
	subs, ok := h.topics[topic]
	if !ok {
		h.mu.RUnlock()
		return
	}
	// Copy subscriber IDs to avoid holding the lock during sends.
	ids := make([]string, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.mu.RLock()
		client, exists := h.clients[id]
		h.mu.RUnlock()
		if !exists {
			continue
		}
		select {
		case client.Send <- env:
		default:
			h.logger.Warn().Str("client_id", id).Msg("send buffer full, dropping")
		}
	}
}

// publishToBridge forwards an envelope to the bridge if one is attached.
func (h *Hub) publishToBridge(topic string, env types.Envelope) {
	h.mu.RLock()
	b := h.bridge
	h.mu.RUnlock()

	if b == nil || !b.Available() {
		return
	}
	if err := b.Publish(topic, env); err != nil {
		h.logger.Error().Err(err).Msg("bridge publish failed")
	}
}

// Publish sends an envelope to all subscribers of a topic.
func (h *Hub) Publish(topic string, env types.Envelope) {
	h.publish <- publication{topic: topic, env: env}
}

// Subscribe adds a client to a topic.
func (h *Hub) Subscribe(topic, clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientID]; !ok {
		return false
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]bool)
	}
	h.topics[topic][clientID] = true
	h.clients[clientID].AddTopic(topic)
	return true
}

// Unsubscribe removes a client from a topic.
func (h *Hub) Unsubscribe(topic, clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		return false
	}
	delete(subs, clientID)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
	if c, ok := h.clients[clientID]; ok {
		c.RemoveTopic(topic)
	}
	return true
}

// SendToClient sends an envelope directly to a specific client.
func (h *Hub) SendToClient(clientID string, env types.Envelope) bool {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case client.Send <- env:
		return true
	default:
		return false
	}
}
