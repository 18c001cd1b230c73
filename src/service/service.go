package service

import (
	"fmt"

	"github.com/agentsolvr/relay/src/hub"
	"github.com/agentsolvr/relay/src/types"
	"github.com/rs/zerolog"
)

// Service provides the high-level publish/subscribe API over the hub.
type Service struct {
	hub    *hub.Hub
	logger zerolog.Logger
}

// New creates a new service backed by the given hub.
func New(h *hub.Hub, logger zerolog.Logger) *Service {
	return &Service{hub: h, logger: logger}
}

// Hub returns the underlying hub.
func (s *Service) Hub() *hub.Hub { return s.hub }

// RegisterHandler registers a handler for an envelope type.
func (s *Service) RegisterHandler(envType string, handler types.EnvelopeHandler) {
	s.hub.RegisterHandler(envType, handler)
	s.logger.Debug().Str("type", envType).Msg("handler registered")
}

// Publish sends an envelope of the given type to all subscribers of a
// topic.
func (s *Service) Publish(topic, eventType string, data any) error {
	s.hub.Publish(topic, types.NewEnvelope(eventType, data))
	return nil
}

// Subscribe adds a client to a topic.
func (s *Service) Subscribe(topic, clientID string) error {
	if ok := s.hub.Subscribe(topic, clientID); !ok {
		return fmt.Errorf("client %s not found", clientID)
	}
	s.logger.Debug().
		Str("client_id", clientID).
		Str("topic", topic).
		Msg("subscribed")
	return nil
}

// Unsubscribe removes a client from a topic.
func (s *Service) Unsubscribe(topic, clientID string) error {
	if ok := s.hub.Unsubscribe(topic, clientID); !ok {
		return fmt.Errorf("topic %s or client %s not found", topic, clientID)
	}
	s.logger.Debug().
		Str("client_id", clientID).
		Str("topic", topic).
		Msg("unsubscribed")
	return nil
}

// OnConnection registers a callback for new connections.
func (s *Service) OnConnection(cb func(clientID string)) {
	s.hub.OnConnection(cb)
}

// OnDisconnection registers a callback for disconnections.
func (s *Service) OnDisconnection(cb func(clientID string)) {
	s.hub.OnDisconnection(cb)
}

// GetConnectedClients returns IDs of all connected clients.
func (s *Service) GetConnectedClients() []string {
	return s.hub.ConnectedClients()
}

// SendToClient sends an envelope directly to a specific client.
func (s *Service) SendToClient(clientID, eventType string, data any) error {
	if ok := s.hub.SendToClient(clientID, types.NewEnvelope(eventType, data)); !ok {
		return fmt.Errorf("client %s not found or buffer full", clientID)
	}
	return nil
}

// GetTopics returns active topics with subscriber counts.
func (s *Service) GetTopics() map[string]int {
	return s.hub.Topics()
}

// GetClientInfo returns info for a connected client, or error.
func (s *Service) GetClientInfo(clientID string) (*types.ClientInfo, error) {
	info := s.hub.ClientInfo(clientID)
	if info == nil {
		return nil, fmt.Errorf("client %s not found", clientID)
	}
	return info, nil
}
