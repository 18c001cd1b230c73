package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Reserved envelope types.
const (
	TypePing = "ping" // liveness probe
	TypePong = "pong" // probe reply, consumed internally by the channel
	TypeRaw  = "raw"  // fallback wrapper for frames that fail to parse

	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
)

// Envelope is the unit of data exchanged over a channel. Envelopes are
// immutable once constructed.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
	ID        string `json:"id,omitempty"`
}

// NewEnvelope builds an envelope with the current wall-clock timestamp
// and a fresh correlation id.
func NewEnvelope(eventType string, data any) Envelope {
	return Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
		ID:        uuid.New().String(),
	}
}

// ParseEnvelope decodes a raw frame. Frames that are not valid JSON are
// preserved as a raw-type envelope rather than dropped, so consumers are
// never silently denied data.
func ParseEnvelope(raw []byte) Envelope {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{
			Type:      TypeRaw,
			Data:      string(raw),
			Timestamp: time.Now().UnixMilli(),
		}
	}
	if env.Timestamp == 0 {
		env.Timestamp = time.Now().UnixMilli()
	}
	return env
}

// Encode serializes the envelope to its wire form.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// State is the lifecycle state of a channel connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// EnvelopeHandler handles incoming envelopes of a registered type.
type EnvelopeHandler func(clientID string, env Envelope) error

// ClientInfo holds metadata about a connected hub client.
type ClientInfo struct {
	ID          string    `json:"id"`
	ConnectedAt time.Time `json:"connected_at"`
	Topics      []string  `json:"topics"`
	UserAgent   string    `json:"user_agent,omitempty"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}
