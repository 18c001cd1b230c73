package channel

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/agentsolvr/relay/config"
	"github.com/agentsolvr/relay/src/types"
	"github.com/rs/zerolog"
)

// Delay between teardown and redial on an explicit Reconnect, so the
// previous transport can finish closing.
const reconnectRestartDelay = 100 * time.Millisecond

// Channel maintains a best-effort persistent connection to a single
// endpoint. It surfaces state changes and inbound envelopes to one
// consumer and re-establishes dropped connections with capped
// exponential backoff.
type Channel struct {
	cfg    config.ChannelConfig
	dial   Dialer
	logger zerolog.Logger

	mu          sync.RWMutex
	state       types.State
	lastError   string
	conn        types.Conn
	gen         uint64 // connection generation, bumped to orphan stale callbacks
	attempts    int
	manualClose bool

	history *history
	lastMsg *types.Envelope

	reconnectTimer *time.Timer
	restartTimer   *time.Timer
	heartbeatStop  chan struct{}

	wmu sync.Mutex // serializes transport writes

	onOpen    []func()
	onClose   []func()
	onError   []func(msg string)
	onMessage []func(env types.Envelope)
	onConnect []func()
}

// New creates a channel that dials real WebSocket endpoints.
func New(cfg config.ChannelConfig, logger zerolog.Logger) *Channel {
	return NewWithDialer(cfg, wsDial, logger)
}

// NewWithDialer creates a channel with a custom transport dialer.
func NewWithDialer(cfg config.ChannelConfig, dial Dialer, logger zerolog.Logger) *Channel {
	return &Channel{
		cfg:     cfg,
		dial:    dial,
		logger:  logger.With().Str("component", "channel").Logger(),
		state:   types.StateDisconnected,
		history: newHistory(historyCapacity),
	}
}

// Connect opens the transport. It is a no-op when already connected
// with a live transport. An invalid endpoint fails synchronously and
// moves the channel to the error state; dial failures are reported
// asynchronously through the error listeners and the reconnect policy.
func (c *Channel) Connect() error {
	c.mu.Lock()
	if c.state == types.StateConnected && c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	if err := validateEndpoint(c.cfg.Endpoint); err != nil {
		c.state = types.StateError
		c.lastError = err.Error()
		c.mu.Unlock()
		c.logger.Error().Err(err).Msg("connect rejected")
		c.notifyError(err.Error())
		return err
	}
	c.manualClose = false
	c.state = types.StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go c.establish(gen)
	return nil
}

// Disconnect tears the channel down and suppresses auto-reconnect.
// Safe to call repeatedly.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.manualClose = true
	c.gen++
	c.stopTimersLocked()
	conn := c.conn
	c.conn = nil
	prev := c.state
	c.state = types.StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if prev == types.StateConnected {
		c.notifyClose()
	}
}

// Reconnect restarts the channel from scratch: teardown, attempt
// counter reset, and a fresh Connect after a short delay.
func (c *Channel) Reconnect() {
	c.Disconnect()

	c.mu.Lock()
	c.attempts = 0
	c.manualClose = false
	c.restartTimer = time.AfterFunc(reconnectRestartDelay, func() {
		_ = c.Connect()
	})
	c.mu.Unlock()
}

// Send wraps the payload in an envelope and transmits it. Returns
// whether transmission was attempted; delivery is not guaranteed.
func (c *Channel) Send(eventType string, payload any) bool {
	env := types.NewEnvelope(eventType, payload)
	data, err := env.Encode()
	if err != nil {
		c.logger.Warn().Err(err).Str("type", eventType).Msg("envelope encode failed")
		return false
	}
	return c.SendRaw(data)
}

// SendRaw transmits an already-constructed frame without wrapping it.
func (c *Channel) SendRaw(data []byte) bool {
	c.mu.RLock()
	conn := c.conn
	connected := c.state == types.StateConnected
	c.mu.RUnlock()

	if !connected || conn == nil {
		c.logger.Warn().Msg("send skipped, channel not connected")
		return false
	}

	c.wmu.Lock()
	err := conn.WriteMessage(data)
	c.wmu.Unlock()
	if err != nil {
		c.logger.Warn().Err(err).Msg("send failed")
		return false
	}
	return true
}

// establish dials the endpoint and, on success, starts the read loop
// and the liveness probe. Runs outside the event path of the caller.
func (c *Channel) establish(gen uint64) {
	conn, err := c.dial(c.cfg.Endpoint, c.cfg.Subprotocols)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.state = types.StateError
		c.lastError = err.Error()
		c.mu.Unlock()
		c.logger.Warn().Err(err).Str("endpoint", c.cfg.Endpoint).Msg("connect failed")
		c.notifyError(err.Error())
		c.transportClosed(gen)
		return
	}
	c.conn = conn
	c.state = types.StateConnected
	c.attempts = 0
	c.lastError = ""
	c.mu.Unlock()

	c.logger.Info().Str("endpoint", c.cfg.Endpoint).Msg("connected")
	c.notifyOpen()
	c.notifyConnect()
	c.startHeartbeat(gen)
	go c.readLoop(conn, gen)
}

// readLoop pumps inbound frames into history and the message listeners
// until the transport fails or is superseded.
func (c *Channel) readLoop(conn types.Conn, gen uint64) {
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := gen != c.gen
			if !stale {
				c.state = types.StateError
				c.lastError = err.Error()
			}
			c.mu.Unlock()
			if stale {
				return
			}
			c.notifyError(err.Error())
			c.transportClosed(gen)
			return
		}

		env := types.ParseEnvelope(raw)

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.history.append(env)
		envCopy := env
		c.lastMsg = &envCopy
		listeners := make([]func(types.Envelope), len(c.onMessage))
		copy(listeners, c.onMessage)
		c.mu.Unlock()

		if env.Type == types.TypePong {
			// Probe reply, kept in history but not surfaced.
			continue
		}
		for _, fn := range listeners {
			fn(env)
		}
	}
}

// transportClosed finalizes an unintentional close and, when eligible,
// schedules the next automatic reconnect.
func (c *Channel) transportClosed(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.stopHeartbeatLocked()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = types.StateDisconnected
	manual := c.manualClose
	attempts := c.attempts
	c.mu.Unlock()

	c.notifyClose()

	if manual || !c.cfg.AutoReconnect {
		return
	}
	if attempts >= c.cfg.MaxReconnectAttempts {
		c.logger.Warn().Int("attempts", attempts).Msg("reconnect attempts exhausted")
		return
	}

	delay := backoffDelay(c.cfg.ReconnectInterval, c.cfg.MaxReconnectDelay, attempts)
	c.logger.Info().
		Dur("delay", delay).
		Int("attempt", attempts+1).
		Msg("reconnect scheduled")

	c.mu.Lock()
	if gen != c.gen || c.manualClose {
		c.mu.Unlock()
		return
	}
	c.attempts++
	c.reconnectTimer = time.AfterFunc(delay, func() {
		_ = c.Connect()
	})
	c.mu.Unlock()
}

func (c *Channel) stopTimersLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
	c.stopHeartbeatLocked()
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: expected a ws:// or wss:// URL", endpoint)
	}
	return nil
}
