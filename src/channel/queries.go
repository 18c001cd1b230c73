package channel

import "github.com/agentsolvr/relay/src/types"

// State returns the current lifecycle state.
func (c *Channel) State() types.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the channel is connected. Derived from
// the canonical state field, never cached.
func (c *Channel) IsConnected() bool {
	return c.State() == types.StateConnected
}

// IsConnecting reports whether a connection attempt is in flight.
func (c *Channel) IsConnecting() bool {
	return c.State() == types.StateConnecting
}

// LastError returns the most recent error message, if any.
func (c *Channel) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// LastMessage returns a copy of the most recently received envelope,
// or nil if none has arrived.
func (c *Channel) LastMessage() *types.Envelope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastMsg == nil {
		return nil
	}
	env := *c.lastMsg
	return &env
}

// History returns the received envelopes in receipt order, most recent
// last, bounded at 100 entries.
func (c *Channel) History() []types.Envelope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history.snapshot()
}

// ReconnectAttempts returns the number of automatic reconnect attempts
// scheduled since the last successful connection or counter reset.
func (c *Channel) ReconnectAttempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attempts
}
