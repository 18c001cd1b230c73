package channel

import "github.com/agentsolvr/relay/src/types"

// OnOpen registers a callback for transport open.
func (c *Channel) OnOpen(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onOpen = append(c.onOpen, fn)
}

// OnClose registers a callback for transport close.
func (c *Channel) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = append(c.onClose, fn)
}

// OnError registers a callback for transport errors.
func (c *Channel) OnError(fn func(msg string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = append(c.onError, fn)
}

// OnMessage registers a callback for inbound envelopes. Probe replies
// (pong) are not delivered here.
func (c *Channel) OnMessage(fn func(env types.Envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = append(c.onMessage, fn)
}

// OnConnect registers a callback for a successfully established
// connection.
func (c *Channel) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = append(c.onConnect, fn)
}

func (c *Channel) notifyOpen() {
	c.mu.RLock()
	listeners := make([]func(), len(c.onOpen))
	copy(listeners, c.onOpen)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

func (c *Channel) notifyClose() {
	c.mu.RLock()
	listeners := make([]func(), len(c.onClose))
	copy(listeners, c.onClose)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

func (c *Channel) notifyError(msg string) {
	c.mu.RLock()
	listeners := make([]func(string), len(c.onError))
	copy(listeners, c.onError)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn(msg)
	}
}

func (c *Channel) notifyConnect() {
	c.mu.RLock()
	listeners := make([]func(), len(c.onConnect))
	copy(listeners, c.onConnect)
	c.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}
