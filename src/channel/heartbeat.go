package channel

import (
	"time"

	"github.com/agentsolvr/relay/src/types"
)

// startHeartbeat launches the liveness probe loop for the current
// connection generation. Pings are sent only while connected; the loop
// exits as soon as a send fails or the channel leaves the connected
// state.
func (c *Channel) startHeartbeat(gen uint64) {
	if c.cfg.HeartbeatInterval <= 0 {
		return
	}

	stop := make(chan struct{})
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.heartbeatStop = stop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !c.Send(types.TypePing, nil) {
					return
				}
			case <-stop:
				return
			}
		}
	}()
}

func (c *Channel) stopHeartbeatLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}
