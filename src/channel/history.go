package channel

import "github.com/agentsolvr/relay/src/types"

const historyCapacity = 100

// history is a bounded FIFO of the most recently received envelopes,
// oldest evicted first. Callers synchronize access.
type history struct {
	capacity int
	entries  []types.Envelope
}

func newHistory(capacity int) *history {
	return &history{capacity: capacity}
}

func (h *history) append(env types.Envelope) {
	h.entries = append(h.entries, env)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
}

func (h *history) snapshot() []types.Envelope {
	out := make([]types.Envelope, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *history) len() int {
	return len(h.entries)
}
