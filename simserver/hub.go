package simserver

import (
	"sync"

	"factorysim/sim"
)

// hub fans a single stream of snapshots out to any number of websocket
// subscribers. Unlike fastview's client, which assumes one page and one
// channel end to end, the decision API can be watched by several observers
// at once, so broadcast delivery replaces the single producer/consumer
// pairing.
type hub struct {
	mu   sync.Mutex
	subs map[chan sim.Snapshot]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan sim.Snapshot]struct{})}
}

func (h *hub) subscribe() chan sim.Snapshot {
	ch := make(chan sim.Snapshot, 4)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	metricWSClients.Inc()
	return ch
}

func (h *hub) unsubscribe(ch chan sim.Snapshot) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
	metricWSClients.Dec()
}

// broadcast sends snap to every subscriber, dropping it for any subscriber
// whose buffer is already full rather than blocking the caller.
func (h *hub) broadcast(snap sim.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
