package service

import (
	"sync"

	"github.com/prepside/gmat-backend/internal/session"
)

// tickHub fans timer ticks out to per-user websocket subscribers. Slow
// consumers drop ticks rather than stalling the timer goroutine.
type tickHub struct {
	mu   sync.Mutex
	next int
	subs map[int]map[int]chan session.TickEvent // userID -> subID -> channel
}

func newTickHub() *tickHub {
	return &tickHub{subs: make(map[int]map[int]chan session.TickEvent)}
}

func (h *tickHub) subscribe(userID int) (<-chan session.TickEvent, func()) {
	ch := make(chan session.TickEvent, 16)

	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan session.TickEvent)
	}
	h.subs[userID][id] = ch
	h.mu.Unlock()

	// Removing under the lock guarantees publish can no longer see the
	// channel, so closing it here is safe. cancel is idempotent.
	cancel := func() {
		h.mu.Lock()
		if m, ok := h.subs[userID]; ok {
			if _, live := m[id]; live {
				delete(m, id)
				close(ch)
			}
			if len(m) == 0 {
				delete(h.subs, userID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *tickHub) publish(userID int, ev session.TickEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[userID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
