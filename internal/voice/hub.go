package voice

import (
	"sync"

	"github.com/user/intervoice/internal/types"
)

type EventKind string

const (
	EventMessage EventKind = "message"
	EventFinish  EventKind = "finish"
)

// Event is a provider notification for one call.
type Event struct {
	Kind      EventKind
	Utterance types.Utterance
}

// Hub routes provider events to the subscribers of a call id. Handlers run
// on the publishing goroutine, outside the hub lock.
type Hub struct {
	mu   sync.RWMutex
	next uint64
	subs map[types.CallID]map[uint64]func(Event)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[types.CallID]map[uint64]func(Event))}
}

// Subscribe registers fn for events of callID. The returned function
// removes the subscription and is safe to call more than once.
func (h *Hub) Subscribe(callID types.CallID, fn func(Event)) (unsubscribe func()) {
	h.mu.Lock()
	h.next++
	key := h.next
	if h.subs[callID] == nil {
		h.subs[callID] = make(map[uint64]func(Event))
	}
	h.subs[callID][key] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[callID], key)
			if len(h.subs[callID]) == 0 {
				delete(h.subs, callID)
			}
		})
	}
}

// Publish delivers ev to every subscriber of callID and reports how many
// handlers received it. Events for unknown calls are dropped.
func (h *Hub) Publish(callID types.CallID, ev Event) int {
	h.mu.RLock()
	handlers := make([]func(Event), 0, len(h.subs[callID]))
	for _, fn := range h.subs[callID] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
	return len(handlers)
}

// Subscribers returns the number of live subscriptions for callID.
func (h *Hub) Subscribers(callID types.CallID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[callID])
}
