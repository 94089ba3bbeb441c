// Package hub fans events out from the job, session, and file watcher
// producers to every attached observer. Observers attach and detach at
// will; there is no buffering or replay, and a slow observer loses
// events rather than stalling a producer.
package hub

import "sync"

// Event is one broadcast message. Type names the event ("job.progress",
// "session.data", ...) and Payload is the event-specific body.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// subscriberBuffer bounds how far an observer may fall behind before
// events are dropped for it.
const subscriberBuffer = 256

type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// Subscriber is one attached observer. Receive events from Events();
// the channel is closed on Unsubscribe.
type Subscriber struct {
	ch chan Event
}

// Events returns the subscriber's delivery channel.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe attaches a new observer. It receives only events published
// after this call returns.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Unsubscribe detaches the observer and closes its channel. Safe to call
// for an already-detached subscriber.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}

// Publish delivers evt to every currently attached observer. Delivery is
// non-blocking: an observer whose buffer is full misses the event. With
// zero observers the event is dropped.
func (h *Hub) Publish(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Observers returns the number of currently attached observers.
func (h *Hub) Observers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
