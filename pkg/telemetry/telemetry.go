// Package telemetry fans pipeline lifecycle events out to in-process
// subscribers and keeps a ring of recent events for the HTTP API.
// Publishing never blocks: a subscriber that cannot keep up loses
// events rather than slowing resolution down.
package telemetry

import (
	"sync"
	"time"
)

// EventType names one kind of lifecycle event.
type EventType string

const (
	EventResolutionStarted   EventType = "resolution.started"
	EventResolutionCompleted EventType = "resolution.completed"
	EventExecutionApplied    EventType = "execution.applied"
	EventExecutionFailed     EventType = "execution.failed"
	EventAdvisorySuggested   EventType = "advisory.suggested"
	EventAdvisorySilent      EventType = "advisory.silent"
	EventBusMessage          EventType = "bus.message"
	EventStateReloaded       EventType = "state.reloaded"
)

// Event describes one pipeline lifecycle moment.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"sessionId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// RecentCapacity bounds the ring of retained events.
const RecentCapacity = 256

// subscriberWindow is each listener's channel buffer. A listener that
// falls further behind than this starts missing events.
const subscriberWindow = 64

// Hub fans events out to its listeners and remembers the most recent
// ones for replay over HTTP.
type Hub struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
	closed    bool

	ring   []Event
	cursor int
}

// NewHub returns an empty hub ready for listeners.
func NewHub() *Hub {
	return &Hub{listeners: make(map[chan Event]struct{})}
}

// Publish stamps the event if needed, records it in the ring and offers
// it to every listener. A full listener buffer drops the event for that
// listener only; Publish itself never waits.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	h.record(event)
	for ch := range h.listeners {
		select {
		case ch <- event:
		default:
		}
	}
}

// record writes into the ring, overwriting the oldest slot once full.
func (h *Hub) record(event Event) {
	if len(h.ring) < RecentCapacity {
		h.ring = append(h.ring, event)
		return
	}
	h.ring[h.cursor] = event
	h.cursor = (h.cursor + 1) % RecentCapacity
}

// Recent returns up to limit retained events, newest first. A limit of
// zero or less returns nothing.
func (h *Hub) Recent(limit int) []Event {
	if h == nil || limit <= 0 {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	size := len(h.ring)
	if size == 0 {
		return nil
	}
	if limit > size {
		limit = size
	}

	// Until the ring wraps, cursor stays 0 and the newest entry is the
	// last append; afterwards it is the slot behind cursor. Either way
	// that slot is (cursor-1+size) mod size.
	newest := (h.cursor - 1 + size) % size

	out := make([]Event, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, h.ring[(newest-i+size)%size])
	}
	return out
}

// Subscribe registers a listener. It returns the delivery channel and a
// cancel func; cancel closes the channel and is safe to call twice.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		dead := make(chan Event)
		close(dead)
		return dead, func() {}
	}

	ch := make(chan Event, subscriberWindow)
	h.listeners[ch] = struct{}{}

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, live := h.listeners[ch]; live {
			delete(h.listeners, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Close retires every listener and makes later publishes no-ops. The
// ring stays readable so late HTTP reads still see history.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	for ch := range h.listeners {
		close(ch)
	}
	clear(h.listeners)
}
