package bus

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// subscriberBuffer is the per-subscription delivery queue depth. A
// handler that falls this far behind starts losing messages.
const subscriberBuffer = 256

// MemoryBus is the in-process MessageBus and the default backend: the
// pipeline, the HTTP event feed and the terminal all live in one
// process, so routing is a registry lookup away. Wildcards behave the
// same as on the NATS backend.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[uint64]*memorySub
	lastID uint64
	closed atomic.Bool
}

// NewMemoryBus creates an in-memory message bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[uint64]*memorySub)}
}

// memorySub is one registered handler. Its pattern is tokenized once at
// subscribe time, and delivery runs on its own goroutine so a slow
// handler never holds up Publish.
type memorySub struct {
	id      uint64
	pattern string
	tokens  []string
	handler MessageHandler

	queue chan Message
	done  chan struct{}
	gone  atomic.Bool

	bus *MemoryBus
}

func (b *MemoryBus) Publish(ctx context.Context, subject string, data []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	subjectTokens := strings.Split(subject, ".")

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.gone.Load() || !matchTokens(sub.tokens, subjectTokens) {
			continue
		}
		// Drop rather than block: the mutation behind this event has
		// already happened and must not wait on a stalled observer.
		select {
		case sub.queue <- Message{Subject: subject, Data: data}:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	b.mu.Lock()
	b.lastID++
	sub := &memorySub{
		id:      b.lastID,
		pattern: subject,
		tokens:  strings.Split(subject, "."),
		handler: handler,
		queue:   make(chan Message, subscriberBuffer),
		done:    make(chan struct{}),
		bus:     b,
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()

	go sub.deliver(ctx)
	return sub, nil
}

func (b *MemoryBus) Close() error {
	if b.closed.Swap(true) {
		return ErrClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		sub.retire()
		delete(b.subs, id)
	}
	return nil
}

func (s *memorySub) deliver(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case msg := <-s.queue:
			s.handler(&msg)
		}
	}
}

// retire flips the subscription dead and releases its goroutine. Only
// the first call closes done, so it is safe from both Unsubscribe and
// bus Close.
func (s *memorySub) retire() {
	if !s.gone.Swap(true) {
		close(s.done)
	}
}

func (s *memorySub) Unsubscribe() error {
	s.retire()
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
	return nil
}

func (s *memorySub) Subject() string {
	return s.pattern
}

// matchSubject reports whether a concrete subject falls under a
// pattern. "*" stands for exactly one token and ">" for one or more
// trailing tokens, the grammar NATS uses, so a subscription means the
// same thing on either backend.
func matchSubject(pattern, subject string) bool {
	return matchTokens(strings.Split(pattern, "."), strings.Split(subject, "."))
}

func matchTokens(pattern, subject []string) bool {
	for i, tok := range pattern {
		switch {
		case tok == ">":
			return len(subject) > i
		case i >= len(subject):
			return false
		case tok == "*":
		case tok != subject[i]:
			return false
		}
	}
	return len(pattern) == len(subject)
}
