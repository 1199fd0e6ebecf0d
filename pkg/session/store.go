package session

import (
	"sync"
	"time"

	"github.com/odvcencio/focusboard/pkg/intent"
)

// DefaultPendingTTL bounds how long a clarification question stays
// answerable. A reply that arrives later is treated as fresh input.
const DefaultPendingTTL = 5 * time.Minute

// Store maps session identifiers to their pending clarification state.
// Each session holds at most one Pending entry; storing a new one
// replaces whatever was there.
type Store struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]intent.Pending

	now func() time.Time
}

// NewStore creates a pending-state store. A non-positive ttl falls back
// to DefaultPendingTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &Store{
		ttl:     ttl,
		entries: make(map[string]intent.Pending),
		now:     time.Now,
	}
}

// Put stores p as the session's pending entry, replacing any previous
// one. A zero CreatedAt is stamped with the current time so expiry is
// always measured from the store's clock.
func (s *Store) Put(sessionID string, p intent.Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.entries[sessionID] = p
}

// Take removes and returns the session's pending entry. The removal is
// atomic with the lookup: two concurrent resolutions for the same
// session cannot both consume the same entry. Expired entries are
// evicted here rather than by a background sweep.
func (s *Store) Take(sessionID string) (intent.Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[sessionID]
	if !ok {
		return intent.Pending{}, false
	}
	delete(s.entries, sessionID)
	if s.now().Sub(p.CreatedAt) > s.ttl {
		return intent.Pending{}, false
	}
	return p, true
}

// Len reports how many sessions currently hold a pending entry,
// including any that have expired but not yet been evicted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops every pending entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]intent.Pending)
}
