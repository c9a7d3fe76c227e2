// Package draftcache holds short-lived, not-yet-committed order proposals
// between the moment Forecaster.SelectItemsToOrder computes them and the
// moment an admin edits/confirms the draft into a real PendingOrder
// (spec.md §9). It is adapted from the teacher's pendingStore
// (internal/adapters/web/chat.go): an in-memory map guarded by a mutex, a
// background goroutine purging expired entries, and opaque tokens handed
// back to the caller.
package draftcache

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Muahhidun/zakupwedrink/internal/core"
)

// DefaultTTL is how long an unconfirmed draft survives before it is purged
// (spec.md §9: "roughly an hour").
const DefaultTTL = time.Hour

// purgeInterval is how often the background sweep runs.
const purgeInterval = time.Minute

// Draft is the cached payload: the proposal lines a draft order was built
// from, plus the company/actor context needed to later turn it into a real
// PendingOrder.
type Draft struct {
	CompanyID int
	CreatedBy int64
	Lines     []core.OrderLineProposal
}

type entry struct {
	draft     Draft
	expiresAt time.Time
}

// Store is a token-addressed, TTL-expiring cache of Drafts.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	stop    chan struct{}
}

// New starts a Store with the given TTL (DefaultTTL if ttl <= 0) and its
// background purge goroutine. Call Close to stop the goroutine.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go s.purgeLoop()
	return s
}

// Put stores d and returns an opaque token identifying it.
func (s *Store) Put(d Draft) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.entries[token] = entry{draft: d, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return token
}

// Get returns the Draft for token, or ok == false if it does not exist or
// has expired.
func (s *Store) Get(token string) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok || time.Now().After(e.expiresAt) {
		return Draft{}, false
	}
	return e.draft, true
}

// Delete removes token immediately, e.g. once the draft has been confirmed
// into a real PendingOrder.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	delete(s.entries, token)
	s.mu.Unlock()
}

// Close stops the background purge goroutine.
func (s *Store) Close() {
	close(s.stop)
}

func (s *Store) purgeLoop() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.purgeExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) purgeExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, token)
		}
	}
}
