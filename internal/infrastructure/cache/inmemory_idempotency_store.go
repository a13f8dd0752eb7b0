package cache

import (
	"context"
	"sync"
	"time"

	"github.com/echodesk/backend/internal/domain/shared"
)

// InMemoryIdempotencyStore tracks processed event IDs in a local map.
// Suitable for single-instance deployments and tests; state is not
// shared with other processes.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	deadlines map[string]time.Time
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts a background
// goroutine that evicts expired entries.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		deadlines: make(map[string]time.Time),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

// MarkProcessed records an event ID with a TTL. Returns true when the
// event was newly marked, false when a live entry already exists.
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if deadline, ok := s.deadlines[eventID]; ok && now.Before(deadline) {
		return false, nil
	}
	s.deadlines[eventID] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether an event ID has a live entry. Expired
// entries count as not processed even before eviction runs.
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deadline, ok := s.deadlines[eventID]
	return ok && time.Now().Before(deadline), nil
}

// Close stops the eviction goroutine. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}

func (s *InMemoryIdempotencyStore) evictLoop() {
	defer close(s.done)

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *InMemoryIdempotencyStore) evictExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for eventID, deadline := range s.deadlines {
		if !now.Before(deadline) {
			delete(s.deadlines, eventID)
		}
	}
}

// Size returns the number of entries currently held, expired or not.
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deadlines)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
