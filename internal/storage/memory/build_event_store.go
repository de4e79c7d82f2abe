package memory

import (
	"context"
	"sync"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/storage"
)

// BuildEventStore is an in-memory implementation of storage.BuildEventStore.
type BuildEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BuildEvent // keyed by event_id
}

// NewBuildEventStore creates a new in-memory build event store.
func NewBuildEventStore() *BuildEventStore {
	return &BuildEventStore{
		data: make(map[string]*domain.BuildEvent),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *BuildEventStore) Insert(_ context.Context, e *domain.BuildEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	s.data[e.EventID] = &eventCopy
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *BuildEventStore) InsertBulk(_ context.Context, events []*domain.BuildEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicates first (atomicity)
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := seen[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.EventID] = struct{}{}
	}

	for _, e := range events {
		eventCopy := *e
		s.data[e.EventID] = &eventCopy
	}
	return nil
}

// CountByRoute counts events for a route within [start, end] (inclusive), grouped by outcome.
func (s *BuildEventStore) CountByRoute(_ context.Context, route string, start, end int64) (map[domain.Outcome]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.Outcome]int64)
	for _, e := range s.data {
		if e.Route == route && e.TimestampMs >= start && e.TimestampMs <= end {
			counts[e.Outcome]++
		}
	}
	return counts, nil
}

// Verify interface compliance at compile time.
var _ storage.BuildEventStore = (*BuildEventStore)(nil)
