package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/storage"
)

// LaunchStore is an in-memory implementation of storage.LaunchStore.
type LaunchStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Launch // keyed by launch_id
}

// NewLaunchStore creates a new in-memory launch store.
func NewLaunchStore() *LaunchStore {
	return &LaunchStore{
		data: make(map[string]*domain.Launch),
	}
}

// Insert adds a new launch. Returns ErrDuplicateKey if launch_id exists.
func (s *LaunchStore) Insert(_ context.Context, l *domain.Launch) error {
	if l == nil || l.LaunchID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[l.LaunchID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	launchCopy := *l
	s.data[l.LaunchID] = &launchCopy
	return nil
}

// GetByID retrieves a launch by its ID. Returns ErrNotFound if not exists.
func (s *LaunchStore) GetByID(_ context.Context, launchID string) (*domain.Launch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.data[launchID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	launchCopy := *l
	return &launchCopy, nil
}

// GetByMint retrieves all launches for a mint, ordered by created_at ASC.
func (s *LaunchStore) GetByMint(_ context.Context, mint string) ([]*domain.Launch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Launch
	for _, l := range s.data {
		if l.Mint == mint {
			launchCopy := *l
			result = append(result, &launchCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].LaunchID < result[j].LaunchID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.LaunchStore = (*LaunchStore)(nil)
