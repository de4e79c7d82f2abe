package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/storage"
)

// PinStore is an in-memory implementation of storage.PinStore.
type PinStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Pin // keyed by cid
}

// NewPinStore creates a new in-memory pin store.
func NewPinStore() *PinStore {
	return &PinStore{
		data: make(map[string]*domain.Pin),
	}
}

// Insert adds a new pin. Returns ErrDuplicateKey if cid exists.
func (s *PinStore) Insert(_ context.Context, p *domain.Pin) error {
	if p == nil || p.CID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.CID]; exists {
		return storage.ErrDuplicateKey
	}

	pinCopy := *p
	s.data[p.CID] = &pinCopy
	return nil
}

// GetByCID retrieves a pin by content identifier. Returns ErrNotFound if not exists.
func (s *PinStore) GetByCID(_ context.Context, cid string) (*domain.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[cid]
	if !exists {
		return nil, storage.ErrNotFound
	}

	pinCopy := *p
	return &pinCopy, nil
}

// AttachLaunch sets launch_id on every listed pin.
func (s *PinStore) AttachLaunch(_ context.Context, launchID string, cids ...string) error {
	if launchID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check all first so a missing cid leaves the store untouched
	for _, cid := range cids {
		if _, exists := s.data[cid]; !exists {
			return storage.ErrNotFound
		}
	}
	for _, cid := range cids {
		s.data[cid].LaunchID = launchID
	}
	return nil
}

// ListOrphans retrieves pins without a launch created before createdBefore.
func (s *PinStore) ListOrphans(_ context.Context, createdBefore int64) ([]*domain.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Pin
	for _, p := range s.data {
		if p.Orphaned() && p.CreatedAt < createdBefore {
			pinCopy := *p
			result = append(result, &pinCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].CID < result[j].CID
	})

	return result, nil
}

// Delete removes a pin. Returns ErrNotFound if not exists.
func (s *PinStore) Delete(_ context.Context, cid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[cid]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, cid)
	return nil
}

// Verify interface compliance at compile time.
var _ storage.PinStore = (*PinStore)(nil)
