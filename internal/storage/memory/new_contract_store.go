package memory

import (
	"context"
	"strings"
	"sync"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// NewContractStore is an in-memory implementation of storage.NewContractStore.
type NewContractStore struct {
	mu        sync.RWMutex
	byAddress map[string]*domain.NewContractRecord
}

// NewNewContractStore creates a new in-memory contract record store.
func NewNewContractStore() *NewContractStore {
	return &NewContractStore{
		byAddress: make(map[string]*domain.NewContractRecord),
	}
}

// InsertIgnore adds a record unless contract_address exists.
func (s *NewContractStore) InsertIgnore(_ context.Context, r *domain.NewContractRecord) (bool, error) {
	if r == nil || r.ID == "" || r.ContractAddress == "" {
		return false, storage.ErrInvalidInput
	}
	key := strings.ToLower(r.ContractAddress)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddress[key]; exists {
		return false, nil
	}
	c := *r
	c.ContractAddress = key
	s.byAddress[key] = &c
	return true, nil
}

// Count returns the number of stored records.
func (s *NewContractStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byAddress)), nil
}

// GetByAddress retrieves a record by contract address. Returns ErrNotFound if not exists.
func (s *NewContractStore) GetByAddress(_ context.Context, address string) (*domain.NewContractRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.byAddress[strings.ToLower(address)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	c := *r
	return &c, nil
}

var _ storage.NewContractStore = (*NewContractStore)(nil)
