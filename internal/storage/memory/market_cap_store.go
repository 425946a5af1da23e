package memory

import (
	"context"
	"sync"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// MarketCapStore is an in-memory implementation of storage.MarketCapStore.
type MarketCapStore struct {
	mu     sync.RWMutex
	byPool map[string]*domain.MarketCapSnapshot // keyed by pool_id (unique)
}

// NewMarketCapStore creates a new in-memory market cap store.
func NewMarketCapStore() *MarketCapStore {
	return &MarketCapStore{
		byPool: make(map[string]*domain.MarketCapSnapshot),
	}
}

// Upsert inserts the snapshot or replaces the value of the existing one,
// keeping its ID.
func (s *MarketCapStore) Upsert(_ context.Context, m *domain.MarketCapSnapshot) error {
	if m == nil || m.ID == "" || m.PoolID == "" || m.MarketCap == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byPool[m.PoolID]; ok {
		existing.MarketCap = cloneInt(m.MarketCap)
		existing.QuoteAssetAddress = m.QuoteAssetAddress
		existing.QuoteAssetSymbol = m.QuoteAssetSymbol
		return nil
	}

	c := *m
	c.MarketCap = cloneInt(m.MarketCap)
	s.byPool[m.PoolID] = &c
	return nil
}

// GetByPoolID retrieves the snapshot of a pool. Returns ErrNotFound if not exists.
func (s *MarketCapStore) GetByPoolID(_ context.Context, poolID string) (*domain.MarketCapSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.byPool[poolID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *m
	c.MarketCap = cloneInt(m.MarketCap)
	return &c, nil
}

// Count returns the number of stored snapshots.
func (s *MarketCapStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPool)
}

var _ storage.MarketCapStore = (*MarketCapStore)(nil)
