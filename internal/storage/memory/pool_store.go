package memory

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu        sync.RWMutex
	byID      map[string]*domain.Pool
	byAddress map[string]*domain.Pool // keyed by pool_address (unique)
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		byID:      make(map[string]*domain.Pool),
		byAddress: make(map[string]*domain.Pool),
	}
}

// Insert adds a new pool. Returns ErrDuplicateKey if id or pool_address exists.
func (s *PoolStore) Insert(_ context.Context, p *domain.Pool) error {
	if p == nil || p.ID == "" || p.PoolAddress == "" {
		return storage.ErrInvalidInput
	}
	key := strings.ToLower(p.PoolAddress)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[p.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byAddress[key]; exists {
		return storage.ErrDuplicateKey
	}

	poolCopy := copyPool(p)
	poolCopy.PoolAddress = key
	s.byID[p.ID] = poolCopy
	s.byAddress[key] = poolCopy
	return nil
}

// GetByAddress retrieves a pool by pool address. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByAddress(_ context.Context, address string) (*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.byAddress[strings.ToLower(address)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyPool(p), nil
}

// UpdateLiquidity overwrites accumulated liquidity and the last merged position.
func (s *PoolStore) UpdateLiquidity(_ context.Context, poolID string, initial, token *big.Int, last domain.Position) error {
	if initial == nil || token == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.byID[poolID]
	if !exists {
		return storage.ErrNotFound
	}
	p.InitialLiquidity = cloneInt(initial)
	p.TokenLiquidity = cloneInt(token)
	p.LastTxIndex = last.TxIndex
	p.LastLogIndex = last.LogIndex
	return nil
}

// Count returns the number of stored pools.
func (s *PoolStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func copyPool(p *domain.Pool) *domain.Pool {
	c := *p
	c.InitialLiquidity = cloneInt(p.InitialLiquidity)
	c.TokenLiquidity = cloneInt(p.TokenLiquidity)
	return &c
}

var _ storage.PoolStore = (*PoolStore)(nil)
