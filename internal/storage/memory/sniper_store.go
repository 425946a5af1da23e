package memory

import (
	"context"
	"strings"
	"sync"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// SniperStore is an in-memory implementation of storage.SniperStore.
type SniperStore struct {
	mu     sync.RWMutex
	byPool map[string][]*domain.Sniper
	seen   map[string]bool // pool_id + "/" + address
}

// NewSniperStore creates a new in-memory sniper store.
func NewSniperStore() *SniperStore {
	return &SniperStore{
		byPool: make(map[string][]*domain.Sniper),
		seen:   make(map[string]bool),
	}
}

// InsertIgnore adds snipers, skipping existing (pool_id, address) pairs.
func (s *SniperStore) InsertIgnore(_ context.Context, snipers []*domain.Sniper) (int, error) {
	for _, sn := range snipers {
		if sn == nil || sn.ID == "" || sn.PoolID == "" || sn.Address == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, sn := range snipers {
		address := strings.ToLower(sn.Address)
		key := sn.PoolID + "/" + address
		if s.seen[key] {
			continue
		}
		c := *sn
		c.Address = address
		c.VolumeBought = cloneInt(sn.VolumeBought)
		s.byPool[sn.PoolID] = append(s.byPool[sn.PoolID], &c)
		s.seen[key] = true
		inserted++
	}
	return inserted, nil
}

// GetByPoolID retrieves all snipers of a pool in insertion order.
func (s *SniperStore) GetByPoolID(_ context.Context, poolID string) ([]*domain.Sniper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.byPool[poolID]
	result := make([]*domain.Sniper, len(rows))
	for i, sn := range rows {
		c := *sn
		c.VolumeBought = cloneInt(sn.VolumeBought)
		result[i] = &c
	}
	return result, nil
}

var _ storage.SniperStore = (*SniperStore)(nil)
