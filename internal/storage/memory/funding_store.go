package memory

import (
	"context"
	"sort"
	"sync"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// FundingStore is an in-memory implementation of storage.FundingStore.
type FundingStore struct {
	mu     sync.RWMutex
	byPool map[string][]*domain.FundingRecord
	ids    map[string]bool
}

// NewFundingStore creates a new in-memory funding store.
func NewFundingStore() *FundingStore {
	return &FundingStore{
		byPool: make(map[string][]*domain.FundingRecord),
		ids:    make(map[string]bool),
	}
}

// InsertBulk appends funding hops atomically. Fails entire batch on any duplicate id.
func (s *FundingStore) InsertBulk(_ context.Context, records []*domain.FundingRecord) error {
	for _, r := range records {
		if r == nil || r.ID == "" || r.PoolID == "" || r.Level < 1 {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]bool, len(records))
	for _, r := range records {
		if s.ids[r.ID] || batch[r.ID] {
			return storage.ErrDuplicateKey
		}
		batch[r.ID] = true
	}

	for _, r := range records {
		c := *r
		c.Amount = cloneInt(r.Amount)
		s.byPool[r.PoolID] = append(s.byPool[r.PoolID], &c)
		s.ids[r.ID] = true
	}
	return nil
}

// GetByPoolID retrieves the funding chain of a pool ordered by level ASC.
func (s *FundingStore) GetByPoolID(_ context.Context, poolID string) ([]*domain.FundingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.byPool[poolID]
	result := make([]*domain.FundingRecord, len(rows))
	for i, r := range rows {
		c := *r
		c.Amount = cloneInt(r.Amount)
		result[i] = &c
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Level < result[j].Level
	})
	return result, nil
}

var _ storage.FundingStore = (*FundingStore)(nil)
