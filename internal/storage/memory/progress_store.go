package memory

import (
	"context"
	"sync"

	"amm-launch-lab/internal/storage"
)

// ProgressStore is an in-memory implementation of storage.ProgressStore.
type ProgressStore struct {
	mu       sync.RWMutex
	progress map[string]storage.Progress
}

// NewProgressStore creates a new in-memory progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		progress: make(map[string]storage.Progress),
	}
}

// GetLastProcessed returns the last processed position of stream.
func (s *ProgressStore) GetLastProcessed(_ context.Context, stream string) (*storage.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[stream]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

// SetLastProcessed saves the last processed position of stream.
func (s *ProgressStore) SetLastProcessed(_ context.Context, stream string, progress *storage.Progress) error {
	if progress == nil || stream == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[stream] = *progress
	return nil
}

var _ storage.ProgressStore = (*ProgressStore)(nil)
