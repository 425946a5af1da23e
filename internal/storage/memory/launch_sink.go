package memory

import (
	"context"
	"sync"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// LaunchSink is an in-memory implementation of storage.LaunchSink.
// The latest version of each pool's summary wins.
type LaunchSink struct {
	mu        sync.RWMutex
	summaries map[string]domain.LaunchSummary // keyed by pool_id
	publishes int
}

// NewLaunchSink creates a new in-memory launch sink.
func NewLaunchSink() *LaunchSink {
	return &LaunchSink{
		summaries: make(map[string]domain.LaunchSummary),
	}
}

// Publish replaces the summary of a pool unless a newer version is held.
func (s *LaunchSink) Publish(_ context.Context, summary *domain.LaunchSummary) error {
	if summary == nil || summary.PoolID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.publishes++
	if existing, ok := s.summaries[summary.PoolID]; ok && existing.Version > summary.Version {
		return nil
	}
	c := *summary
	c.InitialLiquidity = cloneInt(summary.InitialLiquidity)
	c.MarketCap = cloneInt(summary.MarketCap)
	c.SniperVolume = cloneInt(summary.SniperVolume)
	s.summaries[summary.PoolID] = c
	return nil
}

// Get returns the current summary of a pool.
func (s *LaunchSink) Get(poolID string) (domain.LaunchSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.summaries[poolID]
	return v, ok
}

// Publishes returns how many summaries were published.
func (s *LaunchSink) Publishes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publishes
}

var _ storage.LaunchSink = (*LaunchSink)(nil)
