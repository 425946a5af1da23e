// Package cache stores contract creation provenance so repeated lookups of
// the same token skip the rate-limited explorer.
package cache

import (
	"context"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"

	"amm-launch-lab/internal/domain"
)

// CreationCache caches contract creation info by contract address.
type CreationCache interface {
	// Get returns the cached info. ok is false on miss.
	Get(ctx context.Context, address string) (info *domain.ContractCreationInfo, ok bool, err error)

	// Set stores info for address.
	Set(ctx context.Context, address string, info *domain.ContractCreationInfo) error
}

// Memory is a process-local CreationCache.
type Memory struct {
	entries *xsync.Map[string, domain.ContractCreationInfo]
}

// NewMemory creates an empty process-local cache.
func NewMemory() *Memory {
	return &Memory{entries: xsync.NewMap[string, domain.ContractCreationInfo]()}
}

// Get implements CreationCache.
func (m *Memory) Get(_ context.Context, address string) (*domain.ContractCreationInfo, bool, error) {
	v, ok := m.entries.Load(strings.ToLower(address))
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

// Set implements CreationCache.
func (m *Memory) Set(_ context.Context, address string, info *domain.ContractCreationInfo) error {
	if info == nil {
		return nil
	}
	m.entries.Store(strings.ToLower(address), *info)
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	return m.entries.Size()
}

var _ CreationCache = (*Memory)(nil)
