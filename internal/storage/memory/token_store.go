package memory

import (
	"context"
	"strings"
	"sync"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu        sync.RWMutex
	byID      map[string]*domain.Token
	byAddress map[string]*domain.Token // keyed by contract_address (unique)
	inserts   int
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		byID:      make(map[string]*domain.Token),
		byAddress: make(map[string]*domain.Token),
	}
}

// Insert adds a new token. Returns ErrDuplicateKey if id or contract_address exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.ID == "" || t.ContractAddress == "" {
		return storage.ErrInvalidInput
	}
	key := strings.ToLower(t.ContractAddress)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[t.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byAddress[key]; exists {
		return storage.ErrDuplicateKey
	}

	tokenCopy := copyToken(t)
	tokenCopy.ContractAddress = key
	s.byID[t.ID] = tokenCopy
	s.byAddress[key] = tokenCopy
	s.inserts++
	return nil
}

// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(_ context.Context, id string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyToken(t), nil
}

// GetByAddress retrieves a token by contract address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(_ context.Context, address string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byAddress[strings.ToLower(address)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyToken(t), nil
}

// Inserts returns the number of successful inserts.
func (s *TokenStore) Inserts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inserts
}

func copyToken(t *domain.Token) *domain.Token {
	c := *t
	c.CreationTxHash = clonePtr(t.CreationTxHash)
	c.DeployerAddress = clonePtr(t.DeployerAddress)
	return &c
}

var _ storage.TokenStore = (*TokenStore)(nil)
