package storage

import (
	"context"
	"math/big"

	"amm-launch-lab/internal/domain"
)

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if id or contract_address exists.
	Insert(ctx context.Context, t *domain.Token) error

	// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Token, error)

	// GetByAddress retrieves a token by contract address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Token, error)
}

// PoolStore provides access to pools storage.
type PoolStore interface {
	// Insert adds a new pool. Returns ErrDuplicateKey if id or pool_address exists.
	Insert(ctx context.Context, p *domain.Pool) error

	// GetByAddress retrieves a pool by pool address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Pool, error)

	// UpdateLiquidity overwrites the accumulated launch liquidity and the
	// position of the last merged event. Returns ErrNotFound if not exists.
	UpdateLiquidity(ctx context.Context, poolID string, initial, token *big.Int, last domain.Position) error
}

// SniperStore provides access to snipers storage.
type SniperStore interface {
	// InsertIgnore adds snipers, skipping rows whose (pool_id, address) exists.
	// Returns the number of rows inserted.
	InsertIgnore(ctx context.Context, snipers []*domain.Sniper) (int, error)

	// GetByPoolID retrieves all snipers of a pool in insertion order.
	GetByPoolID(ctx context.Context, poolID string) ([]*domain.Sniper, error)
}

// MarketCapStore provides access to market_caps storage.
type MarketCapStore interface {
	// Upsert inserts the snapshot or, when one exists for the pool, replaces
	// its market cap and quote asset.
	Upsert(ctx context.Context, m *domain.MarketCapSnapshot) error

	// GetByPoolID retrieves the snapshot of a pool. Returns ErrNotFound if not exists.
	GetByPoolID(ctx context.Context, poolID string) (*domain.MarketCapSnapshot, error)
}

// FundingStore provides access to fundings storage.
type FundingStore interface {
	// InsertBulk appends funding hops atomically.
	InsertBulk(ctx context.Context, records []*domain.FundingRecord) error

	// GetByPoolID retrieves the funding chain of a pool ordered by level ASC.
	GetByPoolID(ctx context.Context, poolID string) ([]*domain.FundingRecord, error)
}

// NewContractStore provides access to new_contracts_deployed storage.
type NewContractStore interface {
	// InsertIgnore adds a record unless contract_address exists.
	// Returns true when the row was inserted.
	InsertIgnore(ctx context.Context, r *domain.NewContractRecord) (bool, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// GetByAddress retrieves a record by contract address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.NewContractRecord, error)
}

// LaunchSink receives denormalized launch summaries for analytics.
type LaunchSink interface {
	// Publish writes or replaces the summary of a pool.
	Publish(ctx context.Context, s *domain.LaunchSummary) error
}

// Stores groups the relational stores used by the launch pipeline.
type Stores struct {
	Tokens       TokenStore
	Pools        PoolStore
	Snipers      SniperStore
	MarketCaps   MarketCapStore
	Fundings     FundingStore
	NewContracts NewContractStore
	Progress     ProgressStore
}
