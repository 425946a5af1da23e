package postgres

import (
	"context"
	"fmt"
	"strings"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// MarketCapStore implements storage.MarketCapStore using PostgreSQL.
type MarketCapStore struct {
	pool *Pool
}

// NewMarketCapStore creates a new MarketCapStore.
func NewMarketCapStore(pool *Pool) *MarketCapStore {
	return &MarketCapStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MarketCapStore = (*MarketCapStore)(nil)

// Upsert inserts the snapshot or updates the existing row of the pool.
func (s *MarketCapStore) Upsert(ctx context.Context, m *domain.MarketCapSnapshot) error {
	if m == nil || m.MarketCap == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO market_caps (id, pool_id, market_cap, quote_asset_address, quote_asset_symbol)
		VALUES ($1, $2, $3::numeric, $4, $5)
		ON CONFLICT (pool_id) DO UPDATE SET
			market_cap = EXCLUDED.market_cap,
			quote_asset_address = EXCLUDED.quote_asset_address,
			quote_asset_symbol = EXCLUDED.quote_asset_symbol,
			updated_at = NOW()
	`

	_, err := s.pool.Exec(ctx, query,
		m.ID,
		m.PoolID,
		numericArg(m.MarketCap),
		strings.ToLower(m.QuoteAssetAddress),
		m.QuoteAssetSymbol,
	)
	if err != nil {
		return fmt.Errorf("upsert market cap: %w", err)
	}
	return nil
}

// GetByPoolID retrieves the snapshot of a pool. Returns ErrNotFound if not exists.
func (s *MarketCapStore) GetByPoolID(ctx context.Context, poolID string) (*domain.MarketCapSnapshot, error) {
	query := `
		SELECT id, pool_id, market_cap::text, quote_asset_address, quote_asset_symbol
		FROM market_caps
		WHERE pool_id = $1
	`

	var (
		m         domain.MarketCapSnapshot
		marketCap *string
	)
	err := s.pool.QueryRow(ctx, query, poolID).Scan(&m.ID, &m.PoolID, &marketCap, &m.QuoteAssetAddress, &m.QuoteAssetSymbol)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get market cap: %w", err)
	}
	if m.MarketCap, err = parseNumeric(marketCap); err != nil {
		return nil, err
	}
	return &m, nil
}
