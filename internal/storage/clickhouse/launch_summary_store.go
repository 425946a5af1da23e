package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// scale is the fractional precision of the Decimal(76, 18) columns.
const scale = 18

// LaunchSummaryStore implements storage.LaunchSink using ClickHouse.
type LaunchSummaryStore struct {
	conn *Conn
}

// NewLaunchSummaryStore creates a new LaunchSummaryStore.
func NewLaunchSummaryStore(conn *Conn) *LaunchSummaryStore {
	return &LaunchSummaryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.LaunchSink = (*LaunchSummaryStore)(nil)

// Publish inserts a summary row. ReplacingMergeTree collapses rows of the same
// pool to the highest version.
func (s *LaunchSummaryStore) Publish(ctx context.Context, summary *domain.LaunchSummary) error {
	if summary == nil || summary.PoolID == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO launch_summaries (
			pool_id, pool_address, architecture, token_address, token_ticker,
			token_decimals, quote_symbol, quote_decimals, creation_block, launch_time,
			initial_liquidity, market_cap, sniper_count, sniper_volume, funding_depth,
			is_team_bundle, deployer_address, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	var marketCap *decimal.Decimal
	if summary.MarketCap != nil {
		v := toDecimal(summary.MarketCap, summary.QuoteDecimals)
		marketCap = &v
	}

	err = batch.Append(
		summary.PoolID,
		strings.ToLower(summary.PoolAddress),
		string(summary.Architecture),
		strings.ToLower(summary.TokenAddress),
		summary.TokenTicker,
		uint8(summary.TokenDecimals),
		summary.QuoteSymbol,
		uint8(summary.QuoteDecimals),
		summary.CreationBlock,
		time.Unix(summary.LaunchTimestamp, 0).UTC(),
		toDecimal(summary.InitialLiquidity, summary.QuoteDecimals),
		marketCap,
		uint32(summary.SniperCount),
		toDecimal(summary.SniperVolume, summary.TokenDecimals),
		uint8(summary.FundingDepth),
		summary.IsTeamBundle,
		strings.ToLower(summary.DeployerAddress),
		summary.Version,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// SummaryRow is a launch summary as stored, with amounts in whole units.
type SummaryRow struct {
	PoolID           string
	PoolAddress      string
	Architecture     string
	TokenTicker      string
	InitialLiquidity decimal.Decimal
	MarketCap        *decimal.Decimal
	SniperCount      uint32
	SniperVolume     decimal.Decimal
	FundingDepth     uint8
	IsTeamBundle     bool
	Version          uint64
}

// GetByPoolAddress returns the latest summary of a pool. Returns ErrNotFound if not exists.
func (s *LaunchSummaryStore) GetByPoolAddress(ctx context.Context, poolAddress string) (*SummaryRow, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT pool_id, pool_address, architecture, token_ticker, initial_liquidity,
		       market_cap, sniper_count, sniper_volume, funding_depth, is_team_bundle, version
		FROM launch_summaries FINAL
		WHERE pool_address = ?
		ORDER BY version DESC
		LIMIT 1
	`, strings.ToLower(poolAddress))
	if err != nil {
		return nil, fmt.Errorf("query launch summary: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate launch summary: %w", err)
		}
		return nil, storage.ErrNotFound
	}

	var r SummaryRow
	if err := rows.Scan(
		&r.PoolID, &r.PoolAddress, &r.Architecture, &r.TokenTicker, &r.InitialLiquidity,
		&r.MarketCap, &r.SniperCount, &r.SniperVolume, &r.FundingDepth, &r.IsTeamBundle, &r.Version,
	); err != nil {
		return nil, fmt.Errorf("scan launch summary: %w", err)
	}
	return &r, nil
}

// toDecimal converts base units with the given decimals into whole units,
// truncated to the column scale.
func toDecimal(v *big.Int, decimals int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).Truncate(scale)
}

// Ready checks the connection, used by the indexer health endpoint.
func (s *LaunchSummaryStore) Ready(ctx context.Context) error {
	return s.conn.Ping(ctx)
}
