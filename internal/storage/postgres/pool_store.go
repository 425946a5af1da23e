package postgres

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/jackc/pgx/v5"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Insert adds a new pool. Returns ErrDuplicateKey if id or pool_address exists.
func (s *PoolStore) Insert(ctx context.Context, p *domain.Pool) error {
	query := `
		INSERT INTO pools (
			id, token_id, paired_asset_address, paired_asset_symbol, pool_address,
			token_is_first_in_pair, creation_block, launch_timestamp, creation_tx_hash,
			creation_tx_index, architecture, initial_liquidity, token_liquidity,
			is_team_bundle, deployer_address, last_tx_index, last_log_index
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::lp_type,
			$12::numeric, $13::numeric, $14, $15, $16, $17
		)
	`

	_, err := s.pool.Exec(ctx, query,
		p.ID,
		p.TokenID,
		strings.ToLower(p.PairedAssetAddress),
		p.PairedAssetSymbol,
		strings.ToLower(p.PoolAddress),
		p.TokenIsFirstInPair,
		p.CreationBlock,
		p.LaunchTimestamp,
		p.CreationTxHash,
		p.CreationTxIndex,
		string(p.Architecture),
		numericArg(orZero(p.InitialLiquidity)),
		numericArg(orZero(p.TokenLiquidity)),
		p.IsTeamBundle,
		p.DeployerAddress,
		p.LastTxIndex,
		p.LastLogIndex,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

// GetByAddress retrieves a pool by pool address. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByAddress(ctx context.Context, address string) (*domain.Pool, error) {
	query := `
		SELECT id, token_id, paired_asset_address, paired_asset_symbol, pool_address,
		       token_is_first_in_pair, creation_block, launch_timestamp, creation_tx_hash,
		       creation_tx_index, architecture::text, initial_liquidity::text,
		       token_liquidity::text, is_team_bundle, deployer_address,
		       last_tx_index, last_log_index
		FROM pools
		WHERE pool_address = $1
	`

	p, err := scanPool(s.pool.QueryRow(ctx, query, strings.ToLower(address)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by address: %w", err)
	}
	return p, nil
}

// UpdateLiquidity overwrites accumulated liquidity and the last merged position.
func (s *PoolStore) UpdateLiquidity(ctx context.Context, poolID string, initial, token *big.Int, last domain.Position) error {
	if initial == nil || token == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE pools
		SET initial_liquidity = $2::numeric,
		    token_liquidity = $3::numeric,
		    last_tx_index = $4,
		    last_log_index = $5,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, poolID, numericArg(initial), numericArg(token), last.TxIndex, last.LogIndex)
	if err != nil {
		return fmt.Errorf("update pool liquidity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanPool scans a single row into Pool.
func scanPool(row pgx.Row) (*domain.Pool, error) {
	var (
		p       domain.Pool
		arch    string
		initial *string
		token   *string
	)

	err := row.Scan(
		&p.ID,
		&p.TokenID,
		&p.PairedAssetAddress,
		&p.PairedAssetSymbol,
		&p.PoolAddress,
		&p.TokenIsFirstInPair,
		&p.CreationBlock,
		&p.LaunchTimestamp,
		&p.CreationTxHash,
		&p.CreationTxIndex,
		&arch,
		&initial,
		&token,
		&p.IsTeamBundle,
		&p.DeployerAddress,
		&p.LastTxIndex,
		&p.LastLogIndex,
	)
	if err != nil {
		return nil, err
	}

	p.Architecture = domain.Architecture(arch)
	if p.InitialLiquidity, err = parseNumeric(initial); err != nil {
		return nil, err
	}
	if p.TokenLiquidity, err = parseNumeric(token); err != nil {
		return nil, err
	}
	return &p, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
