package postgres

import (
	"context"
	"fmt"
	"strings"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// NewContractStore implements storage.NewContractStore using PostgreSQL.
type NewContractStore struct {
	pool *Pool
}

// NewNewContractStore creates a new NewContractStore.
func NewNewContractStore(pool *Pool) *NewContractStore {
	return &NewContractStore{pool: pool}
}

// Compile-time interface check.
var _ storage.NewContractStore = (*NewContractStore)(nil)

// InsertIgnore adds a record unless contract_address exists.
func (s *NewContractStore) InsertIgnore(ctx context.Context, r *domain.NewContractRecord) (bool, error) {
	query := `
		INSERT INTO new_contracts_deployed (id, contract_address, creation_block, creation_tx_hash, deployer_address)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contract_address) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		r.ID,
		strings.ToLower(r.ContractAddress),
		r.CreationBlock,
		r.CreationTxHash,
		strings.ToLower(r.DeployerAddress),
	)
	if err != nil {
		return false, fmt.Errorf("insert new contract: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Count returns the number of stored records.
func (s *NewContractStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM new_contracts_deployed`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count new contracts: %w", err)
	}
	return n, nil
}

// GetByAddress retrieves a record by contract address. Returns ErrNotFound if not exists.
func (s *NewContractStore) GetByAddress(ctx context.Context, address string) (*domain.NewContractRecord, error) {
	query := `
		SELECT id, contract_address, creation_block, creation_tx_hash, deployer_address
		FROM new_contracts_deployed
		WHERE contract_address = $1
	`

	var r domain.NewContractRecord
	err := s.pool.QueryRow(ctx, query, strings.ToLower(address)).Scan(
		&r.ID, &r.ContractAddress, &r.CreationBlock, &r.CreationTxHash, &r.DeployerAddress,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get new contract: %w", err)
	}
	return &r, nil
}
