package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `id, name, ticker, decimals, contract_address, creation_block, creation_tx_hash, deployer_address`

// Insert adds a new token. Returns ErrDuplicateKey if id or contract_address exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	query := `
		INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID,
		t.Name,
		t.Ticker,
		t.Decimals,
		strings.ToLower(t.ContractAddress),
		t.CreationBlock,
		t.CreationTxHash,
		t.DeployerAddress,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(ctx context.Context, id string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1`

	t, err := scanToken(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by id: %w", err)
	}
	return t, nil
}

// GetByAddress retrieves a token by contract address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(ctx context.Context, address string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE contract_address = $1`

	t, err := scanToken(s.pool.QueryRow(ctx, query, strings.ToLower(address)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by address: %w", err)
	}
	return t, nil
}

// scanToken scans a single row into Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Ticker,
		&t.Decimals,
		&t.ContractAddress,
		&t.CreationBlock,
		&t.CreationTxHash,
		&t.DeployerAddress,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
