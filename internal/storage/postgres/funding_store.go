package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// FundingStore implements storage.FundingStore using PostgreSQL.
type FundingStore struct {
	pool *Pool
}

// NewFundingStore creates a new FundingStore.
func NewFundingStore(pool *Pool) *FundingStore {
	return &FundingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FundingStore = (*FundingStore)(nil)

// InsertBulk appends funding hops in one transaction. Fails entire batch on any duplicate.
func (s *FundingStore) InsertBulk(ctx context.Context, records []*domain.FundingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO fundings (id, pool_id, level, funder_address, funded_address, amount, tx_hash, funded_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query,
			r.ID,
			r.PoolID,
			r.Level,
			strings.ToLower(r.FunderAddress),
			strings.ToLower(r.FundedAddress),
			numericArg(orZero(r.Amount)),
			r.TxHash,
			r.Timestamp,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert funding: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByPoolID retrieves the funding chain of a pool ordered by level ASC.
func (s *FundingStore) GetByPoolID(ctx context.Context, poolID string) ([]*domain.FundingRecord, error) {
	query := `
		SELECT id, pool_id, level, funder_address, funded_address, amount::text, tx_hash, funded_at
		FROM fundings
		WHERE pool_id = $1
		ORDER BY level ASC
	`

	rows, err := s.pool.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("query fundings: %w", err)
	}
	defer rows.Close()

	var result []*domain.FundingRecord
	for rows.Next() {
		var (
			r      domain.FundingRecord
			amount *string
		)
		if err := rows.Scan(&r.ID, &r.PoolID, &r.Level, &r.FunderAddress, &r.FundedAddress, &amount, &r.TxHash, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan funding: %w", err)
		}
		if r.Amount, err = parseNumeric(amount); err != nil {
			return nil, err
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fundings: %w", err)
	}
	return result, nil
}
