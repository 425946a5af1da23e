package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// SniperStore implements storage.SniperStore using PostgreSQL.
type SniperStore struct {
	pool *Pool
}

// NewSniperStore creates a new SniperStore.
func NewSniperStore(pool *Pool) *SniperStore {
	return &SniperStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SniperStore = (*SniperStore)(nil)

// InsertIgnore adds snipers, skipping existing (pool_id, address) pairs.
func (s *SniperStore) InsertIgnore(ctx context.Context, snipers []*domain.Sniper) (int, error) {
	if len(snipers) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO snipers (id, pool_id, address, volume_bought, percent_of_supply, txn_hash, position)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		ON CONFLICT (pool_id, address) DO NOTHING
	`

	batch := &pgx.Batch{}
	for i, sn := range snipers {
		batch.Queue(query,
			sn.ID,
			sn.PoolID,
			strings.ToLower(sn.Address),
			numericArg(orZero(sn.VolumeBought)),
			sn.PercentOfSupply,
			sn.TxnHash,
			i,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range snipers {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert sniper: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// GetByPoolID retrieves all snipers of a pool in insertion order.
func (s *SniperStore) GetByPoolID(ctx context.Context, poolID string) ([]*domain.Sniper, error) {
	query := `
		SELECT id, pool_id, address, volume_bought::text, percent_of_supply, txn_hash
		FROM snipers
		WHERE pool_id = $1
		ORDER BY created_at ASC, position ASC
	`

	rows, err := s.pool.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("query snipers: %w", err)
	}
	defer rows.Close()

	var result []*domain.Sniper
	for rows.Next() {
		var (
			sn     domain.Sniper
			volume *string
		)
		if err := rows.Scan(&sn.ID, &sn.PoolID, &sn.Address, &volume, &sn.PercentOfSupply, &sn.TxnHash); err != nil {
			return nil, fmt.Errorf("scan sniper: %w", err)
		}
		if sn.VolumeBought, err = parseNumeric(volume); err != nil {
			return nil, err
		}
		result = append(result, &sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snipers: %w", err)
	}
	return result, nil
}
