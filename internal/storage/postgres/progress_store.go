package postgres

import (
	"context"
	"fmt"

	"amm-launch-lab/internal/storage"
)

// ProgressStore implements storage.ProgressStore using PostgreSQL.
type ProgressStore struct {
	pool *Pool
}

// NewProgressStore creates a new ProgressStore.
func NewProgressStore(pool *Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProgressStore = (*ProgressStore)(nil)

// GetLastProcessed returns the last processed position of stream.
func (s *ProgressStore) GetLastProcessed(ctx context.Context, stream string) (*storage.Progress, error) {
	query := `
		SELECT last_block, last_tx_index, last_log_index
		FROM ingestion_progress
		WHERE stream = $1
	`

	var p storage.Progress
	err := s.pool.QueryRow(ctx, query, stream).Scan(&p.Block, &p.TxIndex, &p.LogIndex)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return &p, nil
}

// SetLastProcessed saves the last processed position of stream.
func (s *ProgressStore) SetLastProcessed(ctx context.Context, stream string, progress *storage.Progress) error {
	if progress == nil || stream == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO ingestion_progress (stream, last_block, last_tx_index, last_log_index, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (stream) DO UPDATE SET
			last_block = EXCLUDED.last_block,
			last_tx_index = EXCLUDED.last_tx_index,
			last_log_index = EXCLUDED.last_log_index,
			updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, stream, progress.Block, progress.TxIndex, progress.LogIndex); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}
