package migrations

import (
	"context"
	"fmt"

	"amm-launch-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded schema in lexical order.
// Every statement is idempotent, so this runs on each indexer start.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.body); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
