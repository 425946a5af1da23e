package postgres

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// setupTestDB creates a PostgreSQL container for testing and applies migrations.
// Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	// Run migrations
	runMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// runMigrations applies the schema files read from disk.
// The migrations package cannot be imported here (it imports this package).
func runMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	// Find project root by looking for go.mod
	projectRoot := findProjectRoot(t)
	migrationsDir := filepath.Join(projectRoot, "internal", "storage", "migrations", "postgres")

	// Read migration files
	entries, err := os.ReadDir(migrationsDir)
	require.NoError(t, err, "failed to read migrations directory")

	// Sort files by name (001_, 002_, etc.)
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	// Execute each migration
	for _, file := range files {
		filePath := filepath.Join(migrationsDir, file)
		sql, err := os.ReadFile(filePath)
		require.NoError(t, err, "failed to read migration file: %s", file)

		_, err = pool.Exec(ctx, string(sql))
		require.NoError(t, err, "failed to execute migration: %s", file)

		t.Logf("Applied migration: %s", file)
	}
}

// findProjectRoot walks up from current directory to find go.mod.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	// Start from the current working directory
	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}

// seedPool inserts a token and a pool referencing it.
func seedPool(t *testing.T, stores storage.Stores, address string) *domain.Pool {
	t.Helper()
	ctx := context.Background()

	token := &domain.Token{
		ID:              uuid.NewString(),
		Name:            "Pepe",
		Ticker:          "PEPE",
		Decimals:        18,
		ContractAddress: "0xtoken" + address,
		CreationBlock:   domain.UnknownCreationBlock,
		DeployerAddress: ptr("0xdeployer"),
	}
	require.NoError(t, stores.Tokens.Insert(ctx, token))

	p := &domain.Pool{
		ID:                 uuid.NewString(),
		TokenID:            token.ID,
		PairedAssetAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		PairedAssetSymbol:  "WETH",
		PoolAddress:        address,
		TokenIsFirstInPair: true,
		CreationBlock:      21129000,
		LaunchTimestamp:    1730000000,
		CreationTxHash:     "0xlaunch",
		CreationTxIndex:    4,
		Architecture:       domain.ArchitectureV2,
		InitialLiquidity:   big.NewInt(10),
		TokenLiquidity:     big.NewInt(1_000),
		DeployerAddress:    "0xdeployer",
		LastTxIndex:        4,
		LastLogIndex:       7,
	}
	require.NoError(t, stores.Pools.Insert(ctx, p))
	return p
}
