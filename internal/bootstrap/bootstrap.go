// Package bootstrap runs the one-time setup work of the indexer: seeding
// token rows for the paired assets and the historical contract scan.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"amm-launch-lab/internal/assets"
	"amm-launch-lab/internal/chain"
	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/launch"
	"amm-launch-lab/internal/storage"
)

// LatestBlock as the scan end walks up to the current head.
const LatestBlock int64 = -1

// DefaultWorkers is the number of blocks fetched concurrently by the scan.
const DefaultWorkers = 4

// TokenResolver is the resolver subset used to seed asset rows.
type TokenResolver interface {
	CreationInfo(ctx context.Context, address string) *domain.ContractCreationInfo
	GetOrCreateToken(ctx context.Context, info domain.TokenInfo, creation *domain.ContractCreationInfo) (string, error)
}

// Deps are the collaborators of a Bootstrapper.
type Deps struct {
	Gate      *launch.Gate
	Registry  *assets.Registry
	Resolver  TokenResolver
	Chain     chain.BlockReader
	Contracts storage.NewContractStore
}

// Bootstrapper runs the setup hooks.
type Bootstrapper struct {
	Deps
	workers pond.Pool
	logger  *zap.Logger
}

// Option configures Bootstrapper.
type Option func(*Bootstrapper)

// WithWorkers sets the scan concurrency.
func WithWorkers(n int) Option {
	return func(b *Bootstrapper) {
		if n > 0 {
			b.workers = pond.NewPool(n)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bootstrapper) {
		b.logger = l
	}
}

// New creates a Bootstrapper.
func New(deps Deps, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		Deps:   deps,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers == nil {
		b.workers = pond.NewPool(DefaultWorkers)
	}
	return b
}

// Close stops the worker pool.
func (b *Bootstrapper) Close() {
	b.workers.StopAndWait()
}

// SeedAssets creates a Token row for every registry asset. It runs once per
// gate: later calls are no-ops once a call has succeeded. Existing rows are
// left untouched. Returns true when this call did the seeding.
func (b *Bootstrapper) SeedAssets(ctx context.Context) (bool, error) {
	return b.Gate.Bootstrap(func() error {
		for _, asset := range b.Registry.All() {
			if err := ctx.Err(); err != nil {
				return err
			}

			creation := b.Resolver.CreationInfo(ctx, asset.Address)
			id, err := b.Resolver.GetOrCreateToken(ctx, domain.TokenInfo{
				Address:  asset.Address,
				Name:     asset.DisplayName,
				Ticker:   asset.Symbol,
				Decimals: asset.Decimals,
			}, creation)
			if err != nil {
				return fmt.Errorf("seed %s: %w", asset.Symbol, err)
			}

			b.logger.Info("paired asset seeded",
				zap.String("token", asset.Address),
				zap.String("symbol", asset.Symbol),
				zap.String("id", id),
				zap.Bool("creation_known", creation != nil),
			)
		}
		return nil
	})
}

// ScanNewContracts records every contract deployed in blocks [start, end).
// end may be LatestBlock. The scan is skipped when records already exist.
// Returns the number of inserted records.
func (b *Bootstrapper) ScanNewContracts(ctx context.Context, start, end int64) (int64, error) {
	var inserted atomic.Int64

	err := b.Gate.Global(ctx, func(ctx context.Context) error {
		existing, err := b.Contracts.Count(ctx)
		if err != nil {
			return fmt.Errorf("count contracts: %w", err)
		}
		if existing > 0 {
			b.logger.Info("contract scan skipped", zap.Int64("existing", existing))
			return nil
		}

		if end == LatestBlock {
			head, err := b.Chain.BlockNumber(ctx)
			if err != nil {
				return fmt.Errorf("get head block: %w", err)
			}
			end = int64(head) + 1
		}
		if start >= end {
			return nil
		}

		b.logger.Info("starting contract scan", zap.Int64("from", start), zap.Int64("to", end))

		group := b.workers.NewGroupContext(ctx)
		groupCtx := group.Context()
		for block := start; block < end; block++ {
			group.SubmitErr(func() error {
				n, err := b.scanBlock(groupCtx, block)
				inserted.Add(n)
				return err
			})
		}
		if err := group.Wait(); err != nil && !errors.Is(err, pond.ErrGroupStopped) {
			return err
		}

		b.logger.Info("contract scan complete", zap.Int64("inserted", inserted.Load()))
		return nil
	})
	return inserted.Load(), err
}

func (b *Bootstrapper) scanBlock(ctx context.Context, block int64) (int64, error) {
	txs, err := b.Chain.BlockTransactions(ctx, block)
	if err != nil {
		return 0, fmt.Errorf("block %d: %w", block, err)
	}

	var inserted int64
	for _, tx := range txs {
		if tx.To != nil {
			continue
		}

		receipt, err := b.Chain.Receipt(ctx, tx.Hash)
		if err != nil {
			return inserted, fmt.Errorf("receipt %s: %w", tx.Hash, err)
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			continue
		}

		ok, err := b.Contracts.InsertIgnore(ctx, &domain.NewContractRecord{
			ID:              uuid.NewString(),
			ContractAddress: chain.Hex(receipt.ContractAddress),
			CreationBlock:   block,
			CreationTxHash:  strings.ToLower(tx.Hash),
			DeployerAddress: strings.ToLower(tx.From),
		})
		if err != nil {
			return inserted, fmt.Errorf("insert contract of %s: %w", tx.Hash, err)
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}
