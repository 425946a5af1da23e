package chain

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"amm-launch-lab/internal/domain"
)

// Reader defines the chain reads used by the launch pipeline.
type Reader interface {
	// PoolTokens returns token0 and token1 of a pool.
	PoolTokens(ctx context.Context, pool string, arch domain.Architecture) (string, string, error)

	// TokenMetadata reads the ERC-20 fields of a token in one batch.
	TokenMetadata(ctx context.Context, token string) (*TokenMetadata, error)

	// Receipt returns the receipt of a mined transaction.
	Receipt(ctx context.Context, txHash string) (*types.Receipt, error)

	// FilterLogs runs a log query.
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)

	// TransactionSender recovers the sender of a transaction.
	TransactionSender(ctx context.Context, txHash string) (string, error)

	// BlockTime returns the timestamp of a block.
	BlockTime(ctx context.Context, number int64) (int64, error)
}

// BlockReader is the subset used by the historical contract scan.
type BlockReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockTransactions(ctx context.Context, number int64) ([]Tx, error)
	Receipt(ctx context.Context, txHash string) (*types.Receipt, error)
}

// LogSubscriber streams logs over a persistent connection.
type LogSubscriber interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

var (
	_ Reader        = (*Client)(nil)
	_ BlockReader   = (*Client)(nil)
	_ LogSubscriber = (*Client)(nil)
)
