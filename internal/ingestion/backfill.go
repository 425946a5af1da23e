package ingestion

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"amm-launch-lab/internal/observability"
	"amm-launch-lab/internal/storage"
)

// LatestBlock as LogSourceOptions.To backfills up to the current head.
const LatestBlock int64 = -1

// DefaultWindow is the number of blocks per eth_getLogs query.
const DefaultWindow int64 = 1000

// LogReader is the chain subset used by the historical backfill.
type LogReader interface {
	TxReader
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// LogSource replays Mint logs of a block range in fixed windows.
type LogSource struct {
	reader    LogReader
	decoder   *Decoder
	progress  storage.ProgressStore
	stream    string
	from      int64
	to        int64
	window    int64
	addresses []common.Address
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// LogSourceOptions contains configuration for creating a LogSource.
type LogSourceOptions struct {
	Reader LogReader
	From   int64 // first block, inclusive
	To     int64 // last block, inclusive; LatestBlock for the head
	Window int64 // Default: DefaultWindow

	// Addresses restricts the query to these pools. Empty means all pools.
	Addresses []string

	// Progress, when set, resumes after the last saved block of Stream and
	// records each completed window.
	Progress storage.ProgressStore
	Stream   string // Default: "backfill"

	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// NewLogSource creates a historical log source.
func NewLogSource(opts LogSourceOptions) *LogSource {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}

	stream := opts.Stream
	if stream == "" {
		stream = "backfill"
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	addresses := make([]common.Address, 0, len(opts.Addresses))
	for _, a := range opts.Addresses {
		addresses = append(addresses, common.HexToAddress(a))
	}

	return &LogSource{
		reader:    opts.Reader,
		decoder:   NewDecoder(opts.Reader),
		progress:  opts.Progress,
		stream:    stream,
		from:      opts.From,
		to:        opts.To,
		window:    window,
		addresses: addresses,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

var _ Source = (*LogSource)(nil)

// Run emits every Mint event in the configured range. Progress is saved
// only after all events of a window were emitted, so a failed window is
// replayed on the next run.
func (s *LogSource) Run(ctx context.Context, emit EmitFunc) error {
	start, err := s.startBlock(ctx)
	if err != nil {
		return err
	}

	end := s.to
	if end == LatestBlock {
		head, err := s.reader.BlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get head block: %w", err)
		}
		end = int64(head)
	}

	if start > end {
		s.logger.Info("backfill range empty", zap.Int64("from", start), zap.Int64("to", end))
		return nil
	}

	s.logger.Info("starting backfill",
		zap.Int64("from", start),
		zap.Int64("to", end),
		zap.Int64("window", s.window),
	)

	var emitted int
	for lo := start; lo <= end; lo += s.window {
		if err := ctx.Err(); err != nil {
			return err
		}

		hi := min(lo+s.window-1, end)
		n, err := s.processWindow(ctx, lo, hi, emit)
		if err != nil {
			return err
		}
		emitted += n

		if s.progress != nil {
			if err := s.progress.SetLastProcessed(ctx, s.stream, &storage.Progress{Block: hi}); err != nil {
				return fmt.Errorf("save progress at block %d: %w", hi, err)
			}
		}
		s.metrics.RecordBlock(hi)
	}

	s.logger.Info("backfill complete", zap.Int("events", emitted), zap.Int64("to", end))
	return nil
}

func (s *LogSource) startBlock(ctx context.Context) (int64, error) {
	if s.progress == nil {
		return s.from, nil
	}

	p, err := s.progress.GetLastProcessed(ctx, s.stream)
	if errors.Is(err, storage.ErrNotFound) {
		return s.from, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load progress: %w", err)
	}

	if p.Block+1 > s.from {
		s.logger.Info("resuming backfill", zap.String("stream", s.stream), zap.Int64("block", p.Block+1))
		return p.Block + 1, nil
	}
	return s.from, nil
}

func (s *LogSource) processWindow(ctx context.Context, lo, hi int64, emit EmitFunc) (int, error) {
	logs, err := s.reader.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: big.NewInt(lo),
		ToBlock:   big.NewInt(hi),
		Addresses: s.addresses,
		Topics:    [][]common.Hash{MintTopics()},
	})
	if err != nil {
		return 0, fmt.Errorf("filter logs [%d, %d]: %w", lo, hi, err)
	}

	events, err := decodeLogs(ctx, s.decoder, logs, s.logger, s.metrics)
	if err != nil {
		return 0, err
	}
	SortLiquidityEvents(events)

	for _, ev := range events {
		if err := emit(ctx, *ev); err != nil {
			return 0, err
		}
	}

	s.logger.Debug("window processed",
		zap.Int64("from", lo),
		zap.Int64("to", hi),
		zap.Int("events", len(events)),
	)
	return len(events), nil
}
