package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"amm-launch-lab/internal/chain"
	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/observability"
)

// ErrSubscriptionClosed is returned when the node ends the log subscription.
var ErrSubscriptionClosed = errors.New("log subscription closed")

// Stream delivers Mint events from a live log subscription.
//
// Events are buffered by block and released once the head has advanced by
// Confirmations blocks, so every block is emitted in chain order and logs
// retracted by a short reorg are dropped before delivery.
type Stream struct {
	subscriber      chain.LogSubscriber
	decoder         *Decoder
	addresses       []common.Address
	confirmations   int64
	flushInterval   time.Duration
	shutdownTimeout time.Duration
	logger          *zap.Logger
	metrics         *observability.Metrics

	// Block-based buffer for deterministic ordering
	buffer  map[int64][]*domain.LiquidityEvent
	highest int64
}

// StreamOptions contains configuration for creating a Stream.
type StreamOptions struct {
	Subscriber chain.LogSubscriber
	Reader     TxReader
	Addresses  []string

	Confirmations   int64         // Default: 2 blocks
	FlushInterval   time.Duration // Default: 5s - release confirmed blocks periodically
	ShutdownTimeout time.Duration // Default: 30s - bound on the final flush

	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// NewStream creates a live source.
func NewStream(opts StreamOptions) *Stream {
	confirmations := opts.Confirmations
	if confirmations <= 0 {
		confirmations = 2
	}

	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}

	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	addresses := make([]common.Address, 0, len(opts.Addresses))
	for _, a := range opts.Addresses {
		addresses = append(addresses, common.HexToAddress(a))
	}

	return &Stream{
		subscriber:      opts.Subscriber,
		decoder:         NewDecoder(opts.Reader),
		addresses:       addresses,
		confirmations:   confirmations,
		flushInterval:   flushInterval,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
		metrics:         opts.Metrics,
		buffer:          make(map[int64][]*domain.LiquidityEvent),
	}
}

var _ Source = (*Stream)(nil)

// Run subscribes to Mint and factory logs and emits Mint events until ctx is
// cancelled or the subscription fails. Buffered events are flushed before
// returning.
func (s *Stream) Run(ctx context.Context, emit EmitFunc) error {
	topics := append(MintTopics(), chain.PairCreatedTopic, chain.PoolCreatedTopic)
	logs := make(chan types.Log, 256)

	sub, err := s.subscriber.SubscribeFilterLogs(ctx, ethereum.FilterQuery{
		Addresses: s.addresses,
		Topics:    [][]common.Hash{topics},
	}, logs)
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}
	defer sub.Unsubscribe()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	s.logger.Info("stream started",
		zap.Int64("confirmations", s.confirmations),
		zap.Duration("flush_interval", s.flushInterval),
	)

	for {
		select {
		case <-ctx.Done():
			s.shutdown(ctx, emit)
			s.logger.Info("stream stopping")
			return ctx.Err()

		case err, ok := <-sub.Err():
			s.shutdown(ctx, emit)
			if !ok || err == nil {
				return ErrSubscriptionClosed
			}
			return fmt.Errorf("log subscription: %w", err)

		case l := <-logs:
			if err := s.handleLog(ctx, l, emit); err != nil {
				return err
			}

		case <-ticker.C:
			if err := s.flushConfirmed(ctx, emit); err != nil {
				return err
			}
		}
	}
}

func (s *Stream) handleLog(ctx context.Context, l types.Log, emit EmitFunc) error {
	if len(l.Topics) == 0 {
		return nil
	}

	switch l.Topics[0] {
	case chain.PairCreatedTopic, chain.PoolCreatedTopic:
		s.logPoolCreation(l)
		return nil
	}

	if l.Removed {
		s.retract(l)
		return nil
	}

	events, err := decodeLogs(ctx, s.decoder, []types.Log{l}, s.logger, s.metrics)
	if err != nil {
		s.logger.Warn("dropping log",
			zap.String("pool", chain.Hex(l.Address)),
			zap.Uint64("block", l.BlockNumber),
			zap.Error(err),
		)
		s.metrics.RecordEventError("block_time")
		return nil
	}
	if len(events) == 0 {
		return nil
	}
	return s.bufferEvent(ctx, events[0], emit)
}

func (s *Stream) logPoolCreation(l types.Log) {
	created, err := chain.DecodePoolCreation(l)
	if err != nil {
		s.logger.Warn("undecodable factory log", zap.Uint64("block", l.BlockNumber), zap.Error(err))
		return
	}

	arch := domain.ArchitectureV2
	event := "pair_created"
	if created.V3 {
		arch = domain.ArchitectureV3
		event = "pool_created"
	}
	s.metrics.RecordLog(arch.String(), event)
	s.logger.Info("pool created",
		zap.String("arch", arch.String()),
		zap.String("pool", chain.Hex(created.Pool)),
		zap.String("token0", chain.Hex(created.Token0)),
		zap.String("token1", chain.Hex(created.Token1)),
		zap.Uint64("block", l.BlockNumber),
		zap.Bool("removed", l.Removed),
	)
}

// bufferEvent adds event to the block buffer and releases confirmed blocks.
func (s *Stream) bufferEvent(ctx context.Context, ev *domain.LiquidityEvent, emit EmitFunc) error {
	block := ev.BlockNumber
	s.buffer[block] = append(s.buffer[block], ev)

	if block > s.highest {
		s.highest = block
		s.metrics.RecordBlock(block)
		return s.flushConfirmed(ctx, emit)
	}
	if block <= s.highest-s.confirmations {
		// Late event for an already released block: emit immediately
		return s.flushBlock(ctx, block, emit)
	}
	return nil
}

// retract drops a buffered event whose log was removed by a reorg.
func (s *Stream) retract(l types.Log) {
	block := int64(l.BlockNumber)
	events := s.buffer[block]
	for i, ev := range events {
		if ev.LogIndex == int(l.Index) && ev.TxHash == txHashOf(l) {
			s.buffer[block] = append(events[:i], events[i+1:]...)
			s.logger.Info("dropped reorged mint",
				zap.String("pool", ev.PoolAddress),
				zap.Int64("block", block),
				zap.String("tx", ev.TxHash),
			)
			return
		}
	}
	s.logger.Warn("removed log already released",
		zap.String("pool", chain.Hex(l.Address)),
		zap.Int64("block", block),
	)
	s.metrics.RecordEventError("reorg")
}

// flushConfirmed emits all blocks at least confirmations behind the head.
func (s *Stream) flushConfirmed(ctx context.Context, emit EmitFunc) error {
	confirmed := s.highest - s.confirmations
	if confirmed < 0 {
		return nil
	}
	for _, block := range s.bufferedBlocks() {
		if block > confirmed {
			break
		}
		if err := s.flushBlock(ctx, block, emit); err != nil {
			return err
		}
	}
	return nil
}

// flushBlock emits the events of one block in (tx_index, log_index) order.
func (s *Stream) flushBlock(ctx context.Context, block int64, emit EmitFunc) error {
	events := s.buffer[block]
	delete(s.buffer, block)

	SortLiquidityEvents(events)
	for _, ev := range events {
		if err := emit(ctx, *ev); err != nil {
			return err
		}
	}
	return nil
}

// shutdown flushes every buffered block. Confirmation no longer matters.
func (s *Stream) shutdown(ctx context.Context, emit EmitFunc) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	for _, block := range s.bufferedBlocks() {
		if err := s.flushBlock(flushCtx, block, emit); err != nil {
			s.logger.Error("final flush failed", zap.Int64("block", block), zap.Error(err))
			return
		}
	}
}

func (s *Stream) bufferedBlocks() []int64 {
	blocks := make([]int64, 0, len(s.buffer))
	for b := range s.buffer {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })
	return blocks
}

func txHashOf(l types.Log) string {
	return strings.ToLower(l.TxHash.Hex())
}
