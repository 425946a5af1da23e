package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"amm-launch-lab/internal/chain"
	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/observability"
	"amm-launch-lab/internal/pool"
)

// ErrUndecodable marks a log that is not a well-formed Mint event.
var ErrUndecodable = errors.New("undecodable log")

// decoderCacheLimit bounds the block time and sender caches.
const decoderCacheLimit = 4096

// TxReader is the chain subset needed to complete a Mint log.
type TxReader interface {
	BlockTime(ctx context.Context, number int64) (int64, error)
	TransactionSender(ctx context.Context, txHash string) (string, error)
}

// Decoder turns Mint logs into liquidity events.
// Not safe for concurrent use.
type Decoder struct {
	reader  TxReader
	times   map[int64]int64
	senders map[string]string
}

// NewDecoder creates a decoder reading block times and senders from reader.
func NewDecoder(reader TxReader) *Decoder {
	return &Decoder{
		reader:  reader,
		times:   make(map[int64]int64),
		senders: make(map[string]string),
	}
}

// MintTopics returns the Mint topics of every supported architecture.
func MintTopics() []common.Hash {
	variants := pool.Variants()
	topics := make([]common.Hash, 0, len(variants))
	for _, v := range variants {
		topics = append(topics, v.MintTopic)
	}
	return topics
}

// Decode builds the event for a Mint log. The sender is best effort:
// an unresolved sender leaves TxFrom empty.
func (d *Decoder) Decode(ctx context.Context, l types.Log) (*domain.LiquidityEvent, error) {
	if len(l.Topics) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, chain.ErrUnexpectedTopic)
	}

	var variant *pool.Variant
	for _, v := range pool.Variants() {
		if v.MintTopic == l.Topics[0] {
			variant = &v
			break
		}
	}
	if variant == nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, chain.ErrUnexpectedTopic)
	}

	amounts, err := variant.DecodeMint(l)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	block := int64(l.BlockNumber)
	ts, err := d.blockTime(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("block %d time: %w", block, err)
	}

	txHash := txHashOf(l)
	return &domain.LiquidityEvent{
		Architecture: variant.Architecture,
		PoolAddress:  chain.Hex(l.Address),
		Amount0:      amounts.Amount0,
		Amount1:      amounts.Amount1,
		BlockNumber:  block,
		BlockTime:    ts,
		TxHash:       txHash,
		TxIndex:      int(l.TxIndex),
		TxFrom:       d.sender(ctx, txHash),
		LogIndex:     int(l.Index),
	}, nil
}

func (d *Decoder) blockTime(ctx context.Context, block int64) (int64, error) {
	if ts, ok := d.times[block]; ok {
		return ts, nil
	}
	ts, err := d.reader.BlockTime(ctx, block)
	if err != nil {
		return 0, err
	}
	if len(d.times) >= decoderCacheLimit {
		clear(d.times)
	}
	d.times[block] = ts
	return ts, nil
}

func (d *Decoder) sender(ctx context.Context, txHash string) string {
	if from, ok := d.senders[txHash]; ok {
		return from
	}
	from, err := d.reader.TransactionSender(ctx, txHash)
	if err != nil {
		return ""
	}
	if len(d.senders) >= decoderCacheLimit {
		clear(d.senders)
	}
	d.senders[txHash] = strings.ToLower(from)
	return d.senders[txHash]
}

// decodeLogs decodes a batch of Mint logs. Removed and undecodable logs are
// skipped; any other failure aborts the batch.
func decodeLogs(ctx context.Context, d *Decoder, logs []types.Log, logger *zap.Logger, metrics *observability.Metrics) ([]*domain.LiquidityEvent, error) {
	events := make([]*domain.LiquidityEvent, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		ev, err := d.Decode(ctx, l)
		if errors.Is(err, ErrUndecodable) {
			logger.Warn("skipping log",
				zap.String("pool", chain.Hex(l.Address)),
				zap.Uint64("block", l.BlockNumber),
				zap.String("tx", l.TxHash.Hex()),
				zap.Error(err),
			)
			metrics.RecordEventError("decode")
			continue
		}
		if err != nil {
			return nil, err
		}
		metrics.RecordLog(ev.Architecture.String(), "mint")
		events = append(events, ev)
	}
	return events, nil
}
