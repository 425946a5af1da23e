// Package funding walks the inbound-value history of an address to find who
// funded it, and who funded them, up to a bounded depth.
package funding

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/etherscan"
	"amm-launch-lab/internal/observability"
)

// Defaults.
const (
	DefaultMaxLevels = 3
	DefaultDelay     = 250 * time.Millisecond
)

// Status describes how a trace ended.
type Status string

const (
	StatusComplete Status = "complete" // every level produced a hop
	StatusPartial  Status = "partial"  // the walk ran out of qualifying transfers
	StatusFailed   Status = "failed"   // a lookup failed; hops found before it are kept
)

// Ledger lists the earliest transactions of an address.
type Ledger interface {
	TxList(ctx context.Context, address string, limit int) ([]etherscan.Tx, error)
}

// Hop is one funding transfer: Funder sent Amount to Funded.
type Hop struct {
	Level     int
	Funder    string
	Funded    string
	Amount    *big.Int
	TxHash    string
	Timestamp int64
}

// Chain is the result of Trace, hops ordered by level starting at 1.
type Chain struct {
	Start  string
	Hops   []Hop
	Status Status
	Err    error
}

// Records converts the chain into FundingRecord rows of a pool.
func (c Chain) Records(poolID string) []*domain.FundingRecord {
	records := make([]*domain.FundingRecord, 0, len(c.Hops))
	for _, h := range c.Hops {
		records = append(records, &domain.FundingRecord{
			ID:            uuid.NewString(),
			PoolID:        poolID,
			Level:         h.Level,
			FunderAddress: h.Funder,
			FundedAddress: h.Funded,
			Amount:        new(big.Int).Set(h.Amount),
			TxHash:        h.TxHash,
			Timestamp:     h.Timestamp,
		})
	}
	return records
}

// Tracer follows inbound value transfers backwards from an address.
type Tracer struct {
	ledger  Ledger
	delay   time.Duration
	limit   int
	logger  *zap.Logger
	metrics *observability.Metrics
}

// Option configures Tracer.
type Option func(*Tracer)

// WithDelay sets the pause between ledger calls.
func WithDelay(d time.Duration) Option {
	return func(t *Tracer) {
		t.delay = d
	}
}

// WithPageSize sets how many of the earliest transactions are inspected per level.
func WithPageSize(n int) Option {
	return func(t *Tracer) {
		if n > 0 {
			t.limit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracer) {
		t.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Tracer) {
		t.metrics = m
	}
}

// NewTracer creates a Tracer.
func NewTracer(ledger Ledger, opts ...Option) *Tracer {
	t := &Tracer{
		ledger: ledger,
		delay:  DefaultDelay,
		limit:  etherscan.DefaultTxListSize,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Trace walks at most maxLevels hops back from start. At each level the
// first successful transfer of non-zero value into the current address is
// the hop; its sender becomes the next address. maxLevels <= 0 uses
// DefaultMaxLevels.
func (t *Tracer) Trace(ctx context.Context, start string, maxLevels int) Chain {
	if maxLevels <= 0 {
		maxLevels = DefaultMaxLevels
	}

	current := strings.ToLower(start)
	chain := Chain{Start: current, Status: StatusPartial}
	log := t.logger.With(zap.String("address", current))

	for level := 1; level <= maxLevels; level++ {
		if level > 1 {
			if err := sleep(ctx, t.delay); err != nil {
				chain.Status, chain.Err = StatusFailed, err
				break
			}
		}

		txs, err := t.ledger.TxList(ctx, current, t.limit)
		if errors.Is(err, etherscan.ErrNoData) {
			break
		}
		if err != nil {
			chain.Status = StatusFailed
			chain.Err = fmt.Errorf("txlist level %d: %w", level, err)
			log.Warn("funding lookup failed", zap.Int("level", level), zap.Error(err))
			break
		}

		hop, ok := firstFunding(txs, current)
		if !ok {
			break
		}
		hop.Level = level
		chain.Hops = append(chain.Hops, hop)

		if level == maxLevels {
			chain.Status = StatusComplete
		}
		current = hop.Funder
	}

	log.Debug("funding chain traced", zap.Int("hops", len(chain.Hops)), zap.String("status", string(chain.Status)))
	t.metrics.RecordFundingChain(string(chain.Status))
	return chain
}

// firstFunding returns the first successful, non-zero transfer into address.
func firstFunding(txs []etherscan.Tx, address string) (Hop, bool) {
	for i := range txs {
		tx := &txs[i]
		if !strings.EqualFold(tx.To, address) || tx.Failed() {
			continue
		}
		if tx.Value == nil || tx.Value.Sign() <= 0 {
			continue
		}
		return Hop{
			Funder:    strings.ToLower(tx.From),
			Funded:    address,
			Amount:    new(big.Int).Set(tx.Value),
			TxHash:    tx.Hash,
			Timestamp: tx.Timestamp,
		}, true
	}
	return Hop{}, false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
