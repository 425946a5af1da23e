// Package sniper finds addresses that traded a token in its launch block.
package sniper

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/observability"
	"amm-launch-lab/internal/pool"
)

// DefaultWorkers bounds concurrent sender lookups.
const DefaultWorkers = 8

// Status describes how complete a detection run was.
type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial" // some swaps could not be attributed
	StatusFailed   Status = "failed"  // the log query itself failed
)

// Reader is the chain access the detector needs.
type Reader interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionSender(ctx context.Context, txHash string) (string, error)
}

// Input describes the launch being scanned.
type Input struct {
	PoolID       string
	PoolAddress  string
	Variant      pool.Variant
	Block        int64
	Launch       domain.Position // Mint log position; swaps at or before it are ignored
	TokenIsFirst bool
	TotalSupply  *big.Int // nil when unknown
}

// Report is the outcome of Detect.
type Report struct {
	Snipers []*domain.Sniper // ordered by first appearance in the block
	Swaps   int              // swap logs considered after the launch position
	Status  Status
	Err     error // first error behind a partial or failed status
}

// Detector scans the launch block's Swap logs and aggregates them per trader.
type Detector struct {
	reader  Reader
	workers pond.Pool
	logger  *zap.Logger
	metrics *observability.Metrics
}

// Option configures Detector.
type Option func(*Detector)

// WithWorkers sets the sender lookup concurrency.
func WithWorkers(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.workers = pond.NewPool(n)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) {
		d.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Detector) {
		d.metrics = m
	}
}

// NewDetector creates a Detector.
func NewDetector(reader Reader, opts ...Option) *Detector {
	d := &Detector{
		reader: reader,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workers == nil {
		d.workers = pond.NewPool(DefaultWorkers)
	}
	return d
}

// Close stops the worker pool after queued lookups finish.
func (d *Detector) Close() {
	d.workers.StopAndWait()
}

type swap struct {
	txHash string
	delta  *big.Int
}

type trader struct {
	address string
	net     *big.Int
	txHash  string
}

// Detect collects the launch block's swaps that follow the Mint, attributes
// each to its transaction sender and returns one row per trader with a
// non-zero net token flow. Errors are carried in the report, never returned.
func (d *Detector) Detect(ctx context.Context, in Input) Report {
	log := d.logger.With(zap.String("pool", in.PoolAddress), zap.Int64("block", in.Block))

	logs, err := d.reader.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: big.NewInt(in.Block),
		ToBlock:   big.NewInt(in.Block),
		Addresses: []common.Address{common.HexToAddress(in.PoolAddress)},
		Topics:    [][]common.Hash{{in.Variant.SwapTopic}},
	})
	if err != nil {
		log.Warn("sniper log scan failed", zap.Error(err))
		return Report{Status: StatusFailed, Err: fmt.Errorf("filter swap logs: %w", err)}
	}

	report := Report{Status: StatusComplete}

	var swaps []swap
	for i := range logs {
		l := &logs[i]
		if l.Removed || !in.Variant.IsSwap(l) || !after(l, in.Launch) {
			continue
		}
		delta, err := in.Variant.TokenDelta(*l, in.TokenIsFirst)
		if err != nil {
			report.Status = StatusPartial
			report.Err = errors.Join(report.Err, err)
			continue
		}
		swaps = append(swaps, swap{txHash: strings.ToLower(l.TxHash.Hex()), delta: delta})
	}
	report.Swaps = len(swaps)
	if len(swaps) == 0 {
		return report
	}

	senders, err := d.resolveSenders(ctx, swaps)
	if err != nil {
		report.Status = StatusPartial
		report.Err = errors.Join(report.Err, err)
	}

	var (
		order   []string
		traders = make(map[string]*trader)
	)
	for _, s := range swaps {
		from, ok := senders[s.txHash]
		if !ok {
			continue
		}
		t, seen := traders[from]
		if !seen {
			t = &trader{address: from, net: new(big.Int), txHash: s.txHash}
			traders[from] = t
			order = append(order, from)
		}
		t.net.Add(t.net, s.delta)
	}

	for _, addr := range order {
		t := traders[addr]
		if t.net.Sign() == 0 {
			continue
		}
		volume := new(big.Int).Abs(t.net)
		report.Snipers = append(report.Snipers, &domain.Sniper{
			ID:              uuid.NewString(),
			PoolID:          in.PoolID,
			Address:         t.address,
			VolumeBought:    volume,
			PercentOfSupply: PercentOfSupply(volume, in.TotalSupply),
			TxnHash:         t.txHash,
		})
	}

	if report.Status != StatusComplete {
		log.Warn("sniper detection incomplete", zap.Int("swaps", report.Swaps), zap.Error(report.Err))
	}
	d.metrics.RecordSnipers(len(report.Snipers))
	return report
}

// resolveSenders looks up the sender of each distinct transaction once.
func (d *Detector) resolveSenders(ctx context.Context, swaps []swap) (map[string]string, error) {
	var hashes []string
	seen := make(map[string]bool)
	for _, s := range swaps {
		if !seen[s.txHash] {
			seen[s.txHash] = true
			hashes = append(hashes, s.txHash)
		}
	}

	froms := make([]string, len(hashes))
	errs := make([]error, len(hashes))

	group := d.workers.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i, hash := range hashes {
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				errs[i] = err
				return
			}
			from, err := d.reader.TransactionSender(groupCtx, hash)
			if err != nil {
				errs[i] = fmt.Errorf("sender of %s: %w", hash, err)
				return
			}
			froms[i] = strings.ToLower(from)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		d.logger.Warn("sender lookup group failed", zap.Error(err))
	}

	out := make(map[string]string, len(hashes))
	for i, hash := range hashes {
		if errs[i] == nil && froms[i] != "" {
			out[hash] = froms[i]
		}
	}
	return out, errors.Join(errs...)
}

// after reports whether l comes after the launch Mint in block order.
func after(l *types.Log, launch domain.Position) bool {
	return launch.Before(domain.Position{TxIndex: int(l.TxIndex), LogIndex: int(l.Index)})
}

// PercentOfSupply returns volume as a percentage of supply with two decimals
// of integer precision. Unknown or zero supply yields 0.
func PercentOfSupply(volume, supply *big.Int) float64 {
	if volume == nil || supply == nil || supply.Sign() == 0 {
		return 0
	}
	bp := new(big.Int).Mul(volume, big.NewInt(10_000))
	bp.Quo(bp, supply)
	f, _ := new(big.Float).SetInt(bp).Float64()
	return f / 100
}
