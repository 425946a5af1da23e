// Package launch turns liquidity events into pool launch records: it creates
// the pool row on the first Mint, merges further liquidity added in the
// launch block and enriches the launch with snipers, market cap and funding.
package launch

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"amm-launch-lab/internal/assets"
	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/funding"
	"amm-launch-lab/internal/marketcap"
	"amm-launch-lab/internal/observability"
	"amm-launch-lab/internal/pool"
	"amm-launch-lab/internal/sniper"
	"amm-launch-lab/internal/storage"
	"amm-launch-lab/internal/token"
)

// ErrInvariant wraps violations of the launch arithmetic, such as a launch
// that added no target token.
var ErrInvariant = errors.New("launch invariant violated")

// Outcome is the result of handling one liquidity event.
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped" // pool not tracked or unreadable
	OutcomeIgnored Outcome = "ignored" // pool exists and the event does not change it
	OutcomeCreated Outcome = "created"
	OutcomeMerged  Outcome = "merged"
)

// Classifier decides the orientation of a pool.
type Classifier interface {
	Classify(ctx context.Context, poolAddress string, arch domain.Architecture) (*pool.Classification, error)
}

// TokenResolver reads token data and maintains token rows.
type TokenResolver interface {
	Resolve(ctx context.Context, address string) token.Result
	CreationInfo(ctx context.Context, address string) *domain.ContractCreationInfo
	GetOrCreateToken(ctx context.Context, info domain.TokenInfo, creation *domain.ContractCreationInfo) (string, error)
}

// SniperDetector scans a launch block for early traders.
type SniperDetector interface {
	Detect(ctx context.Context, in sniper.Input) sniper.Report
}

// FundingTracer walks the funding chain of an address.
type FundingTracer interface {
	Trace(ctx context.Context, start string, maxLevels int) funding.Chain
}

// TxReader reads transaction data for the launch transaction.
type TxReader interface {
	Receipt(ctx context.Context, txHash string) (*types.Receipt, error)
	TransactionSender(ctx context.Context, txHash string) (string, error)
}

// Deps are the collaborators of Manager. Sink is optional.
type Deps struct {
	Gate       *Gate
	Registry   *assets.Registry
	Classifier Classifier
	Resolver   TokenResolver
	Detector   SniperDetector
	Tracer     FundingTracer
	Chain      TxReader
	Stores     storage.Stores
	Sink       storage.LaunchSink
}

// Manager runs the pool lifecycle: Unseen -> Created -> Merged.
type Manager struct {
	Deps

	fundingLevels int
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// Option configures Manager.
type Option func(*Manager)

// WithFundingLevels sets how many funding hops are traced per launch.
func WithFundingLevels(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.fundingLevels = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager creates a Manager. A nil Gate gets a private one.
func NewManager(deps Deps, opts ...Option) *Manager {
	m := &Manager{
		Deps:          deps,
		fundingLevels: funding.DefaultMaxLevels,
		logger:        zap.NewNop(),
	}
	if m.Gate == nil {
		m.Gate = NewGate()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HandleLiquidity processes one Mint event under the event's family gate.
//
// A pool seen for the first time is created and enriched. A later Mint in the
// launch block is merged into the launch liquidity. Events from later blocks,
// re-deliveries and events older than the recorded launch are ignored.
// Invariant violations are returned wrapping ErrInvariant; rows written
// before the violation are kept.
func (m *Manager) HandleLiquidity(ctx context.Context, ev domain.LiquidityEvent) (Outcome, error) {
	outcome := OutcomeSkipped
	err := m.Gate.Run(ctx, ev.Architecture, func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: pool %s tx %s: %v", ErrInvariant, ev.PoolAddress, ev.TxHash, r)
			}
		}()
		return m.handle(ctx, &ev, &outcome)
	})

	m.metrics.RecordOutcome(string(ev.Architecture), string(outcome))
	if err != nil {
		m.metrics.RecordEventError("launch")
		m.logger.Error("liquidity event failed",
			zap.String("pool", ev.PoolAddress),
			zap.Int64("block", ev.BlockNumber),
			zap.String("tx", ev.TxHash),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
	return outcome, err
}

func (m *Manager) handle(ctx context.Context, ev *domain.LiquidityEvent, outcome *Outcome) error {
	ev.PoolAddress = strings.ToLower(ev.PoolAddress)

	existing, err := m.Stores.Pools.GetByAddress(ctx, ev.PoolAddress)
	switch {
	case err == nil:
		return m.applyExisting(ctx, existing, ev, outcome)
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("get pool %s: %w", ev.PoolAddress, err)
	}

	return m.create(ctx, ev, outcome)
}

// applyExisting decides between ignore and merge for a known pool.
func (m *Manager) applyExisting(ctx context.Context, p *domain.Pool, ev *domain.LiquidityEvent, outcome *Outcome) error {
	log := m.logger.With(zap.String("pool", p.PoolAddress), zap.Int64("block", ev.BlockNumber))

	switch {
	case ev.BlockNumber > p.CreationBlock:
		*outcome = OutcomeIgnored
		return nil
	case ev.BlockNumber < p.CreationBlock:
		// Delivered out of order; the recorded launch is kept as is.
		log.Warn("liquidity event precedes recorded launch",
			zap.Int64("launch_block", p.CreationBlock),
			zap.String("tx", ev.TxHash),
		)
		*outcome = OutcomeIgnored
		return nil
	case !p.LastPosition().Before(ev.Position()):
		log.Debug("liquidity event already merged", zap.String("tx", ev.TxHash), zap.Int("log_index", ev.LogIndex))
		*outcome = OutcomeIgnored
		return nil
	}

	return m.merge(ctx, p, ev, outcome)
}

// merge folds a same-block Mint into the launch liquidity and recomputes the
// market cap from the accumulated totals.
func (m *Manager) merge(ctx context.Context, p *domain.Pool, ev *domain.LiquidityEvent, outcome *Outcome) error {
	cls := &pool.Classification{TokenIsFirstInPair: p.TokenIsFirstInPair}
	quote, tokenAmount := cls.Split(ev.Amount0, ev.Amount1)

	initial := new(big.Int).Add(orZero(p.InitialLiquidity), orZero(quote))
	tokenLiquidity := new(big.Int).Add(orZero(p.TokenLiquidity), orZero(tokenAmount))

	if err := m.Stores.Pools.UpdateLiquidity(ctx, p.ID, initial, tokenLiquidity, ev.Position()); err != nil {
		return fmt.Errorf("update pool %s: %w", p.PoolAddress, err)
	}
	*outcome = OutcomeMerged

	p.InitialLiquidity = initial
	p.TokenLiquidity = tokenLiquidity
	p.LastTxIndex, p.LastLogIndex = ev.TxIndex, ev.LogIndex

	tok, err := m.Stores.Tokens.GetByID(ctx, p.TokenID)
	if err != nil {
		return fmt.Errorf("get token of pool %s: %w", p.PoolAddress, err)
	}
	quoteAsset, ok := m.Registry.Lookup(p.PairedAssetAddress)
	if !ok {
		return fmt.Errorf("pool %s: paired asset %s not registered", p.PoolAddress, p.PairedAssetAddress)
	}
	supply := m.Resolver.Resolve(ctx, tok.ContractAddress).Info.TotalSupply

	marketCap, err := m.saveMarketCap(ctx, p, quoteAsset, tok.Decimals, supply)
	if err != nil {
		return err
	}

	m.logger.Info("launch liquidity merged",
		zap.String("pool", p.PoolAddress),
		zap.Int64("block", p.CreationBlock),
		zap.String("tx", ev.TxHash),
		zap.String("initial_liquidity", initial.String()),
	)

	return m.publish(ctx, p, tok, quoteAsset, marketCap)
}

// create handles the first Mint of a pool.
func (m *Manager) create(ctx context.Context, ev *domain.LiquidityEvent, outcome *Outcome) error {
	log := m.logger.With(
		zap.String("pool", ev.PoolAddress),
		zap.String("arch", string(ev.Architecture)),
		zap.Int64("block", ev.BlockNumber),
	)

	variant, err := pool.VariantFor(ev.Architecture)
	if err != nil {
		return err
	}

	cls, err := m.Classifier.Classify(ctx, ev.PoolAddress, ev.Architecture)
	if errors.Is(err, pool.ErrNotTracked) {
		log.Debug("pool not tracked")
		return nil
	}
	if err != nil {
		log.Warn("pool classification failed", zap.Error(err))
		m.metrics.RecordEventError("classify")
		return nil
	}

	quote, tokenAmount := cls.Split(ev.Amount0, ev.Amount1)

	resolved := m.Resolver.Resolve(ctx, cls.TargetToken)
	info := resolved.Info
	creation := m.Resolver.CreationInfo(ctx, cls.TargetToken)

	tokenID, err := m.Resolver.GetOrCreateToken(ctx, info, creation)
	if err != nil {
		return fmt.Errorf("get or create token %s: %w", cls.TargetToken, err)
	}

	deployer := strings.ToLower(ev.TxFrom)
	if deployer == "" {
		if from, err := m.Chain.TransactionSender(ctx, ev.TxHash); err == nil {
			deployer = strings.ToLower(from)
		} else {
			log.Warn("launch sender lookup failed", zap.String("tx", ev.TxHash), zap.Error(err))
		}
	}

	receipt, err := m.Chain.Receipt(ctx, ev.TxHash)
	if err != nil {
		log.Warn("launch receipt read failed", zap.String("tx", ev.TxHash), zap.Error(err))
	}

	p := &domain.Pool{
		ID:                 uuid.NewString(),
		TokenID:            tokenID,
		PairedAssetAddress: cls.PairedAsset.Address,
		PairedAssetSymbol:  cls.PairedAsset.Symbol,
		PoolAddress:        ev.PoolAddress,
		TokenIsFirstInPair: cls.TokenIsFirstInPair,
		CreationBlock:      ev.BlockNumber,
		LaunchTimestamp:    ev.BlockTime,
		CreationTxHash:     strings.ToLower(ev.TxHash),
		CreationTxIndex:    ev.TxIndex,
		Architecture:       ev.Architecture,
		InitialLiquidity:   new(big.Int).Set(orZero(quote)),
		TokenLiquidity:     new(big.Int).Set(orZero(tokenAmount)),
		IsTeamBundle:       pool.IsTeamBundle(receipt, ev.PoolAddress, variant),
		DeployerAddress:    deployer,
		LastTxIndex:        ev.TxIndex,
		LastLogIndex:       ev.LogIndex,
	}

	if err := m.Stores.Pools.Insert(ctx, p); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			*outcome = OutcomeIgnored
			return nil
		}
		return fmt.Errorf("insert pool %s: %w", ev.PoolAddress, err)
	}
	*outcome = OutcomeCreated

	report := m.Detector.Detect(ctx, sniper.Input{
		PoolID:       p.ID,
		PoolAddress:  p.PoolAddress,
		Variant:      variant,
		Block:        p.CreationBlock,
		Launch:       ev.Position(),
		TokenIsFirst: p.TokenIsFirstInPair,
		TotalSupply:  info.TotalSupply,
	})
	var errs []error
	if len(report.Snipers) > 0 {
		if _, err := m.Stores.Snipers.InsertIgnore(ctx, report.Snipers); err != nil {
			errs = append(errs, fmt.Errorf("save snipers: %w", err))
		}
	}

	marketCap, err := m.saveMarketCap(ctx, p, cls.PairedAsset, info.Decimals, info.TotalSupply)
	if err != nil {
		errs = append(errs, err)
	}

	var chain funding.Chain
	if deployer != "" {
		chain = m.Tracer.Trace(ctx, deployer, m.fundingLevels)
		if records := chain.Records(p.ID); len(records) > 0 {
			if err := m.Stores.Fundings.InsertBulk(ctx, records); err != nil {
				errs = append(errs, fmt.Errorf("save funding chain: %w", err))
			}
		}
	}

	tok, err := m.Stores.Tokens.GetByID(ctx, tokenID)
	if err != nil {
		errs = append(errs, fmt.Errorf("get token %s: %w", tokenID, err))
	} else if err := m.publish(ctx, p, tok, cls.PairedAsset, marketCap); err != nil {
		errs = append(errs, err)
	}

	log.Info("pool launch recorded",
		zap.String("token", cls.TargetToken),
		zap.String("quote", cls.PairedAsset.Symbol),
		zap.String("tx", p.CreationTxHash),
		zap.Bool("team_bundle", p.IsTeamBundle),
		zap.Int("snipers", len(report.Snipers)),
		zap.String("sniper_status", string(report.Status)),
		zap.Int("funding_hops", len(chain.Hops)),
		zap.String("token_status", string(resolved.Status)),
	)
	return errors.Join(errs...)
}

// saveMarketCap computes and upserts the snapshot from the pool's
// accumulated liquidity. It returns nil when the supply is unknown.
// A zero token side panics with marketcap.ErrZeroTokenAmount.
func (m *Manager) saveMarketCap(ctx context.Context, p *domain.Pool, quote domain.PairedAsset, tokenDecimals int, supply *big.Int) (*big.Int, error) {
	if supply == nil {
		return nil, nil
	}

	value := marketcap.Calculate(marketcap.Input{
		QuoteAmount:   p.InitialLiquidity,
		QuoteDecimals: quote.Decimals,
		TokenAmount:   p.TokenLiquidity,
		TokenDecimals: tokenDecimals,
		TotalSupply:   supply,
	})

	err := m.Stores.MarketCaps.Upsert(ctx, &domain.MarketCapSnapshot{
		ID:                uuid.NewString(),
		PoolID:            p.ID,
		MarketCap:         value,
		QuoteAssetAddress: quote.Address,
		QuoteAssetSymbol:  quote.Symbol,
	})
	if err != nil {
		return nil, fmt.Errorf("save market cap: %w", err)
	}
	return value, nil
}

// publish sends the denormalized summary of a pool to the analytics sink.
func (m *Manager) publish(ctx context.Context, p *domain.Pool, tok *domain.Token, quote domain.PairedAsset, marketCap *big.Int) error {
	if m.Sink == nil {
		return nil
	}

	snipers, err := m.Stores.Snipers.GetByPoolID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("load snipers: %w", err)
	}
	hops, err := m.Stores.Fundings.GetByPoolID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("load funding chain: %w", err)
	}

	volume := new(big.Int)
	for _, s := range snipers {
		volume.Add(volume, orZero(s.VolumeBought))
	}

	summary := &domain.LaunchSummary{
		PoolID:           p.ID,
		PoolAddress:      p.PoolAddress,
		Architecture:     p.Architecture,
		TokenAddress:     tok.ContractAddress,
		TokenTicker:      tok.Ticker,
		TokenDecimals:    tok.Decimals,
		QuoteSymbol:      quote.Symbol,
		QuoteDecimals:    quote.Decimals,
		CreationBlock:    p.CreationBlock,
		LaunchTimestamp:  p.LaunchTimestamp,
		InitialLiquidity: p.InitialLiquidity,
		MarketCap:        marketCap,
		SniperCount:      len(snipers),
		SniperVolume:     volume,
		FundingDepth:     len(hops),
		IsTeamBundle:     p.IsTeamBundle,
		DeployerAddress:  p.DeployerAddress,
		Version:          summaryVersion(p.LastPosition()),
	}
	if err := m.Sink.Publish(ctx, summary); err != nil {
		return fmt.Errorf("publish launch summary: %w", err)
	}
	return nil
}

// summaryVersion orders summaries of one pool: merges only move the last
// position forward inside the launch block.
func summaryVersion(last domain.Position) uint64 {
	return uint64(last.TxIndex)<<32 | uint64(last.LogIndex) + 1
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
