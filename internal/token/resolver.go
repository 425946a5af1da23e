// Package token resolves ERC-20 metadata and deployment provenance and
// maintains the tokens table.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"amm-launch-lab/internal/cache"
	"amm-launch-lab/internal/chain"
	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/storage"
)

// Defaults substituted for metadata fields that could not be read.
const (
	DefaultName     = "Unknown"
	DefaultTicker   = "UNK"
	DefaultDecimals = 18
)

// Status describes how much of a best-effort read succeeded.
type Status string

const (
	StatusComplete  Status = "complete"  // every field read from chain
	StatusDefaulted Status = "defaulted" // at least one field substituted
	StatusFailed    Status = "failed"    // the round trip failed, all defaults
)

// Result is the outcome of Resolve.
type Result struct {
	Info   domain.TokenInfo
	Status Status
}

// MetadataReader reads ERC-20 fields from chain.
type MetadataReader interface {
	TokenMetadata(ctx context.Context, token string) (*chain.TokenMetadata, error)
}

// CreationLookup looks up where a contract was deployed.
type CreationLookup interface {
	ContractCreation(ctx context.Context, address string) (*domain.ContractCreationInfo, error)
}

// Resolver reads token data and gets or creates Token rows.
type Resolver struct {
	reader  MetadataReader
	lookup  CreationLookup
	cache   cache.CreationCache
	tokens  storage.TokenStore
	logger  *zap.Logger
	results *xsync.Map[string, Result]
}

// Option configures Resolver.
type Option func(*Resolver)

// WithCache puts a creation-info cache in front of the lookup.
func WithCache(c cache.CreationCache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a Resolver. lookup may be nil, in which case creation
// info is never available.
func NewResolver(reader MetadataReader, lookup CreationLookup, tokens storage.TokenStore, opts ...Option) *Resolver {
	r := &Resolver{
		reader:  reader,
		lookup:  lookup,
		tokens:  tokens,
		logger:  zap.NewNop(),
		results: xsync.NewMap[string, Result](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve reads name, symbol, decimals and total supply of a token.
// Unreadable fields fall back to the defaults and TotalSupply stays nil.
// Successful reads are memoized per address for the life of the process.
func (r *Resolver) Resolve(ctx context.Context, address string) Result {
	address = strings.ToLower(address)
	if res, ok := r.results.Load(address); ok {
		return res
	}

	res := Result{
		Info: domain.TokenInfo{
			Address:  address,
			Name:     DefaultName,
			Ticker:   DefaultTicker,
			Decimals: DefaultDecimals,
		},
		Status: StatusComplete,
	}

	meta, err := r.reader.TokenMetadata(ctx, address)
	if err != nil {
		r.logger.Warn("token metadata read failed", zap.String("token", address), zap.Error(err))
		// Not memoized so the next launch of this token retries the read.
		res.Status = StatusFailed
		return res
	}

	if meta.Name != nil {
		res.Info.Name = *meta.Name
	} else {
		res.Status = StatusDefaulted
	}
	if meta.Symbol != nil {
		res.Info.Ticker = *meta.Symbol
	} else {
		res.Status = StatusDefaulted
	}
	if meta.Decimals != nil {
		res.Info.Decimals = *meta.Decimals
	} else {
		res.Status = StatusDefaulted
	}
	if meta.TotalSupply != nil {
		res.Info.TotalSupply = meta.TotalSupply
	} else {
		res.Status = StatusDefaulted
	}

	if res.Status == StatusDefaulted {
		r.logger.Debug("token metadata defaulted", zap.String("token", address))
	}

	res, _ = r.results.LoadOrStore(address, res)
	return res
}

// CreationInfo returns the deployment provenance of a contract, or nil when
// it is unknown. Lookup failures are logged and never returned.
func (r *Resolver) CreationInfo(ctx context.Context, address string) *domain.ContractCreationInfo {
	address = strings.ToLower(address)

	if r.cache != nil {
		info, ok, err := r.cache.Get(ctx, address)
		if err != nil {
			r.logger.Warn("creation cache read failed", zap.String("token", address), zap.Error(err))
		} else if ok {
			return info
		}
	}

	if r.lookup == nil {
		return nil
	}

	info, err := r.lookup.ContractCreation(ctx, address)
	if err != nil {
		r.logger.Warn("contract creation lookup failed", zap.String("token", address), zap.Error(err))
		return nil
	}
	if info == nil {
		return nil
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, address, info); err != nil {
			r.logger.Warn("creation cache write failed", zap.String("token", address), zap.Error(err))
		}
	}
	return info
}

// GetOrCreateToken returns the ID of the token row for info.ContractAddress,
// inserting it when missing. An existing row is never overwritten.
func (r *Resolver) GetOrCreateToken(ctx context.Context, info domain.TokenInfo, creation *domain.ContractCreationInfo) (string, error) {
	address := strings.ToLower(info.Address)

	existing, err := r.tokens.GetByAddress(ctx, address)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("get token %s: %w", address, err)
	}

	t := &domain.Token{
		ID:              uuid.NewString(),
		Name:            info.Name,
		Ticker:          info.Ticker,
		Decimals:        info.Decimals,
		ContractAddress: address,
		CreationBlock:   domain.UnknownCreationBlock,
	}
	if creation != nil {
		t.CreationBlock = creation.BlockNumber
		if creation.TxHash != "" {
			hash := creation.TxHash
			t.CreationTxHash = &hash
		}
		if creation.ContractCreator != "" {
			deployer := strings.ToLower(creation.ContractCreator)
			t.DeployerAddress = &deployer
		}
	}

	err = r.tokens.Insert(ctx, t)
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Lost a race with another writer; its row wins.
		winner, getErr := r.tokens.GetByAddress(ctx, address)
		if getErr != nil {
			return "", fmt.Errorf("re-read token %s: %w", address, getErr)
		}
		return winner.ID, nil
	}
	if err != nil {
		return "", fmt.Errorf("insert token %s: %w", address, err)
	}

	r.logger.Info("token created",
		zap.String("token", address),
		zap.String("ticker", t.Ticker),
		zap.Int64("block", t.CreationBlock),
	)
	return t.ID, nil
}
