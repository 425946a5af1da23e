// Package pool classifies liquidity pools into a paired asset and a target
// token, and detects team-bundled launches.
package pool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"

	"amm-launch-lab/internal/assets"
	"amm-launch-lab/internal/domain"
)

// ErrNotTracked is returned for pools that do not pair exactly one known
// paired asset with another token.
var ErrNotTracked = errors.New("pool not tracked")

// Classification is the orientation of a tracked pool.
type Classification struct {
	PairedAsset        domain.PairedAsset
	TargetToken        string
	Token0             string
	Token1             string
	TokenIsFirstInPair bool
}

// TokenReader is the chain read the classifier needs.
type TokenReader interface {
	PoolTokens(ctx context.Context, pool string, arch domain.Architecture) (string, string, error)
}

// Classifier decides which side of a pool is the paired asset.
type Classifier struct {
	registry *assets.Registry
	reader   TokenReader
}

// NewClassifier creates a classifier over registry.
func NewClassifier(registry *assets.Registry, reader TokenReader) *Classifier {
	return &Classifier{registry: registry, reader: reader}
}

// Classify reads the pool's tokens and classifies them.
func (c *Classifier) Classify(ctx context.Context, poolAddress string, arch domain.Architecture) (*Classification, error) {
	token0, token1, err := c.reader.PoolTokens(ctx, poolAddress, arch)
	if err != nil {
		return nil, fmt.Errorf("read pool tokens: %w", err)
	}
	return ClassifyPair(c.registry, token0, token1)
}

// ClassifyPair classifies a token pair against registry. Exactly one side
// must be a known paired asset.
func ClassifyPair(registry *assets.Registry, token0, token1 string) (*Classification, error) {
	token0 = strings.ToLower(token0)
	token1 = strings.ToLower(token1)

	asset0, ok0 := registry.Lookup(token0)
	asset1, ok1 := registry.Lookup(token1)

	switch {
	case ok0 && !ok1:
		return &Classification{
			PairedAsset:        asset0,
			TargetToken:        token1,
			Token0:             token0,
			Token1:             token1,
			TokenIsFirstInPair: false,
		}, nil
	case ok1 && !ok0:
		return &Classification{
			PairedAsset:        asset1,
			TargetToken:        token0,
			Token0:             token0,
			Token1:             token1,
			TokenIsFirstInPair: true,
		}, nil
	default:
		return nil, ErrNotTracked
	}
}

// Split returns the (quote, token) amounts of a token0/token1 pair.
func (c *Classification) Split(amount0, amount1 *big.Int) (quote, token *big.Int) {
	if c.TokenIsFirstInPair {
		return amount1, amount0
	}
	return amount0, amount1
}

// IsTeamBundle reports whether receipt holds a Swap log emitted by the pool
// itself, which means liquidity was added and traded in one transaction.
func IsTeamBundle(receipt *types.Receipt, poolAddress string, v Variant) bool {
	if receipt == nil {
		return false
	}
	for _, log := range receipt.Logs {
		if !strings.EqualFold(log.Address.Hex(), poolAddress) {
			continue
		}
		if v.IsSwap(log) {
			return true
		}
	}
	return false
}
