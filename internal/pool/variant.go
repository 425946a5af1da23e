package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"amm-launch-lab/internal/chain"
	"amm-launch-lab/internal/domain"
)

// Variant bundles the architecture-specific event shapes of a pool family.
type Variant struct {
	Architecture domain.Architecture
	MintTopic    common.Hash
	SwapTopic    common.Hash

	decodeSwap func(types.Log) (chain.SwapDelta, error)
	decodeMint func(types.Log) (chain.MintAmounts, error)
}

var (
	// V2 is the constant-product pair family.
	V2 = Variant{
		Architecture: domain.ArchitectureV2,
		MintTopic:    chain.MintV2Topic,
		SwapTopic:    chain.SwapV2Topic,
		decodeSwap:   chain.DecodeSwapV2,
		decodeMint:   chain.DecodeMintV2,
	}

	// V3 is the concentrated-liquidity pool family.
	V3 = Variant{
		Architecture: domain.ArchitectureV3,
		MintTopic:    chain.MintV3Topic,
		SwapTopic:    chain.SwapV3Topic,
		decodeSwap:   chain.DecodeSwapV3,
		decodeMint:   chain.DecodeMintV3,
	}
)

// VariantFor returns the strategy of an architecture.
func VariantFor(arch domain.Architecture) (Variant, error) {
	switch arch {
	case domain.ArchitectureV2:
		return V2, nil
	case domain.ArchitectureV3:
		return V3, nil
	default:
		return Variant{}, fmt.Errorf("unknown architecture %q", arch)
	}
}

// Variants returns both families.
func Variants() []Variant {
	return []Variant{V2, V3}
}

// DecodeMint decodes a Mint log of this family.
func (v Variant) DecodeMint(log types.Log) (chain.MintAmounts, error) {
	return v.decodeMint(log)
}

// TokenDelta decodes a Swap log and returns the pool-side signed change of
// the target token: negative when the pool paid the token out (a buy).
func (v Variant) TokenDelta(log types.Log, tokenIsFirst bool) (*big.Int, error) {
	delta, err := v.decodeSwap(log)
	if err != nil {
		return nil, err
	}
	if tokenIsFirst {
		return delta.Amount0, nil
	}
	return delta.Amount1, nil
}

// IsSwap reports whether log is a Swap event of this family.
func (v Variant) IsSwap(log *types.Log) bool {
	return len(log.Topics) > 0 && log.Topics[0] == v.SwapTopic
}
