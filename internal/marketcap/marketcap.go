// Package marketcap estimates the market capitalization of a launched token
// from the liquidity provided to its pool, using integer arithmetic only.
package marketcap

import (
	"errors"
	"math/big"
)

// ErrZeroTokenAmount is the panic value raised when the token side of the
// liquidity is zero. Callers must check the amount before calling Calculate.
var ErrZeroTokenAmount = errors.New("marketcap: token amount must be non-zero")

// Input holds the liquidity contribution and the token supply.
type Input struct {
	QuoteAmount   *big.Int // quote asset locked, in quote base units
	QuoteDecimals int
	TokenAmount   *big.Int // target token locked, in token base units
	TokenDecimals int
	TotalSupply   *big.Int // target token total supply, in token base units
}

// Calculate returns the market cap in quote-asset base units.
//
// The price of one token is computed at max(decimals) precision, scaled down
// by the decimal difference and multiplied back out with the total supply.
// Both divisions truncate. Calculate panics with ErrZeroTokenAmount when
// TokenAmount is zero or nil.
func Calculate(in Input) *big.Int {
	if in.TokenAmount == nil || in.TokenAmount.Sign() == 0 {
		panic(ErrZeroTokenAmount)
	}

	maxDecimals, minDecimals := in.QuoteDecimals, in.TokenDecimals
	if minDecimals > maxDecimals {
		maxDecimals, minDecimals = minDecimals, maxDecimals
	}

	precision := pow10(maxDecimals)
	decimalAdjustment := pow10(maxDecimals - minDecimals)

	price := new(big.Int).Mul(orZero(in.QuoteAmount), precision)
	price.Quo(price, in.TokenAmount)

	adjustedPrice := new(big.Int).Quo(price, decimalAdjustment)

	mc := new(big.Int).Mul(adjustedPrice, orZero(in.TotalSupply))
	mc.Mul(mc, decimalAdjustment)
	return mc.Quo(mc, precision)
}

// Safe is Calculate without the panic: it returns false instead when the
// token amount is zero or the supply is unknown.
func Safe(in Input) (*big.Int, bool) {
	if in.TokenAmount == nil || in.TokenAmount.Sign() == 0 || in.TotalSupply == nil {
		return nil, false
	}
	return Calculate(in), true
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
