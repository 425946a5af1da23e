// Package assets holds the static table of paired (quote) assets that new
// tokens are launched against.
package assets

import (
	"strings"

	"amm-launch-lab/internal/domain"
)

// Mainnet paired assets.
var (
	WETH = domain.PairedAsset{
		Address:     "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
		Decimals:    18,
		Symbol:      "WETH",
		DisplayName: "Wrapped Ether",
	}
	USDT = domain.PairedAsset{
		Address:     "0xdac17f958d2ee523a2206206994597c13d831ec7",
		Decimals:    6,
		Symbol:      "USDT",
		DisplayName: "Tether USD",
	}
	USDC = domain.PairedAsset{
		Address:     "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		Decimals:    6,
		Symbol:      "USDC",
		DisplayName: "USDC",
	}
)

// Registry is an immutable address-indexed set of paired assets.
// Lookups are case-insensitive.
type Registry struct {
	ordered []domain.PairedAsset
	byAddr  map[string]domain.PairedAsset
}

// NewRegistry builds a registry. Later duplicates of an address are ignored.
func NewRegistry(list ...domain.PairedAsset) *Registry {
	r := &Registry{
		byAddr: make(map[string]domain.PairedAsset, len(list)),
	}
	for _, a := range list {
		key := strings.ToLower(a.Address)
		if _, exists := r.byAddr[key]; exists {
			continue
		}
		a.Address = key
		r.byAddr[key] = a
		r.ordered = append(r.ordered, a)
	}
	return r
}

// Mainnet returns the registry of Ethereum mainnet quote assets.
func Mainnet() *Registry {
	return NewRegistry(WETH, USDT, USDC)
}

// Lookup returns the paired asset registered under address.
func (r *Registry) Lookup(address string) (domain.PairedAsset, bool) {
	a, ok := r.byAddr[strings.ToLower(address)]
	return a, ok
}

// Contains reports whether address is a registered paired asset.
func (r *Registry) Contains(address string) bool {
	_, ok := r.Lookup(address)
	return ok
}

// All returns the registered assets in registration order.
func (r *Registry) All() []domain.PairedAsset {
	out := make([]domain.PairedAsset, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of registered assets.
func (r *Registry) Len() int {
	return len(r.ordered)
}
