// Package memory provides in-memory implementations of the storage
// interfaces, used by tests and by the indexer's --use-memory mode.
package memory

import "amm-launch-lab/internal/storage"

// NewStores returns a fresh set of in-memory stores.
func NewStores() storage.Stores {
	return storage.Stores{
		Tokens:       NewTokenStore(),
		Pools:        NewPoolStore(),
		Snipers:      NewSniperStore(),
		MarketCaps:   NewMarketCapStore(),
		Fundings:     NewFundingStore(),
		NewContracts: NewNewContractStore(),
		Progress:     NewProgressStore(),
	}
}
