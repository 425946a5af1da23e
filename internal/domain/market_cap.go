package domain

import "math/big"

// MarketCapSnapshot is the estimated market cap of a launched token at creation.
// Corresponds to market_caps table in PostgreSQL. pool_id is unique.
type MarketCapSnapshot struct {
	ID                string   // PRIMARY KEY, uuid
	PoolID            string   // FK to pools
	MarketCap         *big.Int // in quote-asset base units
	QuoteAssetAddress string
	QuoteAssetSymbol  string
}
