package domain

import "math/big"

// FundingRecord is one hop of the funding chain of a pool's liquidity provider.
// Corresponds to fundings table in PostgreSQL. Append-only.
type FundingRecord struct {
	ID            string   // PRIMARY KEY, uuid
	PoolID        string   // FK to pools
	Level         int      // 1-based hop index from the funded address
	FunderAddress string   // sender of the first inbound value
	FundedAddress string   // address that received it
	Amount        *big.Int // wei
	TxHash        string
	Timestamp     int64 // unix seconds
}
