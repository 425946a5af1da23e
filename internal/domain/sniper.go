package domain

import "math/big"

// Sniper is an address that traded the target token in the pool's launch block.
// Corresponds to snipers table in PostgreSQL. (pool_id, address) is unique.
type Sniper struct {
	ID              string   // PRIMARY KEY, uuid
	PoolID          string   // FK to pools
	Address         string   // trader (transaction sender), lower-case hex
	VolumeBought    *big.Int // absolute net target-token units
	PercentOfSupply float64  // 0-100
	TxnHash         string   // first swap transaction of the trader in the block
}
