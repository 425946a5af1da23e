package domain

import "math/big"

// Pool represents a liquidity pool at its launch.
// Corresponds to pools table in PostgreSQL.
type Pool struct {
	ID                 string       // PRIMARY KEY, uuid
	TokenID            string       // FK to tokens
	PairedAssetAddress string       // quote asset address
	PairedAssetSymbol  string       // "WETH", "USDC", "USDT"
	PoolAddress        string       // UNIQUE, lower-case hex
	TokenIsFirstInPair bool         // target token is token0
	CreationBlock      int64        // launch block
	LaunchTimestamp    int64        // launch block timestamp (unix seconds)
	CreationTxHash     string       // launch transaction
	CreationTxIndex    int          // launch transaction index in block
	Architecture       Architecture // UNISWAP_V2 | UNISWAP_V3
	InitialLiquidity   *big.Int     // quote-asset units added in the launch block
	TokenLiquidity     *big.Int     // target-token units added in the launch block
	IsTeamBundle       bool         // deployer swapped in the launch transaction
	DeployerAddress    string       // sender of the launch transaction

	// Position of the last liquidity event folded into this row.
	LastTxIndex  int
	LastLogIndex int
}

// Position is the (tx index, log index) ordering key of an event inside a block.
type Position struct {
	TxIndex  int
	LogIndex int
}

// Before reports whether p is strictly earlier than other.
func (p Position) Before(other Position) bool {
	if p.TxIndex != other.TxIndex {
		return p.TxIndex < other.TxIndex
	}
	return p.LogIndex < other.LogIndex
}

// LastPosition returns the position of the last event merged into the pool.
func (p *Pool) LastPosition() Position {
	return Position{TxIndex: p.LastTxIndex, LogIndex: p.LastLogIndex}
}
