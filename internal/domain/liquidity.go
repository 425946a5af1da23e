package domain

import "math/big"

// LiquidityEvent is a decoded Mint log delivered by the event source.
type LiquidityEvent struct {
	Architecture Architecture
	PoolAddress  string   // emitting pool, lower-case hex
	Amount0      *big.Int // token0 units added
	Amount1      *big.Int // token1 units added
	BlockNumber  int64
	BlockTime    int64 // unix seconds
	TxHash       string
	TxIndex      int
	TxFrom       string // transaction sender
	LogIndex     int    // index of the Mint log in the block
}

// Position returns the ordering position of the event inside its block.
func (e *LiquidityEvent) Position() Position {
	return Position{TxIndex: e.TxIndex, LogIndex: e.LogIndex}
}
