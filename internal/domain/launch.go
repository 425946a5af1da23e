package domain

import "math/big"

// LaunchSummary is the denormalized analytics row published for each pool
// launch (and re-published after a same-block merge).
type LaunchSummary struct {
	PoolID           string
	PoolAddress      string
	Architecture     Architecture
	TokenAddress     string
	TokenTicker      string
	TokenDecimals    int
	QuoteSymbol      string
	QuoteDecimals    int
	CreationBlock    int64
	LaunchTimestamp  int64
	InitialLiquidity *big.Int
	MarketCap        *big.Int // nil when total supply is unknown
	SniperCount      int
	SniperVolume     *big.Int
	FundingDepth     int
	IsTeamBundle     bool
	DeployerAddress  string
	Version          uint64 // increases with every merge, for ReplacingMergeTree
}
