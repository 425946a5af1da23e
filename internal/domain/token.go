package domain

import "math/big"

// UnknownCreationBlock marks a token whose deployment block could not be resolved.
const UnknownCreationBlock int64 = -1

// Token represents a launched (or paired) token contract.
// Corresponds to tokens table in PostgreSQL.
type Token struct {
	ID              string  // PRIMARY KEY, uuid
	Name            string  // token name
	Ticker          string  // token symbol
	Decimals        int     // token decimals
	ContractAddress string  // UNIQUE, lower-case hex
	CreationBlock   int64   // deployment block, -1 if unknown
	CreationTxHash  *string // deployment transaction (nullable)
	DeployerAddress *string // contract creator (nullable)
}

// TokenInfo is the ERC-20 metadata read from chain for a token.
type TokenInfo struct {
	Address     string
	Name        string
	Ticker      string
	Decimals    int
	TotalSupply *big.Int // nil when the read failed
}

// ContractCreationInfo describes where and by whom a contract was deployed.
type ContractCreationInfo struct {
	ContractAddress string
	ContractCreator string
	TxHash          string
	BlockNumber     int64
	Timestamp       int64 // unix seconds, 0 if not reported
}
