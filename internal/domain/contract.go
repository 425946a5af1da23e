package domain

// NewContractRecord is a contract deployment found by the historical scan.
// Corresponds to new_contracts_deployed table in PostgreSQL.
type NewContractRecord struct {
	ID              string
	ContractAddress string
	CreationBlock   int64
	CreationTxHash  string
	DeployerAddress string
}
