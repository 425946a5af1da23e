package domain

// PairedAsset is an established token new tokens are launched against
// (wrapped native currency or a stablecoin).
type PairedAsset struct {
	Address     string // lower-case hex
	Decimals    int
	Symbol      string // "WETH", "USDC", "USDT"
	DisplayName string
}
