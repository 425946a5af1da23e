package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const pairV2JSON = `[
  {"type":"function","name":"token0","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"token1","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"event","name":"Mint","anonymous":false,"inputs":[
    {"indexed":true,"name":"sender","type":"address"},
    {"indexed":false,"name":"amount0","type":"uint256"},
    {"indexed":false,"name":"amount1","type":"uint256"}]},
  {"type":"event","name":"Swap","anonymous":false,"inputs":[
    {"indexed":true,"name":"sender","type":"address"},
    {"indexed":false,"name":"amount0In","type":"uint256"},
    {"indexed":false,"name":"amount1In","type":"uint256"},
    {"indexed":false,"name":"amount0Out","type":"uint256"},
    {"indexed":false,"name":"amount1Out","type":"uint256"},
    {"indexed":true,"name":"to","type":"address"}]}
]`

const poolV3JSON = `[
  {"type":"function","name":"token0","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"token1","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"event","name":"Mint","anonymous":false,"inputs":[
    {"indexed":false,"name":"sender","type":"address"},
    {"indexed":true,"name":"owner","type":"address"},
    {"indexed":true,"name":"tickLower","type":"int24"},
    {"indexed":true,"name":"tickUpper","type":"int24"},
    {"indexed":false,"name":"amount","type":"uint128"},
    {"indexed":false,"name":"amount0","type":"uint256"},
    {"indexed":false,"name":"amount1","type":"uint256"}]},
  {"type":"event","name":"Swap","anonymous":false,"inputs":[
    {"indexed":true,"name":"sender","type":"address"},
    {"indexed":true,"name":"recipient","type":"address"},
    {"indexed":false,"name":"amount0","type":"int256"},
    {"indexed":false,"name":"amount1","type":"int256"},
    {"indexed":false,"name":"sqrtPriceX96","type":"uint160"},
    {"indexed":false,"name":"liquidity","type":"uint128"},
    {"indexed":false,"name":"tick","type":"int24"}]}
]`

const erc20JSON = `[
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const factoryJSON = `[
  {"type":"event","name":"PairCreated","anonymous":false,"inputs":[
    {"indexed":true,"name":"token0","type":"address"},
    {"indexed":true,"name":"token1","type":"address"},
    {"indexed":false,"name":"pair","type":"address"},
    {"indexed":false,"name":"","type":"uint256"}]},
  {"type":"event","name":"PoolCreated","anonymous":false,"inputs":[
    {"indexed":true,"name":"token0","type":"address"},
    {"indexed":true,"name":"token1","type":"address"},
    {"indexed":true,"name":"fee","type":"uint24"},
    {"indexed":false,"name":"tickSpacing","type":"int24"},
    {"indexed":false,"name":"pool","type":"address"}]}
]`

// Parsed contract ABIs.
var (
	PairV2ABI  = mustParse(pairV2JSON)
	PoolV3ABI  = mustParse(poolV3JSON)
	ERC20ABI   = mustParse(erc20JSON)
	FactoryABI = mustParse(factoryJSON)
)

// Event topics (topic0).
var (
	MintV2Topic      = PairV2ABI.Events["Mint"].ID
	SwapV2Topic      = PairV2ABI.Events["Swap"].ID
	MintV3Topic      = PoolV3ABI.Events["Mint"].ID
	SwapV3Topic      = PoolV3ABI.Events["Swap"].ID
	PairCreatedTopic = FactoryABI.Events["PairCreated"].ID
	PoolCreatedTopic = FactoryABI.Events["PoolCreated"].ID
)

// Method selectors. token0/token1 are identical for pairs and pools.
var (
	token0Sig      = PairV2ABI.Methods["token0"].ID
	token1Sig      = PairV2ABI.Methods["token1"].ID
	nameSig        = ERC20ABI.Methods["name"].ID
	symbolSig      = ERC20ABI.Methods["symbol"].ID
	decimalsSig    = ERC20ABI.Methods["decimals"].ID
	totalSupplySig = ERC20ABI.Methods["totalSupply"].ID
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
