// Package stub provides an in-memory chain for tests of the launch pipeline.
package stub

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"amm-launch-lab/internal/chain"
	"amm-launch-lab/internal/domain"
)

// Chain implements chain.Reader and chain.BlockReader over fixed data.
// Safe for concurrent use.
type Chain struct {
	mu         sync.RWMutex
	pools      map[string][2]string
	metadata   map[string]*chain.TokenMetadata
	receipts   map[string]*types.Receipt
	senders    map[string]string
	blockTimes map[int64]int64
	blockTxs   map[int64][]chain.Tx
	logs       []types.Log
	head       uint64

	// FilterErr, when set, fails every FilterLogs call.
	FilterErr error

	filterCalls int
	senderCalls int
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{
		pools:      make(map[string][2]string),
		metadata:   make(map[string]*chain.TokenMetadata),
		receipts:   make(map[string]*types.Receipt),
		senders:    make(map[string]string),
		blockTimes: make(map[int64]int64),
		blockTxs:   make(map[int64][]chain.Tx),
	}
}

var _ chain.Reader = (*Chain)(nil)
var _ chain.BlockReader = (*Chain)(nil)

// SetPool registers the token pair of a pool.
func (c *Chain) SetPool(pool, token0, token1 string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools[strings.ToLower(pool)] = [2]string{strings.ToLower(token0), strings.ToLower(token1)}
}

// SetToken registers ERC-20 metadata.
func (c *Chain) SetToken(token string, meta *chain.TokenMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[strings.ToLower(token)] = meta
}

// SetReceipt registers a receipt by transaction hash.
func (c *Chain) SetReceipt(txHash string, r *types.Receipt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipts[strings.ToLower(txHash)] = r
}

// SetSender registers the sender of a transaction.
func (c *Chain) SetSender(txHash, from string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.senders[strings.ToLower(txHash)] = strings.ToLower(from)
}

// SetBlock registers a block timestamp and its transactions.
func (c *Chain) SetBlock(number, timestamp int64, txs ...chain.Tx) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockTimes[number] = timestamp
	c.blockTxs[number] = txs
	if uint64(number) > c.head {
		c.head = uint64(number)
	}
}

// AddLogs appends logs returned by FilterLogs.
func (c *Chain) AddLogs(logs ...types.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, logs...)
}

// FilterCalls returns how many log queries were served.
func (c *Chain) FilterCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filterCalls
}

// SenderCalls returns how many sender lookups were served.
func (c *Chain) SenderCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.senderCalls
}

// PoolTokens returns the registered pair.
func (c *Chain) PoolTokens(_ context.Context, pool string, _ domain.Architecture) (string, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pair, ok := c.pools[strings.ToLower(pool)]
	if !ok {
		return "", "", fmt.Errorf("pool %s: execution reverted", pool)
	}
	return pair[0], pair[1], nil
}

// TokenMetadata returns registered metadata, or all-nil fields when unknown.
func (c *Chain) TokenMetadata(_ context.Context, token string) (*chain.TokenMetadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if meta, ok := c.metadata[strings.ToLower(token)]; ok {
		m := *meta
		return &m, nil
	}
	return &chain.TokenMetadata{}, nil
}

// Receipt returns the registered receipt.
func (c *Chain) Receipt(_ context.Context, txHash string) (*types.Receipt, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.receipts[strings.ToLower(txHash)]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

// FilterLogs returns stored logs matching block range, addresses and topic0,
// ordered by (block, index).
func (c *Chain) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filterCalls++
	if c.FilterErr != nil {
		return nil, c.FilterErr
	}

	var out []types.Log
	for _, l := range c.logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, l.Address) {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 {
			if len(l.Topics) == 0 || !containsHash(q.Topics[0], l.Topics[0]) {
				continue
			}
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// TransactionSender returns the registered sender.
func (c *Chain) TransactionSender(_ context.Context, txHash string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.senderCalls++
	if from, ok := c.senders[strings.ToLower(txHash)]; ok {
		return from, nil
	}
	return "", ethereum.NotFound
}

// BlockTime returns the registered block timestamp.
func (c *Chain) BlockTime(_ context.Context, number int64) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ts, ok := c.blockTimes[number]; ok {
		return ts, nil
	}
	return 0, ethereum.NotFound
}

// BlockNumber returns the highest registered block.
func (c *Chain) BlockNumber(_ context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head, nil
}

// BlockTransactions returns the registered transactions of a block.
func (c *Chain) BlockTransactions(_ context.Context, number int64) ([]chain.Tx, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]chain.Tx(nil), c.blockTxs[number]...), nil
}

func containsAddress(list []common.Address, a common.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, x := range list {
		if x == h {
			return true
		}
	}
	return false
}

// Pos places a log inside a block.
type Pos struct {
	Block    int64
	TxIndex  int
	LogIndex int
	TxHash   string
}

func (p Pos) apply(l *types.Log, pool string) {
	l.Address = common.HexToAddress(pool)
	l.BlockNumber = uint64(p.Block)
	l.TxIndex = uint(p.TxIndex)
	l.Index = uint(p.LogIndex)
	l.TxHash = common.HexToHash(p.TxHash)
}

// MintV2 builds a V2 pair Mint log.
func MintV2(pool string, p Pos, amount0, amount1 *big.Int) types.Log {
	data, err := chain.PairV2ABI.Events["Mint"].Inputs.NonIndexed().Pack(amount0, amount1)
	if err != nil {
		panic(err)
	}
	l := types.Log{Topics: []common.Hash{chain.MintV2Topic, {}}, Data: data}
	p.apply(&l, pool)
	return l
}

// MintV3 builds a V3 pool Mint log.
func MintV3(pool string, p Pos, amount0, amount1 *big.Int) types.Log {
	data, err := chain.PoolV3ABI.Events["Mint"].Inputs.NonIndexed().Pack(
		common.Address{}, big.NewInt(1), amount0, amount1)
	if err != nil {
		panic(err)
	}
	l := types.Log{Topics: []common.Hash{chain.MintV3Topic, {}, {}, {}}, Data: data}
	p.apply(&l, pool)
	return l
}

// SwapV2 builds a V2 pair Swap log from its in/out legs.
func SwapV2(pool string, p Pos, amount0In, amount1In, amount0Out, amount1Out *big.Int) types.Log {
	data, err := chain.PairV2ABI.Events["Swap"].Inputs.NonIndexed().Pack(amount0In, amount1In, amount0Out, amount1Out)
	if err != nil {
		panic(err)
	}
	l := types.Log{Topics: []common.Hash{chain.SwapV2Topic, {}, {}}, Data: data}
	p.apply(&l, pool)
	return l
}

// SwapV3 builds a V3 pool Swap log from signed pool-side amounts.
func SwapV3(pool string, p Pos, amount0, amount1 *big.Int) types.Log {
	data, err := chain.PoolV3ABI.Events["Swap"].Inputs.NonIndexed().Pack(
		amount0, amount1, big.NewInt(1), big.NewInt(1), big.NewInt(0))
	if err != nil {
		panic(err)
	}
	l := types.Log{Topics: []common.Hash{chain.SwapV3Topic, {}, {}}, Data: data}
	p.apply(&l, pool)
	return l
}
