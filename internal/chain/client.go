// Package chain reads pool, token, block, receipt and log data from an EVM
// node over JSON-RPC.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/observability"
	"amm-launch-lab/internal/retry"
)

// DefaultRPCTimeout bounds a single RPC round trip (a batch counts as one).
const DefaultRPCTimeout = 10 * time.Second

// TokenMetadata holds the ERC-20 fields of a token. A nil field means the
// corresponding call failed or returned undecodable data.
type TokenMetadata struct {
	Name        *string
	Symbol      *string
	Decimals    *int
	TotalSupply *big.Int
}

// Tx is the subset of a block transaction used by the contract scan.
type Tx struct {
	Hash        string
	From        string
	To          *string // nil for contract creation
	Index       int
	BlockNumber int64
}

// Client implements the chain reads on top of go-ethereum's ethclient.
type Client struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	signer  types.Signer
	timeout time.Duration
	retry   retry.Config
	logger  *zap.Logger
	metrics *observability.Metrics
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetry sets the retry policy for transport failures.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics enables RPC latency metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Dial connects to an HTTP or websocket endpoint.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	c, err := NewClient(ctx, rc, opts...)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return c, nil
}

// NewClient wraps an established RPC connection. The chain ID is fetched
// once to build the transaction signer used for sender recovery.
func NewClient(ctx context.Context, rc *rpc.Client, opts ...Option) (*Client, error) {
	c := &Client{
		rpc:     rc,
		eth:     ethclient.NewClient(rc),
		timeout: DefaultRPCTimeout,
		retry:   retry.DefaultConfig(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	chainID, err := c.eth.ChainID(callCtx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	c.signer = types.LatestSignerForChainID(chainID)

	return c, nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// PoolTokens returns token0 and token1 of a pair (V2) or pool (V3) in one batch.
func (c *Client) PoolTokens(ctx context.Context, pool string, arch domain.Architecture) (string, string, error) {
	contract := PairV2ABI
	if arch == domain.ArchitectureV3 {
		contract = PoolV3ABI
	}

	results, err := c.batchCall(ctx, "pool_tokens", common.HexToAddress(pool),
		contract.Methods["token0"].ID,
		contract.Methods["token1"].ID,
	)
	if err != nil {
		return "", "", err
	}

	tokens := make([]string, 2)
	for i, r := range results {
		if r.err != nil {
			return "", "", fmt.Errorf("eth_call token%d: %w", i, r.err)
		}
		if len(r.data) != 32 {
			return "", "", fmt.Errorf("invalid response length for token%d: got %d bytes", i, len(r.data))
		}
		tokens[i] = Hex(common.BytesToAddress(r.data))
	}
	return tokens[0], tokens[1], nil
}

// TokenMetadata reads name, symbol, decimals and totalSupply in one batch.
// Individual call failures leave the field nil; only a failed round trip
// returns an error.
func (c *Client) TokenMetadata(ctx context.Context, token string) (*TokenMetadata, error) {
	results, err := c.batchCall(ctx, "token_metadata", common.HexToAddress(token),
		nameSig, symbolSig, decimalsSig, totalSupplySig)
	if err != nil {
		return nil, err
	}

	meta := &TokenMetadata{}
	if r := results[0]; r.err == nil {
		meta.Name = decodeString("name", r.data)
	}
	if r := results[1]; r.err == nil {
		meta.Symbol = decodeString("symbol", r.data)
	}
	if r := results[2]; r.err == nil && len(r.data) == 32 {
		d := new(big.Int).SetBytes(r.data)
		if d.IsInt64() && d.Int64() <= 255 {
			v := int(d.Int64())
			meta.Decimals = &v
		}
	}
	if r := results[3]; r.err == nil && len(r.data) == 32 {
		meta.TotalSupply = new(big.Int).SetBytes(r.data)
	}
	return meta, nil
}

// Receipt returns the receipt of a mined transaction.
func (c *Client) Receipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := c.do(ctx, "receipt", func(ctx context.Context) error {
		r, err := c.eth.TransactionReceipt(ctx, common.HexToHash(txHash))
		if errors.Is(err, ethereum.NotFound) {
			return retry.Permanent(err)
		}
		receipt = r
		return err
	})
	return receipt, err
}

// FilterLogs runs eth_getLogs.
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := c.do(ctx, "get_logs", func(ctx context.Context) error {
		l, err := c.eth.FilterLogs(ctx, q)
		logs = l
		return err
	})
	return logs, err
}

// SubscribeFilterLogs streams logs matching q. Requires a websocket endpoint.
func (c *Client) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return c.eth.SubscribeFilterLogs(ctx, q, ch)
}

// TransactionSender recovers the sender of a transaction from its signature.
func (c *Client) TransactionSender(ctx context.Context, txHash string) (string, error) {
	var from string
	err := c.do(ctx, "tx_sender", func(ctx context.Context) error {
		tx, _, err := c.eth.TransactionByHash(ctx, common.HexToHash(txHash))
		if errors.Is(err, ethereum.NotFound) {
			return retry.Permanent(err)
		}
		if err != nil {
			return err
		}
		sender, err := types.Sender(c.signer, tx)
		if err != nil {
			return retry.Permanent(fmt.Errorf("recover sender: %w", err))
		}
		from = Hex(sender)
		return nil
	})
	return from, err
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	err := c.do(ctx, "block_number", func(ctx context.Context) error {
		v, err := c.eth.BlockNumber(ctx)
		n = v
		return err
	})
	return n, err
}

// BlockTime returns the timestamp (unix seconds) of a block.
func (c *Client) BlockTime(ctx context.Context, number int64) (int64, error) {
	var ts int64
	err := c.do(ctx, "header", func(ctx context.Context) error {
		h, err := c.eth.HeaderByNumber(ctx, big.NewInt(number))
		if err != nil {
			return err
		}
		ts = int64(h.Time)
		return nil
	})
	return ts, err
}

// BlockTransactions returns the transactions of a block with recovered senders.
func (c *Client) BlockTransactions(ctx context.Context, number int64) ([]Tx, error) {
	var block *types.Block
	err := c.do(ctx, "block", func(ctx context.Context) error {
		b, err := c.eth.BlockByNumber(ctx, big.NewInt(number))
		if errors.Is(err, ethereum.NotFound) {
			return retry.Permanent(err)
		}
		block = b
		return err
	})
	if err != nil {
		return nil, err
	}

	txs := make([]Tx, 0, len(block.Transactions()))
	for i, tx := range block.Transactions() {
		sender, err := types.Sender(c.signer, tx)
		if err != nil {
			c.logger.Debug("skip transaction with unrecoverable sender",
				zap.String("tx", tx.Hash().Hex()), zap.Error(err))
			continue
		}
		out := Tx{
			Hash:        strings.ToLower(tx.Hash().Hex()),
			From:        Hex(sender),
			Index:       i,
			BlockNumber: number,
		}
		if to := tx.To(); to != nil {
			s := Hex(*to)
			out.To = &s
		}
		txs = append(txs, out)
	}
	return txs, nil
}

type callArgs struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

type callResult struct {
	data []byte
	err  error
}

// batchCall sends one eth_call per selector to the same contract in a single
// JSON-RPC batch.
func (c *Client) batchCall(ctx context.Context, op string, to common.Address, sigs ...[]byte) ([]callResult, error) {
	out := make([]hexutil.Bytes, len(sigs))
	elems := make([]rpc.BatchElem, len(sigs))

	err := c.do(ctx, op, func(ctx context.Context) error {
		for i, sig := range sigs {
			out[i] = nil
			elems[i] = rpc.BatchElem{
				Method: "eth_call",
				Args:   []interface{}{callArgs{To: to, Data: sig}, "latest"},
				Result: &out[i],
			}
		}
		return c.rpc.BatchCallContext(ctx, elems)
	})
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", op, err)
	}

	results := make([]callResult, len(sigs))
	for i := range elems {
		results[i] = callResult{data: out[i], err: elems[i].Error}
	}
	return results, nil
}

// do runs fn with the per-call timeout under the retry policy.
func (c *Client) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := retry.WithBackoff(ctx, c.retry, c.logger, op, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return fn(callCtx)
	})
	if c.metrics != nil {
		c.metrics.ObserveRPC(op, time.Since(start), err)
	}
	return err
}

// decodeString decodes an ABI string return value, falling back to the
// bytes32 encoding used by some older tokens.
func decodeString(method string, data []byte) *string {
	if values, err := ERC20ABI.Unpack(method, data); err == nil && len(values) == 1 {
		if s, ok := values[0].(string); ok && s != "" {
			return &s
		}
	}
	if len(data) == 32 {
		s := strings.TrimRight(string(data), "\x00")
		if s != "" {
			return &s
		}
	}
	return nil
}

// Hex returns the lower-case hex form of an address.
func Hex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
