// Package etherscan is a client for the Etherscan-compatible account and
// contract lookup API.
package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.etherscan.io/api"
	DefaultTimeout     = 15 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
	DefaultRPS         = 4.0
	DefaultTxListSize  = 5
)

var (
	// ErrNoData is returned when the API answers with a non-success status
	// or an empty result. Callers treat it as "no data", not as a failure.
	ErrNoData = errors.New("etherscan: no data")

	// ErrMissingAPIKey is returned when the client has no API key.
	ErrMissingAPIKey = errors.New("etherscan: api key not configured")
)

// Tx is one entry of the account txlist.
type Tx struct {
	BlockNumber int64
	Timestamp   int64
	Hash        string
	From        string
	To          string
	Value       *big.Int
	IsError     string
}

// Failed reports whether the transaction reverted.
func (t *Tx) Failed() bool {
	return t.IsError != "0"
}

// Client implements the account/contract lookups over HTTP.
type Client struct {
	baseURL     string
	apiKey      string
	chainID     int64
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithChainID adds the chainid parameter used by multichain endpoints.
func WithChainID(id int64) ClientOption {
	return func(c *Client) {
		c.chainID = id
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithRateLimit sets the request budget in requests per second.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics enables request metrics.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a new lookup client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRPS), 1),
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse is the envelope of every API response. Result is an array on
// success and a message string otherwise.
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// TxList returns the earliest transactions of address in ascending order.
func (c *Client) TxList(ctx context.Context, address string, limit int) ([]Tx, error) {
	if limit <= 0 {
		limit = DefaultTxListSize
	}
	params := url.Values{
		"module":     {"account"},
		"action":     {"txlist"},
		"address":    {strings.ToLower(address)},
		"startblock": {"0"},
		"endblock":   {"99999999"},
		"page":       {"1"},
		"offset":     {strconv.Itoa(limit)},
		"sort":       {"asc"},
	}

	var raw []txListItem
	if err := c.get(ctx, "txlist", params, &raw); err != nil {
		return nil, err
	}

	txs := make([]Tx, 0, len(raw))
	for _, r := range raw {
		tx, err := r.toTx()
		if err != nil {
			return nil, fmt.Errorf("parse txlist entry %s: %w", r.Hash, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

type txListItem struct {
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	IsError     string `json:"isError"`
}

func (r txListItem) toTx() (Tx, error) {
	value, ok := new(big.Int).SetString(r.Value, 10)
	if !ok {
		return Tx{}, fmt.Errorf("invalid value %q", r.Value)
	}
	block, err := parseInt(r.BlockNumber)
	if err != nil {
		return Tx{}, fmt.Errorf("invalid block number: %w", err)
	}
	ts, err := parseInt(r.TimeStamp)
	if err != nil {
		return Tx{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	return Tx{
		BlockNumber: block,
		Timestamp:   ts,
		Hash:        strings.ToLower(r.Hash),
		From:        strings.ToLower(r.From),
		To:          strings.ToLower(r.To),
		Value:       value,
		IsError:     r.IsError,
	}, nil
}

// ContractCreation returns where and by whom a contract was deployed.
func (c *Client) ContractCreation(ctx context.Context, address string) (*domain.ContractCreationInfo, error) {
	params := url.Values{
		"module":            {"contract"},
		"action":            {"getcontractcreation"},
		"contractaddresses": {strings.ToLower(address)},
	}

	var raw []creationItem
	if err := c.get(ctx, "getcontractcreation", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrNoData
	}

	r := raw[0]
	info := &domain.ContractCreationInfo{
		ContractAddress: strings.ToLower(r.ContractAddress),
		ContractCreator: strings.ToLower(r.ContractCreator),
		TxHash:          strings.ToLower(r.TxHash),
		BlockNumber:     domain.UnknownCreationBlock,
	}
	// older deployments of the API omit blockNumber and timestamp
	if n, err := parseInt(r.BlockNumber); err == nil {
		info.BlockNumber = n
	}
	if ts, err := parseInt(r.Timestamp); err == nil {
		info.Timestamp = ts
	}
	return info, nil
}

type creationItem struct {
	ContractAddress string `json:"contractAddress"`
	ContractCreator string `json:"contractCreator"`
	TxHash          string `json:"txHash"`
	BlockNumber     string `json:"blockNumber"`
	Timestamp       string `json:"timestamp"`
}

// get performs an API call with rate limiting, retries and exponential backoff.
func (c *Client) get(ctx context.Context, action string, params url.Values, result interface{}) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	params.Set("apikey", c.apiKey)
	if c.chainID > 0 {
		params.Set("chainid", strconv.FormatInt(c.chainID, 10))
	}
	endpoint := c.baseURL + "?" + params.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying etherscan request",
				zap.String("action", action),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		env, err := c.do(ctx, endpoint)
		if err != nil {
			lastErr = err
			continue
		}

		if env.Status != "1" {
			// "Max rate limit reached" is reported in-band with status 0
			if isRateLimitMessage(env.Result) {
				lastErr = fmt.Errorf("rate limited: %s", env.Message)
				continue
			}
			c.metrics.RecordEtherscan(action, "no_data")
			return ErrNoData
		}

		if err := json.Unmarshal(env.Result, result); err != nil {
			c.metrics.RecordEtherscan(action, "error")
			return fmt.Errorf("unmarshal result: %w", err)
		}
		c.metrics.RecordEtherscan(action, "ok")
		return nil
	}

	c.metrics.RecordEtherscan(action, "error")
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) do(ctx context.Context, endpoint string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var env apiResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &env, nil
}

func isRateLimitMessage(result json.RawMessage) bool {
	var msg string
	if err := json.Unmarshal(result, &msg); err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(msg), "rate limit")
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
