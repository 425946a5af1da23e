// Package config loads indexer settings from the environment and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"amm-launch-lab/internal/etherscan"
	"amm-launch-lab/internal/logging"
)

// Run modes of the indexer.
const (
	ModeLive          = "live"
	ModeBackfill      = "backfill"
	ModeScanContracts = "scan-contracts"
)

// Latest is the END_BLOCK value meaning the current head.
const Latest = "latest"

// Config holds all indexer settings. Environment variables are read first;
// command flags registered with RegisterFlags override them.
type Config struct {
	Mode string `env:"MODE" envDefault:"live"`

	// Chain access
	RPCURL  string `env:"RPC_URL"`
	WSURL   string `env:"WS_URL"`
	ChainID int64  `env:"CHAIN_ID" envDefault:"1"`

	// Storage
	UseMemory     bool          `env:"USE_MEMORY"`
	PostgresDSN   string        `env:"POSTGRES_DSN"`
	ClickhouseDSN string        `env:"CLICKHOUSE_DSN"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	// Ledger lookups
	EtherscanAPIKey string  `env:"ETHERSCAN_API_KEY"`
	EtherscanURL    string  `env:"ETHERSCAN_URL"`
	EtherscanRPS    float64 `env:"ETHERSCAN_RPS" envDefault:"4"`

	// Funding provenance
	FundingLevels int           `env:"FUNDING_LEVELS" envDefault:"3"`
	FundingDelay  time.Duration `env:"FUNDING_DELAY" envDefault:"250ms"`

	// Event source
	StartBlock     int64    `env:"START_BLOCK" envDefault:"21128976"`
	EndBlock       string   `env:"END_BLOCK" envDefault:"latest"`
	BackfillWindow int64    `env:"BACKFILL_WINDOW" envDefault:"1000"`
	Confirmations  int64    `env:"CONFIRMATIONS" envDefault:"2"`
	Pools          []string `env:"POOL_ADDRESSES" envSeparator:","`

	// Process
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogEncoding string `env:"LOG_ENCODING" envDefault:"json"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	return Parse(nil)
}

// Parse reads settings from environ. A nil map reads the process environment.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.EtherscanURL == "" {
		cfg.EtherscanURL = etherscan.DefaultBaseURL
	}
	return cfg, nil
}

// RegisterFlags binds command flags to cfg. The current values become the
// flag defaults, so flags only override what they set.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Mode, "mode", c.Mode, "Run mode: live, backfill, or scan-contracts")
	fs.StringVar(&c.RPCURL, "rpc-url", c.RPCURL, "Ethereum JSON-RPC HTTP endpoint")
	fs.StringVar(&c.WSURL, "ws-url", c.WSURL, "Ethereum JSON-RPC WebSocket endpoint")
	fs.Int64Var(&c.ChainID, "chain-id", c.ChainID, "Chain ID")
	fs.BoolVar(&c.UseMemory, "use-memory", c.UseMemory, "Use in-memory storage instead of PostgreSQL")
	fs.StringVar(&c.PostgresDSN, "postgres-dsn", c.PostgresDSN, "PostgreSQL connection string")
	fs.StringVar(&c.ClickhouseDSN, "clickhouse-dsn", c.ClickhouseDSN, "ClickHouse connection string (empty to disable the launch sink)")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address for the creation cache (empty for in-process cache)")
	fs.StringVar(&c.EtherscanAPIKey, "etherscan-api-key", c.EtherscanAPIKey, "Etherscan API key")
	fs.StringVar(&c.EtherscanURL, "etherscan-url", c.EtherscanURL, "Etherscan-compatible API endpoint")
	fs.Float64Var(&c.EtherscanRPS, "etherscan-rps", c.EtherscanRPS, "Etherscan requests per second")
	fs.IntVar(&c.FundingLevels, "funding-levels", c.FundingLevels, "Maximum funding hops to trace")
	fs.DurationVar(&c.FundingDelay, "funding-delay", c.FundingDelay, "Delay between funding hops")
	fs.Int64Var(&c.StartBlock, "start-block", c.StartBlock, "First block for backfill and contract scan")
	fs.StringVar(&c.EndBlock, "end-block", c.EndBlock, "Last block for backfill and contract scan, or \"latest\"")
	fs.Int64Var(&c.BackfillWindow, "backfill-window", c.BackfillWindow, "Blocks per log query")
	fs.Int64Var(&c.Confirmations, "confirmations", c.Confirmations, "Blocks to wait before releasing live events")
	fs.Func("pools", "Comma-separated pool addresses to index (default all)", func(s string) error {
		c.Pools = splitList(s)
		return nil
	})
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogEncoding, "log-encoding", c.LogEncoding, "Log encoding: json or console")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Prometheus metrics HTTP address (empty to disable)")
}

// Validate checks the settings required by the configured mode.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeLive:
		if c.RPCURL == "" {
			errs = append(errs, errors.New("--rpc-url is required for live mode"))
		}
		if c.WSURL == "" {
			errs = append(errs, errors.New("--ws-url is required for live mode"))
		}
	case ModeBackfill, ModeScanContracts:
		if c.RPCURL == "" {
			errs = append(errs, fmt.Errorf("--rpc-url is required for %s mode", c.Mode))
		}
	default:
		return fmt.Errorf("unknown mode: %s", c.Mode)
	}

	if !c.UseMemory && c.PostgresDSN == "" {
		errs = append(errs, fmt.Errorf("--postgres-dsn is required for %s mode (use --use-memory for in-memory storage)", c.Mode))
	}
	if c.FundingLevels < 1 {
		errs = append(errs, fmt.Errorf("--funding-levels must be at least 1, got %d", c.FundingLevels))
	}
	if c.EtherscanRPS <= 0 {
		errs = append(errs, fmt.Errorf("--etherscan-rps must be positive, got %v", c.EtherscanRPS))
	}
	if c.StartBlock < 0 {
		errs = append(errs, fmt.Errorf("--start-block must not be negative, got %d", c.StartBlock))
	}
	if end, err := c.EndBlockNumber(); err != nil {
		errs = append(errs, err)
	} else if end >= 0 && end < c.StartBlock {
		errs = append(errs, fmt.Errorf("--end-block %d is before --start-block %d", end, c.StartBlock))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// EndBlockNumber returns the configured end block, or -1 for "latest".
func (c *Config) EndBlockNumber() (int64, error) {
	if c.EndBlock == "" || strings.EqualFold(c.EndBlock, Latest) {
		return -1, nil
	}
	n, err := strconv.ParseInt(c.EndBlock, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("--end-block must be a block number or %q: %w", Latest, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
