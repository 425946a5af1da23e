package config

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amm-launch-lab/internal/etherscan"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ModeLive, cfg.Mode)
	assert.Equal(t, int64(1), cfg.ChainID)
	assert.Equal(t, etherscan.DefaultBaseURL, cfg.EtherscanURL)
	assert.Equal(t, 4.0, cfg.EtherscanRPS)
	assert.Equal(t, 3, cfg.FundingLevels)
	assert.Equal(t, 250*time.Millisecond, cfg.FundingDelay)
	assert.Equal(t, int64(21128976), cfg.StartBlock)
	assert.Equal(t, Latest, cfg.EndBlock)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Empty(t, cfg.Pools)
}

func TestParse_Environment(t *testing.T) {
	cfg, err := Parse(map[string]string{
		"MODE":              "backfill",
		"RPC_URL":           "http://node:8545",
		"POSTGRES_DSN":      "postgres://localhost/launches",
		"ETHERSCAN_API_KEY": "key",
		"FUNDING_LEVELS":    "5",
		"FUNDING_DELAY":     "1s",
		"START_BLOCK":       "100",
		"END_BLOCK":         "200",
		"POOL_ADDRESSES":    "0xaa,0xbb",
	})
	require.NoError(t, err)

	assert.Equal(t, ModeBackfill, cfg.Mode)
	assert.Equal(t, "http://node:8545", cfg.RPCURL)
	assert.Equal(t, 5, cfg.FundingLevels)
	assert.Equal(t, time.Second, cfg.FundingDelay)
	assert.Equal(t, []string{"0xaa", "0xbb"}, cfg.Pools)
	require.NoError(t, cfg.Validate())

	end, err := cfg.EndBlockNumber()
	require.NoError(t, err)
	assert.Equal(t, int64(200), end)
}

func TestParse_InvalidValue(t *testing.T) {
	_, err := Parse(map[string]string{"FUNDING_LEVELS": "many"})
	assert.Error(t, err)
}

func TestRegisterFlags_OverrideEnvironment(t *testing.T) {
	cfg, err := Parse(map[string]string{
		"RPC_URL":        "http://env:8545",
		"FUNDING_LEVELS": "2",
	})
	require.NoError(t, err)

	fs := flag.NewFlagSet("indexer", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--rpc-url", "http://flag:8545", "--pools", "0xAA, 0xbb,", "--use-memory"}))

	assert.Equal(t, "http://flag:8545", cfg.RPCURL)
	assert.Equal(t, 2, cfg.FundingLevels, "unset flags keep the environment value")
	assert.Equal(t, []string{"0xaa", "0xbb"}, cfg.Pools)
	assert.True(t, cfg.UseMemory)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Mode:          ModeLive,
			RPCURL:        "http://node:8545",
			WSURL:         "ws://node:8546",
			PostgresDSN:   "postgres://localhost/launches",
			EtherscanRPS:  4,
			FundingLevels: 3,
			StartBlock:    10,
			EndBlock:      Latest,
			LogLevel:      "info",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "live needs ws", mutate: func(c *Config) { c.WSURL = "" }, wantErr: "--ws-url is required for live mode"},
		{name: "backfill needs rpc", mutate: func(c *Config) { c.Mode = ModeBackfill; c.RPCURL = "" }, wantErr: "--rpc-url is required for backfill mode"},
		{name: "scan without ws", mutate: func(c *Config) { c.Mode = ModeScanContracts; c.WSURL = "" }},
		{name: "postgres required", mutate: func(c *Config) { c.PostgresDSN = "" }, wantErr: "--postgres-dsn is required for live mode"},
		{name: "memory instead of postgres", mutate: func(c *Config) { c.PostgresDSN = ""; c.UseMemory = true }},
		{name: "unknown mode", mutate: func(c *Config) { c.Mode = "replay" }, wantErr: "unknown mode: replay"},
		{name: "funding levels", mutate: func(c *Config) { c.FundingLevels = 0 }, wantErr: "--funding-levels"},
		{name: "rps", mutate: func(c *Config) { c.EtherscanRPS = 0 }, wantErr: "--etherscan-rps"},
		{name: "end block text", mutate: func(c *Config) { c.EndBlock = "soon" }, wantErr: "--end-block must be a block number"},
		{name: "end before start", mutate: func(c *Config) { c.EndBlock = "5" }, wantErr: "--end-block 5 is before --start-block 10"},
		{name: "log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEndBlockNumber_Latest(t *testing.T) {
	for _, v := range []string{"", "latest", "LATEST"} {
		c := &Config{EndBlock: v}
		n, err := c.EndBlockNumber()
		require.NoError(t, err)
		assert.Equal(t, int64(-1), n)
	}
}
