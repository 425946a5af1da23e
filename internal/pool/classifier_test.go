package pool

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amm-launch-lab/internal/assets"
	"amm-launch-lab/internal/chain"
	"amm-launch-lab/internal/domain"
)

const newToken = "0x1111111111111111111111111111111111111111"

type stubTokens struct {
	token0, token1 string
	err            error
	gotArch        domain.Architecture
}

func (s *stubTokens) PoolTokens(_ context.Context, _ string, arch domain.Architecture) (string, string, error) {
	s.gotArch = arch
	return s.token0, s.token1, s.err
}

func TestClassifyPair(t *testing.T) {
	reg := assets.Mainnet()
	upperWETH := "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

	tests := []struct {
		name      string
		token0    string
		token1    string
		wantErr   error
		wantQuote string
		wantFirst bool
	}{
		{name: "paired asset first", token0: upperWETH, token1: newToken, wantQuote: "WETH", wantFirst: false},
		{name: "paired asset second", token0: newToken, token1: assets.USDC.Address, wantQuote: "USDC", wantFirst: true},
		{name: "neither known", token0: newToken, token1: "0x2222222222222222222222222222222222222222", wantErr: ErrNotTracked},
		{name: "both known", token0: assets.WETH.Address, token1: assets.USDT.Address, wantErr: ErrNotTracked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ClassifyPair(reg, tt.token0, tt.token1)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, newToken, c.TargetToken)
			assert.Equal(t, tt.wantQuote, c.PairedAsset.Symbol)
			assert.Equal(t, tt.wantFirst, c.TokenIsFirstInPair)
		})
	}
}

func TestClassifier_Classify(t *testing.T) {
	reader := &stubTokens{token0: newToken, token1: assets.WETH.Address}
	c := NewClassifier(assets.Mainnet(), reader)

	got, err := c.Classify(context.Background(), "0xpool", domain.ArchitectureV3)
	require.NoError(t, err)
	assert.Equal(t, domain.ArchitectureV3, reader.gotArch)
	assert.True(t, got.TokenIsFirstInPair)

	quote, token := got.Split(big.NewInt(5), big.NewInt(7))
	assert.Equal(t, big.NewInt(7), quote)
	assert.Equal(t, big.NewInt(5), token)
}

func TestClassifier_ReadError(t *testing.T) {
	reader := &stubTokens{err: errors.New("execution reverted")}
	c := NewClassifier(assets.Mainnet(), reader)

	_, err := c.Classify(context.Background(), "0xpool", domain.ArchitectureV2)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotTracked)
}

func TestIsTeamBundle(t *testing.T) {
	pool := common.HexToAddress("0x00000000000000000000000000000000000000b0")
	other := common.HexToAddress("0x00000000000000000000000000000000000000c0")

	receipt := func(logs ...*types.Log) *types.Receipt {
		return &types.Receipt{Logs: logs}
	}

	tests := []struct {
		name    string
		receipt *types.Receipt
		variant Variant
		want    bool
	}{
		{name: "nil receipt", receipt: nil, variant: V2, want: false},
		{name: "mint only", receipt: receipt(&types.Log{Address: pool, Topics: []common.Hash{chain.MintV2Topic}}), variant: V2, want: false},
		{name: "swap from pool", receipt: receipt(
			&types.Log{Address: pool, Topics: []common.Hash{chain.MintV2Topic}},
			&types.Log{Address: pool, Topics: []common.Hash{chain.SwapV2Topic}},
		), variant: V2, want: true},
		{name: "swap from another pool", receipt: receipt(&types.Log{Address: other, Topics: []common.Hash{chain.SwapV2Topic}}), variant: V2, want: false},
		{name: "swap of other architecture", receipt: receipt(&types.Log{Address: pool, Topics: []common.Hash{chain.SwapV2Topic}}), variant: V3, want: false},
		{name: "v3 swap", receipt: receipt(&types.Log{Address: pool, Topics: []common.Hash{chain.SwapV3Topic}}), variant: V3, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTeamBundle(tt.receipt, "0x00000000000000000000000000000000000000b0", tt.variant))
		})
	}
}

func TestVariant_TokenDelta(t *testing.T) {
	data, err := chain.PairV2ABI.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(0), big.NewInt(100), big.NewInt(30), big.NewInt(0))
	require.NoError(t, err)
	log := types.Log{Topics: []common.Hash{chain.SwapV2Topic, {}, {}}, Data: data}

	first, err := V2.TokenDelta(log, true)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(-30), first)

	second, err := V2.TokenDelta(log, false)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), second)

	_, err = V3.TokenDelta(log, true)
	assert.ErrorIs(t, err, chain.ErrUnexpectedTopic)
}

func TestVariantFor(t *testing.T) {
	v, err := VariantFor(domain.ArchitectureV3)
	require.NoError(t, err)
	assert.Equal(t, chain.SwapV3Topic, v.SwapTopic)

	_, err = VariantFor("UNISWAP_V4")
	assert.Error(t, err)
}
