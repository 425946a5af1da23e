package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amm-launch-lab/internal/assets"
	"amm-launch-lab/internal/chain"
	"amm-launch-lab/internal/chain/stub"
	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/etherscan"
	"amm-launch-lab/internal/launch"
	"amm-launch-lab/internal/storage/memory"
	"amm-launch-lab/internal/token"
)

// mapLookup serves creation info from a fixed table.
type mapLookup struct {
	mu    sync.Mutex
	infos map[string]*domain.ContractCreationInfo
	calls int
}

func (m *mapLookup) ContractCreation(_ context.Context, address string) (*domain.ContractCreationInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if info, ok := m.infos[strings.ToLower(address)]; ok {
		return info, nil
	}
	return nil, etherscan.ErrNoData
}

func newBootstrapper(t *testing.T, c *stub.Chain, lookup *mapLookup) (*Bootstrapper, *memory.TokenStore, *memory.NewContractStore) {
	t.Helper()
	tokens := memory.NewTokenStore()
	contracts := memory.NewNewContractStore()

	b := New(Deps{
		Gate:      launch.NewGate(),
		Registry:  assets.Mainnet(),
		Resolver:  token.NewResolver(c, lookup, tokens),
		Chain:     c,
		Contracts: contracts,
	}, WithWorkers(2))
	t.Cleanup(b.Close)
	return b, tokens, contracts
}

func TestSeedAssets(t *testing.T) {
	ctx := context.Background()
	lookup := &mapLookup{infos: map[string]*domain.ContractCreationInfo{
		assets.WETH.Address: {
			ContractAddress: assets.WETH.Address,
			ContractCreator: "0x4f26ffbe5f04ed43630fdc30a87638d53d0b0876",
			TxHash:          "0xb95343413e459a0f97461812111254163ae53467855c0d73e0f1e7c5b8442fa3",
			BlockNumber:     4719568,
		},
	}}
	b, tokens, _ := newBootstrapper(t, stub.NewChain(), lookup)

	ran, err := b.SeedAssets(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, assets.Mainnet().Len(), tokens.Inserts())

	weth, err := tokens.GetByAddress(ctx, assets.WETH.Address)
	require.NoError(t, err)
	assert.Equal(t, "WETH", weth.Ticker)
	assert.Equal(t, 18, weth.Decimals)
	assert.Equal(t, int64(4719568), weth.CreationBlock)
	require.NotNil(t, weth.DeployerAddress)

	usdc, err := tokens.GetByAddress(ctx, assets.USDC.Address)
	require.NoError(t, err)
	assert.Equal(t, 6, usdc.Decimals)
	assert.Equal(t, domain.UnknownCreationBlock, usdc.CreationBlock)
	assert.Nil(t, usdc.CreationTxHash)

	t.Run("second call is a no-op", func(t *testing.T) {
		calls := lookup.calls
		ran, err := b.SeedAssets(ctx)
		require.NoError(t, err)
		assert.False(t, ran)
		assert.Equal(t, calls, lookup.calls)
		assert.Equal(t, assets.Mainnet().Len(), tokens.Inserts())
	})
}

func TestSeedAssets_ExistingRowsKept(t *testing.T) {
	ctx := context.Background()
	b, tokens, _ := newBootstrapper(t, stub.NewChain(), &mapLookup{})

	require.NoError(t, tokens.Insert(ctx, &domain.Token{
		ID:              "existing",
		Name:            "Wrapped Ether (local)",
		Ticker:          "WETH",
		Decimals:        18,
		ContractAddress: assets.WETH.Address,
		CreationBlock:   domain.UnknownCreationBlock,
	}))

	_, err := b.SeedAssets(ctx)
	require.NoError(t, err)

	weth, err := tokens.GetByAddress(ctx, assets.WETH.Address)
	require.NoError(t, err)
	assert.Equal(t, "existing", weth.ID)
	assert.Equal(t, "Wrapped Ether (local)", weth.Name)
}

func TestSeedAssets_CanceledIsRetried(t *testing.T) {
	b, tokens, _ := newBootstrapper(t, stub.NewChain(), &mapLookup{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.SeedAssets(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, b.Gate.Bootstrapped())

	ran, err := b.SeedAssets(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, assets.Mainnet().Len(), tokens.Inserts())
}

func addr(n int) string {
	return fmt.Sprintf("0x%040x", n)
}

func hash(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

// deploy registers a contract-creation tx and its receipt.
func deploy(c *stub.Chain, n int, status uint64) chain.Tx {
	c.SetReceipt(hash(n), &types.Receipt{
		Status:          status,
		ContractAddress: common.HexToAddress(addr(1000 + n)),
	})
	return chain.Tx{Hash: hash(n), From: addr(n)}
}

func TestScanNewContracts(t *testing.T) {
	ctx := context.Background()
	c := stub.NewChain()
	to := addr(7)

	c.SetBlock(10, 100, deploy(c, 1, types.ReceiptStatusSuccessful), chain.Tx{Hash: hash(2), From: addr(2), To: &to})
	c.SetBlock(11, 112, deploy(c, 3, types.ReceiptStatusFailed))
	c.SetBlock(12, 124, deploy(c, 4, types.ReceiptStatusSuccessful), deploy(c, 5, types.ReceiptStatusSuccessful))
	c.SetBlock(13, 136, deploy(c, 6, types.ReceiptStatusSuccessful))

	b, _, contracts := newBootstrapper(t, c, &mapLookup{})

	n, err := b.ScanNewContracts(ctx, 10, 13)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n, "block 13 is excluded and failed deploys are skipped")

	rec, err := contracts.GetByAddress(ctx, addr(1001))
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec.CreationBlock)
	assert.Equal(t, hash(1), rec.CreationTxHash)
	assert.Equal(t, addr(1), rec.DeployerAddress)

	_, err = contracts.GetByAddress(ctx, addr(1003))
	assert.Error(t, err)

	t.Run("skipped when records exist", func(t *testing.T) {
		n, err := b.ScanNewContracts(ctx, 0, LatestBlock)
		require.NoError(t, err)
		assert.Zero(t, n)
		count, err := contracts.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}

func TestScanNewContracts_LatestIncludesHead(t *testing.T) {
	c := stub.NewChain()
	c.SetBlock(5, 50, deploy(c, 1, types.ReceiptStatusSuccessful))
	c.SetBlock(6, 62, deploy(c, 2, types.ReceiptStatusSuccessful))

	b, _, _ := newBootstrapper(t, c, &mapLookup{})
	n, err := b.ScanNewContracts(context.Background(), 5, LatestBlock)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestScanNewContracts_MissingReceipt(t *testing.T) {
	c := stub.NewChain()
	c.SetBlock(5, 50, chain.Tx{Hash: hash(1), From: addr(1)})

	b, _, _ := newBootstrapper(t, c, &mapLookup{})
	_, err := b.ScanNewContracts(context.Background(), 5, 6)
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}
