package ingestion

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amm-launch-lab/internal/chain"
	"amm-launch-lab/internal/chain/stub"
)

type fakeSubscription struct {
	errc chan error
	once sync.Once
}

func (s *fakeSubscription) Unsubscribe() {
	s.once.Do(func() { close(s.errc) })
}

func (s *fakeSubscription) Err() <-chan error {
	return s.errc
}

// fakeSubscriber hands the subscription channel to the test.
type fakeSubscriber struct {
	query ethereum.FilterQuery
	logs  chan<- types.Log
	sub   *fakeSubscription
	ready chan struct{}
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{
		sub:   &fakeSubscription{errc: make(chan error, 1)},
		ready: make(chan struct{}),
	}
}

func (f *fakeSubscriber) SubscribeFilterLogs(_ context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	f.query = q
	f.logs = ch
	close(f.ready)
	return f.sub, nil
}

func (f *fakeSubscriber) send(t *testing.T, logs ...types.Log) {
	t.Helper()
	<-f.ready
	for _, l := range logs {
		f.logs <- l
	}
	// A dequeued log is fully handled before the stream selects again.
	require.Eventually(t, func() bool { return len(f.logs) == 0 }, 2*time.Second, time.Millisecond)
}

type streamHarness struct {
	chain  *stub.Chain
	sub    *fakeSubscriber
	rec    *recorder
	cancel context.CancelFunc
	done   chan error
}

func startStream(t *testing.T) *streamHarness {
	t.Helper()
	c := stub.NewChain()
	for b := int64(1); b <= 20; b++ {
		c.SetBlock(b, 1_000+b)
	}

	h := &streamHarness{
		chain: c,
		sub:   newFakeSubscriber(),
		rec:   &recorder{},
		done:  make(chan error, 1),
	}
	s := NewStream(StreamOptions{
		Subscriber:    h.sub,
		Reader:        c,
		Confirmations: 2,
		FlushInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- s.Run(ctx, h.rec.emit) }()
	t.Cleanup(cancel)
	return h
}

func (h *streamHarness) stop(t *testing.T) error {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop")
		return nil
	}
}

func mintAt(block int64, txIndex, logIndex int) types.Log {
	return stub.MintV2(poolA, stub.Pos{Block: block, TxIndex: txIndex, LogIndex: logIndex, TxHash: txHash(int(block)*100 + txIndex)}, wei(1), wei(1))
}

func TestStream_SubscribesToMintAndFactoryTopics(t *testing.T) {
	h := startStream(t)
	<-h.sub.ready

	require.Len(t, h.sub.query.Topics, 1)
	topics := h.sub.query.Topics[0]
	assert.Contains(t, topics, chain.MintV2Topic)
	assert.Contains(t, topics, chain.MintV3Topic)
	assert.Contains(t, topics, chain.PairCreatedTopic)
	assert.Contains(t, topics, chain.PoolCreatedTopic)

	assert.ErrorIs(t, h.stop(t), context.Canceled)
}

func TestStream_ReleasesConfirmedBlocksInOrder(t *testing.T) {
	h := startStream(t)

	h.sub.send(t,
		mintAt(10, 3, 8),
		mintAt(10, 1, 2),
		mintAt(11, 0, 0),
	)
	// Nothing is confirmed yet with the head at 11.
	assert.Empty(t, h.rec.snapshot())

	h.sub.send(t, mintAt(13, 0, 1))
	require.Eventually(t, func() bool { return len(h.rec.snapshot()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, [][3]int64{{10, 1, 2}, {10, 3, 8}, {11, 0, 0}}, h.rec.positions())

	// Shutdown flushes the unconfirmed head.
	assert.ErrorIs(t, h.stop(t), context.Canceled)
	assert.Equal(t, [][3]int64{{10, 1, 2}, {10, 3, 8}, {11, 0, 0}, {13, 0, 1}}, h.rec.positions())
}

func TestStream_LateEventEmittedImmediately(t *testing.T) {
	h := startStream(t)

	h.sub.send(t, mintAt(15, 0, 0))
	h.sub.send(t, mintAt(5, 0, 0))
	require.Eventually(t, func() bool { return len(h.rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(5), h.rec.snapshot()[0].BlockNumber)

	require.ErrorIs(t, h.stop(t), context.Canceled)
}

func TestStream_RemovedLogRetractsBufferedEvent(t *testing.T) {
	h := startStream(t)

	mint := mintAt(10, 1, 1)
	removed := mint
	removed.Removed = true
	h.sub.send(t, mint, mintAt(10, 2, 2), removed)

	require.ErrorIs(t, h.stop(t), context.Canceled)
	assert.Equal(t, [][3]int64{{10, 2, 2}}, h.rec.positions())
}

func TestStream_FactoryLogsAreNotEmitted(t *testing.T) {
	h := startStream(t)

	data, err := chain.FactoryABI.Events["PairCreated"].Inputs.NonIndexed().Pack(common.HexToAddress(poolA), big.NewInt(1))
	require.NoError(t, err)
	created := types.Log{
		Topics:      []common.Hash{chain.PairCreatedTopic, common.HexToHash("0x01"), common.HexToHash("0x02")},
		Data:        data,
		BlockNumber: 9,
	}

	h.sub.send(t, created, mintAt(9, 0, 1))
	require.ErrorIs(t, h.stop(t), context.Canceled)
	assert.Equal(t, [][3]int64{{9, 0, 1}}, h.rec.positions())
}

func TestStream_SubscriptionErrorFlushesAndFails(t *testing.T) {
	h := startStream(t)
	h.sub.send(t, mintAt(10, 0, 0))

	boom := errors.New("connection reset")
	h.sub.sub.errc <- boom

	select {
	case err := <-h.done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop")
	}
	assert.Equal(t, [][3]int64{{10, 0, 0}}, h.rec.positions())
}
