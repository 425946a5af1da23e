package ingestion

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"amm-launch-lab/internal/domain"
)

const (
	poolA = "0x00000000000000000000000000000000000000aa"
	poolB = "0x00000000000000000000000000000000000000bb"
)

func txHash(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

func wei(n int64) *big.Int {
	return big.NewInt(n)
}

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []domain.LiquidityEvent
	err    error // returned by emit after the first event when set
}

func (r *recorder) emit(_ context.Context, ev domain.LiquidityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if r.err != nil {
		return r.err
	}
	return nil
}

func (r *recorder) snapshot() []domain.LiquidityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.LiquidityEvent(nil), r.events...)
}

// positions returns (block, tx, log) triples of the recorded events.
func (r *recorder) positions() [][3]int64 {
	var out [][3]int64
	for _, ev := range r.snapshot() {
		out = append(out, [3]int64{ev.BlockNumber, int64(ev.TxIndex), int64(ev.LogIndex)})
	}
	return out
}
