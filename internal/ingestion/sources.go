package ingestion

import (
	"context"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/launch"
)

// EmitFunc receives decoded liquidity events in chain order.
// A non-nil error stops the source.
type EmitFunc func(ctx context.Context, ev domain.LiquidityEvent) error

// Source delivers liquidity events from the chain.
type Source interface {
	// Run emits events until the source is exhausted or ctx is cancelled.
	// Events of one block are emitted in (tx_index, log_index) order and
	// blocks in ascending order.
	Run(ctx context.Context, emit EmitFunc) error
}

// Handler consumes liquidity events. Implemented by launch.Manager.
type Handler interface {
	HandleLiquidity(ctx context.Context, ev domain.LiquidityEvent) (launch.Outcome, error)
}

var _ Handler = (*launch.Manager)(nil)
