package ingestion

import (
	"errors"
	"sort"

	"amm-launch-lab/internal/domain"
)

// ErrInvalidOrdering is returned when events are not properly ordered.
var ErrInvalidOrdering = errors.New("events are not in deterministic order")

// SortLiquidityEvents orders events by (block ASC, tx_index ASC, log_index ASC).
// This is the order in which the chain executed them.
func SortLiquidityEvents(events []*domain.LiquidityEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return compareLiquidityEvents(events[i], events[j]) < 0
	})
}

// ValidateLiquidityEventOrdering checks if liquidity events are strictly ordered.
// Returns ErrInvalidOrdering if not.
func ValidateLiquidityEventOrdering(events []*domain.LiquidityEvent) error {
	for i := 1; i < len(events); i++ {
		if compareLiquidityEvents(events[i-1], events[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareLiquidityEvents returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (block ASC, tx_index ASC, log_index ASC)
func compareLiquidityEvents(a, b *domain.LiquidityEvent) int {
	if a.BlockNumber != b.BlockNumber {
		if a.BlockNumber < b.BlockNumber {
			return -1
		}
		return 1
	}
	pa, pb := a.Position(), b.Position()
	switch {
	case pa.Before(pb):
		return -1
	case pb.Before(pa):
		return 1
	}
	return 0
}
