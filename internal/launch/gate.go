package launch

import (
	"context"
	"fmt"
	"sync"

	"amm-launch-lab/internal/domain"
)

// Gate serializes lifecycle work per architecture family and runs the
// one-time bootstrap under a separate global lock. V2 and V3 events proceed
// in parallel with each other.
type Gate struct {
	v2     sync.Mutex
	v3     sync.Mutex
	global sync.Mutex

	bootstrapped bool
}

// NewGate creates a Gate.
func NewGate() *Gate {
	return &Gate{}
}

// Run executes fn while holding the lock of arch's family.
// fn is not started when ctx is already done.
func (g *Gate) Run(ctx context.Context, arch domain.Architecture, fn func(ctx context.Context) error) error {
	mu, err := g.family(arch)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// Bootstrap runs fn under the global lock unless a previous call succeeded.
// A failed fn leaves the gate unbootstrapped so the next call retries.
// Returns true when fn ran and succeeded.
func (g *Gate) Bootstrap(fn func() error) (bool, error) {
	g.global.Lock()
	defer g.global.Unlock()

	if g.bootstrapped {
		return false, nil
	}
	if err := fn(); err != nil {
		return false, err
	}
	g.bootstrapped = true
	return true, nil
}

// Global executes fn while holding the global lock, without the
// once-only bookkeeping of Bootstrap.
func (g *Gate) Global(ctx context.Context, fn func(ctx context.Context) error) error {
	g.global.Lock()
	defer g.global.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// Bootstrapped reports whether Bootstrap has succeeded.
func (g *Gate) Bootstrapped() bool {
	g.global.Lock()
	defer g.global.Unlock()
	return g.bootstrapped
}

func (g *Gate) family(arch domain.Architecture) (*sync.Mutex, error) {
	switch arch {
	case domain.ArchitectureV2:
		return &g.v2, nil
	case domain.ArchitectureV3:
		return &g.v3, nil
	default:
		return nil, fmt.Errorf("gate: unknown architecture %q", arch)
	}
}
