package launch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amm-launch-lab/internal/domain"
)

func TestGate_FamiliesRunInParallel(t *testing.T) {
	g := NewGate()
	ctx := context.Background()

	release := make(chan struct{})
	v2Started := make(chan struct{})
	go func() {
		_ = g.Run(ctx, domain.ArchitectureV2, func(context.Context) error {
			close(v2Started)
			<-release
			return nil
		})
	}()
	<-v2Started

	v3Done := make(chan struct{})
	go func() {
		_ = g.Run(ctx, domain.ArchitectureV3, func(context.Context) error { return nil })
		close(v3Done)
	}()

	select {
	case <-v3Done:
	case <-time.After(time.Second):
		t.Fatal("v3 blocked by v2")
	}

	secondV2 := make(chan struct{})
	go func() {
		_ = g.Run(ctx, domain.ArchitectureV2, func(context.Context) error { return nil })
		close(secondV2)
	}()

	select {
	case <-secondV2:
		t.Fatal("second v2 run entered while the first held the gate")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-secondV2:
	case <-time.After(time.Second):
		t.Fatal("second v2 run never entered")
	}
}

func TestGate_SerializesFamily(t *testing.T) {
	g := NewGate()
	var inside, maxInside atomic.Int32

	done := make(chan struct{})
	for i := 0; i < 16; i++ {
		go func() {
			_ = g.Run(context.Background(), domain.ArchitectureV3, func(context.Context) error {
				n := inside.Add(1)
				if n > maxInside.Load() {
					maxInside.Store(n)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 16; i++ {
		<-done
	}
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestGate_CanceledContextSkipsFn(t *testing.T) {
	g := NewGate()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := g.Run(ctx, domain.ArchitectureV2, func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, called)
}

func TestGate_UnknownArchitecture(t *testing.T) {
	err := NewGate().Run(context.Background(), "UNISWAP_V4", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestGate_BootstrapOnce(t *testing.T) {
	g := NewGate()
	calls := 0

	ran, err := g.Bootstrap(func() error {
		calls++
		return errors.New("rpc down")
	})
	require.Error(t, err)
	assert.False(t, ran)
	assert.False(t, g.Bootstrapped())

	for i := 0; i < 3; i++ {
		_, err := g.Bootstrap(func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls, "a failed bootstrap is retried, a successful one is not")
	assert.True(t, g.Bootstrapped())
}

func TestGate_GlobalExcludesBootstrap(t *testing.T) {
	g := NewGate()
	inGlobal := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = g.Global(context.Background(), func(context.Context) error {
			close(inGlobal)
			<-release
			return nil
		})
	}()
	<-inGlobal

	done := make(chan struct{})
	go func() {
		_, _ = g.Bootstrap(func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("bootstrap ran while the global gate was held")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-done

	// Global runs are repeatable.
	calls := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, g.Global(context.Background(), func(context.Context) error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}
