package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/launch"
)

// sliceSource emits a fixed list of events.
type sliceSource struct {
	events []domain.LiquidityEvent
}

func (s *sliceSource) Run(ctx context.Context, emit EmitFunc) error {
	for _, ev := range s.events {
		if err := emit(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// scriptedHandler returns outcomes keyed by log index.
type scriptedHandler struct {
	outcomes map[int]launch.Outcome
	errs     map[int]error
	seen     []int
}

func (h *scriptedHandler) HandleLiquidity(_ context.Context, ev domain.LiquidityEvent) (launch.Outcome, error) {
	h.seen = append(h.seen, ev.LogIndex)
	return h.outcomes[ev.LogIndex], h.errs[ev.LogIndex]
}

func TestRunner_CountsOutcomes(t *testing.T) {
	src := &sliceSource{events: []domain.LiquidityEvent{
		{LogIndex: 0}, {LogIndex: 1}, {LogIndex: 2}, {LogIndex: 3}, {LogIndex: 4},
	}}
	h := &scriptedHandler{
		outcomes: map[int]launch.Outcome{
			0: launch.OutcomeCreated,
			1: launch.OutcomeMerged,
			2: launch.OutcomeIgnored,
			3: launch.OutcomeSkipped,
			4: launch.OutcomeCreated,
		},
		errs: map[int]error{4: errors.New("funding store unavailable")},
	}

	r := NewRunner(RunnerOptions{Source: src, Handler: h})
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []int{0, 1, 2, 3, 4}, h.seen, "handler failures do not stop ingestion")
	assert.Equal(t, RunnerStats{
		EventsProcessed: 5,
		Created:         2,
		Merged:          1,
		Ignored:         1,
		Skipped:         1,
		Failed:          1,
	}, r.Stats())
}

func TestRunner_CanceledHandlerStopsSource(t *testing.T) {
	src := &sliceSource{events: []domain.LiquidityEvent{{LogIndex: 0}, {LogIndex: 1}}}
	h := &scriptedHandler{errs: map[int]error{0: context.Canceled}}

	r := NewRunner(RunnerOptions{Source: src, Handler: h})
	err := r.Run(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{0}, h.seen)
}

func TestRunner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := &scriptedHandler{}
	r := NewRunner(RunnerOptions{Source: &sliceSource{events: []domain.LiquidityEvent{{}}}, Handler: h})
	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
	assert.Empty(t, h.seen)
}

func TestRunner_WithLogSource(t *testing.T) {
	ctx := context.Background()
	c := backfillChain(t)
	h := &scriptedHandler{outcomes: map[int]launch.Outcome{}}

	r := NewRunner(RunnerOptions{
		Source:  NewLogSource(LogSourceOptions{Reader: c, From: 1, To: 30}),
		Handler: h,
	})
	require.NoError(t, r.Run(ctx))
	assert.Equal(t, []int{3, 6, 0, 2}, h.seen)
	assert.Equal(t, int64(4), r.Stats().EventsProcessed)
}
