package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLog("UNISWAP_V2", "mint")
		m.RecordOutcome("UNISWAP_V2", "created")
		m.ObserveRPC("eth_call", time.Millisecond, errors.New("boom"))
		m.ObserveDB("postgres", "insert_pool", time.Millisecond, nil)
		m.RecordSnipers(3)
	})
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordOutcome("UNISWAP_V3", "created")
	m.RecordOutcome("UNISWAP_V3", "created")
	m.RecordOutcome("UNISWAP_V3", "merged")
	m.RecordSnipers(2)
	m.RecordSnipers(0)
	m.ObserveRPC("receipt", time.Millisecond, errors.New("timeout"))
	m.ObserveRPC("receipt", time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LaunchOutcomes.WithLabelValues("UNISWAP_V3", "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LaunchOutcomes.WithLabelValues("UNISWAP_V3", "merged")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SnipersDetected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCCallErrors.WithLabelValues("receipt")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_RecordBlock(t *testing.T) {
	m := NewMetrics("", nil)
	m.RecordBlock(21128976)
	assert.Equal(t, 21128976.0, testutil.ToFloat64(m.HighestBlockSeen))
}
