package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementRefresh("success")
	m.IncrementRefresh("success")
	m.IncrementRefresh("failure")
	m.IncrementQueued()
	m.IncrementReplay("ok")
	m.IncrementDownload("saved")
	m.IncrementSessionsExpired()
	m.ObserveRequest("GET", "200", 25*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokenRefreshes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenRefreshes.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueuedRequests))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Replays.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Downloads.WithLabelValues("saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsExpired))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
}

func TestMetrics_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.IncrementRefresh("success")
		m.IncrementQueued()
		m.IncrementReplay("ok")
		m.IncrementDownload("saved")
		m.IncrementSessionsExpired()
		m.ObserveRequest("GET", "200", time.Second)
	})
}
