// Package metrics exposes Prometheus counters for the portal client.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TokenRefreshes  *prometheus.CounterVec
	QueuedRequests  prometheus.Counter
	Replays         *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Downloads       *prometheus.CounterVec
	SessionsExpired prometheus.Counter
}

// New registers the client metrics with reg. Pass prometheus.DefaultRegisterer
// to expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TokenRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_client_token_refreshes_total",
			Help: "Total number of access token refresh attempts by outcome",
		}, []string{"outcome"}),
		QueuedRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "portal_client_queued_requests_total",
			Help: "Total number of requests parked while a refresh was in flight",
		}),
		Replays: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_client_replayed_requests_total",
			Help: "Total number of requests replayed after a 401, by outcome",
		}, []string{"outcome"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_client_request_duration_seconds",
			Help:    "Duration of API requests sent to the portal backend",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "code"}),
		Downloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_client_downloads_total",
			Help: "Total number of file downloads by outcome",
		}, []string{"outcome"}),
		SessionsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "portal_client_sessions_expired_total",
			Help: "Total number of sessions ended because the refresh failed",
		}),
	}
}

func (m *Metrics) IncrementRefresh(outcome string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementQueued() {
	if m == nil {
		return
	}
	m.QueuedRequests.Inc()
}

func (m *Metrics) IncrementReplay(outcome string) {
	if m == nil {
		return
	}
	m.Replays.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, code).Observe(d.Seconds())
}

func (m *Metrics) IncrementDownload(outcome string) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementSessionsExpired() {
	if m == nil {
		return
	}
	m.SessionsExpired.Inc()
}
