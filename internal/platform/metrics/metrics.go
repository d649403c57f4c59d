package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	SessionsCreated   prometheus.Counter
	SessionsRefreshed prometheus.Counter
	SessionsDestroyed prometheus.Counter
	SessionsSwept     prometheus.Counter

	DeviceCodesRequested  prometheus.Counter
	DeviceCodesAuthorized prometheus.Counter
	DeviceCodesConsumed   prometheus.Counter
	DeviceCodesSwept      prometheus.Counter

	TokenVerifyFailures *prometheus.CounterVec

	RequestLatency *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics on the given registerer. Tests pass a fresh
// prometheus.NewRegistry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentgate_sessions_created_total",
			Help: "Total sessions created.",
		}),
		SessionsRefreshed: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentgate_sessions_refreshed_total",
			Help: "Total sessions rotated via refresh token.",
		}),
		SessionsDestroyed: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentgate_sessions_destroyed_total",
			Help: "Total sessions destroyed by logout or revocation.",
		}),
		SessionsSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentgate_sessions_swept_total",
			Help: "Total expired sessions removed by the sweeper.",
		}),
		DeviceCodesRequested: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentgate_device_codes_requested_total",
			Help: "Total device authorization code pairs issued.",
		}),
		DeviceCodesAuthorized: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentgate_device_codes_authorized_total",
			Help: "Total device codes approved by a user.",
		}),
		DeviceCodesConsumed: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentgate_device_codes_consumed_total",
			Help: "Total device codes exchanged for a token.",
		}),
		DeviceCodesSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentgate_device_codes_swept_total",
			Help: "Total expired device codes removed by the sweeper.",
		}),
		TokenVerifyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentgate_token_verify_failures_total",
			Help: "Token verification failures by reason.",
		}, []string{"reason"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
