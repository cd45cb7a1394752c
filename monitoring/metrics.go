package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_claims_total",
			Help: "Commission claims by outcome",
		},
		[]string{"outcome"},
	)

	CommissionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commissions_created_total",
			Help: "Commission rows created, by tree level",
		},
		[]string{"level"},
	)

	PayoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_payouts_total",
			Help: "Commission payouts by outcome",
		},
		[]string{"outcome"},
	)

	GatewayCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_gateway_call_seconds",
			Help:    "Latency of calls to external SaaS gateways",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"gateway", "operation"},
	)
)
