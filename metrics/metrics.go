// Package metrics Prometheus 指标
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yesno_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yesno_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	VotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yesno_votes_total",
			Help: "Votes processed by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: question, option, survey
	)

	SoftDeleteOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yesno_soft_delete_operations_total",
			Help: "Soft delete and undo operations",
		},
		[]string{"entity", "operation", "outcome"},
	)

	PurgedEntities = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yesno_purged_entities_total",
			Help: "Soft-deleted entities removed by the purge worker",
		},
		[]string{"entity"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yesno_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"}, // global, user
	)

	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yesno_live_connections",
			Help: "Open live result WebSocket connections",
		},
	)
)

// RecordHTTPRequest 记录一次 HTTP 请求
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
