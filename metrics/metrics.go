// Package metrics exposes Prometheus counters and histograms for
// conversation turns, provider calls, query execution and the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asksql_turns_total",
			Help: "Conversation turns by outcome (ok or the error kind).",
		},
		[]string{"outcome"},
	)
	turnDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asksql_turn_duration_seconds",
			Help:    "End-to-end latency of a conversation turn.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
	)
	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asksql_provider_requests_total",
			Help: "Model provider calls by provider, purpose and outcome.",
		},
		[]string{"provider", "purpose", "outcome"},
	)
	providerRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asksql_provider_request_duration_seconds",
			Help:    "Model provider call latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "purpose"},
	)
	providerRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asksql_provider_retries_total",
			Help: "Retries of rate-limited or timed-out provider calls.",
		},
		[]string{"provider", "kind"},
	)
	policyViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asksql_policy_violations_total",
			Help: "Generated statements rejected by the mutation policy, by keyword.",
		},
		[]string{"keyword"},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asksql_query_duration_seconds",
			Help:    "Query execution latency by outcome.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	queryTruncatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "asksql_query_truncated_total",
			Help: "Results cut at the row limit.",
		},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "asksql_active_sessions",
			Help: "Open conversation sessions.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		turnsTotal, turnDurationSeconds,
		providerRequestsTotal, providerRequestSeconds, providerRetriesTotal,
		policyViolationsTotal, queryDurationSeconds, queryTruncatedTotal,
		activeSessions,
		httpRequestsTotal, httpRequestDurationSeconds,
	)
}

func ObserveTurn(outcome string, d time.Duration) {
	turnsTotal.WithLabelValues(outcome).Inc()
	turnDurationSeconds.Observe(d.Seconds())
}

func ObserveProviderRequest(provider, purpose, outcome string, d time.Duration) {
	if purpose == "" {
		purpose = "complete"
	}
	providerRequestsTotal.WithLabelValues(provider, purpose, outcome).Inc()
	providerRequestSeconds.WithLabelValues(provider, purpose).Observe(d.Seconds())
}

func ObserveProviderRetry(provider, kind string) {
	providerRetriesTotal.WithLabelValues(provider, kind).Inc()
}

func ObservePolicyViolation(keyword string) {
	policyViolationsTotal.WithLabelValues(keyword).Inc()
}

func ObserveQuery(outcome string, d time.Duration, truncated bool) {
	queryDurationSeconds.WithLabelValues(outcome).Observe(d.Seconds())
	if truncated {
		queryTruncatedTotal.Inc()
	}
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
