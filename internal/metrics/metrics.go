// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	FetchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_attempts_total",
			Help: "HTTP attempts made by the typed fetch client, per verb.",
		},
		[]string{"method"})

	FetchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_retries_total",
			Help: "Cumulative number of retried fetch attempts.",
		})

	FetchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_failures_total",
			Help: "Terminal fetch failures, per error kind.",
		},
		[]string{"kind"})

	FetchValidationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_validation_failures_total",
			Help: "Responses that parsed but failed schema validation.",
		})

	QueryLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "query_load_total",
			Help: "Cumulative number of query-store loads that settled.",
		})

	QueryEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "query_evict_total",
			Help: "Cumulative number of envelopes evicted from the query store.",
		})

	ActiveEnvelopes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "query_active_envelopes",
			Help: "Number of result envelopes currently cached.",
		})

	PresenceConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_connections",
			Help: "Websocket connections currently attached to the presence hub.",
		})

	BanDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ban_denied_total",
			Help: "Requests rejected by the ban gate.",
		})

	BanCheckErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ban_check_errors_total",
			Help: "Ban-store lookups that errored and failed open.",
		})
)

func init() {
	prometheus.MustRegister(
		FetchAttemptsTotal,
		FetchRetriesTotal,
		FetchFailuresTotal,
		FetchValidationFailuresTotal,
		QueryLoadTotal,
		QueryEvictTotal,
		ActiveEnvelopes,
		PresenceConnections,
		BanDeniedTotal,
		BanCheckErrorsTotal,
	)
}
