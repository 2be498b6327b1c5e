// Package metrics provides Prometheus instrumentation for battlewatch. It
// exposes counters for poll cycles, battle classification, enrichment and
// delivery outcomes, and a histogram for cycle latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PollsTotal counts poll cycles, labeled by result: "ok" or "error".
	PollsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "battlewatch_polls_total",
		Help: "Total number of feed poll cycles",
	}, []string{"result"})

	// PollDuration records the wall time of a full poll cycle in seconds.
	PollDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "battlewatch_poll_duration_seconds",
		Help:    "Duration of a poll cycle in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	// LastPollSuccess is the unix time of the last cycle whose feed query
	// succeeded.
	LastPollSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "battlewatch_last_poll_success_timestamp_seconds",
		Help: "Unix time of the last successful feed poll",
	})

	// BattlesTotal counts polled battles by classification: "new", "seen"
	// or "error".
	BattlesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "battlewatch_battles_total",
		Help: "Total number of polled battles by classification",
	}, []string{"classification"})

	// EnrichmentsTotal counts realm lookups by result: "found", "absent"
	// or "error".
	EnrichmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "battlewatch_enrichments_total",
		Help: "Total number of realm lookups by result",
	}, []string{"result"})

	// DeliveriesTotal counts per-recipient sends by outcome: "sent",
	// "permanent" or "transient".
	DeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "battlewatch_deliveries_total",
		Help: "Total number of notification deliveries by outcome",
	}, []string{"outcome"})

	// UnsubscribesTotal counts directory deletions triggered by permanent
	// delivery failures, labeled by result: "ok" or "error".
	UnsubscribesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "battlewatch_unsubscribes_total",
		Help: "Total number of automatic unsubscriptions",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		PollsTotal,
		PollDuration,
		LastPollSuccess,
		BattlesTotal,
		EnrichmentsTotal,
		DeliveriesTotal,
		UnsubscribesTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
