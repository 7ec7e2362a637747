// Package metrics provides Prometheus metrics for the thistle service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MatchTierDuration tracks how long each matching tier takes
	MatchTierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thistle",
			Subsystem: "matching",
			Name:      "tier_duration_seconds",
			Help:      "Duration of matching tier lookups in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"tier"},
	)

	// MatchTierResults counts matches produced per tier
	MatchTierResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "matching",
			Name:      "results_total",
			Help:      "Total number of matches produced by tier",
		},
		[]string{"tier"},
	)

	// MatchTierErrors counts failed or timed out tiers
	MatchTierErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "matching",
			Name:      "tier_errors_total",
			Help:      "Total number of matching tiers that failed or timed out",
		},
		[]string{"tier"},
	)

	// SuggestionsServed counts suggestions returned by confidence tier
	SuggestionsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "suggestions",
			Name:      "served_total",
			Help:      "Total number of suggestions returned by confidence tier",
		},
		[]string{"source_type", "tier"},
	)

	// SuggestionsDismissed counts suggestions hidden because they were dismissed
	SuggestionsDismissed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "suggestions",
			Name:      "dismissed_filtered_total",
			Help:      "Total number of suggestions filtered out by dismissals",
		},
	)

	// MutationsTotal counts linking mutations by action and outcome
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "linking",
			Name:      "mutations_total",
			Help:      "Total number of linking mutations by action and status",
		},
		[]string{"action", "status"},
	)

	// MutationDuration tracks linking mutation duration, lock wait included
	MutationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thistle",
			Subsystem: "linking",
			Name:      "mutation_duration_seconds",
			Help:      "Duration of linking mutations in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"action"},
	)

	// ObserverFailures counts post-commit observers that failed
	ObserverFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "linking",
			Name:      "observer_failures_total",
			Help:      "Total number of post-commit observer failures",
		},
		[]string{"observer"},
	)

	// EventsPublished counts audit events written to the event stream
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of audit events published by status",
		},
		[]string{"action", "status"},
	)

	// LockWaitDuration tracks how long linking waited for a pair lock
	LockWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thistle",
			Subsystem: "locks",
			Name:      "wait_duration_seconds",
			Help:      "Time spent acquiring pair locks in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"backend"},
	)
)

// ObserveTier records one matching tier run
func ObserveTier(tier string, started time.Time, results int, err error) {
	MatchTierDuration.WithLabelValues(tier).Observe(time.Since(started).Seconds())
	if err != nil {
		MatchTierErrors.WithLabelValues(tier).Inc()
		return
	}
	MatchTierResults.WithLabelValues(tier).Add(float64(results))
}

// ObserveMutation records one linking mutation
func ObserveMutation(action string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	MutationsTotal.WithLabelValues(action, status).Inc()
	MutationDuration.WithLabelValues(action).Observe(time.Since(started).Seconds())
}
