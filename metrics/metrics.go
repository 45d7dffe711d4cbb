// Package metrics holds the Prometheus collectors for bracket building,
// album selection and winner propagation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the Record helpers.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeShort    = "short"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"

	ActionSet     = "set"
	ActionCleared = "cleared"
	ActionNoop    = "noop"
)

var (
	BracketBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_builds_total",
			Help: "Total number of bracket builds by outcome",
		},
		[]string{"outcome"},
	)

	BracketBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bracket_build_duration_seconds",
			Help:    "Duration of bracket builds in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BracketSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bracket_albums",
			Help:    "Number of albums per built bracket",
			Buckets: []float64{2, 4, 8, 16, 32, 64, 128, 256, 512},
		},
	)

	// AlbumSelectionAttemptsTotal counts selection attempts. Random selection
	// records one attempt per call, AI selection one per model request.
	AlbumSelectionAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "album_selection_attempts_total",
			Help: "Total number of album selection attempts by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	AlbumSelectionFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "album_selection_fallbacks_total",
			Help: "Total number of AI selections that fell back to random selection",
		},
	)

	RoundWinnerUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "round_winner_updates_total",
			Help: "Total number of round winner updates by action",
		},
		[]string{"action"},
	)

	RoundsInvalidatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rounds_invalidated_total",
			Help: "Total number of downstream rounds cleared by winner changes",
		},
	)

	AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of generative model requests by outcome",
		},
		[]string{"outcome"},
	)

	AICircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_circuit_breaker_state",
			Help: "State of the generative model circuit breaker (0=closed, 1=half-open, 2=open)",
		},
	)
)

func RecordBracketBuild(success bool, albums int, duration time.Duration) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	BracketBuildsTotal.WithLabelValues(outcome).Inc()
	BracketBuildDuration.Observe(duration.Seconds())
	if success {
		BracketSize.Observe(float64(albums))
	}
}

func RecordSelectionAttempt(strategy, outcome string) {
	AlbumSelectionAttemptsTotal.WithLabelValues(strategy, outcome).Inc()
}

func RecordSelectionFallback() {
	AlbumSelectionFallbacksTotal.Inc()
}

// RecordWinnerUpdate counts a winner change and the decided rounds it cleared.
func RecordWinnerUpdate(action string, invalidated int) {
	RoundWinnerUpdatesTotal.WithLabelValues(action).Inc()
	if invalidated > 0 {
		RoundsInvalidatedTotal.Add(float64(invalidated))
	}
}

func RecordAIRequest(outcome string) {
	AIRequestsTotal.WithLabelValues(outcome).Inc()
}

func SetAICircuitBreakerState(state int) {
	AICircuitBreakerState.Set(float64(state))
}
