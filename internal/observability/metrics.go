package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	insightCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "insight",
		Name:      "generated_total",
		Help:      "Insights generated, labelled by insight type.",
	}, []string{"type"})
	parseCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "parse",
		Name:      "requests_total",
		Help:      "Workout parse requests, labelled by whether the regex fallback ran.",
	}, []string{"fallback"})
	syncChangeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "sync",
		Name:      "changes_total",
		Help:      "Sync changes processed, labelled by operation and outcome.",
	}, []string{"operation", "outcome"})
	streakUpdateCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "sync",
		Name:      "streak_recomputes_total",
		Help:      "Successful streak recomputations triggered by session inserts.",
	})
)

func init() {
	prometheus.MustRegister(insightCounter, parseCounter, syncChangeCounter, streakUpdateCounter)
}

// RecordInsight counts a generated insight.
func RecordInsight(insightType string) {
	insightCounter.WithLabelValues(insightType).Inc()
}

// RecordParseRequest counts a parse request and whether the fallback parser ran.
func RecordParseRequest(fallback bool) {
	label := "false"
	if fallback {
		label = "true"
	}
	parseCounter.WithLabelValues(label).Inc()
}

// RecordSyncChange counts one processed sync change.
func RecordSyncChange(operation string, success bool) {
	outcome := "error"
	if success {
		outcome = "success"
	}
	syncChangeCounter.WithLabelValues(operation, outcome).Inc()
}

// RecordStreakUpdate counts a completed streak recomputation.
func RecordStreakUpdate() {
	streakUpdateCounter.Inc()
}
