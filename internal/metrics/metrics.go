package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Quiz submissions by outcome ("passed", "failed", "rejected")
	QuizSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_quiz_submissions_total",
			Help: "Total number of quiz submissions processed",
		},
		[]string{"outcome"},
	)

	AchievementsUnlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_achievements_unlocked_total",
			Help: "Total number of achievements unlocked",
		},
		[]string{"trigger"},
	)

	LevelUps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_level_ups_total",
			Help: "Total number of level ups",
		},
	)

	// Aggregate writes that were dropped and only logged
	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_persistence_failures_total",
			Help: "Total number of aggregate writes that failed",
		},
		[]string{"flow"},
	)

	WriteConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_write_conflicts_total",
			Help: "Total number of optimistic write conflicts",
		},
	)

	FlowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "progression_flow_duration_seconds",
			Help:    "Duration of progression flows",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"flow"},
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "progression_ws_connections",
			Help: "Number of open websocket connections",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_events_published_total",
			Help: "Total number of progression events handed to notifiers",
		},
		[]string{"type", "status"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
