// Package metrics exposes Prometheus counters for the gauntlet service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Custom registry to avoid the default Go runtime collectors.
var registry = prometheus.NewRegistry()

var (
	submissions = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "gauntlet",
		Name:      "submissions_total",
		Help:      "Answer submissions by level and result",
	}, []string{"level", "result"})

	phaseAttempts = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "gauntlet",
		Name:      "phase_attempts_total",
		Help:      "Phase engine attempts by phase and result",
	}, []string{"phase", "result"})

	rateLimited = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "gauntlet",
		Name:      "rate_limited_total",
		Help:      "Attempts rejected by the sliding-window rate limiter",
	})

	lockouts = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "gauntlet",
		Name:      "lockouts_total",
		Help:      "Cumulative-failure lockouts tripped",
	})

	suspiciousSpeed = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "gauntlet",
		Name:      "suspicious_speed_total",
		Help:      "Correct answers arriving faster than the plausibility threshold",
	})
)

func result(ok bool) string {
	if ok {
		return "correct"
	}
	return "incorrect"
}

// SubmissionRecorded counts one answer submission.
func SubmissionRecorded(level string, correct bool) {
	submissions.WithLabelValues(level, result(correct)).Inc()
}

// PhaseAttemptRecorded counts one phase engine attempt.
func PhaseAttemptRecorded(phase int, success bool) {
	phaseAttempts.WithLabelValues(strconv.Itoa(phase), result(success)).Inc()
}

// RateLimited counts one sliding-window rejection.
func RateLimited() { rateLimited.Inc() }

// LockoutTripped counts one lockout activation.
func LockoutTripped() { lockouts.Inc() }

// SuspiciousSpeed counts one advisory anti-cheat flag.
func SuspiciousSpeed() { suspiciousSpeed.Inc() }

// Handler serves the metrics endpoint for the custom registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
