// Package metrics exposes the Prometheus collectors of the rewards service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gympoints"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Rewards engine operations by outcome.",
		},
		[]string{"op", "result"},
	)

	pointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "points_awarded_total",
			Help:      "Points credited to members.",
		},
		[]string{"source"},
	)

	pointsSpent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "points_spent_total",
			Help:      "Points debited by prize redemptions.",
		},
	)

	streaksReset = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "streaks_reset_total",
			Help:      "Stale streaks reset by the streak sweeper.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		operations,
		pointsAwarded,
		pointsSpent,
		streaksReset,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// HTTPStarted marks a request in flight; call the returned func when it completes.
func HTTPStarted() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// ObserveHTTP records one completed request. route should be the matched
// route template so label cardinality stays bounded.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveOperation counts an engine operation. result is "ok" or an error kind label.
func ObserveOperation(op, result string) {
	operations.WithLabelValues(op, result).Inc()
}

// AddPointsAwarded counts points credited from source ("checkin", "referral", "refund").
func AddPointsAwarded(source string, n int) {
	if n > 0 {
		pointsAwarded.WithLabelValues(source).Add(float64(n))
	}
}

// AddPointsSpent counts points debited by redemptions.
func AddPointsSpent(n int) {
	if n > 0 {
		pointsSpent.Add(float64(n))
	}
}

// AddStreaksReset counts streaks zeroed by one sweep.
func AddStreaksReset(n int64) {
	if n > 0 {
		streaksReset.Add(float64(n))
	}
}
