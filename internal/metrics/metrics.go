package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cinemad"

var (
	once sync.Once

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_operations_total",
			Help:      "Count of booking operations by operation, status and outcome.",
		},
		[]string{"operation", "status", "outcome"},
	)

	seatConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seat_conflicts_total",
			Help:      "Count of booking attempts rejected because a seat was already held.",
		},
	)

	sweptBookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_total",
			Help:      "Count of rows changed by background jobs.",
		},
		[]string{"job"},
	)

	publishedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_total",
			Help:      "Count of lifecycle events handed to the broker by type and result.",
		},
		[]string{"type", "result"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route, method and status code.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(operations, seatConflicts, sweptBookings, publishedEvents, httpDuration)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncOperation(operation string, status string, outcome string) {
	operations.WithLabelValues(operation, status, outcome).Inc()
}

func IncSeatConflict() {
	seatConflicts.Inc()
}

func AddSwept(job string, count int) {
	if count <= 0 {
		return
	}
	sweptBookings.WithLabelValues(job).Add(float64(count))
}

func IncPublished(eventType string, result string) {
	publishedEvents.WithLabelValues(eventType, result).Inc()
}

func ObserveHTTP(route string, method string, code int, elapsed time.Duration) {
	httpDuration.WithLabelValues(route, method, strconv.Itoa(code)).Observe(elapsed.Seconds())
}
