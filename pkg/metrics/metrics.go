package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Ride lifecycle
	RideTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_transitions_total",
			Help: "Committed ride status changes by target status",
		},
		[]string{"status"},
	)

	RideOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_operation_errors_total",
			Help: "Failed ride operations by operation and reason",
		},
		[]string{"operation", "reason"},
	)

	TxRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transaction_retries_total",
			Help: "Whole-transaction retries caused by write conflicts",
		},
	)

	RatingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_total",
			Help: "Ratings folded into user aggregates",
		},
		[]string{"role", "value"},
	)

	ExpiredRidesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rides_expired_total",
			Help: "Searching rides cancelled by the expiry policy",
		},
	)

	// Live views
	LiveViewsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "live_views",
			Help: "Current number of open live views",
		},
		[]string{"kind"},
	)

	WebSocketConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"service"},
	)

	// Brokers
	BrokerMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_published_total",
			Help: "Messages published to RabbitMQ or Kafka",
		},
		[]string{"broker", "destination", "status"},
	)

	BrokerMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_consumed_total",
			Help: "Messages consumed from RabbitMQ or Kafka",
		},
		[]string{"broker", "destination", "status"},
	)

	// External APIs
	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_call_duration_seconds",
			Help:    "Latency of calls to third-party APIs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint", "status"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// RecordTransition counts a committed ride status change.
func RecordTransition(status string) {
	RideTransitionsTotal.WithLabelValues(status).Inc()
}

// RecordRideError counts a failed ride operation. reason must come from a
// bounded set (the domain error kinds).
func RecordRideError(operation, reason string) {
	RideOperationErrors.WithLabelValues(operation, reason).Inc()
}

// RecordRating counts a folded rating.
func RecordRating(role string, value int) {
	RatingsTotal.WithLabelValues(role, strconv.Itoa(value)).Inc()
}

// RecordPublish records a broker publish
func RecordPublish(broker, destination string, err error) {
	BrokerMessagesPublished.WithLabelValues(broker, destination, status(err)).Inc()
}

// RecordConsume records a broker consume
func RecordConsume(broker, destination string, err error) {
	BrokerMessagesConsumed.WithLabelValues(broker, destination, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordExternalCall records one call to a third-party API.
func RecordExternalCall(service, endpoint string, err error, duration time.Duration) {
	ExternalCallDuration.WithLabelValues(service, endpoint, status(err)).Observe(duration.Seconds())
}
