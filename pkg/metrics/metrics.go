package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of domain events handed to the bus, by outcome (count)",
		},
		[]string{"service", "topic", "status"},
	)

	ConsumerMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_messages_total",
			Help: "Total number of consumed messages by terminal dispatch state (count)",
		},
		[]string{"service", "topic", "state", "reason"},
	)

	ConsumerHandleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consumer_handle_duration_ms",
			Help:    "Time from fetch to commit of one message in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "topic"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of handler retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages forwarded to the overflow topic (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Total number of cache-aside lookups by result (count)",
		},
		[]string{"cache", "result"},
	)

	CacheInvalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Total number of cache invalidations by trigger and outcome (count)",
		},
		[]string{"trigger", "status"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of comment notifications by outcome (count)",
		},
		[]string{"outcome"},
	)

	EmailsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total number of emails attempted by status (count)",
		},
		[]string{"status"},
	)

	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_websocket_connections",
			Help: "Number of open notification stream connections (count)",
		},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"database", "operation", "status"},
	)
)

var registerOnce sync.Once

// Register registers every collector with the default registry. Safe to call from each service.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EventsPublishedTotal,
			ConsumerMessagesTotal,
			ConsumerHandleDuration,
			RetryAttemptsTotal,
			DLQMessagesTotal,
			CacheRequestsTotal,
			CacheInvalidationsTotal,
			NotificationsTotal,
			EmailsSentTotal,
			WebSocketConnections,
			CircuitBreakerState,
			CircuitBreakerRequests,
			CircuitBreakerFailures,
			RateLimitRequestsTotal,
			DatabaseQueryDuration,
		)
	})
}

func IncEventPublished(service, topic, status string) {
	EventsPublishedTotal.WithLabelValues(service, topic, status).Inc()
}

func IncConsumerMessage(service, topic, state, reason string) {
	ConsumerMessagesTotal.WithLabelValues(service, topic, state, reason).Inc()
}

func ObserveConsumerHandleDuration(service, topic string, duration time.Duration) {
	ConsumerHandleDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncCacheRequest(cache, result string) {
	CacheRequestsTotal.WithLabelValues(cache, result).Inc()
}

func IncCacheInvalidation(trigger, status string) {
	CacheInvalidationsTotal.WithLabelValues(trigger, status).Inc()
}

func IncNotification(outcome string) {
	NotificationsTotal.WithLabelValues(outcome).Inc()
}

func IncEmailSent(status string) {
	EmailsSentTotal.WithLabelValues(status).Inc()
}

func ObserveDatabaseQuery(database, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseQueryDuration.WithLabelValues(database, operation, status).Observe(float64(time.Since(start).Milliseconds()))
}
