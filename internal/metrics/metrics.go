package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svstudio",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svstudio",
			Name:      "booking_submissions_total",
			Help:      "Count of booking submissions by outcome.",
		},
		[]string{"outcome"},
	)

	storeFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svstudio",
			Name:      "store_fallback_total",
			Help:      "Count of booking store operations served by the local cache.",
		},
		[]string{"operation"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svstudio",
			Name:      "notifications_total",
			Help:      "Count of notification attempts by channel and status.",
		},
		[]string{"channel", "status"},
	)

	calendarLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "svstudio",
			Name:      "calendar_request_duration_seconds",
			Help:      "Latency of shared calendar calls.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"call"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingSubmissions, storeFallbacks, notifications, calendarLatency)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingSubmission(outcome string) {
	bookingSubmissions.WithLabelValues(outcome).Inc()
}

func IncStoreFallback(operation string) {
	storeFallbacks.WithLabelValues(operation).Inc()
}

func IncNotification(channel, status string) {
	notifications.WithLabelValues(channel, status).Inc()
}

func ObserveCalendar(call string, seconds float64) {
	calendarLatency.WithLabelValues(call).Observe(seconds)
}
