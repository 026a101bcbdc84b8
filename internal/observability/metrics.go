package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gpiolink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gpiolink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	resetOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gpiolink",
			Subsystem: "bus",
			Name:      "reset_outcomes_total",
			Help:      "Master reset negotiation outcomes.",
		},
		[]string{"role", "outcome"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gpiolink",
			Subsystem: "bus",
			Name:      "frames_sent_total",
			Help:      "Frames transmitted, by acknowledgement result.",
		},
		[]string{"role", "result"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gpiolink",
			Subsystem: "bus",
			Name:      "frames_received_total",
			Help:      "Frames received, by validation result.",
		},
		[]string{"role", "result"},
	)
	lineErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gpiolink",
			Subsystem: "bus",
			Name:      "line_errors_total",
			Help:      "Line control failures inside the bus worker.",
		},
		[]string{"role"},
	)
	outboxDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gpiolink",
			Subsystem: "link",
			Name:      "outbox_depth",
			Help:      "Messages waiting to be sent.",
		},
	)
	inboxUnread = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gpiolink",
			Subsystem: "link",
			Name:      "inbox_unread",
			Help:      "1 while a received message has not been taken.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			resetOutcomes,
			framesSent,
			framesReceived,
			lineErrors,
			outboxDepth,
			inboxUnread,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordReset(role, outcome string) {
	RegisterMetrics()
	resetOutcomes.WithLabelValues(role, outcome).Inc()
}

func RecordFrameSent(role string, acked bool) {
	RegisterMetrics()
	result := "acked"
	if !acked {
		result = "unconfirmed"
	}
	framesSent.WithLabelValues(role, result).Inc()
}

func RecordFrameReceived(role, result string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(role, result).Inc()
}

func RecordLineError(role string) {
	RegisterMetrics()
	lineErrors.WithLabelValues(role).Inc()
}

func SetOutboxDepth(n int) {
	RegisterMetrics()
	outboxDepth.Set(float64(n))
}

func SetInboxUnread(unread bool) {
	RegisterMetrics()
	v := 0.0
	if unread {
		v = 1
	}
	inboxUnread.Set(v)
}
