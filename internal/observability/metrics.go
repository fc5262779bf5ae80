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
			Namespace: "tlmdecode",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tlmdecode",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
	decodedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tlmdecode",
			Subsystem: "decode",
			Name:      "messages_total",
			Help:      "Labeled messages produced.",
		},
		[]string{"pipeline", "type"},
	)
	decodeSignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tlmdecode",
			Subsystem: "decode",
			Name:      "signals_total",
			Help:      "Out-of-band decode signals such as checksum failures and dropped frames.",
		},
		[]string{"pipeline", "kind"},
	)
	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tlmdecode",
			Subsystem: "decode",
			Name:      "run_duration_seconds",
			Help:      "Time spent decoding one input unit: a capture, a log file or a request body.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"pipeline", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, decodedMessages, decodeSignals, decodeDuration)
	})
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordMessage(pipeline, typeName string) {
	RegisterMetrics()
	decodedMessages.WithLabelValues(pipeline, typeName).Inc()
}

func RecordSignal(pipeline, kind string) {
	RegisterMetrics()
	decodeSignals.WithLabelValues(pipeline, kind).Inc()
}

func RecordDecodeRun(pipeline string, duration time.Duration, success bool) {
	RegisterMetrics()
	decodeDuration.WithLabelValues(pipeline, strconv.FormatBool(success)).Observe(duration.Seconds())
}
