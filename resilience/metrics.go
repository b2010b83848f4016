package resilience

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess   = "success"
	resultPermanent = "permanent"
	resultExhausted = "exhausted"
	resultDeadline  = "deadline"
	resultCanceled  = "canceled"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing
type Metrics struct {
	attempts    *prometheus.CounterVec
	invocations *prometheus.CounterVec
	backoff     *prometheus.HistogramVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the pipeline collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cnbrates",
				Subsystem: "resilience",
				Name:      "attempts_total",
				Help:      "Total number of attempts of wrapped remote calls",
			},
			[]string{"operation", "attempt", "outcome"},
		),
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cnbrates",
				Subsystem: "resilience",
				Name:      "invocations_total",
				Help:      "Total number of pipeline invocations, by terminal result",
			},
			[]string{"operation", "result"},
		),
		backoff: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cnbrates",
				Subsystem: "resilience",
				Name:      "backoff_seconds",
				Help:      "Computed backoff waits between attempts",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 20, 30},
			},
			[]string{"operation"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cnbrates",
				Subsystem: "resilience",
				Name:      "invocation_duration_seconds",
				Help:      "Total duration of pipeline invocations, attempts and waits included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		),
	}
}

func (m *Metrics) recordAttempt(operation string, attempt int, outcome string) {
	if m == nil {
		return
	}

	m.attempts.WithLabelValues(operation, strconv.Itoa(attempt), outcome).Inc()
}

func (m *Metrics) recordBackoff(operation string, d time.Duration) {
	if m == nil {
		return
	}

	m.backoff.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) recordInvocation(operation, result string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.invocations.WithLabelValues(operation, result).Inc()
	m.duration.WithLabelValues(operation, result).Observe(elapsed.Seconds())
}
