package roundmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RoundMetrics records round engine telemetry.
type RoundMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)

	RecordRoundCreated(ctx context.Context)
	RecordRoundCompleted(ctx context.Context, participants int)
	RecordContribution(ctx context.Context, amount int64)
	RecordConflictRetry(ctx context.Context, operation string)
}

// PrometheusMetrics implements RoundMetrics with Prometheus collectors.
type PrometheusMetrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	roundsCreated     prometheus.Counter
	roundsCompleted   prometheus.Counter
	roundSize         prometheus.Histogram
	contributions     prometheus.Counter
	contributionTotal prometheus.Counter
	conflictRetries   *prometheus.CounterVec
}

// NewPrometheus builds the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*PrometheusMetrics, error) {
	if namespace == "" {
		namespace = "pushup"
	}

	m := &PrometheusMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "operations_total",
			Help:      "Round service operations by outcome.",
		}, []string{"operation", "service", "outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "operation_duration_seconds",
			Help:      "Round service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		roundsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "created_total",
			Help:      "Rounds opened.",
		}),
		roundsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "completed_total",
			Help:      "Rounds completed.",
		}),
		roundSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "participants",
			Help:      "Participants per completed round.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		contributions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "contributions_total",
			Help:      "Contributions recorded.",
		}),
		contributionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "pushups_total",
			Help:      "Sum of contributed amounts.",
		}),
		conflictRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "round",
			Name:      "conflict_retries_total",
			Help:      "Concurrency conflicts retried.",
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{
		m.operations, m.operationDuration, m.roundsCreated, m.roundsCompleted,
		m.roundSize, m.contributions, m.contributionTotal, m.conflictRetries,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(operation, service, "attempt").Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(operation, service, "success").Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(operation, service, "failure").Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordRoundCreated(context.Context) {
	m.roundsCreated.Inc()
}

func (m *PrometheusMetrics) RecordRoundCompleted(_ context.Context, participants int) {
	m.roundsCompleted.Inc()
	m.roundSize.Observe(float64(participants))
}

func (m *PrometheusMetrics) RecordContribution(_ context.Context, amount int64) {
	m.contributions.Inc()
	m.contributionTotal.Add(float64(amount))
}

func (m *PrometheusMetrics) RecordConflictRetry(_ context.Context, operation string) {
	m.conflictRetries.WithLabelValues(operation).Inc()
}
