package gateway

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts gateway operations.
	// Labels: operation (store, search, delete), result (ok, validation_error,
	// provisioning_error, engine_error, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vectorgate",
			Subsystem: "gateway",
			Name:      "operations_total",
			Help:      "Total gateway operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	// OperationDuration tracks operation latency including engine calls.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vectorgate",
			Subsystem: "gateway",
			Name:      "operation_duration_seconds",
			Help:      "Duration of gateway operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// DegradedResultsTotal counts search hits that had no original_id.
	DegradedResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vectorgate",
			Subsystem: "gateway",
			Name:      "degraded_results_total",
			Help:      "Search hits returned under their internal id because original_id was missing",
		},
	)

	// CollectionsCreatedTotal counts collections created by this process.
	CollectionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vectorgate",
			Subsystem: "gateway",
			Name:      "collections_created_total",
			Help:      "Collections created on first reference",
		},
	)

	// SearchLimitClampedTotal counts searches whose limit exceeded the maximum.
	SearchLimitClampedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vectorgate",
			Subsystem: "gateway",
			Name:      "search_limit_clamped_total",
			Help:      "Searches whose requested limit was reduced to the maximum",
		},
	)
)

func observeOperation(op string, start time.Time, err error) {
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	OperationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrProvisioning):
		return "provisioning_error"
	case errors.Is(err, ErrEngine):
		return "engine_error"
	default:
		return "error"
	}
}
