// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-splitsecret.
//
// go-splitsecret is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for split and recover
// runs. Metrics live in their own Registry so a one-shot CLI run can export
// them to a node-exporter textfile without colliding with the exporter's
// own Go runtime metrics.
package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all splitsecret metrics
	Namespace = "splitsecret"

	// Label names
	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelBackend   = "backend"
	LabelReason    = "reason"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpGenerate = "generate"
	OpRecover  = "recover"
	OpSplit    = "split"
	OpCombine  = "combine"
	OpInspect  = "inspect"

	// Shard rejection reasons
	ReasonParse        = "parse"
	ReasonIncompatible = "incompatible"
	ReasonDuplicate    = "duplicate"
)

var (
	// Registry holds every splitsecret metric.
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	// OperationsTotal tracks operations by type and status.
	OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of splitsecret operations by type and status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	// OperationDuration tracks the duration of operations in seconds.
	OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of splitsecret operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{LabelOperation},
	)

	// GenerationAttempts records how many random matrices a split drew
	// before every threshold subset was invertible.
	GenerationAttempts = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "generation_attempts",
			Help:      "Random matrices drawn per successful split",
			Buckets:   []float64{1, 2, 3, 5, 10, 25, 50, 100},
		},
	)

	// SingularMatricesTotal counts generated systems rejected as singular.
	SingularMatricesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "singular_matrices_total",
			Help:      "Total number of generated systems rejected as singular",
		},
	)

	// ShardsWrittenTotal counts shards persisted, by storage backend.
	ShardsWrittenTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "shards_written_total",
			Help:      "Total number of shards written by storage backend",
		},
		[]string{LabelBackend},
	)

	// ShardsRejectedTotal counts shards skipped during recovery.
	ShardsRejectedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "shards_rejected_total",
			Help:      "Total number of shards skipped during recovery by reason",
		},
		[]string{LabelReason},
	)

	// LastRunTimestamp records when each operation last finished.
	LastRunTimestamp = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the operation last finished, by status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records an operation with its duration and status.
//
// Example:
//
//	start := time.Now()
//	err := s.Generate(ctx, req)
//	metrics.RecordOperation(metrics.OpGenerate, metrics.Status(err), time.Since(start).Seconds())
func RecordOperation(operation, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration)
	LastRunTimestamp.WithLabelValues(operation, status).SetToCurrentTime()
}

// RecordAttempts records the number of matrices drawn by one split.
func RecordAttempts(attempts int) {
	if !enabled.Load() {
		return
	}
	GenerationAttempts.Observe(float64(attempts))
}

// RecordSingularMatrix counts one rejected system.
func RecordSingularMatrix() {
	if !enabled.Load() {
		return
	}
	SingularMatricesTotal.Inc()
}

// RecordShardWritten counts one shard written to backend.
func RecordShardWritten(backend string) {
	if !enabled.Load() {
		return
	}
	ShardsWrittenTotal.WithLabelValues(backend).Inc()
}

// RecordShardRejected counts one shard skipped during recovery.
func RecordShardRejected(reason string) {
	if !enabled.Load() {
		return
	}
	ShardsRejectedTotal.WithLabelValues(reason).Inc()
}

// Status maps an error to StatusSuccess or StatusError.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// WriteTextfile writes the current metrics to path in the text exposition
// format, atomically, for the node-exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Reset clears every metric. Intended for tests.
func Reset() {
	OperationsTotal.Reset()
	OperationDuration.Reset()
	ShardsWrittenTotal.Reset()
	ShardsRejectedTotal.Reset()
	LastRunTimestamp.Reset()
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
