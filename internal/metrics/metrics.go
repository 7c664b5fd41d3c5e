// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backup Metrics
	BackupRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strongbox_backup_runs_total",
			Help: "Total number of backup runs by type and final status",
		},
		[]string{"type", "status"},
	)

	BackupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strongbox_backup_duration_seconds",
			Help:    "Duration of backup runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"type"},
	)

	BackupBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "strongbox_backup_bytes",
			Help: "Size of the most recent completed backup",
		},
		[]string{"kind"}, // "staged", "compressed"
	)

	// Verification Metrics
	VerificationResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strongbox_verification_results_total",
			Help: "Total number of verification runs by type and result",
		},
		[]string{"type", "result"},
	)

	CorruptionDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strongbox_corruption_detected_total",
			Help: "Total number of verifications that detected corruption",
		},
	)

	// Recovery Metrics
	RecoveryRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strongbox_recovery_runs_total",
			Help: "Total number of recovery runs by type and final status",
		},
		[]string{"type", "status"},
	)

	RecoveryActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "strongbox_recovery_active",
			Help: "Number of recoveries currently in flight",
		},
	)

	// Retention Metrics
	CleanupRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strongbox_cleanup_runs_total",
			Help: "Total number of retention cleanup runs",
		},
		[]string{"dry_run"},
	)

	CleanupDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strongbox_cleanup_deleted_total",
			Help: "Total number of backups soft-deleted by retention",
		},
	)

	CleanupFreedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strongbox_cleanup_freed_bytes_total",
			Help: "Total artifact bytes removed by retention",
		},
	)

	// Storage Metrics
	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strongbox_storage_operation_duration_seconds",
			Help:    "Duration of storage backend operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op", "result"},
	)

	StorageRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strongbox_storage_retries_total",
			Help: "Total number of retried storage operations",
		},
		[]string{"backend", "op"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Alert Metrics
	AlertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strongbox_alerts_published_total",
			Help: "Total number of alerts handed to the notifier",
		},
		[]string{"type", "severity"},
	)
)

// RecordBackup records a finished backup run.
func RecordBackup(backupType, status string, duration time.Duration, stagedBytes, compressedBytes int64) {
	BackupRuns.WithLabelValues(backupType, status).Inc()
	BackupDuration.WithLabelValues(backupType).Observe(duration.Seconds())
	if status == "completed" {
		BackupBytes.WithLabelValues("staged").Set(float64(stagedBytes))
		BackupBytes.WithLabelValues("compressed").Set(float64(compressedBytes))
	}
}

// RecordVerification records a finished verification.
func RecordVerification(verificationType, result string, corruption bool) {
	VerificationResults.WithLabelValues(verificationType, result).Inc()
	if corruption {
		CorruptionDetected.Inc()
	}
}

// RecordRecovery records a finished recovery.
func RecordRecovery(recoveryType, status string) {
	RecoveryRuns.WithLabelValues(recoveryType, status).Inc()
}

// TrackActiveRecovery increments or decrements the in-flight recovery gauge.
func TrackActiveRecovery(inc bool) {
	if inc {
		RecoveryActive.Inc()
	} else {
		RecoveryActive.Dec()
	}
}

// RecordCleanup records a retention run.
func RecordCleanup(dryRun bool, deleted int, freedBytes int64) {
	CleanupRuns.WithLabelValues(strconv.FormatBool(dryRun)).Inc()
	if dryRun {
		return
	}
	CleanupDeleted.Add(float64(deleted))
	CleanupFreedBytes.Add(float64(freedBytes))
}

// RecordStorageOperation records the latency of one storage call.
func RecordStorageOperation(backend, op string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	StorageOperationDuration.WithLabelValues(backend, op, result).Observe(duration.Seconds())
}

// RecordStorageRetry counts one retry of a storage call.
func RecordStorageRetry(backend, op string) {
	StorageRetries.WithLabelValues(backend, op).Inc()
}

// RecordAlert counts a published alert.
func RecordAlert(alertType, severity string) {
	AlertsPublished.WithLabelValues(alertType, severity).Inc()
}
