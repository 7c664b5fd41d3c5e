// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and
are exposed by the metrics HTTP service at /metrics:

	curl http://localhost:9464/metrics

# Available Metrics

Backups:
  - strongbox_backup_runs_total{type, status}
  - strongbox_backup_duration_seconds{type}
  - strongbox_backup_bytes{kind} (staged, compressed)

Verification:
  - strongbox_verification_results_total{type, result}
  - strongbox_corruption_detected_total

Recovery:
  - strongbox_recovery_runs_total{type, status}
  - strongbox_recovery_active

Retention:
  - strongbox_cleanup_runs_total{dry_run}
  - strongbox_cleanup_deleted_total
  - strongbox_cleanup_freed_bytes_total

Storage:
  - strongbox_storage_operation_duration_seconds{backend, op, result}
  - strongbox_storage_retries_total{backend, op}
  - circuit_breaker_state{name}
  - circuit_breaker_requests_total{name, result}
  - circuit_breaker_consecutive_failures{name}
  - circuit_breaker_state_transitions_total{name, from_state, to_state}

Alerts:
  - strongbox_alerts_published_total{type, severity}
*/
package metrics
