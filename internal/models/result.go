// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package models

// Result is the envelope every engine operation returns. Status carries the
// record status as a string so one type serves backups, verifications,
// recoveries and cleanups.
type Result struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Severity levels for alerts.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert types emitted by the engines.
const (
	AlertBackupFailed       = "backup_failed"
	AlertVerificationFailed = "verification_failed"
	AlertCorruptionDetected = "corruption_detected"
	AlertRecoveryFailed     = "recovery_failed"
	AlertRecoveryCompleted  = "recovery_completed"
	AlertCleanupErrors      = "cleanup_errors"
)

// Alert is the structured payload handed to the notification collaborator.
type Alert struct {
	AlertType string                 `json:"alert_type"`
	Severity  string                 `json:"severity"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
