// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package models

import "time"

// RecoveryType selects which components a recovery restores.
type RecoveryType string

const (
	RecoveryFull              RecoveryType = "full"
	RecoveryDatabaseOnly      RecoveryType = "database_only"
	RecoveryFilesOnly         RecoveryType = "files_only"
	RecoveryConfigurationOnly RecoveryType = "configuration_only"
	RecoverySelective         RecoveryType = "selective"
	RecoveryPointInTime       RecoveryType = "point_in_time"
)

// IsValid reports whether t is a known recovery type.
func (t RecoveryType) IsValid() bool {
	switch t {
	case RecoveryFull, RecoveryDatabaseOnly, RecoveryFilesOnly,
		RecoveryConfigurationOnly, RecoverySelective, RecoveryPointInTime:
		return true
	}
	return false
}

// RecoveryStatus is a state in the recovery state machine.
type RecoveryStatus string

const (
	RecoveryPending     RecoveryStatus = "pending"
	RecoveryPreparing   RecoveryStatus = "preparing"
	RecoveryDownloading RecoveryStatus = "downloading"
	RecoveryExtracting  RecoveryStatus = "extracting"
	RecoveryRestoring   RecoveryStatus = "restoring"
	RecoveryValidating  RecoveryStatus = "validating"
	RecoveryCompleted   RecoveryStatus = "completed"
	RecoveryFailed      RecoveryStatus = "failed"
	RecoveryCancelled   RecoveryStatus = "cancelled"
)

// IsTerminal reports whether the recovery has finished.
func (s RecoveryStatus) IsTerminal() bool {
	return s == RecoveryCompleted || s == RecoveryFailed || s == RecoveryCancelled
}

// IsCancellable reports whether a recovery in this state may be cancelled.
// Once restoring starts, the live system is being mutated and the run must
// finish or fail on its own.
func (s RecoveryStatus) IsCancellable() bool {
	switch s {
	case RecoveryPending, RecoveryPreparing, RecoveryDownloading, RecoveryExtracting:
		return true
	}
	return false
}

// ProbeResult is the outcome of one post-restore health probe.
type ProbeResult struct {
	Name       string  `json:"name"`
	Passed     bool    `json:"passed"`
	Message    string  `json:"message,omitempty"`
	DurationMs float64 `json:"duration_ms"`
}

// RecoveryRecord describes one recovery run. It is owned by the recovery
// engine for its whole lifetime.
type RecoveryRecord struct {
	ID                  string            `json:"recovery_id"`
	SourceBackupID      string            `json:"source_backup_id"`
	RecoveryType        RecoveryType      `json:"recovery_type"`
	Target              string            `json:"target"`
	Status              RecoveryStatus    `json:"status"`
	RestoreComponents   []string          `json:"restore_components"`
	RestoredComponents  []string          `json:"restored_components"`
	FailedComponents    map[string]string `json:"failed_components,omitempty"`
	PreRecoveryBackupID string            `json:"pre_recovery_backup_id,omitempty"`
	TargetTime          *time.Time        `json:"target_time,omitempty"`
	ValidationResults   []ProbeResult     `json:"validation_results,omitempty"`
	Warnings            []string          `json:"warnings,omitempty"`
	ErrorMessage        string            `json:"error_message,omitempty"`
	StartedAt           time.Time         `json:"started_at"`
	CompletedAt         *time.Time        `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *RecoveryRecord) Clone() *RecoveryRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.RestoreComponents = append([]string(nil), r.RestoreComponents...)
	c.RestoredComponents = append([]string(nil), r.RestoredComponents...)
	c.ValidationResults = append([]ProbeResult(nil), r.ValidationResults...)
	c.Warnings = append([]string(nil), r.Warnings...)
	if r.FailedComponents != nil {
		c.FailedComponents = make(map[string]string, len(r.FailedComponents))
		for k, v := range r.FailedComponents {
			c.FailedComponents[k] = v
		}
	}
	c.TargetTime = cloneTime(r.TargetTime)
	c.CompletedAt = cloneTime(r.CompletedAt)
	return &c
}
