// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package models

import "time"

// BackupType identifies why a backup exists.
type BackupType string

const (
	// BackupTypeFull is a regular backup of every declared component.
	BackupTypeFull BackupType = "full"
	// BackupTypePreRecovery is the safety snapshot taken before a recovery
	// mutates a live system. It has short retention.
	BackupTypePreRecovery BackupType = "pre_recovery"
)

// BackupStatus represents the lifecycle state of a backup run.
type BackupStatus string

const (
	BackupStatusPending   BackupStatus = "pending"
	BackupStatusRunning   BackupStatus = "running"
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
	BackupStatusCancelled BackupStatus = "cancelled"
	// BackupStatusDeleted marks a record whose artifact was removed by
	// retention. The row itself is kept for auditing.
	BackupStatusDeleted BackupStatus = "deleted"
)

// BackupTrigger identifies what started a backup.
type BackupTrigger string

const (
	TriggerScheduled   BackupTrigger = "scheduled"
	TriggerManual      BackupTrigger = "manual"
	TriggerPreRecovery BackupTrigger = "pre_recovery"
)

// VerificationStatus is the roll-up of the latest verification of a backup.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFailed   VerificationStatus = "failed"
)

// BackupRecord describes one backup run and the artifact it produced.
// StorageLocation and Checksum are only populated while Status is completed.
// A soft delete moves them to DeletedStorageLocation and DeletedChecksum.
type BackupRecord struct {
	ID                  string             `json:"backup_id"`
	BackupType          BackupType         `json:"backup_type"`
	Trigger             BackupTrigger      `json:"trigger"`
	ScheduleID          string             `json:"schedule_id,omitempty"`
	StorageBackendID    string             `json:"storage_backend_id"`
	Status              BackupStatus       `json:"status"`
	StartedAt           time.Time          `json:"started_at"`
	CompletedAt         *time.Time         `json:"completed_at,omitempty"`
	DurationSeconds     float64            `json:"duration_seconds"`
	SizeBytes           int64              `json:"size_bytes"`
	CompressedSizeBytes int64              `json:"compressed_size_bytes"`
	Checksum            string             `json:"checksum,omitempty"`
	StorageLocation     string             `json:"storage_location,omitempty"`
	ArtifactName        string             `json:"artifact_name,omitempty"`
	IncludedComponents  []string           `json:"included_components"`
	VerificationStatus  VerificationStatus `json:"verification_status"`
	VerifiedAt          *time.Time         `json:"verified_at,omitempty"`
	ErrorMessage        string             `json:"error_message,omitempty"`
	ExpiresAt           *time.Time         `json:"expires_at,omitempty"`
	DeletedAt           *time.Time         `json:"deleted_at,omitempty"`

	DeletedStorageLocation string `json:"deleted_storage_location,omitempty"`
	DeletedChecksum        string `json:"deleted_checksum,omitempty"`
}

// IsCompleted reports whether the backup finished successfully and still
// has an artifact.
func (b *BackupRecord) IsCompleted() bool {
	return b.Status == BackupStatusCompleted
}

// HasComponent reports whether the backup declared the named component.
func (b *BackupRecord) HasComponent(name string) bool {
	for _, c := range b.IncludedComponents {
		if c == name {
			return true
		}
	}
	return false
}

// MarkDeleted soft-deletes the record at t. The artifact coordinates are
// kept only in the Deleted* audit fields.
func (b *BackupRecord) MarkDeleted(t time.Time) {
	b.Status = BackupStatusDeleted
	b.DeletedAt = &t
	if b.StorageLocation != "" {
		b.DeletedStorageLocation = b.StorageLocation
	}
	if b.Checksum != "" {
		b.DeletedChecksum = b.Checksum
	}
	b.StorageLocation = ""
	b.Checksum = ""
}

// Age returns how old the backup is relative to now.
func (b *BackupRecord) Age(now time.Time) time.Duration {
	return now.Sub(b.StartedAt)
}

// Clone returns a deep copy so callers can mutate without racing readers.
func (b *BackupRecord) Clone() *BackupRecord {
	if b == nil {
		return nil
	}
	c := *b
	c.IncludedComponents = append([]string(nil), b.IncludedComponents...)
	c.CompletedAt = cloneTime(b.CompletedAt)
	c.VerifiedAt = cloneTime(b.VerifiedAt)
	c.ExpiresAt = cloneTime(b.ExpiresAt)
	c.DeletedAt = cloneTime(b.DeletedAt)
	return &c
}

// BackupFilter narrows ListBackups results. Zero values match everything.
type BackupFilter struct {
	Status     BackupStatus
	BackupType BackupType
	ScheduleID string
	Since      time.Time
	Until      time.Time
	Limit      int
}

// Matches reports whether b passes the filter.
func (f BackupFilter) Matches(b *BackupRecord) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.BackupType != "" && b.BackupType != f.BackupType {
		return false
	}
	if f.ScheduleID != "" && b.ScheduleID != f.ScheduleID {
		return false
	}
	if !f.Since.IsZero() && b.StartedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && b.StartedAt.After(f.Until) {
		return false
	}
	return true
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
