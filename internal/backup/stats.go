// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package backup

import (
	"context"
	"time"

	"github.com/tomtom215/strongbox/internal/models"
)

// Stats summarizes the backup catalog.
type Stats struct {
	// Total number of backup records, including failed and deleted ones
	TotalCount int `json:"total_count"`

	// Breakdown by type
	CountByType map[models.BackupType]int `json:"count_by_type"`

	// Breakdown by status
	CountByStatus map[models.BackupStatus]int `json:"count_by_status"`

	// Storage used by artifacts that still exist
	StoredBytes int64 `json:"stored_bytes"`

	// Average compressed size of completed backups
	AverageBackupSize int64 `json:"average_backup_size"`

	// Average duration of completed backups
	AverageDuration time.Duration `json:"average_duration"`

	// SuccessRate is completed / finished runs, as a percentage
	SuccessRate float64 `json:"success_rate"`

	OldestBackup *time.Time `json:"oldest_backup,omitempty"`
	NewestBackup *time.Time `json:"newest_backup,omitempty"`

	// LastSuccessful is the newest completed backup
	LastSuccessful *models.BackupRecord `json:"last_successful,omitempty"`

	// Unverified counts completed backups whose verification is pending
	Unverified int `json:"unverified"`
}

// Stats computes catalog statistics.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	backups, err := e.store.ListBackups(ctx, models.BackupFilter{})
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		CountByType:   make(map[models.BackupType]int),
		CountByStatus: make(map[models.BackupStatus]int),
	}

	var totalDuration float64
	var completed, finished int
	for _, b := range backups {
		stats.TotalCount++
		stats.CountByType[b.BackupType]++
		stats.CountByStatus[b.Status]++

		switch b.Status {
		case models.BackupStatusCompleted:
			completed++
			finished++
			totalDuration += b.DurationSeconds
			stats.StoredBytes += b.CompressedSizeBytes
			if b.VerificationStatus == models.VerificationPending {
				stats.Unverified++
			}
			if stats.LastSuccessful == nil || b.StartedAt.After(stats.LastSuccessful.StartedAt) {
				stats.LastSuccessful = b
			}
		case models.BackupStatusFailed:
			finished++
		case models.BackupStatusDeleted:
			completed++
			finished++
		}

		updateOldestNewest(stats, b)
	}

	if n := stats.CountByStatus[models.BackupStatusCompleted]; n > 0 {
		stats.AverageDuration = time.Duration(totalDuration / float64(n) * float64(time.Second))
		stats.AverageBackupSize = stats.StoredBytes / int64(n)
	}
	if finished > 0 {
		stats.SuccessRate = float64(completed) / float64(finished) * 100
	}
	return stats, nil
}

// updateOldestNewest tracks the oldest and newest backups
func updateOldestNewest(stats *Stats, b *models.BackupRecord) {
	started := b.StartedAt
	if stats.OldestBackup == nil || started.Before(*stats.OldestBackup) {
		stats.OldestBackup = &started
	}
	if stats.NewestBackup == nil || started.After(*stats.NewestBackup) {
		stats.NewestBackup = &started
	}
}
