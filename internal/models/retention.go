// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package models

import "time"

// RetentionPolicy defines the tiered retention rules applied by cleanup.
type RetentionPolicy struct {
	RetentionDays            int `json:"retention_days" koanf:"retention_days" validate:"gte=0"`
	MinBackupsToKeep         int `json:"min_backups_to_keep" koanf:"min_backups_to_keep" validate:"gte=0"`
	KeepDailyForDays         int `json:"keep_daily_for_days" koanf:"keep_daily_for_days" validate:"gte=0"`
	KeepWeeklyForWeeks       int `json:"keep_weekly_for_weeks" koanf:"keep_weekly_for_weeks" validate:"gte=0"`
	KeepMonthlyForMonths     int `json:"keep_monthly_for_months" koanf:"keep_monthly_for_months" validate:"gte=0"`
	KeepYearlyForYears       int `json:"keep_yearly_for_years" koanf:"keep_yearly_for_years" validate:"gte=0"`
	PreRecoveryRetentionDays int `json:"pre_recovery_retention_days" koanf:"pre_recovery_retention_days" validate:"gte=0"`
}

// DefaultRetentionPolicy returns the policy used when none is configured.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		RetentionDays:            30,
		MinBackupsToKeep:         3,
		KeepDailyForDays:         7,
		KeepWeeklyForWeeks:       4,
		KeepMonthlyForMonths:     6,
		KeepYearlyForYears:       1,
		PreRecoveryRetentionDays: 7,
	}
}

// CleanupRecord summarizes one retention cleanup run.
type CleanupRecord struct {
	ID               string            `json:"cleanup_id"`
	RanAt            time.Time         `json:"ran_at"`
	DryRun           bool              `json:"dry_run"`
	BackupsEvaluated int               `json:"backups_evaluated"`
	BackupsDeleted   int               `json:"backups_deleted"`
	BackupsKept      int               `json:"backups_kept"`
	SpaceFreedBytes  int64             `json:"space_freed_bytes"`
	DeletedBackupIDs []string          `json:"deleted_backup_ids"`
	Errors           map[string]string `json:"errors,omitempty"`
}

// AddError records why a backup could not be deleted.
func (c *CleanupRecord) AddError(backupID string, err error) {
	if c.Errors == nil {
		c.Errors = make(map[string]string)
	}
	c.Errors[backupID] = err.Error()
}
