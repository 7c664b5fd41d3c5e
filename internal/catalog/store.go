// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package catalog

import (
	"context"
	"errors"

	"github.com/tomtom215/strongbox/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence contract used by the engines.
type Store interface {
	SaveBackup(ctx context.Context, rec *models.BackupRecord) error
	GetBackup(ctx context.Context, id string) (*models.BackupRecord, error)
	// ListBackups returns matching backups, newest first.
	ListBackups(ctx context.Context, filter models.BackupFilter) ([]*models.BackupRecord, error)

	SaveRecovery(ctx context.Context, rec *models.RecoveryRecord) error
	GetRecovery(ctx context.Context, id string) (*models.RecoveryRecord, error)
	// ListRecoveries returns recoveries, newest first. limit <= 0 returns all.
	ListRecoveries(ctx context.Context, limit int) ([]*models.RecoveryRecord, error)

	SaveVerification(ctx context.Context, rep *models.VerificationReport) error
	// ListVerifications returns the reports of one backup, oldest first.
	ListVerifications(ctx context.Context, backupID string) ([]*models.VerificationReport, error)

	SaveCleanup(ctx context.Context, rec *models.CleanupRecord) error
	// ListCleanups returns cleanup runs, newest first. limit <= 0 returns all.
	ListCleanups(ctx context.Context, limit int) ([]*models.CleanupRecord, error)

	Close() error
}
