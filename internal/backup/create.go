// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/strongbox/internal/codec"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/metrics"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/notify"
)

// CreateFullBackup backs up every configured component.
func (e *Engine) CreateFullBackup(ctx context.Context, opts Options) (*Result, error) {
	opts.BackupType = models.BackupTypeFull
	opts.Components = nil
	return e.CreateBackup(ctx, opts)
}

// CreateBackup runs one backup. The returned error is non-nil only for a
// configuration problem found before any record was persisted; every other
// outcome is reported through Result.
func (e *Engine) CreateBackup(ctx context.Context, opts Options) (*Result, error) {
	opts, err := e.normalize(opts)
	if err != nil {
		return nil, err
	}

	now := e.now()
	rec := &models.BackupRecord{
		ID:                 uuid.New().String(),
		BackupType:         opts.BackupType,
		Trigger:            opts.Trigger,
		ScheduleID:         opts.ScheduleID,
		StorageBackendID:   e.backend.ID(),
		Status:             models.BackupStatusRunning,
		StartedAt:          now,
		IncludedComponents: append([]string(nil), opts.Components...),
		VerificationStatus: models.VerificationPending,
	}
	if opts.BackupType == models.BackupTypePreRecovery {
		expires := now.Add(e.cfg.PreRecoveryRetention)
		rec.ExpiresAt = &expires
	}

	ctx = logging.ContextWithBackupID(ctx, rec.ID)
	logger := logging.Ctx(ctx)

	if err := e.store.SaveBackup(ctx, rec); err != nil {
		return &Result{
			Result: models.Result{Success: false, Status: string(models.BackupStatusFailed), Error: err.Error()},
		}, nil
	}

	logger.Info().
		Str("backup_type", string(rec.BackupType)).
		Str("trigger", string(rec.Trigger)).
		Strs("components", rec.IncludedComponents).
		Msg("Backup started")

	art, runErr := e.run(ctx, rec)
	if runErr != nil {
		return e.fail(ctx, rec, runErr), nil
	}

	completed := e.now()
	rec.Status = models.BackupStatusCompleted
	rec.CompletedAt = &completed
	rec.DurationSeconds = completed.Sub(rec.StartedAt).Seconds()
	rec.SizeBytes = art.SizeBytes
	rec.CompressedSizeBytes = art.CompressedSizeBytes
	rec.Checksum = art.Checksum
	rec.ArtifactName = art.Name
	rec.StorageLocation = art.location

	if err := e.store.SaveBackup(context.WithoutCancel(ctx), rec); err != nil {
		// The artifact is uploaded but unrecorded; drop it so nothing
		// unaccounted for stays in storage.
		if delErr := e.backend.Delete(context.WithoutCancel(ctx), rec.StorageLocation); delErr != nil {
			logger.Warn().Err(delErr).Str("location", rec.StorageLocation).Msg("Failed to remove unrecorded artifact")
		}
		rec.StorageLocation = ""
		rec.Checksum = ""
		return e.fail(ctx, rec, fmt.Errorf("persist completed backup: %w", err)), nil
	}

	metrics.RecordBackup(string(rec.BackupType), string(rec.Status),
		time.Duration(rec.DurationSeconds*float64(time.Second)), rec.SizeBytes, rec.CompressedSizeBytes)

	logger.Info().
		Int64("size_bytes", rec.SizeBytes).
		Int64("compressed_size_bytes", rec.CompressedSizeBytes).
		Str("checksum", rec.Checksum).
		Str("location", rec.StorageLocation).
		Float64("duration_seconds", rec.DurationSeconds).
		Msg("Backup completed")

	res := &Result{
		Result: models.Result{Success: true, Status: string(rec.Status)},
		Backup: rec.Clone(),
	}

	if e.verifyRequested(opts) {
		e.verifyInline(ctx, res)
	}
	return res, nil
}

// encoded is an uploaded artifact.
type encoded struct {
	*codec.Artifact
	location string
}

// run performs the staging, encoding and upload steps. The staging tree
// and the local artifact are removed before it returns.
func (e *Engine) run(ctx context.Context, rec *models.BackupRecord) (*encoded, error) {
	workDir, err := os.MkdirTemp(e.cfg.StagingDir, "strongbox-backup-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("dir", workDir).Msg("Failed to remove staging directory")
		}
	}()

	stageDir := filepath.Join(workDir, "stage")
	outDir := filepath.Join(workDir, "out")
	for _, dir := range []string{stageDir, outDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create staging directory: %w", err)
		}
	}

	if err := e.stage(ctx, stageDir, rec); err != nil {
		return nil, err
	}

	art, err := e.codec.Encode(ctx, stageDir, outDir, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}

	location, err := e.backend.Upload(ctx, art.Path)
	if err != nil {
		return nil, fmt.Errorf("upload artifact: %w", err)
	}
	return &encoded{Artifact: art, location: location}, nil
}

// fail records a failed or cancelled run and emits an alert.
func (e *Engine) fail(ctx context.Context, rec *models.BackupRecord, runErr error) *Result {
	persistCtx := context.WithoutCancel(ctx)

	status := models.BackupStatusFailed
	if errors.Is(runErr, context.Canceled) {
		status = models.BackupStatusCancelled
	}

	completed := e.now()
	rec.Status = status
	rec.CompletedAt = &completed
	rec.DurationSeconds = completed.Sub(rec.StartedAt).Seconds()
	rec.ErrorMessage = runErr.Error()
	rec.StorageLocation = ""
	rec.Checksum = ""

	if err := e.store.SaveBackup(persistCtx, rec); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to persist failed backup record")
	}

	metrics.RecordBackup(string(rec.BackupType), string(status),
		time.Duration(rec.DurationSeconds*float64(time.Second)), 0, 0)

	logging.Ctx(ctx).Error().Err(runErr).
		Str("status", string(status)).
		Bool("transport", faults.IsTransport(runErr)).
		Msg("Backup failed")

	if status == models.BackupStatusFailed {
		notify.Send(persistCtx, e.notifier, models.Alert{
			AlertType: models.AlertBackupFailed,
			Severity:  models.SeverityCritical,
			Title:     "Backup failed",
			Message:   rec.ErrorMessage,
			Metadata: map[string]interface{}{
				"backup_id":   rec.ID,
				"backup_type": string(rec.BackupType),
				"components":  rec.IncludedComponents,
			},
		})
	}

	return &Result{
		Result: models.Result{Success: false, Status: string(status), Error: rec.ErrorMessage},
		Backup: rec.Clone(),
	}
}

// verifyInline runs checksum_only verification and folds the report into res.
func (e *Engine) verifyInline(ctx context.Context, res *Result) {
	if e.verifier == nil {
		logging.Ctx(ctx).Warn().Msg("Integrity verification requested but no verifier is configured")
		return
	}

	vr, err := e.verifier.VerifyBackup(ctx, res.Backup.ID, models.VerifyChecksumOnly, false)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Inline verification could not run")
		return
	}
	res.Verification = vr.Report

	if updated, err := e.store.GetBackup(ctx, res.Backup.ID); err == nil {
		res.Backup = updated
	}
	if vr.Report != nil && vr.Report.Result == models.ResultFailed {
		res.Success = false
		res.Error = "inline checksum verification failed"
	}
}
