// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package recovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/strongbox/internal/backup"
	"github.com/tomtom215/strongbox/internal/codec"
	"github.com/tomtom215/strongbox/internal/components"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/metrics"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/notify"
)

// StartRecovery validates req and runs the recovery to a terminal state.
// The returned error is non-nil only for a configuration problem found
// before any record was persisted; every other outcome is reported through
// Result.
func (e *Engine) StartRecovery(ctx context.Context, req Request) (*Result, error) {
	p, err := e.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	rec := &models.RecoveryRecord{
		ID:                uuid.New().String(),
		SourceBackupID:    p.source.ID,
		RecoveryType:      req.RecoveryType,
		Target:            p.target.Name,
		Status:            models.RecoveryPending,
		RestoreComponents: p.components,
		Warnings:          p.warnings,
		StartedAt:         e.now(),
	}
	if req.TargetTime != nil {
		t := req.TargetTime.UTC()
		rec.TargetTime = &t
	}

	runCtx, cancel := context.WithCancelCause(logging.ContextWithRecoveryID(ctx, rec.ID))
	defer cancel(nil)

	a := &active{rec: rec, cancel: cancel}
	if err := e.store.SaveRecovery(ctx, rec.Clone()); err != nil {
		return &Result{
			Result:   models.Result{Success: false, Status: string(models.RecoveryFailed), Error: err.Error()},
			Recovery: rec.Clone(),
			Err:      err,
		}, nil
	}
	e.registry.add(a)
	metrics.TrackActiveRecovery(true)
	defer metrics.TrackActiveRecovery(false)

	logging.Ctx(runCtx).Info().
		Str("source_backup_id", rec.SourceBackupID).
		Str("recovery_type", string(rec.RecoveryType)).
		Str("target", rec.Target).
		Strs("components", rec.RestoreComponents).
		Msg("Recovery started")

	runErr := e.run(runCtx, a, p, req)
	return e.finish(runCtx, a, runErr), nil
}

// run drives the state machine from preparing up to validating.
func (e *Engine) run(ctx context.Context, a *active, p *plan, req Request) error {
	if err := e.transition(ctx, a, models.RecoveryPreparing); err != nil {
		return err
	}

	release, err := e.locks.acquire(ctx, p.target.Name)
	if err != nil {
		return fmt.Errorf("wait for target %s: %w", p.target.Name, err)
	}
	defer release()

	if req.CreateBackupBeforeRestore {
		if p.target.Live {
			if err := e.safetyBackup(ctx, a, p); err != nil {
				return err
			}
		} else {
			logging.Ctx(ctx).Debug().Str("target", p.target.Name).Msg("Skipping safety backup for new-system target")
		}
	}

	scratch, err := os.MkdirTemp(e.cfg.ScratchDir, "strongbox-recovery-*")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("dir", scratch).Msg("Failed to remove scratch directory")
		}
	}()

	if err := e.transition(ctx, a, models.RecoveryDownloading); err != nil {
		return err
	}
	artifact, err := e.download(ctx, p.source, scratch)
	if err != nil {
		return err
	}

	if err := e.transition(ctx, a, models.RecoveryExtracting); err != nil {
		return err
	}
	extractDir := filepath.Join(scratch, "extract")
	if _, err := e.codec.Decode(ctx, artifact, extractDir); err != nil {
		return fmt.Errorf("extract artifact: %w", err)
	}
	if err := os.Remove(artifact); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Failed to remove downloaded artifact early")
	}

	if err := e.transition(ctx, a, models.RecoveryRestoring); err != nil {
		return err
	}

	// Restoring and validating run to completion once started.
	applyCtx := context.WithoutCancel(ctx)
	if err := e.restore(applyCtx, a, p, extractDir); err != nil {
		return err
	}

	if err := e.transition(applyCtx, a, models.RecoveryValidating); err != nil {
		return err
	}
	if req.ValidateAfterRestore {
		return e.validateTarget(applyCtx, a, p.target)
	}
	return nil
}

// transition moves the recovery to status. A pending cancellation wins over
// the move while the current status is still cancellable.
func (e *Engine) transition(ctx context.Context, a *active, status models.RecoveryStatus) error {
	a.mu.Lock()
	if err := ctx.Err(); err != nil && a.rec.Status.IsCancellable() {
		a.mu.Unlock()
		return err
	}
	from := a.rec.Status
	a.rec.Status = status
	snapshot := a.rec.Clone()
	a.mu.Unlock()

	if err := e.store.SaveRecovery(context.WithoutCancel(ctx), snapshot); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("status", string(status)).Msg("Failed to persist recovery status")
	}
	logging.Ctx(ctx).Debug().
		Str("from", string(from)).
		Str("to", string(status)).
		Msg("Recovery status changed")
	return nil
}

func (a *active) update(fn func(rec *models.RecoveryRecord)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.rec)
}

// safetyBackup snapshots the components about to be overwritten.
func (e *Engine) safetyBackup(ctx context.Context, a *active, p *plan) error {
	res, err := e.backups.CreateBackup(ctx, backup.Options{
		BackupType: models.BackupTypePreRecovery,
		Components: p.components,
	})
	if err != nil {
		return fmt.Errorf("pre-recovery backup failed: %w", err)
	}
	if res.Backup != nil {
		a.update(func(rec *models.RecoveryRecord) { rec.PreRecoveryBackupID = res.Backup.ID })
	}
	if !res.Success {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("pre-recovery backup failed: %s", res.Error)
	}

	logging.Ctx(ctx).Info().Str("pre_recovery_backup_id", res.Backup.ID).Msg("Pre-recovery backup completed")
	return nil
}

// download fetches the source artifact into dir and checks its checksum.
func (e *Engine) download(ctx context.Context, src *models.BackupRecord, dir string) (string, error) {
	name := src.ArtifactName
	if name == "" {
		name = path.Base(filepath.ToSlash(src.StorageLocation))
	}
	dest := filepath.Join(dir, name)

	if err := e.backend.Download(ctx, src.StorageLocation, dest, src.CompressedSizeBytes); err != nil {
		return "", fmt.Errorf("download artifact: %w", err)
	}

	sum, _, err := codec.FileChecksum(dest)
	if err != nil {
		return "", fmt.Errorf("checksum artifact: %w", err)
	}
	if src.Checksum != "" && sum != src.Checksum {
		return "", faults.Integrity("download", fmt.Sprintf("checksum mismatch: expected %s, got %s", src.Checksum, sum), nil)
	}
	return dest, nil
}

// restore applies components in order and stops at the first failure.
func (e *Engine) restore(ctx context.Context, a *active, p *plan, extractDir string) error {
	comps, err := p.target.Registry.Resolve(p.components)
	if err != nil {
		return err
	}

	var restored []string
	for _, comp := range comps {
		start := time.Now()
		if err := e.restoreComponent(ctx, comp, filepath.Join(extractDir, comp.Name())); err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("component", comp.Name()).Msg("Component restore failed")
			a.update(func(rec *models.RecoveryRecord) {
				if rec.FailedComponents == nil {
					rec.FailedComponents = make(map[string]string)
				}
				rec.FailedComponents[comp.Name()] = err.Error()
			})
			return &faults.PartialFailureError{
				Restored: restored,
				Failed:   map[string]string{comp.Name(): err.Error()},
			}
		}

		restored = append(restored, comp.Name())
		snapshot := func() *models.RecoveryRecord {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.rec.RestoredComponents = append(a.rec.RestoredComponents, comp.Name())
			return a.rec.Clone()
		}()
		if err := e.store.SaveRecovery(ctx, snapshot); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to persist recovery progress")
		}

		logging.Ctx(ctx).Info().
			Str("component", comp.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("Component restored")
	}
	return nil
}

func (e *Engine) restoreComponent(ctx context.Context, comp components.Component, dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return faults.Integrity("restore", fmt.Sprintf("artifact has no data for %s", comp.Name()), err)
	}

	if e.cfg.RestoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RestoreTimeout)
		defer cancel()
	}
	err = comp.Restore(ctx, dir)
	if errors.Is(err, context.DeadlineExceeded) || (err != nil && ctx.Err() == context.DeadlineExceeded) {
		return faults.Transport("restore "+comp.Name(), fmt.Errorf("exceeded %s: %w", e.cfg.RestoreTimeout, err))
	}
	return err
}

// validateTarget runs every probe of the target. All must pass.
func (e *Engine) validateTarget(ctx context.Context, a *active, target Target) error {
	results := make([]models.ProbeResult, 0, len(target.Probers))
	var failed []string
	for _, pr := range target.Probers {
		results = append(results, e.probe(ctx, pr))
		if !results[len(results)-1].Passed {
			failed = append(failed, pr.Name())
		}
	}
	a.update(func(rec *models.RecoveryRecord) { rec.ValidationResults = results })

	if len(failed) > 0 {
		return fmt.Errorf("post-restore validation failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

func (e *Engine) probe(ctx context.Context, pr components.Prober) models.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	err := pr.Probe(ctx)
	res := models.ProbeResult{
		Name:       pr.Name(),
		Passed:     err == nil,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		res.Message = err.Error()
	} else {
		res.Message = "ok"
	}
	return res
}

// finish records the terminal state, drops the registry entry and alerts.
func (e *Engine) finish(ctx context.Context, a *active, runErr error) *Result {
	persistCtx := context.WithoutCancel(ctx)

	rec := func() *models.RecoveryRecord {
		a.mu.Lock()
		defer a.mu.Unlock()

		status := models.RecoveryCompleted
		switch {
		case runErr == nil:
		case errors.Is(runErr, context.Canceled),
			ctx.Err() != nil && a.rec.Status.IsCancellable():
			status = models.RecoveryCancelled
		default:
			status = models.RecoveryFailed
		}

		completed := e.now()
		a.rec.Status = status
		a.rec.CompletedAt = &completed
		if runErr != nil {
			a.rec.ErrorMessage = runErr.Error()
			if status == models.RecoveryCancelled {
				if cause := context.Cause(ctx); errors.Is(cause, errCancelRequested) {
					a.rec.ErrorMessage = cause.Error()
				}
			}
		}
		return a.rec.Clone()
	}()

	if err := e.store.SaveRecovery(persistCtx, rec); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to persist recovery record")
	}
	e.registry.remove(rec.ID)
	status := rec.Status
	metrics.RecordRecovery(string(rec.RecoveryType), string(status))

	logger := logging.Ctx(ctx)
	switch status {
	case models.RecoveryCompleted:
		logger.Info().
			Strs("restored", rec.RestoredComponents).
			Str("pre_recovery_backup_id", rec.PreRecoveryBackupID).
			Msg("Recovery completed")
	case models.RecoveryCancelled:
		logger.Warn().Str("reason", rec.ErrorMessage).Msg("Recovery cancelled")
	default:
		_, partial := faults.AsPartialFailure(runErr)
		logger.Error().Err(runErr).
			Bool("partial", partial).
			Bool("integrity", faults.IsIntegrity(runErr)).
			Strs("restored", rec.RestoredComponents).
			Msg("Recovery failed")
	}

	e.alert(persistCtx, rec)

	return &Result{
		Result:   models.Result{Success: status == models.RecoveryCompleted, Status: string(status), Error: rec.ErrorMessage},
		Recovery: rec.Clone(),
		Err:      runErr,
	}
}

func (e *Engine) alert(ctx context.Context, rec *models.RecoveryRecord) {
	meta := map[string]interface{}{
		"recovery_id":      rec.ID,
		"source_backup_id": rec.SourceBackupID,
		"recovery_type":    string(rec.RecoveryType),
		"target":           rec.Target,
		"restored":         rec.RestoredComponents,
	}

	switch rec.Status {
	case models.RecoveryFailed:
		if len(rec.FailedComponents) > 0 {
			meta["failed"] = rec.FailedComponents
		}
		notify.Send(ctx, e.notifier, models.Alert{
			AlertType: models.AlertRecoveryFailed,
			Severity:  models.SeverityCritical,
			Title:     "Recovery failed",
			Message:   rec.ErrorMessage,
			Metadata:  meta,
		})
	case models.RecoveryCompleted:
		if rec.PreRecoveryBackupID != "" {
			meta["pre_recovery_backup_id"] = rec.PreRecoveryBackupID
		}
		notify.Send(ctx, e.notifier, models.Alert{
			AlertType: models.AlertRecoveryCompleted,
			Severity:  models.SeverityInfo,
			Title:     "Recovery completed",
			Message:   fmt.Sprintf("Restored %s from backup %s", strings.Join(rec.RestoredComponents, ", "), rec.SourceBackupID),
			Metadata:  meta,
		})
	}
}
