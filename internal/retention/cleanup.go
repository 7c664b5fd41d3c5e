// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package retention

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/strongbox/internal/catalog"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/metrics"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/notify"
	"github.com/tomtom215/strongbox/internal/storage"
)

// Cleanup run statuses.
const (
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed_with_errors"
)

// Result is returned by RunCleanup.
type Result struct {
	models.Result
	Cleanup *models.CleanupRecord
	Plan    *Plan
}

// Engine applies the configured retention policy.
type Engine struct {
	policy   models.RetentionPolicy
	store    catalog.Store
	backend  storage.Backend
	notifier notify.Notifier
	now      func() time.Time
}

// NewEngine validates policy and returns a cleanup engine.
func NewEngine(policy models.RetentionPolicy, store catalog.Store, backend storage.Backend) (*Engine, error) {
	if store == nil {
		return nil, faults.Configuration("catalog", "record store is required")
	}
	if backend == nil {
		return nil, faults.Configuration("storage", "storage backend is required")
	}
	if err := ValidatePolicy(policy); err != nil {
		return nil, err
	}
	return &Engine{
		policy:   policy,
		store:    store,
		backend:  backend,
		notifier: notify.Noop{},
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetNotifier sets the alert sink. A nil notifier disables alerts.
func (e *Engine) SetNotifier(n notify.Notifier) {
	if n == nil {
		n = notify.Noop{}
	}
	e.notifier = n
}

// Policy returns the configured policy.
func (e *Engine) Policy() models.RetentionPolicy {
	return e.policy
}

// Evaluate computes which backups policy keeps and deletes at now. Nothing
// is changed.
func (e *Engine) Evaluate(ctx context.Context, policy models.RetentionPolicy, now time.Time) (*Plan, error) {
	if err := ValidatePolicy(policy); err != nil {
		return nil, err
	}
	backups, err := e.store.ListBackups(ctx, models.BackupFilter{Status: models.BackupStatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	return evaluate(backups, policy, now), nil
}

// RunCleanup applies the configured policy. A dry run evaluates and records
// the plan without deleting anything.
func (e *Engine) RunCleanup(ctx context.Context, dryRun bool) (*Result, error) {
	now := e.now()
	ctx = logging.ContextWithNewCorrelationID(ctx)
	logger := logging.Ctx(ctx)

	plan, err := e.Evaluate(ctx, e.policy, now)
	if err != nil {
		if faults.IsConfiguration(err) {
			return nil, err
		}
		return &Result{Result: models.Result{Success: false, Status: StatusCompletedWithErrors, Error: err.Error()}}, nil
	}

	rec := &models.CleanupRecord{
		ID:               uuid.New().String(),
		RanAt:            now,
		DryRun:           dryRun,
		BackupsEvaluated: plan.Evaluated(),
		BackupsKept:      len(plan.Keep),
		DeletedBackupIDs: []string{},
	}

	if dryRun {
		rec.BackupsDeleted = len(plan.Delete)
		rec.DeletedBackupIDs = plan.DeleteIDs()
		rec.SpaceFreedBytes = plan.BytesToFree()
	} else {
		e.apply(ctx, plan, rec)
	}

	if err := e.store.SaveCleanup(context.WithoutCancel(ctx), rec); err != nil {
		logger.Error().Err(err).Msg("Failed to persist cleanup record")
	}
	metrics.RecordCleanup(dryRun, rec.BackupsDeleted, rec.SpaceFreedBytes)

	logger.Info().
		Bool("dry_run", dryRun).
		Int("evaluated", rec.BackupsEvaluated).
		Int("deleted", rec.BackupsDeleted).
		Int("kept", rec.BackupsKept).
		Int64("space_freed_bytes", rec.SpaceFreedBytes).
		Int("errors", len(rec.Errors)).
		Msg("Retention cleanup finished")

	res := &Result{
		Result:  models.Result{Success: true, Status: StatusCompleted},
		Cleanup: rec,
		Plan:    plan,
	}
	if len(rec.Errors) > 0 {
		res.Success = false
		res.Status = StatusCompletedWithErrors
		res.Error = fmt.Sprintf("%d backups could not be deleted", len(rec.Errors))
		e.alert(ctx, rec)
	}
	return res, nil
}

// apply deletes the planned backups. Failures are recorded per backup and
// the affected backups count as kept.
func (e *Engine) apply(ctx context.Context, plan *Plan, rec *models.CleanupRecord) {
	for _, d := range plan.Delete {
		if err := ctx.Err(); err != nil {
			rec.AddError(d.BackupID, err)
			continue
		}
		if err := e.deleteBackup(ctx, d.record); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("backup_id", d.BackupID).Msg("Failed to delete backup")
			rec.AddError(d.BackupID, err)
			continue
		}
		rec.BackupsDeleted++
		rec.SpaceFreedBytes += d.SizeBytes
		rec.DeletedBackupIDs = append(rec.DeletedBackupIDs, d.BackupID)
	}
	rec.BackupsKept = rec.BackupsEvaluated - rec.BackupsDeleted
}

// deleteBackup removes the artifact, then soft-deletes the record.
func (e *Engine) deleteBackup(ctx context.Context, b *models.BackupRecord) error {
	if b.StorageLocation != "" {
		if err := e.backend.Delete(ctx, b.StorageLocation); err != nil {
			return fmt.Errorf("delete artifact: %w", err)
		}
	}

	b = b.Clone()
	b.MarkDeleted(e.now())
	if err := e.store.SaveBackup(context.WithoutCancel(ctx), b); err != nil {
		return fmt.Errorf("mark backup deleted: %w", err)
	}
	return nil
}

func (e *Engine) alert(ctx context.Context, rec *models.CleanupRecord) {
	ids := make([]string, 0, len(rec.Errors))
	for id := range rec.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	notify.Send(ctx, e.notifier, models.Alert{
		AlertType: models.AlertCleanupErrors,
		Severity:  models.SeverityWarning,
		Title:     "Retention cleanup had errors",
		Message:   fmt.Sprintf("Could not delete %d backups: %s", len(ids), strings.Join(ids, ", ")),
		Metadata: map[string]interface{}{
			"cleanup_id": rec.ID,
			"deleted":    rec.BackupsDeleted,
			"errors":     rec.Errors,
		},
	})
}
