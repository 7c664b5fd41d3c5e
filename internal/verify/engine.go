// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package verify

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

	"github.com/tomtom215/strongbox/internal/catalog"
	"github.com/tomtom215/strongbox/internal/codec"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/metrics"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/notify"
	"github.com/tomtom215/strongbox/internal/storage"
)

// Config holds verification settings.
type Config struct {
	// ScratchDir is the parent of per-run scratch directories. Empty uses
	// the system temp directory.
	ScratchDir string

	// Concurrency bounds VerifyMany.
	Concurrency int

	// SiblingWindow is the +/- window for cross-backup comparison.
	SiblingWindow time.Duration
}

// Compression ratio bounds for metadata_check.
const (
	minCompressionRatio = 0.1
	maxCompressionRatio = 10.0
)

// Sibling deviation thresholds for cross_backup_consistency.
const (
	maxSizeDeviation     = 0.5
	maxDurationDeviation = 1.0
)

// RestoreTester performs an isolated real restore of an extracted artifact.
type RestoreTester interface {
	TestRestore(ctx context.Context, backup *models.BackupRecord, extractDir string) error
}

// Engine verifies backups.
type Engine struct {
	cfg     Config
	store   catalog.Store
	backend storage.Backend
	codec   *codec.Codec

	tester   RestoreTester
	notifier notify.Notifier

	now func() time.Time
}

// Result is returned by VerifyBackup.
type Result struct {
	models.Result
	Report *models.VerificationReport
}

// NewEngine returns a verification engine.
func NewEngine(cfg Config, store catalog.Store, backend storage.Backend, c *codec.Codec) (*Engine, error) {
	switch {
	case store == nil:
		return nil, faults.Configuration("catalog", "record store is required")
	case backend == nil:
		return nil, faults.Configuration("storage", "storage backend is required")
	case c == nil:
		return nil, faults.Configuration("codec", "archive codec is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.SiblingWindow <= 0 {
		cfg.SiblingWindow = 7 * 24 * time.Hour
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		backend:  backend,
		codec:    c,
		notifier: notify.Noop{},
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetRestoreTester sets the hook used by full_restore_test.
func (e *Engine) SetRestoreTester(t RestoreTester) {
	e.tester = t
}

// SetNotifier sets the alert sink. A nil notifier disables alerts.
func (e *Engine) SetNotifier(n notify.Notifier) {
	if n == nil {
		n = notify.Noop{}
	}
	e.notifier = n
}

// History returns the verification reports of a backup, oldest first.
func (e *Engine) History(ctx context.Context, backupID string) ([]*models.VerificationReport, error) {
	return e.store.ListVerifications(ctx, backupID)
}

// VerifyBackup runs one verification strategy against a backup. The
// returned error is non-nil only for an unknown verification type or a
// backup that does not exist; every other outcome is in the report.
func (e *Engine) VerifyBackup(ctx context.Context, backupID string, vt models.VerificationType, force bool) (*Result, error) {
	if !vt.IsValid() {
		return nil, faults.Configuration("verification_type", fmt.Sprintf("unknown verification type %q", vt))
	}
	rec, err := e.store.GetBackup(ctx, backupID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, faults.Configuration("backup_id", fmt.Sprintf("backup %s does not exist", backupID))
		}
		return nil, fmt.Errorf("load backup %s: %w", backupID, err)
	}

	ctx = logging.ContextWithBackupID(ctx, backupID)
	rep := &models.VerificationReport{
		ID:               uuid.New().String(),
		BackupID:         backupID,
		VerificationType: vt,
		Result:           models.ResultInProgress,
		IssuesFound:      []string{},
		Warnings:         []string{},
		Recommendations:  []string{},
		StartedAt:        e.now(),
	}

	if reason := skipReason(rec, force); reason != "" {
		return e.skip(ctx, rep, reason), nil
	}

	logging.Ctx(ctx).Info().Str("verification_type", string(vt)).Bool("force", force).Msg("Verification started")

	e.runStrategy(ctx, rec, rep)
	rep.Aggregate()
	completed := e.now()
	rep.CompletedAt = &completed

	e.persist(ctx, rep)
	e.report(ctx, rec, rep)

	res := &Result{
		Result: models.Result{Success: rep.Result != models.ResultFailed, Status: string(rep.Result)},
		Report: rep,
	}
	if rep.Result == models.ResultFailed {
		res.Error = strings.Join(rep.IssuesFound, "; ")
	}
	return res, nil
}

// skipReason explains why a backup cannot be verified, or returns "".
func skipReason(rec *models.BackupRecord, force bool) string {
	if rec.Status == models.BackupStatusDeleted {
		return "backup was deleted by retention"
	}
	if rec.StorageLocation == "" {
		return fmt.Sprintf("backup has no stored artifact (status %s)", rec.Status)
	}
	if !force && rec.Status != models.BackupStatusCompleted {
		return fmt.Sprintf("backup status is %s, not completed", rec.Status)
	}
	return ""
}

func (e *Engine) skip(ctx context.Context, rep *models.VerificationReport, reason string) *Result {
	rep.Result = models.ResultSkipped
	rep.AddRecommendation("Verification skipped: " + reason)
	completed := e.now()
	rep.CompletedAt = &completed

	if err := e.store.SaveVerification(context.WithoutCancel(ctx), rep); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to persist skipped verification")
	}
	metrics.RecordVerification(string(rep.VerificationType), string(rep.Result), false)
	logging.Ctx(ctx).Info().Str("reason", reason).Msg("Verification skipped")

	return &Result{
		Result: models.Result{Success: false, Status: string(rep.Result), Error: reason},
		Report: rep,
	}
}

// runStrategy executes vt inside a scratch directory that is always removed.
func (e *Engine) runStrategy(ctx context.Context, rec *models.BackupRecord, rep *models.VerificationReport) {
	scratch, err := os.MkdirTemp(e.cfg.ScratchDir, "strongbox-verify-*")
	if err != nil {
		rep.AddIssue(fmt.Sprintf("Cannot create scratch directory: %v", err))
		return
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("dir", scratch).Msg("Failed to remove scratch directory")
		}
	}()

	s := &run{engine: e, rec: rec, rep: rep, scratch: scratch}
	switch rep.VerificationType {
	case models.VerifyChecksumOnly:
		s.checksumOnly(ctx)
	case models.VerifyMetadataCheck:
		s.metadataCheck(ctx)
	case models.VerifyPartialRestore:
		s.partialRestore(ctx)
	case models.VerifyContentValidation:
		s.contentValidation(ctx)
	case models.VerifyFullRestoreTest:
		s.fullRestoreTest(ctx)
	case models.VerifyCrossBackupConsistency:
		s.crossBackupConsistency(ctx)
	}
}

// persist stores the report and folds its outcome into the backup record.
func (e *Engine) persist(ctx context.Context, rep *models.VerificationReport) {
	pctx := context.WithoutCancel(ctx)
	if err := e.store.SaveVerification(pctx, rep); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to persist verification report")
	}

	// Re-read so a concurrent verification of the same backup does not
	// overwrite unrelated fields.
	rec, err := e.store.GetBackup(pctx, rep.BackupID)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to reload backup for verification status")
		return
	}
	if rep.Result == models.ResultFailed {
		rec.VerificationStatus = models.VerificationFailed
	} else {
		rec.VerificationStatus = models.VerificationVerified
	}
	rec.VerifiedAt = rep.CompletedAt
	if err := e.store.SaveBackup(pctx, rec); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to update backup verification status")
	}
}

// report records metrics, logs the outcome and emits alerts.
func (e *Engine) report(ctx context.Context, rec *models.BackupRecord, rep *models.VerificationReport) {
	metrics.RecordVerification(string(rep.VerificationType), string(rep.Result), rep.CorruptionDetected)

	event := logging.Ctx(ctx).Info()
	if rep.Result == models.ResultFailed {
		event = logging.Ctx(ctx).Warn()
	}
	event.
		Str("verification_type", string(rep.VerificationType)).
		Str("result", string(rep.Result)).
		Bool("corruption_detected", rep.CorruptionDetected).
		Int("issues", len(rep.IssuesFound)).
		Int("warnings", len(rep.Warnings)).
		Msg("Verification finished")

	meta := map[string]interface{}{
		"backup_id":         rec.ID,
		"verification_id":   rep.ID,
		"verification_type": string(rep.VerificationType),
		"issues":            rep.IssuesFound,
	}
	switch {
	case rep.CorruptionDetected:
		notify.Send(ctx, e.notifier, models.Alert{
			AlertType: models.AlertCorruptionDetected,
			Severity:  models.SeverityCritical,
			Title:     "Backup corruption detected",
			Message:   fmt.Sprintf("Backup %s failed %s verification: %s", rec.ID, rep.VerificationType, strings.Join(rep.IssuesFound, "; ")),
			Metadata:  meta,
		})
	case rep.Result == models.ResultFailed:
		notify.Send(ctx, e.notifier, models.Alert{
			AlertType: models.AlertVerificationFailed,
			Severity:  models.SeverityWarning,
			Title:     "Backup verification failed",
			Message:   fmt.Sprintf("Backup %s failed %s verification: %s", rec.ID, rep.VerificationType, strings.Join(rep.IssuesFound, "; ")),
			Metadata:  meta,
		})
	}
}

// artifactFileName is the local name the artifact is downloaded to. The
// codec derives the decode chain from it.
func artifactFileName(rec *models.BackupRecord) string {
	if rec.ArtifactName != "" {
		return rec.ArtifactName
	}
	return path.Base(filepath.ToSlash(rec.StorageLocation))
}
