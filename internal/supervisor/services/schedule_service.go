// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/strongbox/internal/backup"
	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/retention"
	"github.com/tomtom215/strongbox/internal/verify"
)

// BackupRunner is satisfied by *backup.Engine.
type BackupRunner interface {
	CreateFullBackup(ctx context.Context, opts backup.Options) (*backup.Result, error)
	ListBackups(ctx context.Context, filter models.BackupFilter) ([]*models.BackupRecord, error)
}

// BackupVerifier is satisfied by *verify.Engine.
type BackupVerifier interface {
	VerifyBackup(ctx context.Context, backupID string, vt models.VerificationType, force bool) (*verify.Result, error)
}

// Cleaner is satisfied by *retention.Engine.
type Cleaner interface {
	RunCleanup(ctx context.Context, dryRun bool) (*retention.Result, error)
}

// ScheduleService triggers backups, verification and cleanup on intervals.
// A zero interval or a nil collaborator disables that job.
type ScheduleService struct {
	cfg      config.ScheduleConfig
	backups  BackupRunner
	verifier BackupVerifier
	cleaner  Cleaner
	name     string
}

// NewScheduleService returns the scheduler service.
func NewScheduleService(cfg config.ScheduleConfig, backups BackupRunner, verifier BackupVerifier, cleaner Cleaner) *ScheduleService {
	if cfg.VerifyType == "" {
		cfg.VerifyType = string(models.VerifyMetadataCheck)
	}
	return &ScheduleService{
		cfg:      cfg,
		backups:  backups,
		verifier: verifier,
		cleaner:  cleaner,
		name:     "backup-schedule",
	}
}

// Serve implements suture.Service. Job failures are logged and never end
// the service.
func (s *ScheduleService) Serve(ctx context.Context) error {
	backupTick := s.ticker(s.cfg.BackupInterval, s.backups != nil)
	verifyTick := s.ticker(s.cfg.VerifyInterval, s.backups != nil && s.verifier != nil)
	cleanupTick := s.ticker(s.cfg.CleanupInterval, s.cleaner != nil)
	defer backupTick.stop()
	defer verifyTick.stop()
	defer cleanupTick.stop()

	logging.Info().
		Str("schedule_id", s.cfg.ScheduleID).
		Dur("backup_interval", s.cfg.BackupInterval).
		Dur("verify_interval", s.cfg.VerifyInterval).
		Dur("cleanup_interval", s.cfg.CleanupInterval).
		Msg("Backup schedule started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-backupTick.c:
			s.logJob("backup", s.runBackup(ctx))
		case <-verifyTick.c:
			s.logJob("verify", s.runVerify(ctx))
		case <-cleanupTick.c:
			s.logJob("cleanup", s.runCleanup(ctx))
		}
	}
}

// RunOnce runs one backup, verifies it and applies retention. Every job
// runs even when an earlier one fails.
func (s *ScheduleService) RunOnce(ctx context.Context) error {
	var errs []error
	if s.backups != nil {
		errs = append(errs, s.runBackup(ctx))
		if s.verifier != nil {
			errs = append(errs, s.runVerify(ctx))
		}
	}
	if s.cleaner != nil {
		errs = append(errs, s.runCleanup(ctx))
	}
	return errors.Join(errs...)
}

// String implements fmt.Stringer for suture's logs.
func (s *ScheduleService) String() string {
	return s.name
}

func (s *ScheduleService) runBackup(ctx context.Context) error {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	res, err := s.backups.CreateFullBackup(ctx, backup.Options{
		Trigger:    models.TriggerScheduled,
		ScheduleID: s.cfg.ScheduleID,
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("backup %s: %s", res.Status, res.Error)
	}
	return nil
}

// runVerify verifies the newest completed backup of this schedule.
func (s *ScheduleService) runVerify(ctx context.Context) error {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	recs, err := s.backups.ListBackups(ctx, models.BackupFilter{
		Status:     models.BackupStatusCompleted,
		BackupType: models.BackupTypeFull,
		ScheduleID: s.cfg.ScheduleID,
		Limit:      1,
	})
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	if len(recs) == 0 {
		logging.Ctx(ctx).Debug().Msg("No completed backup to verify")
		return nil
	}

	res, err := s.verifier.VerifyBackup(ctx, recs[0].ID, models.VerificationType(s.cfg.VerifyType), false)
	if err != nil {
		return err
	}
	if res.Report != nil && res.Report.Result == models.ResultFailed {
		return fmt.Errorf("verification of %s failed", recs[0].ID)
	}
	return nil
}

func (s *ScheduleService) runCleanup(ctx context.Context) error {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	res, err := s.cleaner.RunCleanup(ctx, false)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("cleanup %s: %s", res.Status, res.Error)
	}
	return nil
}

func (s *ScheduleService) logJob(job string, err error) {
	if err != nil {
		logging.Warn().Err(err).Str("job", job).Msg("Scheduled job failed")
		return
	}
	logging.Debug().Str("job", job).Msg("Scheduled job finished")
}

// jobTicker is a ticker whose channel is nil when the job is disabled.
type jobTicker struct {
	t *time.Ticker
	c <-chan time.Time
}

func (s *ScheduleService) ticker(every time.Duration, enabled bool) jobTicker {
	if every <= 0 || !enabled {
		return jobTicker{}
	}
	t := time.NewTicker(every)
	return jobTicker{t: t, c: t.C}
}

func (j jobTicker) stop() {
	if j.t != nil {
		j.t.Stop()
	}
}
