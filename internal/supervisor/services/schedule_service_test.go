// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/strongbox/internal/backup"
	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/retention"
	"github.com/tomtom215/strongbox/internal/verify"
)

type fakeJobs struct {
	mu         sync.Mutex
	backupOpts []backup.Options
	verified   []string
	vtypes     []models.VerificationType
	cleanups   int
	filters    []models.BackupFilter

	backupFails bool
	newest      []*models.BackupRecord
}

func (f *fakeJobs) CreateFullBackup(_ context.Context, opts backup.Options) (*backup.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backupOpts = append(f.backupOpts, opts)
	if f.backupFails {
		return &backup.Result{Result: models.Result{Success: false, Status: "failed", Error: "dump failed"}}, nil
	}
	return &backup.Result{Result: models.Result{Success: true, Status: "completed"}}, nil
}

func (f *fakeJobs) ListBackups(_ context.Context, filter models.BackupFilter) ([]*models.BackupRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.newest, nil
}

func (f *fakeJobs) VerifyBackup(_ context.Context, id string, vt models.VerificationType, _ bool) (*verify.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, id)
	f.vtypes = append(f.vtypes, vt)
	return &verify.Result{
		Result: models.Result{Success: true, Status: string(models.ResultPassed)},
		Report: &models.VerificationReport{Result: models.ResultPassed},
	}, nil
}

func (f *fakeJobs) RunCleanup(context.Context, bool) (*retention.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups++
	return &retention.Result{Result: models.Result{Success: true, Status: retention.StatusCompleted}}, nil
}

func (f *fakeJobs) counts() (backups, verifies, cleanups int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.backupOpts), len(f.verified), f.cleanups
}

var _ suture.Service = (*ScheduleService)(nil)

func TestScheduleService_RunOnce(t *testing.T) {
	jobs := &fakeJobs{newest: []*models.BackupRecord{{ID: "b-newest"}}}
	svc := NewScheduleService(config.ScheduleConfig{ScheduleID: "nightly", VerifyType: "checksum_only"}, jobs, jobs, jobs)

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(jobs.backupOpts) != 1 {
		t.Fatalf("backups = %d", len(jobs.backupOpts))
	}
	opts := jobs.backupOpts[0]
	if opts.Trigger != models.TriggerScheduled || opts.ScheduleID != "nightly" {
		t.Errorf("backup options = %+v", opts)
	}
	if len(jobs.verified) != 1 || jobs.verified[0] != "b-newest" || jobs.vtypes[0] != models.VerifyChecksumOnly {
		t.Errorf("verified %v with %v", jobs.verified, jobs.vtypes)
	}
	f := jobs.filters[0]
	if f.ScheduleID != "nightly" || f.Status != models.BackupStatusCompleted || f.Limit != 1 {
		t.Errorf("verify filter = %+v", f)
	}
	if jobs.cleanups != 1 {
		t.Errorf("cleanups = %d", jobs.cleanups)
	}
}

func TestScheduleService_RunOnceContinuesAfterFailure(t *testing.T) {
	jobs := &fakeJobs{backupFails: true}
	svc := NewScheduleService(config.ScheduleConfig{}, jobs, jobs, jobs)

	err := svc.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected backup failure to be reported")
	}
	if _, _, cleanups := jobs.counts(); cleanups != 1 {
		t.Error("cleanup skipped after backup failure")
	}
	// Nothing to verify is not an error.
	if len(jobs.verified) != 0 {
		t.Errorf("verified %v with no completed backups", jobs.verified)
	}
}

func TestScheduleService_DefaultVerifyType(t *testing.T) {
	svc := NewScheduleService(config.ScheduleConfig{}, nil, nil, nil)
	if svc.cfg.VerifyType != string(models.VerifyMetadataCheck) {
		t.Errorf("VerifyType = %s", svc.cfg.VerifyType)
	}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Errorf("RunOnce with no collaborators: %v", err)
	}
}

func TestScheduleService_Serve(t *testing.T) {
	jobs := &fakeJobs{newest: []*models.BackupRecord{{ID: "b-1"}}}
	svc := NewScheduleService(config.ScheduleConfig{
		BackupInterval:  10 * time.Millisecond,
		CleanupInterval: 10 * time.Millisecond,
	}, jobs, jobs, jobs)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b, _, c := jobs.counts()
		if b >= 2 && c >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v", err)
	}
	b, v, c := jobs.counts()
	if b < 2 || c < 2 {
		t.Errorf("backups=%d cleanups=%d, want repeated runs", b, c)
	}
	if v != 0 {
		t.Errorf("verify ran %d times with a zero interval", v)
	}
}
