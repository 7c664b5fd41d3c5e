// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/models"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := Open(&config.CatalogConfig{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore_Backups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)

	for i, status := range []models.BackupStatus{
		models.BackupStatusCompleted,
		models.BackupStatusFailed,
		models.BackupStatusCompleted,
	} {
		rec := &models.BackupRecord{
			ID:                 string(rune('a' + i)),
			BackupType:         models.BackupTypeFull,
			ScheduleID:         "nightly",
			Status:             status,
			StartedAt:          base.Add(time.Duration(i) * 24 * time.Hour),
			IncludedComponents: []string{models.ComponentDatabase},
		}
		if err := s.SaveBackup(ctx, rec); err != nil {
			t.Fatalf("SaveBackup() error = %v", err)
		}
	}

	got, err := s.GetBackup(ctx, "b")
	if err != nil {
		t.Fatalf("GetBackup() error = %v", err)
	}
	if got.Status != models.BackupStatusFailed || !got.StartedAt.Equal(base.Add(24*time.Hour)) {
		t.Errorf("GetBackup() = %+v", got)
	}

	if _, err := s.GetBackup(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBackup(missing) error = %v, want ErrNotFound", err)
	}

	all, err := s.ListBackups(ctx, models.BackupFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Errorf("ListBackups() order = %v, want newest first", ids(all))
	}

	completed, err := s.ListBackups(ctx, models.BackupFilter{Status: models.BackupStatusCompleted, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(completed) != 1 || completed[0].ID != "c" {
		t.Errorf("filtered = %v", ids(completed))
	}

	// Save replaces.
	got.Status = models.BackupStatusDeleted
	if err := s.SaveBackup(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, _ := s.GetBackup(ctx, "b")
	if again.Status != models.BackupStatusDeleted {
		t.Errorf("status after update = %s", again.Status)
	}
}

func ids(recs []*models.BackupRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestBadgerStore_Recoveries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	for i, id := range []string{"r1", "r2", "r3"} {
		rec := &models.RecoveryRecord{
			ID:               id,
			SourceBackupID:   "b1",
			RecoveryType:     models.RecoveryFull,
			Status:           models.RecoveryCompleted,
			StartedAt:        now.Add(time.Duration(i) * time.Minute),
			FailedComponents: map[string]string{},
		}
		if err := s.SaveRecovery(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetRecovery(ctx, "r2")
	if err != nil || got.SourceBackupID != "b1" {
		t.Fatalf("GetRecovery() = %+v, %v", got, err)
	}
	if _, err := s.GetRecovery(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRecovery(nope) error = %v", err)
	}

	list, err := s.ListRecoveries(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "r3" {
		t.Errorf("ListRecoveries(2) = %d records, first %s", len(list), list[0].ID)
	}
}

func TestBadgerStore_VerificationsScopedByBackup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	reports := []*models.VerificationReport{
		{ID: "v2", BackupID: "b1", Result: models.ResultWarning, StartedAt: now.Add(time.Minute)},
		{ID: "v1", BackupID: "b1", Result: models.ResultPassed, StartedAt: now},
		{ID: "v3", BackupID: "b10", Result: models.ResultFailed, StartedAt: now},
	}
	for _, r := range reports {
		if err := s.SaveVerification(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListVerifications(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "v1" || got[1].ID != "v2" {
		t.Errorf("ListVerifications(b1) = %+v", got)
	}
}

func TestBadgerStore_Cleanups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		rec := &models.CleanupRecord{ID: string(rune('x' + i)), RanAt: now.Add(time.Duration(i) * time.Hour), BackupsDeleted: i}
		if err := s.SaveCleanup(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.ListCleanups(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "z" {
		t.Errorf("ListCleanups() = %+v", got)
	}
}

func TestOpen_OnDiskPersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog")

	s, err := Open(&config.CatalogConfig{Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.SaveBackup(ctx, &models.BackupRecord{ID: "persisted", Status: models.BackupStatusCompleted}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(&config.CatalogConfig{Path: path})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.GetBackup(ctx, "persisted"); err != nil {
		t.Errorf("GetBackup() after reopen error = %v", err)
	}
}
