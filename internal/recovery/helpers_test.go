// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package recovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/strongbox/internal/backup"
	"github.com/tomtom215/strongbox/internal/catalog"
	"github.com/tomtom215/strongbox/internal/codec"
	"github.com/tomtom215/strongbox/internal/components"
	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/storage"
)

const stateFile = "state.dat"

// stateComponent keeps its live data in memory. Dump writes it to a file and
// Restore reads it back.
type stateComponent struct {
	name string

	mu         sync.Mutex
	data       []byte
	dumpErr    error
	restoreErr error
	restores   int

	// gate, when set, blocks Restore until closed. entered is closed when
	// Restore starts waiting.
	gate    chan struct{}
	entered chan struct{}
}

func newStateComponent(name, data string) *stateComponent {
	return &stateComponent{name: name, data: []byte(data)}
}

func (s *stateComponent) Name() string { return s.name }

func (s *stateComponent) Version(context.Context) (string, error) { return "1.0", nil }

func (s *stateComponent) Dump(_ context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dumpErr != nil {
		return s.dumpErr
	}
	return os.WriteFile(filepath.Join(dir, stateFile), s.data, 0o640)
}

func (s *stateComponent) Restore(ctx context.Context, dir string) error {
	s.mu.Lock()
	gate, entered := s.gate, s.entered
	s.mu.Unlock()

	if gate != nil {
		close(entered)
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.restores++
	if s.restoreErr != nil {
		return s.restoreErr
	}
	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		return err
	}
	s.data = data
	return nil
}

func (s *stateComponent) set(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = []byte(data)
}

func (s *stateComponent) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.data)
}

func (s *stateComponent) restoreCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restores
}

type fakeProber struct {
	name string
	err  error
}

func (p fakeProber) Name() string                { return p.name }
func (p fakeProber) Probe(context.Context) error { return p.err }

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (r *recordingNotifier) Notify(_ context.Context, a models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.alerts))
	for _, a := range r.alerts {
		out = append(out, a.AlertType)
	}
	return out
}

// testEnv wires a backup engine and a recovery engine over the same live
// components, plus a separate new-system target.
type testEnv struct {
	store   *catalog.BadgerStore
	backend *storage.LocalBackend
	backups *backup.Engine
	engine  *Engine
	alerts  *recordingNotifier

	db, cache, files *stateComponent
	fresh            map[string]*stateComponent
}

func newTestEnv(t *testing.T, probers ...components.Prober) *testEnv {
	t.Helper()

	env := &testEnv{
		db:    newStateComponent(models.ComponentDatabase, "db-v1"),
		cache: newStateComponent(models.ComponentCache, "cache-v1"),
		files: newStateComponent(models.ComponentFiles, "files-v1"),
		fresh: map[string]*stateComponent{},
	}

	live, err := components.NewRegistry(env.db, env.cache, env.files)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	freshComps := make([]components.Component, 0, 3)
	for _, name := range []string{models.ComponentDatabase, models.ComponentCache, models.ComponentFiles} {
		c := newStateComponent(name, "")
		env.fresh[name] = c
		freshComps = append(freshComps, c)
	}
	fresh, err := components.NewRegistry(freshComps...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	env.store, err = catalog.Open(&config.CatalogConfig{InMemory: true})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	t.Cleanup(func() { _ = env.store.Close() })

	env.backend, err = storage.NewLocalBackend("local-test", filepath.Join(t.TempDir(), "artifacts"))
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	c, err := codec.New(codec.Options{Compression: codec.CompressionGzip})
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	env.backups, err = backup.NewEngine(backup.Config{
		Components:  []string{models.ComponentDatabase, models.ComponentCache, models.ComponentFiles},
		StagingDir:  t.TempDir(),
		DumpTimeout: 5 * time.Second,
	}, env.store, env.backend, c, live)
	if err != nil {
		t.Fatalf("backup.NewEngine: %v", err)
	}

	env.engine, err = NewEngine(Config{
		ScratchDir:     t.TempDir(),
		RestoreTimeout: 5 * time.Second,
		ProbeTimeout:   time.Second,
	}, env.store, env.backend, c,
		Target{Name: TargetLive, Live: true, Registry: live, Probers: probers},
		Target{Name: "standby", Registry: fresh},
	)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	env.engine.SetSafetyBackup(env.backups)
	env.alerts = &recordingNotifier{}
	env.engine.SetNotifier(env.alerts)
	return env
}

// backupNow creates a completed full backup of the live components.
func (e *testEnv) backupNow(t *testing.T) *models.BackupRecord {
	t.Helper()
	res, err := e.backups.CreateFullBackup(context.Background(), backup.Options{})
	if err != nil {
		t.Fatalf("CreateFullBackup: %v", err)
	}
	if !res.Success {
		t.Fatalf("backup failed: %s", res.Error)
	}
	return res.Backup
}

// backdate rewrites a backup's start time.
func (e *testEnv) backdate(t *testing.T, id string, at time.Time) {
	t.Helper()
	rec, err := e.store.GetBackup(context.Background(), id)
	if err != nil {
		t.Fatalf("GetBackup: %v", err)
	}
	rec.StartedAt = at
	if err := e.store.SaveBackup(context.Background(), rec); err != nil {
		t.Fatalf("SaveBackup: %v", err)
	}
}

// waitForStatus polls the registry until the recovery reaches status.
func (e *testEnv) waitForStatus(t *testing.T, status models.RecoveryStatus) *models.RecoveryRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, rec := range e.engine.ActiveRecoveries() {
			if rec.Status == status {
				return rec
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no active recovery reached %s", status)
	return nil
}

var errBoom = errors.New("boom")

func backupOptions(comps ...string) backup.Options {
	return backup.Options{Components: comps}
}
