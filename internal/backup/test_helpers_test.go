// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/strongbox/internal/catalog"
	"github.com/tomtom215/strongbox/internal/codec"
	"github.com/tomtom215/strongbox/internal/components"
	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/storage"
	"github.com/tomtom215/strongbox/internal/verify"
)

// fakeComponent writes canned files and records the order of dumps.
type fakeComponent struct {
	name    string
	files   map[string][]byte
	err     error
	delay   time.Duration
	version string
	log     *callLog
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Dump(ctx context.Context, dir string) error {
	if f.log != nil {
		f.log.add(f.name)
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return f.err
	}
	for name, data := range f.files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o640); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeComponent) Restore(context.Context, string) error { return nil }

func (f *fakeComponent) Version(context.Context) (string, error) {
	if f.version == "" {
		return "", errors.New("version unavailable")
	}
	return f.version, nil
}

// testEnv holds the common test environment setup
type testEnv struct {
	store      *catalog.BadgerStore
	backend    *storage.LocalBackend
	codec      *codec.Codec
	engine     *Engine
	verifier   *verify.Engine
	alerts     *recordingNotifier
	stagingDir string
	dumps      *callLog
}

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

func (r *recordingNotifier) all() []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Alert(nil), r.alerts...)
}

// newTestEnv builds an engine over an in-memory catalog, a local backend
// and the given components. Components default to a database and cache pair.
func newTestEnv(t *testing.T, comps ...*fakeComponent) *testEnv {
	t.Helper()

	dumps := &callLog{}
	if len(comps) == 0 {
		comps = []*fakeComponent{
			{name: models.ComponentDatabase, files: map[string][]byte{"database.sql": []byte("-- PostgreSQL database dump\nSELECT 1;\n")}, version: "16.2"},
			{name: models.ComponentCache, files: map[string][]byte{"cache_snapshot.json": []byte(`{"version":1,"keys":[]}`)}, version: "7.2.4"},
		}
	}
	names := make([]string, 0, len(comps))
	regComps := make([]components.Component, 0, len(comps))
	for _, c := range comps {
		c.log = dumps
		names = append(names, c.name)
		regComps = append(regComps, c)
	}
	registry, err := components.NewRegistry(regComps...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	store, err := catalog.Open(&config.CatalogConfig{InMemory: true})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	backend, err := storage.NewLocalBackend("local-test", filepath.Join(t.TempDir(), "artifacts"))
	if err != nil {
		t.Fatalf("backend: %v", err)
	}

	c, err := codec.New(codec.Options{Compression: codec.CompressionZstd})
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	stagingDir := t.TempDir()
	engine, err := NewEngine(Config{
		Components:      names,
		StagingDir:      stagingDir,
		DumpTimeout:     5 * time.Second,
		VerifyIntegrity: true,
	}, store, backend, c, registry)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	verifier, err := verify.NewEngine(verify.Config{ScratchDir: t.TempDir()}, store, backend, c)
	if err != nil {
		t.Fatalf("verify.NewEngine: %v", err)
	}
	engine.SetVerifier(verifier)

	alerts := &recordingNotifier{}
	engine.SetNotifier(alerts)

	return &testEnv{
		store:      store,
		backend:    backend,
		codec:      c,
		engine:     engine,
		verifier:   verifier,
		alerts:     alerts,
		stagingDir: stagingDir,
		dumps:      dumps,
	}
}

// storedArtifacts lists the objects in the local backend.
func (e *testEnv) storedArtifacts(t *testing.T) []storage.ObjectInfo {
	t.Helper()
	objs, err := e.backend.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return objs
}

func boolPtr(b bool) *bool { return &b }
