// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/strongbox/internal/catalog"
	"github.com/tomtom215/strongbox/internal/codec"
	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/storage"
)

// testEnv holds the common verification test setup
type testEnv struct {
	store   *catalog.BadgerStore
	backend *storage.LocalBackend
	codec   *codec.Codec
	engine  *Engine
	alerts  *recordingNotifier
	scratch string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := catalog.Open(&config.CatalogConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	backend, err := storage.NewLocalBackend("local-test", filepath.Join(t.TempDir(), "artifacts"))
	if err != nil {
		t.Fatalf("local backend: %v", err)
	}

	c, err := codec.New(codec.Options{Compression: codec.CompressionZstd})
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	scratch := t.TempDir()
	engine, err := NewEngine(Config{ScratchDir: scratch, Concurrency: 2}, store, backend, c)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	alerts := &recordingNotifier{}
	engine.SetNotifier(alerts)

	return &testEnv{store: store, backend: backend, codec: c, engine: engine, alerts: alerts, scratch: scratch}
}

// recordingNotifier collects alerts for assertions
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

// seedSpec describes the artifact seedBackup builds.
type seedSpec struct {
	// files maps component name to archive-relative file name to content.
	files map[string]map[string][]byte
	// skipMetadata lists components whose metadata file is left out.
	skipMetadata []string
	scheduleID   string
	startedAt    time.Time
	duration     float64
	status       models.BackupStatus
}

// noise returns n incompressible bytes.
func noise(seed int64, n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b) //nolint:gosec // test data
	return b
}

// defaultFiles returns realistic payloads for the database and cache components.
func defaultFiles() map[string]map[string][]byte {
	dump := append([]byte("-- PostgreSQL database dump\n-- Dumped from database version 16.2\n"), noise(1, 8192)...)
	snapshot, _ := json.Marshal(map[string]interface{}{ //nolint:errcheck // static test data
		"version": 1,
		"keys":    []map[string]interface{}{{"key": "session:1", "type": "string", "string": string(noise(2, 64))}},
		"padding": noise(3, 4096),
	})
	return map[string]map[string][]byte{
		models.ComponentDatabase: {"database.sql": dump},
		models.ComponentCache:    {"cache_snapshot.json": snapshot},
	}
}

// seedBackup stages, encodes and uploads an artifact, then persists a
// completed record for it.
func (e *testEnv) seedBackup(t *testing.T, opts seedSpec) *models.BackupRecord {
	t.Helper()

	if opts.files == nil {
		opts.files = defaultFiles()
	}
	if opts.startedAt.IsZero() {
		opts.startedAt = time.Now().UTC().Add(-time.Hour)
	}
	if opts.duration == 0 {
		opts.duration = 60
	}
	if opts.status == "" {
		opts.status = models.BackupStatusCompleted
	}

	id := uuid.New().String()
	stage := t.TempDir()
	skip := make(map[string]bool)
	for _, c := range opts.skipMetadata {
		skip[c] = true
	}

	var comps []string
	for _, comp := range models.AllComponents {
		files, ok := opts.files[comp]
		if !ok {
			continue
		}
		comps = append(comps, comp)
		var names []string
		for name, data := range files {
			writeTestFile(t, filepath.Join(stage, comp, name), data)
			names = append(names, comp+"/"+name)
		}
		if skip[comp] {
			continue
		}
		meta, _ := json.Marshal(models.ComponentMetadata{ //nolint:errcheck // static test data
			Component:        comp,
			BackupTime:       opts.startedAt.Format(time.RFC3339),
			ComponentVersion: "test",
			Files:            names,
		})
		writeTestFile(t, filepath.Join(stage, filepath.FromSlash(models.MetadataFileName(comp))), meta)
	}

	art, err := e.codec.Encode(context.Background(), stage, t.TempDir(), id)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	location, err := e.backend.Upload(context.Background(), art.Path)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	completed := opts.startedAt.Add(time.Duration(opts.duration * float64(time.Second)))
	rec := &models.BackupRecord{
		ID:                  id,
		BackupType:          models.BackupTypeFull,
		Trigger:             models.TriggerScheduled,
		ScheduleID:          opts.scheduleID,
		StorageBackendID:    e.backend.ID(),
		Status:              opts.status,
		StartedAt:           opts.startedAt,
		CompletedAt:         &completed,
		DurationSeconds:     opts.duration,
		SizeBytes:           art.SizeBytes,
		CompressedSizeBytes: art.CompressedSizeBytes,
		Checksum:            art.Checksum,
		StorageLocation:     location,
		ArtifactName:        art.Name,
		IncludedComponents:  comps,
		VerificationStatus:  models.VerificationPending,
	}
	if err := e.store.SaveBackup(context.Background(), rec); err != nil {
		t.Fatalf("save backup: %v", err)
	}
	return rec
}

// artifactPath returns where the local backend stores rec's artifact.
func (e *testEnv) artifactPath(rec *models.BackupRecord) string {
	return filepath.Join(e.backend.Root(), rec.StorageLocation)
}

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) verify(t *testing.T, id string, vt models.VerificationType, force bool) *models.VerificationReport {
	t.Helper()
	res, err := e.engine.VerifyBackup(context.Background(), id, vt, force)
	if err != nil {
		t.Fatalf("VerifyBackup(%s) error = %v", vt, err)
	}
	if res.Report == nil {
		t.Fatalf("VerifyBackup(%s) returned no report", vt)
	}
	if res.Status != string(res.Report.Result) {
		t.Errorf("Result.Status = %s, report result = %s", res.Status, res.Report.Result)
	}
	return res.Report
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
