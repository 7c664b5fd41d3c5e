// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package components

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/strongbox/internal/faults"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatal(err)
	}
}

func TestDirectoryRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	source := t.TempDir()
	writeFile(t, filepath.Join(source, "a.txt"), "alpha")
	writeFile(t, filepath.Join(source, "nested", "b.txt"), "beta")

	dir := NewDirectory("files", source, "2")
	staging := t.TempDir()
	if err := dir.Dump(ctx, staging); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	writeFile(t, filepath.Join(staging, "files_metadata.json"), "{}")

	if err := os.RemoveAll(source); err != nil {
		t.Fatal(err)
	}
	if err := dir.Restore(ctx, staging); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	for name, want := range map[string]string{"a.txt": "alpha", "nested/b.txt": "beta"} {
		got, err := os.ReadFile(filepath.Join(source, name))
		if err != nil {
			t.Fatalf("read restored %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if _, err := os.Stat(filepath.Join(source, "files_metadata.json")); !os.IsNotExist(err) {
		t.Error("metadata file should not be restored into the source tree")
	}

	v, err := dir.Version(ctx)
	if err != nil || v != "2" {
		t.Errorf("Version() = %q, %v", v, err)
	}
}

func TestDirectoryDumpErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	file := filepath.Join(t.TempDir(), "plain")
	writeFile(t, file, "x")
	if err := NewDirectory("files", file, "").Dump(ctx, t.TempDir()); !faults.IsConfiguration(err) {
		t.Errorf("non-directory source error = %v, want ConfigurationError", err)
	}

	if err := NewDirectory("files", filepath.Join(t.TempDir(), "missing"), "").Dump(ctx, t.TempDir()); err == nil {
		t.Error("missing source should fail")
	}

	source := t.TempDir()
	writeFile(t, filepath.Join(source, "a.txt"), "alpha")
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := NewDirectory("files", source, "").Dump(canceled, t.TempDir()); err == nil {
		t.Error("canceled context should stop the copy")
	}
}
