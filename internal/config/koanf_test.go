// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/models"
)

// setDatabaseDSN satisfies the default component set, which includes database.
func setDatabaseDSN(t *testing.T) {
	t.Helper()
	t.Setenv("STRONGBOX_DATABASE_DSN", "postgres://strongbox@localhost:5432/app")
}

func TestLoadFrom_Defaults(t *testing.T) {
	setDatabaseDSN(t)

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Storage.Kind != StorageLocal {
		t.Errorf("Storage.Kind = %q, want %q", cfg.Storage.Kind, StorageLocal)
	}
	if cfg.Storage.Timeout != 5*time.Minute {
		t.Errorf("Storage.Timeout = %v, want 5m", cfg.Storage.Timeout)
	}
	if cfg.Codec.Compression != "zstd" {
		t.Errorf("Codec.Compression = %q, want zstd", cfg.Codec.Compression)
	}
	if cfg.Retention != models.DefaultRetentionPolicy() {
		t.Errorf("Retention = %+v, want defaults", cfg.Retention)
	}
	if !cfg.IsComponentEnabled(models.ComponentDatabase) {
		t.Error("database should be enabled by default")
	}
	if cfg.IsComponentEnabled(models.ComponentCache) {
		t.Error("cache should not be enabled by default")
	}
}

func TestLoadFrom_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strongbox.yaml")
	yamlBody := `
storage:
  kind: s3
  s3:
    bucket: platform-backups
    region: eu-west-1
codec:
  compression: lz4
components:
  enabled: [files, configuration]
retention:
  retention_days: 14
  keep_weekly_for_weeks: 2
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}

	// Environment wins over the file.
	t.Setenv("STRONGBOX_COMPRESSION", "gzip")
	t.Setenv("STRONGBOX_STORAGE_TIMEOUT", "90s")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Storage.Kind != StorageS3 || cfg.Storage.S3.Bucket != "platform-backups" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.S3.Region != "eu-west-1" {
		t.Errorf("region = %q", cfg.Storage.S3.Region)
	}
	if cfg.Codec.Compression != "gzip" {
		t.Errorf("Codec.Compression = %q, want gzip from env", cfg.Codec.Compression)
	}
	if cfg.Storage.Timeout != 90*time.Second {
		t.Errorf("Storage.Timeout = %v, want 90s", cfg.Storage.Timeout)
	}
	if got := cfg.Components.Enabled; len(got) != 2 || got[0] != "files" || got[1] != "configuration" {
		t.Errorf("Components.Enabled = %v", got)
	}
	if cfg.Retention.RetentionDays != 14 || cfg.Retention.KeepWeeklyForWeeks != 2 {
		t.Errorf("retention = %+v", cfg.Retention)
	}
	// Untouched retention fields keep their defaults.
	if cfg.Retention.MinBackupsToKeep != 3 {
		t.Errorf("MinBackupsToKeep = %d, want default 3", cfg.Retention.MinBackupsToKeep)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoadFrom_ComponentsFromEnv(t *testing.T) {
	t.Setenv("STRONGBOX_COMPONENTS", " cache , files,")
	t.Setenv("STRONGBOX_CACHE_ADDR", "redis:6379")

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if got := cfg.Components.Enabled; len(got) != 2 || got[0] != "cache" || got[1] != "files" {
		t.Errorf("Components.Enabled = %v", got)
	}
	if cfg.Components.Cache.Addr != "redis:6379" {
		t.Errorf("Cache.Addr = %q", cfg.Components.Cache.Addr)
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	setDatabaseDSN(t)

	if _, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadFrom_InvalidIsConfigurationError(t *testing.T) {
	setDatabaseDSN(t)
	t.Setenv("STRONGBOX_STORAGE_KIND", "ftp")

	_, err := LoadFrom("")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !faults.IsConfiguration(err) {
		t.Errorf("error %v should be a ConfigurationError", err)
	}
}

func TestFindConfigFile_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want string
	}{
		{"STRONGBOX_STORAGE_KIND", "storage.kind"},
		{"STRONGBOX_S3_BUCKET", "storage.s3.bucket"},
		{"STRONGBOX_KEEP_DAILY_FOR_DAYS", "retention.keep_daily_for_days"},
		{"STRONGBOX_LOG_LEVEL", "logging.level"},
		{"HOME", ""},
		{"STRONGBOX_UNKNOWN", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.key); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
