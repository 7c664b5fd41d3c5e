// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package config

import (
	"time"

	"github.com/tomtom215/strongbox/internal/models"
)

// Storage backend kinds.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds all application configuration.
type Config struct {
	Storage    StorageConfig          `koanf:"storage"`
	Codec      CodecConfig            `koanf:"codec"`
	Components ComponentsConfig       `koanf:"components"`
	Backup     BackupConfig           `koanf:"backup"`
	Verify     VerifyConfig           `koanf:"verify"`
	Recovery   RecoveryConfig         `koanf:"recovery"`
	Retention  models.RetentionPolicy `koanf:"retention"`
	Schedule   ScheduleConfig         `koanf:"schedule"`
	Catalog    CatalogConfig          `koanf:"catalog"`
	Notify     NotifyConfig           `koanf:"notify"`
	Metrics    MetricsConfig          `koanf:"metrics"`
	Logging    LoggingConfig          `koanf:"logging"`
}

// StorageConfig selects and configures the artifact storage backend.
type StorageConfig struct {
	// ID is recorded on every BackupRecord as storage_backend_id.
	ID   string `koanf:"id" validate:"required"`
	Kind string `koanf:"kind" validate:"oneof=local s3"`

	Local LocalStorageConfig `koanf:"local"`
	S3    S3StorageConfig    `koanf:"s3"`

	// Timeout bounds every single storage call.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// MaxRetries bounds retries of transport failures. 0 disables retries.
	MaxRetries           int           `koanf:"max_retries" validate:"gte=0,lte=20"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`

	// BreakerFailures is the number of consecutive transport failures that
	// opens the circuit breaker.
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// LocalStorageConfig configures the local filesystem backend.
type LocalStorageConfig struct {
	Root string `koanf:"root"`
}

// S3StorageConfig configures an S3 or S3-compatible backend.
type S3StorageConfig struct {
	Bucket          string `koanf:"bucket"`
	Prefix          string `koanf:"prefix"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	UsePathStyle    bool   `koanf:"use_path_style"`
}

// CodecConfig configures the archive pipeline.
type CodecConfig struct {
	Compression string `koanf:"compression" validate:"oneof=none gzip lz4 zstd"`
	Level       int    `koanf:"level" validate:"gte=0,lte=22"`

	EncryptionEnabled bool   `koanf:"encryption_enabled"`
	Passphrase        string `koanf:"passphrase"`

	// ScryptWorkFactor is the log2 scrypt cost used when encrypting.
	ScryptWorkFactor int `koanf:"scrypt_work_factor" validate:"gte=1,lte=22"`
}

// ComponentsConfig declares which components are backed up and how to reach them.
type ComponentsConfig struct {
	// Enabled lists component names in dump order.
	Enabled []string `koanf:"enabled" validate:"min=1,dive,oneof=database cache search files configuration"`

	// DumpTimeout bounds each component's dump or restore call.
	DumpTimeout time.Duration `koanf:"dump_timeout" validate:"gt=0"`

	Database      DatabaseComponentConfig  `koanf:"database"`
	Cache         CacheComponentConfig     `koanf:"cache"`
	Search        SearchComponentConfig    `koanf:"search"`
	Files         DirectoryComponentConfig `koanf:"files"`
	Configuration DirectoryComponentConfig `koanf:"configuration"`

	// AppHealthURL is the application smoke check used after a restore.
	AppHealthURL string `koanf:"app_health_url"`
}

// DatabaseComponentConfig configures the relational store component.
type DatabaseComponentConfig struct {
	DSN        string `koanf:"dsn"`
	PgDumpPath string `koanf:"pg_dump_path"`
	PsqlPath   string `koanf:"psql_path"`
}

// CacheComponentConfig configures the key-value cache component.
type CacheComponentConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db" validate:"gte=0"`
	Match     string `koanf:"match"`
	ScanCount int64  `koanf:"scan_count" validate:"gte=1"`
}

// SearchComponentConfig configures the search index component.
type SearchComponentConfig struct {
	URL        string `koanf:"url"`
	Repository string `koanf:"repository"`
	Username   string `koanf:"username"`
	Password   string `koanf:"password"`
	Indices    string `koanf:"indices"`
}

// DirectoryComponentConfig configures a component backed by a directory tree.
type DirectoryComponentConfig struct {
	Path    string `koanf:"path"`
	Version string `koanf:"version"`
}

// BackupConfig configures the backup engine.
type BackupConfig struct {
	StagingDir      string `koanf:"staging_dir"`
	VerifyIntegrity bool   `koanf:"verify_integrity"`
}

// VerifyConfig configures the verification engine.
type VerifyConfig struct {
	ScratchDir    string        `koanf:"scratch_dir"`
	Concurrency   int           `koanf:"concurrency" validate:"gte=1,lte=64"`
	SiblingWindow time.Duration `koanf:"sibling_window" validate:"gt=0"`
}

// RecoveryConfig configures the recovery engine.
type RecoveryConfig struct {
	ScratchDir   string        `koanf:"scratch_dir"`
	ProbeTimeout time.Duration `koanf:"probe_timeout" validate:"gt=0"`
}

// ScheduleConfig configures the built-in interval trigger. Zero intervals
// disable the corresponding job.
type ScheduleConfig struct {
	Enabled         bool          `koanf:"enabled"`
	ScheduleID      string        `koanf:"schedule_id"`
	BackupInterval  time.Duration `koanf:"backup_interval" validate:"gte=0"`
	VerifyInterval  time.Duration `koanf:"verify_interval" validate:"gte=0"`
	VerifyType      string        `koanf:"verify_type"`
	CleanupInterval time.Duration `koanf:"cleanup_interval" validate:"gte=0"`
}

// CatalogConfig configures record persistence.
type CatalogConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// NotifyConfig configures alert publishing.
type NotifyConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Topic      string `koanf:"topic"`
	BufferSize int64  `koanf:"buffer_size" validate:"gte=0"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is the output format: json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	Caller bool `koanf:"caller"`
}

// IsComponentEnabled reports whether name is in Components.Enabled.
func (c *Config) IsComponentEnabled(name string) bool {
	for _, n := range c.Components.Enabled {
		if n == name {
			return true
		}
	}
	return false
}
