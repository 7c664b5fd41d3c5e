// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/strongbox/internal/models"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"strongbox.yaml",
	"strongbox.yml",
	"/etc/strongbox/strongbox.yaml",
	"/etc/strongbox/strongbox.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			ID:   "primary",
			Kind: StorageLocal,
			Local: LocalStorageConfig{
				Root: "/data/strongbox/artifacts",
			},
			S3: S3StorageConfig{
				Region: "us-east-1",
			},
			Timeout:              5 * time.Minute,
			MaxRetries:           4,
			RetryInitialInterval: 500 * time.Millisecond,
			RetryMaxInterval:     30 * time.Second,
			BreakerFailures:      5,
			BreakerTimeout:       2 * time.Minute,
		},
		Codec: CodecConfig{
			Compression:       "zstd",
			Level:             3,
			EncryptionEnabled: false,
			ScryptWorkFactor:  18,
		},
		Components: ComponentsConfig{
			Enabled:     []string{models.ComponentDatabase, models.ComponentFiles, models.ComponentConfiguration},
			DumpTimeout: 30 * time.Minute,
			Database: DatabaseComponentConfig{
				PgDumpPath: "pg_dump",
				PsqlPath:   "psql",
			},
			Cache: CacheComponentConfig{
				Addr:      "127.0.0.1:6379",
				Match:     "*",
				ScanCount: 1000,
			},
			Search: SearchComponentConfig{
				Repository: "strongbox",
				Indices:    "*",
			},
			Files: DirectoryComponentConfig{
				Path:    "/data/app/files",
				Version: "1",
			},
			Configuration: DirectoryComponentConfig{
				Path:    "/data/app/config",
				Version: "1",
			},
		},
		Backup: BackupConfig{
			StagingDir:      "",
			VerifyIntegrity: true,
		},
		Verify: VerifyConfig{
			Concurrency:   4,
			SiblingWindow: 7 * 24 * time.Hour,
		},
		Recovery: RecoveryConfig{
			ProbeTimeout: 30 * time.Second,
		},
		Retention: models.DefaultRetentionPolicy(),
		Schedule: ScheduleConfig{
			Enabled:         false,
			ScheduleID:      "default",
			BackupInterval:  24 * time.Hour,
			VerifyInterval:  6 * time.Hour,
			VerifyType:      string(models.VerifyMetadataCheck),
			CleanupInterval: 24 * time.Hour,
		},
		Catalog: CatalogConfig{
			Path: "/data/strongbox/catalog",
		},
		Notify: NotifyConfig{
			Enabled:    true,
			Topic:      "strongbox.alerts",
			BufferSize: 64,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9464",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration from defaults, the first config file found and
// the environment, then validates it.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"components.enabled",
}

// processSliceFields converts comma-separated env values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Storage
	"strongbox_storage_id":               "storage.id",
	"strongbox_storage_kind":             "storage.kind",
	"strongbox_storage_root":             "storage.local.root",
	"strongbox_storage_timeout":          "storage.timeout",
	"strongbox_storage_max_retries":      "storage.max_retries",
	"strongbox_storage_retry_interval":   "storage.retry_initial_interval",
	"strongbox_storage_retry_max":        "storage.retry_max_interval",
	"strongbox_storage_breaker_failures": "storage.breaker_failures",
	"strongbox_storage_breaker_timeout":  "storage.breaker_timeout",
	"strongbox_s3_bucket":                "storage.s3.bucket",
	"strongbox_s3_prefix":                "storage.s3.prefix",
	"strongbox_s3_region":                "storage.s3.region",
	"strongbox_s3_endpoint":              "storage.s3.endpoint",
	"strongbox_s3_access_key_id":         "storage.s3.access_key_id",
	"strongbox_s3_secret_access_key":     "storage.s3.secret_access_key",
	"strongbox_s3_use_path_style":        "storage.s3.use_path_style",
	"strongbox_compression":              "codec.compression",
	"strongbox_compression_level":        "codec.level",
	"strongbox_encryption_enabled":       "codec.encryption_enabled",
	"strongbox_encryption_passphrase":    "codec.passphrase",
	"strongbox_scrypt_work_factor":       "codec.scrypt_work_factor",
	"strongbox_components":               "components.enabled",
	"strongbox_dump_timeout":             "components.dump_timeout",
	"strongbox_database_dsn":             "components.database.dsn",
	"strongbox_pg_dump_path":             "components.database.pg_dump_path",
	"strongbox_psql_path":                "components.database.psql_path",
	"strongbox_cache_addr":               "components.cache.addr",
	"strongbox_cache_password":           "components.cache.password",
	"strongbox_cache_db":                 "components.cache.db",
	"strongbox_cache_match":              "components.cache.match",
	"strongbox_search_url":               "components.search.url",
	"strongbox_search_repository":        "components.search.repository",
	"strongbox_search_username":          "components.search.username",
	"strongbox_search_password":          "components.search.password",
	"strongbox_files_path":               "components.files.path",
	"strongbox_configuration_path":       "components.configuration.path",
	"strongbox_app_health_url":           "components.app_health_url",
	"strongbox_staging_dir":              "backup.staging_dir",
	"strongbox_verify_integrity":         "backup.verify_integrity",
	"strongbox_verify_concurrency":       "verify.concurrency",
	"strongbox_verify_scratch_dir":       "verify.scratch_dir",
	"strongbox_recovery_scratch_dir":     "recovery.scratch_dir",
	"strongbox_probe_timeout":            "recovery.probe_timeout",
	"strongbox_retention_days":           "retention.retention_days",
	"strongbox_min_backups_to_keep":      "retention.min_backups_to_keep",
	"strongbox_keep_daily_for_days":      "retention.keep_daily_for_days",
	"strongbox_keep_weekly_for_weeks":    "retention.keep_weekly_for_weeks",
	"strongbox_keep_monthly_for_months":  "retention.keep_monthly_for_months",
	"strongbox_keep_yearly_for_years":    "retention.keep_yearly_for_years",
	"strongbox_pre_recovery_retention":   "retention.pre_recovery_retention_days",
	"strongbox_schedule_enabled":         "schedule.enabled",
	"strongbox_schedule_id":              "schedule.schedule_id",
	"strongbox_backup_interval":          "schedule.backup_interval",
	"strongbox_verify_interval":          "schedule.verify_interval",
	"strongbox_verify_type":              "schedule.verify_type",
	"strongbox_cleanup_interval":         "schedule.cleanup_interval",
	"strongbox_catalog_path":             "catalog.path",
	"strongbox_catalog_in_memory":        "catalog.in_memory",
	"strongbox_notify_enabled":           "notify.enabled",
	"strongbox_notify_topic":             "notify.topic",
	"strongbox_metrics_enabled":          "metrics.enabled",
	"strongbox_metrics_addr":             "metrics.addr",
	"strongbox_log_level":                "logging.level",
	"strongbox_log_format":               "logging.format",
	"strongbox_log_caller":               "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - STRONGBOX_STORAGE_KIND -> storage.kind
//   - STRONGBOX_S3_BUCKET -> storage.s3.bucket
//   - STRONGBOX_KEEP_DAILY_FOR_DAYS -> retention.keep_daily_for_days
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
