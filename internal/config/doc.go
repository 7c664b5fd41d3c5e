// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

/*
Package config provides centralized configuration management for Strongbox.

Configuration is loaded by Load with three layers, highest priority last:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, ./strongbox.yaml, /etc/strongbox/strongbox.yaml)
 3. Environment variables (STRONGBOX_* names mapped in envTransformFunc)

# Configuration Structure

  - StorageConfig: storage backend kind (local, s3), credentials, retries
  - CodecConfig: compression algorithm and level, encryption passphrase
  - ComponentsConfig: which platform components are backed up and how to reach them
  - BackupConfig, VerifyConfig, RecoveryConfig: engine behavior
  - models.RetentionPolicy: tiered retention
  - ScheduleConfig: interval trigger used by the built-in schedule service
  - CatalogConfig, NotifyConfig, MetricsConfig, LoggingConfig: ambient services

# Validation

Validate runs struct tag validation through go-playground/validator and then
cross-field checks. Every failure is a faults.ConfigurationError naming the
offending key, so callers can tell configuration problems from runtime ones.

# Example

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
*/
package config
