// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/validation"
)

// Validate checks that required configuration is present and consistent.
// All failures are faults.ConfigurationError values.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		first := verr.Errors()[0]
		return faults.Configuration(first.Namespace(), first.Error())
	}

	validators := []func() error{
		c.validateStorage,
		c.validateCodec,
		c.validateComponents,
		c.validateSchedule,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

// validateStorage checks backend specific settings.
func (c *Config) validateStorage() error {
	switch c.Storage.Kind {
	case StorageLocal:
		if c.Storage.Local.Root == "" {
			return faults.Configuration("storage.local.root", "STRONGBOX_STORAGE_ROOT is required for local storage")
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return faults.Configuration("storage.s3.bucket", "STRONGBOX_S3_BUCKET is required for s3 storage")
		}
		if (c.Storage.S3.AccessKeyID == "") != (c.Storage.S3.SecretAccessKey == "") {
			return faults.Configuration("storage.s3", "access key id and secret access key must be set together")
		}
		if c.Storage.S3.Endpoint != "" {
			if err := validateHTTPURL(c.Storage.S3.Endpoint, "STRONGBOX_S3_ENDPOINT"); err != nil {
				return faults.Configuration("storage.s3.endpoint", err.Error())
			}
		}
	}
	if c.Storage.RetryMaxInterval > 0 && c.Storage.RetryMaxInterval < c.Storage.RetryInitialInterval {
		return faults.Configuration("storage.retry_max_interval", "must be >= retry_initial_interval")
	}
	return nil
}

// validateCodec checks encryption settings.
func (c *Config) validateCodec() error {
	if c.Codec.EncryptionEnabled && len(c.Codec.Passphrase) < 16 {
		return faults.Configuration("codec.passphrase",
			"STRONGBOX_ENCRYPTION_PASSPHRASE must be at least 16 characters when encryption is enabled")
	}
	return nil
}

// validateComponents checks that every enabled component can be reached.
func (c *Config) validateComponents() error {
	seen := make(map[string]bool, len(c.Components.Enabled))
	for _, name := range c.Components.Enabled {
		if seen[name] {
			return faults.Configuration("components.enabled", fmt.Sprintf("component %q listed twice", name))
		}
		seen[name] = true
	}

	if seen[models.ComponentDatabase] && c.Components.Database.DSN == "" {
		return faults.Configuration("components.database.dsn", "STRONGBOX_DATABASE_DSN is required when database is enabled")
	}
	if seen[models.ComponentCache] && c.Components.Cache.Addr == "" {
		return faults.Configuration("components.cache.addr", "STRONGBOX_CACHE_ADDR is required when cache is enabled")
	}
	if seen[models.ComponentSearch] {
		if c.Components.Search.URL == "" {
			return faults.Configuration("components.search.url", "STRONGBOX_SEARCH_URL is required when search is enabled")
		}
		if err := validateHTTPURL(c.Components.Search.URL, "STRONGBOX_SEARCH_URL"); err != nil {
			return faults.Configuration("components.search.url", err.Error())
		}
	}
	if seen[models.ComponentFiles] && c.Components.Files.Path == "" {
		return faults.Configuration("components.files.path", "STRONGBOX_FILES_PATH is required when files is enabled")
	}
	if seen[models.ComponentConfiguration] && c.Components.Configuration.Path == "" {
		return faults.Configuration("components.configuration.path", "STRONGBOX_CONFIGURATION_PATH is required when configuration is enabled")
	}
	if c.Components.AppHealthURL != "" {
		if _, err := url.ParseRequestURI(c.Components.AppHealthURL); err != nil {
			return faults.Configuration("components.app_health_url", err.Error())
		}
	}
	return nil
}

// validateSchedule checks the interval trigger settings.
func (c *Config) validateSchedule() error {
	if !c.Schedule.Enabled {
		return nil
	}
	if c.Schedule.VerifyInterval > 0 && !models.VerificationType(c.Schedule.VerifyType).IsValid() {
		return faults.Configuration("schedule.verify_type", fmt.Sprintf("unknown verification type %q", c.Schedule.VerifyType))
	}
	return nil
}

// validateHTTPURL validates that a URL is a base http(s) URL.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	if strings.Trim(parsedURL.Path, "/") != "" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsedURL.Path)
	}

	return nil
}
