// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package components

import (
	"errors"
	"io"
	"net/http"

	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/models"
)

// Platform is the set of components and probes built from configuration.
type Platform struct {
	Registry *Registry
	Probers  []Prober

	closers []io.Closer
}

// Close releases component connections.
func (p *Platform) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds a component for every enabled name and a probe for every
// reachable dependency. Missing connection settings are ConfigurationErrors.
func FromConfig(cfg *config.ComponentsConfig) (*Platform, error) {
	if cfg == nil {
		return nil, faults.Configuration("components", "configuration is nil")
	}
	p := &Platform{}
	httpClient := &http.Client{Timeout: cfg.DumpTimeout}

	var comps []Component
	for _, name := range cfg.Enabled {
		switch name {
		case models.ComponentDatabase:
			if cfg.Database.DSN == "" {
				return nil, faults.Configuration("components.database.dsn", "is required when the database component is enabled")
			}
			comps = append(comps, NewPostgres(PostgresConfig{
				DSN:        cfg.Database.DSN,
				PgDumpPath: cfg.Database.PgDumpPath,
				PsqlPath:   cfg.Database.PsqlPath,
			}, nil))
			p.Probers = append(p.Probers, PostgresProber{DSN: cfg.Database.DSN})

		case models.ComponentCache:
			if cfg.Cache.Addr == "" {
				return nil, faults.Configuration("components.cache.addr", "is required when the cache component is enabled")
			}
			r := NewRedis(RedisConfig{
				Addr:      cfg.Cache.Addr,
				Password:  cfg.Cache.Password,
				DB:        cfg.Cache.DB,
				Match:     cfg.Cache.Match,
				ScanCount: cfg.Cache.ScanCount,
			})
			comps = append(comps, r)
			p.closers = append(p.closers, r)
			p.Probers = append(p.Probers, RedisProber{Addr: cfg.Cache.Addr, Password: cfg.Cache.Password, DB: cfg.Cache.DB})

		case models.ComponentSearch:
			if cfg.Search.URL == "" {
				return nil, faults.Configuration("components.search.url", "is required when the search component is enabled")
			}
			comps = append(comps, NewSearch(SearchConfig{
				URL:        cfg.Search.URL,
				Repository: cfg.Search.Repository,
				Username:   cfg.Search.Username,
				Password:   cfg.Search.Password,
				Indices:    cfg.Search.Indices,
			}, httpClient))

		case models.ComponentFiles:
			if cfg.Files.Path == "" {
				return nil, faults.Configuration("components.files.path", "is required when the files component is enabled")
			}
			comps = append(comps, NewDirectory(models.ComponentFiles, cfg.Files.Path, cfg.Files.Version))

		case models.ComponentConfiguration:
			if cfg.Configuration.Path == "" {
				return nil, faults.Configuration("components.configuration.path", "is required when the configuration component is enabled")
			}
			comps = append(comps, NewDirectory(models.ComponentConfiguration, cfg.Configuration.Path, cfg.Configuration.Version))

		default:
			return nil, faults.Configuration("components.enabled", "unknown component "+name)
		}
	}

	if cfg.AppHealthURL != "" {
		p.Probers = append(p.Probers, HTTPProber{URL: cfg.AppHealthURL, Client: httpClient})
	}

	reg, err := NewRegistry(comps...)
	if err != nil {
		_ = p.Close() //nolint:errcheck // already failing
		return nil, err
	}
	p.Registry = reg
	return p, nil
}
