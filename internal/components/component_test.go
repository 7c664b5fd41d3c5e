// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package components

import (
	"context"
	"testing"

	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/models"
)

type stubComponent struct{ name string }

func (s stubComponent) Name() string                            { return s.name }
func (s stubComponent) Dump(context.Context, string) error      { return nil }
func (s stubComponent) Restore(context.Context, string) error   { return nil }
func (s stubComponent) Version(context.Context) (string, error) { return "1", nil }

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(stubComponent{"files"}, stubComponent{"database"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if got := reg.Names(); len(got) != 2 || got[0] != "database" || got[1] != "files" {
		t.Errorf("Names() = %v", got)
	}

	comps, err := reg.Resolve([]string{"files", "database"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if comps[0].Name() != "files" || comps[1].Name() != "database" {
		t.Errorf("Resolve did not keep declared order: %s, %s", comps[0].Name(), comps[1].Name())
	}

	if _, err := reg.Resolve([]string{"cache"}); !faults.IsConfiguration(err) {
		t.Errorf("Resolve(unknown) error = %v, want ConfigurationError", err)
	}

	if _, err := NewRegistry(stubComponent{"files"}, stubComponent{"files"}); !faults.IsConfiguration(err) {
		t.Errorf("duplicate registration error = %v, want ConfigurationError", err)
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	base := func() config.ComponentsConfig {
		return config.ComponentsConfig{
			Enabled:      []string{models.ComponentDatabase, models.ComponentCache, models.ComponentFiles},
			Database:     config.DatabaseComponentConfig{DSN: "postgres://localhost/app"},
			Cache:        config.CacheComponentConfig{Addr: "127.0.0.1:6379"},
			Files:        config.DirectoryComponentConfig{Path: "/srv/files"},
			AppHealthURL: "http://localhost:8080/healthz",
		}
	}

	t.Run("builds enabled components and probes", func(t *testing.T) {
		t.Parallel()
		cfg := base()
		p, err := FromConfig(&cfg)
		if err != nil {
			t.Fatalf("FromConfig: %v", err)
		}
		defer p.Close() //nolint:errcheck // test cleanup

		if got := len(p.Registry.Names()); got != 3 {
			t.Errorf("registered %d components, want 3", got)
		}
		want := []string{"database_connectivity", "cache_connectivity", "application_health"}
		if len(p.Probers) != len(want) {
			t.Fatalf("got %d probers, want %d", len(p.Probers), len(want))
		}
		for i, name := range want {
			if p.Probers[i].Name() != name {
				t.Errorf("prober %d = %s, want %s", i, p.Probers[i].Name(), name)
			}
		}
	})

	tests := []struct {
		name   string
		mutate func(*config.ComponentsConfig)
		field  string
	}{
		{"database without dsn", func(c *config.ComponentsConfig) { c.Database.DSN = "" }, "components.database.dsn"},
		{"cache without addr", func(c *config.ComponentsConfig) { c.Cache.Addr = "" }, "components.cache.addr"},
		{"files without path", func(c *config.ComponentsConfig) { c.Files.Path = "" }, "components.files.path"},
		{"search without url", func(c *config.ComponentsConfig) { c.Enabled = append(c.Enabled, models.ComponentSearch) }, "components.search.url"},
		{"unknown component", func(c *config.ComponentsConfig) { c.Enabled = []string{"ledger"} }, "components.enabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(&cfg)
			_, err := FromConfig(&cfg)
			ce, ok := err.(*faults.ConfigurationError)
			if !ok {
				t.Fatalf("error = %v, want *ConfigurationError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}
