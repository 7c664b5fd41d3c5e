// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/strongbox/internal/catalog"
	"github.com/tomtom215/strongbox/internal/codec"
	"github.com/tomtom215/strongbox/internal/components"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/notify"
	"github.com/tomtom215/strongbox/internal/storage"
	"github.com/tomtom215/strongbox/internal/verify"
)

// Config holds engine settings.
type Config struct {
	// Components is the declared dump order used by CreateFullBackup.
	Components []string

	// StagingDir is the parent of per-run staging directories. Empty uses
	// the system temp directory.
	StagingDir string

	// DumpTimeout bounds each component dump. Zero means no per-dump limit.
	DumpTimeout time.Duration

	// VerifyIntegrity runs checksum_only verification after upload unless
	// Options overrides it.
	VerifyIntegrity bool

	// PreRecoveryRetention sets ExpiresAt on pre_recovery backups.
	PreRecoveryRetention time.Duration
}

// Verifier runs a verification strategy against a persisted backup.
type Verifier interface {
	VerifyBackup(ctx context.Context, backupID string, verificationType models.VerificationType, force bool) (*verify.Result, error)
}

// Engine creates backups.
type Engine struct {
	cfg      Config
	store    catalog.Store
	backend  storage.Backend
	codec    *codec.Codec
	registry *components.Registry

	verifier Verifier
	notifier notify.Notifier

	now func() time.Time
}

// Result is returned by every backup operation.
type Result struct {
	models.Result

	// Backup is nil only when the run could not be persisted at all.
	Backup *models.BackupRecord

	// Verification is set when inline verification ran.
	Verification *models.VerificationReport
}

// NewEngine validates its collaborators and returns an Engine.
func NewEngine(cfg Config, store catalog.Store, backend storage.Backend, c *codec.Codec, registry *components.Registry) (*Engine, error) {
	switch {
	case store == nil:
		return nil, faults.Configuration("catalog", "record store is required")
	case backend == nil:
		return nil, faults.Configuration("storage", "storage backend is required")
	case c == nil:
		return nil, faults.Configuration("codec", "archive codec is required")
	case registry == nil:
		return nil, faults.Configuration("components", "component registry is required")
	}
	if _, err := registry.Resolve(cfg.Components); err != nil {
		return nil, err
	}
	if cfg.PreRecoveryRetention <= 0 {
		cfg.PreRecoveryRetention = 7 * 24 * time.Hour
	}

	return &Engine{
		cfg:      cfg,
		store:    store,
		backend:  backend,
		codec:    c,
		registry: registry,
		notifier: notify.Noop{},
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetVerifier wires the engine used for inline verification.
func (e *Engine) SetVerifier(v Verifier) {
	e.verifier = v
}

// SetNotifier sets the alert sink. A nil notifier disables alerts.
func (e *Engine) SetNotifier(n notify.Notifier) {
	if n == nil {
		n = notify.Noop{}
	}
	e.notifier = n
}

// Components returns the configured dump order.
func (e *Engine) Components() []string {
	return append([]string(nil), e.cfg.Components...)
}

// GetBackup returns a persisted backup record.
func (e *Engine) GetBackup(ctx context.Context, id string) (*models.BackupRecord, error) {
	rec, err := e.store.GetBackup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get backup %s: %w", id, err)
	}
	return rec, nil
}

// ListBackups returns backups matching filter, newest first.
func (e *Engine) ListBackups(ctx context.Context, filter models.BackupFilter) ([]*models.BackupRecord, error) {
	return e.store.ListBackups(ctx, filter)
}
