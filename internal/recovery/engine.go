// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package recovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/strongbox/internal/backup"
	"github.com/tomtom215/strongbox/internal/catalog"
	"github.com/tomtom215/strongbox/internal/codec"
	"github.com/tomtom215/strongbox/internal/components"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/notify"
	"github.com/tomtom215/strongbox/internal/storage"
)

// TargetLive is the name of the production platform target.
const TargetLive = "live"

var (
	// ErrNotActive is returned when cancelling a recovery that is not running.
	ErrNotActive = errors.New("recovery is not active")

	// ErrNotCancellable is returned when cancelling a recovery that has
	// started restoring.
	ErrNotCancellable = errors.New("recovery can no longer be cancelled")

	errCancelRequested = errors.New("recovery cancelled by request")
)

// Target is a system recoveries restore into.
type Target struct {
	Name string

	// Live marks the running production system. Only live targets get a
	// pre-recovery safety backup.
	Live bool

	Registry *components.Registry
	Probers  []components.Prober
}

// Config holds recovery settings.
type Config struct {
	// ScratchDir is the parent of per-run scratch directories.
	ScratchDir string

	// RestoreTimeout bounds each component restore. Zero means no limit.
	RestoreTimeout time.Duration

	// ProbeTimeout bounds each post-restore probe.
	ProbeTimeout time.Duration
}

// SafetyBackup creates the pre-recovery snapshot.
type SafetyBackup interface {
	CreateBackup(ctx context.Context, opts backup.Options) (*backup.Result, error)
}

// Result is returned by StartRecovery.
type Result struct {
	models.Result
	Recovery *models.RecoveryRecord

	// Err is the typed failure, for example a *faults.PartialFailureError.
	Err error `json:"-"`
}

// Engine runs recoveries.
type Engine struct {
	cfg     Config
	store   catalog.Store
	backend storage.Backend
	codec   *codec.Codec
	targets map[string]Target

	backups  SafetyBackup
	notifier notify.Notifier

	registry *registry
	locks    *targetLocks

	now func() time.Time
}

// NewEngine returns a recovery engine for the given targets.
func NewEngine(cfg Config, store catalog.Store, backend storage.Backend, c *codec.Codec, targets ...Target) (*Engine, error) {
	switch {
	case store == nil:
		return nil, faults.Configuration("catalog", "record store is required")
	case backend == nil:
		return nil, faults.Configuration("storage", "storage backend is required")
	case c == nil:
		return nil, faults.Configuration("codec", "archive codec is required")
	case len(targets) == 0:
		return nil, faults.Configuration("recovery.targets", "at least one restore target is required")
	}

	byName := make(map[string]Target, len(targets))
	for _, t := range targets {
		if t.Name == "" || t.Registry == nil {
			return nil, faults.Configuration("recovery.targets", "target needs a name and a component registry")
		}
		if _, dup := byName[t.Name]; dup {
			return nil, faults.Configuration("recovery.targets", fmt.Sprintf("target %q defined twice", t.Name))
		}
		byName[t.Name] = t
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 30 * time.Second
	}

	return &Engine{
		cfg:      cfg,
		store:    store,
		backend:  backend,
		codec:    c,
		targets:  byName,
		notifier: notify.Noop{},
		registry: newRegistry(),
		locks:    newTargetLocks(),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetSafetyBackup wires the backup engine used for pre-recovery snapshots.
func (e *Engine) SetSafetyBackup(b SafetyBackup) {
	e.backups = b
}

// SetNotifier sets the alert sink. A nil notifier disables alerts.
func (e *Engine) SetNotifier(n notify.Notifier) {
	if n == nil {
		n = notify.Noop{}
	}
	e.notifier = n
}

// Targets returns the configured target names.
func (e *Engine) Targets() []string {
	names := make([]string, 0, len(e.targets))
	for n := range e.targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// GetRecovery returns a recovery, reading in-flight state first.
func (e *Engine) GetRecovery(ctx context.Context, id string) (*models.RecoveryRecord, error) {
	if rec, ok := e.registry.get(id); ok {
		return rec, nil
	}
	rec, err := e.store.GetRecovery(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get recovery %s: %w", id, err)
	}
	return rec, nil
}

// ActiveRecoveries returns snapshots of the in-flight recoveries, oldest first.
func (e *Engine) ActiveRecoveries() []*models.RecoveryRecord {
	return e.registry.list()
}

// ListRecoveries returns persisted recoveries, newest first.
func (e *Engine) ListRecoveries(ctx context.Context, limit int) ([]*models.RecoveryRecord, error) {
	return e.store.ListRecoveries(ctx, limit)
}

// CancelRecovery signals an in-flight recovery to stop. The owning
// StartRecovery call records the cancelled status.
func (e *Engine) CancelRecovery(id string) error {
	return e.registry.cancel(id)
}

// active tracks one in-flight recovery.
type active struct {
	mu     sync.Mutex
	rec    *models.RecoveryRecord
	cancel context.CancelCauseFunc
}

// registry is the set of in-flight recoveries keyed by id.
type registry struct {
	mu      sync.RWMutex
	entries map[string]*active
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*active)}
}

func (r *registry) add(a *active) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[a.rec.ID] = a
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

func (r *registry) get(id string) (*models.RecoveryRecord, bool) {
	r.mu.RLock()
	a, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec.Clone(), true
}

func (r *registry) list() []*models.RecoveryRecord {
	r.mu.RLock()
	entries := make([]*active, 0, len(r.entries))
	for _, a := range r.entries {
		entries = append(entries, a)
	}
	r.mu.RUnlock()

	out := make([]*models.RecoveryRecord, 0, len(entries))
	for _, a := range entries {
		a.mu.Lock()
		out = append(out, a.rec.Clone())
		a.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (r *registry) cancel(id string) error {
	r.mu.RLock()
	a, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotActive, id)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.rec.Status.IsCancellable() {
		return fmt.Errorf("%w: %s is %s", ErrNotCancellable, id, a.rec.Status)
	}
	a.cancel(errCancelRequested)
	return nil
}

// targetLocks serializes recoveries per restore target.
type targetLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newTargetLocks() *targetLocks {
	return &targetLocks{locks: make(map[string]chan struct{})}
}

// acquire waits for the target's lock or for ctx to end.
func (l *targetLocks) acquire(ctx context.Context, target string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[target]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[target] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
