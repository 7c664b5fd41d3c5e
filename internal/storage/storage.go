// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/logging"
)

// ErrNotFound is wrapped by the IntegrityError returned when an object is missing.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Name     string
	Size     int64
	Modified time.Time
}

// Backend is the contract every storage variant implements. All operations
// are safe to retry.
type Backend interface {
	// ID is the configured backend identifier recorded on backups.
	ID() string
	// Kind is "local" or "s3".
	Kind() string
	// Upload stores the file at localPath and returns its location.
	Upload(ctx context.Context, localPath string) (string, error)
	// Download writes the object at location to dest. A positive sizeHint
	// is checked against the number of bytes received.
	Download(ctx context.Context, location, dest string, sizeHint int64) error
	// List returns objects whose name starts with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Delete removes the object. Deleting a missing object succeeds.
	Delete(ctx context.Context, location string) error
}

// New builds the configured backend wrapped in the resilience decorator.
func New(cfg *config.StorageConfig) (Backend, error) {
	if cfg == nil {
		return nil, faults.Configuration("storage", "storage configuration is required")
	}
	if cfg.ID == "" {
		return nil, faults.Configuration("storage.id", "backend id is required")
	}

	var (
		inner Backend
		err   error
	)
	switch cfg.Kind {
	case config.StorageLocal:
		inner, err = NewLocalBackend(cfg.ID, cfg.Local.Root)
	case config.StorageS3:
		inner, err = NewS3Backend(cfg.ID, &cfg.S3)
	default:
		return nil, faults.Configuration("storage.kind", fmt.Sprintf("unknown storage backend kind %q", cfg.Kind))
	}
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("backend_id", cfg.ID).
		Str("kind", cfg.Kind).
		Dur("timeout", cfg.Timeout).
		Int("max_retries", cfg.MaxRetries).
		Msg("Storage backend initialized")

	return NewResilient(inner, ResilientConfigFrom(cfg)), nil
}

// writeVerified copies r into a temp file next to dest, checks the byte
// count against expected sizes and renames into place. On any failure the
// temp file is removed and dest is left untouched. A non-positive size is
// not checked.
func writeVerified(op string, r io.Reader, dest string, sizeHint, advertised int64) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return faults.Transport(op, fmt.Errorf("create destination dir: %w", err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".part-*")
	if err != nil {
		return faults.Transport(op, fmt.Errorf("create temp file: %w", err))
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil {
		return faults.Transport(op, fmt.Errorf("read object: %w", copyErr))
	}
	if closeErr != nil {
		return faults.Transport(op, fmt.Errorf("close temp file: %w", closeErr))
	}

	if advertised > 0 && n != advertised {
		return faults.Integrity(op,
			fmt.Sprintf("received %d bytes, object advertises %d", n, advertised), nil)
	}
	if sizeHint > 0 && n != sizeHint {
		return faults.Integrity(op,
			fmt.Sprintf("received %d bytes, expected %d", n, sizeHint), nil)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return faults.Transport(op, fmt.Errorf("rename into place: %w", err))
	}
	committed = true
	return nil
}

func notFound(op, location string) error {
	return faults.Integrity(op, fmt.Sprintf("%s: %s", ErrNotFound.Error(), location), ErrNotFound)
}
