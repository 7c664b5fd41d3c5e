// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package components

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/models"
)

// Directory backs up a directory tree by copying it.
type Directory struct {
	name    string
	source  string
	version string
}

// NewDirectory returns a component that copies source. It is used for the
// files and configuration components.
func NewDirectory(name, source, version string) *Directory {
	return &Directory{name: name, source: source, version: version}
}

func (d *Directory) Name() string { return d.name }

func (d *Directory) Version(context.Context) (string, error) { return d.version, nil }

// Dump copies the source tree into dir.
func (d *Directory) Dump(ctx context.Context, dir string) error {
	info, err := os.Stat(d.source)
	if err != nil {
		return fmt.Errorf("%s source %s: %w", d.name, d.source, err)
	}
	if !info.IsDir() {
		return faults.Configuration(d.name, fmt.Sprintf("source %s is not a directory", d.source))
	}
	return copyTree(ctx, d.source, dir, "")
}

// Restore copies dir back over the source tree. The metadata file written
// by the backup engine is skipped.
func (d *Directory) Restore(ctx context.Context, dir string) error {
	if err := os.MkdirAll(d.source, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", d.source, err)
	}
	return copyTree(ctx, dir, d.source, filepath.Base(models.MetadataFileName(d.name)))
}

// copyTree copies regular files from src to dst, skipping a top-level file
// named skip.
func copyTree(ctx context.Context, src, dst, skip string) error {
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return faults.FromContext("copy", ctxErr)
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if skip != "" && rel == skip {
			return nil
		}
		target := filepath.Join(dst, rel)

		switch {
		case entry.IsDir():
			return os.MkdirAll(target, 0o750)
		case entry.Type().IsRegular():
			return copyFile(path, target)
		default:
			// Symlinks and devices are not part of the backup.
			return nil
		}
	})
}

// copyFile copies a file from src to dst
//
//nolint:gosec // G304: paths come from walking configured directories
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // Best effort cleanup

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck // Best effort cleanup on error
		return err
	}
	return out.Close()
}
