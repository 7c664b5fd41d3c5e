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
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/faults"
)

// LocalBackend stores artifacts as files under Root.
type LocalBackend struct {
	id   string
	root string
}

// NewLocalBackend creates the root directory if needed.
func NewLocalBackend(id, root string) (*LocalBackend, error) {
	if root == "" {
		return nil, faults.Configuration("storage.local.root", "root directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, faults.Configuration("storage.local.root", fmt.Sprintf("cannot create root: %v", err))
	}
	return &LocalBackend{id: id, root: root}, nil
}

func (b *LocalBackend) ID() string   { return b.id }
func (b *LocalBackend) Kind() string { return config.StorageLocal }

// Root returns the directory holding the artifacts.
func (b *LocalBackend) Root() string { return b.root }

// objectPath resolves a location and rejects anything escaping the root.
func (b *LocalBackend) objectPath(location string) (string, error) {
	clean := filepath.Clean("/" + location)
	if clean == "/" {
		return "", faults.Configuration("location", fmt.Sprintf("invalid object location %q", location))
	}
	return filepath.Join(b.root, clean), nil
}

// Upload copies the file into the root through a temp file and rename.
func (b *LocalBackend) Upload(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", faults.FromContext("upload", err)
	}

	name := filepath.Base(localPath)
	dest, err := b.objectPath(name)
	if err != nil {
		return "", err
	}

	src, err := os.Open(localPath) //nolint:gosec // path produced by the codec
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("stat artifact: %w", err)
	}

	if err := writeVerified("upload", &ctxReader{ctx: ctx, r: src}, dest, info.Size(), 0); err != nil {
		return "", err
	}
	return name, nil
}

// Download copies the object to dest.
func (b *LocalBackend) Download(ctx context.Context, location, dest string, sizeHint int64) error {
	path, err := b.objectPath(location)
	if err != nil {
		return err
	}

	f, err := os.Open(path) //nolint:gosec // path confined to root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound("download", location)
		}
		return faults.Transport("download", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return faults.Transport("download", err)
	}

	return writeVerified("download", &ctxReader{ctx: ctx, r: f}, dest, sizeHint, info.Size())
}

// List returns regular files in the root whose name starts with prefix,
// sorted by name. Temp files from interrupted transfers are skipped.
func (b *LocalBackend) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, faults.FromContext("list", err)
	}

	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, faults.Transport("list", err)
	}

	objects := make([]ObjectInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		objects = append(objects, ObjectInfo{Name: e.Name(), Size: info.Size(), Modified: info.ModTime()})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// Delete removes the object. A missing object is not an error.
func (b *LocalBackend) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return faults.FromContext("delete", err)
	}
	path, err := b.objectPath(location)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return faults.Transport("delete", err)
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, faults.FromContext("copy", err)
	}
	return c.r.Read(p)
}
