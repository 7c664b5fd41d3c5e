// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/tomtom215/strongbox/internal/components"
	"github.com/tomtom215/strongbox/internal/models"
)

// ScratchRestoreTester restores directory-backed components into a
// throwaway tree and checks that every file listed in the component
// metadata arrives. Components that need a live server are skipped.
type ScratchRestoreTester struct {
	// Dir is the parent of the throwaway trees. Empty uses the system
	// temp directory.
	Dir string
}

func (t ScratchRestoreTester) TestRestore(ctx context.Context, backup *models.BackupRecord, extractDir string) error {
	target, err := os.MkdirTemp(t.Dir, "strongbox-restore-test-*")
	if err != nil {
		return fmt.Errorf("create restore target: %w", err)
	}
	defer os.RemoveAll(target) //nolint:errcheck // Best effort cleanup

	for _, name := range backup.IncludedComponents {
		if name != models.ComponentFiles && name != models.ComponentConfiguration {
			continue
		}

		meta, err := readMetadata(filepath.Join(extractDir, filepath.FromSlash(models.MetadataFileName(name))))
		if err != nil {
			return err
		}

		dest := filepath.Join(target, name)
		if err := components.NewDirectory(name, dest, meta.ComponentVersion).Restore(ctx, filepath.Join(extractDir, name)); err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}

		for _, f := range meta.Files {
			rel, err := filepath.Rel(name, filepath.FromSlash(f))
			if err != nil {
				return err
			}
			if _, err := os.Stat(filepath.Join(dest, rel)); err != nil {
				return fmt.Errorf("restored %s is missing %s", name, f)
			}
		}
	}
	return nil
}

//nolint:gosec // G304: path is inside the scratch directory
func readMetadata(path string) (*models.ComponentMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read component metadata: %w", err)
	}
	var meta models.ComponentMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse component metadata: %w", err)
	}
	return &meta, nil
}
