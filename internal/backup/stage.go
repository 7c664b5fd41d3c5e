// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/strongbox/internal/components"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/models"
)

// stage dumps each component in declared order into stageDir/<component>.
func (e *Engine) stage(ctx context.Context, stageDir string, rec *models.BackupRecord) error {
	comps, err := e.registry.Resolve(rec.IncludedComponents)
	if err != nil {
		return err
	}

	for _, comp := range comps {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		dir := filepath.Join(stageDir, comp.Name())
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("component %s: create staging directory: %w", comp.Name(), err)
		}

		if err := e.dumpComponent(ctx, comp, dir); err != nil {
			return fmt.Errorf("component %s dump failed: %w", comp.Name(), err)
		}

		meta, err := writeComponentMetadata(ctx, comp, stageDir, e.version(ctx, comp), e.now())
		if err != nil {
			return fmt.Errorf("component %s: %w", comp.Name(), err)
		}

		logging.Ctx(ctx).Debug().
			Str("component", comp.Name()).
			Int("files", len(meta.Files)).
			Int64("size_bytes", meta.SizeBytes).
			Dur("elapsed", time.Since(start)).
			Msg("Component staged")
	}
	return nil
}

// dumpComponent runs one dump under the configured timeout. A deadline
// overrun is a TransportError.
func (e *Engine) dumpComponent(ctx context.Context, comp components.Component, dir string) error {
	dumpCtx := ctx
	if e.cfg.DumpTimeout > 0 {
		var cancel context.CancelFunc
		dumpCtx, cancel = context.WithTimeout(ctx, e.cfg.DumpTimeout)
		defer cancel()
	}

	err := comp.Dump(dumpCtx, dir)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(dumpCtx.Err(), context.DeadlineExceeded) {
		return faults.Transport("dump "+comp.Name(), fmt.Errorf("exceeded %s: %w", e.cfg.DumpTimeout, err))
	}
	return faults.FromContext("dump "+comp.Name(), err)
}

// version asks the component for its version. Failures are logged and
// recorded as "unknown"; they never fail the backup.
func (e *Engine) version(ctx context.Context, comp components.Component) string {
	vctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	v, err := comp.Version(vctx)
	if err != nil || v == "" {
		logging.Ctx(ctx).Warn().Err(err).Str("component", comp.Name()).Msg("Could not determine component version")
		return "unknown"
	}
	return v
}

// writeComponentMetadata writes <component>/<component>_metadata.json
// describing the staged files. A dumped file already at that path is an
// error, since restoring would drop it.
func writeComponentMetadata(ctx context.Context, comp components.Component, stageDir, version string, at time.Time) (*models.ComponentMetadata, error) {
	metaName := models.MetadataFileName(comp.Name())
	meta := &models.ComponentMetadata{
		Component:        comp.Name(),
		BackupTime:       at.Format(time.RFC3339),
		ComponentVersion: version,
		Files:            []string{},
	}

	root := filepath.Join(stageDir, comp.Name())
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(stageDir, path)
		if err != nil {
			return err
		}
		if filepath.ToSlash(rel) == metaName {
			return faults.Configuration("components."+comp.Name(),
				fmt.Sprintf("source contains %s, which is reserved for backup metadata", d.Name()))
		}
		meta.Files = append(meta.Files, filepath.ToSlash(rel))
		meta.SizeBytes += info.Size()
		return nil
	})
	if faults.IsConfiguration(err) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan staged files: %w", err)
	}
	sort.Strings(meta.Files)

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stageDir, filepath.FromSlash(metaName)), data, 0o640); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}
	return meta, nil
}
