// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package verify

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/strongbox/internal/models"
)

// VerifyMany verifies independent backups concurrently, bounded by
// Config.Concurrency. Results are in the order of backupIDs. A backup that
// cannot be verified at all gets a failed result carrying the error.
func (e *Engine) VerifyMany(ctx context.Context, backupIDs []string, vt models.VerificationType, force bool) []*Result {
	results := make([]*Result, len(backupIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for i, id := range backupIDs {
		g.Go(func() error {
			res, err := e.VerifyBackup(gctx, id, vt, force)
			if err != nil {
				res = &Result{Result: models.Result{
					Success: false,
					Status:  string(models.ResultFailed),
					Error:   err.Error(),
				}}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	return results
}
