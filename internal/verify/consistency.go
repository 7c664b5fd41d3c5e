// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package verify

import (
	"context"
	"fmt"
	"math"

	"github.com/tomtom215/strongbox/internal/models"
)

// crossBackupConsistency compares the backup with completed siblings from
// the same schedule inside the sibling window.
func (r *run) crossBackupConsistency(ctx context.Context) {
	if !r.checksumOnly(ctx) {
		return
	}

	siblings, err := r.engine.siblings(ctx, r.rec)
	if err != nil {
		r.rep.AddWarning(fmt.Sprintf("Sibling backups could not be loaded: %v", err))
		return
	}
	if len(siblings) == 0 {
		r.rep.AddRecommendation("No sibling backups from the same schedule within the comparison window")
		return
	}

	var sizeSum, durSum float64
	for _, s := range siblings {
		sizeSum += float64(s.SizeBytes)
		durSum += s.DurationSeconds
	}
	n := float64(len(siblings))

	if dev, ok := deviation(float64(r.rec.SizeBytes), sizeSum/n); ok && dev > maxSizeDeviation {
		r.rep.AddWarning(fmt.Sprintf("Size deviates %.0f%% from the mean of %d sibling backups", dev*100, len(siblings)))
	}
	if dev, ok := deviation(r.rec.DurationSeconds, durSum/n); ok && dev > maxDurationDeviation {
		r.rep.AddWarning(fmt.Sprintf("Duration deviates %.0f%% from the mean of %d sibling backups", dev*100, len(siblings)))
	}
}

// siblings returns completed backups of the same schedule and type within
// the window around rec, excluding rec itself.
func (e *Engine) siblings(ctx context.Context, rec *models.BackupRecord) ([]*models.BackupRecord, error) {
	all, err := e.store.ListBackups(ctx, models.BackupFilter{
		Status:     models.BackupStatusCompleted,
		BackupType: rec.BackupType,
		Since:      rec.StartedAt.Add(-e.cfg.SiblingWindow),
		Until:      rec.StartedAt.Add(e.cfg.SiblingWindow),
	})
	if err != nil {
		return nil, err
	}

	out := make([]*models.BackupRecord, 0, len(all))
	for _, b := range all {
		if b.ID != rec.ID && b.ScheduleID == rec.ScheduleID {
			out = append(out, b)
		}
	}
	return out, nil
}

// deviation returns |value-mean|/mean. It is undefined for a zero mean.
func deviation(value, mean float64) (float64, bool) {
	if mean <= 0 {
		return 0, false
	}
	return math.Abs(value-mean) / mean, true
}
