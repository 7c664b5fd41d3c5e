// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/strongbox/internal/catalog"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/models"
)

// Request describes a recovery to run.
type Request struct {
	// SourceBackupID is the backup to restore. Ignored for point_in_time,
	// where the source is chosen from TargetTime.
	SourceBackupID string

	RecoveryType models.RecoveryType

	// Target names the system to restore into. Empty means TargetLive.
	Target string

	// Components lists what a selective recovery restores.
	Components []string

	// TargetTime is required for point_in_time.
	TargetTime *time.Time

	CreateBackupBeforeRestore bool
	ValidateAfterRestore      bool
}

// plan is a validated request.
type plan struct {
	target     Target
	source     *models.BackupRecord
	components []string
	warnings   []string
}

// singleComponent maps the one-component recovery types to their component.
var singleComponent = map[models.RecoveryType]string{
	models.RecoveryDatabaseOnly:      models.ComponentDatabase,
	models.RecoveryFilesOnly:         models.ComponentFiles,
	models.RecoveryConfigurationOnly: models.ComponentConfiguration,
}

// validate checks req and resolves its source backup and component list.
// Every problem is a ConfigurationError.
func (e *Engine) validate(ctx context.Context, req Request) (*plan, error) {
	if req.Target == "" {
		req.Target = TargetLive
	}
	target, ok := e.targets[req.Target]
	if !ok {
		return nil, faults.Configuration("target", fmt.Sprintf("unknown restore target %q", req.Target))
	}
	if !req.RecoveryType.IsValid() {
		return nil, faults.Configuration("recovery_type", fmt.Sprintf("unknown recovery type %q", req.RecoveryType))
	}

	p := &plan{target: target}

	var err error
	if req.RecoveryType == models.RecoveryPointInTime {
		p.source, err = e.pointInTimeSource(ctx, req.TargetTime)
		if err != nil {
			return nil, err
		}
		p.warnings = append(p.warnings, fmt.Sprintf(
			"point-in-time recovery restores backup %s taken at %s; transaction logs after that time are not replayed",
			p.source.ID, p.source.StartedAt.Format(time.RFC3339)))
	} else {
		p.source, err = e.sourceBackup(ctx, req.SourceBackupID)
		if err != nil {
			return nil, err
		}
	}

	p.components, err = restoreComponents(req, p.source)
	if err != nil {
		return nil, err
	}
	if _, err := target.Registry.Resolve(p.components); err != nil {
		return nil, faults.Configuration("target", fmt.Sprintf("target %q cannot restore: %v", target.Name, err))
	}

	if req.CreateBackupBeforeRestore && target.Live && e.backups == nil {
		return nil, faults.Configuration("create_backup_before_restore", "no backup engine is configured for the safety backup")
	}
	return p, nil
}

func (e *Engine) sourceBackup(ctx context.Context, id string) (*models.BackupRecord, error) {
	if id == "" {
		return nil, faults.Configuration("source_backup_id", "source backup is required")
	}
	rec, err := e.store.GetBackup(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, faults.Configuration("source_backup_id", fmt.Sprintf("backup %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("load source backup %s: %w", id, err)
	}
	if rec.Status != models.BackupStatusCompleted || rec.StorageLocation == "" {
		return nil, faults.Configuration("source_backup_id", fmt.Sprintf("backup %s is %s, not completed", id, rec.Status))
	}
	return rec, nil
}

// pointInTimeSource returns the newest completed full backup started at or
// before at.
func (e *Engine) pointInTimeSource(ctx context.Context, at *time.Time) (*models.BackupRecord, error) {
	if at == nil || at.IsZero() {
		return nil, faults.Configuration("target_time", "point_in_time recovery requires a target time")
	}
	recs, err := e.store.ListBackups(ctx, models.BackupFilter{
		Status:     models.BackupStatusCompleted,
		BackupType: models.BackupTypeFull,
		Until:      *at,
	})
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	for _, rec := range recs {
		if rec.StorageLocation != "" && !rec.StartedAt.After(*at) {
			return rec, nil
		}
	}
	return nil, faults.Configuration("target_time",
		fmt.Sprintf("no completed full backup at or before %s", at.UTC().Format(time.RFC3339)))
}

// restoreComponents returns the components to restore in backup order.
func restoreComponents(req Request, src *models.BackupRecord) ([]string, error) {
	switch req.RecoveryType {
	case models.RecoveryFull, models.RecoveryPointInTime:
		if len(src.IncludedComponents) == 0 {
			return nil, faults.Configuration("source_backup_id", fmt.Sprintf("backup %s includes no components", src.ID))
		}
		return append([]string(nil), src.IncludedComponents...), nil

	case models.RecoverySelective:
		if len(req.Components) == 0 {
			return nil, faults.Configuration("components", "selective recovery requires at least one component")
		}
		want := make(map[string]bool, len(req.Components))
		for _, c := range req.Components {
			if !models.IsKnownComponent(c) {
				return nil, faults.Configuration("components", fmt.Sprintf("unknown component %q", c))
			}
			if !src.HasComponent(c) {
				return nil, faults.Configuration("components", fmt.Sprintf("backup %s does not include %s", src.ID, c))
			}
			want[c] = true
		}
		out := make([]string, 0, len(want))
		for _, c := range src.IncludedComponents {
			if want[c] {
				out = append(out, c)
			}
		}
		return out, nil

	default:
		c := singleComponent[req.RecoveryType]
		if !src.HasComponent(c) {
			return nil, faults.Configuration("source_backup_id", fmt.Sprintf("backup %s does not include %s", src.ID, c))
		}
		return []string{c}, nil
	}
}
