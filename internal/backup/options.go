// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package backup

import (
	"fmt"

	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/models"
)

// Options selects what a backup run covers.
type Options struct {
	// BackupType defaults to full.
	BackupType models.BackupType

	// Trigger defaults to manual.
	Trigger models.BackupTrigger

	// ScheduleID groups scheduled backups for cross-backup comparison.
	ScheduleID string

	// Components overrides the configured dump order for CreateBackup.
	// CreateFullBackup ignores it.
	Components []string

	// VerifyIntegrity overrides Config.VerifyIntegrity when set.
	VerifyIntegrity *bool
}

// normalize fills defaults and checks the options against the registry.
func (e *Engine) normalize(opts Options) (Options, error) {
	if opts.BackupType == "" {
		opts.BackupType = models.BackupTypeFull
	}
	switch opts.BackupType {
	case models.BackupTypeFull, models.BackupTypePreRecovery:
	default:
		return opts, faults.Configuration("backup_type", fmt.Sprintf("unknown backup type %q", opts.BackupType))
	}

	if opts.Trigger == "" {
		opts.Trigger = models.TriggerManual
		if opts.BackupType == models.BackupTypePreRecovery {
			opts.Trigger = models.TriggerPreRecovery
		}
	}

	if len(opts.Components) == 0 {
		opts.Components = e.Components()
	}
	if len(opts.Components) == 0 {
		return opts, faults.Configuration("components", "no components declared")
	}

	seen := make(map[string]bool, len(opts.Components))
	for _, name := range opts.Components {
		if seen[name] {
			return opts, faults.Configuration("components", fmt.Sprintf("component %q declared twice", name))
		}
		seen[name] = true
		if !models.IsKnownComponent(name) {
			return opts, faults.Configuration("components", fmt.Sprintf("unknown component %q", name))
		}
	}
	if _, err := e.registry.Resolve(opts.Components); err != nil {
		return opts, err
	}
	return opts, nil
}

func (e *Engine) verifyRequested(opts Options) bool {
	if opts.VerifyIntegrity != nil {
		return *opts.VerifyIntegrity
	}
	return e.cfg.VerifyIntegrity
}
