// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

/*
Package models defines the records shared by the Strongbox engines.

The package has no behavior beyond small helpers on the types. It is the
single source of truth for:

  - BackupRecord: one backup run and its artifact
  - RecoveryRecord: one recovery run and its per-component outcome
  - VerificationReport: the result of one verification strategy
  - RetentionPolicy and CleanupRecord: retention inputs and outputs
  - Alert: the structured payload handed to the notification collaborator
  - Result: the {success, status, error} envelope every engine returns

Usage Example:

	record := &models.BackupRecord{
	    ID:                 uuid.New().String(),
	    BackupType:         models.BackupTypeFull,
	    Status:             models.BackupStatusRunning,
	    IncludedComponents: []string{models.ComponentDatabase, models.ComponentCache},
	}

All types carry json tags in snake_case and are persisted by the catalog
package with goccy/go-json.
*/
package models
