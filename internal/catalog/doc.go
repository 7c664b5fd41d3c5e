// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

// Package catalog persists backup, recovery, verification and cleanup
// records in BadgerDB.
//
// Records are stored as JSON under prefixed keys:
//
//	backup/<backup_id>
//	recovery/<recovery_id>
//	verification/<backup_id>/<verification_id>
//	cleanup/<cleanup_id>
//
// Backup rows are never removed; retention marks them deleted.
package catalog
