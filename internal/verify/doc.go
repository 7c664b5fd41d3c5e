// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

/*
Package verify checks that stored backup artifacts are intact and usable.

Strategies escalate, each one extending the previous:

	checksum_only             download, recompute sha256 and length
	metadata_check            + every declared component has its metadata
	                            file; compression ratio within 0.1-10
	partial_restore           + decode to scratch, per-component markers exist
	content_validation        + dump header and snapshot documents parse
	full_restore_test         partial_restore + optional RestoreTester hook
	cross_backup_consistency  checksum_only + size and duration compared
	                            with sibling backups of the same schedule

A report is failed if any issue was found, otherwise warning if any warning
was found, otherwise passed. Checksum mismatches and decode failures set
CorruptionDetected. Each run uses its own scratch directory, removed on
every exit path.

Verification never takes locks; independent backups verify concurrently
through VerifyMany.
*/
package verify
