// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

/*
Package retention applies tiered retention to completed backups.

A completed full backup is kept when any tier claims it:

  - daily: at most KeepDailyForDays days old
  - retention period: at most RetentionDays days old, when the weekly tier
    is set
  - weekly: newest backup of its ISO week, within KeepWeeklyForWeeks weeks
    (RetentionDays days when the weekly tier is unset)
  - monthly: newest backup of its calendar month, within KeepMonthlyForMonths
  - yearly: newest backup of its calendar year, within KeepYearlyForYears

Everything else is a deletion candidate. If deleting every candidate would
leave fewer than MinBackupsToKeep backups, the oldest candidates are taken
off the deletion list until the minimum holds.

pre_recovery safety backups are judged on their own: they are deleted once
expired (ExpiresAt, or PreRecoveryRetentionDays after they started) and
never count toward the tiers or the minimum.

Deleting a backup removes its artifact from storage and marks the record
deleted. The record's storage location and checksum move to the
DeletedStorageLocation and DeletedChecksum fields; rows are never
hard-deleted. A storage error on one backup is
recorded in the CleanupRecord and the run continues.
*/
package retention
