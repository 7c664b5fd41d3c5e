// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

/*
Package recovery restores platform components from a backup.

A recovery moves through

	pending -> preparing -> downloading -> extracting -> restoring -> validating -> completed
	                                                                           \-> failed | cancelled

preparing takes the advisory lock of the restore target and, for live
targets, runs a pre_recovery safety backup when requested. A failed safety
backup fails the recovery before anything is restored. downloading fetches
the artifact and checks its sha256; extracting decodes it into a scratch
directory; restoring applies components one by one in backup order. A
component failure stops the run: components already restored stay
recorded, the failure detail is kept per component and the error is a
faults.PartialFailureError. There is no automatic rollback.

Point-in-time recovery restores the nearest completed full backup taken at
or before the target time and records a warning: transaction logs are not
replayed.

The engine owns a registry of in-flight recoveries keyed by recovery id.
CancelRecovery is accepted only while a recovery is pending, preparing,
downloading or extracting; once restoring starts the run finishes or fails
on its own.
*/
package recovery
