// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

/*
Package services provides suture.Service wrappers for strongbox components.

Each wrapper implements suture.Service and fmt.Stringer:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Available services:

  - ScheduleService triggers full backups, verification of the newest
    backup and retention cleanup on fixed intervals. A failed job is logged
    and alerted by the engines; it never stops the service.
  - AlertLogService consumes the alert topic and writes each alert to the
    structured log.
  - HTTPServerService runs an *http.Server (the metrics listener) with
    graceful shutdown.

All services return ctx.Err() on shutdown so suture can tell a requested
stop from a crash.
*/
package services
