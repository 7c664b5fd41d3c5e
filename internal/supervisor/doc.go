// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

/*
Package supervisor runs the long-lived parts of strongbox under suture v4.

The tree has three layers so a failing job cannot take down alert handling
or the metrics listener:

	RootSupervisor ("strongbox")
	├── DataSupervisor ("data-layer")
	│   └── AlertLogService (if notify.enabled)
	├── JobsSupervisor ("jobs-layer")
	│   └── ScheduleService (if schedule.enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService "metrics-server" (if metrics.enabled)

Crashed services are restarted with suture's backoff. Supervisor events are
logged through sutureslog, which takes a *slog.Logger; strongbox passes the
zerolog-backed handler from internal/logging so every event lands in the
same structured log.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	if err != nil {
		return err
	}
	tree.AddJobService(services.NewScheduleService(cfg.Schedule, backups, verifier, cleaner))
	errCh := tree.ServeBackground(ctx)

The services themselves live in the services subpackage.
*/
package supervisor
