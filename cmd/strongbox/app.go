// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package main

import (
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/strongbox/internal/backup"
	"github.com/tomtom215/strongbox/internal/catalog"
	"github.com/tomtom215/strongbox/internal/codec"
	"github.com/tomtom215/strongbox/internal/components"
	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/notify"
	"github.com/tomtom215/strongbox/internal/recovery"
	"github.com/tomtom215/strongbox/internal/retention"
	"github.com/tomtom215/strongbox/internal/storage"
	"github.com/tomtom215/strongbox/internal/supervisor"
	"github.com/tomtom215/strongbox/internal/supervisor/services"
	"github.com/tomtom215/strongbox/internal/verify"
)

// app holds everything built from configuration.
type app struct {
	cfg *config.Config

	store    *catalog.BadgerStore
	platform *components.Platform
	bus      *gochannel.GoChannel
	alerts   *notify.WatermillNotifier

	backups   *backup.Engine
	verifier  *verify.Engine
	recovery  *recovery.Engine
	retention *retention.Engine
	schedule  *services.ScheduleService
}

// build wires the engines. On error everything opened so far is closed.
func build(cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.store, err = catalog.Open(&cfg.Catalog); err != nil {
		return nil, err
	}

	backend, err := storage.New(&cfg.Storage)
	if err != nil {
		return nil, err
	}

	c, err := codec.NewFromConfig(&cfg.Codec)
	if err != nil {
		return nil, err
	}

	if a.platform, err = components.FromConfig(&cfg.Components); err != nil {
		return nil, err
	}

	var alerts notify.Notifier = notify.Noop{}
	if cfg.Notify.Enabled {
		a.bus = notify.NewGoChannel(&cfg.Notify)
		a.alerts = notify.NewWatermillNotifier(a.bus, cfg.Notify.Topic)
		alerts = a.alerts
	}

	a.verifier, err = verify.NewEngine(verify.Config{
		ScratchDir:    cfg.Verify.ScratchDir,
		Concurrency:   cfg.Verify.Concurrency,
		SiblingWindow: cfg.Verify.SiblingWindow,
	}, a.store, backend, c)
	if err != nil {
		return nil, err
	}
	a.verifier.SetRestoreTester(verify.ScratchRestoreTester{Dir: cfg.Verify.ScratchDir})
	a.verifier.SetNotifier(alerts)

	a.backups, err = backup.NewEngine(backup.Config{
		Components:           cfg.Components.Enabled,
		StagingDir:           cfg.Backup.StagingDir,
		DumpTimeout:          cfg.Components.DumpTimeout,
		VerifyIntegrity:      cfg.Backup.VerifyIntegrity,
		PreRecoveryRetention: time.Duration(cfg.Retention.PreRecoveryRetentionDays) * 24 * time.Hour,
	}, a.store, backend, c, a.platform.Registry)
	if err != nil {
		return nil, err
	}
	a.backups.SetVerifier(a.verifier)
	a.backups.SetNotifier(alerts)

	a.recovery, err = recovery.NewEngine(recovery.Config{
		ScratchDir:     cfg.Recovery.ScratchDir,
		RestoreTimeout: cfg.Components.DumpTimeout,
		ProbeTimeout:   cfg.Recovery.ProbeTimeout,
	}, a.store, backend, c, recovery.Target{
		Name:     recovery.TargetLive,
		Live:     true,
		Registry: a.platform.Registry,
		Probers:  a.platform.Probers,
	})
	if err != nil {
		return nil, err
	}
	a.recovery.SetSafetyBackup(a.backups)
	a.recovery.SetNotifier(alerts)

	if a.retention, err = retention.NewEngine(cfg.Retention, a.store, backend); err != nil {
		return nil, err
	}
	a.retention.SetNotifier(alerts)

	a.schedule = services.NewScheduleService(cfg.Schedule, a.backups, a.verifier, a.retention)

	logging.Info().
		Strs("recovery_targets", a.recovery.Targets()).
		Bool("alerts", cfg.Notify.Enabled).
		Bool("schedule", cfg.Schedule.Enabled).
		Msg("Engines initialized")
	return a, nil
}

// register adds the long-running services to tree.
func (a *app) register(tree *supervisor.SupervisorTree) {
	if a.bus != nil {
		tree.AddDataService(services.NewAlertLogService(a.bus, a.alerts.Topic()))
	}
	if a.cfg.Schedule.Enabled {
		tree.AddJobService(a.schedule)
	}
	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{
			Addr:              a.cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService("metrics-server", server, 10*time.Second))
		logging.Info().Str("addr", a.cfg.Metrics.Addr).Msg("Metrics listener configured")
	}
}

// Close releases resources in reverse order of creation. Safe to call twice.
func (a *app) Close() {
	if a.alerts != nil {
		if err := a.alerts.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing alert publisher")
		}
		a.alerts = nil
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing alert bus")
		}
		a.bus = nil
	}
	if a.platform != nil {
		if err := a.platform.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing component connections")
		}
		a.platform = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog")
		}
		a.store = nil
	}
}
