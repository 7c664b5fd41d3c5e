// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

// Package main is the entry point for the Strongbox daemon.
//
// Strongbox backs up the components of a data platform (relational
// database, key-value cache, search index, uploaded files and
// configuration) into compressed, optionally encrypted archives, verifies
// them, restores them on request and prunes them under a tiered retention
// policy.
//
// # Startup Order
//
//  1. Configuration: defaults, then a YAML file, then the environment (Koanf v2)
//  2. Catalog: BadgerDB store for backup, recovery and cleanup records
//  3. Storage: local or S3 backend behind retries and a circuit breaker
//  4. Engines: backup, verification, recovery and retention
//  5. Supervisor tree: alert log, schedule and metrics listener
//
// # Flags
//
//	--config    path to a YAML config file (overrides CONFIG_PATH)
//	--env-file  dotenv file loaded before configuration (default .env)
//	--once      run one backup, verification and cleanup pass, then exit
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. Running jobs observe the
// cancellation, the metrics listener drains for up to ten seconds and the
// catalog is closed last.
//
// # Example
//
//	export STRONGBOX_STORAGE_KIND=local
//	export STRONGBOX_STORAGE_ROOT=/var/lib/strongbox/artifacts
//	export STRONGBOX_COMPONENTS=database,files
//	export STRONGBOX_DATABASE_DSN=postgres://app@db/app
//	export STRONGBOX_FILES_PATH=/srv/uploads
//	./strongbox --once
package main
