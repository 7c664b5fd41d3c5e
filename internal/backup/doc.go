// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

// Package backup creates platform backups.
//
// # Overview
//
// The Engine dumps every declared component into an isolated staging
// directory, encodes the staging tree into a single artifact with the
// codec package, computes the artifact's sha256 before upload, uploads it
// through a storage.Backend and persists a models.BackupRecord in the
// catalog.
//
// # Pipeline
//
//	validate options      -> ConfigurationError, nothing persisted
//	persist running record
//	for each component    -> <staging>/<component>/ + <component>_metadata.json
//	encode                -> <backup_id>.tar[.gz|.lz4|.zst][.enc]
//	upload                -> storage location
//	persist completed record
//	optional checksum_only verification
//
// Any dump failure aborts the run before upload: the record is marked
// failed with a message naming the component and nothing is uploaded.
// Staging and the local artifact are removed on every exit path.
//
// # Backup Types
//
//	full          - regular backup, subject to tiered retention
//	pre_recovery  - safety snapshot taken by the recovery engine; it gets
//	                ExpiresAt and a short retention of its own
//
// # Usage
//
//	engine, err := backup.NewEngine(backup.Config{
//		Components:  cfg.Components.Enabled,
//		DumpTimeout: cfg.Components.DumpTimeout,
//	}, store, backend, codec, platform.Registry)
//	if err != nil {
//		return err
//	}
//	engine.SetVerifier(verifier)
//	engine.SetNotifier(notifier)
//
//	res, err := engine.CreateFullBackup(ctx, backup.Options{Trigger: models.TriggerManual})
//	if err != nil {
//		return err // configuration problem, nothing was persisted
//	}
//	if !res.Success {
//		log.Printf("backup %s failed: %s", res.Backup.ID, res.Error)
//	}
//
// # Thread Safety
//
// Engine methods are safe for concurrent use. Independent backups run
// concurrently; the dumps inside one backup run strictly in declared order.
package backup
