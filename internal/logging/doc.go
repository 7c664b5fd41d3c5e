// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

// Package logging provides centralized zerolog-based structured logging for Strongbox.
//
// # Overview
//
// The package provides:
//   - A global zerolog logger configured once from main()
//   - JSON output for production, console output for development
//   - Context-aware logging with correlation IDs and run identifiers
//   - Adapters so that suture (slog), watermill and badger log through zerolog
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("backup_id", id).Msg("Backup started")
//	logging.Err(err).Str("component", "cache").Msg("Dump failed")
//
//	ctx = logging.ContextWithBackupID(ctx, id)
//	logging.Ctx(ctx).Info().Msg("Uploading artifact")
//
// # Configuration
//
// Environment Variables (read through the config package):
//
//	STRONGBOX_LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	STRONGBOX_LOG_FORMAT  - json, console (default: json)
//	STRONGBOX_LOG_CALLER  - include caller file:line (default: false)
//
// # Best Practices
//
// Always terminate log chains with .Msg() or .Send(). Prefer structured fields
// over Msgf formatting.
package logging
