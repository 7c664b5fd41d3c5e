// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

/*
Package storage moves encoded backup artifacts to and from durable storage.

Two backends implement Backend:

  - LocalBackend keeps artifacts under a root directory.
  - S3Backend keeps them in an S3 or S3-compatible bucket (aws-sdk-go-v2).

New selects the backend once from configuration and wraps it in Resilient,
which adds a per-call timeout, bounded exponential retries of transport
failures (cenkalti/backoff) and a circuit breaker (sony/gobreaker).

# Error Classes

  - faults.TransportError: network, disk or timeout failure, retried.
  - faults.IntegrityError: missing object or short download, never retried.
  - faults.ConfigurationError: unknown kind or missing settings, raised by New
    before any I/O.

# Locations

Upload returns the object key, which is what BackupRecord.StorageLocation
stores. Keys are backend relative: the same artifact uploaded twice converges
on the same key.
*/
package storage
