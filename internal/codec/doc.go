// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

/*
Package codec turns a staged backup directory into a single artifact file and
back.

Pipeline (encode order):

	staging dir -> tar -> compress (none|gzip|lz4|zstd) -> encrypt (age, optional) -> file

Artifact names record the pipeline so decoding needs nothing but the name:

	<backup_id>.tar
	<backup_id>.tar.gz
	<backup_id>.tar.lz4
	<backup_id>.tar.zst
	<backup_id>.tar.zst.enc

The tar stream ends with a MANIFEST.json entry listing every file with its
size and sha256. Decode and List recompute both for every entry; any mismatch,
missing manifest, truncated stream, bad compression frame or failed
decryption is a faults.IntegrityError.

Extraction rejects entries that would escape the destination directory and
caps each file at MaxFileSize bytes.
*/
package codec
