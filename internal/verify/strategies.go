// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomtom215/strongbox/internal/codec"
	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/models"
)

// run carries the state of one verification.
type run struct {
	engine  *Engine
	rec     *models.BackupRecord
	rep     *models.VerificationReport
	scratch string

	artifact   string
	extractDir string
}

// checksumOnly downloads the artifact and compares its digest and length
// with the record. It reports whether deeper checks may continue.
func (r *run) checksumOnly(ctx context.Context) bool {
	r.artifact = filepath.Join(r.scratch, artifactFileName(r.rec))

	err := r.engine.backend.Download(ctx, r.rec.StorageLocation, r.artifact, r.rec.CompressedSizeBytes)
	if err != nil {
		if faults.IsIntegrity(err) {
			r.rep.CorruptionDetected = true
		}
		r.rep.AddIssue(fmt.Sprintf("Artifact download failed: %v", err))
		return false
	}

	sum, size, err := codec.FileChecksum(r.artifact)
	if err != nil {
		r.rep.AddIssue(fmt.Sprintf("Cannot checksum artifact: %v", err))
		return false
	}

	ok := true
	if size != r.rec.CompressedSizeBytes {
		r.rep.AddIssue(fmt.Sprintf("Size mismatch: expected %d bytes, got %d", r.rec.CompressedSizeBytes, size))
		ok = false
	}
	if sum != r.rec.Checksum {
		r.rep.AddIssue(fmt.Sprintf("Checksum mismatch: expected %s, got %s", r.rec.Checksum, sum))
		ok = false
	}
	if !ok {
		r.rep.CorruptionDetected = true
		return false
	}
	r.rep.ChecksumVerified = true
	return true
}

// metadataCheck lists the artifact and checks component coverage.
func (r *run) metadataCheck(ctx context.Context) bool {
	if !r.checksumOnly(ctx) {
		return false
	}
	entries, err := r.engine.codec.List(ctx, r.artifact)
	if err != nil {
		r.decodeFailed(err)
		return false
	}
	r.checkMetadata(entries)
	return true
}

// checkMetadata records missing component metadata and an implausible
// compression ratio as warnings.
func (r *run) checkMetadata(entries []codec.FileEntry) {
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Path] = true
	}

	var missing []string
	for _, c := range r.rec.IncludedComponents {
		if !present[models.MetadataFileName(c)] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		r.rep.AddWarning("Missing expected components: " + formatList(missing))
	}

	if r.rec.CompressedSizeBytes > 0 {
		ratio := float64(r.rec.SizeBytes) / float64(r.rec.CompressedSizeBytes)
		if ratio < minCompressionRatio || ratio > maxCompressionRatio {
			r.rep.AddWarning(fmt.Sprintf("Compression ratio %.2f is outside the expected range %.1f-%.0f", ratio, minCompressionRatio, maxCompressionRatio))
		}
	}

	r.rep.MetadataVerified = len(missing) == 0
}

// partialRestore decodes into scratch and checks per-component markers.
func (r *run) partialRestore(ctx context.Context) bool {
	if !r.checksumOnly(ctx) {
		return false
	}

	r.extractDir = filepath.Join(r.scratch, "extract")
	if err := os.MkdirAll(r.extractDir, 0o750); err != nil {
		r.rep.AddIssue(fmt.Sprintf("Cannot create extraction directory: %v", err))
		return false
	}
	entries, err := r.engine.codec.Decode(ctx, r.artifact, r.extractDir)
	if err != nil {
		r.decodeFailed(err)
		return false
	}
	r.checkMetadata(entries)

	ok := true
	for _, c := range r.rec.IncludedComponents {
		marker := models.MarkerFile(c)
		if _, err := os.Stat(filepath.Join(r.extractDir, filepath.FromSlash(marker))); err != nil {
			r.rep.AddIssue(fmt.Sprintf("Component %s is missing its marker file %s", c, marker))
			ok = false
		}
	}
	return ok
}

// contentValidation shallow-parses the extracted dumps and snapshots.
func (r *run) contentValidation(ctx context.Context) {
	if !r.partialRestore(ctx) {
		return
	}

	ok := true
	for _, c := range r.rec.IncludedComponents {
		if msg := validateContent(c, filepath.Join(r.extractDir, filepath.FromSlash(models.MarkerFile(c)))); msg != "" {
			r.rep.AddIssue(msg)
			ok = false
		}
	}
	r.rep.ContentSampleVerified = ok
}

// fullRestoreTest hands the extracted tree to the restore tester.
func (r *run) fullRestoreTest(ctx context.Context) {
	if !r.partialRestore(ctx) {
		return
	}

	if r.engine.tester == nil {
		r.rep.AddRecommendation("Configure a restore tester to exercise an isolated real restore")
		return
	}
	if err := r.engine.tester.TestRestore(ctx, r.rec, r.extractDir); err != nil {
		r.rep.AddIssue(fmt.Sprintf("Restore test failed: %v", err))
		return
	}
	r.rep.RestoreTestPassed = true
}

// decodeFailed records a decode error as an issue. Integrity failures
// mean the artifact is corrupt.
func (r *run) decodeFailed(err error) {
	if faults.IsIntegrity(err) {
		r.rep.CorruptionDetected = true
		r.rep.AddIssue(fmt.Sprintf("Artifact is corrupt: %v", err))
		return
	}
	r.rep.AddIssue(fmt.Sprintf("Artifact could not be decoded: %v", err))
}

// formatList renders names as ['a', 'b'].
func formatList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
