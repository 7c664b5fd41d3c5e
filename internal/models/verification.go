// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package models

import "time"

// VerificationType is one of the escalating verification strategies.
type VerificationType string

const (
	VerifyChecksumOnly           VerificationType = "checksum_only"
	VerifyMetadataCheck          VerificationType = "metadata_check"
	VerifyPartialRestore         VerificationType = "partial_restore"
	VerifyContentValidation      VerificationType = "content_validation"
	VerifyFullRestoreTest        VerificationType = "full_restore_test"
	VerifyCrossBackupConsistency VerificationType = "cross_backup_consistency"
)

// IsValid reports whether t is a known verification type.
func (t VerificationType) IsValid() bool {
	switch t {
	case VerifyChecksumOnly, VerifyMetadataCheck, VerifyPartialRestore,
		VerifyContentValidation, VerifyFullRestoreTest, VerifyCrossBackupConsistency:
		return true
	}
	return false
}

// VerificationResult is the outcome of a verification run.
type VerificationResult string

const (
	ResultPassed     VerificationResult = "passed"
	ResultFailed     VerificationResult = "failed"
	ResultWarning    VerificationResult = "warning"
	ResultSkipped    VerificationResult = "skipped"
	ResultInProgress VerificationResult = "in_progress"
)

// VerificationReport records what one verification run checked and found.
type VerificationReport struct {
	ID                    string             `json:"verification_id"`
	BackupID              string             `json:"backup_id"`
	VerificationType      VerificationType   `json:"verification_type"`
	Result                VerificationResult `json:"result"`
	ChecksumVerified      bool               `json:"checksum_verified"`
	MetadataVerified      bool               `json:"metadata_verified"`
	ContentSampleVerified bool               `json:"content_sample_verified"`
	RestoreTestPassed     bool               `json:"restore_test_passed"`
	CorruptionDetected    bool               `json:"corruption_detected"`
	IssuesFound           []string           `json:"issues_found"`
	Warnings              []string           `json:"warnings"`
	Recommendations       []string           `json:"recommendations"`
	StartedAt             time.Time          `json:"started_at"`
	CompletedAt           *time.Time         `json:"completed_at,omitempty"`
}

// AddIssue records a failure finding.
func (r *VerificationReport) AddIssue(msg string) {
	r.IssuesFound = append(r.IssuesFound, msg)
}

// AddWarning records a non-fatal finding.
func (r *VerificationReport) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// AddRecommendation records operator advice.
func (r *VerificationReport) AddRecommendation(msg string) {
	r.Recommendations = append(r.Recommendations, msg)
}

// Aggregate derives Result from the findings: failed if any issue, else
// warning if any warning, else passed.
func (r *VerificationReport) Aggregate() VerificationResult {
	switch {
	case len(r.IssuesFound) > 0:
		r.Result = ResultFailed
	case len(r.Warnings) > 0:
		r.Result = ResultWarning
	default:
		r.Result = ResultPassed
	}
	return r.Result
}
