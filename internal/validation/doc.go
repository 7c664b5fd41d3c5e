// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

// Package validation provides struct validation using go-playground/validator v10.
//
// It exposes a thread-safe singleton validator with Strongbox specific rules
// registered once:
//
//   - component: value must be a known platform component name
//
// Example usage:
//
//	type Request struct {
//	    SourceBackupID string   `validate:"required"`
//	    Components     []string `validate:"dive,component"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    return faults.Configuration(verr.Errors()[0].Namespace(), verr.Error())
//	}
package validation
