// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

// Package faults defines the error taxonomy shared by the storage, codec and
// engine packages.
//
// Four classes of failure are distinguished:
//
//   - TransportError: network or timeout failures. Retried with backoff.
//   - IntegrityError: checksum, digest or decode failures. Never retried.
//   - ConfigurationError: missing backend, component or setting. Raised
//     before any I/O happens.
//   - PartialFailureError: some components restored, some not.
//
// Callers classify with the Is* helpers, which use errors.As so wrapped
// errors are recognized.
package faults

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// TransportError wraps a retryable network or timeout failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IntegrityError reports corrupted or mismatched data. It is terminal.
type IntegrityError struct {
	Op     string
	Detail string
	Err    error
}

func (e *IntegrityError) Error() string {
	msg := fmt.Sprintf("integrity error during %s: %s", e.Op, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or invalid setting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// PartialFailureError reports a run where only some components succeeded.
// Restored keeps the components applied before the failure.
type PartialFailureError struct {
	Restored []string
	Failed   map[string]string
}

func (e *PartialFailureError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Failed[name]))
	}

	return fmt.Sprintf("partial failure: restored [%s], failed [%s]",
		strings.Join(e.Restored, ", "), strings.Join(parts, "; "))
}

// Transport wraps err as a TransportError. A nil err returns nil.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// Integrity builds an IntegrityError with an optional cause.
func Integrity(op, detail string, err error) error {
	return &IntegrityError{Op: op, Detail: detail, Err: err}
}

// Configuration builds a ConfigurationError.
func Configuration(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsIntegrity reports whether err is, or wraps, an IntegrityError.
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// IsConfiguration reports whether err is, or wraps, a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// AsPartialFailure extracts a PartialFailureError from err.
func AsPartialFailure(err error) (*PartialFailureError, bool) {
	var pe *PartialFailureError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// FromContext converts a context deadline into a TransportError so that
// timed-out I/O is classified as retryable. Other errors pass through.
func FromContext(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Op: op, Err: err}
	}
	return err
}
