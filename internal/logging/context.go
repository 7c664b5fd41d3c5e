// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	backupIDKey      contextKey = "backup_id"
	recoveryIDKey    contextKey = "recovery_id"
)

// GenerateCorrelationID creates a short correlation ID (first 8 chars of a UUID).
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a new context with the given correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context with a newly generated correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext retrieves the correlation ID, or "" if absent.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithBackupID tags the context with the backup being processed.
func ContextWithBackupID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, backupIDKey, id)
}

// BackupIDFromContext returns the backup id set by ContextWithBackupID, or "".
func BackupIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(backupIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRecoveryID tags the context with the recovery being processed.
func ContextWithRecoveryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, recoveryIDKey, id)
}

// Ctx returns a logger with the context's correlation, backup and recovery
// identifiers attached.
//
//	logging.Ctx(ctx).Info().Msg("Artifact uploaded")
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := CtxWith(ctx).Logger()
	return &logger
}

// CtxWith returns a logger context builder with context values pre-populated.
func CtxWith(ctx context.Context) zerolog.Context {
	logCtx := With()

	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if id := BackupIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("backup_id", id)
	}
	if id, ok := ctx.Value(recoveryIDKey).(string); ok && id != "" {
		logCtx = logCtx.Str("recovery_id", id)
	}

	return logCtx
}

// WithComponent creates a child logger with a component field.
//
//	log := logging.WithComponent("storage")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
