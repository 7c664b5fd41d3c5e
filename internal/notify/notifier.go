// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package notify

import (
	"context"

	"github.com/tomtom215/strongbox/internal/models"
)

// Notifier receives alerts from the engines.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// Noop discards alerts.
type Noop struct{}

func (Noop) Notify(context.Context, models.Alert) error { return nil }

// Send calls n.Notify and logs a failure instead of returning it. A nil
// notifier is allowed.
func Send(ctx context.Context, n Notifier, alert models.Alert) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, alert); err != nil {
		logError(ctx, alert, err)
	}
}
