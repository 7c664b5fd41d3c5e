// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

/*
Package notify hands engine alerts to the notification collaborator.

Engines call Notifier.Notify with a models.Alert whenever a backup fails,
corruption is detected, a recovery finishes or cleanup hits errors. Delivery
to people (email, chat, webhooks) happens elsewhere; this package only puts
the alert on a message bus.

WatermillNotifier publishes each alert as a JSON message on a watermill
topic (strongbox.alerts by default). The in-process gochannel pub/sub is the
default transport; any watermill message.Publisher can be substituted.

Notify never blocks an engine for long and a publish failure is logged and
returned, never escalated into the operation's own result.
*/
package notify
