// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/metrics"
	"github.com/tomtom215/strongbox/internal/models"
)

// DefaultTopic is the topic alerts are published on.
const DefaultTopic = "strongbox.alerts"

// Message metadata keys.
const (
	MetadataAlertType     = "alert_type"
	MetadataSeverity      = "severity"
	MetadataCorrelationID = "correlation_id"
)

// WatermillNotifier publishes alerts as JSON messages.
type WatermillNotifier struct {
	publisher message.Publisher
	topic     string

	mu     sync.RWMutex
	closed bool
}

// NewWatermillNotifier publishes on topic through publisher.
func NewWatermillNotifier(publisher message.Publisher, topic string) *WatermillNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillNotifier{publisher: publisher, topic: topic}
}

// NewGoChannel returns the in-process pub/sub used as the default alert bus.
func NewGoChannel(cfg *config.NotifyConfig) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
	}, logging.NewWatermillAdapter())
}

// Topic returns the topic alerts are published on.
func (n *WatermillNotifier) Topic() string { return n.topic }

// Notify publishes alert.
func (n *WatermillNotifier) Notify(ctx context.Context, alert models.Alert) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return fmt.Errorf("notifier is closed")
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataAlertType, alert.AlertType)
	msg.Metadata.Set(MetadataSeverity, alert.Severity)
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		msg.Metadata.Set(MetadataCorrelationID, cid)
	}

	if err := n.publisher.Publish(n.topic, msg); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	metrics.RecordAlert(alert.AlertType, alert.Severity)

	logging.Ctx(ctx).Debug().
		Str("alert_type", alert.AlertType).
		Str("severity", alert.Severity).
		Str("message_id", msg.UUID).
		Msg("Alert published")
	return nil
}

// Close stops accepting alerts and closes the publisher.
func (n *WatermillNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	return n.publisher.Close()
}

// DecodeAlert parses a message produced by WatermillNotifier.
func DecodeAlert(msg *message.Message) (models.Alert, error) {
	var alert models.Alert
	if err := json.Unmarshal(msg.Payload, &alert); err != nil {
		return alert, fmt.Errorf("decode alert %s: %w", msg.UUID, err)
	}
	return alert, nil
}

func logError(ctx context.Context, alert models.Alert, err error) {
	logging.Ctx(ctx).Warn().Err(err).
		Str("alert_type", alert.AlertType).
		Str("title", alert.Title).
		Msg("Failed to publish alert")
}
