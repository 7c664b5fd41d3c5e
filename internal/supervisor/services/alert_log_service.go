// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package services

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/models"
	"github.com/tomtom215/strongbox/internal/notify"
)

// AlertLogService writes every alert published on a topic to the log.
// Delivery to people stays with whatever else subscribes to the topic.
type AlertLogService struct {
	subscriber message.Subscriber
	topic      string
	name       string
}

// NewAlertLogService subscribes to topic on subscriber.
func NewAlertLogService(subscriber message.Subscriber, topic string) *AlertLogService {
	if topic == "" {
		topic = notify.DefaultTopic
	}
	return &AlertLogService{subscriber: subscriber, topic: topic, name: "alert-log"}
}

// Serve implements suture.Service.
func (s *AlertLogService) Serve(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("alert subscription on %s closed", s.topic)
			}
			s.handle(msg)
		}
	}
}

// String implements fmt.Stringer for suture's logs.
func (s *AlertLogService) String() string {
	return s.name
}

func (s *AlertLogService) handle(msg *message.Message) {
	defer msg.Ack()

	alert, err := notify.DecodeAlert(msg)
	if err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable alert")
		return
	}

	event := logging.Warn()
	switch alert.Severity {
	case models.SeverityCritical:
		event = logging.Error()
	case models.SeverityInfo:
		event = logging.Info()
	}
	event.
		Str("alert_type", alert.AlertType).
		Str("severity", alert.Severity).
		Str("correlation_id", msg.Metadata.Get(notify.MetadataCorrelationID)).
		Interface("metadata", alert.Metadata).
		Str("alert_message", alert.Message).
		Msg(alert.Title)
}
