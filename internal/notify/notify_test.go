// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/models"
)

func TestWatermillNotifierPublishes(t *testing.T) {
	t.Parallel()

	bus := NewGoChannel(&config.NotifyConfig{BufferSize: 8})
	n := NewWatermillNotifier(bus, "")
	defer n.Close() //nolint:errcheck // test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := bus.Subscribe(ctx, n.Topic())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	alert := models.Alert{
		AlertType: models.AlertCorruptionDetected,
		Severity:  models.SeverityCritical,
		Title:     "Backup corruption detected",
		Message:   "checksum mismatch",
		Metadata:  map[string]interface{}{"backup_id": "b-1"},
	}
	pubCtx := logging.ContextWithCorrelationID(ctx, "corr-1")
	if err := n.Notify(pubCtx, alert); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		got, err := DecodeAlert(msg)
		if err != nil {
			t.Fatalf("DecodeAlert: %v", err)
		}
		if got.AlertType != alert.AlertType || got.Title != alert.Title || got.Metadata["backup_id"] != "b-1" {
			t.Errorf("decoded alert = %+v", got)
		}
		if msg.Metadata.Get(MetadataSeverity) != models.SeverityCritical {
			t.Errorf("severity metadata = %q", msg.Metadata.Get(MetadataSeverity))
		}
		if msg.Metadata.Get(MetadataCorrelationID) != "corr-1" {
			t.Errorf("correlation metadata = %q", msg.Metadata.Get(MetadataCorrelationID))
		}
	case <-ctx.Done():
		t.Fatal("alert was not delivered")
	}
}

func TestWatermillNotifierClosed(t *testing.T) {
	t.Parallel()

	n := NewWatermillNotifier(NewGoChannel(&config.NotifyConfig{}), "alerts")
	if err := n.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := n.Notify(context.Background(), models.Alert{AlertType: "x"}); err == nil {
		t.Error("Notify after Close should fail")
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("bus down") }
func (failingPublisher) Close() error                              { return nil }

func TestSendSwallowsErrors(t *testing.T) {
	t.Parallel()

	// Send must not panic or propagate publish failures.
	Send(context.Background(), NewWatermillNotifier(failingPublisher{}, ""), models.Alert{AlertType: "x"})
	Send(context.Background(), nil, models.Alert{AlertType: "x"})
	Send(context.Background(), Noop{}, models.Alert{AlertType: "x"})
}

func TestDecodeAlertRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := DecodeAlert(message.NewMessage("m-1", []byte("nope"))); err == nil {
		t.Error("expected decode error")
	}
}
