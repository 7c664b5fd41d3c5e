// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestSlogHandlerWritesThroughZerolog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(zerolog.New(&buf))
	slogger := slog.New(handler).WithGroup("event")

	slogger.Warn("service restarted", "service", "schedule", "attempt", 2)

	output := buf.String()
	for _, want := range []string{"service restarted", `"event.service":"schedule"`, `"event.attempt":2`, `"level":"warn"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	t.Parallel()

	handler := NewSlogHandlerWithLogger(zerolog.New(nil).Level(zerolog.WarnLevel))
	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestWatermillAdapter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewWatermillAdapterWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))
	child := adapter.With(watermill.LogFields{"topic": "strongbox.alerts"})

	child.Error("publish failed", errors.New("closed"), watermill.LogFields{"message_uuid": "m1"})
	child.Info("published", nil)

	output := buf.String()
	for _, want := range []string{"publish failed", `"error":"closed"`, `"topic":"strongbox.alerts"`, `"message_uuid":"m1"`, "published"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestBadgerAdapterTrimsNewline(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := &BadgerAdapter{logger: zerolog.New(&buf)}
	adapter.Warningf("value log %d truncated\n", 3)

	if !strings.Contains(buf.String(), `"message":"value log 3 truncated"`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
