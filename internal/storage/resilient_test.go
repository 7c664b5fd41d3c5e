// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/strongbox/internal/faults"
)

// scriptedBackend fails the first failures calls with failErr.
type scriptedBackend struct {
	failures int32
	failErr  error
	calls    atomic.Int32
	block    bool
}

func (s *scriptedBackend) ID() string   { return "scripted" }
func (s *scriptedBackend) Kind() string { return "fake" }

func (s *scriptedBackend) step(ctx context.Context) error {
	n := s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if n <= s.failures {
		return s.failErr
	}
	return nil
}

func (s *scriptedBackend) Upload(ctx context.Context, localPath string) (string, error) {
	if err := s.step(ctx); err != nil {
		return "", err
	}
	return filepath.Base(localPath), nil
}

func (s *scriptedBackend) Download(ctx context.Context, _, _ string, _ int64) error {
	return s.step(ctx)
}

func (s *scriptedBackend) List(ctx context.Context, _ string) ([]ObjectInfo, error) {
	return nil, s.step(ctx)
}

func (s *scriptedBackend) Delete(ctx context.Context, _ string) error {
	return s.step(ctx)
}

func fastConfig() ResilientConfig {
	return ResilientConfig{
		Timeout:         time.Second,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		BreakerFailures: 100,
		BreakerTimeout:  time.Minute,
	}
}

func TestResilient_RetriesTransport(t *testing.T) {
	t.Parallel()
	inner := &scriptedBackend{failures: 2, failErr: faults.Transport("upload", errors.New("reset"))}
	r := NewResilient(inner, fastConfig())

	loc, err := r.Upload(context.Background(), "/tmp/b.tar")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if loc != "b.tar" {
		t.Errorf("location = %q", loc)
	}
	if got := inner.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestResilient_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()
	inner := &scriptedBackend{failures: 100, failErr: faults.Transport("download", errors.New("timeout"))}
	r := NewResilient(inner, fastConfig())

	err := r.Download(context.Background(), "x", "y", 0)
	if !faults.IsTransport(err) {
		t.Fatalf("Download() error = %v, want TransportError", err)
	}
	if got := inner.calls.Load(); got != 4 {
		t.Errorf("calls = %d, want 4 (1 + 3 retries)", got)
	}
}

func TestResilient_DoesNotRetryIntegrity(t *testing.T) {
	t.Parallel()
	inner := &scriptedBackend{failures: 100, failErr: faults.Integrity("download", "short read", nil)}
	r := NewResilient(inner, fastConfig())

	err := r.Download(context.Background(), "x", "y", 10)
	if !faults.IsIntegrity(err) {
		t.Fatalf("Download() error = %v, want IntegrityError", err)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestResilient_DoesNotRetryConfiguration(t *testing.T) {
	t.Parallel()
	inner := &scriptedBackend{failures: 100, failErr: faults.Configuration("storage.s3", "AccessDenied")}
	r := NewResilient(inner, fastConfig())

	if err := r.Delete(context.Background(), "x"); !faults.IsConfiguration(err) {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestResilient_TimeoutIsTransport(t *testing.T) {
	t.Parallel()
	inner := &scriptedBackend{block: true}
	cfg := fastConfig()
	cfg.Timeout = 10 * time.Millisecond
	cfg.MaxRetries = 1
	r := NewResilient(inner, cfg)

	_, err := r.List(context.Background(), "")
	if !faults.IsTransport(err) {
		t.Fatalf("List() error = %v, want TransportError", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestResilient_BreakerOpens(t *testing.T) {
	t.Parallel()
	inner := &scriptedBackend{failures: 100, failErr: faults.Transport("delete", errors.New("down"))}
	cfg := fastConfig()
	cfg.MaxRetries = 0
	cfg.BreakerFailures = 2
	r := NewResilient(inner, cfg)
	ctx := context.Background()

	_ = r.Delete(ctx, "a")
	_ = r.Delete(ctx, "a")
	if r.BreakerState() != "open" {
		t.Fatalf("breaker state = %s, want open", r.BreakerState())
	}

	err := r.Delete(ctx, "a")
	if !faults.IsTransport(err) {
		t.Errorf("rejected call error = %v, want TransportError", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("inner calls = %d, want 2 (third call rejected)", got)
	}
}

func TestResilient_IntegrityDoesNotTripBreaker(t *testing.T) {
	t.Parallel()
	inner := &scriptedBackend{failures: 100, failErr: faults.Integrity("download", "mismatch", nil)}
	cfg := fastConfig()
	cfg.BreakerFailures = 1
	r := NewResilient(inner, cfg)

	for i := 0; i < 3; i++ {
		_ = r.Download(context.Background(), "x", "y", 0)
	}
	if r.BreakerState() != "closed" {
		t.Errorf("breaker state = %s, want closed", r.BreakerState())
	}
}
