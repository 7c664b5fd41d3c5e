// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package components

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPProber(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	if err := (HTTPProber{URL: healthy.URL}).Probe(context.Background()); err != nil {
		t.Errorf("healthy probe: %v", err)
	}
	if err := (HTTPProber{URL: unhealthy.URL}).Probe(context.Background()); err == nil {
		t.Error("503 should fail the probe")
	}
}

func TestProbeFunc(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	p := ProbeFunc{ProbeName: "custom", Fn: func(context.Context) error { return boom }}
	if p.Name() != "custom" || !errors.Is(p.Probe(context.Background()), boom) {
		t.Error("ProbeFunc did not delegate")
	}
}
