// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package components

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tomtom215/strongbox/internal/faults"
)

// HTTPProber performs the application smoke check: a GET that must return 2xx.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

func (HTTPProber) Name() string { return "application_health" }

func (p HTTPProber) Probe(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, http.NoBody)
	if err != nil {
		return faults.Configuration("components.app_health_url", err.Error())
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return faults.FromContext("health check", ctx.Err())
		}
		return faults.Transport("health check", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort cleanup
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// ProbeFunc adapts a function to Prober.
type ProbeFunc struct {
	ProbeName string
	Fn        func(ctx context.Context) error
}

func (p ProbeFunc) Name() string { return p.ProbeName }

func (p ProbeFunc) Probe(ctx context.Context) error { return p.Fn(ctx) }
