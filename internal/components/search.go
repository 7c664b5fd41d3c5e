// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package components

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/strongbox/internal/faults"
	"github.com/tomtom215/strongbox/internal/logging"
	"github.com/tomtom215/strongbox/internal/models"
)

// SearchSnapshotFileName is the snapshot descriptor written by the search component.
const SearchSnapshotFileName = "search_snapshot.json"

// maxResponseBody bounds how much of a cluster response is read.
const maxResponseBody = 16 << 20

// SearchConfig configures the search component.
type SearchConfig struct {
	URL        string
	Repository string
	Username   string
	Password   string
	Indices    string
}

// SearchSnapshot describes a cluster-side snapshot. The index data stays in
// the cluster's snapshot repository; the descriptor is what gets archived.
type SearchSnapshot struct {
	Repository string          `json:"repository"`
	Snapshot   string          `json:"snapshot"`
	Indices    string          `json:"indices"`
	TakenAt    time.Time       `json:"taken_at"`
	Response   json.RawMessage `json:"response"`
}

// Search drives the snapshot REST API of an Elasticsearch-compatible cluster.
type Search struct {
	cfg    SearchConfig
	client *http.Client
}

// NewSearch returns the search component. A nil client uses http.DefaultClient.
func NewSearch(cfg SearchConfig, client *http.Client) *Search {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.Repository == "" {
		cfg.Repository = "strongbox"
	}
	if cfg.Indices == "" {
		cfg.Indices = "*"
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Search{cfg: cfg, client: client}
}

func (s *Search) Name() string { return models.ComponentSearch }

// Dump takes a snapshot and waits for it to complete.
func (s *Search) Dump(ctx context.Context, dir string) error {
	name := snapshotName(ctx)
	body, err := json.Marshal(map[string]interface{}{
		"indices":              s.cfg.Indices,
		"include_global_state": false,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot request: %w", err)
	}

	endpoint := fmt.Sprintf("/_snapshot/%s/%s?wait_for_completion=true",
		url.PathEscape(s.cfg.Repository), url.PathEscape(name))
	resp, err := s.do(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return err
	}

	snap := SearchSnapshot{
		Repository: s.cfg.Repository,
		Snapshot:   name,
		Indices:    s.cfg.Indices,
		TakenAt:    time.Now().UTC(),
		Response:   resp,
	}
	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot descriptor: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, SearchSnapshotFileName), data, 0o640)
}

// Restore restores the snapshot named in the archived descriptor.
func (s *Search) Restore(ctx context.Context, dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, SearchSnapshotFileName)) //nolint:gosec // G304: scratch directory
	if err != nil {
		return fmt.Errorf("read snapshot descriptor: %w", err)
	}
	var snap SearchSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return faults.Integrity("search restore", "snapshot descriptor is not valid JSON", err)
	}
	if snap.Snapshot == "" || snap.Repository == "" {
		return faults.Integrity("search restore", "snapshot descriptor names no snapshot", nil)
	}

	body, err := json.Marshal(map[string]interface{}{
		"indices":              snap.Indices,
		"include_global_state": false,
	})
	if err != nil {
		return fmt.Errorf("marshal restore request: %w", err)
	}

	// The cluster refuses to restore over an open index.
	if err := s.closeIndices(ctx, snap.Indices); err != nil {
		return err
	}
	endpoint := fmt.Sprintf("/_snapshot/%s/%s/_restore?wait_for_completion=true",
		url.PathEscape(snap.Repository), url.PathEscape(snap.Snapshot))
	_, err = s.do(ctx, http.MethodPost, endpoint, body)
	return err
}

// closeIndices closes the open indices matching pattern. The pattern is
// resolved to concrete names first because clusters with
// action.destructive_requires_name reject wildcard closes.
func (s *Search) closeIndices(ctx context.Context, pattern string) error {
	if pattern == "" {
		pattern = "*"
	}
	endpoint := fmt.Sprintf("/_resolve/index/%s?expand_wildcards=open&ignore_unavailable=true&allow_no_indices=true",
		url.PathEscape(pattern))
	resp, err := s.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("resolve indices %s: %w", pattern, err)
	}
	var resolved struct {
		Indices []struct {
			Name string `json:"name"`
		} `json:"indices"`
	}
	if err := json.Unmarshal(resp, &resolved); err != nil {
		return fmt.Errorf("decode resolved indices: %w", err)
	}
	if len(resolved.Indices) == 0 {
		return nil
	}

	names := make([]string, 0, len(resolved.Indices))
	for _, idx := range resolved.Indices {
		names = append(names, url.PathEscape(idx.Name))
	}
	endpoint = fmt.Sprintf("/%s/_close?ignore_unavailable=true", strings.Join(names, ","))
	if _, err := s.do(ctx, http.MethodPost, endpoint, nil); err != nil {
		return fmt.Errorf("close indices before restore: %w", err)
	}
	logging.Ctx(ctx).Info().Int("indices", len(names)).Msg("Closed search indices for restore")
	return nil
}

// Version reads version.number from the cluster root endpoint.
func (s *Search) Version(ctx context.Context) (string, error) {
	resp, err := s.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return "", err
	}
	var info struct {
		Version struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if err := json.Unmarshal(resp, &info); err != nil {
		return "", fmt.Errorf("decode cluster info: %w", err)
	}
	if info.Version.Number == "" {
		return "unknown", nil
	}
	return info.Version.Number, nil
}

func (s *Search) do(ctx context.Context, method, endpoint string, body []byte) (json.RawMessage, error) {
	if s.cfg.URL == "" {
		return nil, faults.Configuration("components.search.url", "is required")
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.cfg.URL+endpoint, reader)
	if err != nil {
		return nil, faults.Configuration("components.search.url", err.Error())
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cfg.Username != "" {
		req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, faults.FromContext("search "+method, ctx.Err())
		}
		return nil, faults.Transport("search "+method, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort cleanup

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, faults.Transport("search read response", err)
	}
	switch {
	case resp.StatusCode >= 500:
		return nil, faults.Transport("search "+method, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data)))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, faults.Configuration("components.search", fmt.Sprintf("cluster rejected credentials (status %d)", resp.StatusCode))
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("search %s %s: status %d: %s", method, endpoint, resp.StatusCode, truncate(data))
	}
	if len(data) == 0 {
		data = []byte("{}")
	}
	return data, nil
}

// snapshotName derives a cluster snapshot name from the running backup.
func snapshotName(ctx context.Context) string {
	if id := logging.BackupIDFromContext(ctx); id != "" {
		return "strongbox-" + strings.ToLower(id)
	}
	return "strongbox-" + uuid.NewString()
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
