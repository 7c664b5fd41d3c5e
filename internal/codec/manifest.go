// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package codec

import (
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/strongbox/internal/faults"
)

const manifestVersion = 1

// FileEntry describes one file inside an artifact.
type FileEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Manifest is the trailing MANIFEST.json entry of every artifact.
type Manifest struct {
	Version   int         `json:"version"`
	BackupID  string      `json:"backup_id"`
	CreatedAt time.Time   `json:"created_at"`
	Files     []FileEntry `json:"files"`
}

func (m *Manifest) marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func parseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, faults.Integrity("decode", "manifest is not valid JSON", err)
	}
	if m.Version != manifestVersion {
		return nil, faults.Integrity("decode", fmt.Sprintf("unsupported manifest version %d", m.Version), nil)
	}
	return &m, nil
}

// check compares the entries read from the stream with the manifest.
func (m *Manifest) check(seen []FileEntry) error {
	expected := make(map[string]FileEntry, len(m.Files))
	for _, f := range m.Files {
		expected[f.Path] = f
	}

	for _, got := range seen {
		want, ok := expected[got.Path]
		if !ok {
			return faults.Integrity("decode", fmt.Sprintf("file %s is not listed in the manifest", got.Path), nil)
		}
		if want.Size != got.Size {
			return faults.Integrity("decode", fmt.Sprintf("size mismatch for %s: manifest %d, read %d", got.Path, want.Size, got.Size), nil)
		}
		if want.SHA256 != got.SHA256 {
			return faults.Integrity("decode", fmt.Sprintf("digest mismatch for %s", got.Path), nil)
		}
		delete(expected, got.Path)
	}

	if len(expected) > 0 {
		missing := make([]string, 0, len(expected))
		for p := range expected {
			missing = append(missing, p)
		}
		sort.Strings(missing)
		return faults.Integrity("decode", fmt.Sprintf("files listed in the manifest are missing: %v", missing), nil)
	}
	return nil
}
