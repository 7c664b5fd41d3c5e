// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package verify

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/strongbox/internal/models"
)

// headerLines is how many leading lines of a dump are searched for a header.
const headerLines = 20

// maxSnapshotSize bounds how much of a snapshot document is parsed.
const maxSnapshotSize = 256 << 20

var dumpHeaders = []string{"-- PostgreSQL database dump", "PGDMP"}

// validateContent returns an issue message for the component's marker
// file, or "" when the content looks sound.
func validateContent(component, path string) string {
	if component == models.ComponentDatabase {
		return validateDumpHeader(path)
	}
	// Every other marker is a JSON document: a snapshot or the metadata file.
	return validateSnapshot(component, path)
}

// validateDumpHeader looks for a known dump header in the first lines.
//
//nolint:gosec // G304: path is inside the scratch directory
func validateDumpHeader(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("Database dump cannot be read: %v", err)
	}
	defer f.Close() //nolint:errcheck // Best effort cleanup

	reader := bufio.NewReader(f)
	head, err := reader.Peek(5)
	if len(head) == 0 {
		return "Database dump is empty"
	}
	if err == nil && string(head) == "PGDMP" {
		return ""
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for i := 0; i < headerLines && scanner.Scan(); i++ {
		line := scanner.Text()
		for _, h := range dumpHeaders {
			if strings.Contains(line, h) {
				return ""
			}
		}
	}
	return "Database dump has no recognizable header"
}

// validateSnapshot requires a non-empty JSON document.
//
//nolint:gosec // G304: path is inside the scratch directory
func validateSnapshot(component, path string) string {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("%s snapshot cannot be read: %v", component, err)
	}
	defer f.Close() //nolint:errcheck // Best effort cleanup

	data, err := io.ReadAll(io.LimitReader(f, maxSnapshotSize+1))
	if err != nil {
		return fmt.Sprintf("%s snapshot cannot be read: %v", component, err)
	}
	if len(data) > maxSnapshotSize {
		// Too large to parse in memory; presence was already checked.
		return ""
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Sprintf("%s snapshot is empty", component)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Sprintf("%s snapshot is malformed: %v", component, err)
	}
	switch v := doc.(type) {
	case nil:
		return fmt.Sprintf("%s snapshot is empty", component)
	case map[string]interface{}:
		if len(v) == 0 {
			return fmt.Sprintf("%s snapshot is empty", component)
		}
	case []interface{}:
		if len(v) == 0 {
			return fmt.Sprintf("%s snapshot is empty", component)
		}
	}
	return ""
}
