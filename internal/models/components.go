// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package models

import "path"

// Component names. The order of AllComponents is the default dump order.
const (
	ComponentDatabase      = "database"
	ComponentCache         = "cache"
	ComponentSearch        = "search"
	ComponentFiles         = "files"
	ComponentConfiguration = "configuration"
)

// AllComponents lists every known component in default dump order.
var AllComponents = []string{
	ComponentDatabase,
	ComponentCache,
	ComponentSearch,
	ComponentFiles,
	ComponentConfiguration,
}

// IsKnownComponent reports whether name is one of AllComponents.
func IsKnownComponent(name string) bool {
	for _, c := range AllComponents {
		if c == name {
			return true
		}
	}
	return false
}

// MetadataFileName returns the archive-relative metadata path for a component,
// e.g. "cache/cache_metadata.json".
func MetadataFileName(component string) string {
	return path.Join(component, component+"_metadata.json")
}

// markerFiles maps each component to the file whose presence proves the
// component's payload was bundled.
var markerFiles = map[string]string{
	ComponentDatabase:      "database/database.sql",
	ComponentCache:         "cache/cache_snapshot.json",
	ComponentSearch:        "search/search_snapshot.json",
	ComponentFiles:         "files/files_metadata.json",
	ComponentConfiguration: "configuration/configuration_metadata.json",
}

// MarkerFile returns the archive-relative marker file for a component.
// Unknown components fall back to their metadata file.
func MarkerFile(component string) string {
	if m, ok := markerFiles[component]; ok {
		return m
	}
	return MetadataFileName(component)
}

// ComponentMetadata is written as <component>/<component>_metadata.json
// inside every artifact.
type ComponentMetadata struct {
	Component        string   `json:"component"`
	BackupTime       string   `json:"backup_time"`
	ComponentVersion string   `json:"component_version"`
	Files            []string `json:"files"`
	SizeBytes        int64    `json:"size_bytes"`
}
