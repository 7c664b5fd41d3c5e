// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package codec

import (
	"fmt"
	"strings"

	"github.com/tomtom215/strongbox/internal/faults"
)

// Compression algorithms.
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionLZ4  = "lz4"
	CompressionZstd = "zstd"
)

const (
	tarSuffix        = ".tar"
	encryptedSuffix  = ".enc"
	manifestFileName = "MANIFEST.json"
)

var compressionSuffixes = map[string]string{
	CompressionNone: "",
	CompressionGzip: ".gz",
	CompressionLZ4:  ".lz4",
	CompressionZstd: ".zst",
}

// Chain describes the decode steps derived from an artifact name.
type Chain struct {
	BackupID    string
	Compression string
	Encrypted   bool
}

// ArtifactName returns <backupID>.tar[.gz|.lz4|.zst][.enc].
func ArtifactName(backupID, compression string, encrypted bool) (string, error) {
	if backupID == "" {
		return "", faults.Configuration("backup_id", "backup id is required")
	}
	suffix, ok := compressionSuffixes[compression]
	if !ok {
		return "", faults.Configuration("codec.compression", fmt.Sprintf("unknown compression %q", compression))
	}
	name := backupID + tarSuffix + suffix
	if encrypted {
		name += encryptedSuffix
	}
	return name, nil
}

// ParseChain derives the decode steps from name alone.
func ParseChain(name string) (Chain, error) {
	var chain Chain
	rest := name

	if strings.HasSuffix(rest, encryptedSuffix) {
		chain.Encrypted = true
		rest = strings.TrimSuffix(rest, encryptedSuffix)
	}

	chain.Compression = CompressionNone
	for algo, suffix := range compressionSuffixes {
		if suffix != "" && strings.HasSuffix(rest, tarSuffix+suffix) {
			chain.Compression = algo
			rest = strings.TrimSuffix(rest, suffix)
			break
		}
	}

	if !strings.HasSuffix(rest, tarSuffix) {
		return Chain{}, faults.Configuration("artifact", fmt.Sprintf("unrecognized artifact suffix in %q", name))
	}
	chain.BackupID = strings.TrimSuffix(rest, tarSuffix)
	if chain.BackupID == "" {
		return Chain{}, faults.Configuration("artifact", fmt.Sprintf("artifact name %q has no backup id", name))
	}
	return chain, nil
}
