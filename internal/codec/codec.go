// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package codec

import (
	"fmt"

	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/faults"
)

// MaxFileSize caps every extracted file (1 GiB).
const MaxFileSize int64 = 1 << 30

// Options configures a Codec.
type Options struct {
	// Compression is one of none, gzip, lz4, zstd.
	Compression string

	// Level is the algorithm specific level. Zero selects the default.
	Level int

	// Passphrase enables age scrypt encryption when non-empty. It is also
	// used to decrypt .enc artifacts regardless of Compression.
	Passphrase string

	// WorkFactor is the log2 scrypt cost used when encrypting.
	WorkFactor int
}

// Codec encodes staged directories into artifacts and decodes them back.
type Codec struct {
	opts        Options
	maxFileSize int64
}

// New validates opts.
func New(opts Options) (*Codec, error) {
	if opts.Compression == "" {
		opts.Compression = CompressionNone
	}
	if _, ok := compressionSuffixes[opts.Compression]; !ok {
		return nil, faults.Configuration("codec.compression", fmt.Sprintf("unknown compression %q", opts.Compression))
	}
	if opts.WorkFactor == 0 {
		opts.WorkFactor = 18
	}
	if opts.WorkFactor < 1 || opts.WorkFactor > 30 {
		return nil, faults.Configuration("codec.scrypt_work_factor", "must be between 1 and 30")
	}
	return &Codec{opts: opts, maxFileSize: MaxFileSize}, nil
}

// NewFromConfig builds a Codec from the codec section of the configuration.
func NewFromConfig(cfg *config.CodecConfig) (*Codec, error) {
	opts := Options{
		Compression: cfg.Compression,
		Level:       cfg.Level,
		WorkFactor:  cfg.ScryptWorkFactor,
	}
	if cfg.EncryptionEnabled {
		if cfg.Passphrase == "" {
			return nil, faults.Configuration("codec.passphrase", "passphrase is required when encryption is enabled")
		}
		opts.Passphrase = cfg.Passphrase
	}
	return New(opts)
}

// Encrypted reports whether Encode produces encrypted artifacts.
func (c *Codec) Encrypted() bool { return c.opts.Passphrase != "" }

// Compression returns the configured algorithm.
func (c *Codec) Compression() string { return c.opts.Compression }

// ArtifactName returns the name Encode uses for backupID.
func (c *Codec) ArtifactName(backupID string) (string, error) {
	return ArtifactName(backupID, c.opts.Compression, c.Encrypted())
}
