// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package codec

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/tomtom215/strongbox/internal/faults"
)

// maxManifestSize bounds the in-memory manifest read.
const maxManifestSize = 64 << 20

// Decode extracts the artifact at artifactPath into destDir and verifies
// every file against the manifest. It returns the verified entries.
func (c *Codec) Decode(ctx context.Context, artifactPath, destDir string) ([]FileEntry, error) {
	return c.walk(ctx, artifactPath, destDir)
}

// List verifies the artifact without writing any file and returns its entries.
func (c *Codec) List(ctx context.Context, artifactPath string) ([]FileEntry, error) {
	return c.walk(ctx, artifactPath, "")
}

// walk reads the whole stream. Files are written below destDir unless it is empty.
func (c *Codec) walk(ctx context.Context, artifactPath, destDir string) ([]FileEntry, error) {
	chain, err := ParseChain(filepath.Base(artifactPath))
	if err != nil {
		return nil, err
	}

	tr, stream, closers, err := c.openReader(artifactPath, chain)
	if err != nil {
		return nil, err
	}
	defer closeAll(closers)

	var (
		seen     []FileEntry
		manifest *Manifest
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, faults.FromContext("decode", err)
		}

		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, faults.Integrity("decode", "failed to read tar entry", err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			continue
		case tar.TypeReg:
		default:
			return nil, faults.Integrity("decode", fmt.Sprintf("unsupported entry type for %s", header.Name), nil)
		}

		if header.Name == manifestFileName {
			if manifest != nil {
				return nil, faults.Integrity("decode", "duplicate manifest", nil)
			}
			data, err := io.ReadAll(io.LimitReader(tr, maxManifestSize))
			if err != nil {
				return nil, faults.Integrity("decode", "failed to read manifest", err)
			}
			if manifest, err = parseManifest(data); err != nil {
				return nil, err
			}
			continue
		}

		entry, err := c.readEntry(tr, header, destDir)
		if err != nil {
			return nil, err
		}
		seen = append(seen, entry)
	}

	// Drain so compression and encryption trailers are authenticated.
	if _, err := io.Copy(io.Discard, stream); err != nil {
		return nil, faults.Integrity("decode", "corrupted stream trailer", err)
	}

	if manifest == nil {
		return nil, faults.Integrity("decode", "artifact has no manifest", nil)
	}
	if err := manifest.check(seen); err != nil {
		return nil, err
	}
	if len(seen) == 0 {
		return nil, faults.Integrity("decode", "artifact contains no files", nil)
	}
	return seen, nil
}

// readEntry hashes one file entry and, with a destDir, extracts it.
func (c *Codec) readEntry(tr *tar.Reader, header *tar.Header, destDir string) (FileEntry, error) {
	if header.Size > c.maxFileSize {
		return FileEntry{}, faults.Integrity("decode",
			fmt.Sprintf("file too large: %s is %d bytes (max %d)", header.Name, header.Size, c.maxFileSize), nil)
	}

	name, err := cleanEntryName(header.Name)
	if err != nil {
		return FileEntry{}, err
	}

	hasher := sha256.New()
	var sink io.Writer = hasher
	var outFile *os.File
	var destPath string

	if destDir != "" {
		destPath = filepath.Join(destDir, filepath.FromSlash(name))
		if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return FileEntry{}, faults.Integrity("decode", fmt.Sprintf("invalid file path in archive: %s", header.Name), nil)
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
			return FileEntry{}, fmt.Errorf("failed to create directory for %s: %w", name, err)
		}
		outFile, err = os.Create(destPath) //nolint:gosec // G304: destPath is validated above
		if err != nil {
			return FileEntry{}, fmt.Errorf("failed to create %s: %w", destPath, err)
		}
		sink = io.MultiWriter(outFile, hasher)
	}

	// LimitReader guards against entries that lie about their size.
	n, copyErr := io.Copy(sink, io.LimitReader(tr, c.maxFileSize+1))
	if outFile != nil {
		if closeErr := outFile.Close(); closeErr != nil && copyErr == nil {
			copyErr = closeErr
		}
		if copyErr != nil {
			os.Remove(destPath) //nolint:errcheck // Best effort cleanup on error
		}
	}
	if copyErr != nil {
		return FileEntry{}, faults.Integrity("decode", fmt.Sprintf("failed to read %s", name), copyErr)
	}
	if n > c.maxFileSize {
		return FileEntry{}, faults.Integrity("decode", fmt.Sprintf("file too large: %s", name), nil)
	}

	return FileEntry{Path: name, Size: n, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// cleanEntryName rejects absolute names and parent references.
func cleanEntryName(name string) (string, error) {
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", faults.Integrity("decode", fmt.Sprintf("invalid file path in archive: %s", name), nil)
	}
	return clean, nil
}

// openReader builds the decode pipeline for chain. The second return value
// is the decoded stream beneath the tar reader.
//
//nolint:gosec // G304: artifactPath is a downloaded artifact in a scratch directory
func (c *Codec) openReader(artifactPath string, chain Chain) (*tar.Reader, io.Reader, []io.Closer, error) {
	file, err := os.Open(artifactPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	closers := []io.Closer{file}
	var r io.Reader = file

	if chain.Encrypted {
		if c.opts.Passphrase == "" {
			closeAll(closers)
			return nil, nil, nil, faults.Configuration("codec.passphrase", "artifact is encrypted but no passphrase is configured")
		}
		identity, err := age.NewScryptIdentity(c.opts.Passphrase)
		if err != nil {
			closeAll(closers)
			return nil, nil, nil, faults.Configuration("codec.passphrase", err.Error())
		}
		dec, err := age.Decrypt(r, identity)
		if err != nil {
			closeAll(closers)
			return nil, nil, nil, faults.Integrity("decode", "decryption failed", err)
		}
		r = dec
	}

	switch chain.Compression {
	case CompressionGzip:
		gzReader, err := gzip.NewReader(r)
		if err != nil {
			closeAll(closers)
			return nil, nil, nil, faults.Integrity("decode", "invalid gzip stream", err)
		}
		closers = append(closers, gzReader)
		r = gzReader
	case CompressionLZ4:
		r = lz4.NewReader(r)
	case CompressionZstd:
		zReader, err := zstd.NewReader(r)
		if err != nil {
			closeAll(closers)
			return nil, nil, nil, faults.Integrity("decode", "invalid zstd stream", err)
		}
		closers = append(closers, zReader.IOReadCloser())
		r = zReader
	}

	return tar.NewReader(r), r, closers, nil
}

// closeAll closes all closers in reverse order
func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i].Close() //nolint:errcheck // Best effort cleanup
	}
}
