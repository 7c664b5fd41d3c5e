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
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/tomtom215/strongbox/internal/faults"
)

// Artifact describes an encoded backup on local disk.
type Artifact struct {
	Path string
	Name string

	// SizeBytes is the sum of the staged file sizes.
	SizeBytes int64

	// CompressedSizeBytes is the size of the final artifact file.
	CompressedSizeBytes int64

	// Checksum is the sha256 hex digest of the artifact file.
	Checksum string

	Files []FileEntry
}

// countingHasher hashes and counts every byte written to the artifact file.
type countingHasher struct {
	w     io.Writer
	h     hash.Hash
	count int64
}

func (c *countingHasher) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.count += int64(n)
	_, _ = c.h.Write(p[:n])
	return n, err
}

// pipelineWriters holds the encode stages in creation order.
type pipelineWriters struct {
	tarWriter *tar.Writer
	closers   []io.Closer
}

// Close closes all writers in reverse order, returning the first error encountered
func (pw *pipelineWriters) Close() error {
	var firstErr error
	for i := len(pw.closers) - 1; i >= 0; i-- {
		if err := pw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Encode bundles every regular file under srcDir into outDir/<artifact name>.
func (c *Codec) Encode(ctx context.Context, srcDir, outDir, backupID string) (*Artifact, error) {
	name, err := c.ArtifactName(backupID)
	if err != nil {
		return nil, err
	}
	outPath := filepath.Join(outDir, name)

	outFile, err := os.Create(outPath) //nolint:gosec // outDir is a staging directory
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact file: %w", err)
	}

	hasher := &countingHasher{w: outFile, h: sha256.New()}
	pw, err := c.setupWriters(hasher)
	if err != nil {
		outFile.Close()    //nolint:errcheck // Best effort cleanup on error
		os.Remove(outPath) //nolint:errcheck // Best effort cleanup on error
		return nil, err
	}

	manifest := &Manifest{Version: manifestVersion, BackupID: backupID, CreatedAt: time.Now().UTC()}
	writeErr := addTree(ctx, pw.tarWriter, srcDir, manifest)
	if writeErr == nil {
		writeErr = addManifest(pw.tarWriter, manifest)
	}
	closeErr := pw.Close()
	fileErr := outFile.Close()

	for _, e := range []error{writeErr, closeErr, fileErr} {
		if e != nil {
			os.Remove(outPath) //nolint:errcheck // Best effort cleanup on error
			return nil, e
		}
	}

	if len(manifest.Files) == 0 {
		os.Remove(outPath) //nolint:errcheck // Best effort cleanup on error
		return nil, faults.Integrity("encode", "staging directory contains no files", nil)
	}

	var total int64
	for _, f := range manifest.Files {
		total += f.Size
	}

	return &Artifact{
		Path:                outPath,
		Name:                name,
		SizeBytes:           total,
		CompressedSizeBytes: hasher.count,
		Checksum:            hex.EncodeToString(hasher.h.Sum(nil)),
		Files:               manifest.Files,
	}, nil
}

// setupWriters stacks encryption, compression and tar on top of dst.
func (c *Codec) setupWriters(dst io.Writer) (*pipelineWriters, error) {
	pw := &pipelineWriters{}
	w := dst

	if c.Encrypted() {
		recipient, err := age.NewScryptRecipient(c.opts.Passphrase)
		if err != nil {
			return nil, faults.Configuration("codec.passphrase", err.Error())
		}
		recipient.SetWorkFactor(c.opts.WorkFactor)
		encWriter, err := age.Encrypt(w, recipient)
		if err != nil {
			return nil, fmt.Errorf("failed to create encryption writer: %w", err)
		}
		pw.closers = append(pw.closers, encWriter)
		w = encWriter
	}

	switch c.opts.Compression {
	case CompressionGzip:
		level := c.opts.Level
		if level <= 0 || level > gzip.BestCompression {
			level = gzip.DefaultCompression
		}
		gzWriter, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		pw.closers = append(pw.closers, gzWriter)
		w = gzWriter
	case CompressionLZ4:
		lzWriter := lz4.NewWriter(w)
		pw.closers = append(pw.closers, lzWriter)
		w = lzWriter
	case CompressionZstd:
		opts := []zstd.EOption{}
		if c.opts.Level > 0 {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.opts.Level)))
		}
		zWriter, err := zstd.NewWriter(w, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		pw.closers = append(pw.closers, zWriter)
		w = zWriter
	}

	pw.tarWriter = tar.NewWriter(w)
	pw.closers = append(pw.closers, pw.tarWriter)
	return pw, nil
}

// addTree writes every regular file below root in lexical order.
func addTree(ctx context.Context, tw *tar.Writer, root string, manifest *Manifest) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return faults.FromContext("encode", ctxErr)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entry, err := addFile(tw, path, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		manifest.Files = append(manifest.Files, entry)
		return nil
	})
}

// addFile adds a file to the tar archive
//
//nolint:gosec // G304: srcPath comes from walking the staging directory
func addFile(tw *tar.Writer, srcPath, name string) (FileEntry, error) {
	file, err := os.Open(srcPath)
	if err != nil {
		return FileEntry{}, fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer file.Close() //nolint:errcheck // Best effort cleanup

	info, err := file.Stat()
	if err != nil {
		return FileEntry{}, fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}

	header := &tar.Header{
		Name:     name,
		Size:     info.Size(),
		Mode:     0o640,
		ModTime:  info.ModTime(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return FileEntry{}, fmt.Errorf("failed to write tar header for %s: %w", name, err)
	}

	// Calculate checksum while copying
	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(tw, hasher), file)
	if err != nil {
		return FileEntry{}, fmt.Errorf("failed to copy %s to archive: %w", name, err)
	}

	return FileEntry{Path: name, Size: n, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

func addManifest(tw *tar.Writer, manifest *Manifest) error {
	data, err := manifest.marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	header := &tar.Header{
		Name:     manifestFileName,
		Size:     int64(len(data)),
		Mode:     0o640,
		ModTime:  manifest.CreatedAt,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write manifest header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// FileChecksum returns the sha256 hex digest and size of the file at path.
//
//nolint:gosec // G304: path is an artifact in a scratch directory
func FileChecksum(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close() //nolint:errcheck // Best effort cleanup

	hasher := sha256.New()
	n, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}
