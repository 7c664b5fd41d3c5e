// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package codec

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/strongbox/internal/faults"
)

const testPassphrase = "correct horse battery staple"

// stageTree writes a small component layout and returns its root and the
// total number of bytes written.
func stageTree(t *testing.T) (string, int64) {
	t.Helper()
	root := t.TempDir()
	files := map[string][]byte{
		"database/database.sql":                     []byte("-- PostgreSQL database dump\nCREATE TABLE t (id int);\n"),
		"database/database_metadata.json":           []byte(`{"component":"database"}`),
		"files/uploads/a.bin":                       bytes.Repeat([]byte{0xAB}, 64*1024),
		"files/files_metadata.json":                 []byte(`{"component":"files"}`),
		"configuration/configuration_metadata.json": []byte(`{"component":"configuration"}`),
	}
	var total int64
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0o600); err != nil {
			t.Fatal(err)
		}
		total += int64(len(data))
	}
	return root, total
}

func newTestCodec(t *testing.T, compression, passphrase string) *Codec {
	t.Helper()
	c, err := New(Options{Compression: compression, Passphrase: passphrase, WorkFactor: 10})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func encodeTree(t *testing.T, c *Codec) *Artifact {
	t.Helper()
	src, _ := stageTree(t)
	art, err := c.Encode(context.Background(), src, t.TempDir(), "backup-1")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return art
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, algo := range []string{CompressionNone, CompressionGzip, CompressionLZ4, CompressionZstd} {
		for _, encrypted := range []bool{false, true} {
			algo, encrypted := algo, encrypted
			name := algo
			if encrypted {
				name += "+age"
			}
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				ctx := context.Background()
				pass := ""
				if encrypted {
					pass = testPassphrase
				}
				c := newTestCodec(t, algo, pass)

				src, total := stageTree(t)
				art, err := c.Encode(ctx, src, t.TempDir(), "backup-1")
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}

				wantName, _ := ArtifactName("backup-1", algo, encrypted)
				if art.Name != wantName || filepath.Base(art.Path) != wantName {
					t.Errorf("artifact name = %q (%s), want %q", art.Name, art.Path, wantName)
				}
				if art.SizeBytes != total {
					t.Errorf("SizeBytes = %d, want %d", art.SizeBytes, total)
				}
				sum, size, err := FileChecksum(art.Path)
				if err != nil {
					t.Fatal(err)
				}
				if sum != art.Checksum || size != art.CompressedSizeBytes {
					t.Errorf("checksum/size = %s/%d, artifact says %s/%d", sum, size, art.Checksum, art.CompressedSizeBytes)
				}
				if len(art.Files) != 5 {
					t.Errorf("Files = %d, want 5", len(art.Files))
				}

				listed, err := c.List(ctx, art.Path)
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if len(listed) != 5 {
					t.Errorf("List() = %d entries, want 5", len(listed))
				}

				dest := t.TempDir()
				if _, err := c.Decode(ctx, art.Path, dest); err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				for _, f := range art.Files {
					want, _ := os.ReadFile(filepath.Join(src, filepath.FromSlash(f.Path)))
					got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(f.Path)))
					if err != nil {
						t.Fatalf("read %s: %v", f.Path, err)
					}
					if !bytes.Equal(got, want) {
						t.Errorf("%s differs after round trip", f.Path)
					}
				}
				if _, err := os.Stat(filepath.Join(dest, manifestFileName)); !os.IsNotExist(err) {
					t.Error("manifest should not be extracted")
				}
			})
		}
	}
}

func TestDecode_ByteFlipIsIntegrityError(t *testing.T) {
	t.Parallel()

	for _, algo := range []string{CompressionGzip, CompressionZstd} {
		algo := algo
		t.Run(algo, func(t *testing.T) {
			t.Parallel()
			c := newTestCodec(t, algo, "")
			art := encodeTree(t, c)

			data, err := os.ReadFile(art.Path)
			if err != nil {
				t.Fatal(err)
			}
			data[len(data)/2] ^= 0xFF
			if err := os.WriteFile(art.Path, data, 0o600); err != nil {
				t.Fatal(err)
			}

			if _, err := c.Decode(context.Background(), art.Path, t.TempDir()); !faults.IsIntegrity(err) {
				t.Fatalf("Decode() error = %v, want IntegrityError", err)
			}
		})
	}
}

func TestDecode_TruncatedIsIntegrityError(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t, CompressionGzip, "")
	art := encodeTree(t, c)

	if err := os.Truncate(art.Path, art.CompressedSizeBytes/2); err != nil {
		t.Fatal(err)
	}
	if _, err := c.List(context.Background(), art.Path); !faults.IsIntegrity(err) {
		t.Fatalf("List() error = %v, want IntegrityError", err)
	}
}

func TestDecode_WrongPassphrase(t *testing.T) {
	t.Parallel()
	art := encodeTree(t, newTestCodec(t, CompressionZstd, testPassphrase))

	other := newTestCodec(t, CompressionZstd, "a different passphrase entirely")
	if _, err := other.List(context.Background(), art.Path); !faults.IsIntegrity(err) {
		t.Fatalf("List() error = %v, want IntegrityError", err)
	}
}

func TestDecode_EncryptedWithoutPassphrase(t *testing.T) {
	t.Parallel()
	art := encodeTree(t, newTestCodec(t, CompressionNone, testPassphrase))

	plain := newTestCodec(t, CompressionNone, "")
	if _, err := plain.List(context.Background(), art.Path); !faults.IsConfiguration(err) {
		t.Fatalf("List() error = %v, want ConfigurationError", err)
	}
}

func TestEncode_EmptyDirectory(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t, CompressionGzip, "")
	out := t.TempDir()

	_, err := c.Encode(context.Background(), t.TempDir(), out, "empty")
	if !faults.IsIntegrity(err) {
		t.Fatalf("Encode() error = %v, want IntegrityError", err)
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Error("failed encode should not leave an artifact behind")
	}
}

type rawEntry struct {
	name string
	data []byte
}

// writeRawTar writes an uncompressed tar with exactly the given entries.
func writeRawTar(t *testing.T, name string, entries []rawEntry) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	tw := tar.NewWriter(f)
	for _, e := range entries {
		if err := tw.WriteHeader(&tar.Header{Name: e.name, Size: int64(len(e.data)), Mode: 0o600, Typeflag: tar.TypeReg}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write(e.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return p
}

func manifestFor(t *testing.T, files ...FileEntry) []byte {
	t.Helper()
	data, err := (&Manifest{Version: manifestVersion, BackupID: "raw", Files: files}).marshal()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func entryFor(name string, data []byte) FileEntry {
	sum := sha256.Sum256(data)
	return FileEntry{Path: name, Size: int64(len(data)), SHA256: hex.EncodeToString(sum[:])}
}

func TestDecode_ManifestProblems(t *testing.T) {
	t.Parallel()
	payload := []byte("hello")

	tests := []struct {
		name    string
		entries []rawEntry
	}{
		{
			name:    "missing manifest",
			entries: []rawEntry{{"files/a.txt", payload}},
		},
		{
			name: "digest mismatch",
			entries: []rawEntry{
				{"files/a.txt", payload},
				{manifestFileName, manifestFor(t, entryFor("files/a.txt", []byte("other")))},
			},
		},
		{
			name: "file missing from stream",
			entries: []rawEntry{
				{"files/a.txt", payload},
				{manifestFileName, manifestFor(t, entryFor("files/a.txt", payload), entryFor("files/b.txt", payload))},
			},
		},
		{
			name: "unlisted file",
			entries: []rawEntry{
				{"files/a.txt", payload},
				{"files/extra.txt", payload},
				{manifestFileName, manifestFor(t, entryFor("files/a.txt", payload))},
			},
		},
		{
			name:    "zero files",
			entries: []rawEntry{{manifestFileName, manifestFor(t)}},
		},
		{
			name: "path traversal",
			entries: []rawEntry{
				{"../evil.sh", payload},
				{manifestFileName, manifestFor(t, entryFor("../evil.sh", payload))},
			},
		},
		{
			name:    "garbage manifest",
			entries: []rawEntry{{"files/a.txt", payload}, {manifestFileName, []byte("{not json")}},
		},
	}

	c := newTestCodec(t, CompressionNone, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := writeRawTar(t, "raw.tar", tt.entries)
			dest := t.TempDir()
			if _, err := c.Decode(context.Background(), p, dest); !faults.IsIntegrity(err) {
				t.Fatalf("Decode() error = %v, want IntegrityError", err)
			}
			if _, err := os.Stat(filepath.Join(filepath.Dir(dest), "evil.sh")); !os.IsNotExist(err) {
				t.Error("traversal entry escaped the destination")
			}
		})
	}
}

func TestDecode_FileSizeCap(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t, CompressionNone, "")
	c.maxFileSize = 4

	data := []byte("longer than four bytes")
	p := writeRawTar(t, "big.tar", []rawEntry{
		{"files/big.bin", data},
		{manifestFileName, manifestFor(t, entryFor("files/big.bin", data))},
	})
	if _, err := c.List(context.Background(), p); !faults.IsIntegrity(err) {
		t.Fatalf("List() error = %v, want IntegrityError", err)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := New(Options{Compression: "brotli"}); !faults.IsConfiguration(err) {
		t.Errorf("unknown compression error = %v", err)
	}
	if _, err := New(Options{Compression: CompressionGzip, WorkFactor: 40}); !faults.IsConfiguration(err) {
		t.Errorf("bad work factor error = %v", err)
	}
	c, err := New(Options{})
	if err != nil || c.Compression() != CompressionNone || c.Encrypted() {
		t.Errorf("New(empty) = %+v, %v", c, err)
	}
}
