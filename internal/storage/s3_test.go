// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/faults"
)

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte

	// advertiseExtra inflates ContentLength to simulate a truncated body.
	advertiseExtra int64
	putErr         error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Key)] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	data, ok := f.objects[aws.ToString(in.Key)]
	f.mu.Unlock()
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data)) + f.advertiseExtra),
	}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	delete(f.objects, aws.ToString(in.Key))
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	now := time.Now()
	for key, data := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{
				Key:          aws.String(key),
				Size:         aws.Int64(int64(len(data))),
				LastModified: aws.Time(now),
			})
		}
	}
	return out, nil
}

func TestS3Backend_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeS3()
	b := newS3BackendWithClient("s3-test", "bucket", "platform", fake)

	src := writeFile(t, t.TempDir(), "b1.tar.gz", []byte("archive-bytes"))
	loc, err := b.Upload(ctx, src)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if loc != "platform/b1.tar.gz" {
		t.Errorf("location = %q", loc)
	}

	dest := filepath.Join(t.TempDir(), "a")
	if err := b.Download(ctx, loc, dest, 13); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if got, _ := os.ReadFile(dest); string(got) != "archive-bytes" {
		t.Errorf("content = %q", got)
	}

	objs, err := b.List(ctx, "b1")
	if err != nil || len(objs) != 1 || objs[0].Name != loc {
		t.Fatalf("List() = %+v, %v", objs, err)
	}

	if err := b.Delete(ctx, loc); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := b.Delete(ctx, loc); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
}

func TestS3Backend_TruncatedBody(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeS3()
	fake.advertiseExtra = 10
	b := newS3BackendWithClient("s3-test", "bucket", "", fake)

	loc, err := b.Upload(ctx, writeFile(t, t.TempDir(), "b2.tar", []byte("0123456789")))
	if err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "a")
	if err := b.Download(ctx, loc, dest, 0); !faults.IsIntegrity(err) {
		t.Fatalf("Download() error = %v, want IntegrityError", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("dest must not exist after truncated download")
	}
}

func TestS3Backend_ErrorClassification(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fake := newFakeS3()
	b := newS3BackendWithClient("s3-test", "bucket", "", fake)
	err := b.Download(ctx, "missing", filepath.Join(t.TempDir(), "x"), 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing key error = %v, want ErrNotFound", err)
	}

	src := writeFile(t, t.TempDir(), "b.tar", []byte("x"))

	fake.putErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	if _, err := b.Upload(ctx, src); !faults.IsConfiguration(err) {
		t.Errorf("AccessDenied error = %v, want ConfigurationError", err)
	}

	fake.putErr = errors.New("connection reset by peer")
	if _, err := b.Upload(ctx, src); !faults.IsTransport(err) {
		t.Errorf("network error = %v, want TransportError", err)
	}
}

func TestNewS3Backend_RequiresBucket(t *testing.T) {
	t.Parallel()
	if _, err := NewS3Backend("x", &config.S3StorageConfig{}); !faults.IsConfiguration(err) {
		t.Errorf("error = %v, want ConfigurationError", err)
	}
	b, err := NewS3Backend("x", &config.S3StorageConfig{Bucket: "b", Region: "us-east-1", Endpoint: "http://minio:9000", UsePathStyle: true})
	if err != nil {
		t.Fatalf("NewS3Backend() error = %v", err)
	}
	if b.Kind() != config.StorageS3 || b.ID() != "x" {
		t.Errorf("backend = %s/%s", b.Kind(), b.ID())
	}
}
