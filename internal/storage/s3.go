// Strongbox - Platform Backup, Verification and Recovery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/strongbox

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tomtom215/strongbox/internal/config"
	"github.com/tomtom215/strongbox/internal/faults"
)

// s3API is the subset of the S3 client used here, narrowed for testability.
type s3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Backend stores artifacts in an S3 bucket under an optional key prefix.
type S3Backend struct {
	id     string
	bucket string
	prefix string
	client s3API
}

// NewS3Backend builds a client from static settings. Without credentials
// requests are sent anonymously.
func NewS3Backend(id string, cfg *config.S3StorageConfig) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, faults.Configuration("storage.s3.bucket", "bucket is required")
	}
	return newS3BackendWithClient(id, cfg.Bucket, cfg.Prefix, newS3Client(cfg)), nil
}

func newS3Client(cfg *config.S3StorageConfig) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.AccessKeyID != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func newS3BackendWithClient(id, bucket, prefix string, client s3API) *S3Backend {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Backend{id: id, bucket: bucket, prefix: prefix, client: client}
}

func (b *S3Backend) ID() string   { return b.id }
func (b *S3Backend) Kind() string { return config.StorageS3 }

// Upload puts the file under prefix + base name and returns the key.
func (b *S3Backend) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath) //nolint:gosec // path produced by the codec
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat artifact: %w", err)
	}

	key := path.Join(strings.TrimSuffix(b.prefix, "/"), filepath.Base(localPath))
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", classifyS3Error("upload", key, err)
	}
	return key, nil
}

// Download streams the object to dest and checks its length against both
// the advertised ContentLength and sizeHint.
func (b *S3Backend) Download(ctx context.Context, location, dest string, sizeHint int64) error {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(location),
	})
	if err != nil {
		return classifyS3Error("download", location, err)
	}
	defer out.Body.Close()

	return writeVerified("download", out.Body, dest, sizeHint, aws.ToInt64(out.ContentLength))
}

// List pages through every key starting with prefix.
func (b *S3Backend) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix + prefix),
	})

	var objects []ObjectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyS3Error("list", prefix, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, ObjectInfo{
				Name:     aws.ToString(obj.Key),
				Size:     aws.ToInt64(obj.Size),
				Modified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return objects, nil
}

// Delete removes the key. S3 reports success for missing keys.
func (b *S3Backend) Delete(ctx context.Context, location string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(location),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil
		}
		return classifyS3Error("delete", location, err)
	}
	return nil
}

// permanentS3Codes are service errors that retrying cannot fix.
var permanentS3Codes = map[string]bool{
	"AccessDenied":          true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"NoSuchBucket":          true,
	"InvalidBucketName":     true,
}

// classifyS3Error maps SDK errors onto the fault taxonomy.
func classifyS3Error(op, key string, err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return notFound(op, key)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode() == "NotFound" {
			return notFound(op, key)
		}
		if permanentS3Codes[apiErr.ErrorCode()] {
			return faults.Configuration("storage.s3", fmt.Sprintf("%s %s: %s", op, key, apiErr.ErrorMessage()))
		}
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	return faults.Transport(op, err)
}
