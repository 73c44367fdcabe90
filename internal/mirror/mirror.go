// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package mirror best-effort uploads completed bulk log files to S3. A
// mirror failure never blocks or fails a Deliver/Close call: it is a
// side-feature of the output pipeline, not a durability guarantee.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// uploader is the subset of *manager.Uploader that Mirror needs, narrowed
// so tests can inject a fake instead of talking to real S3.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Mirror uploads bulk log files to one S3 bucket under a fixed key prefix.
type Mirror struct {
	up     uploader
	bucket string
	prefix string
	logger *slog.Logger
}

// New resolves AWS credentials and region and builds a Mirror bound to
// bucket/prefix. When accessKeyID is non-empty, it takes priority as a
// static credentials provider; otherwise credential resolution falls back
// to the default chain (environment, shared config file, instance role).
// The region is always the one passed in.
func New(ctx context.Context, region, bucket, prefix, accessKeyID, secretAccessKey string, logger *slog.Logger) (*Mirror, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &Mirror{
		up:     manager.NewUploader(client),
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

// UploadAsync uploads filePath under key path.Join(prefix, filename) in
// its own goroutine and returns immediately. Failures are logged at Warn
// and otherwise swallowed — exactly as a file writer's I/O errors are
// (internal/pipeline), since mirroring carries no durability guarantee.
func (m *Mirror) UploadAsync(filePath, filename string) {
	go func() {
		if err := m.upload(filePath, filename); err != nil {
			m.logger.Warn("mirror: upload failed", "file", filePath, "error", err)
		}
	}()
}

func (m *Mirror) upload(filePath, filename string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer f.Close()

	key := path.Join(m.prefix, filename)
	_, err = m.up.Upload(context.Background(), &s3.PutObjectInput{
		Bucket: &m.bucket,
		Key:    &key,
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("uploading %s to s3://%s/%s: %w", filePath, m.bucket, key, err)
	}
	return nil
}
