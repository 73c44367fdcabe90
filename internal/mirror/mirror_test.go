// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package mirror

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeUploader struct {
	mu      sync.Mutex
	calls   []*s3.PutObjectInput
	failErr error
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, input)
	if f.failErr != nil {
		return nil, f.failErr
	}
	return &manager.UploadOutput{}, nil
}

func (f *fakeUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestUploadAsyncUsesBucketAndPrefix(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "bulk100.log")
	if err := os.WriteFile(filePath, []byte("bulk: a, b\n"), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	fake := &fakeUploader{}
	m := &Mirror{up: fake, bucket: "my-bucket", prefix: "bulk/", logger: slog.Default()}

	m.UploadAsync(filePath, "bulk100.log")
	waitFor(t, func() bool { return fake.callCount() == 1 })

	got := fake.calls[0]
	if *got.Bucket != "my-bucket" {
		t.Fatalf("bucket = %q, want my-bucket", *got.Bucket)
	}
	if *got.Key != "bulk/bulk100.log" {
		t.Fatalf("key = %q, want bulk/bulk100.log", *got.Key)
	}
}

func TestUploadAsyncSwallowsFailure(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "bulk200.log")
	if err := os.WriteFile(filePath, []byte("bulk: c\n"), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	fake := &fakeUploader{failErr: errors.New("network down")}
	m := &Mirror{up: fake, bucket: "my-bucket", prefix: "", logger: slog.Default()}

	m.UploadAsync(filePath, "bulk200.log")
	waitFor(t, func() bool { return fake.callCount() == 1 })
}

func TestUploadAsyncMissingFile(t *testing.T) {
	fake := &fakeUploader{}
	m := &Mirror{up: fake, bucket: "my-bucket", prefix: "", logger: slog.Default()}
	m.UploadAsync("/nonexistent/path/bulk1.log", "bulk1.log")
	time.Sleep(10 * time.Millisecond)
	if fake.callCount() != 0 {
		t.Fatalf("expected no upload attempted for a missing file, got %d calls", fake.callCount())
	}
}
