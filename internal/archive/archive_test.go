// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/pgzip"
)

func writeBulkLog(t *testing.T, dir, name, content string, age time.Duration) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	old := time.Now().Add(-age)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestRunCompactsOnlyOldFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeBulkLog(t, src, "bulk100.log", "bulk: a, b\n", 2*time.Hour)
	writeBulkLog(t, src, "bulk200.log", "bulk: c, d\n", time.Minute)
	writeBulkLog(t, src, "notabulk.txt", "ignore me", 2*time.Hour)

	a := New(src, dst, time.Hour, nil)
	n, err := a.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 file archived, got %d", n)
	}

	if _, err := os.Stat(filepath.Join(src, "bulk100.log")); !os.IsNotExist(err) {
		t.Fatalf("expected old source file removed, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(src, "bulk200.log")); err != nil {
		t.Fatalf("expected recent file to remain: %v", err)
	}
	if _, err := os.Stat(filepath.Join(src, "notabulk.txt")); err != nil {
		t.Fatalf("expected non-bulk file untouched: %v", err)
	}

	gzPath := filepath.Join(dst, "bulk100.log.gz")
	f, err := os.Open(gzPath)
	if err != nil {
		t.Fatalf("opening archived file: %v", err)
	}
	defer f.Close()
	gr, err := pgzip.NewReader(f)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer gr.Close()
	buf := make([]byte, 64)
	n2, _ := gr.Read(buf)
	if string(buf[:n2]) != "bulk: a, b\n" {
		t.Fatalf("unexpected archived content: %q", buf[:n2])
	}
}

func TestRunNoMatchingFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	a := New(src, dst, time.Hour, nil)
	n, err := a.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 files archived, got %d", n)
	}
}
