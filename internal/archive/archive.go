// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package archive compacts completed bulk log files older than a retention
// window into gzip archives, freeing up the output directory without
// touching files still being written.
package archive

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/pgzip"
)

// Archiver scans a directory of "bulk*.log" files on each Run and
// compresses any older than the retention window into the archive
// directory, removing the source file on success. It does no scheduling of
// its own; the caller decides how often Run is invoked. It never touches a file still within the retention window, so
// it is safe to run concurrently with the pipeline's FileWriters.
type Archiver struct {
	sourceDir string
	destDir   string
	after     time.Duration
	logger    *slog.Logger
}

// New returns an Archiver that compacts files in sourceDir older than after
// into destDir.
func New(sourceDir, destDir string, after time.Duration, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{sourceDir: sourceDir, destDir: destDir, after: after, logger: logger}
}

// Run performs one compaction pass and returns the number of files
// archived. I/O errors on individual files are logged and skipped; Run
// only returns an error if it cannot even list or create directories.
func (a *Archiver) Run() (int, error) {
	if err := os.MkdirAll(a.destDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating archive directory: %w", err)
	}

	entries, err := os.ReadDir(a.sourceDir)
	if err != nil {
		return 0, fmt.Errorf("reading output directory: %w", err)
	}

	cutoff := time.Now().Add(-a.after)
	archived := 0
	for _, e := range entries {
		if e.IsDir() || !isBulkLog(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			a.logger.Warn("archive: stat failed, skipping", "file", e.Name(), "error", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := a.compactOne(e.Name()); err != nil {
			a.logger.Warn("archive: compaction failed, leaving file in place", "file", e.Name(), "error", err)
			continue
		}
		archived++
	}
	return archived, nil
}

func isBulkLog(name string) bool {
	return strings.HasPrefix(name, "bulk") && strings.HasSuffix(name, ".log")
}

func (a *Archiver) compactOne(name string) error {
	srcPath := filepath.Join(a.sourceDir, name)
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", srcPath, err)
	}
	defer src.Close()

	dstPath := filepath.Join(a.destDir, name+".gz")
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dstPath, err)
	}

	gw := pgzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		gw.Close()
		dst.Close()
		os.Remove(dstPath)
		return fmt.Errorf("compressing %s: %w", srcPath, err)
	}
	if err := gw.Close(); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return fmt.Errorf("flushing %s: %w", dstPath, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dstPath, err)
	}

	if err := os.Remove(srcPath); err != nil {
		return fmt.Errorf("removing source %s after archiving: %w", srcPath, err)
	}
	return nil
}
