// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// NewFilePool starts two file writers sharing one queue: the first to pop
// a message wins it. Files are written directly into dir, named by the
// message's Filename. A later bulk that renders to the same filename
// within the same second overwrites an earlier one.
//
// onWritten, if non-nil, is called with the written file's full path and
// filename after every successful write — e.g. to hand the file off to
// internal/archive or internal/mirror without this package depending on
// either.
func NewFilePool(queue *Queue, dir string, logger *slog.Logger, onWritten func(path, filename string)) *Pool {
	return NewPool(2, queue, logger,
		func(i int) string { return fmt.Sprintf("file-%d", i+1) },
		func(i int, msg Message) error {
			if err := writeBulkFile(dir, msg.Filename, msg.Text); err != nil {
				return err
			}
			if onWritten != nil {
				onWritten(filepath.Join(dir, msg.Filename), msg.Filename)
			}
			return nil
		},
	)
}

func writeBulkFile(dir, filename, text string) error {
	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
