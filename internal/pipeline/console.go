// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package pipeline

import (
	"io"
	"log/slog"
)

// NewConsoleWriter returns the single console writer, draining queue and
// writing each Data message's text to out. out is normally os.Stdout;
// tests pass a buffer.
func NewConsoleWriter(queue *Queue, out io.Writer, logger *slog.Logger) *Writer {
	return newWriter("console", queue, logger, func(msg Message) error {
		_, err := io.WriteString(out, msg.Text)
		return err
	})
}
