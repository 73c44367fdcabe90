// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// fanOutHandler is a slog.Handler that dispatches each record to two
// handlers. Used by NewSessionLogger to write simultaneously to the global
// handler and a session's dedicated log file.
type fanOutHandler struct {
	primary   slog.Handler
	secondary slog.Handler
}

func (h *fanOutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.secondary.Enabled(ctx, level)
}

func (h *fanOutHandler) Handle(ctx context.Context, r slog.Record) error {
	// Checks each handler's Enabled() individually before dispatching, so a
	// DEBUG record isn't sent to a primary handler that only accepts INFO
	// or above.
	if h.primary.Enabled(ctx, r.Level) {
		if err := h.primary.Handle(ctx, r); err != nil {
			return err
		}
	}
	// A write error on the session file must not block the global log.
	if h.secondary.Enabled(ctx, r.Level) {
		_ = h.secondary.Handle(ctx, r)
	}
	return nil
}

func (h *fanOutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &fanOutHandler{
		primary:   h.primary.WithAttrs(attrs),
		secondary: h.secondary.WithAttrs(attrs),
	}
}

func (h *fanOutHandler) WithGroup(name string) slog.Handler {
	return &fanOutHandler{
		primary:   h.primary.WithGroup(name),
		secondary: h.secondary.WithGroup(name),
	}
}

// NewSessionLogger builds a logger that writes to both the base (global)
// logger and a file dedicated to one session's handle. The file is created
// at:
//
//	{sessionLogDir}/session-{handle}.log
//
// It returns the enriched logger, an io.Closer that must be called when the
// session closes, and the file's path (sessionLogDir joined with the file
// name, so relative when sessionLogDir is relative).
//
// If sessionLogDir is empty, it returns the base logger unmodified (no-op),
// so per-session log files are opt-in.
func NewSessionLogger(baseLogger *slog.Logger, sessionLogDir string, handle uint64) (*slog.Logger, io.Closer, string, error) {
	if sessionLogDir == "" {
		return baseLogger, io.NopCloser(nil), "", nil
	}

	if err := os.MkdirAll(sessionLogDir, 0755); err != nil {
		return nil, nil, "", fmt.Errorf("creating session log directory %s: %w", sessionLogDir, err)
	}

	logPath := filepath.Join(sessionLogDir, fmt.Sprintf("session-%d.log", handle))
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, "", fmt.Errorf("opening session log file %s: %w", logPath, err)
	}

	// The session file always uses JSON at debug level, for maximum capture.
	fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	combined := &fanOutHandler{
		primary:   baseLogger.Handler(),
		secondary: fileHandler,
	}

	return slog.New(combined), f, logPath, nil
}

// RemoveSessionLog removes a closed session's log file. It is a no-op if
// sessionLogDir is empty or the file does not exist.
func RemoveSessionLog(sessionLogDir string, handle uint64) {
	if sessionLogDir == "" {
		return
	}
	logPath := filepath.Join(sessionLogDir, fmt.Sprintf("session-%d.log", handle))
	os.Remove(logPath)
}
