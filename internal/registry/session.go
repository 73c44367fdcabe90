// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package registry is the multi-tenant lifecycle manager: it allocates
// handles, owns one Session per handle plus the shared handle-0 session,
// and routes delivered bytes to each session's own parser.
package registry

import (
	"io"
	"log/slog"
	"sync"

	"github.com/nishisan-dev/asyncbulk/internal/bulk"
	"github.com/nishisan-dev/asyncbulk/internal/parser"
	"github.com/nishisan-dev/asyncbulk/internal/pipeline"
	"github.com/nishisan-dev/asyncbulk/internal/tokenizer"
)

// pipelineSink adapts *pipeline.Pipeline to parser.Sink, so every Session
// emits through the same two queues regardless of handle.
type pipelineSink struct {
	pipeline *pipeline.Pipeline
}

func (s pipelineSink) Emit(b *bulk.Bulk) {
	s.pipeline.Emit(b.Render(), b.Len(), b.Filename())
}

// Session owns one Parser and the tokenizer buffer feeding it. It is
// affine to its handle: once resolved under the registry mutex, deliver
// only needs the per-session mutex, never the registry's.
type Session struct {
	handle    uint64
	mu        sync.Mutex
	tokenizer tokenizer.Tokenizer
	parser    *parser.Parser
	logger    *slog.Logger
	logCloser io.Closer
	logPath   string
}

func newSession(handle uint64, bulkSize int, p *pipeline.Pipeline, logger *slog.Logger) *Session {
	return &Session{
		handle: handle,
		logger: logger,
		parser: parser.New(bulkSize, pipelineSink{pipeline: p}, logger),
	}
}

// Handle returns the session's opaque identifier.
func (s *Session) Handle() uint64 {
	return s.handle
}

// LogPath reports the per-session log file path, or "" if per-session
// logging is disabled.
func (s *Session) LogPath() string {
	return s.logPath
}

// deliver feeds data to the session's tokenizer and drives the parser for
// every token it now yields. Held entirely under the session's own mutex,
// so concurrent deliveries on distinct handles never contend.
func (s *Session) deliver(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tok := range s.tokenizer.Feed(data) {
		s.parser.Step(tok.Kind, tok.Command)
	}
}

// endOfStream drives the parser's end-of-stream transition: a partial
// static block is flushed, a partial dynamic block is discarded.
func (s *Session) endOfStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parser.EndOfStream()
}

// closeLog releases the per-session log file handle, if one was opened.
func (s *Session) closeLog() {
	if s.logCloser != nil {
		_ = s.logCloser.Close()
	}
}
