// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/nishisan-dev/asyncbulk/internal/logging"
	"github.com/nishisan-dev/asyncbulk/internal/pipeline"
	"github.com/nishisan-dev/asyncbulk/internal/report"
)

// SharedHandle is the reserved handle. Open never returns it on success;
// Deliver and Close always treat it as a silent no-op through the public
// API (see Registry.Deliver).
const SharedHandle uint64 = 0

// Registry is the multi-tenant lifecycle manager: it allocates handles,
// owns one Session per handle plus the always-present shared session, and
// serialises Open/Close against each other while letting Deliver proceed
// against a resolved session under only that session's own mutex.
type Registry struct {
	mu         sync.Mutex
	sessions   map[uint64]*Session
	nextHandle uint64
	closed     bool

	shared *Session

	pipeline      *pipeline.Pipeline
	sessionLogDir string
	logger        *slog.Logger
}

// New constructs a Registry bound to p. If sessionLogDir is non-empty,
// every opened session (including the shared one) gets its own fan-out log
// file under that directory.
//
// The shared session is built here, eagerly, rather than waiting for its
// first byte: nothing in the public API can ever route a byte to it (see
// Deliver), so lazy construction would only delay a file-system call that
// has to happen regardless.
func New(p *pipeline.Pipeline, sessionLogDir string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		sessions:      make(map[uint64]*Session),
		nextHandle:    1,
		pipeline:      p,
		sessionLogDir: sessionLogDir,
		logger:        logger,
	}

	sharedLogger, closer, path, err := logging.NewSessionLogger(logger, sessionLogDir, SharedHandle)
	if err != nil {
		logger.Warn("failed to open shared session log, continuing without one", "error", err)
		sharedLogger, closer, path = logger, nil, ""
	}
	r.shared = newSession(SharedHandle, 1, p, sharedLogger)
	r.shared.logCloser = closer
	r.shared.logPath = path
	return r
}

// Open allocates a new handle, monotonically from 1, and constructs a
// Session whose Parser groups statically in blocks of bulkSize. It returns
// (SharedHandle, error) if bulkSize < 1 or the registry has begun shutdown
// — the error carries the reason, but callers at the C-compatible surface
// (the asyncbulk facade) collapse it back to the bare invalid-handle
// sentinel, which never surfaces errors.
func (r *Registry) Open(bulkSize int) (uint64, error) {
	if bulkSize < 1 {
		return SharedHandle, fmt.Errorf("registry: bulk size must be >= 1, got %d", bulkSize)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return SharedHandle, fmt.Errorf("registry: refusing Open, shutdown in progress")
	}

	handle := r.nextHandle
	r.nextHandle++

	sessionLogger, closer, path, err := logging.NewSessionLogger(r.logger, r.sessionLogDir, handle)
	if err != nil {
		r.logger.Warn("failed to open session log, continuing without one", "handle", handle, "error", err)
		sessionLogger, closer, path = r.logger, nil, ""
	}

	s := newSession(handle, bulkSize, r.pipeline, sessionLogger)
	s.logCloser = closer
	s.logPath = path
	r.sessions[handle] = s
	return handle, nil
}

// Deliver validates handle, resolves the Session under the registry mutex,
// then feeds data under only that Session's own mutex. A zero handle, an
// empty payload, or an unknown handle is a silent no-op: the shared session
// built by New is never reachable from this method, by design — see the
// package doc and SharedHandle.
func (r *Registry) Deliver(handle uint64, data []byte) {
	if handle == SharedHandle || len(data) == 0 {
		return
	}

	r.mu.Lock()
	s, ok := r.sessions[handle]
	r.mu.Unlock()
	if !ok {
		return
	}

	s.deliver(data)
}

// Close drives the session's end-of-stream transition (flushing a partial
// static block, discarding a partial dynamic one), releases its log file,
// and removes it from the registry. Idempotent: closing an unknown or
// already-closed handle is a silent no-op.
func (r *Registry) Close(handle uint64) {
	if handle == SharedHandle {
		return
	}

	r.mu.Lock()
	s, ok := r.sessions[handle]
	if ok {
		delete(r.sessions, handle)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	s.endOfStream()
	s.closeLog()
	logging.RemoveSessionLog(r.sessionLogDir, handle)
}

// Shutdown refuses further Opens, runs end-of-stream on every remaining
// session — including the shared one, which participates in teardown like
// any other — then tears down the pipeline and logs the final report: one
// line per writer, a main-thread aggregate line, and a host resource
// snapshot.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	remaining := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		remaining = append(remaining, s)
	}
	r.sessions = make(map[uint64]*Session)
	r.mu.Unlock()

	for _, s := range remaining {
		s.endOfStream()
		s.closeLog()
	}
	r.shared.endOfStream()
	r.shared.closeLog()

	r.pipeline.Shutdown()

	r.logger.Info(r.pipeline.ConsoleWriter().Report())
	for _, w := range r.pipeline.FileWriters() {
		r.logger.Info(w.Report())
	}
	r.logger.Info("aggregate report",
		"console_blocks", r.pipeline.ConsoleBlocks(),
		"file_blocks", r.pipeline.FileBlocks(),
	)

	snap := report.CollectHostSnapshot(r.logger)
	r.logger.Info("host snapshot",
		"cpu_percent", snap.CPUPercent,
		"memory_percent", snap.MemoryPercent,
	)
}

// SessionCount reports the number of live, non-shared sessions. Intended
// for tests and diagnostics.
func (r *Registry) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
