// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package pipeline

import (
	"log/slog"
	"strconv"
	"sync"
)

// Writer owns one goroutine draining one Queue into one sink (stdout, or
// a file). Each Writer owns its goroutine; Wait joins it.
type Writer struct {
	name     string
	queue    *Queue
	logger   *slog.Logger
	counters Counters
	done     chan struct{}
	write    func(msg Message) error
}

// newWriter wires a Writer around a sink-specific write function. write is
// called only for Data messages; I/O errors are logged and the message is
// dropped without incrementing counters.
func newWriter(name string, queue *Queue, logger *slog.Logger, write func(msg Message) error) *Writer {
	return &Writer{
		name:   name,
		queue:  queue,
		logger: logger,
		done:   make(chan struct{}),
		write:  write,
	}
}

// Start launches the writer's goroutine. It returns immediately; call Wait
// (or rely on Registry.Shutdown) to block until the writer observes
// EndOfStream.
func (w *Writer) Start() {
	go w.loop()
}

func (w *Writer) loop() {
	defer close(w.done)
	for {
		msg := w.queue.Pop()
		if msg.Kind == EndOfStream {
			return
		}
		if err := w.write(msg); err != nil {
			w.logger.Warn("writer I/O failed, dropping bulk", "writer", w.name, "error", err)
			continue
		}
		w.counters.recordBulk(msg.CommandCount)
	}
}

// Wait blocks until the writer's goroutine has returned after observing
// EndOfStream.
func (w *Writer) Wait() {
	<-w.done
}

// Counters returns the writer's live counter pair.
func (w *Writer) Counters() *Counters {
	return &w.counters
}

// Report renders the final per-writer statistics line.
func (w *Writer) Report() string {
	snap := w.counters.Snapshot()
	return w.name + " thread — " + strconv.FormatInt(snap.Blocks, 10) + " blocks, " + strconv.FormatInt(snap.Commands, 10) + " commands"
}

// Pool runs N writers sharing one Queue — used for the two file writers,
// where both consume from the same queue and the first to pop a message
// wins it. A Pool is also valid for a single writer; the console writer
// is a plain Writer, not a Pool.
type Pool struct {
	writers []*Writer
}

// NewPool builds n writers against queue, writer i named namer(i) and
// writing each Data message through write(i, msg). Call Start to launch
// them.
func NewPool(n int, queue *Queue, logger *slog.Logger, namer func(i int) string, write func(i int, msg Message) error) *Pool {
	p := &Pool{}
	for i := 0; i < n; i++ {
		idx := i
		w := newWriter(namer(idx), queue, logger, func(msg Message) error {
			return write(idx, msg)
		})
		p.writers = append(p.writers, w)
	}
	return p
}

// Start launches every writer in the pool.
func (p *Pool) Start() {
	for _, w := range p.writers {
		w.Start()
	}
}

// Wait blocks until every writer in the pool has returned.
func (p *Pool) Wait() {
	var wg sync.WaitGroup
	for _, w := range p.writers {
		wg.Add(1)
		go func(w *Writer) {
			defer wg.Done()
			w.Wait()
		}(w)
	}
	wg.Wait()
}

// Writers exposes the pool's writers, e.g. for per-writer Report() lines.
func (p *Pool) Writers() []*Writer {
	return p.writers
}

// TotalBlocks sums Blocks() across every writer in the pool — used to
// verify queue conservation against the console writer's block count.
func (p *Pool) TotalBlocks() int64 {
	var total int64
	for _, w := range p.writers {
		total += w.Counters().Blocks()
	}
	return total
}
