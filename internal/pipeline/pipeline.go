// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package pipeline

import (
	"io"
	"log/slog"
	"os"
)

// Pipeline owns the two queues and three writer threads: one console
// writer and a two-writer file pool, plus the shutdown sequencing that
// joins them all.
type Pipeline struct {
	consoleQ *Queue
	fileQ    *Queue
	console  *Writer
	files    *Pool
}

// Options configures where the console and file sinks write to.
type Options struct {
	ConsoleOut io.Writer // defaults to os.Stdout
	FileDir    string    // defaults to "."

	// OnFileWritten, if set, is called after every successful bulk file
	// write with the file's full path and bare filename.
	OnFileWritten func(path, filename string)
}

// New builds and starts the console writer and the two-writer file pool.
func New(opts Options, logger *slog.Logger) (*Pipeline, error) {
	if opts.ConsoleOut == nil {
		opts.ConsoleOut = os.Stdout
	}
	if opts.FileDir == "" {
		opts.FileDir = "."
	}
	if err := os.MkdirAll(opts.FileDir, 0o755); err != nil {
		return nil, err
	}

	p := &Pipeline{
		consoleQ: NewQueue(),
		fileQ:    NewQueue(),
	}
	p.console = NewConsoleWriter(p.consoleQ, opts.ConsoleOut, logger)
	p.files = NewFilePool(p.fileQ, opts.FileDir, logger, opts.OnFileWritten)
	p.console.Start()
	p.files.Start()
	return p, nil
}

// Emit enqueues one bulk on both queues with identical text, command
// count, and filename: a bulk is rendered once and reaches both sinks
// with identical content.
func (p *Pipeline) Emit(text string, commandCount int, filename string) {
	msg := NewData(text, commandCount, filename)
	p.consoleQ.Push(msg)
	p.fileQ.Push(msg)
}

// Shutdown enqueues one EndOfStream on the console queue and two on the
// file queue, since both file writers must observe termination, then joins
// every writer.
func (p *Pipeline) Shutdown() {
	p.consoleQ.Push(EndOfStreamMessage)
	p.fileQ.Push(EndOfStreamMessage)
	p.fileQ.Push(EndOfStreamMessage)
	p.console.Wait()
	p.files.Wait()
}

// ConsoleWriter exposes the console writer for its final Report() line.
func (p *Pipeline) ConsoleWriter() *Writer {
	return p.console
}

// FileWriters exposes the file pool's writers for their final Report() lines.
func (p *Pipeline) FileWriters() []*Writer {
	return p.files.Writers()
}

// ConsoleBlocks and FileBlocks support the queue-conservation check:
// console writer blocks must equal the sum of file writer blocks.
func (p *Pipeline) ConsoleBlocks() int64 {
	return p.console.Counters().Blocks()
}

// FileBlocks sums blocks across both file writers.
func (p *Pipeline) FileBlocks() int64 {
	return p.files.TotalBlocks()
}

// QueueDepths returns the current (approximate) depth of each queue, for
// internal/report's periodic snapshots.
func (p *Pipeline) QueueDepths() (console, file int) {
	return p.consoleQ.Len(), p.fileQ.Len()
}
