// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package parser implements the bulk grouping grammar's state machine: a
// table dispatch on (state, token) pairs, rather than a class hierarchy with
// virtual dispatch per state.
package parser

import (
	"log/slog"

	"github.com/nishisan-dev/asyncbulk/internal/bulk"
)

// State is the parser's tagged state variant.
type State int

const (
	// StartingBlock is the parser's idle state: no commands collected, no
	// dynamic block open.
	StartingBlock State = iota
	// CollectingStaticBlock accumulates commands toward a static bulk of
	// the configured size N.
	CollectingStaticBlock
	// ExpectingDynamicCommand has entered a dynamic block via `{` and has
	// not yet seen a command; a further `{` here raises dynamic_level and
	// keeps this state.
	ExpectingDynamicCommand
	// CollectingDynamicBlock accumulates commands inside one or more
	// nested `{…}` pairs.
	CollectingDynamicBlock
)

func (s State) String() string {
	switch s {
	case StartingBlock:
		return "StartingBlock"
	case CollectingStaticBlock:
		return "CollectingStaticBlock"
	case ExpectingDynamicCommand:
		return "ExpectingDynamicCommand"
	case CollectingDynamicBlock:
		return "CollectingDynamicBlock"
	default:
		return "Unknown"
	}
}

// TokenKind is one of the three logical token kinds the tokeniser produces.
type TokenKind int

const (
	// Command is any non-empty line other than a lone "{" or "}".
	Command TokenKind = iota
	// Open is a line whose only non-whitespace content is "{".
	Open
	// Close is a line whose only non-whitespace content is "}".
	Close
)

// Sink receives completed bulks. The parser itself never renders to stdout
// or a file — that is internal/pipeline's job.
type Sink interface {
	Emit(b *bulk.Bulk)
}

// Parser drives the bulk grouping state table for one session. It is not
// safe for concurrent use; internal/registry serializes access to a
// Parser behind its owning session's mutex.
type Parser struct {
	size         int
	state        State
	dynamicLevel int
	current      *bulk.Bulk
	sink         Sink
	logger       *slog.Logger
}

// New returns a Parser that emits static bulks of bulkSize commands to
// sink. bulkSize must be >= 1; callers validate this at session-open time.
func New(bulkSize int, sink Sink, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		size:    bulkSize,
		current: bulk.New(),
		sink:    sink,
		logger:  logger,
	}
}

// State returns the parser's current state, exposed for tests.
func (p *Parser) State() State {
	return p.state
}

// DynamicLevel returns the current nesting depth of unmatched "{".
func (p *Parser) DynamicLevel() int {
	return p.dynamicLevel
}

// InDynamicBlock reports whether the parser is anywhere inside a `{…}`
// pair.
func (p *Parser) InDynamicBlock() bool {
	return p.dynamicLevel > 0
}

// Step feeds one token into the state machine: a table dispatch from
// (state, token) to an action and the next state.
func (p *Parser) Step(kind TokenKind, command string) {
	switch p.state {
	case StartingBlock:
		p.stepStarting(kind, command)
	case CollectingStaticBlock:
		p.stepCollectingStatic(kind, command)
	case ExpectingDynamicCommand:
		p.stepExpectingDynamic(kind, command)
	case CollectingDynamicBlock:
		p.stepCollectingDynamic(kind, command)
	}
}

func (p *Parser) stepStarting(kind TokenKind, command string) {
	switch kind {
	case Command:
		p.current.AddCommand(command)
		p.transition(CollectingStaticBlock)
	case Open:
		p.dynamicLevel = 1
		p.transition(ExpectingDynamicCommand)
	case Close:
		// a "}" with no open dynamic block is ignored silently.
	}
}

func (p *Parser) stepCollectingStatic(kind TokenKind, command string) {
	switch kind {
	case Command:
		p.current.AddCommand(command)
		if p.current.Len() == p.size {
			p.run()
			p.transition(StartingBlock)
		}
	case Open:
		// A "{" mid-static-block flushes the static block before rising.
		p.run()
		p.dynamicLevel = 1
		p.transition(ExpectingDynamicCommand)
	case Close:
		// ignored silently
	}
}

func (p *Parser) stepExpectingDynamic(kind TokenKind, command string) {
	switch kind {
	case Command:
		p.current.AddCommand(command)
		p.transition(CollectingDynamicBlock)
	case Open:
		p.dynamicLevel++
	case Close:
		p.dynamicLevel--
		if p.dynamicLevel == 0 {
			p.run()
			p.transition(StartingBlock)
		}
	}
}

func (p *Parser) stepCollectingDynamic(kind TokenKind, command string) {
	switch kind {
	case Command:
		p.current.AddCommand(command)
	case Open:
		p.dynamicLevel++
	case Close:
		p.dynamicLevel--
		if p.dynamicLevel == 0 {
			p.run()
			p.transition(StartingBlock)
		}
	}
}

// EndOfStream drives the end-of-stream transition: a partially collected
// static block is run; a partially collected dynamic block is discarded
// without emitting.
func (p *Parser) EndOfStream() {
	switch p.state {
	case StartingBlock:
		// terminal, nothing pending
	case CollectingStaticBlock:
		p.run()
		p.transition(StartingBlock)
	case ExpectingDynamicCommand, CollectingDynamicBlock:
		p.logger.Debug("discarding unclosed dynamic block", "commands", p.current.Len(), "level", p.dynamicLevel)
		p.current = bulk.New()
		// State intentionally left as-is: the session is being torn down.
	}
}

// run emits the accumulated bulk, if non-empty, and starts a fresh one.
func (p *Parser) run() {
	if p.current.Empty() {
		return
	}
	b := p.current
	p.current = bulk.New()
	if p.sink != nil {
		p.sink.Emit(b)
	}
}

func (p *Parser) transition(to State) {
	if p.state != to {
		p.logger.Debug("state exit", "state", p.state.String())
	}
	p.state = to
}
