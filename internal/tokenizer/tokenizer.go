// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package tokenizer turns a byte stream into the parser's token kinds on
// newline boundaries.
package tokenizer

import (
	"strings"

	"github.com/nishisan-dev/asyncbulk/internal/parser"
)

// Token is one line's worth of classified input.
type Token struct {
	Kind    parser.TokenKind
	Command string // only meaningful when Kind == parser.Command
}

// Tokenizer accumulates bytes across Feed calls and yields complete-line
// tokens, buffering any trailing partial line for the next call.
type Tokenizer struct {
	pending strings.Builder
}

// Feed appends data to the pending buffer and returns every complete-line
// token it now contains. Trailing text with no terminating newline remains
// buffered for the next Feed call.
func (t *Tokenizer) Feed(data []byte) []Token {
	t.pending.Write(data)
	buffered := t.pending.String()

	var tokens []Token
	start := 0
	for i := 0; i < len(buffered); i++ {
		if buffered[i] != '\n' {
			continue
		}
		line := buffered[start:i]
		if tok, ok := classify(line); ok {
			tokens = append(tokens, tok)
		}
		start = i + 1
	}

	t.pending.Reset()
	if start < len(buffered) {
		t.pending.WriteString(buffered[start:])
	}
	return tokens
}

// classify returns false for a blank line (no command, no bracket): a
// Command must be non-empty.
func classify(line string) (Token, bool) {
	if line == "" {
		return Token{}, false
	}
	switch strings.TrimSpace(line) {
	case "{":
		return Token{Kind: parser.Open}, true
	case "}":
		return Token{Kind: parser.Close}, true
	default:
		return Token{Kind: parser.Command, Command: line}, true
	}
}
