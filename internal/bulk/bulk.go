// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package bulk holds the Bulk value: an ordered group of commands rendered
// as a single line.
package bulk

import (
	"strconv"
	"strings"
	"time"
)

// Bulk is an ordered sequence of commands sharing one creation timestamp —
// the timestamp of the first command added to it. A Bulk starts empty; the
// parser emits only non-empty ones.
type Bulk struct {
	commands  []string
	createdAt time.Time
}

// New returns an empty Bulk. CreatedAt is fixed by the first AddCommand
// call, not by New, so callers may construct a Bulk before the first
// command arrives without skewing its timestamp.
func New() *Bulk {
	return &Bulk{}
}

// AddCommand appends a command, fixing the creation timestamp on the first
// call.
func (b *Bulk) AddCommand(cmd string) {
	if len(b.commands) == 0 {
		b.createdAt = time.Now()
	}
	b.commands = append(b.commands, cmd)
}

// Len reports the number of commands collected so far.
func (b *Bulk) Len() int {
	return len(b.commands)
}

// Empty reports whether no command has been added.
func (b *Bulk) Empty() bool {
	return len(b.commands) == 0
}

// CreatedAt returns the timestamp of the first command, or the zero time if
// the Bulk is empty.
func (b *Bulk) CreatedAt() time.Time {
	return b.createdAt
}

// Commands returns the collected commands in order. Callers must not mutate
// the returned slice.
func (b *Bulk) Commands() []string {
	return b.commands
}

// Render produces the "bulk: c1, c2, …, cn\n" line. Renders to "" for an
// empty Bulk — callers must not emit an empty Bulk (see parser package).
func (b *Bulk) Render() string {
	if len(b.commands) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("bulk: ")
	sb.WriteString(strings.Join(b.commands, ", "))
	sb.WriteByte('\n')
	return sb.String()
}

// Filename derives the "bulk<unix-seconds>.log" name from CreatedAt. Two
// bulks created within the same second collide; the second writer to write
// overwrites the first (see internal/pipeline).
func (b *Bulk) Filename() string {
	return "bulk" + strconv.FormatInt(b.createdAt.Unix(), 10) + ".log"
}
