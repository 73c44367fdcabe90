// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package pipeline

import "sync/atomic"

// Counters is the {blocks, commands} pair each writer owns, using atomic
// fields so a writer goroutine can update them while the registry reads a
// snapshot after shutdown without a lock.
type Counters struct {
	blocks   atomic.Int64
	commands atomic.Int64
}

// recordBulk increments both counters for one successfully written bulk.
// Not incremented on I/O failure.
func (c *Counters) recordBulk(commandCount int) {
	c.blocks.Add(1)
	c.commands.Add(int64(commandCount))
}

// Blocks returns the number of bulks this writer has successfully written.
func (c *Counters) Blocks() int64 {
	return c.blocks.Load()
}

// Commands returns the total number of commands across those bulks.
func (c *Counters) Commands() int64 {
	return c.commands.Load()
}

// Snapshot is a point-in-time copy of a Counters pair, safe to pass around
// after the writer has stopped mutating it.
type Snapshot struct {
	Blocks   int64
	Commands int64
}

// Snapshot captures the current counter values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{Blocks: c.Blocks(), Commands: c.Commands()}
}
