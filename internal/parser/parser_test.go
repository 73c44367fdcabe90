// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package parser

import (
	"testing"
	"time"

	"github.com/nishisan-dev/asyncbulk/internal/bulk"
)

type recordingSink struct {
	bulks []*bulk.Bulk
}

func (s *recordingSink) Emit(b *bulk.Bulk) {
	s.bulks = append(s.bulks, b)
}

func step(p *Parser, tok string) {
	switch tok {
	case "{":
		p.Step(Open, "")
	case "}":
		p.Step(Close, "")
	default:
		p.Step(Command, tok)
	}
}

func TestStaticGrouping(t *testing.T) {
	sink := &recordingSink{}
	p := New(3, sink, nil)
	for _, tok := range []string{"1", "2", "3", "4", "5"} {
		step(p, tok)
	}
	if len(sink.bulks) != 1 || sink.bulks[0].Len() != 3 {
		t.Fatalf("expected one bulk of 3 before close, got %v", sink.bulks)
	}
	p.EndOfStream()
	if len(sink.bulks) != 2 {
		t.Fatalf("expected a second bulk emitted on close, got %v", sink.bulks)
	}
	if got := sink.bulks[1].Commands(); len(got) != 2 || got[0] != "4" || got[1] != "5" {
		t.Fatalf("unexpected trailing bulk: %v", got)
	}
	if p.State() != StartingBlock {
		t.Fatalf("expected StartingBlock after close, got %v", p.State())
	}
}

func TestEmitCarriesFirstCommandTimestamp(t *testing.T) {
	sink := &recordingSink{}
	p := New(2, sink, nil)
	before := time.Now()
	step(p, "1")
	step(p, "2")
	after := time.Now()
	if len(sink.bulks) != 1 {
		t.Fatalf("expected one emit, got %d", len(sink.bulks))
	}
	createdAt := sink.bulks[0].CreatedAt()
	if createdAt.Before(before) || createdAt.After(after) {
		t.Fatalf("createdAt %v not within [%v, %v]", createdAt, before, after)
	}
}

func TestStaticGroupingExactMultipleNoExtraBulk(t *testing.T) {
	sink := &recordingSink{}
	p := New(3, sink, nil)
	for _, tok := range []string{"1", "2", "3"} {
		step(p, tok)
	}
	p.EndOfStream()
	if len(sink.bulks) != 1 {
		t.Fatalf("expected exactly one bulk, got %d", len(sink.bulks))
	}
}

func TestDynamicAtomicity(t *testing.T) {
	sink := &recordingSink{}
	p := New(3, sink, nil)
	for _, tok := range []string{"{", "a", "{", "b", "}", "c", "}"} {
		step(p, tok)
	}
	if len(sink.bulks) != 1 {
		t.Fatalf("expected single atomic bulk, got %v", sink.bulks)
	}
	want := []string{"a", "b", "c"}
	got := sink.bulks[0].Commands()
	if len(got) != len(want) {
		t.Fatalf("bulk mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bulk mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestDynamicDiscardOnEndOfStream(t *testing.T) {
	sink := &recordingSink{}
	p := New(3, sink, nil)
	step(p, "1")
	step(p, "{")
	step(p, "2")
	p.EndOfStream()
	if len(sink.bulks) != 1 || sink.bulks[0].Len() != 1 || sink.bulks[0].Commands()[0] != "1" {
		t.Fatalf("expected only the static bulk [1], got %v", sink.bulks)
	}
	if p.State() != CollectingDynamicBlock {
		t.Fatalf("EndOfStream must not transition out of a discarded dynamic block, got %v", p.State())
	}
}

func TestStaticPreemption(t *testing.T) {
	sink := &recordingSink{}
	p := New(3, sink, nil)
	step(p, "1")
	step(p, "2")
	step(p, "{")
	if len(sink.bulks) != 1 || sink.bulks[0].Len() != 2 {
		t.Fatalf("expected static block flushed before dynamic level rises, got %v", sink.bulks)
	}
	if p.State() != ExpectingDynamicCommand || p.DynamicLevel() != 1 {
		t.Fatalf("expected ExpectingDynamicCommand at level 1, got %v/%d", p.State(), p.DynamicLevel())
	}
}

func TestEmptyDynamicBlockProducesNoOutput(t *testing.T) {
	sink := &recordingSink{}
	p := New(3, sink, nil)
	step(p, "{")
	step(p, "}")
	if len(sink.bulks) != 0 {
		t.Fatalf("expected no bulk for an empty dynamic block, got %v", sink.bulks)
	}
	if p.State() != StartingBlock || p.DynamicLevel() != 0 {
		t.Fatalf("expected reset to StartingBlock/0, got %v/%d", p.State(), p.DynamicLevel())
	}
}

func TestUnmatchedCloseIgnored(t *testing.T) {
	sink := &recordingSink{}
	p := New(3, sink, nil)
	step(p, "}")
	if p.State() != StartingBlock || len(sink.bulks) != 0 {
		t.Fatalf("unmatched close must be a silent no-op, got state=%v bulks=%v", p.State(), sink.bulks)
	}
}

func TestNestedBlocks(t *testing.T) {
	sink := &recordingSink{}
	p := New(3, sink, nil)
	for _, tok := range []string{"{", "cmd1", "cmd2", "{", "cmd3", "cmd4", "}", "cmd5", "}"} {
		step(p, tok)
	}
	if len(sink.bulks) != 1 {
		t.Fatalf("expected one bulk for the whole nested block, got %v", sink.bulks)
	}
	want := []string{"cmd1", "cmd2", "cmd3", "cmd4", "cmd5"}
	got := sink.bulks[0].Commands()
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if p.State() != StartingBlock || p.DynamicLevel() != 0 {
		t.Fatalf("expected reset after outermost close, got %v/%d", p.State(), p.DynamicLevel())
	}
}

func TestBreakDynamicBlockStaysUntilTornDown(t *testing.T) {
	sink := &recordingSink{}
	p := New(3, sink, nil)
	step(p, "{")
	step(p, "cmd1")
	if p.State() != CollectingDynamicBlock || p.DynamicLevel() != 1 {
		t.Fatalf("setup failed: %v/%d", p.State(), p.DynamicLevel())
	}
	p.EndOfStream()
	if p.State() != CollectingDynamicBlock || p.DynamicLevel() != 1 || len(sink.bulks) != 0 {
		t.Fatalf("end-of-stream must discard without transition: state=%v level=%d bulks=%v", p.State(), p.DynamicLevel(), sink.bulks)
	}
}

func TestInDynamicBlock(t *testing.T) {
	sink := &recordingSink{}
	p := New(3, sink, nil)
	if p.InDynamicBlock() {
		t.Fatal("fresh parser must not report being in a dynamic block")
	}
	step(p, "{")
	if !p.InDynamicBlock() {
		t.Fatal("expected InDynamicBlock after an unmatched {")
	}
	step(p, "cmd")
	step(p, "}")
	if p.InDynamicBlock() {
		t.Fatal("expected InDynamicBlock to clear after the matching }")
	}
}
