package nfa

import (
	"testing"

	"github.com/irrecv/irrecv/irp"
)

func mustParse(t *testing.T, src string) *irp.Protocol {
	t.Helper()
	proto, err := irp.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return proto
}

func TestBuildNEC1HasSingleStartAndDone(t *testing.T) {
	proto := mustParse(t, "{38k,564}<1,-1|1,-3>(16,-8,D:8,S:8,F:8,~F:8,1,^108m)[D:0..255,S:0..255,F:0..255]")
	opts := irp.DefaultOptions("NEC1")
	n, err := Build(proto, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n.Start != 0 {
		t.Errorf("start = %d, want 0", n.Start)
	}
	var doneCount int
	for _, v := range n.Vertices {
		for _, a := range v.Actions {
			if _, ok := a.(*Done); ok {
				doneCount++
			}
		}
	}
	if doneCount == 0 {
		t.Fatal("expected at least one Done vertex reachable from start")
	}
}

func TestBuildAssignsLeadInFlashAndGap(t *testing.T) {
	proto := mustParse(t, "{38k,564}<1,-1|1,-3>(16,-8,D:8,1,^108m)[D:0..255]")
	n, err := Build(proto, irp.DefaultOptions("test"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	startEdges := n.Vertices[n.Start].Edges
	if len(startEdges) != 1 {
		t.Fatalf("start vertex edges = %d, want 1", len(startEdges))
	}
	flash, ok := startEdges[0].(*Flash)
	if !ok {
		t.Fatalf("start edge = %T, want *Flash", startEdges[0])
	}
	if flash.Length != 16*564 {
		t.Errorf("lead-in flash length = %v, want %v", flash.Length, 16*564.0)
	}
	gapEdges := n.Vertices[flash.Dest].Edges
	if len(gapEdges) != 1 {
		t.Fatalf("second vertex edges = %d, want 1", len(gapEdges))
	}
	gap, ok := gapEdges[0].(*Gap)
	if !ok {
		t.Fatalf("second edge = %T, want *Gap", gapEdges[0])
	}
	if gap.Length != 8*564 {
		t.Errorf("lead-in gap length = %v, want %v", gap.Length, 8*564.0)
	}
}

func TestBuildBitFieldUsesMayBranchCondOnSharedPrefix(t *testing.T) {
	// A deliberately ambiguous bitspec: symbol 0 ("1,-1") is a strict
	// prefix of symbol 1 ("1,-1,1,-3"), so decoding one bit must keep
	// both hypotheses live rather than commit immediately.
	proto := mustParse(t, "{38k,564}<1,-1|1,-1,1,-3>(16,-8,D:1,1,^108m)[D:0..1]")
	n, err := Build(proto, irp.DefaultOptions("test"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var found bool
	for _, v := range n.Vertices {
		for _, e := range v.Edges {
			if _, ok := e.(*MayBranchCond); ok {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected at least one MayBranchCond edge for the shared-prefix bitspec")
	}
}

func TestBuildRejectsUnboundWidth(t *testing.T) {
	proto := mustParse(t, "{38k,564}<1,-1|1,-3>(16,-8,D:W,1,^108m)[D:0..255]")
	_, err := Build(proto, irp.DefaultOptions("test"))
	if err == nil {
		t.Fatal("expected an error for an unbound bitfield width, got nil")
	}
}
