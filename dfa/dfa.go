// Package dfa lowers an nfa.NFA into a pruned, annotated form ready for
// streaming matching: nominal edge lengths become admissibility bands,
// Branch-only vertices are eliminated, statically decidable BranchCond
// edges are folded, and a global max_gap timeout is installed as an
// implicit Reset from every live vertex. The output shape is identical to
// an NFA's (vertices plus edges) — downstream consumers (package match,
// package bytecode, package dot) treat the two interchangeably.
package dfa

import (
	"github.com/irrecv/irrecv/irp"
	"github.com/irrecv/irrecv/nfa"
)

// Band is an admissible [Lo, Hi] microsecond range for one nominal
// duration under a compilation's eps/aeps tolerances.
type Band struct {
	Lo, Hi float64
}

// Contains reports whether an observed duration falls within the band.
func (b Band) Contains(us float64) bool {
	return us >= b.Lo && us <= b.Hi
}

// FlashEdge and GapEdge mirror nfa.Flash/nfa.Gap but carry a precomputed
// Band instead of a nominal length, so the Matcher never recomputes
// tolerances per token.
type FlashEdge struct {
	nfa.EdgeMarker
	Band Band
	Dest nfa.VertexIndex
}

type GapEdge struct {
	nfa.EdgeMarker
	Band Band
	Dest nfa.VertexIndex
}

// DFA is the lowered automaton. Vertices reuses the NFA's dense index
// space — lowering never renumbers vertices, it only rewrites their
// Edges in its own copy of the vertex list; vertices that no edge reaches
// any more are left in place unchanged.
type DFA struct {
	Vertices []nfa.Vertex
	Start    nfa.VertexIndex
	MaxGap   float64
	Options  irp.Options
	Protocol *irp.Protocol
}

// Compile lowers an NFA into a DFA under opts. opts.MaxGap, if zero, is
// derived from 90% of the NFA's own longest literal timing, per
// irp.Options.EffectiveMaxGap.
func Compile(n *nfa.NFA, opts irp.Options) (*DFA, error) {
	maxGap := opts.EffectiveMaxGap(n.MaxTimingUs())

	vertices := make([]nfa.Vertex, len(n.Vertices))
	copy(vertices, n.Vertices)

	for i := range vertices {
		vertices[i].Edges = lowerEdges(vertices[i].Edges, opts)
	}

	start := eliminateBranchOnly(vertices, n.Start)
	foldStaticBranchConds(vertices)

	return &DFA{
		Vertices: vertices,
		Start:    start,
		MaxGap:   maxGap,
		Options:  opts,
		Protocol: n.Protocol,
	}, nil
}

// lowerEdges rewrites Flash/Gap edges to FlashEdge/GapEdge carrying a
// precomputed admissibility band; every other edge variant passes
// through unchanged (Branch and BranchCond are handled by later passes,
// MayBranchCond is preserved unchanged per the DFA lowering contract).
func lowerEdges(edges []nfa.Edge, opts irp.Options) []nfa.Edge {
	out := make([]nfa.Edge, len(edges))
	for i, e := range edges {
		switch e := e.(type) {
		case *nfa.Flash:
			lo, hi := opts.Band(e.Length)
			out[i] = &FlashEdge{Band: Band{Lo: lo, Hi: hi}, Dest: e.Dest}
		case *nfa.Gap:
			lo, hi := opts.Band(e.Length)
			if !e.Complete {
				hi = maxFloat
			}
			out[i] = &GapEdge{Band: Band{Lo: lo, Hi: hi}, Dest: e.Dest}
		default:
			out[i] = e
		}
	}
	return out
}

const maxFloat = 1e18

// eliminateBranchOnly merges every vertex whose only edges are a single
// unconditional Branch and which carries no actions of its own into its
// predecessors, by rewriting any edge that targets it to target its
// Branch destination instead (transitively). Vertices that become
// unreachable are left in place with their Branch edge — callers index
// by position, so vertices are never removed or emptied.
func eliminateBranchOnly(vertices []nfa.Vertex, start nfa.VertexIndex) nfa.VertexIndex {
	redirect := make(map[nfa.VertexIndex]nfa.VertexIndex)
	for i, v := range vertices {
		if len(v.Actions) == 0 && len(v.Edges) == 1 {
			if br, ok := v.Edges[0].(*nfa.Branch); ok {
				redirect[nfa.VertexIndex(i)] = br.Dest
			}
		}
	}
	resolve := func(idx nfa.VertexIndex) nfa.VertexIndex {
		seen := map[nfa.VertexIndex]bool{}
		for {
			next, ok := redirect[idx]
			if !ok || seen[idx] {
				return idx
			}
			seen[idx] = true
			idx = next
		}
	}
	for i := range vertices {
		for j, e := range vertices[i].Edges {
			vertices[i].Edges[j] = redirectEdgeDest(e, resolve)
		}
	}
	return resolve(start)
}

func redirectEdgeDest(e nfa.Edge, resolve func(nfa.VertexIndex) nfa.VertexIndex) nfa.Edge {
	switch e := e.(type) {
	case *FlashEdge:
		e.Dest = resolve(e.Dest)
		return e
	case *GapEdge:
		e.Dest = resolve(e.Dest)
		return e
	case *nfa.Branch:
		c := *e
		c.Dest = resolve(c.Dest)
		return &c
	case *nfa.BranchCond:
		c := *e
		c.Yes = resolve(c.Yes)
		c.No = resolve(c.No)
		return &c
	case *nfa.MayBranchCond:
		c := *e
		c.Dest = resolve(c.Dest)
		return &c
	default:
		return e
	}
}

// foldStaticBranchConds rewrites a BranchCond into a plain Branch when
// its condition is a closed expression (references no variable names) —
// decidable without any runtime Vartable. The only BranchCond the
// builder emits, a repeat group's maximum-count guard, reads its counter
// variable, so it is never folded; conditions that reference any
// variable are left for the Matcher to evaluate.
func foldStaticBranchConds(vertices []nfa.Vertex) {
	for i := range vertices {
		for j, e := range vertices[i].Edges {
			bc, ok := e.(*nfa.BranchCond)
			if !ok {
				continue
			}
			v, err := irp.Eval(bc.Expr, irp.Vartable{})
			if err != nil {
				continue // not statically decidable; leave for runtime
			}
			if v != 0 {
				vertices[i].Edges[j] = &nfa.Branch{Dest: bc.Yes}
			} else {
				vertices[i].Edges[j] = &nfa.Branch{Dest: bc.No}
			}
		}
	}
}
