// Package nfa builds a nondeterministic automaton over timed pulse/gap
// edges from a parsed IRP protocol. Vertices are referenced by dense
// integer index into an append-only slice rather than by pointer, so an
// NFA can be copied, shared, and lowered to a DFA (package dfa) without
// ever invalidating a successor reference.
package nfa

import "github.com/irrecv/irrecv/irp"

// VertexIndex is a stable reference into an NFA's Vertices slice.
type VertexIndex int

// Vertex carries an ordered list of Actions, applied in order when a
// thread arrives at the vertex, and an ordered list of outbound Edges
// describing how a thread may leave it.
type Vertex struct {
	Actions []Action
	Edges   []Edge
}

// Action mutates a thread's Vartable or terminates it; Actions never
// themselves move a thread between vertices (see Edge).
type Action interface {
	isAction()
}

// Set binds Var to the value of Expr, evaluated against the thread's
// current Vartable, with the given bit width.
type Set struct {
	Var   string
	Expr  irp.Expr
	Width int
}

func (*Set) isAction() {}

// AssertEq fails the thread (pruning it with no Done) unless Lhs and Rhs
// evaluate to the same value. The builder only ever emits an AssertEq
// once every variable it reads has already been Set on an earlier vertex
// in the same path — see DESIGN.md.
type AssertEq struct {
	Lhs, Rhs irp.Expr
}

func (*AssertEq) isAction() {}

// Done marks a terminal action: a full protocol frame has matched. Event
// names the protocol and ResultVars names, in declaration order, which
// bound variables to surface in the produced binding map.
type Done struct {
	Event      string
	ResultVars []string
}

func (*Done) isAction() {}

// Edge is an outbound transition from a Vertex.
type Edge interface {
	isEdge()
}

// EdgeMarker can be embedded by Edge implementations declared in other
// packages (package dfa's band-carrying edges).
type EdgeMarker struct{}

func (EdgeMarker) isEdge() {}

// Flash consumes a pulse of nominal duration Length microseconds.
// Complete means the pulse must match length (subject to tolerance)
// exactly; otherwise any flash at least as long as the band's low bound
// opens the edge (used at the end of a bitspec entry when followed
// immediately by another flash, where only a minimum separation matters).
type Flash struct {
	Length   float64
	Complete bool
	Dest     VertexIndex
}

func (*Flash) isEdge() {}

// Gap is the silence-token counterpart of Flash.
type Gap struct {
	Length   float64
	Complete bool
	Dest     VertexIndex
}

func (*Gap) isEdge() {}

// Branch is an unconditional, action-free transition, eliminated by the
// DFA lowerer by folding its destination's actions into the predecessor.
type Branch struct {
	Dest VertexIndex
}

func (*Branch) isEdge() {}

// BranchCond evaluates Expr against the thread's Vartable and follows Yes
// or No accordingly. Yes and No must be distinct vertices.
type BranchCond struct {
	Expr     irp.Expr
	Yes, No  VertexIndex
}

func (*BranchCond) isEdge() {}

// MayBranchCond is a speculative edge: the matcher forks a successor
// thread at Dest (applying Bind, the bit this edge's alphabet symbol
// decodes, to Var) whenever Expr holds, while also leaving the
// originating thread live at its current vertex so a longer pulse
// sequence can still be recognized as a different symbol. This is how
// the NFA represents a bitspec where one symbol's modulation is a strict
// prefix of another's.
type MayBranchCond struct {
	Expr  irp.Expr
	Dest  VertexIndex
	Var   string
	Bind  int64
	Width int
}

func (*MayBranchCond) isEdge() {}

// NFA is an immutable, shareable automaton: a dense vertex list plus the
// protocol metadata the Matcher and DFA lowerer need (parameter names for
// seeding a Vartable, and the result binding names Done actions surface).
type NFA struct {
	Vertices []Vertex
	Start    VertexIndex
	Options  irp.Options
	Protocol *irp.Protocol
}

// MaxTimingUs returns the longest literal duration (in microseconds) any
// Flash, Gap, or Extent edge in the NFA can produce, used by
// irp.Options.EffectiveMaxGap to size a default max_gap when the caller
// supplies none.
func (n *NFA) MaxTimingUs() float64 {
	var max float64
	for _, v := range n.Vertices {
		for _, e := range v.Edges {
			var length float64
			switch e := e.(type) {
			case *Flash:
				length = e.Length
			case *Gap:
				length = e.Length
			}
			if length > max {
				max = length
			}
		}
	}
	return max
}
