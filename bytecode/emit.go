package bytecode

import (
	"fmt"

	"github.com/irrecv/irrecv/dfa"
	"github.com/irrecv/irrecv/irp"
	"github.com/irrecv/irrecv/nfa"
)

// Program is the emitted instruction stream plus the constant pools and
// symbol table every opcode's operands reference.
type Program struct {
	Instrs     []Instr
	Exprs      []ExprInstr
	Vars       []string // variable-file slot names, index-addressed by VarIdx
	Events     []string // event names, index-addressed by Instr.A on OpEmit
	ResultVars []int32  // flat pool of var slots; OpEmit references [B, B+C)
	Symbols    map[string]int32 // event name -> instruction index of its OpEmit
	StartPC    int32
	ResetPC    int32
	Name       string

	varIndex map[string]int32
}

func (p *Program) varSlot(name string) int32 {
	if p.varIndex == nil {
		p.varIndex = make(map[string]int32)
	}
	if idx, ok := p.varIndex[name]; ok {
		return idx
	}
	idx := int32(len(p.Vars))
	p.Vars = append(p.Vars, name)
	p.varIndex[name] = idx
	return idx
}

func (p *Program) eventSlot(name string) int32 {
	for i, n := range p.Events {
		if n == name {
			return int32(i)
		}
	}
	idx := int32(len(p.Events))
	p.Events = append(p.Events, name)
	return idx
}

// Emit transliterates a compiled DFA into a Program: every vertex becomes
// a contiguous instruction block (its Actions in order, then its Edges in
// order — MayBranchCond edges moved last, see orderedEdges), every
// edge a jump referencing the block start of its destination vertex.
//
// A MayBranchCond cannot be represented faithfully on a single program
// counter: the Matcher keeps both the shorter and longer bitspec-entry
// hypotheses live at once, but a kernel program only ever has one
// position. Emit resolves this by trying every token-consuming edge at a
// vertex (i.e. every edge continuing a longer pending hypothesis) before
// falling through to a MayBranchCond's unconditional commit-and-jump (the
// shorter hypothesis) — greedy longest-match, the only behavior a
// single-PC machine can implement without backtracking. This is a real,
// named limitation relative to the Matcher and is recorded in DESIGN.md;
// protocols whose bitspec depends on genuine runtime backtracking to
// disambiguate should be decoded by the Matcher, not attached as kernel
// bytecode.
func Emit(d *dfa.DFA) (*Program, error) {
	p := &Program{Name: d.Options.Name, Symbols: map[string]int32{}}
	ec := &exprCompiler{pool: p}

	// Every block gets one trailing instruction beyond its actions and
	// edges: an unconditional OpReset. Without it, a vertex whose last
	// edge is a Flash/Gap try that fails to match the presented token
	// would fall through into the next vertex's own block rather than
	// correctly dying — the single-PC equivalent of a thread that isn't
	// added to match.Matcher's next thread set.
	blockLen := make([]int32, len(d.Vertices))
	for i, v := range d.Vertices {
		n := int32(len(v.Actions)) + 1
		for _, e := range orderedEdges(v.Edges) {
			n += edgeInstrCount(e)
		}
		blockLen[i] = n
	}
	blockStart := make([]int32, len(d.Vertices))
	var cum int32
	for i, n := range blockLen {
		blockStart[i] = cum
		cum += n
	}
	p.StartPC = blockStart[d.Start]
	p.ResetPC = blockStart[d.Start]

	for i, v := range d.Vertices {
		for _, a := range v.Actions {
			instr, err := p.emitAction(ec, a)
			if err != nil {
				return nil, fmt.Errorf("bytecode: vertex %d: %w", i, err)
			}
			p.Instrs = append(p.Instrs, instr)
		}
		for _, e := range orderedEdges(v.Edges) {
			instrs, err := p.emitEdge(ec, e, blockStart)
			if err != nil {
				return nil, fmt.Errorf("bytecode: vertex %d: %w", i, err)
			}
			p.Instrs = append(p.Instrs, instrs...)
		}
		// Every edge above either jumped or fell through; if none of this
		// vertex's edges consumed the presented token, the block falls
		// through to here and resynchronizes at the start vertex rather
		// than bleeding into the next vertex's block.
		p.Instrs = append(p.Instrs, Instr{Op: OpReset, Dest: p.ResetPC})
	}
	return p, nil
}

// orderedEdges returns v's edges with every other edge (Flash, Gap,
// Branch, BranchCond) ahead of every MayBranchCond, otherwise keeping
// their order — see Emit's doc comment.
func orderedEdges(edges []nfa.Edge) []nfa.Edge {
	out := make([]nfa.Edge, 0, len(edges))
	var deferred []nfa.Edge
	for _, e := range edges {
		if _, ok := e.(*nfa.MayBranchCond); ok {
			deferred = append(deferred, e)
			continue
		}
		out = append(out, e)
	}
	return append(out, deferred...)
}

func edgeInstrCount(e nfa.Edge) int32 {
	switch e := e.(type) {
	case *nfa.BranchCond:
		return 2
	case *nfa.MayBranchCond:
		if e.Var != "" {
			return 2
		}
		return 1
	default:
		return 1
	}
}

// shiftInShape matches the exact expression shape
// nfa/bitfield.go's decodeSymbol.bind closure produces:
// tmp | (bit << shift), all constant except the tmp reference.
func shiftInShape(s *nfa.Set) (bit, shift int64, ok bool) {
	or, ok := s.Expr.(*irp.BinaryExpr)
	if !ok || or.Op != "|" {
		return 0, 0, false
	}
	name, ok := or.X.(*irp.NameExpr)
	if !ok || name.Name != s.Var {
		return 0, 0, false
	}
	shl, ok := or.Y.(*irp.BinaryExpr)
	if !ok || shl.Op != "<<" {
		return 0, 0, false
	}
	bitConst, ok := shl.X.(*irp.ConstExpr)
	if !ok {
		return 0, 0, false
	}
	shiftConst, ok := shl.Y.(*irp.ConstExpr)
	if !ok {
		return 0, 0, false
	}
	return bitConst.Value, shiftConst.Value, true
}

func (p *Program) emitAction(ec *exprCompiler, a nfa.Action) (Instr, error) {
	switch a := a.(type) {
	case *nfa.Set:
		if bit, shift, ok := shiftInShape(a); ok {
			return Instr{Op: OpShiftIn, VarIdx: p.varSlot(a.Var), A: int32(bit), B: int32(shift), Width: int32(a.Width)}, nil
		}
		off, ln, err := ec.compileExpr(a.Expr)
		if err != nil {
			return Instr{}, err
		}
		return Instr{Op: OpSetExpr, VarIdx: p.varSlot(a.Var), A: off, B: ln, Width: int32(a.Width)}, nil
	case *nfa.AssertEq:
		loff, lln, err := ec.compileExpr(a.Lhs)
		if err != nil {
			return Instr{}, err
		}
		roff, rln, err := ec.compileExpr(a.Rhs)
		if err != nil {
			return Instr{}, err
		}
		return Instr{Op: OpAssertEq, A: loff, B: lln, C: roff, D: rln, Dest: p.ResetPC}, nil
	case *nfa.Done:
		eventIdx := p.eventSlot(a.Event)
		off := int32(len(p.ResultVars))
		for _, name := range a.ResultVars {
			p.ResultVars = append(p.ResultVars, p.varSlot(name))
		}
		instr := Instr{Op: OpEmit, A: eventIdx, B: off, C: int32(len(a.ResultVars))}
		p.Symbols[a.Event] = int32(len(p.Instrs))
		return instr, nil
	default:
		return Instr{}, fmt.Errorf("unsupported action %T", a)
	}
}

func (p *Program) emitEdge(ec *exprCompiler, e nfa.Edge, blockStart []int32) ([]Instr, error) {
	switch e := e.(type) {
	case *dfa.FlashEdge:
		return []Instr{{Op: OpTryFlash, A: int32(e.Band.Lo), B: int32(e.Band.Hi), Dest: blockStart[e.Dest]}}, nil
	case *dfa.GapEdge:
		return []Instr{{Op: OpTryGap, A: int32(e.Band.Lo), B: int32(e.Band.Hi), Dest: blockStart[e.Dest]}}, nil
	case *nfa.Branch:
		return []Instr{{Op: OpJump, Dest: blockStart[e.Dest]}}, nil
	case *nfa.BranchCond:
		off, ln, err := ec.compileExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		return []Instr{
			{Op: OpJumpIfCond, A: off, B: ln, Dest: blockStart[e.Yes]},
			{Op: OpJump, Dest: blockStart[e.No]},
		}, nil
	case *nfa.MayBranchCond:
		var out []Instr
		if e.Var != "" {
			off, ln, err := ec.compileExpr(&irp.ConstExpr{Value: e.Bind})
			if err != nil {
				return nil, err
			}
			out = append(out, Instr{Op: OpSetExpr, VarIdx: p.varSlot(e.Var), A: off, B: ln, Width: int32(e.Width)})
		}
		out = append(out, Instr{Op: OpJump, Dest: blockStart[e.Dest]})
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported edge %T", e)
	}
}
