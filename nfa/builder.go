package nfa

import (
	"fmt"

	"github.com/irrecv/irrecv/irp"
)

// Build lowers a parsed IRP protocol into an NFA by recursive expansion of
// its modulation stream, per the bit-field micro-loop and repeat-group
// construction described on buildBitField and buildRepeatGroup.
func Build(proto *irp.Protocol, opts irp.Options) (*NFA, error) {
	b := &builder{proto: proto, opts: opts}
	b.newVertex() // index 0: the start vertex, per the "exactly one start vertex" invariant
	end, err := b.buildItems(proto.Stream, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("nfa: building %q: %w", opts.Name, err)
	}
	resultVars := proto.ParamNames()
	b.addAction(end, &Done{Event: opts.Name, ResultVars: resultVars})
	return &NFA{
		Vertices: b.vertices,
		Start:    0,
		Options:  opts,
		Protocol: proto,
	}, nil
}

type builder struct {
	vertices []Vertex
	proto    *irp.Protocol
	opts     irp.Options
	tmpSeq   int
	bound    map[string]bool // parameter names already Set along the current path
}

func (b *builder) newVertex() VertexIndex {
	b.vertices = append(b.vertices, Vertex{})
	return VertexIndex(len(b.vertices) - 1)
}

func (b *builder) addAction(v VertexIndex, a Action) {
	b.vertices[v].Actions = append(b.vertices[v].Actions, a)
}

func (b *builder) addEdge(v VertexIndex, e Edge) {
	b.vertices[v].Edges = append(b.vertices[v].Edges, e)
}

func (b *builder) freshTemp() string {
	b.tmpSeq++
	return fmt.Sprintf("__bf%d", b.tmpSeq)
}

func (b *builder) markBound(name string) {
	if b.bound == nil {
		b.bound = make(map[string]bool)
	}
	b.bound[name] = true
}

func (b *builder) isBound(name string) bool {
	return b.bound != nil && b.bound[name]
}

// buildItems expands items in sequence starting at cur, alternating flash
// and gap polarity for bare (sign-less) Durations starting with a flash,
// with elapsed the time already transmitted before cur (used to size an
// Extent's remaining gap), and returns the vertex reached after the last
// item.
func (b *builder) buildItems(items []irp.StreamItem, cur VertexIndex, elapsed float64) (VertexIndex, error) {
	polarity := 0 // 0 = flash next, 1 = gap next
	var err error
	for _, item := range items {
		cur, elapsed, polarity, err = b.buildItem(item, cur, elapsed, polarity)
		if err != nil {
			return 0, err
		}
	}
	return cur, nil
}

func (b *builder) buildItem(item irp.StreamItem, cur VertexIndex, elapsed float64, polarity int) (VertexIndex, float64, int, error) {
	switch it := item.(type) {
	case *irp.Duration:
		return b.buildDuration(it, cur, elapsed, polarity)
	case *irp.Extent:
		return b.buildExtent(it, cur, elapsed, polarity)
	case *irp.BitField:
		next, err := b.buildBitField(it, cur)
		return next, elapsed + b.maxBitFieldDuration(it), polarity, err
	case *irp.Assignment:
		next, err := b.buildAssignment(it, cur)
		return next, elapsed, polarity, err
	case *irp.RepeatGroup:
		next, err := b.buildRepeatGroup(it, cur)
		return next, elapsed, polarity, err
	case *irp.Alternative:
		next, err := b.buildAlternative(it, cur)
		return next, elapsed, polarity, err
	default:
		return 0, 0, 0, fmt.Errorf("nfa: unsupported stream item %T", item)
	}
}

func (b *builder) buildDuration(d *irp.Duration, cur VertexIndex, elapsed float64, polarity int) (VertexIndex, float64, int, error) {
	length := b.toMicroseconds(d.Value, d.Microseconds)
	isFlash := d.Sign > 0 || (d.Sign == 0 && polarity == 0)
	next := b.newVertex()
	if isFlash {
		b.addEdge(cur, &Flash{Length: length, Complete: true, Dest: next})
	} else {
		b.addEdge(cur, &Gap{Length: length, Complete: true, Dest: next})
	}
	// The next bare (sign-less) duration always alternates polarity from
	// whatever was just emitted, whether this item's own sign was bare or
	// explicit: the physical signal alternates flash/gap unconditionally.
	nextPolarity := 1
	if !isFlash {
		nextPolarity = 0
	}
	return next, elapsed + length, nextPolarity, nil
}

func (b *builder) buildExtent(e *irp.Extent, cur VertexIndex, elapsed float64, polarity int) (VertexIndex, float64, int, error) {
	target := b.toMicroseconds(e.Value, e.Microseconds)
	remaining := target - elapsed
	if remaining < 0 {
		remaining = 0
	}
	next := b.newVertex()
	b.addEdge(cur, &Gap{Length: remaining, Complete: false, Dest: next})
	return next, target, 1, nil
}

func (b *builder) toMicroseconds(value float64, explicit bool) float64 {
	if explicit {
		return value
	}
	return value * unitOrDefault(b.proto)
}

// maxBitFieldDuration estimates the longest possible transmission time of
// a bitfield, for tracking elapsed time toward an Extent: it assumes the
// worst case where every symbol is whichever bitspec entry takes longest,
// which can only overestimate elapsed time and so can only ever shrink an
// Extent's computed remaining gap, never grow it past what a real
// transmission needs.
func (b *builder) maxBitFieldDuration(bf *irp.BitField) float64 {
	width, err := staticInt(bf.Width)
	if err != nil || width <= 0 {
		return 0
	}
	symbolBits, err := bitsForAlphabet(len(b.proto.BitSpec.Entries))
	if err != nil {
		return 0
	}
	var longest float64
	for _, entry := range b.proto.BitSpec.Entries {
		var total float64
		for _, item := range entry {
			d, ok := item.(*irp.Duration)
			if !ok {
				continue
			}
			total += b.toMicroseconds(d.Value, d.Microseconds)
		}
		if total > longest {
			longest = total
		}
	}
	numSymbols := (width + symbolBits - 1) / symbolBits
	return longest * float64(numSymbols)
}

// unitOrDefault returns the protocol's declared unit in microseconds,
// defaulting to 1 when the general spec left it unspecified.
func unitOrDefault(proto *irp.Protocol) float64 {
	if proto.General.UnitUs > 0 {
		return proto.General.UnitUs
	}
	return 1
}

func (b *builder) buildAssignment(a *irp.Assignment, cur VertexIndex) (VertexIndex, error) {
	next := b.newVertex()
	b.addAction(cur, &Set{Var: a.Var, Expr: a.Expr, Width: 64})
	b.addEdge(cur, &Branch{Dest: next})
	b.markBound(a.Var)
	return next, nil
}

func (b *builder) buildAlternative(alt *irp.Alternative, cur VertexIndex) (VertexIndex, error) {
	// Each branch is built fresh from cur; since every branch in practice
	// ends in its own Done (a full alternative frame), the merge vertex
	// returned here is never actually attached to by a caller for the
	// protocols this builder targets, but is still returned for a
	// uniform buildItem signature.
	var last VertexIndex
	savedBound := b.bound
	for _, branch := range alt.Branches {
		b.bound = cloneBoundSet(savedBound)
		end, err := b.buildItems(branch, cur, 0)
		if err != nil {
			return 0, err
		}
		resultVars := b.proto.ParamNames()
		b.addAction(end, &Done{Event: b.opts.Name, ResultVars: resultVars})
		last = end
	}
	b.bound = savedBound
	return last, nil
}

func cloneBoundSet(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// buildRepeatGroup expands (items)min,max. Min mandatory iterations are
// unrolled sequentially with no exit point in between. The vertex reached
// after Min iterations sets a counter to Min and branches to a loop head,
// from which a further iteration may start or a Branch leads to the exit
// vertex returned to the caller, so "stop repeating here" and "repeat
// again" are both live. Each optional iteration increments the counter;
// when Max is finite, a BranchCond returns to the loop head while the
// counter is below Max and goes to the exit otherwise.
func (b *builder) buildRepeatGroup(rg *irp.RepeatGroup, cur VertexIndex) (VertexIndex, error) {
	if rg.Min == 1 && rg.Max == 1 {
		return b.buildItems(rg.Items, cur, 0)
	}
	min := rg.Min
	if min < 0 {
		min = 0
	}
	if rg.Min == 0 && rg.Max == 1 {
		// optional single occurrence: an ordinary nondeterministic choice
		// between skipping (Branch straight through) and taking it once.
		skip := b.newVertex()
		b.addEdge(cur, &Branch{Dest: skip})
		taken, err := b.buildItems(rg.Items, cur, 0)
		if err != nil {
			return 0, err
		}
		b.addEdge(taken, &Branch{Dest: skip})
		return skip, nil
	}
	for i := 0; i < min; i++ {
		next, err := b.buildItems(rg.Items, cur, 0)
		if err != nil {
			return 0, err
		}
		cur = next
	}
	if rg.Max == min && rg.Max != -1 {
		return cur, nil
	}
	counterVar := fmt.Sprintf("__rep%d", b.tmpSeq)
	b.tmpSeq++
	b.addAction(cur, &Set{Var: counterVar, Expr: &irp.ConstExpr{Value: int64(min)}, Width: 32})
	loopHead := b.newVertex()
	b.addEdge(cur, &Branch{Dest: loopHead})
	iterEnd, err := b.buildItems(rg.Items, loopHead, 0)
	if err != nil {
		return 0, err
	}
	exit := b.newVertex()
	b.addEdge(loopHead, &Branch{Dest: exit})
	incremented := b.newVertex()
	b.addAction(incremented, &Set{
		Var:   counterVar,
		Expr:  &irp.BinaryExpr{Op: "+", X: &irp.NameExpr{Name: counterVar}, Y: &irp.ConstExpr{Value: 1}},
		Width: 32,
	})
	b.addEdge(iterEnd, &Branch{Dest: incremented})
	if rg.Max == -1 {
		b.addEdge(incremented, &Branch{Dest: loopHead})
	} else {
		b.addEdge(incremented, &BranchCond{
			Expr: &irp.BinaryExpr{Op: "<", X: &irp.NameExpr{Name: counterVar}, Y: &irp.ConstExpr{Value: int64(rg.Max)}},
			Yes:  loopHead,
			No:   exit,
		})
	}
	return exit, nil
}
