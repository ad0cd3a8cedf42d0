package nfa

import (
	"fmt"

	"github.com/irrecv/irrecv/irp"
)

// bitsForAlphabet returns log2(n) for a power-of-two alphabet size, the
// number of bits each bitspec symbol carries.
func bitsForAlphabet(n int) (int, error) {
	if n < 2 {
		return 0, fmt.Errorf("nfa: bitspec needs at least 2 entries, got %d", n)
	}
	bits := 0
	for (1 << uint(bits)) < n {
		bits++
	}
	if (1 << uint(bits)) != n {
		return 0, fmt.Errorf("nfa: bitspec alphabet size %d is not a power of two", n)
	}
	return bits, nil
}

// buildBitField expands a "v:w" (or "v:w:o", "~v:w") stream item into a
// micro-loop over the bitspec: one decode step per symbolBits-wide chunk
// of the field, accumulating into a temporary, followed by a single
// terminal Set (binding a not-yet-seen parameter) or AssertEq (checking a
// value already bound or computed elsewhere) against the field's target
// expression.
func (b *builder) buildBitField(bf *irp.BitField, cur VertexIndex) (VertexIndex, error) {
	width, err := staticInt(bf.Width)
	if err != nil {
		return 0, fmt.Errorf("bitfield width: %w", err)
	}
	if width <= 0 {
		return 0, fmt.Errorf("nfa: bitfield width must be positive, got %d", width)
	}
	symbolBits, err := bitsForAlphabet(len(b.proto.BitSpec.Entries))
	if err != nil {
		return 0, err
	}
	numSymbols := (width + symbolBits - 1) / symbolBits

	tmp := b.freshTemp()
	b.addAction(cur, &Set{Var: tmp, Expr: &irp.ConstExpr{Value: 0}, Width: width})

	for s := 0; s < numSymbols; s++ {
		next, err := b.decodeSymbol(cur, tmp, s, symbolBits, width)
		if err != nil {
			return 0, err
		}
		cur = next
	}

	var finalExpr irp.Expr = &irp.NameExpr{Name: tmp}
	if bf.Complement {
		finalExpr = &irp.BitFieldExpr{X: finalExpr, Width: &irp.ConstExpr{Value: int64(width)}, Complement: true}
	}

	if name, ok := bf.Var.(*irp.NameExpr); ok && b.isDeclaredParam(name.Name) && !b.isBound(name.Name) {
		next := b.newVertex()
		b.addAction(cur, &Set{Var: name.Name, Expr: finalExpr, Width: width})
		b.addEdge(cur, &Branch{Dest: next})
		b.markBound(name.Name)
		return next, nil
	}

	next := b.newVertex()
	b.addAction(cur, &AssertEq{Lhs: finalExpr, Rhs: bf.Var})
	b.addEdge(cur, &Branch{Dest: next})
	return next, nil
}

func (b *builder) isDeclaredParam(name string) bool {
	for _, p := range b.proto.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// staticInt evaluates e against an empty Vartable, for the (common) case
// of a literal bitfield width or offset.
func staticInt(e irp.Expr) (int, error) {
	v, err := irp.Eval(e, irp.Vartable{})
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// shiftFor returns the bit offset within the accumulated value that
// symbol index s (0-based, in transmission order) contributes, honoring
// the protocol's declared bit order.
func shiftFor(s, symbolBits, width int, msbFirst bool) int {
	if msbFirst {
		shift := width - (s+1)*symbolBits
		if shift < 0 {
			shift = 0
		}
		return shift
	}
	return s * symbolBits
}

// decodeSymbol builds the choice among the bitspec's alphabet for one
// symbolBits-wide chunk, accumulating the matched symbol index into tmp,
// and returns a join vertex every alternative funnels into.
func (b *builder) decodeSymbol(cur VertexIndex, tmp string, s, symbolBits, width int) (VertexIndex, error) {
	entries := b.proto.BitSpec.Entries
	actives := make([]entrySuffix, len(entries))
	for i, e := range entries {
		actives[i] = entrySuffix{idx: i, items: e}
	}
	join := b.newVertex()
	shift := shiftFor(s, symbolBits, width, b.proto.General.MSBFirst)
	bind := func(symbolValue int, end VertexIndex) {
		b.addAction(end, &Set{
			Var: tmp,
			Expr: &irp.BinaryExpr{
				Op: "|",
				X:  &irp.NameExpr{Name: tmp},
				Y: &irp.BinaryExpr{
					Op: "<<",
					X:  &irp.ConstExpr{Value: int64(symbolValue)},
					Y:  &irp.ConstExpr{Value: int64(shift)},
				},
			},
			Width: width,
		})
		b.addEdge(end, &Branch{Dest: join})
	}
	if err := b.buildChoice(cur, actives, bind); err != nil {
		return 0, err
	}
	return join, nil
}

// entrySuffix is one bitspec alphabet symbol's remaining, not-yet-matched
// modulation items during the choice-building recursion below.
type entrySuffix struct {
	idx   int
	items []irp.StreamItem
	pos   int
}

// buildChoice builds the NFA fragment distinguishing among a set of
// candidate bitspec symbols sharing the vertex cur, calling bind once per
// symbol with the vertex reached when that symbol's full sequence has
// matched. Symbols whose sequence is a strict prefix of another still
// live symbol's sequence are bound via a MayBranchCond: the matcher may
// commit to the shorter symbol there while the longer symbol's remaining
// edges stay live from the very same vertex, exactly the "keep both
// hypotheses live" case MayBranchCond's doc describes.
func (b *builder) buildChoice(cur VertexIndex, actives []entrySuffix, bind func(symbolValue int, end VertexIndex)) error {
	var completed, pending []entrySuffix
	for _, a := range actives {
		if len(a.items) == 0 {
			completed = append(completed, a)
		} else {
			pending = append(pending, a)
		}
	}
	for _, c := range completed {
		if len(pending) > 0 {
			end := b.newVertex()
			b.addEdge(cur, &MayBranchCond{
				Expr:  &irp.ConstExpr{Value: 1},
				Dest:  end,
				Var:   fmt.Sprintf("__sym%d", c.idx),
				Bind:  int64(c.idx),
				Width: 1,
			})
			bind(c.idx, end)
		} else {
			bind(c.idx, cur)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	type group struct {
		item    *irp.Duration
		pos     int
		members []entrySuffix
	}
	var order []string
	groups := make(map[string]*group)
	for _, p := range pending {
		item, ok := p.items[0].(*irp.Duration)
		if !ok {
			return fmt.Errorf("nfa: unsupported bitspec entry item %T", p.items[0])
		}
		key := fmt.Sprintf("%v:%v:%v", item.Sign, item.Value, item.Microseconds)
		g, ok := groups[key]
		if !ok {
			g = &group{item: item, pos: p.pos}
			groups[key] = g
			order = append(order, key)
		}
		g.members = append(g.members, entrySuffix{idx: p.idx, items: p.items[1:], pos: p.pos + 1})
	}
	for _, key := range order {
		g := groups[key]
		next := b.newVertex()
		edge, err := b.makeEdge(g.item, g.pos, next)
		if err != nil {
			return err
		}
		b.addEdge(cur, edge)
		if err := b.buildChoice(next, g.members, bind); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) makeEdge(item *irp.Duration, pos int, dest VertexIndex) (Edge, error) {
	if item == nil {
		return nil, fmt.Errorf("nfa: internal error building bitspec choice")
	}
	length := b.toMicroseconds(item.Value, item.Microseconds)
	isFlash := item.Sign > 0 || (item.Sign == 0 && pos%2 == 0)
	if isFlash {
		return &Flash{Length: length, Complete: true, Dest: dest}, nil
	}
	return &Gap{Length: length, Complete: true, Dest: dest}, nil
}
