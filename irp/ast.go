package irp

// GeneralSpec is the "{...}" header of an IRP expression: carrier
// frequency, the base time unit durations in the modulation stream are
// expressed in, duty cycle, and bit order.
type GeneralSpec struct {
	FrequencyKHz float64 // 0 means "no carrier" (unmodulated protocols)
	UnitUs       float64 // default 1 microsecond if unspecified
	DutyCyclePct float64 // 0 means unspecified
	MSBFirst     bool    // default is LSB first
}

// ParamSpec declares one named, bit-width-bounded protocol parameter,
// e.g. "D:0..255" or "F:0..255=0".
type ParamSpec struct {
	Name    string
	Min     int64
	Max     int64
	Default *int64
}

// BitWidth returns the number of bits needed to address [Min, Max].
func (p ParamSpec) BitWidth() int {
	span := p.Max - p.Min
	width := 0
	for span > 0 {
		span >>= 1
		width++
	}
	if width == 0 {
		width = 1
	}
	return width
}

// BitSpec maps a small symbol alphabet (index 0, 1, ...) to a micro
// sequence of stream items describing how that symbol is modulated, e.g.
// <1,-1|1,-3> maps symbol 0 to a flash-then-short-gap and symbol 1 to a
// flash-then-long-gap.
type BitSpec struct {
	Entries [][]StreamItem
}

// Definition is a top-level named expression from an IRP "Definitions"
// clause, e.g. "T@:1" style toggle state carried across frames. SPEC_FULL
// supports only stateless definitions (no persistent '@' memory across
// transmissions); a Definition's Expr is evaluated fresh per match using
// only the bindings accumulated so far in that thread.
type Definition struct {
	Name string
	Expr Expr
}

// Protocol is the immutable, parsed form of one IRP expression.
type Protocol struct {
	General     GeneralSpec
	Params      []ParamSpec
	BitSpec     BitSpec
	Stream      []StreamItem
	Definitions []Definition
}

// ParamNames returns the declared parameter names in declaration order.
func (p *Protocol) ParamNames() []string {
	names := make([]string, len(p.Params))
	for i, ps := range p.Params {
		names[i] = ps.Name
	}
	return names
}

// StreamItem is one element of a modulation stream or bitspec entry.
type StreamItem interface {
	isStreamItem()
}

// Duration is a literal flash or gap length. Sign is +1 for an explicitly
// signed flash ("564" with no leading '-' still defaults to Sign 0 —
// alternating — unless the surrounding grammar forces a sign; bitspec
// entries always carry an explicit sign), -1 for an explicit gap, and 0
// when the polarity must be inferred by alternation from the preceding
// emitted edge (plain unsigned numbers at the top level of a modulation
// stream).
type Duration struct {
	Value float64 // in units of GeneralSpec.UnitUs, unless Microseconds is set
	Sign  int     // +1 flash, -1 gap, 0 alternating
	// Microseconds overrides Value's unit: true when a literal carried an
	// explicit "u" or "m" suffix rather than being a bare multiple of the
	// general spec's unit.
	Microseconds bool
}

func (*Duration) isStreamItem() {}

// Extent marks a minimum total frame length ("^108m" in NEC1): the gap
// following it is stretched, if necessary, so the whole transmission
// (from the start of the frame) reaches at least this many microseconds.
type Extent struct {
	Value        float64
	Microseconds bool
}

func (*Extent) isStreamItem() {}

// BitField extracts Width bits of Var (an expression, to allow "F:8"
// against a named parameter as well as arithmetic sub-expressions),
// starting at Offset, optionally complemented, emitted one bitspec symbol
// at a time, most- or least-significant bit first per GeneralSpec.
type BitField struct {
	Var        Expr
	Width      Expr
	Offset     Expr // nil means 0
	Complement bool
}

func (*BitField) isStreamItem() {}

// Assignment sets a variable to the value of an expression ("T = 1-T").
type Assignment struct {
	Var  string
	Expr Expr
}

func (*Assignment) isStreamItem() {}

// RepeatGroup repeats Items Min to Max times (Max == -1 means unbounded).
type RepeatGroup struct {
	Items    []StreamItem
	Min, Max int
}

func (*RepeatGroup) isStreamItem() {}

// Alternative is a top-level choice between two or more stream sequences,
// e.g. a lead-in frame vs. a repeat frame. Each branch is tried as an
// independent path through the NFA — this is ordinary nondeterministic
// branching, not a runtime-evaluated condition.
type Alternative struct {
	Branches [][]StreamItem
}

func (*Alternative) isStreamItem() {}

// AssertEq is a constraint ("1," "1:1" or parity/toggle checks like
// "F::4=0") that the builder turns into an NFA AssertEq action once both
// sides are bound — SPEC_FULL represents it directly in the AST as a
// bitfield assignment whose left side is a constant or previously bound
// bitfield extraction, so the builder doesn't need additional AST-level
// syntax for it; assertions are detected at lowering time using Duration
// and BitField analysis (see nfa.Build).
