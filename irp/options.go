package irp

// Options controls how a Protocol is lowered into an NFA/DFA and how its
// generated bytecode interprets incoming timing: the admissibility
// tolerances, the global per-frame gap timeout, and the repeat-detection
// mask. Zero-value Options is not usable directly — call DefaultOptions
// and override only the fields a caller cares about.
type Options struct {
	// Name is a human-readable label carried through to debug dumps
	// (graphviz, assembly listings); it has no effect on matching.
	Name string

	// Eps is the relative timing tolerance, in percent, applied to every
	// flash/gap admissibility band: a band of nominal length L accepts
	// any observed duration in [L*(1-Eps/100)-AEps, L*(1+Eps/100)+AEps].
	Eps float64

	// AEps is the absolute timing tolerance in microseconds, added on
	// both ends of every admissibility band regardless of Eps.
	AEps float64

	// MaxGap is the maximum gap length, in microseconds, the Matcher
	// will wait for before treating the following input as the start of
	// a new transmission (an implicit Reset). Zero means "derive from
	// the protocol": 90% of the largest explicit gap or extent the
	// protocol's stream can produce, matching how the reference decoder
	// sizes a receiver's own idle timeout against a protocol it only
	// half-trusts to report its own max_gap accurately.
	MaxGap float64

	// RepeatMask selects which of a protocol's declared parameters are
	// expected to stay constant across repeat transmissions of the same
	// logical keypress (commonly just a toggle/obsolete-repeat flag).
	// SPEC_FULL keeps this purely as opaque metadata threaded through to
	// callers (e.g. a kernel scancode filter) rather than having the
	// Matcher itself enforce it — see the corresponding Open Question
	// entry in DESIGN.md.
	RepeatMask map[string]bool

	// Debug enables verbose graphviz/assembly annotations in dumps
	// produced by the dot and bytecode packages. It never changes
	// matching behavior.
	Debug bool
}

// DefaultOptions returns the tolerances the reference decoder uses when a
// caller supplies none: 3% relative, 100us absolute.
func DefaultOptions(name string) Options {
	return Options{
		Name: name,
		Eps:  3,
		AEps: 100,
	}
}

// Band returns the admissible [lo, hi] microsecond range for a nominal
// duration of length microseconds under these tolerances.
func (o Options) Band(length float64) (lo, hi float64) {
	eps := o.Eps
	if eps == 0 {
		eps = 3
	}
	aeps := o.AEps
	if aeps == 0 {
		aeps = 100
	}
	lo = length*(1-eps/100) - aeps
	hi = length*(1+eps/100) + aeps
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}

// EffectiveMaxGap resolves MaxGap against a protocol's own longest
// extent/gap, in microseconds, applying the 90%-of-observed-maximum
// default when MaxGap is unset.
func (o Options) EffectiveMaxGap(protocolMaxUs float64) float64 {
	if o.MaxGap > 0 {
		return o.MaxGap
	}
	return protocolMaxUs * 0.9
}
