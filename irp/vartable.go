package irp

// Binding is one entry of a Vartable: a variable's current value together
// with the bit-width it was declared or last assigned with. Width is kept
// around so results can be masked consistently no matter which bitfield
// expression produced the value.
type Binding struct {
	Name  string
	Value int64
	Width int
}

// Vartable is a flat association list from variable name to (value,
// width), scoped to one live match thread. It is intentionally not a map:
// Vartables are small (typically <= 16 entries, per the data model notes)
// and a flat slice gives cheap structural equality for thread
// deduplication and a stable iteration order for Done() result sets and
// graphviz dumps.
type Vartable struct {
	bindings []Binding
}

// NewVartable builds a Vartable from a set of seed bindings, such as the
// parameter values supplied at Matcher construction.
func NewVartable(seed map[string]int64) Vartable {
	vt := Vartable{}
	for name, value := range seed {
		vt.bindings = append(vt.bindings, Binding{Name: name, Value: value, Width: 64})
	}
	return vt
}

// Get looks up a variable's value. ok is false if the variable is unbound.
func (vt Vartable) Get(name string) (int64, bool) {
	for _, b := range vt.bindings {
		if b.Name == name {
			return b.Value, true
		}
	}
	return 0, false
}

// GetWidth looks up a variable's declared bit-width, defaulting to 64 if
// the variable carries no narrower width.
func (vt Vartable) GetWidth(name string) int {
	for _, b := range vt.bindings {
		if b.Name == name {
			if b.Width == 0 {
				return 64
			}
			return b.Width
		}
	}
	return 64
}

// Set returns a new Vartable with name bound to value/width. Vartables are
// shallow-copied on branch (per the data model): Set never mutates the
// receiver's backing slice, so two threads that forked from the same
// Vartable never observe each other's assignments.
func (vt Vartable) Set(name string, value int64, width int) Vartable {
	out := make([]Binding, len(vt.bindings))
	copy(out, vt.bindings)
	for i, b := range out {
		if b.Name == name {
			out[i] = Binding{Name: name, Value: value, Width: width}
			return Vartable{bindings: out}
		}
	}
	out = append(out, Binding{Name: name, Value: value, Width: width})
	return Vartable{bindings: out}
}

// Clone returns an independent copy of vt; mutating the clone's bindings
// (via Set, which itself never mutates in place) never affects vt.
func (vt Vartable) Clone() Vartable {
	out := make([]Binding, len(vt.bindings))
	copy(out, vt.bindings)
	return Vartable{bindings: out}
}

// Equal reports whether two Vartables hold the same bindings in the same
// order. Because every live thread's Vartable is derived from the same
// seed through the same deterministic sequence of Set calls, ordered
// comparison is sufficient for the Matcher's per-token deduplication and
// is far cheaper than a sorted or map-based comparison.
func (vt Vartable) Equal(other Vartable) bool {
	if len(vt.bindings) != len(other.bindings) {
		return false
	}
	for i, b := range vt.bindings {
		if b != other.bindings[i] {
			return false
		}
	}
	return true
}

// Len returns the number of bound variables.
func (vt Vartable) Len() int { return len(vt.bindings) }

// Each calls fn for every binding in insertion order.
func (vt Vartable) Each(fn func(b Binding)) {
	for _, b := range vt.bindings {
		fn(b)
	}
}

// Results masks the named variables to their declared widths and returns
// them as a plain map, suitable for a Done event's result bindings.
func (vt Vartable) Results(names []string) map[string]int64 {
	out := make(map[string]int64, len(names))
	for _, name := range names {
		v, ok := vt.Get(name)
		if !ok {
			continue
		}
		w := vt.GetWidth(name)
		out[name] = maskWidth(v, w)
	}
	return out
}

func maskWidth(v int64, width int) int64 {
	if width <= 0 || width >= 64 {
		return v
	}
	mask := int64(1)<<uint(width) - 1
	return v & mask
}
