// Package match implements the streaming Mealy-machine interpreter over
// InfraredData tokens described by the DFA/NFA: a live set of threads,
// each a (vertex, Vartable) pair, advanced one token at a time.
package match

import (
	"github.com/irrecv/irrecv/dfa"
	"github.com/irrecv/irrecv/irp"
	"github.com/irrecv/irrecv/nfa"
)

// TokenKind distinguishes the three InfraredData variants.
type TokenKind int

const (
	KindFlash TokenKind = iota
	KindGap
	KindReset
)

// Token is one InfraredData value: a timed Flash or Gap, in
// microseconds, or a Reset produced by the receiver or a rawir parser
// between transmissions.
type Token struct {
	Kind  TokenKind
	Micro float64
}

// Result is one Done event: the protocol/event name and its result
// bindings, masked to each variable's declared width.
type Result struct {
	Event    string
	Bindings map[string]int64
}

type thread struct {
	vertex nfa.VertexIndex
	vt     irp.Vartable
}

// Matcher is a streaming decoder for one compiled protocol. It is not
// safe for concurrent use by multiple goroutines; callers that decode
// several receivers concurrently construct one Matcher per receiver
// (see internal/introspect and cmd/irrecvd for the daemon's wiring).
type Matcher struct {
	d          *dfa.DFA
	threads    []thread
	resolution float64 // shortest duration the receiver can reliably report; 0 means exact
}

// New seeds a Matcher for d. resolution is the receiver's reported
// minimum reliable duration in microseconds (0 if the receiver makes no
// such claim); durations shorter than resolution are treated as noise
// and dropped, per the Matcher's documented edge case.
func New(d *dfa.DFA, resolution float64) *Matcher {
	m := &Matcher{d: d, resolution: resolution}
	m.reset()
	return m
}

func (m *Matcher) reset() {
	m.threads = []thread{{vertex: m.d.Start, vt: irp.Vartable{}}}
}

// Input advances the Matcher by one token, returning every Done event
// produced by a thread on this token, in insertion order (the
// tie-breaking rule for simultaneous completions).
func (m *Matcher) Input(tok Token) []Result {
	if tok.Kind == KindReset {
		m.reset()
		return nil
	}
	if m.resolution > 0 && tok.Micro < m.resolution {
		return nil
	}

	var results []Result
	var next []thread
	seen := make(map[string]bool)

	for _, th := range m.threads {
		m.stepThread(th, tok, &next, &results, seen)
	}

	if tok.Kind == KindGap && tok.Micro >= m.d.MaxGap {
		m.reset()
		return results
	}

	if len(next) == 0 {
		// No thread survived this token: re-seed the start thread so
		// recognition can synchronize mid-stream, per the Matcher's
		// documented edge case for a Flash arriving while only Gap
		// edges are live (or vice versa).
		next = append(next, thread{vertex: m.d.Start, vt: irp.Vartable{}})
		m.stepThread(thread{vertex: m.d.Start, vt: irp.Vartable{}}, tok, &next, &results, seen)
	}

	m.threads = next
	return results
}

// stepThread advances one thread by tok, appending any surviving
// successor threads to next and any Done results to results. seen
// deduplicates successors by (vertex, canonicalized Vartable) within
// this single token, per the work-list discipline MayBranchCond demands.
func (m *Matcher) stepThread(th thread, tok Token, next *[]thread, results *[]Result, seen map[string]bool) {
	v := m.d.Vertices[th.vertex]
	for _, e := range v.Edges {
		switch e := e.(type) {
		case *dfa.FlashEdge:
			if tok.Kind == KindFlash && e.Band.Contains(tok.Micro) {
				m.enter(e.Dest, th.vt, next, results, seen)
			}
		case *dfa.GapEdge:
			if tok.Kind == KindGap && e.Band.Contains(tok.Micro) {
				m.enter(e.Dest, th.vt, next, results, seen)
			}
		case *nfa.Branch:
			m.followEpsilon(e.Dest, th.vt, tok, next, results, seen)
		case *nfa.BranchCond:
			dest := e.No
			if v, err := irp.Eval(e.Expr, th.vt); err == nil && v != 0 {
				dest = e.Yes
			}
			m.followEpsilon(dest, th.vt, tok, next, results, seen)
		case *nfa.MayBranchCond:
			if v, err := irp.Eval(e.Expr, th.vt); err == nil && v != 0 {
				vt := th.vt
				if e.Var != "" {
					vt = vt.Set(e.Var, e.Bind, e.Width)
				}
				m.followEpsilon(e.Dest, vt, tok, next, results, seen)
			}
			// the originating thread's own vertex stays live implicitly:
			// it is re-added by the caller's loop over v.Edges for every
			// other edge, and explicitly below if this is its only edge.
			if len(v.Edges) == 1 {
				m.keepAlive(th, next, seen)
			}
		}
	}
}

// keepAlive re-adds th to next if it is not already present, used by
// MayBranchCond to retain the current position as a live alternative.
func (m *Matcher) keepAlive(th thread, next *[]thread, seen map[string]bool) {
	key := threadKey(th)
	if seen[key] {
		return
	}
	seen[key] = true
	*next = append(*next, th)
}

// followEpsilon walks Branch/BranchCond targets (which never themselves
// consume a token) until it reaches a vertex with a token-consuming edge
// or a Done action, applying each vertex's Actions along the way.
func (m *Matcher) followEpsilon(idx nfa.VertexIndex, vt irp.Vartable, tok Token, next *[]thread, results *[]Result, seen map[string]bool) {
	visited := map[nfa.VertexIndex]bool{}
	for {
		if visited[idx] {
			return // cyclic epsilon chain with no consuming edge; drop silently
		}
		visited[idx] = true
		var ok bool
		vt, ok = applyActions(m.d.Vertices[idx].Actions, vt, results)
		if !ok {
			return
		}
		edges := m.d.Vertices[idx].Edges
		if len(edges) == 0 {
			return
		}
		allEpsilon := true
		for _, e := range edges {
			switch e.(type) {
			case *nfa.Branch, *nfa.BranchCond:
			default:
				allEpsilon = false
			}
		}
		if !allEpsilon {
			m.stepThread(thread{vertex: idx, vt: vt}, tok, next, results, seen)
			return
		}
		switch e := edges[0].(type) {
		case *nfa.Branch:
			idx = e.Dest
		case *nfa.BranchCond:
			if v, err := irp.Eval(e.Expr, vt); err == nil && v != 0 {
				idx = e.Yes
			} else {
				idx = e.No
			}
		}
	}
}

// enter applies a destination vertex's Actions to vt and adds the
// resulting thread to next, deduplicated and checked for a Done result.
// A failed AssertEq prunes the thread: it is never added to next.
func (m *Matcher) enter(idx nfa.VertexIndex, vt irp.Vartable, next *[]thread, results *[]Result, seen map[string]bool) {
	vt, ok := applyActions(m.d.Vertices[idx].Actions, vt, results)
	if !ok {
		return
	}
	th := thread{vertex: idx, vt: vt}
	key := threadKey(th)
	if seen[key] {
		return
	}
	seen[key] = true
	*next = append(*next, th)
}

// applyActions runs a vertex's Set/AssertEq/Done actions in order,
// returning the resulting Vartable and whether the thread survives. A
// failed AssertEq returns ok == false: the caller drops the thread
// without adding it to the live set, matching "prune those threads" for
// a binding that turns out inconsistent.
func applyActions(actions []nfa.Action, vt irp.Vartable, results *[]Result) (irp.Vartable, bool) {
	for _, a := range actions {
		switch a := a.(type) {
		case *nfa.Set:
			v, err := irp.Eval(a.Expr, vt)
			if err != nil {
				continue
			}
			vt = vt.Set(a.Var, v, a.Width)
		case *nfa.AssertEq:
			lhs, errL := irp.Eval(a.Lhs, vt)
			rhs, errR := irp.Eval(a.Rhs, vt)
			if errL != nil || errR != nil || lhs != rhs {
				return vt, false
			}
		case *nfa.Done:
			*results = append(*results, Result{Event: a.Event, Bindings: vt.Results(a.ResultVars)})
		}
	}
	return vt, true
}

func threadKey(th thread) string {
	key := make([]byte, 0, 32)
	key = appendInt(key, int64(th.vertex))
	th.vt.Each(func(b irp.Binding) {
		key = append(key, ':')
		key = appendString(key, b.Name)
		key = append(key, '=')
		key = appendInt(key, b.Value)
	})
	return string(key)
}

func appendInt(b []byte, v int64) []byte {
	if v == 0 {
		return append(b, '0')
	}
	neg := v < 0
	if neg {
		v = -v
		b = append(b, '-')
	}
	start := len(b)
	for v > 0 {
		b = append(b, byte('0'+v%10))
		v /= 10
	}
	for i, j := start, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

func appendString(b []byte, s string) []byte {
	return append(b, s...)
}
