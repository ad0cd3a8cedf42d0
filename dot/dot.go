// Package dot renders a compiled dfa.DFA (or any vertex/edge set sharing
// its shape, including a plain nfa.NFA before lowering) as GraphViz "dot"
// source, for the pre-emit graph dump the bytecode emitter's Disassemble
// sibling references and for interactive protocol debugging.
package dot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/irrecv/irrecv/dfa"
	"github.com/irrecv/irrecv/irp"
	"github.com/irrecv/irrecv/nfa"
)

// State annotates one vertex with a live thread's current bindings, drawn
// in red with a "state: " label — used to render a snapshot of the
// Matcher mid-stream for debugging, not needed for a static dump of the
// automaton alone.
type State struct {
	Vertex nfa.VertexIndex
	Vars   irp.Vartable
}

// Write renders d's vertices and edges as "strict digraph <name> { ... }"
// dot source. states may be nil; any vertex it names is colored red and
// annotated with its bound variables.
func Write(d *dfa.DFA, name string, states []State) string {
	return render(d.Vertices, name, states)
}

func render(verts []nfa.Vertex, name string, states []State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "strict digraph %s {\n", dotIdent(name))

	vertNames := make([]string, len(verts))
	namedCount := 0
	for no, v := range verts {
		if isDoneVertex(v) {
			vertNames[no] = fmt.Sprintf("done (%d)", no)
			continue
		}
		vertNames[no] = fmt.Sprintf("%s (%d)", noToName(namedCount), no)
		namedCount++
	}

	stateFor := func(no int) (irp.Vartable, bool) {
		for _, s := range states {
			if int(s.Vertex) == no {
				return s.Vars, true
			}
		}
		return irp.Vartable{}, false
	}

	for no, v := range verts {
		var labels []string
		for _, a := range v.Actions {
			labels = append(labels, actionLabel(a))
		}
		if bc := findBranchCond(v.Edges); bc != nil {
			labels = append(labels, fmt.Sprintf("cond: %s", bc.Expr))
		}
		if mb := findMayBranchCond(v.Edges); mb != nil {
			labels = append(labels, fmt.Sprintf("may cond: %s", mb.Expr))
		}

		color := ""
		if vars, ok := stateFor(no); ok {
			var values []string
			vars.Each(func(bi irp.Binding) {
				values = append(values, fmt.Sprintf("%s=%d", bi.Name, bi.Value))
			})
			labels = append(labels, fmt.Sprintf("state: %s", strings.Join(values, ", ")))
			color = " [color=red]"
		}

		switch {
		case len(labels) > 0:
			fmt.Fprintf(&b, "\t\"%s\" [label=\"%s\\n%s\"]%s\n",
				vertNames[no], vertNames[no], strings.Join(labels, "\\n"), color)
		case color != "":
			fmt.Fprintf(&b, "\t\"%s\"%s\n", vertNames[no], color)
		}
	}

	for i, v := range verts {
		for _, e := range v.Edges {
			writeEdge(&b, vertNames, i, e)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func isDoneVertex(v nfa.Vertex) bool {
	for _, a := range v.Actions {
		if _, ok := a.(*nfa.Done); ok {
			return true
		}
	}
	return false
}

func actionLabel(a nfa.Action) string {
	switch a := a.(type) {
	case *nfa.Set:
		return fmt.Sprintf("%s = %s", a.Var, a.Expr)
	case *nfa.AssertEq:
		return fmt.Sprintf("assert %s = %s", a.Lhs, a.Rhs)
	case *nfa.Done:
		return fmt.Sprintf("%s (%s)", a.Event, strings.Join(a.ResultVars, ", "))
	default:
		return fmt.Sprintf("%v", a)
	}
}

func findBranchCond(edges []nfa.Edge) *nfa.BranchCond {
	for _, e := range edges {
		if bc, ok := e.(*nfa.BranchCond); ok {
			return bc
		}
	}
	return nil
}

func findMayBranchCond(edges []nfa.Edge) *nfa.MayBranchCond {
	for _, e := range edges {
		if mb, ok := e.(*nfa.MayBranchCond); ok {
			return mb
		}
	}
	return nil
}

func writeEdge(b *strings.Builder, vertNames []string, i int, e nfa.Edge) {
	switch e := e.(type) {
	case *dfa.FlashEdge:
		fmt.Fprintf(b, "\t\"%s\" -> \"%s\" [label=\"flash [%s,%s]us\"]\n",
			vertNames[i], vertNames[e.Dest], fmtUs(e.Band.Lo), fmtUs(e.Band.Hi))
	case *dfa.GapEdge:
		fmt.Fprintf(b, "\t\"%s\" -> \"%s\" [label=\"gap [%s,%s]us\"]\n",
			vertNames[i], vertNames[e.Dest], fmtUs(e.Band.Lo), fmtUs(e.Band.Hi))
	case *nfa.Flash:
		fmt.Fprintf(b, "\t\"%s\" -> \"%s\" [label=\"flash %s%s\"]\n",
			vertNames[i], vertNames[e.Dest], fmtUs(e.Length), completeSuffix(e.Complete))
	case *nfa.Gap:
		fmt.Fprintf(b, "\t\"%s\" -> \"%s\" [label=\"gap %s%s\"]\n",
			vertNames[i], vertNames[e.Dest], fmtUs(e.Length), completeSuffix(e.Complete))
	case *nfa.BranchCond:
		fmt.Fprintf(b, "\t\"%s\" -> \"%s\" [label=\"cond: true\"]\n", vertNames[i], vertNames[e.Yes])
		fmt.Fprintf(b, "\t\"%s\" -> \"%s\" [label=\"cond: false\"]\n", vertNames[i], vertNames[e.No])
	case *nfa.MayBranchCond:
		fmt.Fprintf(b, "\t\"%s\" -> \"%s\" [label=\"may branch\"]\n", vertNames[i], vertNames[e.Dest])
	case *nfa.Branch:
		fmt.Fprintf(b, "\t\"%s\" -> \"%s\"\n", vertNames[i], vertNames[e.Dest])
	}
}

func completeSuffix(complete bool) string {
	if complete {
		return " complete"
	}
	return ""
}

func fmtUs(us float64) string {
	return strconv.FormatFloat(us, 'g', -1, 64)
}

// noToName produces the base-26 A, B, ..., Z, BA, BB, ... vertex name
// series (a plain base-26 numeral with A as the zero digit), matching
// the original decoder's naming so state names stay short and stable
// across repeated dumps.
func noToName(no int) string {
	var res []byte
	for {
		ch := byte('A' + no%26)
		res = append([]byte{ch}, res...)
		no /= 26
		if no == 0 {
			return string(res)
		}
	}
}

func dotIdent(name string) string {
	if name == "" {
		return "protocol"
	}
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
