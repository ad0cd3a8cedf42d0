package dot

import (
	"strings"
	"testing"

	"github.com/irrecv/irrecv/dfa"
	"github.com/irrecv/irrecv/irp"
	"github.com/irrecv/irrecv/nfa"
)

const nec1IRP = "{38k,564}<1,-1|1,-3>(16,-8,D:8,S:8,F:8,~F:8,1,^108m)[D:0..255,S:0..255,F:0..255]"

func buildDFA(t *testing.T, src string, opts irp.Options) *dfa.DFA {
	t.Helper()
	proto, err := irp.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	n, err := nfa.Build(proto, opts)
	if err != nil {
		t.Fatalf("nfa.Build: %v", err)
	}
	d, err := dfa.Compile(n, opts)
	if err != nil {
		t.Fatalf("dfa.Compile: %v", err)
	}
	return d
}

func TestWriteProducesWellFormedDigraph(t *testing.T) {
	d := buildDFA(t, nec1IRP, irp.Options{Name: "NEC1"})
	out := Write(d, "NEC1", nil)
	if !strings.HasPrefix(out, "strict digraph NEC1 {") {
		end := 40
		if len(out) < end {
			end = len(out)
		}
		t.Fatalf("expected a strict digraph header, got: %q", out[:end])
	}
	if !strings.HasSuffix(strings.TrimRight(out, "\n"), "}") {
		t.Fatal("expected the dot source to close with a closing brace")
	}
	if !strings.Contains(out, "done (") {
		t.Error("expected at least one vertex labeled as a done state")
	}
	if !strings.Contains(out, "flash") || !strings.Contains(out, "gap") {
		t.Error("expected both flash and gap edges to appear")
	}
}

func TestWriteAnnotatesGivenStateInRed(t *testing.T) {
	d := buildDFA(t, nec1IRP, irp.Options{Name: "NEC1"})
	vars := irp.NewVartable(map[string]int64{"D": 4})
	out := Write(d, "NEC1", []State{{Vertex: d.Start, Vars: vars}})
	if !strings.Contains(out, "color=red") {
		t.Error("expected the annotated vertex to be colored red")
	}
	if !strings.Contains(out, "state: D=4") {
		t.Errorf("expected a state label mentioning D=4, got: %s", out)
	}
}

func TestNoToNameProducesBase26Series(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 25: "Z", 26: "BA"}
	for no, want := range cases {
		if got := noToName(no); got != want {
			t.Errorf("noToName(%d) = %q, want %q", no, got, want)
		}
	}
}
