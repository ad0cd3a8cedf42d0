package match

import (
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

// appendBitfieldLSB appends the flash/gap pair for each bit of val, least
// significant bit first, matching NEC1's default (non-msb) bit order: bit
// value 0 is the bitspec's short-gap entry, bit value 1 its long-gap entry.
func appendBitfieldLSB(tokens []Token, val uint8) []Token {
	for s := 0; s < 8; s++ {
		bit := (val >> uint(s)) & 1
		tokens = append(tokens, Token{Kind: KindFlash, Micro: 564})
		if bit == 0 {
			tokens = append(tokens, Token{Kind: KindGap, Micro: 564})
		} else {
			tokens = append(tokens, Token{Kind: KindGap, Micro: 1692})
		}
	}
	return tokens
}

// nec1Frame builds the token sequence for one full NEC1 transmission of
// D, S, F, trailing with a generous extent gap comfortably inside the
// admissible band computed in DESIGN.md's worked example.
func nec1Frame(d, s, f uint8) []Token {
	tokens := []Token{
		{Kind: KindFlash, Micro: 9024},
		{Kind: KindGap, Micro: 4512},
	}
	tokens = appendBitfieldLSB(tokens, d)
	tokens = appendBitfieldLSB(tokens, s)
	tokens = appendBitfieldLSB(tokens, f)
	tokens = appendBitfieldLSB(tokens, ^f)
	tokens = append(tokens, Token{Kind: KindFlash, Micro: 564})
	tokens = append(tokens, Token{Kind: KindGap, Micro: 30000})
	return tokens
}

func feedAll(m *Matcher, tokens []Token) []Result {
	var all []Result
	for _, tok := range tokens {
		all = append(all, m.Input(tok)...)
	}
	return all
}

func TestNEC1RoundTrip(t *testing.T) {
	d := buildDFA(t, nec1IRP, irp.DefaultOptions("NEC1"))
	m := New(d, 0)
	results := feedAll(m, nec1Frame(0x04, 0x0C, 0x10))

	if len(results) != 1 {
		t.Fatalf("got %d Done events, want 1: %+v", len(results), results)
	}
	r := results[0]
	if r.Event != "NEC1" {
		t.Errorf("event = %q, want NEC1", r.Event)
	}
	want := map[string]int64{"D": 0x04, "S": 0x0C, "F": 0x10}
	for k, v := range want {
		if r.Bindings[k] != v {
			t.Errorf("binding %s = %d, want %d", k, r.Bindings[k], v)
		}
	}
}

func TestNEC1RepeatProducesTwoDoneEvents(t *testing.T) {
	d := buildDFA(t, nec1IRP, irp.DefaultOptions("NEC1"))
	m := New(d, 0)
	var tokens []Token
	tokens = append(tokens, nec1Frame(0x01, 0x02, 0x03)...)
	tokens = append(tokens, nec1Frame(0x01, 0x02, 0x03)...)
	results := feedAll(m, tokens)
	if len(results) != 2 {
		t.Fatalf("got %d Done events across two frames, want 2: %+v", len(results), results)
	}
}

func TestExplicitResetDropsPartialFrame(t *testing.T) {
	d := buildDFA(t, nec1IRP, irp.DefaultOptions("NEC1"))
	m := New(d, 0)

	frame := nec1Frame(0x04, 0x0C, 0x10)
	half := frame[:len(frame)/2]
	if results := feedAll(m, half); len(results) != 0 {
		t.Fatalf("got %d Done events from a half-fed frame, want 0", len(results))
	}

	if results := m.Input(Token{Kind: KindReset}); results != nil {
		t.Fatalf("Input(Reset) returned results: %+v", results)
	}
	if len(m.threads) != 1 || m.threads[0].vertex != d.Start {
		t.Fatalf("after reset, threads = %+v, want a single thread at Start", m.threads)
	}

	results := feedAll(m, nec1Frame(0x20, 0x21, 0x22))
	if len(results) != 1 {
		t.Fatalf("got %d Done events after reset+full frame, want 1: %+v", len(results), results)
	}
	if results[0].Bindings["D"] != 0x20 {
		t.Errorf("D = %d, want 0x20", results[0].Bindings["D"])
	}
}

func TestMaxGapCutoffDiscardsPartialFrameAndRecovers(t *testing.T) {
	opts := irp.DefaultOptions("NEC1")
	opts.MaxGap = 50000
	d := buildDFA(t, nec1IRP, opts)
	m := New(d, 0)

	frame := nec1Frame(0x04, 0x0C, 0x10)
	partial := frame[:4] // lead-in plus the first decoded bit
	if results := feedAll(m, partial); len(results) != 0 {
		t.Fatalf("got %d Done events from a partial frame, want 0", len(results))
	}

	results := m.Input(Token{Kind: KindGap, Micro: 60000})
	if len(results) != 0 {
		t.Fatalf("a stray over-long gap produced Done events: %+v", results)
	}
	if len(m.threads) != 1 || m.threads[0].vertex != d.Start {
		t.Fatalf("after max_gap cutoff, threads = %+v, want a single thread at Start", m.threads)
	}

	results = feedAll(m, nec1Frame(0x04, 0x0C, 0x10))
	if len(results) != 1 {
		t.Fatalf("got %d Done events after a max_gap reset, want 1: %+v", len(results), results)
	}
}

func TestResolutionDropsSubThresholdTokensAsNoise(t *testing.T) {
	d := buildDFA(t, nec1IRP, irp.DefaultOptions("NEC1"))
	m := New(d, 100)

	if results := m.Input(Token{Kind: KindFlash, Micro: 40}); results != nil {
		t.Fatalf("a sub-resolution flash produced results: %+v", results)
	}
	if len(m.threads) != 1 || m.threads[0].vertex != d.Start {
		t.Fatalf("a dropped sub-resolution token perturbed the thread set: %+v", m.threads)
	}
}

// ambiguousIRP's bitspec deliberately makes symbol 0's modulation ("1,-1") a
// strict prefix of symbol 1's ("1,-1,1,-3"), forcing the NFA's MayBranchCond
// construction and exercising it at the Matcher level.
const ambiguousIRP = "{38k,564}<1,-1|1,-1,1,-3>(16,-8,D:1,1,^108m)[D:0..1]"

func TestMayBranchCondDecodesShorterHypothesisWithoutSpuriousSecondDone(t *testing.T) {
	d := buildDFA(t, ambiguousIRP, irp.DefaultOptions("ambiguous"))
	m := New(d, 0)
	tokens := []Token{
		{Kind: KindFlash, Micro: 9024},
		{Kind: KindGap, Micro: 4512},
		{Kind: KindFlash, Micro: 564}, // shared prefix: "1"
		{Kind: KindGap, Micro: 564},  // shared prefix: "-1" — completes symbol 0
		{Kind: KindFlash, Micro: 564}, // trailing bare "1"
		{Kind: KindGap, Micro: 90000}, // extent
	}
	results := feedAll(m, tokens)
	if len(results) != 1 {
		t.Fatalf("got %d Done events, want exactly 1: %+v", len(results), results)
	}
	if results[0].Bindings["D"] != 0 {
		t.Errorf("D = %d, want 0", results[0].Bindings["D"])
	}
}

func TestMayBranchCondDecodesLongerHypothesisAfterShorterDies(t *testing.T) {
	d := buildDFA(t, ambiguousIRP, irp.DefaultOptions("ambiguous"))
	m := New(d, 0)
	tokens := []Token{
		{Kind: KindFlash, Micro: 9024},
		{Kind: KindGap, Micro: 4512},
		{Kind: KindFlash, Micro: 564}, // shared prefix: "1"
		{Kind: KindGap, Micro: 564},  // shared prefix: "-1"
		{Kind: KindFlash, Micro: 564}, // symbol 1's third item: "1"
		{Kind: KindGap, Micro: 1692}, // symbol 1's fourth item: "-3" — the shorter hypothesis dies here
		{Kind: KindFlash, Micro: 564}, // trailing bare "1"
		{Kind: KindGap, Micro: 90000}, // extent
	}
	results := feedAll(m, tokens)
	if len(results) != 1 {
		t.Fatalf("got %d Done events, want exactly 1: %+v", len(results), results)
	}
	if results[0].Bindings["D"] != 1 {
		t.Errorf("D = %d, want 1", results[0].Bindings["D"])
	}
}
