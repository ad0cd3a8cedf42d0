package rawir

import (
	"testing"

	"github.com/irrecv/irrecv/match"
)

func TestParseSignedDurations(t *testing.T) {
	toks, err := Parse("+9024 -4512 +564 -1692 +564 -560")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []match.Token{
		{Kind: match.KindFlash, Micro: 9024},
		{Kind: match.KindGap, Micro: 4512},
		{Kind: match.KindFlash, Micro: 564},
		{Kind: match.KindGap, Micro: 1692},
		{Kind: match.KindFlash, Micro: 564},
		{Kind: match.KindGap, Micro: 560},
	}
	assertTokensEqual(t, toks, want)
}

func TestParseSignedWithoutLeadingPlus(t *testing.T) {
	toks, err := Parse("9024 -4512 564")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []match.Token{
		{Kind: match.KindFlash, Micro: 9024},
		{Kind: match.KindGap, Micro: 4512},
		{Kind: match.KindFlash, Micro: 564},
	}
	assertTokensEqual(t, toks, want)
}

func TestParseSignedRecognizesResetKeyword(t *testing.T) {
	toks, err := Parse("+9024 -4512 reset +564 -1692")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(toks) != 5 || toks[2].Kind != match.KindReset {
		t.Fatalf("expected a Reset token at index 2, got %+v", toks)
	}
}

func TestParseMode2Keywords(t *testing.T) {
	toks, err := Parse("pulse 9024\nspace 4512\npulse 564\ntimeout 100000\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []match.Token{
		{Kind: match.KindFlash, Micro: 9024},
		{Kind: match.KindGap, Micro: 4512},
		{Kind: match.KindFlash, Micro: 564},
		{Kind: match.KindGap, Micro: 100000},
		{Kind: match.KindReset},
	}
	assertTokensEqual(t, toks, want)
}

func TestParseMode2RejectsMalformedLine(t *testing.T) {
	if _, err := Parse("pulse\n"); err == nil {
		t.Fatal("expected an error for a pulse line missing its duration")
	}
}

func TestPrintRoundTripsThroughParse(t *testing.T) {
	orig := []match.Token{
		{Kind: match.KindFlash, Micro: 9024},
		{Kind: match.KindGap, Micro: 4512},
		{Kind: match.KindReset},
		{Kind: match.KindFlash, Micro: 564},
	}
	text := Print(orig)
	got, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(Print(...)): %v", err)
	}
	assertTokensEqual(t, got, orig)
}

func assertTokensEqual(t *testing.T, got, want []match.Token) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %+v, want %d %+v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}
