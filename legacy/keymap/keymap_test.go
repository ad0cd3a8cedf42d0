package keymap

import (
	"errors"
	"testing"
)

const sampleKeymap = `
[[protocols]]
name = "living_room_tv"
protocol = "nec1"

[protocols.options]
max_gap = 108000
aeps = 100
eps = 3

[protocols.scancodes]
"0x04" = "power"
"0x0c" = "KEY_VOLUMEUP"
"12" = "mute"
`

func TestParseReadsProtocolOptionsAndScancodes(t *testing.T) {
	kms, err := Parse([]byte(sampleKeymap))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(kms) != 1 {
		t.Fatalf("expected 1 keymap, got %d", len(kms))
	}
	km := kms[0]
	if km.Protocol != "nec1" {
		t.Errorf("Protocol = %q, want nec1", km.Protocol)
	}
	if km.Options.MaxGap != 108000 || km.Options.AEps != 100 || km.Options.Eps != 3 {
		t.Errorf("Options = %+v, unexpected", km.Options)
	}
	if len(km.Scancodes) != 3 {
		t.Fatalf("expected 3 scancodes, got %d", len(km.Scancodes))
	}
	byCode := map[uint64]string{}
	for _, e := range km.Scancodes {
		byCode[e.Scancode] = e.KeyName
	}
	if byCode[0x04] != "KEY_POWER" {
		t.Errorf("scancode 0x04 = %q, want KEY_POWER", byCode[0x04])
	}
	if byCode[0x0c] != "KEY_VOLUMEUP" {
		t.Errorf("scancode 0x0c = %q, want KEY_VOLUMEUP", byCode[0x0c])
	}
	if byCode[12] != "KEY_MUTE" {
		t.Errorf("scancode 12 = %q, want KEY_MUTE", byCode[12])
	}
}

func TestCompileResolvesBuiltinTemplate(t *testing.T) {
	kms, err := Parse([]byte(sampleKeymap))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	proto, opts, err := Compile(kms[0])
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if proto == nil {
		t.Fatal("expected a non-nil compiled protocol")
	}
	if opts.MaxGap != 108000 {
		t.Errorf("opts.MaxGap = %v, want 108000", opts.MaxGap)
	}
}

func TestCompileFailsOnUnknownProtocol(t *testing.T) {
	km := Keymap{Name: "mystery", Protocol: "definitely-not-a-real-protocol"}
	_, _, err := Compile(km)
	if !errors.Is(err, ErrUnknownProtocol) {
		t.Fatalf("expected ErrUnknownProtocol, got %v", err)
	}
}

func TestNormalizeKeyName(t *testing.T) {
	cases := map[string]string{
		"power":        "KEY_POWER",
		"KEY_POWER":    "KEY_POWER",
		"key_power":    "KEY_POWER",
		" volumeup ":   "KEY_VOLUMEUP",
	}
	for in, want := range cases {
		if got := NormalizeKeyName(in); got != want {
			t.Errorf("NormalizeKeyName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRejectsFileWithNoProtocolSections(t *testing.T) {
	if _, err := Parse([]byte("name = \"oops\"\n")); err == nil {
		t.Fatal("expected an error for a file with no [[protocols]] sections")
	}
}
