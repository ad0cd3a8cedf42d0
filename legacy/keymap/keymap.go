// Package keymap ingests the TOML-based remote-control keymap format:
// one or more named protocol sections, each naming a built-in protocol
// identifier, optional compilation options, and a scancode table. A
// section whose protocol identifier has no built-in template fails with
// ErrUnknownProtocol rather than guessing at a lowering, per the "fails
// with a descriptive error" requirement.
package keymap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/irrecv/irrecv/irp"
)

// ErrUnknownProtocol is returned by Compile when a keymap names a
// protocol identifier with no built-in IRP template.
var ErrUnknownProtocol = errors.New("keymap: protocol has no built-in IRP template")

// Entry is one scancode-to-key-name binding, normalized per NormalizeKeyName.
type Entry struct {
	Scancode uint64
	KeyName  string
}

// Keymap is one parsed protocol section: the built-in template it names,
// the compilation options it declares (defaults applied where the file
// is silent), and its scancode table.
type Keymap struct {
	Name      string
	Protocol  string
	Variant   string
	Options   irp.Options
	Scancodes []Entry
}

type rawFile struct {
	Protocols []rawProtocol `toml:"protocols"`
}

type rawProtocol struct {
	Name      string            `toml:"name"`
	Protocol  string            `toml:"protocol"`
	Variant   string            `toml:"variant"`
	Options   rawOptions        `toml:"options"`
	Scancodes map[string]string `toml:"scancodes"`
}

type rawOptions struct {
	MaxGap float64 `toml:"max_gap"`
	AEps   float64 `toml:"aeps"`
	Eps    float64 `toml:"eps"`
}

// Parse reads a keymap file's TOML source and returns one Keymap per
// declared [[protocols]] section, in file order.
func Parse(data []byte) ([]Keymap, error) {
	var f rawFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("keymap: parsing toml: %w", err)
	}
	if len(f.Protocols) == 0 {
		return nil, fmt.Errorf("keymap: no [[protocols]] sections found")
	}
	out := make([]Keymap, 0, len(f.Protocols))
	for _, p := range f.Protocols {
		km, err := fromRaw(p)
		if err != nil {
			return nil, err
		}
		out = append(out, km)
	}
	return out, nil
}

func fromRaw(p rawProtocol) (Keymap, error) {
	if p.Protocol == "" {
		return Keymap{}, fmt.Errorf("keymap: section %q: missing protocol identifier", p.Name)
	}
	opts := irp.DefaultOptions(p.Name)
	if p.Options.MaxGap != 0 {
		opts.MaxGap = p.Options.MaxGap
	}
	if p.Options.AEps != 0 {
		opts.AEps = p.Options.AEps
	}
	if p.Options.Eps != 0 {
		opts.Eps = p.Options.Eps
	}
	entries := make([]Entry, 0, len(p.Scancodes))
	for raw, key := range p.Scancodes {
		sc, err := parseScancode(raw)
		if err != nil {
			return Keymap{}, fmt.Errorf("keymap: section %q: scancode %q: %w", p.Name, raw, err)
		}
		entries = append(entries, Entry{Scancode: sc, KeyName: NormalizeKeyName(key)})
	}
	return Keymap{
		Name:      p.Name,
		Protocol:  p.Protocol,
		Variant:   p.Variant,
		Options:   opts,
		Scancodes: entries,
	}, nil
}

func parseScancode(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	base := 10
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		raw = raw[2:]
		base = 16
	}
	return strconv.ParseUint(raw, base, 64)
}

// NormalizeKeyName upper-cases a key name and prepends "KEY_" if the
// name doesn't already carry it, for the external keycode registry.
func NormalizeKeyName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if strings.HasPrefix(name, "KEY_") {
		return name
	}
	return "KEY_" + name
}

// Compile looks up km.Protocol in Templates and parses the matching
// built-in IRP source, returning the parsed protocol plus the Options
// this keymap's file declared. Templates carries no per-keymap
// parameters to substitute beyond the protocol's own declared params —
// a keymap section supplies scancodes, not protocol-shape parameters —
// so Compile's only real "substitution" is selecting which already
// fully-specified template source to parse.
func Compile(km Keymap) (*irp.Protocol, irp.Options, error) {
	src, ok := Templates[strings.ToLower(km.Protocol)]
	if !ok {
		return nil, irp.Options{}, fmt.Errorf("%w: %q", ErrUnknownProtocol, km.Protocol)
	}
	proto, err := irp.Parse(src)
	if err != nil {
		return nil, irp.Options{}, fmt.Errorf("keymap: built-in template %q: %w", km.Protocol, err)
	}
	return proto, km.Options, nil
}
