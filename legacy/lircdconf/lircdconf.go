// Package lircdconf ingests the legacy lircd.conf remote-definition
// format: one or more "begin remote" / "end remote" blocks, each giving
// explicit timing fields (header, one, zero, ptrail, gap, toggle_bit_mask)
// and a nested "begin codes" / "end codes" scancode table. Compile
// synthesizes an IRP expression from the timings with a fixed lowering:
// header flash/gap, one bit-field of the declared width decoded under a
// bitspec mapping symbol 0 to (zero-flash, zero-gap) and symbol 1 to
// (one-flash, one-gap), then a trailing pulse and gap.
package lircdconf

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/irrecv/irrecv/irp"
	"github.com/irrecv/irrecv/legacy/keymap"
)

// Remote is one parsed "begin remote" block.
type Remote struct {
	Name          string
	Bits          int
	Frequency     float64 // Hz; 0 means the format's own 38kHz default
	Eps           float64
	AEps          float64
	Header        [2]float64 // flash, gap; zero value means absent
	One           [2]float64
	Zero          [2]float64
	PTrail        float64
	Gap           float64
	ToggleBitMask uint64
	Codes         []keymap.Entry
}

// Parse reads lircd.conf source and returns one Remote per "begin
// remote" block, in file order.
func Parse(data []byte) ([]Remote, error) {
	var remotes []Remote
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	var cur *Remote
	inCodes := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch {
		case matchesKeyword(fields, "begin", "remote"):
			cur = &Remote{}
			continue
		case matchesKeyword(fields, "end", "remote"):
			if cur == nil {
				return nil, fmt.Errorf("lircdconf: line %d: \"end remote\" without matching \"begin remote\"", lineNo)
			}
			remotes = append(remotes, *cur)
			cur = nil
			continue
		case matchesKeyword(fields, "begin", "codes"):
			inCodes = true
			continue
		case matchesKeyword(fields, "end", "codes"):
			inCodes = false
			continue
		}
		if cur == nil {
			continue
		}
		if inCodes {
			if err := parseCodeLine(cur, fields); err != nil {
				return nil, fmt.Errorf("lircdconf: line %d: %w", lineNo, err)
			}
			continue
		}
		if err := parseFieldLine(cur, fields); err != nil {
			return nil, fmt.Errorf("lircdconf: line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lircdconf: %w", err)
	}
	if cur != nil {
		return nil, fmt.Errorf("lircdconf: \"begin remote\" without matching \"end remote\"")
	}
	return remotes, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return line
}

func matchesKeyword(fields []string, want ...string) bool {
	if len(fields) != len(want) {
		return false
	}
	for i, w := range want {
		if !strings.EqualFold(fields[i], w) {
			return false
		}
	}
	return true
}

func parseCodeLine(r *Remote, fields []string) error {
	if len(fields) != 2 {
		return fmt.Errorf("expected \"<key name> <code>\", got %q", strings.Join(fields, " "))
	}
	code, err := parseUint(fields[1])
	if err != nil {
		return fmt.Errorf("bad code %q: %w", fields[1], err)
	}
	r.Codes = append(r.Codes, keymap.Entry{Scancode: code, KeyName: keymap.NormalizeKeyName(fields[0])})
	return nil
}

func parseFieldLine(r *Remote, fields []string) error {
	key := strings.ToLower(fields[0])
	vals := fields[1:]
	var err error
	switch key {
	case "name":
		r.Name = strings.Join(vals, " ")
	case "bits":
		r.Bits, err = parseIntField(vals)
	case "frequency":
		r.Frequency, err = parseFloatField(vals)
	case "eps":
		r.Eps, err = parseFloatField(vals)
	case "aeps":
		r.AEps, err = parseFloatField(vals)
	case "header":
		err = parsePair(vals, &r.Header)
	case "one":
		err = parsePair(vals, &r.One)
	case "zero":
		err = parsePair(vals, &r.Zero)
	case "ptrail":
		r.PTrail, err = parseFloatField(vals)
	case "gap":
		r.Gap, err = parseFloatField(vals)
	case "toggle_bit_mask", "toggle_bit":
		r.ToggleBitMask, err = parseUintField(vals)
	default:
		// Unrecognized fields (flags, plead, pre_data, repeat, ...) are
		// accepted but not interpreted: the fixed lowering in Compile
		// only needs the timing fields above.
	}
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

func parseIntField(vals []string) (int, error) {
	if len(vals) != 1 {
		return 0, fmt.Errorf("expected one value, got %d", len(vals))
	}
	n, err := strconv.Atoi(vals[0])
	return n, err
}

func parseFloatField(vals []string) (float64, error) {
	if len(vals) != 1 {
		return 0, fmt.Errorf("expected one value, got %d", len(vals))
	}
	return strconv.ParseFloat(vals[0], 64)
}

func parseUintField(vals []string) (uint64, error) {
	if len(vals) != 1 {
		return 0, fmt.Errorf("expected one value, got %d", len(vals))
	}
	return parseUint(vals[0])
}

func parsePair(vals []string, out *[2]float64) error {
	if len(vals) != 2 {
		return fmt.Errorf("expected two values, got %d", len(vals))
	}
	a, err := strconv.ParseFloat(vals[0], 64)
	if err != nil {
		return err
	}
	b, err := strconv.ParseFloat(vals[1], 64)
	if err != nil {
		return err
	}
	out[0], out[1] = a, b
	return nil
}

func parseUint(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		return strconv.ParseUint(raw[2:], 16, 64)
	}
	return strconv.ParseUint(raw, 10, 64)
}

// Compile synthesizes an IRP expression from r's timing fields, per the
// fixed lowering this package's doc comment describes, and returns the
// compilation Options r's eps/aeps declare (defaulted per irp.DefaultOptions
// where the remote is silent).
func Compile(r Remote) (*irp.Protocol, irp.Options, error) {
	if r.Bits <= 0 {
		return nil, irp.Options{}, fmt.Errorf("lircdconf: remote %q: bits must be positive", r.Name)
	}
	if r.One == ([2]float64{}) || r.Zero == ([2]float64{}) {
		return nil, irp.Options{}, fmt.Errorf("lircdconf: remote %q: missing one/zero timing", r.Name)
	}

	freqKHz := r.Frequency / 1000
	if freqKHz == 0 {
		freqKHz = 38
	}

	var b strings.Builder
	fmt.Fprintf(&b, "{%sk}", trimFloat(freqKHz))
	fmt.Fprintf(&b, "<%s,-%s|%s,-%s>", trimFloat(r.Zero[0]), trimFloat(r.Zero[1]), trimFloat(r.One[0]), trimFloat(r.One[1]))
	b.WriteByte('(')
	if r.Header != ([2]float64{}) {
		fmt.Fprintf(&b, "%s,-%s,", trimFloat(r.Header[0]), trimFloat(r.Header[1]))
	}
	fmt.Fprintf(&b, "F:%d", r.Bits)
	if r.PTrail != 0 {
		fmt.Fprintf(&b, ",%s", trimFloat(r.PTrail))
	}
	if r.Gap != 0 {
		fmt.Fprintf(&b, ",-%s", trimFloat(r.Gap))
	}
	b.WriteByte(')')
	maxVal := uint64(1)<<uint(r.Bits) - 1
	fmt.Fprintf(&b, "[F:0..%d]", maxVal)

	proto, err := irp.Parse(b.String())
	if err != nil {
		return nil, irp.Options{}, fmt.Errorf("lircdconf: remote %q: synthesized IRP %q: %w", r.Name, b.String(), err)
	}

	opts := irp.DefaultOptions(r.Name)
	if r.Eps != 0 {
		opts.Eps = r.Eps
	}
	if r.AEps != 0 {
		opts.AEps = r.AEps
	}
	return proto, opts, nil
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
