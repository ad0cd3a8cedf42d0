// Package rawir parses and prints the two plain-text raw-IR notations in
// common use alongside IRP: the mode2 keyword format ("pulse 9024",
// "space 4512", "timeout 100000", one reading per line) that kernel lirc
// character devices and the mode2 debug tool emit, and the more compact
// signed-duration format ("+9024 -4512 +564 -1692 ...", whitespace
// separated, pulse positive and space negative) IR capture tooling
// exchanges on the command line. Either parses into the same
// match.Token stream the Matcher consumes, so a capture file substitutes
// directly for a live receiver.
package rawir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/irrecv/irrecv/match"
)

// Parse reads text in either supported notation and returns the
// equivalent Token sequence. The two notations are distinguished by
// their first non-blank line: one starting with "pulse"/"space"/"timeout"
// (case-insensitively) is mode2; anything else is parsed as signed
// durations.
func Parse(text string) ([]match.Token, error) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		field := strings.ToLower(strings.Fields(line)[0])
		switch field {
		case "pulse", "space", "timeout":
			return parseMode2(text)
		default:
			return parseSigned(text)
		}
	}
	return nil, nil
}

func parseMode2(text string) ([]match.Token, error) {
	var toks []match.Token
	for lineNo, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("rawir: line %d: expected \"<keyword> <duration>\", got %q", lineNo+1, line)
		}
		us, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("rawir: line %d: bad duration %q: %w", lineNo+1, fields[1], err)
		}
		switch strings.ToLower(fields[0]) {
		case "pulse":
			toks = append(toks, match.Token{Kind: match.KindFlash, Micro: us})
		case "space":
			toks = append(toks, match.Token{Kind: match.KindGap, Micro: us})
		case "timeout":
			toks = append(toks, match.Token{Kind: match.KindGap, Micro: us})
			toks = append(toks, match.Token{Kind: match.KindReset})
		default:
			return nil, fmt.Errorf("rawir: line %d: unknown keyword %q", lineNo+1, fields[0])
		}
	}
	return toks, nil
}

func parseSigned(text string) ([]match.Token, error) {
	var toks []match.Token
	for _, field := range strings.Fields(text) {
		if field == "" {
			continue
		}
		if strings.EqualFold(field, "reset") {
			toks = append(toks, match.Token{Kind: match.KindReset})
			continue
		}
		n, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("rawir: bad duration token %q: %w", field, err)
		}
		if n < 0 {
			toks = append(toks, match.Token{Kind: match.KindGap, Micro: -n})
		} else {
			toks = append(toks, match.Token{Kind: match.KindFlash, Micro: n})
		}
	}
	return toks, nil
}

// Print renders tokens in the signed-duration notation, one
// space-separated line, flashes positive and gaps negative; a Reset mid
// stream is rendered as the literal word "reset" so round-tripping
// through Parse recovers it distinctly from an ordinary gap.
func Print(tokens []match.Token) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		switch t.Kind {
		case match.KindFlash:
			parts = append(parts, formatUs(t.Micro))
		case match.KindGap:
			parts = append(parts, "-"+formatUs(t.Micro))
		case match.KindReset:
			parts = append(parts, "reset")
		}
	}
	return strings.Join(parts, " ")
}

func formatUs(us float64) string {
	if us == float64(int64(us)) {
		return strconv.FormatInt(int64(us), 10)
	}
	return strconv.FormatFloat(us, 'f', -1, 64)
}
