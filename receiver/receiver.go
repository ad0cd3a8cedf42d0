// Package receiver defines the external "Receiver" collaborator: a
// blocking source of timed infrared tokens, plus a set of capability
// predicates describing what the underlying hardware can actually do.
// Concrete backends live in subpackages (mock, lirc, gpio, serial),
// mirroring the way a single interface fans out to several hardware
// implementations behind it elsewhere in this codebase.
package receiver

import (
	"context"

	"github.com/irrecv/irrecv/match"
)

// Capabilities describes what a Receiver backend can report or do,
// queried once at startup to decide how a Matcher (or kernel bytecode
// target) should be configured.
type Capabilities struct {
	// CanReceiveRaw is true when the backend can return individual
	// Flash/Gap edges rather than only fully decoded scancodes.
	CanReceiveRaw bool
	// CanMeasureCarrier is true when the backend can report the
	// modulation frequency it observed, rather than assuming it.
	CanMeasureCarrier bool
	// CanUseWideband is true when the backend supports a wideband
	// (unfiltered) receive mode, needed by some variable-carrier
	// protocols.
	CanUseWideband bool
	// ResolutionUs is the smallest duration difference the backend can
	// distinguish, in microseconds. Zero means unknown.
	ResolutionUs float64
	// ConfiguredTimeoutUs is the backend's own idle-gap timeout, in
	// microseconds: a Gap at least this long is reported as the final
	// token of a batch even without an explicit Reset. Zero means the
	// backend reports no timeout of its own.
	ConfiguredTimeoutUs float64
}

// Receiver is a blocking source of infrared timing data. Read blocks
// until at least one token is available, the context is cancelled, or
// the backend reports an error. A batch may end with a Reset token
// when the backend's own timeout fired or its capture buffer
// overflowed; callers should treat both the same way a DFA's implicit
// max-gap Reset is treated, since the alternative (trusting stale
// timing across a lost edge) risks silently wrong decodes.
type Receiver interface {
	Read(ctx context.Context) ([]match.Token, error)
	Capabilities() Capabilities
	Close() error
}
