// Package gpio implements receiver.Receiver by timestamping logic-level
// transitions on a single GPIO input pin in software, for boards with
// no kernel lirc driver. Two backends are provided, mirroring this
// project's own dual GPIO story: Periph, built on periph.io's
// edge-interrupt API (periph.io/x/conn/v3, periph.io/x/host/v3), and
// RPIPoll, a tight polling loop over
// github.com/stianeikeland/go-rpio/v4 for boards where periph.io has
// no driver but go-rpio's direct register access does. This module's
// go.mod replaces go-rpio with the ./stub/rpio stub, whose pins always
// read Low, so RPIPoll built from this module observes no transitions.
//
// Both backends report CanReceiveRaw and a software-measured
// ResolutionUs; neither can measure carrier frequency or use a
// wideband receive mode, since those require dedicated demodulation
// hardware a bare GPIO pin doesn't have.
package gpio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/irrecv/irrecv/match"
	"github.com/irrecv/irrecv/receiver"
)

// Config selects the pin and the idle period after which a batch is
// closed off with an implicit Reset.
type Config struct {
	// PinName is the periph.io pin name (e.g. "GPIO17"), used by Periph.
	PinName string
	// Pin is the BCM pin number RPIPoll reads.
	Pin int
	// IdleTimeout is how long the line must stay at its resting level
	// before Read closes the batch off with a Reset, the software
	// equivalent of a receiver's own hardware timeout.
	IdleTimeout time.Duration
}

func idleTimeout(cfg Config) time.Duration {
	if cfg.IdleTimeout > 0 {
		return cfg.IdleTimeout
	}
	return 150 * time.Millisecond
}

// edgeSource abstracts the one primitive both backends need: block
// until the pin's level changes or an idle timeout elapses.
type edgeSource interface {
	waitLevel(ctx context.Context, timeout time.Duration) (high bool, changed bool, err error)
	close() error
}

// receiverOver drives an edgeSource into a receiver.Receiver. A high
// level is treated as the demodulated carrier present (a Flash); low
// is its absence (a Gap) — the polarity an IR receiver module's
// active-low output inverts into, matching how this project's IRP
// modulation stream is already expressed.
type receiverOver struct {
	src  edgeSource
	caps receiver.Capabilities
	idle time.Duration

	mu        sync.Mutex
	haveLevel bool
	wasHigh   bool
	lastEdge  time.Time
}

func (r *receiverOver) Read(ctx context.Context) ([]match.Token, error) {
	var tokens []match.Token
	for {
		high, changed, err := r.src.waitLevel(ctx, r.idle)
		if err != nil {
			return tokens, err
		}
		now := time.Now()

		r.mu.Lock()
		if !changed {
			r.haveLevel = false
			r.mu.Unlock()
			if len(tokens) > 0 {
				tokens = append(tokens, match.Token{Kind: match.KindGap, Micro: float64(r.idle.Microseconds())})
			}
			return append(tokens, match.Token{Kind: match.KindReset}), nil
		}
		if !r.haveLevel {
			r.haveLevel = true
			r.wasHigh = high
			r.lastEdge = now
			r.mu.Unlock()
			continue // the first observed level has no preceding duration
		}
		kind := match.KindGap
		if r.wasHigh {
			kind = match.KindFlash
		}
		d := now.Sub(r.lastEdge)
		r.wasHigh = high
		r.lastEdge = now
		r.mu.Unlock()

		tokens = append(tokens, match.Token{Kind: kind, Micro: float64(d.Microseconds())})
		if len(tokens) >= 512 {
			return tokens, nil
		}
	}
}

func (r *receiverOver) Capabilities() receiver.Capabilities { return r.caps }

func (r *receiverOver) Close() error { return r.src.close() }

var _ receiver.Receiver = (*receiverOver)(nil)

func baseCapabilities(resolutionUs, timeoutUs float64) receiver.Capabilities {
	return receiver.Capabilities{
		CanReceiveRaw:       true,
		ResolutionUs:        resolutionUs,
		ConfiguredTimeoutUs: timeoutUs,
	}
}

func pinLabel(cfg Config) string {
	if cfg.PinName != "" {
		return cfg.PinName
	}
	return fmt.Sprintf("GPIO%d", cfg.Pin)
}
