package gpio

import (
	"context"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/irrecv/irrecv/receiver"
)

// pollInterval bounds the software timing resolution RPIPoll can
// offer: tighter than this and the polling loop itself dominates the
// measurement error.
const pollInterval = 10 * time.Microsecond

// NewRPIPoll opens rpio and returns a Receiver that busy-polls
// cfg.Pin, for boards where go-rpio's direct register access works
// but periph.io has no driver (the same fallback relationship the
// rest of this codebase's GPIO story already has between the two).
func NewRPIPoll(cfg Config) (receiver.Receiver, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}
	pin := rpio.Pin(cfg.Pin)
	pin.Input()
	return &receiverOver{
		src:  &rpioSource{pin: pin},
		caps: baseCapabilities(float64(pollInterval.Microseconds()), float64(idleTimeout(cfg).Microseconds())),
		idle: idleTimeout(cfg),
	}, nil
}

type rpioSource struct {
	pin     rpio.Pin
	lastSet bool
	have    bool
}

func (s *rpioSource) waitLevel(ctx context.Context, timeout time.Duration) (bool, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		high := s.pin.Read() == rpio.High
		if !s.have {
			s.have = true
			s.lastSet = high
			return high, true, nil
		}
		if high != s.lastSet {
			s.lastSet = high
			return high, true, nil
		}
		if time.Now().After(deadline) {
			return high, false, nil
		}
		select {
		case <-ctx.Done():
			return high, false, ctx.Err()
		default:
		}
		time.Sleep(pollInterval)
	}
}

func (s *rpioSource) close() error {
	return rpio.Close()
}
