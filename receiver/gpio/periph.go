package gpio

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/irrecv/irrecv/receiver"
)

// NewPeriph opens cfg.PinName via periph.io's gpioreg and returns a
// Receiver driven by its edge-interrupt API. host.Init must succeed
// for the running board's periph.io driver to register the pin.
func NewPeriph(cfg Config) (receiver.Receiver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio: periph.io host.Init: %w", err)
	}
	pin := gpioreg.ByName(cfg.PinName)
	if pin == nil {
		return nil, fmt.Errorf("gpio: no such pin %q", cfg.PinName)
	}
	if err := pin.In(gpio.PullNoChange, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("gpio: %s: In: %w", cfg.PinName, err)
	}
	return &receiverOver{
		src:  &periphSource{pin: pin},
		caps: baseCapabilities(1, float64(idleTimeout(cfg).Microseconds())),
		idle: idleTimeout(cfg),
	}, nil
}

type periphSource struct {
	pin gpio.PinIO
}

func (s *periphSource) waitLevel(ctx context.Context, timeout time.Duration) (bool, bool, error) {
	done := make(chan bool, 1)
	go func() {
		done <- s.pin.WaitForEdge(timeout)
	}()
	select {
	case <-ctx.Done():
		return false, false, ctx.Err()
	case changed := <-done:
		return bool(s.pin.Read()), changed, nil
	}
}

func (s *periphSource) close() error {
	return nil
}
