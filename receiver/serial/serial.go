// Package serial implements receiver.Receiver over a USB/serial
// infrared dongle (in the mold of an IguanaIR-style receiver) that
// streams one signed-duration rawir line per edge, with a blank line
// marking the end of a batch. Reusing package rawir's signed-duration
// parser here means this backend and the rawir CLI path share the
// exact same token grammar instead of each growing their own.
package serial

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/irrecv/irrecv/match"
	"github.com/irrecv/irrecv/rawir"
	"github.com/irrecv/irrecv/receiver"
)

// Config names the device and its serial framing.
type Config struct {
	Port     string
	BaudRate int
}

func (cfg Config) mode() *serial.Mode {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = 115200
	}
	return &serial.Mode{BaudRate: baud, DataBits: 8, StopBits: serial.OneStopBit, Parity: serial.NoParity}
}

// Receiver reads newline-delimited rawir lines from a serial port, via
// a background goroutine feeding a channel so Read can select on ctx
// cancellation without blocking the whole process on a slow port.
type Receiver struct {
	port    serial.Port
	portStr string
	caps    receiver.Capabilities

	lines chan string
	errs  chan error

	closeOnce sync.Once
}

// Open opens cfg.Port at cfg's baud rate and starts the background
// line reader.
func Open(cfg Config) (*Receiver, error) {
	port, err := serial.Open(cfg.Port, cfg.mode())
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(time.Second); err != nil {
		port.Close()
		return nil, fmt.Errorf("serial: %s: SetReadTimeout: %w", cfg.Port, err)
	}

	r := &Receiver{
		port:    port,
		portStr: cfg.Port,
		lines:   make(chan string, 64),
		errs:    make(chan error, 1),
		caps: receiver.Capabilities{
			CanReceiveRaw: true,
			ResolutionUs:  1,
		},
	}
	go r.readLoop()
	return r, nil
}

func (r *Receiver) readLoop() {
	br := bufio.NewReader(r.port)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			r.lines <- strings.TrimRight(line, "\r\n")
		}
		if err != nil {
			r.errs <- fmt.Errorf("serial: %s: %w", r.portStr, err)
			close(r.lines)
			return
		}
	}
}

// Read accumulates lines until a blank line ends the batch, an error
// from the background reader arrives, or ctx is cancelled; it then
// parses the accumulated block through rawir's signed-duration
// grammar.
func (r *Receiver) Read(ctx context.Context) ([]match.Token, error) {
	var block strings.Builder
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err := <-r.errs:
			if block.Len() > 0 {
				return rawir.Parse(block.String())
			}
			return nil, err
		case line, ok := <-r.lines:
			if !ok {
				if block.Len() > 0 {
					return rawir.Parse(block.String())
				}
				return nil, fmt.Errorf("serial: port closed")
			}
			if strings.TrimSpace(line) == "" {
				if block.Len() == 0 {
					continue // tolerate blank lines between batches
				}
				return rawir.Parse(block.String())
			}
			block.WriteString(line)
			block.WriteByte('\n')
		}
	}
}

// Capabilities returns what Open configured.
func (r *Receiver) Capabilities() receiver.Capabilities { return r.caps }

// Close closes the underlying serial port; the background reader
// exits on its next read error.
func (r *Receiver) Close() error {
	var err error
	r.closeOnce.Do(func() { err = r.port.Close() })
	return err
}

var _ receiver.Receiver = (*Receiver)(nil)
