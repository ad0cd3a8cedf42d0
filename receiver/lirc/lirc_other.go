//go:build !linux

package lirc

import (
	"context"
	"fmt"

	"github.com/irrecv/irrecv/match"
	"github.com/irrecv/irrecv/receiver"
)

// Receiver is a stand-in on platforms without a lirc character device.
// Open and Read fail, so a misconfigured non-Linux build surfaces the
// mistake at startup instead of at the first missing decode;
// Capabilities reports none and Close does nothing.
type Receiver struct{}

// Open always fails: there is no lirc device to open outside Linux.
func Open(cfg Config) (*Receiver, error) {
	return nil, fmt.Errorf("lirc: %s: lirc character devices are not supported on this platform", cfg.Device)
}

func (r *Receiver) Read(ctx context.Context) ([]match.Token, error) {
	return nil, fmt.Errorf("lirc: not supported on this platform")
}

func (r *Receiver) Capabilities() receiver.Capabilities { return receiver.Capabilities{} }

func (r *Receiver) Close() error { return nil }

var _ receiver.Receiver = (*Receiver)(nil)
