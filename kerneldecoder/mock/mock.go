// Package mock provides a record-and-replay kerneldecoder.Decoder for
// tests and for running the daemon without real kernel attachment.
package mock

import (
	"sync"

	"github.com/irrecv/irrecv/bytecode"
	"github.com/irrecv/irrecv/kerneldecoder"
)

// Decoder keeps the most recently attached program in memory and
// decodes its name back out via bytecode.Decode, so QueryBPF can
// report real program metadata instead of a canned value.
type Decoder struct {
	mu      sync.Mutex
	current *bytecode.Program
}

// New returns a Decoder with nothing attached.
func New() *Decoder {
	return &Decoder{}
}

func (d *Decoder) ClearBPF() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = nil
	return nil
}

func (d *Decoder) AttachBPF(program []byte) error {
	p, err := bytecode.Decode(program)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = p
	return nil
}

func (d *Decoder) QueryBPF() (*kerneldecoder.Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return nil, nil
	}
	return &kerneldecoder.Info{Name: d.current.Name}, nil
}

var _ kerneldecoder.Decoder = (*Decoder)(nil)
