// Package mock provides an in-memory receiver.Receiver for tests and
// for the daemon's offline decode mode, where tokens come from a
// rawir file or a scripted test case rather than real hardware.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/irrecv/irrecv/match"
	"github.com/irrecv/irrecv/receiver"
)

// ErrClosed is returned by Read once Close has been called and the
// queue has drained.
var ErrClosed = errors.New("mock: receiver is closed")

// Receiver replays a queue of pre-recorded token batches. Feed
// enqueues a batch; Read pops the oldest queued batch, blocking until
// one is available, the receiver is closed, or ctx is cancelled.
type Receiver struct {
	caps    receiver.Capabilities
	batches chan []match.Token
	closed  chan struct{}
	once    sync.Once
}

// New returns a Receiver reporting the given capabilities with an
// initially empty queue.
func New(caps receiver.Capabilities) *Receiver {
	return &Receiver{
		caps:    caps,
		batches: make(chan []match.Token, 256),
		closed:  make(chan struct{}),
	}
}

// Feed enqueues a batch of tokens for a future Read call to return.
// It does not check for Close: a batch fed after Close is still
// returned by a later Read before ErrClosed is reported.
func (r *Receiver) Feed(batch []match.Token) {
	r.batches <- batch
}

// Read returns the oldest queued batch, blocking until one is fed,
// the receiver is closed, or ctx is cancelled.
func (r *Receiver) Read(ctx context.Context) ([]match.Token, error) {
	select {
	case b := <-r.batches:
		return b, nil
	case <-r.closed:
		select {
		case b := <-r.batches:
			return b, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Capabilities returns the capabilities New was given.
func (r *Receiver) Capabilities() receiver.Capabilities { return r.caps }

// Close wakes any blocked Read once the queue drains; it is safe to
// call more than once.
func (r *Receiver) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

var _ receiver.Receiver = (*Receiver)(nil)
