package gpio

import (
	"context"
	"testing"
	"time"

	"github.com/irrecv/irrecv/match"
)

// fakeSource replays a scripted sequence of levels, one per
// waitLevel call, then reports a timeout.
type fakeSource struct {
	levels []bool
	i      int
	closed bool
}

func (f *fakeSource) waitLevel(ctx context.Context, timeout time.Duration) (bool, bool, error) {
	if f.i >= len(f.levels) {
		return false, false, nil
	}
	lvl := f.levels[f.i]
	f.i++
	return lvl, true, nil
}

func (f *fakeSource) close() error {
	f.closed = true
	return nil
}

func TestReadTranslatesLevelChangesToFlashAndGap(t *testing.T) {
	src := &fakeSource{levels: []bool{true, false, true, false}}
	r := &receiverOver{src: src, idle: 10 * time.Millisecond}

	tokens, err := r.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	// First level only starts the clock; the next three transitions
	// each produce one timed token, then the timeout appends a final
	// Gap + Reset.
	if len(tokens) < 3 {
		t.Fatalf("tokens = %+v, want at least 3 entries", tokens)
	}
	if tokens[0].Kind != match.KindFlash {
		t.Errorf("tokens[0].Kind = %v, want KindFlash (high ended first)", tokens[0].Kind)
	}
	if tokens[1].Kind != match.KindGap {
		t.Errorf("tokens[1].Kind = %v, want KindGap", tokens[1].Kind)
	}
	last := tokens[len(tokens)-1]
	if last.Kind != match.KindReset {
		t.Errorf("final token = %+v, want KindReset", last)
	}
}

func TestReadReturnsBareResetWhenNoTransitionsObserved(t *testing.T) {
	src := &fakeSource{levels: nil}
	r := &receiverOver{src: src, idle: time.Millisecond}

	tokens, err := r.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Kind != match.KindReset {
		t.Fatalf("tokens = %+v, want a single Reset", tokens)
	}
}

func TestCloseDelegatesToSource(t *testing.T) {
	src := &fakeSource{}
	r := &receiverOver{src: src}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !src.closed {
		t.Error("expected Close to delegate to the underlying edgeSource")
	}
}

func TestPinLabelPrefersExplicitName(t *testing.T) {
	if got := pinLabel(Config{PinName: "GPIO27"}); got != "GPIO27" {
		t.Errorf("pinLabel = %q, want GPIO27", got)
	}
	if got := pinLabel(Config{Pin: 17}); got != "GPIO17" {
		t.Errorf("pinLabel = %q, want GPIO17", got)
	}
}
