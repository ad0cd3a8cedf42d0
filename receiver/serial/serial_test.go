package serial

import (
	"context"
	"testing"
	"time"

	"github.com/irrecv/irrecv/match"
	"github.com/irrecv/irrecv/receiver"
)

func newTestReceiver() *Receiver {
	return &Receiver{
		caps:  receiver.Capabilities{CanReceiveRaw: true, ResolutionUs: 1},
		lines: make(chan string, 16),
		errs:  make(chan error, 1),
	}
}

func TestReadParsesBlockOnBlankLine(t *testing.T) {
	r := newTestReceiver()
	r.lines <- "+9024 -4512"
	r.lines <- "+564 -1692"
	r.lines <- ""

	tokens, err := r.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []match.Token{
		{Kind: match.KindFlash, Micro: 9024},
		{Kind: match.KindGap, Micro: 4512},
		{Kind: match.KindFlash, Micro: 564},
		{Kind: match.KindGap, Micro: 1692},
	}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %+v, want %+v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("tokens[%d] = %+v, want %+v", i, tokens[i], want[i])
		}
	}
}

func TestReadParsesBlockOnChannelClose(t *testing.T) {
	r := newTestReceiver()
	r.lines <- "+100 -200"
	close(r.lines)

	tokens, err := r.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("tokens = %+v, want 2 entries", tokens)
	}
}

func TestReadReturnsErrorFromBackgroundReader(t *testing.T) {
	r := newTestReceiver()
	wantErr := context.DeadlineExceeded
	r.errs <- wantErr

	if _, err := r.Read(context.Background()); err != wantErr {
		t.Fatalf("Read = %v, want %v", err, wantErr)
	}
}

func TestReadRespectsContextCancellation(t *testing.T) {
	r := newTestReceiver()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := r.Read(ctx); err == nil {
		t.Fatal("expected Read to return once ctx is done")
	}
}

func TestReadTreatsLeadingBlankLinesAsSeparators(t *testing.T) {
	r := newTestReceiver()
	r.lines <- ""
	r.lines <- ""
	r.lines <- "+100 -200"
	r.lines <- ""

	tokens, err := r.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("tokens = %+v, want 2 entries", tokens)
	}
}
