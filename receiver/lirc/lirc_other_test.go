//go:build !linux

package lirc

import (
	"context"
	"testing"

	"github.com/irrecv/irrecv/receiver"
)

func TestOpenFailsOnUnsupportedPlatform(t *testing.T) {
	if _, err := Open(Config{Device: "/dev/lirc0"}); err == nil {
		t.Fatal("expected Open to fail on a non-Linux platform")
	}
}

func TestStubReceiverReportsNoCapabilities(t *testing.T) {
	r := &Receiver{}
	if got := r.Capabilities(); got != (receiver.Capabilities{}) {
		t.Errorf("Capabilities() = %+v, want the zero value", got)
	}
	if _, err := r.Read(context.Background()); err == nil {
		t.Fatal("expected Read to fail on a non-Linux platform")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
