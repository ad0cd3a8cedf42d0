//go:build !linux

package main

import (
	"github.com/irrecv/irrecv/kerneldecoder"
	"github.com/irrecv/irrecv/kerneldecoder/mock"
)

// newDecoder has no ioctl-based decoder to attach outside Linux, so
// every non-Linux build runs entirely on the streaming software
// Matcher via the record-and-replay mock, mirroring hal_init_other.go.
func newDecoder(devicePath string) kerneldecoder.Decoder {
	return mock.New()
}
