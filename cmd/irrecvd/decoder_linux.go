//go:build linux

package main

import (
	"github.com/irrecv/irrecv/internal/logger"
	"github.com/irrecv/irrecv/kerneldecoder"
	"github.com/irrecv/irrecv/kerneldecoder/lircioctl"
	"github.com/irrecv/irrecv/kerneldecoder/mock"
	"go.uber.org/zap"
)

// newDecoder opens the lirc character device's BPF decoder slot.
// Falling back to the record-and-replay mock on open failure (missing
// device, insufficient permissions) keeps the daemon running in
// software-only mode rather than refusing to start, the same
// graceful-degradation shape hal_init_linux.go uses for GPIO.
func newDecoder(devicePath string) kerneldecoder.Decoder {
	d, err := lircioctl.Open(devicePath)
	if err != nil {
		logger.Warn("kernel decoder unavailable, falling back to software matcher",
			zap.String("device", devicePath), zap.Error(err))
		return mock.New()
	}
	return d
}
