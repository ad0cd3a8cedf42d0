//go:build linux

package lirc

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/irrecv/irrecv/match"
	"github.com/irrecv/irrecv/receiver"
)

// lirc.h ioctl numbers: _IOR('i', nr, sizeof(__u32)) and
// _IOW('i', nr, sizeof(__u32)), computed the same way the kernel's
// _IOC macro does (direction<<30 | size<<16 | 'i'<<8 | nr).
const (
	iocDirRead  = 2 << 30
	iocDirWrite = 1 << 30
	iocType     = 'i' << 8
	iocSize4    = 4 << 16

	lircGetFeatures     = iocDirRead | iocSize4 | iocType | 0x00
	lircGetRecResolut   = iocDirRead | iocSize4 | iocType | 0x07
	lircGetMinTimeout   = iocDirRead | iocSize4 | iocType | 0x08
	lircGetMaxTimeout   = iocDirRead | iocSize4 | iocType | 0x09
	lircSetRecMode      = iocDirWrite | iocSize4 | iocType | 0x12
	lircSetRecCarrier   = iocDirWrite | iocSize4 | iocType | 0x14
	lircSetRecTimeout   = iocDirWrite | iocSize4 | iocType | 0x18
	lircSetMeasureMode  = iocDirWrite | iocSize4 | iocType | 0x1d
	lircSetWideband     = iocDirWrite | iocSize4 | iocType | 0x23
	lircModeMode2       = 0x00000004
	lircCanRecMode2Bit  = lircModeMode2 << 16
	lircCanMeasureBit   = 0x02000000
	lircCanWidebandBit  = 0x04000000
	lircModeMask        = 0xff000000
	lircValueMask       = 0x00ffffff
	lircModeSpace       = 0x00000000
	lircModePulse       = 0x01000000
	lircModeFrequency   = 0x02000000
	lircModeTimeout     = 0x03000000
	lircModeOverflow    = 0x04000000 // reported by newer kernels; older ones just drop the batch
)

// Receiver reads mode2 events from a Linux lirc character device.
type Receiver struct {
	f    *os.File
	caps receiver.Capabilities

	mu     sync.Mutex
	closed bool
}

// Open opens cfg.Device, queries its capabilities, and applies the
// requested timeout/carrier-measurement/wideband settings where the
// device supports them.
func Open(cfg Config) (*Receiver, error) {
	f, err := os.OpenFile(cfg.Device, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("lirc: open %s: %w", cfg.Device, err)
	}
	fd := int(f.Fd())

	features, err := unix.IoctlGetUint32(fd, lircGetFeatures)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("lirc: %s: LIRC_GET_FEATURES: %w", cfg.Device, err)
	}
	if features&lircCanRecMode2Bit == 0 {
		f.Close()
		return nil, fmt.Errorf("lirc: %s: device does not support raw mode2 receive", cfg.Device)
	}
	if err := unix.IoctlSetInt(fd, lircSetRecMode, lircModeMode2); err != nil {
		f.Close()
		return nil, fmt.Errorf("lirc: %s: LIRC_SET_REC_MODE: %w", cfg.Device, err)
	}

	caps := receiver.Capabilities{
		CanReceiveRaw:     true,
		CanMeasureCarrier: features&lircCanMeasureBit != 0,
		CanUseWideband:    features&lircCanWidebandBit != 0,
	}
	if res, err := unix.IoctlGetUint32(fd, lircGetRecResolut); err == nil {
		caps.ResolutionUs = float64(res)
	}

	if cfg.TimeoutUs != 0 {
		if err := unix.IoctlSetInt(fd, lircSetRecTimeout, int(cfg.TimeoutUs)); err == nil {
			caps.ConfiguredTimeoutUs = float64(cfg.TimeoutUs)
		}
	}
	if cfg.MeasureCarrier && caps.CanMeasureCarrier {
		_ = unix.IoctlSetInt(fd, lircSetMeasureMode, 1)
	}
	if cfg.Wideband && caps.CanUseWideband {
		_ = unix.IoctlSetInt(fd, lircSetWideband, 1)
	}

	return &Receiver{f: f, caps: caps}, nil
}

// Read performs one blocking read of the device and translates each
// returned mode2 event into a Token. LIRC_MODE2_TIMEOUT becomes a Gap
// immediately followed by a Reset (the kernel is telling us the
// protocol's idle period elapsed); an overflow indication drops
// whatever partial batch was read and reports a bare Reset, since a
// lost edge makes the rest of the batch's timing untrustworthy.
func (r *Receiver) Read(ctx context.Context) ([]match.Token, error) {
	buf := make([]byte, 4*128)
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := r.f.Read(buf)
		done <- result{n, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("lirc: read: %w", res.err)
		}
		return decodeMode2(buf[:res.n]), nil
	}
}

func decodeMode2(buf []byte) []match.Token {
	var tokens []match.Token
	for off := 0; off+4 <= len(buf); off += 4 {
		raw := binary.LittleEndian.Uint32(buf[off : off+4])
		mode := raw & lircModeMask
		value := float64(raw & lircValueMask)
		switch mode {
		case lircModePulse:
			tokens = append(tokens, match.Token{Kind: match.KindFlash, Micro: value})
		case lircModeSpace:
			tokens = append(tokens, match.Token{Kind: match.KindGap, Micro: value})
		case lircModeTimeout:
			tokens = append(tokens, match.Token{Kind: match.KindGap, Micro: value}, match.Token{Kind: match.KindReset})
		case lircModeOverflow:
			return []match.Token{{Kind: match.KindReset}}
		case lircModeFrequency:
			// carrier-frequency report, not a timing edge; ignored here.
		}
	}
	return tokens
}

// Capabilities returns what Open discovered about the device.
func (r *Receiver) Capabilities() receiver.Capabilities { return r.caps }

// Close closes the underlying device file.
func (r *Receiver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.f.Close()
}

var _ receiver.Receiver = (*Receiver)(nil)
