//go:build linux

// Package lircioctl implements kerneldecoder.Decoder by attaching a
// compiled bytecode.Program to a Linux lirc character device's BPF
// decoder slot. There is no single standardized ioctl for this across
// kernel versions the way LIRC_GET_FEATURES/LIRC_SET_REC_MODE are
// standardized; this package targets the same device-file-plus-ioctl
// shape those calls use, behind a small set of driver-specific ioctl
// numbers a real deployment would set via build configuration. Like
// the real ioctl bindings package receiver/lirc calls out, the exact
// numbers are a deployment detail outside this module's core scope;
// what's pinned here is the call shape real callers need:
// write-program, clear, query.
package lircioctl

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/irrecv/irrecv/bytecode"
	"github.com/irrecv/irrecv/kerneldecoder"
)

// Ioctl numbers for the BPF decoder slot, in the same _IOC encoding
// receiver/lirc uses for the standard lirc.h ones. These are this
// project's own extension numbers (type 'b' rather than lirc.h's
// 'i'), not upstream kernel UAPI.
const (
	iocDirNone  = 0
	iocDirWrite = 1 << 30
	iocDirRead  = 2 << 30
	iocType     = 'b' << 8
	iocSize4    = 4 << 16

	bpfClear  = iocDirNone | iocType | 0x01
	bpfAttach = iocDirWrite | iocSize4 | iocType | 0x02 // arg: length of the program about to be written
	bpfQuery  = iocDirRead | iocSize4 | iocType | 0x03  // arg out: 1 if a program is attached, 0 otherwise
)

// Decoder attaches bytecode programs to a single lirc device's BPF
// decoder slot.
type Decoder struct {
	path string

	mu      sync.Mutex
	current *bytecode.Program
}

// Open opens devicePath (e.g. "/dev/lirc0") for ioctl/write access.
func Open(devicePath string) (*Decoder, error) {
	f, err := os.OpenFile(devicePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("lircioctl: open %s: %w", devicePath, err)
	}
	defer f.Close()
	return &Decoder{path: devicePath}, nil
}

func (d *Decoder) withFD(fn func(fd int) error) error {
	f, err := os.OpenFile(d.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("lircioctl: open %s: %w", d.path, err)
	}
	defer f.Close()
	return fn(int(f.Fd()))
}

// ClearBPF detaches whatever program is currently running.
func (d *Decoder) ClearBPF() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.withFD(func(fd int) error {
		return unix.IoctlSetInt(fd, bpfClear, 0)
	}); err != nil {
		return fmt.Errorf("lircioctl: %s: clear: %w", d.path, err)
	}
	d.current = nil
	return nil
}

// AttachBPF decodes program (to validate it and recover its name for
// QueryBPF) then pushes it to the device: an ioctl announcing the
// byte length, followed by a plain write of the bytes themselves.
func (d *Decoder) AttachBPF(program []byte) error {
	p, err := bytecode.Decode(program)
	if err != nil {
		return fmt.Errorf("lircioctl: attach: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.withFD(func(fd int) error {
		if err := unix.IoctlSetInt(fd, bpfAttach, len(program)); err != nil {
			return fmt.Errorf("announcing length: %w", err)
		}
		if _, err := unix.Write(fd, program); err != nil {
			return fmt.Errorf("writing program: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("lircioctl: %s: %w", d.path, err)
	}
	d.current = p
	return nil
}

// QueryBPF reports the program currently attached, if any. The device
// is asked first (so a program attached by a different process is
// reflected) and falls back to this Decoder's own cached state if the
// device can't answer the query itself.
func (d *Decoder) QueryBPF() (*kerneldecoder.Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var attached int
	err := d.withFD(func(fd int) error {
		v, err := unix.IoctlGetInt(fd, bpfQuery)
		attached = v
		return err
	})
	if err != nil {
		if d.current == nil {
			return nil, nil
		}
		return &kerneldecoder.Info{Name: d.current.Name}, nil
	}
	if attached == 0 {
		return nil, nil
	}
	if d.current == nil {
		return &kerneldecoder.Info{}, nil
	}
	return &kerneldecoder.Info{Name: d.current.Name}, nil
}

var _ kerneldecoder.Decoder = (*Decoder)(nil)
