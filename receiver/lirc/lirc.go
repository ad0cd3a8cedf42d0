// Package lirc implements receiver.Receiver over the Linux lirc
// character device (/dev/lirc0 and friends), reading raw mode2 pulse/
// space/timeout/overflow events via the ioctls the kernel driver
// exposes. The ioctl numbers and mode2 event encoding below come from
// the kernel's public linux/lirc.h UAPI header, not anything private
// to a particular driver.
//
// The real ioctl call sites live in lirc_linux.go, built only on
// linux; every other GOOS gets lirc_other.go's stub, which reports no
// capabilities and fails to open. Per this project's external
// interfaces, a kernel character-device binding is a deployment
// detail the core decoder never needs to know about directly — this
// package exists only so a daemon built for Linux has somewhere to
// get real tokens from.
package lirc

// Config selects which lirc device to open and how to configure it.
type Config struct {
	// Device is the character device path, e.g. "/dev/lirc0".
	Device string
	// TimeoutUs, if non-zero, is pushed to the driver via
	// LIRC_SET_REC_TIMEOUT so the kernel itself reports a Gap-ended
	// batch after this much silence, rather than relying purely on a
	// max_gap computed in software.
	TimeoutUs uint32
	// MeasureCarrier requests LIRC_SET_MEASURE_CARRIER_MODE when the
	// device supports it.
	MeasureCarrier bool
	// Wideband requests LIRC_SET_WIDEBAND_RECEIVER when the device
	// supports it.
	Wideband bool
}
