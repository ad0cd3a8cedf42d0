//go:build linux

package lircioctl

import "testing"

func TestOpenFailsOnMissingDevice(t *testing.T) {
	if _, err := Open("/dev/does-not-exist-lircioctl-test"); err == nil {
		t.Fatal("expected Open to fail for a nonexistent device path")
	}
}
