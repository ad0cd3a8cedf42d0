package archive

import "testing"

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(Config{Region: "us-east-1"}); err == nil {
		t.Fatal("expected New to fail without a bucket configured")
	}
}

func TestKeyJoinsPrefixDeviceAndName(t *testing.T) {
	a := &Archive{bucket: "fleet", prefix: "irrecvd"}
	got := a.key("lirc0", "nec1", ".bpf")
	want := "irrecvd/lirc0/nec1/nec1.bpf"
	if got != want {
		t.Fatalf("key() = %q, want %q", got, want)
	}
}

func TestKeyWithoutPrefix(t *testing.T) {
	a := &Archive{bucket: "fleet"}
	got := a.key("lirc0", "nec1", ".dot")
	want := "lirc0/nec1/nec1.dot"
	if got != want {
		t.Fatalf("key() = %q, want %q", got, want)
	}
}
