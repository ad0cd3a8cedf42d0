package irdbsync

import "testing"

func TestConfigAddrDefaultsPort(t *testing.T) {
	c := Config{Host: "mirror.example.org"}
	got := c.addr()
	want := "mirror.example.org:21"
	if got != want {
		t.Fatalf("addr() = %q, want %q", got, want)
	}
}

func TestConfigAddrHonorsExplicitPort(t *testing.T) {
	c := Config{Host: "mirror.example.org", Port: 2121}
	got := c.addr()
	want := "mirror.example.org:2121"
	if got != want {
		t.Fatalf("addr() = %q, want %q", got, want)
	}
}

func TestSyncRejectsUnreachableHost(t *testing.T) {
	// Nothing listens on local port 1; Dial should fail fast rather
	// than hang, exercising the wrapped connect-error path.
	_, err := Sync(Config{Host: "127.0.0.1", Port: 1}, t.TempDir())
	if err == nil {
		t.Fatal("expected Sync to fail against an unreachable host")
	}
}
