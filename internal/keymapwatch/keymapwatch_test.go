package keymapwatch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const sampleLircdConf = `
begin remote

  name  NECX1
  flags SPACE_ENC|CONST_LENGTH
  eps            30
  aeps          100
  bits            8

  header       9000  4500
  one           560  1690
  zero          560   560
  ptrail        560
  gap          108000
  toggle_bit_mask 0x0

  begin codes
      KEY_POWER                0x07
      KEY_VOLUMEUP             0x0C
  end codes

end remote
`

const sampleKeymap = `
[[protocols]]
name = "living_room_tv"
protocol = "nec1"

[protocols.options]
max_gap = 108000
aeps = 100
eps = 3

[protocols.scancodes]
"0x04" = "power"
`

func TestHandleFileCompilesLircdConf(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "necx1.lircd.conf")
	if err := os.WriteFile(path, []byte(sampleLircdConf), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var mu sync.Mutex
	var got []Compiled
	w := &Watcher{dir: dir, publish: func(c Compiled) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, c)
	}}
	w.handleFile(path)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected 1 compiled protocol, got %d", len(got))
	}
	if got[0].Program == nil {
		t.Fatal("expected a non-nil compiled bytecode program")
	}
}

func TestHandleFileCompilesKeymapToml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "living_room.toml")
	if err := os.WriteFile(path, []byte(sampleKeymap), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var got []Compiled
	w := &Watcher{dir: dir, publish: func(c Compiled) {
		got = append(got, c)
	}}
	w.handleFile(path)

	if len(got) != 1 {
		t.Fatalf("expected 1 compiled protocol, got %d", len(got))
	}
	if got[0].Name != "living_room_tv" {
		t.Fatalf("Name = %q, want living_room_tv", got[0].Name)
	}
}

func TestHandleFileIgnoresUnrelatedExtensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readme.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var got []Compiled
	w := &Watcher{dir: dir, publish: func(c Compiled) {
		got = append(got, c)
	}}
	w.handleFile(path)

	if len(got) != 0 {
		t.Fatalf("expected 0 compiled protocols for an unrelated file, got %d", len(got))
	}
}

func TestStartPicksUpFileCreatedAfterStart(t *testing.T) {
	dir := t.TempDir()

	ch := make(chan Compiled, 1)
	w, err := New(dir, func(c Compiled) {
		select {
		case ch <- c:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	go w.Start()

	path := filepath.Join(dir, "necx1.lircd.conf")
	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(path, []byte(sampleLircdConf), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case c := <-ch:
		if c.Program == nil {
			t.Fatal("expected a compiled program")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fsnotify to report the new file")
	}
}
