package introspect

import (
	"testing"
	"time"
)

func TestBroadcastLogAdaptsLoggerSignature(t *testing.T) {
	h := NewHub()
	go h.Run()

	ch := make(chan Message, 1)
	client := &Client{ID: "test-client", Send: ch, Hub: h}
	h.register <- client
	// give the Run goroutine a moment to process registration
	time.Sleep(10 * time.Millisecond)

	h.BroadcastLog("info", "decode ok", "irrecvd", map[string]interface{}{"receiver": "lirc0"})

	select {
	case msg := <-ch:
		if msg.Type != MessageTypeLog {
			t.Fatalf("Type = %q, want %q", msg.Type, MessageTypeLog)
		}
		if msg.Data["message"] != "decode ok" {
			t.Fatalf("Data[message] = %v, want %q", msg.Data["message"], "decode ok")
		}
		if msg.Data["receiver"] != "lirc0" {
			t.Fatalf("Data[receiver] = %v, want lirc0", msg.Data["receiver"])
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestClientCountReflectsRegistrations(t *testing.T) {
	h := NewHub()
	go h.Run()

	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d, want 0", h.ClientCount())
	}

	client := &Client{ID: "c1", Send: make(chan Message, 1), Hub: h}
	h.register <- client
	time.Sleep(10 * time.Millisecond)

	if h.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", h.ClientCount())
	}

	h.unregister <- client
	time.Sleep(10 * time.Millisecond)

	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d, want 0 after unregister", h.ClientCount())
	}
}
