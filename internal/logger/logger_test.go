package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestDefaultConfigHasSaneValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Fatalf("DefaultConfig().Level = %q, want info", cfg.Level)
	}
	if cfg.LogDir == "" {
		t.Fatal("DefaultConfig().LogDir should not be empty")
	}
	if cfg.MaxBackups <= 0 {
		t.Fatalf("DefaultConfig().MaxBackups = %d, want > 0", cfg.MaxBackups)
	}
}

func TestInitWithoutLogDirSkipsFileCore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogDir = ""
	if err := Init(cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Get() == nil {
		t.Fatal("Get() returned nil after Init")
	}
}

func TestGetFallsBackBeforeInit(t *testing.T) {
	mu.Lock()
	saved := globalLogger
	globalLogger = nil
	mu.Unlock()
	defer func() {
		mu.Lock()
		globalLogger = saved
		mu.Unlock()
	}()

	if Get() == nil {
		t.Fatal("Get() should fall back to a development logger, not nil")
	}
}

func TestSetBroadcasterReceivesLogEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogDir = ""
	if err := Init(cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}

	type captured struct {
		level, message, source string
		fields                 map[string]interface{}
	}
	ch := make(chan captured, 1)
	SetBroadcaster(func(level, message, source string, fields map[string]interface{}) {
		select {
		case ch <- captured{level, message, source, fields}:
		default:
		}
	})
	defer SetBroadcaster(nil)

	WithReceiver("lirc0").Info("decode event", zap.Int64("scancode", 42))
	got := <-ch
	if got.message != "decode event" {
		t.Fatalf("broadcast message = %q, want %q", got.message, "decode event")
	}
	if got.fields["receiver"] != "lirc0" {
		t.Fatalf("broadcast fields = %+v, want receiver=lirc0", got.fields)
	}
}

func TestWithReceiverProtocolAttachesBothFields(t *testing.T) {
	l := WithReceiverProtocol("lirc0", "nec1")
	if l == nil {
		t.Fatal("WithReceiverProtocol returned nil")
	}
}
