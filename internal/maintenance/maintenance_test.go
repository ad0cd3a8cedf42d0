package maintenance

import (
	"os"
	"testing"

	"github.com/irrecv/irrecv/bytecode"
	"github.com/irrecv/irrecv/internal/cache"
	"github.com/irrecv/irrecv/irp"
	"github.com/irrecv/irrecv/kerneldecoder"
	kdmock "github.com/irrecv/irrecv/kerneldecoder/mock"
)

func tempCache(t *testing.T) *cache.Cache {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "irrecvd-maintenance-*.db")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	c, err := cache.Open(tmpFile.Name())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func trivialProgram(t *testing.T, name string) []byte {
	t.Helper()
	p := &bytecode.Program{
		Name:    name,
		Instrs:  []bytecode.Instr{{Op: bytecode.OpReset}},
		Symbols: map[string]int32{},
	}
	return p.Encode()
}

func TestCheckDriftDoesNothingWhenAttachedMatchesExpected(t *testing.T) {
	c := tempCache(t)
	d := kdmock.New()
	prog := trivialProgram(t, "nec1")
	key := cache.Key("src", irp.DefaultOptions("nec1"))
	if err := c.Put(key, "nec1", prog); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := d.AttachBPF(prog); err != nil {
		t.Fatalf("AttachBPF: %v", err)
	}

	driftCalls := 0
	m := New(d, c, func(expected, actual *kerneldecoder.Info) { driftCalls++ })
	m.SetExpected("nec1")
	m.CheckNow()

	if driftCalls != 0 {
		t.Fatalf("onDrift called %d times, want 0 when state matches", driftCalls)
	}
}

func TestCheckDriftFiresAndReattachesWhenCleared(t *testing.T) {
	c := tempCache(t)
	d := kdmock.New()
	prog := trivialProgram(t, "nec1")
	key := cache.Key("src", irp.DefaultOptions("nec1"))
	if err := c.Put(key, "nec1", prog); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var lastExpected, lastActual *kerneldecoder.Info
	m := New(d, c, func(expected, actual *kerneldecoder.Info) {
		lastExpected, lastActual = expected, actual
	})
	m.SetExpected("nec1")
	m.CheckNow()

	if lastExpected == nil || lastExpected.Name != "nec1" {
		t.Fatalf("lastExpected = %+v, want Name=nec1", lastExpected)
	}

	info, err := d.QueryBPF()
	if err != nil {
		t.Fatalf("QueryBPF: %v", err)
	}
	if info == nil || info.Name != "nec1" {
		t.Fatalf("expected CheckNow to reattach nec1, got %+v (lastActual=%+v)", info, lastActual)
	}
}

func TestCheckDriftReportsUnexpectedAttachment(t *testing.T) {
	c := tempCache(t)
	d := kdmock.New()
	prog := trivialProgram(t, "rc5")
	if err := d.AttachBPF(prog); err != nil {
		t.Fatalf("AttachBPF: %v", err)
	}

	var lastActual *kerneldecoder.Info
	m := New(d, c, func(expected, actual *kerneldecoder.Info) { lastActual = actual })
	m.CheckNow()

	if lastActual == nil || lastActual.Name != "rc5" {
		t.Fatalf("lastActual = %+v, want Name=rc5 when nothing was expected", lastActual)
	}
}
