package mock

import (
	"testing"

	"github.com/irrecv/irrecv/bytecode"
)

func trivialProgram(t *testing.T) []byte {
	t.Helper()
	p := &bytecode.Program{
		Name:    "TEST",
		Instrs:  []bytecode.Instr{{Op: bytecode.OpReset}},
		Symbols: map[string]int32{},
	}
	return p.Encode()
}

func TestQueryBPFReportsNilBeforeAttach(t *testing.T) {
	d := New()
	info, err := d.QueryBPF()
	if err != nil {
		t.Fatalf("QueryBPF: %v", err)
	}
	if info != nil {
		t.Fatalf("QueryBPF() = %+v, want nil before any AttachBPF", info)
	}
}

func TestAttachBPFThenQueryBPFReportsName(t *testing.T) {
	d := New()
	if err := d.AttachBPF(trivialProgram(t)); err != nil {
		t.Fatalf("AttachBPF: %v", err)
	}
	info, err := d.QueryBPF()
	if err != nil {
		t.Fatalf("QueryBPF: %v", err)
	}
	if info == nil || info.Name != "TEST" {
		t.Fatalf("QueryBPF() = %+v, want Name=TEST", info)
	}
}

func TestClearBPFResetsToNil(t *testing.T) {
	d := New()
	if err := d.AttachBPF(trivialProgram(t)); err != nil {
		t.Fatalf("AttachBPF: %v", err)
	}
	if err := d.ClearBPF(); err != nil {
		t.Fatalf("ClearBPF: %v", err)
	}
	info, err := d.QueryBPF()
	if err != nil {
		t.Fatalf("QueryBPF: %v", err)
	}
	if info != nil {
		t.Fatalf("QueryBPF() = %+v, want nil after ClearBPF", info)
	}
}

func TestAttachBPFRejectsGarbage(t *testing.T) {
	d := New()
	if err := d.AttachBPF([]byte("not a program")); err == nil {
		t.Fatal("expected AttachBPF to reject undecodable bytes")
	}
}
