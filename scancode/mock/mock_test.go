package mock

import "testing"

func TestUpdateScancodeRecordsBinding(t *testing.T) {
	r := New()
	if err := r.UpdateScancode(116, 0x1234); err != nil {
		t.Fatalf("UpdateScancode: %v", err)
	}
	if got := r.Table()[116]; got != 0x1234 {
		t.Errorf("Table()[116] = %#x, want 0x1234", got)
	}
}

func TestClearScancodesEmptiesTableAndCounts(t *testing.T) {
	r := New()
	r.UpdateScancode(1, 1)
	r.UpdateScancode(2, 2)
	if err := r.ClearScancodes(); err != nil {
		t.Fatalf("ClearScancodes: %v", err)
	}
	if len(r.Table()) != 0 {
		t.Errorf("Table() = %v, want empty", r.Table())
	}
	if r.Clears() != 1 {
		t.Errorf("Clears() = %d, want 1", r.Clears())
	}
}

func TestSetEnabledProtocolsRecordsIndices(t *testing.T) {
	r := New()
	if err := r.SetEnabledProtocols([]int{0, 2, 5}); err != nil {
		t.Fatalf("SetEnabledProtocols: %v", err)
	}
	got := r.Enabled()
	want := []int{0, 2, 5}
	if len(got) != len(want) {
		t.Fatalf("Enabled() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Enabled()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
