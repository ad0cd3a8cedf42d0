// Package mock provides an in-memory scancode.Registry for tests and
// for running the daemon without a kernel input device attached.
package mock

import (
	"sync"

	"github.com/irrecv/irrecv/scancode"
)

// Registry records every call it receives, so tests can assert on the
// resulting table instead of needing a real kernel input device.
type Registry struct {
	mu      sync.Mutex
	table   map[int]uint64
	enabled []int
	clears  int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{table: make(map[int]uint64)}
}

func (r *Registry) UpdateScancode(keycode int, sc uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table[keycode] = sc
	return nil
}

func (r *Registry) ClearScancodes() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table = make(map[int]uint64)
	r.clears++
	return nil
}

func (r *Registry) SetEnabledProtocols(indices []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = append([]int(nil), indices...)
	return nil
}

// Table returns a snapshot of the current keycode->scancode bindings.
func (r *Registry) Table() map[int]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int]uint64, len(r.table))
	for k, v := range r.table {
		out[k] = v
	}
	return out
}

// Enabled returns the indices SetEnabledProtocols was last called
// with.
func (r *Registry) Enabled() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.enabled...)
}

// Clears returns how many times ClearScancodes has been called.
func (r *Registry) Clears() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

var _ scancode.Registry = (*Registry)(nil)
