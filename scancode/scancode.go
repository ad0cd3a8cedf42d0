// Package scancode defines the "Scancode registry" external
// collaborator from spec.md §6: a place the kernel's input-layer
// scancode-to-keycode table is pushed to, so that once a protocol
// decodes a (scancode, repeat) pair, user space sees it as the
// familiar input event rather than a raw integer.
package scancode

// Registry is a scancode table the kernel's input layer exposes for
// registration. UpdateScancode binds one numeric keycode to the
// scancode that should generate it; ClearScancodes drops every
// existing binding; SetEnabledProtocols restricts which compiled
// protocols the kernel decoder evaluates at all, by their index in
// whatever attachment order the kernel decoder interface used.
type Registry interface {
	UpdateScancode(keycode int, scancode uint64) error
	ClearScancodes() error
	SetEnabledProtocols(indices []int) error
}
