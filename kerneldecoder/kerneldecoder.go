// Package kerneldecoder defines the "Kernel decoder attachment"
// external collaborator from spec.md §6: wherever the bytecode this
// module emits is actually consumed and run, decoding incoming IR
// edges without this process's own involvement per-token.
package kerneldecoder

// Info is what QueryBPF reports about a currently attached program,
// when one is attached.
type Info struct {
	// Name is the program's Symbols name (see package bytecode), i.e.
	// the protocol/event name it decodes.
	Name string
	// Rate is the number of Done events the program has produced since
	// attachment, where the kernel side tracks that.
	Rate uint64
}

// Decoder is the kernel-side attachment point for compiled bytecode
// (package bytecode's Program, serialized via its Encode method).
// ClearBPF detaches whatever program is currently running;
// AttachBPF replaces it with a new one; QueryBPF reports what's
// currently attached, or (nil, nil) when nothing is.
type Decoder interface {
	ClearBPF() error
	AttachBPF(program []byte) error
	QueryBPF() (*Info, error)
}
