// Package bytecode transliterates a compiled dfa.DFA into a linear,
// in-kernel-executable instruction stream: every vertex becomes a block of
// instructions, every edge a jump. The target machine is a small register
// file — a transient accumulator, a per-bitfield shift-in step that folds a
// decoded symbol into the accumulator, and a named variable file sized to
// the protocol's declared parameters — modeled after how a real in-kernel
// IR decoder (no goroutines, no heap, one program counter) must express
// the same recognition the host-side Matcher runs as multiple live
// threads: a kernel program reduces MayBranchCond's two live hypotheses to
// one order — try the vertex's other edges first, and take the
// MayBranchCond's jump only when none of them matched — since there is
// only ever one program counter.
package bytecode

// Opcode identifies one instruction's operation.
type Opcode uint8

const (
	// OpTryFlash consumes the next Flash token if its duration (in
	// microseconds) falls within [A, B]; on success, jumps to PC Dest.
	// On failure, execution falls through to the next instruction in
	// the current vertex's block, i.e. the next candidate edge.
	OpTryFlash Opcode = iota
	// OpTryGap is OpTryFlash's silence-token counterpart.
	OpTryGap
	// OpJump is an unconditional jump to Dest.
	OpJump
	// OpJumpIfCond evaluates the expression at Exprs[A:A+B] against the
	// current variable file; jumps to Dest if it evaluates non-zero,
	// otherwise falls through. Used for a BranchCond's runtime
	// (non-statically-decidable) condition, followed by an OpJump to its
	// No vertex. A MayBranchCond does not use it: it is emitted as an
	// optional OpSetExpr binding its symbol plus an unconditional OpJump,
	// placed after the vertex's other edges.
	OpJumpIfCond
	// OpShiftIn folds one decoded bitspec symbol into the accumulator
	// variable VarIdx: VarIdx = VarIdx | (Bit << Shift). This is the
	// fast path the emitter recognizes for the exact accumulate-shape
	// nfa/bitfield.go's buildChoice produces; Set actions of any other
	// shape fall back to OpSetExpr.
	OpShiftIn
	// OpSetExpr evaluates Exprs[A:A+B] and stores the result, masked to
	// Width bits, into the variable file slot VarIdx.
	OpSetExpr
	// OpAssertEq evaluates the two expressions at [A:A+B] (lhs) and
	// [C:C+D] (rhs); if they differ, jumps to ResetPC — a single-PC
	// kernel program has no notion of "drop this thread, others stay
	// live", so a failed assertion resynchronizes at the start vertex,
	// exactly what the Matcher's max_gap timeout does for a receiver
	// that trusts the kernel to recover on its own.
	OpAssertEq
	// OpEmit records a Done event: A indexes the event name in Events;
	// [B, B+C) slices Program.ResultVars, the list of variable-file slots
	// (indices into Vars) that should be snapshotted for this event.
	OpEmit
	// OpReset unconditionally returns execution to ResetPC (Program's
	// start-vertex block), discarding the variable file.
	OpReset
)

func (op Opcode) String() string {
	switch op {
	case OpTryFlash:
		return "try_flash"
	case OpTryGap:
		return "try_gap"
	case OpJump:
		return "jump"
	case OpJumpIfCond:
		return "jump_if"
	case OpShiftIn:
		return "shift_in"
	case OpSetExpr:
		return "set"
	case OpAssertEq:
		return "assert_eq"
	case OpEmit:
		return "emit"
	case OpReset:
		return "reset"
	default:
		return "?"
	}
}

// Instr is one bytecode instruction. Fields are interpreted per Opcode;
// unused fields are zero. A, B, C, D are generic operand slots (band
// bounds in microseconds for Try*, expression-pool slices for expression
// opcodes) kept as a handful of fixed-width ints rather than a variant
// struct per opcode, matching the compact fixed-record instruction shape
// real in-kernel bytecode (and nevermosby-ebpf's BPFInstruction) uses.
type Instr struct {
	Op     Opcode
	A, B   int32
	C, D   int32
	Dest   int32
	VarIdx int32
	Width  int32
}
