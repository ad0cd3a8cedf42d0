package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders p as a textual assembly listing, one instruction per
// line prefixed by its address, for Options.Debug dumps. The pre-emit
// graph itself is rendered separately by package dot, applied to the same
// *dfa.DFA passed to Emit — Disassemble only covers the instruction
// stream Emit produces from it.
func (p *Program) Disassemble() string {
	var b strings.Builder
	fmt.Fprintf(&b, "; %s  start=%d reset=%d\n", p.Name, p.StartPC, p.ResetPC)
	for i, in := range p.Instrs {
		fmt.Fprintf(&b, "%4d: %s\n", i, p.disassembleOne(in))
	}
	return b.String()
}

func (p *Program) disassembleOne(in Instr) string {
	switch in.Op {
	case OpTryFlash:
		return fmt.Sprintf("try_flash [%d,%d]us -> %d", in.A, in.B, in.Dest)
	case OpTryGap:
		return fmt.Sprintf("try_gap [%d,%d]us -> %d", in.A, in.B, in.Dest)
	case OpJump:
		return fmt.Sprintf("jump -> %d", in.Dest)
	case OpJumpIfCond:
		return fmt.Sprintf("jump_if %s -> %d", p.exprString(in.A, in.B), in.Dest)
	case OpShiftIn:
		return fmt.Sprintf("shift_in %s |= (%d << %d) [w%d]", p.varName(in.VarIdx), in.A, in.B, in.Width)
	case OpSetExpr:
		return fmt.Sprintf("set %s = %s [w%d]", p.varName(in.VarIdx), p.exprString(in.A, in.B), in.Width)
	case OpAssertEq:
		return fmt.Sprintf("assert_eq %s == %s, else -> %d", p.exprString(in.A, in.B), p.exprString(in.C, in.D), in.Dest)
	case OpEmit:
		return fmt.Sprintf("emit %q %s", p.eventName(in.A), p.resultVarNames(in.B, in.C))
	case OpReset:
		return fmt.Sprintf("reset -> %d", in.Dest)
	default:
		return "?"
	}
}

func (p *Program) varName(idx int32) string {
	if int(idx) < 0 || int(idx) >= len(p.Vars) {
		return fmt.Sprintf("$%d", idx)
	}
	return p.Vars[idx]
}

func (p *Program) eventName(idx int32) string {
	if int(idx) < 0 || int(idx) >= len(p.Events) {
		return fmt.Sprintf("#%d", idx)
	}
	return p.Events[idx]
}

func (p *Program) resultVarNames(off, n int32) string {
	var names []string
	for i := off; i < off+n; i++ {
		names = append(names, p.varName(p.ResultVars[i]))
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// exprString reconstructs a readable infix form of the expression machine
// code at [off, off+n), for debug dumps only — not a real decompiler, just
// enough to make an assembly listing legible.
func (p *Program) exprString(off, n int32) string {
	var stack []string
	for i := off; i < off+n; i++ {
		e := p.Exprs[i]
		switch e.Op {
		case EPushConst:
			stack = append(stack, fmt.Sprintf("%d", e.Int64))
		case EPushVar:
			stack = append(stack, p.varName(e.VarIdx))
		case EUnary:
			x := pop(&stack)
			stack = append(stack, fmt.Sprintf("%c%s", e.Op1, x))
		case EBinary:
			y := pop(&stack)
			x := pop(&stack)
			op := strings.TrimRight(string(e.Op2[:]), "\x00")
			stack = append(stack, fmt.Sprintf("(%s %s %s)", x, op, y))
		case EBitField:
			offv := pop(&stack)
			width := pop(&stack)
			x := pop(&stack)
			sign := ""
			if e.Complement {
				sign = "~"
			}
			stack = append(stack, fmt.Sprintf("%s%s:%s:%s", sign, x, width, offv))
		}
	}
	if len(stack) == 0 {
		return "?"
	}
	return stack[len(stack)-1]
}

func pop(stack *[]string) string {
	if len(*stack) == 0 {
		return "?"
	}
	v := (*stack)[len(*stack)-1]
	*stack = (*stack)[:len(*stack)-1]
	return v
}
