package bytecode

import (
	"fmt"

	"github.com/irrecv/irrecv/irp"
)

// ExprOp is one instruction of the small stack-based expression machine
// that OpJumpIfCond/OpSetExpr/OpAssertEq operands reference by slice
// ([offset, offset+length) into Program.Exprs). It mirrors irp.Expr's
// variants one-for-one so compileExpr is a direct structural transliteration
// rather than a general-purpose compiler.
type ExprOp uint8

const (
	EPushConst ExprOp = iota // push Int64
	EPushVar                 // push variable file slot VarIdx
	EUnary                   // pop x, push Op1(x); Op1 is '-', '~', or '!'
	EBinary                  // pop y, pop x, push x Op2 y
	EBitField                // pop offset, pop width, pop x; push the extracted field
)

// ExprInstr is one instruction of the expression machine.
type ExprInstr struct {
	Op         ExprOp
	Int64      int64
	VarIdx     int32
	Op1        byte
	Op2        [2]byte // binary operator text, e.g. "+\x00", "<<"
	Complement bool
	Reverse    bool // statically known "width given as negative" (MSB-first) flag
}

// exprCompiler accumulates ExprInstr into a single shared pool, and maps
// variable names the expression machine will read by index into Program's
// Vars string pool (see emit.go), so EPushVar never carries a string.
type exprCompiler struct {
	pool *Program
}

// compileExpr appends e's postfix-order instructions to the shared pool and
// returns the [offset, length) slice OpJumpIfCond/OpSetExpr/OpAssertEq
// reference.
func (c *exprCompiler) compileExpr(e irp.Expr) (int32, int32, error) {
	start := int32(len(c.pool.Exprs))
	if err := c.emit(e); err != nil {
		return 0, 0, err
	}
	return start, int32(len(c.pool.Exprs)) - start, nil
}

func (c *exprCompiler) emit(e irp.Expr) error {
	switch e := e.(type) {
	case *irp.ConstExpr:
		c.pool.Exprs = append(c.pool.Exprs, ExprInstr{Op: EPushConst, Int64: e.Value})
		return nil
	case *irp.NameExpr:
		c.pool.Exprs = append(c.pool.Exprs, ExprInstr{Op: EPushVar, VarIdx: c.pool.varSlot(e.Name)})
		return nil
	case *irp.UnaryExpr:
		if err := c.emit(e.X); err != nil {
			return err
		}
		c.pool.Exprs = append(c.pool.Exprs, ExprInstr{Op: EUnary, Op1: e.Op})
		return nil
	case *irp.BinaryExpr:
		if err := c.emit(e.X); err != nil {
			return err
		}
		if err := c.emit(e.Y); err != nil {
			return err
		}
		var op2 [2]byte
		copy(op2[:], e.Op)
		c.pool.Exprs = append(c.pool.Exprs, ExprInstr{Op: EBinary, Op2: op2})
		return nil
	case *irp.BitFieldExpr:
		if err := c.emit(e.X); err != nil {
			return err
		}
		if err := c.emit(e.Width); err != nil {
			return err
		}
		if e.Offset != nil {
			if err := c.emit(e.Offset); err != nil {
				return err
			}
		} else {
			c.pool.Exprs = append(c.pool.Exprs, ExprInstr{Op: EPushConst, Int64: 0})
		}
		c.pool.Exprs = append(c.pool.Exprs, ExprInstr{
			Op: EBitField, Complement: e.Complement, Reverse: e.Reverse,
		})
		return nil
	default:
		return fmt.Errorf("bytecode: unsupported expression %T", e)
	}
}
