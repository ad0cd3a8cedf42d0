package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const magic uint32 = 0x49524243 // "IRBC"
const version uint16 = 1

// Encode serializes p into a compact byte buffer: a header, then the Vars,
// Events, ResultVars, Exprs, and Instrs pools each as a count-prefixed
// fixed-record array, mirroring the packed-struct instruction encoding
// nevermosby-ebpf's BPFInstruction.getCStructs uses for a real kernel ABI.
func (p *Program) Encode() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, magic)
	binary.Write(&buf, binary.LittleEndian, version)
	writeString(&buf, p.Name)
	binary.Write(&buf, binary.LittleEndian, p.StartPC)
	binary.Write(&buf, binary.LittleEndian, p.ResetPC)

	binary.Write(&buf, binary.LittleEndian, uint32(len(p.Vars)))
	for _, v := range p.Vars {
		writeString(&buf, v)
	}
	binary.Write(&buf, binary.LittleEndian, uint32(len(p.Events)))
	for _, e := range p.Events {
		writeString(&buf, e)
	}
	binary.Write(&buf, binary.LittleEndian, uint32(len(p.ResultVars)))
	for _, v := range p.ResultVars {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	binary.Write(&buf, binary.LittleEndian, uint32(len(p.Exprs)))
	for _, e := range p.Exprs {
		binary.Write(&buf, binary.LittleEndian, e.Op)
		binary.Write(&buf, binary.LittleEndian, e.Int64)
		binary.Write(&buf, binary.LittleEndian, e.VarIdx)
		binary.Write(&buf, binary.LittleEndian, e.Op1)
		buf.Write(e.Op2[:])
		binary.Write(&buf, binary.LittleEndian, boolByte(e.Complement))
		binary.Write(&buf, binary.LittleEndian, boolByte(e.Reverse))
	}
	binary.Write(&buf, binary.LittleEndian, uint32(len(p.Instrs)))
	for _, in := range p.Instrs {
		binary.Write(&buf, binary.LittleEndian, in.Op)
		binary.Write(&buf, binary.LittleEndian, in.A)
		binary.Write(&buf, binary.LittleEndian, in.B)
		binary.Write(&buf, binary.LittleEndian, in.C)
		binary.Write(&buf, binary.LittleEndian, in.D)
		binary.Write(&buf, binary.LittleEndian, in.Dest)
		binary.Write(&buf, binary.LittleEndian, in.VarIdx)
		binary.Write(&buf, binary.LittleEndian, in.Width)
	}
	return buf.Bytes()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint16(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a byte buffer produced by Encode back into a Program.
func Decode(data []byte) (*Program, error) {
	r := bytes.NewReader(data)
	var m uint32
	if err := binary.Read(r, binary.LittleEndian, &m); err != nil {
		return nil, fmt.Errorf("bytecode: reading magic: %w", err)
	}
	if m != magic {
		return nil, fmt.Errorf("bytecode: bad magic %#x", m)
	}
	var v uint16
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return nil, fmt.Errorf("bytecode: reading version: %w", err)
	}
	if v != version {
		return nil, fmt.Errorf("bytecode: unsupported version %d", v)
	}
	p := &Program{}
	var err error
	if p.Name, err = readString(r); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &p.StartPC); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &p.ResetPC); err != nil {
		return nil, err
	}

	var nVars uint32
	if err := binary.Read(r, binary.LittleEndian, &nVars); err != nil {
		return nil, err
	}
	for i := uint32(0); i < nVars; i++ {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		p.Vars = append(p.Vars, s)
	}
	var nEvents uint32
	if err := binary.Read(r, binary.LittleEndian, &nEvents); err != nil {
		return nil, err
	}
	for i := uint32(0); i < nEvents; i++ {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		p.Events = append(p.Events, s)
	}
	var nResultVars uint32
	if err := binary.Read(r, binary.LittleEndian, &nResultVars); err != nil {
		return nil, err
	}
	for i := uint32(0); i < nResultVars; i++ {
		var x int32
		if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
			return nil, err
		}
		p.ResultVars = append(p.ResultVars, x)
	}
	var nExprs uint32
	if err := binary.Read(r, binary.LittleEndian, &nExprs); err != nil {
		return nil, err
	}
	for i := uint32(0); i < nExprs; i++ {
		var e ExprInstr
		var comp, rev byte
		if err := binary.Read(r, binary.LittleEndian, &e.Op); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &e.Int64); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &e.VarIdx); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &e.Op1); err != nil {
			return nil, err
		}
		if _, err := r.Read(e.Op2[:]); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &comp); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &rev); err != nil {
			return nil, err
		}
		e.Complement = comp != 0
		e.Reverse = rev != 0
		p.Exprs = append(p.Exprs, e)
	}
	var nInstrs uint32
	if err := binary.Read(r, binary.LittleEndian, &nInstrs); err != nil {
		return nil, err
	}
	for i := uint32(0); i < nInstrs; i++ {
		var in Instr
		if err := binary.Read(r, binary.LittleEndian, &in.Op); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &in.A); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &in.B); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &in.C); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &in.D); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &in.Dest); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &in.VarIdx); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &in.Width); err != nil {
			return nil, err
		}
		p.Instrs = append(p.Instrs, in)
	}
	return p, nil
}
