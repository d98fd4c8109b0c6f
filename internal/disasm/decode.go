package disasm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var errShort = errors.New("truncated instruction")

// decoder reads one instruction from the front of code.
type decoder struct {
	code []byte
	addr uint32
	n    int    // bytes read so far
	safe int    // bytes consumed if decoding fails: opcode, plus ModRM once read
	op   []byte // opcode bytes for diagnostics
}

func (d *decoder) u8() (byte, error) {
	if d.n >= len(d.code) {
		return 0, errShort
	}
	b := d.code[d.n]
	d.n++
	return b, nil
}

// le reads a little-endian value of width 1, 2 or 4 bytes.
func (d *decoder) le(width int) (uint32, error) {
	if d.n+width > len(d.code) {
		return 0, errShort
	}
	b := d.code[d.n : d.n+width]
	d.n += width
	switch width {
	case 1:
		return uint32(b[0]), nil
	case 2:
		return uint32(binary.LittleEndian.Uint16(b)), nil
	default:
		return Uint32LE(b), nil
	}
}

func (d *decoder) modrm() (ModRM, error) {
	b, err := d.u8()
	if err != nil {
		return ModRM{}, err
	}
	d.safe = d.n
	return ParseModRM(b), nil
}

func unhandled(format string, args ...any) error {
	return &DecodeError{Err: ErrUnhandledOperand, Detail: fmt.Sprintf(format, args...)}
}

// Decode decodes the instruction at the start of code, which sits at addr.
// code must not be empty. The returned Inst always has Len >= 1: bytes that
// cannot be decoded produce a diagnostic Inst covering the opcode byte, or
// the opcode and ModRM bytes when the ModRM byte was already read.
func Decode(code []byte, addr uint32) Inst {
	d := &decoder{code: code, addr: addr}
	op, args, err := d.decode()
	if err != nil {
		return d.bad(err)
	}
	return Inst{
		Addr: addr,
		Raw:  code[:d.n],
		Op:   op,
		Args: args,
		Len:  d.n,
	}
}

func (d *decoder) bad(err error) Inst {
	var de *DecodeError
	if !errors.As(err, &de) {
		de = &DecodeError{Err: ErrUnhandledOperand, Detail: err.Error()}
	}
	de.Addr = d.addr
	de.Opcode = d.op

	n := d.safe
	if n == 0 && len(d.code) > 0 {
		n = 1
	}
	return Inst{
		Addr: d.addr,
		Raw:  d.code[:n],
		Op:   BadMnemonic,
		Len:  n,
		Err:  de,
	}
}

func (d *decoder) decode() (string, string, error) {
	b, err := d.u8()
	if err != nil {
		return "", "", err
	}
	d.safe = 1
	d.op = d.code[:1]

	e := opcodes[b]
	key := uint16(b)
	if e.class == classEscape {
		b2, err := d.u8()
		if err != nil {
			return "", "", err
		}
		d.op = d.code[:2]
		e = opcodes0f[b2]
		if e.class == classNone {
			// skip the escape byte only
			return "", "", &DecodeError{Err: ErrUnrecognizedOpcode}
		}
		d.safe = 2
		key = 0x0f00 | uint16(b2)
	}

	switch e.class {
	case classPlain:
		return e.mnem, "", nil
	case classRegCoded:
		return e.mnem, "%" + RegNibble(b), nil
	case classRegImm:
		v, err := d.le(e.imm)
		if err != nil {
			return "", "", err
		}
		return e.mnem, immText(v) + "," + regName(b&7, e.flags&fByte != 0), nil
	case classAccImm:
		v, err := d.le(e.imm)
		if err != nil {
			return "", "", err
		}
		return e.mnem, immText(v) + "," + regName(0, e.flags&fByte != 0), nil
	case classImm:
		v, err := d.le(e.imm)
		if err != nil {
			return "", "", err
		}
		if e.flags&fSignExt != 0 {
			v = uint32(signExtend(v, e.imm))
		}
		return e.mnem, immText(v), nil
	case classRel:
		return d.decodeRel(e)
	case classModRM:
		return d.decodeModRM(e)
	case classGroup:
		return d.decodeGroup(key, e)
	}
	return "", "", &DecodeError{Err: ErrUnrecognizedOpcode}
}

func (d *decoder) decodeRel(e opcode) (string, string, error) {
	v, err := d.le(e.imm)
	if err != nil {
		return "", "", err
	}
	target := RelTarget(d.addr, d.n, signExtend(v, e.imm))
	return e.mnem, fmt.Sprintf("0x%x", target), nil
}

func (d *decoder) decodeModRM(e opcode) (string, string, error) {
	m, err := d.modrm()
	if err != nil {
		return "", "", err
	}
	if e.flags&fMemOnly != 0 && m.Mod == modReg {
		return "", "", unhandled("%s with register operand", e.mnem)
	}

	byteSize := e.flags&fByte != 0
	rm, err := d.rm(m, byteSize)
	if err != nil {
		return "", "", err
	}
	reg := regName(m.Reg, byteSize)
	if e.flags&fToReg != 0 {
		return e.mnem, rm + "," + reg, nil
	}
	return e.mnem, reg + "," + rm, nil
}

func (d *decoder) decodeGroup(key uint16, e opcode) (string, string, error) {
	m, err := d.modrm()
	if err != nil {
		return "", "", err
	}
	g, ok := groups[groupKey{key, m.Reg}]
	if !ok {
		return "", "", unhandled("undefined extension /%d", m.Reg)
	}

	flags := e.flags | g.flags
	if flags&fMemOnly != 0 && m.Mod == modReg {
		return "", "", unhandled("%s with register operand", g.mnem)
	}

	byteSize := flags&fByte != 0
	rm, err := d.rm(m, byteSize)
	if err != nil {
		return "", "", err
	}

	mnem := g.mnem
	if m.Mod != modReg && flags&(fIndirect|fNoSuffix) == 0 {
		mnem += sizeSuffix(byteSize)
	}

	switch {
	case flags&fIndirect != 0:
		return mnem, "*" + rm, nil
	case g.imm > 0:
		v, err := d.le(g.imm)
		if err != nil {
			return "", "", err
		}
		if flags&fSignExt != 0 {
			v = uint32(signExtend(v, g.imm))
		}
		return mnem, immText(v) + "," + rm, nil
	}
	return mnem, rm, nil
}
