package disasm

import (
	"encoding/binary"
	"fmt"
)

// Uint32LE reads a 32-bit value stored least-significant byte first.
// The bytes 78 56 34 12 read as 0x12345678.
func Uint32LE(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// RelTarget computes a branch target relative to the next instruction:
// addr + length + disp.
func RelTarget(addr uint32, length int, disp int32) uint32 {
	return addr + uint32(length) + uint32(disp)
}

func signExtend(v uint32, width int) int32 {
	switch width {
	case 1:
		return int32(int8(v))
	case 2:
		return int32(int16(v))
	default:
		return int32(v)
	}
}

func immText(v uint32) string {
	return fmt.Sprintf("$0x%x", v)
}

func hexSigned(v int32) string {
	if v < 0 {
		return fmt.Sprintf("-0x%x", -int64(v))
	}
	return fmt.Sprintf("0x%x", v)
}

func sizeSuffix(byteSize bool) string {
	if byteSize {
		return "b"
	}
	return "l"
}

// rm decodes the r/m operand of m, reading any SIB byte and displacement.
func (d *decoder) rm(m ModRM, byteSize bool) (string, error) {
	if m.Mod == modReg {
		return regName(m.RM, byteSize), nil
	}

	var base, index string
	scale := uint8(1)
	hasDisp := m.Mod != modIndirect

	switch {
	case m.RM == rmSIB:
		b, err := d.u8()
		if err != nil {
			return "", err
		}
		s := ParseSIB(b)
		if s.Index != rmSIB {
			index = "%" + RegName(s.Index)
			scale = s.Scale
		}
		if s.Base == rmDisp32 && m.Mod == modIndirect {
			hasDisp = true
		} else {
			base = "%" + RegName(s.Base)
		}
	case m.RM == rmDisp32 && m.Mod == modIndirect:
		hasDisp = true
	default:
		base = "%" + RegName(m.RM)
	}

	var disp int32
	if hasDisp {
		width := 4
		if m.Mod == modDisp8 {
			width = 1
		}
		v, err := d.le(width)
		if err != nil {
			return "", err
		}
		disp = signExtend(v, width)
	}

	if base == "" && index == "" {
		return fmt.Sprintf("0x%x", uint32(disp)), nil
	}

	text := ""
	if hasDisp {
		text = hexSigned(disp)
	}
	text += "(" + base
	if index != "" {
		text += fmt.Sprintf(",%s,%d", index, scale)
	}
	return text + ")", nil
}
