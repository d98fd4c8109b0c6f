package disasm

import "fmt"

// MOD field
const (
	modIndirect = 0b00 // (reg), or SIB / absolute disp32
	modDisp8    = 0b01
	modDisp32   = 0b10
	modReg      = 0b11
)

const (
	rmSIB    = 0b100 // with mod != 11 a SIB byte follows
	rmDisp32 = 0b101 // with mod == 00 an absolute disp32 follows
)

// ModRM holds the three fields of a ModRM byte.
type ModRM struct {
	Mod uint8 // addressing mode, 2 bits
	Reg uint8 // register or group extension, 3 bits
	RM  uint8 // register or memory operand, 3 bits
}

// ParseModRM splits b into mod (bits 7-6), reg (5-3) and rm (2-0).
// Every byte value has a defined triple.
func ParseModRM(b byte) ModRM {
	return ModRM{
		Mod: b >> 6,
		Reg: (b >> 3) & 7,
		RM:  b & 7,
	}
}

// Byte reassembles the ModRM byte.
func (m ModRM) Byte() byte {
	return m.Mod<<6 | m.Reg<<3 | m.RM
}

// Bits returns the fields as zero-padded binary strings, e.g. "11", "000", "011".
func (m ModRM) Bits() (mod, reg, rm string) {
	return fmt.Sprintf("%02b", m.Mod), fmt.Sprintf("%03b", m.Reg), fmt.Sprintf("%03b", m.RM)
}

// SIB holds the fields of a scale-index-base byte.
type SIB struct {
	Scale uint8 // 1, 2, 4 or 8
	Index uint8 // 100 means no index
	Base  uint8
}

// ParseSIB splits a SIB byte. Scale is returned as the multiplier.
func ParseSIB(b byte) SIB {
	return SIB{
		Scale: 1 << (b >> 6),
		Index: (b >> 3) & 7,
		Base:  b & 7,
	}
}
