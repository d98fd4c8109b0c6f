package disasm

// class selects the decoder for an opcode.
type class uint8

const (
	classNone     class = iota // not in the table
	classPlain                 // no operands
	classRegCoded              // low three bits name a 32-bit register
	classRegImm                // mov $imm, reg with the register in the low three bits
	classModRM                 // reg, r/m
	classAccImm                // $imm, %al / %eax
	classImm                   // $imm
	classRel                   // relative branch target
	classGroup                 // operation picked by ModRM.reg
	classEscape                // 0f two-byte opcode
)

// opcode flags
const (
	fByte     uint8 = 1 << iota // 8-bit operands
	fToReg                      // reg is the destination
	fMemOnly                    // r/m must be memory
	fSignExt                    // imm8 sign-extended to 32 bits
	fIndirect                   // print r/m as *target
	fNoSuffix                   // never add a size suffix to a memory form
)

type opcode struct {
	mnem  string
	class class
	flags uint8
	imm   int // immediate or displacement width in bytes
}

type groupKey struct {
	op  uint16 // 0x0fae for two-byte opcodes
	reg uint8
}

type groupOp struct {
	mnem  string
	flags uint8
	imm   int
}

var (
	opcodes   [256]opcode
	opcodes0f [256]opcode
	groups    = map[groupKey]groupOp{}
)

var (
	aluOps = [8]string{"add", "or", "adc", "sbb", "and", "sub", "xor", "cmp"}
	conds  = [16]string{"o", "no", "b", "ae", "z", "nz", "be", "a", "s", "ns", "p", "np", "l", "ge", "le", "g"}
)

func init() {
	// ALU families: op r/m8,r8 / op r/m32,r32 / op r8,r/m8 / op r32,r/m32 /
	// op al,imm8 / op eax,imm32 at 00, 08, ... 38.
	for i, m := range aluOps {
		b := i << 3
		opcodes[b+0] = opcode{m, classModRM, fByte, 0}
		opcodes[b+1] = opcode{m, classModRM, 0, 0}
		opcodes[b+2] = opcode{m, classModRM, fByte | fToReg, 0}
		opcodes[b+3] = opcode{m, classModRM, fToReg, 0}
		opcodes[b+4] = opcode{m, classAccImm, fByte, 1}
		opcodes[b+5] = opcode{m, classAccImm, 0, 4}
	}
	opcodes[0x0f] = opcode{"", classEscape, 0, 0}

	for r := 0; r < 8; r++ {
		opcodes[0x40+r] = opcode{"inc", classRegCoded, 0, 0}
		opcodes[0x48+r] = opcode{"dec", classRegCoded, 0, 0}
		opcodes[0x50+r] = opcode{"push", classRegCoded, 0, 0}
		opcodes[0x58+r] = opcode{"pop", classRegCoded, 0, 0}
		opcodes[0xb0+r] = opcode{"mov", classRegImm, fByte, 1}
		opcodes[0xb8+r] = opcode{"mov", classRegImm, 0, 4}
	}

	opcodes[0x68] = opcode{"push", classImm, 0, 4}
	opcodes[0x6a] = opcode{"push", classImm, fSignExt, 1}

	for c, cc := range conds {
		opcodes[0x70+c] = opcode{"j" + cc, classRel, 0, 1}
		opcodes0f[0x80+c] = opcode{"j" + cc, classRel, 0, 4}
	}

	opcodes[0x80] = opcode{"", classGroup, fByte, 1}
	opcodes[0x81] = opcode{"", classGroup, 0, 4}
	opcodes[0x82] = opcode{"", classGroup, fByte, 1}
	opcodes[0x83] = opcode{"", classGroup, fSignExt, 1}
	opcodes[0x84] = opcode{"test", classModRM, fByte, 0}
	opcodes[0x85] = opcode{"test", classModRM, 0, 0}
	opcodes[0x88] = opcode{"mov", classModRM, fByte, 0}
	opcodes[0x89] = opcode{"mov", classModRM, 0, 0}
	opcodes[0x8a] = opcode{"mov", classModRM, fByte | fToReg, 0}
	opcodes[0x8b] = opcode{"mov", classModRM, fToReg, 0}
	opcodes[0x8d] = opcode{"lea", classModRM, fToReg | fMemOnly, 0}
	opcodes[0x90] = opcode{"nop", classPlain, 0, 0}
	opcodes[0xc2] = opcode{"ret", classImm, 0, 2}
	opcodes[0xc3] = opcode{"ret", classPlain, 0, 0}
	opcodes[0xc9] = opcode{"leave", classPlain, 0, 0}
	opcodes[0xcc] = opcode{"int3", classPlain, 0, 0}
	opcodes[0xe7] = opcode{"out", classRel, 0, 1}
	opcodes[0xe8] = opcode{"call", classRel, 0, 4}
	opcodes[0xe9] = opcode{"jmp", classRel, 0, 4}
	opcodes[0xeb] = opcode{"jmp", classRel, 0, 1}
	opcodes[0xf6] = opcode{"", classGroup, fByte, 0}
	opcodes[0xf7] = opcode{"", classGroup, 0, 0}
	opcodes[0xfe] = opcode{"", classGroup, fByte, 0}
	opcodes[0xff] = opcode{"", classGroup, 0, 0}
	opcodes0f[0xae] = opcode{"", classGroup, 0, 0}

	// Group 1: the immediate width comes from the opcode.
	for _, op := range []uint16{0x80, 0x81, 0x82, 0x83} {
		for r, m := range aluOps {
			groups[groupKey{op, uint8(r)}] = groupOp{m, 0, opcodes[op].imm}
		}
	}

	// Group 3: only test carries an immediate.
	for op, imm := range map[uint16]int{0xf6: 1, 0xf7: 4} {
		groups[groupKey{op, 0}] = groupOp{"test", 0, imm}
		groups[groupKey{op, 1}] = groupOp{"test", 0, imm}
		groups[groupKey{op, 2}] = groupOp{"not", 0, 0}
		groups[groupKey{op, 3}] = groupOp{"neg", 0, 0}
		groups[groupKey{op, 4}] = groupOp{"mul", 0, 0}
		groups[groupKey{op, 5}] = groupOp{"imul", 0, 0}
		groups[groupKey{op, 6}] = groupOp{"div", 0, 0}
		groups[groupKey{op, 7}] = groupOp{"idiv", 0, 0}
	}

	// Group 4
	groups[groupKey{0xfe, 0}] = groupOp{"inc", 0, 0}
	groups[groupKey{0xfe, 1}] = groupOp{"dec", 0, 0}

	// Group 5. /7 is undefined.
	groups[groupKey{0xff, 0}] = groupOp{"inc", 0, 0}
	groups[groupKey{0xff, 1}] = groupOp{"dec", 0, 0}
	groups[groupKey{0xff, 2}] = groupOp{"call", fIndirect, 0}
	groups[groupKey{0xff, 3}] = groupOp{"lcall", fIndirect | fMemOnly, 0}
	groups[groupKey{0xff, 4}] = groupOp{"jmp", fIndirect, 0}
	groups[groupKey{0xff, 5}] = groupOp{"ljmp", fIndirect | fMemOnly, 0}
	groups[groupKey{0xff, 6}] = groupOp{"push", 0, 0}

	// Group 15: only clflush.
	groups[groupKey{0x0fae, 7}] = groupOp{"clflush", fMemOnly | fNoSuffix, 0}
}

// Mnemonic returns the mnemonic for a one-byte opcode, or "" when the
// opcode is unknown or its meaning depends on the ModRM reg field.
func Mnemonic(op byte) string {
	return opcodes[op].mnem
}

// GroupMnemonic returns the mnemonic selected by reg under a group opcode.
// Two-byte opcodes are passed as 0x0fXX.
func GroupMnemonic(op uint16, reg uint8) (string, bool) {
	g, ok := groups[groupKey{op, reg & 7}]
	return g.mnem, ok
}
