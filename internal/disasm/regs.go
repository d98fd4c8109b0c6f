package disasm

// REG / RM field encoding
// | code | 32-bit | 8-bit |
// |------|--------|-------|
// | 000  | eax    | al    |
// | 001  | ecx    | cl    |
// | 010  | edx    | dl    |
// | 011  | ebx    | bl    |
// | 100  | esp    | ah    |
// | 101  | ebp    | ch    |
// | 110  | esi    | dh    |
// | 111  | edi    | bh    |
var (
	regs32 = [8]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"}
	regs8  = [8]string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
)

// RegName returns the 32-bit register selected by a 3-bit field.
func RegName(field uint8) string {
	return regs32[field&7]
}

// RegNibble returns the 32-bit register encoded in the low nibble of a
// register-coded opcode. Nibbles 8-f (the dec and pop halves of a row)
// name the same registers as 0-7.
func RegNibble(nibble byte) string {
	return regs32[nibble&7]
}

// Reg8Name returns the byte register selected by a 3-bit field.
func Reg8Name(field uint8) string {
	return regs8[field&7]
}

func regName(field uint8, byteSize bool) string {
	if byteSize {
		return "%" + Reg8Name(field)
	}
	return "%" + RegName(field)
}
