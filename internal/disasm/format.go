package disasm

import (
	"fmt"
	"io"
	"strings"
)

// Output uses AT&T syntax throughout. Operands are written source first,
// destination last, separated by commas without spaces.
//
//	register            %reg                  push %ebp
//	reg -> r/m          %reg,r/m              mov %esp,%ebp
//	r/m -> reg          r/m,%reg              mov 0x8(%ebp),%eax
//	memory              disp(%base,%idx,n)    lea 0x4(%esp),%ecx
//	absolute memory     0xdisp                call *0x8049000
//	immediate           $0xNN                 push $0x12345678
//	immediate -> r/m    $imm,r/m              sub $0x10,%esp
//	relative target     0xtarget              jz 0x17
//	indirect call/jmp   *r/m                  jmp *%eax
//
// Group instructions with a memory operand and no register operand carry a
// b or l size suffix (cmpb, incl). Diagnostics print (bad) and the reason
// as a trailing comment.

// BytesWidth is the column width of the encoded bytes in a listing line.
const BytesWidth = 20

const mnemWidth = 6

// HexBytes renders raw bytes as space-separated lowercase hex pairs.
func HexBytes(raw []byte) string {
	return fmt.Sprintf("% x", raw)
}

// Text returns the mnemonic and operand text, or the diagnostic reason.
func (i Inst) Text() string {
	if i.Err != nil {
		return fmt.Sprintf("%s ; %v", BadMnemonic, i.Err)
	}
	if i.Args == "" {
		return i.Op
	}
	return fmt.Sprintf("%-*s %s", mnemWidth, i.Op, i.Args)
}

// String formats the instruction as one listing line:
// address, encoded bytes, mnemonic and operands.
func (i Inst) String() string {
	line := fmt.Sprintf("%8x:  %-*s  %s", i.Addr, BytesWidth, HexBytes(i.Raw), i.Text())
	return strings.TrimRight(line, " ")
}

// WriteTo writes one line per instruction.
func (s Stream) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, inst := range s {
		n, err := fmt.Fprintln(w, inst.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
