// Package refcheck cross-checks decoded instructions against the
// golang.org/x/arch x86 decoder.
package refcheck

import (
	"golang.org/x/arch/x86/x86asm"

	"x86dis/internal/disasm"
)

// Result is the reference decoding of one instruction's bytes.
type Result struct {
	Text    string // GNU syntax, "" if the reference decoder rejected the bytes
	Len     int
	LenOK   bool // reference length equals the decoded length
	Decoded bool
}

// MaxInstLen is the longest encoding an x86 instruction may have.
const MaxInstLen = 15

// Check decodes the bytes at inst's position with x86asm in 32-bit mode.
// code is the buffer from inst's first byte on, so the reference decoder
// sees the same bytes the walker saw even when inst is a diagnostic that
// consumed less than a full instruction. A nil code falls back to inst.Raw.
func Check(inst disasm.Inst, code []byte) Result {
	src := code
	if len(src) < len(inst.Raw) {
		src = inst.Raw
	}
	if len(src) > MaxInstLen {
		src = src[:MaxInstLen]
	}

	ref, err := x86asm.Decode(src, 32)
	if err != nil {
		return Result{LenOK: inst.Bad()}
	}
	return Result{
		Text:    x86asm.GNUSyntax(ref, uint64(inst.Addr), nil),
		Len:     ref.Len,
		LenOK:   ref.Len == inst.Len,
		Decoded: true,
	}
}

// Annotation returns the listing comment for r.
func (r Result) Annotation() string {
	if !r.Decoded {
		return "ref: (bad)"
	}
	if !r.LenOK {
		return "ref! " + r.Text
	}
	return "ref: " + r.Text
}

// Mismatches walks code and returns the instructions whose length differs
// from the reference decoder's. Diagnostics are skipped.
func Mismatches(code []byte, base uint32) []disasm.Inst {
	var out []disasm.Inst
	for _, inst := range disasm.Disassemble(code, base) {
		if inst.Bad() {
			continue
		}
		if r := Check(inst, code[inst.Offset:]); r.Decoded && !r.LenOK {
			out = append(out, inst)
		}
	}
	return out
}
