// Package disasm decodes 32-bit x86 machine code into AT&T-syntax text.
// Decoding is table driven: a static opcode table picks the decoder for the
// leading byte, and group opcodes are resolved through the ModRM reg field.
package disasm

import (
	"errors"
	"fmt"
)

// BadMnemonic is the mnemonic printed for bytes that could not be decoded.
const BadMnemonic = "(bad)"

var (
	// ErrUnrecognizedOpcode means the leading byte matched no table entry.
	// The walker skips exactly one byte.
	ErrUnrecognizedOpcode = errors.New("unrecognized opcode")

	// ErrUnhandledOperand means the opcode is known but its operand
	// encoding is not (undefined group extension, register form of a
	// memory-only instruction, or the buffer ending mid-instruction).
	ErrUnhandledOperand = errors.New("unhandled operand pattern")
)

// DecodeError describes a byte sequence that produced a diagnostic line.
type DecodeError struct {
	Addr   uint32 // address of the first opcode byte
	Opcode []byte // opcode bytes, including the 0f escape
	Detail string
	Err    error // ErrUnrecognizedOpcode or ErrUnhandledOperand
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: % x", e.Err, e.Opcode)
	}
	return fmt.Sprintf("%v: % x: %s", e.Err, e.Opcode, e.Detail)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Inst is one decoded instruction, or one diagnostic when Err is set.
type Inst struct {
	Addr   uint32 // logical address of the instruction
	Offset int    // byte offset into the decoded buffer
	Raw    []byte // encoded bytes, borrowed from the input
	Op     string // mnemonic in lowercase
	Args   string // operand text, AT&T order (source first)
	Len    int    // bytes consumed, never zero for a non-empty input
	Err    error
}

// Bad reports whether the instruction is a diagnostic.
func (i Inst) Bad() bool { return i.Err != nil }

// Next returns the address of the following instruction.
func (i Inst) Next() uint32 { return i.Addr + uint32(i.Len) }

// Stream is a linear sequence of instructions in address order.
type Stream []Inst

// Errors returns the diagnostics in the stream.
func (s Stream) Errors() []*DecodeError {
	var errs []*DecodeError
	for _, inst := range s {
		var de *DecodeError
		if errors.As(inst.Err, &de) {
			errs = append(errs, de)
		}
	}
	return errs
}
