package disasm

// Walker drives decoding over a buffer. It owns the cursor: the byte
// offset into the buffer and the logical address of the next instruction.
// Both advance by the length of every decoded Inst, which is never zero,
// so a buffer of n bytes takes at most n steps.
type Walker struct {
	code []byte
	off  int
	addr uint32
}

// NewWalker returns a walker positioned at the start of code, which is
// mapped at base.
func NewWalker(code []byte, base uint32) *Walker {
	return &Walker{code: code, addr: base}
}

// Offset returns the byte offset of the next instruction.
func (w *Walker) Offset() int { return w.off }

// Addr returns the address of the next instruction.
func (w *Walker) Addr() uint32 { return w.addr }

// Done reports whether the buffer is exhausted.
func (w *Walker) Done() bool { return w.off >= len(w.code) }

// Next decodes the instruction at the cursor and advances past it.
// It returns false once the buffer is exhausted.
func (w *Walker) Next() (Inst, bool) {
	if w.Done() {
		return Inst{}, false
	}
	inst := Decode(w.code[w.off:], w.addr)
	inst.Offset = w.off
	if inst.Len < 1 {
		// Decode guarantees progress on non-empty input
		inst.Len = 1
	}
	w.off += inst.Len
	w.addr += uint32(inst.Len)
	return inst, true
}

// Walk decodes code from base and calls fn for every instruction in
// address order. It stops early if fn returns an error.
func Walk(code []byte, base uint32, fn func(Inst) error) error {
	w := NewWalker(code, base)
	for {
		inst, ok := w.Next()
		if !ok {
			return nil
		}
		if err := fn(inst); err != nil {
			return err
		}
	}
}

// Disassemble decodes the whole buffer into a Stream.
func Disassemble(code []byte, base uint32) Stream {
	var s Stream
	w := NewWalker(code, base)
	for {
		inst, ok := w.Next()
		if !ok {
			return s
		}
		s = append(s, inst)
	}
}
