package colorize

import (
	"strings"
	"testing"

	"x86dis/internal/disasm"
)

func TestLineStripsToPlainListing(t *testing.T) {
	c := New()
	code := []byte{0x55, 0x89, 0xe5, 0x8b, 0x45, 0x08, 0xf4, 0x90, 0xc3}
	for _, inst := range disasm.Disassemble(code, 0x8048000) {
		got := Strip(c.Line(inst, ""))
		if got != inst.String() {
			t.Errorf("Strip(Line) = %q, want %q", got, inst.String())
		}
	}
}

func TestLineComment(t *testing.T) {
	c := New()
	inst := disasm.Decode([]byte{0x90}, 0)
	got := Strip(c.Line(inst, "ref: nop"))
	if !strings.HasSuffix(got, "nop ; ref: nop") {
		t.Errorf("Strip(Line) = %q", got)
	}
}

func TestAssemblyKeepsText(t *testing.T) {
	c := New()
	in := "mov    0x8(%ebp),%eax"
	out, err := c.Assembly(in)
	if err != nil {
		t.Fatalf("Assembly failed: %v", err)
	}
	if Strip(out) != in {
		t.Errorf("Strip(Assembly) = %q, want %q", Strip(out), in)
	}
}

func TestStrip(t *testing.T) {
	if got := Strip("\x1b[38;2;79;79;79mabc\x1b[0m def"); got != "abc def" {
		t.Errorf("Strip = %q", got)
	}
}

func TestDisabled(t *testing.T) {
	t.Setenv("X86DIS_NO_COLOR", "1")
	if !Disabled() {
		t.Error("Disabled() = false with X86DIS_NO_COLOR set")
	}
	t.Setenv("X86DIS_NO_COLOR", "")
	if Disabled() {
		t.Error("Disabled() = true with X86DIS_NO_COLOR empty")
	}
}

func TestLineBytesColumn(t *testing.T) {
	c := New()
	// lea 0x1000(,%eax,4),%eax fills the bytes column exactly
	for _, code := range [][]byte{{0x90}, {0x8d, 0x04, 0x85, 0x00, 0x10, 0x00, 0x00}} {
		inst := disasm.Decode(code, 0)
		got := Strip(c.Line(inst, ""))
		col := len("       0:  ") + disasm.BytesWidth + len("  ")
		if len(got) < col || !strings.HasPrefix(got[col:], inst.Op) {
			t.Errorf("mnemonic not at column %d in %q", col, got)
		}
	}
}
