// Package colorize applies terminal colours to listing lines. Operand text is
// highlighted with chroma's GAS lexer; the address and byte columns are
// dimmed with lipgloss.
package colorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss/v2"

	"x86dis/internal/disasm"
)

// Disabled reports whether X86DIS_NO_COLOR is set.
func Disabled() bool {
	return os.Getenv("X86DIS_NO_COLOR") != ""
}

// getAssemblyLexer returns an AT&T assembly lexer with fallbacks
func getAssemblyLexer() chroma.Lexer {
	for _, name := range []string{"gas", "GAS", "nasm"} {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

func getDisasmStyle() *chroma.Style {
	for _, name := range []string{StyleName, "dracula", "monokai"} {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

func getTerminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Colorizer renders instructions with colour.
type Colorizer struct {
	lexer     chroma.Lexer
	style     *chroma.Style
	formatter chroma.Formatter

	addrStyle    lipgloss.Style
	bytesStyle   lipgloss.Style
	badStyle     lipgloss.Style
	commentStyle lipgloss.Style
}

// New returns a Colorizer. It falls back to plain text if no assembly
// lexer is available.
func New() *Colorizer {
	return &Colorizer{
		lexer:        getAssemblyLexer(),
		style:        getDisasmStyle(),
		formatter:    getTerminalFormatter(),
		addrStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		bytesStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		badStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		commentStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
}

// Assembly highlights a block of assembly text.
func (c *Colorizer) Assembly(code string) (string, error) {
	if c.lexer == nil {
		return code, nil
	}
	iterator, err := c.lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var buf strings.Builder
	if err := c.formatter.Format(&buf, c.style, iterator); err != nil {
		return code, err
	}

	out := buf.String()
	// lexers ensure a trailing newline; drop it again if the input had none
	if !strings.HasSuffix(code, "\n") {
		if i := strings.LastIndex(out, "\n"); i >= 0 {
			out = out[:i] + out[i+1:]
		}
	}
	return out, nil
}

// Line renders inst like disasm.Inst.String, with an optional trailing
// comment, in colour. Stripping the escape codes gives the plain line.
func (c *Colorizer) Line(inst disasm.Inst, comment string) string {
	hex := disasm.HexBytes(inst.Raw)
	pad := ""
	if n := disasm.BytesWidth - len(hex); n > 0 {
		pad = strings.Repeat(" ", n)
	}

	var b strings.Builder
	b.WriteString(c.addrStyle.Render(fmt.Sprintf("%8x:", inst.Addr)))
	b.WriteString("  ")
	b.WriteString(c.bytesStyle.Render(hex))
	b.WriteString(pad)
	b.WriteString("  ")

	if inst.Bad() {
		b.WriteString(c.badStyle.Render(inst.Text()))
	} else {
		text, err := c.Assembly(inst.Text())
		if err != nil {
			text = inst.Text()
		}
		b.WriteString(text)
	}

	if comment != "" {
		b.WriteString(" ")
		b.WriteString(c.commentStyle.Render("; " + comment))
	}
	return b.String()
}

// Strip removes ANSI escape sequences.
func Strip(s string) string {
	var result strings.Builder
	inEscape := false

	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}
