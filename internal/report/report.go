// Package report builds the markdown summary printed after a listing.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"x86dis/internal/disasm"
	"x86dis/internal/x86dis/styles"
)

// Summary counts what a decode pass produced.
type Summary struct {
	File         string
	Kind         string
	Base         uint32
	Bytes        int
	Instructions int
	Unrecognized int
	Unhandled    int
	Mnemonics    map[string]int
}

// MnemonicCount is one row of the mnemonic histogram.
type MnemonicCount struct {
	Mnemonic string
	Count    int
}

// Summarize counts the instructions and diagnostics in s.
func Summarize(s disasm.Stream) Summary {
	sum := Summary{Mnemonics: map[string]int{}}
	if len(s) > 0 {
		sum.Base = s[0].Addr
	}
	for _, inst := range s {
		sum.Bytes += inst.Len
		switch {
		case errors.Is(inst.Err, disasm.ErrUnrecognizedOpcode):
			sum.Unrecognized++
		case inst.Err != nil:
			sum.Unhandled++
		default:
			sum.Instructions++
			sum.Mnemonics[inst.Op]++
		}
	}
	return sum
}

// Histogram returns the mnemonic counts, most frequent first.
func (s Summary) Histogram() []MnemonicCount {
	out := make([]MnemonicCount, 0, len(s.Mnemonics))
	for m, n := range s.Mnemonics {
		out = append(out, MnemonicCount{m, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Mnemonic < out[j].Mnemonic
	})
	return out
}

// Markdown renders the summary as a markdown document.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("# x86dis\n\n```\n")
	if s.File != "" {
		fmt.Fprintf(&b, "; %s\n", s.File)
	}
	kind := s.Kind
	if kind == "" {
		kind = "raw"
	}
	fmt.Fprintf(&b, "; %s, %d bytes at %#x\n```\n\n", kind, s.Bytes, s.Base)

	b.WriteString("## Decoding\n\n")
	b.WriteString("| result | count |\n|---|---|\n")
	fmt.Fprintf(&b, "| instructions | %d |\n", s.Instructions)
	fmt.Fprintf(&b, "| unrecognized opcodes | %d |\n", s.Unrecognized)
	fmt.Fprintf(&b, "| unhandled operand patterns | %d |\n", s.Unhandled)

	if len(s.Mnemonics) > 0 {
		b.WriteString("\n## Mnemonics\n\n")
		b.WriteString("| mnemonic | count |\n|---|---|\n")
		for _, row := range s.Histogram() {
			fmt.Fprintf(&b, "| `%s` | %d |\n", row.Mnemonic, row.Count)
		}
	}
	return b.String()
}

// Render renders the summary for a terminal of the given width.
func Render(s Summary, width int, color bool) (string, error) {
	if width <= 0 {
		width = 80
	}
	render := styles.GetPlainRenderer
	if color {
		render = styles.GetMarkdownRenderer
	}
	r, err := render(width - 2)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(s.Markdown())
	if err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	return out, nil
}
