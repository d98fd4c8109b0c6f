package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/pprof"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"x86dis/internal/disasm"
	"x86dis/internal/loader"
	"x86dis/internal/logging"
	"x86dis/internal/refcheck"
	"x86dis/internal/report"
	"x86dis/internal/ui/colorize"
	xlog "x86dis/internal/x86dis/log"
)

// Options holds everything that shapes one decode run.
type Options struct {
	Load      loader.Options `json:"load" jsonschema:"title=Load,description=How the input file is turned into bytes"`
	JSON      bool           `json:"json" jsonschema:"title=JSON,description=Write one JSON record per instruction"`
	Reference bool           `json:"reference" jsonschema:"title=Reference,description=Annotate lines with the x86asm decoding"`
	Summary   bool           `json:"summary" jsonschema:"title=Summary,description=Print a markdown summary after the listing"`
	Color     bool           `json:"color" jsonschema:"title=Color,description=Colour the listing"`
	Width     int            `json:"width,omitempty" jsonschema:"title=Width,description=Summary wrap width"`
}

// Record is the JSON form of one listing line.
type Record struct {
	Addr   string `json:"addr" jsonschema:"description=Instruction address in hex"`
	Offset int    `json:"offset" jsonschema:"description=Byte offset into the decoded buffer"`
	Bytes  string `json:"bytes" jsonschema:"description=Encoded bytes as space-separated hex"`
	Op     string `json:"op" jsonschema:"description=Mnemonic, (bad) for diagnostics"`
	Args   string `json:"args,omitempty" jsonschema:"description=Operands in AT&T order"`
	Len    int    `json:"len" jsonschema:"description=Bytes consumed"`
	Error  string `json:"error,omitempty" jsonschema:"description=Diagnostic for undecodable bytes"`
	Ref    string `json:"ref,omitempty" jsonschema:"description=Reference decoder annotation"`
}

func newRecord(inst disasm.Inst, ref string) Record {
	r := Record{
		Addr:   fmt.Sprintf("%#x", inst.Addr),
		Offset: inst.Offset,
		Bytes:  disasm.HexBytes(inst.Raw),
		Op:     inst.Op,
		Args:   inst.Args,
		Len:    inst.Len,
		Ref:    ref,
	}
	if inst.Err != nil {
		r.Error = inst.Err.Error()
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(f.Fd()); err == nil {
			return width
		}
	}
	return 80
}

// optionsFromFlags reads the decode flags shared by the root and view commands.
func optionsFromFlags(cmd *cobra.Command) Options {
	base, _ := cmd.Flags().GetUint32("base")
	raw, _ := cmd.Flags().GetBool("raw")
	section, _ := cmd.Flags().GetString("section")
	jsonOut, _ := cmd.Flags().GetBool("json")
	ref, _ := cmd.Flags().GetBool("reference")
	summary, _ := cmd.Flags().GetBool("summary")
	noColor, _ := cmd.Flags().GetBool("no-color")

	out := cmd.OutOrStdout()
	return Options{
		Load:      loader.Options{Base: base, Raw: raw, Section: section},
		JSON:      jsonOut,
		Reference: ref,
		Summary:   summary,
		Color:     !noColor && !jsonOut && !colorize.Disabled() && isTerminal(out),
		Width:     terminalWidth(out),
	}
}

func addLoadFlags(cmd *cobra.Command) {
	cmd.Flags().Uint32P("base", "b", 0, "Address of the first byte of raw input (accepts 0x prefix)")
	cmd.Flags().Bool("raw", false, "Decode ELF files as raw bytes")
	cmd.Flags().String("section", loader.DefaultSection, "ELF section to decode")
}

// Decode writes the listing of im to w and returns the number of
// diagnostics emitted.
func Decode(w io.Writer, im *loader.Image, opts Options, logger *log.Logger) (int, error) {
	var (
		col    *colorize.Colorizer
		stream disasm.Stream
		diags  int
	)
	if opts.Color {
		col = colorize.New()
	}
	enc := json.NewEncoder(w)

	err := disasm.Walk(im.Code, im.Base, func(inst disasm.Inst) error {
		if opts.Summary {
			stream = append(stream, inst)
		}
		if inst.Err != nil {
			diags++
			logger.Debug("Decode diagnostic", "addr", fmt.Sprintf("%#x", inst.Addr), "offset", inst.Offset, "err", inst.Err)
		}

		comment := ""
		if opts.Reference {
			comment = refcheck.Check(inst, im.Code[inst.Offset:]).Annotation()
		}

		switch {
		case opts.JSON:
			return enc.Encode(newRecord(inst, comment))
		case col != nil:
			_, err := fmt.Fprintln(w, col.Line(inst, comment))
			return err
		default:
			line := inst.String()
			if comment != "" {
				line += " ; " + comment
			}
			_, err := fmt.Fprintln(w, line)
			return err
		}
	})
	if err != nil {
		return diags, fmt.Errorf("write listing: %w", err)
	}

	if opts.Summary {
		sum := report.Summarize(stream)
		sum.File = im.Path
		sum.Kind = im.Kind
		sum.Base = im.Base
		out, err := report.Render(sum, opts.Width, opts.Color)
		if err != nil {
			return diags, err
		}
		if _, err := fmt.Fprint(w, out); err != nil {
			return diags, fmt.Errorf("write summary: %w", err)
		}
	}
	return diags, nil
}

func requireFile(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s <file>", cmd.CommandPath())
	}
	return nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "x86dis [file]",
		Short: "Decode 32-bit x86 machine code",
		Long: `x86dis decodes a file of 32-bit x86 machine code into an AT&T listing,
one line per instruction: address, encoded bytes, mnemonic and operands.
Undecodable bytes are reported inline and decoding continues.`,
		Example: `
# Decode a raw code blob mapped at 0x8048000
x86dis -b 0x8048000 code.bin

# Decode the .text section of an i386 ELF binary with reference annotations
x86dis -r a.out

# Emit JSON records
x86dis --json code.bin
  `,
		Args:          requireFile,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			xlog.Setup(debug || logging.IsDebug())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
			if cpuprofile != "" {
				f, err := os.Create(cpuprofile)
				if err != nil {
					return fmt.Errorf("could not create CPU profile: %w", err)
				}
				defer f.Close()
				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("could not start CPU profile: %w", err)
				}
				defer pprof.StopCPUProfile()
			}

			opts := optionsFromFlags(cmd)
			im, err := loader.Load(args[0], opts.Load)
			if err != nil {
				return err
			}

			logger := logging.NewLoggerTo(cmd.ErrOrStderr())
			defer logger.Close()
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logger.SetLevel(log.DebugLevel)
			}

			diags, err := Decode(cmd.OutOrStdout(), im, opts, logger.Logger)
			if err != nil {
				return err
			}
			if diags > 0 {
				logger.Warn("Decoded with diagnostics", "file", im.Path, "bytes", len(im.Code), "diagnostics", diags)
			} else {
				logger.Debug("Decoded", "file", im.Path, "bytes", len(im.Code))
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	addLoadFlags(rootCmd)
	rootCmd.Flags().BoolP("json", "j", false, "Output one JSON record per instruction")
	rootCmd.Flags().BoolP("reference", "r", false, "Annotate each line with the x86asm decoding")
	rootCmd.Flags().BoolP("summary", "s", false, "Print a summary after the listing")
	rootCmd.Flags().Bool("no-color", false, "Disable colour output")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")

	rootCmd.AddCommand(newViewCmd(), newVerifyCmd(), newSchemaCmd())
	return rootCmd
}

func Execute() {
	rootCmd := newRootCmd()

	// fang renders help and errors as markdown; skip it when piped
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		slog.Debug("Command failed", "error", err)
		os.Exit(1)
	}
}
