package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"x86dis/internal/loader"
	"x86dis/internal/refcheck"
)

func newVerifyCmd() *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Compare instruction lengths with the x86asm decoder",
		Long: `Decode the file and check every instruction's length against
golang.org/x/arch/x86/x86asm. Exits non-zero when any length differs.`,
		Example: `
# List every length mismatch
x86dis verify a.out

# Only report the count
x86dis verify -q code.bin
  `,
		Args: requireFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")

			opts := optionsFromFlags(cmd)
			im, err := loader.Load(args[0], opts.Load)
			if err != nil {
				return err
			}
			slog.Debug("Verifying", "file", im.Path, "kind", im.Kind, "bytes", len(im.Code))

			bad := refcheck.Mismatches(im.Code, im.Base)
			w := cmd.OutOrStdout()
			if !quiet {
				for _, inst := range bad {
					r := refcheck.Check(inst, im.Code[inst.Offset:])
					if _, err := fmt.Fprintf(w, "%s ; %s (len %d, want %d)\n", inst.String(), r.Annotation(), inst.Len, r.Len); err != nil {
						return fmt.Errorf("write mismatch: %w", err)
					}
				}
			}
			if len(bad) > 0 {
				return fmt.Errorf("%d length mismatches", len(bad))
			}
			_, err = fmt.Fprintln(w, "ok")
			return err
		},
	}
	addLoadFlags(verifyCmd)
	verifyCmd.Flags().BoolP("quiet", "q", false, "Only report the mismatch count")
	return verifyCmd
}
