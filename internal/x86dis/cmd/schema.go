package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "schema [record|options]",
		Short:  "Generate JSON schema for --json records",
		Long:   "Generate the JSON schema of the records written by --json, or of the decode options",
		Hidden: true,
		Args:   cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v any = &Record{}
			if len(args) == 1 {
				switch args[0] {
				case "record":
				case "options":
					v = &Options{}
				default:
					return fmt.Errorf("unknown schema %q", args[0])
				}
			}
			reflector := new(jsonschema.Reflector)
			bts, err := json.MarshalIndent(reflector.Reflect(v), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			return nil
		},
	}
}
