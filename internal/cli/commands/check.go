package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/luadecl/internal/cli/output"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate manifests without writing output",
		Long: `Run the full pipeline — manifest loading, model building, inclusion
graph resolution, naming and type mapping — and report every diagnostic,
without writing any declaration file.

Exits non-zero when fatal diagnostics are present.`,
		Example: `  # Validate the configured input directory
  luadecl check

  # Validate a specific manifest tree strictly
  luadecl check -i bindings/ --strictness strict`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := buildEngine(cmd)
			if err != nil {
				return err
			}

			res, err := eng.Check(cmd.Context())
			if err != nil {
				return err
			}

			styles := output.DefaultStyles()
			printDiagnostics(cmd.OutOrStdout(), res.Diagnostics, styles)
			if res.Diagnostics.Len() > 0 {
				printSummary(cmd.OutOrStdout(), res.Diagnostics)
			}

			if res.Diagnostics.HasFatal() {
				return fmt.Errorf("check failed: fatal diagnostics")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	return cmd
}
