package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/luadecl/internal/cli/config"
	"github.com/leapstack-labs/luadecl/internal/cli/output"
	"github.com/leapstack-labs/luadecl/internal/generator"
	"github.com/leapstack-labs/luadecl/internal/starhook"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Luau declaration stubs",
		Long: `Load annotation manifests, validate the declaration model, and write
the Luau declaration file(s).

Nothing is written when the run carries fatal diagnostics; warnings
exclude only the offending declarations.`,
		Example: `  # Generate using luadecl.yaml settings
  luadecl generate

  # Override the input and output paths
  luadecl generate -i bindings/ -o types/bindings.d.luau

  # Regenerate on every manifest change
  luadecl generate --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := buildEngine(cmd)
			if err != nil {
				return err
			}
			styles := output.DefaultStyles()

			if watch {
				return eng.Watch(cmd.Context(), func(res *generator.Result, err error) {
					reportRun(cmd, res, err, styles)
				})
			}

			res, err := eng.Run(cmd.Context())
			if err != nil {
				return err
			}
			printDiagnostics(cmd.ErrOrStderr(), res.Diagnostics, styles)
			if res.Diagnostics.HasFatal() {
				return fmt.Errorf("generation aborted: fatal diagnostics")
			}
			for _, f := range res.Files {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Watch the input directory and regenerate on change")

	return cmd
}

// reportRun prints one watch iteration's outcome without stopping the
// watcher.
func reportRun(cmd *cobra.Command, res *generator.Result, err error, styles *output.Styles) {
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return
	}
	printDiagnostics(cmd.ErrOrStderr(), res.Diagnostics, styles)
	if res.Diagnostics.HasFatal() {
		fmt.Fprintln(cmd.ErrOrStderr(), "generation aborted: fatal diagnostics")
		return
	}
	for _, f := range res.Files {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", f)
	}
}

// buildEngine assembles a generator from the loaded configuration.
func buildEngine(cmd *cobra.Command) (*generator.Engine, error) {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	logger := config.GetLogger(cmd.Context())

	gcfg := generator.Config{
		InputDir:   cfg.InputDir,
		OutputPath: cfg.OutputPath,
		Strictness: cfg.StrictnessValue(),
		Prefix:     cfg.Prefix,
		Renames:    cfg.Rename,
		Logger:     logger,
	}

	if cfg.NamingHook != "" {
		hook, err := starhook.Load(cfg.NamingHook, logger)
		if err != nil {
			return nil, err
		}
		gcfg.Hook = hook
	}

	return generator.New(gcfg), nil
}
