package cmd

import (
	"github.com/spf13/cobra"

	"zkmutant.dev/pkg/zkmutant/internal/domain"
)

var listLimitFlag int

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered mutants without executing tests",
		Long: `Discover mutation candidates and list them in deterministic order.
With --out-dir the full inventory is written as mutants.json together
with per-mutant diff artifacts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pipeline := buildPipeline()

			report, err := pipeline.List(cmd.Context(), domain.ListArgs{
				ProjectPath: projectPath(),
				OutDir:      outDirPath(),
				Limit:       listLimitFlag,
			})

			if jsonFlag {
				if printErr := printJSON(cmd.OutOrStdout(), report); printErr != nil {
					return printErr
				}
			}

			if err != nil {
				return err
			}

			ui.Line("discovered %d mutants", report.Discovered)
			ui.Line("listed %d mutants", report.Listed)
			ui.Title("--- mutants (discovered) ---")

			for _, mu := range report.Mutants {
				ui.Line("#%d %s [%d..%d] %s: %q -> %q",
					mu.ID, mu.Span.File, mu.Span.Start, mu.Span.End,
					mu.Operator, mu.Original, mu.Replacement)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&listLimitFlag, limitFlagName, -1,
		"show only the first N discovered mutants (deterministic order)")

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
