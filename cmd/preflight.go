package cmd

import (
	"github.com/spf13/cobra"
)

// preflightCmd represents the preflight command.
var preflightCmd = newPreflightCmd()

func newPreflightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check the toolchain and baseline before a full run",
		Long: `Run the bounded diagnostic: load the project, probe tool versions, and
execute the baseline ` + "`nargo test`" + `. Exits 0 only when the baseline passes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pipeline := buildPipeline()

			report, err := pipeline.Preflight(cmd.Context(), projectPath())

			if jsonFlag {
				if printErr := printJSON(cmd.OutOrStdout(), report); printErr != nil {
					return printErr
				}
			}

			if err != nil {
				ui.Error("preflight failed: %s", err.Error())
				return err
			}

			compilerVersion := report.CompilerVersion
			if compilerVersion == "" {
				compilerVersion = "<none>"
			}

			ui.Title(toolName + ": preflight")
			ui.Line("compiler_version (Nargo.toml): %s", compilerVersion)

			if report.NargoVersion != "" {
				ui.Line("nargo --version: %s", report.NargoVersion)
			}

			ui.Line("baseline: passed=%t duration_ms=%d", report.Baseline.Passed, report.Baseline.DurationMS)

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(preflightCmd)
}
