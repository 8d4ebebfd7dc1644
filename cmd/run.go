package cmd

import (
	"github.com/spf13/cobra"

	"zkmutant.dev/pkg/zkmutant/internal/domain"
	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

var (
	runLimitFlag       int
	runFailOnSurvivors bool
)

const runLongDescription = `Run mutation testing: verify the baseline test suite passes, discover
mutation candidates, then re-run ` + "`nargo test`" + ` once per mutant in an
isolated copy of the project. Artifacts land in the output directory
(default <project>/mutants.out), rotated atomically per run.`

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run mutation testing",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pipeline := buildPipeline()

			report, err := pipeline.Run(cmd.Context(), domain.RunArgs{
				ProjectPath: projectPath(),
				OutDir:      outDirPath(),
				Limit:       runLimitFlag,
			})

			if jsonFlag {
				if printErr := printJSON(cmd.OutOrStdout(), report); printErr != nil {
					return printErr
				}
			}

			if err != nil {
				return err
			}

			printRunSummary(report)

			if runFailOnSurvivors && report.Summary.Missed > 0 {
				ui.Error("mutation testing failed policy: %d mutant(s) missed (--%s)",
					report.Summary.Missed, survivorFlagName)

				return &exitCodeError{code: 2, msg: "surviving mutants"}
			}

			return nil
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&runLimitFlag, limitFlagName, -1,
		"run only the first N discovered mutants (deterministic order)")
	cmd.Flags().BoolVar(&runFailOnSurvivors, survivorFlagName, false,
		"exit with code 2 if any mutant is missed (useful for CI)")
}

func printRunSummary(report *m.RunReport) {
	ui.Title("--- mutation run summary ---")
	ui.Line("mutants discovered: %d", report.Discovered)
	ui.Line("mutants executed:   %d", report.Executed)
	ui.Line("caught:   %d", report.Summary.Caught)
	ui.Line("missed:   %d", report.Summary.Missed)
	ui.Line("unviable: %d", report.Summary.Unviable)
	ui.Line("timeout:  %d", report.Summary.Timeout)
	ui.Line("error:    %d", report.Summary.Error)

	byID := make(map[int]m.Mutant, len(report.Mutants))
	for _, mu := range report.Mutants {
		byID[mu.ID] = mu
	}

	if verboseFlag {
		ui.Title("--- all mutants ---")

		for _, outcome := range report.Outcomes {
			ui.MutantProgress(byID[outcome.MutantID], outcome)
		}
	}

	if report.Summary.Missed > 0 {
		ui.Title("--- missed mutants ---")

		for _, outcome := range report.Outcomes {
			if outcome.Kind != m.OutcomeMissed {
				continue
			}

			mu := byID[outcome.MutantID]
			ui.Line("#%d %s [%d..%d] %s: %q -> %q",
				mu.ID, mu.Span.File, mu.Span.Start, mu.Span.End,
				mu.Operator, mu.Original, mu.Replacement)
		}
	}
}
