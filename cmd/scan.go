package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

// scanTopFiles caps the per-file inventory listing.
const scanTopFiles = 10

// scanCmd represents the scan command.
var scanCmd = newScanCmd()

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Show a project overview and mutation inventory",
		Long: `Analyze the project without executing anything: source and test metrics,
plus a summary of the mutation candidates that a run would execute.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pipeline := buildPipeline()

			ui.Title(toolName + ": scan")

			overview, mutants, err := pipeline.Scan(projectPath())
			if err != nil {
				ui.Error("%s", err.Error())
				return err
			}

			ui.Overview(overview)
			ui.Line("discovered %d mutants", len(mutants))

			if len(mutants) == 0 {
				ui.Line("no mutation opportunities found")
				return nil
			}

			ui.Inventory("--- by operator ---", countRows(mutants, func(mu m.Mutant) string {
				return string(mu.Operator)
			}, 0), len(mutants))

			ui.Inventory("--- top files ---", countRows(mutants, func(mu m.Mutant) string {
				return mu.Span.File
			}, scanTopFiles), len(mutants))

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

// countRows tallies mutants by key and renders sorted name/count rows,
// highest count first with name as the tiebreak. A positive top bounds the
// row count.
func countRows(mutants []m.Mutant, key func(m.Mutant) string, top int) [][]string {
	counts := make(map[string]int)
	for _, mu := range mutants {
		counts[key(mu)]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}

		return names[i] < names[j]
	})

	if top > 0 && len(names) > top {
		names = names[:top]
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, fmt.Sprintf("%d", counts[name])})
	}

	return rows
}
