// Package controller provides the presentation layer for the zk-mutant CLI.
package controller

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

// UI is the human-output surface. Every line goes to the error stream so
// stdout stays reserved for machine-readable JSON.
type UI interface {
	Line(format string, args ...any)
	Title(msg string)
	Warn(format string, args ...any)
	Error(format string, args ...any)

	// MutantProgress prints the per-mutant outcome line.
	MutantProgress(mu m.Mutant, outcome m.Outcome)

	// Overview renders the scan command's project summary table.
	Overview(overview m.ProjectOverview)

	// Inventory renders a two-column name/count table with a total footer.
	Inventory(title string, rows [][]string, total int)
}

// ConsoleUI writes plain or styled text to an error stream.
type ConsoleUI struct {
	err    io.Writer
	styled bool

	titleStyle lipgloss.Style
	warnStyle  lipgloss.Style
	errStyle   lipgloss.Style
	kindStyles map[m.OutcomeKind]lipgloss.Style
}

// NewConsoleUI constructs a ConsoleUI writing to err. Styling activates only
// on a terminal with NO_COLOR unset.
func NewConsoleUI(err io.Writer) *ConsoleUI {
	styled := os.Getenv("NO_COLOR") == "" && isTerminal(err)

	return &ConsoleUI{
		err:        err,
		styled:     styled,
		titleStyle: lipgloss.NewStyle().Bold(true),
		warnStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		errStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		kindStyles: map[m.OutcomeKind]lipgloss.Style{
			m.OutcomeCaught:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
			m.OutcomeMissed:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
			m.OutcomeUnviable: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
			m.OutcomeTimeout:  lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
			m.OutcomeError:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		},
	}
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	info, err := file.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

func (u *ConsoleUI) write(s string) {
	_, _ = fmt.Fprintln(u.err, s)
}

func (u *ConsoleUI) render(style lipgloss.Style, s string) string {
	if !u.styled {
		return s
	}

	return style.Render(s)
}

// Line implements UI.
func (u *ConsoleUI) Line(format string, args ...any) {
	u.write(fmt.Sprintf(format, args...))
}

// Title implements UI.
func (u *ConsoleUI) Title(msg string) {
	u.write(u.render(u.titleStyle, msg))
}

// Warn implements UI.
func (u *ConsoleUI) Warn(format string, args ...any) {
	u.write(u.render(u.warnStyle, fmt.Sprintf(format, args...)))
}

// Error implements UI.
func (u *ConsoleUI) Error(format string, args ...any) {
	u.write(u.render(u.errStyle, fmt.Sprintf(format, args...)))
}

// MutantProgress implements UI.
func (u *ConsoleUI) MutantProgress(mu m.Mutant, outcome m.Outcome) {
	tag := u.render(u.kindStyles[outcome.Kind], string(outcome.Kind))

	u.write(fmt.Sprintf("%s %6dms  #%d %s [%d..%d] %s: %q -> %q",
		tag, outcome.DurationMS, mu.ID, mu.Span.File, mu.Span.Start, mu.Span.End,
		mu.Operator, mu.Original, mu.Replacement))

	if outcome.Detail != "" {
		u.write(fmt.Sprintf("  detail: %s", outcome.Detail))
	}
}

// Overview implements UI.
func (u *ConsoleUI) Overview(overview m.ProjectOverview) {
	u.Title("--- project overview ---")

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	table.Append([]string{"project root", overview.Root})
	table.Append([]string{"nr files (.nr)", fmt.Sprintf("%d", overview.NrFiles)})
	table.Append([]string{"test files", fmt.Sprintf("%d", overview.TestFiles)})
	table.Append([]string{"test functions", fmt.Sprintf("%d", overview.TestFunctions)})
	table.Append([]string{"code lines", fmt.Sprintf("%d", overview.CodeLines)})
	table.Append([]string{"test code lines", fmt.Sprintf("%d", overview.TestLines)})
	table.Append([]string{"non-test code lines", fmt.Sprintf("%d", overview.NonTestLines)})
	table.Append([]string{"test code ratio", fmt.Sprintf("%.2f%%", overview.TestCodeRatio)})
	table.Render()

	u.write(buf.String())
}

// Inventory implements UI.
func (u *ConsoleUI) Inventory(title string, rows [][]string, total int) {
	u.Title(title)

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	for _, row := range rows {
		table.Append(row)
	}

	table.SetFooter([]string{"total", fmt.Sprintf("%d", total)})
	table.Render()

	u.write(buf.String())
}
