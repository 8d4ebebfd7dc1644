package controller

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

func TestConsoleUI_PlainLinesOnNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	ui := NewConsoleUI(&buf)

	ui.Title("zk-mutant: run")
	ui.Line("project: %s", "/tmp/p")
	ui.Warn("careful: %d", 7)
	ui.Error("boom")

	out := buf.String()
	assert.Equal(t, "zk-mutant: run\nproject: /tmp/p\ncareful: 7\nboom\n", out)
	assert.NotContains(t, out, "\x1b[", "no ANSI escapes on a non-terminal stream")
}

func TestConsoleUI_NoColorDisablesStyling(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	ui := NewConsoleUI(&buf)

	ui.Error("plain failure")
	assert.Equal(t, "plain failure\n", buf.String())
}

func TestConsoleUI_MutantProgressLine(t *testing.T) {
	var buf bytes.Buffer
	ui := NewConsoleUI(&buf)

	mu := m.Mutant{
		ID:          4,
		Span:        m.Span{File: "src/main.nr", Start: 31, End: 33},
		Original:    "==",
		Replacement: "!=",
		Operator:    m.OpEqToNe,
	}

	ui.MutantProgress(mu, m.Outcome{MutantID: 4, Kind: m.OutcomeMissed, DurationMS: 12})

	out := buf.String()
	assert.Contains(t, out, "missed")
	assert.Contains(t, out, "#4 src/main.nr [31..33]")
	assert.Contains(t, out, `"==" -> "!="`)
	assert.Contains(t, out, "12ms")
}

func TestConsoleUI_MutantProgressIncludesErrorDetail(t *testing.T) {
	var buf bytes.Buffer
	ui := NewConsoleUI(&buf)

	mu := m.Mutant{ID: 1, Span: m.Span{File: "a.nr"}, Original: "+", Replacement: "-"}
	ui.MutantProgress(mu, m.Outcome{MutantID: 1, Kind: m.OutcomeError, Detail: "copy failed"})

	assert.Contains(t, buf.String(), "detail: copy failed")
}

func TestConsoleUI_OverviewTable(t *testing.T) {
	var buf bytes.Buffer
	ui := NewConsoleUI(&buf)

	ui.Overview(m.ProjectOverview{
		Root:          "/tmp/project",
		NrFiles:       3,
		TestFiles:     1,
		TestFunctions: 2,
		CodeLines:     120,
		TestLines:     30,
		NonTestLines:  90,
		TestCodeRatio: 25.0,
	})

	out := buf.String()
	assert.Contains(t, out, "--- project overview ---")
	assert.Contains(t, out, "/tmp/project")
	assert.Contains(t, out, "120")
	assert.Contains(t, out, "25.00%")
}

func TestConsoleUI_InventoryTableWithTotal(t *testing.T) {
	var buf bytes.Buffer
	ui := NewConsoleUI(&buf)

	ui.Inventory("--- mutation inventory ---", [][]string{
		{"eq_to_neq", "2"},
		{"lt_to_ge", "1"},
	}, 3)

	out := buf.String()
	assert.Contains(t, out, "eq_to_neq")
	assert.Contains(t, out, "lt_to_ge")

	require.True(t, strings.Contains(strings.ToLower(out), "total"))
	assert.Contains(t, out, "3")
}
