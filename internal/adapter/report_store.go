package adapter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

// ReportStore persists run artifacts into the output directory.
type ReportStore interface {
	// Prepare rotates dest: dest.old is removed, an existing dest is
	// renamed to dest.old, and a fresh dest is created. Rotation happens
	// exactly once, before any artifact is written.
	Prepare(dest m.Path) error

	// WriteMutants writes mutants.json with the full pre-limit inventory.
	WriteMutants(dest m.Path, mutants []m.Mutant) error

	// WriteDiff writes diff/NNNNNN.diff for one mutant.
	WriteDiff(dest m.Path, id int, diff string) error

	// WriteOutcomes writes outcomes.json plus the caught/missed/unviable
	// text lists, joining outcomes with their mutants by ID.
	WriteOutcomes(dest m.Path, mutants []m.Mutant, outcomes []m.Outcome) error

	// WriteRun writes run.json.
	WriteRun(dest m.Path, report *m.RunReport) error

	// WriteLog writes the stable log artifact (no timestamps).
	WriteLog(dest m.Path, report *m.RunReport) error
}

// FSReportStore is the filesystem-backed ReportStore.
type FSReportStore struct{}

// NewFSReportStore constructs an FSReportStore.
func NewFSReportStore() *FSReportStore {
	return &FSReportStore{}
}

// Prepare implements ReportStore.
func (s *FSReportStore) Prepare(dest m.Path) error {
	destDir := string(dest)
	oldDir := destDir + ".old"

	if err := os.RemoveAll(oldDir); err != nil {
		return fmt.Errorf("remove %s: %w", oldDir, err)
	}

	if _, err := os.Stat(destDir); err == nil {
		if err := os.Rename(destDir, oldDir); err != nil {
			return fmt.Errorf("rotate %s: %w", destDir, err)
		}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}

	return nil
}

// WriteMutants implements ReportStore.
func (s *FSReportStore) WriteMutants(dest m.Path, mutants []m.Mutant) error {
	if mutants == nil {
		mutants = []m.Mutant{}
	}

	return writeJSON(filepath.Join(string(dest), "mutants.json"), mutants)
}

// WriteDiff implements ReportStore.
func (s *FSReportStore) WriteDiff(dest m.Path, id int, diff string) error {
	diffDir := filepath.Join(string(dest), "diff")
	if err := os.MkdirAll(diffDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", diffDir, err)
	}

	path := filepath.Join(diffDir, fmt.Sprintf("%06d.diff", id))
	if err := os.WriteFile(path, []byte(diff), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// outcomeEntry joins a mutant's site with its outcome for outcomes.json.
type outcomeEntry struct {
	ID         int           `json:"id"`
	File       string        `json:"file"`
	Start      int           `json:"start"`
	End        int           `json:"end"`
	Outcome    m.OutcomeKind `json:"outcome"`
	DurationMS int64         `json:"duration_ms"`
}

// WriteOutcomes implements ReportStore.
func (s *FSReportStore) WriteOutcomes(dest m.Path, mutants []m.Mutant, outcomes []m.Outcome) error {
	byID := make(map[int]m.Mutant, len(mutants))
	for _, mu := range mutants {
		byID[mu.ID] = mu
	}

	entries := make([]outcomeEntry, 0, len(outcomes))
	lists := map[m.OutcomeKind][]string{
		m.OutcomeCaught:   {},
		m.OutcomeMissed:   {},
		m.OutcomeUnviable: {},
	}

	for _, outcome := range outcomes {
		mu, ok := byID[outcome.MutantID]
		if !ok {
			return fmt.Errorf("outcome for unknown mutant %d", outcome.MutantID)
		}

		entries = append(entries, outcomeEntry{
			ID:         mu.ID,
			File:       mu.Span.File,
			Start:      mu.Span.Start,
			End:        mu.Span.End,
			Outcome:    outcome.Kind,
			DurationMS: outcome.DurationMS,
		})

		if lines, wanted := lists[outcome.Kind]; wanted {
			lists[outcome.Kind] = append(lines,
				fmt.Sprintf("%d\t%s\t%s→%s", mu.ID, mu.Location(), mu.Original, mu.Replacement))
		}
	}

	if err := writeJSON(filepath.Join(string(dest), "outcomes.json"), entries); err != nil {
		return err
	}

	files := map[string]m.OutcomeKind{
		"caught.txt":   m.OutcomeCaught,
		"missed.txt":   m.OutcomeMissed,
		"unviable.txt": m.OutcomeUnviable,
	}

	for name, kind := range files {
		content := ""
		if lines := lists[kind]; len(lines) > 0 {
			content = strings.Join(lines, "\n") + "\n"
		}

		path := filepath.Join(string(dest), name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	return nil
}

// WriteRun implements ReportStore.
func (s *FSReportStore) WriteRun(dest m.Path, report *m.RunReport) error {
	return writeJSON(filepath.Join(string(dest), "run.json"), report)
}

// WriteLog implements ReportStore. Durations and timestamps are omitted so
// the file is a deterministic function of the run's inputs.
func (s *FSReportStore) WriteLog(dest m.Path, report *m.RunReport) error {
	lines := []string{
		fmt.Sprintf("baseline: passed=%t", report.Baseline.Passed),
		fmt.Sprintf("summary: caught=%d missed=%d unviable=%d timeout=%d error=%d",
			report.Summary.Caught, report.Summary.Missed, report.Summary.Unviable,
			report.Summary.Timeout, report.Summary.Error),
	}

	for _, runErr := range report.Errors {
		lines = append(lines, fmt.Sprintf("error: %s: %s", runErr.Kind, runErr.Detail))
	}

	path := filepath.Join(string(dest), "log")
	content := strings.Join(lines, "\n") + "\n"

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize %s: %w", filepath.Base(path), err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
