package model

import "errors"

// Sentinel errors for the fatal failure kinds. Per-mutant failures are not
// sentinels; they surface as OutcomeError entries and the run continues.
var (
	// ErrProjectLoad indicates a missing Nargo.toml or unreadable source.
	ErrProjectLoad = errors.New("project load failed")

	// ErrBaselineFailed indicates the unmutated test suite did not pass.
	ErrBaselineFailed = errors.New("baseline test run failed")

	// ErrDiscovery indicates a file read failure during the mutant scan.
	ErrDiscovery = errors.New("mutant discovery failed")
)

// BaselineReport records the unmutated project's gate run.
type BaselineReport struct {
	Passed       bool   `json:"passed"`
	DurationMS   int64  `json:"duration_ms"`
	CapturedTail string `json:"captured_tail,omitempty"`
}

// Summary holds per-outcome counts for a run.
type Summary struct {
	Caught   int `json:"caught"`
	Missed   int `json:"missed"`
	Unviable int `json:"unviable"`
	Timeout  int `json:"timeout"`
	Error    int `json:"error"`
}

// Count returns the tally for one outcome kind.
func (s Summary) Count(kind OutcomeKind) int {
	switch kind {
	case OutcomeCaught:
		return s.Caught
	case OutcomeMissed:
		return s.Missed
	case OutcomeUnviable:
		return s.Unviable
	case OutcomeTimeout:
		return s.Timeout
	case OutcomeError:
		return s.Error
	}

	return 0
}

// Add increments the tally for one outcome kind.
func (s *Summary) Add(kind OutcomeKind) {
	switch kind {
	case OutcomeCaught:
		s.Caught++
	case OutcomeMissed:
		s.Missed++
	case OutcomeUnviable:
		s.Unviable++
	case OutcomeTimeout:
		s.Timeout++
	case OutcomeError:
		s.Error++
	}
}

// Total returns the number of recorded outcomes.
func (s Summary) Total() int {
	return s.Caught + s.Missed + s.Unviable + s.Timeout + s.Error
}

// RunError is a structured entry in run.json's error list.
type RunError struct {
	Kind    string `json:"kind"`
	Detail  string `json:"detail"`
	Mutant  int    `json:"mutant,omitempty"`
	IsFatal bool   `json:"fatal"`
}

// Invocation holds the non-deterministic fields of run.json. They are
// namespaced here so every other field stays reproducible across runs.
type Invocation struct {
	Timestamp   string `json:"timestamp,omitempty"`
	ProjectRoot string `json:"project_root,omitempty"`
}

// RunReport is the machine-readable report for a mutation test run. Under
// --json it is printed to stdout exactly once; once the output directory
// has been prepared it is persisted there as run.json.
type RunReport struct {
	Tool       string         `json:"tool"`
	Version    string         `json:"version"`
	Invocation Invocation     `json:"invocation"`
	Discovered int            `json:"discovered"`
	Executed   int            `json:"executed"`
	Baseline   BaselineReport `json:"baseline"`
	Summary    Summary        `json:"summary"`
	Mutants    []Mutant       `json:"mutants"`
	Outcomes   []Outcome      `json:"outcomes"`
	Errors     []RunError     `json:"errors"`
}

// PreflightReport is emitted by the preflight diagnostic.
type PreflightReport struct {
	Tool            string         `json:"tool"`
	Version         string         `json:"version"`
	CompilerVersion string         `json:"compiler_version,omitempty"`
	NargoVersion    string         `json:"nargo_version,omitempty"`
	Baseline        BaselineReport `json:"baseline"`
	Error           string         `json:"error,omitempty"`
}

// ListReport is emitted by the list subcommand under --json.
type ListReport struct {
	Tool       string   `json:"tool"`
	Version    string   `json:"version"`
	Discovered int      `json:"discovered"`
	Listed     int      `json:"listed"`
	Mutants    []Mutant `json:"mutants"`
	Error      string   `json:"error,omitempty"`
}
