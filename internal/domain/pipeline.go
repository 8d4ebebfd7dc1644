package domain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"zkmutant.dev/pkg/zkmutant/internal/adapter"
	"zkmutant.dev/pkg/zkmutant/internal/controller"
	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

// snippetLimit bounds the captured-output snippet stored per outcome.
const snippetLimit = 4 * 1024

// Pipeline sequences baseline → discovery → per-mutant runs. It is strictly
// sequential across mutants; the only concurrency lives inside the process
// runner's pipe drain.
type Pipeline struct {
	Loader     adapter.ProjectLoader
	Runner     adapter.ProcessRunner
	Workspaces adapter.WorkspaceManager
	Reports    adapter.ReportStore
	UI         controller.UI
	Classifier Classifier

	// ReadFile loads source bytes; injectable for hermetic tests.
	ReadFile FileReader

	// NargoCmd is argv[0] for the external tool.
	NargoCmd string

	// MutationTimeout caps each mutant's test run; zero means unlimited.
	MutationTimeout time.Duration

	// BaselineTimeout caps the baseline run; zero means unlimited.
	BaselineTimeout time.Duration

	Tool    string
	Version string
}

// RunArgs parameterizes a mutation-testing run.
type RunArgs struct {
	ProjectPath m.Path

	// OutDir overrides the artifact directory; empty means
	// <project>/mutants.out.
	OutDir m.Path

	// Limit truncates the executed mutant list after sorting; negative
	// means no limit.
	Limit int
}

// ListArgs parameterizes mutant listing.
type ListArgs struct {
	ProjectPath m.Path

	// OutDir, when set, receives mutants.json and diff artifacts.
	OutDir m.Path

	// Limit truncates the listed mutants; negative means no limit.
	Limit int
}

// Run executes the full pipeline and returns the run report. The report is
// valid even when err is non-nil; err carries the fatal failure kind.
func (p *Pipeline) Run(ctx context.Context, args RunArgs) (*m.RunReport, error) {
	report := p.newRunReport()

	project, err := p.Loader.Load(args.ProjectPath)
	if err != nil {
		p.recordFatal(report, "ProjectLoad", err)
		return report, err
	}

	report.Invocation.ProjectRoot = string(project.Root)
	outDir := resolveOutDir(args.OutDir, project)

	if err := p.Reports.Prepare(outDir); err != nil {
		err = fmt.Errorf("prepare output dir %s: %w", outDir, err)
		p.recordFatal(report, "IO", err)

		return report, err
	}

	p.UI.Title(p.Tool + ": run")
	p.UI.Line("project: %s", project.Root)

	nargoVersion := p.printToolchainInfo(ctx, project)

	baselineRes, err := p.runBaseline(ctx, string(project.Root))
	if err != nil {
		p.recordFatal(report, "ProcessError", err)
		p.persistRun(outDir, report)

		return report, err
	}

	report.Baseline = m.BaselineReport{
		Passed:       p.Classifier.BaselinePassed(baselineRes),
		DurationMS:   baselineRes.DurationMS,
		CapturedTail: tailSnippet(baselineRes.CombinedTail()),
	}

	p.UI.Line("%s test finished in %dms (exit code: %d, passed: %t)",
		p.NargoCmd, baselineRes.DurationMS, baselineRes.ExitCode, report.Baseline.Passed)

	if !report.Baseline.Passed {
		p.recordFatal(report, "BaselineFail", m.ErrBaselineFailed)
		p.persistRun(outDir, report)
		p.UI.Error("baseline %s test failed", p.NargoCmd)

		if tail := baselineRes.CombinedTail(); tail != "" {
			p.UI.Error("output from %s:\n%s", p.NargoCmd, tail)
		}

		p.printBaselineHint(project.CompilerVersion, nargoVersion)

		return report, m.ErrBaselineFailed
	}

	mutants, err := DiscoverMutants(project, p.ReadFile)
	if err != nil {
		p.recordFatal(report, "DiscoveryError", err)
		p.persistRun(outDir, report)

		return report, err
	}

	report.Mutants = mutants
	report.Discovered = len(mutants)
	p.UI.Line("discovered %d mutants", len(mutants))

	if err := p.Reports.WriteMutants(outDir, mutants); err != nil {
		p.UI.Warn("failed to write mutants.json: %v", err)
	}

	executed := mutants
	if args.Limit >= 0 && len(executed) > args.Limit {
		executed = executed[:args.Limit]
		p.UI.Line("running %d mutants (of %d)", len(executed), len(mutants))
	}

	report.Executed = len(executed)

	for _, mu := range executed {
		if ctx.Err() != nil {
			break
		}

		outcome := p.runMutant(ctx, project, mu, outDir, report)
		if outcome == nil {
			break
		}

		report.Outcomes = append(report.Outcomes, *outcome)
		report.Summary.Add(outcome.Kind)
		p.UI.MutantProgress(mu, *outcome)
	}

	p.persistRun(outDir, report)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	return report, nil
}

// List discovers mutants without executing tests, optionally persisting
// discovery artifacts.
func (p *Pipeline) List(ctx context.Context, args ListArgs) (*m.ListReport, error) {
	report := &m.ListReport{Tool: p.Tool, Version: p.Version, Mutants: []m.Mutant{}}

	if err := ctx.Err(); err != nil {
		report.Error = err.Error()
		return report, err
	}

	project, err := p.Loader.Load(args.ProjectPath)
	if err != nil {
		report.Error = err.Error()
		return report, err
	}

	p.printToolchainInfo(ctx, project)

	mutants, err := DiscoverMutants(project, p.ReadFile)
	if err != nil {
		report.Error = err.Error()
		return report, err
	}

	report.Discovered = len(mutants)

	if args.OutDir != "" {
		if err := p.Reports.Prepare(args.OutDir); err != nil {
			err = fmt.Errorf("prepare output dir %s: %w", args.OutDir, err)
			report.Error = err.Error()

			return report, err
		}

		if err := p.Reports.WriteMutants(args.OutDir, mutants); err != nil {
			p.UI.Warn("failed to write mutants.json: %v", err)
		}

		p.writeDiscoveryDiffs(project, mutants, args.OutDir)
	}

	listed := mutants
	if args.Limit >= 0 && len(listed) > args.Limit {
		listed = listed[:args.Limit]
	}

	report.Listed = len(listed)
	report.Mutants = listed

	return report, nil
}

// Scan produces the project overview and the full mutant inventory.
func (p *Pipeline) Scan(path m.Path) (m.ProjectOverview, []m.Mutant, error) {
	project, err := p.Loader.Load(path)
	if err != nil {
		return m.ProjectOverview{}, nil, err
	}

	overview, err := BuildOverview(project, p.ReadFile)
	if err != nil {
		return m.ProjectOverview{}, nil, err
	}

	mutants, err := DiscoverMutants(project, p.ReadFile)
	if err != nil {
		return m.ProjectOverview{}, nil, err
	}

	return overview, mutants, nil
}

// Preflight runs the bounded diagnostic: project load, version probes, and
// the baseline gate. Nothing is mutated and no artifacts are written.
func (p *Pipeline) Preflight(ctx context.Context, path m.Path) (*m.PreflightReport, error) {
	report := &m.PreflightReport{Tool: p.Tool, Version: p.Version}

	project, err := p.Loader.Load(path)
	if err != nil {
		report.Error = err.Error()
		return report, err
	}

	report.CompilerVersion = project.CompilerVersion

	if version, err := p.nargoVersion(ctx); err == nil {
		report.NargoVersion = version
	} else {
		p.UI.Warn("%s --version: %v", p.NargoCmd, err)
	}

	baselineRes, err := p.runBaseline(ctx, string(project.Root))
	if err != nil {
		report.Error = err.Error()
		return report, err
	}

	report.Baseline = m.BaselineReport{
		Passed:       p.Classifier.BaselinePassed(baselineRes),
		DurationMS:   baselineRes.DurationMS,
		CapturedTail: tailSnippet(baselineRes.CombinedTail()),
	}

	if !report.Baseline.Passed {
		report.Error = m.ErrBaselineFailed.Error()
		return report, m.ErrBaselineFailed
	}

	return report, nil
}

// runMutant stages and tests one mutant. A nil return means the run was
// interrupted before the mutant completed; per-mutant failures come back as
// error outcomes and the run continues.
func (p *Pipeline) runMutant(ctx context.Context, project *m.Project, mu m.Mutant, outDir m.Path, report *m.RunReport) *m.Outcome {
	started := time.Now()

	original, err := p.ReadFile(absSourcePath(project, mu.Span.File))
	if err != nil {
		return p.internalOutcome(report, mu, "WorkspaceError", err, started)
	}

	patched, err := ApplyPatch(original, mu)
	if err != nil {
		return p.internalOutcome(report, mu, "PatchMismatch", err, started)
	}

	if diff, diffErr := DiffSnippet(mu.Span.File, original, patched); diffErr == nil {
		// Written before the test run so partial runs leave usable state.
		if writeErr := p.Reports.WriteDiff(outDir, mu.ID, diff); writeErr != nil {
			p.UI.Warn("failed to write diff for mutant %d: %v", mu.ID, writeErr)
		}
	} else {
		p.UI.Warn("failed to render diff for mutant %d: %v", mu.ID, diffErr)
	}

	var res m.ProcessResult

	err = p.Workspaces.WithWorkspace(ctx, project, mu.Span.File, patched, func(root m.Path) error {
		var runErr error
		res, runErr = p.Runner.Run(ctx, adapter.CommandSpec{
			Argv:    []string{p.NargoCmd, "test"},
			Dir:     string(root),
			Timeout: p.MutationTimeout,
		})

		return runErr
	})

	if err != nil {
		// An interrupt mid-run means the mutant never completed; anything
		// else is a per-mutant failure and the run continues.
		if ctx.Err() != nil {
			return nil
		}

		return p.internalOutcome(report, mu, "ProcessError", err, started)
	}

	return &m.Outcome{
		MutantID:   mu.ID,
		Kind:       p.Classifier.MutantOutcome(res),
		DurationMS: res.DurationMS,
		OutputTail: tailSnippet(res.CombinedTail()),
	}
}

// internalOutcome records a per-mutant driver failure and keeps the run going.
func (p *Pipeline) internalOutcome(report *m.RunReport, mu m.Mutant, kind string, err error, started time.Time) *m.Outcome {
	report.Errors = append(report.Errors, m.RunError{
		Kind:   kind,
		Detail: err.Error(),
		Mutant: mu.ID,
	})

	return &m.Outcome{
		MutantID:   mu.ID,
		Kind:       m.OutcomeError,
		DurationMS: time.Since(started).Milliseconds(),
		Detail:     err.Error(),
	}
}

func (p *Pipeline) newRunReport() *m.RunReport {
	return &m.RunReport{
		Tool:    p.Tool,
		Version: p.Version,
		Invocation: m.Invocation{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Mutants:  []m.Mutant{},
		Outcomes: []m.Outcome{},
		Errors:   []m.RunError{},
	}
}

func (p *Pipeline) recordFatal(report *m.RunReport, kind string, err error) {
	p.UI.Error("%s", err.Error())
	report.Errors = append(report.Errors, m.RunError{Kind: kind, Detail: err.Error(), IsFatal: true})
}

// persistRun flushes run.json, outcomes, and the log; artifacts already on
// disk stay usable even when the run aborts.
func (p *Pipeline) persistRun(outDir m.Path, report *m.RunReport) {
	if err := p.Reports.WriteOutcomes(outDir, report.Mutants, report.Outcomes); err != nil {
		p.UI.Warn("failed to write outcome artifacts: %v", err)
	}

	if err := p.Reports.WriteRun(outDir, report); err != nil {
		p.UI.Warn("failed to write run.json: %v", err)
	}

	if err := p.Reports.WriteLog(outDir, report); err != nil {
		p.UI.Warn("failed to write log: %v", err)
	}
}

func (p *Pipeline) runBaseline(ctx context.Context, dir string) (m.ProcessResult, error) {
	res, err := p.Runner.Run(ctx, adapter.CommandSpec{
		Argv:    []string{p.NargoCmd, "test"},
		Dir:     dir,
		Timeout: p.BaselineTimeout,
	})
	if err != nil {
		return m.ProcessResult{}, fmt.Errorf("run baseline %s test: %w", p.NargoCmd, err)
	}

	return res, nil
}

// nargoVersion probes the external tool version, squashed to one line.
func (p *Pipeline) nargoVersion(ctx context.Context) (string, error) {
	res, err := p.Runner.Run(ctx, adapter.CommandSpec{
		Argv:    []string{p.NargoCmd, "--version"},
		Timeout: 30 * time.Second,
	})
	if err != nil {
		return "", err
	}

	version := strings.TrimSpace(res.CombinedTail())
	version = strings.ReplaceAll(version, "\n", " ")

	if res.ExitCode != 0 {
		return "", fmt.Errorf("%s --version failed: %s", p.NargoCmd, version)
	}

	return version, nil
}

// printToolchainInfo emits the copy/paste friendly version block and returns
// the probed nargo version for the baseline hint.
func (p *Pipeline) printToolchainInfo(ctx context.Context, project *m.Project) string {
	compilerVersion := project.CompilerVersion
	if compilerVersion == "" {
		compilerVersion = "<none>"
	}

	p.UI.Line("compiler_version (Nargo.toml): %s", compilerVersion)

	version, err := p.nargoVersion(ctx)
	if err != nil {
		p.UI.Warn("%s --version: %v", p.NargoCmd, err)
		return ""
	}

	p.UI.Line("%s --version: %s", p.NargoCmd, version)

	return version
}

// printBaselineHint points at a likely toolchain mismatch when the project
// pin and the local nargo disagree.
func (p *Pipeline) printBaselineHint(compilerVersion, nargoVersion string) {
	if compilerVersion == "" || strings.Contains(nargoVersion, compilerVersion) {
		return
	}

	p.UI.Warn("hint: baseline failures are often caused by a Noir toolchain mismatch")
	p.UI.Warn("hint: project compiler_version (Nargo.toml): %s", compilerVersion)

	if nargoVersion != "" {
		p.UI.Warn("hint: your %s --version: %s", p.NargoCmd, nargoVersion)
	} else {
		p.UI.Warn("hint: your %s --version: <unavailable>", p.NargoCmd)
	}

	p.UI.Warn("hint: align your toolchain with the project pin and re-run")
}

// writeDiscoveryDiffs renders a diff artifact per discovered mutant for the
// list command; failures degrade to warnings.
func (p *Pipeline) writeDiscoveryDiffs(project *m.Project, mutants []m.Mutant, outDir m.Path) {
	for _, mu := range mutants {
		original, err := p.ReadFile(absSourcePath(project, mu.Span.File))
		if err != nil {
			p.UI.Warn("failed to read %s: %v", mu.Span.File, err)
			continue
		}

		patched, err := ApplyPatch(original, mu)
		if err != nil {
			p.UI.Warn("failed to patch mutant %d: %v", mu.ID, err)
			continue
		}

		diff, err := DiffSnippet(mu.Span.File, original, patched)
		if err != nil {
			p.UI.Warn("failed to render diff for mutant %d: %v", mu.ID, err)
			continue
		}

		if err := p.Reports.WriteDiff(outDir, mu.ID, diff); err != nil {
			p.UI.Warn("failed to write diff for mutant %d: %v", mu.ID, err)
		}
	}
}

func resolveOutDir(override m.Path, project *m.Project) m.Path {
	if override != "" {
		return override
	}

	return m.Path(filepath.Join(string(project.Root), "mutants.out"))
}

func absSourcePath(project *m.Project, rel string) string {
	for _, src := range project.Sources {
		if src.RelPath == rel {
			return src.AbsPath
		}
	}

	return filepath.Join(string(project.Root), filepath.FromSlash(rel))
}

// tailSnippet bounds a captured tail for report embedding.
func tailSnippet(s string) string {
	if len(s) <= snippetLimit {
		return s
	}

	return s[len(s)-snippetLimit:]
}
