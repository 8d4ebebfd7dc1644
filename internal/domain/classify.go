package domain

import (
	"strings"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

// The classifier's rule set is the only substantive coupling to the external
// nargo tool; both marker tables live here and nowhere else.
var (
	// defaultCompileMarkers are substrings of nargo output that indicate
	// the mutated source failed to compile.
	defaultCompileMarkers = []string{
		"error:",
		"Aborting due to",
	}

	// testRunMarkers are substrings proving nargo reached test execution.
	// A failing run with none of these never built the test binary.
	testRunMarkers = []string{
		"Testing",
		"Running",
	}
)

// Classifier maps process results to mutant outcomes.
type Classifier struct {
	compileMarkers []string
}

// NewClassifier builds a Classifier. Extra markers from configuration are
// appended to the default compile-failure set.
func NewClassifier(extraCompileMarkers ...string) Classifier {
	markers := make([]string, 0, len(defaultCompileMarkers)+len(extraCompileMarkers))
	markers = append(markers, defaultCompileMarkers...)
	markers = append(markers, extraCompileMarkers...)

	return Classifier{compileMarkers: markers}
}

// MutantOutcome classifies the result of one mutant's test invocation.
func (c Classifier) MutantOutcome(res m.ProcessResult) m.OutcomeKind {
	if res.TimedOut {
		return m.OutcomeTimeout
	}

	if res.ExitCode == 0 {
		return m.OutcomeMissed
	}

	output := res.CombinedTail()
	if containsAny(output, c.compileMarkers) || !containsAny(output, testRunMarkers) {
		return m.OutcomeUnviable
	}

	return m.OutcomeCaught
}

// BaselinePassed is the binary gate for the unmutated run.
func (c Classifier) BaselinePassed(res m.ProcessResult) bool {
	return !res.TimedOut && res.ExitCode == 0
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}

	return false
}
