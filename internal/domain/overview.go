package domain

import (
	"fmt"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

// BuildOverview computes project metrics from the classified source bytes.
// A code line is a line with at least one non-whitespace code byte; a test
// line is a code line touched by a test-attributed item.
func BuildOverview(project *m.Project, read FileReader) (m.ProjectOverview, error) {
	overview := m.ProjectOverview{
		Root:    string(project.Root),
		NrFiles: len(project.Sources),
	}

	for _, src := range project.Sources {
		data, err := read(src.AbsPath)
		if err != nil {
			return m.ProjectOverview{}, fmt.Errorf("%w: read %s: %v", m.ErrDiscovery, src.RelPath, err)
		}

		codeLines, testLines, testFuncs := fileMetrics(data)

		overview.CodeLines += codeLines
		overview.TestLines += testLines
		overview.TestFunctions += testFuncs

		if testFuncs > 0 {
			overview.TestFiles++
		}
	}

	overview.NonTestLines = overview.CodeLines - overview.TestLines
	if overview.CodeLines > 0 {
		overview.TestCodeRatio = float64(overview.TestLines) / float64(overview.CodeLines) * 100
	}

	return overview, nil
}

func fileMetrics(src []byte) (codeLines, testLines, testFuncs int) {
	classes := ClassifyBytes(src)
	excluded, attrs := testExclusions(src, classes)
	testFuncs = attrs

	lineHasCode := false
	lineInTest := false

	flush := func() {
		if lineHasCode {
			codeLines++

			if lineInTest {
				testLines++
			}
		}

		lineHasCode = false
		lineInTest = false
	}

	for i, b := range src {
		if b == '\n' {
			flush()
			continue
		}

		if classes[i] == ClassCode && b != ' ' && b != '\t' && b != '\r' {
			lineHasCode = true

			if excluded[i] {
				lineInTest = true
			}
		}
	}

	flush()

	return codeLines, testLines, testFuncs
}
