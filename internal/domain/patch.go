package domain

import (
	"errors"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

// ErrPatchMismatch means the file bytes at a mutant's span no longer equal
// its recorded original text. The mutant is reported as an internal error
// and the run continues.
var ErrPatchMismatch = errors.New("patch mismatch")

// ApplyPatch returns a patched copy of original with the mutant's span
// replaced. The span contents are verified against the recorded original
// text before splicing.
func ApplyPatch(original []byte, mu m.Mutant) ([]byte, error) {
	start, end := mu.Span.Start, mu.Span.End
	if start < 0 || end < start || end > len(original) {
		return nil, fmt.Errorf("%w: span [%d, %d) out of bounds for %d bytes",
			ErrPatchMismatch, start, end, len(original))
	}

	if got := string(original[start:end]); got != mu.Original {
		return nil, fmt.Errorf("%w: span [%d, %d) holds %q, expected %q",
			ErrPatchMismatch, start, end, got, mu.Original)
	}

	patched := make([]byte, 0, len(original)+len(mu.Replacement)-(end-start))
	patched = append(patched, original[:start]...)
	patched = append(patched, mu.Replacement...)
	patched = append(patched, original[end:]...)

	return patched, nil
}

// DiffSnippet renders a minimal unified-style diff between the original and
// patched file contents, one context line around the change. It is a human
// record, not a patch(1) input.
func DiffSnippet(relPath string, original, patched []byte) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(patched)),
		FromFile: relPath,
		ToFile:   relPath,
		Context:  1,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("render diff for %s: %w", relPath, err)
	}

	return text, nil
}
