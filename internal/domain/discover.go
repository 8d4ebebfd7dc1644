package domain

import (
	"bytes"
	"fmt"
	"sort"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

// replacement pairs a substitution text with the operator kind it realizes.
type replacement struct {
	text string
	kind m.OperatorKind
}

// opEntry is one row of the operator table: the matched source text and the
// registered replacements. An entry with no replacements is consumed without
// emitting candidates (the "->" arrow, whose "-" and ">" must stay inert).
type opEntry struct {
	text         string
	replacements []replacement
}

// operatorTable is ordered longest-first so a "<=" site never also yields a
// single-character mutant at its "<" or "=". The scan cursor advances past
// the full matched text, which keeps emitted spans disjoint.
var operatorTable = []opEntry{
	{text: "->"},
	{text: "==", replacements: []replacement{{"!=", m.OpEqToNe}}},
	{text: "!=", replacements: []replacement{{"==", m.OpNeToEq}}},
	{text: "<=", replacements: []replacement{{">", m.OpLeToGt}}},
	{text: ">=", replacements: []replacement{{"<", m.OpGeToLt}}},
	{text: "&&", replacements: []replacement{{"||", m.OpAndToOr}}},
	{text: "||", replacements: []replacement{{"&&", m.OpOrToAnd}}},
	{text: "<", replacements: []replacement{{">=", m.OpLtToGe}}},
	{text: ">", replacements: []replacement{{"<=", m.OpGtToLe}}},
	{text: "+", replacements: []replacement{{"-", m.OpPlusToSub}}},
	{text: "-", replacements: []replacement{{"+", m.OpSubToPlus}}},
}

// FileReader loads a source file's on-disk bytes. The discoverer takes it as
// a capability so tests can feed in-memory trees.
type FileReader func(abs string) ([]byte, error)

// DiscoverMutants scans every project source file and returns the ordered
// mutation candidates with 1-based IDs assigned.
//
// Ordering is (project-relative path lexicographic, span start, span end,
// replacement text), a deterministic function of the source bytes alone.
func DiscoverMutants(project *m.Project, read FileReader) ([]m.Mutant, error) {
	var mutants []m.Mutant

	for _, src := range project.Sources {
		data, err := read(src.AbsPath)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", m.ErrDiscovery, src.RelPath, err)
		}

		mutants = append(mutants, discoverInFile(src.RelPath, data)...)
	}

	sort.SliceStable(mutants, func(i, j int) bool {
		a, b := mutants[i], mutants[j]
		if a.Span.File != b.Span.File {
			return a.Span.File < b.Span.File
		}

		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}

		if a.Span.End != b.Span.End {
			return a.Span.End < b.Span.End
		}

		return a.Replacement < b.Replacement
	})

	for i := range mutants {
		mutants[i].ID = i + 1
	}

	return mutants, nil
}

// discoverInFile emits unordered candidates (ID zero) for a single file.
func discoverInFile(relPath string, src []byte) []m.Mutant {
	classes := ClassifyBytes(src)
	excluded, _ := testExclusions(src, classes)

	var out []m.Mutant

	i := 0
	for i < len(src) {
		if classes[i] != ClassCode {
			i++
			continue
		}

		entry, ok := matchOperator(src, classes, i)
		if !ok {
			i++
			continue
		}

		end := i + len(entry.text)

		if !excluded[i] {
			for _, repl := range entry.replacements {
				out = append(out, m.Mutant{
					Span:        m.Span{File: relPath, Start: i, End: end},
					Original:    entry.text,
					Replacement: repl.text,
					Operator:    repl.kind,
				})
			}
		}

		i = end
	}

	return out
}

// matchOperator attempts a longest-first operator match at offset i. Every
// byte of the match must be code-classified.
func matchOperator(src []byte, classes []ByteClass, i int) (opEntry, bool) {
	for _, entry := range operatorTable {
		end := i + len(entry.text)
		if end > len(src) || !bytes.Equal(src[i:end], []byte(entry.text)) {
			continue
		}

		allCode := true

		for j := i; j < end; j++ {
			if classes[j] != ClassCode {
				allCode = false
				break
			}
		}

		if allCode {
			return entry, true
		}
	}

	return opEntry{}, false
}

// testAttr is the textual form opening a test-attributed item.
const testAttr = "#[test"

// testExclusions marks every byte belonging to a #[test] or #[test(...)]
// attributed item, from the attribute start through the item's closing brace,
// and counts the attributes found. Braces inside strings and comments do not
// count toward depth.
func testExclusions(src []byte, classes []ByteClass) ([]bool, int) {
	excluded := make([]bool, len(src))
	attrs := 0

	i := 0
	for i < len(src) {
		if classes[i] != ClassCode || !matchesAt(src, classes, i, testAttr) {
			i++
			continue
		}

		attrEnd, ok := testAttrEnd(src, classes, i+len(testAttr))
		if !ok {
			i++
			continue
		}

		attrs++

		itemEnd := itemEndAfter(src, classes, attrEnd)
		for j := i; j < itemEnd; j++ {
			excluded[j] = true
		}

		i = itemEnd
	}

	return excluded, attrs
}

// matchesAt reports whether text appears at offset i entirely in code bytes.
func matchesAt(src []byte, classes []ByteClass, i int, text string) bool {
	end := i + len(text)
	if end > len(src) || !bytes.Equal(src[i:end], []byte(text)) {
		return false
	}

	for j := i; j < end; j++ {
		if classes[j] != ClassCode {
			return false
		}
	}

	return true
}

// testAttrEnd validates the remainder of the attribute after "#[test": a
// direct "]" or an argument list "(...)" followed by "]". Returns the offset
// just past the closing bracket.
func testAttrEnd(src []byte, classes []ByteClass, i int) (int, bool) {
	if i >= len(src) {
		return 0, false
	}

	switch src[i] {
	case ']':
		return i + 1, true
	case '(':
		depth := 0

		for j := i; j < len(src); j++ {
			if classes[j] != ClassCode {
				continue
			}

			switch src[j] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					if j+1 < len(src) && src[j+1] == ']' {
						return j + 2, true
					}

					return 0, false
				}
			}
		}

		return 0, false
	default:
		return 0, false
	}
}

// itemEndAfter finds the end of the item following an attribute: the first
// code-classified "{" opens the body, and the offset just past the brace
// that returns depth to zero closes it. An unterminated body extends to EOF.
func itemEndAfter(src []byte, classes []ByteClass, from int) int {
	depth := 0
	opened := false

	for i := from; i < len(src); i++ {
		if classes[i] != ClassCode {
			continue
		}

		switch src[i] {
		case '{':
			depth++
			opened = true
		case '}':
			if opened {
				depth--
				if depth == 0 {
					return i + 1
				}
			}
		}
	}

	return len(src)
}
