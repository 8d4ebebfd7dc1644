package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

// memProject builds a project whose sources resolve from an in-memory map,
// keyed by relative path.
func memProject(files map[string]string) (*m.Project, FileReader) {
	project := &m.Project{Root: "/proj", Name: "fixture"}

	for rel := range files {
		project.Sources = append(project.Sources, m.SourceFile{
			RelPath: rel,
			AbsPath: "/proj/" + rel,
		})
	}

	// Loader contract: sources ordered by relative path.
	for i := range project.Sources {
		for j := i + 1; j < len(project.Sources); j++ {
			if project.Sources[j].RelPath < project.Sources[i].RelPath {
				project.Sources[i], project.Sources[j] = project.Sources[j], project.Sources[i]
			}
		}
	}

	read := func(abs string) ([]byte, error) {
		for rel, content := range files {
			if "/proj/"+rel == abs {
				return []byte(content), nil
			}
		}

		return nil, fmt.Errorf("no such file: %s", abs)
	}

	return project, read
}

func discoverSingle(t *testing.T, source string) []m.Mutant {
	t.Helper()

	project, read := memProject(map[string]string{"src/main.nr": source})
	mutants, err := DiscoverMutants(project, read)
	require.NoError(t, err)

	return mutants
}

func TestDiscover_SingleEqualityNoTests(t *testing.T) {
	src := "fn f(a: u8, b: u8) -> bool { a == b }"
	mutants := discoverSingle(t, src)

	require.Len(t, mutants, 1)
	mu := mutants[0]

	assert.Equal(t, 1, mu.ID)
	assert.Equal(t, "==", mu.Original)
	assert.Equal(t, "!=", mu.Replacement)
	assert.Equal(t, m.OpEqToNe, mu.Operator)
	assert.Equal(t, "src/main.nr", mu.Span.File)
	assert.Equal(t, "==", src[mu.Span.Start:mu.Span.End])
}

func TestDiscover_ArrowYieldsNothing(t *testing.T) {
	mutants := discoverSingle(t, "fn g() -> Field { 1 }")
	assert.Empty(t, mutants)
}

func TestDiscover_LessEqualIsOneMutantNotThree(t *testing.T) {
	mutants := discoverSingle(t, "a <= b")

	require.Len(t, mutants, 1)
	assert.Equal(t, "<=", mutants[0].Original)
	assert.Equal(t, ">", mutants[0].Replacement)
	assert.Equal(t, m.OpLeToGt, mutants[0].Operator)
}

func TestDiscover_CommentAndStringImmunity(t *testing.T) {
	src := "// a == b\n let x = \"c == d\"; a == b"
	mutants := discoverSingle(t, src)

	require.Len(t, mutants, 1)
	assert.Equal(t, len(src)-4, mutants[0].Span.Start)
}

func TestDiscover_OnlyCommentsAndStrings(t *testing.T) {
	src := "// x < y && z\n/* a + b */\nlet s = \"p >= q || r\";"
	mutants := discoverSingle(t, src)
	assert.Empty(t, mutants)
}

func TestDiscover_TestBodyExcluded(t *testing.T) {
	src := "#[test] fn t() { assert(a == b); } fn g() -> bool { a == b }"
	mutants := discoverSingle(t, src)

	require.Len(t, mutants, 1)
	assert.Greater(t, mutants[0].Span.Start, len("#[test] fn t() { assert(a == b); }"))
}

func TestDiscover_TestAttributeWithArguments(t *testing.T) {
	src := "#[test(should_fail)]\nfn t() { assert(x < y); }\nfn g(x: u8, y: u8) -> bool { x < y }"
	mutants := discoverSingle(t, src)

	require.Len(t, mutants, 1)
	assert.Equal(t, "<", mutants[0].Original)
	assert.Equal(t, ">=", mutants[0].Replacement)
}

func TestDiscover_BracesInStringsDoNotCloseTestBody(t *testing.T) {
	src := "#[test] fn t() { let s = \"}\"; assert(a == b); }\nfn g() -> bool { a != b }"
	mutants := discoverSingle(t, src)

	require.Len(t, mutants, 1)
	assert.Equal(t, "!=", mutants[0].Original)
}

func TestDiscover_AttributePrefixNotTest(t *testing.T) {
	// #[test_helper] is not a test attribute: "#[test" is followed by "_".
	src := "#[test_helper] fn h() { a == b }"
	mutants := discoverSingle(t, src)

	require.Len(t, mutants, 1)
	assert.Equal(t, "==", mutants[0].Original)
}

func TestDiscover_OperatorTableFullSet(t *testing.T) {
	cases := []struct {
		source      string
		original    string
		replacement string
		kind        m.OperatorKind
	}{
		{"a == b", "==", "!=", m.OpEqToNe},
		{"a != b", "!=", "==", m.OpNeToEq},
		{"a < b", "<", ">=", m.OpLtToGe},
		{"a > b", ">", "<=", m.OpGtToLe},
		{"a <= b", "<=", ">", m.OpLeToGt},
		{"a >= b", ">=", "<", m.OpGeToLt},
		{"a && b", "&&", "||", m.OpAndToOr},
		{"a || b", "||", "&&", m.OpOrToAnd},
		{"a + b", "+", "-", m.OpPlusToSub},
		{"a - b", "-", "+", m.OpSubToPlus},
	}

	for _, tc := range cases {
		t.Run(tc.original, func(t *testing.T) {
			mutants := discoverSingle(t, tc.source)

			require.Len(t, mutants, 1)
			assert.Equal(t, tc.original, mutants[0].Original)
			assert.Equal(t, tc.replacement, mutants[0].Replacement)
			assert.Equal(t, tc.kind, mutants[0].Operator)
			assert.Equal(t, 2, mutants[0].Span.Start)
		})
	}
}

func TestDiscover_OrderingAcrossFiles(t *testing.T) {
	project, read := memProject(map[string]string{
		"src/z.nr":    "a == b",
		"src/a.nr":    "x < y\nz > w",
		"src/main.nr": "p + q",
	})

	mutants, err := DiscoverMutants(project, read)
	require.NoError(t, err)
	require.Len(t, mutants, 4)

	assert.Equal(t, []int{1, 2, 3, 4}, []int{mutants[0].ID, mutants[1].ID, mutants[2].ID, mutants[3].ID})
	assert.Equal(t, "src/a.nr", mutants[0].Span.File)
	assert.Equal(t, "<", mutants[0].Original)
	assert.Equal(t, "src/a.nr", mutants[1].Span.File)
	assert.Equal(t, ">", mutants[1].Original)
	assert.Equal(t, "src/main.nr", mutants[2].Span.File)
	assert.Equal(t, "src/z.nr", mutants[3].Span.File)
}

func TestDiscover_Deterministic(t *testing.T) {
	files := map[string]string{
		"src/main.nr": "fn f(a: u8) -> bool { a <= 3 && a > 0 }",
		"src/lib.nr":  "fn g(x: u8) -> u8 { x + 1 - 2 }",
	}

	project, read := memProject(files)
	first, err := DiscoverMutants(project, read)
	require.NoError(t, err)

	for range 5 {
		again, err := DiscoverMutants(project, read)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDiscover_SpansDisjointOrIdentical(t *testing.T) {
	src := "fn f(a: u8, b: u8) -> bool { a <= b && a >= b || a < b + 1 }"
	mutants := discoverSingle(t, src)
	require.NotEmpty(t, mutants)

	for i, a := range mutants {
		for _, b := range mutants[i+1:] {
			if a.Span == b.Span {
				assert.NotEqual(t, a.Replacement, b.Replacement)
				continue
			}

			assert.True(t, a.Span.Disjoint(b.Span),
				"spans overlap: %+v vs %+v", a.Span, b.Span)
		}
	}
}

func TestDiscover_IDStabilityWithUnrelatedLaterFile(t *testing.T) {
	base := map[string]string{"src/a.nr": "a == b\nc < d"}
	project, read := memProject(base)
	before, err := DiscoverMutants(project, read)
	require.NoError(t, err)

	withExtra := map[string]string{
		"src/a.nr": "a == b\nc < d",
		"src/z.nr": "   \n\t\n",
	}
	project2, read2 := memProject(withExtra)
	after, err := DiscoverMutants(project2, read2)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestDiscover_ReadFailureIsDiscoveryError(t *testing.T) {
	project := &m.Project{
		Root:    "/proj",
		Sources: []m.SourceFile{{RelPath: "src/main.nr", AbsPath: "/proj/src/main.nr"}},
	}

	read := func(string) ([]byte, error) { return nil, fmt.Errorf("permission denied") }

	_, err := DiscoverMutants(project, read)
	require.Error(t, err)
	assert.ErrorIs(t, err, m.ErrDiscovery)
}

func TestDiscover_UnterminatedTestBodyExcludesToEOF(t *testing.T) {
	src := "#[test] fn t() { a == b"
	mutants := discoverSingle(t, src)
	assert.Empty(t, mutants)
}
