package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// classString renders classes as one letter per byte for readable assertions:
// c=code, l=line comment, b=block comment, s=string, q=char literal.
func classString(src string) string {
	letters := map[ByteClass]byte{
		ClassCode:         'c',
		ClassLineComment:  'l',
		ClassBlockComment: 'b',
		ClassStringLit:    's',
		ClassCharLit:      'q',
	}

	classes := ClassifyBytes([]byte(src))
	out := make([]byte, len(classes))

	for i, class := range classes {
		out[i] = letters[class]
	}

	return string(out)
}

func TestClassifyBytes_PlainCode(t *testing.T) {
	assert.Equal(t, "ccccccc", classString("a == b;"))
}

func TestClassifyBytes_LineComment(t *testing.T) {
	// The newline after a line comment stays code.
	assert.Equal(t, "cclllllcc", classString("x // ==\ny"))
}

func TestClassifyBytes_LineCommentAtEOF(t *testing.T) {
	assert.Equal(t, "lllll", classString("// ab"))
}

func TestClassifyBytes_BlockComment(t *testing.T) {
	assert.Equal(t, "ccbbbbbbbbcc", classString("a /* == */ b"))
}

func TestClassifyBytes_NestedBlockComment(t *testing.T) {
	src := "/* outer /* inner */ still */ x"
	got := classString(src)

	// Everything up to the second "*/" is comment; the trailing " x" is code.
	require.Len(t, got, len(src))
	assert.Equal(t, "bb", got[:2])
	assert.Equal(t, "cc", got[len(got)-2:])
	assert.NotContains(t, got[:len(got)-2], "c")
}

func TestClassifyBytes_UnterminatedBlockCommentExtendsToEOF(t *testing.T) {
	assert.Equal(t, "ccbbbbbbbb", classString("a /* no end"[0:10]))
	assert.Equal(t, "ccbbbbbbbbb", classString("a /* no end"))
}

func TestClassifyBytes_StringLiteral(t *testing.T) {
	assert.Equal(t, "ccccccssssssss", classString(`let x="a == b"`))
}

func TestClassifyBytes_StringEscapedQuote(t *testing.T) {
	// The escaped quote does not terminate the literal.
	assert.Equal(t, `ssssssc`, classString(`"a\"b"x`))
}

func TestClassifyBytes_StringWithNewline(t *testing.T) {
	assert.Equal(t, "sssssc", classString("\"a\nb\"x"))
}

func TestClassifyBytes_CharLiteral(t *testing.T) {
	assert.Equal(t, "ccccqqq", classString("x = 'a';"[0:7]))
}

func TestClassifyBytes_CharLiteralEscape(t *testing.T) {
	assert.Equal(t, "qqqqc", classString(`'\''x`))
}

func TestClassifyBytes_CommentOpenersInertInsideString(t *testing.T) {
	assert.Equal(t, "ssssssscc", classString(`"// /*"ab`))
}

func TestClassifyBytes_StringOpenerInertInsideComment(t *testing.T) {
	assert.Equal(t, "lllllccc", classString("// \"x\nab"))
}

func TestClassifyBytes_Empty(t *testing.T) {
	assert.Empty(t, ClassifyBytes(nil))
}
