package idl

import (
	. "testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScannerPunctAndArrow(t *T) {
	sc := NewScanner("()[]?:,->")
	var kinds []TokenKind
	var texts []string
	for {
		tok, err := sc.Next()
		require.Nil(t, err)
		if tok.Kind == TokEOF {
			break
		}
		kinds = append(kinds, tok.Kind)
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{"(", ")", "[", "]", "?", ":", ",", "->"}, texts)
	for _, k := range kinds {
		assert.Equal(t, TokPunct, k)
	}
}

func TestScannerIdentifiers(t *T) {
	sc := NewScanner("interface Foo bar42")
	tok, err := sc.Next()
	require.Nil(t, err)
	assert.Equal(t, TokIdent, tok.Kind)
	assert.Equal(t, "interface", tok.Text)
	assert.Equal(t, 0, tok.Offset)

	tok, err = sc.Next()
	require.Nil(t, err)
	assert.Equal(t, "Foo", tok.Text)

	tok, err = sc.Next()
	require.Nil(t, err)
	assert.Equal(t, "bar42", tok.Text)
}

func TestScannerComment(t *T) {
	sc := NewScanner("# a doc comment\ntype")
	tok, err := sc.Next()
	require.Nil(t, err)
	assert.Equal(t, TokComment, tok.Kind)
	assert.Equal(t, "a doc comment", tok.Text)

	tok, err = sc.Next()
	require.Nil(t, err)
	assert.Equal(t, "type", tok.Text)
}

func TestScannerDotname(t *T) {
	sc := NewScanner("  org.example.ping method")
	tok, err := sc.ScanDotname()
	require.Nil(t, err)
	assert.Equal(t, "org.example.ping", tok.Text)
	assert.Equal(t, 2, tok.Offset)

	next, err := sc.Next()
	require.Nil(t, err)
	assert.Equal(t, "method", next.Text)
}

func TestScannerUnexpectedCharacter(t *T) {
	sc := NewScanner("@")
	_, err := sc.Next()
	require.NotNil(t, err)
	se, ok := err.(*SyntaxError)
	require.True(t, ok)
	assert.Equal(t, ExpectedToken, se.Kind)
}

func TestScannerRejectsLoneHyphen(t *T) {
	sc := NewScanner("-x")
	_, err := sc.Next()
	require.NotNil(t, err)
}

func TestScannerBOMIsIgnored(t *T) {
	sc := NewScanner("\ufeffinterface a.b")
	tok, err := sc.Next()
	require.Nil(t, err)
	assert.Equal(t, "interface", tok.Text)
	assert.Equal(t, 0, tok.Offset)
}
