package occ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenize drains the lexer into a flat list of (kind, text) pairs,
// stopping at TokEnd, mirroring how onramp's test fixtures snapshot a
// token stream.
func tokenize(t *testing.T, src string) []Token {
	t.Helper()
	in := NewInterner()
	l, err := NewLexer(in, []byte(src), "test.c")
	require.NoError(t, err)

	var out []Token
	for {
		tok, err := l.Consume()
		require.NoError(t, err)
		out = append(out, *tok)
		if tok.Kind == TokEnd {
			break
		}
	}
	return out
}

func TestLexerBasicTokens(t *testing.T) {
	toks := tokenize(t, "int main(void) { return 0; }")

	var kinds []TokenKind
	var texts []string
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
		texts = append(texts, tok.Value.Bytes)
	}

	assert.Equal(t, []string{
		"int", "main", "(", "void", ")", "{", "return", "0", ";", "}", "",
	}, texts)
	assert.Equal(t, TokEnd, kinds[len(kinds)-1])
}

func TestLexerGreedyPunctuation(t *testing.T) {
	toks := tokenize(t, "a<<=b>>=c...d<<e")
	var texts []string
	for _, tok := range toks {
		if tok.Kind == TokEnd {
			break
		}
		texts = append(texts, tok.Value.Bytes)
	}
	assert.Equal(t, []string{"a", "<<=", "b", ">>=", "c", "...", "d", "<<", "e"}, texts)
}

func TestLexerStringEscapes(t *testing.T) {
	toks := tokenize(t, `"hi\n\t\"there\""`)
	require.Len(t, toks, 2) // the string, then TokEnd
	assert.Equal(t, TokString, toks[0].Kind)
	assert.Equal(t, "hi\n\t\"there\"", toks[0].Value.Bytes)
}

func TestLexerCharLiteral(t *testing.T) {
	toks := tokenize(t, `'a' '\n' '\''`)
	require.Len(t, toks, 4)
	assert.Equal(t, TokCharacter, toks[0].Kind)
	assert.Equal(t, "a", toks[0].Value.Bytes)
	assert.Equal(t, "\n", toks[1].Value.Bytes)
	assert.Equal(t, "'", toks[2].Value.Bytes)
}

func TestLexerEmptyCharIsError(t *testing.T) {
	in := NewInterner()
	_, err := NewLexer(in, []byte("''"), "t.c")
	require.Error(t, err)
	diag, ok := err.(*Diagnostic)
	require.True(t, ok)
	assert.Equal(t, ErrEmptyChar, diag.Kind)
}

func TestLexerUnclosedStringIsError(t *testing.T) {
	in := NewInterner()
	_, err := NewLexer(in, []byte(`"abc`), "t.c")
	require.Error(t, err)
	diag, ok := err.(*Diagnostic)
	require.True(t, ok)
	assert.Equal(t, ErrUnclosedString, diag.Kind)
}

func TestLexerHexEscapeUnsupported(t *testing.T) {
	in := NewInterner()
	_, err := NewLexer(in, []byte(`"\x41"`), "t.c")
	require.Error(t, err)
	diag, ok := err.(*Diagnostic)
	require.True(t, ok)
	assert.Equal(t, ErrUnsupportedEscape, diag.Kind)
}

func TestLexerLineDirectiveUpdatesLocation(t *testing.T) {
	src := "int a;\n#line 100 \"other.c\"\nint b;\n"
	toks := tokenize(t, src)
	// "int" "a" ";" then "int" "b" ";" then TokEnd
	require.True(t, len(toks) >= 6)
	// The second "int" should be on line 100 of other.c.
	var found bool
	for i, tok := range toks {
		if tok.Value.Bytes == "b" {
			found = true
			assert.Equal(t, "other.c", toks[i].Filename.Bytes)
			assert.Equal(t, 100, toks[i].Line)
		}
	}
	assert.True(t, found, "expected to find identifier b after #line directive")
}

func TestLexerDirectiveMidLineIsError(t *testing.T) {
	in := NewInterner()
	l, err := NewLexer(in, []byte("int a; # 5"), "t.c")
	require.NoError(t, err)
	// The lexer scans one token ahead, so the stray '#' is reached
	// while consuming the ';' before it.
	for err == nil && l.Current().Kind != TokEnd {
		_, err = l.Consume()
	}
	require.Error(t, err)
	diag, ok := err.(*Diagnostic)
	require.True(t, ok)
	assert.Equal(t, ErrDirectiveMidLine, diag.Kind)
}

func TestLexerPushBack(t *testing.T) {
	in := NewInterner()
	l, err := NewLexer(in, []byte("a b c"), "t.c")
	require.NoError(t, err)

	first, err := l.Consume()
	require.NoError(t, err)
	assert.Equal(t, "a", first.Value.Bytes)

	second, err := l.Consume()
	require.NoError(t, err)
	assert.Equal(t, "b", second.Value.Bytes)

	l.PushBack(second)
	assert.Equal(t, "b", l.Current().Value.Bytes)

	again, err := l.Consume()
	require.NoError(t, err)
	assert.Equal(t, "b", again.Value.Bytes)

	third, err := l.Consume()
	require.NoError(t, err)
	assert.Equal(t, "c", third.Value.Bytes)
}
