package occ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseNumber(t *testing.T, text string) *NumberExpr {
	t.Helper()
	c := NewCompiler(DefaultOptions())
	lex, err := NewLexer(c.Interner, []byte(text), "t.c")
	require.NoError(t, err)
	c.Lexer = lex

	p := NewParser(c)
	n, err := p.parseNumberLiteral()
	require.NoError(t, err)
	num, ok := n.(*NumberExpr)
	require.True(t, ok)
	return num
}

// spec.md §8: "a decimal integer literal equal to 2^31 with no suffix
// in C11 mode selects long long (i64); with base 16 at the same value
// selects unsigned int (u32)".
func TestNumberLiteralDecimalOverflowIsSignedLongLong(t *testing.T) {
	n := parseNumber(t, "2147483648") // 2^31, no suffix, decimal
	assert.Equal(t, BaseSignedLongLong, n.NodeType().(*BaseType).Kind)
	assert.True(t, n.Signed)
	assert.Equal(t, uint64(2147483648), n.Value)
}

func TestNumberLiteralHexOverflowIsUnsignedInt(t *testing.T) {
	n := parseNumber(t, "0x80000000") // 2^31, no suffix, hex
	assert.Equal(t, BaseUnsignedInt, n.NodeType().(*BaseType).Kind)
	assert.False(t, n.Signed)
}

func TestNumberLiteralDecimalFitsSignedInt(t *testing.T) {
	n := parseNumber(t, "2147483647") // INT32_MAX
	assert.Equal(t, BaseSignedInt, n.NodeType().(*BaseType).Kind)
	assert.True(t, n.Signed)
}

func TestNumberLiteralDecimalExceedingInt64IsUnsignedLongLong(t *testing.T) {
	n := parseNumber(t, "18446744073709551615") // UINT64_MAX, exceeds INT64_MAX
	assert.Equal(t, BaseUnsignedLongLong, n.NodeType().(*BaseType).Kind)
	assert.False(t, n.Signed)
}

func TestNumberLiteralUnsignedSuffixForcesUnsigned(t *testing.T) {
	n := parseNumber(t, "5u")
	assert.Equal(t, BaseUnsignedInt, n.NodeType().(*BaseType).Kind)
	assert.False(t, n.Signed)
}

func TestNumberLiteralLongLongSuffix(t *testing.T) {
	n := parseNumber(t, "5ll")
	assert.Equal(t, BaseSignedLongLong, n.NodeType().(*BaseType).Kind)
}
