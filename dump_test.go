package occ

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildMainReturningZero hand-builds the AST for `int main(void) {
// return 0; }`, the same shape DumpTree receives from
// parseFunctionDefinition's Options.DumpAST path.
func buildMainReturningZero() *FunctionDecl {
	nameTok := &Token{Kind: TokAlphanumeric, Value: &Str{Bytes: "main"}}
	fnType := &FunctionType{Return: NewBaseType(BaseSignedInt)}
	sym := &Symbol{Name: nameTok, Kind: SymFunction, Type: fnType}

	zero := &NumberExpr{base: newBase(&Token{Value: &Str{Bytes: "0"}}), Value: 0, Signed: true}
	zero.SetNodeType(NewBaseType(BaseSignedInt))

	ret := &ReturnStmt{base: newBase(&Token{Value: &Str{Bytes: "return"}}), Value: zero}
	ret.SetNodeType(NewBaseType(BaseVoid))

	body := &CompoundStmt{base: newBase(nil), Items: []Node{ret}}
	body.SetNodeType(NewBaseType(BaseVoid))

	fn := &FunctionDecl{base: newBase(nameTok), Sym: sym, Body: body}
	fn.SetNodeType(NewBaseType(BaseVoid))
	return fn
}

func TestTreeStringRendersFunctionShape(t *testing.T) {
	fn := buildMainReturningZero()
	out := TreeString(fn)

	assert.Contains(t, out, "FunctionDecl main : int")
	assert.Contains(t, out, "CompoundStmt")
	assert.Contains(t, out, "ReturnStmt")
	assert.Contains(t, out, "NumberExpr 0 : int")

	// Each nested construct is indented two spaces deeper than its
	// parent, matching the teacher's outputWriter convention.
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	var fnIndent, bodyIndent, retIndent int
	for _, l := range lines {
		trimmed := strings.TrimLeft(l, " ")
		indent := len(l) - len(trimmed)
		switch {
		case strings.HasPrefix(trimmed, "FunctionDecl"):
			fnIndent = indent
		case strings.HasPrefix(trimmed, "CompoundStmt"):
			bodyIndent = indent
		case strings.HasPrefix(trimmed, "ReturnStmt"):
			retIndent = indent
		}
	}
	assert.Equal(t, fnIndent+2, bodyIndent)
	assert.Equal(t, bodyIndent+2, retIndent)
}

func TestTreeStringHandlesNilNode(t *testing.T) {
	out := TreeString(nil)
	assert.Contains(t, out, "<nil>")
}

func TestUnOpAndIncDecOpText(t *testing.T) {
	assert.Equal(t, "!", unOpText(UnNot))
	assert.Equal(t, "~", unOpText(UnBitNot))
	assert.Equal(t, "*", unOpText(UnDeref))
	assert.Equal(t, "&", unOpText(UnAddr))
	assert.Equal(t, "++x", incDecOpText(PreInc))
	assert.Equal(t, "x++", incDecOpText(PostInc))
}
