package occ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func varSymbol(name string) *Symbol {
	return &Symbol{
		Name: &Token{Kind: TokAlphanumeric, Value: &Str{Bytes: name}},
		Kind: SymVariable,
		Type: NewBaseType(BaseSignedInt),
	}
}

func TestScopeFindSymbolIsIdempotent(t *testing.T) {
	s := NewScopeStack()
	sym := varSymbol("x")
	s.DeclareSymbol("x", sym)

	first := s.FindSymbol("x", true)
	second := s.FindSymbol("x", true)
	assert.Same(t, sym, first)
	assert.Same(t, first, second)
}

func TestScopeShadowing(t *testing.T) {
	s := NewScopeStack()
	outer := varSymbol("x")
	s.DeclareSymbol("x", outer)

	s.Push()
	inner := varSymbol("x")
	s.DeclareSymbol("x", inner)

	assert.Same(t, inner, s.FindSymbol("x", true))
	assert.Same(t, inner, s.FindSymbol("x", false))

	s.Pop()
	assert.Same(t, outer, s.FindSymbol("x", true))
}

func TestScopeNonRecursiveLookupStopsAtCurrentScope(t *testing.T) {
	s := NewScopeStack()
	s.DeclareSymbol("x", varSymbol("x"))

	s.Push()
	assert.Nil(t, s.FindSymbol("x", false))
	assert.NotNil(t, s.FindSymbol("x", true))
}

func TestScopePopGlobalPanics(t *testing.T) {
	s := NewScopeStack()
	assert.Panics(t, func() { s.Pop() })
}

func TestScopeTagsAndTypedefs(t *testing.T) {
	s := NewScopeStack()
	tag := &Token{Value: &Str{Bytes: "Point"}}
	rec := NewRecord(tag, true)
	s.DeclareRecordTag("Point", rec)

	r, e := s.FindTag("Point", true)
	require.NotNil(t, r)
	assert.Nil(t, e)
	assert.Same(t, rec, r)

	typedefSym := &Symbol{Kind: SymTypedef, TypedefType: NewBaseType(BaseSignedLongLong)}
	s.DeclareTypedef("i64", typedefSym)
	assert.Same(t, typedefSym, s.FindTypedef("i64", true))
	assert.Nil(t, s.FindTypedef("unknown", true))
}

func TestScopeFindTagInCurrentScopeOnly(t *testing.T) {
	s := NewScopeStack()
	s.DeclareRecordTag("Outer", NewRecord(&Token{Value: &Str{Bytes: "Outer"}}, true))

	s.Push()
	r, _ := s.FindTagInCurrentScope("Outer")
	assert.Nil(t, r, "tag declared in an enclosing scope must not be visible to the current-scope-only lookup")

	r, _ = s.FindTag("Outer", true)
	assert.NotNil(t, r)
}

func TestAsmOrNameDefaultsToSourceName(t *testing.T) {
	sym := varSymbol("counter")
	assert.Equal(t, "counter", sym.AsmOrName())

	sym.AsmName = "_my_counter"
	assert.Equal(t, "_my_counter", sym.AsmOrName())
}
