package occ

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatImmediateDecimalVsHexThresholds(t *testing.T) {
	cases := []struct {
		v    int32
		want string
	}{
		{0, "0"},
		{999999, "999999"},       // just inside the decimal window
		{1000000, "0xf4240"},     // boundary: hex, unsigned bit pattern
		{-99999999, "-99999999"}, // just inside the decimal window
		{-100000000, "0xfa0a1f00"}, // boundary: hex, unsigned bit pattern
		{16, "16"},
		{256, "256"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, formatImmediate(c.v), "formatImmediate(%d)", c.v)
	}
}

func TestLabelOperandTextNamedVsIndexed(t *testing.T) {
	named := NamedLabelOperand(LabelExternalUse, "_string_7")
	assert.Equal(t, "^_string_7", labelOperandText(named))

	indexed := LabelRefOperand(LabelInternalUse, 3)
	assert.Equal(t, "&_L3", labelOperandText(indexed))
}

func TestIsAsmStringChar(t *testing.T) {
	assert.True(t, isAsmStringChar('a'))
	assert.True(t, isAsmStringChar(' '))
	assert.False(t, isAsmStringChar('\\'))
	assert.False(t, isAsmStringChar('"'))
	assert.False(t, isAsmStringChar(0))
	assert.False(t, isAsmStringChar(0x7f))
}

func TestEmitStringLiteralAppendsNullTerminator(t *testing.T) {
	c := NewCompiler(DefaultOptions())
	c.Program.Strings = append(c.Program.Strings, &StringLiteral{Label: 0, Bytes: "hi"})

	var buf bytes.Buffer
	require.NoError(t, EmitProgram(c, &buf))

	out := buf.String()
	assert.Contains(t, out, "@_string_0")
	assert.Contains(t, out, `"hi"'00`)
}

func TestEmitGlobalVarSplicesRelocIntoByteRun(t *testing.T) {
	c := NewCompiler(DefaultOptions())
	sym := &Symbol{Name: &Token{Value: &Str{Bytes: "p"}}, Kind: SymVariable, Type: NewPointerType(NewBaseType(BaseSignedChar))}
	c.Program.Globals = append(c.Program.Globals, &GlobalVar{
		Sym:  sym,
		Init: make([]byte, 4),
		Relocs: []GlobalReloc{
			{Offset: 0, Prefix: LabelExternalUse, Name: "_string_1", IsName: true},
		},
	})

	var buf bytes.Buffer
	require.NoError(t, EmitProgram(c, &buf))

	out := buf.String()
	assert.Contains(t, out, "@p")
	assert.Contains(t, out, "^_string_1")
}

func TestEmitFunctionEmitsEntryStubAndBlocks(t *testing.T) {
	c := NewCompiler(DefaultOptions())
	sym := &Symbol{
		Name: &Token{Value: &Str{Bytes: "main"}},
		Kind: SymFunction,
		Type: &FunctionType{Return: NewBaseType(BaseSignedInt)},
	}
	fn := NewFunction(sym, nil)
	b := fn.NewBlock(c.NewLabel())
	b.Emit(nil, OpImw, RegOperand(R0), ImmOperand(0))
	b.Emit(nil, OpRet)
	c.Program.Functions = append(c.Program.Functions, fn)

	var buf bytes.Buffer
	require.NoError(t, EmitProgram(c, &buf))

	out := buf.String()
	assert.Contains(t, out, "@main")
	assert.Contains(t, out, "JMP ^_F_main")
	assert.Contains(t, out, ":_F_main")
	assert.Contains(t, out, "IMW r0 0")
	assert.Contains(t, out, "RET")

	// The entry stub must precede the function body label, and the body
	// label must precede its block's instructions.
	stubIdx := strings.Index(out, "@main")
	bodyIdx := strings.Index(out, ":_F_main")
	retIdx := strings.Index(out, "RET")
	require.True(t, stubIdx >= 0 && bodyIdx >= 0 && retIdx >= 0)
	assert.Less(t, stubIdx, bodyIdx)
	assert.Less(t, bodyIdx, retIdx)
}

func TestEmitProgramOrdersStringsGlobalsThenFunctions(t *testing.T) {
	c := NewCompiler(DefaultOptions())
	c.Program.Strings = append(c.Program.Strings, &StringLiteral{Label: 0, Bytes: "s"})
	gsym := &Symbol{Name: &Token{Value: &Str{Bytes: "g"}}, Kind: SymVariable, Type: NewBaseType(BaseSignedInt)}
	c.Program.Globals = append(c.Program.Globals, &GlobalVar{Sym: gsym})

	fsym := &Symbol{Name: &Token{Value: &Str{Bytes: "f"}}, Kind: SymFunction, Type: &FunctionType{Return: NewBaseType(BaseVoid)}}
	fn := NewFunction(fsym, nil)
	b := fn.NewBlock(0)
	b.Emit(nil, OpRet)
	c.Program.Functions = append(c.Program.Functions, fn)

	var buf bytes.Buffer
	require.NoError(t, EmitProgram(c, &buf))
	out := buf.String()

	stringIdx := strings.Index(out, "@_string_0")
	globalIdx := strings.Index(out, "@g")
	funcIdx := strings.Index(out, "@f")
	require.True(t, stringIdx >= 0 && globalIdx >= 0 && funcIdx >= 0)
	assert.Less(t, stringIdx, globalIdx)
	assert.Less(t, globalIdx, funcIdx)
}
