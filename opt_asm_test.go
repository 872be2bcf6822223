package occ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deadMovFunction() *Function {
	sym := &Symbol{Name: &Token{Value: &Str{Bytes: "f"}}, Kind: SymFunction, Type: &FunctionType{Return: NewBaseType(BaseVoid)}}
	fn := NewFunction(sym, nil)
	b := fn.NewBlock(0)
	b.Emit(nil, OpMov, RegOperand(R0), RegOperand(R0)) // no-op, should be removed when peephole runs
	b.Emit(nil, OpRet)
	return fn
}

func TestOptimizeAsmDisabledByConfigLeavesInstructionsUntouched(t *testing.T) {
	c := NewCompiler(DefaultOptions())
	c.Config.SetBool("codegen.peephole", false)
	fn := deadMovFunction()

	OptimizeAsm(c, fn)

	require.Len(t, fn.Blocks[0].Instructions, 2)
	assert.Equal(t, OpMov, fn.Blocks[0].Instructions[0].Op)
}

func TestOptimizeAsmEnabledRemovesDeadMov(t *testing.T) {
	c := NewCompiler(DefaultOptions())
	fn := deadMovFunction()

	OptimizeAsm(c, fn)

	require.Len(t, fn.Blocks[0].Instructions, 1)
	assert.Equal(t, OpRet, fn.Blocks[0].Instructions[0].Op)
}

func TestOptimizeAsmZeroPassesTreatedAsOne(t *testing.T) {
	c := NewCompiler(DefaultOptions())
	c.Config.SetInt("codegen.peephole.passes", 0)
	fn := deadMovFunction()

	OptimizeAsm(c, fn)

	require.Len(t, fn.Blocks[0].Instructions, 1)
	assert.Equal(t, OpRet, fn.Blocks[0].Instructions[0].Op)
}
