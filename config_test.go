package occ

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	c := NewConfig()
	assert.True(t, c.GetBool("codegen.peephole"))
	assert.Equal(t, 2, c.GetInt("codegen.peephole.passes"))
}

func TestConfigSetOverridesDefaults(t *testing.T) {
	c := NewConfig()
	c.SetBool("codegen.peephole", false)
	c.SetInt("codegen.peephole.passes", 0)
	assert.False(t, c.GetBool("codegen.peephole"))
	assert.Equal(t, 0, c.GetInt("codegen.peephole.passes"))
}

func TestConfigUnknownKeysReturnZeroValue(t *testing.T) {
	c := NewConfig()
	assert.False(t, c.GetBool("no.such.key"))
	assert.Equal(t, 0, c.GetInt("no.such.key"))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.False(t, opts.Optimize)
	assert.False(t, opts.DumpAST)
	assert.False(t, opts.WarningEnabled(WarnImplicitInt))

	opts.Warnings[WarnImplicitInt] = true
	assert.True(t, opts.WarningEnabled(WarnImplicitInt))
}
