package occ

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternerIdentity(t *testing.T) {
	in := NewInterner()

	a := in.Intern("hello")
	b := in.Intern("hello")
	c := in.Intern("world")

	assert.Same(t, a, b, "interning the same bytes twice must return the same *Str")
	assert.NotSame(t, a, c, "interning different bytes must return distinct *Str values")
	assert.Equal(t, "hello", a.String())
}

func TestInternerEmptyString(t *testing.T) {
	in := NewInterner()
	a := in.Intern("")
	b := in.Intern("")
	assert.Same(t, a, b)
	assert.Equal(t, "", a.Bytes)
}
