package occ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeOfBaseTypes(t *testing.T) {
	cases := []struct {
		kind BaseKind
		want int
	}{
		{BaseBool, 1},
		{BaseChar, 1},
		{BaseSignedChar, 1},
		{BaseUnsignedChar, 1},
		{BaseSignedShort, 2},
		{BaseUnsignedShort, 2},
		{BaseSignedInt, 4},
		{BaseUnsignedInt, 4},
		{BaseSignedLong, 4},
		{BaseUnsignedLong, 4},
		{BaseFloat, 4},
		{BaseSignedLongLong, 8},
		{BaseUnsignedLongLong, 8},
		{BaseDouble, 8},
		{BaseEnum, 4},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Size(NewBaseType(c.kind)), "size of %v", c.kind)
	}
}

func TestSizeOfPointerIsUniform(t *testing.T) {
	// sizeof(T*) == sizeof(void*) for every pointer type (spec.md §8).
	voidPtr := NewPointerType(NewBaseType(BaseVoid))
	intPtr := NewPointerType(NewBaseType(BaseSignedInt))
	structPtr := NewPointerType(NewPointerType(NewBaseType(BaseSignedLongLong)))

	assert.Equal(t, Size(voidPtr), Size(intPtr))
	assert.Equal(t, Size(voidPtr), Size(structPtr))
	assert.Equal(t, 4, Size(voidPtr))
}

func TestSizeOfArrayIsCountTimesElement(t *testing.T) {
	arr, err := NewArrayType(NewBaseType(BaseSignedInt), 10)
	require.NoError(t, err)
	assert.Equal(t, 40, Size(arr))
}

func TestTypeStringFormatting(t *testing.T) {
	intType := NewBaseType(BaseSignedInt)
	assert.Equal(t, "int", TypeString(intType))

	ptr := NewPointerType(intType)
	assert.Equal(t, "int*", TypeString(ptr))

	arr, err := NewArrayType(intType, 5)
	require.NoError(t, err)
	assert.Equal(t, "int[5]", TypeString(arr))
}

func TestRecordSizeAndAlignmentInvariant(t *testing.T) {
	tag := &Token{Kind: TokAlphanumeric, Value: &Str{Bytes: "P"}}
	r := NewRecord(tag, true)

	require.NoError(t, r.AddMember(&Token{Value: &Str{Bytes: "x"}}, NewBaseType(BaseSignedChar)))
	require.NoError(t, r.AddMember(&Token{Value: &Str{Bytes: "y"}}, NewBaseType(BaseSignedInt)))
	require.NoError(t, r.Finish())

	// size mod alignment == 0, and every member offset is aligned to
	// its own type's alignment (spec.md §8 invariant).
	assert.Equal(t, 0, r.Size%r.Alignment)
	for _, m := range r.Members {
		assert.Equal(t, 0, m.Offset%Alignment(m.Type), "member %s misaligned", m.Name.Value.Bytes)
	}
	// the int member forces 4-byte alignment, so the char at offset 0
	// is followed by 3 bytes of padding before y.
	xType, xOff, ok := r.Find("x")
	require.True(t, ok)
	assert.Equal(t, 0, xOff)
	assert.Equal(t, NewBaseType(BaseSignedChar), xType)

	_, yOff, ok := r.Find("y")
	require.True(t, ok)
	assert.Equal(t, 4, yOff)
	assert.Equal(t, 8, r.Size)
}

func TestRecordAnonymousMemberFlattening(t *testing.T) {
	inner := NewRecord(nil, true)
	require.NoError(t, inner.AddMember(&Token{Value: &Str{Bytes: "a"}}, NewBaseType(BaseSignedInt)))
	require.NoError(t, inner.AddMember(&Token{Value: &Str{Bytes: "b"}}, NewBaseType(BaseSignedInt)))
	require.NoError(t, inner.Finish())

	outer2 := NewRecord(&Token{Value: &Str{Bytes: "Outer2"}}, true)
	require.NoError(t, outer2.AddMember(nil, NewRecordType(inner)))
	require.NoError(t, outer2.AddMember(&Token{Value: &Str{Bytes: "c"}}, NewBaseType(BaseSignedInt)))
	require.NoError(t, outer2.Finish())

	// r.a.b flattens: offset(outer2, b via anon) == offset(outer2, anon) + offset(inner, b)
	_, aOff, ok := outer2.Find("a")
	require.True(t, ok)
	_, bOff, ok := outer2.Find("b")
	require.True(t, ok)
	_, innerBOff, ok := inner.Find("b")
	require.True(t, ok)
	assert.Equal(t, aOff+innerBOff, bOff)
}
