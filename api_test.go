package occ

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileToFile(t *testing.T, src string) (string, []*Diagnostic, error) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out.s")
	diags, err := CompileBytes([]byte(src), "test.c", out, DefaultOptions())
	if err != nil {
		return "", diags, err
	}
	data, readErr := os.ReadFile(out)
	require.NoError(t, readErr)
	return string(data), diags, nil
}

// End-to-end scenario 1 (simplified): boolean-not applied twice.
func TestEndToEndBooleanNotTwice(t *testing.T) {
	src := `int main(void){ if(!!0) return 1; return 0; }`
	asm, diags, err := compileToFile(t, src)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Contains(t, asm, "@main")
	assert.Contains(t, asm, "RET")
}

// End-to-end scenario 2: cast of an overflowing char truncates per
// usual integer-conversion rules rather than erroring.
func TestEndToEndCastOfOverflowingChar(t *testing.T) {
	src := `int main(void){ if((signed char)0x123 != 0x23) return 1; return 0; }`
	_, diags, err := compileToFile(t, src)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

// End-to-end scenario 6: enum constant expressions fold at parse time.
func TestEndToEndEnumConstantExpressions(t *testing.T) {
	src := `enum E { A=3, B, C=B+4 }; int main(void){ return (A==3 && B==4 && C==8)?0:1; }`
	_, diags, err := compileToFile(t, src)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestCompileBytesIsFailFastOnUnknownIdentifier(t *testing.T) {
	src := `int main(void){ return undeclared_name; }`
	out := filepath.Join(t.TempDir(), "out.s")
	_, err := CompileBytes([]byte(src), "test.c", out, DefaultOptions())
	require.Error(t, err)

	// the output file must not have been left behind with partial
	// content once the pipeline aborts mid-parse.
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCompileMissingInputFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.s")
	_, err := Compile(filepath.Join(t.TempDir(), "missing.c"), out, DefaultOptions())
	require.Error(t, err)
}

func TestParseSourceExposesDiagnosticsOnSyntaxError(t *testing.T) {
	src := `int main(void) { return 0 `
	_, err := ParseSource([]byte(src), "test.c", DefaultOptions())
	require.Error(t, err)
	_, ok := err.(*Diagnostic)
	assert.True(t, ok)
}

func TestGlobalVariableTentativeDefinitionFinalizes(t *testing.T) {
	src := `int counter; int main(void){ return counter; }`
	c, err := ParseSource([]byte(src), "test.c", DefaultOptions())
	require.NoError(t, err)

	var found *GlobalVar
	for _, g := range c.Program.Globals {
		if g.Sym.Name.Value.Bytes == "counter" {
			found = g
		}
	}
	require.NotNil(t, found, "tentative definition left unresolved must finalize to a zero-initialized global")
	assert.True(t, found.Sym.IsDefined)
}
