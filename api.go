package occ

import (
	"fmt"
	"os"
)

// Compile is occ's single programmatic entry point (spec.md §6):
// `compile(input_path, output_path, options)`. It reads the
// preprocessed translation unit at inputPath, drives the lexer,
// parser, code generator and emitter in sequence, and writes OVM
// assembly text to outputPath. Grounded on the teacher's thin
// `GrammarFromFile`-style wrapper (clarete-langlang/go/api.go): one
// function stitching the pipeline stages together with no state of
// its own beyond the *Compiler it constructs.
//
// Compilation is fail-fast (spec.md §7): the first error aborts and
// outputPath is left unwritten. Warnings accumulated along the way are
// returned alongside a nil error.
func Compile(inputPath, outputPath string, opts Options) ([]*Diagnostic, error) {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputPath, err)
	}

	diags, err := CompileBytes(src, inputPath, outputPath, opts)
	return diags, err
}

// ParseSource runs the lexer and parser (and, per opts, the tree/asm
// optimisers) over src without touching the filesystem, returning the
// *Compiler holding the resulting Program. Tests use this to assert on
// Program/Function/Diagnostics shape directly; CompileBytes/Compile
// layer EmitProgram and file I/O on top for the full pipeline.
func ParseSource(src []byte, sourceName string, opts Options) (*Compiler, error) {
	c := NewCompiler(opts)

	lex, err := NewLexer(c.Interner, src, sourceName)
	if err != nil {
		return c, err
	}
	c.Lexer = lex

	p := NewParser(c)
	if err := p.ParseTranslationUnit(); err != nil {
		return c, err
	}
	return c, nil
}

// CompileBytes is Compile's variant for already-in-memory source,
// used directly by tests so end-to-end scenarios don't need a
// filesystem fixture per case.
func CompileBytes(src []byte, sourceName, outputPath string, opts Options) ([]*Diagnostic, error) {
	c, err := ParseSource(src, sourceName, opts)
	if err != nil {
		return c.Diagnostics, err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return c.Diagnostics, fmt.Errorf("creating %s: %w", outputPath, err)
	}
	defer out.Close()

	if err := EmitProgram(c, out); err != nil {
		return c.Diagnostics, err
	}
	return c.Diagnostics, nil
}
