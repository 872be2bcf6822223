package occ

import (
	"fmt"
	"io"
	"strconv"
)

// emitMode tracks whether the cursor sits at the start of a fresh
// line or mid-line, the replacement for
// emit.c's scattered first_term boolean (original_source/core/cci/
// 1-opc/src/emit.c).
type emitMode int

const (
	modeLineStart emitMode = iota
	modeMidLine
)

// emitWriter is the Emitter's low-level output cursor. It owns the
// single EmitMode plus the last #line directive written, so a fresh
// directive is only emitted on an actual source-line change
// (spec.md §4.7 point 5), mirroring emit_line_directive/
// emit_line_increment_directive against current_line/current_filename.
type emitWriter struct {
	w    io.Writer
	mode emitMode

	lastFile string
	lastLine int
	haveLoc  bool

	err error
}

func newEmitWriter(w io.Writer) *emitWriter {
	return &emitWriter{w: w, mode: modeLineStart}
}

// raw writes s with no indentation bookkeeping; callers are
// responsible for having opened the line first via beginLine.
func (e *emitWriter) raw(s string) {
	if e.err != nil || s == "" {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

func (e *emitWriter) newline() {
	e.raw("\n")
	e.mode = modeLineStart
}

// beginLine emits emit_term's two-space indent the first time
// something is written on a fresh line, then marks the line mid-way.
func (e *emitWriter) beginLine() {
	if e.mode == modeLineStart {
		e.raw("  ")
		e.mode = modeMidLine
	}
}

// globalDivider spaces out top-level items, mirroring
// emit_global_divider's three blank lines.
func (e *emitWriter) globalDivider() {
	e.newline()
	e.newline()
	e.newline()
}

// EmitProgram serialises c.Program as OVM assembly text to w: string
// literals, then file-scope globals, then function bodies, in that
// order (spec.md §4.7). The leading "#line manual" directive and the
// in-between spacing follow emit_init/emit_global_divider exactly;
// byte-for-byte label/register/immediate syntax follows emit.c's
// public emit_* functions.
func EmitProgram(c *Compiler, w io.Writer) error {
	e := newEmitWriter(w)
	e.raw("#line manual\n")

	for _, s := range c.Program.Strings {
		e.emitStringLiteral(s)
		e.globalDivider()
	}
	for _, g := range c.Program.Globals {
		e.emitGlobalVar(g)
		e.globalDivider()
	}
	for i, fn := range c.Program.Functions {
		e.emitFunction(fn)
		if i < len(c.Program.Functions)-1 {
			e.globalDivider()
		}
	}

	e.raw("\n")
	return e.err
}

/*
 * Labels
 */

// defExternal renders the definition of a globally-visible symbol
// (function, global variable, string literal): spec.md §6's `@`
// prefix paired with the `^` used at every reference site.
func defExternal(name string) string {
	return string(LabelGlobalDefine) + name
}

// defBlock renders the definition of a block-local jump target: the
// `:` prefix paired with the `&` used at every reference site, per
// spec.md §4.7 point 2 (`:JLABEL<hex>`).
func defBlock(index int) string {
	return fmt.Sprintf("%s%s%x", string(LabelDefine), JumpLabelPrefix, index)
}

// labelOperandText renders a label-reference Operand: a fully-named
// external reference carries its own text (already spelled by the
// code generator, e.g. a symbol's asm name or "_string_<hex>"); an
// indexed reference is always an internal block-jump label.
func labelOperandText(op Operand) string {
	if op.IsName {
		return string(op.Prefix) + op.Name
	}
	return fmt.Sprintf("%s%s%x", string(op.Prefix), JumpLabelPrefix, op.Index)
}

/*
 * Scalars
 */

// formatImmediate chooses decimal or hexadecimal exactly as
// emit_int: small magnitudes (the open interval (-100000000,1000000))
// print as decimal, everything else as "0x" followed by the minimal
// hex digits (no zero padding), matching emit_hex_number's nibble-
// skipping behaviour.
func formatImmediate(v int32) string {
	if v > -100000000 && v < 1000000 {
		return strconv.Itoa(int(v))
	}
	return fmt.Sprintf("0x%x", uint32(v))
}

func operandText(op Operand) string {
	switch op.Kind {
	case OperandRegister:
		return registerNames[op.Register]
	case OperandImmediate:
		return formatImmediate(op.Imm)
	case OperandLabelRef:
		return labelOperandText(op)
	default:
		return ""
	}
}

// isAsmStringChar reports whether c can appear literally inside a
// quoted run, matching is_string_char_valid_assembly: printable ASCII
// excluding the characters the assembly's own string syntax reserves.
func isAsmStringChar(c byte) bool {
	if c == '\\' || c == '"' {
		return false
	}
	return c >= 0x20 && c < 0x7f
}

/*
 * Source-location directives
 */

// maybeLineDirective emits a #line directive (or the cheaper lone-'#'
// line-increment form) only when tok's location differs from the
// last one emitted, per spec.md §4.7 point 5.
func (e *emitWriter) maybeLineDirective(tok *Token) {
	if tok == nil || tok.Filename == nil {
		return
	}
	loc := tok.Location()
	if e.haveLoc && loc.Filename == e.lastFile && loc.Line == e.lastLine {
		return
	}
	if e.haveLoc && loc.Filename == e.lastFile && loc.Line == e.lastLine+1 {
		e.lineIncrement()
	} else {
		e.lineDirective(loc)
	}
	e.lastFile, e.lastLine, e.haveLoc = loc.Filename, loc.Line, true
}

func (e *emitWriter) lineIncrement() {
	if e.mode != modeLineStart {
		e.newline()
	}
	e.raw("#")
	e.newline()
}

func (e *emitWriter) lineDirective(loc SourceLocation) {
	if e.mode != modeLineStart {
		e.newline()
	}
	e.raw(fmt.Sprintf("#line %d %q", loc.Line, loc.Filename))
	e.newline()
}

/*
 * Data (string literals and initialised globals)
 */

// emitStringLiteral writes a string-literal's label definition and
// its byte data, including the null terminator spec.md §4.5 appends.
func (e *emitWriter) emitStringLiteral(s *StringLiteral) {
	e.raw(defExternal(fmt.Sprintf("%s%x", StringLabelPrefix, s.Label)))
	e.newline()
	data := make([]byte, len(s.Bytes)+1)
	copy(data, s.Bytes)
	e.emitDataLine(data, nil)
}

// emitGlobalVar writes a file-scope object's label definition and its
// lowered initializer image (SPEC_FULL.md §4.8), zero bytes for a
// tentative definition with no initializer content.
func (e *emitWriter) emitGlobalVar(g *GlobalVar) {
	e.raw(defExternal(g.Sym.AsmOrName()))
	e.newline()
	if len(g.Init) == 0 {
		return
	}
	e.emitDataLine(g.Init, g.Relocs)
}

// emitDataLine renders one data blob as a single indented line:
// printable runs are quoted exactly as emit_string_literal/
// emit_character_literal do (alternating '"'-delimited printable runs
// and 'HH hex-byte escapes), extended with an invented but consistent
// convention (DESIGN.md) for splicing in a label reference at each
// pointer-sized relocation slot a global initializer's address-valued
// element produces, since this textual format has no binary linker
// pass to patch those addresses after the fact.
func (e *emitWriter) emitDataLine(data []byte, relocs []GlobalReloc) {
	byOffset := make(map[int]GlobalReloc, len(relocs))
	for _, r := range relocs {
		byOffset[r.Offset] = r
	}

	e.beginLine()
	open := false
	for i := 0; i < len(data); {
		if r, ok := byOffset[i]; ok {
			if open {
				e.raw("\"")
				open = false
			}
			e.raw(labelOperandText(labelOperandFromReloc(r)))
			e.raw(" ")
			i += 4
			continue
		}

		c := data[i]
		valid := isAsmStringChar(c)
		if valid != open {
			e.raw("\"")
			open = valid
		}
		if valid {
			e.raw(string(c))
		} else {
			e.raw(fmt.Sprintf("'%02X", c))
		}
		i++
	}
	if open {
		e.raw("\"")
	}
	e.newline()
}

func labelOperandFromReloc(r GlobalReloc) Operand {
	if r.IsName {
		return NamedLabelOperand(r.Prefix, r.Name)
	}
	return LabelRefOperand(r.Prefix, r.Index)
}

/*
 * Functions
 */

// functionBodyLabel is the `_F_<name>` label spec.md §6 names as the
// internal function-body target distinct from the public asm-name
// entry point.
func functionBodyLabel(fn *Function) string {
	return "_F_" + fn.AsmName
}

// emitFunction writes the public entry stub (a single JMP redirect to
// the internal body label, spec.md §4.7 point 1) followed by every
// block's label and indented instruction stream (point 2).
func (e *emitWriter) emitFunction(fn *Function) {
	e.raw(defExternal(fn.AsmName))
	e.newline()
	e.beginLine()
	e.raw(OpJmp.String())
	e.raw(" ")
	e.raw(string(LabelExternalUse) + functionBodyLabel(fn))
	e.raw(" ")
	e.newline()
	e.newline()

	e.raw(string(LabelDefine) + functionBodyLabel(fn))
	e.newline()

	for _, b := range fn.Blocks {
		e.raw(defBlock(b.Label))
		e.newline()
		for _, in := range b.Instructions {
			if in.Op == OpLabel {
				continue
			}
			e.maybeLineDirective(in.Token)
			e.emitInstruction(in)
		}
	}
}

func (e *emitWriter) emitInstruction(in Instruction) {
	e.beginLine()
	e.raw(in.Op.String())
	for _, op := range in.Operands {
		e.raw(" ")
		e.raw(operandText(op))
	}
	e.raw(" ")
	e.newline()
}
