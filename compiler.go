package occ

// Compiler is the single explicit context threaded through lexing,
// parsing, code generation and emission, replacing onramp's process
// globals (current_filename, current_line, scope_current,
// current_function, label/string counters, the lexer, and the
// interner) per spec.md §9's redesign note.
type Compiler struct {
	Interner *Interner
	Lexer    *Lexer
	Scopes   *ScopeStack
	Options  Options
	Config   Config

	CurrentFunction *Function

	nextLabel  int
	nextString int

	Diagnostics []*Diagnostic // warnings accumulated; errors abort immediately
	Program     *Program

	// GlobalVarOrder records file-scope variable symbols in first-seen
	// declaration order, so tentative definitions left unresolved at
	// end of translation unit (C17 6.9.2p2) finalize deterministically
	// rather than in Go's unspecified map iteration order.
	GlobalVarOrder []*Symbol
}

func NewCompiler(opts Options) *Compiler {
	c := &Compiler{
		Interner: NewInterner(),
		Scopes:   NewScopeStack(),
		Options:  opts,
		Config:   NewConfig(),
		Program:  &Program{},
	}
	registerBuiltinTypedefs(c)
	return c
}

// NewLabel allocates a fresh, monotonically increasing block label.
func (c *Compiler) NewLabel() int {
	c.nextLabel++
	return c.nextLabel
}

// NewStringLabel allocates a fresh, monotonically increasing string
// literal label and records its bytes immediately (spec.md §4.5:
// string literal labels are unique and monotonically increasing).
func (c *Compiler) NewStringLabel(bytes string) int {
	idx := c.nextString
	c.nextString++
	c.Program.Strings = append(c.Program.Strings, &StringLiteral{Label: idx, Bytes: bytes})
	return idx
}

func (c *Compiler) warn(d *Diagnostic) {
	d.Severity = SeverityWarning
	c.Diagnostics = append(c.Diagnostics, d)
}

// registerBuiltinTypedefs seeds the global scope with va_list, the
// only builtin type name this dialect exposes (spec.md §1).
func registerBuiltinTypedefs(c *Compiler) {
	tok := &Token{Kind: TokAlphanumeric, Value: c.Interner.Intern("__builtin_va_list"), Filename: c.Interner.Intern("<builtin>")}
	sym := &Symbol{Name: tok, Kind: SymTypedef, TypedefType: NewBaseType(BaseVaList)}
	c.Scopes.DeclareTypedef("__builtin_va_list", sym)
}
