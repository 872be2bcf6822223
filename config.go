package occ

// Options mirrors the programmatic entry point described in spec.md
// §6: `compile(input_path, output_path, options)` where options holds
// the optimisation switch, an AST dump flag, and the set of enabled
// warnings.
type Options struct {
	Optimize bool
	DumpAST  bool
	Warnings map[WarningID]bool
}

// WarningID enumerates the warning identifiers from spec.md §6.
type WarningID string

const (
	WarnImplicitInt                 WarningID = "implicit_int"
	WarnImplicitlyUnsignedLiteral   WarningID = "implicitly_unsigned_literal"
	WarnAnonymousTags               WarningID = "anonymous_tags"
	WarnZeroLengthArray             WarningID = "zero_length_array"
	WarnStatementExpressions        WarningID = "statement_expressions"
	WarnExtraKeywords                WarningID = "extra_keywords"
	WarnPointerArith                WarningID = "pointer_arith"
)

func DefaultOptions() Options {
	return Options{
		Optimize: false,
		DumpAST:  false,
		Warnings: map[WarningID]bool{},
	}
}

func (o Options) WarningEnabled(id WarningID) bool {
	return o.Warnings[id]
}

// Config is a small named-settings map modeled on the teacher's
// config.go, used internally by the compiler pipeline for the handful
// of boolean/int knobs that aren't part of the public Options struct:
// OptimizeAsm consults "codegen.peephole"/"codegen.peephole.passes"
// to decide whether and how many times to run its rewrite passes.
type Config map[string]*cfgVal

type cfgValType int

const (
	cfgUndefined cfgValType = iota
	cfgBool
	cfgInt
)

type cfgVal struct {
	typ    cfgValType
	asBool bool
	asInt  int
}

func NewConfig() Config {
	c := Config{}
	c.SetBool("codegen.peephole", true)
	c.SetInt("codegen.peephole.passes", 2)
	return c
}

func (c Config) SetBool(path string, v bool) { c[path] = &cfgVal{typ: cfgBool, asBool: v} }
func (c Config) SetInt(path string, v int)   { c[path] = &cfgVal{typ: cfgInt, asInt: v} }

func (c Config) GetBool(path string) bool {
	if v, ok := c[path]; ok && v.typ == cfgBool {
		return v.asBool
	}
	return false
}

func (c Config) GetInt(path string) int {
	if v, ok := c[path]; ok && v.typ == cfgInt {
		return v.asInt
	}
	return 0
}
