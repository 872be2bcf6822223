package occ

// ParamDecl is one declared function parameter; array-typed
// parameters have already decayed to pointer per spec.md §4.4 step 3.
type ParamDecl struct {
	base
	Sym *Symbol
}

// VarDecl is a single object/variable declaration, optionally with an
// initializer expression or initializer list.
type VarDecl struct {
	base
	Sym  *Symbol
	Init Node // nil if there is no initializer
}

// FunctionDecl is the root of a function definition's tree: the
// return type lives on Sym.Type.(*FunctionType).Return, and Params
// mirrors that type's ArgTypes/ArgNames with concrete Symbols bound in
// the parameter scope (spec.md §4.4 step 3-4).
type FunctionDecl struct {
	base
	Sym    *Symbol
	Params []*ParamDecl
	Body   *CompoundStmt
}
