package occ

// Fixed label-prefix strings appended to numeric indices (spec.md §6).
const (
	StringLabelPrefix = "_string_"
	JumpLabelPrefix   = "_L"
	MiscLabelPrefix   = "_static_"
	UserLabelPrefix   = "_user_"
)

// Block is a basic block owned by a Function: an ordered list of
// instructions (spec.md §3).
type Block struct {
	Label        int // numeric jump-label index naming this block, assigned by the label allocator
	Instructions []Instruction
}

func (b *Block) Emit(tok *Token, op Opcode, operands ...Operand) {
	b.Instructions = append(b.Instructions, Instruction{Token: tok, Op: op, Operands: operands})
}

// Function holds everything the code generator produces for one
// function definition (spec.md §3).
type Function struct {
	Type    *FunctionType
	Name    *Token
	AsmName string
	Root    *FunctionDecl

	Blocks []*Block

	Sym *Symbol

	// VariadicOffset is the stack offset of the first variadic
	// argument slot, or -1 if the function isn't variadic.
	VariadicOffset int

	// NameLabel is the string-literal label index backing __func__,
	// or -1 if never referenced (spec.md §4.6).
	NameLabel int

	FrameSize int
}

func NewFunction(sym *Symbol, root *FunctionDecl) *Function {
	ft := sym.Type.(*FunctionType)
	return &Function{
		Type:           ft,
		Name:           sym.Name,
		AsmName:        sym.AsmOrName(),
		Root:           root,
		Sym:            sym,
		VariadicOffset: -1,
		NameLabel:      -1,
	}
}

func (f *Function) NewBlock(labelIndex int) *Block {
	b := &Block{Label: labelIndex}
	f.Blocks = append(f.Blocks, b)
	return b
}

// StringLiteral is a string-literal emitted as a labeled data blob the
// moment it's parsed (spec.md §4.5).
type StringLiteral struct {
	Label int
	Bytes string
}

// GlobalReloc marks a pointer-sized slot within a GlobalVar's Init
// bytes that must hold the address of another symbol (a global, a
// function, or a string literal label) rather than a plain constant,
// since occ lowers initializers at parse time before any linker exists
// to resolve such addresses (SPEC_FULL.md §4.8, restoring global.c's
// deferred-address behaviour).
type GlobalReloc struct {
	Offset int
	Prefix LabelPrefix
	Name   string // external symbol name, used with LabelExternalUse
	Index  int    // jump-label index, rendered as _L<hex> when IsName is false
	IsName bool
}

// GlobalVar is a file-scope object with static storage, lowered by the
// code generator to a labeled data blob ahead of function bodies
// (SPEC_FULL.md §4.8).
type GlobalVar struct {
	Sym    *Symbol
	Init   []byte        // raw initializer bytes; zero-filled if no initializer
	Relocs []GlobalReloc // pointer-sized slots within Init needing address fixups
}

// Program is the emitter's input: every function, global, and string
// literal produced while compiling one translation unit.
type Program struct {
	Functions []*Function
	Globals   []*GlobalVar
	Strings   []*StringLiteral
}
