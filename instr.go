package occ

// Opcode enumerates the OVM instruction set consumed by the
// generated assembly (spec.md §4.6).
type Opcode int

const (
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpDivS
	OpDivU
	OpModS
	OpModU
	OpShl
	OpShrS
	OpShrU
	OpAnd
	OpOr
	OpXor
	OpNot
	OpCmpS
	OpCmpU
	OpJmp
	OpJz
	OpJnz
	OpCall
	OpRet
	OpEnter
	OpLeave
	OpPush
	OpPop
	OpLdw
	OpStw
	OpLds
	OpSts
	OpLdb
	OpStb
	OpImw
	OpMov
	OpZero
	OpBool
	OpIsz
	OpSxb
	OpSxs
	OpTrb
	OpTrs
	OpLabel // pseudo-instruction: defines a jump target, emits nothing itself
)

var opcodeNames = map[Opcode]string{
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDivS: "DIVS", OpDivU: "DIVU",
	OpModS: "MODS", OpModU: "MODU", OpShl: "SHL", OpShrS: "SHRS", OpShrU: "SHRU",
	OpAnd: "AND", OpOr: "OR", OpXor: "XOR", OpNot: "NOT",
	OpCmpS: "CMPS", OpCmpU: "CMPU",
	OpJmp: "JMP", OpJz: "JZ", OpJnz: "JNZ", OpCall: "CALL", OpRet: "RET",
	OpEnter: "ENTER", OpLeave: "LEAVE", OpPush: "PUSH", OpPop: "POP",
	OpLdw: "LDW", OpStw: "STW", OpLds: "LDS", OpSts: "STS", OpLdb: "LDB", OpStb: "STB",
	OpImw: "IMW", OpMov: "MOV", OpZero: "ZERO", OpBool: "BOOL", OpIsz: "ISZ",
	OpSxb: "SXB", OpSxs: "SXS", OpTrb: "TRB", OpTrs: "TRS",
}

func (op Opcode) String() string { return opcodeNames[op] }

// Registers. r0..r9 are general-purpose, ra/rb are the extra two
// general-purpose registers, and rsp/rfp/rpp/rip are special
// (spec.md §4.6).
const (
	R0 = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	RA
	RB
	RSP
	RFP
	RPP
	RIP
)

var registerNames = map[int]string{
	R0: "r0", R1: "r1", R2: "r2", R3: "r3", R4: "r4", R5: "r5", R6: "r6",
	R7: "r7", R8: "r8", R9: "r9", RA: "ra", RB: "rb",
	RSP: "rsp", RFP: "rfp", RPP: "rpp", RIP: "rip",
}

// OperandKind distinguishes the three shapes an instruction operand
// can take (spec.md §3 Block).
type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandImmediate
	OperandLabelRef
)

// LabelPrefix selects which of the fixed label-prefix conventions
// (spec.md §6) a label reference or definition uses.
type LabelPrefix byte

const (
	LabelExternalUse  LabelPrefix = '^' // external reference (use site)
	LabelInternalUse  LabelPrefix = '&' // internal reference to a block-local jump label
	LabelDefine       LabelPrefix = ':' // definition of a label
	LabelGlobalDefine LabelPrefix = '@' // global (external) definition
)

// Operand is a tagged union over {register, immediate, label
// reference}, exactly as spec.md §3 describes a Block's instruction
// operands.
type Operand struct {
	Kind OperandKind

	Register int   // valid iff Kind == OperandRegister
	Imm      int32 // valid iff Kind == OperandImmediate

	// valid iff Kind == OperandLabelRef
	Prefix LabelPrefix
	Name   string // external symbol name, used with LabelExternalUse
	Index  int    // numeric label index, used with internal/jump labels
	IsName bool   // true when Name should be used instead of Index
}

func RegOperand(r int) Operand { return Operand{Kind: OperandRegister, Register: r} }

func ImmOperand(v int32) Operand { return Operand{Kind: OperandImmediate, Imm: v} }

func LabelRefOperand(prefix LabelPrefix, index int) Operand {
	return Operand{Kind: OperandLabelRef, Prefix: prefix, Index: index}
}

func NamedLabelOperand(prefix LabelPrefix, name string) Operand {
	return Operand{Kind: OperandLabelRef, Prefix: prefix, Name: name, IsName: true}
}

// Instruction is one record in a Block: an opcode, its operands, and
// the source token it was generated from (used for #line emission and
// diagnostics).
type Instruction struct {
	Token    *Token
	Op       Opcode
	Operands []Operand
}
