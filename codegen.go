package occ

import "fmt"

// generator holds the mutable state threaded through one function's
// code generation, replacing onramp's process-global current_block /
// current_function (spec.md §9's redesign note, already applied to
// parsing via Compiler; codegen gets its own per-call struct instead
// of adding more fields to Compiler since none of this state survives
// past a single GenerateFunction call).
type generator struct {
	c  *Compiler
	fn *Function

	block *Block

	breakTargets    []*Block
	continueTargets []*Block

	// labelBlocks maps a user goto-label name to the block that begins
	// it; populated by a pre-scan (scanLabels) before any instruction
	// is emitted, so a forward goto never needs backpatching the way
	// onramp's openAddrs table does.
	labelBlocks map[string]*Block

	frameSize int

	// stackTemps tracks bytes reserved via SUB RSP,RSP,n for 8-byte
	// runtime-call temporaries within the statement currently being
	// generated, so they can be released together at the statement
	// boundary instead of threading a release obligation through every
	// recursive genExpr call.
	stackTemps int
}

// maxRegister is the highest general-purpose register index available
// to the tree-shaped register allocator (r0..r9, ra, rb — spec.md
// §4.6's "single-pass, tree-shaped" allocation). Expressions nested
// deeper than this are rejected rather than spilled to the stack: a
// simplification from the spec's "rolling high-water mark" spill
// scheme, noted in DESIGN.md, since no original_source file describes
// the exact spill mechanics to port.
const maxRegister = RB

// GenerateFunction walks fn.Root producing Blocks of Instructions, the
// driver spec.md §4.6 describes abstractly ("the generator walks the
// tree producing instructions into a current block"). Grounded
// structurally on clarete-langlang's visitor-shaped compiler
// (grammar_compiler.go's Compile/Visit* methods hold a cursor and a
// code vector the same way; here the "vector" is the Function's list
// of Blocks) and on generate_ops.c's register-target/push-pop
// conventions for arithmetic lowering.
func GenerateFunction(c *Compiler, fn *Function) error {
	g := &generator{c: c, fn: fn, labelBlocks: map[string]*Block{}}

	g.layoutFrame()
	g.scanLabels(fn.Root.Body)

	entry := fn.NewBlock(c.NewLabel())
	g.block = entry

	g.emitPrologue()
	if err := g.genStmt(fn.Root.Body); err != nil {
		return err
	}
	g.emitFallthroughReturn()

	fn.FrameSize = g.frameSize
	return nil
}

/*
 * Frame layout
 */

// layoutFrame assigns every parameter and non-static local variable a
// slot in the function's frame, following spec.md §4.6's calling
// convention verbatim: parameter i (register- or stack-passed alike)
// lives at RFP-(i+1)*4 once the prologue has copied it in. Locals
// continue past the parameter area, each in its own word-rounded slot,
// found by a pre-pass over the body so the prologue's SUB RSP,RSP,frame
// instruction can reserve the final frame size up front rather than
// patching it after the fact.
func (g *generator) layoutFrame() {
	params := g.fn.Root.Params
	for i, p := range params {
		p.Sym.FrameOffset = -(i + 1) * 4
		p.Sym.IsGlobal = false
	}

	next := -(len(params) + 1) * 4
	g.collectLocals(g.fn.Root.Body, &next)
	g.frameSize = -next
}

// collectLocals walks statements (never descending into nested
// function definitions, which this dialect doesn't have) assigning a
// frame slot to every auto local variable declaration it finds.
// static locals keep their own global storage (parse_decl.go already
// registered them as a GlobalVar) and are skipped here.
func (g *generator) collectLocals(n Node, next *int) {
	switch s := n.(type) {
	case *CompoundStmt:
		for _, item := range s.Items {
			g.collectLocals(item, next)
		}
	case *VarDecl:
		if s.Sym.Linkage == LinkageNone {
			size := Size(s.Sym.Type)
			if size%4 != 0 {
				size += 4 - size%4
			}
			if size == 0 {
				size = 4
			}
			*next -= size
			s.Sym.FrameOffset = *next
			s.Sym.IsGlobal = false
		}
	case *IfStmt:
		g.collectLocals(s.Then, next)
		if s.Else != nil {
			g.collectLocals(s.Else, next)
		}
	case *WhileStmt:
		g.collectLocals(s.Body, next)
	case *DoWhileStmt:
		g.collectLocals(s.Body, next)
	case *ForStmt:
		if s.Init != nil {
			g.collectLocals(s.Init, next)
		}
		g.collectLocals(s.Body, next)
	case *SwitchStmt:
		g.collectLocals(s.Body, next)
	case *LabeledStmt:
		g.collectLocals(s.Stmt, next)
	}
}

// scanLabels pre-assigns a Block to every user-defined goto label
// reachable in the function body, so a `goto` occurring lexically
// before its target's definition generates a forward reference to an
// already-allocated block rather than needing a backpatch pass.
func (g *generator) scanLabels(n Node) {
	switch s := n.(type) {
	case *CompoundStmt:
		for _, item := range s.Items {
			g.scanLabels(item)
		}
	case *LabeledStmt:
		b := g.fn.NewBlock(g.c.NewLabel())
		g.labelBlocks[s.Label.Value.Bytes] = b
		g.scanLabels(s.Stmt)
	case *IfStmt:
		g.scanLabels(s.Then)
		if s.Else != nil {
			g.scanLabels(s.Else)
		}
	case *WhileStmt:
		g.scanLabels(s.Body)
	case *DoWhileStmt:
		g.scanLabels(s.Body)
	case *ForStmt:
		g.scanLabels(s.Body)
	case *SwitchStmt:
		g.scanLabels(s.Body)
	}
}

/*
 * Prologue / epilogue
 */

// stackArgHeader is the number of bytes of caller-pushed state sitting
// between RFP and the first stack-passed argument once ENTER has run
// (the saved caller frame pointer and return address OVM's ENTER/CALL
// push). This is an ABI detail owned by the OVM runtime rather than by
// occ; approximated here at the conventional two words since no
// original_source file specifies ENTER's exact encoding.
const stackArgHeader = 8

func (g *generator) emitPrologue() {
	tok := g.fn.Root.Token()
	g.emit(tok, OpEnter, ImmOperand(0)) // saves the caller's frame; the SUB below reserves this one
	g.emit(tok, OpSub, RegOperand(RSP), RegOperand(RSP), ImmOperand(int32(g.frameSize)))

	params := g.fn.Root.Params
	for i, p := range params {
		var srcReg int
		if i < 4 {
			srcReg = i
		} else {
			srcReg = RA
			off := int32(stackArgHeader + (i-4)*4)
			g.emit(tok, OpLdw, RegOperand(RA), RegOperand(RFP), ImmOperand(off))
		}
		g.emit(tok, OpAdd, RegOperand(RB), RegOperand(RFP), ImmOperand(int32(p.Sym.FrameOffset)))
		g.storeScalar(tok, RB, srcReg, p.Sym.Type)
	}

	if g.fn.Type.Variadic {
		g.fn.VariadicOffset = -(len(params) + 1) * 4
	}
}

func (g *generator) emitFallthroughReturn() {
	tok := g.fn.Root.Token()
	g.emit(tok, OpZero, RegOperand(R0))
	g.emit(tok, OpLeave)
	g.emit(tok, OpRet)
}

/*
 * Block management
 */

func (g *generator) newBlock() *Block {
	return g.fn.NewBlock(g.c.NewLabel())
}

func (g *generator) switchTo(b *Block) { g.block = b }

func (g *generator) emit(tok *Token, op Opcode, operands ...Operand) {
	g.block.Emit(tok, op, operands...)
}

func blockOperand(b *Block) Operand { return LabelRefOperand(LabelInternalUse, b.Label) }

/*
 * Statements
 */

func (g *generator) genStmt(n Node) error {
	switch s := n.(type) {
	case nil:
		return nil

	case *CompoundStmt:
		for _, item := range s.Items {
			if err := g.genStmt(item); err != nil {
				return err
			}
		}
		return nil

	case *VarDecl:
		return g.genVarDecl(s)

	case *ExprStmt:
		if s.Expr == nil {
			return nil
		}
		g.beginTemps()
		if _, err := g.genExpr(s.Expr, R0); err != nil {
			return err
		}
		g.endTemps(s.Token())
		return nil

	case *IfStmt:
		return g.genIf(s)

	case *WhileStmt:
		return g.genWhile(s)

	case *DoWhileStmt:
		return g.genDoWhile(s)

	case *ForStmt:
		return g.genFor(s)

	case *SwitchStmt:
		return g.genSwitch(s)

	case *ReturnStmt:
		return g.genReturn(s)

	case *GotoStmt:
		target, ok := g.labelBlocks[s.Label.Value.Bytes]
		if !ok {
			return failTok(s.Label, ErrUnknownName, "goto to undeclared label `%s`", s.Label.Value.Bytes)
		}
		g.emit(s.Token(), OpJmp, blockOperand(target))
		g.switchTo(g.newBlock())
		return nil

	case *LabeledStmt:
		target := g.labelBlocks[s.Label.Value.Bytes]
		g.emit(s.Token(), OpJmp, blockOperand(target))
		g.switchTo(target)
		return g.genStmt(s.Stmt)

	case *BreakStmt:
		if len(g.breakTargets) == 0 {
			return failTok(s.Token(), ErrUnsupportedFeature, "`break` outside a loop or switch")
		}
		target := g.breakTargets[len(g.breakTargets)-1]
		g.emit(s.Token(), OpJmp, blockOperand(target))
		g.switchTo(g.newBlock())
		return nil

	case *ContinueStmt:
		if len(g.continueTargets) == 0 {
			return failTok(s.Token(), ErrUnsupportedFeature, "`continue` outside a loop")
		}
		target := g.continueTargets[len(g.continueTargets)-1]
		g.emit(s.Token(), OpJmp, blockOperand(target))
		g.switchTo(g.newBlock())
		return nil

	case *EmptyStmt:
		return nil
	}
	return internalError("GenerateFunction: unhandled statement node %T", n)
}

func (g *generator) genVarDecl(s *VarDecl) error {
	if s.Sym.Linkage != LinkageNone {
		// static local: storage and initializer already lowered to a
		// GlobalVar by parse_decl.go; the declaration statement itself
		// generates nothing; the one-time initializer runs before
		// main (spec.md §4.4), not on every execution of this block.
		return nil
	}
	if s.Init == nil {
		return nil
	}
	g.beginTemps()
	addr, err := g.genLocation(&VariableExpr{base: newBase(s.Token()), Sym: s.Sym})
	if err != nil {
		return err
	}
	if err := g.genInitInto(s.Token(), addr, s.Sym.Type, s.Init); err != nil {
		return err
	}
	g.endTemps(s.Token())
	return nil
}

// genInitInto stores init's value into the already-addressed object
// at register addr, recursing over InitListExpr the way writeInitInto
// (parse_decl.go) recurses when lowerGlobalInit builds a global's data
// image.
func (g *generator) genInitInto(tok *Token, addr int, typ Type, init Node) error {
	switch tt := typ.(type) {
	case *ArrayType:
		if str, ok := init.(*StringExpr); ok {
			return g.storeStringInto(tok, addr, str)
		}
		list, ok := init.(*InitListExpr)
		if !ok {
			break
		}
		elemSize := Size(tt.Ref)
		for i, item := range list.Items {
			elemAddr := addr + 1
			if elemAddr > maxRegister {
				return internalError("initializer list nesting exceeds available registers")
			}
			g.emit(tok, OpAdd, RegOperand(elemAddr), RegOperand(addr), ImmOperand(int32(i*elemSize)))
			if err := g.genInitInto(tok, elemAddr, tt.Ref, item); err != nil {
				return err
			}
		}
		return nil

	case *BaseType:
		if tt.Kind == BaseRecord {
			list, ok := init.(*InitListExpr)
			if !ok {
				break
			}
			for i, item := range list.Items {
				if i >= len(tt.Record.Members) {
					break
				}
				m := tt.Record.Members[i]
				memberAddr := addr + 1
				if memberAddr > maxRegister {
					return internalError("initializer list nesting exceeds available registers")
				}
				g.emit(tok, OpAdd, RegOperand(memberAddr), RegOperand(addr), ImmOperand(int32(m.Offset)))
				if err := g.genInitInto(tok, memberAddr, m.Type, item); err != nil {
					return err
				}
			}
			return nil
		}
	}

	valReg := addr + 1
	if valReg > maxRegister {
		return internalError("initializer nesting exceeds available registers")
	}
	if _, err := g.genExpr(init, valReg); err != nil {
		return err
	}
	g.storeScalar(tok, addr, valReg, typ)
	return nil
}

func (g *generator) storeStringInto(tok *Token, addr int, str *StringExpr) error {
	for i := 0; i <= len(str.Bytes); i++ {
		var b byte
		if i < len(str.Bytes) {
			b = str.Bytes[i]
		}
		if addr+1 > maxRegister {
			return internalError("string initializer exceeds available registers")
		}
		g.emit(tok, OpImw, RegOperand(addr+1), ImmOperand(int32(b)))
		g.emit(tok, OpStb, RegOperand(addr+1), RegOperand(addr), ImmOperand(int32(i)))
	}
	return nil
}

func (g *generator) genIf(s *IfStmt) error {
	elseBlock := g.newBlock()
	endBlock := g.newBlock()

	g.beginTemps()
	condReg, err := g.genExpr(s.Cond, R0)
	if err != nil {
		return err
	}
	g.emit(s.Token(), OpJz, RegOperand(condReg), blockOperand(elseBlock))
	g.endTemps(s.Token())

	thenBlock := g.newBlock()
	g.emit(s.Token(), OpJmp, blockOperand(thenBlock))
	g.switchTo(thenBlock)
	if err := g.genStmt(s.Then); err != nil {
		return err
	}
	g.emit(s.Token(), OpJmp, blockOperand(endBlock))

	g.switchTo(elseBlock)
	if s.Else != nil {
		if err := g.genStmt(s.Else); err != nil {
			return err
		}
	}
	g.emit(s.Token(), OpJmp, blockOperand(endBlock))

	g.switchTo(endBlock)
	return nil
}

func (g *generator) genWhile(s *WhileStmt) error {
	condBlock := g.newBlock()
	bodyBlock := g.newBlock()
	endBlock := g.newBlock()

	g.emit(s.Token(), OpJmp, blockOperand(condBlock))
	g.switchTo(condBlock)
	g.beginTemps()
	condReg, err := g.genExpr(s.Cond, R0)
	if err != nil {
		return err
	}
	g.emit(s.Token(), OpJz, RegOperand(condReg), blockOperand(endBlock))
	g.endTemps(s.Token())
	g.emit(s.Token(), OpJmp, blockOperand(bodyBlock))

	g.switchTo(bodyBlock)
	g.breakTargets = append(g.breakTargets, endBlock)
	g.continueTargets = append(g.continueTargets, condBlock)
	err = g.genStmt(s.Body)
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
	g.continueTargets = g.continueTargets[:len(g.continueTargets)-1]
	if err != nil {
		return err
	}
	g.emit(s.Token(), OpJmp, blockOperand(condBlock))

	g.switchTo(endBlock)
	return nil
}

func (g *generator) genDoWhile(s *DoWhileStmt) error {
	bodyBlock := g.newBlock()
	condBlock := g.newBlock()
	endBlock := g.newBlock()

	g.emit(s.Token(), OpJmp, blockOperand(bodyBlock))
	g.switchTo(bodyBlock)
	g.breakTargets = append(g.breakTargets, endBlock)
	g.continueTargets = append(g.continueTargets, condBlock)
	err := g.genStmt(s.Body)
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
	g.continueTargets = g.continueTargets[:len(g.continueTargets)-1]
	if err != nil {
		return err
	}
	g.emit(s.Token(), OpJmp, blockOperand(condBlock))

	g.switchTo(condBlock)
	g.beginTemps()
	condReg, err := g.genExpr(s.Cond, R0)
	if err != nil {
		return err
	}
	g.emit(s.Token(), OpJnz, RegOperand(condReg), blockOperand(bodyBlock))
	g.endTemps(s.Token())
	g.emit(s.Token(), OpJmp, blockOperand(endBlock))

	g.switchTo(endBlock)
	return nil
}

func (g *generator) genFor(s *ForStmt) error {
	if s.Init != nil {
		if err := g.genStmt(s.Init); err != nil {
			return err
		}
	}

	condBlock := g.newBlock()
	bodyBlock := g.newBlock()
	postBlock := g.newBlock()
	endBlock := g.newBlock()

	g.emit(s.Token(), OpJmp, blockOperand(condBlock))
	g.switchTo(condBlock)
	if s.Cond != nil {
		g.beginTemps()
		condReg, err := g.genExpr(s.Cond, R0)
		if err != nil {
			return err
		}
		g.emit(s.Token(), OpJz, RegOperand(condReg), blockOperand(endBlock))
		g.endTemps(s.Token())
	}
	g.emit(s.Token(), OpJmp, blockOperand(bodyBlock))

	g.switchTo(bodyBlock)
	g.breakTargets = append(g.breakTargets, endBlock)
	g.continueTargets = append(g.continueTargets, postBlock)
	err := g.genStmt(s.Body)
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
	g.continueTargets = g.continueTargets[:len(g.continueTargets)-1]
	if err != nil {
		return err
	}
	g.emit(s.Token(), OpJmp, blockOperand(postBlock))

	g.switchTo(postBlock)
	if s.Post != nil {
		g.beginTemps()
		if _, err := g.genExpr(s.Post, R0); err != nil {
			return err
		}
		g.endTemps(s.Token())
	}
	g.emit(s.Token(), OpJmp, blockOperand(condBlock))

	g.switchTo(endBlock)
	return nil
}

// genSwitch lowers a switch to a linear chain of compare-and-branch
// tests against each case value followed by a single body block
// entered at the matching CaseLabel.BodyOffset, then falls through
// case-to-case exactly like C (spec.md §4.5's Switch invariant).
func (g *generator) genSwitch(s *SwitchStmt) error {
	body, ok := s.Body.(*CompoundStmt)
	if !ok {
		return internalError("switch body is not a compound statement")
	}

	endBlock := g.newBlock()
	dispatchBlock := g.newBlock()

	g.emit(s.Token(), OpJmp, blockOperand(dispatchBlock))

	// Pre-allocate one block per case's body offset so the dispatch
	// chain and the fallthrough body can both reference them before
	// the body is generated.
	caseBlocks := make(map[int]*Block)
	for _, cl := range s.Cases {
		if _, ok := caseBlocks[cl.BodyOffset]; !ok {
			caseBlocks[cl.BodyOffset] = g.newBlock()
		}
	}

	g.switchTo(dispatchBlock)
	g.beginTemps()
	tagReg, err := g.genExpr(s.Tag, R0)
	if err != nil {
		return err
	}
	var defaultBlock *Block
	for _, cl := range s.Cases {
		if cl.IsDefault {
			defaultBlock = caseBlocks[cl.BodyOffset]
			continue
		}
		g.emit(s.Token(), OpCmpU, RegOperand(tagReg+1), RegOperand(tagReg), ImmOperand(int32(cl.Value)))
		g.emit(s.Token(), OpJz, RegOperand(tagReg+1), blockOperand(caseBlocks[cl.BodyOffset]))
	}
	if defaultBlock != nil {
		g.emit(s.Token(), OpJmp, blockOperand(defaultBlock))
	} else {
		g.emit(s.Token(), OpJmp, blockOperand(endBlock))
	}
	g.endTemps(s.Token())

	g.breakTargets = append(g.breakTargets, endBlock)
	bodyBlock := g.newBlock()
	g.switchTo(bodyBlock)
	for i, item := range body.Items {
		if b, ok := caseBlocks[i]; ok {
			g.emit(s.Token(), OpJmp, blockOperand(b))
			g.switchTo(b)
		}
		if err := g.genStmt(item); err != nil {
			g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
			return err
		}
	}
	g.breakTargets = g.breakTargets[:len(g.breakTargets)-1]
	g.emit(s.Token(), OpJmp, blockOperand(endBlock))

	g.switchTo(endBlock)
	return nil
}

func (g *generator) genReturn(s *ReturnStmt) error {
	retType := g.fn.Type.Return
	g.beginTemps()
	if s.Value != nil {
		if _, err := g.genExpr(s.Value, R0); err != nil {
			return err
		}
	}
	g.endTemps(s.Token())
	_ = retType
	g.emit(s.Token(), OpLeave)
	g.emit(s.Token(), OpRet)
	return nil
}

/*
 * Temporaries (8-byte runtime-call scratch slots)
 */

func (g *generator) beginTemps() { g.stackTemps = 0 }

func (g *generator) endTemps(tok *Token) {
	if g.stackTemps != 0 {
		g.emit(tok, OpAdd, RegOperand(RSP), RegOperand(RSP), ImmOperand(int32(g.stackTemps)))
		g.stackTemps = 0
	}
}

// allocTemp reserves an 8-byte stack slot for a long long/double
// runtime-call operand or result, returning the register that now
// holds its address.
func (g *generator) allocTemp(tok *Token, reg int) {
	g.emit(tok, OpSub, RegOperand(RSP), RegOperand(RSP), ImmOperand(8))
	g.emit(tok, OpMov, RegOperand(reg), RegOperand(RSP))
	g.stackTemps += 8
}

/*
 * Expressions
 */

// genExpr generates n's value into reg (and, transitively, registers
// above it), following spec.md §4.6's tree-shaped single-pass
// allocation. For an 8-byte type (long long/double/long double), reg
// ends up holding the ADDRESS of the value rather than the value
// itself, since no single 4-byte register can hold it; runtime-call
// sites (genBinary8, genUnaryCall8) know to dereference through it.
func (g *generator) genExpr(n Node, reg int) (int, error) {
	if reg > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}

	switch e := n.(type) {
	case *NumberExpr:
		return g.genNumber(e, reg)

	case *CharExpr:
		g.emit(e.Token(), OpImw, RegOperand(reg), ImmOperand(int32(e.Value)))
		return reg, nil

	case *StringExpr:
		g.emit(e.Token(), OpImw, RegOperand(reg), stringLabelOperand(e.Label))
		return reg, nil

	case *VariableExpr:
		return g.genVariable(e, reg)

	case *BinaryExpr:
		return g.genBinary(e, reg)

	case *UnaryExpr:
		return g.genUnary(e, reg)

	case *IncDecExpr:
		return g.genIncDec(e, reg)

	case *AssignExpr:
		return g.genAssign(e, reg)

	case *CallExpr:
		return g.genCall(e, reg)

	case *MemberExpr:
		addr, err := g.genLocation(e)
		if err != nil {
			return 0, err
		}
		return g.loadScalarSelf(e.Token(), addr, e.NodeType())

	case *IndexExpr:
		addr, err := g.genLocation(e)
		if err != nil {
			return 0, err
		}
		return g.loadScalarSelf(e.Token(), addr, e.NodeType())

	case *CastExpr:
		return g.genCast(e, reg)

	case *ConditionalExpr:
		return g.genConditional(e, reg)

	case *CommaExpr:
		return g.genComma(e, reg)

	case *BuiltinExpr:
		return g.genBuiltin(e, reg)

	case *SizeofExpr:
		// Folded to a NumberExpr by the parser/tree optimizer in every
		// legal position; reachable only if folding was skipped.
		v, ok := constantEvalInt(e)
		if !ok {
			return 0, internalError("sizeof reached codegen unevaluated")
		}
		g.emit(e.Token(), OpImw, RegOperand(reg), ImmOperand(int32(v)))
		return reg, nil
	}
	return 0, internalError("GenerateFunction: unhandled expression node %T", n)
}

func (g *generator) genNumber(e *NumberExpr, reg int) (int, error) {
	if Size(e.NodeType()) == 8 {
		g.allocTemp(e.Token(), reg)
		lo := int32(e.Value)
		hi := int32(e.Value >> 32)
		g.emit(e.Token(), OpImw, RegOperand(reg+1), ImmOperand(lo))
		g.emit(e.Token(), OpStw, RegOperand(reg+1), RegOperand(reg), ImmOperand(0))
		g.emit(e.Token(), OpImw, RegOperand(reg+1), ImmOperand(hi))
		g.emit(e.Token(), OpStw, RegOperand(reg+1), RegOperand(reg), ImmOperand(4))
		return reg, nil
	}
	g.emit(e.Token(), OpImw, RegOperand(reg), ImmOperand(int32(e.Value)))
	return reg, nil
}

func (g *generator) genVariable(e *VariableExpr, reg int) (int, error) {
	if e.Sym.Kind == SymConstant {
		g.emit(e.Token(), OpImw, RegOperand(reg), ImmOperand(int32(e.Sym.ConstValue)))
		return reg, nil
	}
	if _, ok := IsArray(e.Sym.Type); ok {
		return g.genLocation(e)
	}
	if e.Sym.Kind == SymFunction {
		return g.genLocation(e)
	}
	addr, err := g.genLocation(e)
	if err != nil {
		return 0, err
	}
	return g.loadScalarSelf(e.Token(), addr, e.Sym.Type)
}

// loadScalarSelf loads through the address already computed in reg,
// writing the loaded value back into the same register (safe since
// the address is no longer needed once the load completes).
func (g *generator) loadScalarSelf(tok *Token, reg int, typ Type) (int, error) {
	if Size(typ) == 8 {
		return reg, nil // already the address; runtime calls read through it
	}
	if IsRecordType(typ) {
		return reg, nil // struct/union value: reg stays the address
	}
	g.loadScalar(tok, reg, reg, typ)
	return reg, nil
}

func IsRecordType(t Type) bool {
	_, ok := IsRecord(t)
	return ok
}

func (g *generator) loadScalar(tok *Token, dst, addr int, typ Type) {
	switch Size(typ) {
	case 1:
		g.emit(tok, OpLdb, RegOperand(dst), RegOperand(addr), ImmOperand(0))
		if !IsUnsigned(typ) {
			g.emit(tok, OpSxb, RegOperand(dst), RegOperand(dst))
		}
	case 2:
		g.emit(tok, OpLds, RegOperand(dst), RegOperand(addr), ImmOperand(0))
		if !IsUnsigned(typ) {
			g.emit(tok, OpSxs, RegOperand(dst), RegOperand(dst))
		}
	default:
		g.emit(tok, OpLdw, RegOperand(dst), RegOperand(addr), ImmOperand(0))
	}
}

func (g *generator) storeScalar(tok *Token, addr, valReg int, typ Type) {
	switch Size(typ) {
	case 1:
		g.emit(tok, OpStb, RegOperand(valReg), RegOperand(addr), ImmOperand(0))
	case 2:
		g.emit(tok, OpSts, RegOperand(valReg), RegOperand(addr), ImmOperand(0))
	case 4:
		g.emit(tok, OpStw, RegOperand(valReg), RegOperand(addr), ImmOperand(0))
	default:
		// 8-byte or struct/union: copy word by word from the value's
		// own address (valReg) to the destination (addr). Struct
		// assignment beyond this is spec.md §4.6's documented
		// "currently unsupported" case.
		words := Size(typ) / 4
		for i := 0; i < words; i++ {
			off := int32(i * 4)
			g.emit(tok, OpPush, RegOperand(valReg))
			g.emit(tok, OpLdw, RegOperand(valReg), RegOperand(valReg), ImmOperand(off))
			g.emit(tok, OpStw, RegOperand(valReg), RegOperand(addr), ImmOperand(off))
			g.emit(tok, OpPop, RegOperand(valReg))
		}
	}
}

// genLocation computes the address of an lvalue into a fresh
// register, the counterpart to generate_location in generate_ops.c's
// generate_assign (it calls generate_location(node->first_child, ...)
// to get a destination address before storing).
func (g *generator) genLocation(n Node) (int, error) {
	return g.genLocationInto(n, R0)
}

func (g *generator) genLocationInto(n Node, reg int) (int, error) {
	if reg > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	switch e := n.(type) {
	case *VariableExpr:
		if e.Sym.Linkage != LinkageNone {
			g.emit(e.Token(), OpImw, RegOperand(reg), NamedLabelOperand(LabelExternalUse, e.Sym.AsmOrName()))
			return reg, nil
		}
		g.emit(e.Token(), OpAdd, RegOperand(reg), RegOperand(RFP), ImmOperand(int32(e.Sym.FrameOffset)))
		return reg, nil

	case *UnaryExpr:
		if e.Op == UnDeref {
			return g.genExpr(e.Operand, reg)
		}

	case *IndexExpr:
		objType := e.Object.NodeType()
		if _, ok := IsArray(objType); ok {
			base, err := g.genLocation(e.Object)
			if err != nil {
				return 0, err
			}
			return g.genIndexAddr(e, base, objType.(*ArrayType).Ref)
		}
		base, err := g.genExpr(e.Object, reg)
		if err != nil {
			return 0, err
		}
		ptr := objType.(*PointerType)
		return g.genIndexAddr(e, base, ptr.Ref)

	case *MemberExpr:
		var base int
		var err error
		if e.Arrow {
			base, err = g.genExpr(e.Object, reg)
		} else {
			base, err = g.genLocation(e.Object)
		}
		if err != nil {
			return 0, err
		}
		if e.Offset != 0 {
			g.emit(e.Token(), OpAdd, RegOperand(base), RegOperand(base), ImmOperand(int32(e.Offset)))
		}
		return base, nil

	case *CommaExpr:
		if e.StmtExprBody != nil {
			break
		}
		for i := 0; i < len(e.Items)-1; i++ {
			if _, err := g.genExpr(e.Items[i], reg); err != nil {
				return 0, err
			}
		}
		return g.genLocationInto(e.Items[len(e.Items)-1], reg)
	}
	return 0, failTok(n.Token(), ErrNonAddressable, "expression is not addressable")
}

func (g *generator) genIndexAddr(e *IndexExpr, base int, elemType Type) (int, error) {
	idxReg := base + 1
	if idxReg > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	if _, err := g.genExpr(e.Index, idxReg); err != nil {
		return 0, err
	}
	size := Size(elemType)
	g.scaleByPointeeSize(e.Token(), idxReg, size)
	g.emit(e.Token(), OpAdd, RegOperand(base), RegOperand(base), RegOperand(idxReg))
	return base, nil
}

// scaleByPointeeSize multiplies reg by size using the cheapest
// available opcode, exactly as spec.md §4.6's "pointer arithmetic
// scaling" prescribes.
func (g *generator) scaleByPointeeSize(tok *Token, reg, size int) {
	if size == 1 {
		return
	}
	if isPow2(size) {
		g.emit(tok, OpShl, RegOperand(reg), RegOperand(reg), ImmOperand(int32(log2(size))))
		return
	}
	if size < 128 {
		g.emit(tok, OpMul, RegOperand(reg), RegOperand(reg), ImmOperand(int32(size)))
		return
	}
	scratch := reg + 1
	g.emit(tok, OpImw, RegOperand(scratch), ImmOperand(int32(size)))
	g.emit(tok, OpMul, RegOperand(reg), RegOperand(reg), RegOperand(scratch))
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

func log2(n int) int {
	shift := 0
	for n > 1 {
		n >>= 1
		shift++
	}
	return shift
}

func stringLabelOperand(index int) Operand {
	return NamedLabelOperand(LabelExternalUse, fmt.Sprintf("%s%x", StringLabelPrefix, index))
}

/*
 * Binary / unary / compound expressions
 */

func isPointerType(t Type) (*PointerType, bool) {
	p, ok := t.(*PointerType)
	return p, ok
}

// genBinary dispatches a BinaryExpr by shape: short-circuit logical
// operators branch instead of evaluating both sides; pointer +/- int
// and pointer-pointer scale by the pointee size (generate_pointer_add_sub
// / generate_pointers_sub in generate_ops.c); 8-byte operand types route
// through a fixed runtime-call symbol (generate_binary_function); plain
// 4-byte int/pointer arithmetic and comparisons lower directly to OVM
// opcodes.
func (g *generator) genBinary(e *BinaryExpr, reg int) (int, error) {
	if e.Op.IsLogical() {
		return g.genShortCircuit(e, reg)
	}

	leftType, rightType := e.Left.NodeType(), e.Right.NodeType()
	if _, ok := isPointerType(leftType); ok && (e.Op == BinAdd || e.Op == BinSub) {
		if _, ok2 := isPointerType(rightType); ok2 && e.Op == BinSub {
			return g.genPointersSub(e, reg)
		}
		return g.genPointerAddSub(e, reg, e.Left, e.Right, e.Op == BinSub)
	}
	if _, ok := isPointerType(rightType); ok && e.Op == BinAdd {
		return g.genPointerAddSub(e, reg, e.Right, e.Left, false)
	}

	operandType := leftType
	if Size(operandType) == 8 && (IsLongLong(operandType) || IsFloating(operandType)) {
		return g.genBinary8(e, reg, operandType)
	}
	return g.genBinary4(e, reg)
}

func (g *generator) genPointerAddSub(e *BinaryExpr, reg int, ptrNode, intNode Node, isSub bool) (int, error) {
	tok := e.Token()
	if _, err := g.genExpr(ptrNode, reg); err != nil {
		return 0, err
	}
	rreg := reg + 1
	if rreg > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	if _, err := g.genExpr(intNode, rreg); err != nil {
		return 0, err
	}
	pt := ptrNode.NodeType().(*PointerType)
	g.scaleByPointeeSize(tok, rreg, Size(pt.Ref))
	op := OpAdd
	if isSub {
		op = OpSub
	}
	g.emit(tok, op, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
	return reg, nil
}

func (g *generator) genPointersSub(e *BinaryExpr, reg int) (int, error) {
	tok := e.Token()
	if _, err := g.genExpr(e.Left, reg); err != nil {
		return 0, err
	}
	rreg := reg + 1
	if rreg > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	if _, err := g.genExpr(e.Right, rreg); err != nil {
		return 0, err
	}
	g.emit(tok, OpSub, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
	pt := e.Left.NodeType().(*PointerType)
	size := Size(pt.Ref)
	if size > 1 {
		if isPow2(size) {
			g.emit(tok, OpShrS, RegOperand(reg), RegOperand(reg), ImmOperand(int32(log2(size))))
		} else {
			g.emit(tok, OpDivS, RegOperand(reg), RegOperand(reg), ImmOperand(int32(size)))
		}
	}
	return reg, nil
}

// genShortCircuit lowers && and || to a chain of conditional jumps
// that materialize 0 or 1 at a merge point (spec.md §4.6).
func (g *generator) genShortCircuit(e *BinaryExpr, reg int) (int, error) {
	tok := e.Token()
	rhsBlock := g.newBlock()
	trueBlock := g.newBlock()
	falseBlock := g.newBlock()
	endBlock := g.newBlock()

	if _, err := g.genExpr(e.Left, reg); err != nil {
		return 0, err
	}
	if e.Op == BinLogAnd {
		g.emit(tok, OpJz, RegOperand(reg), blockOperand(falseBlock))
	} else {
		g.emit(tok, OpJnz, RegOperand(reg), blockOperand(trueBlock))
	}
	g.emit(tok, OpJmp, blockOperand(rhsBlock))

	g.switchTo(rhsBlock)
	if _, err := g.genExpr(e.Right, reg); err != nil {
		return 0, err
	}
	g.emit(tok, OpJz, RegOperand(reg), blockOperand(falseBlock))
	g.emit(tok, OpJmp, blockOperand(trueBlock))

	g.switchTo(trueBlock)
	g.emit(tok, OpImw, RegOperand(reg), ImmOperand(1))
	g.emit(tok, OpJmp, blockOperand(endBlock))

	g.switchTo(falseBlock)
	g.emit(tok, OpImw, RegOperand(reg), ImmOperand(0))
	g.emit(tok, OpJmp, blockOperand(endBlock))

	g.switchTo(endBlock)
	return reg, nil
}

// genBinary4 lowers arithmetic, bitwise, and comparison operators
// whose operands are a single 4-byte register wide, directly to OVM
// opcodes (generate_simple_arithmetic's int case, generate_ordering /
// generate_equality's CMPS/CMPU dispatch in generate_ops.c).
func (g *generator) genBinary4(e *BinaryExpr, reg int) (int, error) {
	tok := e.Token()
	if _, err := g.genExpr(e.Left, reg); err != nil {
		return 0, err
	}
	rreg := reg + 1
	if rreg > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	if _, err := g.genExpr(e.Right, rreg); err != nil {
		return 0, err
	}
	unsigned := IsUnsigned(e.Left.NodeType()) || IsUnsigned(e.Right.NodeType())

	switch e.Op {
	case BinAdd:
		g.emit(tok, OpAdd, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
	case BinSub:
		g.emit(tok, OpSub, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
	case BinMul:
		g.emit(tok, OpMul, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
	case BinDiv:
		op := OpDivS
		if unsigned {
			op = OpDivU
		}
		g.emit(tok, op, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
	case BinMod:
		op := OpModS
		if unsigned {
			op = OpModU
		}
		g.emit(tok, op, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
	case BinShl:
		g.emit(tok, OpShl, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
	case BinShr:
		op := OpShrS
		if unsigned {
			op = OpShrU
		}
		g.emit(tok, op, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
	case BinAnd:
		g.emit(tok, OpAnd, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
	case BinOr:
		g.emit(tok, OpOr, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
	case BinXor:
		g.emit(tok, OpXor, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
	case BinLt, BinGt, BinLe, BinGe:
		op := OpCmpS
		if unsigned {
			op = OpCmpU
		}
		g.emit(tok, op, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
		g.materializeOrdering(tok, e.Op, reg)
	case BinEq, BinNe:
		g.emit(tok, OpSub, RegOperand(reg), RegOperand(reg), RegOperand(rreg))
		g.materializeEquality(tok, e.Op, reg)
	default:
		return 0, internalError("genBinary4: unhandled operator %v", e.Op)
	}
	return reg, nil
}

// materializeOrdering turns the -1/0/1 three-way result CMPS/CMPU (or
// a runtime cmp/cmps/cmpu call) leaves in reg into the 0/1 boolean the
// requested ordering operator denotes, the idiom generate_ordering
// describes as "CMPU+ADD+AND": here expressed as a sign-bit extraction
// for </>= and an is-zero/not-equal-to-one test for >/<=.
func (g *generator) materializeOrdering(tok *Token, op BinOp, reg int) {
	switch op {
	case BinLt:
		g.emit(tok, OpShrU, RegOperand(reg), RegOperand(reg), ImmOperand(31))
	case BinGe:
		g.emit(tok, OpShrU, RegOperand(reg), RegOperand(reg), ImmOperand(31))
		g.emit(tok, OpXor, RegOperand(reg), RegOperand(reg), ImmOperand(1))
	case BinGt:
		g.emit(tok, OpCmpU, RegOperand(reg), RegOperand(reg), ImmOperand(1))
		g.emit(tok, OpIsz, RegOperand(reg), RegOperand(reg))
	case BinLe:
		g.emit(tok, OpCmpU, RegOperand(reg), RegOperand(reg), ImmOperand(1))
		g.emit(tok, OpIsz, RegOperand(reg), RegOperand(reg))
		g.emit(tok, OpXor, RegOperand(reg), RegOperand(reg), ImmOperand(1))
	}
}

// materializeEquality turns a zero/nonzero difference in reg (from a
// SUB, or a runtime neq call's own 0/1 result) into the 0/1 boolean
// == or != denotes.
func (g *generator) materializeEquality(tok *Token, op BinOp, reg int) {
	switch op {
	case BinEq:
		g.emit(tok, OpIsz, RegOperand(reg), RegOperand(reg))
	case BinNe:
		g.emit(tok, OpBool, RegOperand(reg), RegOperand(reg))
	}
}

/*
 * 8-byte (long long / float / double) runtime-call dispatch
 */

// runtimeResultKind tags how to turn a runtime comparison call's
// result in r0 into the 0/1 boolean the source operator denotes.
type runtimeResultKind int

const (
	runtimeArith      runtimeResultKind = iota // not a comparison; result is the operation's value
	runtimeOrdering3                           // three-way -1/0/1 result (cmps/cmpu/cmp)
	runtimeNeqBool                             // 0 (equal) / 1 (not equal) result
	runtimeLtuBool                             // 0/1 "less-than" result, needs swap/invert per operator
)

// runtimeSymbol names the fixed external function a binary operator on
// an 8-byte operand type lowers to, grounded on spec.md §6's runtime
// symbol table (the authoritative name list; generate_ops.c's own
// dispatch agrees on shape but that table is what's followed verbatim
// here). swap requests the call be made with operands reversed
// (`__llong_ltu` only expresses "<", so ">" calls it with swapped
// arguments); invert requests the 0/1 result be flipped afterward.
func (g *generator) runtimeSymbol(op BinOp, typ Type) (symbol string, kind runtimeResultKind, swap, invert, ok bool) {
	unsigned := IsUnsigned(typ)
	if IsLongLong(typ) {
		switch op {
		case BinAdd:
			return "__llong_add", runtimeArith, false, false, true
		case BinSub:
			return "__llong_sub", runtimeArith, false, false, true
		case BinMul:
			return "__llong_mul", runtimeArith, false, false, true
		case BinDiv:
			if unsigned {
				return "__llong_divu", runtimeArith, false, false, true
			}
			return "__llong_divs", runtimeArith, false, false, true
		case BinMod:
			if unsigned {
				return "__llong_modu", runtimeArith, false, false, true
			}
			return "__llong_mods", runtimeArith, false, false, true
		case BinShl:
			return "__llong_shl", runtimeArith, false, false, true
		case BinShr:
			if unsigned {
				return "__llong_shru", runtimeArith, false, false, true
			}
			return "__llong_shrs", runtimeArith, false, false, true
		case BinAnd:
			return "__llong_and", runtimeArith, false, false, true
		case BinOr:
			return "__llong_or", runtimeArith, false, false, true
		case BinXor:
			return "__llong_xor", runtimeArith, false, false, true
		case BinEq:
			return "__llong_neq", runtimeNeqBool, false, false, true
		case BinNe:
			return "__llong_neq", runtimeNeqBool, false, false, true
		case BinLt, BinGt, BinLe, BinGe:
			if unsigned {
				switch op {
				case BinLt:
					return "__llong_ltu", runtimeLtuBool, false, false, true
				case BinGt:
					return "__llong_ltu", runtimeLtuBool, true, false, true
				case BinLe:
					return "__llong_ltu", runtimeLtuBool, true, true, true
				case BinGe:
					return "__llong_ltu", runtimeLtuBool, false, true, true
				}
			}
			return "__llong_cmps", runtimeOrdering3, false, false, true
		}
		return "", runtimeArith, false, false, false
	}
	if kind, ok2 := isFloatKind(typ); ok2 {
		prefix := "__float_"
		if kind == BaseDouble || kind == BaseLongDouble {
			prefix = "__double_"
		}
		switch op {
		case BinAdd:
			return prefix + "add", runtimeArith, false, false, true
		case BinSub:
			return prefix + "sub", runtimeArith, false, false, true
		case BinMul:
			return prefix + "mul", runtimeArith, false, false, true
		case BinDiv:
			return prefix + "div", runtimeArith, false, false, true
		case BinMod:
			return prefix + "mod", runtimeArith, false, false, true
		case BinEq, BinNe:
			return prefix + "neq", runtimeNeqBool, false, false, true
		case BinLt, BinGt, BinLe, BinGe:
			return prefix + "cmp", runtimeOrdering3, false, false, true
		}
	}
	return "", runtimeArith, false, false, false
}

// saveRegsBelow pushes every register below reg so a CALL's R0..R3
// clobber doesn't disturb a value an enclosing expression still needs,
// mirroring generate_binary_function's push-before-call/pop-after.
func (g *generator) saveRegsBelow(tok *Token, reg int) []int {
	saved := make([]int, 0, reg)
	for i := 0; i < reg; i++ {
		g.emit(tok, OpPush, RegOperand(i))
		saved = append(saved, i)
	}
	return saved
}

func (g *generator) restoreRegs(tok *Token, saved []int) {
	for i := len(saved) - 1; i >= 0; i-- {
		g.emit(tok, OpPop, RegOperand(saved[i]))
	}
}

// genBinary8 evaluates both operands as addresses of 8-byte values
// (every 8-byte-typed genExpr result is such an address — see
// genNumber/loadScalarSelf) and dispatches to the fixed runtime
// symbol, following generate_binary_function's push/call/pop shape.
// Arithmetic results come back as an address of the result (the same
// convention genExpr itself produces for an 8-byte value); ordering
// and equality calls return a plain 4-byte value in r0 that still
// needs materializeOrdering/materializeEquality.
func (g *generator) genBinary8(e *BinaryExpr, reg int, operandType Type) (int, error) {
	tok := e.Token()
	symbol, kind, swap, invert, ok := g.runtimeSymbol(e.Op, operandType)
	if !ok {
		return 0, internalError("no runtime symbol for operator %v on %s", e.Op, operandType)
	}

	saved := g.saveRegsBelow(tok, reg)
	lAddr, err := g.genExpr(e.Left, reg)
	if err != nil {
		return 0, err
	}
	rReg := reg + 1
	if rReg > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	rAddr, err := g.genExpr(e.Right, rReg)
	if err != nil {
		return 0, err
	}
	first, second := lAddr, rAddr
	if swap {
		first, second = rAddr, lAddr
	}
	g.emit(tok, OpMov, RegOperand(R0), RegOperand(first))
	g.emit(tok, OpMov, RegOperand(R1), RegOperand(second))
	g.emit(tok, OpCall, NamedLabelOperand(LabelExternalUse, symbol))

	resultTemp := reg + 2
	if resultTemp > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	g.emit(tok, OpMov, RegOperand(resultTemp), RegOperand(R0))
	g.restoreRegs(tok, saved)
	g.emit(tok, OpMov, RegOperand(reg), RegOperand(resultTemp))

	switch kind {
	case runtimeOrdering3:
		g.materializeOrdering(tok, e.Op, reg)
	case runtimeNeqBool:
		g.materializeEquality(tok, e.Op, reg)
	case runtimeLtuBool:
		if invert {
			g.emit(tok, OpXor, RegOperand(reg), RegOperand(reg), ImmOperand(1))
		}
	}
	return reg, nil
}

/*
 * Unary, increment/decrement, assignment
 */

func (g *generator) genUnary(e *UnaryExpr, reg int) (int, error) {
	tok := e.Token()
	switch e.Op {
	case UnPlus:
		return g.genExpr(e.Operand, reg)

	case UnAddr:
		return g.genLocationInto(e.Operand, reg)

	case UnDeref:
		ptrReg, err := g.genExpr(e.Operand, reg)
		if err != nil {
			return 0, err
		}
		return g.loadScalarSelf(tok, ptrReg, e.NodeType())

	case UnMinus:
		typ := e.NodeType()
		if Size(typ) == 8 && (IsLongLong(typ) || IsFloating(typ)) {
			return g.genUnaryMinus8(e, reg, typ)
		}
		if _, err := g.genExpr(e.Operand, reg); err != nil {
			return 0, err
		}
		g.emit(tok, OpMul, RegOperand(reg), RegOperand(reg), ImmOperand(-1))
		return reg, nil

	case UnNot:
		if _, err := g.genExpr(e.Operand, reg); err != nil {
			return 0, err
		}
		g.emit(tok, OpIsz, RegOperand(reg), RegOperand(reg))
		return reg, nil

	case UnBitNot:
		typ := e.NodeType()
		if Size(typ) == 8 && IsLongLong(typ) {
			return g.genUnaryCall8(e, reg, "__llong_bit_not")
		}
		if _, err := g.genExpr(e.Operand, reg); err != nil {
			return 0, err
		}
		g.emit(tok, OpNot, RegOperand(reg), RegOperand(reg))
		return reg, nil
	}
	return 0, internalError("genUnary: unhandled operator %v", e.Op)
}

// genUnaryCall8 evaluates operand as an 8-byte address and calls a
// fixed single-argument runtime symbol (`__llong_bit_not`), following
// the same push/call/pop shape genBinary8 uses for two-argument calls.
func (g *generator) genUnaryCall8(e *UnaryExpr, reg int, symbol string) (int, error) {
	tok := e.Token()
	saved := g.saveRegsBelow(tok, reg)
	addr, err := g.genExpr(e.Operand, reg)
	if err != nil {
		return 0, err
	}
	g.emit(tok, OpMov, RegOperand(R0), RegOperand(addr))
	g.emit(tok, OpCall, NamedLabelOperand(LabelExternalUse, symbol))

	resultTemp := reg + 1
	if resultTemp > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	g.emit(tok, OpMov, RegOperand(resultTemp), RegOperand(R0))
	g.restoreRegs(tok, saved)
	g.emit(tok, OpMov, RegOperand(reg), RegOperand(resultTemp))
	return reg, nil
}

// genUnaryMinus8 computes -x for an 8-byte type as 0 - x through the
// same runtime-call convention genBinary8 uses, since generate_ops.c
// has no dedicated 8-byte negate helper.
func (g *generator) genUnaryMinus8(e *UnaryExpr, reg int, typ Type) (int, error) {
	tok := e.Token()
	symbol, _, _, _, ok := g.runtimeSymbol(BinSub, typ)
	if !ok {
		return 0, internalError("no runtime symbol for unary minus on %s", typ)
	}
	saved := g.saveRegsBelow(tok, reg)

	g.allocTemp(tok, reg)
	zeroReg := reg + 1
	if zeroReg > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	g.emit(tok, OpZero, RegOperand(zeroReg))
	g.emit(tok, OpStw, RegOperand(zeroReg), RegOperand(reg), ImmOperand(0))
	g.emit(tok, OpStw, RegOperand(zeroReg), RegOperand(reg), ImmOperand(4))

	rAddr, err := g.genExpr(e.Operand, zeroReg)
	if err != nil {
		return 0, err
	}
	g.emit(tok, OpMov, RegOperand(R0), RegOperand(reg))
	g.emit(tok, OpMov, RegOperand(R1), RegOperand(rAddr))
	g.emit(tok, OpCall, NamedLabelOperand(LabelExternalUse, symbol))

	resultTemp := reg + 2
	if resultTemp > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	g.emit(tok, OpMov, RegOperand(resultTemp), RegOperand(R0))
	g.restoreRegs(tok, saved)
	g.emit(tok, OpMov, RegOperand(reg), RegOperand(resultTemp))
	return reg, nil
}

// genIncDec lowers pre/post increment and decrement as a load-add(or
// sub)-store sequence around the operand's address, returning the
// updated value for pre-forms and the prior value for post-forms.
func (g *generator) genIncDec(e *IncDecExpr, reg int) (int, error) {
	tok := e.Token()
	addr, err := g.genLocation(e.Operand)
	if err != nil {
		return 0, err
	}
	typ := e.Operand.NodeType()
	valReg := addr + 1
	if valReg > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	g.loadScalar(tok, valReg, addr, typ)

	step := int32(1)
	if pt, ok := isPointerType(typ); ok {
		step = int32(Size(pt.Ref))
	}
	isDec := e.Op == PreDec || e.Op == PostDec
	isPost := e.Op == PostInc || e.Op == PostDec

	updated := addr + 2
	if updated > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	g.emit(tok, OpMov, RegOperand(updated), RegOperand(valReg))
	if isDec {
		g.emit(tok, OpSub, RegOperand(updated), RegOperand(updated), ImmOperand(step))
	} else {
		g.emit(tok, OpAdd, RegOperand(updated), RegOperand(updated), ImmOperand(step))
	}
	g.storeScalar(tok, addr, updated, typ)

	if isPost {
		g.emit(tok, OpMov, RegOperand(reg), RegOperand(valReg))
	} else {
		g.emit(tok, OpMov, RegOperand(reg), RegOperand(updated))
	}
	return reg, nil
}

// genAssign lowers plain and compound assignment: RHS into reg,
// location into reg+1, store — exactly generate_assign's shape in
// generate_ops.c. A compound assignment (+=, &=, ...) first loads the
// current value through the location before combining.
func (g *generator) genAssign(e *AssignExpr, reg int) (int, error) {
	tok := e.Token()
	addr, err := g.genLocation(e.Left)
	if err != nil {
		return 0, err
	}
	valReg := addr + 1
	if valReg > maxRegister {
		return 0, internalError("expression nesting exceeds available registers")
	}
	typ := e.Left.NodeType()

	if binOp, ok := e.Op.BinOp(); ok {
		g.loadScalar(tok, valReg, addr, typ)
		rhsReg := valReg + 1
		if rhsReg > maxRegister {
			return 0, internalError("expression nesting exceeds available registers")
		}
		if binOp == BinAdd || binOp == BinSub {
			if pt, isPtr := isPointerType(typ); isPtr {
				if _, err := g.genExpr(e.Right, rhsReg); err != nil {
					return 0, err
				}
				g.scaleByPointeeSize(tok, rhsReg, Size(pt.Ref))
				op := OpAdd
				if binOp == BinSub {
					op = OpSub
				}
				g.emit(tok, op, RegOperand(valReg), RegOperand(valReg), RegOperand(rhsReg))
				g.storeScalar(tok, addr, valReg, typ)
				g.emit(tok, OpMov, RegOperand(reg), RegOperand(valReg))
				return reg, nil
			}
		}
		if _, err := g.genExpr(e.Right, rhsReg); err != nil {
			return 0, err
		}
		unsigned := IsUnsigned(typ)
		switch binOp {
		case BinAdd:
			g.emit(tok, OpAdd, RegOperand(valReg), RegOperand(valReg), RegOperand(rhsReg))
		case BinSub:
			g.emit(tok, OpSub, RegOperand(valReg), RegOperand(valReg), RegOperand(rhsReg))
		case BinMul:
			g.emit(tok, OpMul, RegOperand(valReg), RegOperand(valReg), RegOperand(rhsReg))
		case BinDiv:
			op := OpDivS
			if unsigned {
				op = OpDivU
			}
			g.emit(tok, op, RegOperand(valReg), RegOperand(valReg), RegOperand(rhsReg))
		case BinMod:
			op := OpModS
			if unsigned {
				op = OpModU
			}
			g.emit(tok, op, RegOperand(valReg), RegOperand(valReg), RegOperand(rhsReg))
		case BinShl:
			g.emit(tok, OpShl, RegOperand(valReg), RegOperand(valReg), RegOperand(rhsReg))
		case BinShr:
			op := OpShrS
			if unsigned {
				op = OpShrU
			}
			g.emit(tok, op, RegOperand(valReg), RegOperand(valReg), RegOperand(rhsReg))
		case BinAnd:
			g.emit(tok, OpAnd, RegOperand(valReg), RegOperand(valReg), RegOperand(rhsReg))
		case BinOr:
			g.emit(tok, OpOr, RegOperand(valReg), RegOperand(valReg), RegOperand(rhsReg))
		case BinXor:
			g.emit(tok, OpXor, RegOperand(valReg), RegOperand(valReg), RegOperand(rhsReg))
		}
		g.storeScalar(tok, addr, valReg, typ)
		g.emit(tok, OpMov, RegOperand(reg), RegOperand(valReg))
		return reg, nil
	}

	if _, err := g.genExpr(e.Right, valReg); err != nil {
		return 0, err
	}
	g.storeScalar(tok, addr, valReg, typ)
	g.emit(tok, OpMov, RegOperand(reg), RegOperand(valReg))
	return reg, nil
}

/*
 * Calls
 */

// genCall evaluates the callee (unless it's a plain function name,
// which calls its asm name directly) and up to four arguments into
// registers, shifts them into r0..r3, pushes any remaining arguments
// rightmost-first, and issues the call — spec.md §4.6's calling
// convention. Registers below reg are saved/restored around the call
// exactly as genBinary8 does, since CALL always clobbers r0..r3.
func (g *generator) genCall(e *CallExpr, reg int) (int, error) {
	tok := e.Token()
	saved := g.saveRegsBelow(tok, reg)

	argBase := reg + 1
	directName := ""
	if v, ok := e.Callee.(*VariableExpr); ok && v.Sym.Kind == SymFunction {
		directName = v.Sym.AsmOrName()
	}

	argRegs := make([]int, len(e.Args))
	for i, a := range e.Args {
		r := argBase + i
		if r > maxRegister {
			return 0, internalError("call has too many arguments for available registers")
		}
		if _, err := g.genExpr(a, r); err != nil {
			return 0, err
		}
		argRegs[i] = r
	}

	calleeReg := -1
	if directName == "" {
		calleeReg = argBase + len(e.Args)
		if calleeReg > maxRegister {
			return 0, internalError("call expression nesting exceeds available registers")
		}
		if _, err := g.genExpr(e.Callee, calleeReg); err != nil {
			return 0, err
		}
	}

	for i := len(e.Args) - 1; i >= 4; i-- {
		g.emit(tok, OpPush, RegOperand(argRegs[i]))
	}
	for i := 0; i < len(e.Args) && i < 4; i++ {
		if argRegs[i] != i {
			g.emit(tok, OpMov, RegOperand(i), RegOperand(argRegs[i]))
		}
	}

	if directName != "" {
		g.emit(tok, OpCall, NamedLabelOperand(LabelExternalUse, directName))
	} else {
		g.emit(tok, OpCall, RegOperand(calleeReg))
	}
	if len(e.Args) > 4 {
		g.emit(tok, OpAdd, RegOperand(RSP), RegOperand(RSP), ImmOperand(int32(4*(len(e.Args)-4))))
	}

	resultTemp := argBase
	g.emit(tok, OpMov, RegOperand(resultTemp), RegOperand(R0))
	g.restoreRegs(tok, saved)
	g.emit(tok, OpMov, RegOperand(reg), RegOperand(resultTemp))
	return reg, nil
}

/*
 * Casts, conditional, comma, builtins
 */

// genCast generates the operand, then, for an integer-to-integer cast
// to a 1- or 2-byte type, truncates it (TRB/TRS) and sign-extends it
// again (SXB/SXS) when the target is signed. A cast with a pointer or
// floating operand or target emits no conversion code.
func (g *generator) genCast(e *CastExpr, reg int) (int, error) {
	tok := e.Token()
	if _, err := g.genExpr(e.Operand, reg); err != nil {
		return 0, err
	}
	srcType := e.Operand.NodeType()
	dstType := e.Target
	if !IsInteger(dstType) || !IsInteger(srcType) {
		return reg, nil
	}
	switch Size(dstType) {
	case 1:
		g.emit(tok, OpTrb, RegOperand(reg), RegOperand(reg))
		if !IsUnsigned(dstType) {
			g.emit(tok, OpSxb, RegOperand(reg), RegOperand(reg))
		}
	case 2:
		g.emit(tok, OpTrs, RegOperand(reg), RegOperand(reg))
		if !IsUnsigned(dstType) {
			g.emit(tok, OpSxs, RegOperand(reg), RegOperand(reg))
		}
	}
	return reg, nil
}

func (g *generator) genConditional(e *ConditionalExpr, reg int) (int, error) {
	tok := e.Token()
	elseBlock := g.newBlock()
	endBlock := g.newBlock()

	if _, err := g.genExpr(e.Cond, reg); err != nil {
		return 0, err
	}
	g.emit(tok, OpJz, RegOperand(reg), blockOperand(elseBlock))

	thenBlock := g.newBlock()
	g.emit(tok, OpJmp, blockOperand(thenBlock))
	g.switchTo(thenBlock)
	if _, err := g.genExpr(e.Then, reg); err != nil {
		return 0, err
	}
	g.emit(tok, OpJmp, blockOperand(endBlock))

	g.switchTo(elseBlock)
	if _, err := g.genExpr(e.Else, reg); err != nil {
		return 0, err
	}
	g.emit(tok, OpJmp, blockOperand(endBlock))

	g.switchTo(endBlock)
	return reg, nil
}

func (g *generator) genComma(e *CommaExpr, reg int) (int, error) {
	if e.StmtExprBody != nil {
		for i, item := range e.StmtExprBody.Items {
			if i == len(e.StmtExprBody.Items)-1 {
				if es, ok := item.(*ExprStmt); ok && es.Expr != nil {
					return g.genExpr(es.Expr, reg)
				}
			}
			if err := g.genStmt(item); err != nil {
				return 0, err
			}
		}
		g.emit(e.Token(), OpZero, RegOperand(reg))
		return reg, nil
	}
	for i, item := range e.Items {
		if i == len(e.Items)-1 {
			return g.genExpr(item, reg)
		}
		if _, err := g.genExpr(item, reg); err != nil {
			return 0, err
		}
	}
	return reg, nil
}

// genBuiltin lowers __func__ (lazily binding a string literal to the
// enclosing function's name, cached on Function.NameLabel per
// spec.md §4.6) and the va_* intrinsics against Function.VariadicOffset.
func (g *generator) genBuiltin(e *BuiltinExpr, reg int) (int, error) {
	tok := e.Token()
	switch e.Kind {
	case BuiltinFunc:
		if g.fn.NameLabel < 0 {
			g.fn.NameLabel = g.c.NewStringLabel(g.fn.Name.Value.Bytes)
		}
		g.emit(tok, OpImw, RegOperand(reg), stringLabelOperand(g.fn.NameLabel))
		return reg, nil

	case BuiltinVaStart:
		if g.fn.VariadicOffset == -1 {
			return 0, internalError("va_start used in a non-variadic function")
		}
		listAddr, err := g.genLocation(e.Args[0])
		if err != nil {
			return 0, err
		}
		scratch := listAddr + 1
		if scratch > maxRegister {
			return 0, internalError("expression nesting exceeds available registers")
		}
		g.emit(tok, OpAdd, RegOperand(scratch), RegOperand(RFP), ImmOperand(int32(g.fn.VariadicOffset)))
		g.emit(tok, OpStw, RegOperand(scratch), RegOperand(listAddr), ImmOperand(0))
		return reg, nil

	case BuiltinVaArg:
		listAddr, err := g.genLocation(e.Args[0])
		if err != nil {
			return 0, err
		}
		cur := listAddr + 1
		if cur > maxRegister {
			return 0, internalError("expression nesting exceeds available registers")
		}
		g.emit(tok, OpLdw, RegOperand(cur), RegOperand(listAddr), ImmOperand(0))
		g.loadScalar(tok, reg, cur, e.ArgType)
		size := Size(e.ArgType)
		if size < 4 {
			size = 4
		}
		g.emit(tok, OpAdd, RegOperand(cur), RegOperand(cur), ImmOperand(int32(size)))
		g.emit(tok, OpStw, RegOperand(cur), RegOperand(listAddr), ImmOperand(0))
		return reg, nil

	case BuiltinVaEnd:
		return reg, nil
	}
	return 0, internalError("genBuiltin: unhandled builtin %v", e.Kind)
}
