package occ

// OptimizeAsm is the instruction-level half of the two-stage optimizer
// (spec.md §4.3/§9; the other half, opt_tree.go's OptimizeTree, folds
// constants before codegen runs). It rewrites each Block's
// instructions in place, applying the peephole rules spec.md §4.6
// names: dead `MOV rN,rN` removal, `ADD r,r,0`/`SUB r,r,0` removal,
// fusing an `IMW r,k` into the immediate slot of the arithmetic/compare
// instruction that immediately consumes it, and dropping an
// instruction whose result register is never read before it is
// overwritten or the block ends.
// The stage itself is gated by Options.Optimize; c.Config's
// "codegen.peephole"/"codegen.peephole.passes" knobs additionally tune
// whether it runs at all and how many rewrite passes each block gets,
// since later passes can expose fusion/dead-write opportunities a
// single pass left behind.
func OptimizeAsm(c *Compiler, fn *Function) {
	if !c.Config.GetBool("codegen.peephole") {
		return
	}
	passes := c.Config.GetInt("codegen.peephole.passes")
	if passes < 1 {
		passes = 1
	}
	for _, b := range fn.Blocks {
		for i := 0; i < passes; i++ {
			b.Instructions = fuseImmediates(b.Instructions)
			b.Instructions = removeNoOps(b.Instructions)
			b.Instructions = removeDeadWrites(b.Instructions)
		}
	}
}

// removeNoOps drops instructions that provably have no effect: a MOV
// whose source and destination are the same register, or an ADD/SUB
// against an immediate zero.
func removeNoOps(ins []Instruction) []Instruction {
	out := ins[:0]
	for _, in := range ins {
		if in.Op == OpMov && len(in.Operands) == 2 &&
			in.Operands[0].Kind == OperandRegister && in.Operands[1].Kind == OperandRegister &&
			in.Operands[0].Register == in.Operands[1].Register {
			continue
		}
		if (in.Op == OpAdd || in.Op == OpSub) && len(in.Operands) == 3 &&
			in.Operands[0].Kind == OperandRegister && in.Operands[1].Kind == OperandRegister &&
			in.Operands[0].Register == in.Operands[1].Register &&
			in.Operands[2].Kind == OperandImmediate && in.Operands[2].Imm == 0 {
			continue
		}
		out = append(out, in)
	}
	return out
}

// isArithOrCompare reports whether op is a binary instruction whose
// third operand may legally be an immediate instead of a register
// (every arithmetic, bitwise, and compare opcode in this ISA).
func isArithOrCompare(op Opcode) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDivS, OpDivU, OpModS, OpModU,
		OpShl, OpShrS, OpShrU, OpAnd, OpOr, OpXor, OpCmpS, OpCmpU:
		return true
	}
	return false
}

// fuseImmediates merges `IMW rX,k` into the instruction that follows
// it when that instruction reads rX as its last operand and k fits
// the OVM immediate-operand encoding, dropping the now-redundant load.
// A fused register must not be read again afterward beyond that single
// consuming instruction; this pass only looks one instruction ahead,
// matching generate_ops.c's own habit of folding a known-small size
// constant directly into the next opcode rather than materializing it.
func fuseImmediates(ins []Instruction) []Instruction {
	out := make([]Instruction, 0, len(ins))
	for i := 0; i < len(ins); i++ {
		cur := ins[i]
		if cur.Op == OpImw && len(cur.Operands) == 2 && cur.Operands[0].Kind == OperandRegister &&
			cur.Operands[1].Kind == OperandImmediate && i+1 < len(ins) {
			next := ins[i+1]
			reg := cur.Operands[0].Register
			if isArithOrCompare(next.Op) && len(next.Operands) == 3 &&
				next.Operands[2].Kind == OperandRegister && next.Operands[2].Register == reg &&
				!instructionReadsRegister(next.Operands[:2], reg) &&
				!registerReadLater(ins[i+2:], reg) {
				fused := next
				fused.Operands = append([]Operand{}, next.Operands...)
				fused.Operands[2] = cur.Operands[1]
				out = append(out, fused)
				i++
				continue
			}
		}
		out = append(out, cur)
	}
	return out
}

func instructionReadsRegister(operands []Operand, reg int) bool {
	for _, o := range operands {
		if o.Kind == OperandRegister && o.Register == reg {
			return true
		}
	}
	return false
}

func registerReadLater(ins []Instruction, reg int) bool {
	for _, in := range ins {
		operands := in.Operands
		if isStoreOp(in.Op) {
			// every operand of a store (value, base, offset-as-imm) is a read
			if instructionReadsRegister(operands, reg) {
				return true
			}
			continue
		}
		readStart := 1
		if !writesDestination(in.Op) {
			readStart = 0
		}
		if readStart < len(operands) && instructionReadsRegister(operands[readStart:], reg) {
			return true
		}
		if writesDestination(in.Op) && len(operands) > 0 &&
			operands[0].Kind == OperandRegister && operands[0].Register == reg {
			return false // overwritten before being read again
		}
	}
	return false
}

func isStoreOp(op Opcode) bool {
	switch op {
	case OpStw, OpSts, OpStb:
		return true
	}
	return false
}

// writesDestination reports whether op's first operand is a written
// register (as opposed to every operand being a read, as in a store or
// a conditional jump).
func writesDestination(op Opcode) bool {
	switch op {
	case OpJmp, OpJz, OpJnz, OpCall, OpRet, OpEnter, OpLeave, OpPush, OpPop,
		OpStw, OpSts, OpStb, OpLabel:
		return false
	}
	return true
}

// removeDeadWrites drops a pure register-producing instruction whose
// destination is never read again before the block ends or the
// register is overwritten. Loads, stores, calls, and control-flow
// instructions are never candidates: a load's destination might be
// read by code this single-block view can't see if codegen ever
// aliases it through a spilled pointer, and stores/calls/jumps have
// effects beyond their register operand.
func removeDeadWrites(ins []Instruction) []Instruction {
	dead := make([]bool, len(ins))
	for i, in := range ins {
		if !isPureRegisterOp(in.Op) || len(in.Operands) == 0 || in.Operands[0].Kind != OperandRegister {
			continue
		}
		reg := in.Operands[0].Register
		if !registerReadLater(ins[i+1:], reg) {
			dead[i] = true
		}
	}
	out := make([]Instruction, 0, len(ins))
	for i, in := range ins {
		if !dead[i] {
			out = append(out, in)
		}
	}
	return out
}

// isPureRegisterOp reports whether op only computes a register value
// with no other observable effect, making it safe to drop when its
// result is never read.
func isPureRegisterOp(op Opcode) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDivS, OpDivU, OpModS, OpModU,
		OpShl, OpShrS, OpShrU, OpAnd, OpOr, OpXor, OpNot,
		OpCmpS, OpCmpU, OpImw, OpMov, OpZero, OpBool, OpIsz,
		OpSxb, OpSxs, OpTrb, OpTrs:
		return true
	}
	return false
}
