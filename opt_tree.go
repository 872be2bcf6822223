package occ

// OptimizeTree folds constant arithmetic over a parsed function body
// before code generation runs, the tree-level half of the two-stage
// optimizer spec.md §4.3/§9 describes (the other half, opt_asm.go,
// works over emitted instructions). It walks in place and returns the
// possibly-replaced root, mirroring a visitor that rewrites a node by
// returning its replacement, the way clarete-langlang's own tree
// passes transform a node and hand the replacement back to the
// caller rather than mutating by reference.
//
// Only pure, side-effect-free nodes are folded: increment/decrement,
// assignment, calls and comma sequences are left untouched even when
// their operands are constant, since folding would have to preserve
// evaluation order and side effects that spec.md never asks this
// optimizer to reason about.
func OptimizeTree(root Node) Node {
	if root == nil {
		return nil
	}
	switch n := root.(type) {
	case *FunctionDecl:
		if n.Body != nil {
			n.Body = OptimizeTree(n.Body).(*CompoundStmt)
		}
		return n

	case *CompoundStmt:
		for i, item := range n.Items {
			n.Items[i] = OptimizeTree(item)
		}
		return n

	case *ExprStmt:
		if n.Expr != nil {
			n.Expr = OptimizeTree(n.Expr)
		}
		return n

	case *IfStmt:
		n.Cond = OptimizeTree(n.Cond)
		n.Then = OptimizeTree(n.Then)
		if n.Else != nil {
			n.Else = OptimizeTree(n.Else)
		}
		return n

	case *WhileStmt:
		n.Cond = OptimizeTree(n.Cond)
		n.Body = OptimizeTree(n.Body)
		return n

	case *DoWhileStmt:
		n.Body = OptimizeTree(n.Body)
		n.Cond = OptimizeTree(n.Cond)
		return n

	case *ForStmt:
		if n.Init != nil {
			n.Init = OptimizeTree(n.Init)
		}
		if n.Cond != nil {
			n.Cond = OptimizeTree(n.Cond)
		}
		if n.Post != nil {
			n.Post = OptimizeTree(n.Post)
		}
		n.Body = OptimizeTree(n.Body)
		return n

	case *SwitchStmt:
		n.Tag = OptimizeTree(n.Tag)
		n.Body = OptimizeTree(n.Body)
		return n

	case *ReturnStmt:
		if n.Value != nil {
			n.Value = OptimizeTree(n.Value)
		}
		return n

	case *LabeledStmt:
		n.Stmt = OptimizeTree(n.Stmt)
		return n

	case *VarDecl:
		if n.Init != nil {
			n.Init = OptimizeTree(n.Init)
		}
		return n

	case *BinaryExpr:
		n.Left = OptimizeTree(n.Left)
		n.Right = OptimizeTree(n.Right)
		return foldBinary(n)

	case *UnaryExpr:
		n.Operand = OptimizeTree(n.Operand)
		return foldUnary(n)

	case *CastExpr:
		n.Operand = OptimizeTree(n.Operand)
		return foldCast(n)

	case *ConditionalExpr:
		n.Cond = OptimizeTree(n.Cond)
		n.Then = OptimizeTree(n.Then)
		n.Else = OptimizeTree(n.Else)
		if v, ok := constantEvalInt(n.Cond); ok {
			if v != 0 {
				return n.Then
			}
			return n.Else
		}
		return n

	case *IndexExpr:
		n.Object = OptimizeTree(n.Object)
		n.Index = OptimizeTree(n.Index)
		return n

	case *MemberExpr:
		n.Object = OptimizeTree(n.Object)
		return n

	case *CallExpr:
		n.Callee = OptimizeTree(n.Callee)
		for i, a := range n.Args {
			n.Args[i] = OptimizeTree(a)
		}
		return n

	case *AssignExpr:
		n.Left = OptimizeTree(n.Left)
		n.Right = OptimizeTree(n.Right)
		return n

	case *IncDecExpr:
		n.Operand = OptimizeTree(n.Operand)
		return n

	case *CommaExpr:
		for i, item := range n.Items {
			n.Items[i] = OptimizeTree(item)
		}
		return n

	case *InitListExpr:
		for i, item := range n.Items {
			n.Items[i] = OptimizeTree(item)
		}
		return n
	}
	return root
}

// foldBinary replaces a BinaryExpr with a NumberExpr when both
// operands are already constant integers, restricted to integer
// arithmetic (floats are left to codegen's runtime-call dispatch, and
// pointer arithmetic is never constant in this dialect).
func foldBinary(n *BinaryExpr) Node {
	if !IsInteger(n.NodeType()) {
		return n
	}
	l, lok := constantEvalInt(n.Left)
	r, rok := constantEvalInt(n.Right)
	if !lok || !rok {
		return n
	}
	v, ok := evalBinOpInt(n.Op, l, r)
	if !ok {
		return n
	}
	v = truncateToType(v, n.NodeType())
	return &NumberExpr{base: n.base, Value: uint64(v), Signed: !IsUnsigned(n.NodeType())}
}

func foldUnary(n *UnaryExpr) Node {
	if n.Op == UnDeref || n.Op == UnAddr {
		return n
	}
	if !IsInteger(n.NodeType()) {
		return n
	}
	v, ok := constantEvalInt(n)
	if !ok {
		return n
	}
	v = truncateToType(v, n.NodeType())
	return &NumberExpr{base: n.base, Value: uint64(v), Signed: !IsUnsigned(n.NodeType())}
}

func foldCast(n *CastExpr) Node {
	if !IsInteger(n.Target) {
		return n
	}
	if _, ok := n.Operand.(*NumberExpr); !ok {
		return n
	}
	v, ok := constantEvalInt(n.Operand)
	if !ok {
		return n
	}
	v = truncateToType(v, n.Target)
	return &NumberExpr{base: n.base, Value: uint64(v), Signed: !IsUnsigned(n.Target)}
}
