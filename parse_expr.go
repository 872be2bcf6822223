package occ

import (
	"math"
	"strconv"
	"strings"
)

// binaryPrecedence maps each binary operator token spelling to its
// C17 §6.5 precedence level (higher binds tighter); assignment,
// conditional and comma are handled by their own dedicated parse
// functions rather than this table, per the classic precedence-
// climbing shape (spec.md §4.5).
var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

var binOpBySpelling = map[string]BinOp{
	"||": BinLogOr, "&&": BinLogAnd,
	"|": BinOr, "^": BinXor, "&": BinAnd,
	"==": BinEq, "!=": BinNe,
	"<": BinLt, ">": BinGt, "<=": BinLe, ">=": BinGe,
	"<<": BinShl, ">>": BinShr,
	"+": BinAdd, "-": BinSub,
	"*": BinMul, "/": BinDiv, "%": BinMod,
}

var assignOpBySpelling = map[string]AssignOp{
	"=": AssignPlain, "+=": AssignAdd, "-=": AssignSub, "*=": AssignMul, "/=": AssignDiv,
	"%=": AssignMod, "<<=": AssignShl, ">>=": AssignShr, "&=": AssignAnd, "|=": AssignOr, "^=": AssignXor,
}

// parseExpression parses a comma-separated expression sequence
// (spec.md §4.5 "sequence"), the widest expression grammar production.
func (p *Parser) parseExpression() (Node, error) {
	first, err := p.parseAssignmentExpression()
	if err != nil {
		return nil, err
	}
	if !p.is(",") {
		return first, nil
	}
	items := []Node{first}
	for {
		ok, err := p.accept(",")
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		item, err := p.parseAssignmentExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	n := &CommaExpr{base: newBase(first.Token()), Items: items}
	n.SetNodeType(items[len(items)-1].NodeType())
	return n, nil
}

// parseConstantExpression parses the conditional-expression grammar
// production used everywhere a constant expression is syntactically
// required (array sizes, enum values, case labels); actual constant-
// ness is verified afterward by constantEvalInt, not here, matching
// parse_decl.c's division of labor between parsing and node_eval.
func (p *Parser) parseConstantExpression() (Node, error) {
	return p.parseConditionalExpression()
}

func (p *Parser) parseAssignmentExpression() (Node, error) {
	left, err := p.parseConditionalExpression()
	if err != nil {
		return nil, err
	}

	tok := p.cur()
	op, ok := assignOpBySpelling[tok.Value.Bytes]
	if tok.Kind != TokPunctuation || !ok {
		return left, nil
	}
	if !IsLvalue(left) {
		return nil, failTok(tok, ErrNonLvalueAssignment, "left side of an assignment must be an lvalue")
	}
	if _, err := p.next(); err != nil {
		return nil, err
	}
	right, err := p.parseAssignmentExpression()
	if err != nil {
		return nil, err
	}

	n := &AssignExpr{base: newBase(tok), Op: op, Left: left, Right: right}
	n.SetNodeType(left.NodeType())
	return n, nil
}

func (p *Parser) parseConditionalExpression() (Node, error) {
	cond, err := p.parseBinaryExpression(1)
	if err != nil {
		return nil, err
	}
	if !p.is("?") {
		return cond, nil
	}
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseConditionalExpression()
	if err != nil {
		return nil, err
	}

	n := &ConditionalExpr{base: newBase(tok), Cond: cond, Then: then, Else: els}
	if IsArithmetic(then.NodeType()) && IsArithmetic(els.NodeType()) {
		n.SetNodeType(UsualArithmeticConversions(Promote(then.NodeType()), Promote(els.NodeType())))
	} else {
		n.SetNodeType(then.NodeType())
	}
	return n, nil
}

// parseBinaryExpression implements precedence climbing over
// binaryPrecedence starting at minPrec.
func (p *Parser) parseBinaryExpression(minPrec int) (Node, error) {
	left, err := p.parseUnaryPostfixChain()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.cur()
		if tok.Kind != TokPunctuation {
			break
		}
		prec, ok := binaryPrecedence[tok.Value.Bytes]
		if !ok || prec < minPrec {
			break
		}
		if _, err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseBinaryExpression(prec + 1)
		if err != nil {
			return nil, err
		}

		op := binOpBySpelling[tok.Value.Bytes]
		n := &BinaryExpr{base: newBase(tok), Op: op, Left: left, Right: right}
		n.SetNodeType(binaryResultType(op, left, right))
		left = n
	}
	return left, nil
}

// binaryResultType computes a binary expression's result type per
// spec.md §4.5: comparisons and logical operators yield int; pointer
// arithmetic yields the pointer's type; otherwise the usual arithmetic
// conversions apply to the promoted operand types.
func binaryResultType(op BinOp, left, right Node) Type {
	if op.IsComparison() || op.IsLogical() {
		return NewBaseType(BaseSignedInt)
	}
	if p, ok := IsPointer(left.NodeType()); ok {
		if op == BinAdd || op == BinSub {
			if _, rok := IsPointer(right.NodeType()); !rok {
				return p
			}
		}
		if op == BinSub {
			return NewBaseType(BaseSignedLong)
		}
	}
	if p, ok := IsPointer(right.NodeType()); ok && op == BinAdd {
		return p
	}
	if op.IsShift() {
		return Promote(left.NodeType())
	}
	return UsualArithmeticConversions(Promote(left.NodeType()), Promote(right.NodeType()))
}

/*
 * Unary / postfix
 */

var unaryOpBySpelling = map[string]UnOp{
	"+": UnPlus, "-": UnMinus, "!": UnNot, "~": UnBitNot,
}

func (p *Parser) parseUnaryPostfixChain() (Node, error) {
	tok := p.cur()

	if tok.Kind == TokPunctuation {
		switch tok.Value.Bytes {
		case "+", "-", "!", "~":
			if _, err := p.next(); err != nil {
				return nil, err
			}
			operand, err := p.parseCastExpression()
			if err != nil {
				return nil, err
			}
			n := &UnaryExpr{base: newBase(tok), Op: unaryOpBySpelling[tok.Value.Bytes], Operand: operand}
			if tok.Value.Bytes == "!" {
				n.SetNodeType(NewBaseType(BaseSignedInt))
			} else {
				n.SetNodeType(Promote(operand.NodeType()))
			}
			return n, nil

		case "*":
			if _, err := p.next(); err != nil {
				return nil, err
			}
			operand, err := p.parseCastExpression()
			if err != nil {
				return nil, err
			}
			ptr, ok := IsPointer(operand.NodeType())
			if !ok {
				return nil, failTok(tok, ErrTypeMismatch, "cannot dereference a non-pointer")
			}
			n := &UnaryExpr{base: newBase(tok), Op: UnDeref, Operand: operand}
			n.SetNodeType(ptr.Ref)
			return n, nil

		case "&":
			if _, err := p.next(); err != nil {
				return nil, err
			}
			operand, err := p.parseCastExpression()
			if err != nil {
				return nil, err
			}
			if !IsLvalue(operand) {
				if _, isFunc := IsFunction(operand.NodeType()); !isFunc {
					return nil, failTok(tok, ErrNonAddressable, "cannot take the address of a non-lvalue")
				}
			}
			n := &UnaryExpr{base: newBase(tok), Op: UnAddr, Operand: operand}
			n.SetNodeType(NewPointerType(operand.NodeType()))
			return n, nil

		case "++", "--":
			if _, err := p.next(); err != nil {
				return nil, err
			}
			operand, err := p.parseUnaryPostfixChain()
			if err != nil {
				return nil, err
			}
			if !IsLvalue(operand) {
				return nil, failTok(tok, ErrNonLvalueAssignment, "increment/decrement operand must be an lvalue")
			}
			op := PreInc
			if tok.Value.Bytes == "--" {
				op = PreDec
			}
			n := &IncDecExpr{base: newBase(tok), Op: op, Operand: operand}
			n.SetNodeType(operand.NodeType())
			return n, nil

		case "(":
			if save, ok, err := p.tryParseCastOrCompound(tok); err != nil {
				return nil, err
			} else if ok {
				return save, nil
			}
		}
	}

	if p.isKeyword("sizeof") {
		return p.parseSizeof()
	}

	return p.parsePostfixExpression()
}

func (p *Parser) parseCastExpression() (Node, error) {
	return p.parseUnaryPostfixChain()
}

// tryParseCastOrCompound handles the "(" ambiguity: a cast `(type)expr`
// versus a parenthesized expression or GNU statement expression
// `({ ... })`. Lookahead is limited to one token of backtracking
// (whether the identifier after `(` names a type), the same ambiguity
// parse_decl.c resolves via try_parse_type's speculative parse.
func (p *Parser) tryParseCastOrCompound(open *Token) (Node, bool, error) {
	if _, err := p.next(); err != nil {
		return nil, false, err
	}

	if p.is("{") {
		body, err := p.parseCompoundStatement()
		if err != nil {
			return nil, false, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, false, err
		}
		n := &CommaExpr{base: newBase(open), StmtExprBody: body}
		n.SetNodeType(lastStmtExprType(body))
		return n, true, nil
	}

	if p.startsTypeName() {
		typ, err := p.tryParseType()
		if err != nil {
			return nil, false, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, false, err
		}
		operand, err := p.parseCastExpression()
		if err != nil {
			return nil, false, err
		}
		n := &CastExpr{base: newBase(open), Target: typ, Operand: operand}
		n.SetNodeType(typ)
		return n, true, nil
	}

	inner, err := p.parseExpression()
	if err != nil {
		return nil, false, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, false, err
	}
	n, _, err := p.parsePostfixExpressionTail(inner)
	return n, true, err
}

func lastStmtExprType(body *CompoundStmt) Type {
	for i := len(body.Items) - 1; i >= 0; i-- {
		if es, ok := body.Items[i].(*ExprStmt); ok {
			return es.Expr.NodeType()
		}
	}
	return NewBaseType(BaseVoid)
}

// startsTypeName reports whether the current token could begin a
// declaration-specifier sequence, used to disambiguate a cast from a
// parenthesized expression.
func (p *Parser) startsTypeName() bool {
	if p.cur().Kind != TokAlphanumeric {
		return false
	}
	v := p.cur().Value.Bytes
	switch v {
	case "void", "char", "short", "int", "long", "float", "double", "signed", "unsigned",
		"_Bool", "bool", "struct", "union", "enum", "const", "volatile", "restrict":
		return true
	}
	return !keywords[v] && p.c.Scopes.FindTypedef(v, true) != nil
}

// tryParseType parses a type-name: a declaration-specifier sequence
// with no storage/function specifiers, followed by an optional
// abstract declarator (spec.md §4.5, parse_decl.c's try_parse_type).
func (p *Parser) tryParseType() (Type, error) {
	var s specifiers
	found, err := p.parseDeclarationSpecifiers(&s)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, failTok(p.cur(), ErrExpectedDeclarator, "expected a type name")
	}
	if s.storage != storageNone || s.fnSpec != 0 {
		return nil, failTok(p.cur(), ErrInvalidTypeSpecifierCombo, "storage and function specifiers are not allowed in a type name")
	}
	base, err := p.specifiersMakeType(&s)
	if err != nil {
		return nil, err
	}
	typ := base
	slot := typeSlot(&typ)
	if _, _, err := p.parseDeclarator(slot, true); err != nil {
		return nil, err
	}
	return *slot, nil
}

func (p *Parser) parseSizeof() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}

	if p.is("(") {
		if _, err := p.next(); err != nil {
			return nil, err
		}
		if p.startsTypeName() {
			typ, err := p.tryParseType()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			n := &SizeofExpr{base: newBase(tok), OperandType: typ}
			n.SetNodeType(NewBaseType(BaseUnsignedInt))
			return n, nil
		}
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		operand, _, err := p.parsePostfixExpressionTail(inner)
		if err != nil {
			return nil, err
		}
		n := &SizeofExpr{base: newBase(tok), Operand: operand}
		n.SetNodeType(NewBaseType(BaseUnsignedInt))
		return n, nil
	}

	operand, err := p.parseUnaryPostfixChain()
	if err != nil {
		return nil, err
	}
	n := &SizeofExpr{base: newBase(tok), Operand: operand}
	n.SetNodeType(NewBaseType(BaseUnsignedInt))
	return n, nil
}

func (p *Parser) parsePostfixExpression() (Node, error) {
	primary, err := p.parsePrimaryExpression()
	if err != nil {
		return nil, err
	}
	n, _, err := p.parsePostfixExpressionTail(primary)
	return n, err
}

// parsePostfixExpressionTail applies `[`, `(`, `.`, `->`, `++`, `--`
// postfix operators to an already-parsed primary/parenthesized
// expression, looping to support chains like `a[i].b->c()`.
func (p *Parser) parsePostfixExpressionTail(expr Node) (Node, bool, error) {
	any := false
	for {
		tok := p.cur()
		if tok.Kind != TokPunctuation {
			break
		}
		switch tok.Value.Bytes {
		case "[":
			if _, err := p.next(); err != nil {
				return nil, false, err
			}
			index, err := p.parseExpression()
			if err != nil {
				return nil, false, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, false, err
			}
			elemType, err := indexResultType(tok, expr.NodeType())
			if err != nil {
				return nil, false, err
			}
			n := &IndexExpr{base: newBase(tok), Object: expr, Index: index}
			n.SetNodeType(elemType)
			expr = n
			any = true

		case "(":
			if _, err := p.next(); err != nil {
				return nil, false, err
			}
			args, err := p.parseArgumentList()
			if err != nil {
				return nil, false, err
			}
			resultType, err := callResultType(tok, expr.NodeType())
			if err != nil {
				return nil, false, err
			}
			n := &CallExpr{base: newBase(tok), Callee: expr, Args: args}
			n.SetNodeType(resultType)
			expr = n
			any = true

		case ".", "->":
			arrow := tok.Value.Bytes == "->"
			if _, err := p.next(); err != nil {
				return nil, false, err
			}
			member, err := p.expectIdent()
			if err != nil {
				return nil, false, err
			}
			memberType, offset, err := memberResultType(tok, expr.NodeType(), arrow, member)
			if err != nil {
				return nil, false, err
			}
			n := &MemberExpr{base: newBase(tok), Object: expr, Arrow: arrow, MemberTok: member, Offset: offset}
			n.SetNodeType(memberType)
			expr = n
			any = true

		case "++", "--":
			if !IsLvalue(expr) {
				return nil, false, failTok(tok, ErrNonLvalueAssignment, "increment/decrement operand must be an lvalue")
			}
			if _, err := p.next(); err != nil {
				return nil, false, err
			}
			op := PostInc
			if tok.Value.Bytes == "--" {
				op = PostDec
			}
			n := &IncDecExpr{base: newBase(tok), Op: op, Operand: expr}
			n.SetNodeType(expr.NodeType())
			expr = n
			any = true

		default:
			return expr, any, nil
		}
	}
	return expr, any, nil
}

func (p *Parser) parseArgumentList() ([]Node, error) {
	var args []Node
	for !p.is(")") {
		if len(args) > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseAssignmentExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func indexResultType(tok *Token, objType Type) (Type, error) {
	if a, ok := IsArray(objType); ok {
		return a.Ref, nil
	}
	if ptr, ok := IsPointer(objType); ok {
		return ptr.Ref, nil
	}
	return nil, failTok(tok, ErrTypeMismatch, "subscript operand is not a pointer or array")
}

func callResultType(tok *Token, calleeType Type) (Type, error) {
	if ft, ok := IsFunction(calleeType); ok {
		return ft.Return, nil
	}
	if ptr, ok := IsPointer(calleeType); ok {
		if ft, ok := IsFunction(ptr.Ref); ok {
			return ft.Return, nil
		}
	}
	return nil, failTok(tok, ErrTypeMismatch, "called object is not a function or function pointer")
}

func memberResultType(tok *Token, objType Type, arrow bool, member *Token) (Type, int, error) {
	recType := objType
	if arrow {
		ptr, ok := IsPointer(objType)
		if !ok {
			return nil, 0, failTok(tok, ErrTypeMismatch, "`->` operand is not a pointer")
		}
		recType = ptr.Ref
	}
	rec, ok := IsRecord(recType)
	if !ok {
		return nil, 0, failTok(tok, ErrTypeMismatch, "`.`/`->` operand is not a struct or union")
	}
	if !rec.IsDefined {
		return nil, 0, failTok(tok, ErrIncompleteType, "member access on an incomplete struct/union")
	}
	typ, offset, ok := rec.Find(member.Value.Bytes)
	if !ok {
		return nil, 0, failTok(member, ErrUnknownName, "no member named %q in this struct/union", member.Value.Bytes)
	}
	return typ, offset, nil
}

/*
 * Primary expressions
 */

func (p *Parser) parsePrimaryExpression() (Node, error) {
	tok := p.cur()

	switch tok.Kind {
	case TokNumber:
		return p.parseNumberLiteral()

	case TokCharacter:
		if _, err := p.next(); err != nil {
			return nil, err
		}
		n := &CharExpr{base: newBase(tok), Value: tok.Value.Bytes[0]}
		n.SetNodeType(NewBaseType(BaseChar))
		return n, nil

	case TokString:
		return p.parseStringLiteral()

	case TokAlphanumeric:
		return p.parseIdentifierOrBuiltin()

	case TokPunctuation:
		if tok.Value.Bytes == "(" {
			if _, err := p.next(); err != nil {
				return nil, err
			}
			inner, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			return inner, nil
		}
	}

	return nil, failTok(tok, ErrExpectedToken, "expected an expression, got %q", tok.String())
}

func (p *Parser) parseIdentifierOrBuiltin() (Node, error) {
	tok := p.cur()
	name := tok.Value.Bytes

	switch name {
	case "__func__":
		if _, err := p.next(); err != nil {
			return nil, err
		}
		n := &BuiltinExpr{base: newBase(tok), Kind: BuiltinFunc}
		n.SetNodeType(NewPointerType(NewBaseType(BaseChar).WithQual(Qualifiers{Const: true})))
		return n, nil

	case "__builtin_va_start", "__builtin_va_arg", "__builtin_va_end":
		return p.parseVaBuiltin()
	}

	sym := p.c.Scopes.FindSymbol(name, true)
	if sym == nil {
		return nil, failTok(tok, ErrUnknownName, "%q is not declared", name)
	}
	if _, err := p.next(); err != nil {
		return nil, err
	}
	n := &VariableExpr{base: newBase(tok), Sym: sym}
	n.SetNodeType(sym.Type)
	return n, nil
}

func (p *Parser) parseVaBuiltin() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	var kind BuiltinKind
	switch tok.Value.Bytes {
	case "__builtin_va_start":
		kind = BuiltinVaStart
	case "__builtin_va_arg":
		kind = BuiltinVaArg
	case "__builtin_va_end":
		kind = BuiltinVaEnd
	}

	args, err := p.parseArgumentList()
	if err != nil {
		return nil, err
	}

	n := &BuiltinExpr{base: newBase(tok), Kind: kind, Args: args}
	if kind == BuiltinVaArg {
		if len(args) != 2 {
			return nil, failTok(tok, ErrArityMismatch, "__builtin_va_arg takes exactly 2 arguments")
		}
		n.ArgType = args[1].NodeType()
		n.SetNodeType(n.ArgType)
	} else {
		n.SetNodeType(NewBaseType(BaseVoid))
	}
	return n, nil
}

func (p *Parser) parseStringLiteral() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	bytes := tok.Value.Bytes
	for p.cur().Kind == TokString {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		bytes += t.Value.Bytes
	}
	label := p.c.NewStringLabel(bytes)
	n := &StringExpr{base: newBase(tok), Bytes: bytes, Label: label}
	arr, err := NewArrayType(NewBaseType(BaseChar), len(bytes)+1)
	if err != nil {
		return nil, err
	}
	n.SetNodeType(arr)
	return n, nil
}

// parseNumberLiteral classifies a raw alphanumeric number token into a
// value and type, applying spec.md §4.5's suffix/magnitude table: no
// suffix and fits signed int -> int, else (octal/hex only) unsigned
// int if it fits 32 bits, else long long, else unsigned long long;
// `l`/`L` gives long while the value fits signed int and otherwise
// follows the same order; `ll`/`LL` gives long long unless the value
// exceeds the signed 64-bit range; `u`/`U` makes the chosen type
// unsigned. A `.` or a decimal exponent makes a floating literal,
// typed float by an `f`/`F` suffix (spec.md §4.1 defers this
// classification to parse time, unlike onramp's lexer which tags it
// immediately).
func (p *Parser) parseNumberLiteral() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	text := tok.Value.Bytes

	if strings.Contains(text, ".") || hasFloatExponent(text) {
		return p.parseFloatLiteral(tok, text)
	}

	mantissa, suffix, base := splitNumberSuffix(text)
	isFloatSuffix := suffix == "f" || suffix == "F"
	if isFloatSuffix {
		return p.parseFloatLiteral(tok, mantissa)
	}

	value, err := strconv.ParseUint(mantissa, base, 64)
	if err != nil {
		return nil, failTok(tok, ErrMalformedNumber, "invalid numeric literal %q", text)
	}

	forceUnsigned := strings.ContainsAny(suffix, "uU")
	longCount := strings.Count(strings.ToLower(suffix), "l")
	isOctalOrHex := base != 10

	var kind BaseKind
	switch {
	case longCount >= 2 && value <= 0x7fffffffffffffff:
		kind = BaseSignedLongLong
	case longCount == 1 && value <= 0x7fffffff:
		kind = BaseSignedLong
	case !forceUnsigned && value <= 0x7fffffff:
		kind = BaseSignedInt
	case (!forceUnsigned && isOctalOrHex && value <= 0xffffffff) || (forceUnsigned && value <= 0xffffffff):
		kind = BaseUnsignedInt
	case !forceUnsigned && value <= 0x7fffffffffffffff:
		// no `u`, too big for int (and, for octal/hex, for unsigned
		// int): this dialect collapses long into int, so the next
		// candidate is long long.
		kind = BaseSignedLongLong
	default:
		kind = BaseUnsignedLongLong
		if !forceUnsigned && !isOctalOrHex && p.c.Options.WarningEnabled(WarnImplicitlyUnsignedLiteral) {
			p.c.warn(warn(tok.Location(), ErrMalformedNumber, "this decimal constant is implicitly unsigned because it does not fit in a signed long long"))
		}
	}
	if forceUnsigned {
		kind = unsignedVariant(kind)
	}

	n := &NumberExpr{base: newBase(tok), Value: value, Signed: !IsUnsigned(NewBaseType(kind))}
	n.SetNodeType(NewBaseType(kind))
	return n, nil
}

func unsignedVariant(k BaseKind) BaseKind {
	switch k {
	case BaseSignedInt:
		return BaseUnsignedInt
	case BaseSignedLong:
		return BaseUnsignedLong
	case BaseSignedLongLong:
		return BaseUnsignedLongLong
	default:
		return k
	}
}

// splitNumberSuffix separates an integer literal's digits from its
// trailing u/U/l/L suffix letters and determines its base from any
// 0x/0 prefix, returning digits in a form strconv.ParseUint(base=0-ish)
// accepts.
func splitNumberSuffix(text string) (mantissa, suffix string, base int) {
	i := len(text)
	for i > 0 && isSuffixLetter(text[i-1]) {
		i--
	}
	mantissa, suffix = text[:i], text[i:]

	switch {
	case len(mantissa) > 1 && (mantissa[1] == 'x' || mantissa[1] == 'X'):
		return mantissa[2:], suffix, 16
	case len(mantissa) > 1 && mantissa[0] == '0':
		return mantissa[1:], suffix, 8
	default:
		return mantissa, suffix, 10
	}
}

func isSuffixLetter(b byte) bool {
	switch b {
	case 'u', 'U', 'l', 'L':
		return true
	}
	return false
}

func hasFloatExponent(text string) bool {
	if len(text) > 1 && (text[1] == 'x' || text[1] == 'X') {
		return false // 'e'/'E' are hex digits here, not an exponent
	}
	for i, c := range text {
		if (c == 'e' || c == 'E') && i > 0 {
			return true
		}
	}
	return false
}

func (p *Parser) parseFloatLiteral(tok *Token, text string) (Node, error) {
	mantissa := text
	kind := BaseDouble
	if n := len(mantissa); n > 0 {
		switch mantissa[n-1] {
		case 'f', 'F':
			kind = BaseFloat
			mantissa = mantissa[:n-1]
		case 'l', 'L':
			kind = BaseLongDouble
			mantissa = mantissa[:n-1]
		}
	}
	f, err := strconv.ParseFloat(mantissa, 64)
	if err != nil {
		return nil, failTok(tok, ErrMalformedNumber, "invalid floating literal %q", text)
	}
	// NumberExpr's single Value field carries every numeric literal
	// uniformly; a floating literal stashes its IEEE-754 double bit
	// pattern here, and the code generator reinterprets it per the
	// node's BaseKind.
	n := &NumberExpr{base: newBase(tok), Value: math.Float64bits(f), Signed: true}
	n.SetNodeType(NewBaseType(kind))
	return n, nil
}
