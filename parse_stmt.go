package occ

// parseCompoundStatement parses a brace-enclosed block, pushing a new
// scope for the lifetime of its declarations and statements (spec.md
// §4.5). Declarations and statements interleave freely, matching C99+
// semantics rather than requiring declarations first.
func (p *Parser) parseCompoundStatement() (*CompoundStmt, error) {
	open, err := p.expect("{")
	if err != nil {
		return nil, err
	}
	p.c.Scopes.Push()
	defer p.c.Scopes.Pop()

	n := &CompoundStmt{base: newBase(open)}
	for !p.is("}") {
		item, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		n.Items = append(n.Items, item...)
	}
	if _, err := p.next(); err != nil {
		return nil, err
	}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

// parseBlockItem parses one declaration (possibly with multiple
// comma-separated declarators, each becoming its own item) or one
// statement.
func (p *Parser) parseBlockItem() ([]Node, error) {
	decls, ok, err := p.parseDeclarationOrNil(true)
	if err != nil {
		return nil, err
	}
	if ok {
		return decls, nil
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return []Node{stmt}, nil
}

func (p *Parser) parseStatement() (Node, error) {
	tok := p.cur()

	if tok.Kind == TokAlphanumeric {
		switch tok.Value.Bytes {
		case "if":
			return p.parseIfStatement()
		case "while":
			return p.parseWhileStatement()
		case "do":
			return p.parseDoWhileStatement()
		case "for":
			return p.parseForStatement()
		case "switch":
			return p.parseSwitchStatement()
		case "return":
			return p.parseReturnStatement()
		case "goto":
			return p.parseGotoStatement()
		case "break":
			return p.parseBreakStatement()
		case "continue":
			return p.parseContinueStatement()
		case "case", "default":
			return nil, failTok(tok, ErrUnsupportedFeature, "`%s` may only appear inside a `switch`", tok.Value.Bytes)
		}

		if !keywords[tok.Value.Bytes] && p.peekIsColon() {
			return p.parseLabeledStatement()
		}
	}

	if p.is("{") {
		return p.parseCompoundStatement()
	}
	if p.is(";") {
		return p.parseEmptyStatement()
	}

	return p.parseExpressionStatement()
}

// peekIsColon reports whether the token after the current identifier
// is `:`, the lookahead that disambiguates a label (`foo:`) from an
// expression statement beginning with an identifier.
func (p *Parser) peekIsColon() bool {
	name, err := p.next()
	if err != nil {
		return false
	}
	result := p.is(":")
	p.c.Lexer.PushBack(name)
	return result
}

func (p *Parser) parseLabeledStatement() (Node, error) {
	label, err := p.next()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	n := &LabeledStmt{base: newBase(label), Label: label, Stmt: stmt}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

func (p *Parser) parseEmptyStatement() (Node, error) {
	tok, err := p.expect(";")
	if err != nil {
		return nil, err
	}
	n := &EmptyStmt{base: newBase(tok)}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

func (p *Parser) parseExpressionStatement() (Node, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	n := &ExprStmt{base: newBase(expr.Token()), Expr: expr}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

func (p *Parser) parseIfStatement() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !IsScalar(cond.NodeType()) {
		return nil, failTok(cond.Token(), ErrTypeMismatch, "`if` condition must have scalar type")
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var els Node
	if ok, err := p.accept("else"); err != nil {
		return nil, err
	} else if ok {
		els, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	n := &IfStmt{base: newBase(tok), Cond: cond, Then: then, Else: els}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

func (p *Parser) parseWhileStatement() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	n := &WhileStmt{base: newBase(tok), Cond: cond, Body: body}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

func (p *Parser) parseDoWhileStatement() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("while"); err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	n := &DoWhileStmt{base: newBase(tok), Body: body, Cond: cond}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

func (p *Parser) parseForStatement() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	p.c.Scopes.Push()
	defer p.c.Scopes.Pop()

	var init Node
	if !p.is(";") {
		decls, ok, err := p.parseDeclarationOrNil(true)
		if err != nil {
			return nil, err
		}
		if ok {
			block := &CompoundStmt{base: newBase(tok), Items: decls}
			block.SetNodeType(NewBaseType(BaseVoid))
			init = block
		} else {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(";"); err != nil {
				return nil, err
			}
			es := &ExprStmt{base: newBase(expr.Token()), Expr: expr}
			es.SetNodeType(NewBaseType(BaseVoid))
			init = es
		}
	} else {
		if _, err := p.next(); err != nil {
			return nil, err
		}
	}

	var cond Node
	if !p.is(";") {
		cond, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	var post Node
	if !p.is(")") {
		post, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	n := &ForStmt{base: newBase(tok), Init: init, Cond: cond, Post: post, Body: body}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

func (p *Parser) parseSwitchStatement() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	tag, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !IsInteger(tag.NodeType()) {
		return nil, failTok(tag.Token(), ErrTypeMismatch, "`switch` tag must have integer type")
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}

	switchType := Promote(tag.NodeType())

	open, err := p.expect("{")
	if err != nil {
		return nil, err
	}
	p.c.Scopes.Push()
	defer p.c.Scopes.Pop()

	body := &CompoundStmt{base: newBase(open)}
	body.SetNodeType(NewBaseType(BaseVoid))

	var cases []*CaseLabel
	seenDefault := false
	seenValues := map[uint64]bool{}

	for !p.is("}") {
		if p.is("case") {
			caseTok, err := p.next()
			if err != nil {
				return nil, err
			}
			expr, err := p.parseConstantExpression()
			if err != nil {
				return nil, err
			}
			v, ok := constantEvalInt(expr)
			if !ok {
				return nil, failTok(expr.Token(), ErrConstantExpressionRequired, "`case` label must be a constant expression")
			}
			value := uint64(truncateToType(v, switchType))
			if seenValues[value] {
				return nil, failTok(caseTok, ErrDuplicateSymbol, "duplicate `case` value in this `switch`")
			}
			seenValues[value] = true
			if _, err := p.expect(":"); err != nil {
				return nil, err
			}
			cases = append(cases, &CaseLabel{Tok: caseTok, Value: value, BodyOffset: len(body.Items)})
			continue
		}
		if p.is("default") {
			defTok, err := p.next()
			if err != nil {
				return nil, err
			}
			if seenDefault {
				return nil, failTok(defTok, ErrDuplicateSymbol, "a `switch` may only have one `default` label")
			}
			seenDefault = true
			if _, err := p.expect(":"); err != nil {
				return nil, err
			}
			cases = append(cases, &CaseLabel{Tok: defTok, IsDefault: true, BodyOffset: len(body.Items)})
			continue
		}
		item, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		body.Items = append(body.Items, item...)
	}
	if _, err := p.next(); err != nil {
		return nil, err
	}

	n := &SwitchStmt{base: newBase(tok), Tag: tag, Body: body, Cases: cases}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

func (p *Parser) parseReturnStatement() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	var value Node
	if !p.is(";") {
		value, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}

	if p.c.CurrentFunction != nil {
		retType := p.c.CurrentFunction.Type.Return
		if IsVoid(retType) && value != nil {
			return nil, failTok(tok, ErrTypeMismatch, "cannot return a value from a function returning void")
		}
		if !IsVoid(retType) && value == nil {
			return nil, failTok(tok, ErrTypeMismatch, "must return a value from a function not returning void")
		}
	}

	n := &ReturnStmt{base: newBase(tok), Value: value}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

func (p *Parser) parseGotoStatement() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	label, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	n := &GotoStmt{base: newBase(tok), Label: label}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

func (p *Parser) parseBreakStatement() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	n := &BreakStmt{base: newBase(tok)}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

func (p *Parser) parseContinueStatement() (Node, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	n := &ContinueStmt{base: newBase(tok)}
	n.SetNodeType(NewBaseType(BaseVoid))
	return n, nil
}

// IsScalar reports whether t is an arithmetic or pointer type, the
// types allowed as a condition expression (spec.md §4.5).
func IsScalar(t Type) bool {
	if IsArithmetic(t) {
		return true
	}
	_, ok := IsPointer(t)
	return ok
}
