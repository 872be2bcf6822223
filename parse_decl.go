package occ

import (
	"fmt"
	"math"
)

// typeSpecifier flags accumulate the primitive type-specifier keywords
// of a declaration's specifier sequence (spec.md §4.4), mirroring
// parse_decl.c's TYPE_SPECIFIER_* bitmask.
type typeSpecifier int

const (
	specVoid typeSpecifier = 1 << iota
	specChar
	specShort
	specInt
	specLong
	specLongLong
	specSigned
	specUnsigned
	specRecord
	specEnum
	specTypedef
	specBool
	specFloat
	specDouble
)

type storageSpecifier int

const (
	storageNone storageSpecifier = iota
	storageTypedef
	storageExtern
	storageStatic
	storageAuto
	storageRegister
)

type functionSpecifier int

const (
	fnInline functionSpecifier = 1 << iota
	fnNoreturn
)

// specifiers accumulates a declaration's specifier sequence, the part
// of a declaration before its comma-separated declarators (spec.md
// §4.4). userType is set instead of typeSpec for struct/union/enum/
// typedef names, which carry a concrete Type rather than a primitive
// combination.
type specifiers struct {
	storage  storageSpecifier
	typeSpec typeSpecifier
	qual     Qualifiers
	fnSpec   functionSpecifier
	userType Type
}

// parseDeclarationSpecifiers accumulates keywords, struct/union/enum
// definitions and typedef names into s, stopping at the first token
// that cannot extend the specifier sequence. Returns false (with no
// tokens consumed) if nothing matched at all, the signal block-scope
// callers use to fall back to statement parsing.
func (p *Parser) parseDeclarationSpecifiers(s *specifiers) (bool, error) {
	found := false
	for p.cur().Kind == TokAlphanumeric {
		ok, err := p.tryParseSpecifierKeyword(s)
		if err != nil {
			return false, err
		}
		if ok {
			found = true
			continue
		}

		if p.is("struct") || p.is("union") {
			found = true
			if err := p.parseRecord(s); err != nil {
				return false, err
			}
			continue
		}
		if p.is("enum") {
			found = true
			if err := p.parseEnum(s); err != nil {
				return false, err
			}
			continue
		}

		if s.typeSpec == 0 && s.userType == nil && !keywords[p.cur().Value.Bytes] {
			if sym := p.c.Scopes.FindTypedef(p.cur().Value.Bytes, true); sym != nil {
				found = true
				s.typeSpec |= specTypedef
				s.userType = sym.TypedefType
				if _, err := p.next(); err != nil {
					return false, err
				}
				continue
			}
		}

		break
	}
	return found, nil
}

func (p *Parser) checkTypeSpec(s *specifiers, tok *Token) error {
	if s.userType != nil {
		return failTok(tok, ErrInvalidTypeSpecifierCombo, "invalid combination of type specifiers")
	}
	_, err := p.specifiersConvert(s, tok)
	return err
}

func (p *Parser) tryParseSpecifierKeyword(s *specifiers) (bool, error) {
	storages := []struct {
		kw  string
		val storageSpecifier
	}{
		{"typedef", storageTypedef}, {"extern", storageExtern}, {"static", storageStatic},
		{"auto", storageAuto}, {"register", storageRegister},
	}
	for _, e := range storages {
		if p.is(e.kw) {
			if s.storage != storageNone {
				return false, failTok(p.cur(), ErrInvalidTypeSpecifierCombo, "at most one storage specifier (besides `_Thread_local`) is allowed for a declaration")
			}
			s.storage = e.val
			_, err := p.next()
			return true, err
		}
	}
	if p.is("_Thread_local") {
		return false, failTok(p.cur(), ErrUnsupportedFeature, "_Thread_local is not supported")
	}

	simple := []struct {
		kw  string
		bit typeSpecifier
	}{
		{"void", specVoid}, {"char", specChar}, {"short", specShort}, {"int", specInt},
		{"signed", specSigned}, {"unsigned", specUnsigned}, {"float", specFloat},
		{"double", specDouble}, {"_Bool", specBool}, {"bool", specBool},
	}
	for _, e := range simple {
		if p.is(e.kw) {
			if s.typeSpec&e.bit != 0 {
				return false, failTok(p.cur(), ErrRedundantSpecifier, "redundant type specifier: %s", e.kw)
			}
			s.typeSpec |= e.bit
			if err := p.checkTypeSpec(s, p.cur()); err != nil {
				return false, err
			}
			_, err := p.next()
			return true, err
		}
	}

	if ok, err := p.tryParseTypeQualifier(&s.qual); ok || err != nil {
		return ok, err
	}

	if p.is("inline") {
		s.fnSpec |= fnInline
		_, err := p.next()
		return true, err
	}
	if p.is("_Noreturn") {
		s.fnSpec |= fnNoreturn
		_, err := p.next()
		return true, err
	}

	if p.is("long") {
		if s.typeSpec&specLongLong != 0 {
			return false, failTok(p.cur(), ErrRedundantSpecifier, "`long long long` is invalid")
		}
		if s.typeSpec&specLong != 0 {
			s.typeSpec = s.typeSpec&^specLong | specLongLong
		} else {
			s.typeSpec |= specLong
		}
		if err := p.checkTypeSpec(s, p.cur()); err != nil {
			return false, err
		}
		_, err := p.next()
		return true, err
	}

	if p.is("_Atomic") {
		return false, failTok(p.cur(), ErrUnsupportedFeature, "_Atomic is not supported")
	}
	if p.is("_Alignas") {
		return false, failTok(p.cur(), ErrUnsupportedFeature, "_Alignas is not supported")
	}

	return false, nil
}

func (p *Parser) tryParseTypeQualifier(q *Qualifiers) (bool, error) {
	switch {
	case p.is("const"):
		q.Const = true
	case p.is("volatile"):
		q.Volatile = true
	case p.is("restrict"):
		q.Restrict = true
	default:
		return false, nil
	}
	_, err := p.next()
	return true, err
}

func (p *Parser) parseTypeQualifiers(q *Qualifiers) error {
	for {
		ok, err := p.tryParseTypeQualifier(q)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// specifiersConvert maps an accumulated primitive type-specifier
// combination to a BaseKind, following the table in C17 6.7.2.2
// (parse_decl.c's specifiers_convert).
func (p *Parser) specifiersConvert(s *specifiers, tok *Token) (BaseKind, error) {
	switch s.typeSpec {
	case 0:
		if p.c.Options.WarningEnabled(WarnImplicitInt) {
			p.c.warn(warn(tok.Location(), ErrInvalidTypeSpecifierCombo, "implicit int: no type specifiers for this declaration"))
		}
		return BaseSignedInt, nil
	case specVoid:
		return BaseVoid, nil
	case specChar:
		return BaseChar, nil
	case specSigned | specChar:
		return BaseSignedChar, nil
	case specUnsigned | specChar:
		return BaseUnsignedChar, nil
	case specShort, specSigned | specShort, specShort | specInt, specSigned | specShort | specInt:
		return BaseSignedShort, nil
	case specUnsigned | specShort, specUnsigned | specShort | specInt:
		return BaseUnsignedShort, nil
	case specInt, specSigned, specSigned | specInt:
		return BaseSignedInt, nil
	case specUnsigned, specUnsigned | specInt:
		return BaseUnsignedInt, nil
	case specLong, specSigned | specLong, specLong | specInt, specSigned | specLong | specInt:
		return BaseSignedLong, nil
	case specUnsigned | specLong, specUnsigned | specLong | specInt:
		return BaseUnsignedLong, nil
	case specLongLong, specSigned | specLongLong, specLongLong | specInt, specSigned | specLongLong | specInt:
		return BaseSignedLongLong, nil
	case specUnsigned | specLongLong, specUnsigned | specLongLong | specInt:
		return BaseUnsignedLongLong, nil
	case specFloat:
		return BaseFloat, nil
	case specDouble:
		return BaseDouble, nil
	case specLong | specDouble:
		return BaseLongDouble, nil
	case specBool:
		return BaseBool, nil
	}
	return 0, failTok(tok, ErrInvalidTypeSpecifierCombo, "invalid combination of type specifiers")
}

func (p *Parser) specifiersMakeType(s *specifiers) (Type, error) {
	var typ Type
	if s.userType != nil {
		switch s.typeSpec {
		case specTypedef, specEnum, specRecord:
			typ = s.userType
		default:
			return nil, failTok(p.cur(), ErrInvalidTypeSpecifierCombo, "unsupported combination of type specifiers")
		}
	} else {
		kind, err := p.specifiersConvert(s, p.cur())
		if err != nil {
			return nil, err
		}
		typ = NewBaseType(kind)
	}
	return typ.WithQual(s.qual), nil
}

/*
 * Records
 */

func (p *Parser) parseRecord(s *specifiers) error {
	if s.typeSpec&specRecord != 0 {
		return failTok(p.cur(), ErrRedundantSpecifier, "redundant struct/union specifier")
	}
	s.typeSpec |= specRecord
	isStruct := p.is("struct")
	if _, err := p.next(); err != nil {
		return err
	}

	var tag *Token
	if p.cur().Kind == TokAlphanumeric && !keywords[p.cur().Value.Bytes] {
		t, err := p.next()
		if err != nil {
			return err
		}
		tag = t
	} else if !p.is("{") {
		kw := "union"
		if isStruct {
			kw = "struct"
		}
		return failTok(p.cur(), ErrExpectedToken, "expected a tag or `{` after `%s`", kw)
	}

	isDefinition := p.is("{")
	isForwardDecl := p.is(";") && s.qual == (Qualifiers{}) && s.storage == storageNone
	findRecursive := !isDefinition && !isForwardDecl

	var rec *Record
	if tag != nil {
		existingRec, existingEnum := p.c.Scopes.FindTag(tag.Value.Bytes, findRecursive)
		if existingRec != nil || existingEnum != nil {
			if existingRec == nil || existingRec.IsStruct != isStruct {
				kw := "union"
				if isStruct {
					kw = "struct"
				}
				return failTok(tag, ErrKindMismatch, "this tag cannot be referred to as `%s`", kw)
			}
			rec = existingRec
		}
	}
	if rec == nil {
		rec = NewRecord(tag, isStruct)
		if tag != nil {
			p.c.Scopes.DeclareRecordTag(tag.Value.Bytes, rec)
		}
	}
	s.userType = NewRecordType(rec)

	if p.is("{") {
		if rec.IsDefined {
			return failTok(p.cur(), ErrDuplicateSymbol, "duplicate definition of struct/union")
		}
		if _, err := p.next(); err != nil {
			return err
		}
		for !p.is("}") {
			if err := p.parseRecordMember(rec); err != nil {
				return err
			}
		}
		if _, err := p.next(); err != nil {
			return err
		}
		if err := rec.Finish(); err != nil {
			return err
		}
		if last := rec.Members[len(rec.Members)-1]; IsFlexibleArray(last.Type) &&
			last.Name != nil && p.c.Options.WarningEnabled(WarnZeroLengthArray) {
			p.c.warn(warn(last.Name.Location(), ErrInvalidInitializer, "a zero-length array as a flexible array member is a GNU extension"))
		}
	}
	return nil
}

func (p *Parser) parseRecordMember(rec *Record) error {
	errTok := p.cur()

	var s specifiers
	found, err := p.parseDeclarationSpecifiers(&s)
	if err != nil {
		return err
	}
	if !found {
		return failTok(p.cur(), ErrExpectedDeclarator, "expected a declaration")
	}
	baseType, err := p.specifiersMakeType(&s)
	if err != nil {
		return err
	}
	if s.storage != storageNone {
		return failTok(errTok, ErrInvalidTypeSpecifierCombo, "storage specifiers are not allowed in a struct or union member declaration")
	}
	if s.fnSpec != 0 {
		return failTok(errTok, ErrInvalidTypeSpecifierCombo, "function specifiers are not allowed in a struct or union member declaration")
	}

	for {
		typ := baseType
		slot := typeSlot(&typ)
		name, _, err := p.parseDeclarator(slot, false)
		if err != nil {
			return err
		}
		typ = *slot

		if name == nil {
			if memberRec, ok := IsRecord(typ); ok {
				if memberRec.Tag != nil && p.c.Options.WarningEnabled(WarnAnonymousTags) {
					p.c.warn(warn(errTok.Location(), ErrInvalidInitializer, "anonymous struct/union members of a tagged struct/union type is a Microsoft/Plan9 extension"))
				}
			} else {
				return failTok(errTok, ErrExpectedDeclarator, "this struct/union member needs a name")
			}
		}

		if err := rec.AddMember(name, typ); err != nil {
			return err
		}

		if p.is("=") {
			return failTok(p.cur(), ErrInvalidInitializer, "an initializer is not allowed in a struct or union member declaration")
		}
		if ok, err := p.accept(","); err != nil {
			return err
		} else if ok {
			continue
		}
		if _, err := p.expect(";"); err != nil {
			return err
		}
		break
	}
	return nil
}

/*
 * Enums
 */

func (p *Parser) parseEnum(s *specifiers) error {
	if s.typeSpec&specEnum != 0 {
		return failTok(p.cur(), ErrRedundantSpecifier, "redundant enum specifier (are you missing `;` between these enums?)")
	}
	s.typeSpec |= specEnum
	keyword, err := p.next()
	if err != nil {
		return err
	}

	var tag *Token
	if p.cur().Kind == TokAlphanumeric && !keywords[p.cur().Value.Bytes] {
		t, err := p.next()
		if err != nil {
			return err
		}
		tag = t
	}

	if ok, err := p.accept("{"); err != nil {
		return err
	} else if !ok {
		if tag == nil {
			return failTok(keyword, ErrExpectedToken, "expected `{` or a tag name after `enum`")
		}
		_, en := p.c.Scopes.FindTag(tag.Value.Bytes, true)
		if en == nil {
			if p.is(";") {
				return failTok(tag, ErrIncompleteType, "forward declarations of enums are not allowed")
			}
			return failTok(tag, ErrUnknownName, "an enum with this tag has not been defined")
		}
		s.userType = NewEnumType(en)
		return nil
	}

	if tag != nil {
		existingRec, existingEnum := p.c.Scopes.FindTagInCurrentScope(tag.Value.Bytes)
		if existingRec != nil || existingEnum != nil {
			return failTok(tag, ErrDuplicateSymbol, "a struct, union or enum with this tag is already defined in this scope")
		}
	}

	en := NewEnum(tag)
	s.userType = NewEnumType(en)
	if tag != nil {
		p.c.Scopes.DeclareEnumTag(tag.Value.Bytes, en)
	}

	value := uint64(0)
	found := false
	for !p.is("}") {
		if p.cur().Kind != TokAlphanumeric {
			return failTok(p.cur(), ErrExpectedDeclarator, "expected an identifier for this enum value")
		}
		name, err := p.next()
		if err != nil {
			return err
		}

		if ok, err := p.accept("="); err != nil {
			return err
		} else if ok {
			expr, err := p.parseConstantExpression()
			if err != nil {
				return err
			}
			n, ok := constantEvalInt(expr)
			if !ok {
				return failTok(expr.Token(), ErrConstantExpressionRequired, "enum value must be a constant expression")
			}
			value = uint64(int32(n))
		}

		sym := &Symbol{Name: name, Kind: SymConstant, Type: s.userType, IsDefined: true, ConstValue: value, ConstIsSigned: true}
		p.c.Scopes.DeclareSymbol(name.Value.Bytes, sym)
		en.Constants = append(en.Constants, sym)
		value++
		found = true

		if p.is("}") {
			break
		}
		if _, err := p.expect(","); err != nil {
			return err
		}
	}
	if !found {
		return failTok(p.cur(), ErrExpectedDeclarator, "an empty enum is not allowed")
	}
	en.IsDefined = true
	_, err = p.next()
	return err
}

/*
 * Declarators
 *
 * typeSlot is the address of a Type-valued field, the idiomatic stand-in
 * for parse_decl.c's type_t** threading: pointers, arrays and function
 * types all expose their "points to" field (Ref or Return) so a
 * declarator can be built up by repeatedly splicing a new wrapper type
 * in at the current slot and advancing the slot into it.
 */

type typeSlot = *Type

func refSlot(t Type) typeSlot {
	switch tt := t.(type) {
	case *PointerType:
		return &tt.Ref
	case *ArrayType:
		return &tt.Ref
	case *IndeterminateType:
		return &tt.Ref
	case *FunctionType:
		return &tt.Return
	default:
		return nil
	}
}

// parseDeclarator collects leading pointers then parses a direct
// declarator. When abstract is true, no identifier may be consumed
// (type-name context: casts, sizeof(type), abstract parameters).
func (p *Parser) parseDeclarator(slot typeSlot, abstract bool) (*Token, bool, error) {
	for {
		ok, err := p.accept("*")
		if err != nil {
			return nil, false, err
		}
		if !ok {
			break
		}
		var q Qualifiers
		if err := p.parseTypeQualifiers(&q); err != nil {
			return nil, false, err
		}
		*slot = &PointerType{Ref: *slot, q: q}
	}
	return p.parseDirectDeclarator(slot, abstract)
}

func (p *Parser) parseDirectDeclarator(slot typeSlot, abstract bool) (*Token, bool, error) {
	var name *Token
	found := false

	if ok, err := p.accept("("); err != nil {
		return nil, false, err
	} else if ok {
		found = true
		temp := *slot
		n, _, err := p.parseDeclarator(slot, abstract)
		if err != nil {
			return nil, false, err
		}
		name = n
		if _, err := p.expect(")"); err != nil {
			return nil, false, err
		}
		for *slot != temp {
			slot = refSlot(*slot)
		}
	}

	if !abstract && !found {
		if p.cur().Kind == TokAlphanumeric && !keywords[p.cur().Value.Bytes] {
			t, err := p.next()
			if err != nil {
				return nil, false, err
			}
			name = t
			found = true
		}
	}

	brackets := slot
	for {
		if ok, err := p.accept("["); err != nil {
			return nil, false, err
		} else if ok {
			if ok2, err := p.accept("]"); err != nil {
				return nil, false, err
			} else if ok2 {
				arr := &IndeterminateType{Ref: *brackets}
				*brackets = arr
				brackets = &arr.Ref
			} else {
				expr, err := p.parseAssignmentExpression()
				if err != nil {
					return nil, false, err
				}
				n, ok := constantEvalInt(expr)
				if !ok {
					return nil, false, failTok(expr.Token(), ErrConstantExpressionRequired, "array length must be a constant expression")
				}
				arr, err := NewArrayType(*brackets, int(n))
				if err != nil {
					return nil, false, err
				}
				*brackets = arr
				brackets = &arr.Ref
				if _, err := p.expect("]"); err != nil {
					return nil, false, err
				}
			}
			found = true
			continue
		}

		if ok, err := p.accept("("); err != nil {
			return nil, false, err
		} else if ok {
			ft, err := p.parseFunctionArguments(*brackets)
			if err != nil {
				return nil, false, err
			}
			*brackets = ft
			brackets = &ft.Return
			if p.is("(") {
				return nil, false, failTok(p.cur(), ErrUnsupportedFeature, "a function cannot return a function")
			}
			found = true
			continue
		}

		break
	}

	return name, found, nil
}

func nameStr(name *Token) *Str {
	if name == nil {
		return nil
	}
	return name.Value
}

func (p *Parser) parseFunctionArguments(returnType Type) (*FunctionType, error) {
	p.c.Scopes.Push()

	var argTypes []Type
	var argNames []*Str
	variadic := false
	count := 0

	for {
		if ok, err := p.accept(")"); err != nil {
			return nil, err
		} else if ok {
			break
		}
		if count > 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
		}
		if ok, err := p.accept("..."); err != nil {
			return nil, err
		} else if ok {
			if count == 0 {
				return nil, failTok(p.cur(), ErrExpectedDeclarator, "at least one non-variadic argument is required before `...`")
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			variadic = true
			break
		}

		var s specifiers
		found, err := p.parseDeclarationSpecifiers(&s)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, failTok(p.cur(), ErrExpectedDeclarator, "expected a declaration specifier (a type) for this function parameter")
		}
		if s.storage != storageNone || s.fnSpec != 0 {
			return nil, failTok(p.cur(), ErrInvalidTypeSpecifierCombo, "storage and function specifiers are not allowed on function parameters")
		}

		typ, err := p.specifiersMakeType(&s)
		if err != nil {
			return nil, err
		}
		slot := typeSlot(&typ)
		name, declFound, err := p.parseDeclarator(slot, false)
		if err != nil {
			return nil, err
		}
		typ = *slot

		if !declFound && count == 0 && IsVoid(typ) && name == nil {
			if ok, err := p.accept(")"); err != nil {
				return nil, err
			} else if ok {
				break
			}
		}

		argTypes = append(argTypes, Decay(typ))
		argNames = append(argNames, nameStr(name))
		count++
	}

	ft := &FunctionType{Return: returnType, ArgTypes: argTypes, ArgNames: argNames, Variadic: variadic, Scope: p.c.Scopes.Current()}
	p.c.Scopes.Pop()
	return ft, nil
}

/*
 * asm name overrides (SPEC_FULL.md restoration: __asm__("name") lets a
 * declaration bind to an external symbol name other than its C name)
 */

func (p *Parser) parseAsmName(name *Token) (string, error) {
	isGNUAsm := p.is("asm")
	if !p.is("__asm__") && !isGNUAsm {
		return name.Value.Bytes, nil
	}
	if isGNUAsm && p.c.Options.WarningEnabled(WarnExtraKeywords) {
		p.c.warn(warn(p.cur().Location(), ErrUnsupportedFeature, "`asm` is a GNU extension; use `__asm__` or pass `-fgnu-extensions`"))
	}
	if _, err := p.next(); err != nil {
		return "", err
	}
	if _, err := p.expect("("); err != nil {
		return "", err
	}
	if p.cur().Kind != TokString {
		return "", failTok(p.cur(), ErrExpectedToken, "expected a string in this asm name declaration")
	}
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	asmName := tok.Value.Bytes
	for p.cur().Kind == TokString {
		t, err := p.next()
		if err != nil {
			return "", err
		}
		asmName += t.Value.Bytes
	}
	if _, err := p.expect(")"); err != nil {
		return "", err
	}
	return asmName, nil
}

func asmNameOverride(name *Token, asmName string) string {
	if asmName == name.Value.Bytes {
		return ""
	}
	return asmName
}

/*
 * Function declarations and definitions
 */

func (p *Parser) parseFunctionDeclaration(s *specifiers, ft *FunctionType, name *Token, asmName string, fileScope bool) error {
	sym := &Symbol{Name: name, AsmName: asmNameOverride(name, asmName), Kind: SymFunction, Type: ft}
	if s.storage == storageStatic {
		sym.Linkage = LinkageInternal
	} else {
		sym.Linkage = LinkageExternal
	}

	if existing := p.c.Scopes.FindSymbol(name.Value.Bytes, false); existing != nil {
		if !TypeEqualUnqual(existing.Type, ft) {
			return failTok(name, ErrTypeMismatch, "function redeclared with a different type")
		}
		sym.IsDefined = existing.IsDefined
	}
	p.c.Scopes.DeclareSymbol(name.Value.Bytes, sym)

	if !p.is("{") {
		_, err := p.expect(";")
		return err
	}
	if !fileScope {
		return failTok(p.cur(), ErrUnsupportedFeature, "function definitions can only appear at file scope")
	}
	return p.parseFunctionDefinition(sym, ft, name)
}

func (p *Parser) parseFunctionDefinition(sym *Symbol, ft *FunctionType, name *Token) error {
	sym.IsDefined = true

	p.c.Scopes.Push()
	defer p.c.Scopes.Pop()

	root := &FunctionDecl{base: newBase(name), Sym: sym}
	fn := NewFunction(sym, root)
	p.c.CurrentFunction = fn
	defer func() { p.c.CurrentFunction = nil }()

	for i, argType := range ft.ArgTypes {
		var paramName *Token
		if ft.ArgNames[i] != nil {
			paramName = &Token{Kind: TokAlphanumeric, Value: ft.ArgNames[i], Filename: name.Filename, Line: name.Line}
		}
		paramSym := &Symbol{Name: paramName, Kind: SymVariable, Type: argType, IsDefined: true}
		root.Params = append(root.Params, &ParamDecl{base: newBase(paramName), Sym: paramSym})
		if paramName != nil {
			p.c.Scopes.DeclareSymbol(paramName.Value.Bytes, paramSym)
		}
	}

	body, err := p.parseCompoundStatement()
	if err != nil {
		return err
	}
	root.Body = body

	if p.c.Options.DumpAST {
		DumpTree(root)
	}
	if p.c.Options.Optimize {
		OptimizeTree(root)
	}
	if err := GenerateFunction(p.c, fn); err != nil {
		return err
	}
	if p.c.Options.Optimize {
		OptimizeAsm(p.c, fn)
	}

	p.c.Program.Functions = append(p.c.Program.Functions, fn)
	return nil
}

/*
 * Variable declarations
 */

func (p *Parser) parseVariableDeclaration(inBlock bool, s *specifiers, typ Type, name *Token, asmName string) (*VarDecl, error) {
	if p.is("{") {
		return nil, failTok(p.cur(), ErrInvalidInitializer, "cannot initialize a variable with `{`")
	}

	var init Node
	if ok, err := p.accept("="); err != nil {
		return nil, err
	} else if ok {
		if s.storage == storageExtern {
			return nil, failTok(p.cur(), ErrInvalidInitializer, "cannot initialize a variable with `extern` storage specifier")
		}
		n, err := p.parseInitializer(typ)
		if err != nil {
			return nil, err
		}
		init = n
	}

	sym := &Symbol{Name: name, AsmName: asmNameOverride(name, asmName), Kind: SymVariable, Type: typ}

	var err error
	if inBlock {
		if s.storage == storageExtern {
			err = p.declareLocalExternVariable(sym)
		} else {
			err = p.declareLocalVariable(s, sym)
		}
	} else {
		err = p.declareGlobalVariable(s, sym, init != nil)
	}
	if err != nil {
		return nil, err
	}

	if init != nil {
		if arr, ok := IsArray(sym.Type); ok && arr.Count == IndeterminateCount {
			count, ok := initializerLength(init)
			if !ok {
				return nil, failTok(name, ErrInvalidInitializer, "invalid initializer for array of indeterminate length")
			}
			sized, err := NewArrayType(arr.Ref, count)
			if err != nil {
				return nil, err
			}
			sym.Type = sized
		}
	}

	// A block-scope `static` local has its own independent storage,
	// initialized once, laid out exactly like a file-scope global
	// (spec.md §4.4); only the name is block-scoped.
	if (!inBlock && init != nil && sym.IsDefined && sym.Linkage != LinkageNone) || (inBlock && s.storage == storageStatic) {
		data, relocs := lowerGlobalInit(sym.Type, init)
		p.c.Program.Globals = append(p.c.Program.Globals, &GlobalVar{Sym: sym, Init: data, Relocs: relocs})
	}

	if !inBlock {
		return nil, nil
	}
	return &VarDecl{base: newBase(name), Sym: sym, Init: init}, nil
}

func initializerLength(init Node) (int, bool) {
	switch e := init.(type) {
	case *InitListExpr:
		return len(e.Items), true
	case *StringExpr:
		return len(e.Bytes) + 1, true
	}
	return 0, false
}

// parseInitializer parses the right-hand side of a declarator's `=`,
// either a brace-enclosed initializer list (recursing element-by-
// element for arrays, member-by-member for records) or a single
// assignment-expression, the way parse_decl.c's declarator loop
// dispatches on whether the next token is `{`. Designators are not
// supported (InitListExpr's own doc comment already notes this
// dialect only implements positional lists).
func (p *Parser) parseInitializer(typ Type) (Node, error) {
	if !p.is("{") {
		expr, err := p.parseAssignmentExpression()
		if err != nil {
			return nil, err
		}
		return p.checkInitializerAssignable(typ, expr)
	}

	open, err := p.expect("{")
	if err != nil {
		return nil, err
	}

	var elemType Type
	switch tt := typ.(type) {
	case *ArrayType:
		elemType = tt.Ref
	case *BaseType:
		if tt.Kind != BaseRecord {
			return nil, failTok(open, ErrInvalidInitializer, "braced initializer used for non-aggregate type")
		}
	default:
		return nil, failTok(open, ErrInvalidInitializer, "braced initializer used for non-aggregate type")
	}

	list := &InitListExpr{base: newBase(open)}
	list.SetNodeType(typ)

	memberIndex := 0
	for !p.is("}") {
		var want Type
		if elemType != nil {
			want = elemType
		} else {
			rec, _ := IsRecord(typ)
			if memberIndex >= len(rec.Members) {
				return nil, failTok(p.cur(), ErrInvalidInitializer, "too many initializers for %s", recordName(rec))
			}
			want = rec.Members[memberIndex].Type
			memberIndex++
		}

		item, err := p.parseInitializer(want)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)

		if ok, err := p.accept(","); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return list, nil
}

// checkInitializerAssignable inserts an implicit CastExpr when a
// scalar initializer's type differs from typ but both are arithmetic
// (the initializer-time analogue of assignment conversion, C17
// 6.7.9p11). Every other initializer is returned unchanged: no
// initializer is rejected here, even one whose type cannot convert to
// typ.
func (p *Parser) checkInitializerAssignable(typ Type, expr Node) (Node, error) {
	et := expr.NodeType()
	if et == nil || TypeEqualUnqual(et, typ) {
		return expr, nil
	}
	if _, isStr := expr.(*StringExpr); isStr {
		if _, ok := IsArray(typ); ok {
			return expr, nil
		}
		if _, ok := IsPointer(typ); ok {
			return expr, nil
		}
	}
	if IsArithmetic(typ) && IsArithmetic(et) {
		c := &CastExpr{base: newBase(expr.Token()), Target: typ, Operand: expr}
		c.SetNodeType(typ)
		return c, nil
	}
	if _, ok := IsPointer(typ); ok {
		if IsNullPointerConstant(expr) {
			return expr, nil
		}
		if _, ok := IsPointer(et); ok {
			return expr, nil
		}
		if _, ok := IsArray(et); ok {
			return expr, nil
		}
		if _, ok := IsFunction(et); ok {
			return expr, nil
		}
	}
	return expr, nil
}

// lowerGlobalInit renders a file-scope object's initializer into the
// raw byte image the emitter writes as a data directive ahead of
// function bodies (SPEC_FULL.md §4.8, restoring global.c's behaviour
// that the distilled spec.md left as a narrative "emits a data
// blob"). init == nil means a tentative definition with no
// initializer anywhere in the translation unit: the result is simply
// Size(typ) zero bytes. Addresses that can't be known until the
// emitter assigns final label text (address-of a global, a function,
// or a string literal) are recorded as relocations against the byte
// offset rather than resolved here.
func lowerGlobalInit(typ Type, init Node) ([]byte, []GlobalReloc) {
	buf := make([]byte, Size(typ))
	var relocs []GlobalReloc
	if init != nil {
		writeInitInto(buf, 0, typ, init, &relocs)
	}
	return buf, relocs
}

func writeInitInto(buf []byte, offset int, typ Type, init Node, relocs *[]GlobalReloc) {
	switch tt := typ.(type) {
	case *ArrayType:
		if s, ok := init.(*StringExpr); ok {
			n := copy(buf[offset:], s.Bytes)
			_ = n
			return
		}
		list, ok := init.(*InitListExpr)
		if !ok {
			return
		}
		elemSize := Size(tt.Ref)
		for i, item := range list.Items {
			writeInitInto(buf, offset+i*elemSize, tt.Ref, item, relocs)
		}
		return

	case *BaseType:
		if tt.Kind == BaseRecord {
			list, ok := init.(*InitListExpr)
			if !ok {
				return
			}
			rec := tt.Record
			for i, item := range list.Items {
				if i >= len(rec.Members) {
					break
				}
				writeInitInto(buf, offset+rec.Members[i].Offset, rec.Members[i].Type, item, relocs)
			}
			return
		}
	}

	writeScalarInit(buf, offset, typ, init, relocs)
}

// writeScalarInit lowers one non-aggregate initializer element:
// either a constant arithmetic value (written directly as little-
// endian bytes, per spec.md §4.6's IMW/byte-run emission) or an
// address-valued expression, recorded as a relocation since its
// concrete label text isn't known until the emitter runs.
func writeScalarInit(buf []byte, offset int, typ Type, init Node, relocs *[]GlobalReloc) {
	if reloc, ok := addressReloc(offset, init); ok {
		*relocs = append(*relocs, reloc)
		return
	}

	if IsFloating(typ) {
		bits, _ := constantEvalFloatBits(init)
		writeIntLE(buf, offset, Size(typ), bits)
		return
	}

	v, ok := constantEvalInt(init)
	if !ok {
		return
	}
	writeIntLE(buf, offset, Size(typ), uint64(v))
}

// addressReloc recognizes the handful of expression shapes that
// produce a link-time address rather than a compile-time constant
// value: a string literal assigned to a pointer slot, a bare function
// or array name (which decays to its own address), and an explicit
// `&x`.
func addressReloc(offset int, init Node) (GlobalReloc, bool) {
	switch e := init.(type) {
	case *StringExpr:
		// Matches stringLabelOperand's convention in codegen.go: a
		// string literal's address is always an external-use
		// reference to its fully-qualified "_string_<hex>" label,
		// not an internal block-jump label.
		return GlobalReloc{Offset: offset, Prefix: LabelExternalUse, Name: fmt.Sprintf("%s%x", StringLabelPrefix, e.Label), IsName: true}, true

	case *UnaryExpr:
		if e.Op == UnAddr {
			if v, ok := e.Operand.(*VariableExpr); ok {
				return GlobalReloc{Offset: offset, Prefix: LabelExternalUse, Name: v.Sym.AsmOrName(), IsName: true}, true
			}
		}

	case *VariableExpr:
		if e.Sym.Kind == SymFunction {
			return GlobalReloc{Offset: offset, Prefix: LabelExternalUse, Name: e.Sym.AsmOrName(), IsName: true}, true
		}
		if _, ok := IsArray(e.Sym.Type); ok {
			return GlobalReloc{Offset: offset, Prefix: LabelExternalUse, Name: e.Sym.AsmOrName(), IsName: true}, true
		}

	case *CastExpr:
		return addressReloc(offset, e.Operand)
	}
	return GlobalReloc{}, false
}

// constantEvalFloatBits folds a constant floating initializer to its
// IEEE-754 bit pattern; NumberExpr already stores float literals this
// way (parse_expr.go's parseFloatLiteral), so only the sign/negation
// unary needs explicit handling here.
func constantEvalFloatBits(n Node) (uint64, bool) {
	switch e := n.(type) {
	case *NumberExpr:
		return e.Value, true
	case *UnaryExpr:
		bits, ok := constantEvalFloatBits(e.Operand)
		if !ok {
			return 0, false
		}
		f := math.Float64frombits(bits)
		switch e.Op {
		case UnMinus:
			return math.Float64bits(-f), true
		case UnPlus:
			return bits, true
		}
	}
	return 0, false
}

func writeIntLE(buf []byte, offset, size int, v uint64) {
	for i := 0; i < size && offset+i < len(buf); i++ {
		buf[offset+i] = byte(v >> (8 * uint(i)))
	}
}

func (p *Parser) declareLocalExternVariable(sym *Symbol) error {
	if prev := p.c.Scopes.FindSymbol(sym.Name.Value.Bytes, false); prev != nil {
		if prev.Linkage == LinkageNone {
			return failTok(sym.Name, ErrDuplicateSymbol, "variable re-declared in block scope")
		}
		return p.checkRedeclarationTypes(prev, sym)
	}
	p.c.Scopes.DeclareSymbol(sym.Name.Value.Bytes, sym)

	if global := p.c.Scopes.Global().ordinary[sym.Name.Value.Bytes]; global != nil {
		if !TypeEqual(sym.Type, global.Type) {
			return failTok(sym.Name, ErrTypeMismatch, "`extern` variable re-declared with a different type")
		}
		sym.Linkage = global.Linkage
	} else {
		sym.Linkage = LinkageExternal
		p.c.Scopes.DeclareHiddenGlobal(sym.Name.Value.Bytes, sym)
	}
	return nil
}

func (p *Parser) declareLocalVariable(s *specifiers, sym *Symbol) error {
	if prev := p.c.Scopes.FindSymbol(sym.Name.Value.Bytes, false); prev != nil {
		_ = prev
		return failTok(sym.Name, ErrDuplicateSymbol, "variable re-declared in block scope")
	}
	p.c.Scopes.DeclareSymbol(sym.Name.Value.Bytes, sym)

	switch s.storage {
	case storageNone, storageAuto, storageRegister:
		sym.IsDefined = true
	case storageStatic:
		sym.IsDefined = true
		sym.Linkage = LinkageInternal
		sym.AsmName = fmt.Sprintf("%s%x_%s", MiscLabelPrefix, p.c.NewLabel(), sym.AsmOrName())
	default:
		return internalError("invalid storage specifier for local variable declaration")
	}
	return nil
}

func (p *Parser) declareGlobalVariable(s *specifiers, sym *Symbol, hasInit bool) error {
	if s.storage == storageStatic {
		sym.Linkage = LinkageInternal
	} else {
		sym.Linkage = LinkageExternal
	}
	sym.IsTentative = !hasInit && s.storage != storageExtern
	sym.IsDefined = hasInit

	prev := p.c.Scopes.FindSymbol(sym.Name.Value.Bytes, false)
	if prev == nil {
		p.c.GlobalVarOrder = append(p.c.GlobalVarOrder, sym)
	}
	if prev != nil {
		if err := p.checkRedeclarationTypes(prev, sym); err != nil {
			return err
		}
		if s.storage == storageExtern {
			sym.Linkage = prev.Linkage
		} else if prev.Linkage != sym.Linkage {
			return failTok(sym.Name, ErrTypeMismatch, "variable re-declared at file scope with a different linkage")
		}
		if prev.IsDefined && sym.IsDefined {
			return failTok(sym.Name, ErrDuplicateSymbol, "variable re-defined at file scope")
		}
		if !(sym.IsDefined || (sym.IsTentative && !prev.IsDefined && !prev.IsTentative)) {
			// Neither a definition nor an upgrade over the previous
			// tentative/defined declaration: keep the previous one as-is
			// (the multi-declaration tentative-definition merge restored
			// from parse_decl.c's parse_global_variable_declaration).
			*sym = *prev
			return nil
		}
	}
	p.c.Scopes.DeclareSymbol(sym.Name.Value.Bytes, sym)
	return nil
}

func (p *Parser) checkRedeclarationTypes(old, next *Symbol) error {
	oldArr, oldIsArr := IsArray(old.Type)
	nextArr, nextIsArr := IsArray(next.Type)
	if oldIsArr && nextIsArr {
		if oldArr.Count == IndeterminateCount && nextArr.Count != IndeterminateCount {
			if !TypeEqual(oldArr.Ref, nextArr.Ref) {
				return failTok(next.Name, ErrTypeMismatch, "variable re-declared at file scope with a different type")
			}
			old.Type = next.Type
			return nil
		}
		if nextArr.Count == IndeterminateCount && oldArr.Count != IndeterminateCount {
			if !TypeEqual(nextArr.Ref, oldArr.Ref) {
				return failTok(next.Name, ErrTypeMismatch, "variable re-declared at file scope with a different type")
			}
			next.Type = old.Type
			return nil
		}
	}
	if !TypeEqual(old.Type, next.Type) {
		return failTok(next.Name, ErrTypeMismatch, "variable re-declared at file scope with a different type")
	}
	return nil
}

/*
 * Top-level declaration driver
 */

// parseDeclarationOrNil parses one declaration: a specifier sequence
// plus zero or more comma-separated declarators (SPEC_FULL.md §4.8's
// multi-declarator restoration). At block scope, ok is false (with no
// tokens consumed) when the current token cannot start a declaration
// at all, telling the statement parser to try a statement instead.
func (p *Parser) parseDeclarationOrNil(inBlock bool) (decls []Node, ok bool, err error) {
	var s specifiers
	found, err := p.parseDeclarationSpecifiers(&s)
	if err != nil {
		return nil, false, err
	}
	if !found {
		if inBlock {
			return nil, false, nil
		}
		return nil, false, failTok(p.cur(), ErrExpectedDeclarator, "expected a declaration at file scope")
	}
	baseType, err := p.specifiersMakeType(&s)
	if err != nil {
		return nil, false, err
	}

	first := true
	for {
		typ := baseType
		slot := typeSlot(&typ)
		name, declFound, err := p.parseDeclarator(slot, false)
		if err != nil {
			return nil, false, err
		}
		typ = *slot

		switch {
		case !declFound:
			if s.typeSpec&(specRecord|specEnum) == 0 {
				return nil, false, failTok(p.cur(), ErrExpectedDeclarator, "expected a declarator for this declaration")
			}
			// A record/enum with no declarator: a definition or forward
			// declaration standing alone, already handled above.

		case s.storage == storageTypedef:
			if p.is("=") || p.is("{") {
				return nil, false, failTok(name, ErrInvalidInitializer, "a definition cannot be provided for a `typedef` declaration")
			}
			p.c.Scopes.DeclareTypedef(name.Value.Bytes, &Symbol{Name: name, Kind: SymTypedef, TypedefType: typ})

		default:
			asmName, err := p.parseAsmName(name)
			if err != nil {
				return nil, false, err
			}
			if ft, isFunc := IsFunction(typ); isFunc {
				if !first && p.is("{") {
					return nil, false, failTok(p.cur(), ErrUnsupportedFeature, "a function definition cannot appear on a declaration with multiple declarators")
				}
				if err := p.parseFunctionDeclaration(&s, ft, name, asmName, !inBlock); err != nil {
					return nil, false, err
				}
				return decls, true, nil
			}
			decl, err := p.parseVariableDeclaration(inBlock, &s, typ, name, asmName)
			if err != nil {
				return nil, false, err
			}
			if decl != nil {
				decls = append(decls, decl)
			}
		}

		if ok, err := p.accept(","); err != nil {
			return nil, false, err
		} else if ok {
			first = false
			continue
		}
		if _, err := p.expect(";"); err != nil {
			return nil, false, err
		}
		break
	}

	return decls, true, nil
}

// ParseTranslationUnit parses an entire file-scope declaration
// sequence, the parser's top-level entry point (spec.md §4.4).
func (p *Parser) ParseTranslationUnit() error {
	for !p.atEnd() {
		if _, _, err := p.parseDeclarationOrNil(false); err != nil {
			return err
		}
	}
	p.finalizeTentativeDefinitions()
	return nil
}

// finalizeTentativeDefinitions upgrades every global that stayed
// tentative through the whole translation unit into a zero-
// initialized definition (C17 6.9.2p2), the way a single real
// definition's storage would have been emitted.
func (p *Parser) finalizeTentativeDefinitions() {
	seen := map[string]bool{}
	for _, sym := range p.c.GlobalVarOrder {
		name := sym.Name.Value.Bytes
		if seen[name] {
			continue
		}
		seen[name] = true
		live := p.c.Scopes.Global().ordinary[name]
		if live != nil && live.Kind == SymVariable && live.IsTentative && !live.IsDefined {
			live.IsDefined = true
			data, relocs := lowerGlobalInit(live.Type, nil)
			p.c.Program.Globals = append(p.c.Program.Globals, &GlobalVar{Sym: live, Init: data, Relocs: relocs})
		}
	}
}
