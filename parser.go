package occ

// Parser recursive-descends over a Compiler's Lexer, building the
// declaration/type/expression/statement tree described in spec.md
// §4.4-4.5. All parser state beyond the shared Compiler is local to
// each method call, per spec.md §9's globals-free redesign.
type Parser struct {
	c *Compiler
}

func NewParser(c *Compiler) *Parser { return &Parser{c: c} }

func (p *Parser) cur() *Token { return p.c.Lexer.Current() }

func (p *Parser) atEnd() bool { return p.cur().Kind == TokEnd }

// next consumes and returns the current token, advancing the lexer.
// Lexer errors become fatal parse errors: the dialect has no recovery
// path (spec.md §7).
func (p *Parser) next() (*Token, error) {
	tok, err := p.c.Lexer.Consume()
	if err != nil {
		return nil, err
	}
	return tok, nil
}

func (p *Parser) is(s string) bool { return p.cur().Is(s) }

// accept consumes and returns true if the current token spells s.
func (p *Parser) accept(s string) (bool, error) {
	if p.is(s) {
		if _, err := p.next(); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// expect consumes the current token if it spells s, else fails.
func (p *Parser) expect(s string) (*Token, error) {
	if !p.is(s) {
		return nil, failTok(p.cur(), ErrExpectedToken, "expected %q, got %q", s, p.cur().String())
	}
	return p.next()
}

// expectIdent consumes and returns the current token if it is an
// alphanumeric identifier.
func (p *Parser) expectIdent() (*Token, error) {
	if p.cur().Kind != TokAlphanumeric {
		return nil, failTok(p.cur(), ErrExpectedToken, "expected identifier, got %q", p.cur().String())
	}
	return p.next()
}

// keywords that can never be used as ordinary identifiers.
var keywords = map[string]bool{
	"void": true, "bool": true, "char": true, "short": true, "int": true,
	"long": true, "float": true, "double": true, "signed": true, "unsigned": true,
	"struct": true, "union": true, "enum": true, "typedef": true,
	"const": true, "volatile": true, "restrict": true,
	"static": true, "extern": true, "auto": true, "register": true, "inline": true,
	"if": true, "else": true, "while": true, "do": true, "for": true,
	"switch": true, "case": true, "default": true, "break": true, "continue": true,
	"return": true, "goto": true, "sizeof": true, "__asm__": true, "asm": true,
	"_Bool": true, "__func__": true,
	"__builtin_va_start": true, "__builtin_va_arg": true, "__builtin_va_end": true,
	"_Atomic": true, "_Alignas": true, "_Thread_local": true,
}

func (p *Parser) isKeyword(s string) bool {
	return p.cur().Kind == TokAlphanumeric && p.cur().Value.Bytes == s
}
