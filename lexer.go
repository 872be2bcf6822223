package occ

import (
	"strings"
)

// Lexer tokenises a preprocessed C translation unit (spec.md §4.1).
// current is always available after NewLexer returns; Consume()
// advances it. A single token of push-back is supported via
// PushBack/unread.
type Lexer struct {
	in       *Interner
	src      []byte
	pos      int
	line     int
	filename *Str

	current  *Token
	unread   *Token // single-token push-back buffer
}

func NewLexer(in *Interner, src []byte, filename string) (*Lexer, error) {
	l := &Lexer{
		in:       in,
		src:      src,
		pos:      0,
		line:     1,
		filename: in.Intern(filename),
	}
	if err := l.advance(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Lexer) Current() *Token { return l.current }

// Consume returns the current token and advances to the next one.
func (l *Lexer) Consume() (*Token, error) {
	tok := l.current
	if l.unread != nil {
		l.current, l.unread = l.unread, nil
		return tok, nil
	}
	if err := l.advance(); err != nil {
		return nil, err
	}
	return tok, nil
}

// PushBack un-consumes tok, making it the current token again. Only
// one token of push-back is supported (spec.md §4.1).
func (l *Lexer) PushBack(tok *Token) {
	l.unread = l.current
	l.current = tok
}

func (l *Lexer) loc() SourceLocation {
	return SourceLocation{Filename: l.filename.Bytes, Line: l.line}
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) byteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() error {
	for {
		l.skipWhitespaceAndNewlines()
		if l.pos >= len(l.src) {
			l.current = &Token{Kind: TokEnd, Value: l.in.Intern(""), Filename: l.filename, Line: l.line}
			return nil
		}
		if l.peekByte() == '#' && l.atLineStart() {
			if err := l.consumeDirective(); err != nil {
				return err
			}
			continue
		}
		break
	}
	return l.scanToken()
}

// atLineStart reports whether l.pos is preceded only by horizontal
// whitespace since the last newline (directives may only appear at
// line start; spec.md §4.1).
func (l *Lexer) atLineStart() bool {
	i := l.pos - 1
	for i >= 0 && (l.src[i] == ' ' || l.src[i] == '\t') {
		i--
	}
	return i < 0 || l.src[i] == '\n'
}

func (l *Lexer) skipWhitespaceAndNewlines() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case ' ', '\t', '\v', '\f':
			l.pos++
		case '\r':
			l.pos++
			if l.peekByte() == '\n' {
				l.pos++
			}
			l.line++
		case '\n':
			l.pos++
			l.line++
		default:
			return
		}
	}
}

// consumeDirective handles a leading '#' line: #line N "file", #pragma
// (ignored), or anything else skipped to end of line. Any '#' found
// mid-line is a DirectiveMidLine error (this is only reachable if a
// caller invokes scanning directly on a mid-line '#', which can't
// happen from advance() since advance() only calls this at line
// start; scanToken below enforces the same rule for stray '#').
func (l *Lexer) consumeDirective() error {
	l.pos++ // consume '#'
	l.skipHSpace()
	word := l.scanBareWord()

	switch word {
	case "line":
		l.skipHSpace()
		numStart := l.pos
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		if l.pos == numStart {
			return fail(l.loc(), ErrMalformedNumber, "expected line number after #line")
		}
		n := 0
		for _, c := range l.src[numStart:l.pos] {
			n = n*10 + int(c-'0')
		}
		l.skipHSpace()
		if l.peekByte() == '"' {
			l.pos++
			start := l.pos
			for l.pos < len(l.src) && l.src[l.pos] != '"' {
				l.pos++
			}
			fname := string(l.src[start:l.pos])
			if l.pos < len(l.src) {
				l.pos++
			}
			l.filename = l.in.Intern(fname)
		}
		// The line number is recorded as N-1 because the end of this
		// directive (the newline) advances the counter once more,
		// landing exactly on N (spec.md §4.1).
		l.line = n - 1
	case "pragma":
		// reserved for future use; ignored.
	default:
		// unknown directive: skip to end of line.
	}
	l.skipToEndOfLine()
	return nil
}

func (l *Lexer) skipHSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
		l.pos++
	}
}

func (l *Lexer) scanBareWord() string {
	start := l.pos
	for l.pos < len(l.src) && isAlnum(l.src[l.pos]) {
		l.pos++
	}
	return string(l.src[start:l.pos])
}

func (l *Lexer) skipToEndOfLine() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' && l.src[l.pos] != '\r' {
		l.pos++
	}
	// the caller's top-level loop will consume the newline itself via
	// skipWhitespaceAndNewlines, advancing l.line.
}

func (l *Lexer) scanToken() error {
	start := l.pos
	line := l.line
	c := l.peekByte()

	switch {
	case c == '#':
		return fail(l.loc(), ErrDirectiveMidLine, "'#' is only valid at the start of a line")

	case isAlphaStart(c):
		for l.pos < len(l.src) && isAlnum(l.src[l.pos]) {
			l.pos++
		}
		return l.emit(TokAlphanumeric, string(l.src[start:l.pos]), line)

	case isDigit(c):
		l.pos++
		for l.pos < len(l.src) && (isAlnum(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		return l.emit(TokNumber, string(l.src[start:l.pos]), line)

	case c == '"':
		return l.scanString(line)

	case c == '\'':
		return l.scanChar(line)

	default:
		return l.scanPunctuation(line)
	}
}

func (l *Lexer) emit(kind TokenKind, text string, line int) error {
	l.current = &Token{Kind: kind, Value: l.in.Intern(text), Filename: l.filename, Line: line}
	return nil
}

var escapeTable = map[byte]byte{
	'a': '\a', 'b': '\b', 't': '\t', 'n': '\n', 'v': '\v', 'f': '\f', 'r': '\r',
	'e': 0x1b, '"': '"', '\'': '\'', '?': '?', '\\': '\\', '0': 0,
}

func (l *Lexer) scanEscapedByte() (byte, error) {
	// l.pos is at the character after the backslash.
	c := l.peekByte()
	if c == 'x' || c == 'u' {
		return 0, fail(l.loc(), ErrUnsupportedEscape, "hex/unicode escapes are not supported")
	}
	v, ok := escapeTable[c]
	if !ok {
		return 0, fail(l.loc(), ErrUnsupportedEscape, "unsupported escape sequence \\%c", c)
	}
	l.pos++
	return v, nil
}

func (l *Lexer) scanString(line int) error {
	l.pos++ // opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return fail(l.loc(), ErrUnclosedString, "unclosed string literal")
		}
		c := l.src[l.pos]
		if c == '"' {
			l.pos++
			break
		}
		if c == '\n' {
			return fail(l.loc(), ErrUnclosedString, "unclosed string literal")
		}
		if c == '\\' {
			l.pos++
			v, err := l.scanEscapedByte()
			if err != nil {
				return err
			}
			b.WriteByte(v)
			continue
		}
		b.WriteByte(c)
		l.pos++
	}
	l.current = &Token{Kind: TokString, Value: l.in.Intern(b.String()), Filename: l.filename, Line: line}
	return nil
}

func (l *Lexer) scanChar(line int) error {
	l.pos++ // opening quote
	if l.peekByte() == '\'' {
		return fail(l.loc(), ErrEmptyChar, "empty character literal")
	}
	var v byte
	if l.peekByte() == '\\' {
		l.pos++
		var err error
		v, err = l.scanEscapedByte()
		if err != nil {
			return err
		}
	} else {
		if l.pos >= len(l.src) {
			return fail(l.loc(), ErrUnclosedChar, "unclosed character literal")
		}
		v = l.src[l.pos]
		l.pos++
	}
	if l.peekByte() != '\'' {
		return fail(l.loc(), ErrUnclosedChar, "unclosed character literal")
	}
	l.pos++
	l.current = &Token{Kind: TokCharacter, Value: l.in.Intern(string([]byte{v})), Filename: l.filename, Line: line}
	return nil
}

// threeCharOps/twoCharOps/oneCharOps implement the greedy longest-
// match rule from spec.md §4.1.
var threeCharOps = []string{"<<=", ">>=", "..."}
var twoCharOps = []string{
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "!=", "<=", ">=", "==",
	"<<", ">>", "++", "--", "&&", "||", "->",
}
var oneCharOps = "+-*/%&|^!~<>=()[]{}.?:,;"

func (l *Lexer) scanPunctuation(line int) error {
	rest := l.src[l.pos:]
	for _, op := range threeCharOps {
		if hasPrefixBytes(rest, op) {
			l.pos += 3
			return l.emit(TokPunctuation, op, line)
		}
	}
	for _, op := range twoCharOps {
		if hasPrefixBytes(rest, op) {
			l.pos += 2
			return l.emit(TokPunctuation, op, line)
		}
	}
	// ".." standalone (not part of "...") is invalid.
	if hasPrefixBytes(rest, "..") {
		return fail(l.loc(), ErrUnexpectedChar, "unexpected '..'")
	}
	c := l.peekByte()
	if strings.IndexByte(oneCharOps, c) >= 0 {
		l.pos++
		return l.emit(TokPunctuation, string(c), line)
	}
	return fail(l.loc(), ErrUnexpectedChar, "unexpected character %q", c)
}

func hasPrefixBytes(b []byte, s string) bool {
	if len(b) < len(s) {
		return false
	}
	return string(b[:len(s)]) == s
}

func isAlphaStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isAlphaStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
