package occ

import (
	"fmt"

	"github.com/ovmcc/occ/ascii"
	pkgerrors "github.com/pkg/errors"
)

// SourceLocation pins a diagnostic to a file and line, mirroring the
// (filename, line) pair threaded through the lexer and parser.
type SourceLocation struct {
	Filename string
	Line     int
}

func (l SourceLocation) String() string {
	if l.Filename == "" {
		return fmt.Sprintf("line %d", l.Line)
	}
	return fmt.Sprintf("%s:%d", l.Filename, l.Line)
}

// Severity distinguishes diagnostics that abort compilation from
// those that are merely reported.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// ErrorKind enumerates the taxonomy from spec.md §7.
type ErrorKind string

const (
	// Lexical
	ErrUnexpectedChar    ErrorKind = "UnexpectedChar"
	ErrUnclosedString    ErrorKind = "UnclosedString"
	ErrUnclosedChar      ErrorKind = "UnclosedChar"
	ErrEmptyChar         ErrorKind = "EmptyChar"
	ErrUnsupportedEscape ErrorKind = "UnsupportedEscape"
	ErrDirectiveMidLine  ErrorKind = "DirectiveMidLine"
	ErrMalformedNumber   ErrorKind = "MalformedNumber"

	// Syntactic
	ErrExpectedToken            ErrorKind = "ExpectedToken"
	ErrExpectedDeclarator       ErrorKind = "ExpectedDeclarator"
	ErrInvalidTypeSpecifierCombo ErrorKind = "InvalidTypeSpecifierCombo"
	ErrRedundantSpecifier       ErrorKind = "RedundantSpecifier"

	// Semantic
	ErrUnknownName             ErrorKind = "UnknownName"
	ErrKindMismatch            ErrorKind = "KindMismatch"
	ErrTypeMismatch            ErrorKind = "TypeMismatch"
	ErrArityMismatch           ErrorKind = "ArityMismatch"
	ErrIncompleteType          ErrorKind = "IncompleteType"
	ErrNonLvalueAssignment     ErrorKind = "NonLvalueAssignment"
	ErrNonAddressable          ErrorKind = "NonAddressable"
	ErrDuplicateMember         ErrorKind = "DuplicateMember"
	ErrDuplicateSymbol         ErrorKind = "DuplicateSymbol"
	ErrInvalidInitializer      ErrorKind = "InvalidInitializer"
	ErrConstantExpressionRequired ErrorKind = "ConstantExpressionRequired"

	// Unsupported / overflow / internal
	ErrUnsupportedFeature    ErrorKind = "UnsupportedFeature"
	ErrNumericLiteralOverflow ErrorKind = "NumericLiteralOverflow"
	ErrInternal              ErrorKind = "InternalError"
)

// Diagnostic is the fail-fast, source-located error (or warning) the
// compiler reports. There is no recovery path: the top-level driver
// prints the diagnostic and exits.
type Diagnostic struct {
	Kind     ErrorKind
	Severity Severity
	Location SourceLocation
	Message  string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Kind, d.Message)
}

// ColorString renders d the way the CLI prints it to a terminal:
// the plain Error() text with its severity label colourised through
// the ascii package's default theme, the same theme the teacher uses
// for its AST/ASM dumps (ascii/colors.go).
func (d *Diagnostic) ColorString() string {
	label, color := "error", ascii.DefaultTheme.Error
	if d.Severity == SeverityWarning {
		label, color = "warning", ascii.DefaultTheme.Warning
	}
	return fmt.Sprintf("%s: %s: %s: %s", d.Location, ascii.Color(color, "%s", label), d.Kind, d.Message)
}

// fail builds and returns a Diagnostic at the given location. It never
// panics by itself; callers return the error up the call stack to the
// point where it is fatal.
func fail(loc SourceLocation, kind ErrorKind, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, Severity: SeverityError, Location: loc, Message: fmt.Sprintf(format, args...)}
}

func failTok(tok *Token, kind ErrorKind, format string, args ...any) *Diagnostic {
	return fail(tok.Location(), kind, format, args...)
}

func warn(loc SourceLocation, kind ErrorKind, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, Severity: SeverityWarning, Location: loc, Message: fmt.Sprintf(format, args...)}
}

// internalError marks an invariant violation. Unlike source-located
// diagnostics, it is wrapped with github.com/pkg/errors so the stack
// trace survives to the CLI's fatal-exit boundary; it is never caught.
func internalError(format string, args ...any) error {
	return pkgerrors.WithStack(&Diagnostic{
		Kind:     ErrInternal,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	})
}
