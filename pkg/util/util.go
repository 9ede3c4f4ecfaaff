package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ferrite-lang/ferrc/pkg/token"
	"golang.org/x/term"
)

// Stage identifies the pipeline stage that produced a diagnostic.
type Stage int

const (
	StageLex Stage = iota
	StageParse
	StageResolve
	StageCodegen
)

func (s Stage) String() string {
	switch s {
	case StageLex:
		return "lex"
	case StageParse:
		return "parse"
	case StageResolve:
		return "type"
	case StageCodegen:
		return "codegen"
	}
	return "unknown"
}

type ErrorKind int

const (
	// Lexer
	UnexpectedToken ErrorKind = iota
	UnterminatedQuote
	UnknownEscapeSequence
	UnterminatedComment
	InvalidNumber

	// Parser
	Expected
	UnterminatedBracket
	MissingSemicolon
	DuplicateField
	UnexpectedEOF

	// Resolver / type checker
	UndefinedVariable
	UndefinedFunction
	RedeclaredVariable
	WrongType
	WrongBinaryExpressionTypes
	DereferenceNonPointer
	IndexNonPointer
	UnknownField
	MissingField
	UnknownType
	NotAFunction
	NotAStruct
	ArgumentCount
	InvalidAssignmentTarget
	StructByValue
	MissingMainFunction

	// Code generator
	TooManyArguments
	UnknownSystemCall
)

var kindNames = map[ErrorKind]string{
	UnexpectedToken:            "UnexpectedToken",
	UnterminatedQuote:          "UnterminatedQuote",
	UnknownEscapeSequence:      "UnknownEscapeSequence",
	UnterminatedComment:        "UnterminatedComment",
	InvalidNumber:              "InvalidNumber",
	Expected:                   "Expected",
	UnterminatedBracket:        "UnterminatedBracket",
	MissingSemicolon:           "MissingSemicolon",
	DuplicateField:             "DuplicateField",
	UnexpectedEOF:              "UnexpectedEOF",
	UndefinedVariable:          "UndefinedVariable",
	UndefinedFunction:          "UndefinedFunction",
	RedeclaredVariable:         "RedeclaredVariable",
	WrongType:                  "WrongType",
	WrongBinaryExpressionTypes: "WrongBinaryExpressionTypes",
	DereferenceNonPointer:      "DereferenceNonPointer",
	IndexNonPointer:            "IndexNonPointer",
	UnknownField:               "UnknownField",
	MissingField:               "MissingField",
	UnknownType:                "UnknownType",
	NotAFunction:               "NotAFunction",
	NotAStruct:                 "NotAStruct",
	ArgumentCount:              "ArgumentCount",
	InvalidAssignmentTarget:    "InvalidAssignmentTarget",
	StructByValue:              "StructByValue",
	MissingMainFunction:        "MissingMainFunction",
	TooManyArguments:           "TooManyArguments",
	UnknownSystemCall:          "UnknownSystemCall",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Stage maps an error kind to the pipeline stage that raises it.
func (k ErrorKind) Stage() Stage {
	switch {
	case k < Expected:
		return StageLex
	case k < UndefinedVariable:
		return StageParse
	case k < TooManyArguments:
		return StageResolve
	}
	return StageCodegen
}

// Error is a fatal compile-time diagnostic. Spans[0] is the primary
// location; further spans point at related source (operands, the original
// declaration of a redeclared name, ...).
type Error struct {
	Kind  ErrorKind
	Msg   string
	Spans []token.Span
}

func NewError(kind ErrorKind, span token.Span, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Spans: []token.Span{span}}
}

// With appends related spans and returns e.
func (e *Error) With(spans ...token.Span) *Error {
	e.Spans = append(e.Spans, spans...)
	return e
}

func (e *Error) Span() token.Span {
	if len(e.Spans) == 0 {
		return token.Span{}
	}
	return e.Spans[0]
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s: %s", e.Kind.Stage(), e.Kind, e.Msg)
}

// KindOf extracts the ErrorKind of err, reporting false for foreign errors.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Warning is a non-fatal diagnostic tagged with the -W flag that enables it.
type Warning struct {
	Name string
	Msg  string
	Span token.Span
}

// SourceFile tracks the name and content of the compilation unit.
type SourceFile struct {
	Name    string
	Content string
}

// Position converts a byte offset to a 1-based line and column.
func (f SourceFile) Position(offset int) (line, col int) {
	line, col = 1, 1
	for i, r := range f.Content {
		if i >= offset {
			break
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// Offset converts a 0-based line and character to a byte offset, clamped to
// the line end.
func (f SourceFile) Offset(line, char int) int {
	start := 0
	for l := 0; l < line; l++ {
		idx := strings.IndexByte(f.Content[start:], '\n')
		if idx < 0 {
			return len(f.Content)
		}
		start += idx + 1
	}
	end := strings.IndexByte(f.Content[start:], '\n')
	if end < 0 {
		end = len(f.Content) - start
	}
	if char > end {
		char = end
	}
	if char < 0 {
		char = 0
	}
	return start + char
}

func (f SourceFile) lineAt(offset int) (string, int) {
	if offset > len(f.Content) {
		offset = len(f.Content)
	}
	lineStart := strings.LastIndexByte(f.Content[:offset], '\n') + 1
	lineEnd := strings.IndexByte(f.Content[lineStart:], '\n')
	if lineEnd < 0 {
		lineEnd = len(f.Content)
	} else {
		lineEnd += lineStart
	}
	return f.Content[lineStart:lineEnd], lineStart
}

// Reporter renders diagnostics against one source file.
type Reporter struct {
	Out   io.Writer
	File  SourceFile
	Color bool
}

// NewReporter enables colour only when out is a terminal.
func NewReporter(out io.Writer, file SourceFile) *Reporter {
	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Reporter{Out: out, File: file, Color: color}
}

func (r *Reporter) paint(code, s string) string {
	if !r.Color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// printErrorLine prints the source line and a caret under the span
func (r *Reporter) printErrorLine(span token.Span) {
	if r.File.Content == "" && span.Start == 0 {
		return
	}
	text, lineStart := r.File.lineAt(span.Start)
	col := len([]rune(r.File.Content[lineStart:span.Start]))
	width := span.Len()
	if span.Start+width > lineStart+len(text) {
		width = lineStart + len(text) - span.Start
	}
	if width < 1 {
		width = 1
	}
	fmt.Fprintf(r.Out, "  %s\n", text)
	fmt.Fprintf(r.Out, "  %s%s\n", strings.Repeat(" ", col), r.paint("32", "^"+strings.Repeat("~", width-1)))
}

// Error prints err with a caret under each of its spans.
func (r *Reporter) Error(err error) {
	var e *Error
	if !errors.As(err, &e) {
		fmt.Fprintf(r.Out, "%s: %s %s\n", r.File.Name, r.paint("31", "error:"), err)
		return
	}
	line, col := r.File.Position(e.Span().Start)
	fmt.Fprintf(r.Out, "%s:%d:%d: %s %s [%s]\n", r.File.Name, line, col, r.paint("31", "error:"), e.Msg, e.Kind)
	for _, span := range e.Spans {
		r.printErrorLine(span)
	}
}

func (r *Reporter) Warn(w Warning) {
	line, col := r.File.Position(w.Span.Start)
	fmt.Fprintf(r.Out, "%s:%d:%d: %s %s [-W%s]\n", r.File.Name, line, col, r.paint("33", "warning:"), w.Msg, w.Name)
	r.printErrorLine(w.Span)
}

// Render formats err as the reporter would, without colour.
func Render(file SourceFile, err error) string {
	var sb strings.Builder
	r := &Reporter{Out: &sb, File: file}
	r.Error(err)
	return sb.String()
}

// Info prints a progress line when verbose output is enabled.
func Info(w io.Writer, verbose bool, format string, args ...interface{}) {
	if !verbose {
		return
	}
	fmt.Fprintf(w, "ferrc: info: "+format+"\n", args...)
}
