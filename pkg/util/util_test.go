package util

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/ferrite-lang/ferrc/pkg/token"
	"github.com/nalgeon/be"
)

func TestKindStages(t *testing.T) {
	be.Equal(t, UnterminatedComment.Stage(), StageLex)
	be.Equal(t, Expected.Stage(), StageParse)
	be.Equal(t, UnexpectedEOF.Stage(), StageParse)
	be.Equal(t, UndefinedVariable.Stage(), StageResolve)
	be.Equal(t, MissingMainFunction.Stage(), StageResolve)
	be.Equal(t, TooManyArguments.Stage(), StageCodegen)
	be.Equal(t, UnknownSystemCall.Stage(), StageCodegen)

	for k := UnexpectedToken; k <= UnknownSystemCall; k++ {
		_, named := kindNames[k]
		be.True(t, named)
	}
}

func TestErrorWrapping(t *testing.T) {
	e := NewError(WrongType, token.Span{Start: 1, End: 2}, "got %s", "bool").With(token.Span{Start: 5, End: 6})
	be.Equal(t, e.Error(), "type error: WrongType: got bool")
	be.Equal(t, e.Span(), token.Span{Start: 1, End: 2})
	be.Equal(t, len(e.Spans), 2)

	wrapped := fmt.Errorf("compiling: %w", e)
	kind, ok := KindOf(wrapped)
	be.True(t, ok)
	be.Equal(t, kind, WrongType)

	_, ok = KindOf(errors.New("plain"))
	be.True(t, !ok)
}

func TestPositionAndOffset(t *testing.T) {
	f := SourceFile{Name: "a.fe", Content: "ab\ncde\n\nf"}
	line, col := f.Position(4)
	be.Equal(t, line, 2)
	be.Equal(t, col, 2)
	line, col = f.Position(len(f.Content))
	be.Equal(t, line, 4)
	be.Equal(t, col, 2)

	be.Equal(t, f.Offset(0, 0), 0)
	be.Equal(t, f.Offset(1, 2), 5)
	be.Equal(t, f.Offset(1, 99), 6)
	be.Equal(t, f.Offset(2, 3), 7)
	be.Equal(t, f.Offset(3, 0), 8)
	be.Equal(t, f.Offset(7, 0), len(f.Content))
}

func TestRender(t *testing.T) {
	f := SourceFile{Name: "m.fe", Content: "let x = 1 + true;"}
	err := NewError(WrongBinaryExpressionTypes, token.Span{Start: 10, End: 11}, "bad operands").
		With(token.Span{Start: 12, End: 16})
	want := "m.fe:1:11: error: bad operands [WrongBinaryExpressionTypes]\n" +
		"  let x = 1 + true;\n" +
		"            ^\n" +
		"  let x = 1 + true;\n" +
		"              ^~~~\n"
	be.Equal(t, Render(f, err), want)

	be.Equal(t, Render(f, errors.New("io failure")), "m.fe: error: io failure\n")
}

func TestReporterWarn(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, SourceFile{Name: "w.fe", Content: "fn main() {\n  let x = 1;\n}"})
	be.True(t, !r.Color)
	r.Warn(Warning{Name: "shadow", Msg: "'x' shadows an outer declaration", Span: token.Span{Start: 18, End: 19}})
	want := "w.fe:2:7: warning: 'x' shadows an outer declaration [-Wshadow]\n" +
		"    let x = 1;\n" +
		"        ^\n"
	be.Equal(t, buf.String(), want)
}

func TestInfo(t *testing.T) {
	var buf bytes.Buffer
	Info(&buf, false, "hidden %d", 1)
	be.Equal(t, buf.String(), "")
	Info(&buf, true, "shown %d", 2)
	be.Equal(t, buf.String(), "ferrc: info: shown 2\n")
}
