package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ferrite-lang/ferrc/pkg/ast"
	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/lexer"
	"github.com/ferrite-lang/ferrc/pkg/token"
	"github.com/ferrite-lang/ferrc/pkg/util"
	"github.com/nalgeon/be"
)

// sexpr renders a node as a compact s-expression.
func sexpr(n *ast.Node) string {
	if n == nil {
		return "_"
	}
	switch d := n.Data.(type) {
	case ast.NumberNode:
		return fmt.Sprint(d.Value)
	case ast.BoolNode:
		return fmt.Sprint(d.Value)
	case ast.StringNode:
		return fmt.Sprintf("%q", d.Value)
	case ast.CharNode:
		return fmt.Sprintf("(char %d)", d.Value)
	case ast.IdentNode:
		return d.Name
	case ast.UnaryNode:
		return fmt.Sprintf("(%s %s)", d.Op, sexpr(d.Expr))
	case ast.AddressOfNode:
		return fmt.Sprintf("(& %s)", sexpr(d.Expr))
	case ast.DerefNode:
		return fmt.Sprintf("(* %s)", sexpr(d.Expr))
	case ast.BinaryOpNode:
		return fmt.Sprintf("(%s %s %s)", d.Op, sexpr(d.Left), sexpr(d.Right))
	case ast.FuncCallNode:
		parts := []string{"call", sexpr(d.Callee)}
		for _, a := range d.Args {
			parts = append(parts, sexpr(a))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case ast.StructLitNode:
		parts := []string{"new", d.Name}
		for _, f := range d.Fields {
			parts = append(parts, f.Name+"="+sexpr(f.Value))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case ast.SubscriptNode:
		return fmt.Sprintf("(index %s %s)", sexpr(d.Array), sexpr(d.Index))
	case ast.MemberAccessNode:
		return fmt.Sprintf("(. %s %s)", sexpr(d.Expr), d.Field)
	case ast.LetNode:
		if d.Type != nil {
			return fmt.Sprintf("(let %s %s %s)", d.Name, d.Type, sexpr(d.Value))
		}
		return fmt.Sprintf("(let %s %s)", d.Name, sexpr(d.Value))
	case ast.AssignNode:
		return fmt.Sprintf("(= %s %s)", sexpr(d.Target), sexpr(d.Value))
	case ast.ExprStmtNode:
		return fmt.Sprintf("(expr %s)", sexpr(d.Expr))
	case ast.IfNode:
		parts := []string{"if"}
		for _, arm := range d.Arms {
			parts = append(parts, "["+sexpr(arm.Cond)+" "+sexpr(arm.Body)+"]")
		}
		return "(" + strings.Join(parts, " ") + ")"
	case ast.WhileNode:
		return fmt.Sprintf("(while %s %s)", sexpr(d.Cond), sexpr(d.Body))
	case ast.ReturnNode:
		return fmt.Sprintf("(return %s)", sexpr(d.Expr))
	case ast.BlockNode:
		parts := []string{"block"}
		for _, s := range d.Stmts {
			parts = append(parts, sexpr(s))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case ast.StructDeclNode:
		parts := []string{"struct", d.Name}
		for _, f := range d.Fields {
			parts = append(parts, f.Name+":"+f.Type.String())
		}
		return "(" + strings.Join(parts, " ") + ")"
	case ast.FuncDeclNode:
		var params []string
		for _, p := range d.Params {
			params = append(params, p.Name+":"+p.Type.String())
		}
		ret := ""
		if d.ReturnType != nil {
			ret = " -> " + d.ReturnType.String()
		}
		return fmt.Sprintf("(fn %s (%s)%s %s)", d.Name, strings.Join(params, " "), ret, sexpr(d.Body))
	}
	return fmt.Sprintf("<%s>", n.Type)
}

func parse(t *testing.T, src string) *ast.Node {
	t.Helper()
	toks, err := lexer.Tokenize(src, config.NewConfig())
	be.Err(t, err, nil)
	root, err := Parse(toks)
	be.Err(t, err, nil)
	return root
}

// stmt parses src and returns its only top-level node.
func stmt(t *testing.T, src string) *ast.Node {
	t.Helper()
	stmts := parse(t, src).Data.(ast.BlockNode).Stmts
	be.Equal(t, len(stmts), 1)
	return stmts[0]
}

func parseErr(t *testing.T, src string) *util.Error {
	t.Helper()
	toks, err := lexer.Tokenize(src, config.NewConfig())
	be.Err(t, err, nil)
	root, err := Parse(toks)
	be.True(t, root == nil)
	e, ok := err.(*util.Error)
	be.True(t, ok)
	return e
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3;", "(expr (+ 1 (* 2 3)))"},
		{"1 - 2 - 3;", "(expr (- (- 1 2) 3))"},
		{"(1 + 2) * 3;", "(expr (* (+ 1 2) 3))"},
		{"a < b + 1 == c;", "(expr (== (< a (+ b 1)) c))"},
		{"-a * b;", "(expr (* (- a) b))"},
		{"*p + 1;", "(expr (+ (* p) 1))"},
		{"&a.b;", "(expr (& (. a b)))"},
		{"*p.x;", "(expr (* (. p x)))"},
		{"a.b.c[1](2);", "(expr (call (index (. (. a b) c) 1) 2))"},
		{"f(1, g(x), \"s\");", "(expr (call f 1 (call g x) \"s\"))"},
		{"f();", "(expr (call f))"},
		{"'a' != 'b';", "(expr (!= (char 97) (char 98)))"},
		{"Point { x: 1, y: true };", "(expr (new Point x=1 y=true))"},
		{"Empty {};", "(expr (new Empty))"},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			be.Equal(t, sexpr(stmt(t, tc.src)), tc.want)
		})
	}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"let x = 5;", "(let x 5)"},
		{"let p: &Point = &q;", "(let p &Point (& q))"},
		{"x = x + 1;", "(= x (+ x 1))"},
		{"*p = 3;", "(= (* p) 3)"},
		{"a[i].f = 0;", "(= (. (index a i) f) 0)"},
		{"while x < 10 x = x + 1;", "(while (< x 10) (block (= x (+ x 1))))"},
		{"return;", "(return _)"},
		{"{ let a = 1; { a; } }", "(block (let a 1) (block (expr a)))"},
		{"struct Point { x: int, y: &char }", "(struct Point x:int y:&char)"},
		{"struct Trailing { a: int, }", "(struct Trailing a:int)"},
		{"fn add(a: int, b: int) -> int { return a + b; }", "(fn add (a:int b:int) -> int (block (return (+ a b))))"},
		{"fn main() return 0;", "(fn main () (block (return 0)))"},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			be.Equal(t, sexpr(stmt(t, tc.src)), tc.want)
		})
	}
}

func TestIfChain(t *testing.T) {
	src := "if a { x; } else if b { y; } else if c z; else { w; }"
	want := "(if [a (block (expr x))] [b (block (expr y))] [c (block (expr z))] [_ (block (expr w))])"
	be.Equal(t, sexpr(stmt(t, src)), want)

	n := stmt(t, "if a { x; }")
	be.Equal(t, len(n.Data.(ast.IfNode).Arms), 1)
}

func TestStructLiteralInCondition(t *testing.T) {
	// The brace after a bare name opens the body.
	n := stmt(t, "if p { x; }")
	be.Equal(t, sexpr(n), "(if [p (block (expr x))])")

	// Parentheses and call arguments re-enable construction.
	n = stmt(t, "while (P { a: 1 }).a < f(Q { b: 2 }) { }")
	be.Equal(t, sexpr(n), "(while (< (. (new P a=1) a) (call f (new Q b=2))) (block))")
}

func TestSpans(t *testing.T) {
	src := "let total = (a + b) * c;"
	n := stmt(t, src)
	be.Equal(t, n.Span, token.Span{Start: 0, End: len(src)})

	let := n.Data.(ast.LetNode)
	be.Equal(t, src[let.NameSpan.Start:let.NameSpan.End], "total")
	be.Equal(t, src[let.Value.Span.Start:let.Value.Span.End], "(a + b) * c")

	left := let.Value.Data.(ast.BinaryOpNode).Left
	be.Equal(t, src[left.Span.Start:left.Span.End], "(a + b)")
	be.Equal(t, src[let.Value.Tok.Span.Start:let.Value.Tok.Span.End], "*")

	src = "foo.bar[1 + 2]"
	toks, _ := lexer.Tokenize(src+";", config.NewConfig())
	root, err := Parse(toks)
	be.Err(t, err, nil)
	expr := root.Data.(ast.BlockNode).Stmts[0].Data.(ast.ExprStmtNode).Expr
	be.Equal(t, expr.Span, token.Span{Start: 0, End: len(src)})
}

func TestWalk(t *testing.T) {
	root := parse(t, "fn f(a: int) -> int { return a + 1; }")
	var seen []string
	ast.Walk(root, func(n *ast.Node) bool {
		seen = append(seen, n.Type.String())
		return n.Type != ast.Return
	})
	be.Equal(t, seen[len(seen)-1], ast.Return.String())
	be.Equal(t, seen[0], ast.Block.String())
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind util.ErrorKind
		at   string
	}{
		{"missing semicolon", "let x = 1\nlet y = 2;", util.MissingSemicolon, ""},
		{"expected expression", "let x = ;", util.Expected, ";"},
		{"expected type", "let x: 5 = 1;", util.Expected, "5"},
		{"unterminated paren", "f(1, 2", util.UnterminatedBracket, "("},
		{"unterminated block", "fn main() { let x = 1;", util.UnterminatedBracket, "{"},
		{"duplicate struct field", "struct P { x: int, x: int }", util.DuplicateField, "x"},
		{"duplicate literal field", "P { a: 1, a: 2 };", util.DuplicateField, "a"},
		{"eof in let", "let x =", util.UnexpectedEOF, ""},
		{"nested fn", "fn f() { fn g() {} }", util.Expected, "fn"},
		{"missing arrow type", "fn f() -> { }", util.Expected, "{"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := parseErr(t, tc.src)
			be.Equal(t, e.Kind, tc.kind)
			be.Equal(t, e.Kind.Stage(), util.StageParse)
			if tc.at != "" {
				span := e.Span()
				be.Equal(t, tc.src[span.Start:span.End], tc.at)
			}
		})
	}
}

func TestMissingSemicolonSpan(t *testing.T) {
	e := parseErr(t, "let x = 1\nlet y = 2;")
	// Points just past the last token of the statement.
	be.Equal(t, e.Span(), token.Span{Start: 9, End: 9})
	be.Equal(t, len(e.Spans), 2)
}

func TestDuplicateFieldRelatedSpan(t *testing.T) {
	src := "struct P { x: int, x: int }"
	e := parseErr(t, src)
	be.Equal(t, len(e.Spans), 2)
	be.Equal(t, e.Spans[1], token.Span{Start: 11, End: 12})
}

func TestEmptyProgram(t *testing.T) {
	root := parse(t, "// nothing here\n")
	be.Equal(t, root.Type, ast.Block)
	be.Equal(t, len(root.Data.(ast.BlockNode).Stmts), 0)
}
