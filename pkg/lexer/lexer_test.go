package lexer

import (
	"testing"

	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/token"
	"github.com/ferrite-lang/ferrc/pkg/util"
	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
)

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func mustLex(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := Tokenize(src, config.NewConfig())
	be.Err(t, err, nil)
	return toks
}

func lexErr(t *testing.T, src string) *util.Error {
	t.Helper()
	_, err := Tokenize(src, config.NewConfig())
	be.True(t, err != nil)
	e, ok := err.(*util.Error)
	be.True(t, ok)
	return e
}

func TestTokenTypes(t *testing.T) {
	toks := mustLex(t, "let x: int = 5 + y;")
	want := []token.Type{
		token.Let, token.Ident, token.Colon, token.IntKeyword, token.Eq,
		token.Number, token.Plus, token.Ident, token.Semi, token.EOF,
	}
	if diff := cmp.Diff(want, types(toks)); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
	be.Equal(t, toks[1].Value, "x")
	be.Equal(t, toks[5].Value, "5")
}

func TestTokenStream(t *testing.T) {
	type tv struct {
		Type  token.Type
		Value string
	}
	tests := []struct {
		src  string
		want []tv
	}{
		{"let a = 5; let b = a + 3;", []tv{
			{token.Let, ""}, {token.Ident, "a"}, {token.Eq, ""}, {token.Number, "5"}, {token.Semi, ""},
			{token.Let, ""}, {token.Ident, "b"}, {token.Eq, ""}, {token.Ident, "a"}, {token.Plus, ""},
			{token.Number, "3"}, {token.Semi, ""}, {token.EOF, ""},
		}},
		{"p.y >= *q;", []tv{
			{token.Ident, "p"}, {token.Dot, ""}, {token.Ident, "y"}, {token.Gte, ""},
			{token.Star, ""}, {token.Ident, "q"}, {token.Semi, ""}, {token.EOF, ""},
		}},
	}
	for _, tc := range tests {
		var got []tv
		for _, tok := range mustLex(t, tc.src) {
			v := ""
			if tok.Type == token.Ident || tok.Type == token.Number {
				v = tok.Value
			}
			got = append(got, tv{tok.Type, v})
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%q: token stream mismatch (-want +got):\n%s", tc.src, diff)
		}
	}
}

func TestSpansCoverSource(t *testing.T) {
	src := "fn main() -> int {\n  return a[1] != 'c';\n}"
	toks := mustLex(t, src)
	for _, tok := range toks[:len(toks)-1] {
		text := src[tok.Span.Start:tok.Span.End]
		switch tok.Type {
		case token.Ident:
			be.Equal(t, text, tok.Value)
		case token.Char:
			be.Equal(t, text, "'c'")
		default:
			if tok.Type != token.Number {
				be.Equal(t, text, tok.Type.String())
			}
		}
	}

	eof := toks[len(toks)-1]
	be.Equal(t, eof.Span, token.Span{Start: len(src), End: len(src)})
}

func TestLineAndColumn(t *testing.T) {
	toks := mustLex(t, "let\n  x")
	be.Equal(t, toks[0].Line, 1)
	be.Equal(t, toks[0].Column, 1)
	be.Equal(t, toks[1].Line, 2)
	be.Equal(t, toks[1].Column, 3)
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := mustLex(t, "while whilex _let let_ true")
	want := []token.Type{token.While, token.Ident, token.Ident, token.Ident, token.True, token.EOF}
	be.Equal(t, types(toks), want)
}

func TestLongestMatch(t *testing.T) {
	toks := mustLex(t, "a->b <= c == d != e >= f = g < h")
	want := []token.Type{
		token.Ident, token.Arrow, token.Ident, token.Lte, token.Ident, token.EqEq,
		token.Ident, token.Neq, token.Ident, token.Gte, token.Ident, token.Eq,
		token.Ident, token.Lt, token.Ident, token.EOF,
	}
	be.Equal(t, types(toks), want)
}

func TestComments(t *testing.T) {
	toks := mustLex(t, "a // line\n/* block\n * more */ b")
	be.Equal(t, types(toks), []token.Type{token.Ident, token.Ident, token.EOF})
	be.Equal(t, toks[1].Value, "b")
}

func TestNumbers(t *testing.T) {
	toks := mustLex(t, "0 42 0x1F 0XfF 007")
	var values []string
	for _, tok := range toks[:len(toks)-1] {
		values = append(values, tok.Value)
	}
	be.Equal(t, values, []string{"0", "42", "31", "255", "7"})
}

func TestStringEscapes(t *testing.T) {
	toks := mustLex(t, `"a\n\t\"b\\\0"`)
	be.Equal(t, toks[0].Type, token.String)
	be.Equal(t, toks[0].Value, "a\n\t\"b\\\x00")
}

func TestCharLiterals(t *testing.T) {
	toks := mustLex(t, `'a' '\n' '\''`)
	be.Equal(t, toks[0].Value, "97")
	be.Equal(t, toks[1].Value, "10")
	be.Equal(t, toks[2].Value, "39")
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind util.ErrorKind
		span token.Span
	}{
		{"stray character", "let a = 1 @ 2;", util.UnexpectedToken, token.Span{Start: 10, End: 11}},
		{"unterminated string", `x = "abc`, util.UnterminatedQuote, token.Span{Start: 4, End: 8}},
		{"unterminated char", `'a`, util.UnterminatedQuote, token.Span{Start: 0, End: 2}},
		{"unknown escape", `"a\qb"`, util.UnknownEscapeSequence, token.Span{Start: 2, End: 4}},
		{"unterminated comment", "a /* b", util.UnterminatedComment, token.Span{Start: 2, End: 4}},
		{"trailing letters", "12abc", util.InvalidNumber, token.Span{Start: 0, End: 5}},
		{"overflow", "99999999999999999999", util.InvalidNumber, token.Span{Start: 0, End: 20}},
		{"bad hex", "0xZ", util.InvalidNumber, token.Span{Start: 0, End: 3}},
		{"wide char", "'é'", util.UnexpectedToken, token.Span{Start: 0, End: 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := lexErr(t, tc.src)
			be.Equal(t, e.Kind, tc.kind)
			be.Equal(t, e.Span(), tc.span)
			be.Equal(t, e.Kind.Stage(), util.StageLex)
		})
	}
}

func TestFeatureToggles(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatCharLiterals, false)
	_, err := Tokenize("'a'", cfg)
	kind, ok := util.KindOf(err)
	be.True(t, ok)
	be.Equal(t, kind, util.UnexpectedToken)

	cfg = config.NewConfig()
	cfg.SetFeature(config.FeatCComments, false)
	toks, err := Tokenize("/* x", cfg)
	be.Err(t, err, nil)
	be.Equal(t, types(toks), []token.Type{token.Slash, token.Star, token.Ident, token.EOF})
}
