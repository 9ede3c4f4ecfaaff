package token

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestSpanUnion(t *testing.T) {
	a := Span{Start: 4, End: 7}
	b := Span{Start: 1, End: 5}
	be.Equal(t, a.Union(b), Span{Start: 1, End: 7})
	be.Equal(t, b.Union(a), Span{Start: 1, End: 7})
	be.Equal(t, a.Union(a), a)
}

func TestSpanContains(t *testing.T) {
	s := Span{Start: 2, End: 4}
	be.True(t, !s.Contains(1))
	be.True(t, s.Contains(2))
	be.True(t, s.Contains(3))
	be.True(t, !s.Contains(4))

	eof := Span{Start: 9, End: 9}
	be.True(t, eof.Contains(9))
}

func TestTokenString(t *testing.T) {
	be.Equal(t, Token{Type: Ident, Value: "a"}.String(), "identifier(a)")
	be.Equal(t, Token{Type: Let}.String(), "let")
	be.Equal(t, Token{Type: Arrow}.String(), "->")
	be.Equal(t, Token{Type: EOF}.String(), "end of input")
}

func TestSymbolsLongestFirst(t *testing.T) {
	seenSingle := false
	for _, sym := range Symbols {
		if len(sym.Text) == 1 {
			seenSingle = true
		} else {
			be.True(t, !seenSingle)
		}
	}
}

func TestKeywords(t *testing.T) {
	for word, typ := range KeywordMap {
		be.True(t, typ.IsKeyword())
		be.Equal(t, typ.String(), word)
	}
	be.True(t, !Ident.IsKeyword())
}
