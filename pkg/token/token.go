package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Comment
	Ident
	Number
	String
	Char
	Fn
	Let
	Struct
	If
	Else
	While
	Return
	True
	False
	IntKeyword
	BoolKeyword
	CharKeyword
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Colon
	Dot
	Arrow
	Eq
	Plus
	Minus
	Star
	Slash
	And
	EqEq
	Neq
	Lt
	Gt
	Lte
	Gte
)

var KeywordMap = map[string]Type{
	"fn":     Fn,
	"let":    Let,
	"struct": Struct,
	"if":     If,
	"else":   Else,
	"while":  While,
	"return": Return,
	"true":   True,
	"false":  False,
	"int":    IntKeyword,
	"bool":   BoolKeyword,
	"char":   CharKeyword,
}

// Symbols lists the operator and punctuation spellings, longest first so a
// prefix scan always prefers the multi-character form.
var Symbols = []struct {
	Text string
	Type Type
}{
	{"->", Arrow}, {"==", EqEq}, {"!=", Neq}, {"<=", Lte}, {">=", Gte},
	{"(", LParen}, {")", RParen}, {"{", LBrace}, {"}", RBrace},
	{"[", LBracket}, {"]", RBracket}, {";", Semi}, {",", Comma},
	{":", Colon}, {".", Dot}, {"=", Eq}, {"+", Plus}, {"-", Minus},
	{"*", Star}, {"/", Slash}, {"&", And}, {"<", Lt}, {">", Gt},
}

// Reverse mapping from Type to its source spelling
var TypeStrings = map[Type]string{
	EOF:     "end of input",
	Comment: "comment",
	Ident:   "identifier",
	Number:  "number",
	String:  "string literal",
	Char:    "character literal",
}

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for _, sym := range Symbols {
		TypeStrings[sym.Type] = sym.Text
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word.
func (t Type) IsKeyword() bool { return t >= Fn && t <= CharKeyword }

// Span is a half-open byte range [Start, End) into the source text.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

// Union returns the smallest span covering both s and o.
func (s Span) Union(o Span) Span {
	u := s
	if o.Start < u.Start {
		u.Start = o.Start
	}
	if o.End > u.End {
		u.End = o.End
	}
	return u
}

// Contains reports whether offset falls inside s. An empty span contains
// its own start so end-of-input errors can still be located.
func (s Span) Contains(offset int) bool {
	if s.Len() == 0 {
		return offset == s.Start
	}
	return offset >= s.Start && offset < s.End
}

func (s Span) String() string { return fmt.Sprintf("%d..%d", s.Start, s.End) }

type Token struct {
	Type   Type
	Value  string
	Span   Span
	Line   int
	Column int
}

func (t Token) String() string {
	switch t.Type {
	case Ident, Number, String, Char:
		return fmt.Sprintf("%s(%s)", t.Type, t.Value)
	}
	return t.Type.String()
}
