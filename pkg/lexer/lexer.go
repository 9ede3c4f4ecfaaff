package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/token"
	"github.com/ferrite-lang/ferrc/pkg/util"
)

type Lexer struct {
	source string
	pos    int
	line   int
	column int
	cfg    *config.Config
}

func NewLexer(source string, cfg *config.Config) *Lexer {
	return &Lexer{source: source, line: 1, column: 1, cfg: cfg}
}

// Tokenize lexes the whole source. The returned slice always ends with an
// EOF token whose span is the empty range at the end of input.
func Tokenize(source string, cfg *config.Config) ([]token.Token, error) {
	l := NewLexer(source, cfg)
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

// Next returns the next significant token. Recognizers run in a fixed
// priority order: comment, string, char, keyword, number, identifier, symbol.
func (l *Lexer) Next() (token.Token, error) {
	for {
		l.skipWhitespace()
		startPos, startCol, startLine := l.pos, l.column, l.line

		if l.isAtEnd() {
			return l.makeToken(token.EOF, "", startPos, startCol, startLine), nil
		}

		isComment, err := l.comment()
		if err != nil {
			return token.Token{}, err
		}
		if isComment {
			continue
		}

		ch := l.peek()
		switch {
		case ch == '"':
			return l.stringLiteral(startPos, startCol, startLine)
		case ch == '\'' && l.cfg.IsFeatureEnabled(config.FeatCharLiterals):
			return l.charLiteral(startPos, startCol, startLine)
		case isIdentStart(ch):
			return l.keywordOrIdentifier(startPos, startCol, startLine), nil
		case ch >= '0' && ch <= '9':
			return l.numberLiteral(startPos, startCol, startLine)
		}

		for _, sym := range token.Symbols {
			if strings.HasPrefix(l.source[l.pos:], sym.Text) {
				for range sym.Text {
					l.advance()
				}
				return l.makeToken(sym.Type, "", startPos, startCol, startLine), nil
			}
		}

		l.advance()
		return token.Token{}, util.NewError(util.UnexpectedToken, token.Span{Start: startPos, End: l.pos}, "unexpected character '%c'", ch)
	}
}

func isIdentStart(ch rune) bool { return unicode.IsLetter(ch) || ch == '_' }

func isIdentPart(ch rune) bool { return isIdentStart(ch) || unicode.IsDigit(ch) }

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.source[l.pos:])
	return r
}

func (l *Lexer) peekNext() rune {
	if l.isAtEnd() {
		return 0
	}
	_, size := utf8.DecodeRuneInString(l.source[l.pos:])
	if l.pos+size >= len(l.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.source[l.pos+size:])
	return r
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch, size := utf8.DecodeRuneInString(l.source[l.pos:])
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos += size
	return ch
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value,
		Span: token.Span{Start: startPos, End: l.pos},
		Line: startLine, Column: startCol,
	}
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		default:
			return
		}
	}
}

// comment consumes one comment if the input is positioned at one.
func (l *Lexer) comment() (bool, error) {
	if l.peek() != '/' {
		return false, nil
	}
	switch l.peekNext() {
	case '/':
		for !l.isAtEnd() && l.peek() != '\n' {
			l.advance()
		}
		return true, nil
	case '*':
		if !l.cfg.IsFeatureEnabled(config.FeatCComments) {
			return false, nil
		}
		start := l.pos
		l.advance()
		l.advance()
		for !l.isAtEnd() {
			if l.peek() == '*' && l.peekNext() == '/' {
				l.advance()
				l.advance()
				return true, nil
			}
			l.advance()
		}
		return false, util.NewError(util.UnterminatedComment, token.Span{Start: start, End: start + 2}, "unterminated block comment")
	}
	return false, nil
}

func (l *Lexer) keywordOrIdentifier(startPos, startCol, startLine int) token.Token {
	for isIdentPart(l.peek()) {
		l.advance()
	}
	value := l.source[startPos:l.pos]
	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		return l.makeToken(tokType, "", startPos, startCol, startLine)
	}
	return l.makeToken(token.Ident, value, startPos, startCol, startLine)
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) (token.Token, error) {
	base := 10
	if l.peek() == '0' && (l.peekNext() == 'x' || l.peekNext() == 'X') {
		base = 16
		l.advance()
		l.advance()
		for isHexDigit(l.peek()) {
			l.advance()
		}
	} else {
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	// 12abc is one malformed literal, not a number followed by a name
	for isIdentPart(l.peek()) {
		l.advance()
	}

	valueStr := l.source[startPos:l.pos]
	tok := l.makeToken(token.Number, "", startPos, startCol, startLine)
	digits := valueStr
	if base == 16 {
		digits = valueStr[2:]
	}
	val, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return token.Token{}, util.NewError(util.InvalidNumber, tok.Span, "invalid number literal '%s'", valueStr)
	}
	tok.Value = strconv.FormatInt(val, 10)
	return tok, nil
}

func isHexDigit(ch rune) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func (l *Lexer) stringLiteral(startPos, startCol, startLine int) (token.Token, error) {
	l.advance()
	var sb strings.Builder
	for !l.isAtEnd() {
		c := l.peek()
		if c == '"' {
			l.advance()
			return l.makeToken(token.String, sb.String(), startPos, startCol, startLine), nil
		}
		if c == '\\' {
			b, err := l.decodeEscape()
			if err != nil {
				return token.Token{}, err
			}
			sb.WriteByte(b)
			continue
		}
		l.advance()
		sb.WriteRune(c)
	}
	return token.Token{}, util.NewError(util.UnterminatedQuote, token.Span{Start: startPos, End: l.pos}, "unterminated string literal")
}

func (l *Lexer) charLiteral(startPos, startCol, startLine int) (token.Token, error) {
	l.advance()
	var val byte
	switch c := l.peek(); {
	case l.isAtEnd() || c == '\n':
		return token.Token{}, util.NewError(util.UnterminatedQuote, token.Span{Start: startPos, End: l.pos}, "unterminated character literal")
	case c == '\\':
		b, err := l.decodeEscape()
		if err != nil {
			return token.Token{}, err
		}
		val = b
	case c > unicode.MaxASCII:
		l.advance()
		return token.Token{}, util.NewError(util.UnexpectedToken, token.Span{Start: startPos, End: l.pos}, "character literal '%c' does not fit in a byte", c)
	default:
		l.advance()
		val = byte(c)
	}
	if l.peek() != '\'' {
		return token.Token{}, util.NewError(util.UnterminatedQuote, token.Span{Start: startPos, End: l.pos}, "unterminated character literal")
	}
	l.advance()
	return l.makeToken(token.Char, strconv.Itoa(int(val)), startPos, startCol, startLine), nil
}

var escapes = map[rune]byte{
	'n': '\n', 't': '\t', 'r': '\r', '0': 0,
	'\\': '\\', '"': '"', '\'': '\'',
}

// decodeEscape consumes a backslash sequence and returns the byte it denotes.
func (l *Lexer) decodeEscape() (byte, error) {
	start := l.pos
	l.advance()
	if l.isAtEnd() {
		return 0, util.NewError(util.UnterminatedQuote, token.Span{Start: start, End: l.pos}, "unterminated escape sequence")
	}
	c := l.advance()
	if val, ok := escapes[c]; ok {
		return val, nil
	}
	return 0, util.NewError(util.UnknownEscapeSequence, token.Span{Start: start, End: l.pos}, "unknown escape sequence '\\%c'", c)
}
