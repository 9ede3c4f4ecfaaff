// Package hover answers cursor queries against a source text with token
// descriptions and compiler diagnostics.
package hover

import (
	"errors"
	"fmt"

	"github.com/ferrite-lang/ferrc/pkg/ast"
	"github.com/ferrite-lang/ferrc/pkg/compiler"
	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/token"
	"github.com/ferrite-lang/ferrc/pkg/util"
)

// Request asks about the 0-based Line and Character of Source.
type Request struct {
	ID        int    `json:"id"`
	Source    string `json:"source"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

// Diagnostic is a compile error. Start and End are byte offsets; Line and
// Column are 1-based.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

type Response struct {
	ID         int         `json:"id"`
	Contents   string      `json:"contents"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
}

type outcome struct {
	tokens []token.Token
	root   *ast.Node
	err    *util.Error
}

// Service compiles sources on demand and caches the results.
type Service struct {
	cfg   *config.Config
	cache *Cache
}

func NewService(cfg *config.Config, cacheSize int) *Service {
	return &Service{cfg: cfg, cache: NewCache(cacheSize)}
}

func (s *Service) compile(source string) *outcome {
	if out, ok := s.cache.Get(source); ok {
		return out
	}
	res, err := compiler.Compile(source, s.cfg)
	out := &outcome{tokens: res.Tokens, root: res.AST}
	if err != nil {
		var e *util.Error
		if !errors.As(err, &e) {
			e = util.NewError(util.UnexpectedToken, token.Span{}, "%v", err)
		}
		out.err = e
	}
	s.cache.Put(source, out)
	return out
}

func (s *Service) Hover(req Request) Response {
	file := util.SourceFile{Name: "<hover>", Content: req.Source}
	offset := file.Offset(req.Line, req.Character)
	out := s.compile(req.Source)
	resp := Response{ID: req.ID}

	if out.err != nil {
		span := out.err.Span()
		line, col := file.Position(span.Start)
		resp.Diagnostic = &Diagnostic{
			Kind:    out.err.Kind.String(),
			Stage:   out.err.Kind.Stage().String(),
			Message: out.err.Msg,
			Start:   span.Start,
			End:     span.End,
			Line:    line,
			Column:  col,
		}
		for _, sp := range out.err.Spans {
			if sp.Contains(offset) {
				resp.Contents = util.Render(file, out.err)
				return resp
			}
		}
	}

	for _, tok := range out.tokens {
		if tok.Type != token.EOF && tok.Span.Contains(offset) {
			resp.Contents = describeToken(tok, req.Source)
			if n := enclosing(out.root, tok.Span); n != nil {
				resp.Contents += fmt.Sprintf(" (in %s)", n.Type)
			}
			break
		}
	}
	return resp
}

func describeToken(tok token.Token, source string) string {
	text := source[tok.Span.Start:tok.Span.End]
	switch {
	case tok.Type == token.Ident:
		return fmt.Sprintf("identifier `%s`", text)
	case tok.Type == token.Number:
		return fmt.Sprintf("number %s", tok.Value)
	case tok.Type == token.String, tok.Type == token.Char:
		return fmt.Sprintf("%s %s", tok.Type, text)
	case tok.Type.IsKeyword():
		return fmt.Sprintf("keyword `%s`", text)
	}
	return fmt.Sprintf("symbol `%s`", text)
}

// enclosing finds the smallest node strictly larger than span that covers
// it. The top-level block is not reported.
func enclosing(root *ast.Node, span token.Span) *ast.Node {
	var found *ast.Node
	ast.Walk(root, func(n *ast.Node) bool {
		if !n.Span.Contains(span.Start) || n.Span.End < span.End {
			return false
		}
		if n != root && n.Span != span {
			found = n
		}
		return true
	})
	return found
}
