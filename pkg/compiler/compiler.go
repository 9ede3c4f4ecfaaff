// Package compiler runs the whole pipeline: lexing, parsing, lowering and
// assembly generation.
package compiler

import (
	"github.com/ferrite-lang/ferrc/pkg/ast"
	"github.com/ferrite-lang/ferrc/pkg/codegen"
	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/ir"
	"github.com/ferrite-lang/ferrc/pkg/lexer"
	"github.com/ferrite-lang/ferrc/pkg/parser"
	"github.com/ferrite-lang/ferrc/pkg/token"
	"github.com/ferrite-lang/ferrc/pkg/util"
)

// Result holds every intermediate product of a successful compilation.
type Result struct {
	Tokens   []token.Token
	AST      *ast.Node
	IR       *ir.Program
	Asm      string
	Warnings []util.Warning
}

// Stage is called after each pipeline stage completes.
type Stage func(stage util.Stage)

// Compile translates src to assembly. On failure the returned error is the
// first *util.Error encountered and res holds whatever stages finished, so
// callers such as the hover service can still inspect tokens.
func Compile(src string, cfg *config.Config) (*Result, error) {
	return CompileWithProgress(src, cfg, nil)
}

func CompileWithProgress(src string, cfg *config.Config, progress Stage) (*Result, error) {
	done := func(s util.Stage) {
		if progress != nil {
			progress(s)
		}
	}
	res := &Result{}

	toks, err := lexer.Tokenize(src, cfg)
	if err != nil {
		return res, err
	}
	res.Tokens = toks
	done(util.StageLex)

	root, err := parser.Parse(toks)
	if err != nil {
		return res, err
	}
	res.AST = root
	done(util.StageParse)

	prog, warnings, err := codegen.NewContext(cfg).GenerateIR(root)
	if err != nil {
		return res, err
	}
	res.IR, res.Warnings = prog, warnings
	done(util.StageResolve)

	buf, err := codegen.NewBackend(cfg).Generate(prog, cfg)
	if err != nil {
		return res, err
	}
	res.Asm = buf.String()
	done(util.StageCodegen)
	return res, nil
}
