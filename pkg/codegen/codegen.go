package codegen

import (
	"github.com/ferrite-lang/ferrc/pkg/ast"
	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/ir"
	"github.com/ferrite-lang/ferrc/pkg/resolver"
	"github.com/ferrite-lang/ferrc/pkg/token"
	"github.com/ferrite-lang/ferrc/pkg/types"
	"github.com/ferrite-lang/ferrc/pkg/util"
)

// Context lowers one syntax tree into an ir.Program. It is single-use.
type Context struct {
	prog     *ir.Program
	res      *resolver.Resolver
	cfg      *config.Config
	wordSize int
	warnings []util.Warning
}

func NewContext(cfg *config.Config) *Context {
	return &Context{
		prog:     &ir.Program{},
		res:      resolver.New(cfg),
		cfg:      cfg,
		wordSize: cfg.WordSize,
	}
}

// Resolver exposes the scope and registry state, mainly for tests.
func (ctx *Context) Resolver() *resolver.Resolver { return ctx.res }

func meta(node *ast.Node, comment string) ir.Meta {
	return ir.Meta{Span: node.Span, Comment: comment}
}

func (ctx *Context) warn(w config.Warning, span token.Span, msg string) {
	if !ctx.cfg.IsWarningEnabled(w) {
		return
	}
	ctx.warnings = append(ctx.warnings, util.Warning{Name: ctx.cfg.WarningName(w), Msg: msg, Span: span})
}

// GenerateIR lowers the top-level block produced by the parser. The first
// error aborts lowering; no partial program is returned.
func (ctx *Context) GenerateIR(root *ast.Node) (*ir.Program, []util.Warning, error) {
	entry := ir.NewBuilder()
	stmts := root.Data.(ast.BlockNode).Stmts
	for _, node := range stmts {
		switch node.Type {
		case ast.StructDecl:
			if _, err := ctx.res.DeclareStruct(node); err != nil {
				return nil, nil, err
			}
		case ast.FuncDecl:
			if err := ctx.codegenFuncDecl(node); err != nil {
				return nil, nil, err
			}
		default:
			b, err := ctx.codegenStmt(node)
			if err != nil {
				return nil, nil, err
			}
			entry.Concat(b)
		}
	}

	mainFn, err := ctx.findMain(root)
	if err != nil {
		return nil, nil, err
	}
	end := token.Span{Start: root.Span.End, End: root.Span.End}
	ctx.prog.Entry = ir.NewBuilder(&ir.AllocFrame{Meta: ir.Meta{Span: root.Span, Comment: "top-level frame"}, Slots: ctx.res.FrameSlots()}).
		Concat(entry).
		Append(&ir.Call{Meta: ir.Meta{Span: end, Comment: "enter main"}, Func: mainFn.ID, Name: mainFn.Name})
	return ctx.prog, ctx.warnings, nil
}

func (ctx *Context) findMain(root *ast.Node) (*resolver.FuncInfo, error) {
	end := token.Span{Start: root.Span.End, End: root.Span.End}
	b, ok := ctx.res.Lookup("main")
	if !ok || b.Kind != resolver.BindFunc {
		return nil, util.NewError(util.MissingMainFunction, end, "program has no 'main' function")
	}
	fn := ctx.res.Funcs[b.Type.ID]
	if len(fn.Params) != 0 {
		return nil, util.NewError(util.MissingMainFunction, fn.Span, "'main' must not take parameters")
	}
	return fn, nil
}

func (ctx *Context) codegenFuncDecl(node *ast.Node) error {
	d := node.Data.(ast.FuncDeclNode)
	info, err := ctx.res.DeclareFunction(node)
	if err != nil {
		return err
	}

	restore := ctx.res.EnterFunction(info)
	defer restore()

	for i, p := range d.Params {
		if _, err := ctx.res.DeclareParam(p.Name, info.Params[i], i, p.Span); err != nil {
			return err
		}
	}
	stmts := d.Body.Data.(ast.BlockNode).Stmts
	body, err := ctx.codegenStmtList(stmts)
	if err != nil {
		return err
	}
	if info.Return != nil && !alwaysReturns(stmts) {
		end := token.Span{Start: d.Body.Span.End - 1, End: d.Body.Span.End}
		ctx.warn(config.WarnExtra, end, "control reaches the end of '"+info.Name+"' without a 'return'")
	}

	fn := &ir.Function{
		ID:         info.ID,
		Name:       info.Name,
		Params:     len(info.Params),
		HasReturn:  info.Return != nil,
		FrameSlots: ctx.res.FrameSlots(),
		Span:       node.Span,
	}
	fn.Body = ir.NewBuilder(&ir.AllocFrame{Meta: meta(node, "frame of "+info.Name), Slots: fn.FrameSlots}).Concat(body)
	ctx.prog.Functions = append(ctx.prog.Functions, fn)
	return nil
}

// alwaysReturns reports whether every path through stmts ends in a return.
// Loops are not followed.
func alwaysReturns(stmts []*ast.Node) bool {
	for _, stmt := range stmts {
		switch stmt.Type {
		case ast.Return:
			return true
		case ast.Block:
			if alwaysReturns(stmt.Data.(ast.BlockNode).Stmts) {
				return true
			}
		case ast.If:
			arms := stmt.Data.(ast.IfNode).Arms
			if arms[len(arms)-1].Cond != nil {
				continue
			}
			all := true
			for _, arm := range arms {
				all = all && alwaysReturns(arm.Body.Data.(ast.BlockNode).Stmts)
			}
			if all {
				return true
			}
		}
	}
	return false
}


func (ctx *Context) codegenBlock(node *ast.Node) (*ir.Builder, error) {
	restore := ctx.res.EnterBlock()
	defer restore()
	return ctx.codegenStmtList(node.Data.(ast.BlockNode).Stmts)
}

func (ctx *Context) codegenStmtList(stmts []*ast.Node) (*ir.Builder, error) {
	out := ir.NewBuilder()
	returned := false
	for _, stmt := range stmts {
		if returned {
			ctx.warn(config.WarnUnreachableCode, stmt.Span, "unreachable code after 'return'")
			returned = false
		}
		b, err := ctx.codegenStmt(stmt)
		if err != nil {
			return nil, err
		}
		out.Concat(b)
		if stmt.Type == ast.Return {
			returned = true
		}
	}
	return out, nil
}

func (ctx *Context) codegenStmt(node *ast.Node) (*ir.Builder, error) {
	switch node.Type {
	case ast.Let:
		return ctx.codegenLet(node)
	case ast.Assign:
		return ctx.codegenAssign(node)
	case ast.ExprStmt:
		expr := node.Data.(ast.ExprStmtNode).Expr
		if expr.Type != ast.FuncCall {
			ctx.warn(config.WarnUnusedValue, expr.Span, "value of "+expr.Type.String()+" is not used")
		}
		b, err := ctx.codegenExpr(expr)
		if err != nil {
			return nil, err
		}
		return b.Append(&ir.Pop{Meta: meta(node, "discard")}), nil
	case ast.If:
		return ctx.codegenIf(node)
	case ast.While:
		return ctx.codegenWhile(node)
	case ast.Return:
		return ctx.codegenReturn(node)
	case ast.Block:
		return ctx.codegenBlock(node)
	case ast.StructDecl, ast.FuncDecl:
		return nil, util.NewError(util.Expected, node.Span, "%s is only allowed at top level", node.Type)
	}
	return nil, util.NewError(util.Expected, node.Span, "expected statement, found %s", node.Type)
}

func (ctx *Context) codegenLet(node *ast.Node) (*ir.Builder, error) {
	d := node.Data.(ast.LetNode)
	t, err := ctx.res.ValueTypeOf(d.Value)
	if err != nil {
		return nil, err
	}
	if d.Type != nil {
		declared, err := ctx.res.ResolveTypeExpr(d.Type)
		if err != nil {
			return nil, err
		}
		if !types.Equal(declared, t) {
			return nil, util.NewError(util.WrongType, d.Value.Span, "wrong type: got %s, expected %s",
				ctx.res.Describe(t), ctx.res.Describe(declared)).With(d.Type.Span)
		}
	}
	if t.Kind == types.Function {
		return nil, util.NewError(util.WrongType, d.Value.Span, "cannot store %s in a variable", ctx.res.Describe(t))
	}

	// the initializer is lowered before the name is bound
	value, err := ctx.codegenExpr(d.Value)
	if err != nil {
		return nil, err
	}
	b, shadowed, err := ctx.res.Declare(d.Name, t, d.NameSpan)
	if err != nil {
		return nil, err
	}
	if shadowed != nil && shadowed.Kind == resolver.BindVar {
		ctx.warn(config.WarnShadow, d.NameSpan, "'"+d.Name+"' shadows an outer declaration")
	}

	if t.IsStruct() {
		return value.Append(&ir.CopyToSlot{Meta: meta(node, "let "+d.Name), Slot: b.Slot, Words: ctx.res.Slots(t)}), nil
	}
	return value.Append(&ir.Store{Meta: meta(node, "let "+d.Name), Slot: b.Slot}), nil
}

func (ctx *Context) codegenAssign(node *ast.Node) (*ir.Builder, error) {
	d := node.Data.(ast.AssignNode)
	t, err := ctx.res.CheckAssign(d.Target, d.Value)
	if err != nil {
		return nil, err
	}
	out, err := ctx.codegenExpr(d.Value)
	if err != nil {
		return nil, err
	}

	if d.Target.Type == ast.Ident {
		name := d.Target.Data.(ast.IdentNode).Name
		b, _ := ctx.res.Lookup(name)
		if t.IsStruct() {
			return out.Append(&ir.CopyToSlot{Meta: meta(node, name), Slot: b.Slot, Words: ctx.res.Slots(t)}), nil
		}
		return out.Append(&ir.Store{Meta: meta(node, name), Slot: b.Slot}), nil
	}

	addr, err := ctx.codegenAddress(d.Target)
	if err != nil {
		return nil, err
	}
	out.Concat(addr)
	if t.IsStruct() {
		return out.Append(&ir.CopyIndirect{Meta: meta(node, ""), Words: ctx.res.Slots(t)}), nil
	}
	return out.Append(&ir.StoreIndirect{Meta: meta(node, ""), Width: ctx.accessWidth(d.Target, t)}), nil
}

// accessWidth is the number of bytes read or written through an lvalue.
// Struct fields always occupy whole words.
func (ctx *Context) accessWidth(node *ast.Node, t *types.Type) int {
	if node.Type == ast.MemberAccess {
		return ctx.wordSize
	}
	return ctx.res.ElemSize(t)
}

func (ctx *Context) codegenCondition(cond *ast.Node) (*ir.Builder, error) {
	t, err := ctx.res.ValueTypeOf(cond)
	if err != nil {
		return nil, err
	}
	if !t.IsPrim(types.Bool) {
		return nil, util.NewError(util.WrongType, cond.Span, "wrong type for condition: got %s, expected bool", ctx.res.Describe(t))
	}
	return ctx.codegenExpr(cond)
}

func (ctx *Context) codegenIf(node *ast.Node) (*ir.Builder, error) {
	d := node.Data.(ast.IfNode)
	proc := &ir.If{Meta: meta(node, "")}
	for _, arm := range d.Arms {
		var cond *ir.Builder
		if arm.Cond != nil {
			var err error
			if cond, err = ctx.codegenCondition(arm.Cond); err != nil {
				return nil, err
			}
		}
		body, err := ctx.codegenBlock(arm.Body)
		if err != nil {
			return nil, err
		}
		proc.Arms = append(proc.Arms, ir.Arm{Cond: cond, Body: body})
	}
	return ir.NewBuilder(proc), nil
}

func (ctx *Context) codegenWhile(node *ast.Node) (*ir.Builder, error) {
	d := node.Data.(ast.WhileNode)
	cond, err := ctx.codegenCondition(d.Cond)
	if err != nil {
		return nil, err
	}
	body, err := ctx.codegenBlock(d.Body)
	if err != nil {
		return nil, err
	}
	return ir.NewBuilder(&ir.While{Meta: meta(node, ""), Cond: cond, Body: body}), nil
}

func (ctx *Context) codegenReturn(node *ast.Node) (*ir.Builder, error) {
	d := node.Data.(ast.ReturnNode)
	fn := ctx.res.Function()
	if fn == nil {
		return nil, util.NewError(util.WrongType, node.Span, "'return' outside of a function")
	}
	if d.Expr == nil {
		if fn.Return != nil {
			return nil, util.NewError(util.WrongType, node.Span, "missing return value, expected %s", ctx.res.Describe(fn.Return))
		}
		return ir.NewBuilder(&ir.Return{Meta: meta(node, "")}), nil
	}
	if fn.Return == nil {
		return nil, util.NewError(util.WrongType, d.Expr.Span, "function '%s' does not return a value", fn.Name).With(fn.Span)
	}
	t, err := ctx.res.ValueTypeOf(d.Expr)
	if err != nil {
		return nil, err
	}
	if !types.Equal(t, fn.Return) {
		return nil, util.NewError(util.WrongType, d.Expr.Span, "wrong type: got %s, expected %s", ctx.res.Describe(t), ctx.res.Describe(fn.Return))
	}
	out, err := ctx.codegenExpr(d.Expr)
	if err != nil {
		return nil, err
	}
	return out.Append(&ir.Return{Meta: meta(node, ""), HasValue: true}), nil
}
