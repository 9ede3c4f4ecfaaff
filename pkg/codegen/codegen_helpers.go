package codegen

import (
	"github.com/ferrite-lang/ferrc/pkg/ast"
	"github.com/ferrite-lang/ferrc/pkg/ir"
	"github.com/ferrite-lang/ferrc/pkg/resolver"
	"github.com/ferrite-lang/ferrc/pkg/token"
	"github.com/ferrite-lang/ferrc/pkg/types"
	"github.com/ferrite-lang/ferrc/pkg/util"
)

var binaryOps = map[token.Type]ir.Op{
	token.Plus: ir.OpAdd, token.Minus: ir.OpSub, token.Star: ir.OpMul, token.Slash: ir.OpDiv,
	token.EqEq: ir.OpCEq, token.Neq: ir.OpCNeq, token.Lt: ir.OpCLt, token.Gt: ir.OpCGt,
	token.Lte: ir.OpCLe, token.Gte: ir.OpCGe,
}

// codegenExpr lowers an expression to a sequence with a net effect of one
// push. Struct-typed expressions push their address.
func (ctx *Context) codegenExpr(node *ast.Node) (*ir.Builder, error) {
	switch node.Type {
	case ast.Number:
		return ir.NewBuilder(&ir.Push{Meta: meta(node, ""), Value: node.Data.(ast.NumberNode).Value}), nil
	case ast.Bool:
		v := int64(0)
		if node.Data.(ast.BoolNode).Value {
			v = 1
		}
		return ir.NewBuilder(&ir.Push{Meta: meta(node, ""), Value: v}), nil
	case ast.Char:
		return ir.NewBuilder(&ir.Push{Meta: meta(node, ""), Value: int64(node.Data.(ast.CharNode).Value)}), nil
	case ast.String:
		idx := ctx.prog.AddGlobal([]byte(node.Data.(ast.StringNode).Value), node.Span)
		return ir.NewBuilder(&ir.PushData{Meta: meta(node, ""), Index: idx}), nil
	case ast.Ident:
		return ctx.codegenIdent(node)
	case ast.Unary:
		return ctx.codegenUnaryOp(node)
	case ast.AddressOf:
		if _, err := ctx.res.TypeOf(node); err != nil {
			return nil, err
		}
		return ctx.codegenAddress(node.Data.(ast.AddressOfNode).Expr)
	case ast.Deref:
		return ctx.codegenIndirection(node)
	case ast.BinaryOp:
		return ctx.codegenBinaryOp(node)
	case ast.Subscript, ast.MemberAccess:
		t, err := ctx.res.ValueTypeOf(node)
		if err != nil {
			return nil, err
		}
		addr, err := ctx.codegenAddress(node)
		if err != nil {
			return nil, err
		}
		if t.IsStruct() {
			return addr, nil
		}
		return addr.Append(&ir.Deref{Meta: meta(node, ""), Width: ctx.accessWidth(node, t)}), nil
	case ast.FuncCall:
		return ctx.codegenFuncCall(node)
	case ast.StructLit:
		return ctx.codegenStructLiteral(node)
	}
	return nil, util.NewError(util.WrongType, node.Span, "%s is not an expression", node.Type)
}

func (ctx *Context) codegenIdent(node *ast.Node) (*ir.Builder, error) {
	t, err := ctx.res.TypeOf(node)
	if err != nil {
		return nil, err
	}
	name := node.Data.(ast.IdentNode).Name
	b, _ := ctx.res.Lookup(name)
	switch {
	case b.Kind == resolver.BindFunc:
		return nil, util.NewError(util.WrongType, node.Span, "function '%s' used as a value", name).With(b.Span)
	case t.IsStruct():
		return ir.NewBuilder(&ir.AddressOf{Meta: meta(node, name), Slot: b.Slot}), nil
	}
	return ir.NewBuilder(&ir.Load{Meta: meta(node, name), Slot: b.Slot}), nil
}

// codegenAddress pushes the address an lvalue designates. Other values are
// spilled to a temporary slot first so `&expr` always has an address.
func (ctx *Context) codegenAddress(node *ast.Node) (*ir.Builder, error) {
	t, err := ctx.res.ValueTypeOf(node)
	if err != nil {
		return nil, err
	}
	switch node.Type {
	case ast.Ident:
		name := node.Data.(ast.IdentNode).Name
		b, _ := ctx.res.Lookup(name)
		if b.Kind == resolver.BindFunc {
			return nil, util.NewError(util.WrongType, node.Span, "cannot take the address of function '%s'", name)
		}
		return ir.NewBuilder(&ir.AddressOf{Meta: meta(node, name), Slot: b.Slot}), nil

	case ast.Deref:
		// the pointer value is the address
		return ctx.codegenExpr(node.Data.(ast.DerefNode).Expr)

	case ast.Subscript:
		d := node.Data.(ast.SubscriptNode)
		out, err := ctx.codegenExpr(d.Array)
		if err != nil {
			return nil, err
		}
		index, err := ctx.codegenExpr(d.Index)
		if err != nil {
			return nil, err
		}
		return out.Concat(index).
			Append(&ir.Push{Meta: meta(node, "element size"), Value: int64(ctx.res.ElemSize(t))}).
			Append(&ir.Binary{Meta: meta(node, ""), Op: ir.OpMul}).
			Append(&ir.Binary{Meta: meta(node, ""), Op: ir.OpAdd}), nil

	case ast.MemberAccess:
		d := node.Data.(ast.MemberAccessNode)
		_, field, err := ctx.res.FieldOf(node)
		if err != nil {
			return nil, err
		}
		base, err := ctx.codegenExpr(d.Expr)
		if err != nil {
			return nil, err
		}
		return ir.NewBuilder(&ir.Push{Meta: meta(node, "offset of "+field.Name), Value: int64(field.Offset)}).
			Concat(base).
			Append(&ir.Binary{Meta: meta(node, ""), Op: ir.OpSub}), nil
	}

	out, err := ctx.codegenExpr(node)
	if err != nil {
		return nil, err
	}
	if t.IsStruct() {
		return out, nil
	}
	slot := ctx.res.AllocTemp(t)
	return out.Append(&ir.Store{Meta: meta(node, "spill"), Slot: slot}).
		Append(&ir.AddressOf{Meta: meta(node, ""), Slot: slot}), nil
}

func (ctx *Context) codegenUnaryOp(node *ast.Node) (*ir.Builder, error) {
	if _, err := ctx.res.TypeOf(node); err != nil {
		return nil, err
	}
	out, err := ctx.codegenExpr(node.Data.(ast.UnaryNode).Expr)
	if err != nil {
		return nil, err
	}
	return out.Append(&ir.Push{Meta: meta(node, ""), Value: 0}).
		Append(&ir.Binary{Meta: meta(node, "negate"), Op: ir.OpSub}), nil
}

func (ctx *Context) codegenIndirection(node *ast.Node) (*ir.Builder, error) {
	t, err := ctx.res.ValueTypeOf(node)
	if err != nil {
		return nil, err
	}
	out, err := ctx.codegenExpr(node.Data.(ast.DerefNode).Expr)
	if err != nil {
		return nil, err
	}
	if t.IsStruct() {
		return out, nil
	}
	return out.Append(&ir.Deref{Meta: meta(node, ""), Width: ctx.res.ElemSize(t)}), nil
}

// codegenBinaryOp evaluates the right operand first so the left one ends
// up on top of the operand stack.
func (ctx *Context) codegenBinaryOp(node *ast.Node) (*ir.Builder, error) {
	if _, err := ctx.res.TypeOf(node); err != nil {
		return nil, err
	}
	d := node.Data.(ast.BinaryOpNode)
	lt, _ := ctx.res.ValueTypeOf(d.Left)
	rt, _ := ctx.res.ValueTypeOf(d.Right)
	op := binaryOps[d.Op]

	left, err := ctx.codegenExpr(d.Left)
	if err != nil {
		return nil, err
	}
	right, err := ctx.codegenExpr(d.Right)
	if err != nil {
		return nil, err
	}

	switch {
	case lt.IsPointer() && rt.IsPrim(types.Int):
		size := int64(ctx.res.ElemSize(lt.Elem))
		return right.
			Append(&ir.Push{Meta: meta(d.Right, "pointee size"), Value: size}).
			Append(&ir.Binary{Meta: meta(d.Right, "scale"), Op: ir.OpMul}).
			Concat(left).
			Append(&ir.Binary{Meta: meta(node, ""), Op: op}), nil

	case lt.IsPointer() && op == ir.OpSub:
		// distance in elements
		size := int64(ctx.res.ElemSize(lt.Elem))
		return ir.NewBuilder(&ir.Push{Meta: meta(node, "pointee size"), Value: size}).
			Concat(right).
			Concat(left).
			Append(&ir.Binary{Meta: meta(node, ""), Op: ir.OpSub}).
			Append(&ir.Binary{Meta: meta(node, ""), Op: ir.OpDiv}), nil
	}
	return right.Concat(left).Append(&ir.Binary{Meta: meta(node, ""), Op: op}), nil
}

func (ctx *Context) codegenFuncCall(node *ast.Node) (*ir.Builder, error) {
	if _, err := ctx.res.TypeOf(node); err != nil {
		return nil, err
	}
	d := node.Data.(ast.FuncCallNode)
	name, _ := resolver.CalleeName(d)

	if ctx.res.IsSyscall(name) {
		for _, arg := range d.Args {
			t, err := ctx.res.ValueTypeOf(arg)
			if err != nil {
				return nil, err
			}
			if t.Kind != types.Value && t.Kind != types.Pointer {
				return nil, util.NewError(util.WrongType, arg.Span, "cannot pass %s to a system call", ctx.res.Describe(t))
			}
		}
		out, err := ctx.codegenArgs(d.Args)
		if err != nil {
			return nil, err
		}
		return out.Append(&ir.Syscall{Meta: meta(node, name), Name: name, Argc: len(d.Args)}), nil
	}

	fn, err := ctx.res.LookupFunc(name, d.Callee.Span)
	if err != nil {
		return nil, err
	}
	if len(d.Args) != len(fn.Params) {
		return nil, util.NewError(util.ArgumentCount, node.Span, "'%s' takes %d arguments, got %d", name, len(fn.Params), len(d.Args)).With(fn.Span)
	}
	for i, arg := range d.Args {
		t, err := ctx.res.ValueTypeOf(arg)
		if err != nil {
			return nil, err
		}
		if !types.Equal(t, fn.Params[i]) {
			return nil, util.NewError(util.WrongType, arg.Span, "wrong type for argument %d of '%s': got %s, expected %s",
				i+1, name, ctx.res.Describe(t), ctx.res.Describe(fn.Params[i]))
		}
	}
	out, err := ctx.codegenArgs(d.Args)
	if err != nil {
		return nil, err
	}
	return out.Append(&ir.Call{Meta: meta(node, name), Func: fn.ID, Name: name, Argc: len(d.Args)}), nil
}

// codegenArgs pushes arguments last to first, leaving the first on top.
func (ctx *Context) codegenArgs(args []*ast.Node) (*ir.Builder, error) {
	out := ir.NewBuilder()
	for i := len(args) - 1; i >= 0; i-- {
		b, err := ctx.codegenExpr(args[i])
		if err != nil {
			return nil, err
		}
		out.Concat(b)
	}
	return out, nil
}

// codegenStructLiteral fills anonymous slots field by field and pushes the
// address of the first one.
func (ctx *Context) codegenStructLiteral(node *ast.Node) (*ir.Builder, error) {
	t, err := ctx.res.ValueTypeOf(node)
	if err != nil {
		return nil, err
	}
	d := node.Data.(ast.StructLitNode)
	info := ctx.res.Structs[t.ID]
	base := ctx.res.AllocTemp(t)

	out := ir.NewBuilder()
	for _, fi := range d.Fields {
		field, _ := info.Field(fi.Name)
		value, err := ctx.codegenExpr(fi.Value)
		if err != nil {
			return nil, err
		}
		out.Concat(value)
		slot := base + field.Offset/ctx.wordSize
		if field.Type.IsStruct() {
			out.Append(&ir.CopyToSlot{Meta: meta(fi.Value, d.Name+"."+fi.Name), Slot: slot, Words: ctx.res.Slots(field.Type)})
		} else {
			out.Append(&ir.Store{Meta: meta(fi.Value, d.Name+"."+fi.Name), Slot: slot})
		}
	}
	return out.Append(&ir.AddressOf{Meta: meta(node, d.Name), Slot: base}), nil
}
