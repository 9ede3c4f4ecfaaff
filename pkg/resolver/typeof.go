package resolver

import (
	"strings"

	"github.com/ferrite-lang/ferrc/pkg/ast"
	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/token"
	"github.com/ferrite-lang/ferrc/pkg/types"
	"github.com/ferrite-lang/ferrc/pkg/util"
)

// SyscallPrefix marks names that lower to system calls when undeclared.
const SyscallPrefix = "sys_"

// IsSyscall reports whether a call to an unbound name should become a
// system call.
func (r *Resolver) IsSyscall(name string) bool {
	if !r.cfg.IsFeatureEnabled(config.FeatSyscalls) || !strings.HasPrefix(name, SyscallPrefix) {
		return false
	}
	_, bound := r.Lookup(name)
	return !bound
}

// TypeOf infers the type of an expression in the current scope. It has no
// side effects. A nil type with a nil error means a call to a function
// without a return type.
func (r *Resolver) TypeOf(node *ast.Node) (*types.Type, error) {
	switch node.Type {
	case ast.Number:
		return types.IntType, nil
	case ast.Bool:
		return types.BoolType, nil
	case ast.String:
		return types.NewPointer(types.CharType), nil
	case ast.Char:
		return types.CharType, nil

	case ast.Ident:
		name := node.Data.(ast.IdentNode).Name
		b, ok := r.Lookup(name)
		if !ok {
			return nil, util.NewError(util.UndefinedVariable, node.Span, "undefined variable '%s'", name)
		}
		if b.Kind == BindStruct {
			return nil, util.NewError(util.UndefinedVariable, node.Span, "'%s' is a struct, not a variable", name).With(b.Span)
		}
		return b.Type, nil

	case ast.Unary:
		d := node.Data.(ast.UnaryNode)
		t, err := r.valueTypeOf(d.Expr)
		if err != nil {
			return nil, err
		}
		if !t.IsPrim(types.Int) {
			return nil, util.NewError(util.WrongType, d.Expr.Span, "wrong type: got %s, expected int", r.Describe(t))
		}
		return types.IntType, nil

	case ast.AddressOf:
		t, err := r.valueTypeOf(node.Data.(ast.AddressOfNode).Expr)
		if err != nil {
			return nil, err
		}
		return types.NewPointer(t), nil

	case ast.Deref:
		inner := node.Data.(ast.DerefNode).Expr
		t, err := r.valueTypeOf(inner)
		if err != nil {
			return nil, err
		}
		if !t.IsPointer() {
			return nil, util.NewError(util.DereferenceNonPointer, node.Span, "cannot dereference non-pointer type %s", r.Describe(t)).With(inner.Span)
		}
		return t.Elem, nil

	case ast.BinaryOp:
		return r.typeOfBinary(node)

	case ast.Subscript:
		d := node.Data.(ast.SubscriptNode)
		at, err := r.valueTypeOf(d.Array)
		if err != nil {
			return nil, err
		}
		if !at.IsPointer() {
			return nil, util.NewError(util.IndexNonPointer, d.Array.Span, "cannot index non-pointer type %s", r.Describe(at))
		}
		it, err := r.valueTypeOf(d.Index)
		if err != nil {
			return nil, err
		}
		if !it.IsPrim(types.Int) {
			return nil, util.NewError(util.WrongType, d.Index.Span, "wrong type: got %s, expected int", r.Describe(it))
		}
		return at.Elem, nil

	case ast.MemberAccess:
		_, field, err := r.FieldOf(node)
		if err != nil {
			return nil, err
		}
		return field.Type, nil

	case ast.FuncCall:
		d := node.Data.(ast.FuncCallNode)
		name, err := calleeName(d.Callee)
		if err != nil {
			return nil, err
		}
		if r.IsSyscall(name) {
			return types.IntType, nil
		}
		fn, err := r.LookupFunc(name, d.Callee.Span)
		if err != nil {
			return nil, err
		}
		return fn.Return, nil

	case ast.StructLit:
		info, err := r.checkStructLit(node)
		if err != nil {
			return nil, err
		}
		return types.NewStruct(info.ID), nil
	}
	return nil, util.NewError(util.WrongType, node.Span, "%s is not an expression", node.Type)
}

// valueTypeOf is TypeOf for operands, where a call without a result is an
// error.
func (r *Resolver) valueTypeOf(node *ast.Node) (*types.Type, error) {
	t, err := r.TypeOf(node)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, util.NewError(util.WrongType, node.Span, "call does not produce a value")
	}
	return t, nil
}

// ValueTypeOf infers the type of an expression whose value is used.
func (r *Resolver) ValueTypeOf(node *ast.Node) (*types.Type, error) { return r.valueTypeOf(node) }

func calleeName(callee *ast.Node) (string, error) {
	if callee.Type != ast.Ident {
		return "", util.NewError(util.NotAFunction, callee.Span, "%s is not callable", callee.Type)
	}
	return callee.Data.(ast.IdentNode).Name, nil
}

// CalleeName returns the function name a call refers to.
func CalleeName(call ast.FuncCallNode) (string, error) { return calleeName(call.Callee) }

// LookupFunc resolves name to a registered function.
func (r *Resolver) LookupFunc(name string, span token.Span) (*FuncInfo, error) {
	b, ok := r.Lookup(name)
	if !ok {
		return nil, util.NewError(util.UndefinedFunction, span, "undefined function '%s'", name)
	}
	if b.Kind != BindFunc {
		return nil, util.NewError(util.NotAFunction, span, "'%s' is %s, not a function", name, r.Describe(b.Type)).With(b.Span)
	}
	return r.Funcs[b.Type.ID], nil
}

// FieldOf resolves a member access to its struct and field.
func (r *Resolver) FieldOf(node *ast.Node) (*StructInfo, Field, error) {
	d := node.Data.(ast.MemberAccessNode)
	t, err := r.valueTypeOf(d.Expr)
	if err != nil {
		return nil, Field{}, err
	}
	if !t.IsStruct() {
		return nil, Field{}, util.NewError(util.NotAStruct, d.Expr.Span, "type %s has no fields", r.Describe(t))
	}
	info := r.Structs[t.ID]
	field, ok := info.Field(d.Field)
	if !ok {
		return nil, Field{}, util.NewError(util.UnknownField, d.FieldSpan, "struct '%s' has no field '%s'", info.Name, d.Field).With(info.Span)
	}
	return info, field, nil
}

// LookupStruct resolves the struct named by a construction expression.
func (r *Resolver) LookupStruct(name string, span token.Span) (*StructInfo, error) {
	b, ok := r.Lookup(name)
	if !ok {
		return nil, util.NewError(util.UnknownType, span, "unknown struct '%s'", name)
	}
	if b.Kind != BindStruct {
		return nil, util.NewError(util.NotAStruct, span, "'%s' is not a struct", name).With(b.Span)
	}
	return r.Structs[b.Type.ID], nil
}

func (r *Resolver) checkStructLit(node *ast.Node) (*StructInfo, error) {
	d := node.Data.(ast.StructLitNode)
	info, err := r.LookupStruct(d.Name, node.Tok.Span)
	if err != nil {
		return nil, err
	}
	given := make(map[string]bool, len(d.Fields))
	for _, fi := range d.Fields {
		field, ok := info.Field(fi.Name)
		if !ok {
			return nil, util.NewError(util.UnknownField, fi.NameSpan, "struct '%s' has no field '%s'", info.Name, fi.Name).With(info.Span)
		}
		t, err := r.valueTypeOf(fi.Value)
		if err != nil {
			return nil, err
		}
		if !types.Equal(t, field.Type) {
			return nil, util.NewError(util.WrongType, fi.Value.Span, "wrong type for field '%s': got %s, expected %s",
				fi.Name, r.Describe(t), r.Describe(field.Type)).With(field.Span)
		}
		given[fi.Name] = true
	}
	for _, f := range info.Fields {
		if !given[f.Name] {
			return nil, util.NewError(util.MissingField, node.Span, "missing field '%s' in construction of '%s'", f.Name, info.Name).With(f.Span)
		}
	}
	return info, nil
}

func IsComparison(op token.Type) bool {
	switch op {
	case token.Lt, token.Gt, token.EqEq, token.Neq, token.Lte, token.Gte:
		return true
	}
	return false
}

func (r *Resolver) typeOfBinary(node *ast.Node) (*types.Type, error) {
	d := node.Data.(ast.BinaryOpNode)
	lt, err := r.valueTypeOf(d.Left)
	if err != nil {
		return nil, err
	}
	rt, err := r.valueTypeOf(d.Right)
	if err != nil {
		return nil, err
	}
	cmp := IsComparison(d.Op)
	additive := d.Op == token.Plus || d.Op == token.Minus

	switch {
	case lt.IsPointer() && rt.IsPrim(types.Int) && additive:
		return lt, nil
	case lt.IsPointer() && rt.IsPointer() && types.Equal(lt.Elem, rt.Elem) && (additive || cmp):
		if cmp {
			return types.BoolType, nil
		}
		return types.IntType, nil
	case lt.Kind == types.Value && rt.Kind == types.Value && lt.Prim == rt.Prim:
		if cmp {
			return types.BoolType, nil
		}
		return lt, nil
	}

	expected := lt
	if lt.IsPointer() {
		expected = types.IntType
	}
	return nil, util.NewError(util.WrongBinaryExpressionTypes, node.Tok.Span,
		"wrong types for '%s': got %s and %s, expected %s on the right",
		d.Op, r.Describe(lt), r.Describe(rt), r.Describe(expected)).With(d.Left.Span, d.Right.Span)
}

// CheckAssign validates `target = value` and returns the target's type.
func (r *Resolver) CheckAssign(target, value *ast.Node) (*types.Type, error) {
	switch target.Type {
	case ast.Ident:
		name := target.Data.(ast.IdentNode).Name
		b, ok := r.Lookup(name)
		if !ok {
			return nil, util.NewError(util.UndefinedVariable, target.Span, "assignment to undefined variable '%s'", name)
		}
		if b.Kind != BindVar {
			return nil, util.NewError(util.InvalidAssignmentTarget, target.Span, "cannot assign to '%s'", name).With(b.Span)
		}
	case ast.Deref, ast.Subscript, ast.MemberAccess:
	default:
		return nil, util.NewError(util.InvalidAssignmentTarget, target.Span, "cannot assign to %s", target.Type)
	}

	tt, err := r.valueTypeOf(target)
	if err != nil {
		return nil, err
	}
	vt, err := r.valueTypeOf(value)
	if err != nil {
		return nil, err
	}
	if !types.Equal(tt, vt) {
		return nil, util.NewError(util.WrongType, value.Span, "wrong type: got %s, expected %s", r.Describe(vt), r.Describe(tt)).With(target.Span)
	}
	return tt, nil
}
