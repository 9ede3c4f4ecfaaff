// Package resolver tracks lexical scopes, the struct and function
// registries and frame slot allocation, and infers expression types.
package resolver

import (
	"github.com/ferrite-lang/ferrc/pkg/ast"
	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/token"
	"github.com/ferrite-lang/ferrc/pkg/types"
	"github.com/ferrite-lang/ferrc/pkg/util"
)

type BindingKind int

const (
	BindVar BindingKind = iota
	BindStruct
	BindFunc
)

// Binding is a name visible in some scope. Variables live in frame slots:
// k >= 0 for locals and k <= -2 for parameters.
type Binding struct {
	Name string
	Kind BindingKind
	Type *types.Type
	Slot int
	Span token.Span
}

type scope struct {
	parent   int
	function bool
	vars     map[string]*Binding
}

const globalScope = 0

type Field struct {
	Name   string
	Type   *types.Type
	Offset int
	Size   int
	Span   token.Span
}

type StructInfo struct {
	ID     int
	Name   string
	Fields []Field
	Size   int
	Span   token.Span
}

func (s *StructInfo) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

type FuncInfo struct {
	ID     int
	Name   string
	Params []*types.Type
	Return *types.Type
	Span   token.Span
}

// Resolver owns the scope arena. Scopes are never freed during one
// compilation; leaving a scope only moves the current index back to the
// parent.
type Resolver struct {
	scopes  []scope
	current int

	Structs []*StructInfo
	Funcs   []*FuncInfo

	next     int // stack-position counter
	high     int // high-water mark of next in the current frame
	fn       *FuncInfo
	wordSize int
	cfg      *config.Config
}

func New(cfg *config.Config) *Resolver {
	r := &Resolver{cfg: cfg, wordSize: cfg.WordSize}
	r.scopes = append(r.scopes, scope{parent: -1, function: true, vars: make(map[string]*Binding)})
	return r
}

func (r *Resolver) push(function bool) {
	r.scopes = append(r.scopes, scope{parent: r.current, function: function, vars: make(map[string]*Binding)})
	r.current = len(r.scopes) - 1
}

// EnterFunction opens a fresh function scope whose only outside view is
// the global root. The returned func restores the enclosing scope, counter
// and high-water mark; call it on every exit path.
func (r *Resolver) EnterFunction(fn *FuncInfo) func() {
	savedCur, savedNext, savedHigh, savedFn := r.current, r.next, r.high, r.fn
	r.current = globalScope
	r.push(true)
	r.next, r.high, r.fn = 0, 0, fn
	return func() {
		r.current, r.next, r.high, r.fn = savedCur, savedNext, savedHigh, savedFn
	}
}

// EnterBlock opens a child scope. Its slots are released on restore.
func (r *Resolver) EnterBlock() func() {
	savedCur, savedNext := r.current, r.next
	r.push(false)
	return func() {
		r.current, r.next = savedCur, savedNext
	}
}

// Function returns the function being lowered, or nil at top level.
func (r *Resolver) Function() *FuncInfo { return r.fn }

// FrameSlots is the number of words the current frame needs.
func (r *Resolver) FrameSlots() int { return r.high }

// Counter exposes the stack-position counter.
func (r *Resolver) Counter() int { return r.next }

// Lookup walks from the innermost scope to the function root. Past the
// function boundary only struct and function names are visible.
func (r *Resolver) Lookup(name string) (*Binding, bool) {
	s := r.current
	for {
		if b, ok := r.scopes[s].vars[name]; ok {
			return b, true
		}
		if r.scopes[s].function {
			break
		}
		s = r.scopes[s].parent
	}
	if s != globalScope {
		if b, ok := r.scopes[globalScope].vars[name]; ok && b.Kind != BindVar {
			return b, true
		}
	}
	return nil, false
}

// Slots returns how many frame words a value of t occupies.
func (r *Resolver) Slots(t *types.Type) int {
	n := (r.SizeOf(t) + r.wordSize - 1) / r.wordSize
	if n < 1 {
		n = 1
	}
	return n
}

func (r *Resolver) alloc(n int) int {
	slot := r.next
	r.next += n
	if r.next > r.high {
		r.high = r.next
	}
	return slot
}

// AllocTemp reserves anonymous slots for a value of t.
func (r *Resolver) AllocTemp(t *types.Type) int { return r.alloc(r.Slots(t)) }

// Declare binds a new variable in the current scope. shadowed is set when
// the name hides a binding from an enclosing scope.
func (r *Resolver) Declare(name string, t *types.Type, span token.Span) (b *Binding, shadowed *Binding, err error) {
	if prev, ok := r.scopes[r.current].vars[name]; ok {
		return nil, nil, util.NewError(util.RedeclaredVariable, span, "'%s' is already declared in this scope", name).With(prev.Span)
	}
	shadowed, _ = r.Lookup(name)
	b = &Binding{Name: name, Kind: BindVar, Type: t, Slot: r.alloc(r.Slots(t)), Span: span}
	r.scopes[r.current].vars[name] = b
	return b, shadowed, nil
}

// DeclareParam binds parameter index i at slot -2-i.
func (r *Resolver) DeclareParam(name string, t *types.Type, index int, span token.Span) (*Binding, error) {
	if prev, ok := r.scopes[r.current].vars[name]; ok {
		return nil, util.NewError(util.RedeclaredVariable, span, "duplicate parameter '%s'", name).With(prev.Span)
	}
	b := &Binding{Name: name, Kind: BindVar, Type: t, Slot: -2 - index, Span: span}
	r.scopes[r.current].vars[name] = b
	return b, nil
}

func (r *Resolver) bindGlobal(b *Binding) error {
	if prev, ok := r.scopes[globalScope].vars[b.Name]; ok {
		return util.NewError(util.RedeclaredVariable, b.Span, "'%s' is already declared", b.Name).With(prev.Span)
	}
	r.scopes[globalScope].vars[b.Name] = b
	return nil
}

// DeclareStruct lays out fields in declaration order and registers the
// struct. The struct name is bound first so fields may point to it.
func (r *Resolver) DeclareStruct(node *ast.Node) (*StructInfo, error) {
	d := node.Data.(ast.StructDeclNode)
	info := &StructInfo{ID: len(r.Structs), Name: d.Name, Span: node.Span}
	nameSpan := node.Span
	if err := r.bindGlobal(&Binding{Name: d.Name, Kind: BindStruct, Type: types.NewStruct(info.ID), Span: nameSpan}); err != nil {
		return nil, err
	}
	r.Structs = append(r.Structs, info)

	offset := 0
	for _, f := range d.Fields {
		t, err := r.ResolveTypeExpr(f.Type)
		if err != nil {
			return nil, err
		}
		if t.IsStruct() && t.ID == info.ID {
			return nil, util.NewError(util.UnknownType, f.Type.Span, "struct '%s' cannot contain itself by value", d.Name)
		}
		size := r.SizeOf(t)
		info.Fields = append(info.Fields, Field{Name: f.Name, Type: t, Offset: offset, Size: size, Span: f.Span})
		offset += size
	}
	info.Size = offset
	return info, nil
}

// DeclareFunction registers a signature and binds its name globally.
func (r *Resolver) DeclareFunction(node *ast.Node) (*FuncInfo, error) {
	d := node.Data.(ast.FuncDeclNode)
	info := &FuncInfo{ID: len(r.Funcs), Name: d.Name, Span: node.Span}
	for _, p := range d.Params {
		t, err := r.ResolveTypeExpr(p.Type)
		if err != nil {
			return nil, err
		}
		if r.Slots(t) != 1 {
			return nil, util.NewError(util.StructByValue, p.Span, "parameter '%s' of type %s must be passed by pointer", p.Name, r.Describe(t))
		}
		info.Params = append(info.Params, t)
	}
	if d.ReturnType != nil {
		t, err := r.ResolveTypeExpr(d.ReturnType)
		if err != nil {
			return nil, err
		}
		if r.Slots(t) != 1 {
			return nil, util.NewError(util.StructByValue, d.ReturnType.Span, "function '%s' cannot return %s by value", d.Name, r.Describe(t))
		}
		info.Return = t
	}
	if err := r.bindGlobal(&Binding{Name: d.Name, Kind: BindFunc, Type: types.NewFunction(info.ID), Span: node.Tok.Span}); err != nil {
		return nil, err
	}
	r.Funcs = append(r.Funcs, info)
	return info, nil
}

func (r *Resolver) ResolveTypeExpr(te *ast.TypeExpr) (*types.Type, error) {
	if te.Elem != nil {
		elem, err := r.ResolveTypeExpr(te.Elem)
		if err != nil {
			return nil, err
		}
		return types.NewPointer(elem), nil
	}
	switch te.Name {
	case "int":
		return types.IntType, nil
	case "bool":
		return types.BoolType, nil
	case "char":
		return types.CharType, nil
	}
	if b, ok := r.Lookup(te.Name); ok && b.Kind == BindStruct {
		return b.Type, nil
	}
	return nil, util.NewError(util.UnknownType, te.Span, "unknown type '%s'", te.Name)
}

// SizeOf is the storage size of t in bytes.
func (r *Resolver) SizeOf(t *types.Type) int {
	if t != nil && t.Kind == types.Struct {
		return r.Structs[t.ID].Size
	}
	return r.wordSize
}

// ElemSize is the size used for pointer scaling and loads through a
// pointer: chars are packed bytes, everything else uses its storage size.
func (r *Resolver) ElemSize(t *types.Type) int {
	if t.IsPrim(types.Char) {
		return 1
	}
	return r.SizeOf(t)
}

// Describe spells t the way it is written in source.
func (r *Resolver) Describe(t *types.Type) string {
	if t == nil {
		return "no value"
	}
	switch t.Kind {
	case types.Pointer:
		return "&" + r.Describe(t.Elem)
	case types.Struct:
		return r.Structs[t.ID].Name
	case types.Function:
		return "fn " + r.Funcs[t.ID].Name
	}
	return t.String()
}
