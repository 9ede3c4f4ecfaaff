// Package types holds the semantic types the resolver assigns to expressions.
package types

import "fmt"

type Kind int

const (
	Value Kind = iota
	Pointer
	Struct
	Function
)

// Prim is a primitive value type.
type Prim int

const (
	Int Prim = iota
	Bool
	Char
)

func (p Prim) String() string {
	switch p {
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Char:
		return "char"
	}
	return fmt.Sprintf("prim(%d)", int(p))
}

// Type is Value(prim) | Pointer(elem) | Struct(id) | Function(id). Struct and
// function ids index the resolver's registries.
type Type struct {
	Kind Kind
	Prim Prim
	Elem *Type
	ID   int
}

var (
	IntType  = &Type{Kind: Value, Prim: Int}
	BoolType = &Type{Kind: Value, Prim: Bool}
	CharType = &Type{Kind: Value, Prim: Char}
)

func NewPointer(elem *Type) *Type { return &Type{Kind: Pointer, Elem: elem} }
func NewStruct(id int) *Type { return &Type{Kind: Struct, ID: id} }
func NewFunction(id int) *Type { return &Type{Kind: Function, ID: id} }

// Equal compares structurally; pointers compare by pointee.
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Value:
		return a.Prim == b.Prim
	case Pointer:
		return Equal(a.Elem, b.Elem)
	default:
		return a.ID == b.ID
	}
}

func (t *Type) IsPrim(p Prim) bool { return t != nil && t.Kind == Value && t.Prim == p }

func (t *Type) IsPointer() bool { return t != nil && t.Kind == Pointer }

func (t *Type) IsStruct() bool { return t != nil && t.Kind == Struct }

// String renders t without registry names; see resolver.Describe for the
// source spelling.
func (t *Type) String() string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case Value:
		return t.Prim.String()
	case Pointer:
		return "&" + t.Elem.String()
	case Struct:
		return fmt.Sprintf("struct#%d", t.ID)
	case Function:
		return fmt.Sprintf("fn#%d", t.ID)
	}
	return "?"
}
