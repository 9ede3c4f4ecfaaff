// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"github.com/ferrite-lang/ferrc/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	Number NodeType = iota
	Bool
	String
	Char
	Ident
	Unary
	AddressOf
	Deref
	BinaryOp
	FuncCall
	StructLit
	Subscript
	MemberAccess

	// Statements
	Let
	Assign
	ExprStmt
	If
	While
	Return
	Block

	// Declarations
	StructDecl
	FuncDecl
)

var nodeTypeNames = [...]string{
	Number: "number literal", Bool: "bool literal", String: "string literal", Char: "char literal",
	Ident: "identifier", Unary: "unary expression", AddressOf: "address-of", Deref: "dereference",
	BinaryOp: "binary expression", FuncCall: "call", StructLit: "struct construction",
	Subscript: "index expression", MemberAccess: "member access",
	Let: "let binding", Assign: "assignment", ExprStmt: "expression statement", If: "if statement",
	While: "while loop", Return: "return statement", Block: "block",
	StructDecl: "struct declaration", FuncDecl: "function declaration",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "node"
}

// IsExpr reports whether nodes of this type produce a value.
func (t NodeType) IsExpr() bool { return t <= MemberAccess }

// Node represents a node in the Abstract Syntax Tree. Span covers the node
// and all of its children; Tok is the token that introduced it.
type Node struct {
	Type NodeType
	Tok  token.Token
	Span token.Span
	Data interface{}
}

// TypeExpr is a type annotation as written in the source: a primitive or
// struct name, or a pointer '&' to another TypeExpr.
type TypeExpr struct {
	Name string
	Elem *TypeExpr
	Span token.Span
}

func (t *TypeExpr) String() string {
	if t == nil {
		return "<none>"
	}
	if t.Elem != nil {
		return "&" + t.Elem.String()
	}
	return t.Name
}

// --- Node Data Structs ---
type NumberNode struct{ Value int64 }
type BoolNode struct{ Value bool }
type StringNode struct{ Value string }
type CharNode struct{ Value byte }
type IdentNode struct{ Name string }
type UnaryNode struct {
	Op   token.Type
	Expr *Node
}
type AddressOfNode struct{ Expr *Node }
type DerefNode struct{ Expr *Node }
type BinaryOpNode struct {
	Op          token.Type
	Left, Right *Node
}
type FuncCallNode struct {
	Callee *Node
	Args   []*Node
}
type FieldInit struct {
	Name     string
	NameSpan token.Span
	Value    *Node
}
type StructLitNode struct {
	Name   string
	Fields []FieldInit
}
type SubscriptNode struct{ Array, Index *Node }
type MemberAccessNode struct {
	Expr      *Node
	Field     string
	FieldSpan token.Span
}

type LetNode struct {
	Name     string
	NameSpan token.Span
	Type     *TypeExpr
	Value    *Node
}
type AssignNode struct{ Target, Value *Node }
type ExprStmtNode struct{ Expr *Node }

// IfArm is one branch of an if/else-if/else chain; Cond is nil only for a
// trailing else.
type IfArm struct {
	Cond *Node
	Body *Node
}
type IfNode struct{ Arms []IfArm }
type WhileNode struct{ Cond, Body *Node }
type ReturnNode struct{ Expr *Node }
type BlockNode struct{ Stmts []*Node }

type FieldDecl struct {
	Name string
	Type *TypeExpr
	Span token.Span
}
type StructDeclNode struct {
	Name   string
	Fields []FieldDecl
}
type Param struct {
	Name string
	Type *TypeExpr
	Span token.Span
}
type FuncDeclNode struct {
	Name       string
	Params     []Param
	ReturnType *TypeExpr
	Body       *Node
}

// --- Node Constructors ---

func newNode(tok token.Token, span token.Span, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Span: span, Data: data}
}

func NewNumber(tok token.Token, value int64) *Node {
	return newNode(tok, tok.Span, Number, NumberNode{Value: value})
}
func NewBool(tok token.Token, value bool) *Node {
	return newNode(tok, tok.Span, Bool, BoolNode{Value: value})
}
func NewString(tok token.Token, value string) *Node {
	return newNode(tok, tok.Span, String, StringNode{Value: value})
}
func NewChar(tok token.Token, value byte) *Node {
	return newNode(tok, tok.Span, Char, CharNode{Value: value})
}
func NewIdent(tok token.Token, name string) *Node {
	return newNode(tok, tok.Span, Ident, IdentNode{Name: name})
}
func NewUnary(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, tok.Span.Union(expr.Span), Unary, UnaryNode{Op: op, Expr: expr})
}
func NewAddressOf(tok token.Token, expr *Node) *Node {
	return newNode(tok, tok.Span.Union(expr.Span), AddressOf, AddressOfNode{Expr: expr})
}
func NewDeref(tok token.Token, expr *Node) *Node {
	return newNode(tok, tok.Span.Union(expr.Span), Deref, DerefNode{Expr: expr})
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, left.Span.Union(right.Span), BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right})
}
func NewFuncCall(tok token.Token, end token.Span, callee *Node, args []*Node) *Node {
	return newNode(tok, callee.Span.Union(end), FuncCall, FuncCallNode{Callee: callee, Args: args})
}
func NewStructLit(tok token.Token, end token.Span, name string, fields []FieldInit) *Node {
	return newNode(tok, tok.Span.Union(end), StructLit, StructLitNode{Name: name, Fields: fields})
}
func NewSubscript(tok token.Token, end token.Span, array, index *Node) *Node {
	return newNode(tok, array.Span.Union(end), Subscript, SubscriptNode{Array: array, Index: index})
}
func NewMemberAccess(tok token.Token, expr *Node, field token.Token) *Node {
	return newNode(tok, expr.Span.Union(field.Span), MemberAccess, MemberAccessNode{Expr: expr, Field: field.Value, FieldSpan: field.Span})
}

func NewLet(tok token.Token, end token.Span, name token.Token, typ *TypeExpr, value *Node) *Node {
	return newNode(tok, tok.Span.Union(end), Let, LetNode{Name: name.Value, NameSpan: name.Span, Type: typ, Value: value})
}
func NewAssign(tok token.Token, end token.Span, target, value *Node) *Node {
	return newNode(tok, target.Span.Union(end), Assign, AssignNode{Target: target, Value: value})
}
func NewExprStmt(end token.Span, expr *Node) *Node {
	return newNode(expr.Tok, expr.Span.Union(end), ExprStmt, ExprStmtNode{Expr: expr})
}
func NewIf(tok token.Token, arms []IfArm) *Node {
	span := tok.Span
	for _, arm := range arms {
		span = span.Union(arm.Body.Span)
	}
	return newNode(tok, span, If, IfNode{Arms: arms})
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, tok.Span.Union(body.Span), While, WhileNode{Cond: cond, Body: body})
}
func NewReturn(tok token.Token, end token.Span, expr *Node) *Node {
	return newNode(tok, tok.Span.Union(end), Return, ReturnNode{Expr: expr})
}
func NewBlock(tok token.Token, end token.Span, stmts []*Node) *Node {
	return newNode(tok, tok.Span.Union(end), Block, BlockNode{Stmts: stmts})
}
func NewStructDecl(tok token.Token, end token.Span, name string, fields []FieldDecl) *Node {
	return newNode(tok, tok.Span.Union(end), StructDecl, StructDeclNode{Name: name, Fields: fields})
}
func NewFuncDecl(tok token.Token, name string, params []Param, returnType *TypeExpr, body *Node) *Node {
	return newNode(tok, tok.Span.Union(body.Span), FuncDecl, FuncDeclNode{
		Name: name, Params: params, ReturnType: returnType, Body: body,
	})
}

// Walk visits node and its children depth-first, parents before children.
// Returning false from visitor skips the node's children.
func Walk(node *Node, visitor func(n *Node) bool) {
	if node == nil || !visitor(node) {
		return
	}

	switch d := node.Data.(type) {
	case UnaryNode:
		Walk(d.Expr, visitor)
	case AddressOfNode:
		Walk(d.Expr, visitor)
	case DerefNode:
		Walk(d.Expr, visitor)
	case BinaryOpNode:
		Walk(d.Left, visitor)
		Walk(d.Right, visitor)
	case FuncCallNode:
		Walk(d.Callee, visitor)
		for _, arg := range d.Args {
			Walk(arg, visitor)
		}
	case StructLitNode:
		for _, f := range d.Fields {
			Walk(f.Value, visitor)
		}
	case SubscriptNode:
		Walk(d.Array, visitor)
		Walk(d.Index, visitor)
	case MemberAccessNode:
		Walk(d.Expr, visitor)
	case LetNode:
		Walk(d.Value, visitor)
	case AssignNode:
		Walk(d.Target, visitor)
		Walk(d.Value, visitor)
	case ExprStmtNode:
		Walk(d.Expr, visitor)
	case IfNode:
		for _, arm := range d.Arms {
			Walk(arm.Cond, visitor)
			Walk(arm.Body, visitor)
		}
	case WhileNode:
		Walk(d.Cond, visitor)
		Walk(d.Body, visitor)
	case ReturnNode:
		Walk(d.Expr, visitor)
	case BlockNode:
		for _, s := range d.Stmts {
			Walk(s, visitor)
		}
	case FuncDeclNode:
		Walk(d.Body, visitor)
	}
}
