package ir

import (
	"github.com/ferrite-lang/ferrc/pkg/token"
)

type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpCEq
	OpCNeq
	OpCLt
	OpCGt
	OpCLe
	OpCGe
)

var opNames = [...]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div",
	OpCEq: "ceq", OpCNeq: "cne", OpCLt: "clt", OpCGt: "cgt", OpCLe: "cle", OpCGe: "cge",
}

func (o Op) String() string { return opNames[o] }

// IsComparison reports whether o yields a bool.
func (o Op) IsComparison() bool { return o >= OpCEq }

// Meta is carried by every procedure.
type Meta struct {
	Span    token.Span
	Comment string
}

func (m *Meta) Info() *Meta { return m }

// Procedure is one instruction of the operand-stack machine. The concrete
// types below are the only implementations.
type Procedure interface {
	Info() *Meta
}

// Push pushes a constant.
type Push struct {
	Meta
	Value int64
}

// PushData pushes the address of global data entry Index.
type PushData struct {
	Meta
	Index int
}

// Load pushes the word stored in a frame slot.
type Load struct {
	Meta
	Slot int
}

// AddressOf pushes the address of a frame slot.
type AddressOf struct {
	Meta
	Slot int
}

// Deref pops an address and pushes the Width-byte value stored there.
type Deref struct {
	Meta
	Width int
}

// Binary pops the left operand, then the right, and pushes left Op right.
type Binary struct {
	Meta
	Op Op
}

// Store pops a word into a frame slot.
type Store struct {
	Meta
	Slot int
}

// StoreIndirect pops an address, then a value, and writes Width bytes.
type StoreIndirect struct {
	Meta
	Width int
}

// CopyToSlot pops the address of a Words-long aggregate and copies it into
// the slots starting at Slot.
type CopyToSlot struct {
	Meta
	Slot  int
	Words int
}

// CopyIndirect pops a destination address, then a source address, and
// copies Words words.
type CopyIndirect struct {
	Meta
	Words int
}

// Pop discards the top of the operand stack.
type Pop struct {
	Meta
}

// Call consumes Argc pushed arguments (first argument on top) and pushes
// the callee's return value.
type Call struct {
	Meta
	Func int
	Name string
	Argc int
}

// Syscall is like Call but traps into the kernel.
type Syscall struct {
	Meta
	Name string
	Argc int
}

// Arm is one branch of an If. Cond is nil for a trailing else; otherwise it
// leaves exactly one bool on the operand stack.
type Arm struct {
	Cond *Builder
	Body *Builder
}

// If runs the body of the first arm whose condition holds.
type If struct {
	Meta
	Arms []Arm
}

// While re-evaluates Cond before every iteration of Body.
type While struct {
	Meta
	Cond *Builder
	Body *Builder
}

// AllocFrame reserves Slots words of frame storage.
type AllocFrame struct {
	Meta
	Slots int
}

// Return leaves the current function, popping the result if HasValue.
type Return struct {
	Meta
	HasValue bool
}

// Data is one global literal; the index into Program.Globals is its identity.
type Data struct {
	Bytes []byte
	Span  token.Span
}

type Function struct {
	ID         int
	Name       string
	Params     int
	HasReturn  bool
	FrameSlots int
	Body       *Builder
	Span       token.Span
}

type Program struct {
	Globals   []Data
	Functions []*Function
	// Entry allocates the top-level frame, runs top-level statements and
	// calls main, leaving main's result on the operand stack.
	Entry *Builder
}

// AddGlobal appends a literal and returns its index.
func (p *Program) AddGlobal(b []byte, span token.Span) int {
	p.Globals = append(p.Globals, Data{Bytes: b, Span: span})
	return len(p.Globals) - 1
}

func (p *Program) FindFunc(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// StackDelta returns the net operand-stack effect of running b straight
// through. Composite procedures count as balanced.
func StackDelta(b *Builder) int {
	delta := 0
	b.Each(func(p Procedure) {
		delta += procDelta(p)
	})
	return delta
}

func procDelta(p Procedure) int {
	switch p := p.(type) {
	case *Push, *PushData, *Load, *AddressOf:
		return 1
	case *Binary, *Store, *CopyToSlot, *Pop:
		return -1
	case *StoreIndirect, *CopyIndirect:
		return -2
	case *Call:
		return 1 - p.Argc
	case *Syscall:
		return 1 - p.Argc
	case *Return:
		if p.HasValue {
			return -1
		}
	}
	return 0
}
