package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/ir"
	"github.com/ferrite-lang/ferrc/pkg/util"
)

// Linux x86-64 system call numbers.
var syscallNumbers = map[string]int{
	"sys_read":  0,
	"sys_write": 1,
	"sys_open":  2,
	"sys_close": 3,
	"sys_mmap":  9,
	"sys_brk":   12,
	"sys_exit":  60,
}

var syscallRegs = []string{"rdi", "rsi", "rdx", "r10", "r8", "r9"}

var compareSet = map[ir.Op]string{
	ir.OpCEq: "sete", ir.OpCNeq: "setne", ir.OpCLt: "setl",
	ir.OpCGt: "setg", ir.OpCLe: "setle", ir.OpCGe: "setge",
}

// x86Backend emits Intel-syntax GNU assembly for a stack machine: every
// operand lives on the hardware stack, rax/rcx/rdx are scratch.
type x86Backend struct {
	out        *bytes.Buffer
	prog       *ir.Program
	cfg        *config.Config
	wordSize   int
	scope      string
	labelCount int
}

func NewX86Backend() Backend { return &x86Backend{} }

func (b *x86Backend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	b.out, b.prog, b.cfg, b.wordSize = new(bytes.Buffer), prog, cfg, cfg.WordSize

	b.out.WriteString(".intel_syntax noprefix\n.text\n.globl _start\n\n")

	b.enterScope("_start")
	b.out.WriteString("_start:\n")
	b.emit("mov rbp, rsp", "")
	if err := b.genBuilder(prog.Entry); err != nil {
		return nil, err
	}
	b.emit("pop rdi", "exit status")
	b.emit("mov rax, 60", "")
	b.emit("syscall", "")

	for _, fn := range prog.Functions {
		b.enterScope(FuncLabel(fn.Name))
		fmt.Fprintf(b.out, "\n%s:\n", FuncLabel(fn.Name))
		b.emit("push rbp", "")
		b.emit("mov rbp, rsp", "")
		if err := b.genBuilder(fn.Body); err != nil {
			return nil, err
		}
		if _, ok := fn.Body.Last().(*ir.Return); !ok {
			b.emit("xor eax, eax", "")
			b.epilogue()
		}
	}

	if len(prog.Globals) > 0 {
		b.out.WriteString("\n.data\n")
		for i, g := range prog.Globals {
			fmt.Fprintf(b.out, "%s:\n", DataLabel(i))
			vals := make([]string, 0, len(g.Bytes)+1)
			for _, c := range g.Bytes {
				vals = append(vals, fmt.Sprint(c))
			}
			vals = append(vals, "0")
			fmt.Fprintf(b.out, "    .byte %s\n", strings.Join(vals, ", "))
		}
	}
	return b.out, nil
}

func FuncLabel(name string) string { return "fn_" + name }

func DataLabel(index int) string { return fmt.Sprintf("data_%d", index) }

func (b *x86Backend) enterScope(name string) {
	b.scope, b.labelCount = name, 0
}

// newLabel returns the base of a family of labels for one composite node.
func (b *x86Backend) newLabel(kind string) string {
	l := fmt.Sprintf(".L%s_%s%d", b.scope, kind, b.labelCount)
	b.labelCount++
	return l
}

func (b *x86Backend) emit(instr, comment string) {
	if comment != "" {
		fmt.Fprintf(b.out, "    %-32s # %s\n", instr, comment)
		return
	}
	fmt.Fprintf(b.out, "    %s\n", instr)
}

func (b *x86Backend) label(l string) { fmt.Fprintf(b.out, "%s:\n", l) }

func (b *x86Backend) epilogue() {
	b.emit("mov rsp, rbp", "")
	b.emit("pop rbp", "")
	b.emit("ret", "")
}

// slotAddr addresses frame slot k: locals grow down from rbp, parameters
// start at rbp+16 above the saved rbp and return address.
func (b *x86Backend) slotAddr(k int) string {
	if k >= 0 {
		return fmt.Sprintf("[rbp-%d]", b.wordSize*(k+1))
	}
	return fmt.Sprintf("[rbp+%d]", b.wordSize*(-k))
}

func offsetAddr(reg string, off int) string {
	if off == 0 {
		return "[" + reg + "]"
	}
	return fmt.Sprintf("[%s-%d]", reg, off)
}

func (b *x86Backend) genBuilder(bl *ir.Builder) error {
	var err error
	bl.Each(func(p ir.Procedure) {
		if err == nil {
			err = b.genProc(p)
		}
	})
	return err
}

func (b *x86Backend) genProc(p ir.Procedure) error {
	c := p.Info().Comment
	switch p := p.(type) {
	case *ir.Push:
		if p.Value >= -1<<31 && p.Value < 1<<31 {
			b.emit(fmt.Sprintf("push %d", p.Value), c)
		} else {
			b.emit(fmt.Sprintf("mov rax, %d", p.Value), c)
			b.emit("push rax", "")
		}
	case *ir.PushData:
		b.emit(fmt.Sprintf("lea rax, [rip+%s]", DataLabel(p.Index)), c)
		b.emit("push rax", "")
	case *ir.Load:
		b.emit("push qword ptr "+b.slotAddr(p.Slot), c)
	case *ir.AddressOf:
		b.emit("lea rax, "+b.slotAddr(p.Slot), c)
		b.emit("push rax", "")
	case *ir.Deref:
		b.emit("pop rax", c)
		if p.Width == 1 {
			b.emit("movzx eax, byte ptr [rax]", "")
		} else {
			b.emit("mov rax, qword ptr [rax]", "")
		}
		b.emit("push rax", "")
	case *ir.Binary:
		b.genBinary(p.Op, c)
	case *ir.Store:
		b.emit("pop rax", c)
		b.emit(fmt.Sprintf("mov qword ptr %s, rax", b.slotAddr(p.Slot)), "")
	case *ir.StoreIndirect:
		b.emit("pop rax", c)
		b.emit("pop rcx", "")
		if p.Width == 1 {
			b.emit("mov byte ptr [rax], cl", "")
		} else {
			b.emit("mov qword ptr [rax], rcx", "")
		}
	case *ir.CopyToSlot:
		b.emit("pop rax", c)
		for i := 0; i < p.Words; i++ {
			b.emit("mov rcx, qword ptr "+offsetAddr("rax", i*b.wordSize), "")
			b.emit(fmt.Sprintf("mov qword ptr %s, rcx", b.slotAddr(p.Slot+i)), "")
		}
	case *ir.CopyIndirect:
		b.emit("pop rax", c)
		b.emit("pop rdx", "")
		for i := 0; i < p.Words; i++ {
			b.emit("mov rcx, qword ptr "+offsetAddr("rdx", i*b.wordSize), "")
			b.emit(fmt.Sprintf("mov qword ptr %s, rcx", offsetAddr("rax", i*b.wordSize)), "")
		}
	case *ir.Pop:
		b.emit(fmt.Sprintf("add rsp, %d", b.wordSize), c)
	case *ir.Call:
		if p.Argc > b.cfg.MaxRegisterArgs {
			return util.NewError(util.TooManyArguments, p.Span, "call to '%s' passes %d arguments, at most %d are supported", p.Name, p.Argc, b.cfg.MaxRegisterArgs)
		}
		b.emit("call "+FuncLabel(p.Name), c)
		if p.Argc > 0 {
			b.emit(fmt.Sprintf("add rsp, %d", p.Argc*b.wordSize), "")
		}
		b.emit("push rax", "")
	case *ir.Syscall:
		if p.Argc > b.cfg.MaxRegisterArgs || p.Argc > len(syscallRegs) {
			return util.NewError(util.TooManyArguments, p.Span, "system call '%s' passes %d arguments, at most %d are supported", p.Name, p.Argc, b.cfg.MaxRegisterArgs)
		}
		num, ok := syscallNumbers[p.Name]
		if !ok {
			return util.NewError(util.UnknownSystemCall, p.Span, "unknown system call '%s'", p.Name)
		}
		for i := 0; i < p.Argc; i++ {
			b.emit("pop "+syscallRegs[i], "")
		}
		b.emit(fmt.Sprintf("mov rax, %d", num), c)
		b.emit("syscall", "")
		b.emit("push rax", "")
	case *ir.If:
		return b.genIf(p)
	case *ir.While:
		return b.genWhile(p)
	case *ir.AllocFrame:
		if p.Slots > 0 {
			b.emit(fmt.Sprintf("sub rsp, %d", p.Slots*b.wordSize), c)
		}
	case *ir.Return:
		if p.HasValue {
			b.emit("pop rax", c)
		} else {
			b.emit("xor eax, eax", c)
		}
		b.epilogue()
	default:
		return fmt.Errorf("x86 backend: unhandled procedure %T", p)
	}
	return nil
}

func (b *x86Backend) genBinary(op ir.Op, comment string) {
	b.emit("pop rax", comment)
	b.emit("pop rcx", "")
	switch op {
	case ir.OpAdd:
		b.emit("add rax, rcx", "")
	case ir.OpSub:
		b.emit("sub rax, rcx", "")
	case ir.OpMul:
		b.emit("imul rax, rcx", "")
	case ir.OpDiv:
		b.emit("cqo", "")
		b.emit("idiv rcx", "")
	default:
		b.emit("cmp rax, rcx", "")
		b.emit(compareSet[op]+" al", "")
		b.emit("movzx eax, al", "")
	}
	b.emit("push rax", "")
}

func (b *x86Backend) genIf(p *ir.If) error {
	base := b.newLabel("if")
	end := base + "_end"
	for i, arm := range p.Arms {
		next := end
		if i+1 < len(p.Arms) {
			next = fmt.Sprintf("%s_arm%d", base, i+1)
		}
		b.label(fmt.Sprintf("%s_arm%d", base, i))
		if arm.Cond != nil {
			if err := b.genBuilder(arm.Cond); err != nil {
				return err
			}
			b.emit("pop rax", "")
			b.emit("cmp rax, 0", "")
			b.emit("je "+next, "")
		}
		b.label(fmt.Sprintf("%s_body%d", base, i))
		if err := b.genBuilder(arm.Body); err != nil {
			return err
		}
		b.emit("jmp "+end, "")
	}
	b.label(end)
	return nil
}

func (b *x86Backend) genWhile(p *ir.While) error {
	base := b.newLabel("while")
	b.label(base + "_cond")
	if err := b.genBuilder(p.Cond); err != nil {
		return err
	}
	b.emit("pop rax", "")
	b.emit("cmp rax, 0", "")
	b.emit("je "+base+"_end", "")
	b.label(base + "_body")
	if err := b.genBuilder(p.Body); err != nil {
		return err
	}
	b.emit("jmp "+base+"_cond", "")
	b.label(base + "_end")
	return nil
}
