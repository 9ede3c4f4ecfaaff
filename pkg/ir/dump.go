package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders prog as indented text, one procedure per line.
func Dump(prog *Program) string {
	var sb strings.Builder
	for i, g := range prog.Globals {
		fmt.Fprintf(&sb, "data %d = %s\n", i, strconv.Quote(string(g.Bytes)))
	}
	for _, fn := range prog.Functions {
		fmt.Fprintf(&sb, "fn %s #%d (params %d, frame %d)\n", fn.Name, fn.ID, fn.Params, fn.FrameSlots)
		dumpBuilder(&sb, fn.Body, 1)
	}
	sb.WriteString("entry\n")
	dumpBuilder(&sb, prog.Entry, 1)
	return sb.String()
}

// DumpBuilder renders a single sequence.
func DumpBuilder(b *Builder) string {
	var sb strings.Builder
	dumpBuilder(&sb, b, 0)
	return sb.String()
}

func dumpBuilder(sb *strings.Builder, b *Builder, depth int) {
	b.Each(func(p Procedure) {
		indent := strings.Repeat("  ", depth)
		line := Format(p)
		if c := p.Info().Comment; c != "" {
			line = fmt.Sprintf("%-24s ; %s", line, c)
		}
		sb.WriteString(indent + line + "\n")

		switch p := p.(type) {
		case *If:
			for i, arm := range p.Arms {
				if arm.Cond != nil {
					fmt.Fprintf(sb, "%s arm %d cond\n", indent, i)
					dumpBuilder(sb, arm.Cond, depth+2)
				} else {
					fmt.Fprintf(sb, "%s arm %d else\n", indent, i)
				}
				fmt.Fprintf(sb, "%s arm %d body\n", indent, i)
				dumpBuilder(sb, arm.Body, depth+2)
			}
		case *While:
			fmt.Fprintf(sb, "%s cond\n", indent)
			dumpBuilder(sb, p.Cond, depth+2)
			fmt.Fprintf(sb, "%s body\n", indent)
			dumpBuilder(sb, p.Body, depth+2)
		}
	})
}

// Format renders one procedure without its comment or nested sequences.
func Format(p Procedure) string {
	switch p := p.(type) {
	case *Push:
		return fmt.Sprintf("push %d", p.Value)
	case *PushData:
		return fmt.Sprintf("push data%d", p.Index)
	case *Load:
		return fmt.Sprintf("load slot %d", p.Slot)
	case *AddressOf:
		return fmt.Sprintf("addr slot %d", p.Slot)
	case *Deref:
		return fmt.Sprintf("deref %d", p.Width)
	case *Binary:
		return p.Op.String()
	case *Store:
		return fmt.Sprintf("store slot %d", p.Slot)
	case *StoreIndirect:
		return fmt.Sprintf("store indirect %d", p.Width)
	case *CopyToSlot:
		return fmt.Sprintf("copy %d words to slot %d", p.Words, p.Slot)
	case *CopyIndirect:
		return fmt.Sprintf("copy %d words indirect", p.Words)
	case *Pop:
		return "pop"
	case *Call:
		return fmt.Sprintf("call %s/%d", p.Name, p.Argc)
	case *Syscall:
		return fmt.Sprintf("syscall %s/%d", p.Name, p.Argc)
	case *If:
		return fmt.Sprintf("if (%d arms)", len(p.Arms))
	case *While:
		return "while"
	case *AllocFrame:
		return fmt.Sprintf("alloc %d", p.Slots)
	case *Return:
		if p.HasValue {
			return "return value"
		}
		return "return"
	}
	return fmt.Sprintf("%T", p)
}
