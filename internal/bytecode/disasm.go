package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble renders every function in u as a human-readable listing,
// one instruction per line, in the style of funvibe-funxy/internal/vm's
// disasm.go (opcode name plus decoded operands) adapted to this spec's
// tagged-instruction Unit instead of a raw byte chunk.
func Disassemble(u *Unit) string {
	var b strings.Builder

	type entry struct {
		name string
		fn   FuncEntry
	}
	entries := make([]entry, 0, len(u.Functions))
	for _, fn := range u.Functions {
		entries = append(entries, entry{name: fn.Name, fn: fn})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].fn.EntryOffset < entries[j].fn.EntryOffset })

	for _, e := range entries {
		fmt.Fprintf(&b, "fn %s(%d args) @%d\n", e.name, e.fn.ArgCount, e.fn.EntryOffset)
		end := len(u.Instructions)
		for _, other := range entries {
			if other.fn.EntryOffset > e.fn.EntryOffset && other.fn.EntryOffset < end {
				end = other.fn.EntryOffset
			}
		}
		for i := e.fn.EntryOffset; i < end; i++ {
			fmt.Fprintf(&b, "  %4d: %s\n", i, disasmOne(u, u.Instructions[i]))
		}
	}
	return b.String()
}

func disasmOne(u *Unit, ins Instr) string {
	switch ins.Op {
	case OpPush:
		return fmt.Sprintf("%s %v", ins.Op, ins.Lit)
	case OpString:
		if ins.StringSlot < len(u.Strings) {
			return fmt.Sprintf("%s %q", ins.Op, u.Strings[ins.StringSlot])
		}
		return fmt.Sprintf("%s <invalid %d>", ins.Op, ins.StringSlot)
	case OpCopy, OpMove, OpReplace, OpDrop, OpPopN, OpClean, OpVec, OpTuple, OpSelect, OpPushTuple:
		return fmt.Sprintf("%s %d", ins.Op, ins.A)
	case OpCall, OpCallInstance, OpClosure, OpLoadFn:
		return fmt.Sprintf("%s %s args=%d", ins.Op, ins.Hash, ins.A)
	case OpCallFn:
		return fmt.Sprintf("%s args=%d", ins.Op, ins.A)
	case OpJump, OpJumpIf, OpJumpIfNot, OpJumpIfOrPop, OpJumpIfNotOrPop:
		return fmt.Sprintf("%s offset=%+d", ins.Op, ins.Offset)
	case OpPopAndJumpIfNot:
		return fmt.Sprintf("%s pop=%d offset=%+d", ins.Op, ins.A, ins.Offset)
	case OpJumpIfBranch:
		return fmt.Sprintf("%s branch=%d offset=%+d", ins.Op, ins.Branch, ins.Offset)
	case OpOp:
		return fmt.Sprintf("%s %d", ins.Op, ins.BinOp)
	case OpAssign:
		return fmt.Sprintf("%s target=%d/%d op=%d", ins.Op, ins.Target.Kind, ins.Target.Value, ins.AssignOp)
	case OpIs:
		return fmt.Sprintf("%s %s", ins.Op, ins.Hash)
	default:
		return ins.Op.String()
	}
}
