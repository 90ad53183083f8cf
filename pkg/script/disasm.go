package script

import (
	"fmt"
	"io"
	"sort"

	"github.com/loom-lang/loom/internal/bytecode"
)

// Disassemble writes a human-readable listing of s's instruction
// stream to w: one line per instruction, grouped under the function
// whose EntryOffset..next-EntryOffset range contains it. Grounded on
// the kind of flat listing funvibe-funxy/cmd/funxy's "-c/--compile"
// path (pkg/cli/entry.go) produces for its own Chunk-based bytecode,
// adapted to this Unit's single shared instruction stream.
func (s *Script) Disassemble(w io.Writer) error {
	unit := s.unit

	type fn struct {
		hash  string
		entry bytecode.FuncEntry
	}
	fns := make([]fn, 0, len(unit.Functions))
	for h, e := range unit.Functions {
		fns = append(fns, fn{hash: h.String(), entry: e})
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].entry.EntryOffset < fns[j].entry.EntryOffset })

	boundary := make(map[int]string, len(fns))
	for _, f := range fns {
		label := f.entry.Name
		if label == "" {
			label = f.hash
		}
		boundary[f.entry.EntryOffset] = fmt.Sprintf("%s(%d args)", label, f.entry.ArgCount)
	}

	for i, instr := range unit.Instructions {
		if name, ok := boundary[i]; ok {
			if _, err := fmt.Fprintf(w, "\nfn %s:\n", name); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%6d  %s\n", i, formatInstr(instr)); err != nil {
			return err
		}
	}
	return nil
}

func formatInstr(instr bytecode.Instr) string {
	switch instr.Op {
	case bytecode.OpPush:
		return fmt.Sprintf("%-20s %v", instr.Op, instr.Lit)
	case bytecode.OpCopy, bytecode.OpMove, bytecode.OpReplace, bytecode.OpDrop:
		return fmt.Sprintf("%-20s offset=%d", instr.Op, instr.A)
	case bytecode.OpCall, bytecode.OpCallInstance:
		return fmt.Sprintf("%-20s hash=%s argc=%d", instr.Op, instr.Hash, instr.A)
	case bytecode.OpCallFn:
		return fmt.Sprintf("%-20s argc=%d", instr.Op, instr.A)
	case bytecode.OpJump, bytecode.OpJumpIf, bytecode.OpJumpIfNot, bytecode.OpJumpIfOrPop, bytecode.OpJumpIfNotOrPop:
		return fmt.Sprintf("%-20s offset=%+d", instr.Op, instr.Offset)
	case bytecode.OpString:
		return fmt.Sprintf("%-20s slot=%d", instr.Op, instr.StringSlot)
	case bytecode.OpOp:
		return fmt.Sprintf("%-20s %v", instr.Op, instr.BinOp)
	case bytecode.OpAssign:
		return fmt.Sprintf("%-20s target=%d op=%v", instr.Op, instr.Target.Kind, instr.AssignOp)
	default:
		return instr.Op.String()
	}
}
