package bytecode

import (
	"testing"

	"github.com/loom-lang/loom/internal/hash"
)

func TestUnitRoundTrip(t *testing.T) {
	b := NewBuilder()
	asm := NewAssembly("main")
	asm.Push(Instr{Op: OpPush, Lit: Lit{Kind: LitInteger, Integer: 7}})
	asm.Push(Instr{Op: OpReturn})
	h := hash.Path("main")
	if err := b.DefineFunction(h, "main", 0, asm, false, false); err != nil {
		t.Fatalf("DefineFunction: %v", err)
	}
	unit := b.Build()

	data, err := unit.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := UnmarshalUnit(data)
	if err != nil {
		t.Fatalf("UnmarshalUnit: %v", err)
	}

	if len(got.Instructions) != len(unit.Instructions) {
		t.Fatalf("instruction count: got %d, want %d", len(got.Instructions), len(unit.Instructions))
	}
	entry, ok := got.Functions[h]
	if !ok {
		t.Fatalf("function %s missing after round-trip", h)
	}
	if entry.EntryOffset != unit.Functions[h].EntryOffset || entry.ArgCount != unit.Functions[h].ArgCount {
		t.Fatalf("function entry mismatch: got %+v, want %+v", entry, unit.Functions[h])
	}
	if got.Instructions[0].Lit.Integer != 7 {
		t.Fatalf("literal mismatch: got %d, want 7", got.Instructions[0].Lit.Integer)
	}
}
