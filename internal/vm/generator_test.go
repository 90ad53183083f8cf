package vm_test

import (
	"context"
	"testing"

	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/hash"
	"github.com/loom-lang/loom/internal/value"
	"github.com/loom-lang/loom/internal/vm"
)

// buildGeneratorUnit assembles, at the bytecode level, a generator
// function `g` equivalent to `fn g() { yield 1; yield 2; 3 }` plus a
// helper `next1(g)` that drives one `next()` step and returns its raw
// Tuple(has_value, value) result — the same protocol compileFor's
// `for x in iter` lowering already calls, exercised here directly so a
// test can observe each suspend/resume step without a for-loop body.
func buildGeneratorUnit(t *testing.T) *bytecode.Unit {
	t.Helper()
	builder := bytecode.NewBuilder()

	gAsm := bytecode.NewAssembly("g")
	gAsm.Push(bytecode.Instr{Op: bytecode.OpPush, Lit: bytecode.Lit{Kind: bytecode.LitInteger, Integer: 1}})
	gAsm.Push(bytecode.Instr{Op: bytecode.OpYield})
	gAsm.Push(bytecode.Instr{Op: bytecode.OpPop})
	gAsm.Push(bytecode.Instr{Op: bytecode.OpPush, Lit: bytecode.Lit{Kind: bytecode.LitInteger, Integer: 2}})
	gAsm.Push(bytecode.Instr{Op: bytecode.OpYield})
	gAsm.Push(bytecode.Instr{Op: bytecode.OpPop})
	gAsm.Push(bytecode.Instr{Op: bytecode.OpPush, Lit: bytecode.Lit{Kind: bytecode.LitInteger, Integer: 3}})
	gAsm.Push(bytecode.Instr{Op: bytecode.OpReturn})
	gHash := hash.Path("g")
	if err := builder.DefineFunction(gHash, "g", 0, gAsm, true, false); err != nil {
		t.Fatalf("DefineFunction g: %v", err)
	}

	nextHash := hash.Field(hash.Zero, "next")
	n1Asm := bytecode.NewAssembly("next1")
	n1Asm.Push(bytecode.Instr{Op: bytecode.OpCopy, A: 0})
	n1Asm.Push(bytecode.Instr{Op: bytecode.OpCallInstance, Hash: nextHash, A: 0})
	n1Asm.Push(bytecode.Instr{Op: bytecode.OpReturn})
	if err := builder.DefineFunction(hash.Path("next1"), "next1", 1, n1Asm, false, false); err != nil {
		t.Fatalf("DefineFunction next1: %v", err)
	}

	return builder.Build()
}

func nextTuple(t *testing.T, machine *vm.VM, gen value.Value) (hasValue bool, v value.Value) {
	t.Helper()
	result, susp, err := machine.CallByName(context.Background(), "next1", []value.Value{gen})
	if err != nil {
		t.Fatalf("next1: %v", err)
	}
	if susp != nil {
		t.Fatal("next1 unexpectedly suspended")
	}
	if !result.IsManaged() || result.Slot.Kind() != value.MTuple {
		t.Fatalf("got kind %v, want a Tuple", result.Kind)
	}
	tup, ok := machine.Heap.Payload(result.Slot).(*value.Tuple)
	if !ok || len(tup.Elems) != 2 {
		t.Fatalf("got %#v, want a 2-element Tuple", tup)
	}
	return tup.Elems[0].AsBool(), tup.Elems[1]
}

func TestGeneratorYieldsThenExhausts(t *testing.T) {
	unit := buildGeneratorUnit(t)
	machine := vm.New(unit, nil)

	gen, susp, err := machine.CallByName(context.Background(), "g", nil)
	if err != nil {
		t.Fatalf("calling a generator function: %v", err)
	}
	if susp != nil {
		t.Fatal("constructing a generator should never suspend")
	}
	if !gen.IsManaged() || gen.Slot.Kind() != value.MGenerator {
		t.Fatalf("got kind %v, want a Generator", gen.Kind)
	}

	if has, v := nextTuple(t, machine, gen); !has || v.AsInteger() != 1 {
		t.Fatalf("first next(): got (%v, %v), want (true, 1)", has, v.Inspect(machine.Heap))
	}
	if has, v := nextTuple(t, machine, gen); !has || v.AsInteger() != 2 {
		t.Fatalf("second next(): got (%v, %v), want (true, 2)", has, v.Inspect(machine.Heap))
	}
	if has, _ := nextTuple(t, machine, gen); has {
		t.Fatal("third next(): expected exhaustion (has_value == false)")
	}
	// Calling next() again on an already-done generator must stay
	// exhausted rather than restarting the body.
	if has, _ := nextTuple(t, machine, gen); has {
		t.Fatal("next() on a done generator resumed instead of staying exhausted")
	}
}
