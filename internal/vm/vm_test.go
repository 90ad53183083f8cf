package vm_test

import (
	"context"
	"math"
	"testing"

	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/hash"
	"github.com/loom-lang/loom/internal/value"
	"github.com/loom-lang/loom/internal/vm"
)

// buildBinOpFn assembles `fn name() { a OP b }` directly at the bytecode
// level, bypassing the compiler — these tests pin down VM-level
// invariants (spec.md §8's "boundary behaviors") independent of
// whatever the compiler happens to emit for them.
func buildBinOpFn(t *testing.T, name string, a, b int64, op bytecode.BinOp) *bytecode.Unit {
	t.Helper()
	builder := bytecode.NewBuilder()
	asm := bytecode.NewAssembly(name)
	asm.Push(bytecode.Instr{Op: bytecode.OpPush, Lit: bytecode.Lit{Kind: bytecode.LitInteger, Integer: a}})
	asm.Push(bytecode.Instr{Op: bytecode.OpPush, Lit: bytecode.Lit{Kind: bytecode.LitInteger, Integer: b}})
	asm.Push(bytecode.Instr{Op: bytecode.OpOp, BinOp: op})
	asm.Push(bytecode.Instr{Op: bytecode.OpReturn})
	h := hash.Path(name)
	if err := builder.DefineFunction(h, name, 0, asm, false, false); err != nil {
		t.Fatalf("DefineFunction: %v", err)
	}
	return builder.Build()
}

func TestDivideByZeroIsDivideByZeroError(t *testing.T) {
	unit := buildBinOpFn(t, "main", 10, 0, bytecode.BinDiv)
	machine := vm.New(unit, nil)
	_, _, err := machine.CallByName(context.Background(), "main", nil)
	if err == nil {
		t.Fatal("expected an error dividing by zero")
	}
	vmErr, ok := err.(*vm.Error)
	if !ok {
		t.Fatalf("got %T, want *vm.Error", err)
	}
	if vmErr.Kind != vm.ErrDivideByZero {
		t.Fatalf("got error kind %d, want ErrDivideByZero", vmErr.Kind)
	}
}

func TestIntegerAdditionWrapsOnOverflow(t *testing.T) {
	unit := buildBinOpFn(t, "main", math.MaxInt64, 1, bytecode.BinAdd)
	machine := vm.New(unit, nil)
	result, _, err := machine.CallByName(context.Background(), "main", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !result.IsInteger() {
		t.Fatalf("got kind %v, want integer", result.Kind)
	}
	if result.AsInteger() != math.MinInt64 {
		t.Fatalf("got %d, want two's-complement wraparound to %d", result.AsInteger(), int64(math.MinInt64))
	}
}

func TestEmptyFunctionBodyReturnsUnit(t *testing.T) {
	builder := bytecode.NewBuilder()
	asm := bytecode.NewAssembly("main")
	asm.Push(bytecode.Instr{Op: bytecode.OpReturnUnit})
	h := hash.Path("main")
	if err := builder.DefineFunction(h, "main", 0, asm, false, false); err != nil {
		t.Fatalf("DefineFunction: %v", err)
	}
	unit := builder.Build()

	machine := vm.New(unit, nil)
	result, _, err := machine.CallByName(context.Background(), "main", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result.Kind != value.KUnit {
		t.Fatalf("got kind %v, want KUnit", result.Kind)
	}
}

func TestWrongArgumentCountIsRejected(t *testing.T) {
	unit := buildBinOpFn(t, "main", 1, 2, bytecode.BinAdd)
	machine := vm.New(unit, nil)
	_, _, err := machine.CallByName(context.Background(), "main", []value.Value{value.Integer(1)})
	if err == nil {
		t.Fatal("expected an error calling a zero-arg function with one argument")
	}
	vmErr, ok := err.(*vm.Error)
	if !ok || vmErr.Kind != vm.ErrBadArgumentCount {
		t.Fatalf("got %v, want ErrBadArgumentCount", err)
	}
}
