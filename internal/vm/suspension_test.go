package vm_test

import (
	"context"
	"testing"

	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/hash"
	"github.com/loom-lang/loom/internal/value"
	"github.com/loom-lang/loom/internal/vm"
)

// buildAwaiterUnit assembles `fn awaiter(f) { f.await }` directly at
// the bytecode level: copy the argument, OpAwait it, return the
// result.
func buildAwaiterUnit(t *testing.T) *bytecode.Unit {
	t.Helper()
	builder := bytecode.NewBuilder()
	asm := bytecode.NewAssembly("awaiter")
	asm.Push(bytecode.Instr{Op: bytecode.OpCopy, A: 0})
	asm.Push(bytecode.Instr{Op: bytecode.OpAwait})
	asm.Push(bytecode.Instr{Op: bytecode.OpReturn})
	if err := builder.DefineFunction(hash.Path("awaiter"), "awaiter", 1, asm, false, false); err != nil {
		t.Fatalf("DefineFunction: %v", err)
	}
	return builder.Build()
}

// pendingNPolls resolves to result only once it has been polled n
// times, modeling a host future backed by a channel/callback that
// takes a few ticks to complete.
func pendingNPolls(n int, result value.Value) *value.Future {
	polls := 0
	fut := &value.Future{}
	fut.Poll = func() (bool, value.Value, error) {
		polls++
		if polls < n {
			return false, value.Value{}, nil
		}
		return true, result, nil
	}
	return fut
}

func TestAwaitSuspendsAndResumesOnAPendingFuture(t *testing.T) {
	unit := buildAwaiterUnit(t)
	machine := vm.New(unit, nil)

	fut := pendingNPolls(3, value.Integer(42))
	slot := machine.Heap.Allocate(fut)
	futVal := value.Managed(slot)

	result, susp, err := machine.CallByName(context.Background(), "awaiter", []value.Value{futVal})
	if err != nil {
		t.Fatalf("awaiter: %v", err)
	}
	if susp == nil {
		t.Fatal("expected a Suspension on a not-yet-resolved future")
	}
	if len(susp.Pending()) != 1 {
		t.Fatalf("got %d pending futures, want 1", len(susp.Pending()))
	}

	// First Resume call: second poll, still pending.
	result, susp, err = susp.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if susp == nil {
		t.Fatal("expected to still be suspended after the second poll")
	}

	// Second Resume call: third poll, resolves.
	result, susp, err = susp.Resume(context.Background())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if susp != nil {
		t.Fatal("expected the call to complete once the future resolved")
	}
	if !result.IsInteger() || result.AsInteger() != 42 {
		t.Fatalf("got %v, want Integer(42)", result.Inspect(machine.Heap))
	}
}

func TestAwaitOnAnAlreadyResolvedFutureDoesNotSuspend(t *testing.T) {
	unit := buildAwaiterUnit(t)
	machine := vm.New(unit, nil)

	slot := machine.Heap.Allocate(&value.Future{Done: true, Result: value.Integer(7)})
	futVal := value.Managed(slot)

	result, susp, err := machine.CallByName(context.Background(), "awaiter", []value.Value{futVal})
	if err != nil {
		t.Fatalf("awaiter: %v", err)
	}
	if susp != nil {
		t.Fatal("an already-resolved future should never suspend the call")
	}
	if !result.IsInteger() || result.AsInteger() != 7 {
		t.Fatalf("got %v, want Integer(7)", result.Inspect(machine.Heap))
	}
}
