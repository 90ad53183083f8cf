package vm

import (
	"context"

	"github.com/google/uuid"

	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/value"
)

// callNamed dispatches an OpCall: instr.Hash names a free function,
// either compiled (Unit.Functions) or host-registered (vm.Natives).
// Args are already on the stack in order; instr.A is the count.
func (vm *VM) callNamed(instr bytecode.Instr) error {
	argBase := len(vm.Stack) - instr.A

	if entry, ok := vm.Unit.Functions[instr.Hash]; ok {
		if instr.A != entry.ArgCount {
			return errf(ErrBadArgumentCount, "%s expects %d arguments, got %d", entry.Name, entry.ArgCount, instr.A)
		}
		if entry.IsGenerator {
			args := vm.popArgs(instr.A)
			vm.push(vm.newGenerator(instr.Hash, entry, args))
			return nil
		}
		vm.frames = append(vm.frames, frame{base: argBase, returnIP: vm.ip, isAsync: entry.IsAsync})
		vm.ip = entry.EntryOffset
		return nil
	}
	if native, ok := vm.Natives[instr.Hash]; ok {
		args := append([]value.Value(nil), vm.Stack[argBase:]...)
		vm.Stack = vm.Stack[:argBase]
		result, err := native(vm, args)
		if err != nil {
			return err
		}
		vm.push(result)
		return nil
	}
	return errf(ErrUnknownFunction, "no function registered for hash %s", instr.Hash)
}

// callValue dispatches an OpCallFn: the callee value sits just beneath
// its instr.A arguments on the stack (a Closure or an FnPtr).
func (vm *VM) callValue(instr bytecode.Instr) error {
	calleeIdx := len(vm.Stack) - instr.A - 1
	callee := vm.Stack[calleeIdx]
	args := append([]value.Value(nil), vm.Stack[calleeIdx+1:]...)
	vm.Stack = vm.Stack[:calleeIdx]

	switch {
	case callee.IsManaged() && callee.Slot.Kind() == value.MClosure:
		closure, ok := vm.Heap.Payload(callee.Slot).(*value.Closure)
		if !ok {
			return errf(ErrExpected, "stale closure reference")
		}
		entry, ok := vm.Unit.Functions[closure.FnHash]
		if !ok {
			return errf(ErrUnknownFunction, "closure targets an unregistered function")
		}
		if len(args) != entry.ArgCount {
			return errf(ErrBadArgumentCount, "closure expects %d arguments, got %d", entry.ArgCount, len(args))
		}
		if entry.IsGenerator {
			capturesSlot := vm.Heap.Allocate(&value.Tuple{Elems: append([]value.Value(nil), closure.Captures...)})
			genArgs := append(append([]value.Value(nil), args...), value.Managed(capturesSlot))
			vm.push(vm.newGenerator(closure.FnHash, entry, genArgs))
			return nil
		}
		base := len(vm.Stack)
		vm.Stack = append(vm.Stack, args...)
		vm.frames = append(vm.frames, frame{base: base, returnIP: vm.ip, isAsync: entry.IsAsync})
		captures := append([]value.Value(nil), closure.Captures...)
		tupSlot := vm.Heap.Allocate(&value.Tuple{Elems: captures})
		vm.push(value.Managed(tupSlot))
		vm.ip = entry.EntryOffset
		return nil

	case callee.IsFnPtr():
		entry, ok := vm.Unit.Functions[callee.Hash]
		if !ok {
			return errf(ErrUnknownFunction, "function pointer targets an unregistered function")
		}
		if len(args) != entry.ArgCount {
			return errf(ErrBadArgumentCount, "%s expects %d arguments, got %d", entry.Name, entry.ArgCount, len(args))
		}
		if entry.IsGenerator {
			vm.push(vm.newGenerator(callee.Hash, entry, args))
			return nil
		}
		base := len(vm.Stack)
		vm.Stack = append(vm.Stack, args...)
		vm.frames = append(vm.frames, frame{base: base, returnIP: vm.ip, isAsync: entry.IsAsync})
		vm.ip = entry.EntryOffset
		return nil

	default:
		return errf(ErrExpected, "value of kind %s is not callable", callee.Kind)
	}
}

// callInstance dispatches an OpCallInstance: the receiver and instr.A
// arguments are on the stack (receiver first); instr.Hash names an
// instance method, either compiled (Unit.InstanceFunctions — the
// receiver becomes parameter 0), host-registered (vm.Natives, which
// receives the receiver as args[0]), or — when the receiver is a
// value.Generator and the method is "next" — the VM's own generator
// step intrinsic (see resumeGenerator), since no compiled or
// host-registered method could implement resuming a suspended
// coroutine from outside the vm package.
func (vm *VM) callInstance(ctx context.Context, instr bytecode.Instr) error {
	base := len(vm.Stack) - instr.A - 1
	receiver := vm.Stack[base]

	if receiver.IsManaged() && receiver.Slot.Kind() == value.MGenerator && instr.Hash == nextMethodHash {
		args := append([]value.Value(nil), vm.Stack[base:]...)
		vm.Stack = vm.Stack[:base]
		result, err := vm.resumeGenerator(ctx, receiver)
		for _, a := range args {
			if a.IsManaged() {
				vm.Heap.Drop(a.Slot)
			}
		}
		if err != nil {
			return err
		}
		vm.push(result)
		return nil
	}

	if entryOffset, ok := vm.Unit.InstanceFunctions[instr.Hash]; ok {
		vm.frames = append(vm.frames, frame{base: base, returnIP: vm.ip})
		vm.ip = entryOffset
		return nil
	}
	if native, ok := vm.Natives[instr.Hash]; ok {
		args := append([]value.Value(nil), vm.Stack[base:]...)
		vm.Stack = vm.Stack[:base]
		result, err := native(vm, args)
		if err != nil {
			return err
		}
		vm.push(result)
		return nil
	}
	return errf(ErrUnknownFunction, "no instance method registered for hash %s", instr.Hash)
}

// doReturn pops the current frame, truncates the stack back to its
// base, and either hands the result to the caller (pushing it and
// resuming at the caller's returnIP) or, if this was the outermost
// frame, reports completion to run's caller. A returning IsAsync frame
// wraps its result in a Future{Done:true} rather than exposing it raw
// (spec.md §5's async model, simplified to eager resolution — see
// SPEC_FULL.md).
func (vm *VM) doReturn(result value.Value) (done bool, final value.Value) {
	fr := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.Stack = vm.Stack[:fr.base]

	if fr.isAsync {
		slot := vm.Heap.Allocate(&value.Future{Done: true, Result: result, Handle: uuid.NewString()})
		result = value.Managed(slot)
	}

	if len(vm.frames) == 0 {
		return true, result
	}
	vm.ip = fr.returnIP
	vm.push(result)
	return false, value.Value{}
}

var assignBinOp = map[bytecode.AssignOp]bytecode.BinOp{
	bytecode.AssignAdd:    bytecode.BinAdd,
	bytecode.AssignSub:    bytecode.BinSub,
	bytecode.AssignMul:    bytecode.BinMul,
	bytecode.AssignDiv:    bytecode.BinDiv,
	bytecode.AssignRem:    bytecode.BinRem,
	bytecode.AssignBitAnd: bytecode.BinBitAnd,
	bytecode.AssignBitXor: bytecode.BinBitXor,
	bytecode.AssignBitOr:  bytecode.BinBitOr,
	bytecode.AssignShl:    bytecode.BinShl,
	bytecode.AssignShr:    bytecode.BinShr,
}

// applyAssign combines old (the current value at the assignment
// target) with operand according to op, or simply returns operand for
// a plain `=`.
func (vm *VM) applyAssign(op bytecode.AssignOp, old, operand value.Value) (value.Value, error) {
	if op == bytecode.AssignSet {
		return operand, nil
	}
	binOp, ok := assignBinOp[op]
	if !ok {
		return value.Value{}, errf(ErrUnsupportedOperation, "unsupported compound assignment operator %d", op)
	}
	return vm.computeBinary(old, operand, binOp)
}
