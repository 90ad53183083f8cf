package vm

import (
	"context"

	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/value"
)

// run drives the fetch-decode-execute loop until the outermost frame
// pushed by the caller (CallByHash) returns, an instruction fails, or
// an OpAwait/OpSelect/OpYield can't complete immediately (run then
// returns a *pause instead of a result, leaving vm.ip/frames/Stack
// exactly where execution stopped). Every nested script call pushes
// another frame onto vm.frames rather than recursing into another Go
// call, so call depth is bounded by stack memory, not goroutine stack
// size (original_source's Vm::run loop takes the same approach; the
// teacher's per-Chunk VM recurses through Go's call stack instead) —
// and it is exactly this externalized frame/stack state that lets a
// pause snapshot nothing extra: it already lives in vm's own fields,
// ready for CallByHash/Suspension.Resume/resumeGenerator to pick back
// up later (spec.md §4.4, §9).
func (vm *VM) run(ctx context.Context) (value.Value, *pause, error) {
	for {
		if err := ctx.Err(); err != nil {
			return value.Value{}, nil, errf(ErrCancelled, "execution cancelled: %v", err)
		}

		instr := vm.Unit.Instructions[vm.ip]
		vm.ip++

		switch instr.Op {
		case bytecode.OpPush:
			vm.push(litValue(instr.Lit))

		case bytecode.OpPop:
			vm.dropTop()

		case bytecode.OpPopN:
			vm.dropN(instr.A)

		case bytecode.OpClean:
			top := vm.pop()
			vm.dropN(instr.A)
			vm.push(top)

		case bytecode.OpDup:
			top := vm.peek()
			if top.IsManaged() {
				vm.Heap.Clone(top.Slot)
			}
			vm.push(top)

		case bytecode.OpCopy:
			v := vm.Stack[vm.localSlot(instr.A)]
			if v.IsManaged() {
				vm.Heap.Clone(v.Slot)
			}
			vm.push(v)

		case bytecode.OpMove:
			idx := vm.localSlot(instr.A)
			v := vm.Stack[idx]
			vm.Stack[idx] = value.Unit
			vm.push(v)

		case bytecode.OpReplace:
			idx := vm.localSlot(instr.A)
			old := vm.Stack[idx]
			if old.IsManaged() {
				vm.Heap.Drop(old.Slot)
			}
			vm.Stack[idx] = vm.pop()

		case bytecode.OpDrop:
			idx := vm.localSlot(instr.A)
			old := vm.Stack[idx]
			if old.IsManaged() {
				vm.Heap.Drop(old.Slot)
			}
			vm.Stack[idx] = value.Unit

		case bytecode.OpOp:
			if err := vm.binOp(instr.BinOp); err != nil {
				return value.Value{}, nil, err
			}

		case bytecode.OpNeg:
			v := vm.pop()
			if err := vm.unaryNeg(v); err != nil {
				return value.Value{}, nil, err
			}

		case bytecode.OpNot:
			v := vm.pop()
			if err := vm.unaryNot(v); err != nil {
				return value.Value{}, nil, err
			}

		case bytecode.OpBNot:
			v := vm.pop()
			if err := vm.unaryBNot(v); err != nil {
				return value.Value{}, nil, err
			}

		case bytecode.OpEq:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(vm.valuesEqual(a, b)))

		case bytecode.OpNe:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(!vm.valuesEqual(a, b)))

		case bytecode.OpIs:
			v := vm.pop()
			vm.push(value.Bool(v.IsType() && v.Hash == instr.Hash))

		case bytecode.OpEqByte:
			v := vm.pop()
			vm.push(value.Bool(v.IsByte() && v.AsByte() == instr.Lit.Byte))

		case bytecode.OpEqChar:
			v := vm.pop()
			vm.push(value.Bool(v.IsChar() && v.AsChar() == instr.Lit.Char))

		case bytecode.OpEqInteger:
			v := vm.pop()
			vm.push(value.Bool(v.IsInteger() && v.AsInteger() == instr.Lit.Integer))

		case bytecode.OpEqStaticString:
			v := vm.pop()
			s, ok := vm.asString(v)
			vm.push(value.Bool(ok && s == vm.Unit.Strings[instr.StringSlot]))

		case bytecode.OpIsUnit:
			v := vm.pop()
			vm.push(value.Bool(v.IsUnit()))

		case bytecode.OpIsValue:
			v := vm.pop()
			vm.push(value.Bool(!v.IsUnit()))

		case bytecode.OpString:
			slot := vm.Heap.Allocate(&value.String{S: vm.Unit.Strings[instr.StringSlot]})
			vm.push(value.Managed(slot))

		case bytecode.OpVec:
			elems := vm.popArgs(instr.A)
			slot := vm.Heap.Allocate(&value.Vec{Elems: elems})
			vm.push(value.Managed(slot))

		case bytecode.OpTuple:
			elems := vm.popArgs(instr.A)
			slot := vm.Heap.Allocate(&value.Tuple{Elems: elems})
			vm.push(value.Managed(slot))

		case bytecode.OpObject:
			vals := vm.popArgs(instr.A)
			keys := vm.Unit.ObjectKeys[instr.KeysSlot]
			obj := value.NewObject()
			for i, k := range keys {
				obj.Set(k, vals[i])
			}
			slot := vm.Heap.Allocate(obj)
			vm.push(value.Managed(slot))

		case bytecode.OpTupleIndexGet:
			v := vm.pop()
			result, err := vm.tupleIndexGet(v, instr.A)
			if err != nil {
				return value.Value{}, nil, err
			}
			vm.push(result)

		case bytecode.OpTupleIndexSet:
			newVal := vm.pop()
			target := vm.pop()
			if err := vm.tupleIndexSet(target, instr.A, newVal); err != nil {
				return value.Value{}, nil, err
			}

		case bytecode.OpObjectIndexGet:
			target := vm.pop()
			result, err := vm.objectFieldGet(target, vm.Unit.Strings[instr.StringSlot])
			if err != nil {
				return value.Value{}, nil, err
			}
			vm.push(result)

		case bytecode.OpIndexGet:
			idx := vm.pop()
			target := vm.pop()
			result, err := vm.indexGet(target, idx)
			if err != nil {
				return value.Value{}, nil, err
			}
			vm.push(result)

		case bytecode.OpIndexSet:
			newVal := vm.pop()
			idx := vm.pop()
			target := vm.pop()
			if err := vm.indexSet(target, idx, newVal); err != nil {
				return value.Value{}, nil, err
			}

		case bytecode.OpAssign:
			if err := vm.execAssign(instr); err != nil {
				return value.Value{}, nil, err
			}

		case bytecode.OpCall:
			if err := vm.callNamed(instr); err != nil {
				return value.Value{}, nil, err
			}

		case bytecode.OpCallInstance:
			if err := vm.callInstance(ctx, instr); err != nil {
				return value.Value{}, nil, err
			}

		case bytecode.OpCallFn:
			if err := vm.callValue(instr); err != nil {
				return value.Value{}, nil, err
			}

		case bytecode.OpLoadFn:
			vm.push(value.FnPtr(instr.Hash))

		case bytecode.OpClosure:
			if err := vm.makeClosure(instr); err != nil {
				return value.Value{}, nil, err
			}

		case bytecode.OpJump:
			vm.ip += instr.Offset

		case bytecode.OpJumpIf:
			if vm.pop().Truthy() {
				vm.ip += instr.Offset
			}

		case bytecode.OpJumpIfNot:
			if !vm.pop().Truthy() {
				vm.ip += instr.Offset
			}

		case bytecode.OpJumpIfOrPop:
			if vm.peek().Truthy() {
				vm.ip += instr.Offset
			} else {
				vm.dropTop()
			}

		case bytecode.OpJumpIfNotOrPop:
			if !vm.peek().Truthy() {
				vm.ip += instr.Offset
			} else {
				vm.dropTop()
			}

		case bytecode.OpPopAndJumpIfNot:
			v := vm.pop()
			vm.dropN(instr.A)
			if !v.Truthy() {
				vm.ip += instr.Offset
			}

		case bytecode.OpJumpIfBranch:
			if vm.branch == instr.Branch {
				vm.ip += instr.Offset
			}

		case bytecode.OpMatchSequence, bytecode.OpMatchObject:
			matched, err := vm.matchPattern(instr)
			if err != nil {
				return value.Value{}, nil, err
			}
			vm.push(value.Bool(matched))

		case bytecode.OpUnwrap:
			v := vm.pop()
			result, err := vm.unwrap(v)
			if err != nil {
				return value.Value{}, nil, err
			}
			vm.push(result)

		case bytecode.OpReturn:
			result := vm.pop()
			done, final := vm.doReturn(result)
			if done {
				return final, nil, nil
			}

		case bytecode.OpReturnUnit:
			done, final := vm.doReturn(value.Unit)
			if done {
				return final, nil, nil
			}

		case bytecode.OpAwait:
			v := vm.pop()
			result, p, err := vm.await(v)
			if err != nil {
				return value.Value{}, nil, err
			}
			if p != nil {
				return value.Value{}, p, nil
			}
			vm.push(result)

		case bytecode.OpSelect:
			futures := vm.popArgs(instr.A)
			result, p, err := vm.selectFutures(futures)
			if err != nil {
				return value.Value{}, nil, err
			}
			if p != nil {
				return value.Value{}, p, nil
			}
			vm.push(result)

		case bytecode.OpYield:
			v := vm.pop()
			vm.push(value.Unit)
			return value.Value{}, vm.yield(v), nil

		case bytecode.OpYieldUnit:
			vm.push(value.Unit)
			return value.Value{}, vm.yield(value.Unit), nil

		case bytecode.OpPushTuple:
			v := vm.pop()
			if err := vm.pushTuple(v, instr.A); err != nil {
				return value.Value{}, nil, err
			}

		case bytecode.OpPanic:
			v := vm.pop()
			return value.Value{}, nil, errf(ErrPanic, "%s", v.Inspect(vm.Heap))

		default:
			return value.Value{}, nil, errf(ErrBadInstruction, "unhandled opcode %s", instr.Op)
		}
	}
}

func litValue(l bytecode.Lit) value.Value {
	switch l.Kind {
	case bytecode.LitUnit:
		return value.Unit
	case bytecode.LitBool:
		return value.Bool(l.Bool)
	case bytecode.LitByte:
		return value.Byte(l.Byte)
	case bytecode.LitChar:
		return value.Char(l.Char)
	case bytecode.LitInteger:
		return value.Integer(l.Integer)
	case bytecode.LitFloat:
		return value.Float(l.Float)
	case bytecode.LitType:
		return value.Type(l.Type)
	default:
		return value.Unit
	}
}

// dropTop pops the top of the stack and, if it is a managed value no
// longer referenced from anywhere else, releases it back to the heap.
func (vm *VM) dropTop() {
	v := vm.pop()
	if v.IsManaged() {
		vm.Heap.Drop(v.Slot)
	}
}

func (vm *VM) dropN(n int) {
	if n == 0 {
		return
	}
	start := len(vm.Stack) - n
	for i := start; i < len(vm.Stack); i++ {
		if vm.Stack[i].IsManaged() {
			vm.Heap.Drop(vm.Stack[i].Slot)
		}
	}
	vm.Stack = vm.Stack[:start]
}

// popArgs removes the top n values in original left-to-right order,
// for building an aggregate from them (ownership transfers into the
// aggregate, so no heap.Drop here — see ops.go's refcounting note).
func (vm *VM) popArgs(n int) []value.Value {
	start := len(vm.Stack) - n
	out := append([]value.Value(nil), vm.Stack[start:]...)
	vm.Stack = vm.Stack[:start]
	return out
}

func (vm *VM) tupleIndexGet(v value.Value, idx int) (value.Value, error) {
	tup, ok := vm.asTuple(v)
	if !ok {
		return value.Value{}, errf(ErrExpected, "expected a tuple")
	}
	if idx < 0 || idx >= len(tup.Elems) {
		return value.Value{}, errf(ErrIndexOutOfBounds, "tuple index %d out of bounds", idx)
	}
	return tup.Elems[idx], nil
}

func (vm *VM) tupleIndexSet(v value.Value, idx int, newVal value.Value) error {
	tup, ok := vm.asTuple(v)
	if !ok {
		return errf(ErrExpected, "expected a tuple")
	}
	if idx < 0 || idx >= len(tup.Elems) {
		return errf(ErrIndexOutOfBounds, "tuple index %d out of bounds", idx)
	}
	if old := tup.Elems[idx]; old.IsManaged() {
		vm.Heap.Drop(old.Slot)
	}
	tup.Elems[idx] = newVal
	return nil
}

func (vm *VM) asTuple(v value.Value) (*value.Tuple, bool) {
	if !v.IsManaged() || v.Slot.Kind() != value.MTuple {
		return nil, false
	}
	t, ok := vm.Heap.Payload(v.Slot).(*value.Tuple)
	return t, ok
}

func (vm *VM) asObject(v value.Value) (*value.Object, bool) {
	if !v.IsManaged() || v.Slot.Kind() != value.MObject {
		return nil, false
	}
	o, ok := vm.Heap.Payload(v.Slot).(*value.Object)
	return o, ok
}

func (vm *VM) objectFieldGet(target value.Value, name string) (value.Value, error) {
	obj, ok := vm.asObject(target)
	if !ok {
		return value.Value{}, errf(ErrExpected, "expected an object")
	}
	v, ok := obj.Get(name)
	if !ok {
		return value.Value{}, errf(ErrMissingField, "no field %q", name)
	}
	return v, nil
}

func (vm *VM) indexGet(target, idx value.Value) (value.Value, error) {
	if obj, ok := vm.asObject(target); ok {
		key, ok := vm.asString(idx)
		if !ok {
			return value.Value{}, errf(ErrExpected, "object index must be a string")
		}
		v, ok := obj.Get(key)
		if !ok {
			return value.Value{}, errf(ErrMissingField, "no field %q", key)
		}
		return v, nil
	}
	if elems, ok := vm.asVecElems(target); ok {
		if !idx.IsInteger() {
			return value.Value{}, errf(ErrExpected, "vec index must be an integer")
		}
		i := int(idx.AsInteger())
		if i < 0 || i >= len(elems) {
			return value.Value{}, errf(ErrIndexOutOfBounds, "vec index %d out of bounds", i)
		}
		return elems[i], nil
	}
	if tup, ok := vm.asTuple(target); ok {
		if !idx.IsInteger() {
			return value.Value{}, errf(ErrExpected, "tuple index must be an integer")
		}
		i := int(idx.AsInteger())
		if i < 0 || i >= len(tup.Elems) {
			return value.Value{}, errf(ErrIndexOutOfBounds, "tuple index %d out of bounds", i)
		}
		return tup.Elems[i], nil
	}
	return value.Value{}, errf(ErrUnsupportedOperation, "value of kind %s is not indexable", target.Kind)
}

func (vm *VM) indexSet(target, idx, newVal value.Value) error {
	if obj, ok := vm.asObject(target); ok {
		key, ok := vm.asString(idx)
		if !ok {
			return errf(ErrExpected, "object index must be a string")
		}
		if old, existed := obj.Get(key); existed && old.IsManaged() {
			vm.Heap.Drop(old.Slot)
		}
		obj.Set(key, newVal)
		return nil
	}
	if vv, ok := vm.heapVec(target); ok {
		if !idx.IsInteger() {
			return errf(ErrExpected, "vec index must be an integer")
		}
		i := int(idx.AsInteger())
		if i < 0 || i >= len(vv.Elems) {
			return errf(ErrIndexOutOfBounds, "vec index %d out of bounds", i)
		}
		if old := vv.Elems[i]; old.IsManaged() {
			vm.Heap.Drop(old.Slot)
		}
		vv.Elems[i] = newVal
		return nil
	}
	return errf(ErrUnsupportedOperation, "value of kind %s does not support index assignment", target.Kind)
}

func (vm *VM) heapVec(v value.Value) (*value.Vec, bool) {
	if !v.IsManaged() || v.Slot.Kind() != value.MVec {
		return nil, false
	}
	vv, ok := vm.Heap.Payload(v.Slot).(*value.Vec)
	return vv, ok
}

// execAssign resolves an OpAssign's Target and applies instr.AssignOp,
// reading whatever current value sits there (for the compound `+=`
// family) before writing the combined result.
func (vm *VM) execAssign(instr bytecode.Instr) error {
	switch instr.Target.Kind {
	case bytecode.TargetOffset:
		operand := vm.pop()
		idx := vm.localSlot(instr.Target.Value)
		old := vm.Stack[idx]
		combined, err := vm.applyAssign(instr.AssignOp, old, operand)
		if err != nil {
			return err
		}
		if old.IsManaged() {
			vm.Heap.Drop(old.Slot)
		}
		vm.Stack[idx] = combined
		return nil

	case bytecode.TargetField:
		operand := vm.pop()
		objVal := vm.pop()
		obj, ok := vm.asObject(objVal)
		if !ok {
			return errf(ErrExpected, "expected an object")
		}
		name := vm.Unit.Strings[instr.Target.Value]
		old, _ := obj.Get(name)
		combined, err := vm.applyAssign(instr.AssignOp, old, operand)
		if err != nil {
			return err
		}
		if old.IsManaged() {
			vm.Heap.Drop(old.Slot)
		}
		obj.Set(name, combined)
		return nil

	case bytecode.TargetTupleField:
		operand := vm.pop()
		tupVal := vm.pop()
		tup, ok := vm.asTuple(tupVal)
		if !ok {
			return errf(ErrExpected, "expected a tuple")
		}
		idx := instr.Target.Value
		if idx < 0 || idx >= len(tup.Elems) {
			return errf(ErrIndexOutOfBounds, "tuple index %d out of bounds", idx)
		}
		old := tup.Elems[idx]
		combined, err := vm.applyAssign(instr.AssignOp, old, operand)
		if err != nil {
			return err
		}
		if old.IsManaged() {
			vm.Heap.Drop(old.Slot)
		}
		tup.Elems[idx] = combined
		return nil

	default:
		return errf(ErrBadInstruction, "unknown assignment target kind %d", instr.Target.Kind)
	}
}

func (vm *VM) makeClosure(instr bytecode.Instr) error {
	tupVal := vm.pop()
	tup, ok := vm.asTuple(tupVal)
	if !ok {
		return errf(ErrExpected, "expected a captured-environment tuple")
	}
	slot := vm.Heap.Allocate(&value.Closure{FnHash: instr.Hash, Captures: tup.Elems})
	vm.push(value.Managed(slot))
	return nil
}

// pushTuple unpacks a captured-environment tuple (built by the caller
// via OpTuple and handed to the callee as the value directly above its
// arguments) into fresh locals immediately following the callee's
// declared parameters — the closure-call convention internal/compiler
// establishes in compileTopFn. The compiler never emitted a stack slot
// for these locals ahead of time (scope.DeclareVar is bookkeeping
// only), so unpacking means appending each captured value to the
// stack, not overwriting existing slots.
func (vm *VM) pushTuple(v value.Value, expectCount int) error {
	tup, ok := vm.asTuple(v)
	if !ok {
		return errf(ErrExpected, "expected a captured-environment tuple")
	}
	if len(tup.Elems) != expectCount {
		return errf(ErrBadArgumentCount, "closure expected %d captures, got %d", expectCount, len(tup.Elems))
	}
	vm.Stack = append(vm.Stack, tup.Elems...)
	return nil
}
