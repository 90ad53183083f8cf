package vm

import (
	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/value"
)

// binOp implements one OpOp instruction: pop b, pop a, push a OP b,
// with runtime type dispatch the way original_source's Inst::Op
// evaluator does (int/int, float/float, and int promoted to float when
// mixed; ++ and :: additionally operate on managed Vec/String values).
func (vm *VM) binOp(op bytecode.BinOp) error {
	b := vm.pop()
	a := vm.pop()
	result, err := vm.computeBinary(a, b, op)
	if err != nil {
		return err
	}
	vm.push(result)
	return nil
}

// computeBinary is binOp's pure core, also used by OpAssign's compound
// operators (a += b compiles to the same arithmetic this uses, applied
// to a freshly read local/field instead of two popped stack values).
func (vm *VM) computeBinary(a, b value.Value, op bytecode.BinOp) (value.Value, error) {
	switch op {
	case bytecode.BinConcat:
		return vm.concatValues(a, b)
	case bytecode.BinCons:
		return vm.consValues(a, b)
	case bytecode.BinAdd:
		if _, aok := vm.asString(a); aok {
			if _, bok := vm.asString(b); bok {
				return vm.concatValues(a, b)
			}
		}
	}
	if a.IsInteger() && b.IsInteger() {
		return vm.intOpValue(op, a.AsInteger(), b.AsInteger())
	}
	if numeric(a) && numeric(b) {
		return vm.floatOpValue(op, asFloat(a), asFloat(b))
	}
	return value.Value{}, errf(ErrUnsupportedOperation, "operator %d not supported between %s and %s", op, a.Kind, b.Kind)
}

func numeric(v value.Value) bool { return v.IsInteger() || v.IsFloat() }

func asFloat(v value.Value) float64 {
	if v.IsInteger() {
		return float64(v.AsInteger())
	}
	return v.AsFloat()
}

func (vm *VM) intOpValue(op bytecode.BinOp, a, b int64) (value.Value, error) {
	switch op {
	case bytecode.BinAdd:
		return value.Integer(a + b), nil
	case bytecode.BinSub:
		return value.Integer(a - b), nil
	case bytecode.BinMul:
		return value.Integer(a * b), nil
	case bytecode.BinDiv:
		if b == 0 {
			return value.Value{}, errf(ErrDivideByZero, "division by zero")
		}
		return value.Integer(a / b), nil
	case bytecode.BinRem:
		if b == 0 {
			return value.Value{}, errf(ErrDivideByZero, "division by zero")
		}
		return value.Integer(a % b), nil
	case bytecode.BinBitAnd:
		return value.Integer(a & b), nil
	case bytecode.BinBitXor:
		return value.Integer(a ^ b), nil
	case bytecode.BinBitOr:
		return value.Integer(a | b), nil
	case bytecode.BinShl:
		return value.Integer(a << uint(b)), nil
	case bytecode.BinShr:
		return value.Integer(a >> uint(b)), nil
	case bytecode.BinLt:
		return value.Bool(a < b), nil
	case bytecode.BinGt:
		return value.Bool(a > b), nil
	case bytecode.BinLte:
		return value.Bool(a <= b), nil
	case bytecode.BinGte:
		return value.Bool(a >= b), nil
	default:
		return value.Value{}, errf(ErrUnsupportedOperation, "unsupported integer operator %d", op)
	}
}

func (vm *VM) floatOpValue(op bytecode.BinOp, a, b float64) (value.Value, error) {
	switch op {
	case bytecode.BinAdd:
		return value.Float(a + b), nil
	case bytecode.BinSub:
		return value.Float(a - b), nil
	case bytecode.BinMul:
		return value.Float(a * b), nil
	case bytecode.BinDiv:
		return value.Float(a / b), nil
	case bytecode.BinRem:
		return value.Float(float64(int64(a) % int64(b))), nil
	case bytecode.BinLt:
		return value.Bool(a < b), nil
	case bytecode.BinGt:
		return value.Bool(a > b), nil
	case bytecode.BinLte:
		return value.Bool(a <= b), nil
	case bytecode.BinGte:
		return value.Bool(a >= b), nil
	default:
		return value.Value{}, errf(ErrUnsupportedOperation, "unsupported float operator %d", op)
	}
}

func (vm *VM) concatValues(a, b value.Value) (value.Value, error) {
	as, aok := vm.asString(a)
	bs, bok := vm.asString(b)
	if aok && bok {
		slot := vm.Heap.Allocate(&value.String{S: as + bs})
		return value.Managed(slot), nil
	}
	av, aIsVec := vm.asVecElems(a)
	bv, bIsVec := vm.asVecElems(b)
	if aIsVec && bIsVec {
		out := make([]value.Value, 0, len(av)+len(bv))
		out = append(out, av...)
		out = append(out, bv...)
		slot := vm.Heap.Allocate(&value.Vec{Elems: out})
		return value.Managed(slot), nil
	}
	return value.Value{}, errf(ErrUnsupportedOperation, "++ requires two strings or two vecs")
}

func (vm *VM) consValues(a, b value.Value) (value.Value, error) {
	elems, ok := vm.asVecElems(b)
	if !ok {
		return value.Value{}, errf(ErrUnsupportedOperation, ":: requires a vec on the right")
	}
	out := make([]value.Value, 0, len(elems)+1)
	out = append(out, a)
	out = append(out, elems...)
	slot := vm.Heap.Allocate(&value.Vec{Elems: out})
	return value.Managed(slot), nil
}

func (vm *VM) asString(v value.Value) (string, bool) {
	if !v.IsManaged() || v.Slot.Kind() != value.MString {
		return "", false
	}
	s, ok := vm.Heap.Payload(v.Slot).(*value.String)
	if !ok {
		return "", false
	}
	return s.S, true
}

func (vm *VM) asVecElems(v value.Value) ([]value.Value, bool) {
	if !v.IsManaged() || v.Slot.Kind() != value.MVec {
		return nil, false
	}
	vv, ok := vm.Heap.Payload(v.Slot).(*value.Vec)
	if !ok {
		return nil, false
	}
	return vv.Elems, true
}

func (vm *VM) unaryNeg(v value.Value) error {
	switch {
	case v.IsInteger():
		vm.push(value.Integer(-v.AsInteger()))
	case v.IsFloat():
		vm.push(value.Float(-v.AsFloat()))
	default:
		return errf(ErrUnsupportedOperation, "unary - not supported on %s", v.Kind)
	}
	return nil
}

func (vm *VM) unaryNot(v value.Value) error {
	vm.push(value.Bool(!v.Truthy()))
	return nil
}

func (vm *VM) unaryBNot(v value.Value) error {
	if !v.IsInteger() {
		return errf(ErrUnsupportedOperation, "unary ~ not supported on %s", v.Kind)
	}
	vm.push(value.Integer(^v.AsInteger()))
	return nil
}

// valuesEqual implements structural equality for OpEq/OpNe, recursing
// into managed aggregates the way original_source's value equality
// does for Vec/Tuple/Object.
func (vm *VM) valuesEqual(a, b value.Value) bool {
	if a.Kind != b.Kind {
		if numeric(a) && numeric(b) {
			return asFloat(a) == asFloat(b)
		}
		return false
	}
	switch a.Kind {
	case value.KUnit:
		return true
	case value.KBool:
		return a.AsBool() == b.AsBool()
	case value.KByte:
		return a.AsByte() == b.AsByte()
	case value.KChar:
		return a.AsChar() == b.AsChar()
	case value.KInteger:
		return a.AsInteger() == b.AsInteger()
	case value.KFloat:
		return a.AsFloat() == b.AsFloat()
	case value.KType, value.KFnPtr:
		return a.Hash == b.Hash
	case value.KManaged:
		return vm.managedEqual(a.Slot, b.Slot)
	default:
		return false
	}
}

func (vm *VM) managedEqual(a, b value.Slot) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	pa, pb := vm.Heap.Payload(a), vm.Heap.Payload(b)
	switch av := pa.(type) {
	case *value.String:
		bv, ok := pb.(*value.String)
		return ok && av.S == bv.S
	case *value.Vec:
		bv, ok := pb.(*value.Vec)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !vm.valuesEqual(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *value.Tuple:
		bv, ok := pb.(*value.Tuple)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !vm.valuesEqual(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *value.Object:
		bv, ok := pb.(*value.Object)
		if !ok || len(av.Keys) != len(bv.Keys) {
			return false
		}
		for i, k := range av.Keys {
			other, ok := bv.Get(k)
			if !ok || !vm.valuesEqual(av.Values[i], other) {
				return false
			}
		}
		return true
	default:
		return pa == pb
	}
}
