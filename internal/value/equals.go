package value

// Equals implements the language's `==`. Integers and floats compare
// across kinds (implicit widening, matching the teacher's
// funvibe-funxy/internal/vm Value.Equals); managed values compare
// structurally through the heap.
func Equals(a, b Value, heap *Heap) bool {
	if a.Kind != b.Kind {
		if a.Kind == KInteger && b.Kind == KFloat {
			return float64(a.AsInteger()) == b.AsFloat()
		}
		if a.Kind == KFloat && b.Kind == KInteger {
			return a.AsFloat() == float64(b.AsInteger())
		}
		return false
	}
	switch a.Kind {
	case KUnit:
		return true
	case KBool, KByte, KChar, KInteger:
		return a.Data == b.Data
	case KFloat:
		return a.AsFloat() == b.AsFloat()
	case KType, KFnPtr:
		return a.Hash == b.Hash
	case KStackPtr:
		return a.Data == b.Data
	case KManaged:
		return managedEquals(a.Slot, b.Slot, heap)
	default:
		return false
	}
}

func managedEquals(a, b Slot, heap *Heap) bool {
	if a.kind != b.kind {
		return false
	}
	pa, pb := heap.Payload(a), heap.Payload(b)
	if pa == nil || pb == nil {
		return pa == pb
	}
	switch va := pa.(type) {
	case *String:
		vb := pb.(*String)
		return va.S == vb.S
	case *Vec:
		vb := pb.(*Vec)
		return sliceEquals(va.Elems, vb.Elems, heap)
	case *Tuple:
		vb := pb.(*Tuple)
		return sliceEquals(va.Elems, vb.Elems, heap)
	case *Object:
		vb := pb.(*Object)
		if len(va.Keys) != len(vb.Keys) {
			return false
		}
		for _, k := range va.Keys {
			av, ok := va.Get(k)
			if !ok {
				return false
			}
			bv, ok := vb.Get(k)
			if !ok || !Equals(av, bv, heap) {
				return false
			}
		}
		return true
	case *OptionVal:
		vb := pb.(*OptionVal)
		if va.Some != vb.Some {
			return false
		}
		return !va.Some || Equals(va.Value, vb.Value, heap)
	case *ResultVal:
		vb := pb.(*ResultVal)
		if va.IsOk != vb.IsOk {
			return false
		}
		if va.IsOk {
			return Equals(va.Ok, vb.Ok, heap)
		}
		return Equals(va.Err, vb.Err, heap)
	default:
		return pa == pb
	}
}

func sliceEquals(a, b []Value, heap *Heap) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equals(a[i], b[i], heap) {
			return false
		}
	}
	return true
}
