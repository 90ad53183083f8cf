// Package value implements the runtime value model: a compact tagged
// union (Value) plus the reference-counted managed heap that backs its
// non-trivial payloads. It is grounded on the tagged-union shape of
// funvibe-funxy's internal/vm.Value (Type/Data/Obj fields), generalized
// from that language's four-variant union to the full variant set this
// spec requires.
package value

import (
	"fmt"
	"math"

	"github.com/loom-lang/loom/internal/hash"
)

// Kind identifies which variant a Value currently holds.
type Kind uint8

const (
	KUnit Kind = iota
	KBool
	KByte
	KChar
	KInteger
	KFloat
	KType
	KFnPtr
	KStackPtr
	KManaged
)

var kindNames = [...]string{
	KUnit:     "Unit",
	KBool:     "Bool",
	KByte:     "Byte",
	KChar:     "Char",
	KInteger:  "Integer",
	KFloat:    "Float",
	KType:     "Type",
	KFnPtr:    "FnPtr",
	KStackPtr: "StackPtr",
	KManaged:  "Managed",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Value is the stack-allocated tagged union every instruction operates
// on. Non-trivial payloads live behind a Slot in the managed heap (Kind
// == KManaged) so copying a Value never copies a Vec/String/Object's
// backing storage, only this struct: Kind plus whichever of Data, Hash,
// or Slot that Kind makes live (Hash and Slot are mutually exclusive
// with each other and with a meaningful Data, since KType/KFnPtr never
// carry a Slot and KManaged never carries a Hash). The fields aren't
// unioned onto shared storage, so on 64-bit a Value is six machine
// words (48 bytes: Kind padded to a word, Data, two words of Hash, two
// words of Slot); still small enough to pass and return by value, but
// not a minimal 16-byte encoding.
//
// Data carries, depending on Kind: a bool (0/1), a byte, a rune, an
// int64 bit pattern, a float64 bit pattern, or an absolute stack index
// for StackPtr. Hash carries a hash.ID for Type/FnPtr. Slot carries a
// heap reference for Managed.
type Value struct {
	Kind Kind
	Data uint64
	Hash hash.ID // valid for KType, KFnPtr
	Slot Slot    // valid for KManaged
}

// Unit is the singular unit value.
var Unit = Value{Kind: KUnit}

func Bool(v bool) Value {
	var d uint64
	if v {
		d = 1
	}
	return Value{Kind: KBool, Data: d}
}

func Byte(v uint8) Value    { return Value{Kind: KByte, Data: uint64(v)} }
func Char(v rune) Value     { return Value{Kind: KChar, Data: uint64(uint32(v))} }
func Integer(v int64) Value { return Value{Kind: KInteger, Data: uint64(v)} }
func Float(v float64) Value { return Value{Kind: KFloat, Data: math.Float64bits(v)} }
func Type(h hash.ID) Value  { return Value{Kind: KType, Hash: h} }
func FnPtr(h hash.ID) Value { return Value{Kind: KFnPtr, Hash: h} }

// StackPtrOf constructs a reference to an absolute index in the VM's
// value stack. A StackPtr must never outlive the frame slot it
// addresses. Nothing checks this at run time, and internal/compiler has
// no returned-reference check: the surface grammar has no reference
// operator, so compiled code never constructs a StackPtr.
func StackPtrOf(absoluteIndex int) Value {
	return Value{Kind: KStackPtr, Data: uint64(absoluteIndex)}
}

func Managed(s Slot) Value { return Value{Kind: KManaged, Slot: s} }

func (v Value) IsUnit() bool     { return v.Kind == KUnit }
func (v Value) IsBool() bool     { return v.Kind == KBool }
func (v Value) IsInteger() bool  { return v.Kind == KInteger }
func (v Value) IsFloat() bool    { return v.Kind == KFloat }
func (v Value) IsByte() bool     { return v.Kind == KByte }
func (v Value) IsChar() bool     { return v.Kind == KChar }
func (v Value) IsType() bool     { return v.Kind == KType }
func (v Value) IsFnPtr() bool    { return v.Kind == KFnPtr }
func (v Value) IsStackPtr() bool { return v.Kind == KStackPtr }
func (v Value) IsManaged() bool  { return v.Kind == KManaged }

func (v Value) AsBool() bool        { return v.Data != 0 }
func (v Value) AsByte() uint8       { return uint8(v.Data) }
func (v Value) AsChar() rune        { return rune(uint32(v.Data)) }
func (v Value) AsInteger() int64    { return int64(v.Data) }
func (v Value) AsFloat() float64    { return math.Float64frombits(v.Data) }
func (v Value) AsStackIndex() int   { return int(v.Data) }

// Truthy implements the language's notion of a condition: every value
// other than Unit, a zero integer/byte, and Bool(false) is truthy. This
// mirrors the teacher's isTruthy convention (funvibe-funxy internal/vm
// treated Bool alone as the condition type); this spec additionally
// requires Unit and numeric zero to be falsy so that `while n { ... }`
// style scripts behave the way the original Rune source expects.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KUnit:
		return false
	case KBool:
		return v.AsBool()
	case KInteger:
		return v.AsInteger() != 0
	case KByte:
		return v.AsByte() != 0
	default:
		return true
	}
}

// Inspect renders a debug string for the value, consulting heap for
// managed payloads.
func (v Value) Inspect(heap *Heap) string {
	switch v.Kind {
	case KUnit:
		return "()"
	case KBool:
		return fmt.Sprintf("%t", v.AsBool())
	case KByte:
		return fmt.Sprintf("%#02x", v.AsByte())
	case KChar:
		return fmt.Sprintf("%q", v.AsChar())
	case KInteger:
		return fmt.Sprintf("%d", v.AsInteger())
	case KFloat:
		return fmt.Sprintf("%g", v.AsFloat())
	case KType:
		return "Type(" + v.Hash.String() + ")"
	case KFnPtr:
		return "FnPtr(" + v.Hash.String() + ")"
	case KStackPtr:
		return fmt.Sprintf("&%d", v.AsStackIndex())
	case KManaged:
		if heap == nil {
			return "<managed>"
		}
		return heap.Inspect(v.Slot)
	default:
		return "<?>"
	}
}
