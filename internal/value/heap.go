package value

import "fmt"

// ManagedKind identifies the payload kind held behind a Slot, letting
// the runtime dispatch on it without dereferencing (spec.md §4.1).
type ManagedKind uint8

const (
	MString ManagedKind = iota
	MVec
	MTuple
	MObject
	MClosure
	MFuture
	MGenerator
	MStream
	MResult
	MOption
	MExternal
)

var managedKindNames = [...]string{
	MString: "String", MVec: "Vec", MTuple: "Tuple", MObject: "Object",
	MClosure: "Closure", MFuture: "Future", MGenerator: "Generator",
	MStream: "Stream", MResult: "Result", MOption: "Option", MExternal: "External",
}

func (k ManagedKind) String() string {
	if int(k) < len(managedKindNames) {
		return managedKindNames[k]
	}
	return "Unknown"
}

// Slot is an opaque handle into the managed heap. It carries its kind
// inline so callers can dispatch before ever touching the heap's
// internal table (spec.md §4.1: "Slot is a small opaque handle carrying
// its kind").
type Slot struct {
	index int
	kind  ManagedKind
}

func (s Slot) Kind() ManagedKind { return s.kind }
func (s Slot) IsValid() bool     { return s.index >= 0 }

var InvalidSlot = Slot{index: -1}

// AccessError is raised when a borrow would violate the heap's dynamic
// exclusivity rule: a shared borrow may coexist with other shared
// borrows, but an exclusive borrow must be alone.
type AccessError struct {
	Slot   Slot
	Reason string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access error on %s slot: %s", e.Slot.kind, e.Reason)
}

// cell is one entry in the managed heap: a refcounted payload plus its
// current borrow state.
type cell struct {
	kind     ManagedKind
	payload  Payload
	refCount int
	// borrow state: sharedCount>0 means that many shared borrows are
	// live; exclusive means one exclusive borrow is live. The two are
	// mutually exclusive, checked dynamically (spec.md §4.1).
	sharedCount int
	exclusive   bool
	// freed marks a slot that has been reclaimed; the index may be
	// reused by a later Allocate call (free list).
	freed bool
}

// Payload is implemented by every concrete managed value (String, Vec,
// Tuple, Object, Closure, Future, Generator, Stream, Result, Option,
// External). It exists purely so the heap can store heterogeneous
// payloads behind a single slice; runtime dispatch on the concrete type
// happens via a type switch at the call site, the pattern spec.md's
// design notes recommend over virtual tables.
type Payload interface {
	Kind() ManagedKind
	Inspect() string
}

// Heap is the reference-counted managed-value store owned by one VM
// instance. It is not safe for concurrent use from multiple goroutines;
// the concurrency model (spec.md §5) is one VM = one execution context.
type Heap struct {
	cells   []cell
	freeIdx []int
}

// NewHeap constructs an empty managed heap.
func NewHeap() *Heap {
	return &Heap{cells: make([]cell, 0, 256)}
}

// Allocate stores payload with an initial refcount of 1 and returns its
// slot.
func (h *Heap) Allocate(payload Payload) Slot {
	kind := payload.Kind()
	if n := len(h.freeIdx); n > 0 {
		idx := h.freeIdx[n-1]
		h.freeIdx = h.freeIdx[:n-1]
		h.cells[idx] = cell{kind: kind, payload: payload, refCount: 1}
		return Slot{index: idx, kind: kind}
	}
	h.cells = append(h.cells, cell{kind: kind, payload: payload, refCount: 1})
	return Slot{index: len(h.cells) - 1, kind: kind}
}

// Clone increments a slot's refcount, the cost of a Copy{offset}
// instruction over a managed value (spec.md §4.4).
func (h *Heap) Clone(s Slot) {
	if !s.IsValid() {
		return
	}
	h.cells[s.index].refCount++
}

// Drop decrements a slot's refcount, freeing the cell (and, if it
// references other slots, transitively dropping them) when it reaches
// zero. Cyclic structures are not reclaimed by this pass: spec.md §9
// documents this as accepted behavior (option (a)), matching the
// original Rune source's Rc-based runtime.
func (h *Heap) Drop(s Slot) {
	if !s.IsValid() {
		return
	}
	c := &h.cells[s.index]
	if c.freed {
		return
	}
	c.refCount--
	if c.refCount > 0 {
		return
	}
	payload := c.payload
	c.payload = nil
	c.freed = true
	h.freeIdx = append(h.freeIdx, s.index)
	for _, child := range childSlots(payload) {
		h.Drop(child)
	}
}

// Payload returns the live payload at s, or nil if s has been freed.
func (h *Heap) Payload(s Slot) Payload {
	if !s.IsValid() || s.index >= len(h.cells) {
		return nil
	}
	c := &h.cells[s.index]
	if c.freed {
		return nil
	}
	return c.payload
}

// Replace overwrites the payload stored at s in place, used by mutating
// builtins (e.g. object index-set) that must preserve slot identity
// across the mutation.
func (h *Heap) Replace(s Slot, payload Payload) {
	if !s.IsValid() {
		return
	}
	h.cells[s.index].payload = payload
}

// BorrowShared acquires a shared (read) borrow, failing if an exclusive
// borrow is already live.
func (h *Heap) BorrowShared(s Slot) (func(), error) {
	if !s.IsValid() {
		return func() {}, nil
	}
	c := &h.cells[s.index]
	if c.exclusive {
		return nil, &AccessError{Slot: s, Reason: "already exclusively borrowed"}
	}
	c.sharedCount++
	return func() {
		c.sharedCount--
	}, nil
}

// BorrowExclusive acquires an exclusive (write) borrow, failing if any
// borrow — shared or exclusive — is already live.
func (h *Heap) BorrowExclusive(s Slot) (func(), error) {
	if !s.IsValid() {
		return func() {}, nil
	}
	c := &h.cells[s.index]
	if c.exclusive {
		return nil, &AccessError{Slot: s, Reason: "already exclusively borrowed"}
	}
	if c.sharedCount > 0 {
		return nil, &AccessError{Slot: s, Reason: "already shared-borrowed"}
	}
	c.exclusive = true
	return func() {
		c.exclusive = false
	}, nil
}

// Inspect renders a debug string for the payload at s.
func (h *Heap) Inspect(s Slot) string {
	p := h.Payload(s)
	if p == nil {
		return "<freed>"
	}
	return p.Inspect()
}

// Live reports the number of live (unfreed) cells, exposed so a host
// can poll for heap pressure (spec.md §9 design note on cyclic
// structures: "invoked on explicit gc() or on heap-pressure
// thresholds" — this repo ships the polling hook, not the collector;
// see DESIGN.md).
func (h *Heap) Live() int {
	n := 0
	for i := range h.cells {
		if !h.cells[i].freed {
			n++
		}
	}
	return n
}

// childSlots returns the slots a payload transitively owns, used by
// Drop to cascade reference decrements through composite values.
func childSlots(p Payload) []Slot {
	switch v := p.(type) {
	case *Vec:
		return collectManaged(v.Elems)
	case *Tuple:
		return collectManaged(v.Elems)
	case *Object:
		out := make([]Slot, 0, len(v.Values))
		out = append(out, collectManaged(v.Values)...)
		return out
	case *Closure:
		return collectManaged(v.Captures)
	case *ResultVal:
		if v.IsOk && v.Ok.IsManaged() {
			return []Slot{v.Ok.Slot}
		}
		if !v.IsOk && v.Err.IsManaged() {
			return []Slot{v.Err.Slot}
		}
	case *OptionVal:
		if v.Some && v.Value.IsManaged() {
			return []Slot{v.Value.Slot}
		}
	}
	return nil
}

func collectManaged(vs []Value) []Slot {
	var out []Slot
	for _, v := range vs {
		if v.IsManaged() {
			out = append(out, v.Slot)
		}
	}
	return out
}
