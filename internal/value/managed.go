package value

import (
	"strings"

	"github.com/loom-lang/loom/internal/hash"
)

// String is a managed, UTF-8 payload. Strings interned into the unit's
// static pool are immutable; strings built at run time are mutable
// through an exclusive borrow (spec.md §4.1).
type String struct {
	S string
}

func (*String) Kind() ManagedKind { return MString }
func (s *String) Inspect() string { return "\"" + s.S + "\"" }

// Vec is a growable managed sequence.
type Vec struct {
	Elems []Value
}

func (*Vec) Kind() ManagedKind { return MVec }
func (v *Vec) Inspect() string {
	parts := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		parts[i] = e.Inspect(nil)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Tuple is a fixed-size managed sequence.
type Tuple struct {
	Elems []Value
}

func (*Tuple) Kind() ManagedKind { return MTuple }
func (t *Tuple) Inspect() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.Inspect(nil)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Object is an insertion-ordered mapping from string key to value
// (spec.md §3: "Object (insertion-ordered mapping from string to
// value)"). Keys and Values are kept as parallel slices, with an index
// for O(1) lookup by key.
type Object struct {
	Keys   []string
	Values []Value
	index  map[string]int
}

func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

func (*Object) Kind() ManagedKind { return MObject }

func (o *Object) Get(key string) (Value, bool) {
	if o.index == nil {
		return Value{}, false
	}
	i, ok := o.index[key]
	if !ok {
		return Value{}, false
	}
	return o.Values[i], true
}

// Set inserts or updates key, preserving insertion order on first
// insert (spec.md's object-index-set scenario in §8.4).
func (o *Object) Set(key string, v Value) {
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if i, ok := o.index[key]; ok {
		o.Values[i] = v
		return
	}
	o.index[key] = len(o.Keys)
	o.Keys = append(o.Keys, key)
	o.Values = append(o.Values, v)
}

func (o *Object) Inspect() string {
	parts := make([]string, len(o.Keys))
	for i, k := range o.Keys {
		parts[i] = "\"" + k + "\": " + o.Values[i].Inspect(nil)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Closure pairs a compiled function hash with the tuple of values it
// captured at creation time (spec.md §3, §4.3).
type Closure struct {
	FnHash   hash.ID
	Captures []Value
}

func (*Closure) Kind() ManagedKind { return MClosure }
func (c *Closure) Inspect() string { return "fn(" + c.FnHash.String() + ")" }

// Future models an in-flight async computation. Poll is non-nil for a
// future backed by a host-provided channel/callback; once Done is true,
// Result holds the produced value (or Err holds the failure). Handle is
// a host-stable identifier (a UUID string minted by internal/vm at
// creation time) a driver loop can log or key a correlation table by
// when a Future doesn't resolve synchronously — see
// internal/vm/calls.go's doReturn.
type Future struct {
	Done   bool
	Result Value
	Err    error
	Handle string
	// Poll, when non-nil, is invoked by the VM's suspension driver to
	// check for completion without blocking (spec.md §5's "host driver
	// polls underlying futures via a host-provided waker").
	Poll func() (done bool, result Value, err error)
}

func (*Future) Kind() ManagedKind { return MFuture }
func (f *Future) Inspect() string {
	if f.Done {
		return "Future(done)"
	}
	return "Future(pending)"
}

// Generator is a suspended coroutine driven by repeated calls to next();
// State is an opaque snapshot owned by the VM (spec.md §4.4, §9:
// "the VM models suspension as a saved (ip, frames, stack) snapshot").
type Generator struct {
	State     interface{}
	Done      bool
	FnHash    hash.ID
	Resumable bool
	Handle    string
}

func (*Generator) Kind() ManagedKind { return MGenerator }
func (g *Generator) Inspect() string {
	if g.Done {
		return "Generator(done)"
	}
	return "Generator(suspended)"
}

// Stream is an async sequence: each item is itself awaited; it reuses
// Generator's state-snapshot suspension mechanism but surfaces Future
// items rather than plain values.
type Stream struct {
	State  interface{}
	Done   bool
	FnHash hash.ID
	Handle string
}

func (*Stream) Kind() ManagedKind { return MStream }
func (s *Stream) Inspect() string {
	if s.Done {
		return "Stream(done)"
	}
	return "Stream(open)"
}

// ResultVal is the managed Ok(_)/Err(_) variant.
type ResultVal struct {
	IsOk bool
	Ok   Value
	Err  Value
}

func (*ResultVal) Kind() ManagedKind { return MResult }
func (r *ResultVal) Inspect() string {
	if r.IsOk {
		return "Ok(" + r.Ok.Inspect(nil) + ")"
	}
	return "Err(" + r.Err.Inspect(nil) + ")"
}

// OptionVal is the managed Some(_)/None variant.
type OptionVal struct {
	Some  bool
	Value Value
}

func (*OptionVal) Kind() ManagedKind { return MOption }
func (o *OptionVal) Inspect() string {
	if o.Some {
		return "Some(" + o.Value.Inspect(nil) + ")"
	}
	return "None"
}

// External wraps an opaque host object, distinguished by a registered
// type-id rather than a Go type switch (spec.md §3, §4.1).
type External struct {
	TypeID hash.ID
	Data   interface{}
	// Protocols, when non-nil, supplies host-registered protocol
	// implementations (display/debug/clone/drop/index-get/...) looked
	// up by name (spec.md §6: "optional protocol implementations").
	Protocols map[string]interface{}
}

func (*External) Kind() ManagedKind { return MExternal }
func (e *External) Inspect() string {
	if fn, ok := e.Protocols["debug"].(func(interface{}) string); ok {
		return fn(e.Data)
	}
	return "<external>"
}
