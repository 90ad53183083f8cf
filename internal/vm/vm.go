// Package vm executes an internal/bytecode Unit: a stack machine with
// one flat value stack shared across call frames, a managed heap for
// reference-counted aggregates, and a host-registered native function
// table. Grounded on funvibe-funxy/internal/vm's vm.go frame/stack
// layout, generalized from that VM's per-Chunk instruction pointer to
// one IP into the Unit's single shared instruction stream (see
// bytecode.Unit's doc comment), and on
// original_source/crates/runestick/src/vm.rs for the Needs-driven
// instruction semantics this package implements.
package vm

import (
	"context"

	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/hash"
	"github.com/loom-lang/loom/internal/value"
)

// NativeFn is a host function registered under a name hash, callable
// from script code exactly like a compiled function (spec.md §6 "host
// functions").
type NativeFn func(vm *VM, args []value.Value) (value.Value, error)

// frame is one call's bookkeeping: where its locals begin on the
// shared stack, where execution resumes in the caller once it
// returns, and whether the returning function is IsAsync-flagged (in
// which case the VM wraps its result in a Future rather than handing
// the raw value back — see calls.go's doReturn; this is the "futures
// resolve eagerly" simplification SPEC_FULL.md documents, not a real
// scheduler).
type frame struct {
	base     int
	returnIP int
	isAsync  bool
}

// VM interprets one Unit. It is not safe for concurrent use; each
// logical script call should run on a fresh or externally-synchronized
// VM the way original_source's Vm is re-entered per call.
type VM struct {
	Unit  *bytecode.Unit
	Heap  *value.Heap
	Stack []value.Value

	frames []frame
	ip     int

	Natives map[hash.ID]NativeFn

	branch int // OpJumpIfBranch comparison register
}

// New creates a VM ready to execute unit's functions against a fresh
// heap.
func New(unit *bytecode.Unit, natives map[hash.ID]NativeFn) *VM {
	if natives == nil {
		natives = make(map[hash.ID]NativeFn)
	}
	return &VM{
		Unit:    unit,
		Heap:    value.NewHeap(),
		Natives: natives,
	}
}

func (vm *VM) push(v value.Value) {
	vm.Stack = append(vm.Stack, v)
}

func (vm *VM) pop() value.Value {
	top := vm.Stack[len(vm.Stack)-1]
	vm.Stack = vm.Stack[:len(vm.Stack)-1]
	return top
}

func (vm *VM) peek() value.Value {
	return vm.Stack[len(vm.Stack)-1]
}

func (vm *VM) popN(n int) {
	vm.Stack = vm.Stack[:len(vm.Stack)-n]
}

func (vm *VM) curFrame() *frame {
	return &vm.frames[len(vm.frames)-1]
}

func (vm *VM) localSlot(offset int) int {
	return vm.curFrame().base + offset
}

// CallByName runs the function registered under name with args,
// returning its result value. It is the entry point pkg/script's host
// embedding API drives. A non-nil *Suspension return means the call
// paused on an OpAwait/OpSelect that did not resolve synchronously;
// see Suspension.Resume.
func (vm *VM) CallByName(ctx context.Context, name string, args []value.Value) (value.Value, *Suspension, error) {
	return vm.CallByHash(ctx, hash.Path(name), args)
}

// Await resolves v the way an OpAwait instruction would, exposed so a
// host driving CallByName/CallByHash directly can unwrap a top-level
// IsAsync function's result (always a Future{Done:true} per doReturn's
// eager-resolution wrapping, see calls.go) without reaching into the
// package's unexported suspension machinery. It errors rather than
// suspending if v is a host Future that is still pending after one
// poll, since there is no call frame here for a Suspension to resume.
func (vm *VM) Await(v value.Value) (value.Value, error) {
	result, p, err := vm.await(v)
	if err != nil {
		return value.Value{}, err
	}
	if p != nil {
		return value.Value{}, errf(ErrUnsupportedOperation, "future did not resolve synchronously")
	}
	return result, nil
}

// CallByHash runs the function registered under h with args. A
// generator-flagged entry is never executed inline here, matching
// callNamed's OpCall handling: it is constructed and returned
// immediately, body execution deferred entirely to its first next()
// call, so calling a generator function directly through this
// host-facing entry point behaves the same as calling one from script
// code via OpCall.
func (vm *VM) CallByHash(ctx context.Context, h hash.ID, args []value.Value) (value.Value, *Suspension, error) {
	entry, ok := vm.Unit.Functions[h]
	if !ok {
		return value.Value{}, nil, &Error{Kind: ErrUnknownFunction, Message: "no such function"}
	}
	if len(args) != entry.ArgCount {
		return value.Value{}, nil, &Error{Kind: ErrBadArgumentCount, Message: "wrong argument count"}
	}
	if entry.IsGenerator {
		return vm.newGenerator(h, entry, args), nil, nil
	}

	base := len(vm.Stack)
	for _, a := range args {
		vm.push(a)
	}
	vm.frames = append(vm.frames, frame{base: base, returnIP: -1, isAsync: entry.IsAsync})
	vm.ip = entry.EntryOffset

	return wrapRun(vm, vm.run(ctx))
}
