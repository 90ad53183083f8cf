package vm

import (
	"context"

	"github.com/google/uuid"

	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/hash"
	"github.com/loom-lang/loom/internal/value"
)

// suspendKind classifies why run stopped before reaching a return.
type suspendKind uint8

const (
	suspendAwait suspendKind = iota
	suspendSelect
	suspendYield
)

// pause is what run returns instead of a result when an OpAwait/
// OpSelect/OpYield can't complete in the current instruction: vm.ip,
// vm.frames, and vm.Stack are left exactly where execution stopped (no
// frame is popped), since that is already the "saved (ip, frames,
// stack) snapshot" spec.md §4.4/§9 describes — there is nothing further
// to capture. pending carries the future(s) an await/select is waiting
// on; value carries what a yield just produced.
type pause struct {
	kind    suspendKind
	pending []value.Value
	value   value.Value
}

// Suspension is a script call that paused on an OpAwait/OpSelect whose
// future(s) had not resolved after a non-blocking poll. A host driver
// holds onto it, does other work (or waits on whatever actually
// resolves the future), and calls Resume to re-enter the VM exactly
// where it left off rather than losing the call's progress (the
// "pending sentinel... with enough state to be resumed" spec.md §4.4
// asks for).
type Suspension struct {
	vm       *VM
	pending  []value.Value
	isSelect bool
}

// Pending returns the Future value(s) this suspension is blocked on:
// one value for an awaited future, instr.A values for a still-open
// select.
func (s *Suspension) Pending() []value.Value { return s.pending }

// Resume re-polls every pending future. If none have resolved it
// returns the same Suspension unchanged (ok to call again later). If
// one has resolved, it supplies that result to the paused OpAwait (or
// the winning Tuple(index, value) to the paused OpSelect) and continues
// execution from exactly the next instruction, returning a fresh
// Suspension if execution pauses again before finishing.
func (s *Suspension) Resume(ctx context.Context) (value.Value, *Suspension, error) {
	idx, result, resolved, err := pollFutures(s.vm.Heap, s.pending)
	if err != nil {
		return value.Value{}, nil, err
	}
	if !resolved {
		return value.Value{}, s, nil
	}
	continuation := result
	if s.isSelect {
		slot := s.vm.Heap.Allocate(&value.Tuple{Elems: []value.Value{value.Integer(int64(idx)), result}})
		continuation = value.Managed(slot)
	}
	s.vm.push(continuation)
	return wrapRun(s.vm, s.vm.run(ctx))
}

// wrapRun turns run's internal *pause result into the public
// *Suspension type CallByHash/CallByName/Resume hand back to callers.
func wrapRun(vm *VM, result value.Value, p *pause, err error) (value.Value, *Suspension, error) {
	if err != nil {
		return value.Value{}, nil, err
	}
	if p == nil {
		return result, nil, nil
	}
	return value.Value{}, &Suspension{vm: vm, pending: p.pending, isSelect: p.kind == suspendSelect}, nil
}

// pollFutures scans futures in order for the first one that has
// resolved, giving each a non-blocking Poll first. It mirrors
// selectFutures' own scan so a repeated Resume call picks the same
// winner selectFutures would have on a synchronous resolution.
func pollFutures(heap *value.Heap, futures []value.Value) (idx int, result value.Value, resolved bool, err error) {
	for i, f := range futures {
		if !f.IsManaged() || f.Slot.Kind() != value.MFuture {
			continue
		}
		fut, ok := heap.Payload(f.Slot).(*value.Future)
		if !ok {
			continue
		}
		pollFuture(fut)
		if !fut.Done {
			continue
		}
		if fut.Err != nil {
			return 0, value.Value{}, false, errf(ErrPanic, "await: %v", fut.Err)
		}
		return i, fut.Result, true, nil
	}
	return 0, value.Value{}, false, nil
}

func pollFuture(fut *value.Future) {
	if !fut.Done && fut.Poll != nil {
		done, result, err := fut.Poll()
		fut.Done, fut.Result, fut.Err = done, result, err
	}
}

// await implements OpAwait. A Future whose result is already Done
// (every compiled IsAsync call's return, per doReturn's eager wrapping)
// unwraps immediately. A host-provided Future gets one non-blocking
// Poll; if it still hasn't resolved, await reports a pause rather than
// an error, so the caller can suspend the whole call and hand a
// Suspension back to its own driver instead of losing progress.
func (vm *VM) await(v value.Value) (value.Value, *pause, error) {
	if !v.IsManaged() || v.Slot.Kind() != value.MFuture {
		return v, nil, nil
	}
	fut, ok := vm.Heap.Payload(v.Slot).(*value.Future)
	if !ok {
		return value.Value{}, nil, errf(ErrExpected, "stale future reference")
	}
	pollFuture(fut)
	if !fut.Done {
		return value.Value{}, &pause{kind: suspendAwait, pending: []value.Value{v}}, nil
	}
	if fut.Err != nil {
		return value.Value{}, nil, errf(ErrPanic, "await: %v", fut.Err)
	}
	return fut.Result, nil, nil
}

// selectFutures implements OpSelect against the already-popped futures
// slice (exec.go pops instr.A values before calling this, since a
// pause needs to remember exactly which values it is waiting on).
func (vm *VM) selectFutures(futures []value.Value) (value.Value, *pause, error) {
	idx, result, resolved, err := pollFutures(vm.Heap, futures)
	if err != nil {
		return value.Value{}, nil, err
	}
	if !resolved {
		return value.Value{}, &pause{kind: suspendSelect, pending: futures}, nil
	}
	slot := vm.Heap.Allocate(&value.Tuple{Elems: []value.Value{value.Integer(int64(idx)), result}})
	return value.Managed(slot), nil, nil
}

// yield implements OpYield/OpYieldUnit: it never runs inline against
// the caller's own frames (a generator function's call site builds a
// value.Generator instead of jumping into the body — see newGenerator),
// so whenever this executes it is always the generator's own single
// frame pausing to hand its value out to whatever called next().
func (vm *VM) yield(v value.Value) *pause {
	return &pause{kind: suspendYield, value: v}
}

// genState is the opaque snapshot stored in a value.Generator's State
// field: a private copy of exactly the (ip, frames, stack) a
// generator's body needs to resume from (spec.md §4.4, §9's "the VM
// models suspension as a saved (ip, frames, stack) snapshot"). It never
// overlaps with the VM's own live fields; resumeGenerator swaps it in
// for the duration of one step and swaps the (possibly advanced)
// result back out.
type genState struct {
	ip     int
	frames []frame
	stack  []value.Value
}

// nextMethodHash is the address compileFor's `for x in iter` lowering
// calls through (hash.Field(hash.Zero, "next")); a Generator receiver
// is handled as a VM intrinsic at that address rather than a compiled
// or host-registered method, since no script or host code defines the
// iterator step for a suspended coroutine.
var nextMethodHash = hash.Field(hash.Zero, "next")

// newGenerator builds the Generator value a call to an IsGenerator
// function produces: its body does not run at all yet, only at each
// subsequent next() call (see resumeGenerator). args is the callee's
// argument list in calling-convention order, including a trailing
// captured-environment tuple for a generator closure (see calls.go).
func (vm *VM) newGenerator(h hash.ID, entry bytecode.FuncEntry, args []value.Value) value.Value {
	st := &genState{
		ip:     entry.EntryOffset,
		frames: []frame{{base: 0, returnIP: -1}},
		stack:  append([]value.Value(nil), args...),
	}
	slot := vm.Heap.Allocate(&value.Generator{State: st, Done: false, FnHash: h, Resumable: true, Handle: uuid.NewString()})
	return value.Managed(slot)
}

// resumeGenerator drives gv one step: it swaps gv's saved snapshot into
// the VM's live execution fields, runs until the generator's body
// yields, returns, or errors, then swaps the VM's own state back. The
// result is packed as Tuple(has_value, value) to match the for-loop
// iterator protocol compileFor already emits for every iterable.
func (vm *VM) resumeGenerator(ctx context.Context, gv value.Value) (value.Value, error) {
	gen, ok := vm.Heap.Payload(gv.Slot).(*value.Generator)
	if !ok {
		return value.Value{}, errf(ErrExpected, "stale generator reference")
	}
	if gen.Done {
		return vm.generatorStep(false, value.Unit), nil
	}
	st, ok := gen.State.(*genState)
	if !ok || st == nil {
		return value.Value{}, errf(ErrExpected, "generator has no resumable state")
	}

	savedStack, savedFrames, savedIP := vm.Stack, vm.frames, vm.ip
	vm.Stack, vm.frames, vm.ip = st.stack, st.frames, st.ip

	result, p, err := vm.run(ctx)

	st.stack, st.frames, st.ip = vm.Stack, vm.frames, vm.ip
	vm.Stack, vm.frames, vm.ip = savedStack, savedFrames, savedIP

	if err != nil {
		gen.Done, gen.Resumable, gen.State = true, false, nil
		return value.Value{}, err
	}

	if p != nil {
		if p.kind != suspendYield {
			gen.Done, gen.Resumable, gen.State = true, false, nil
			return value.Value{}, errf(ErrUnsupportedOperation, "await inside a generator body did not resolve synchronously")
		}
		return vm.generatorStep(true, p.value), nil
	}

	// the body ran to completion: its own return value has no home in
	// the has_value/value iterator protocol, so it is dropped here the
	// same way a discarded expression statement's value would be.
	if result.IsManaged() {
		vm.Heap.Drop(result.Slot)
	}
	gen.Done, gen.Resumable, gen.State = true, false, nil
	return vm.generatorStep(false, value.Unit), nil
}

func (vm *VM) generatorStep(hasValue bool, v value.Value) value.Value {
	slot := vm.Heap.Allocate(&value.Tuple{Elems: []value.Value{value.Bool(hasValue), v}})
	return value.Managed(slot)
}

// unwrap implements OpUnwrap: extracts the inner value of a Some/Ok,
// or panics (a recoverable VM error here, not a Go panic) on None/Err.
func (vm *VM) unwrap(v value.Value) (value.Value, error) {
	if v.IsManaged() && v.Slot.Kind() == value.MOption {
		opt, ok := vm.Heap.Payload(v.Slot).(*value.OptionVal)
		if !ok {
			return value.Value{}, errf(ErrExpected, "stale option reference")
		}
		if !opt.Some {
			return value.Value{}, errf(ErrPanic, "called unwrap on None")
		}
		return opt.Value, nil
	}
	if v.IsManaged() && v.Slot.Kind() == value.MResult {
		res, ok := vm.Heap.Payload(v.Slot).(*value.ResultVal)
		if !ok {
			return value.Value{}, errf(ErrExpected, "stale result reference")
		}
		if !res.IsOk {
			return value.Value{}, errf(ErrPanic, "called unwrap on Err(%s)", res.Err.Inspect(vm.Heap))
		}
		return res.Ok, nil
	}
	return value.Value{}, errf(ErrExpected, "unwrap requires an Option or Result")
}

// matchPattern implements OpMatchSequence/OpMatchObject: a structural
// shape test against the popped target, used by pattern-matching
// constructs. This build's parser/compiler don't lower a surface
// `match` expression down to these opcodes (see DESIGN.md), so this
// path is exercised only by hand-assembled units; it still needs to
// behave correctly given the opcode's documented contract.
func (vm *VM) matchPattern(instr bytecode.Instr) (bool, error) {
	target := vm.pop()
	switch instr.Seq.Kind {
	case bytecode.SeqTuple:
		tup, ok := vm.asTuple(target)
		return ok && seqLenMatches(len(tup.Elems), instr.Seq), nil
	case bytecode.SeqVec:
		elems, ok := vm.asVecElems(target)
		return ok && seqLenMatches(len(elems), instr.Seq), nil
	case bytecode.SeqOptionSome:
		opt, ok := vm.asOption(target)
		return ok && opt.Some, nil
	case bytecode.SeqOptionNone:
		opt, ok := vm.asOption(target)
		return ok && !opt.Some, nil
	case bytecode.SeqResultOk:
		res, ok := vm.asResult(target)
		return ok && res.IsOk, nil
	case bytecode.SeqResultErr:
		res, ok := vm.asResult(target)
		return ok && !res.IsOk, nil
	case bytecode.SeqType:
		return target.IsType() && target.Hash == instr.Hash, nil
	default:
		return false, errf(ErrUnsupportedOperation, "unsupported match-sequence kind %d", instr.Seq.Kind)
	}
}

func seqLenMatches(n int, seq struct {
	Kind  bytecode.SeqKind
	Len   int
	Exact bool
}) bool {
	if seq.Exact {
		return n == seq.Len
	}
	return n >= seq.Len
}

func (vm *VM) asOption(v value.Value) (*value.OptionVal, bool) {
	if !v.IsManaged() || v.Slot.Kind() != value.MOption {
		return nil, false
	}
	o, ok := vm.Heap.Payload(v.Slot).(*value.OptionVal)
	return o, ok
}

func (vm *VM) asResult(v value.Value) (*value.ResultVal, bool) {
	if !v.IsManaged() || v.Slot.Kind() != value.MResult {
		return nil, false
	}
	r, ok := vm.Heap.Payload(v.Slot).(*value.ResultVal)
	return r, ok
}
