package script

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/compiler"
	"github.com/loom-lang/loom/internal/hash"
	"github.com/loom-lang/loom/internal/parser"
	"github.com/loom-lang/loom/internal/value"
	"github.com/loom-lang/loom/internal/vm"
)

// pollInterval is how long Call/Run wait between re-polling a
// Suspension's pending future(s) when driving a call to completion
// (spec.md §5's "host driver polls underlying futures via a
// host-provided waker", done here as a simple fixed-interval driver
// rather than a full event loop).
const pollInterval = time.Millisecond

// Script is a compiled program: a bytecode Unit plus the per-function
// metadata (capture lists, async/generator flags) the compiler recorded
// alongside it. It is immutable once produced by Compile and can be
// run against any number of VMs sharing the same Context.
type Script struct {
	unit *bytecode.Unit
	meta map[hash.ID]compiler.CompileMeta
}

// Compile lexes, parses, and compiles src into a Script, the pipeline
// funvibe-funxy/pkg/embed.VM.Eval runs inline; split out here so a host
// can compile once and execute many times against fresh VMs.
func Compile(src string) (*Script, error) {
	file, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("script: parse: %w", err)
	}
	unit, meta, err := compiler.CompileFile(file)
	if err != nil {
		return nil, fmt.Errorf("script: compile: %w", err)
	}
	return &Script{unit: unit, meta: meta}, nil
}

// CompileFile reads path and compiles its contents, grounded on
// funvibe-funxy/pkg/embed.VM.LoadFile.
func CompileFile(path string) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: reading %s: %w", path, err)
	}
	return Compile(string(src))
}

// VM wraps an internal/vm.VM with the host-facing marshalling
// convenience of funvibe-funxy/pkg/embed.VM: Bind-style function
// registration happens ahead of time on a Context, then New binds a
// Script to it and exposes Call/Eval-style entry points driven through
// the Marshaller instead of raw value.Value plumbing.
type VM struct {
	machine    *vm.VM
	script     *Script
	ctx        *Context
	marshaller *Marshaller
}

// New binds script to a fresh VM backed by ctx's registered host
// functions. ctx may be nil for a script with no host dependencies.
func New(script *Script, ctx *Context) *VM {
	if ctx == nil {
		ctx = NewContext()
	}
	natives := make(map[hash.ID]vm.NativeFn, len(ctx.natives))
	for h, fn := range ctx.natives {
		natives[h] = fn
	}
	return &VM{
		machine:    vm.New(script.unit, natives),
		script:     script,
		ctx:        ctx,
		marshaller: ctx.marshaller,
	}
}

// Eval compiles and immediately runs src against a fresh VM sharing
// ctx's host bindings, mirroring funvibe-funxy/pkg/embed.VM.Eval's
// one-shot convenience entry point. It calls the top-level function
// named "main" and returns its result; a script without a "main"
// function fails with the VM's unknown-function error.
func Eval(src string, ctx *Context) (interface{}, error) {
	s, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return New(s, ctx).Call(context.Background(), "main")
}

// Call invokes the compiled function named name with args, marshalling
// each Go value in through the Context's Marshaller and the result back
// out, grounded on funvibe-funxy/pkg/embed.VM.Call.
func (v *VM) Call(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	scriptArgs := make([]value.Value, len(args))
	for i, a := range args {
		sv, err := v.marshaller.ToValue(v.machine.Heap, a)
		if err != nil {
			return nil, err
		}
		scriptArgs[i] = sv
	}
	result, susp, err := v.machine.CallByName(ctx, name, scriptArgs)
	if err != nil {
		return nil, err
	}
	if susp != nil {
		result, err = driveToCompletion(ctx, susp)
		if err != nil {
			return nil, err
		}
	}
	// A top-level async function's result arrives wrapped in a
	// Future{Done:true} (internal/vm/calls.go's doReturn); unwrap it
	// here since a host calling through this convenience API has no
	// other opportunity to .await it the way script code would.
	if result.IsManaged() && result.Slot.Kind() == value.MFuture {
		result, err = v.machine.Await(result)
		if err != nil {
			return nil, err
		}
	}
	return v.marshaller.FromValue(v.machine.Heap, result, nil)
}

// driveToCompletion repeatedly polls susp until its pending future(s)
// resolve or ctx is cancelled, re-entering the VM exactly where the
// paused call left off each time progress is possible (vm.Suspension's
// doc comment). This is the "driver loop" spec.md §5 describes; Call
// and Run both run it so neither surfaces a still-pending await as an
// error the way a pass-through placeholder would.
func driveToCompletion(ctx context.Context, susp *vm.Suspension) (value.Value, error) {
	for {
		if err := ctx.Err(); err != nil {
			return value.Value{}, err
		}
		result, next, err := susp.Resume(ctx)
		if err != nil {
			return value.Value{}, err
		}
		if next == nil {
			return result, nil
		}
		susp = next
		time.Sleep(pollInterval)
	}
}

// Heap exposes the VM's managed heap so a RegisterNative callback can
// allocate managed values directly (mirroring the *m *vm.VM parameter
// every vm.NativeFn already receives).
func (v *VM) Heap() *value.Heap { return v.machine.Heap }

// Machine exposes the underlying interpreter for callers that need the
// raw call surface (CallByHash, direct Stack/Heap access) rather than
// the marshalled convenience wrappers above.
func (v *VM) Machine() *vm.VM { return v.machine }
