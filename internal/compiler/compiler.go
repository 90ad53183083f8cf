// Package compiler lowers an internal/ast tree to an internal/bytecode
// Unit. The lowering rules are grounded on
// original_source/crates/rune/src/compiling (the Needs-driven
// expression/statement split) and on funvibe-funxy/internal/vm's
// compiler_expressions.go/compiler_statements.go/compiler_loops.go for
// the general shape of a one-pass tree-walking bytecode emitter, but
// the instruction set and capture model follow spec.md §4.3 rather
// than the teacher's (the teacher captures upvalues by reference; this
// one copies captures by value at closure-creation time).
package compiler

import (
	"github.com/loom-lang/loom/internal/ast"
	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/hash"
	"github.com/loom-lang/loom/internal/scope"
)

// Compiler holds the state for lowering one file into one Unit. A
// fresh Compiler's fields are only valid for the duration of a single
// compileTopFn call; CompileFile drives one Compiler across every item in
// a file, swapping asm/scopes/loops out per function.
type Compiler struct {
	builder *bytecode.Builder
	asm     *bytecode.Assembly
	scopes  *scope.Stack
	loops   *scope.LoopStack

	meta map[hash.ID]CompileMeta

	anonFnSeq int
	pending   []pendingFn
}

// pendingFn is a closure or async block discovered mid-compile whose
// body must itself be compiled as a top-level function once the
// current function finishes (so recursive captures don't need two
// passes over the same Assembly).
type pendingFn struct {
	hash      hash.ID
	name      string
	params    []string
	captures  []string
	body      ast.Expr
	async     bool
	generator bool
}

// CompileFile lowers every item in file into a single Unit, returning
// per-function metadata the VM and host need for closures/async calls.
func CompileFile(file *ast.File) (*bytecode.Unit, map[hash.ID]CompileMeta, error) {
	c := &Compiler{
		builder: bytecode.NewBuilder(),
		meta:    make(map[hash.ID]CompileMeta),
	}

	for _, item := range file.Items {
		switch it := item.(type) {
		case *ast.FnItem:
			if err := c.compileTopFn(hash.Path(it.Name), it.Name, it.Params, nil, &ast.BlockExpr{Body: it.Body}, it.IsAsync, it.Generator); err != nil {
				return nil, nil, err
			}
		case *ast.ConstItem:
			body := &ast.Block{Tail: it.Value, Span: it.Span}
			if err := c.compileTopFn(hash.Path(it.Name), it.Name, nil, nil, &ast.BlockExpr{Body: body}, false, false); err != nil {
				return nil, nil, err
			}
		}
	}

	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		if err := c.compileTopFn(next.hash, next.name, next.params, next.captures, next.body, next.async, next.generator); err != nil {
			return nil, nil, err
		}
	}

	return c.builder.Build(), c.meta, nil
}

// compileTopFn lowers one function body into its own Assembly and
// registers it in the Unit. When captures is non-empty (a closure or
// async block), the compiled body declares the capture names as
// locals immediately after params and begins with an OpPushTuple that
// unpacks the captured-environment tuple the call protocol leaves on
// top of the new frame (spec.md §4.3 "Closures").
func (c *Compiler) compileTopFn(h hash.ID, name string, params, captures []string, body ast.Expr, async, generator bool) error {
	asm := bytecode.NewAssembly(name)
	c.asm = asm
	c.scopes = scope.NewStack()
	c.loops = scope.NewLoopStack()

	for _, p := range params {
		c.scopes.DeclareVar(p, scope.Span{})
	}
	if len(captures) > 0 {
		for _, name := range captures {
			c.scopes.DeclareVar(name, scope.Span{})
		}
		c.asm.Push(bytecode.Instr{Op: bytecode.OpPushTuple, A: len(captures)})
	}

	c.meta[h] = CompileMeta{Kind: metaKindOf(len(captures) > 0, async), Captures: captures, Generator: generator, Async: async}

	if blk, ok := body.(*ast.BlockExpr); ok && blk.Body != nil && blk.Body.Tail == nil {
		if err := c.compileExpr(body, NeedsNone); err != nil {
			return err
		}
		c.asm.Push(bytecode.Instr{Op: bytecode.OpReturnUnit})
	} else {
		if err := c.compileExpr(body, NeedsValue); err != nil {
			return err
		}
		c.asm.Push(bytecode.Instr{Op: bytecode.OpReturn})
	}

	return c.builder.DefineFunction(h, name, len(params), asm, generator, async)
}

func metaKindOf(isClosure, isAsync bool) MetaKind {
	switch {
	case isAsync:
		return MetaAsyncBlock
	case isClosure:
		return MetaClosure
	default:
		return MetaPlainFn
	}
}

// compileSubFn registers body/params/captures as a fresh function under
// a synthesized hash and returns that hash; used for closures and async
// blocks, which are compiled as ordinary functions the creating code
// then wraps in a Closure value (spec.md §4.3).
func (c *Compiler) compileSubFn(params, captures []string, body ast.Expr, async, generator bool) hash.ID {
	c.anonFnSeq++
	name := syntheticName(c.anonFnSeq)
	h := hash.Path(name)
	c.pending = append(c.pending, pendingFn{hash: h, name: name, params: params, captures: captures, body: body, async: async, generator: generator})
	return h
}

func syntheticName(n int) string {
	const digits = "0123456789abcdef"
	buf := []byte{'_', 'f', 'n'}
	if n == 0 {
		return string(append(buf, '0'))
	}
	var rev []byte
	for n > 0 {
		rev = append(rev, digits[n%16])
		n /= 16
	}
	for i := len(rev) - 1; i >= 0; i-- {
		buf = append(buf, rev[i])
	}
	return string(buf)
}

func (c *Compiler) emitDiscard(needs Needs) {
	if !needs {
		c.asm.Push(bytecode.Instr{Op: bytecode.OpPop})
	}
}

func (c *Compiler) pushUnit() {
	c.asm.Push(bytecode.Instr{Op: bytecode.OpPush, Lit: bytecode.Lit{Kind: bytecode.LitUnit}})
}
