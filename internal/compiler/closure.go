package compiler

import (
	"github.com/loom-lang/loom/internal/ast"
	"github.com/loom-lang/loom/internal/bytecode"
)

func (c *Compiler) compileClosure(v *ast.ClosureExpr, needs Needs) error {
	captures := freeVars(v.Body, v.Params)
	for _, name := range captures {
		va, ok := c.scopes.Resolve(name)
		if !ok {
			return errAt(v.Span, ErrMissingLocal, "undeclared captured variable %q", name)
		}
		c.asm.Push(bytecode.Instr{Op: bytecode.OpCopy, Span: v.Span, A: va.Offset})
	}
	c.asm.Push(bytecode.Instr{Op: bytecode.OpTuple, Span: v.Span, A: len(captures)})

	generator := containsYield(v.Body)
	subHash := c.compileSubFn(v.Params, captures, v.Body, v.Async, generator)
	c.asm.Push(bytecode.Instr{Op: bytecode.OpClosure, Span: v.Span, Hash: subHash, A: 1})
	c.emitDiscard(needs)
	return nil
}

func (c *Compiler) compileAsyncBlock(v *ast.AsyncBlockExpr, needs Needs) error {
	bodyExpr := &ast.BlockExpr{Base: ast.Base{Span: v.Span}, Body: v.Body}
	captures := freeVars(bodyExpr, nil)
	for _, name := range captures {
		va, ok := c.scopes.Resolve(name)
		if !ok {
			return errAt(v.Span, ErrMissingLocal, "undeclared captured variable %q", name)
		}
		c.asm.Push(bytecode.Instr{Op: bytecode.OpCopy, Span: v.Span, A: va.Offset})
	}
	c.asm.Push(bytecode.Instr{Op: bytecode.OpTuple, Span: v.Span, A: len(captures)})

	subHash := c.compileSubFn(nil, captures, bodyExpr, true, false)
	c.asm.Push(bytecode.Instr{Op: bytecode.OpClosure, Span: v.Span, Hash: subHash, A: 1})
	c.asm.Push(bytecode.Instr{Op: bytecode.OpCallFn, Span: v.Span, A: 0})
	c.emitDiscard(needs)
	return nil
}

// containsYield reports whether e contains a yield reachable from its
// own function scope — i.e. not nested inside another closure or async
// block, which would own that yield instead (spec.md §4.3 "a function
// containing yield compiles as a generator").
func containsYield(e ast.Expr) bool {
	found := false
	var walk func(ast.Expr)
	var walkBlk func(*ast.Block)
	walkBlk = func(b *ast.Block) {
		if b == nil || found {
			return
		}
		for _, s := range b.Stmts {
			switch st := s.(type) {
			case *ast.LetStmt:
				walk(st.Value)
			case *ast.ExprStmt:
				walk(st.Value)
			}
		}
		walk(b.Tail)
	}
	walk = func(e ast.Expr) {
		if e == nil || found {
			return
		}
		switch v := e.(type) {
		case *ast.YieldExpr:
			found = true
		case *ast.UnaryExpr:
			walk(v.Operand)
		case *ast.BinaryExpr:
			walk(v.Left)
			walk(v.Right)
		case *ast.LogicalExpr:
			walk(v.Left)
			walk(v.Right)
		case *ast.AssignExpr:
			walk(v.Target)
			walk(v.Value)
		case *ast.FieldExpr:
			walk(v.Target)
		case *ast.TupleIndexExpr:
			walk(v.Target)
		case *ast.IndexExpr:
			walk(v.Target)
			walk(v.Index)
		case *ast.CallExpr:
			walk(v.Callee)
			for _, a := range v.Args {
				walk(a)
			}
		case *ast.InstanceCallExpr:
			walk(v.Receiver)
			for _, a := range v.Args {
				walk(a)
			}
		case *ast.VecLit:
			for _, el := range v.Elems {
				walk(el)
			}
		case *ast.TupleLit:
			for _, el := range v.Elems {
				walk(el)
			}
		case *ast.ObjectLit:
			for _, val := range v.Values {
				walk(val)
			}
		case *ast.IfExpr:
			walk(v.Cond)
			walkBlk(v.Then)
			walk(v.Else)
		case *ast.WhileExpr:
			walk(v.Cond)
			walkBlk(v.Body)
		case *ast.LoopExpr:
			walkBlk(v.Body)
		case *ast.ForExpr:
			walk(v.Iter)
			walkBlk(v.Body)
		case *ast.BreakExpr:
			walk(v.Value)
		case *ast.ReturnExpr:
			walk(v.Value)
		case *ast.AwaitExpr:
			walk(v.Value)
		case *ast.BlockExpr:
			walkBlk(v.Body)
		// ClosureExpr/AsyncBlockExpr intentionally not descended into:
		// their yields belong to their own (generator) function.
		}
	}
	walk(e)
	return found
}
