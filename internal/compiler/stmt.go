package compiler

import (
	"github.com/loom-lang/loom/internal/ast"
	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/scope"
)

// compileBlock lowers a block as its own lexical scope: its statements
// are compiled for side effects only, its tail expression (if any) is
// compiled under needs, and on exit the block's own local slots are
// removed with Clean (value kept on top) or PopN (nothing to keep),
// per spec.md §4.3's block-exit rule.
func (c *Compiler) compileBlock(b *ast.Block, needs Needs) error {
	guard := c.scopes.Push()
	if err := c.compileBlockBody(b, needs); err != nil {
		return err
	}
	frame := c.scopes.Pop(guard)
	c.emitBlockExit(frame.LocalVarCount, needs)
	return nil
}

// compileBlockBody compiles b's statements and tail without pushing or
// popping a scope frame itself — used when the caller has already
// introduced bindings (e.g. a for-loop's element variable) that must
// share the block's frame.
func (c *Compiler) compileBlockBody(b *ast.Block, needs Needs) error {
	for _, s := range b.Stmts {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	if b.Tail != nil {
		return c.compileExpr(b.Tail, needs)
	}
	if needs {
		c.pushUnit()
	}
	return nil
}

func (c *Compiler) emitBlockExit(localCount int, needs Needs) {
	if localCount == 0 {
		return
	}
	if needs {
		c.asm.Push(bytecode.Instr{Op: bytecode.OpClean, A: localCount})
	} else {
		c.asm.Push(bytecode.Instr{Op: bytecode.OpPopN, A: localCount})
	}
}

func (c *Compiler) compileStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.LetStmt:
		return c.compileLet(st)
	case *ast.ExprStmt:
		return c.compileExpr(st.Value, NeedsNone)
	default:
		return errAt(bytecode.Span{}, ErrInternal, "unknown statement node %T", s)
	}
}

func (c *Compiler) compileLet(st *ast.LetStmt) error {
	if err := c.compileExpr(st.Value, NeedsValue); err != nil {
		return err
	}
	slot, rebinding := c.scopes.DeclareVar(st.Name, toScopeSpan(st.Span))
	if rebinding {
		c.asm.Push(bytecode.Instr{Op: bytecode.OpReplace, A: slot, Span: st.Span})
	}
	return nil
}

func toScopeSpan(s bytecode.Span) scope.Span {
	return scope.Span{Start: s.Start, End: s.End, Line: s.Line, Col: s.Col}
}
