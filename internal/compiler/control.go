package compiler

import (
	"github.com/loom-lang/loom/internal/ast"
	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/hash"
	"github.com/loom-lang/loom/internal/scope"
)

func (c *Compiler) compileIf(v *ast.IfExpr, needs Needs) error {
	if err := c.compileExpr(v.Cond, NeedsValue); err != nil {
		return err
	}
	elseLbl := c.asm.NewLabel("if_else")
	endLbl := c.asm.NewLabel("if_end")
	c.asm.PushJump(bytecode.Instr{Op: bytecode.OpJumpIfNot, Span: v.Span}, elseLbl)

	if err := c.compileBlock(v.Then, needs); err != nil {
		return err
	}
	c.asm.PushJump(bytecode.Instr{Op: bytecode.OpJump, Span: v.Span}, endLbl)

	if err := c.asm.CommitLabel(elseLbl); err != nil {
		return err
	}
	if v.Else != nil {
		if err := c.compileExpr(v.Else, needs); err != nil {
			return err
		}
	} else if needs {
		c.pushUnit()
	}
	return c.asm.CommitLabel(endLbl)
}

func (c *Compiler) compileWhile(v *ast.WhileExpr, needs Needs) error {
	start := c.asm.NewLabel("while_start")
	end := c.asm.NewLabel("while_end")
	rec := &scope.Record{BreakLabel: end, ContinueLabel: start, TotalVarCountAtEntry: c.scopes.Total(), Name: v.Label, NeedsValue: false}
	c.loops.Push(rec)

	if err := c.asm.CommitLabel(start); err != nil {
		return err
	}
	if err := c.compileExpr(v.Cond, NeedsValue); err != nil {
		return err
	}
	c.asm.PushJump(bytecode.Instr{Op: bytecode.OpJumpIfNot, Span: v.Span}, end)
	if err := c.compileBlock(v.Body, NeedsNone); err != nil {
		return err
	}
	c.asm.PushJump(bytecode.Instr{Op: bytecode.OpJump, Span: v.Span}, start)
	if err := c.asm.CommitLabel(end); err != nil {
		return err
	}

	c.loops.Pop()
	if needs {
		c.pushUnit()
	}
	return nil
}

func (c *Compiler) compileLoop(v *ast.LoopExpr, needs Needs) error {
	start := c.asm.NewLabel("loop_start")
	end := c.asm.NewLabel("loop_end")
	rec := &scope.Record{BreakLabel: end, ContinueLabel: start, TotalVarCountAtEntry: c.scopes.Total(), Name: v.Label, NeedsValue: bool(needs)}
	c.loops.Push(rec)

	if err := c.asm.CommitLabel(start); err != nil {
		return err
	}
	if err := c.compileBlock(v.Body, NeedsNone); err != nil {
		return err
	}
	c.asm.PushJump(bytecode.Instr{Op: bytecode.OpJump, Span: v.Span}, start)
	if err := c.asm.CommitLabel(end); err != nil {
		return err
	}

	c.loops.Pop()
	return nil
}

// compileFor lowers `for x in iter { body }` against an iterator
// protocol where the receiver's `next()` instance method returns a
// Tuple(has_value: Bool, value): index 0 is checked each pass, index 1
// is bound to the loop variable. This mirrors how this spec's
// generators/streams already expose resumption as a tagged result,
// generalized to any host-provided iterable (spec.md §4.3 doesn't
// mandate a richer protocol than "the loop body runs once per produced
// element").
func (c *Compiler) compileFor(v *ast.ForExpr, needs Needs) error {
	if err := c.compileExpr(v.Iter, NeedsValue); err != nil {
		return err
	}
	outerGuard := c.scopes.Push()
	iterSlot := c.scopes.DeclareAnon(toScopeSpan(v.Span))

	start := c.asm.NewLabel("for_start")
	end := c.asm.NewLabel("for_end")
	rec := &scope.Record{BreakLabel: end, ContinueLabel: start, TotalVarCountAtEntry: c.scopes.Total(), Name: v.Label, NeedsValue: false}
	c.loops.Push(rec)

	if err := c.asm.CommitLabel(start); err != nil {
		return err
	}
	c.asm.Push(bytecode.Instr{Op: bytecode.OpCopy, Span: v.Span, A: iterSlot})
	c.asm.Push(bytecode.Instr{Op: bytecode.OpCallInstance, Span: v.Span, Hash: hash.Field(hash.Zero, "next"), A: 0})
	c.asm.Push(bytecode.Instr{Op: bytecode.OpDup, Span: v.Span})
	c.asm.Push(bytecode.Instr{Op: bytecode.OpTupleIndexGet, Span: v.Span, A: 0})
	c.asm.PushJump(bytecode.Instr{Op: bytecode.OpJumpIfNot, Span: v.Span}, end)
	c.asm.Push(bytecode.Instr{Op: bytecode.OpTupleIndexGet, Span: v.Span, A: 1})

	bodyGuard := c.scopes.Push()
	c.scopes.DeclareVar(v.Var, toScopeSpan(v.Span))
	if err := c.compileBlockBody(v.Body, NeedsNone); err != nil {
		return err
	}
	bodyFrame := c.scopes.Pop(bodyGuard)
	c.emitBlockExit(bodyFrame.LocalVarCount, NeedsNone)

	c.asm.PushJump(bytecode.Instr{Op: bytecode.OpJump, Span: v.Span}, start)
	if err := c.asm.CommitLabel(end); err != nil {
		return err
	}
	// the duplicated tuple left on the stack when the jump was taken
	c.asm.Push(bytecode.Instr{Op: bytecode.OpPop, Span: v.Span})

	c.loops.Pop()
	outerFrame := c.scopes.Pop(outerGuard)
	c.emitBlockExit(outerFrame.LocalVarCount, NeedsNone)

	if needs {
		c.pushUnit()
	}
	return nil
}

func (c *Compiler) compileBreak(v *ast.BreakExpr) error {
	var rec *scope.Record
	if v.Label != "" {
		rec = c.loops.Named(v.Label)
	} else {
		rec = c.loops.Current()
	}
	if rec == nil {
		return errAt(v.Span, ErrBreakOutsideOfLoop, "break outside of a loop")
	}
	if v.Value != nil && !rec.NeedsValue {
		return errAt(v.Span, ErrBreakDoesNotProduceValue, "this loop does not produce a value")
	}
	if v.Value != nil {
		if err := c.compileExpr(v.Value, NeedsValue); err != nil {
			return err
		}
	} else if rec.NeedsValue {
		c.pushUnit()
	}
	popCount := c.scopes.Total() - rec.TotalVarCountAtEntry
	if popCount > 0 {
		if rec.NeedsValue {
			c.asm.Push(bytecode.Instr{Op: bytecode.OpClean, Span: v.Span, A: popCount})
		} else {
			c.asm.Push(bytecode.Instr{Op: bytecode.OpPopN, Span: v.Span, A: popCount})
		}
	}
	c.asm.PushJump(bytecode.Instr{Op: bytecode.OpJump, Span: v.Span}, rec.BreakLabel.(bytecode.Label))
	return nil
}

func (c *Compiler) compileContinue(v *ast.ContinueExpr) error {
	var rec *scope.Record
	if v.Label != "" {
		rec = c.loops.Named(v.Label)
	} else {
		rec = c.loops.Current()
	}
	if rec == nil {
		return errAt(v.Span, ErrContinueOutsideOfLoop, "continue outside of a loop")
	}
	popCount := c.scopes.Total() - rec.TotalVarCountAtEntry
	if popCount > 0 {
		c.asm.Push(bytecode.Instr{Op: bytecode.OpPopN, Span: v.Span, A: popCount})
	}
	c.asm.PushJump(bytecode.Instr{Op: bytecode.OpJump, Span: v.Span}, rec.ContinueLabel.(bytecode.Label))
	return nil
}

func (c *Compiler) compileReturn(v *ast.ReturnExpr) error {
	if v.Value != nil {
		if err := c.compileExpr(v.Value, NeedsValue); err != nil {
			return err
		}
		c.asm.Push(bytecode.Instr{Op: bytecode.OpReturn, Span: v.Span})
	} else {
		c.asm.Push(bytecode.Instr{Op: bytecode.OpReturnUnit, Span: v.Span})
	}
	return nil
}

func (c *Compiler) compileAwait(v *ast.AwaitExpr, needs Needs) error {
	if err := c.compileExpr(v.Value, NeedsValue); err != nil {
		return err
	}
	c.asm.Push(bytecode.Instr{Op: bytecode.OpAwait, Span: v.Span})
	c.emitDiscard(needs)
	return nil
}

func (c *Compiler) compileYield(v *ast.YieldExpr, needs Needs) error {
	if v.Value != nil {
		if err := c.compileExpr(v.Value, NeedsValue); err != nil {
			return err
		}
		c.asm.Push(bytecode.Instr{Op: bytecode.OpYield, Span: v.Span})
	} else {
		c.asm.Push(bytecode.Instr{Op: bytecode.OpYieldUnit, Span: v.Span})
	}
	c.emitDiscard(needs)
	return nil
}
