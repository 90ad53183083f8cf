package compiler

import (
	"github.com/loom-lang/loom/internal/ast"
	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/hash"
)

func (c *Compiler) compileExpr(e ast.Expr, needs Needs) error {
	switch v := e.(type) {
	case *ast.UnitLit:
		if needs {
			c.asm.Push(bytecode.Instr{Op: bytecode.OpPush, Span: v.Span, Lit: bytecode.Lit{Kind: bytecode.LitUnit}})
		}
		return nil
	case *ast.BoolLit:
		if needs {
			c.asm.Push(bytecode.Instr{Op: bytecode.OpPush, Span: v.Span, Lit: bytecode.Lit{Kind: bytecode.LitBool, Bool: v.Value}})
		}
		return nil
	case *ast.IntLit:
		if needs {
			c.asm.Push(bytecode.Instr{Op: bytecode.OpPush, Span: v.Span, Lit: bytecode.Lit{Kind: bytecode.LitInteger, Integer: v.Value}})
		}
		return nil
	case *ast.FloatLit:
		if needs {
			c.asm.Push(bytecode.Instr{Op: bytecode.OpPush, Span: v.Span, Lit: bytecode.Lit{Kind: bytecode.LitFloat, Float: v.Value}})
		}
		return nil
	case *ast.ByteLit:
		if needs {
			c.asm.Push(bytecode.Instr{Op: bytecode.OpPush, Span: v.Span, Lit: bytecode.Lit{Kind: bytecode.LitByte, Byte: v.Value}})
		}
		return nil
	case *ast.CharLit:
		if needs {
			c.asm.Push(bytecode.Instr{Op: bytecode.OpPush, Span: v.Span, Lit: bytecode.Lit{Kind: bytecode.LitChar, Char: v.Value}})
		}
		return nil
	case *ast.StringLit:
		if needs {
			slot := c.builder.AddString(v.Value)
			c.asm.Push(bytecode.Instr{Op: bytecode.OpString, Span: v.Span, StringSlot: slot})
		}
		return nil
	case *ast.Ident:
		return c.compileIdent(v, needs)
	case *ast.VecLit:
		return c.compileVec(v, needs)
	case *ast.TupleLit:
		return c.compileTuple(v, needs)
	case *ast.ObjectLit:
		return c.compileObject(v, needs)
	case *ast.UnaryExpr:
		return c.compileUnary(v, needs)
	case *ast.BinaryExpr:
		return c.compileBinary(v, needs)
	case *ast.LogicalExpr:
		return c.compileLogical(v, needs)
	case *ast.AssignExpr:
		return c.compileAssign(v, needs)
	case *ast.FieldExpr:
		if err := c.compileExpr(v.Target, NeedsValue); err != nil {
			return err
		}
		slot := c.builder.AddString(v.Name)
		c.asm.Push(bytecode.Instr{Op: bytecode.OpObjectIndexGet, Span: v.Span, StringSlot: slot})
		c.emitDiscard(needs)
		return nil
	case *ast.TupleIndexExpr:
		if err := c.compileExpr(v.Target, NeedsValue); err != nil {
			return err
		}
		c.asm.Push(bytecode.Instr{Op: bytecode.OpTupleIndexGet, Span: v.Span, A: v.Index})
		c.emitDiscard(needs)
		return nil
	case *ast.IndexExpr:
		if err := c.compileExpr(v.Target, NeedsValue); err != nil {
			return err
		}
		if err := c.compileExpr(v.Index, NeedsValue); err != nil {
			return err
		}
		c.asm.Push(bytecode.Instr{Op: bytecode.OpIndexGet, Span: v.Span})
		c.emitDiscard(needs)
		return nil
	case *ast.CallExpr:
		return c.compileCall(v, needs)
	case *ast.InstanceCallExpr:
		return c.compileInstanceCall(v, needs)
	case *ast.IfExpr:
		return c.compileIf(v, needs)
	case *ast.WhileExpr:
		return c.compileWhile(v, needs)
	case *ast.LoopExpr:
		return c.compileLoop(v, needs)
	case *ast.ForExpr:
		return c.compileFor(v, needs)
	case *ast.BreakExpr:
		return c.compileBreak(v)
	case *ast.ContinueExpr:
		return c.compileContinue(v)
	case *ast.ReturnExpr:
		return c.compileReturn(v)
	case *ast.ClosureExpr:
		return c.compileClosure(v, needs)
	case *ast.BlockExpr:
		return c.compileBlock(v.Body, needs)
	case *ast.AsyncBlockExpr:
		return c.compileAsyncBlock(v, needs)
	case *ast.AwaitExpr:
		return c.compileAwait(v, needs)
	case *ast.YieldExpr:
		return c.compileYield(v, needs)
	default:
		return errAt(bytecode.Span{}, ErrInternal, "unknown expression node %T", e)
	}
}

func (c *Compiler) compileIdent(v *ast.Ident, needs Needs) error {
	va, ok := c.scopes.Resolve(v.Name)
	if !ok {
		// Not a local: treat as a zero-argument function/const reference.
		// Always emitted (even if unneeded) since it may be a function
		// called for its side effects alone.
		c.asm.Push(bytecode.Instr{Op: bytecode.OpCall, Span: v.Span, Hash: hash.Path(v.Name), A: 0})
		c.emitDiscard(needs)
		return nil
	}
	if needs {
		c.asm.Push(bytecode.Instr{Op: bytecode.OpCopy, Span: v.Span, A: va.Offset})
	}
	return nil
}

func (c *Compiler) compileVec(v *ast.VecLit, needs Needs) error {
	for _, el := range v.Elems {
		if err := c.compileExpr(el, needs); err != nil {
			return err
		}
	}
	if needs {
		c.asm.Push(bytecode.Instr{Op: bytecode.OpVec, Span: v.Span, A: len(v.Elems)})
	}
	return nil
}

func (c *Compiler) compileTuple(v *ast.TupleLit, needs Needs) error {
	for _, el := range v.Elems {
		if err := c.compileExpr(el, needs); err != nil {
			return err
		}
	}
	if needs {
		c.asm.Push(bytecode.Instr{Op: bytecode.OpTuple, Span: v.Span, A: len(v.Elems)})
	}
	return nil
}

func (c *Compiler) compileObject(v *ast.ObjectLit, needs Needs) error {
	for _, val := range v.Values {
		if err := c.compileExpr(val, needs); err != nil {
			return err
		}
	}
	if needs {
		slot := c.builder.AddObjectKeys(v.Keys)
		c.asm.Push(bytecode.Instr{Op: bytecode.OpObject, Span: v.Span, KeysSlot: slot, A: len(v.Keys)})
	}
	return nil
}

func (c *Compiler) compileUnary(v *ast.UnaryExpr, needs Needs) error {
	if err := c.compileExpr(v.Operand, NeedsValue); err != nil {
		return err
	}
	var op bytecode.Op
	switch v.Op {
	case "-":
		op = bytecode.OpNeg
	case "!":
		op = bytecode.OpNot
	case "~":
		op = bytecode.OpBNot
	default:
		return errAt(v.Span, ErrUnsupportedUnaryOp, "unsupported unary operator %q", v.Op)
	}
	c.asm.Push(bytecode.Instr{Op: op, Span: v.Span})
	c.emitDiscard(needs)
	return nil
}

var binOpTable = map[string]bytecode.BinOp{
	"+": bytecode.BinAdd, "-": bytecode.BinSub, "*": bytecode.BinMul, "/": bytecode.BinDiv,
	"%": bytecode.BinRem, "&": bytecode.BinBitAnd, "^": bytecode.BinBitXor, "|": bytecode.BinBitOr,
	"<<": bytecode.BinShl, ">>": bytecode.BinShr,
	"<": bytecode.BinLt, ">": bytecode.BinGt, "<=": bytecode.BinLte, ">=": bytecode.BinGte,
	"++": bytecode.BinConcat,
}

func (c *Compiler) compileBinary(v *ast.BinaryExpr, needs Needs) error {
	if err := c.compileExpr(v.Left, NeedsValue); err != nil {
		return err
	}
	if err := c.compileExpr(v.Right, NeedsValue); err != nil {
		return err
	}
	switch v.Op {
	case "==":
		c.asm.Push(bytecode.Instr{Op: bytecode.OpEq, Span: v.Span})
	case "!=":
		c.asm.Push(bytecode.Instr{Op: bytecode.OpNe, Span: v.Span})
	default:
		binOp, ok := binOpTable[v.Op]
		if !ok {
			return errAt(v.Span, ErrUnsupportedBinaryOp, "unsupported binary operator %q", v.Op)
		}
		c.asm.Push(bytecode.Instr{Op: bytecode.OpOp, Span: v.Span, BinOp: binOp})
	}
	c.emitDiscard(needs)
	return nil
}

func (c *Compiler) compileLogical(v *ast.LogicalExpr, needs Needs) error {
	if err := c.compileExpr(v.Left, NeedsValue); err != nil {
		return err
	}
	end := c.asm.NewLabel("logical_end")
	if v.Op == "&&" {
		c.asm.PushJump(bytecode.Instr{Op: bytecode.OpJumpIfNotOrPop, Span: v.Span}, end)
	} else {
		c.asm.PushJump(bytecode.Instr{Op: bytecode.OpJumpIfOrPop, Span: v.Span}, end)
	}
	if err := c.compileExpr(v.Right, NeedsValue); err != nil {
		return err
	}
	if err := c.asm.CommitLabel(end); err != nil {
		return err
	}
	c.emitDiscard(needs)
	return nil
}
