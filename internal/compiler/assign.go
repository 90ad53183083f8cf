package compiler

import (
	"github.com/loom-lang/loom/internal/ast"
	"github.com/loom-lang/loom/internal/bytecode"
)

var compoundAssignTable = map[string]bytecode.AssignOp{
	"=": bytecode.AssignSet, "+=": bytecode.AssignAdd, "-=": bytecode.AssignSub,
	"*=": bytecode.AssignMul, "/=": bytecode.AssignDiv, "%=": bytecode.AssignRem,
	"&=": bytecode.AssignBitAnd, "^=": bytecode.AssignBitXor, "|=": bytecode.AssignBitOr,
	"<<=": bytecode.AssignShl, ">>=": bytecode.AssignShr,
}

func (c *Compiler) compileAssign(v *ast.AssignExpr, needs Needs) error {
	assignOp, ok := compoundAssignTable[v.Op]
	if !ok {
		return errAt(v.Span, ErrUnsupportedAssignExpr, "unsupported assignment operator %q", v.Op)
	}

	switch target := v.Target.(type) {
	case *ast.Ident:
		va, ok := c.scopes.Resolve(target.Name)
		if !ok {
			return errAt(target.Span, ErrMissingLocal, "undeclared variable %q", target.Name)
		}
		if err := c.compileExpr(v.Value, NeedsValue); err != nil {
			return err
		}
		c.asm.Push(bytecode.Instr{
			Op: bytecode.OpAssign, Span: v.Span, AssignOp: assignOp,
			Target: bytecode.Target{Kind: bytecode.TargetOffset, Value: va.Offset},
		})
	case *ast.FieldExpr:
		if err := c.compileExpr(target.Target, NeedsValue); err != nil {
			return err
		}
		if err := c.compileExpr(v.Value, NeedsValue); err != nil {
			return err
		}
		slot := c.builder.AddString(target.Name)
		c.asm.Push(bytecode.Instr{
			Op: bytecode.OpAssign, Span: v.Span, AssignOp: assignOp,
			Target: bytecode.Target{Kind: bytecode.TargetField, Value: slot},
		})
	case *ast.TupleIndexExpr:
		if err := c.compileExpr(target.Target, NeedsValue); err != nil {
			return err
		}
		if err := c.compileExpr(v.Value, NeedsValue); err != nil {
			return err
		}
		c.asm.Push(bytecode.Instr{
			Op: bytecode.OpAssign, Span: v.Span, AssignOp: assignOp,
			Target: bytecode.Target{Kind: bytecode.TargetTupleField, Value: target.Index},
		})
	case *ast.IndexExpr:
		if assignOp != bytecode.AssignSet {
			return errAt(v.Span, ErrUnsupportedAssignExpr, "compound assignment to an index expression is not supported")
		}
		if err := c.compileExpr(target.Target, NeedsValue); err != nil {
			return err
		}
		if err := c.compileExpr(target.Index, NeedsValue); err != nil {
			return err
		}
		if err := c.compileExpr(v.Value, NeedsValue); err != nil {
			return err
		}
		c.asm.Push(bytecode.Instr{Op: bytecode.OpIndexSet, Span: v.Span})
	default:
		return errAt(v.Span, ErrUnsupportedAssignExpr, "cannot assign to this expression")
	}

	if needs {
		c.pushUnit()
	}
	return nil
}
