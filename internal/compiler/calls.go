package compiler

import (
	"github.com/loom-lang/loom/internal/ast"
	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/hash"
)

func (c *Compiler) compileCall(v *ast.CallExpr, needs Needs) error {
	if id, ok := v.Callee.(*ast.Ident); ok {
		if _, isLocal := c.scopes.Resolve(id.Name); !isLocal {
			for _, a := range v.Args {
				if err := c.compileExpr(a, NeedsValue); err != nil {
					return err
				}
			}
			c.asm.Push(bytecode.Instr{Op: bytecode.OpCall, Span: v.Span, Hash: hash.Path(id.Name), A: len(v.Args)})
			c.emitDiscard(needs)
			return nil
		}
	}

	if err := c.compileExpr(v.Callee, NeedsValue); err != nil {
		return err
	}
	for _, a := range v.Args {
		if err := c.compileExpr(a, NeedsValue); err != nil {
			return err
		}
	}
	c.asm.Push(bytecode.Instr{Op: bytecode.OpCallFn, Span: v.Span, A: len(v.Args)})
	c.emitDiscard(needs)
	return nil
}

func (c *Compiler) compileInstanceCall(v *ast.InstanceCallExpr, needs Needs) error {
	if err := c.compileExpr(v.Receiver, NeedsValue); err != nil {
		return err
	}
	for _, a := range v.Args {
		if err := c.compileExpr(a, NeedsValue); err != nil {
			return err
		}
	}
	nameHash := hash.Field(hash.Zero, v.Method)
	c.asm.Push(bytecode.Instr{Op: bytecode.OpCallInstance, Span: v.Span, Hash: nameHash, A: len(v.Args)})
	c.emitDiscard(needs)
	return nil
}
