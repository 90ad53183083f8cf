package parser

import (
	"github.com/loom-lang/loom/internal/ast"
	"github.com/loom-lang/loom/internal/token"
)

// parseBlock parses `{ stmt* tail? }`. A trailing expression not
// followed by `;` becomes the block's tail value; everything else is a
// statement, matching spec.md §4.3's block-value discipline (Needs is
// decided at the call site, not here).
func (p *Parser) parseBlock() (*ast.Block, error) {
	start := p.cur
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	b := &ast.Block{}
	for !p.at(token.RBrace) {
		if p.at(token.Let) {
			stmt, err := p.parseLet()
			if err != nil {
				return nil, err
			}
			b.Stmts = append(b.Stmts, stmt)
			continue
		}

		exprStart := p.cur
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.at(token.Semi) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			b.Stmts = append(b.Stmts, &ast.ExprStmt{Value: e, Span: spanBetween(exprStart, p.cur)})
			continue
		}
		if p.at(token.RBrace) {
			b.Tail = e
			break
		}
		// An expression with its own brace (if/while/loop/for/block) may
		// appear mid-block without a trailing `;` and still be a statement.
		if blockLike(e) {
			b.Stmts = append(b.Stmts, &ast.ExprStmt{Value: e, Span: spanBetween(exprStart, p.cur)})
			continue
		}
		b.Tail = e
		break
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	b.Span = p.span(start)
	return b, nil
}

func blockLike(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IfExpr, *ast.WhileExpr, *ast.LoopExpr, *ast.ForExpr, *ast.BlockExpr:
		return true
	}
	return false
}

func spanBetween(start, end token.Token) ast.Span {
	return ast.Span{Start: start.Start, End: end.Start, Line: start.Line, Col: start.Col}
}

func (p *Parser) parseLet() (*ast.LetStmt, error) {
	start := p.cur
	if _, err := p.expect(token.Let); err != nil {
		return nil, err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Eq); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &ast.LetStmt{Name: name.Text, Value: val, Span: p.span(start)}, nil
}

func (p *Parser) parseTupleOrParen(start token.Token) (ast.Expr, error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	if p.at(token.RParen) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.UnitLit{Base: baseOf(p, start)}, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(token.RParen) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return first, nil
	}
	elems := []ast.Expr{first}
	for p.at(token.Comma) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.at(token.RParen) {
			break
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return &ast.TupleLit{Base: baseOf(p, start), Elems: elems}, nil
}

func (p *Parser) parseVec(start token.Token) (ast.Expr, error) {
	if err := p.advance(); err != nil { // consume '['
		return nil, err
	}
	var elems []ast.Expr
	for !p.at(token.RBracket) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(token.RBracket); err != nil {
		return nil, err
	}
	return &ast.VecLit{Base: baseOf(p, start), Elems: elems}, nil
}

func (p *Parser) parseObject(start token.Token) (ast.Expr, error) {
	if err := p.advance(); err != nil { // consume '#{'
		return nil, err
	}
	obj := &ast.ObjectLit{Base: baseOf(p, start)}
	for !p.at(token.RBrace) {
		var key string
		switch p.cur.Kind {
		case token.Str:
			key = p.cur.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
		case token.Ident:
			key = p.cur.Text
			if err := p.advance(); err != nil {
				return nil, err
			}
		default:
			return nil, p.errf("expected object key, found %s", p.cur.Kind)
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		obj.Keys = append(obj.Keys, key)
		obj.Values = append(obj.Values, val)
		if p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	obj.Span = p.span(start)
	return obj, nil
}

func (p *Parser) parseIf() (ast.Expr, error) {
	start := p.cur
	if _, err := p.expect(token.If); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	ifExpr := &ast.IfExpr{Base: baseOf(p, start), Cond: cond, Then: then}
	if p.at(token.Else) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.at(token.If) {
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			ifExpr.Else = elseIf
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			ifExpr.Else = &ast.BlockExpr{Base: baseOf(p, start), Body: elseBlock}
		}
	}
	return ifExpr, nil
}

func (p *Parser) parseWhile(label string) (ast.Expr, error) {
	start := p.cur
	if _, err := p.expect(token.While); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileExpr{Base: baseOf(p, start), Label: label, Cond: cond, Body: body}, nil
}

func (p *Parser) parseLoop(label string) (ast.Expr, error) {
	start := p.cur
	if _, err := p.expect(token.Loop); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.LoopExpr{Base: baseOf(p, start), Label: label, Body: body}, nil
}

func (p *Parser) parseFor(label string) (ast.Expr, error) {
	start := p.cur
	if _, err := p.expect(token.For); err != nil {
		return nil, err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.In); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForExpr{Base: baseOf(p, start), Label: label, Var: name.Text, Iter: iter, Body: body}, nil
}

func (p *Parser) parseBreak() (ast.Expr, error) {
	start := p.cur
	if _, err := p.expect(token.Break); err != nil {
		return nil, err
	}
	e := &ast.BreakExpr{Base: baseOf(p, start)}
	if !exprTerminator(p.cur.Kind) {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Value = v
	}
	return e, nil
}

func (p *Parser) parseContinue() (ast.Expr, error) {
	start := p.cur
	if _, err := p.expect(token.Continue); err != nil {
		return nil, err
	}
	return &ast.ContinueExpr{Base: baseOf(p, start)}, nil
}

func (p *Parser) parseReturn() (ast.Expr, error) {
	start := p.cur
	if _, err := p.expect(token.Return); err != nil {
		return nil, err
	}
	e := &ast.ReturnExpr{Base: baseOf(p, start)}
	if !exprTerminator(p.cur.Kind) {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Value = v
	}
	return e, nil
}

func (p *Parser) parseYield() (ast.Expr, error) {
	start := p.cur
	if _, err := p.expect(token.Yield); err != nil {
		return nil, err
	}
	e := &ast.YieldExpr{Base: baseOf(p, start)}
	if !exprTerminator(p.cur.Kind) {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Value = v
	}
	return e, nil
}

// exprTerminator reports whether k ends an optional-value expression
// like `break`/`return`/`yield` with no operand.
func exprTerminator(k token.Kind) bool {
	switch k {
	case token.Semi, token.RBrace, token.RParen, token.RBracket, token.Comma, token.EOF:
		return true
	}
	return false
}

func (p *Parser) parseClosure(move bool) (ast.Expr, error) {
	start := p.cur
	var params []string
	if p.at(token.PipePipe) {
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else {
		if _, err := p.expect(token.Pipe); err != nil {
			return nil, err
		}
		for !p.at(token.Pipe) {
			id, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			params = append(params, id.Text)
			if p.at(token.Comma) {
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
		}
		if _, err := p.expect(token.Pipe); err != nil {
			return nil, err
		}
	}
	var body ast.Expr
	var err error
	if p.at(token.LBrace) {
		blk, berr := p.parseBlock()
		if berr != nil {
			return nil, berr
		}
		body = &ast.BlockExpr{Base: baseOf(p, start), Body: blk}
	} else {
		body, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return &ast.ClosureExpr{Base: baseOf(p, start), Params: params, Body: body, Move: move}, nil
}

func (p *Parser) parseAsync() (ast.Expr, error) {
	start := p.cur
	if _, err := p.expect(token.Async); err != nil {
		return nil, err
	}
	move := false
	if p.at(token.Move) {
		move = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.at(token.Pipe) || p.at(token.PipePipe) {
		closure, err := p.parseClosure(move)
		if err != nil {
			return nil, err
		}
		ce := closure.(*ast.ClosureExpr)
		ce.Async = true
		return ce, nil
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.AsyncBlockExpr{Base: baseOf(p, start), Body: body, Move: move}, nil
}
