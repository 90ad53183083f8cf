package parser

import (
	"strconv"

	"github.com/loom-lang/loom/internal/ast"
	"github.com/loom-lang/loom/internal/token"
)

// precedence table for binary operators, low to high. Unary, postfix,
// and primary are handled outside this table.
var binPrec = map[token.Kind]int{
	token.PipePipe: 1,
	token.AmpAmp:   2,
	token.EqEq:     3, token.NotEq: 3,
	token.Lt: 4, token.Gt: 4, token.Le: 4, token.Ge: 4,
	token.Pipe: 5,
	token.Caret: 6,
	token.Amp:   7,
	token.LtLt:  8, token.GtGt: 8,
	token.Plus: 9, token.Minus: 9, token.PlusPlus: 9,
	token.Star: 10, token.Slash: 10, token.Percent: 10,
	token.StarStar: 11,
}

var opText = map[token.Kind]string{
	token.PipePipe: "||", token.AmpAmp: "&&",
	token.EqEq: "==", token.NotEq: "!=",
	token.Lt: "<", token.Gt: ">", token.Le: "<=", token.Ge: ">=",
	token.Pipe: "|", token.Caret: "^", token.Amp: "&",
	token.LtLt: "<<", token.GtGt: ">>",
	token.Plus: "+", token.Minus: "-", token.PlusPlus: "++",
	token.Star: "*", token.Slash: "/", token.Percent: "%",
	token.StarStar: "**",
}

var assignOps = map[token.Kind]string{
	token.Eq: "=", token.PlusEq: "+=", token.MinusEq: "-=", token.StarEq: "*=",
	token.SlashEq: "/=", token.PercentEq: "%=", token.AmpEq: "&=",
	token.CaretEq: "^=", token.PipeEq: "|=", token.LtLtEq: "<<=", token.GtGtEq: ">>=",
}

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseAssign()
}

func (p *Parser) parseAssign() (ast.Expr, error) {
	start := p.cur
	lhs, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if op, ok := assignOps[p.cur.Kind]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpr{Base: baseOf(p, start), Op: op, Target: lhs, Value: rhs}, nil
	}
	return lhs, nil
}

func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	start := p.cur
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec, ok := binPrec[p.cur.Kind]
		if !ok || prec < minPrec {
			return left, nil
		}
		opKind := p.cur.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		// StarStar is right-associative, everything else left-associative.
		nextMin := prec + 1
		if opKind == token.StarStar {
			nextMin = prec
		}
		right, err := p.parseBinary(nextMin)
		if err != nil {
			return nil, err
		}
		sp := baseOf(p, start)
		if opKind == token.AmpAmp || opKind == token.PipePipe {
			left = &ast.LogicalExpr{Base: sp, Op: opText[opKind], Left: left, Right: right}
		} else {
			left = &ast.BinaryExpr{Base: sp, Op: opText[opKind], Left: left, Right: right}
		}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	start := p.cur
	switch p.cur.Kind {
	case token.Minus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Base: baseOf(p, start), Op: "-", Operand: operand}, nil
	case token.Bang:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Base: baseOf(p, start), Op: "!", Operand: operand}, nil
	case token.Tilde:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Base: baseOf(p, start), Op: "~", Operand: operand}, nil
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	start := p.cur
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Kind {
		case token.Dot:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.at(token.Await) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				expr = &ast.AwaitExpr{Base: baseOf(p, start), Value: expr}
				continue
			}
			if p.at(token.Int) {
				n, err := strconv.Atoi(p.cur.Text)
				if err != nil {
					return nil, p.errf("invalid tuple index %q", p.cur.Text)
				}
				if err := p.advance(); err != nil {
					return nil, err
				}
				expr = &ast.TupleIndexExpr{Base: baseOf(p, start), Target: expr, Index: n}
				continue
			}
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			if p.at(token.LParen) {
				args, err := p.parseArgList()
				if err != nil {
					return nil, err
				}
				expr = &ast.InstanceCallExpr{Base: baseOf(p, start), Receiver: expr, Method: name.Text, Args: args}
				continue
			}
			expr = &ast.FieldExpr{Base: baseOf(p, start), Target: expr, Name: name.Text}
		case token.LBracket:
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return nil, err
			}
			expr = &ast.IndexExpr{Base: baseOf(p, start), Target: expr, Index: idx}
		case token.LParen:
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpr{Base: baseOf(p, start), Callee: expr, Args: args}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArgList() ([]ast.Expr, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.at(token.RParen) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	start := p.cur
	switch p.cur.Kind {
	case token.Int:
		n, err := strconv.ParseInt(p.cur.Text, 10, 64)
		if err != nil {
			return nil, p.errf("invalid integer literal %q", p.cur.Text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.IntLit{Base: baseOf(p, start), Value: n}, nil
	case token.Float:
		f, err := strconv.ParseFloat(p.cur.Text, 64)
		if err != nil {
			return nil, p.errf("invalid float literal %q", p.cur.Text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.FloatLit{Base: baseOf(p, start), Value: f}, nil
	case token.ByteLit:
		n, err := strconv.ParseUint(p.cur.Text[:len(p.cur.Text)-2], 10, 8)
		if err != nil {
			return nil, p.errf("invalid byte literal %q", p.cur.Text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.ByteLit{Base: baseOf(p, start), Value: byte(n)}, nil
	case token.Str:
		s := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.StringLit{Base: baseOf(p, start), Value: s}, nil
	case token.CharLit:
		r := []rune(p.cur.Text)[0]
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.CharLit{Base: baseOf(p, start), Value: r}, nil
	case token.True:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.BoolLit{Base: baseOf(p, start), Value: true}, nil
	case token.False:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.BoolLit{Base: baseOf(p, start), Value: false}, nil
	case token.Ident:
		name := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Ident{Base: baseOf(p, start), Name: name}, nil
	case token.LParen:
		return p.parseTupleOrParen(start)
	case token.LBracket:
		return p.parseVec(start)
	case token.HashLBrace:
		return p.parseObject(start)
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile("")
	case token.Loop:
		return p.parseLoop("")
	case token.For:
		return p.parseFor("")
	case token.Break:
		return p.parseBreak()
	case token.Continue:
		return p.parseContinue()
	case token.Return:
		return p.parseReturn()
	case token.Yield:
		return p.parseYield()
	case token.Pipe, token.PipePipe:
		return p.parseClosure(false)
	case token.Move:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseClosure(true)
	case token.Async:
		return p.parseAsync()
	case token.LBrace:
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.BlockExpr{Base: baseOf(p, start), Body: b}, nil
	default:
		return nil, p.errf("unexpected token %s %q in expression", p.cur.Kind, p.cur.Text)
	}
}

func baseOf(p *Parser, start token.Token) ast.Base {
	return ast.Base{Span: ast.Span{Start: start.Start, End: p.cur.Start, Line: start.Line, Col: start.Col}}
}
