// Package parser implements a recursive-descent, precedence-climbing
// parser from internal/lexer's token stream to internal/ast's tree.
// Like internal/lexer, this is the thin external collaborator spec.md
// §1 keeps outside the compiler/VM core; grounded in shape on
// original_source/crates/rune/src/parsing's Pratt-style expression
// parser, adapted to this package's smaller grammar.
package parser

import (
	"fmt"

	"github.com/loom-lang/loom/internal/ast"
	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/lexer"
	"github.com/loom-lang/loom/internal/token"
)

// Error is a syntax error with source position.
type Error struct {
	Msg  string
	Line int
	Col  int
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg) }

// Parser holds the lookahead buffer over a lexer.Lexer.
type Parser struct {
	lex  *lexer.Lexer
	cur  token.Token
	peek token.Token
}

// Parse lexes and parses src into a complete ast.File.
func Parse(src string) (*ast.File, error) {
	p := &Parser{lex: lexer.New(src)}
	if err := p.init(); err != nil {
		return nil, err
	}
	return p.parseFile()
}

func (p *Parser) init() error {
	t, err := p.lex.Next()
	if err != nil {
		return p.lexErr(err)
	}
	p.cur = t
	t2, err := p.lex.Next()
	if err != nil {
		return p.lexErr(err)
	}
	p.peek = t2
	return nil
}

func (p *Parser) lexErr(err error) error {
	return &Error{Msg: err.Error(), Line: p.cur.Line, Col: p.cur.Col}
}

func (p *Parser) advance() error {
	p.cur = p.peek
	t, err := p.lex.Next()
	if err != nil {
		return p.lexErr(err)
	}
	p.peek = t
	return nil
}

func (p *Parser) errf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...), Line: p.cur.Line, Col: p.cur.Col}
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.cur.Kind != k {
		return token.Token{}, p.errf("expected %s, found %s %q", k, p.cur.Kind, p.cur.Text)
	}
	t := p.cur
	return t, p.advance()
}

func (p *Parser) at(k token.Kind) bool { return p.cur.Kind == k }

func (p *Parser) span(start token.Token) bytecode.Span {
	return bytecode.Span{Start: start.Start, End: p.cur.Start, Line: start.Line, Col: start.Col}
}

func (p *Parser) parseFile() (*ast.File, error) {
	f := &ast.File{}
	for !p.at(token.EOF) {
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		f.Items = append(f.Items, item)
	}
	return f, nil
}

func (p *Parser) parseItem() (ast.Item, error) {
	switch p.cur.Kind {
	case token.Async:
		start := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseFnItem(start, true)
	case token.Fn:
		return p.parseFnItem(p.cur, false)
	case token.Const:
		return p.parseConstItem()
	default:
		return nil, p.errf("expected item (fn/const), found %s", p.cur.Kind)
	}
}

func (p *Parser) parseFnItem(start token.Token, isAsync bool) (*ast.FnItem, error) {
	if _, err := p.expect(token.Fn); err != nil {
		return nil, err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FnItem{
		Name:      name.Text,
		Params:    params,
		Body:      body,
		IsAsync:   isAsync,
		Generator: blockYields(body),
		Span:      p.span(start),
	}, nil
}

func (p *Parser) parseConstItem() (*ast.ConstItem, error) {
	start := p.cur
	if _, err := p.expect(token.Const); err != nil {
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
	if p.at(token.Semi) {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return &ast.ConstItem{Name: name.Text, Value: val, Span: p.span(start)}, nil
}

func (p *Parser) parseParamList() ([]string, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []string
	for !p.at(token.RParen) {
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
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return params, nil
}

// blockYields reports whether block contains a yield directly in this
// function's own scope (not inside a nested fn/closure), which marks
// the enclosing function as a generator per spec.md §4.3.
func blockYields(b *ast.Block) bool {
	for _, s := range b.Stmts {
		if es, ok := s.(*ast.ExprStmt); ok && exprYields(es.Value) {
			return true
		}
		if ls, ok := s.(*ast.LetStmt); ok && exprYields(ls.Value) {
			return true
		}
	}
	if b.Tail != nil {
		return exprYields(b.Tail)
	}
	return false
}

func exprYields(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.YieldExpr:
		return true
	case *ast.IfExpr:
		if exprYields(v.Cond) || blockYields(v.Then) {
			return true
		}
		if b, ok := v.Else.(*ast.BlockExpr); ok {
			return blockYields(b.Body)
		}
		if ie, ok := v.Else.(*ast.IfExpr); ok {
			return exprYields(ie)
		}
	case *ast.WhileExpr:
		return exprYields(v.Cond) || blockYields(v.Body)
	case *ast.LoopExpr:
		return blockYields(v.Body)
	case *ast.ForExpr:
		return exprYields(v.Iter) || blockYields(v.Body)
	case *ast.BlockExpr:
		return blockYields(v.Body)
	case *ast.BinaryExpr:
		return exprYields(v.Left) || exprYields(v.Right)
	case *ast.LogicalExpr:
		return exprYields(v.Left) || exprYields(v.Right)
	case *ast.UnaryExpr:
		return exprYields(v.Operand)
	case *ast.AssignExpr:
		return exprYields(v.Target) || exprYields(v.Value)
	case *ast.CallExpr:
		if exprYields(v.Callee) {
			return true
		}
		for _, a := range v.Args {
			if exprYields(a) {
				return true
			}
		}
	case *ast.InstanceCallExpr:
		if exprYields(v.Receiver) {
			return true
		}
		for _, a := range v.Args {
			if exprYields(a) {
				return true
			}
		}
	case *ast.AwaitExpr:
		return exprYields(v.Value)
	}
	return false
}
