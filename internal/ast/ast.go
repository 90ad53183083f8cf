// Package ast defines the syntax tree internal/parser produces and
// internal/compiler consumes. Node shapes follow spec.md §4.3's
// lowering rules closely enough that each Expr variant maps to one
// compiler case; grounded on original_source/crates/rune/src/ast's
// node set, trimmed to what this spec actually lowers.
package ast

import "github.com/loom-lang/loom/internal/bytecode"

// Span locates a node in the source buffer.
type Span = bytecode.Span

// File is a parsed source unit: a flat list of top-level items.
type File struct {
	Items []Item
}

type Item interface{ itemNode() }

type FnItem struct {
	Name      string
	Params    []string
	Body      *Block
	IsAsync   bool
	Generator bool // true if Body contains a yield anywhere in its own function scope
	Span      Span
}

type ConstItem struct {
	Name  string
	Value Expr
	Span  Span
}

func (*FnItem) itemNode()    {}
func (*ConstItem) itemNode() {}

// Block is `{ stmt; stmt; ...; tail? }`.
type Block struct {
	Stmts []Stmt
	Tail  Expr // nil if the block doesn't end in a value-producing expression
	Span  Span
}

type Stmt interface{ stmtNode() }

type LetStmt struct {
	Name  string
	Value Expr
	Span  Span
}

type ExprStmt struct {
	Value Expr
	Span  Span
}

func (*LetStmt) stmtNode()  {}
func (*ExprStmt) stmtNode() {}

// Expr is any expression node. Every concrete type below implements it.
type Expr interface {
	exprNode()
	SpanOf() Span
}

// Base carries the source span shared by every expression node; its
// exported name lets constructors outside this package use composite
// literals like ast.IntLit{Base: ast.Base{Span: ...}, Value: 1}.
type Base struct{ Span Span }

func (b Base) exprNode()    {}
func (b Base) SpanOf() Span { return b.Span }

type UnitLit struct{ Base }
type BoolLit struct {
	Base
	Value bool
}
type IntLit struct {
	Base
	Value int64
}
type FloatLit struct {
	Base
	Value float64
}
type CharLit struct {
	Base
	Value rune
}
type ByteLit struct {
	Base
	Value byte
}
type StringLit struct {
	Base
	Value string
}

type Ident struct {
	Base
	Name string
}

type VecLit struct {
	Base
	Elems []Expr
}

type TupleLit struct {
	Base
	Elems []Expr
}

type ObjectLit struct {
	Base
	Keys   []string
	Values []Expr
}

type UnaryExpr struct {
	Base
	Op      string // "-", "!", "~"
	Operand Expr
}

type BinaryExpr struct {
	Base
	Op    string
	Left  Expr
	Right Expr
}

// LogicalExpr is && / || — kept distinct from BinaryExpr because it
// lowers to short-circuiting jumps (JumpIfOrPop/JumpIfNotOrPop), not a
// BinOp instruction.
type LogicalExpr struct {
	Base
	Op    string // "&&" or "||"
	Left  Expr
	Right Expr
}

// AssignExpr covers `target = value` and the compound forms
// (`target += value`, etc). Target is restricted to Ident,
// TupleIndexExpr, FieldExpr, or IndexExpr by the compiler, not the
// parser (spec.md's UnsupportedAssignExpr is a compile error, not a
// parse error).
type AssignExpr struct {
	Base
	Op     string // "=", "+=", "-=", ...
	Target Expr
	Value  Expr
}

// FieldExpr is `target.name` (object field access).
type FieldExpr struct {
	Base
	Target Expr
	Name   string
}

// TupleIndexExpr is `target.0`.
type TupleIndexExpr struct {
	Base
	Target Expr
	Index  int
}

// IndexExpr is `target[index]`.
type IndexExpr struct {
	Base
	Target Expr
	Index  Expr
}

// CallExpr is a free function call `name(args...)` or a call through
// an arbitrary callee expression (closures, fn pointers).
type CallExpr struct {
	Base
	Callee Expr
	Args   []Expr
}

// InstanceCallExpr is `receiver.method(args...)`.
type InstanceCallExpr struct {
	Base
	Receiver Expr
	Method   string
	Args     []Expr
}

type IfExpr struct {
	Base
	Cond Expr
	Then *Block
	// Else is either *BlockExpr or *IfExpr (else-if chains), or nil.
	Else Expr
}

type WhileExpr struct {
	Base
	Label string
	Cond  Expr
	Body  *Block
}

type LoopExpr struct {
	Base
	Label string
	Body  *Block
}

type ForExpr struct {
	Base
	Label string
	Var   string
	Iter  Expr
	Body  *Block
}

type BreakExpr struct {
	Base
	Label string
	Value Expr // nil if bare `break`
}

type ContinueExpr struct {
	Base
	Label string
}

type ReturnExpr struct {
	Base
	Value Expr // nil if bare `return`
}

// ClosureExpr is `|a, b| expr` or `move |a, b| { ... }`.
type ClosureExpr struct {
	Base
	Params []string
	Body   Expr // either a single Expr, or an ExprStmt-wrapping Block via BlockExpr
	Move   bool
	Async  bool
}

// BlockExpr wraps a Block so it can appear anywhere an Expr is
// expected (closures/async bodies with `{ ... }` syntax).
type BlockExpr struct {
	Base
	Body *Block
}

// AsyncBlockExpr is `async { ... }`, lowered to a synthetic async
// function plus an immediate call (spec.md §4.3).
type AsyncBlockExpr struct {
	Base
	Body *Block
	Move bool
}

type AwaitExpr struct {
	Base
	Value Expr
}

type YieldExpr struct {
	Base
	Value Expr // nil for bare `yield`
}

// exprNode/SpanOf are promoted from the embedded base field on every
// concrete type above; no further declarations are needed for them to
// satisfy Expr.
