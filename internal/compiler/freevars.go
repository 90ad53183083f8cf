package compiler

import "github.com/loom-lang/loom/internal/ast"

// freeVars walks body collecting identifiers referenced but not bound
// by params or an enclosing `let` inside body itself — the capture set
// a closure or async block must copy off the stack at creation time
// (spec.md §4.3 "Closures"). This is a single forward walk, not a full
// dataflow analysis: a `let` shadowing an outer name hides it for the
// rest of the walk, which is sufficient for the straight-line and
// block-structured bodies this grammar produces.
func freeVars(body ast.Expr, params []string) []string {
	bound := map[string]bool{}
	for _, p := range params {
		bound[p] = true
	}
	seen := map[string]bool{}
	var order []string
	record := func(name string) {
		if !bound[name] && !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	walkExpr(body, bound, record)
	return order
}

func walkBlock(b *ast.Block, bound map[string]bool, record func(string)) {
	// Work on a local copy of bound so sibling blocks don't see this
	// block's lets.
	local := map[string]bool{}
	for k, v := range bound {
		local[k] = v
	}
	for _, s := range b.Stmts {
		switch st := s.(type) {
		case *ast.LetStmt:
			walkExpr(st.Value, local, record)
			local[st.Name] = true
		case *ast.ExprStmt:
			walkExpr(st.Value, local, record)
		}
	}
	if b.Tail != nil {
		walkExpr(b.Tail, local, record)
	}
}

func walkExpr(e ast.Expr, bound map[string]bool, record func(string)) {
	if e == nil {
		return
	}
	switch v := e.(type) {
	case *ast.Ident:
		record(v.Name)
	case *ast.UnaryExpr:
		walkExpr(v.Operand, bound, record)
	case *ast.BinaryExpr:
		walkExpr(v.Left, bound, record)
		walkExpr(v.Right, bound, record)
	case *ast.LogicalExpr:
		walkExpr(v.Left, bound, record)
		walkExpr(v.Right, bound, record)
	case *ast.AssignExpr:
		walkExpr(v.Target, bound, record)
		walkExpr(v.Value, bound, record)
	case *ast.FieldExpr:
		walkExpr(v.Target, bound, record)
	case *ast.TupleIndexExpr:
		walkExpr(v.Target, bound, record)
	case *ast.IndexExpr:
		walkExpr(v.Target, bound, record)
		walkExpr(v.Index, bound, record)
	case *ast.CallExpr:
		walkExpr(v.Callee, bound, record)
		for _, a := range v.Args {
			walkExpr(a, bound, record)
		}
	case *ast.InstanceCallExpr:
		walkExpr(v.Receiver, bound, record)
		for _, a := range v.Args {
			walkExpr(a, bound, record)
		}
	case *ast.VecLit:
		for _, el := range v.Elems {
			walkExpr(el, bound, record)
		}
	case *ast.TupleLit:
		for _, el := range v.Elems {
			walkExpr(el, bound, record)
		}
	case *ast.ObjectLit:
		for _, val := range v.Values {
			walkExpr(val, bound, record)
		}
	case *ast.IfExpr:
		walkExpr(v.Cond, bound, record)
		walkBlock(v.Then, bound, record)
		if v.Else != nil {
			walkExpr(v.Else, bound, record)
		}
	case *ast.WhileExpr:
		walkExpr(v.Cond, bound, record)
		walkBlock(v.Body, bound, record)
	case *ast.LoopExpr:
		walkBlock(v.Body, bound, record)
	case *ast.ForExpr:
		walkExpr(v.Iter, bound, record)
		inner := map[string]bool{}
		for k, b := range bound {
			inner[k] = b
		}
		inner[v.Var] = true
		walkBlock(v.Body, inner, record)
	case *ast.BreakExpr:
		walkExpr(v.Value, bound, record)
	case *ast.ReturnExpr:
		walkExpr(v.Value, bound, record)
	case *ast.YieldExpr:
		walkExpr(v.Value, bound, record)
	case *ast.AwaitExpr:
		walkExpr(v.Value, bound, record)
	case *ast.BlockExpr:
		walkBlock(v.Body, bound, record)
	case *ast.AsyncBlockExpr:
		walkBlock(v.Body, bound, record)
	case *ast.ClosureExpr:
		inner := map[string]bool{}
		for k, b := range bound {
			inner[k] = b
		}
		for _, p := range v.Params {
			inner[p] = true
		}
		walkExpr(v.Body, inner, record)
	}
}
