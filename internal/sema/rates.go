package sema

import "streamhls/internal/ast"

// rateCount is the symbolic pop/push tally §4.2 asks for: "pop() is
// allowed up to pop_rate times per work iteration (checked by symbolic
// count — if the count is bounded by a statically unrollable loop, use
// its bound; otherwise warn); push(e) must execute push_rate times."
// dynamic is set the moment any control-flow shape defeats static
// counting, at which point the declared rate is trusted instead of
// enforced.
type rateCount struct {
	pops, pushes int
	dynamic      bool
}

func (r rateCount) add(o rateCount) rateCount {
	return rateCount{pops: r.pops + o.pops, pushes: r.pushes + o.pushes, dynamic: r.dynamic || o.dynamic}
}

func (r rateCount) scale(n int) rateCount {
	return rateCount{pops: r.pops * n, pushes: r.pushes * n, dynamic: r.dynamic}
}

func (a *analyzer) countRates(stmts []ast.StmtID) rateCount {
	var total rateCount
	for _, id := range stmts {
		total = total.add(a.countStmtRates(id))
	}
	return total
}

func (a *analyzer) countStmtRates(id ast.StmtID) rateCount {
	switch s := a.prog.Stmt(id).(type) {
	case *ast.ExprStmt:
		return a.countExprRates(s.X)
	case *ast.VarDeclStmt:
		vd, ok := a.prog.Decl(s.Decl).(*ast.VariableDecl)
		if !ok || vd.Init == ast.InvalidExpr {
			return rateCount{}
		}
		return a.countExprRates(vd.Init)
	case *ast.PushStmt:
		rc := a.countExprRates(s.Value)
		rc.pushes++
		return rc
	case *ast.IfStmt:
		cond := a.countExprRates(s.Cond)
		then := a.countRates(s.Then)
		els := a.countRates(s.Else)
		if then == els {
			return cond.add(then)
		}
		// Branches disagree on how many times pop/push fire; which
		// one runs depends on a runtime value, so the total can't be
		// pinned down statically.
		merged := cond.add(then).add(els)
		merged.dynamic = true
		return merged
	case *ast.ForStmt:
		body := a.countRates(s.Body)
		if n, ok := a.tripCount(s); ok {
			return body.scale(n)
		}
		body.dynamic = true
		return body
	default:
		return rateCount{}
	}
}

func (a *analyzer) countExprRates(id ast.ExprID) rateCount {
	switch ex := a.prog.Expr(id).(type) {
	case *ast.PopExpr:
		return rateCount{pops: 1}
	case *ast.PeekExpr:
		return a.countExprRates(ex.Index)
	case *ast.IndexExpr:
		return a.countExprRates(ex.Base).add(a.countExprRates(ex.Index))
	case *ast.UnaryExpr:
		return a.countExprRates(ex.Operand)
	case *ast.BinaryExpr:
		return a.countExprRates(ex.Left).add(a.countExprRates(ex.Right))
	case *ast.LogicalExpr:
		// The right operand is only conditionally evaluated
		// (§4.3's diamond-shaped short-circuit lowering), so any
		// pop/push it contains can't be counted unconditionally.
		left := a.countExprRates(ex.Left)
		right := a.countExprRates(ex.Right)
		if right.pops == 0 && right.pushes == 0 {
			return left
		}
		left.dynamic = true
		return left
	case *ast.CommaExpr:
		return a.countExprRates(ex.Left).add(a.countExprRates(ex.Right))
	case *ast.AssignExpr:
		return a.countExprRates(ex.Target).add(a.countExprRates(ex.Value))
	case *ast.CallExpr:
		var total rateCount
		for _, argID := range ex.Args {
			total = total.add(a.countExprRates(argID))
		}
		return total
	case *ast.CastExpr:
		return a.countExprRates(ex.Operand)
	case *ast.InitListExpr:
		var total rateCount
		for _, elemID := range ex.Elems {
			total = total.add(a.countExprRates(elemID))
		}
		return total
	default:
		return rateCount{}
	}
}

// tripCount attempts to statically determine how many times s.Body
// executes, recognising the canonical `for (i = c0; i < bound; i +=
// step)` shape (and its <=, -= variants) where c0, bound and step all
// fold to constants. Anything else is reported as not statically
// unrollable.
func (a *analyzer) tripCount(s *ast.ForStmt) (int, bool) {
	init, ok := a.loopInit(s.Init)
	if !ok {
		return 0, false
	}
	bound, ascending, inclusive, ok := a.loopBound(s.Cond)
	if !ok {
		return 0, false
	}
	step, ok := a.loopStep(s.Post)
	if !ok || step == 0 {
		return 0, false
	}
	if ascending && step < 0 {
		return 0, false
	}
	if !ascending && step > 0 {
		return 0, false
	}
	span := bound - init
	if inclusive {
		if ascending {
			span++
		} else {
			span--
		}
	}
	if step < 0 {
		span, step = -span, -step
	}
	if span <= 0 || step <= 0 {
		return 0, span == 0
	}
	n := span / step
	if span%step != 0 {
		n++
	}
	return int(n), true
}

func (a *analyzer) loopInit(id ast.StmtID) (int64, bool) {
	if id == ast.InvalidStmt {
		return 0, false
	}
	switch s := a.prog.Stmt(id).(type) {
	case *ast.ExprStmt:
		assign, ok := a.prog.Expr(s.X).(*ast.AssignExpr)
		if !ok || assign.Op != ast.OpAssign {
			return 0, false
		}
		return a.foldConstInt(assign.Value)
	case *ast.VarDeclStmt:
		vd, ok := a.prog.Decl(s.Decl).(*ast.VariableDecl)
		if !ok || vd.Init == ast.InvalidExpr {
			return 0, false
		}
		return a.foldConstInt(vd.Init)
	default:
		return 0, false
	}
}

func (a *analyzer) loopBound(id ast.ExprID) (bound int64, ascending, inclusive, ok bool) {
	if id == ast.InvalidExpr {
		return 0, false, false, false
	}
	bexpr, isBin := a.prog.Expr(id).(*ast.BinaryExpr)
	if !isBin {
		return 0, false, false, false
	}
	v, ok := a.foldConstInt(bexpr.Right)
	if !ok {
		return 0, false, false, false
	}
	switch bexpr.Op {
	case ast.OpLt:
		return v, true, false, true
	case ast.OpLe:
		return v, true, true, true
	case ast.OpGt:
		return v, false, false, true
	case ast.OpGe:
		return v, false, true, true
	default:
		return 0, false, false, false
	}
}

func (a *analyzer) loopStep(id ast.StmtID) (int64, bool) {
	if id == ast.InvalidStmt {
		return 0, false
	}
	stmt, ok := a.prog.Stmt(id).(*ast.ExprStmt)
	if !ok {
		return 0, false
	}
	switch ex := a.prog.Expr(stmt.X).(type) {
	case *ast.UnaryExpr:
		switch ex.Op {
		case ast.OpPreInc, ast.OpPostInc:
			return 1, true
		case ast.OpPreDec, ast.OpPostDec:
			return -1, true
		default:
			return 0, false
		}
	case *ast.AssignExpr:
		v, ok := a.foldConstInt(ex.Value)
		if !ok {
			return 0, false
		}
		switch ex.Op {
		case ast.OpAddAssign:
			return v, true
		case ast.OpSubAssign:
			return -v, true
		default:
			return 0, false
		}
	default:
		return 0, false
	}
}
