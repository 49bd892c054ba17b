package sema

import (
	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/types"
)

// analyzeStmts walks a statement list in its own scope is the caller's
// responsibility — this only dispatches per statement. Errors within
// one statement never stop the walk of the rest: §7's resync point for
// semantic analysis is the statement boundary.
func (a *analyzer) analyzeStmts(stmts []ast.StmtID) {
	for _, id := range stmts {
		a.analyzeStmt(id)
	}
}

func (a *analyzer) analyzeStmt(id ast.StmtID) {
	switch s := a.prog.Stmt(id).(type) {
	case *ast.ExprStmt:
		a.typeExpr(s.X)
	case *ast.VarDeclStmt:
		a.declareVar(s.Decl)
	case *ast.PushStmt:
		a.analyzePush(s)
	case *ast.AddStmt:
		// add statements only appear in pipeline/splitjoin bodies,
		// handled directly by analyzePipeline/analyzeSplitJoin; a
		// stray one inside a work block is a grammar-level error the
		// (out-of-scope) parser should have already rejected.
	case *ast.SplitStmt, *ast.JoinStmt:
		// likewise only meaningful in a splitjoin body.
	case *ast.IfStmt:
		a.analyzeIf(s)
	case *ast.ForStmt:
		a.analyzeFor(s)
	case *ast.BreakStmt:
		if a.loopDepth == 0 {
			a.reporter.Errorf(diag.KindInternal, s.Pos(), "break outside a loop")
		}
	case *ast.ContinueStmt:
		if a.loopDepth == 0 {
			a.reporter.Errorf(diag.KindInternal, s.Pos(), "continue outside a loop")
		}
	case *ast.ReturnStmt:
		a.analyzeReturn(s)
	}
}

func (a *analyzer) analyzePush(s *ast.PushStmt) {
	if a.currentFilter == nil || a.currentWork == nil {
		a.reporter.Errorf(diag.KindInternal, s.Pos(), "push() outside a work block")
		return
	}
	valType := a.typeExprHint(s.Value, a.currentFilter.OutputType)
	if !a.types.ConvertibleTo(valType, a.currentFilter.OutputType) {
		a.reporter.Errorf(diag.KindTypeMismatch, s.Pos(),
			"push(): value of type %s is not convertible to the filter's output type %s", valType, a.currentFilter.OutputType)
	}
}

func (a *analyzer) analyzeIf(s *ast.IfStmt) {
	condType := a.typeExpr(s.Cond)
	if !a.isBool(condType) {
		a.reporter.Errorf(diag.KindTypeMismatch, s.Pos(), "if condition must be bool, got %s", condType)
	}
	a.withScope(func() { a.analyzeStmts(s.Then) })
	a.withScope(func() { a.analyzeStmts(s.Else) })
}

func (a *analyzer) analyzeFor(s *ast.ForStmt) {
	a.withScope(func() {
		if s.Init != ast.InvalidStmt {
			a.analyzeStmt(s.Init)
		}
		if s.Cond != ast.InvalidExpr {
			condType := a.typeExpr(s.Cond)
			if !a.isBool(condType) {
				a.reporter.Errorf(diag.KindTypeMismatch, s.Pos(), "for condition must be bool, got %s", condType)
			}
		}
		if s.Post != ast.InvalidStmt {
			a.analyzeStmt(s.Post)
		}
		a.loopDepth++
		a.analyzeStmts(s.Body)
		a.loopDepth--
	})
}

func (a *analyzer) analyzeReturn(s *ast.ReturnStmt) {
	if s.Value == ast.InvalidExpr {
		return
	}
	a.typeExpr(s.Value)
}

func (a *analyzer) isBool(t *types.Type) bool {
	return t == a.types.Bool() || t == a.types.Error()
}

func (a *analyzer) withScope(f func()) {
	saved := a.scope
	a.scope = newScope(saved)
	f()
	a.scope = saved
}
