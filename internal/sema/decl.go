package sema

import (
	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/types"
)

// resolveSignatures fills in every top-level declaration's type-name
// fields (input/output/return/parameter types) before any body is
// walked, so that forward references between stream declarations (a
// pipeline adding a filter declared later in the file) resolve
// correctly regardless of source order.
func (a *analyzer) resolveSignatures() {
	for _, id := range a.prog.TopLevel {
		switch d := a.prog.Decl(id).(type) {
		case *ast.FilterDecl:
			d.InputType = a.mustResolve(d.InputTypeName, d)
			d.OutputType = a.mustResolve(d.OutputTypeName, d)
			for _, pid := range d.Params {
				a.resolveParamType(pid)
			}
		case *ast.PipelineDecl:
			d.InputType = a.mustResolve(d.InputTypeName, d)
			d.OutputType = a.mustResolve(d.OutputTypeName, d)
			for _, pid := range d.Params {
				a.resolveParamType(pid)
			}
		case *ast.SplitJoinDecl:
			d.InputType = a.mustResolve(d.InputTypeName, d)
			d.OutputType = a.mustResolve(d.OutputTypeName, d)
			for _, pid := range d.Params {
				a.resolveParamType(pid)
			}
		case *ast.FunctionDecl:
			if d.Builtin {
				continue
			}
			d.ReturnType = a.mustResolve(d.ReturnTypeName, d)
			for _, pid := range d.Params {
				a.resolveParamType(pid)
			}
		}
	}
}

func (a *analyzer) mustResolve(name string, d ast.Decl) *types.Type {
	t, ok := a.resolveTypeName(name)
	if !ok {
		a.reporter.Errorf(diag.KindUndeclaredName, d.Pos(), "%s: unknown type %q", d.DeclName(), name)
		return a.types.Error()
	}
	return t
}

func (a *analyzer) resolveParamType(pid ast.DeclID) {
	pd, ok := a.prog.Decl(pid).(*ast.ParameterDecl)
	if !ok {
		return
	}
	t, ok := a.resolveTypeName(pd.TypeName)
	if !ok {
		a.reporter.Errorf(diag.KindUndeclaredName, pd.Pos(), "parameter %s: unknown type %q", pd.Name, pd.TypeName)
		t = a.types.Error()
	}
	pd.Type = t
}

func (a *analyzer) declareParam(pid ast.DeclID) {
	pd := a.prog.Decl(pid).(*ast.ParameterDecl)
	if !a.scope.define(pd.Name, pid) {
		a.reporter.Errorf(diag.KindRedefinition, pd.Pos(), "parameter %q redeclared", pd.Name)
	}
}

func (a *analyzer) declareVar(vid ast.DeclID) {
	vd := a.prog.Decl(vid).(*ast.VariableDecl)
	if vd.Type == nil {
		t, ok := a.resolveTypeName(vd.TypeName)
		if !ok {
			a.reporter.Errorf(diag.KindUndeclaredName, vd.Pos(), "variable %s: unknown type %q", vd.Name, vd.TypeName)
			t = a.types.Error()
		}
		vd.Type = t
	}
	if !a.scope.define(vd.Name, vid) {
		a.reporter.Errorf(diag.KindRedefinition, vd.Pos(), "%q redeclared in this scope", vd.Name)
	}
	if vd.Init != ast.InvalidExpr {
		initType := a.typeExprHint(vd.Init, vd.Type)
		if !a.types.ConvertibleTo(initType, vd.Type) {
			a.reporter.Errorf(diag.KindTypeMismatch, vd.Pos(), "cannot initialize %s of type %s with value of type %s", vd.Name, vd.Type, initType)
		}
	}
}

func (a *analyzer) analyzeFilter(fd *ast.FilterDecl) {
	saved := a.scope
	a.scope = newScope(saved)
	defer func() { a.scope = saved }()

	for _, pid := range fd.Params {
		a.declareParam(pid)
	}
	for _, vid := range fd.Vars {
		a.declareVar(vid)
	}

	prevFilter := a.currentFilter
	a.currentFilter = fd
	defer func() { a.currentFilter = prevFilter }()

	a.analyzeWorkBlock(fd.Init, fd)
	a.analyzeWorkBlock(fd.Prework, fd)
	a.analyzeWorkBlock(fd.Work, fd)
}

func (a *analyzer) analyzeWorkBlock(wb *ast.WorkBlock, fd *ast.FilterDecl) {
	if wb == nil {
		return
	}
	prevWork := a.currentWork
	a.currentWork = wb
	defer func() { a.currentWork = prevWork }()

	wb.ResolvedPeek = a.foldRate(wb.PeekRate, fd)
	wb.ResolvedPop = a.foldRate(wb.PopRate, fd)
	wb.ResolvedPush = a.foldRate(wb.PushRate, fd)

	if wb.PeekRate != ast.InvalidExpr && wb.PopRate != ast.InvalidExpr && wb.ResolvedPeek < wb.ResolvedPop {
		a.reporter.Errorf(diag.KindRateMismatch, fd.Pos(),
			"%s: peek_rate (%d) must be >= pop_rate (%d)", fd.Name, wb.ResolvedPeek, wb.ResolvedPop)
	}

	saved := a.scope
	a.scope = newScope(saved)
	a.analyzeStmts(wb.Body)
	a.scope = saved

	rc := a.countRates(wb.Body)
	if rc.dynamic {
		a.reporter.Warningf(fd.Pos(), "%s: pop/push counts could not be statically verified; trusting declared rates", fd.Name)
		return
	}
	if wb.PopRate != ast.InvalidExpr && rc.pops > wb.ResolvedPop {
		a.reporter.Errorf(diag.KindRateMismatch, fd.Pos(),
			"%s: work block calls pop() %d time(s), exceeding declared pop rate %d", fd.Name, rc.pops, wb.ResolvedPop)
	}
	if wb.PushRate != ast.InvalidExpr && rc.pushes != wb.ResolvedPush {
		a.reporter.Errorf(diag.KindRateMismatch, fd.Pos(),
			"%s: work block calls push() %d time(s), declared push rate is %d", fd.Name, rc.pushes, wb.ResolvedPush)
	}
}

// foldRate resolves a work-block rate clause to a constant non-negative
// integer, defaulting to 0 when the clause was omitted.
func (a *analyzer) foldRate(id ast.ExprID, fd *ast.FilterDecl) int {
	if id == ast.InvalidExpr {
		return 0
	}
	v, ok := a.foldConstInt(id)
	if !ok {
		a.reporter.Errorf(diag.KindRateMismatch, fd.Pos(), "%s: rate clause must be a constant integer", fd.Name)
		return 0
	}
	if v < 0 {
		a.reporter.Errorf(diag.KindRateMismatch, fd.Pos(), "%s: rate clause must be non-negative, got %d", fd.Name, v)
		return 0
	}
	return int(v)
}

func (a *analyzer) analyzePipeline(pd *ast.PipelineDecl) {
	saved := a.scope
	a.scope = newScope(saved)
	defer func() { a.scope = saved }()

	for _, pid := range pd.Params {
		a.declareParam(pid)
	}
	for _, sid := range pd.Body {
		add, ok := a.prog.Stmt(sid).(*ast.AddStmt)
		if !ok {
			continue
		}
		a.resolveAdd(add)
	}
}

func (a *analyzer) analyzeSplitJoin(sjd *ast.SplitJoinDecl) {
	saved := a.scope
	a.scope = newScope(saved)
	defer func() { a.scope = saved }()

	for _, pid := range sjd.Params {
		a.declareParam(pid)
	}
	for _, sid := range sjd.Body {
		switch st := a.prog.Stmt(sid).(type) {
		case *ast.AddStmt:
			a.resolveAdd(st)
		case *ast.SplitStmt, *ast.JoinStmt:
			// No expression content to type-check; weights are
			// already plain ints. Fan-in/fan-out type agreement is
			// validated during stream-graph elaboration (C4), which
			// has the substituted, concrete filter types this
			// declaration-level pass does not.
		}
	}
}

// resolveAdd resolves an `add <stream>(args...)` statement's target and
// type-checks its (required-constant) arguments.
func (a *analyzer) resolveAdd(add *ast.AddStmt) {
	target, ok := a.streamsByName[add.StreamName]
	if !ok {
		a.reporter.Errorf(diag.KindUndeclaredName, add.Pos(), "add: no such stream %q", add.StreamName)
		return
	}
	add.Target = target
	for _, argID := range add.Args {
		a.typeExpr(argID)
		if _, ok := a.foldConst(argID); !ok {
			a.reporter.Errorf(diag.KindNonConstantArraySize, a.prog.Expr(argID).Pos(),
				"add %s: argument must be a compile-time constant", add.StreamName)
		}
	}
}

func (a *analyzer) analyzeFunction(fd *ast.FunctionDecl) {
	saved := a.scope
	a.scope = newScope(saved)
	defer func() { a.scope = saved }()

	for _, pid := range fd.Params {
		a.declareParam(pid)
	}
	a.analyzeStmts(fd.Body)
}
