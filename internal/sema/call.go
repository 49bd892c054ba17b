package sema

import (
	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/types"
)

// typeCall implements §4.2's overload resolution: candidates named
// Callee are filtered by arity, then scored by how many argument types
// match exactly versus only convert; strict best wins, a tie is
// Ambiguous.
func (a *analyzer) typeCall(ex *ast.CallExpr) *types.Type {
	argTypes := make([]*types.Type, len(ex.Args))
	for i, argID := range ex.Args {
		argTypes[i] = a.typeExpr(argID)
	}

	if ex.Callee == "println" {
		ex.Target = a.funcsByName["println"][0]
		return a.types.Void()
	}

	named := a.funcsByName[ex.Callee]
	if len(named) == 0 {
		a.reporter.Errorf(diag.KindUndeclaredName, ex.Pos(), "call to undeclared function %q", ex.Callee)
		return a.types.Error()
	}

	byArity := named[:0:0]
	for _, cid := range named {
		fd := a.prog.Decl(cid).(*ast.FunctionDecl)
		if len(fd.Params) == len(argTypes) {
			byArity = append(byArity, cid)
		}
	}
	if len(byArity) == 0 {
		a.reporter.Errorf(diag.KindArityMismatch, ex.Pos(),
			"%s: no overload takes %d argument(s)", ex.Callee, len(argTypes))
		return a.types.Error()
	}

	var best []ast.DeclID
	bestScore := -1
	for _, cid := range byArity {
		fd := a.prog.Decl(cid).(*ast.FunctionDecl)
		score, viable := a.scoreCandidate(fd, argTypes)
		if !viable {
			continue
		}
		switch {
		case score > bestScore:
			bestScore = score
			best = []ast.DeclID{cid}
		case score == bestScore:
			best = append(best, cid)
		}
	}

	switch len(best) {
	case 0:
		a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "%s: no overload accepts the given argument types", ex.Callee)
		return a.types.Error()
	case 1:
		ex.Target = best[0]
		return a.prog.Decl(best[0]).(*ast.FunctionDecl).ReturnType
	default:
		a.reporter.Errorf(diag.KindAmbiguous, ex.Pos(), "%s: ambiguous call between %d equally good overloads", ex.Callee, len(best))
		return a.types.Error()
	}
}

// scoreCandidate counts exact parameter-type matches; a non-exact,
// non-convertible argument disqualifies the candidate entirely.
func (a *analyzer) scoreCandidate(fd *ast.FunctionDecl, argTypes []*types.Type) (score int, viable bool) {
	for i, pid := range fd.Params {
		pd := a.prog.Decl(pid).(*ast.ParameterDecl)
		switch {
		case argTypes[i] == pd.Type:
			score++
		case a.types.ConvertibleTo(argTypes[i], pd.Type):
			// convertible but not exact: no score, still viable.
		default:
			return 0, false
		}
	}
	return score, true
}
