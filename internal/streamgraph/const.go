package streamgraph

import "streamhls/internal/ast"

// evalConst is a self-contained re-derivation of internal/sema/const.go's
// integer constant folding. C4 needs it independently of C2's analyzer
// because sema's foldConst is a method on the unexported, scope-bound
// *analyzer — it resolves identifiers against the live lexical scope stack
// mid-analysis, which no longer exists once C2 has finished. By the time C4
// runs, every `add` argument has already been proven constant-foldable
// (decl.go's resolveAdd), and every IdentExpr's Decl field has already been
// resolved (a side effect of sema's typeExpr) — so this copy only needs to
// walk the same closed set of literal/const-variable/arithmetic node kinds,
// with no scope lookups of its own.
func evalConst(prog *ast.Program, id ast.ExprID) (int64, bool) {
	switch ex := prog.Expr(id).(type) {
	case *ast.IntLit:
		return ex.Value, true
	case *ast.IdentExpr:
		return evalIdent(prog, ex)
	case *ast.UnaryExpr:
		return evalUnary(prog, ex)
	case *ast.BinaryExpr:
		return evalBinary(prog, ex)
	case *ast.CastExpr:
		return evalConst(prog, ex.Operand)
	default:
		return 0, false
	}
}

func evalIdent(prog *ast.Program, ex *ast.IdentExpr) (int64, bool) {
	if ex.Decl == ast.InvalidDecl {
		return 0, false
	}
	vd, ok := prog.Decl(ex.Decl).(*ast.VariableDecl)
	if !ok || !vd.Constant || vd.Init == ast.InvalidExpr {
		return 0, false
	}
	return evalConst(prog, vd.Init)
}

func evalUnary(prog *ast.Program, ex *ast.UnaryExpr) (int64, bool) {
	v, ok := evalConst(prog, ex.Operand)
	if !ok {
		return 0, false
	}
	switch ex.Op {
	case ast.OpNeg:
		return -v, true
	case ast.OpBitNot:
		return ^v, true
	default:
		return 0, false
	}
}

func evalBinary(prog *ast.Program, ex *ast.BinaryExpr) (int64, bool) {
	l, ok1 := evalConst(prog, ex.Left)
	r, ok2 := evalConst(prog, ex.Right)
	if !ok1 || !ok2 {
		return 0, false
	}
	switch ex.Op {
	case ast.OpAdd:
		return l + r, true
	case ast.OpSub:
		return l - r, true
	case ast.OpMul:
		return l * r, true
	case ast.OpDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case ast.OpMod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case ast.OpBitAnd:
		return l & r, true
	case ast.OpBitOr:
		return l | r, true
	case ast.OpBitXor:
		return l ^ r, true
	case ast.OpShl:
		return l << uint64(r), true
	case ast.OpShr:
		return l >> uint64(r), true
	default:
		return 0, false
	}
}
