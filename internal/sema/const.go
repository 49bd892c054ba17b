package sema

import "streamhls/internal/ast"

// constValue is the result of folding a constant expression: either an
// integer or a boolean, per §4.2's "Integer/boolean expressions whose
// operands are compile-time constants fold eagerly".
type constValue struct {
	isBool bool
	i      int64
	b      bool
}

func intConst(i int64) (constValue, bool) { return constValue{i: i}, true }
func boolConst(b bool) (constValue, bool) { return constValue{isBool: true, b: b}, true }
func noConst() (constValue, bool)         { return constValue{}, false }

// foldConst attempts to evaluate id as a compile-time constant. It is
// used to resolve work-block rates, static loop bounds, peek indices and
// `add` arguments.
func (a *analyzer) foldConst(id ast.ExprID) (constValue, bool) {
	switch ex := a.prog.Expr(id).(type) {
	case *ast.IntLit:
		return intConst(ex.Value)
	case *ast.BoolLit:
		return boolConst(ex.Value)
	case *ast.IdentExpr:
		return a.foldIdent(ex)
	case *ast.UnaryExpr:
		return a.foldUnary(ex)
	case *ast.BinaryExpr:
		return a.foldBinary(ex)
	case *ast.LogicalExpr:
		return a.foldLogical(ex)
	case *ast.CastExpr:
		return a.foldConst(ex.Operand)
	default:
		return noConst()
	}
}

// foldConstInt is foldConst narrowed to the integer case, used wherever
// the grammar specifically demands an integer constant (rates, loop
// bounds, peek indices).
func (a *analyzer) foldConstInt(id ast.ExprID) (int64, bool) {
	v, ok := a.foldConst(id)
	if !ok || v.isBool {
		return 0, false
	}
	return v.i, true
}

func (a *analyzer) foldIdent(ex *ast.IdentExpr) (constValue, bool) {
	declID := ex.Decl
	if declID == ast.InvalidDecl {
		id, ok := a.scope.lookup(ex.Name)
		if !ok {
			return noConst()
		}
		declID = id
		ex.Decl = id
	}
	vd, ok := a.prog.Decl(declID).(*ast.VariableDecl)
	if !ok || !vd.Constant || vd.Init == ast.InvalidExpr {
		return noConst()
	}
	return a.foldConst(vd.Init)
}

func (a *analyzer) foldUnary(ex *ast.UnaryExpr) (constValue, bool) {
	v, ok := a.foldConst(ex.Operand)
	if !ok {
		return noConst()
	}
	switch ex.Op {
	case ast.OpNeg:
		if v.isBool {
			return noConst()
		}
		return intConst(-v.i)
	case ast.OpBitNot:
		if v.isBool {
			return noConst()
		}
		return intConst(^v.i)
	case ast.OpLogicalNot:
		if !v.isBool {
			return noConst()
		}
		return boolConst(!v.b)
	default:
		return noConst()
	}
}

func (a *analyzer) foldBinary(ex *ast.BinaryExpr) (constValue, bool) {
	l, ok1 := a.foldConst(ex.Left)
	r, ok2 := a.foldConst(ex.Right)
	if !ok1 || !ok2 || l.isBool || r.isBool {
		return noConst()
	}
	switch ex.Op {
	case ast.OpAdd:
		return intConst(l.i + r.i)
	case ast.OpSub:
		return intConst(l.i - r.i)
	case ast.OpMul:
		return intConst(l.i * r.i)
	case ast.OpDiv:
		if r.i == 0 {
			return noConst()
		}
		return intConst(l.i / r.i)
	case ast.OpMod:
		if r.i == 0 {
			return noConst()
		}
		return intConst(l.i % r.i)
	case ast.OpBitAnd:
		return intConst(l.i & r.i)
	case ast.OpBitOr:
		return intConst(l.i | r.i)
	case ast.OpBitXor:
		return intConst(l.i ^ r.i)
	case ast.OpShl:
		return intConst(l.i << uint64(r.i))
	case ast.OpShr:
		return intConst(l.i >> uint64(r.i))
	case ast.OpLt:
		return boolConst(l.i < r.i)
	case ast.OpLe:
		return boolConst(l.i <= r.i)
	case ast.OpGt:
		return boolConst(l.i > r.i)
	case ast.OpGe:
		return boolConst(l.i >= r.i)
	case ast.OpEq:
		return boolConst(l.i == r.i)
	case ast.OpNe:
		return boolConst(l.i != r.i)
	default:
		return noConst()
	}
}

func (a *analyzer) foldLogical(ex *ast.LogicalExpr) (constValue, bool) {
	l, ok := a.foldConst(ex.Left)
	if !ok || !l.isBool {
		return noConst()
	}
	if ex.Op == ast.OpLogicalAnd && !l.b {
		return boolConst(false)
	}
	if ex.Op == ast.OpLogicalOr && l.b {
		return boolConst(true)
	}
	r, ok := a.foldConst(ex.Right)
	if !ok || !r.isBool {
		return noConst()
	}
	if ex.Op == ast.OpLogicalAnd {
		return boolConst(l.b && r.b)
	}
	return boolConst(l.b || r.b)
}
