package sema

import (
	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/types"
)

// typeExpr assigns a resolved type to the expression at id, recursing
// into its operands first, and returns that type. On any failure it
// reports the appropriate diagnostic and resolves to types.Error so the
// walk can continue without cascading a second diagnostic from the same
// root cause (§7, via the [EXPANSION] Error sentinel type).
func (a *analyzer) typeExpr(id ast.ExprID) *types.Type {
	return a.typeExprHint(id, nil)
}

// typeExprHint is typeExpr with an optional expected type, used so an
// InitListExpr (which has no type of its own) can be checked against
// the array/struct type it is initializing.
func (a *analyzer) typeExprHint(id ast.ExprID, hint *types.Type) *types.Type {
	e := a.prog.Expr(id)
	t := a.computeExprType(e, hint)
	e.SetResolvedType(t)
	return t
}

func (a *analyzer) computeExprType(e ast.Expr, hint *types.Type) *types.Type {
	switch ex := e.(type) {
	case *ast.IntLit:
		return a.types.Int()
	case *ast.BoolLit:
		return a.types.Bool()
	case *ast.FloatLit:
		return a.types.Float()
	case *ast.IdentExpr:
		return a.typeIdent(ex)
	case *ast.IndexExpr:
		return a.typeIndex(ex)
	case *ast.UnaryExpr:
		return a.typeUnary(ex)
	case *ast.BinaryExpr:
		return a.typeBinary(ex)
	case *ast.LogicalExpr:
		return a.typeLogical(ex)
	case *ast.CommaExpr:
		a.typeExpr(ex.Left)
		return a.typeExpr(ex.Right)
	case *ast.AssignExpr:
		return a.typeAssign(ex)
	case *ast.PeekExpr:
		return a.typePeek(ex)
	case *ast.PopExpr:
		return a.typePop(ex)
	case *ast.CallExpr:
		return a.typeCall(ex)
	case *ast.CastExpr:
		return a.typeCast(ex)
	case *ast.InitListExpr:
		return a.typeInitList(ex, hint)
	default:
		a.reporter.Internal(e.Pos(), "sema: unhandled expression node")
		return a.types.Error()
	}
}

func (a *analyzer) typeIdent(ex *ast.IdentExpr) *types.Type {
	id, ok := a.scope.lookup(ex.Name)
	if !ok {
		a.reporter.Errorf(diag.KindUndeclaredName, ex.Pos(), "undeclared name %q", ex.Name)
		return a.types.Error()
	}
	ex.Decl = id
	switch d := a.prog.Decl(id).(type) {
	case *ast.VariableDecl:
		return d.Type
	case *ast.ParameterDecl:
		return d.Type
	default:
		a.reporter.Errorf(diag.KindUndeclaredName, ex.Pos(), "%q does not name a value", ex.Name)
		return a.types.Error()
	}
}

func (a *analyzer) typeIndex(ex *ast.IndexExpr) *types.Type {
	baseType := a.typeExpr(ex.Base)
	idxType := a.typeExpr(ex.Index)
	if baseType.Kind() == types.Error {
		return a.types.Error()
	}
	if baseType.Kind() != types.Array {
		a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "cannot index non-array type %s", baseType)
		return a.types.Error()
	}
	if !idxType.IsInteger() && idxType.Kind() != types.Error {
		a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "array index must be an integer type, got %s", idxType)
	}
	return baseType.Elem()
}

func (a *analyzer) typeUnary(ex *ast.UnaryExpr) *types.Type {
	operandType := a.typeExpr(ex.Operand)
	switch ex.Op {
	case ast.OpLogicalNot:
		if !a.isBool(operandType) {
			a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "logical not requires bool, got %s", operandType)
			return a.types.Error()
		}
		return a.types.Bool()
	case ast.OpBitNot:
		if !operandType.IsInteger() && operandType.Kind() != types.Error {
			a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "bitwise not requires an integer type, got %s", operandType)
			return a.types.Error()
		}
		return operandType
	case ast.OpNeg:
		if operandType.Kind() != types.Error && !operandType.IsInteger() && operandType.Kind() != types.Float {
			a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "unary minus requires a numeric type, got %s", operandType)
			return a.types.Error()
		}
		return operandType
	case ast.OpPreInc, ast.OpPreDec, ast.OpPostInc, ast.OpPostDec:
		if !a.isLValue(ex.Operand) {
			a.reporter.Errorf(diag.KindNotAnLValue, ex.Pos(), "increment/decrement target must be an lvalue")
		}
		return operandType
	default:
		return operandType
	}
}

func (a *analyzer) typeBinary(ex *ast.BinaryExpr) *types.Type {
	leftType := a.typeExpr(ex.Left)
	rightType := a.typeExpr(ex.Right)
	common, ok := a.types.CommonType(leftType, rightType)
	if !ok {
		a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "no common type for %s and %s", leftType, rightType)
		return a.types.Error()
	}
	if ex.Op.IsRelational() {
		return a.types.Bool()
	}
	return common
}

func (a *analyzer) typeLogical(ex *ast.LogicalExpr) *types.Type {
	leftType := a.typeExpr(ex.Left)
	rightType := a.typeExpr(ex.Right)
	if !a.isBool(leftType) {
		a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "logical operator requires bool operands, left is %s", leftType)
	}
	if !a.isBool(rightType) {
		a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "logical operator requires bool operands, right is %s", rightType)
	}
	return a.types.Bool()
}

func (a *analyzer) typeAssign(ex *ast.AssignExpr) *types.Type {
	targetType := a.typeExpr(ex.Target)
	if !a.isLValue(ex.Target) {
		a.reporter.Errorf(diag.KindNotAnLValue, ex.Pos(), "assignment target must be an lvalue")
	} else if decl, ok := a.targetDecl(ex.Target); ok {
		if vd, ok := a.prog.Decl(decl).(*ast.VariableDecl); ok && vd.Constant {
			a.reporter.Errorf(diag.KindNotAnLValue, ex.Pos(), "cannot assign to constant %q", vd.Name)
		}
		if !a.isWritableFilterState(decl) {
			a.reporter.Errorf(diag.KindRateMismatch, ex.Pos(),
				"stateless filter must not write to persistent variable %q", a.prog.Decl(decl).DeclName())
		}
	}
	valueType := a.typeExprHint(ex.Value, targetType)
	if ex.Op != ast.OpAssign {
		if _, ok := a.types.CommonType(targetType, valueType); !ok {
			a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "compound assignment: no common type for %s and %s", targetType, valueType)
		}
	} else if !a.types.ConvertibleTo(valueType, targetType) {
		a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "cannot assign value of type %s to target of type %s", valueType, targetType)
	}
	return targetType
}

// isWritableFilterState reports whether decl — if it is one of the
// current filter's persistent state variables — may be written to.
// Per §4.2, "a stateless filter must not write to them"; anything that
// isn't one of the filter's own Vars is unaffected by this rule.
func (a *analyzer) isWritableFilterState(decl ast.DeclID) bool {
	if a.currentFilter == nil || a.currentFilter.Stateful {
		return true
	}
	for _, vid := range a.currentFilter.Vars {
		if vid == decl {
			return false
		}
	}
	return true
}

func (a *analyzer) isLValue(id ast.ExprID) bool {
	switch a.prog.Expr(id).(type) {
	case *ast.IdentExpr, *ast.IndexExpr:
		return true
	default:
		return false
	}
}

// targetDecl unwraps an lvalue expression (possibly through one or more
// IndexExpr layers) down to the Decl it ultimately names.
func (a *analyzer) targetDecl(id ast.ExprID) (ast.DeclID, bool) {
	switch ex := a.prog.Expr(id).(type) {
	case *ast.IdentExpr:
		if ex.Decl == ast.InvalidDecl {
			return ast.InvalidDecl, false
		}
		return ex.Decl, true
	case *ast.IndexExpr:
		return a.targetDecl(ex.Base)
	default:
		return ast.InvalidDecl, false
	}
}

func (a *analyzer) typePeek(ex *ast.PeekExpr) *types.Type {
	if a.currentFilter == nil || a.currentWork == nil {
		a.reporter.Errorf(diag.KindInternal, ex.Pos(), "peek() outside a work block")
		return a.types.Error()
	}
	idxType := a.typeExpr(ex.Index)
	if !idxType.IsInteger() && idxType.Kind() != types.Error {
		a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "peek index must be an integer, got %s", idxType)
	}
	if n, ok := a.foldConstInt(ex.Index); ok {
		if n < 0 || int(n) >= a.currentWork.ResolvedPeek {
			a.reporter.Errorf(diag.KindRateMismatch, ex.Pos(),
				"peek(%d) out of range for peek rate %d", n, a.currentWork.ResolvedPeek)
		}
	} else {
		a.reporter.Errorf(diag.KindRateMismatch, ex.Pos(), "peek() index must be a compile-time constant")
	}
	return a.currentFilter.InputType
}

func (a *analyzer) typePop(ex *ast.PopExpr) *types.Type {
	if a.currentFilter == nil || a.currentWork == nil {
		a.reporter.Errorf(diag.KindInternal, ex.Pos(), "pop() outside a work block")
		return a.types.Error()
	}
	return a.currentFilter.InputType
}

func (a *analyzer) typeCast(ex *ast.CastExpr) *types.Type {
	target, ok := a.resolveTypeName(ex.TargetTypeName)
	if !ok {
		a.reporter.Errorf(diag.KindUndeclaredName, ex.Pos(), "unknown cast target type %q", ex.TargetTypeName)
		target = a.types.Error()
	}
	operandType := a.typeExpr(ex.Operand)
	if target.Kind() != types.Error && operandType.Kind() != types.Error {
		if target.IsScalar() != operandType.IsScalar() {
			a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "cannot cast %s to %s", operandType, target)
		}
	}
	return target
}

func (a *analyzer) typeInitList(ex *ast.InitListExpr, hint *types.Type) *types.Type {
	if hint == nil {
		a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "initializer list has no inferrable type in this context")
		for _, elem := range ex.Elems {
			a.typeExpr(elem)
		}
		return a.types.Error()
	}
	switch hint.Kind() {
	case types.Array:
		if uint32(len(ex.Elems)) != hint.Length() {
			a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(),
				"initializer list has %d element(s), array type %s expects %d", len(ex.Elems), hint, hint.Length())
		}
		for _, elem := range ex.Elems {
			elemType := a.typeExprHint(elem, hint.Elem())
			if !a.types.ConvertibleTo(elemType, hint.Elem()) {
				a.reporter.Errorf(diag.KindTypeMismatch, a.prog.Expr(elem).Pos(),
					"array element of type %s is not convertible to %s", elemType, hint.Elem())
			}
		}
	case types.Struct:
		fields := hint.Fields()
		if len(ex.Elems) != len(fields) {
			a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(),
				"initializer list has %d element(s), struct %s expects %d", len(ex.Elems), hint.Name(), len(fields))
		}
		for i, elem := range ex.Elems {
			if i >= len(fields) {
				a.typeExpr(elem)
				continue
			}
			elemType := a.typeExprHint(elem, fields[i].Type)
			if !a.types.ConvertibleTo(elemType, fields[i].Type) {
				a.reporter.Errorf(diag.KindTypeMismatch, a.prog.Expr(elem).Pos(),
					"field %s: value of type %s is not convertible to %s", fields[i].Name, elemType, fields[i].Type)
			}
		}
	default:
		a.reporter.Errorf(diag.KindTypeMismatch, ex.Pos(), "initializer lists are only valid for array or struct types, got %s", hint)
	}
	return hint
}
