package irgen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	cc "github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"streamhls/internal/ast"
	"streamhls/internal/source"
	streamtypes "streamhls/internal/types"
)

// funcBuilder lowers one function body (a plain user function or one
// filter work-block stage) into SSA IR, following the five-step
// algorithm of §4.3: entry allocation, statement walking into a tracked
// current block, structured if/for control flow, slot-routed variable
// access, and type-lattice casts.
type funcBuilder struct {
	lw *Lowerer
	f  *ir.Func

	entry *ir.Block
	cur   *ir.Block

	slots   map[ast.DeclID]*ir.InstAlloca
	consts  map[ast.DeclID]value.Value
	globals map[ast.DeclID]*ir.Global

	channel TargetFragmentBuilder

	breakTargets    []*ir.Block
	continueTargets []*ir.Block
	blockN          int
}

// newFuncBuilder opens the entry block and, per §4.3 point 1, allocates a
// stack slot for every incoming parameter immediately, storing the
// incoming SSA value so every later read/write — including one from a
// nested control-flow block — goes through a uniform load/store.
func newFuncBuilder(lw *Lowerer, f *ir.Func, params []ast.DeclID, channel TargetFragmentBuilder, globals map[ast.DeclID]*ir.Global) *funcBuilder {
	fb := &funcBuilder{
		lw:      lw,
		f:       f,
		slots:   make(map[ast.DeclID]*ir.InstAlloca),
		consts:  make(map[ast.DeclID]value.Value),
		globals: globals,
		channel: channel,
	}
	fb.entry = f.NewBlock(fb.nextName("entry"))
	fb.cur = fb.entry
	for i, pid := range params {
		pd := lw.prog.Decl(pid).(*ast.ParameterDecl)
		llTy := lw.conv.llType(pd.Type)
		slot := fb.cur.NewAlloca(llTy)
		fb.slots[pid] = slot
		fb.cur.NewStore(f.Params[i], slot)
	}
	return fb
}

// allocLocals pre-scans body for every mutable local declaration and
// allocates its slot in the entry block, so a slot exists before any
// branch that might declare it conditionally is ever taken. Scalar
// constants are excluded — per §4.3 point 4 they bind to their SSA value
// directly instead of occupying a slot.
func (fb *funcBuilder) allocLocals(body []ast.StmtID) {
	locals := make(map[ast.DeclID]bool)
	fb.lw.collectMutableLocals(body, locals)
	for did := range locals {
		vd := fb.lw.prog.Decl(did).(*ast.VariableDecl)
		fb.slots[did] = fb.cur.NewAlloca(fb.lw.conv.llType(vd.Type))
	}
}

func (lw *Lowerer) collectMutableLocals(stmts []ast.StmtID, out map[ast.DeclID]bool) {
	for _, id := range stmts {
		switch s := lw.prog.Stmt(id).(type) {
		case *ast.VarDeclStmt:
			vd := lw.prog.Decl(s.Decl).(*ast.VariableDecl)
			if !(vd.Constant && vd.Type.IsScalar()) {
				out[s.Decl] = true
			}
		case *ast.IfStmt:
			lw.collectMutableLocals(s.Then, out)
			lw.collectMutableLocals(s.Else, out)
		case *ast.ForStmt:
			if s.Init != ast.InvalidStmt {
				lw.collectMutableLocals([]ast.StmtID{s.Init}, out)
			}
			lw.collectMutableLocals(s.Body, out)
		}
	}
}

func (fb *funcBuilder) nextName(prefix string) string {
	fb.blockN++
	return fmt.Sprintf("%s_%d", prefix, fb.blockN)
}

// terminateTo closes the current block with a branch to target unless it
// already ends in a terminator (a `return`/`break`/`continue` already
// lowered inside it, making the branch unreachable and unnecessary).
func (fb *funcBuilder) terminateTo(target *ir.Block) {
	if fb.cur.Term == nil {
		fb.cur.NewBr(target)
	}
}

// finish caps off a function whose body fell through without an explicit
// return: a void function gets an implicit `return`, anything else is
// unreachable by construction once C2 has accepted the program.
func (fb *funcBuilder) finish(retType *streamtypes.Type) {
	if fb.cur.Term != nil {
		return
	}
	if retType.Kind() == streamtypes.Void {
		fb.cur.NewRet(nil)
		return
	}
	fb.cur.NewUnreachable()
}

// ---------------------------------------------------------------------
// Statements (§4.3 point 2 and 3)
// ---------------------------------------------------------------------

func (fb *funcBuilder) lowerStmts(stmts []ast.StmtID) {
	for _, id := range stmts {
		if fb.cur.Term != nil {
			// Anything after a return/break/continue in this block is
			// unreachable; no further instructions belong in it.
			return
		}
		fb.lowerStmt(id)
	}
}

func (fb *funcBuilder) lowerStmt(id ast.StmtID) {
	switch s := fb.lw.prog.Stmt(id).(type) {
	case *ast.ExprStmt:
		fb.lowerExpr(s.X)
	case *ast.VarDeclStmt:
		fb.lowerVarDecl(s)
	case *ast.PushStmt:
		v := fb.lowerExpr(s.Value)
		fb.channel.BuildPush(fb.cur, v)
	case *ast.AddStmt, *ast.SplitStmt, *ast.JoinStmt:
		// Pipeline/splitjoin composition has no SSA IR of its own; it is
		// elaborated by the stream-graph builder (§4.4), not C3.
	case *ast.IfStmt:
		fb.lowerIf(s)
	case *ast.ForStmt:
		fb.lowerFor(s)
	case *ast.BreakStmt:
		if len(fb.breakTargets) > 0 {
			fb.cur.NewBr(fb.breakTargets[len(fb.breakTargets)-1])
		}
	case *ast.ContinueStmt:
		if len(fb.continueTargets) > 0 {
			fb.cur.NewBr(fb.continueTargets[len(fb.continueTargets)-1])
		}
	case *ast.ReturnStmt:
		if s.Value == ast.InvalidExpr {
			fb.cur.NewRet(nil)
			return
		}
		v := fb.lowerExpr(s.Value)
		fb.cur.NewRet(v)
	default:
		fb.lw.reporter.Internal(s.Pos(), "irgen: unhandled statement node")
	}
}

func (fb *funcBuilder) lowerVarDecl(s *ast.VarDeclStmt) {
	vd := fb.lw.prog.Decl(s.Decl).(*ast.VariableDecl)
	if vd.Constant && vd.Type.IsScalar() {
		if vd.Init != ast.InvalidExpr {
			v := fb.lowerExpr(vd.Init)
			v = fb.castTo(v, fb.lw.prog.Expr(vd.Init).ResolvedType(), vd.Type)
			fb.consts[s.Decl] = v
		}
		return
	}
	if vd.Init == ast.InvalidExpr {
		return
	}
	fb.lowerInitInto(fb.slots[s.Decl], vd.Type, vd.Init)
}

// lowerInitInto stores init's value into addr, recursing element-by-
// element for a brace initializer list (§3's InitListExpr) so each
// element lands at its GEP'd slot with its own lattice cast applied.
func (fb *funcBuilder) lowerInitInto(addr value.Value, containerTy *streamtypes.Type, initID ast.ExprID) {
	initExpr := fb.lw.prog.Expr(initID)
	init, ok := initExpr.(*ast.InitListExpr)
	if !ok {
		v := fb.lowerExpr(initID)
		v = fb.castTo(v, initExpr.ResolvedType(), containerTy)
		fb.cur.NewStore(v, addr)
		return
	}
	containerLL := fb.lw.conv.llType(containerTy)
	zero := cc.NewInt(lltypes.I32, 0)
	for i, elemID := range init.Elems {
		var fieldTy *streamtypes.Type
		if containerTy.Kind() == streamtypes.Struct {
			fieldTy = containerTy.Fields()[i].Type
		} else {
			fieldTy = containerTy.Elem()
		}
		v := fb.lowerExpr(elemID)
		v = fb.castTo(v, fb.lw.prog.Expr(elemID).ResolvedType(), fieldTy)
		idx := cc.NewInt(lltypes.I32, int64(i))
		elemAddr := fb.cur.NewGetElementPtr(containerLL, addr, zero, idx)
		fb.cur.NewStore(v, elemAddr)
	}
}

// lowerIf implements §4.3 point 3's if-lowering: then/else?/merge blocks,
// a conditional branch out of the current block, and an unconditional
// branch from each arm into merge.
func (fb *funcBuilder) lowerIf(s *ast.IfStmt) {
	cond := fb.lowerExpr(s.Cond)
	condBB := fb.cur
	thenBB := fb.f.NewBlock(fb.nextName("if_then"))
	mergeBB := fb.f.NewBlock(fb.nextName("if_merge"))
	if len(s.Else) > 0 {
		elseBB := fb.f.NewBlock(fb.nextName("if_else"))
		condBB.NewCondBr(cond, thenBB, elseBB)
		fb.cur = thenBB
		fb.lowerStmts(s.Then)
		fb.terminateTo(mergeBB)
		fb.cur = elseBB
		fb.lowerStmts(s.Else)
		fb.terminateTo(mergeBB)
	} else {
		condBB.NewCondBr(cond, thenBB, mergeBB)
		fb.cur = thenBB
		fb.lowerStmts(s.Then)
		fb.terminateTo(mergeBB)
	}
	fb.cur = mergeBB
}

// lowerFor implements §4.3 point 3's for-lowering: header/body/step/exit
// blocks, with break targeting exit and continue targeting step via two
// stacks, exactly as the spec names them.
func (fb *funcBuilder) lowerFor(s *ast.ForStmt) {
	if s.Init != ast.InvalidStmt {
		fb.lowerStmt(s.Init)
	}
	headerBB := fb.f.NewBlock(fb.nextName("for_header"))
	bodyBB := fb.f.NewBlock(fb.nextName("for_body"))
	stepBB := fb.f.NewBlock(fb.nextName("for_step"))
	exitBB := fb.f.NewBlock(fb.nextName("for_exit"))

	fb.terminateTo(headerBB)
	fb.cur = headerBB
	if s.Cond != ast.InvalidExpr {
		cond := fb.lowerExpr(s.Cond)
		fb.cur.NewCondBr(cond, bodyBB, exitBB)
	} else {
		fb.cur.NewBr(bodyBB)
	}

	fb.cur = bodyBB
	fb.breakTargets = append(fb.breakTargets, exitBB)
	fb.continueTargets = append(fb.continueTargets, stepBB)
	fb.lowerStmts(s.Body)
	fb.breakTargets = fb.breakTargets[:len(fb.breakTargets)-1]
	fb.continueTargets = fb.continueTargets[:len(fb.continueTargets)-1]
	fb.terminateTo(stepBB)

	fb.cur = stepBB
	if s.Post != ast.InvalidStmt {
		fb.lowerStmt(s.Post)
	}
	fb.terminateTo(headerBB)

	fb.cur = exitBB
}

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

func (fb *funcBuilder) lowerExpr(id ast.ExprID) value.Value {
	ex := fb.lw.prog.Expr(id)
	switch e := ex.(type) {
	case *ast.IntLit:
		llTy := fb.lw.conv.llType(e.ResolvedType())
		it, ok := llTy.(*lltypes.IntType)
		if !ok {
			it = lltypes.I32
		}
		return cc.NewInt(it, e.Value)
	case *ast.BoolLit:
		return cc.NewBool(e.Value)
	case *ast.FloatLit:
		llTy := fb.lw.conv.llType(e.ResolvedType())
		ft, ok := llTy.(*lltypes.FloatType)
		if !ok {
			ft = lltypes.Float
		}
		return cc.NewFloat(ft, e.Value)
	case *ast.IdentExpr:
		return fb.lowerIdent(e)
	case *ast.IndexExpr:
		addr := fb.lvalueAddr(id)
		return fb.cur.NewLoad(fb.lw.conv.llType(e.ResolvedType()), addr)
	case *ast.UnaryExpr:
		return fb.lowerUnary(e)
	case *ast.BinaryExpr:
		return fb.lowerBinary(e)
	case *ast.LogicalExpr:
		return fb.lowerLogical(e)
	case *ast.CommaExpr:
		fb.lowerExpr(e.Left)
		return fb.lowerExpr(e.Right)
	case *ast.AssignExpr:
		return fb.lowerAssign(e)
	case *ast.PeekExpr:
		idx := fb.lowerExpr(e.Index)
		return fb.channel.BuildPeek(fb.cur, idx)
	case *ast.PopExpr:
		return fb.channel.BuildPop(fb.cur)
	case *ast.CallExpr:
		return fb.lowerCall(e)
	case *ast.CastExpr:
		v := fb.lowerExpr(e.Operand)
		return fb.castTo(v, fb.lw.prog.Expr(e.Operand).ResolvedType(), e.ResolvedType())
	case *ast.InitListExpr:
		fb.lw.reporter.Internal(e.Pos(), "irgen: bare initializer list outside a declaration")
		return cc.NewZeroInitializer(fb.lw.conv.llType(e.ResolvedType()))
	default:
		fb.lw.reporter.Internal(ex.Pos(), "irgen: unhandled expression node")
		return cc.NewInt(lltypes.I32, 0)
	}
}

func (fb *funcBuilder) lowerIdent(ex *ast.IdentExpr) value.Value {
	if v, ok := fb.consts[ex.Decl]; ok {
		return v
	}
	addr := fb.addrForDecl(ex.Decl, ex.Pos())
	return fb.cur.NewLoad(fb.lw.conv.llType(ex.ResolvedType()), addr)
}

// lvalueAddr resolves an assignable expression to its address: an
// identifier's slot/global, or — per §4.3 point 4's "indexing emits a
// bounds-unchecked GEP composing base + zero + index" — a GEP off the
// base array's address.
func (fb *funcBuilder) lvalueAddr(id ast.ExprID) value.Value {
	switch ex := fb.lw.prog.Expr(id).(type) {
	case *ast.IdentExpr:
		return fb.addrForDecl(ex.Decl, ex.Pos())
	case *ast.IndexExpr:
		base := fb.lvalueAddr(ex.Base)
		idx := fb.lowerExpr(ex.Index)
		baseTy := fb.lw.prog.Expr(ex.Base).ResolvedType()
		zero := cc.NewInt(lltypes.I32, 0)
		return fb.cur.NewGetElementPtr(fb.lw.conv.llType(baseTy), base, zero, idx)
	default:
		fb.lw.reporter.Internal(fb.lw.prog.Expr(id).Pos(), "irgen: non-lvalue expression used as an assignment target")
		return nil
	}
}

func (fb *funcBuilder) addrForDecl(id ast.DeclID, pos source.Position) value.Value {
	if g, ok := fb.globals[id]; ok {
		return g
	}
	if s, ok := fb.slots[id]; ok {
		return s
	}
	fb.lw.reporter.Internal(pos, "irgen: identifier has no storage slot")
	return nil
}

func (fb *funcBuilder) lowerUnary(ex *ast.UnaryExpr) value.Value {
	ty := fb.lw.prog.Expr(ex.Operand).ResolvedType()
	switch ex.Op {
	case ast.OpPreInc, ast.OpPreDec, ast.OpPostInc, ast.OpPostDec:
		addr := fb.lvalueAddr(ex.Operand)
		llTy := fb.lw.conv.llType(ty)
		old := fb.cur.NewLoad(llTy, addr)
		one := fb.oneConst(ty, llTy)
		isFloat := ty.Kind() == streamtypes.Float
		var updated value.Value
		switch {
		case (ex.Op == ast.OpPreInc || ex.Op == ast.OpPostInc) && isFloat:
			updated = fb.cur.NewFAdd(old, one)
		case ex.Op == ast.OpPreInc || ex.Op == ast.OpPostInc:
			updated = fb.cur.NewAdd(old, one)
		case isFloat:
			updated = fb.cur.NewFSub(old, one)
		default:
			updated = fb.cur.NewSub(old, one)
		}
		fb.cur.NewStore(updated, addr)
		if ex.Op == ast.OpPreInc || ex.Op == ast.OpPreDec {
			return updated
		}
		return old
	case ast.OpNeg:
		v := fb.lowerExpr(ex.Operand)
		if ty.Kind() == streamtypes.Float {
			return fb.cur.NewFNeg(v)
		}
		it, _ := fb.lw.conv.llType(ty).(*lltypes.IntType)
		return fb.cur.NewSub(cc.NewInt(it, 0), v)
	case ast.OpLogicalNot:
		v := fb.lowerExpr(ex.Operand)
		return fb.cur.NewXor(v, cc.True)
	case ast.OpBitNot:
		v := fb.lowerExpr(ex.Operand)
		it, _ := fb.lw.conv.llType(ty).(*lltypes.IntType)
		return fb.cur.NewXor(v, cc.NewInt(it, -1))
	default:
		fb.lw.reporter.Internal(ex.Pos(), "irgen: unhandled unary operator")
		return fb.lowerExpr(ex.Operand)
	}
}

func (fb *funcBuilder) oneConst(ty *streamtypes.Type, llTy lltypes.Type) value.Value {
	if ty.Kind() == streamtypes.Float {
		ft, _ := llTy.(*lltypes.FloatType)
		return cc.NewFloat(ft, 1)
	}
	it, _ := llTy.(*lltypes.IntType)
	return cc.NewInt(it, 1)
}

// lowerBinary widens both operands to their §4.1 common type before
// applying the operator; a relational operator still compares at the
// common type but always yields Bool, matching typeBinary in C2.
func (fb *funcBuilder) lowerBinary(ex *ast.BinaryExpr) value.Value {
	leftTy := fb.lw.prog.Expr(ex.Left).ResolvedType()
	rightTy := fb.lw.prog.Expr(ex.Right).ResolvedType()
	common, ok := fb.lw.interner.CommonType(leftTy, rightTy)
	if !ok {
		common = leftTy
	}
	l := fb.castTo(fb.lowerExpr(ex.Left), leftTy, common)
	r := fb.castTo(fb.lowerExpr(ex.Right), rightTy, common)
	return fb.applyBinaryOp(ex.Op, l, r, common, ex.Pos())
}

func (fb *funcBuilder) applyBinaryOp(op ast.BinaryOp, l, r value.Value, ty *streamtypes.Type, pos source.Position) value.Value {
	isFloat := ty.Kind() == streamtypes.Float
	switch op {
	case ast.OpAdd:
		if isFloat {
			return fb.cur.NewFAdd(l, r)
		}
		return fb.cur.NewAdd(l, r)
	case ast.OpSub:
		if isFloat {
			return fb.cur.NewFSub(l, r)
		}
		return fb.cur.NewSub(l, r)
	case ast.OpMul:
		if isFloat {
			return fb.cur.NewFMul(l, r)
		}
		return fb.cur.NewMul(l, r)
	case ast.OpDiv:
		if isFloat {
			return fb.cur.NewFDiv(l, r)
		}
		if isSigned(ty) {
			return fb.cur.NewSDiv(l, r)
		}
		return fb.cur.NewUDiv(l, r)
	case ast.OpMod:
		if isFloat {
			return fb.cur.NewFRem(l, r)
		}
		if isSigned(ty) {
			return fb.cur.NewSRem(l, r)
		}
		return fb.cur.NewURem(l, r)
	case ast.OpBitAnd:
		return fb.cur.NewAnd(l, r)
	case ast.OpBitOr:
		return fb.cur.NewOr(l, r)
	case ast.OpBitXor:
		return fb.cur.NewXor(l, r)
	case ast.OpShl:
		return fb.cur.NewShl(l, r)
	case ast.OpShr:
		if isSigned(ty) {
			return fb.cur.NewAShr(l, r)
		}
		return fb.cur.NewLShr(l, r)
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe, ast.OpEq, ast.OpNe:
		if isFloat {
			return fb.cur.NewFCmp(floatPred(op), l, r)
		}
		return fb.cur.NewICmp(intPred(op, isSigned(ty)), l, r)
	default:
		fb.lw.reporter.Internal(pos, "irgen: unhandled binary operator")
		return l
	}
}

func intPred(op ast.BinaryOp, signed bool) enum.IPred {
	switch op {
	case ast.OpEq:
		return enum.IPredEQ
	case ast.OpNe:
		return enum.IPredNE
	case ast.OpLt:
		if signed {
			return enum.IPredSLT
		}
		return enum.IPredULT
	case ast.OpLe:
		if signed {
			return enum.IPredSLE
		}
		return enum.IPredULE
	case ast.OpGt:
		if signed {
			return enum.IPredSGT
		}
		return enum.IPredUGT
	default: // ast.OpGe
		if signed {
			return enum.IPredSGE
		}
		return enum.IPredUGE
	}
}

func floatPred(op ast.BinaryOp) enum.FPred {
	switch op {
	case ast.OpEq:
		return enum.FPredOEQ
	case ast.OpNe:
		return enum.FPredONE
	case ast.OpLt:
		return enum.FPredOLT
	case ast.OpLe:
		return enum.FPredOLE
	case ast.OpGt:
		return enum.FPredOGT
	default: // ast.OpGe
		return enum.FPredOGE
	}
}

// lowerLogical implements §4.3 point 3's diamond-shaped short-circuit
// lowering: the right operand only executes in its own block, and a PHI
// at the merge picks the short-circuit constant or the right operand's
// value depending on which edge was taken.
func (fb *funcBuilder) lowerLogical(ex *ast.LogicalExpr) value.Value {
	lhs := fb.lowerExpr(ex.Left)
	condBB := fb.cur
	rhsBB := fb.f.NewBlock(fb.nextName("logic_rhs"))
	mergeBB := fb.f.NewBlock(fb.nextName("logic_merge"))

	var short value.Value
	if ex.Op == ast.OpLogicalAnd {
		short = cc.False
		condBB.NewCondBr(lhs, rhsBB, mergeBB)
	} else {
		short = cc.True
		condBB.NewCondBr(lhs, mergeBB, rhsBB)
	}

	fb.cur = rhsBB
	rhs := fb.lowerExpr(ex.Right)
	rhsEndBB := fb.cur
	fb.terminateTo(mergeBB)

	fb.cur = mergeBB
	return fb.cur.NewPhi(ir.NewIncoming(short, condBB), ir.NewIncoming(rhs, rhsEndBB))
}

func compoundOp(op ast.AssignOp) ast.BinaryOp {
	switch op {
	case ast.OpAddAssign:
		return ast.OpAdd
	case ast.OpSubAssign:
		return ast.OpSub
	case ast.OpMulAssign:
		return ast.OpMul
	case ast.OpDivAssign:
		return ast.OpDiv
	case ast.OpModAssign:
		return ast.OpMod
	case ast.OpBitAndAssign:
		return ast.OpBitAnd
	case ast.OpBitOrAssign:
		return ast.OpBitOr
	case ast.OpBitXorAssign:
		return ast.OpBitXor
	case ast.OpShlAssign:
		return ast.OpShl
	default: // ast.OpShrAssign
		return ast.OpShr
	}
}

func (fb *funcBuilder) lowerAssign(ex *ast.AssignExpr) value.Value {
	addr := fb.lvalueAddr(ex.Target)
	targetTy := fb.lw.prog.Expr(ex.Target).ResolvedType()

	if ex.Op == ast.OpAssign {
		v := fb.lowerExpr(ex.Value)
		v = fb.castTo(v, fb.lw.prog.Expr(ex.Value).ResolvedType(), targetTy)
		fb.cur.NewStore(v, addr)
		return v
	}

	targetLL := fb.lw.conv.llType(targetTy)
	cur := fb.cur.NewLoad(targetLL, addr)
	rhsTy := fb.lw.prog.Expr(ex.Value).ResolvedType()
	common, ok := fb.lw.interner.CommonType(targetTy, rhsTy)
	if !ok {
		common = targetTy
	}
	l := fb.castTo(cur, targetTy, common)
	r := fb.castTo(fb.lowerExpr(ex.Value), rhsTy, common)
	result := fb.applyBinaryOp(compoundOp(ex.Op), l, r, common, ex.Pos())
	result = fb.castTo(result, common, targetTy)
	fb.cur.NewStore(result, addr)
	return result
}

func (fb *funcBuilder) lowerCall(ex *ast.CallExpr) value.Value {
	fn := fb.lw.funcs[ex.Target]
	if fn == nil {
		fb.lw.reporter.Internal(ex.Pos(), "irgen: call to an unresolved function")
		return cc.NewInt(lltypes.I32, 0)
	}
	fd := fb.lw.prog.Decl(ex.Target).(*ast.FunctionDecl)

	args := make([]value.Value, len(ex.Args))
	if len(fd.Params) == len(ex.Args) {
		for i, argID := range ex.Args {
			pd := fb.lw.prog.Decl(fd.Params[i]).(*ast.ParameterDecl)
			v := fb.lowerExpr(argID)
			args[i] = fb.castTo(v, fb.lw.prog.Expr(argID).ResolvedType(), pd.Type)
		}
	} else {
		// A variadic builtin (println): no fixed parameter list to cast
		// against, so every argument is passed through as lowered.
		for i, argID := range ex.Args {
			args[i] = fb.lowerExpr(argID)
		}
	}

	if fd.ReturnType == nil || fd.ReturnType.Kind() == streamtypes.Void {
		fb.cur.NewCall(fn, args...)
		return nil
	}
	return fb.cur.NewCall(fn, args...)
}

// castTo implements §4.3 point 5 exactly: integer↔integer is a truncate
// or a sign/zero-extend (zero-extend only when the source is Bit/Bool);
// int→float is a signed convert; float→int truncates toward zero; same
// type is a no-op.
func (fb *funcBuilder) castTo(v value.Value, from, to *streamtypes.Type) value.Value {
	if from == to {
		return v
	}
	fromLL := fb.lw.conv.llType(from)
	toLL := fb.lw.conv.llType(to)
	if lltypes.Equal(fromLL, toLL) {
		return v
	}
	switch {
	case from.IsInteger() && to.IsInteger():
		fw := intBits(fromLL)
		tw := intBits(toLL)
		switch {
		case fw == tw:
			return v
		case fw > tw:
			return fb.cur.NewTrunc(v, toLL)
		case from.Kind() == streamtypes.Bool || from.Kind() == streamtypes.Bit:
			return fb.cur.NewZExt(v, toLL)
		case isSigned(from):
			return fb.cur.NewSExt(v, toLL)
		default:
			return fb.cur.NewZExt(v, toLL)
		}
	case from.IsInteger() && to.Kind() == streamtypes.Float:
		return fb.cur.NewSIToFP(v, toLL)
	case from.Kind() == streamtypes.Float && to.IsInteger():
		return fb.cur.NewFPToSI(v, toLL)
	default:
		return v
	}
}

func intBits(t lltypes.Type) int {
	if it, ok := t.(*lltypes.IntType); ok {
		return int(it.BitSize)
	}
	return 0
}
