package cbackend

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"streamhls/internal/irgen"
)

// portInfo describes one FIFO port a stage function gains when its body
// calls the corresponding pop/peek/push extern: a pointer to the element
// buffer plus a pointer to a shared head/tail index, so the index survives
// across separate init/prework/work invocations the way a real FIFO's read
// or write pointer does.
type portInfo struct {
	elemC   string
	dataArg string
	idxArg  string
}

// funcPrinter lowers one ir.Func's instructions into a C function body.
// Every SSA pointer value (an alloca, a GEP, a global) is tracked as an
// lvalue expression string rather than an actual pointer, since every GEP
// this backend ever sees follows §4.3's fixed (base, zero, index) shape —
// so "the address a pointer value denotes" and "the C lvalue that names
// it" coincide and there's no need to model real pointer arithmetic.
type funcPrinter struct {
	p          *printer
	filterName string

	lval   map[value.Value]string // alloca/GEP/global results -> assignable C expression
	val    map[value.Value]string // materialized or inlined rvalue text
	uses   map[value.Value]int
	block  map[value.Value]*ir.Block // block a candidate instruction was defined in
	useBlk map[value.Value]*ir.Block // block of its (most recently seen) use

	tempN    int
	declared []string // "TYPE name;" lines emitted at function top, in order

	phiAssign map[*ir.Block][]string // extra assignments appended just before a block's terminator

	inPort  *portInfo
	outPort *portInfo
}

func (fn *funcPrinter) newTemp() string {
	fn.tempN++
	return fmt.Sprintf("t%d", fn.tempN)
}

// collectTypes registers every struct/array/function-pointer type an
// instruction in f touches, so the typedefs those types need are already
// declared before any function body prints (§4.5's "structs are
// pre-declared by reachability").
func (fn *funcPrinter) collectTypes(f *ir.Func) {
	for _, prm := range f.Params {
		fn.p.ctype(prm.Type())
	}
	fn.p.ctype(f.Sig.RetType)
	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			switch ii := inst.(type) {
			case *ir.InstAlloca:
				fn.p.ctype(ii.ElemType)
			case *ir.InstLoad:
				fn.p.ctype(ii.Type())
			case *ir.InstGetElementPtr:
				fn.p.ctype(ii.ElemType)
			case *ir.InstPhi:
				fn.p.ctype(ii.Type())
			case *ir.InstCall:
				if callee, ok := ii.Callee.(*ir.Func); ok {
					for _, pt := range callee.Sig.Params {
						fn.p.ctype(pt)
					}
					fn.p.ctype(callee.Sig.RetType)
				}
			}
		}
	}
}

// printFunc emits one complete C function for f (one of a filter's
// init/prework/work stages). stage is not consulted: every stage can call
// pop/peek/push, so which FIFO ports f gets is decided purely from what
// f's body actually calls.
func (p *printer) printFunc(f *ir.Func, filterName, stage string) (string, error) {
	fn := &funcPrinter{
		p:          p,
		filterName: filterName,
		lval:       make(map[value.Value]string),
		val:        make(map[value.Value]string),
		uses:       make(map[value.Value]int),
		block:      make(map[value.Value]*ir.Block),
		useBlk:     make(map[value.Value]*ir.Block),
		phiAssign:  make(map[*ir.Block][]string),
	}
	fn.detectPorts(f)
	fn.countUses(f)
	fn.assignPhiNames(f)

	var body strings.Builder
	for _, blk := range f.Blocks {
		body.WriteString(blk.Name())
		body.WriteString(":\n")
		for _, inst := range blk.Insts {
			if err := fn.printInst(&body, blk, inst); err != nil {
				return "", err
			}
		}
		for _, stmt := range fn.phiAssign[blk] {
			fmt.Fprintf(&body, "  %s\n", stmt)
		}
		fn.printTerm(&body, blk)
	}

	var sig strings.Builder
	fmt.Fprintf(&sig, "void %s(", f.Name())
	var params []string
	for _, prm := range f.Params {
		params = append(params, fmt.Sprintf("%s %s", p.ctype(prm.Type()), prm.Name()))
	}
	if fn.inPort != nil {
		params = append(params, fmt.Sprintf("%s *%s", fn.inPort.elemC, fn.inPort.dataArg), fmt.Sprintf("int *%s", fn.inPort.idxArg))
	}
	if fn.outPort != nil {
		params = append(params, fmt.Sprintf("%s *%s", fn.outPort.elemC, fn.outPort.dataArg), fmt.Sprintf("int *%s", fn.outPort.idxArg))
	}
	sig.WriteString(strings.Join(params, ", "))
	sig.WriteString(") {\n")
	for _, d := range fn.declared {
		fmt.Fprintf(&sig, "  %s\n", d)
	}
	sig.WriteString(body.String())
	sig.WriteString("}\n")
	return sig.String(), nil
}

// detectPorts scans every call in f for the three channel symbols
// internal/irgen/channel.go's externChannel names after filterName, and
// derives the FIFO port this function needs from the extern's own
// signature (channel.go always types popFn/peekFn's return and pushFn's
// sole parameter after the filter's declared input/output type).
func (fn *funcPrinter) detectPorts(f *ir.Func) {
	popSym := irgen.FuncSymbol(fn.filterName, "pop")
	peekSym := irgen.FuncSymbol(fn.filterName, "peek")
	pushSym := irgen.FuncSymbol(fn.filterName, "push")
	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			call, ok := inst.(*ir.InstCall)
			if !ok {
				continue
			}
			callee, ok := call.Callee.(*ir.Func)
			if !ok {
				continue
			}
			switch callee.Name() {
			case popSym, peekSym:
				if fn.inPort == nil {
					fn.inPort = &portInfo{elemC: fn.p.ctype(callee.Sig.RetType), dataArg: "in_fifo", idxArg: "in_head"}
				}
			case pushSym:
				if fn.outPort == nil {
					fn.outPort = &portInfo{elemC: fn.p.ctype(callee.Sig.Params[0]), dataArg: "out_fifo", idxArg: "out_head"}
				}
			}
		}
	}
}

// countUses records, for every instruction result that is an inlining
// candidate (an arithmetic/compare/cast op — never load/call/phi/gep/
// alloca), how many times it's read and the block it was defined in, so
// printInst can later tell whether that single use falls in the same
// block (§4.5's inlining rule).
func (fn *funcPrinter) countUses(f *ir.Func) {
	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			if isInlineCandidate(inst) {
				fn.block[inst.(value.Value)] = blk
			}
		}
	}
	touch := func(v value.Value, usedIn *ir.Block) {
		if _, ok := fn.block[v]; ok {
			fn.uses[v]++
			fn.useBlk[v] = usedIn
		}
	}
	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			for _, op := range operandsOf(inst) {
				touch(op, blk)
			}
		}
		for _, op := range termOperands(blk.Term) {
			touch(op, blk)
		}
	}
}

func isInlineCandidate(inst ir.Instruction) bool {
	switch inst.(type) {
	case *ir.InstAdd, *ir.InstSub, *ir.InstMul, *ir.InstUDiv, *ir.InstSDiv,
		*ir.InstURem, *ir.InstSRem, *ir.InstShl, *ir.InstLShr, *ir.InstAShr,
		*ir.InstAnd, *ir.InstOr, *ir.InstXor,
		*ir.InstFAdd, *ir.InstFSub, *ir.InstFMul, *ir.InstFDiv, *ir.InstFRem, *ir.InstFNeg,
		*ir.InstICmp, *ir.InstFCmp,
		*ir.InstTrunc, *ir.InstZExt, *ir.InstSExt, *ir.InstSIToFP, *ir.InstFPToSI:
		return true
	}
	return false
}

func operandsOf(inst ir.Instruction) []value.Value {
	switch ii := inst.(type) {
	case *ir.InstStore:
		return []value.Value{ii.Src, ii.Dst}
	case *ir.InstLoad:
		return []value.Value{ii.Src}
	case *ir.InstGetElementPtr:
		ops := []value.Value{ii.Src}
		return append(ops, ii.Indices...)
	case *ir.InstCall:
		return append([]value.Value{}, ii.Args...)
	case *ir.InstPhi:
		var ops []value.Value
		for _, inc := range ii.Incs {
			ops = append(ops, inc.X)
		}
		return ops
	case *ir.InstAdd:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstSub:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstMul:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstUDiv:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstSDiv:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstURem:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstSRem:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstShl:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstLShr:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstAShr:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstAnd:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstOr:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstXor:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstFAdd:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstFSub:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstFMul:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstFDiv:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstFRem:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstFNeg:
		return []value.Value{ii.X}
	case *ir.InstICmp:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstFCmp:
		return []value.Value{ii.X, ii.Y}
	case *ir.InstTrunc:
		return []value.Value{ii.From}
	case *ir.InstZExt:
		return []value.Value{ii.From}
	case *ir.InstSExt:
		return []value.Value{ii.From}
	case *ir.InstSIToFP:
		return []value.Value{ii.From}
	case *ir.InstFPToSI:
		return []value.Value{ii.From}
	}
	return nil
}

func termOperands(term ir.Terminator) []value.Value {
	switch tt := term.(type) {
	case *ir.TermRet:
		if tt.X != nil {
			return []value.Value{tt.X}
		}
	case *ir.TermCondBr:
		return []value.Value{tt.Cond}
	}
	return nil
}

// assignPhiNames gives every phi node in f a shadow variable named
// "<temp>__PHI_TEMPORARY" per §4.5, and schedules an assignment into it at
// the end of every predecessor block. There is deliberately no separate
// copy-in at the merge block's entry: the shadow variable IS the phi's
// value from the moment control reaches the merge block, since nothing
// else in the function can write it first.
func (fn *funcPrinter) assignPhiNames(f *ir.Func) {
	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			phi, ok := inst.(*ir.InstPhi)
			if !ok {
				continue
			}
			name := fn.newTemp() + "__PHI_TEMPORARY"
			fn.declared = append(fn.declared, fmt.Sprintf("%s %s;", fn.p.ctype(phi.Type()), name))
			fn.val[phi] = name
			for _, inc := range phi.Incs {
				stmt := fmt.Sprintf("%s = %s;", name, fn.rvalue(inc.X))
				fn.phiAssign[inc.Pred.(*ir.Block)] = append(fn.phiAssign[inc.Pred.(*ir.Block)], stmt)
			}
		}
	}
}

// rvalue resolves any SSA value to the C expression text that reads it:
// a constant literal, a parameter's name, an already-materialized or
// inlined instruction result, or (for a pointer-valued instruction) the
// lvalue it denotes.
func (fn *funcPrinter) rvalue(v value.Value) string {
	switch vv := v.(type) {
	case *constant.Int:
		return vv.X.String()
	case *constant.Float:
		f, _ := vv.X.Float64()
		return fmt.Sprintf("%g", f)
	case *constant.ZeroInitializer:
		return "{0}"
	case *ir.Param:
		return vv.Name()
	case *ir.Global:
		return vv.Name()
	}
	if s, ok := fn.lval[v]; ok {
		return s
	}
	if s, ok := fn.val[v]; ok {
		return s
	}
	return v.Ident()
}

func (fn *funcPrinter) lvalueOf(v value.Value) string {
	if s, ok := fn.lval[v]; ok {
		return s
	}
	return fn.rvalue(v)
}

// emit either materializes inst's result into a declared temp (printing
// "TYPE tN = expr;") or, when it qualifies for §4.5's inlining rule,
// records expr itself as the value's text with no statement at all.
func (fn *funcPrinter) emit(w *strings.Builder, inst ir.Instruction, resultType types.Type, expr string) {
	expr = maskExpr(resultType, expr)
	v := inst.(value.Value)
	if fn.uses[v] == 1 && fn.useBlk[v] == fn.block[v] {
		fn.val[v] = "(" + expr + ")"
		return
	}
	name := fn.newTemp()
	fn.declared = append(fn.declared, fmt.Sprintf("%s %s;", fn.p.ctype(resultType), name))
	fmt.Fprintf(w, "  %s = %s;\n", name, expr)
	fn.val[v] = name
}

func maskExpr(t types.Type, expr string) string {
	it, ok := t.(*types.IntType)
	if !ok {
		return expr
	}
	w := it.BitSize
	if w == 0 || w&(w-1) == 0 {
		return expr
	}
	return fmt.Sprintf("(%s) & ((1ULL<<%d)-1)", expr, w)
}

func (fn *funcPrinter) printInst(w *strings.Builder, blk *ir.Block, inst ir.Instruction) error {
	switch ii := inst.(type) {
	case *ir.InstAlloca:
		name := fn.newTemp()
		fn.declared = append(fn.declared, fmt.Sprintf("%s %s;", fn.p.ctype(ii.ElemType), name))
		fn.lval[inst.(value.Value)] = name

	case *ir.InstGetElementPtr:
		fn.lval[inst.(value.Value)] = fn.gepLvalue(ii)

	case *ir.InstLoad:
		src := fn.lvalueOf(ii.Src)
		name := fn.newTemp()
		fn.declared = append(fn.declared, fmt.Sprintf("%s %s;", fn.p.ctype(ii.Type()), name))
		fmt.Fprintf(w, "  %s = %s;\n", name, src)
		fn.val[inst.(value.Value)] = name

	case *ir.InstStore:
		dst := fn.lvalueOf(ii.Dst)
		val := fn.rvalue(ii.Src)
		fmt.Fprintf(w, "  %s = %s;\n", dst, maskExpr(ii.Src.Type(), val))

	case *ir.InstCall:
		return fn.printCall(w, ii)

	case *ir.InstPhi:
		// Handled up front by assignPhiNames; nothing to print here.

	case *ir.InstAdd:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s + %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstSub:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s - %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstMul:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s * %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstUDiv:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s / %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstSDiv:
		l, r := fn.signedPair(ii.X, ii.Y)
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s / %s", l, r))
	case *ir.InstURem:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s %% %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstSRem:
		l, r := fn.signedPair(ii.X, ii.Y)
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s %% %s", l, r))
	case *ir.InstShl:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s << %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstLShr:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s >> %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstAShr:
		l := fn.signedCast(ii.X)
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s >> %s", l, fn.rvalue(ii.Y)))
	case *ir.InstAnd:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s & %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstOr:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s | %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstXor:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s ^ %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))

	case *ir.InstFAdd:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s + %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstFSub:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s - %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstFMul:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s * %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstFDiv:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("%s / %s", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstFRem:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("fmod(%s, %s)", fn.rvalue(ii.X), fn.rvalue(ii.Y)))
	case *ir.InstFNeg:
		fn.emit(w, inst, ii.X.Type(), fmt.Sprintf("-(%s)", fn.rvalue(ii.X)))

	case *ir.InstICmp:
		op, signed := icmpOp(ii.Pred)
		l, r := fn.rvalue(ii.X), fn.rvalue(ii.Y)
		if signed {
			l, r = fn.signedCast(ii.X), fn.signedCast(ii.Y)
		}
		fn.emit(w, inst, ii.Type(), fmt.Sprintf("%s %s %s", l, op, r))
	case *ir.InstFCmp:
		op := fcmpOp(ii.Pred)
		fn.emit(w, inst, ii.Type(), fmt.Sprintf("%s %s %s", fn.rvalue(ii.X), op, fn.rvalue(ii.Y)))

	case *ir.InstTrunc:
		fn.emit(w, inst, ii.To, fmt.Sprintf("(%s)(%s)", fn.p.ctype(ii.To), fn.rvalue(ii.From)))
	case *ir.InstZExt:
		fn.emit(w, inst, ii.To, fmt.Sprintf("(%s)(%s)", fn.p.ctype(ii.To), fn.rvalue(ii.From)))
	case *ir.InstSExt:
		fn.emit(w, inst, ii.To, fmt.Sprintf("(%s)(%s)", fn.p.ctype(ii.To), fn.signedCast(ii.From)))
	case *ir.InstSIToFP:
		fn.emit(w, inst, ii.To, fmt.Sprintf("(%s)(%s)", fn.p.ctype(ii.To), fn.signedCast(ii.From)))
	case *ir.InstFPToSI:
		width := intBitsOf(ii.To)
		fn.emit(w, inst, ii.To, fmt.Sprintf("(%s)(%s)(%s)", fn.p.ctype(ii.To), signedIntCType(width), fn.rvalue(ii.From)))

	default:
		return fmt.Errorf("cbackend: unhandled instruction %T in %s", inst, blk.Name())
	}
	return nil
}

// gepLvalue implements §4.3's fixed (base, zero, index) GEP shape as
// struct-field access into the array wrapper struct §4.5 requires, or as
// the corresponding field_<n> access for a genuine struct GEP.
func (fn *funcPrinter) gepLvalue(ii *ir.InstGetElementPtr) string {
	base := fn.lvalueOf(ii.Src)
	if len(ii.Indices) < 2 {
		return base
	}
	idx := ii.Indices[len(ii.Indices)-1]
	if _, isArr := ii.ElemType.(*types.ArrayType); isArr {
		return fmt.Sprintf("%s.items[%s]", base, fn.rvalue(idx))
	}
	if c, ok := idx.(*constant.Int); ok {
		return fmt.Sprintf("%s.field_%s", base, c.X.String())
	}
	return fmt.Sprintf("%s.items[%s]", base, fn.rvalue(idx))
}

func (fn *funcPrinter) signedCast(v value.Value) string {
	w := intBitsOf(v.Type())
	return fmt.Sprintf("(%s)(%s)", signedIntCType(w), fn.rvalue(v))
}

func (fn *funcPrinter) signedPair(x, y value.Value) (string, string) {
	return fn.signedCast(x), fn.signedCast(y)
}

func intBitsOf(t types.Type) uint64 {
	if it, ok := t.(*types.IntType); ok {
		return it.BitSize
	}
	return 32
}

func icmpOp(pred enum.IPred) (op string, signed bool) {
	switch pred {
	case enum.IPredEQ:
		return "==", false
	case enum.IPredNE:
		return "!=", false
	case enum.IPredSLT:
		return "<", true
	case enum.IPredULT:
		return "<", false
	case enum.IPredSLE:
		return "<=", true
	case enum.IPredULE:
		return "<=", false
	case enum.IPredSGT:
		return ">", true
	case enum.IPredUGT:
		return ">", false
	case enum.IPredSGE:
		return ">=", true
	default: // enum.IPredUGE
		return ">=", false
	}
}

func fcmpOp(pred enum.FPred) string {
	switch pred {
	case enum.FPredOEQ:
		return "=="
	case enum.FPredONE:
		return "!="
	case enum.FPredOLT:
		return "<"
	case enum.FPredOLE:
		return "<="
	case enum.FPredOGT:
		return ">"
	default: // enum.FPredOGE
		return ">="
	}
}

// printCall rewrites a call to one of the filter's three channel externs
// into direct FIFO-port access, and otherwise emits a plain C call
// (built-ins and user functions alike, since irgen.go already points a
// built-in's callee at a real C-runtime symbol name).
func (fn *funcPrinter) printCall(w *strings.Builder, ii *ir.InstCall) error {
	callee, ok := ii.Callee.(*ir.Func)
	if !ok {
		return fmt.Errorf("cbackend: indirect call not supported")
	}
	switch callee.Name() {
	case irgen.FuncSymbol(fn.filterName, "pop"):
		expr := fmt.Sprintf("%s[(*%s)++]", fn.inPort.dataArg, fn.inPort.idxArg)
		fn.emit(w, ii, callee.Sig.RetType, expr)
		return nil
	case irgen.FuncSymbol(fn.filterName, "peek"):
		idx := fn.rvalue(ii.Args[0])
		expr := fmt.Sprintf("%s[*%s + %s]", fn.inPort.dataArg, fn.inPort.idxArg, idx)
		fn.emit(w, ii, callee.Sig.RetType, expr)
		return nil
	case irgen.FuncSymbol(fn.filterName, "push"):
		val := maskExpr(ii.Args[0].Type(), fn.rvalue(ii.Args[0]))
		fmt.Fprintf(w, "  %s[(*%s)++] = %s;\n", fn.outPort.dataArg, fn.outPort.idxArg, val)
		return nil
	}

	args := make([]string, len(ii.Args))
	for i, a := range ii.Args {
		args[i] = fn.rvalue(a)
	}
	call := fmt.Sprintf("%s(%s)", callee.Name(), strings.Join(args, ", "))
	if _, isVoid := callee.Sig.RetType.(*types.VoidType); isVoid {
		fmt.Fprintf(w, "  %s;\n", call)
		return nil
	}
	fn.emit(w, ii, callee.Sig.RetType, call)
	return nil
}

func (fn *funcPrinter) printTerm(w *strings.Builder, blk *ir.Block) {
	switch tt := blk.Term.(type) {
	case *ir.TermRet:
		if tt.X == nil {
			w.WriteString("  return;\n")
			return
		}
		fmt.Fprintf(w, "  return %s;\n", fn.rvalue(tt.X))
	case *ir.TermBr:
		fmt.Fprintf(w, "  goto %s;\n", tt.Target.(*ir.Block).Name())
	case *ir.TermCondBr:
		fmt.Fprintf(w, "  if (%s) goto %s; else goto %s;\n", fn.rvalue(tt.Cond), tt.TargetTrue.(*ir.Block).Name(), tt.TargetFalse.(*ir.Block).Name())
	case *ir.TermUnreachable:
		w.WriteString("  /* unreachable */\n  return;\n")
	}
}
