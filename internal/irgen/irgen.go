// Package irgen implements the C3 IR Lowerer of spec §4.3: given a fully
// analysed AST (every FilterDecl/FunctionDecl carries resolved types and
// folded rates, courtesy of internal/sema), it produces one SSA IR module
// containing a function per filter work block (init/prework/work) plus a
// function per user-declared function, using github.com/llir/llvm. The
// only coupling to a particular hardware/simulation backend is the
// TargetFragmentBuilder capability set (channel.go) — the statement and
// expression lowering in lower.go never touches a FIFO directly.
package irgen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	cc "github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"

	"streamhls/internal/ast"
	"streamhls/internal/diag"
	streamtypes "streamhls/internal/types"
)

// Lowerer owns the SSA IR module being built for one compilation job. Per
// §5, two concurrent jobs must use disjoint instances; Lowerer carries no
// package-level state, matching internal/sema and internal/types.
type Lowerer struct {
	prog     *ast.Program
	interner *streamtypes.Interner
	reporter *diag.Reporter
	module   *ir.Module
	conv     *llConv

	funcs    map[ast.DeclID]*ir.Func
	channels map[ast.DeclID]TargetFragmentBuilder
}

// Lower runs the C3 lowering pass and returns the finished module. prog
// must already have been analysed successfully by internal/sema — per
// §4.3's failure mode, every internal error encountered here is a bug,
// not a user-facing diagnostic, since C2 has already rejected anything
// that would make lowering ill-defined.
func Lower(prog *ast.Program, interner *streamtypes.Interner, reporter *diag.Reporter) *ir.Module {
	lw := &Lowerer{
		prog:     prog,
		interner: interner,
		reporter: reporter,
		module:   ir.NewModule(),
		conv:     newLLConv(),
		funcs:    make(map[ast.DeclID]*ir.Func),
		channels: make(map[ast.DeclID]TargetFragmentBuilder),
	}
	lw.declareFunctions()
	lw.declareFilterChannels()
	for _, id := range prog.TopLevel {
		switch d := prog.Decl(id).(type) {
		case *ast.FunctionDecl:
			if d.Builtin {
				continue
			}
			lw.lowerFunction(id, d)
		case *ast.FilterDecl:
			lw.lowerFilter(id, d)
		}
	}
	return lw.module
}

// declareFunctions declares every function's signature before any body is
// lowered, so a call to a function declared later in the file (or a
// mutually recursive pair) resolves regardless of declaration order —
// the same forward-reference discipline internal/sema's resolveSignatures
// uses for stream declarations.
func (lw *Lowerer) declareFunctions() {
	for i, d := range lw.prog.Decls {
		fd, ok := d.(*ast.FunctionDecl)
		if !ok {
			continue
		}
		id := ast.DeclID(i)
		if sym, ok := lw.builtinSymbol(fd); ok {
			lw.funcs[id] = lw.declareBuiltin(fd, sym)
			continue
		}
		params := make([]*ir.Param, len(fd.Params))
		for j, pid := range fd.Params {
			pd := lw.prog.Decl(pid).(*ast.ParameterDecl)
			params[j] = ir.NewParam(pd.Name, lw.conv.llType(pd.Type))
		}
		retLL := lw.conv.llType(fd.ReturnType)
		name := fmt.Sprintf("%s_%d", sanitizeName(fd.Name), id)
		lw.funcs[id] = lw.module.NewFunc(name, retLL, params...)
	}
}

// builtinSymbol maps a pre-registered built-in (§4.2, fixed concretely by
// SPEC_FULL.md's EXPANSION) to the C standard library symbol the HDL C
// backend (§4.5) ultimately links against, so the generic IR already
// names the real runtime entry point rather than a synthetic stand-in.
func (lw *Lowerer) builtinSymbol(fd *ast.FunctionDecl) (string, bool) {
	if !fd.Builtin {
		return "", false
	}
	switch fd.Name {
	case "println":
		return "printf", true
	case "sin":
		return "sinf", true
	case "cos":
		return "cosf", true
	case "sqrt":
		return "sqrtf", true
	case "abs":
		if len(fd.Params) == 1 {
			pd := lw.prog.Decl(fd.Params[0]).(*ast.ParameterDecl)
			if pd.Type.Kind() == streamtypes.Int {
				return "abs", true
			}
		}
		return "fabsf", true
	default:
		return fd.Name, true
	}
}

func (lw *Lowerer) declareBuiltin(fd *ast.FunctionDecl, sym string) *ir.Func {
	if fd.Name == "println" {
		f := lw.module.NewFunc(sym, lltypes.Void)
		f.Sig.Variadic = true
		return f
	}
	params := make([]*ir.Param, len(fd.Params))
	for i, pid := range fd.Params {
		pd := lw.prog.Decl(pid).(*ast.ParameterDecl)
		params[i] = ir.NewParam(pd.Name, lw.conv.llType(pd.Type))
	}
	return lw.module.NewFunc(sym, lw.conv.llType(fd.ReturnType), params...)
}

// declareFilterChannels builds the default TargetFragmentBuilder for every
// filter: three extern declarations the backend is responsible for
// defining (§4.3's "these three operations are the only couplings between
// the generic lowerer and any particular backend").
func (lw *Lowerer) declareFilterChannels() {
	for _, id := range lw.prog.TopLevel {
		fd, ok := lw.prog.Decl(id).(*ast.FilterDecl)
		if !ok {
			continue
		}
		inLL := lw.conv.llType(fd.InputType)
		outLL := lw.conv.llType(fd.OutputType)
		lw.channels[id] = newExternChannel(lw.module, fd.Name, inLL, outLL)
	}
}

// declareFilterGlobals gives every filter-scope variable (§3's "filter-
// scope persistent state") module-level storage: persistent state must
// outlive any single init/prework/work invocation, so — unlike a local
// constant, which §4.3 point 4 binds directly to its SSA value — it can
// never live purely as a register. This holds even for a filter var that
// happens to be declared const; it still needs an address because an
// array- or struct-typed const var is indexed through a GEP either way.
func (lw *Lowerer) declareFilterGlobals(fd *ast.FilterDecl) map[ast.DeclID]*ir.Global {
	globals := make(map[ast.DeclID]*ir.Global, len(fd.Vars))
	for _, vid := range fd.Vars {
		vd := lw.prog.Decl(vid).(*ast.VariableDecl)
		llTy := lw.conv.llType(vd.Type)
		var init cc.Constant
		if vd.Init != ast.InvalidExpr {
			init = lw.constantInit(lw.prog.Expr(vd.Init), llTy)
		} else {
			init = cc.NewZeroInitializer(llTy)
		}
		globals[vid] = lw.module.NewGlobalDef(mangle(fd.Name, vd.Name), init)
	}
	return globals
}

// constantInit folds a filter-var initializer into an LLVM constant for
// the global's initial value. Only literals are recognised; anything
// else (an expression referencing another variable, say) falls back to a
// zero-initializer, since a filter's true reset behaviour belongs to its
// init work block, not the global's static initializer.
func (lw *Lowerer) constantInit(ex ast.Expr, llTy lltypes.Type) cc.Constant {
	switch e := ex.(type) {
	case *ast.IntLit:
		if it, ok := llTy.(*lltypes.IntType); ok {
			return cc.NewInt(it, e.Value)
		}
	case *ast.BoolLit:
		return cc.NewBool(e.Value)
	case *ast.FloatLit:
		if ft, ok := llTy.(*lltypes.FloatType); ok {
			return cc.NewFloat(ft, e.Value)
		}
	}
	return cc.NewZeroInitializer(llTy)
}

func (lw *Lowerer) lowerFunction(id ast.DeclID, fd *ast.FunctionDecl) {
	f := lw.funcs[id]
	fb := newFuncBuilder(lw, f, fd.Params, nil, nil)
	fb.allocLocals(fd.Body)
	fb.lowerStmts(fd.Body)
	fb.finish(fd.ReturnType)
}

func (lw *Lowerer) lowerFilter(id ast.DeclID, fd *ast.FilterDecl) {
	globals := lw.declareFilterGlobals(fd)
	channel := lw.channels[id]
	lw.lowerWorkBlock(fd, fd.Init, "init", globals, channel)
	lw.lowerWorkBlock(fd, fd.Prework, "prework", globals, channel)
	lw.lowerWorkBlock(fd, fd.Work, "work", globals, channel)
}

func (lw *Lowerer) lowerWorkBlock(fd *ast.FilterDecl, wb *ast.WorkBlock, stage string, globals map[ast.DeclID]*ir.Global, channel TargetFragmentBuilder) {
	if wb == nil {
		return
	}
	params := make([]*ir.Param, len(fd.Params))
	for i, pid := range fd.Params {
		pd := lw.prog.Decl(pid).(*ast.ParameterDecl)
		params[i] = ir.NewParam(pd.Name, lw.conv.llType(pd.Type))
	}
	f := lw.module.NewFunc(mangle(fd.Name, stage), lltypes.Void, params...)
	fb := newFuncBuilder(lw, f, fd.Params, channel, globals)
	fb.allocLocals(wb.Body)
	fb.lowerStmts(wb.Body)
	fb.finish(lw.interner.Void())
}
