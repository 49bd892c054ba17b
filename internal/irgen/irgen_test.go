package irgen

import (
	"bytes"
	"testing"

	"github.com/llir/llvm/ir"

	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/sema"
	"streamhls/internal/source"
	"streamhls/internal/types"
)

func pos(line int) source.Position {
	return source.Position{File: "test.shls", Line: line, Col: 1}
}

// analyzeAndLower runs the program through C2 then C3, failing the test
// if either stage reports a diagnostic — every case here is expected to
// be well-formed input, so any diagnostic indicates a bug in the test
// fixture or the lowerer, not a deliberate negative case.
func analyzeAndLower(t *testing.T, b *ast.Builder) *ir.Module {
	t.Helper()
	prog := b.Program()
	in := types.NewInterner()
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	sema.Analyze(prog, in, r)
	if r.HasErrors() {
		t.Fatalf("program failed analysis before lowering: %s", buf.String())
	}
	mod := Lower(prog, in, r)
	if r.HasErrors() {
		t.Fatalf("lowering reported errors: %s", buf.String())
	}
	return mod
}

func funcNames(mod *ir.Module) []string {
	names := make([]string, len(mod.Funcs))
	for i, f := range mod.Funcs {
		names[i] = f.Name()
	}
	return names
}

func findFunc(mod *ir.Module, want string) *ir.Func {
	for _, f := range mod.Funcs {
		if f.Name() == want {
			return f
		}
	}
	return nil
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

// scenario 1 of spec §8: a stateful void->int counter filter lowers to
// its work function plus its push extern, and the
// persistent counter var becomes a module-level global rather than an
// SSA register, since it must survive past a single work invocation.
func TestCounterFilterLowersWorkAndGlobal(t *testing.T) {
	b := ast.NewBuilder()

	nDecl, nStmt := b.Var(pos(1), "n", "int", false, b.Int(pos(1), 0))
	pushStmt := b.Push(pos(2), b.Ident(pos(2), "n"))
	incStmt := b.ExprStmt(pos(2), b.Assign(pos(2), ast.OpAssign, b.Ident(pos(2), "n"),
		b.Binary(pos(2), ast.OpAdd, b.Ident(pos(2), "n"), b.Int(pos(2), 1))))

	work := b.WorkBlock().Push(b.Int(pos(2), 1)).Body(pushStmt, incStmt)
	b.Filter(pos(1), "counter", "void", "int", true, nil, []ast.DeclID{nDecl}, nil, nil, work)
	_ = nStmt

	mod := analyzeAndLower(t, b)

	names := funcNames(mod)
	for _, want := range []string{"counter__work", "counter__push"} {
		if !contains(names, want) {
			t.Fatalf("expected function %q among %v", want, names)
		}
	}
	if len(mod.Globals) == 0 {
		t.Fatalf("expected the persistent var n to lower to a module global")
	}
}

// scenario 2 of spec §8: a constant array-typed filter var initialised
// from a brace list lowers cleanly to exactly one global.
func TestScramblerArrayInitListLowers(t *testing.T) {
	b := ast.NewBuilder()

	elems := make([]ast.ExprID, 7)
	vals := []int64{1, 1, 0, 1, 1, 0, 0}
	for i, v := range vals {
		elems[i] = b.Int(pos(1), v)
	}
	sDecl, sStmt := b.Var(pos(1), "s", "int[7]", true, b.InitList(pos(1), elems...))

	popStmt := b.ExprStmt(pos(2), b.Pop(pos(2)))
	pushStmt := b.Push(pos(2), b.Index(pos(2), b.Ident(pos(2), "s"), b.Int(pos(2), 0)))

	work := b.WorkBlock().Pop(b.Int(pos(2), 1)).Push(b.Int(pos(2), 8)).
		Body(popStmt, pushStmt, pushStmt, pushStmt, pushStmt, pushStmt, pushStmt, pushStmt, pushStmt)
	_, _ = sDecl, sStmt
	b.Filter(pos(1), "scramble", "int", "int", true, nil, []ast.DeclID{sDecl}, nil, nil, work)

	mod := analyzeAndLower(t, b)
	if len(mod.Globals) != 1 {
		t.Fatalf("expected exactly one global for the persistent array s, got %d", len(mod.Globals))
	}
}

// an if/else with a push in each arm lowers to at least an entry, then,
// else, and merge block, and every block in the function ends in a
// terminator — §4.3 point 3's then/else?/merge shape.
func TestIfElseLowersTerminatedBlocks(t *testing.T) {
	b := ast.NewBuilder()

	cond := b.Binary(pos(1), ast.OpGt, b.Peek(pos(1), b.Int(pos(1), 0)), b.Int(pos(1), 0))
	thenPush := b.Push(pos(1), b.Int(pos(1), 1))
	elsePush := b.Push(pos(1), b.Int(pos(1), 0))
	ifStmt := b.If(pos(1), cond, []ast.StmtID{thenPush}, []ast.StmtID{elsePush})
	popStmt := b.ExprStmt(pos(1), b.Pop(pos(1)))

	work := b.WorkBlock().Peek(b.Int(pos(1), 1)).Pop(b.Int(pos(1), 1)).Push(b.Int(pos(1), 1)).
		Body(ifStmt, popStmt)
	b.Filter(pos(1), "gate", "int", "int", false, nil, nil, nil, nil, work)

	mod := analyzeAndLower(t, b)

	f := findFunc(mod, "gate__work")
	if f == nil {
		t.Fatalf("expected a gate__work function, got %v", funcNames(mod))
	}
	if len(f.Blocks) < 4 {
		t.Fatalf("expected at least entry+then+else+merge blocks, got %d", len(f.Blocks))
	}
	for _, blk := range f.Blocks {
		if blk.Term == nil {
			t.Fatalf("block %s left unterminated", blk.Name())
		}
	}
}

// a for-loop with a break inside an if lowers header/body/step/exit
// blocks without panicking on an empty break/continue target stack, and
// leaves every block terminated.
func TestForLoopWithBreakLowersCleanly(t *testing.T) {
	b := ast.NewBuilder()

	iDecl, iStmt := b.Var(pos(1), "i", "int", false, b.Int(pos(1), 0))
	cond := b.Binary(pos(1), ast.OpLt, b.Ident(pos(1), "i"), b.Int(pos(1), 4))
	post := b.ExprStmt(pos(1), b.Unary(pos(1), ast.OpPostInc, b.Ident(pos(1), "i")))
	breakCond := b.Binary(pos(1), ast.OpEq, b.Ident(pos(1), "i"), b.Int(pos(1), 2))
	breakIf := b.If(pos(1), breakCond, []ast.StmtID{b.Break(pos(1))}, nil)
	pushBody := b.Push(pos(1), b.Ident(pos(1), "i"))

	loop := b.For(pos(1), iStmt, cond, post, []ast.StmtID{breakIf, pushBody})
	_ = iDecl

	work := b.WorkBlock().Body(loop)
	b.Filter(pos(1), "unroller", "void", "int", false, nil, nil, nil, nil, work)

	mod := analyzeAndLower(t, b)

	f := findFunc(mod, "unroller__work")
	if f == nil {
		t.Fatalf("expected an unroller__work function, got %v", funcNames(mod))
	}
	for _, blk := range f.Blocks {
		if blk.Term == nil {
			t.Fatalf("block %s left unterminated", blk.Name())
		}
	}
}

// a short-circuited && lowers to a diamond with a PHI at the merge
// rather than eagerly evaluating both operands.
func TestLogicalAndLowersDiamondWithPhi(t *testing.T) {
	b := ast.NewBuilder()

	cond := b.Logical(pos(1), ast.OpLogicalAnd, b.Bool(pos(1), true),
		b.Binary(pos(1), ast.OpGt, b.Peek(pos(1), b.Int(pos(1), 0)), b.Int(pos(1), 0)))
	condStmt := b.ExprStmt(pos(1), cond)

	work := b.WorkBlock().Peek(b.Int(pos(1), 1)).Pop(b.Int(pos(1), 1)).
		Body(condStmt, b.ExprStmt(pos(1), b.Pop(pos(1))))
	b.Filter(pos(1), "sink", "int", "void", false, nil, nil, nil, nil, work)

	mod := analyzeAndLower(t, b)
	f := findFunc(mod, "sink__work")
	if f == nil {
		t.Fatalf("expected a sink__work function, got %v", funcNames(mod))
	}
	var sawPhi bool
	for _, blk := range f.Blocks {
		for _, inst := range blk.Insts {
			if _, ok := inst.(*ir.InstPhi); ok {
				sawPhi = true
			}
		}
	}
	if !sawPhi {
		t.Fatalf("expected a PHI node from the short-circuited &&")
	}
}

// builtins lower to extern declarations naming the real C runtime
// symbol, not a synthetic mangled name, so a C backend can link against
// them directly; sqrt lowers to sqrtf and the int abs overload to abs.
func TestBuiltinsLowerToRealLibcSymbols(t *testing.T) {
	b := ast.NewBuilder()

	sqrtParam := b.Param(pos(1), "x", "float")
	b.Function(pos(1), "sqrt", true, "float", []ast.DeclID{sqrtParam}, nil)
	absIntParam := b.Param(pos(2), "x", "int")
	b.Function(pos(2), "abs", true, "int", []ast.DeclID{absIntParam}, nil)

	callStmt := b.ExprStmt(pos(3), b.Call(pos(3), "sqrt", b.Float(pos(3), 2.0)))
	absStmt := b.ExprStmt(pos(3), b.Call(pos(3), "abs", b.Int(pos(3), -1)))
	work := b.WorkBlock().Body(callStmt, absStmt)
	b.Filter(pos(3), "user", "void", "void", false, nil, nil, nil, nil, work)

	mod := analyzeAndLower(t, b)
	names := funcNames(mod)
	if !contains(names, "sqrtf") {
		t.Fatalf("expected the sqrt builtin to lower to the extern sqrtf, got %v", names)
	}
	if !contains(names, "abs") {
		t.Fatalf("expected the int abs builtin to lower to the extern abs, got %v", names)
	}
}
