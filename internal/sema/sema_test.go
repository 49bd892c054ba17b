package sema

import (
	"bytes"
	"strings"
	"testing"

	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/source"
	"streamhls/internal/types"
)

func pos(line int) source.Position {
	return source.Position{File: "test.shls", Line: line, Col: 1}
}

func analyze(t *testing.T, prog *ast.Program) (*diag.Reporter, string) {
	t.Helper()
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	Analyze(prog, types.NewInterner(), r)
	r.SortByPosition()
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return r, buf.String()
}

// scenario 1 of spec §8: a stateful void->int counter filter whose work
// block pushes exactly once per iteration.
func TestConstantCounterFilterHasNoDiagnostics(t *testing.T) {
	b := ast.NewBuilder()

	nDecl, nStmt := b.Var(pos(1), "n", "int", false, b.Int(pos(1), 0))
	pushStmt := b.Push(pos(2), b.Ident(pos(2), "n"))
	incStmt := b.ExprStmt(pos(2), b.Assign(pos(2), ast.OpAssign, b.Ident(pos(2), "n"),
		b.Binary(pos(2), ast.OpAdd, b.Ident(pos(2), "n"), b.Int(pos(2), 1))))

	work := b.WorkBlock().Push(b.Int(pos(2), 1)).Body(pushStmt, incStmt)
	b.Filter(pos(1), "counter", "void", "int", true, nil, []ast.DeclID{nDecl}, nil, nil, work)
	_ = nStmt

	_, out := analyze(t, b.Program())
	if out != "" {
		t.Fatalf("expected no diagnostics, got %q", out)
	}
}

// scenario 2 of spec §8: a constant array-typed variable initialised from
// a brace initialiser list must type-check against its declared array type.
func TestScramblerArrayInitListTypes(t *testing.T) {
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

	r, out := analyze(t, b.Program())
	if r.HasErrors() {
		t.Fatalf("expected array init list to type-check cleanly, got %q", out)
	}
}

// scenario 5 of spec §8: && must fold/short-circuit; here we only check
// that a well-typed logical-and of a bool literal and a comparison
// analyses cleanly, and
// that the right operand is flagged dynamic (not staticaly countable)
// when it contains a pop().
func TestLogicalAndRightOperandNotCountedStatically(t *testing.T) {
	b := ast.NewBuilder()

	cond := b.Logical(pos(1), ast.OpLogicalAnd, b.Bool(pos(1), false),
		b.Binary(pos(1), ast.OpGt, b.Pop(pos(1)), b.Int(pos(1), 0)))
	condStmt := b.ExprStmt(pos(1), cond)

	work := b.WorkBlock().Pop(b.Int(pos(1), 1)).Push(b.Int(pos(1), 0)).Body(condStmt)
	b.Filter(pos(1), "gate", "int", "void", false, nil, nil, nil, nil, work)

	r, out := analyze(t, b.Program())
	if !strings.Contains(out, "could not be statically verified") {
		t.Fatalf("expected a rate warning for the short-circuited pop, got %q", out)
	}
	if r.HasErrors() {
		t.Fatalf("a warning should not count as an error, got %q", out)
	}
}

// scenario 6 of spec §8 ("a declaration initializer whose type cannot
// convert to the declared type produces a TypeMismatch diagnostic"),
// using an initializer list against a scalar target since §4.1's
// transitive Bool→Int link makes `int x = true;` itself convertible.
func TestMismatchedInitializerIsTypeMismatch(t *testing.T) {
	b := ast.NewBuilder()

	_, xStmt := b.Var(pos(1), "x", "int", false, b.InitList(pos(1), b.Int(pos(1), 1), b.Int(pos(1), 2)))
	work := b.WorkBlock().Body(xStmt)
	b.Filter(pos(1), "f", "void", "void", false, nil, nil, nil, nil, work)

	r, out := analyze(t, b.Program())
	if !r.HasErrors() {
		t.Fatalf("expected a TypeMismatch error, got none; output: %q", out)
	}
	if !strings.Contains(out, string(diag.KindTypeMismatch)) {
		t.Fatalf("expected a TypeMismatch diagnostic, got %q", out)
	}
}

func TestStatelessFilterCannotWritePersistentVar(t *testing.T) {
	b := ast.NewBuilder()

	nDecl, nStmt := b.Var(pos(1), "n", "int", false, b.Int(pos(1), 0))
	assign := b.ExprStmt(pos(2), b.Assign(pos(2), ast.OpAssign, b.Ident(pos(2), "n"), b.Int(pos(2), 1)))

	work := b.WorkBlock().Body(assign)
	b.Filter(pos(1), "stateless", "void", "void", false, nil, []ast.DeclID{nDecl}, nil, nil, work)
	_ = nStmt

	r, out := analyze(t, b.Program())
	if !r.HasErrors() {
		t.Fatalf("expected writing to filter state from a stateless filter to fail, got %q", out)
	}
	if !strings.Contains(out, string(diag.KindRateMismatch)) {
		t.Fatalf("expected the stateless-write violation to reuse RateMismatch, got %q", out)
	}
}

func TestWorkBlockRateMismatchWhenPushCountDiffers(t *testing.T) {
	b := ast.NewBuilder()

	pushOnce := b.Push(pos(1), b.Int(pos(1), 1))
	work := b.WorkBlock().Push(b.Int(pos(1), 2)).Body(pushOnce)
	b.Filter(pos(1), "underpush", "void", "int", false, nil, nil, nil, nil, work)

	r, out := analyze(t, b.Program())
	if !r.HasErrors() {
		t.Fatalf("expected a RateMismatch for a declared-2/actual-1 push count, got %q", out)
	}
	if !strings.Contains(out, "declared push rate is 2") {
		t.Fatalf("expected a push-count diagnostic naming the declared rate, got %q", out)
	}
}

func TestPeekIndexOutOfDeclaredRangeIsRejected(t *testing.T) {
	b := ast.NewBuilder()

	peekTooFar := b.ExprStmt(pos(1), b.Peek(pos(1), b.Int(pos(1), 3)))
	work := b.WorkBlock().Peek(b.Int(pos(1), 2)).Pop(b.Int(pos(1), 1)).Body(peekTooFar)
	b.Filter(pos(1), "peeker", "int", "void", false, nil, nil, nil, nil, work)

	_, out := analyze(t, b.Program())
	if !strings.Contains(out, "out of range") {
		t.Fatalf("expected an out-of-range peek diagnostic, got %q", out)
	}
}

func TestForLoopWithStaticTripCountMultipliesPushCount(t *testing.T) {
	b := ast.NewBuilder()

	iDecl, iStmt := b.Var(pos(1), "i", "int", false, b.Int(pos(1), 0))
	cond := b.Binary(pos(1), ast.OpLt, b.Ident(pos(1), "i"), b.Int(pos(1), 4))
	post := b.ExprStmt(pos(1), b.Unary(pos(1), ast.OpPostInc, b.Ident(pos(1), "i")))
	pushBody := b.Push(pos(1), b.Int(pos(1), 0))

	loop := b.For(pos(1), iStmt, cond, post, []ast.StmtID{pushBody})
	_ = iDecl

	work := b.WorkBlock().Push(b.Int(pos(1), 4)).Body(loop)
	b.Filter(pos(1), "unrolled", "void", "int", false, nil, nil, nil, nil, work)

	r, out := analyze(t, b.Program())
	if r.HasErrors() {
		t.Fatalf("expected the statically-unrollable loop to satisfy push_rate=4 cleanly, got %q", out)
	}
	if strings.Contains(out, "could not be statically verified") {
		t.Fatalf("expected a precise count, not a fallback warning, got %q", out)
	}
}

func TestAmbiguousOverloadCallIsRejected(t *testing.T) {
	b := ast.NewBuilder()

	// Two same-arity overloads with identical exact-match parameter
	// types tie on score: the call cannot pick a strict best.
	p1 := b.Param(pos(1), "x", "int")
	p2 := b.Param(pos(1), "x", "int")
	b.Function(pos(1), "identity", false, "int", []ast.DeclID{p1}, []ast.StmtID{b.Return(pos(1), b.Ident(pos(1), "x"))})
	b.Function(pos(2), "identity", false, "int", []ast.DeclID{p2}, []ast.StmtID{b.Return(pos(2), b.Ident(pos(2), "x"))})

	callStmt := b.ExprStmt(pos(3), b.Call(pos(3), "identity", b.Int(pos(3), 1)))
	work := b.WorkBlock().Body(callStmt)
	b.Filter(pos(3), "caller", "void", "void", false, nil, nil, nil, nil, work)

	_, out := analyze(t, b.Program())
	if !strings.Contains(out, string(diag.KindAmbiguous)) {
		t.Fatalf("expected an Ambiguous diagnostic (two identical-scoring overloads), got %q", out)
	}
}

func TestUndeclaredIdentifierIsReported(t *testing.T) {
	b := ast.NewBuilder()

	useStmt := b.ExprStmt(pos(1), b.Ident(pos(1), "ghost"))
	work := b.WorkBlock().Body(useStmt)
	b.Filter(pos(1), "f", "void", "void", false, nil, nil, nil, nil, work)

	r, out := analyze(t, b.Program())
	if !r.HasErrors() {
		t.Fatalf("expected an UndeclaredName error, got none: %q", out)
	}
	if !strings.Contains(out, string(diag.KindUndeclaredName)) {
		t.Fatalf("expected UndeclaredName, got %q", out)
	}
}

func TestForwardReferencedStreamResolvesInPipeline(t *testing.T) {
	b := ast.NewBuilder()

	// "later" is declared after the pipeline that adds it.
	addStmt := b.Add(pos(1), "later")
	b.Pipeline(pos(1), "p", "int", "int", nil, []ast.StmtID{addStmt})

	work := b.WorkBlock().Peek(b.Int(pos(2), 1)).Pop(b.Int(pos(2), 1)).Push(b.Int(pos(2), 1)).
		Body(b.Push(pos(2), b.Pop(pos(2))))
	b.Filter(pos(2), "later", "int", "int", false, nil, nil, nil, nil, work)

	r, out := analyze(t, b.Program())
	if r.HasErrors() {
		t.Fatalf("expected forward reference to resolve cleanly, got %q", out)
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	b := ast.NewBuilder()
	work := b.WorkBlock().Body()
	b.Filter(pos(1), "noop", "void", "void", false, nil, nil, nil, nil, work)
	prog := b.Program()

	in := types.NewInterner()
	var buf1 bytes.Buffer
	r1 := diag.NewReporter(&buf1, "text")
	Analyze(prog, in, r1)
	declsAfterFirst := len(prog.Decls)

	var buf2 bytes.Buffer
	r2 := diag.NewReporter(&buf2, "text")
	Analyze(prog, in, r2)

	if len(prog.Decls) != declsAfterFirst {
		t.Fatalf("second Analyze call changed decl count: %d != %d", len(prog.Decls), declsAfterFirst)
	}
	if r2.HasErrors() {
		t.Fatalf("second Analyze call should not produce errors on an already-analyzed program")
	}
}
