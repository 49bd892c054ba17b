package cbackend

import (
	"bytes"
	"strings"
	"testing"

	"streamhls/internal/ast"
	"streamhls/internal/diag"
	"streamhls/internal/irgen"
	"streamhls/internal/sema"
	"streamhls/internal/source"
	"streamhls/internal/types"
)

func pos(line int) source.Position {
	return source.Position{File: "test.shls", Line: line, Col: 1}
}

// TestEmitAccumulatorMasksOddWidthStore builds a stateful accumulator
// filter over a 3-bit persistent variable and checks that the generated
// translation unit both rewrites pop/push into FIFO port access and masks
// the store into the odd-width accumulator.
func TestEmitAccumulatorMasksOddWidthStore(t *testing.T) {
	b := ast.NewBuilder()
	acc, _ := b.Var(pos(1), "acc", "u3", false, ast.InvalidExpr)
	popVal, popDecl := b.Var(pos(2), "x", "int", false, b.Pop(pos(2)))
	addExpr := b.Binary(pos(3), ast.OpAdd, b.Ident(pos(3), "acc"), b.Ident(pos(3), "x"))
	assign := b.Assign(pos(3), ast.OpAssign, b.Ident(pos(3), "acc"), b.Cast(pos(3), "u3", addExpr))
	work := b.WorkBlock().Pop(b.Int(pos(1), 1)).Push(b.Int(pos(1), 1)).
		Body(popDecl, b.ExprStmt(pos(3), assign), b.Push(pos(4), b.Ident(pos(4), "acc")))
	b.Filter(pos(1), "Acc", "int", "int", true, nil, []ast.DeclID{acc}, nil, nil, work)
	_ = popVal

	prog := b.Program()
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	interner := types.NewInterner()
	sema.Analyze(prog, interner, r)
	if r.HasErrors() {
		r.Flush()
		t.Fatalf("analyze: unexpected diagnostics: %s", buf.String())
	}
	m := irgen.Lower(prog, interner, r)
	if r.HasErrors() {
		r.Flush()
		t.Fatalf("lower: unexpected diagnostics: %s", buf.String())
	}

	units, err := Emit(m, []string{"Acc"})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	src := units[0].Source

	if !strings.Contains(src, "in_fifo") {
		t.Errorf("expected the work function to gain an in_fifo port:\n%s", src)
	}
	if !strings.Contains(src, "out_fifo") {
		t.Errorf("expected the work function to gain an out_fifo port:\n%s", src)
	}
	if !strings.Contains(src, "(1ULL<<3)-1") {
		t.Errorf("expected a mask on the 3-bit accumulator store:\n%s", src)
	}
	if !strings.Contains(src, "Acc__acc") {
		t.Errorf("expected the persistent global Acc__acc to be declared:\n%s", src)
	}
	if strings.Contains(src, "Acc__pop") || strings.Contains(src, "Acc__push") {
		t.Errorf("pop/push externs should have been rewritten to FIFO access, not left as calls:\n%s", src)
	}
}

// TestEmitUnknownFilterErrors checks the not-found path: a filter name
// with no init/prework/work function in the module is a caller error, not
// an internal one, since Emit's caller controls which names to pass.
func TestEmitUnknownFilterErrors(t *testing.T) {
	b := ast.NewBuilder()
	work := b.WorkBlock().Pop(b.Int(pos(1), 0)).Push(b.Int(pos(1), 0)).Body()
	b.Filter(pos(1), "F", "void", "void", false, nil, nil, nil, nil, work)
	prog := b.Program()
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	interner := types.NewInterner()
	sema.Analyze(prog, interner, r)
	m := irgen.Lower(prog, interner, r)

	if _, err := Emit(m, []string{"DoesNotExist"}); err == nil {
		t.Fatalf("expected Emit to error on an unknown filter name")
	}
}
